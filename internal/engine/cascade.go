package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/nordvale/planline-backend/internal/domain"
	domeng "github.com/nordvale/planline-backend/internal/domain/engine"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
)

// CascadePolicy names the automatic sprint transitions the propagator may
// perform. Both flags default to on; neither is allowed to bypass the
// transition graph or the completion gate.
type CascadePolicy struct {
	// AutoActivateSprints flips a planned sprint to active when the first
	// task under it moves past to_do.
	AutoActivateSprints bool
	// AutoCompleteSprints flips an active sprint to completed when its last
	// remaining task reaches done.
	AutoCompleteSprints bool
}

func DefaultCascadePolicy() CascadePolicy {
	return CascadePolicy{AutoActivateSprints: true, AutoCompleteSprints: true}
}

// CascadeResult reports what the leaf-to-root propagation recomputed.
type CascadeResult struct {
	ProjectID         uuid.UUID               `json:"project_id,omitempty"`
	SprintProgress    *int                    `json:"sprint_progress,omitempty"`
	SprintStatus      string                  `json:"sprint_status,omitempty"`
	MilestoneProgress *int                    `json:"milestone_progress,omitempty"`
	ProjectProgress   *int                    `json:"project_progress,omitempty"`
	Warnings          []domeng.CascadeWarning `json:"warnings,omitempty"`
}

// cascadeState is the per-operation propagation context. The visited set is
// the recursion guard: within one logical operation each entity is recomputed
// at most once, and only in leaf-to-root direction.
type cascadeState struct {
	visited map[string]struct{}
	result  CascadeResult
	notices []notice
}

func newCascadeState() *cascadeState {
	return &cascadeState{visited: map[string]struct{}{}}
}

// seen marks the entity visited and reports whether it already was.
func (st *cascadeState) seen(kind string, id uuid.UUID) bool {
	key := kind + ":" + id.String()
	if _, ok := st.visited[key]; ok {
		return true
	}
	st.visited[key] = struct{}{}
	return false
}

// warn records a non-fatal cascade failure. The triggering leaf write stays
// committed; the warning is surfaced on the result and counted.
func (st *cascadeState) warn(entity string, id uuid.UUID, reason string) {
	st.result.Warnings = append(st.result.Warnings, domeng.CascadeWarning{
		Entity: entity,
		ID:     id.String(),
		Reason: reason,
	})
}

const casAttempts = 2

// cascadeFromSprint recomputes the sprint's progress, evaluates the
// auto-transition policy, and continues up through the milestone and project.
func (e *engineImpl) cascadeFromSprint(dbc dbctx.Context, st *cascadeState, tenantID, sprintID uuid.UUID) {
	if st.seen("sprint", sprintID) {
		return
	}

	var milestoneID uuid.UUID
	completedFlip := false
	persisted := false

	for attempt := 0; attempt < casAttempts; attempt++ {
		sprint, err := e.deps.Sprints.GetByID(dbc, tenantID, sprintID)
		if err != nil {
			st.warn("sprint", sprintID, err.Error())
			return
		}
		milestoneID = sprint.MilestoneID

		tasks, err := e.deps.Tasks.ListBySprint(dbc, sprintID)
		if err != nil {
			st.warn("sprint", sprintID, err.Error())
			return
		}
		progress, err := SprintProgress(tasks)
		if err != nil {
			st.warn("sprint", sprintID, err.Error())
			return
		}

		newStatus := sprint.Status
		switch {
		case e.deps.Policy.AutoCompleteSprints &&
			sprint.Status == domain.SprintStatusActive && AllTasksDone(tasks):
			newStatus = domain.SprintStatusCompleted
		case e.deps.Policy.AutoActivateSprints &&
			sprint.Status == domain.SprintStatusPlanned && AnyTaskStarted(tasks):
			newStatus = domain.SprintStatusActive
		}
		// Auto-transitions are not exempt from the graph; skip rather than force.
		if newStatus != sprint.Status {
			if err := ValidateSprintTransition("engine.cascade.sprint", sprint.Status, newStatus); err != nil {
				newStatus = sprint.Status
			}
		}

		updates := map[string]any{}
		if progress != sprint.Progress {
			updates["progress"] = progress
		}
		if newStatus != sprint.Status {
			updates["status"] = newStatus
		}
		if len(updates) == 0 {
			st.result.SprintProgress = &progress
			st.result.SprintStatus = sprint.Status
			persisted = true
			break
		}
		updates["updated_at"] = time.Now().UTC()

		// Compare-and-set on the status and progress read above. A miss means
		// a concurrent cascade committed between our read and this write;
		// retrying re-reads the tasks so its update is not lost.
		ok, err := e.deps.Base.CASGuard.UpdateByStatusAndProgress(dbc, "sprint", sprintID,
			[]string{sprint.Status}, sprint.Progress, updates)
		if err != nil {
			st.warn("sprint", sprintID, err.Error())
			return
		}
		if ok {
			st.result.SprintProgress = &progress
			st.result.SprintStatus = newStatus
			persisted = true
			completedFlip = newStatus == domain.SprintStatusCompleted && sprint.Status != domain.SprintStatusCompleted
			break
		}
		e.deps.Base.Hooks.IncConflict("engine.cascade.sprint")
	}

	if !persisted {
		st.warn("sprint", sprintID, "sprint changed concurrently; recompute abandoned after retry")
	}

	milestone := e.cascadeFromMilestone(dbc, st, tenantID, milestoneID)

	if completedFlip {
		sprint, err := e.deps.Sprints.GetByID(dbc, tenantID, sprintID)
		if err == nil {
			st.notices = append(st.notices, notice{
				kind:      noticeSprintCompleted,
				sprint:    sprint,
				milestone: milestone,
			})
		}
	}
}

// cascadeFromMilestone recomputes the milestone's progress from its sprints
// and continues up to the project. It returns the milestone when it could be
// loaded, for use by notification hooks.
func (e *engineImpl) cascadeFromMilestone(dbc dbctx.Context, st *cascadeState, tenantID, milestoneID uuid.UUID) *domain.Milestone {
	if milestoneID == uuid.Nil {
		return nil
	}
	milestone, err := e.deps.Milestones.GetByID(dbc, tenantID, milestoneID)
	if err != nil {
		st.warn("milestone", milestoneID, err.Error())
		return nil
	}
	if st.seen("milestone", milestoneID) {
		return milestone
	}

	persisted := false
	for attempt := 0; attempt < casAttempts; attempt++ {
		if attempt > 0 {
			milestone, err = e.deps.Milestones.GetByID(dbc, tenantID, milestoneID)
			if err != nil {
				st.warn("milestone", milestoneID, err.Error())
				return nil
			}
		}
		sprints, err := e.deps.Sprints.ListByMilestone(dbc, milestoneID)
		if err != nil {
			st.warn("milestone", milestoneID, err.Error())
			return milestone
		}
		progress := MilestoneProgress(sprints)
		if progress == milestone.Progress {
			st.result.MilestoneProgress = &progress
			persisted = true
			break
		}
		ok, err := e.deps.Base.CASGuard.UpdateByProgress(dbc, "milestone", milestoneID,
			milestone.Progress, map[string]any{
				"progress":   progress,
				"updated_at": time.Now().UTC(),
			})
		if err != nil {
			st.warn("milestone", milestoneID, err.Error())
			return milestone
		}
		if ok {
			milestone.Progress = progress
			st.result.MilestoneProgress = &progress
			persisted = true
			break
		}
		e.deps.Base.Hooks.IncConflict("engine.cascade.milestone")
	}
	if !persisted {
		st.warn("milestone", milestoneID, "milestone changed concurrently; recompute abandoned after retry")
	}

	e.cascadeFromProject(dbc, st, tenantID, milestone.ProjectID)
	return milestone
}

// cascadeFromProject recomputes the project's progress from its milestones.
// This is the root of the chain; nothing propagates past it.
func (e *engineImpl) cascadeFromProject(dbc dbctx.Context, st *cascadeState, tenantID, projectID uuid.UUID) {
	if projectID == uuid.Nil {
		return
	}
	st.result.ProjectID = projectID
	if st.seen("project", projectID) {
		return
	}
	for attempt := 0; attempt < casAttempts; attempt++ {
		project, err := e.deps.Projects.GetByID(dbc, tenantID, projectID)
		if err != nil {
			st.warn("project", projectID, err.Error())
			return
		}
		milestones, err := e.deps.Milestones.ListByProject(dbc, projectID)
		if err != nil {
			st.warn("project", projectID, err.Error())
			return
		}
		progress := ProjectProgress(milestones)
		if progress == project.Progress {
			st.result.ProjectProgress = &progress
			return
		}
		ok, err := e.deps.Base.CASGuard.UpdateByProgress(dbc, "project", projectID,
			project.Progress, map[string]any{
				"progress":   progress,
				"updated_at": time.Now().UTC(),
			})
		if err != nil {
			st.warn("project", projectID, err.Error())
			return
		}
		if ok {
			st.result.ProjectProgress = &progress
			return
		}
		e.deps.Base.Hooks.IncConflict("engine.cascade.project")
	}
	st.warn("project", projectID, "project changed concurrently; recompute abandoned after retry")
}

// finish counts cascade warnings and logs them once per operation.
func (e *engineImpl) finishCascade(op string, st *cascadeState) {
	for _, w := range st.result.Warnings {
		e.deps.Base.Hooks.IncCascadeWarning(op)
		e.deps.Base.Log.Warn("cascade incomplete",
			"op", op, "entity", w.Entity, "entity_id", w.ID, "reason", w.Reason)
	}
}

func cascadeEventPayload(op string, st *cascadeState) map[string]any {
	payload := map[string]any{"op": op}
	if st.result.SprintProgress != nil {
		payload["sprint_progress"] = *st.result.SprintProgress
	}
	if st.result.SprintStatus != "" {
		payload["sprint_status"] = st.result.SprintStatus
	}
	if st.result.MilestoneProgress != nil {
		payload["milestone_progress"] = *st.result.MilestoneProgress
	}
	if st.result.ProjectProgress != nil {
		payload["project_progress"] = *st.result.ProjectProgress
	}
	if n := len(st.result.Warnings); n > 0 {
		warnings := make([]string, 0, n)
		for _, w := range st.result.Warnings {
			warnings = append(warnings, w.String())
		}
		payload["warnings"] = warnings
	}
	return payload
}
