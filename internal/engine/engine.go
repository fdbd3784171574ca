package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nordvale/planline-backend/internal/data/repos"
	"github.com/nordvale/planline-backend/internal/domain"
	domeng "github.com/nordvale/planline-backend/internal/domain/engine"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"gorm.io/datatypes"
)

// Deps wires the engine to its collaborators. Notifier may be nil; the engine
// then runs with notifications disabled.
type Deps struct {
	Base       BaseDeps
	Policy     CascadePolicy
	Projects   repos.ProjectRepo
	Milestones repos.MilestoneRepo
	Sprints    repos.SprintRepo
	Tasks      repos.TaskRepo
	Events     repos.EngineEventRepo
	Notifier   Notifier
}

// Engine is the transactional write boundary for the project hierarchy. Every
// operation validates, persists, and propagates progress in one transaction;
// reads go through the repos directly.
type Engine interface {
	CreateProject(ctx context.Context, project *domain.Project) (*ProjectResult, error)
	ApplyProjectChange(ctx context.Context, tenantID, projectID uuid.UUID, change ProjectChange) (*ProjectResult, error)

	CreateMilestone(ctx context.Context, milestone *domain.Milestone) (*MilestoneResult, error)
	ApplyMilestoneChange(ctx context.Context, tenantID, milestoneID uuid.UUID, change MilestoneChange) (*MilestoneResult, error)
	DeleteMilestone(ctx context.Context, tenantID, milestoneID uuid.UUID) (*CascadeResult, error)

	CreateSprint(ctx context.Context, sprint *domain.Sprint) (*SprintResult, error)
	ApplySprintChange(ctx context.Context, tenantID, sprintID uuid.UUID, change SprintChange) (*SprintResult, error)
	DeleteSprint(ctx context.Context, tenantID, sprintID uuid.UUID) (*CascadeResult, error)

	CreateTask(ctx context.Context, task *domain.Task) (*TaskResult, error)
	ApplyTaskChange(ctx context.Context, tenantID, taskID uuid.UUID, change TaskChange) (*TaskResult, error)
	DeleteTask(ctx context.Context, tenantID, taskID uuid.UUID) (*CascadeResult, error)

	RecomputeProjectProgress(ctx context.Context, tenantID, projectID uuid.UUID) (*RecomputeResult, error)
}

// Change structs carry partial updates. A nil field is untouched; explicit
// clears use the dedicated flags.

type ProjectChange struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Budget      *float64   `json:"budget,omitempty"`
	Tags        *string    `json:"tags,omitempty"`
}

type MilestoneChange struct {
	Name          *string    `json:"name,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Status        *string    `json:"status,omitempty"`
	PlannedStart  *time.Time `json:"planned_start,omitempty"`
	ActualStart   *time.Time `json:"actual_start,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	AssigneeID    *uuid.UUID `json:"assignee_id,omitempty"`
	ClearAssignee bool       `json:"clear_assignee,omitempty"`
}

type SprintChange struct {
	Name      *string    `json:"name,omitempty"`
	Status    *string    `json:"status,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

type TaskChange struct {
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Status         *string    `json:"status,omitempty"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	EstimatedHours *int       `json:"estimated_hours,omitempty"`
	SprintID       *uuid.UUID `json:"sprint_id,omitempty"`
	ClearSprint    bool       `json:"clear_sprint,omitempty"`
	AssigneeID     *uuid.UUID `json:"assignee_id,omitempty"`
	ClearAssignee  bool       `json:"clear_assignee,omitempty"`
}

type ProjectResult struct {
	Project *domain.Project `json:"project"`
}

type MilestoneResult struct {
	Milestone *domain.Milestone `json:"milestone"`
	Cascade   CascadeResult     `json:"cascade"`
}

type SprintResult struct {
	Sprint  *domain.Sprint `json:"sprint"`
	Cascade CascadeResult  `json:"cascade"`
}

type TaskResult struct {
	Task    *domain.Task  `json:"task"`
	Cascade CascadeResult `json:"cascade"`
}

// RecomputeResult reports a full progress rebuild for one project.
type RecomputeResult struct {
	ProjectProgress   int                     `json:"project_progress"`
	MilestonesUpdated int                     `json:"milestones_updated"`
	SprintsUpdated    int                     `json:"sprints_updated"`
	Warnings          []domeng.CascadeWarning `json:"warnings,omitempty"`
}

type engineImpl struct {
	deps Deps
}

func New(deps Deps) Engine {
	deps.Base = deps.Base.withDefaults()
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	return &engineImpl{deps: deps}
}

var projectStatuses = map[string]struct{}{
	domain.ProjectStatusPlanning:  {},
	domain.ProjectStatusActive:    {},
	domain.ProjectStatusOnHold:    {},
	domain.ProjectStatusCompleted: {},
	domain.ProjectStatusArchived:  {},
}

var milestoneStatuses = map[string]struct{}{
	domain.MilestoneStatusPlanning:  {},
	domain.MilestoneStatusActive:    {},
	domain.MilestoneStatusCompleted: {},
}

func requireKnownStatus(op, kind, status string, known map[string]struct{}) error {
	if _, ok := known[status]; !ok {
		return domeng.NewError(domeng.CodeInvalidStatus, op,
			fmt.Sprintf("unknown %s status %q", kind, status), nil)
	}
	return nil
}

const dueSoonWindowDays = 3

// milestoneDueSoon reports whether the milestone's due date falls within the
// notification window, measured in whole calendar days.
func milestoneDueSoon(m *domain.Milestone, now time.Time) (int, bool) {
	if m == nil || m.DueDate == nil || m.Status == domain.MilestoneStatusCompleted {
		return 0, false
	}
	today := now.UTC().Truncate(24 * time.Hour)
	due := m.DueDate.UTC().Truncate(24 * time.Hour)
	days := int(due.Sub(today) / (24 * time.Hour))
	if days < 0 || days > dueSoonWindowDays {
		return 0, false
	}
	return days, true
}

// appendEvent writes the audit row inside the operation's transaction. A
// marshal or insert failure is logged, never returned; the audit trail is
// best-effort while the write itself is not.
func (e *engineImpl) appendEvent(dbc dbctx.Context, tenantID uuid.UUID, op, entityType string, entityID uuid.UUID, payload map[string]any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		e.deps.Base.Log.Warn("engine event payload marshal failed", "op", op, "error", err)
		return
	}
	event := &domain.EngineEvent{
		TenantID:   tenantID,
		Op:         op,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    datatypes.JSON(raw),
	}
	if err := e.deps.Events.Append(dbc, event); err != nil {
		e.deps.Base.Log.Warn("engine event append failed", "op", op, "error", err)
	}
}

func (e *engineImpl) CreateProject(ctx context.Context, project *domain.Project) (*ProjectResult, error) {
	const op = "engine.project.create"
	if project == nil {
		return nil, domeng.NewError(domeng.CodeValidation, op, "project is required", nil)
	}
	if project.Status == "" {
		project.Status = domain.ProjectStatusPlanning
	}
	if project.Priority == "" {
		project.Priority = domain.PriorityMedium
	}
	err := executeWrite(ctx, e.deps.Base, op, func(dbc dbctx.Context) error {
		if err := requireKnownStatus(op, "project", project.Status, projectStatuses); err != nil {
			return err
		}
		if err := ValidateProjectWrite(op, project); err != nil {
			return err
		}
		if err := e.deps.Projects.Create(dbc, project); err != nil {
			return err
		}
		e.appendEvent(dbc, project.TenantID, op, "project", project.ID, map[string]any{"name": project.Name})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ProjectResult{Project: project}, nil
}

func (e *engineImpl) ApplyProjectChange(ctx context.Context, tenantID, projectID uuid.UUID, change ProjectChange) (*ProjectResult, error) {
	const op = "engine.project.update"
	var res ProjectResult
	err := executeWrite(ctx, e.deps.Base, op, func(dbc dbctx.Context) error {
		project, err := e.deps.Projects.GetByID(dbc, tenantID, projectID)
		if err != nil {
			return err
		}
		updates := map[string]any{}
		if change.Name != nil {
			project.Name = *change.Name
			updates["name"] = project.Name
		}
		if change.Description != nil {
			project.Description = *change.Description
			updates["description"] = project.Description
		}
		if change.Status != nil {
			project.Status = *change.Status
			updates["status"] = project.Status
		}
		if change.Priority != nil {
			project.Priority = *change.Priority
			updates["priority"] = project.Priority
		}
		if change.StartDate != nil {
			project.StartDate = change.StartDate
			updates["start_date"] = *change.StartDate
		}
		if change.EndDate != nil {
			project.EndDate = change.EndDate
			updates["end_date"] = *change.EndDate
		}
		if change.Budget != nil {
			project.Budget = *change.Budget
			updates["budget"] = project.Budget
		}
		if change.Tags != nil {
			project.Tags = *change.Tags
			updates["tags"] = project.Tags
		}
		if err := requireKnownStatus(op, "project", project.Status, projectStatuses); err != nil {
			return err
		}
		if err := ValidateProjectWrite(op, project); err != nil {
			return err
		}
		if len(updates) > 0 {
			updates["updated_at"] = time.Now().UTC()
			if err := e.deps.Projects.UpdateFields(dbc, projectID, updates); err != nil {
				return err
			}
		}
		e.appendEvent(dbc, tenantID, op, "project", projectID, map[string]any{"fields": changedKeys(updates)})
		res.Project = project
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (e *engineImpl) CreateMilestone(ctx context.Context, milestone *domain.Milestone) (*MilestoneResult, error) {
	const op = "engine.milestone.create"
	if milestone == nil {
		return nil, domeng.NewError(domeng.CodeValidation, op, "milestone is required", nil)
	}
	if milestone.Status == "" {
		milestone.Status = domain.MilestoneStatusPlanning
	}
	var res MilestoneResult
	err := executeWrite(ctx, e.deps.Base, op, func(dbc dbctx.Context) error {
		project, err := e.deps.Projects.GetByID(dbc, milestone.TenantID, milestone.ProjectID)
		if err != nil {
			return err
		}
		if err := requireKnownStatus(op, "milestone", milestone.Status, milestoneStatuses); err != nil {
			return err
		}
		if err := ValidateMilestoneWrite(op, milestone, project); err != nil {
			return err
		}
		if err := e.deps.Milestones.Create(dbc, milestone); err != nil {
			return err
		}

		// A new milestone enters the project average at zero progress.
		st := newCascadeState()
		st.seen("milestone", milestone.ID)
		e.cascadeFromProject(dbc, st, milestone.TenantID, milestone.ProjectID)
		e.finishCascade(op, st)
		res.Cascade = st.result

		e.appendEvent(dbc, milestone.TenantID, op, "milestone", milestone.ID, cascadeEventPayload(op, st))
		res.Milestone = milestone
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (e *engineImpl) ApplyMilestoneChange(ctx context.Context, tenantID, milestoneID uuid.UUID, change MilestoneChange) (*MilestoneResult, error) {
	const op = "engine.milestone.update"
	var (
		res     MilestoneResult
		notices []notice
	)
	err := executeWrite(ctx, e.deps.Base, op, func(dbc dbctx.Context) error {
		milestone, err := e.deps.Milestones.GetByID(dbc, tenantID, milestoneID)
		if err != nil {
			return err
		}
		project, err := e.deps.Projects.GetByID(dbc, tenantID, milestone.ProjectID)
		if err != nil {
			return err
		}
		updates := map[string]any{}
		if change.Name != nil {
			milestone.Name = *change.Name
			updates["name"] = milestone.Name
		}
		if change.Description != nil {
			milestone.Description = *change.Description
			updates["description"] = milestone.Description
		}
		if change.Status != nil {
			milestone.Status = *change.Status
			updates["status"] = milestone.Status
		}
		if change.PlannedStart != nil {
			milestone.PlannedStart = change.PlannedStart
			updates["planned_start"] = *change.PlannedStart
		}
		if change.ActualStart != nil {
			milestone.ActualStart = change.ActualStart
			updates["actual_start"] = *change.ActualStart
		}
		if change.DueDate != nil {
			milestone.DueDate = change.DueDate
			updates["due_date"] = *change.DueDate
		}
		if change.ClearAssignee {
			milestone.AssigneeID = nil
			updates["assignee_id"] = nil
		} else if change.AssigneeID != nil {
			milestone.AssigneeID = change.AssigneeID
			updates["assignee_id"] = *change.AssigneeID
		}
		if err := requireKnownStatus(op, "milestone", milestone.Status, milestoneStatuses); err != nil {
			return err
		}
		if err := ValidateMilestoneWrite(op, milestone, project); err != nil {
			return err
		}
		if len(updates) > 0 {
			updates["updated_at"] = time.Now().UTC()
			if err := e.deps.Milestones.UpdateFields(dbc, milestoneID, updates); err != nil {
				return err
			}
		}

		st := newCascadeState()
		st.seen("milestone", milestoneID)
		e.cascadeFromProject(dbc, st, tenantID, milestone.ProjectID)
		e.finishCascade(op, st)
		res.Cascade = st.result

		if days, ok := milestoneDueSoon(milestone, time.Now()); ok {
			notices = append(notices, notice{kind: noticeMilestoneDueSoon, milestone: milestone, daysLeft: days})
		}

		e.appendEvent(dbc, tenantID, op, "milestone", milestoneID, cascadeEventPayload(op, st))
		res.Milestone = milestone
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.fireNotices(ctx, notices)
	return &res, nil
}

// DeleteMilestone removes the milestone and everything beneath it, then
// rebalances the project average over the remaining milestones.
func (e *engineImpl) DeleteMilestone(ctx context.Context, tenantID, milestoneID uuid.UUID) (*CascadeResult, error) {
	const op = "engine.milestone.delete"
	var res CascadeResult
	err := executeWrite(ctx, e.deps.Base, op, func(dbc dbctx.Context) error {
		milestone, err := e.deps.Milestones.GetByID(dbc, tenantID, milestoneID)
		if err != nil {
			return err
		}
		if err := e.deps.Tasks.DeleteByMilestone(dbc, milestoneID); err != nil {
			return err
		}
		if err := e.deps.Sprints.DeleteByMilestone(dbc, milestoneID); err != nil {
			return err
		}
		if err := e.deps.Milestones.Delete(dbc, tenantID, milestoneID); err != nil {
			return err
		}

		st := newCascadeState()
		st.seen("milestone", milestoneID)
		e.cascadeFromProject(dbc, st, tenantID, milestone.ProjectID)
		e.finishCascade(op, st)
		res = st.result

		e.appendEvent(dbc, tenantID, op, "milestone", milestoneID, cascadeEventPayload(op, st))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (e *engineImpl) CreateSprint(ctx context.Context, sprint *domain.Sprint) (*SprintResult, error) {
	const op = "engine.sprint.create"
	if sprint == nil {
		return nil, domeng.NewError(domeng.CodeValidation, op, "sprint is required", nil)
	}
	if sprint.Status == "" {
		sprint.Status = domain.SprintStatusPlanned
	}
	var res SprintResult
	err := executeWrite(ctx, e.deps.Base, op, func(dbc dbctx.Context) error {
		milestone, err := e.deps.Milestones.GetByID(dbc, sprint.TenantID, sprint.MilestoneID)
		if err != nil {
			return err
		}
		if _, ok := sprintTransitions[sprint.Status]; !ok {
			return domeng.NewError(domeng.CodeInvalidStatus, op,
				fmt.Sprintf("unknown sprint status %q", sprint.Status), nil)
		}
		if err := ValidateSprintWrite(op, sprint, milestone, "", nil); err != nil {
			return err
		}
		if err := e.deps.Sprints.Create(dbc, sprint); err != nil {
			return err
		}

		// A new sprint changes the milestone's completed ratio denominator.
		st := newCascadeState()
		st.seen("sprint", sprint.ID)
		e.cascadeFromMilestone(dbc, st, sprint.TenantID, sprint.MilestoneID)
		e.finishCascade(op, st)
		res.Cascade = st.result

		e.appendEvent(dbc, sprint.TenantID, op, "sprint", sprint.ID, cascadeEventPayload(op, st))
		res.Sprint = sprint
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (e *engineImpl) ApplySprintChange(ctx context.Context, tenantID, sprintID uuid.UUID, change SprintChange) (*SprintResult, error) {
	const op = "engine.sprint.update"
	var (
		res     SprintResult
		notices []notice
	)
	err := executeWrite(ctx, e.deps.Base, op, func(dbc dbctx.Context) error {
		sprint, err := e.deps.Sprints.GetByID(dbc, tenantID, sprintID)
		if err != nil {
			return err
		}
		milestone, err := e.deps.Milestones.GetByID(dbc, tenantID, sprint.MilestoneID)
		if err != nil {
			return err
		}
		oldStatus := sprint.Status

		updates := map[string]any{}
		if change.Name != nil {
			sprint.Name = *change.Name
			updates["name"] = sprint.Name
		}
		if change.Status != nil {
			sprint.Status = *change.Status
			updates["status"] = sprint.Status
		}
		if change.StartDate != nil {
			sprint.StartDate = change.StartDate
			updates["start_date"] = *change.StartDate
		}
		if change.EndDate != nil {
			sprint.EndDate = change.EndDate
			updates["end_date"] = *change.EndDate
		}

		tasks, err := e.deps.Tasks.ListBySprint(dbc, sprintID)
		if err != nil {
			return err
		}
		if err := ValidateSprintWrite(op, sprint, milestone, oldStatus, tasks); err != nil {
			return err
		}

		progress, err := SprintProgress(tasks)
		if err != nil {
			return err
		}
		if progress != sprint.Progress {
			sprint.Progress = progress
			updates["progress"] = progress
		}

		if len(updates) > 0 {
			updates["updated_at"] = time.Now().UTC()
			// The status read above is the CAS token: a concurrent transition
			// between our read and this write surfaces as a conflict.
			ok, err := e.deps.Base.CASGuard.UpdateByStatus(dbc, "sprint", sprintID, []string{oldStatus}, updates)
			if err != nil {
				return err
			}
			if err := RequireCASSuccess(ok, "sprint status changed concurrently"); err != nil {
				return err
			}
		}

		st := newCascadeState()
		st.seen("sprint", sprintID)
		st.result.SprintProgress = &progress
		st.result.SprintStatus = sprint.Status
		e.cascadeFromMilestone(dbc, st, tenantID, sprint.MilestoneID)
		e.finishCascade(op, st)
		res.Cascade = st.result

		if oldStatus != domain.SprintStatusCompleted && sprint.Status == domain.SprintStatusCompleted {
			notices = append(notices, notice{kind: noticeSprintCompleted, sprint: sprint, milestone: milestone})
		}

		e.appendEvent(dbc, tenantID, op, "sprint", sprintID, cascadeEventPayload(op, st))
		res.Sprint = sprint
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.fireNotices(ctx, notices)
	return &res, nil
}

// DeleteSprint detaches the sprint's tasks back to the milestone backlog,
// removes the sprint, and rebalances the milestone ratio.
func (e *engineImpl) DeleteSprint(ctx context.Context, tenantID, sprintID uuid.UUID) (*CascadeResult, error) {
	const op = "engine.sprint.delete"
	var res CascadeResult
	err := executeWrite(ctx, e.deps.Base, op, func(dbc dbctx.Context) error {
		sprint, err := e.deps.Sprints.GetByID(dbc, tenantID, sprintID)
		if err != nil {
			return err
		}
		if err := e.deps.Tasks.ClearSprint(dbc, sprintID); err != nil {
			return err
		}
		if err := e.deps.Sprints.Delete(dbc, tenantID, sprintID); err != nil {
			return err
		}

		st := newCascadeState()
		st.seen("sprint", sprintID)
		e.cascadeFromMilestone(dbc, st, tenantID, sprint.MilestoneID)
		e.finishCascade(op, st)
		res = st.result

		e.appendEvent(dbc, tenantID, op, "sprint", sprintID, cascadeEventPayload(op, st))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (e *engineImpl) CreateTask(ctx context.Context, task *domain.Task) (*TaskResult, error) {
	const op = "engine.task.create"
	if task == nil {
		return nil, domeng.NewError(domeng.CodeValidation, op, "task is required", nil)
	}
	if task.Status == "" {
		task.Status = domain.TaskStatusToDo
	}
	var (
		res     TaskResult
		notices []notice
	)
	err := executeWrite(ctx, e.deps.Base, op, func(dbc dbctx.Context) error {
		milestone, err := e.deps.Milestones.GetByID(dbc, task.TenantID, task.MilestoneID)
		if err != nil {
			return err
		}
		var sprint *domain.Sprint
		if task.SprintID != nil {
			sprint, err = e.deps.Sprints.GetByID(dbc, task.TenantID, *task.SprintID)
			if err != nil {
				return err
			}
		}
		if err := ValidateTaskWrite(op, task, milestone, sprint); err != nil {
			return err
		}
		if err := e.deps.Tasks.Create(dbc, task); err != nil {
			return err
		}

		st := newCascadeState()
		if task.SprintID != nil {
			e.cascadeFromSprint(dbc, st, task.TenantID, *task.SprintID)
		} else {
			e.cascadeFromMilestone(dbc, st, task.TenantID, task.MilestoneID)
		}
		e.finishCascade(op, st)
		res.Cascade = st.result
		notices = st.notices

		e.appendEvent(dbc, task.TenantID, op, "task", task.ID, cascadeEventPayload(op, st))
		res.Task = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.fireNotices(ctx, notices)
	return &res, nil
}

func (e *engineImpl) ApplyTaskChange(ctx context.Context, tenantID, taskID uuid.UUID, change TaskChange) (*TaskResult, error) {
	const op = "engine.task.update"
	var (
		res     TaskResult
		notices []notice
	)
	err := executeWrite(ctx, e.deps.Base, op, func(dbc dbctx.Context) error {
		task, err := e.deps.Tasks.GetByID(dbc, tenantID, taskID)
		if err != nil {
			return err
		}
		oldSprintID := task.SprintID

		updates := map[string]any{}
		if change.Title != nil {
			task.Title = *change.Title
			updates["title"] = task.Title
		}
		if change.Description != nil {
			task.Description = *change.Description
			updates["description"] = task.Description
		}
		if change.Status != nil {
			task.Status = *change.Status
			updates["status"] = task.Status
		}
		if change.StartDate != nil {
			task.StartDate = change.StartDate
			updates["start_date"] = *change.StartDate
		}
		if change.EndDate != nil {
			task.EndDate = change.EndDate
			updates["end_date"] = *change.EndDate
		}
		if change.EstimatedHours != nil {
			task.EstimatedHours = change.EstimatedHours
			updates["estimated_hours"] = *change.EstimatedHours
		}
		if change.ClearSprint {
			task.SprintID = nil
			updates["sprint_id"] = nil
		} else if change.SprintID != nil {
			task.SprintID = change.SprintID
			updates["sprint_id"] = *change.SprintID
		}
		if change.ClearAssignee {
			task.AssigneeID = nil
			updates["assignee_id"] = nil
		} else if change.AssigneeID != nil {
			task.AssigneeID = change.AssigneeID
			updates["assignee_id"] = *change.AssigneeID
		}

		milestone, err := e.deps.Milestones.GetByID(dbc, tenantID, task.MilestoneID)
		if err != nil {
			return err
		}
		var sprint *domain.Sprint
		if task.SprintID != nil {
			sprint, err = e.deps.Sprints.GetByID(dbc, tenantID, *task.SprintID)
			if err != nil {
				return err
			}
		}
		if err := ValidateTaskWrite(op, task, milestone, sprint); err != nil {
			return err
		}
		if len(updates) > 0 {
			updates["updated_at"] = time.Now().UTC()
			if err := e.deps.Tasks.UpdateFields(dbc, taskID, updates); err != nil {
				return err
			}
		}

		// Both the sprint the task left and the one it joined need a
		// recompute; the visited set collapses shared ancestors.
		st := newCascadeState()
		if oldSprintID != nil {
			e.cascadeFromSprint(dbc, st, tenantID, *oldSprintID)
		}
		if task.SprintID != nil {
			e.cascadeFromSprint(dbc, st, tenantID, *task.SprintID)
		}
		if oldSprintID == nil && task.SprintID == nil {
			e.cascadeFromMilestone(dbc, st, tenantID, task.MilestoneID)
		}
		e.finishCascade(op, st)
		res.Cascade = st.result
		notices = st.notices

		e.appendEvent(dbc, tenantID, op, "task", taskID, cascadeEventPayload(op, st))
		res.Task = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.fireNotices(ctx, notices)
	return &res, nil
}

func (e *engineImpl) DeleteTask(ctx context.Context, tenantID, taskID uuid.UUID) (*CascadeResult, error) {
	const op = "engine.task.delete"
	var (
		res     CascadeResult
		notices []notice
	)
	err := executeWrite(ctx, e.deps.Base, op, func(dbc dbctx.Context) error {
		task, err := e.deps.Tasks.GetByID(dbc, tenantID, taskID)
		if err != nil {
			return err
		}
		if err := e.deps.Tasks.Delete(dbc, tenantID, taskID); err != nil {
			return err
		}

		st := newCascadeState()
		if task.SprintID != nil {
			e.cascadeFromSprint(dbc, st, tenantID, *task.SprintID)
		} else {
			e.cascadeFromMilestone(dbc, st, tenantID, task.MilestoneID)
		}
		e.finishCascade(op, st)
		res = st.result
		notices = st.notices

		e.appendEvent(dbc, tenantID, op, "task", taskID, cascadeEventPayload(op, st))
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.fireNotices(ctx, notices)
	return &res, nil
}

// RecomputeProjectProgress rebuilds every stored progress value under the
// project from the task level up. It never changes statuses, so running it
// twice in a row is a no-op. Used by the reconciliation sweep and exposed as
// an admin operation.
func (e *engineImpl) RecomputeProjectProgress(ctx context.Context, tenantID, projectID uuid.UUID) (*RecomputeResult, error) {
	const op = "engine.project.recompute"
	var res RecomputeResult
	err := executeWrite(ctx, e.deps.Base, op, func(dbc dbctx.Context) error {
		project, err := e.deps.Projects.GetByID(dbc, tenantID, projectID)
		if err != nil {
			return err
		}
		milestones, err := e.deps.Milestones.ListByProject(dbc, projectID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, milestone := range milestones {
			sprints, err := e.deps.Sprints.ListByMilestone(dbc, milestone.ID)
			if err != nil {
				return err
			}
			for _, sprint := range sprints {
				tasks, err := e.deps.Tasks.ListBySprint(dbc, sprint.ID)
				if err != nil {
					return err
				}
				progress, err := SprintProgress(tasks)
				if err != nil {
					return err
				}
				if progress != sprint.Progress {
					err := e.deps.Sprints.UpdateFields(dbc, sprint.ID, map[string]any{
						"progress": progress, "updated_at": now,
					})
					if err != nil {
						return err
					}
					sprint.Progress = progress
					res.SprintsUpdated++
				}
			}
			progress := MilestoneProgress(sprints)
			if progress != milestone.Progress {
				err := e.deps.Milestones.UpdateFields(dbc, milestone.ID, map[string]any{
					"progress": progress, "updated_at": now,
				})
				if err != nil {
					return err
				}
				milestone.Progress = progress
				res.MilestonesUpdated++
			}
		}
		res.ProjectProgress = ProjectProgress(milestones)
		if res.ProjectProgress != project.Progress {
			err := e.deps.Projects.UpdateFields(dbc, projectID, map[string]any{
				"progress": res.ProjectProgress, "updated_at": now,
			})
			if err != nil {
				return err
			}
		}
		e.appendEvent(dbc, tenantID, op, "project", projectID, map[string]any{
			"project_progress":   res.ProjectProgress,
			"milestones_updated": res.MilestonesUpdated,
			"sprints_updated":    res.SprintsUpdated,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func changedKeys(updates map[string]any) []string {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		if k == "updated_at" {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}
