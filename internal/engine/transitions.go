package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/nordvale/planline-backend/internal/domain"
	domeng "github.com/nordvale/planline-backend/internal/domain/engine"
)

// sprintTransitions is the legal sprint status graph. completed is terminal;
// canceled sprints may be restarted.
var sprintTransitions = map[string][]string{
	domain.SprintStatusPlanned:   {domain.SprintStatusActive, domain.SprintStatusCanceled},
	domain.SprintStatusActive:    {domain.SprintStatusCompleted, domain.SprintStatusCanceled},
	domain.SprintStatusCompleted: {},
	domain.SprintStatusCanceled:  {domain.SprintStatusPlanned},
}

// ValidateSprintTransition rejects any status change not in the graph.
// A no-op (old == new) is always allowed.
func ValidateSprintTransition(op, oldStatus, newStatus string) error {
	if oldStatus == newStatus {
		return nil
	}
	allowed, ok := sprintTransitions[oldStatus]
	if !ok {
		return domeng.NewError(domeng.CodeInvalidStatus, op,
			fmt.Sprintf("unknown sprint status %q", oldStatus), nil)
	}
	for _, s := range allowed {
		if s == newStatus {
			return nil
		}
	}
	return domeng.NewError(domeng.CodeIllegalTransition, op,
		fmt.Sprintf("invalid status transition from %q to %q", oldStatus, newStatus), nil)
}

// ValidateTaskWrite checks a pending task write against its milestone and
// optional sprint: start before end, task dates contained in the milestone's
// date window, and a sprint assignment sharing the task's milestone.
func ValidateTaskWrite(op string, task *domain.Task, milestone *domain.Milestone, sprint *domain.Sprint) error {
	if task == nil || milestone == nil {
		return domeng.NewError(domeng.CodeValidation, op, "task and milestone are required", nil)
	}
	if _, err := TaskProgress(task.Status); err != nil {
		return err
	}
	if err := requireOrderedDates(op, task.StartDate, task.EndDate, "end date must be after start date"); err != nil {
		return err
	}
	if sprint != nil && sprint.MilestoneID != task.MilestoneID {
		return domeng.NewError(domeng.CodeSprintMilestoneMismatch, op,
			"task milestone must match sprint milestone", nil)
	}
	if err := requireContained(op, task.StartDate, task.EndDate, milestone.PlannedStart, milestone.DueDate,
		"task dates must fall within milestone dates"); err != nil {
		return err
	}
	return nil
}

// ValidateSprintWrite checks a pending sprint write: date containment in the
// milestone, the status transition graph, and the completion gate. tasks are
// the sprint's currently owned tasks, consulted only when the write sets
// status to completed.
func ValidateSprintWrite(op string, sprint *domain.Sprint, milestone *domain.Milestone, oldStatus string, tasks []*domain.Task) error {
	if sprint == nil || milestone == nil {
		return domeng.NewError(domeng.CodeValidation, op, "sprint and milestone are required", nil)
	}
	if err := requireOrderedDates(op, sprint.StartDate, sprint.EndDate, "end date must be after start date"); err != nil {
		return err
	}
	if err := requireContained(op, sprint.StartDate, sprint.EndDate, milestone.PlannedStart, milestone.DueDate,
		"sprint dates must fall within milestone dates"); err != nil {
		return err
	}
	if oldStatus != "" {
		if err := ValidateSprintTransition(op, oldStatus, sprint.Status); err != nil {
			return err
		}
	}
	if sprint.Status == domain.SprintStatusCompleted {
		if err := requireAllTasksDone(op, sprint.Name, tasks); err != nil {
			return err
		}
	}
	return nil
}

// ValidateMilestoneWrite checks planned start before due date and containment
// in the project's date window.
func ValidateMilestoneWrite(op string, milestone *domain.Milestone, project *domain.Project) error {
	if milestone == nil || project == nil {
		return domeng.NewError(domeng.CodeValidation, op, "milestone and project are required", nil)
	}
	if err := requireOrderedDates(op, milestone.PlannedStart, milestone.DueDate, "due date must be after planned start date"); err != nil {
		return err
	}
	if err := requireContained(op, milestone.PlannedStart, milestone.DueDate, project.StartDate, project.EndDate,
		"milestone dates must fall within project dates"); err != nil {
		return err
	}
	return nil
}

// ValidateProjectWrite checks start before end.
func ValidateProjectWrite(op string, project *domain.Project) error {
	if project == nil {
		return domeng.NewError(domeng.CodeValidation, op, "project is required", nil)
	}
	return requireOrderedDates(op, project.StartDate, project.EndDate, "end date must be after start date")
}

func requireOrderedDates(op string, start, end *time.Time, msg string) error {
	if start == nil || end == nil {
		return nil
	}
	if !start.Before(*end) {
		return domeng.NewError(domeng.CodeDateRangeViolation, op, msg, nil)
	}
	return nil
}

// requireContained enforces the containment invariant: when both a child bound
// and the corresponding parent bound are set, the child must not spill outside.
func requireContained(op string, childStart, childEnd, parentStart, parentEnd *time.Time, msg string) error {
	if childStart != nil && parentStart != nil && childStart.Before(*parentStart) {
		return domeng.NewError(domeng.CodeDateRangeViolation, op, msg, nil)
	}
	if childEnd != nil && parentEnd != nil && childEnd.After(*parentEnd) {
		return domeng.NewError(domeng.CodeDateRangeViolation, op, msg, nil)
	}
	return nil
}

// requireAllTasksDone is the sprint completion gate. The rejection names up to
// three offending task titles plus the total count, matching what operators
// see in the UI.
func requireAllTasksDone(op, sprintName string, tasks []*domain.Task) error {
	var incomplete []*domain.Task
	for _, t := range tasks {
		if t.Status != domain.TaskStatusDone {
			incomplete = append(incomplete, t)
		}
	}
	if len(incomplete) == 0 {
		return nil
	}
	titles := make([]string, 0, 3)
	for i, t := range incomplete {
		if i == 3 {
			break
		}
		titles = append(titles, t.Title)
	}
	return domeng.NewError(domeng.CodeIncompleteTasks, op,
		fmt.Sprintf("cannot complete sprint %q: %d tasks are not done: %s",
			sprintName, len(incomplete), strings.Join(titles, ", ")), nil)
}
