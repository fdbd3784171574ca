package engine

import (
	"fmt"

	"github.com/nordvale/planline-backend/internal/domain"
	domeng "github.com/nordvale/planline-backend/internal/domain/engine"
)

// taskStatusWeights maps a task status to its derived progress contribution.
// Task progress is never stored; it is always this lookup.
var taskStatusWeights = map[string]int{
	domain.TaskStatusToDo:       0,
	domain.TaskStatusInProgress: 25,
	domain.TaskStatusInReview:   50,
	domain.TaskStatusTesting:    75,
	domain.TaskStatusDone:       100,
}

// TaskProgress returns the derived progress for a task status.
func TaskProgress(status string) (int, error) {
	w, ok := taskStatusWeights[status]
	if !ok {
		return 0, domeng.NewError(domeng.CodeInvalidStatus, "engine.task_progress",
			fmt.Sprintf("unknown task status %q", status), nil)
	}
	return w, nil
}

// SprintProgress is the integer-truncated average of task progress, 0 when the
// sprint owns no tasks.
func SprintProgress(tasks []*domain.Task) (int, error) {
	if len(tasks) == 0 {
		return 0, nil
	}
	sum := 0
	for _, t := range tasks {
		w, err := TaskProgress(t.Status)
		if err != nil {
			return 0, err
		}
		sum += w
	}
	return sum / len(tasks), nil
}

// MilestoneProgress is the percentage of sprints with status completed,
// 0 when the milestone owns no sprints.
func MilestoneProgress(sprints []*domain.Sprint) int {
	if len(sprints) == 0 {
		return 0
	}
	completed := 0
	for _, s := range sprints {
		if s.Status == domain.SprintStatusCompleted {
			completed++
		}
	}
	return completed * 100 / len(sprints)
}

// ProjectProgress is the integer-truncated average of milestone progress,
// 0 when the project owns no milestones.
func ProjectProgress(milestones []*domain.Milestone) int {
	if len(milestones) == 0 {
		return 0
	}
	sum := 0
	for _, m := range milestones {
		sum += m.Progress
	}
	return sum / len(milestones)
}

// AllTasksDone reports whether the sprint may be considered finished: it owns
// at least one task and every task is done.
func AllTasksDone(tasks []*domain.Task) bool {
	if len(tasks) == 0 {
		return false
	}
	for _, t := range tasks {
		if t.Status != domain.TaskStatusDone {
			return false
		}
	}
	return true
}

// AnyTaskStarted reports whether at least one task has moved past to_do.
func AnyTaskStarted(tasks []*domain.Task) bool {
	for _, t := range tasks {
		if t.Status != domain.TaskStatusToDo {
			return true
		}
	}
	return false
}
