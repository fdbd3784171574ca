package engine

import (
	"testing"

	"github.com/nordvale/planline-backend/internal/domain"
	domeng "github.com/nordvale/planline-backend/internal/domain/engine"
)

func taskWithStatus(status string) *domain.Task {
	return &domain.Task{Status: status}
}

func TestTaskProgressWeights(t *testing.T) {
	cases := []struct {
		status string
		want   int
	}{
		{domain.TaskStatusToDo, 0},
		{domain.TaskStatusInProgress, 25},
		{domain.TaskStatusInReview, 50},
		{domain.TaskStatusTesting, 75},
		{domain.TaskStatusDone, 100},
	}
	for _, tc := range cases {
		got, err := TaskProgress(tc.status)
		if err != nil {
			t.Fatalf("TaskProgress(%q): unexpected error: %v", tc.status, err)
		}
		if got != tc.want {
			t.Fatalf("TaskProgress(%q): want=%d got=%d", tc.status, tc.want, got)
		}
	}
}

func TestTaskProgressRejectsUnknownStatus(t *testing.T) {
	_, err := TaskProgress("blocked")
	if !domeng.IsCode(err, domeng.CodeInvalidStatus) {
		t.Fatalf("expected invalid_status, got=%v", err)
	}
}

func TestSprintProgressTruncates(t *testing.T) {
	tasks := []*domain.Task{
		taskWithStatus(domain.TaskStatusDone),
		taskWithStatus(domain.TaskStatusInProgress),
		taskWithStatus(domain.TaskStatusToDo),
	}
	// (100 + 25 + 0) / 3 = 41.66 truncated to 41
	got, err := SprintProgress(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 41 {
		t.Fatalf("sprint progress: want=41 got=%d", got)
	}
}

func TestSprintProgressEmpty(t *testing.T) {
	got, err := SprintProgress(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("empty sprint progress: want=0 got=%d", got)
	}
}

func TestMilestoneProgressCompletedRatio(t *testing.T) {
	sprints := []*domain.Sprint{
		{Status: domain.SprintStatusCompleted},
		{Status: domain.SprintStatusActive},
		{Status: domain.SprintStatusPlanned},
	}
	if got := MilestoneProgress(sprints); got != 33 {
		t.Fatalf("milestone progress: want=33 got=%d", got)
	}
	if got := MilestoneProgress(nil); got != 0 {
		t.Fatalf("empty milestone progress: want=0 got=%d", got)
	}
}

func TestProjectProgressAverage(t *testing.T) {
	milestones := []*domain.Milestone{
		{Progress: 100},
		{Progress: 50},
		{Progress: 0},
	}
	if got := ProjectProgress(milestones); got != 50 {
		t.Fatalf("project progress: want=50 got=%d", got)
	}
	if got := ProjectProgress(nil); got != 0 {
		t.Fatalf("empty project progress: want=0 got=%d", got)
	}
}

func TestAllTasksDone(t *testing.T) {
	if AllTasksDone(nil) {
		t.Fatal("empty task list must not count as all done")
	}
	done := []*domain.Task{taskWithStatus(domain.TaskStatusDone), taskWithStatus(domain.TaskStatusDone)}
	if !AllTasksDone(done) {
		t.Fatal("expected all done")
	}
	mixed := append(done, taskWithStatus(domain.TaskStatusTesting))
	if AllTasksDone(mixed) {
		t.Fatal("testing task must block all-done")
	}
}

func TestAnyTaskStarted(t *testing.T) {
	idle := []*domain.Task{taskWithStatus(domain.TaskStatusToDo)}
	if AnyTaskStarted(idle) {
		t.Fatal("to_do only must not count as started")
	}
	if !AnyTaskStarted(append(idle, taskWithStatus(domain.TaskStatusInProgress))) {
		t.Fatal("in_progress task must count as started")
	}
}
