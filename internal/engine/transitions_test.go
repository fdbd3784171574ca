package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nordvale/planline-backend/internal/domain"
	domeng "github.com/nordvale/planline-backend/internal/domain/engine"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestSprintTransitionGraph(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{domain.SprintStatusPlanned, domain.SprintStatusActive, true},
		{domain.SprintStatusPlanned, domain.SprintStatusCanceled, true},
		{domain.SprintStatusPlanned, domain.SprintStatusCompleted, false},
		{domain.SprintStatusActive, domain.SprintStatusCompleted, true},
		{domain.SprintStatusActive, domain.SprintStatusCanceled, true},
		{domain.SprintStatusActive, domain.SprintStatusPlanned, false},
		{domain.SprintStatusCompleted, domain.SprintStatusActive, false},
		{domain.SprintStatusCompleted, domain.SprintStatusPlanned, false},
		{domain.SprintStatusCanceled, domain.SprintStatusPlanned, true},
		{domain.SprintStatusCanceled, domain.SprintStatusActive, false},
		{domain.SprintStatusCompleted, domain.SprintStatusCompleted, true},
	}
	for _, tc := range cases {
		err := ValidateSprintTransition("test", tc.from, tc.to)
		if tc.ok && err != nil {
			t.Fatalf("%s -> %s: unexpected error: %v", tc.from, tc.to, err)
		}
		if !tc.ok && !domeng.IsCode(err, domeng.CodeIllegalTransition) {
			t.Fatalf("%s -> %s: expected illegal_transition, got=%v", tc.from, tc.to, err)
		}
	}
}

func TestSprintTransitionUnknownStatus(t *testing.T) {
	err := ValidateSprintTransition("test", "paused", domain.SprintStatusActive)
	if !domeng.IsCode(err, domeng.CodeInvalidStatus) {
		t.Fatalf("expected invalid_status, got=%v", err)
	}
}

func TestCompletionGateNamesOffenders(t *testing.T) {
	tasks := []*domain.Task{
		{Title: "Wire auth", Status: domain.TaskStatusInProgress},
		{Title: "Write docs", Status: domain.TaskStatusDone},
		{Title: "Ship UI", Status: domain.TaskStatusTesting},
		{Title: "Fix flaky test", Status: domain.TaskStatusToDo},
		{Title: "Review schema", Status: domain.TaskStatusInReview},
	}
	err := requireAllTasksDone("test", "Sprint 4", tasks)
	if !domeng.IsCode(err, domeng.CodeIncompleteTasks) {
		t.Fatalf("expected incomplete_tasks, got=%v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "4 tasks are not done") {
		t.Fatalf("expected offender count in message, got=%q", msg)
	}
	// Only the first three titles are named.
	for _, title := range []string{"Wire auth", "Ship UI", "Fix flaky test"} {
		if !strings.Contains(msg, title) {
			t.Fatalf("expected %q in message, got=%q", title, msg)
		}
	}
	if strings.Contains(msg, "Review schema") {
		t.Fatalf("expected at most three titles, got=%q", msg)
	}
}

func TestCompletionGateAllowsEmptySprint(t *testing.T) {
	if err := requireAllTasksDone("test", "Sprint 1", nil); err != nil {
		t.Fatalf("empty sprint must pass the gate, got=%v", err)
	}
}

func TestValidateMilestoneWriteContainment(t *testing.T) {
	project := &domain.Project{
		StartDate: date(2026, time.January, 1),
		EndDate:   date(2026, time.June, 30),
	}
	m := &domain.Milestone{
		PlannedStart: date(2026, time.February, 1),
		DueDate:      date(2026, time.December, 31),
	}
	err := ValidateMilestoneWrite("test", m, project)
	if !domeng.IsCode(err, domeng.CodeDateRangeViolation) {
		t.Fatalf("expected date_range_violation, got=%v", err)
	}

	m.DueDate = date(2026, time.May, 1)
	if err := ValidateMilestoneWrite("test", m, project); err != nil {
		t.Fatalf("contained milestone rejected: %v", err)
	}
}

func TestValidateMilestoneWriteOrderedDates(t *testing.T) {
	project := &domain.Project{}
	m := &domain.Milestone{
		PlannedStart: date(2026, time.March, 1),
		DueDate:      date(2026, time.February, 1),
	}
	err := ValidateMilestoneWrite("test", m, project)
	if !domeng.IsCode(err, domeng.CodeDateRangeViolation) {
		t.Fatalf("expected date_range_violation, got=%v", err)
	}
}

func TestValidateTaskWriteSprintMismatch(t *testing.T) {
	milestoneID := uuid.New()
	task := &domain.Task{MilestoneID: milestoneID, Status: domain.TaskStatusToDo}
	sprint := &domain.Sprint{MilestoneID: uuid.New()}
	err := ValidateTaskWrite("test", task, &domain.Milestone{ID: milestoneID}, sprint)
	if !domeng.IsCode(err, domeng.CodeSprintMilestoneMismatch) {
		t.Fatalf("expected sprint_milestone_mismatch, got=%v", err)
	}

	sprint.MilestoneID = milestoneID
	if err := ValidateTaskWrite("test", task, &domain.Milestone{ID: milestoneID}, sprint); err != nil {
		t.Fatalf("matching sprint rejected: %v", err)
	}
}

func TestValidateSprintWriteContainment(t *testing.T) {
	milestone := &domain.Milestone{
		PlannedStart: date(2026, time.March, 1),
		DueDate:      date(2026, time.March, 31),
	}
	sprint := &domain.Sprint{
		Status:    domain.SprintStatusPlanned,
		StartDate: date(2026, time.February, 20),
		EndDate:   date(2026, time.March, 10),
	}
	err := ValidateSprintWrite("test", sprint, milestone, "", nil)
	if !domeng.IsCode(err, domeng.CodeDateRangeViolation) {
		t.Fatalf("expected date_range_violation, got=%v", err)
	}
}

func TestValidateSprintWriteUnsetBoundsAllowed(t *testing.T) {
	milestone := &domain.Milestone{DueDate: date(2026, time.March, 31)}
	sprint := &domain.Sprint{Status: domain.SprintStatusPlanned}
	if err := ValidateSprintWrite("test", sprint, milestone, "", nil); err != nil {
		t.Fatalf("sprint without dates rejected: %v", err)
	}
}
