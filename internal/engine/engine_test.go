package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nordvale/planline-backend/internal/data/repos"
	"github.com/nordvale/planline-backend/internal/domain"
	domeng "github.com/nordvale/planline-backend/internal/domain/engine"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
)

// The postgres schema carries defaults sqlite cannot evaluate, so the test
// schema is declared by hand. Column sets must match the gorm models.
var testSchema = []string{
	`CREATE TABLE project (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL DEFAULT 'planning',
		priority TEXT NOT NULL DEFAULT 'medium',
		start_date DATETIME,
		end_date DATETIME,
		budget NUMERIC NOT NULL DEFAULT 0,
		tags TEXT,
		progress INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE milestone (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL DEFAULT 'planning',
		planned_start DATETIME,
		actual_start DATETIME,
		due_date DATETIME,
		assignee_id TEXT,
		progress INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE sprint (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		milestone_id TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'planned',
		start_date DATETIME,
		end_date DATETIME,
		progress INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE task (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		milestone_id TEXT NOT NULL,
		sprint_id TEXT,
		assignee_id TEXT,
		title TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL DEFAULT 'to_do',
		start_date DATETIME,
		end_date DATETIME,
		estimated_hours INTEGER,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE engine_event (
		id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4))) || '-' ||
			lower(hex(randomblob(2))) || '-4' || substr(lower(hex(randomblob(2))),2) || '-' ||
			substr('89ab', 1 + (abs(random()) % 4), 1) || substr(lower(hex(randomblob(2))),2) || '-' ||
			lower(hex(randomblob(6)))),
		tenant_id TEXT NOT NULL,
		op TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT,
		payload TEXT,
		created_at DATETIME
	)`,
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, ddl := range testSchema {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

type spyNotifier struct {
	mu        sync.Mutex
	completed []string
	dueSoon   []string
}

func (s *spyNotifier) SprintCompleted(_ context.Context, sprint *domain.Sprint, _ *domain.Milestone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, sprint.Name)
}

func (s *spyNotifier) MilestoneDueSoon(_ context.Context, milestone *domain.Milestone, _ int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dueSoon = append(s.dueSoon, milestone.Name)
}

func (s *spyNotifier) completedSprints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.completed...)
}

type testEnv struct {
	db       *gorm.DB
	eng      Engine
	notifier *spyNotifier
	events   repos.EngineEventRepo

	tenantID  uuid.UUID
	project   *domain.Project
	milestone *domain.Milestone
	sprint    *domain.Sprint
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithPolicy(t, DefaultCascadePolicy())
}

func newTestEnvWithPolicy(t *testing.T, policy CascadePolicy) *testEnv {
	t.Helper()
	db := newTestDB(t)
	log := logger.NewNop()
	notifier := &spyNotifier{}
	events := repos.NewEngineEventRepo(db, log)
	eng := New(Deps{
		Base:       BaseDeps{DB: db, Log: log},
		Policy:     policy,
		Projects:   repos.NewProjectRepo(db, log),
		Milestones: repos.NewMilestoneRepo(db, log),
		Sprints:    repos.NewSprintRepo(db, log),
		Tasks:      repos.NewTaskRepo(db, log),
		Events:     events,
		Notifier:   notifier,
	})

	env := &testEnv{
		db:       db,
		eng:      eng,
		notifier: notifier,
		events:   events,
		tenantID: uuid.New(),
	}
	env.project = &domain.Project{
		ID:       uuid.New(),
		TenantID: env.tenantID,
		ClientID: uuid.New(),
		Name:     "Warehouse revamp",
		Status:   domain.ProjectStatusActive,
		Priority: domain.PriorityMedium,
	}
	env.milestone = &domain.Milestone{
		ID:        uuid.New(),
		TenantID:  env.tenantID,
		ProjectID: env.project.ID,
		Name:      "Inventory backend",
		Status:    domain.MilestoneStatusActive,
	}
	env.sprint = &domain.Sprint{
		ID:          uuid.New(),
		TenantID:    env.tenantID,
		MilestoneID: env.milestone.ID,
		Name:        "Sprint 1",
		Status:      domain.SprintStatusPlanned,
	}
	for _, seed := range []any{env.project, env.milestone, env.sprint} {
		if err := db.Create(seed).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return env
}

func (env *testEnv) addTask(t *testing.T, sprintID *uuid.UUID, title, status string) *domain.Task {
	t.Helper()
	task := &domain.Task{
		ID:          uuid.New(),
		TenantID:    env.tenantID,
		MilestoneID: env.milestone.ID,
		SprintID:    sprintID,
		Title:       title,
		Status:      status,
	}
	if err := env.db.Create(task).Error; err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return task
}

func (env *testEnv) setSprintStatus(t *testing.T, status string) {
	t.Helper()
	err := env.db.Model(&domain.Sprint{}).Where("id = ?", env.sprint.ID).
		Update("status", status).Error
	if err != nil {
		t.Fatalf("set sprint status: %v", err)
	}
	env.sprint.Status = status
}

func (env *testEnv) reloadSprint(t *testing.T, id uuid.UUID) *domain.Sprint {
	t.Helper()
	var s domain.Sprint
	if err := env.db.Where("id = ?", id).First(&s).Error; err != nil {
		t.Fatalf("reload sprint: %v", err)
	}
	return &s
}

func (env *testEnv) reloadMilestone(t *testing.T, id uuid.UUID) *domain.Milestone {
	t.Helper()
	var m domain.Milestone
	if err := env.db.Where("id = ?", id).First(&m).Error; err != nil {
		t.Fatalf("reload milestone: %v", err)
	}
	return &m
}

func (env *testEnv) reloadProject(t *testing.T) *domain.Project {
	t.Helper()
	var p domain.Project
	if err := env.db.Where("id = ?", env.project.ID).First(&p).Error; err != nil {
		t.Fatalf("reload project: %v", err)
	}
	return &p
}

func TestCreateTaskStartedAutoActivatesSprint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := &domain.Task{
		ID:          uuid.New(),
		TenantID:    env.tenantID,
		MilestoneID: env.milestone.ID,
		SprintID:    &env.sprint.ID,
		Title:       "Model stock levels",
		Status:      domain.TaskStatusInProgress,
	}
	res, err := env.eng.CreateTask(ctx, task)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if res.Cascade.SprintStatus != domain.SprintStatusActive {
		t.Fatalf("cascade sprint status: want=active got=%q", res.Cascade.SprintStatus)
	}

	sprint := env.reloadSprint(t, env.sprint.ID)
	if sprint.Status != domain.SprintStatusActive {
		t.Fatalf("sprint status: want=active got=%q", sprint.Status)
	}
	if sprint.Progress != 25 {
		t.Fatalf("sprint progress: want=25 got=%d", sprint.Progress)
	}
}

func TestCreateTaskIdleSprintStaysPlanned(t *testing.T) {
	env := newTestEnv(t)

	task := &domain.Task{
		ID:          uuid.New(),
		TenantID:    env.tenantID,
		MilestoneID: env.milestone.ID,
		SprintID:    &env.sprint.ID,
		Title:       "Define schema",
		Status:      domain.TaskStatusToDo,
	}
	if _, err := env.eng.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if got := env.reloadSprint(t, env.sprint.ID).Status; got != domain.SprintStatusPlanned {
		t.Fatalf("sprint status: want=planned got=%q", got)
	}
}

func TestTaskDoneAutoCompletesSprint(t *testing.T) {
	env := newTestEnv(t)
	env.setSprintStatus(t, domain.SprintStatusActive)
	task := env.addTask(t, &env.sprint.ID, "Ship importer", domain.TaskStatusInProgress)

	done := domain.TaskStatusDone
	res, err := env.eng.ApplyTaskChange(context.Background(), env.tenantID, task.ID, TaskChange{Status: &done})
	if err != nil {
		t.Fatalf("ApplyTaskChange: %v", err)
	}

	sprint := env.reloadSprint(t, env.sprint.ID)
	if sprint.Status != domain.SprintStatusCompleted {
		t.Fatalf("sprint status: want=completed got=%q", sprint.Status)
	}
	if sprint.Progress != 100 {
		t.Fatalf("sprint progress: want=100 got=%d", sprint.Progress)
	}
	if got := env.reloadMilestone(t, env.milestone.ID).Progress; got != 100 {
		t.Fatalf("milestone progress: want=100 got=%d", got)
	}
	if got := env.reloadProject(t).Progress; got != 100 {
		t.Fatalf("project progress: want=100 got=%d", got)
	}
	if res.Cascade.SprintStatus != domain.SprintStatusCompleted {
		t.Fatalf("cascade sprint status: want=completed got=%q", res.Cascade.SprintStatus)
	}

	completed := env.notifier.completedSprints()
	if len(completed) != 1 || completed[0] != "Sprint 1" {
		t.Fatalf("expected one completion notice for Sprint 1, got=%v", completed)
	}
}

func TestAutoCompleteDisabledByPolicy(t *testing.T) {
	env := newTestEnvWithPolicy(t, CascadePolicy{AutoActivateSprints: true, AutoCompleteSprints: false})
	env.setSprintStatus(t, domain.SprintStatusActive)
	task := env.addTask(t, &env.sprint.ID, "Only task", domain.TaskStatusInProgress)

	done := domain.TaskStatusDone
	if _, err := env.eng.ApplyTaskChange(context.Background(), env.tenantID, task.ID, TaskChange{Status: &done}); err != nil {
		t.Fatalf("ApplyTaskChange: %v", err)
	}

	sprint := env.reloadSprint(t, env.sprint.ID)
	if sprint.Status != domain.SprintStatusActive {
		t.Fatalf("sprint status: want=active got=%q", sprint.Status)
	}
	if sprint.Progress != 100 {
		t.Fatalf("sprint progress: want=100 got=%d", sprint.Progress)
	}
	if got := env.notifier.completedSprints(); len(got) != 0 {
		t.Fatalf("expected no completion notice, got=%v", got)
	}
}

func TestCompleteSprintBlockedByUnfinishedTasks(t *testing.T) {
	env := newTestEnv(t)
	env.setSprintStatus(t, domain.SprintStatusActive)
	env.addTask(t, &env.sprint.ID, "Build API", domain.TaskStatusDone)
	env.addTask(t, &env.sprint.ID, "Write tests", domain.TaskStatusDone)
	env.addTask(t, &env.sprint.ID, "Polish export", domain.TaskStatusInProgress)

	completed := domain.SprintStatusCompleted
	_, err := env.eng.ApplySprintChange(context.Background(), env.tenantID, env.sprint.ID,
		SprintChange{Status: &completed})
	if !domeng.IsCode(err, domeng.CodeIncompleteTasks) {
		t.Fatalf("expected incomplete_tasks, got=%v", err)
	}
	if !strings.Contains(err.Error(), "Polish export") {
		t.Fatalf("expected offending title in error, got=%q", err.Error())
	}

	// The rejected write must leave the sprint untouched.
	if got := env.reloadSprint(t, env.sprint.ID).Status; got != domain.SprintStatusActive {
		t.Fatalf("sprint status after rejection: want=active got=%q", got)
	}
}

func TestCompletedSprintIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	env.setSprintStatus(t, domain.SprintStatusCompleted)

	active := domain.SprintStatusActive
	_, err := env.eng.ApplySprintChange(context.Background(), env.tenantID, env.sprint.ID,
		SprintChange{Status: &active})
	if !domeng.IsCode(err, domeng.CodeIllegalTransition) {
		t.Fatalf("expected illegal_transition, got=%v", err)
	}
}

func TestCanceledSprintMayBeReplanned(t *testing.T) {
	env := newTestEnv(t)
	env.setSprintStatus(t, domain.SprintStatusCanceled)

	planned := domain.SprintStatusPlanned
	res, err := env.eng.ApplySprintChange(context.Background(), env.tenantID, env.sprint.ID,
		SprintChange{Status: &planned})
	if err != nil {
		t.Fatalf("ApplySprintChange: %v", err)
	}
	if res.Sprint.Status != domain.SprintStatusPlanned {
		t.Fatalf("sprint status: want=planned got=%q", res.Sprint.Status)
	}
}

func TestEmptySprintMayComplete(t *testing.T) {
	env := newTestEnv(t)
	env.setSprintStatus(t, domain.SprintStatusActive)

	completed := domain.SprintStatusCompleted
	if _, err := env.eng.ApplySprintChange(context.Background(), env.tenantID, env.sprint.ID,
		SprintChange{Status: &completed}); err != nil {
		t.Fatalf("ApplySprintChange: %v", err)
	}
	if got := env.reloadMilestone(t, env.milestone.ID).Progress; got != 100 {
		t.Fatalf("milestone progress: want=100 got=%d", got)
	}
	completedSprints := env.notifier.completedSprints()
	if len(completedSprints) != 1 {
		t.Fatalf("expected one completion notice, got=%v", completedSprints)
	}
}

func TestCreateMilestoneOutsideProjectDates(t *testing.T) {
	env := newTestEnv(t)
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC)
	err := env.db.Model(&domain.Project{}).Where("id = ?", env.project.ID).
		Updates(map[string]any{"start_date": start, "end_date": end}).Error
	if err != nil {
		t.Fatalf("set project dates: %v", err)
	}

	due := time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC)
	_, err = env.eng.CreateMilestone(context.Background(), &domain.Milestone{
		ID:        uuid.New(),
		TenantID:  env.tenantID,
		ProjectID: env.project.ID,
		Name:      "Late milestone",
		DueDate:   &due,
	})
	if !domeng.IsCode(err, domeng.CodeDateRangeViolation) {
		t.Fatalf("expected date_range_violation, got=%v", err)
	}
}

func TestCreateTaskRejectsForeignSprint(t *testing.T) {
	env := newTestEnv(t)
	other := &domain.Milestone{
		ID:        uuid.New(),
		TenantID:  env.tenantID,
		ProjectID: env.project.ID,
		Name:      "Frontend",
		Status:    domain.MilestoneStatusActive,
	}
	otherSprint := &domain.Sprint{
		ID:          uuid.New(),
		TenantID:    env.tenantID,
		MilestoneID: other.ID,
		Name:        "FE Sprint",
		Status:      domain.SprintStatusPlanned,
	}
	for _, seed := range []any{other, otherSprint} {
		if err := env.db.Create(seed).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	_, err := env.eng.CreateTask(context.Background(), &domain.Task{
		ID:          uuid.New(),
		TenantID:    env.tenantID,
		MilestoneID: env.milestone.ID,
		SprintID:    &otherSprint.ID,
		Title:       "Misfiled task",
	})
	if !domeng.IsCode(err, domeng.CodeSprintMilestoneMismatch) {
		t.Fatalf("expected sprint_milestone_mismatch, got=%v", err)
	}
}

func TestDeleteSprintReturnsTasksToBacklog(t *testing.T) {
	env := newTestEnv(t)
	env.setSprintStatus(t, domain.SprintStatusCompleted)
	task := env.addTask(t, &env.sprint.ID, "Leftover", domain.TaskStatusDone)
	// Completed sprint puts the milestone ratio at 100 before the delete.
	err := env.db.Model(&domain.Milestone{}).Where("id = ?", env.milestone.ID).
		Update("progress", 100).Error
	if err != nil {
		t.Fatalf("set milestone progress: %v", err)
	}

	res, err := env.eng.DeleteSprint(context.Background(), env.tenantID, env.sprint.ID)
	if err != nil {
		t.Fatalf("DeleteSprint: %v", err)
	}
	if res.ProjectID != env.project.ID {
		t.Fatalf("cascade project id: want=%s got=%s", env.project.ID, res.ProjectID)
	}

	var got domain.Task
	if err := env.db.Where("id = ?", task.ID).First(&got).Error; err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if got.SprintID != nil {
		t.Fatalf("task sprint_id: want=nil got=%v", got.SprintID)
	}
	if progress := env.reloadMilestone(t, env.milestone.ID).Progress; progress != 0 {
		t.Fatalf("milestone progress after delete: want=0 got=%d", progress)
	}
}

func TestDeleteMilestoneRebalancesProject(t *testing.T) {
	env := newTestEnv(t)
	doneMilestone := &domain.Milestone{
		ID:        uuid.New(),
		TenantID:  env.tenantID,
		ProjectID: env.project.ID,
		Name:      "Finished phase",
		Status:    domain.MilestoneStatusCompleted,
		Progress:  100,
	}
	if err := env.db.Create(doneMilestone).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Removing the zero-progress milestone leaves only the finished one.
	if _, err := env.eng.DeleteMilestone(context.Background(), env.tenantID, env.milestone.ID); err != nil {
		t.Fatalf("DeleteMilestone: %v", err)
	}
	if got := env.reloadProject(t).Progress; got != 100 {
		t.Fatalf("project progress: want=100 got=%d", got)
	}

	var sprintCount int64
	if err := env.db.Model(&domain.Sprint{}).Where("milestone_id = ?", env.milestone.ID).Count(&sprintCount).Error; err != nil {
		t.Fatalf("count sprints: %v", err)
	}
	if sprintCount != 0 {
		t.Fatalf("sprints under deleted milestone: want=0 got=%d", sprintCount)
	}
}

func TestTaskMoveRecomputesBothSprints(t *testing.T) {
	env := newTestEnv(t)
	env.setSprintStatus(t, domain.SprintStatusActive)
	second := &domain.Sprint{
		ID:          uuid.New(),
		TenantID:    env.tenantID,
		MilestoneID: env.milestone.ID,
		Name:        "Sprint 2",
		Status:      domain.SprintStatusActive,
	}
	if err := env.db.Create(second).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	task := env.addTask(t, &env.sprint.ID, "Floating task", domain.TaskStatusDone)
	err := env.db.Model(&domain.Sprint{}).Where("id = ?", env.sprint.ID).
		Update("progress", 100).Error
	if err != nil {
		t.Fatalf("set sprint progress: %v", err)
	}

	if _, err := env.eng.ApplyTaskChange(context.Background(), env.tenantID, task.ID,
		TaskChange{SprintID: &second.ID}); err != nil {
		t.Fatalf("ApplyTaskChange: %v", err)
	}

	if got := env.reloadSprint(t, env.sprint.ID).Progress; got != 0 {
		t.Fatalf("source sprint progress: want=0 got=%d", got)
	}
	moved := env.reloadSprint(t, second.ID)
	if moved.Progress != 100 {
		t.Fatalf("target sprint progress: want=100 got=%d", moved.Progress)
	}
	// The only task in the target is done, so the auto-complete policy fires.
	if moved.Status != domain.SprintStatusCompleted {
		t.Fatalf("target sprint status: want=completed got=%q", moved.Status)
	}
}

func TestRecomputeProjectProgressIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.setSprintStatus(t, domain.SprintStatusActive)
	env.addTask(t, &env.sprint.ID, "Half done", domain.TaskStatusInReview)

	// Corrupt the stored values; the sweep must repair them.
	if err := env.db.Model(&domain.Sprint{}).Where("id = ?", env.sprint.ID).Update("progress", 7).Error; err != nil {
		t.Fatalf("corrupt sprint: %v", err)
	}
	if err := env.db.Model(&domain.Milestone{}).Where("id = ?", env.milestone.ID).Update("progress", 91).Error; err != nil {
		t.Fatalf("corrupt milestone: %v", err)
	}

	res, err := env.eng.RecomputeProjectProgress(context.Background(), env.tenantID, env.project.ID)
	if err != nil {
		t.Fatalf("RecomputeProjectProgress: %v", err)
	}
	if res.SprintsUpdated != 1 || res.MilestonesUpdated != 1 {
		t.Fatalf("first sweep updates: sprints=%d milestones=%d", res.SprintsUpdated, res.MilestonesUpdated)
	}
	if got := env.reloadSprint(t, env.sprint.ID).Progress; got != 50 {
		t.Fatalf("sprint progress: want=50 got=%d", got)
	}
	if got := env.reloadMilestone(t, env.milestone.ID).Progress; got != 0 {
		t.Fatalf("milestone progress: want=0 got=%d", got)
	}

	// A sweep over consistent state changes nothing and flips no statuses.
	again, err := env.eng.RecomputeProjectProgress(context.Background(), env.tenantID, env.project.ID)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if again.SprintsUpdated != 0 || again.MilestonesUpdated != 0 {
		t.Fatalf("second sweep updates: sprints=%d milestones=%d", again.SprintsUpdated, again.MilestonesUpdated)
	}
	if got := env.reloadSprint(t, env.sprint.ID).Status; got != domain.SprintStatusActive {
		t.Fatalf("sweep must not flip statuses: got=%q", got)
	}
}

func TestEngineEventsAppended(t *testing.T) {
	env := newTestEnv(t)
	task := &domain.Task{
		ID:          uuid.New(),
		TenantID:    env.tenantID,
		MilestoneID: env.milestone.ID,
		Title:       "Audited task",
	}
	if _, err := env.eng.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	events, err := env.events.ListByEntity(dbctx.Context{Ctx: context.Background()}, env.tenantID, task.ID)
	if err != nil {
		t.Fatalf("ListByEntity: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events: want=1 got=%d", len(events))
	}
	if events[0].Op != "engine.task.create" {
		t.Fatalf("event op: want=engine.task.create got=%q", events[0].Op)
	}
	if events[0].EntityType != "task" {
		t.Fatalf("event entity type: want=task got=%q", events[0].EntityType)
	}
}

func TestApplySprintChangeUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	bogus := "paused"
	_, err := env.eng.ApplySprintChange(context.Background(), env.tenantID, env.sprint.ID,
		SprintChange{Status: &bogus})
	if !domeng.IsCode(err, domeng.CodeInvalidStatus) {
		t.Fatalf("expected invalid_status, got=%v", err)
	}
}

func TestApplyTaskChangeNotFound(t *testing.T) {
	env := newTestEnv(t)
	title := "nope"
	_, err := env.eng.ApplyTaskChange(context.Background(), env.tenantID, uuid.New(),
		TaskChange{Title: &title})
	if !domeng.IsCode(err, domeng.CodeNotFound) {
		t.Fatalf("expected not_found, got=%v", err)
	}
}

// interposedSprintRepo lets a test run arbitrary writes between the cascade's
// milestone read and its guarded progress update.
type interposedSprintRepo struct {
	repos.SprintRepo
	beforeList func(dbc dbctx.Context)
}

func (r *interposedSprintRepo) ListByMilestone(dbc dbctx.Context, milestoneID uuid.UUID) ([]*domain.Sprint, error) {
	if r.beforeList != nil {
		r.beforeList(dbc)
	}
	return r.SprintRepo.ListByMilestone(dbc, milestoneID)
}

func TestCascadeRetriesWhenMilestoneChangesMidRecompute(t *testing.T) {
	db := newTestDB(t)
	log := logger.NewNop()
	sprints := &interposedSprintRepo{SprintRepo: repos.NewSprintRepo(db, log)}
	notifier := &spyNotifier{}
	eng := New(Deps{
		Base:       BaseDeps{DB: db, Log: log},
		Policy:     DefaultCascadePolicy(),
		Projects:   repos.NewProjectRepo(db, log),
		Milestones: repos.NewMilestoneRepo(db, log),
		Sprints:    sprints,
		Tasks:      repos.NewTaskRepo(db, log),
		Events:     repos.NewEngineEventRepo(db, log),
		Notifier:   notifier,
	})

	tenantID := uuid.New()
	project := &domain.Project{
		ID:       uuid.New(),
		TenantID: tenantID,
		ClientID: uuid.New(),
		Name:     "Contended project",
		Status:   domain.ProjectStatusActive,
		Priority: domain.PriorityMedium,
	}
	milestone := &domain.Milestone{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ProjectID: project.ID,
		Name:      "Contended milestone",
		Status:    domain.MilestoneStatusActive,
	}
	sprint := &domain.Sprint{
		ID:          uuid.New(),
		TenantID:    tenantID,
		MilestoneID: milestone.ID,
		Name:        "Sprint 1",
		Status:      domain.SprintStatusActive,
	}
	for _, seed := range []any{project, milestone, sprint} {
		if err := db.Create(seed).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	// Mimics a second cascade committing between the milestone read and the
	// guarded write: the stored progress no longer matches the snapshot, the
	// first compare-and-set must miss and the retry must re-read.
	fired := false
	sprints.beforeList = func(dbc dbctx.Context) {
		if fired {
			return
		}
		fired = true
		conn := dbc.Tx
		if conn == nil {
			conn = db
		}
		err := conn.Table("milestone").Where("id = ?", milestone.ID).
			Update("progress", 77).Error
		if err != nil {
			t.Errorf("interposed update: %v", err)
		}
	}

	task := &domain.Task{
		ID:          uuid.New(),
		TenantID:    tenantID,
		MilestoneID: milestone.ID,
		SprintID:    &sprint.ID,
		Title:       "Only task",
		Status:      domain.TaskStatusDone,
	}
	res, err := eng.CreateTask(context.Background(), task)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if !fired {
		t.Fatal("interposed write never ran")
	}
	if len(res.Cascade.Warnings) != 0 {
		t.Fatalf("expected clean cascade after retry, got warnings=%v", res.Cascade.Warnings)
	}

	// One completed sprint out of one: the retry must land 100, not leave the
	// interposed 77 and not write through a stale snapshot.
	var got domain.Milestone
	if err := db.Where("id = ?", milestone.ID).First(&got).Error; err != nil {
		t.Fatalf("reload milestone: %v", err)
	}
	if got.Progress != 100 {
		t.Fatalf("milestone progress: want=100 got=%d", got.Progress)
	}
	var gotProject domain.Project
	if err := db.Where("id = ?", project.ID).First(&gotProject).Error; err != nil {
		t.Fatalf("reload project: %v", err)
	}
	if gotProject.Progress != 100 {
		t.Fatalf("project progress: want=100 got=%d", gotProject.Progress)
	}
}
