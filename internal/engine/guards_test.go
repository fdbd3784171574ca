package engine

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/nordvale/planline-backend/internal/domain"
	domeng "github.com/nordvale/planline-backend/internal/domain/engine"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
)

func TestUpdateByStatusMatch(t *testing.T) {
	db := newTestDB(t)
	sprint := &domain.Sprint{
		ID:          uuid.New(),
		TenantID:    uuid.New(),
		MilestoneID: uuid.New(),
		Name:        "Guarded",
		Status:      domain.SprintStatusActive,
	}
	if err := db.Create(sprint).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	guard := NewCASGuard(db)
	dbc := dbctx.Context{Ctx: context.Background()}

	ok, err := guard.UpdateByStatus(dbc, "sprint", sprint.ID,
		[]string{domain.SprintStatusActive}, map[string]any{"status": domain.SprintStatusCompleted})
	if err != nil {
		t.Fatalf("UpdateByStatus: %v", err)
	}
	if !ok {
		t.Fatal("expected guard to match current status")
	}

	var got domain.Sprint
	if err := db.Where("id = ?", sprint.ID).First(&got).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != domain.SprintStatusCompleted {
		t.Fatalf("status: want=completed got=%q", got.Status)
	}
}

func TestUpdateByStatusStaleGuard(t *testing.T) {
	db := newTestDB(t)
	sprint := &domain.Sprint{
		ID:          uuid.New(),
		TenantID:    uuid.New(),
		MilestoneID: uuid.New(),
		Name:        "Guarded",
		Status:      domain.SprintStatusCompleted,
	}
	if err := db.Create(sprint).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	guard := NewCASGuard(db)
	ok, err := guard.UpdateByStatus(dbctx.Context{Ctx: context.Background()}, "sprint", sprint.ID,
		[]string{domain.SprintStatusActive}, map[string]any{"status": domain.SprintStatusCanceled})
	if err != nil {
		t.Fatalf("UpdateByStatus: %v", err)
	}
	if ok {
		t.Fatal("expected guard miss on stale status")
	}
}

func TestUpdateByStatusValidation(t *testing.T) {
	db := newTestDB(t)
	guard := NewCASGuard(db)
	dbc := dbctx.Context{Ctx: context.Background()}

	if _, err := guard.UpdateByStatus(dbc, "", uuid.New(), []string{"active"}, map[string]any{"x": 1}); err == nil {
		t.Fatal("expected error for empty table")
	}
	if _, err := guard.UpdateByStatus(dbc, "sprint", uuid.New(), nil, map[string]any{"x": 1}); err == nil {
		t.Fatal("expected error for empty status guard")
	}
}

func TestUpdateByProgressStaleGuard(t *testing.T) {
	db := newTestDB(t)
	milestone := &domain.Milestone{
		ID:        uuid.New(),
		TenantID:  uuid.New(),
		ProjectID: uuid.New(),
		Name:      "Guarded",
		Status:    domain.MilestoneStatusActive,
		Progress:  50,
	}
	if err := db.Create(milestone).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	guard := NewCASGuard(db)
	dbc := dbctx.Context{Ctx: context.Background()}

	ok, err := guard.UpdateByProgress(dbc, "milestone", milestone.ID, 25,
		map[string]any{"progress": 75})
	if err != nil {
		t.Fatalf("UpdateByProgress: %v", err)
	}
	if ok {
		t.Fatal("expected guard miss on stale progress")
	}

	ok, err = guard.UpdateByProgress(dbc, "milestone", milestone.ID, 50,
		map[string]any{"progress": 75})
	if err != nil {
		t.Fatalf("UpdateByProgress: %v", err)
	}
	if !ok {
		t.Fatal("expected guard to match current progress")
	}
	var got domain.Milestone
	if err := db.Where("id = ?", milestone.ID).First(&got).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Progress != 75 {
		t.Fatalf("progress: want=75 got=%d", got.Progress)
	}
}

func TestUpdateByStatusAndProgressStaleProgress(t *testing.T) {
	db := newTestDB(t)
	sprint := &domain.Sprint{
		ID:          uuid.New(),
		TenantID:    uuid.New(),
		MilestoneID: uuid.New(),
		Name:        "Guarded",
		Status:      domain.SprintStatusActive,
		Progress:    40,
	}
	if err := db.Create(sprint).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	guard := NewCASGuard(db)
	dbc := dbctx.Context{Ctx: context.Background()}

	// Status matches but the stored progress moved on; the write must miss.
	ok, err := guard.UpdateByStatusAndProgress(dbc, "sprint", sprint.ID,
		[]string{domain.SprintStatusActive}, 20, map[string]any{"progress": 60})
	if err != nil {
		t.Fatalf("UpdateByStatusAndProgress: %v", err)
	}
	if ok {
		t.Fatal("expected guard miss on stale progress despite matching status")
	}

	ok, err = guard.UpdateByStatusAndProgress(dbc, "sprint", sprint.ID,
		[]string{domain.SprintStatusActive}, 40, map[string]any{"progress": 60})
	if err != nil {
		t.Fatalf("UpdateByStatusAndProgress: %v", err)
	}
	if !ok {
		t.Fatal("expected guard to match current snapshot")
	}
}

func TestRequireCASSuccess(t *testing.T) {
	if err := RequireCASSuccess(true, "unused"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := MapError("test", RequireCASSuccess(false, "sprint status changed concurrently"))
	if !domeng.IsCode(err, domeng.CodeConflict) {
		t.Fatalf("expected conflict, got=%v", err)
	}
}
