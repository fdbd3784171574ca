package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordvale/planline-backend/internal/domain"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
	"github.com/nordvale/planline-backend/internal/platform/sendgrid"
)

type fakeMailClient struct {
	sent chan sendgrid.SendEmailRequest
}

func newFakeMailClient() *fakeMailClient {
	return &fakeMailClient{sent: make(chan sendgrid.SendEmailRequest, 8)}
}

func (c *fakeMailClient) Send(_ context.Context, req sendgrid.SendEmailRequest) (*sendgrid.SendEmailResult, error) {
	c.sent <- req
	return &sendgrid.SendEmailResult{StatusCode: 202}, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*domain.User
}

func (r *fakeUserRepo) Create(dbctx.Context, *domain.User) error { return nil }

func (r *fakeUserRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(dbctx.Context, string) (*domain.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) EmailExists(dbctx.Context, string) (bool, error) { return false, nil }

func waitForSend(t *testing.T, mail *fakeMailClient) sendgrid.SendEmailRequest {
	t.Helper()
	select {
	case req := <-mail.sent:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for email send")
		return sendgrid.SendEmailRequest{}
	}
}

func TestSprintCompletedNotifiesAssignee(t *testing.T) {
	assigneeID := uuid.New()
	mail := newFakeMailClient()
	users := &fakeUserRepo{users: map[uuid.UUID]*domain.User{
		assigneeID: {ID: assigneeID, Email: "lead@acme.io", IsActive: true},
	}}
	n := NewEmailNotifier(logger.NewNop(), mail, users, nil, "")

	sprint := &domain.Sprint{ID: uuid.New(), Name: "Sprint 3"}
	milestone := &domain.Milestone{ID: uuid.New(), Name: "Beta", AssigneeID: &assigneeID}
	n.SprintCompleted(context.Background(), sprint, milestone)

	req := waitForSend(t, mail)
	if len(req.To) != 1 || req.To[0].Email != "lead@acme.io" {
		t.Fatalf("recipient: want=lead@acme.io got=%+v", req.To)
	}
	if req.Subject != `Sprint "Sprint 3" completed` {
		t.Fatalf("subject: got=%q", req.Subject)
	}
	if len(req.Categories) != 1 || req.Categories[0] != "sprint_completed" {
		t.Fatalf("categories: got=%v", req.Categories)
	}
}

func TestSprintCompletedSkipsWithoutAssignee(t *testing.T) {
	mail := newFakeMailClient()
	n := NewEmailNotifier(logger.NewNop(), mail, &fakeUserRepo{}, nil, "")

	n.SprintCompleted(context.Background(), &domain.Sprint{Name: "Sprint 1"}, &domain.Milestone{Name: "Alpha"})

	select {
	case req := <-mail.sent:
		t.Fatalf("unexpected send: %+v", req)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSprintCompletedFallsBackToAdminAddress(t *testing.T) {
	mail := newFakeMailClient()
	n := NewEmailNotifier(logger.NewNop(), mail, &fakeUserRepo{}, nil, "ops@acme.io")

	n.SprintCompleted(context.Background(), &domain.Sprint{Name: "Sprint 4"}, &domain.Milestone{Name: "Gamma"})

	req := waitForSend(t, mail)
	if len(req.To) != 1 || req.To[0].Email != "ops@acme.io" {
		t.Fatalf("recipient: want=ops@acme.io got=%+v", req.To)
	}
}

func TestSprintCompletedInactiveAssigneeFallsBack(t *testing.T) {
	assigneeID := uuid.New()
	mail := newFakeMailClient()
	users := &fakeUserRepo{users: map[uuid.UUID]*domain.User{
		assigneeID: {ID: assigneeID, Email: "gone@acme.io", IsActive: false},
	}}
	n := NewEmailNotifier(logger.NewNop(), mail, users, nil, "ops@acme.io")

	milestone := &domain.Milestone{Name: "Delta", AssigneeID: &assigneeID}
	n.SprintCompleted(context.Background(), &domain.Sprint{Name: "Sprint 5"}, milestone)

	req := waitForSend(t, mail)
	if len(req.To) != 1 || req.To[0].Email != "ops@acme.io" {
		t.Fatalf("recipient: want=ops@acme.io got=%+v", req.To)
	}
}

func TestSprintCompletedSkipsInactiveAssignee(t *testing.T) {
	assigneeID := uuid.New()
	mail := newFakeMailClient()
	users := &fakeUserRepo{users: map[uuid.UUID]*domain.User{
		assigneeID: {ID: assigneeID, Email: "gone@acme.io", IsActive: false},
	}}
	n := NewEmailNotifier(logger.NewNop(), mail, users, nil, "")

	milestone := &domain.Milestone{Name: "Beta", AssigneeID: &assigneeID}
	n.SprintCompleted(context.Background(), &domain.Sprint{Name: "Sprint 2"}, milestone)

	select {
	case req := <-mail.sent:
		t.Fatalf("unexpected send to inactive user: %+v", req)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMilestoneDueSoonSubject(t *testing.T) {
	assigneeID := uuid.New()
	mail := newFakeMailClient()
	users := &fakeUserRepo{users: map[uuid.UUID]*domain.User{
		assigneeID: {ID: assigneeID, Email: "lead@acme.io", IsActive: true},
	}}
	n := NewEmailNotifier(logger.NewNop(), mail, users, nil, "")

	milestone := &domain.Milestone{Name: "Launch", Progress: 60, AssigneeID: &assigneeID}
	n.MilestoneDueSoon(context.Background(), milestone, 3)

	req := waitForSend(t, mail)
	if req.Subject != `Milestone "Launch" due in 3 days` {
		t.Fatalf("subject: got=%q", req.Subject)
	}
	if len(req.Categories) != 1 || req.Categories[0] != "milestone_due_soon" {
		t.Fatalf("categories: got=%v", req.Categories)
	}
}
