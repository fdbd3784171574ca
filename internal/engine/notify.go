package engine

import (
	"context"

	"github.com/nordvale/planline-backend/internal/domain"
)

// Notifier is the fire-and-forget side channel invoked on qualifying
// transitions. Implementations must never return delivery problems to the
// caller; failures are logged and swallowed.
type Notifier interface {
	SprintCompleted(ctx context.Context, sprint *domain.Sprint, milestone *domain.Milestone)
	MilestoneDueSoon(ctx context.Context, milestone *domain.Milestone, daysLeft int)
}

type noopNotifier struct{}

func (noopNotifier) SprintCompleted(context.Context, *domain.Sprint, *domain.Milestone) {}
func (noopNotifier) MilestoneDueSoon(context.Context, *domain.Milestone, int)           {}

// notice is a queued notification, collected while the write transaction is
// open and fired only after commit.
type notice struct {
	sprint    *domain.Sprint
	milestone *domain.Milestone
	daysLeft  int
	kind      noticeKind
}

type noticeKind int

const (
	noticeSprintCompleted noticeKind = iota + 1
	noticeMilestoneDueSoon
)

func (e *engineImpl) fireNotices(ctx context.Context, notices []notice) {
	if len(notices) == 0 {
		return
	}
	notifier := e.deps.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	for _, n := range notices {
		switch n.kind {
		case noticeSprintCompleted:
			notifier.SprintCompleted(ctx, n.sprint, n.milestone)
		case noticeMilestoneDueSoon:
			notifier.MilestoneDueSoon(ctx, n.milestone, n.daysLeft)
		}
	}
}
