package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nordvale/planline-backend/internal/data/repos"
	"github.com/nordvale/planline-backend/internal/domain"
	"github.com/nordvale/planline-backend/internal/engine"
	"github.com/nordvale/planline-backend/internal/observability"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
	"github.com/nordvale/planline-backend/internal/platform/sendgrid"
)

// EmailNotifier delivers engine notifications over SendGrid. Delivery is
// fire-and-forget: failures are logged and counted, never returned, and the
// send happens off the request goroutine.
type EmailNotifier struct {
	log      *logger.Logger
	mail     sendgrid.Client
	users    repos.UserRepo
	metrics  *observability.Metrics
	fallback string
	sendWait time.Duration
}

var _ engine.Notifier = (*EmailNotifier)(nil)

// NewEmailNotifier builds the notifier. fallback is the admin address used
// when a milestone has no reachable assignee; empty disables the fallback.
func NewEmailNotifier(log *logger.Logger, mail sendgrid.Client, users repos.UserRepo, metrics *observability.Metrics, fallback string) *EmailNotifier {
	return &EmailNotifier{
		log:      log.With("service", "EmailNotifier"),
		mail:     mail,
		users:    users,
		metrics:  metrics,
		fallback: fallback,
		sendWait: 15 * time.Second,
	}
}

func (n *EmailNotifier) SprintCompleted(ctx context.Context, sprint *domain.Sprint, milestone *domain.Milestone) {
	if n == nil || sprint == nil {
		return
	}
	recipient := n.milestoneAssigneeEmail(ctx, milestone)
	if recipient == "" {
		n.log.Debug("sprint completed notification skipped, no recipient", "sprint_id", sprint.ID)
		return
	}
	milestoneName := ""
	if milestone != nil {
		milestoneName = milestone.Name
	}
	subject := fmt.Sprintf("Sprint %q completed", sprint.Name)
	body := fmt.Sprintf("Sprint %q under milestone %q has been completed. All of its tasks are done.", sprint.Name, milestoneName)
	n.send(recipient, subject, body, "sprint_completed")
}

func (n *EmailNotifier) MilestoneDueSoon(ctx context.Context, milestone *domain.Milestone, daysLeft int) {
	if n == nil || milestone == nil {
		return
	}
	recipient := n.milestoneAssigneeEmail(ctx, milestone)
	if recipient == "" {
		n.log.Debug("milestone due soon notification skipped, no recipient", "milestone_id", milestone.ID)
		return
	}
	subject := fmt.Sprintf("Milestone %q due in %d days", milestone.Name, daysLeft)
	body := fmt.Sprintf("Milestone %q is due in %d days and is at %d%% progress.", milestone.Name, daysLeft, milestone.Progress)
	n.send(recipient, subject, body, "milestone_due_soon")
}

// milestoneAssigneeEmail resolves the recipient. Unassigned milestones,
// missing users and disabled accounts all fall back to the admin address.
func (n *EmailNotifier) milestoneAssigneeEmail(ctx context.Context, milestone *domain.Milestone) string {
	if milestone == nil || milestone.AssigneeID == nil || n.users == nil {
		return n.fallback
	}
	user, err := n.users.GetByID(dbctx.Context{Ctx: ctx}, *milestone.AssigneeID)
	if err != nil {
		n.log.Warn("failed to load notification recipient", "assignee_id", *milestone.AssigneeID, "error", err)
		return n.fallback
	}
	if !user.IsActive {
		return n.fallback
	}
	return user.Email
}

func (n *EmailNotifier) send(to, subject, body, kind string) {
	if n.mail == nil {
		n.metrics.IncNotification(kind, "skipped")
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.sendWait)
		defer cancel()
		_, err := n.mail.Send(ctx, sendgrid.SendEmailRequest{
			To:         []sendgrid.EmailAddress{{Email: to}},
			Subject:    subject,
			Text:       body,
			Categories: []string{kind},
		})
		if err != nil {
			n.metrics.IncNotification(kind, "failed")
			n.log.Warn("notification delivery failed", "kind", kind, "to", to, "error", err)
			return
		}
		n.metrics.IncNotification(kind, "sent")
	}()
}
