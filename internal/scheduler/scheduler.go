// Package scheduler promotes due scheduled newsletters into sends. It is
// invoked by an external cron trigger rather than an in-process timer, so a
// single run is the unit of work.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openvenue/mailroom/internal/domain"
	"github.com/openvenue/mailroom/internal/pkg/logger"
	"github.com/openvenue/mailroom/internal/sender"
)

// Store is the data access surface the scheduler needs. *store.Store
// satisfies it.
type Store interface {
	DueNewsletters(ctx context.Context, now time.Time) ([]domain.Newsletter, error)
	RevertNewsletterToDraft(ctx context.Context, id uuid.UUID, sendErr string, at time.Time) error
}

// Dispatcher runs one send. *sender.Sender satisfies it.
type Dispatcher interface {
	Send(ctx context.Context, newsletterID uuid.UUID, opts sender.Options) (*sender.Result, error)
}

// ItemResult is the outcome for one due newsletter.
type ItemResult struct {
	NewsletterID uuid.UUID `json:"newsletter_id"`
	Slug         string    `json:"slug"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
}

// Summary aggregates one scheduler run.
type Summary struct {
	Sent    int          `json:"sent"`
	Failed  int          `json:"failed"`
	Results []ItemResult `json:"results"`
}

// Runner drives scheduled newsletter promotion.
type Runner struct {
	store  Store
	sender Dispatcher
	now    func() time.Time
}

// NewRunner creates a scheduler runner.
func NewRunner(st Store, dispatcher Dispatcher) *Runner {
	return &Runner{store: st, sender: dispatcher, now: time.Now}
}

// RunDue sends every newsletter whose scheduled time has passed, oldest
// schedule first so a backlog clears in order. A failed item is reverted to
// draft with the error recorded in its metadata, and never blocks the
// remaining items.
func (r *Runner) RunDue(ctx context.Context, now time.Time) (*Summary, error) {
	due, err := r.store.DueNewsletters(ctx, now)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Results: make([]ItemResult, 0, len(due))}
	for _, n := range due {
		item := ItemResult{NewsletterID: n.ID, Slug: n.Slug}

		if _, err := r.sender.Send(ctx, n.ID, sender.Options{}); err != nil {
			item.Error = err.Error()
			summary.Failed++
			logger.Error("scheduled send failed",
				"newsletter_id", n.ID.String(),
				"slug", n.Slug,
				"error", err.Error())

			if revertErr := r.store.RevertNewsletterToDraft(ctx, n.ID, err.Error(), r.now()); revertErr != nil {
				logger.Error("revert to draft failed",
					"newsletter_id", n.ID.String(),
					"error", revertErr.Error())
			}
		} else {
			item.Success = true
			summary.Sent++
			logger.Info("scheduled send completed",
				"newsletter_id", n.ID.String(), "slug", n.Slug)
		}

		summary.Results = append(summary.Results, item)
	}

	return summary, nil
}
