// Package webhook ingests asynchronous delivery events from the email
// provider: delivery, open, click, bounce and complaint callbacks arriving
// with at-least-once semantics.
//
// Unique counters are guarded by an existence check on the event log rather
// than a database constraint (the log keeps every raw event, so it cannot
// carry a unique index). Two concurrent deliveries of the same event can
// therefore both pass the check and bump a unique counter twice; provider
// redelivery is sequential in practice and the skew is bounded by one per
// race, so this is accepted.
package webhook

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openvenue/mailroom/internal/domain"
	"github.com/openvenue/mailroom/internal/pkg/logger"
	"github.com/openvenue/mailroom/internal/subscriber"
)

// Store is the data access surface the ingestor needs. *store.Store
// satisfies it.
type Store interface {
	NewsletterExists(ctx context.Context, id uuid.UUID) (bool, error)
	IncrementStat(ctx context.Context, newsletterID uuid.UUID, column string, delta int) error
	HasEngagementEvent(ctx context.Context, newsletterID, subscriberID uuid.UUID, eventType domain.EngagementType) (bool, error)
	InsertEngagementEvent(ctx context.Context, ev *domain.EngagementEvent) error
	TouchSubscriberEngagement(ctx context.Context, id uuid.UUID, eventType domain.EngagementType, at time.Time) error
	MarkSubscriberUnsubscribed(ctx context.Context, id uuid.UUID, status domain.SubscriberStatus, at time.Time, reason map[string]any) error
	MergeSubscriberMetadata(ctx context.Context, id uuid.UUID, meta map[string]any) error
}

// Ingestor applies provider events to stats and subscriber records.
type Ingestor struct {
	store Store
	now   func() time.Time
}

// NewIngestor creates an ingestor.
func NewIngestor(st Store) *Ingestor {
	return &Ingestor{store: st, now: time.Now}
}

// Handle applies one event. Raw counters count every delivery of an event,
// redeliveries included; unique counters consult the engagement log before
// incrementing, which keeps them stable under provider redelivery. When the
// tags do not resolve to a known newsletter, stat bookkeeping is skipped
// silently so the HTTP layer can still acknowledge the provider.
func (in *Ingestor) Handle(ctx context.Context, ev Event) error {
	switch ev.Type {
	case "delivered":
		return in.handleDelivered(ctx, ev)
	case "opened":
		return in.handleEngagement(ctx, ev, domain.EngagementOpened, "open_count", "unique_open_count", nil)
	case "clicked":
		data := map[string]any{}
		if ev.Data.Click != nil {
			data["link"] = ev.Data.Click.Link
		}
		return in.handleEngagement(ctx, ev, domain.EngagementClicked, "click_count", "unique_click_count", data)
	case "bounced":
		return in.handleBounce(ctx, ev)
	case "complained":
		return in.handleComplaint(ctx, ev)
	case "sent":
		return nil
	default:
		logger.Info("ignoring unrecognized webhook event", "type", ev.Type)
		return nil
	}
}

func (in *Ingestor) handleDelivered(ctx context.Context, ev Event) error {
	_, newsletterID := ev.Data.correlation()
	known, err := in.knownNewsletter(ctx, newsletterID)
	if err != nil || !known {
		return err
	}
	return in.store.IncrementStat(ctx, *newsletterID, "delivered_count", 1)
}

func (in *Ingestor) handleEngagement(ctx context.Context, ev Event, eventType domain.EngagementType, rawCol, uniqueCol string, eventData map[string]any) error {
	subscriberID, newsletterID := ev.Data.correlation()
	now := in.now()

	// Engagement timestamps move on every event, unique or not.
	if subscriberID != nil {
		if err := in.store.TouchSubscriberEngagement(ctx, *subscriberID, eventType, now); err != nil {
			return err
		}
	}

	known, err := in.knownNewsletter(ctx, newsletterID)
	if err != nil || !known {
		return err
	}

	if err := in.store.IncrementStat(ctx, *newsletterID, rawCol, 1); err != nil {
		return err
	}

	// The existence check must run before the new log row goes in; the log
	// is the source of truth for "seen before".
	if subscriberID != nil {
		seen, err := in.store.HasEngagementEvent(ctx, *newsletterID, *subscriberID, eventType)
		if err != nil {
			return err
		}
		if !seen {
			if err := in.store.IncrementStat(ctx, *newsletterID, uniqueCol, 1); err != nil {
				return err
			}
		}
	}

	return in.store.InsertEngagementEvent(ctx, &domain.EngagementEvent{
		ID:           uuid.New(),
		NewsletterID: *newsletterID,
		SubscriberID: subscriberID,
		EventType:    eventType,
		EventData:    eventData,
		CreatedAt:    now,
	})
}

// handleBounce unsubscribes on hard bounces; soft bounces only leave a
// metadata note for operator inspection.
func (in *Ingestor) handleBounce(ctx context.Context, ev Event) error {
	subscriberID, _ := ev.Data.correlation()
	if subscriberID == nil || ev.Data.Bounce == nil {
		return nil
	}

	now := in.now()
	provenance := map[string]any{
		"bounce_type":   ev.Data.Bounce.Type,
		"bounce_reason": ev.Data.Bounce.Reason,
		"bounced_at":    now.Format(time.RFC3339),
	}

	// Providers are inconsistent about classification casing ("hard" vs "Hard").
	if strings.EqualFold(ev.Data.Bounce.Type, "hard") {
		logger.Warn("hard bounce, unsubscribing",
			"subscriber_id", subscriberID.String(),
			"reason", ev.Data.Bounce.Reason)
		return ignoreUnknownSubscriber(in.store.MarkSubscriberUnsubscribed(ctx, *subscriberID, domain.SubscriberBounced, now, provenance))
	}
	return in.store.MergeSubscriberMetadata(ctx, *subscriberID, provenance)
}

// handleComplaint treats a spam complaint as an unconditional unsubscribe.
func (in *Ingestor) handleComplaint(ctx context.Context, ev Event) error {
	subscriberID, _ := ev.Data.correlation()
	if subscriberID == nil {
		return nil
	}

	now := in.now()
	logger.Warn("spam complaint, unsubscribing", "subscriber_id", subscriberID.String())
	return ignoreUnknownSubscriber(in.store.MarkSubscriberUnsubscribed(ctx, *subscriberID, domain.SubscriberUnsubscribed, now, map[string]any{
		"complaint":     true,
		"complained_at": now.Format(time.RFC3339),
	}))
}

// ignoreUnknownSubscriber drops not-found errors: a bounce for a deleted
// subscriber is a normal condition, not a processing failure.
func ignoreUnknownSubscriber(err error) error {
	if errors.Is(err, subscriber.ErrNotFound) {
		return nil
	}
	return err
}

func (in *Ingestor) knownNewsletter(ctx context.Context, id *uuid.UUID) (bool, error) {
	if id == nil {
		return false, nil
	}
	known, err := in.store.NewsletterExists(ctx, *id)
	if err != nil {
		return false, err
	}
	if !known {
		logger.Info("webhook references unknown newsletter, skipping stats",
			"newsletter_id", id.String())
	}
	return known, nil
}
