package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/openvenue/mailroom/internal/domain"
)

// statColumns whitelists the incrementable counters so webhook-derived
// strings can never be interpolated into SQL.
var statColumns = map[string]bool{
	"sent_count":         true,
	"delivered_count":    true,
	"open_count":         true,
	"unique_open_count":  true,
	"click_count":        true,
	"unique_click_count": true,
}

// IncrementStat bumps one counter by delta as a single atomic upsert, so
// concurrent webhook deliveries never lose increments.
func (s *Store) IncrementStat(ctx context.Context, newsletterID uuid.UUID, column string, delta int) error {
	if !statColumns[column] {
		return fmt.Errorf("unknown stat column %q", column)
	}

	query := fmt.Sprintf(`
		INSERT INTO newsletter_stats (newsletter_id, %[1]s)
		VALUES ($1, $2)
		ON CONFLICT (newsletter_id)
		DO UPDATE SET %[1]s = newsletter_stats.%[1]s + $2`, column)

	if _, err := s.db.ExecContext(ctx, query, newsletterID, delta); err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	return nil
}

// NewsletterStats returns the stats row for a newsletter, zero-valued when
// no engagement has been recorded yet.
func (s *Store) NewsletterStats(ctx context.Context, newsletterID uuid.UUID) (*domain.Stats, error) {
	st := &domain.Stats{NewsletterID: newsletterID}
	err := s.db.QueryRowContext(ctx, `
		SELECT sent_count, delivered_count, open_count, unique_open_count,
			click_count, unique_click_count
		FROM newsletter_stats WHERE newsletter_id = $1`,
		newsletterID).Scan(
		&st.SentCount, &st.DeliveredCount, &st.OpenCount,
		&st.UniqueOpenCount, &st.ClickCount, &st.UniqueClickCount,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return st, nil
		}
		return nil, fmt.Errorf("query stats: %w", err)
	}
	return st, nil
}

// HasEngagementEvent reports whether the subscriber already has a logged
// event of this type for the newsletter. The unique counters key off this
// check, which makes them idempotent under webhook redelivery.
func (s *Store) HasEngagementEvent(ctx context.Context, newsletterID, subscriberID uuid.UUID, eventType domain.EngagementType) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM engagement_events
			WHERE newsletter_id = $1 AND subscriber_id = $2 AND event_type = $3)`,
		newsletterID, subscriberID, eventType).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check engagement event: %w", err)
	}
	return exists, nil
}

// InsertEngagementEvent appends one row to the engagement log. One row per
// raw provider event, duplicates included.
func (s *Store) InsertEngagementEvent(ctx context.Context, ev *domain.EngagementEvent) error {
	data, err := metadataJSON(ev.EventData)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO engagement_events (id, newsletter_id, subscriber_id,
			event_type, event_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.NewsletterID, ev.SubscriberID, ev.EventType, data, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert engagement event: %w", err)
	}
	return nil
}

// EngagementEvents returns the raw event log for a newsletter, newest first.
func (s *Store) EngagementEvents(ctx context.Context, newsletterID uuid.UUID, limit int) ([]domain.EngagementEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, newsletter_id, subscriber_id, event_type, event_data, created_at
		FROM engagement_events
		WHERE newsletter_id = $1 ORDER BY created_at DESC LIMIT $2`,
		newsletterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query engagement events: %w", err)
	}
	defer rows.Close()

	var out []domain.EngagementEvent
	for rows.Next() {
		var ev domain.EngagementEvent
		var data []byte
		if err := rows.Scan(&ev.ID, &ev.NewsletterID, &ev.SubscriberID,
			&ev.EventType, &data, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan engagement event: %w", err)
		}
		ev.EventData = scanMetadata(data)
		out = append(out, ev)
	}
	return out, rows.Err()
}
