package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/openvenue/mailroom/internal/domain"
	"github.com/openvenue/mailroom/internal/subscriber"
)

const subscriberColumns = `id, email, first_name, status, interests, opt_in_token,
	opt_in_sent_at, confirmed_at, unsubscribed_at, last_open_at, last_click_at,
	metadata, created_at, updated_at`

// CreateSubscriber inserts a new subscriber row. The unique index on email
// covers every status, so a resubscribe after unsubscribe surfaces as
// ErrDuplicateEmail too.
func (s *Store) CreateSubscriber(ctx context.Context, sub *domain.Subscriber) error {
	meta, err := metadataJSON(sub.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO subscribers (id, email, first_name, status, interests,
			opt_in_token, opt_in_sent_at, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sub.ID, sub.Email, sub.FirstName, sub.Status, pq.Array(sub.Interests),
		sub.OptInToken, sub.OptInSentAt, meta, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "subscribers_email_key") {
			return subscriber.ErrDuplicateEmail
		}
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

// SubscriberByID returns a subscriber by id, or (nil, nil) when absent.
func (s *Store) SubscriberByID(ctx context.Context, id uuid.UUID) (*domain.Subscriber, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE id = $1`, id)
	return scanSubscriber(row)
}

// SubscriberByEmail returns a subscriber by normalized email, or (nil, nil).
func (s *Store) SubscriberByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE email = $1`, email)
	return scanSubscriber(row)
}

// SubscriberByToken resolves an opt-in token to its subscriber. Redeemed
// tokens are kept in metadata so a confirmation link clicked twice still
// resolves instead of erroring.
func (s *Store) SubscriberByToken(ctx context.Context, token string) (*domain.Subscriber, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers
		 WHERE opt_in_token = $1 OR metadata->>'confirmed_token' = $1`, token)
	return scanSubscriber(row)
}

// ActivateSubscriber flips a pending subscriber to active, stamps
// confirmed_at once and moves the token into metadata so the column stays
// non-null only while pending.
func (s *Store) ActivateSubscriber(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscribers
		SET status = 'active',
		    confirmed_at = COALESCE(confirmed_at, $2),
		    metadata = metadata || jsonb_build_object('confirmed_token', opt_in_token),
		    opt_in_token = NULL,
		    updated_at = $2
		WHERE id = $1 AND status = 'pending'`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("activate subscriber: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return subscriber.ErrNotFound
	}
	return nil
}

// MarkSubscriberUnsubscribed sets a terminal status and merges the reason
// into the metadata bag.
func (s *Store) MarkSubscriberUnsubscribed(ctx context.Context, id uuid.UUID, status domain.SubscriberStatus, at time.Time, reason map[string]any) error {
	meta, err := metadataJSON(reason)
	if err != nil {
		return fmt.Errorf("marshal reason: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE subscribers
		SET status = $2,
		    unsubscribed_at = $3,
		    opt_in_token = NULL,
		    metadata = metadata || $4::jsonb,
		    updated_at = $3
		WHERE id = $1`,
		id, status, at, meta,
	)
	if err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return subscriber.ErrNotFound
	}
	return nil
}

// ActiveRecipients returns the delivery projection of every active
// subscriber. The token column is deliberately not selected.
func (s *Store) ActiveRecipients(ctx context.Context) ([]domain.Recipient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, first_name FROM subscribers
		WHERE status = 'active' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query recipients: %w", err)
	}
	defer rows.Close()

	var out []domain.Recipient
	for rows.Next() {
		var r domain.Recipient
		if err := rows.Scan(&r.ID, &r.Email, &r.FirstName); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListSubscribers returns a page of subscribers filtered by status (""
// for all) plus the total count for pagination.
func (s *Store) ListSubscribers(ctx context.Context, status domain.SubscriberStatus, limit, offset int) ([]domain.Subscriber, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM subscribers WHERE ($1 = '' OR status = $1)`,
		string(status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count subscribers: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+subscriberColumns+` FROM subscribers
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		string(status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	var out []domain.Subscriber
	for rows.Next() {
		sub, err := scanSubscriberRows(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *sub)
	}
	return out, total, rows.Err()
}

// MergeSubscriberMetadata merges keys into the metadata bag without touching
// status. Soft-bounce provenance lands here.
func (s *Store) MergeSubscriberMetadata(ctx context.Context, id uuid.UUID, meta map[string]any) error {
	raw, err := metadataJSON(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE subscribers
		SET metadata = metadata || $2::jsonb, updated_at = NOW()
		WHERE id = $1`,
		id, raw)
	if err != nil {
		return fmt.Errorf("merge metadata: %w", err)
	}
	return nil
}

// TouchSubscriberEngagement updates last_open_at or last_click_at from a
// webhook event.
func (s *Store) TouchSubscriberEngagement(ctx context.Context, id uuid.UUID, eventType domain.EngagementType, at time.Time) error {
	column := "last_open_at"
	if eventType == domain.EngagementClicked {
		column = "last_click_at"
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE subscribers SET `+column+` = $2, updated_at = $2 WHERE id = $1`,
		id, at)
	if err != nil {
		return fmt.Errorf("touch engagement: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscriber(row *sql.Row) (*domain.Subscriber, error) {
	sub, err := scanSubscriberRows(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sub, err
}

func scanSubscriberRows(row rowScanner) (*domain.Subscriber, error) {
	var sub domain.Subscriber
	var meta []byte
	err := row.Scan(
		&sub.ID, &sub.Email, &sub.FirstName, &sub.Status,
		pq.Array(&sub.Interests), &sub.OptInToken, &sub.OptInSentAt,
		&sub.ConfirmedAt, &sub.UnsubscribedAt, &sub.LastOpenAt,
		&sub.LastClickAt, &meta, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan subscriber: %w", err)
	}
	sub.Metadata = scanMetadata(meta)
	return &sub, nil
}

// CreateTestRecipient adds an address to the curated test send list.
func (s *Store) CreateTestRecipient(ctx context.Context, r *domain.TestRecipient) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO test_recipients (id, email, name, created_at)
		VALUES ($1, $2, $3, $4)`,
		r.ID, r.Email, r.Name, r.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return fmt.Errorf("test recipient %s already exists", r.Email)
		}
		return fmt.Errorf("insert test recipient: %w", err)
	}
	return nil
}

// TestRecipients returns the curated test send list.
func (s *Store) TestRecipients(ctx context.Context) ([]domain.TestRecipient, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, name, created_at FROM test_recipients ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query test recipients: %w", err)
	}
	defer rows.Close()

	var out []domain.TestRecipient
	for rows.Next() {
		var r domain.TestRecipient
		if err := rows.Scan(&r.ID, &r.Email, &r.Name, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan test recipient: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteTestRecipient removes an address from the test send list.
func (s *Store) DeleteTestRecipient(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM test_recipients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete test recipient: %w", err)
	}
	return nil
}
