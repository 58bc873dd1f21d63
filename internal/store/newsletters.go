package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openvenue/mailroom/internal/domain"
	"github.com/openvenue/mailroom/internal/newsletter"
)

const newsletterColumns = `id, slug, subject, preheader, hero_title, hero_subtitle,
	hero_image_url, hero_cta_label, hero_cta_url, intro_text, status,
	scheduled_at, sent_at, recipient_count, metadata, created_at, updated_at`

// CreateNewsletter inserts a new draft.
func (s *Store) CreateNewsletter(ctx context.Context, n *domain.Newsletter) error {
	meta, err := metadataJSON(n.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO newsletters (id, slug, subject, preheader, hero_title,
			hero_subtitle, hero_image_url, hero_cta_label, hero_cta_url,
			intro_text, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		n.ID, n.Slug, n.Subject, n.Preheader, n.Hero.Title, n.Hero.Subtitle,
		n.Hero.ImageURL, n.Hero.CTALabel, n.Hero.CTAURL, n.IntroText,
		n.Status, meta, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "newsletters_slug_key") {
			return newsletter.ErrDuplicateSlug
		}
		return fmt.Errorf("insert newsletter: %w", err)
	}
	return nil
}

// NewsletterByID returns a newsletter by id, or (nil, nil) when absent.
func (s *Store) NewsletterByID(ctx context.Context, id uuid.UUID) (*domain.Newsletter, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+newsletterColumns+` FROM newsletters WHERE id = $1`, id)
	return scanNewsletter(row)
}

// NewsletterBySlug returns a newsletter by slug, or (nil, nil).
func (s *Store) NewsletterBySlug(ctx context.Context, slug string) (*domain.Newsletter, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+newsletterColumns+` FROM newsletters WHERE slug = $1`, slug)
	return scanNewsletter(row)
}

// NewsletterExists reports whether the id belongs to a newsletter. Webhook
// ingestion uses this to skip stats for unknown newsletter references.
func (s *Store) NewsletterExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM newsletters WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check newsletter: %w", err)
	}
	return exists, nil
}

// ListNewsletters returns a page filtered by status ("" for all), newest
// first, plus the total count.
func (s *Store) ListNewsletters(ctx context.Context, status domain.NewsletterStatus, limit, offset int) ([]domain.Newsletter, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM newsletters WHERE ($1 = '' OR status = $1)`,
		string(status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count newsletters: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+newsletterColumns+` FROM newsletters
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		string(status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query newsletters: %w", err)
	}
	defer rows.Close()

	var out []domain.Newsletter
	for rows.Next() {
		n, err := scanNewsletterRows(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *n)
	}
	return out, total, rows.Err()
}

// UpdateNewsletter persists the mutable content fields. Status, schedule and
// send bookkeeping columns are owned by their dedicated operations.
func (s *Store) UpdateNewsletter(ctx context.Context, n *domain.Newsletter) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE newsletters
		SET subject = $2, preheader = $3, hero_title = $4, hero_subtitle = $5,
		    hero_image_url = $6, hero_cta_label = $7, hero_cta_url = $8,
		    intro_text = $9, updated_at = $10
		WHERE id = $1`,
		n.ID, n.Subject, n.Preheader, n.Hero.Title, n.Hero.Subtitle,
		n.Hero.ImageURL, n.Hero.CTALabel, n.Hero.CTAURL, n.IntroText,
		n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update newsletter: %w", err)
	}
	cnt, _ := res.RowsAffected()
	if cnt == 0 {
		return newsletter.ErrNotFound
	}
	return nil
}

// DeleteNewsletter removes a newsletter; blocks, stats and events cascade.
func (s *Store) DeleteNewsletter(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM newsletters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete newsletter: %w", err)
	}
	cnt, _ := res.RowsAffected()
	if cnt == 0 {
		return newsletter.ErrNotFound
	}
	return nil
}

// ScheduleNewsletter marks a newsletter scheduled at the given time.
func (s *Store) ScheduleNewsletter(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE newsletters
		SET status = 'scheduled', scheduled_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'draft'`,
		id, at)
	if err != nil {
		return fmt.Errorf("schedule newsletter: %w", err)
	}
	cnt, _ := res.RowsAffected()
	if cnt == 0 {
		return newsletter.ErrInvalidStatus
	}
	return nil
}

// UnscheduleNewsletter moves a scheduled newsletter back to draft.
func (s *Store) UnscheduleNewsletter(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE newsletters
		SET status = 'draft', scheduled_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'`,
		id)
	if err != nil {
		return fmt.Errorf("unschedule newsletter: %w", err)
	}
	cnt, _ := res.RowsAffected()
	if cnt == 0 {
		return newsletter.ErrInvalidStatus
	}
	return nil
}

// MarkNewsletterSending claims a newsletter for delivery. The status guard
// makes it the mutual exclusion point for concurrent send attempts.
func (s *Store) MarkNewsletterSending(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE newsletters SET status = 'sending', updated_at = NOW()
		WHERE id = $1 AND status IN ('draft', 'scheduled')`,
		id)
	if err != nil {
		return fmt.Errorf("mark sending: %w", err)
	}
	cnt, _ := res.RowsAffected()
	if cnt == 0 {
		return newsletter.ErrInvalidStatus
	}
	return nil
}

// FinalizeNewsletterSend records a completed real send: status, sent_at,
// recipient_count and the stats sent counter move together in one
// transaction.
func (s *Store) FinalizeNewsletterSend(ctx context.Context, id uuid.UUID, sentAt time.Time, recipientCount int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin finalize: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE newsletters
		SET status = 'sent', sent_at = $2, recipient_count = $3, updated_at = $2
		WHERE id = $1`,
		id, sentAt, recipientCount); err != nil {
		return fmt.Errorf("finalize newsletter: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO newsletter_stats (newsletter_id, sent_count)
		VALUES ($1, $2)
		ON CONFLICT (newsletter_id)
		DO UPDATE SET sent_count = newsletter_stats.sent_count + $2`,
		id, recipientCount); err != nil {
		return fmt.Errorf("record sent count: %w", err)
	}

	return tx.Commit()
}

// RevertNewsletterToDraft undoes a failed scheduled send so an operator can
// retry, recording the failure in metadata.
func (s *Store) RevertNewsletterToDraft(ctx context.Context, id uuid.UUID, sendErr string, at time.Time) error {
	meta, err := metadataJSON(map[string]any{
		"last_send_error":    sendErr,
		"last_send_error_at": at.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal send error: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE newsletters
		SET status = 'draft', scheduled_at = NULL,
		    metadata = metadata || $2::jsonb, updated_at = $3
		WHERE id = $1`,
		id, meta, at)
	if err != nil {
		return fmt.Errorf("revert newsletter: %w", err)
	}
	return nil
}

// DueNewsletters returns scheduled newsletters whose time has arrived,
// oldest schedule first.
func (s *Store) DueNewsletters(ctx context.Context, now time.Time) ([]domain.Newsletter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+newsletterColumns+` FROM newsletters
		WHERE status = 'scheduled' AND scheduled_at <= $1
		ORDER BY scheduled_at ASC`,
		now)
	if err != nil {
		return nil, fmt.Errorf("query due newsletters: %w", err)
	}
	defer rows.Close()

	var out []domain.Newsletter
	for rows.Next() {
		n, err := scanNewsletterRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// ReplaceNewsletterBlocks swaps the full block set inside one transaction.
func (s *Store) ReplaceNewsletterBlocks(ctx context.Context, newsletterID uuid.UUID, blocks []domain.ContentBlock) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace blocks: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM newsletter_blocks WHERE newsletter_id = $1`, newsletterID); err != nil {
		return fmt.Errorf("clear blocks: %w", err)
	}

	for _, b := range blocks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO newsletter_blocks (id, newsletter_id, content_type,
				content_id, section_heading, section_description, order_position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			b.ID, b.NewsletterID, b.ContentType, b.ContentID,
			b.SectionHeading, b.SectionDescription, b.OrderPosition); err != nil {
			return fmt.Errorf("insert block: %w", err)
		}
	}

	return tx.Commit()
}

// NewsletterBlocks returns a newsletter's blocks in render order.
func (s *Store) NewsletterBlocks(ctx context.Context, newsletterID uuid.UUID) ([]domain.ContentBlock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, newsletter_id, content_type, content_id, section_heading,
			section_description, order_position
		FROM newsletter_blocks
		WHERE newsletter_id = $1 ORDER BY order_position ASC`,
		newsletterID)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	var out []domain.ContentBlock
	for rows.Next() {
		var b domain.ContentBlock
		if err := rows.Scan(&b.ID, &b.NewsletterID, &b.ContentType,
			&b.ContentID, &b.SectionHeading, &b.SectionDescription,
			&b.OrderPosition); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanNewsletter(row *sql.Row) (*domain.Newsletter, error) {
	n, err := scanNewsletterRows(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return n, err
}

func scanNewsletterRows(row rowScanner) (*domain.Newsletter, error) {
	var n domain.Newsletter
	var meta []byte
	err := row.Scan(
		&n.ID, &n.Slug, &n.Subject, &n.Preheader, &n.Hero.Title,
		&n.Hero.Subtitle, &n.Hero.ImageURL, &n.Hero.CTALabel, &n.Hero.CTAURL,
		&n.IntroText, &n.Status, &n.ScheduledAt, &n.SentAt, &n.RecipientCount,
		&meta, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan newsletter: %w", err)
	}
	n.Metadata = scanMetadata(meta)
	return &n, nil
}
