package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/openvenue/mailroom/internal/domain"
)

// CreateVenueEvent inserts a new venue event.
func (s *Store) CreateVenueEvent(ctx context.Context, e *domain.VenueEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO venue_events (id, title, description, image_url, starts_at,
			ends_at, ticket_url, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.Title, e.Description, e.ImageURL, e.StartsAt, e.EndsAt,
		e.TicketURL, e.Published, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert venue event: %w", err)
	}
	return nil
}

// VenueEventByID returns a venue event, or (nil, nil) when absent.
func (s *Store) VenueEventByID(ctx context.Context, id uuid.UUID) (*domain.VenueEvent, error) {
	var e domain.VenueEvent
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, image_url, starts_at, ends_at,
			ticket_url, published, created_at, updated_at
		FROM venue_events WHERE id = $1`, id).Scan(
		&e.ID, &e.Title, &e.Description, &e.ImageURL, &e.StartsAt, &e.EndsAt,
		&e.TicketURL, &e.Published, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query venue event: %w", err)
	}
	return &e, nil
}

// ListVenueEvents returns venue events ordered by start time. With
// publishedOnly set it returns only upcoming published events, which is what
// the public site and newsletter rendering consume.
func (s *Store) ListVenueEvents(ctx context.Context, publishedOnly bool) ([]domain.VenueEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, image_url, starts_at, ends_at,
			ticket_url, published, created_at, updated_at
		FROM venue_events
		WHERE ($1 = false OR (published AND starts_at >= NOW()))
		ORDER BY starts_at ASC`, publishedOnly)
	if err != nil {
		return nil, fmt.Errorf("query venue events: %w", err)
	}
	defer rows.Close()

	var out []domain.VenueEvent
	for rows.Next() {
		var e domain.VenueEvent
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.ImageURL,
			&e.StartsAt, &e.EndsAt, &e.TicketURL, &e.Published,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan venue event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateVenueEvent persists all mutable fields of a venue event.
func (s *Store) UpdateVenueEvent(ctx context.Context, e *domain.VenueEvent) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE venue_events
		SET title = $2, description = $3, image_url = $4, starts_at = $5,
		    ends_at = $6, ticket_url = $7, published = $8, updated_at = $9
		WHERE id = $1`,
		e.ID, e.Title, e.Description, e.ImageURL, e.StartsAt, e.EndsAt,
		e.TicketURL, e.Published, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update venue event: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteVenueEvent removes a venue event. Newsletter blocks referencing it
// keep their block row; rendering skips blocks whose source is gone.
func (s *Store) DeleteVenueEvent(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM venue_events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete venue event: %w", err)
	}
	return nil
}

// CreateArticle inserts a new article.
func (s *Store) CreateArticle(ctx context.Context, a *domain.Article) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO articles (id, title, teaser, body, image_url, published,
			published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.Title, a.Teaser, a.Body, a.ImageURL, a.Published,
		a.PublishedAt, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// ArticleByID returns an article, or (nil, nil) when absent.
func (s *Store) ArticleByID(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	var a domain.Article
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, teaser, body, image_url, published, published_at,
			created_at, updated_at
		FROM articles WHERE id = $1`, id).Scan(
		&a.ID, &a.Title, &a.Teaser, &a.Body, &a.ImageURL, &a.Published,
		&a.PublishedAt, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query article: %w", err)
	}
	return &a, nil
}

// ListArticles returns articles newest first, optionally published only.
func (s *Store) ListArticles(ctx context.Context, publishedOnly bool) ([]domain.Article, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, teaser, body, image_url, published, published_at,
			created_at, updated_at
		FROM articles
		WHERE ($1 = false OR published)
		ORDER BY COALESCE(published_at, created_at) DESC`, publishedOnly)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var out []domain.Article
	for rows.Next() {
		var a domain.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Teaser, &a.Body, &a.ImageURL,
			&a.Published, &a.PublishedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateArticle persists all mutable fields of an article.
func (s *Store) UpdateArticle(ctx context.Context, a *domain.Article) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE articles
		SET title = $2, teaser = $3, body = $4, image_url = $5, published = $6,
		    published_at = $7, updated_at = $8
		WHERE id = $1`,
		a.ID, a.Title, a.Teaser, a.Body, a.ImageURL, a.Published,
		a.PublishedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update article: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteArticle removes an article.
func (s *Store) DeleteArticle(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM articles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	return nil
}
