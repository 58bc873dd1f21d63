package newsletter

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openvenue/mailroom/internal/domain"
)

// Repository defines the data access contract for newsletters.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Create inserts a new newsletter. Returns ErrDuplicateSlug on a slug
	// collision.
	Create(ctx context.Context, n *domain.Newsletter) error

	// ByID returns a newsletter by id, or (nil, nil) when absent.
	ByID(ctx context.Context, id uuid.UUID) (*domain.Newsletter, error)

	// BySlug returns a newsletter by slug, or (nil, nil).
	BySlug(ctx context.Context, slug string) (*domain.Newsletter, error)

	// List returns newsletters filtered by status ("" for all), newest first.
	List(ctx context.Context, status domain.NewsletterStatus, limit, offset int) ([]domain.Newsletter, int, error)

	// Update persists the mutable content fields of a draft/scheduled
	// newsletter. Status, sent_at and recipient_count are not touched.
	Update(ctx context.Context, n *domain.Newsletter) error

	// Delete removes a newsletter and its blocks.
	Delete(ctx context.Context, id uuid.UUID) error

	// Schedule sets status scheduled with the given time.
	Schedule(ctx context.Context, id uuid.UUID, at time.Time) error

	// Unschedule moves a scheduled newsletter back to draft.
	Unschedule(ctx context.Context, id uuid.UUID) error

	// ReplaceBlocks swaps the full ordered block set of a newsletter.
	ReplaceBlocks(ctx context.Context, newsletterID uuid.UUID, blocks []domain.ContentBlock) error

	// Blocks returns a newsletter's blocks ordered by position.
	Blocks(ctx context.Context, newsletterID uuid.UUID) ([]domain.ContentBlock, error)

	// Stats returns the stats aggregate, zero-valued when no row exists yet.
	Stats(ctx context.Context, newsletterID uuid.UUID) (*domain.Stats, error)
}
