package subscriber

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openvenue/mailroom/internal/domain"
)

// Repository defines the data access contract for subscribers.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Create inserts a new subscriber. Returns ErrDuplicateEmail if a record
	// with the same email exists, regardless of that record's status.
	Create(ctx context.Context, sub *domain.Subscriber) error

	// ByID returns a subscriber by id, or (nil, nil) when absent.
	ByID(ctx context.Context, id uuid.UUID) (*domain.Subscriber, error)

	// ByEmail returns a subscriber by normalized email, or (nil, nil).
	ByEmail(ctx context.Context, email string) (*domain.Subscriber, error)

	// ByToken returns the subscriber holding the opt-in token, or (nil, nil).
	// A redeemed token still resolves to its (now active) subscriber so that
	// a twice-clicked confirmation link stays a no-op success.
	ByToken(ctx context.Context, token string) (*domain.Subscriber, error)

	// Activate sets status active, stamps confirmed_at exactly once and
	// clears the token, keeping the redeemed value resolvable for ByToken.
	Activate(ctx context.Context, id uuid.UUID, at time.Time) error

	// MarkUnsubscribed sets the terminal status, stamps unsubscribed_at and
	// merges reason into the metadata bag.
	MarkUnsubscribed(ctx context.Context, id uuid.UUID, status domain.SubscriberStatus, at time.Time, reason map[string]any) error

	// ActiveRecipients returns the delivery projection of all active
	// subscribers. The opt-in token is never part of the projection.
	ActiveRecipients(ctx context.Context) ([]domain.Recipient, error)

	// List returns subscribers filtered by status ("" for all) with the
	// total count for pagination.
	List(ctx context.Context, status domain.SubscriberStatus, limit, offset int) ([]domain.Subscriber, int, error)
}
