package subscriber

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openvenue/mailroom/internal/domain"
	"github.com/openvenue/mailroom/internal/pkg/logger"
)

// Service implements subscriber business logic.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a subscriber service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create registers a new pending subscriber and returns it with a fresh
// opt-in token. It does not send the confirmation email.
//
// Re-subscribing a previously unsubscribed address is rejected with
// ErrDuplicateEmail, not merged: terminal states stay terminal and an
// operator decides about resurrection.
func (s *Service) Create(ctx context.Context, email, firstName string, interests []string) (*domain.Subscriber, error) {
	email = domain.NormalizeEmail(email)
	if !domain.ValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	token, err := newOptInToken()
	if err != nil {
		return nil, fmt.Errorf("generate opt-in token: %w", err)
	}

	now := s.now()
	sub := &domain.Subscriber{
		ID:          uuid.New(),
		Email:       email,
		FirstName:   firstName,
		Status:      domain.SubscriberPending,
		Interests:   interests,
		OptInToken:  &token,
		OptInSentAt: &now,
		Metadata:    map[string]any{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, err
	}

	logger.Info("subscriber created", "subscriber_id", sub.ID.String(), "email", email)
	return sub, nil
}

// Confirm completes double opt-in for the given token. Confirming an
// already-active subscriber is a no-op success: confirmation links get
// clicked twice.
func (s *Service) Confirm(ctx context.Context, token string) (*domain.Subscriber, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	sub, err := s.repo.ByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	if sub == nil {
		return nil, ErrInvalidToken
	}
	if sub.Status == domain.SubscriberActive {
		return sub, nil
	}

	now := s.now()
	if sub.TokenExpired(now) {
		return nil, ErrTokenExpired
	}

	if err := s.repo.Activate(ctx, sub.ID, now); err != nil {
		return nil, fmt.Errorf("activate subscriber: %w", err)
	}

	sub.Status = domain.SubscriberActive
	sub.ConfirmedAt = &now
	sub.OptInToken = nil
	logger.Info("subscriber confirmed", "subscriber_id", sub.ID.String())
	return sub, nil
}

// Unsubscribe resolves by email first, then by id, and transitions the
// subscriber to unsubscribed. An already-unsubscribed record is a no-op
// success.
func (s *Service) Unsubscribe(ctx context.Context, emailOrID string) (*domain.Subscriber, error) {
	sub, err := s.resolve(ctx, emailOrID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNotFound
	}
	if sub.Status == domain.SubscriberUnsubscribed || sub.Status == domain.SubscriberBounced {
		return sub, nil
	}

	now := s.now()
	reason := map[string]any{"unsubscribe_source": "user_request"}
	if err := s.repo.MarkUnsubscribed(ctx, sub.ID, domain.SubscriberUnsubscribed, now, reason); err != nil {
		return nil, fmt.Errorf("unsubscribe: %w", err)
	}

	sub.Status = domain.SubscriberUnsubscribed
	sub.UnsubscribedAt = &now
	logger.Info("subscriber unsubscribed", "subscriber_id", sub.ID.String())
	return sub, nil
}

// Active returns the delivery projection of all active subscribers.
func (s *Service) Active(ctx context.Context) ([]domain.Recipient, error) {
	return s.repo.ActiveRecipients(ctx)
}

// List returns subscribers for the admin dashboard.
func (s *Service) List(ctx context.Context, status domain.SubscriberStatus, limit, offset int) ([]domain.Subscriber, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.List(ctx, status, limit, offset)
}

func (s *Service) resolve(ctx context.Context, emailOrID string) (*domain.Subscriber, error) {
	if email := domain.NormalizeEmail(emailOrID); domain.ValidEmail(email) {
		sub, err := s.repo.ByEmail(ctx, email)
		if err != nil || sub != nil {
			return sub, err
		}
	}
	id, err := uuid.Parse(emailOrID)
	if err != nil {
		return nil, nil
	}
	return s.repo.ByID(ctx, id)
}

// newOptInToken returns a 32-byte random token, hex encoded.
func newOptInToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
