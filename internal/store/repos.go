package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openvenue/mailroom/internal/domain"
	"github.com/openvenue/mailroom/internal/newsletter"
	"github.com/openvenue/mailroom/internal/subscriber"
)

// Subscribers returns the store's subscriber.Repository view.
func (s *Store) Subscribers() subscriber.Repository {
	return subscriberRepo{s}
}

// Newsletters returns the store's newsletter.Repository view.
func (s *Store) Newsletters() newsletter.Repository {
	return newsletterRepo{s}
}

type subscriberRepo struct {
	s *Store
}

func (r subscriberRepo) Create(ctx context.Context, sub *domain.Subscriber) error {
	return r.s.CreateSubscriber(ctx, sub)
}

func (r subscriberRepo) ByID(ctx context.Context, id uuid.UUID) (*domain.Subscriber, error) {
	return r.s.SubscriberByID(ctx, id)
}

func (r subscriberRepo) ByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	return r.s.SubscriberByEmail(ctx, email)
}

func (r subscriberRepo) ByToken(ctx context.Context, token string) (*domain.Subscriber, error) {
	return r.s.SubscriberByToken(ctx, token)
}

func (r subscriberRepo) Activate(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.s.ActivateSubscriber(ctx, id, at)
}

func (r subscriberRepo) MarkUnsubscribed(ctx context.Context, id uuid.UUID, status domain.SubscriberStatus, at time.Time, reason map[string]any) error {
	return r.s.MarkSubscriberUnsubscribed(ctx, id, status, at, reason)
}

func (r subscriberRepo) ActiveRecipients(ctx context.Context) ([]domain.Recipient, error) {
	return r.s.ActiveRecipients(ctx)
}

func (r subscriberRepo) List(ctx context.Context, status domain.SubscriberStatus, limit, offset int) ([]domain.Subscriber, int, error) {
	return r.s.ListSubscribers(ctx, status, limit, offset)
}

type newsletterRepo struct {
	s *Store
}

func (r newsletterRepo) Create(ctx context.Context, n *domain.Newsletter) error {
	return r.s.CreateNewsletter(ctx, n)
}

func (r newsletterRepo) ByID(ctx context.Context, id uuid.UUID) (*domain.Newsletter, error) {
	return r.s.NewsletterByID(ctx, id)
}

func (r newsletterRepo) BySlug(ctx context.Context, slug string) (*domain.Newsletter, error) {
	return r.s.NewsletterBySlug(ctx, slug)
}

func (r newsletterRepo) List(ctx context.Context, status domain.NewsletterStatus, limit, offset int) ([]domain.Newsletter, int, error) {
	return r.s.ListNewsletters(ctx, status, limit, offset)
}

func (r newsletterRepo) Update(ctx context.Context, n *domain.Newsletter) error {
	return r.s.UpdateNewsletter(ctx, n)
}

func (r newsletterRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.DeleteNewsletter(ctx, id)
}

func (r newsletterRepo) Schedule(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.s.ScheduleNewsletter(ctx, id, at)
}

func (r newsletterRepo) Unschedule(ctx context.Context, id uuid.UUID) error {
	return r.s.UnscheduleNewsletter(ctx, id)
}

func (r newsletterRepo) ReplaceBlocks(ctx context.Context, newsletterID uuid.UUID, blocks []domain.ContentBlock) error {
	return r.s.ReplaceNewsletterBlocks(ctx, newsletterID, blocks)
}

func (r newsletterRepo) Blocks(ctx context.Context, newsletterID uuid.UUID) ([]domain.ContentBlock, error) {
	return r.s.NewsletterBlocks(ctx, newsletterID)
}

func (r newsletterRepo) Stats(ctx context.Context, newsletterID uuid.UUID) (*domain.Stats, error) {
	return r.s.NewsletterStats(ctx, newsletterID)
}
