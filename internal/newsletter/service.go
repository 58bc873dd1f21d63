package newsletter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openvenue/mailroom/internal/domain"
	"github.com/openvenue/mailroom/internal/pkg/logger"
)

// Service implements newsletter lifecycle and content management.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a newsletter service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// CreateInput holds the fields for creating a newsletter draft.
type CreateInput struct {
	Subject   string      `json:"subject"`
	Preheader string      `json:"preheader"`
	Hero      domain.Hero `json:"hero"`
	IntroText string      `json:"intro_text"`
}

// Create persists a new draft with a derived slug. A slug collision is
// retried once with a random suffix.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Newsletter, error) {
	if input.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}

	now := s.now()
	n := &domain.Newsletter{
		ID:        uuid.New(),
		Slug:      Slugify(input.Subject, now),
		Subject:   input.Subject,
		Preheader: input.Preheader,
		Hero:      input.Hero,
		IntroText: input.IntroText,
		Status:    domain.NewsletterDraft,
		Metadata:  map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.repo.Create(ctx, n)
	if errors.Is(err, ErrDuplicateSlug) {
		n.Slug = n.Slug + "-" + slugSuffix()
		err = s.repo.Create(ctx, n)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("newsletter created", "newsletter_id", n.ID.String(), "slug", n.Slug)
	return n, nil
}

// Get returns a newsletter by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Newsletter, error) {
	n, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNotFound
	}
	return n, nil
}

// GetBySlug returns a newsletter by its public archive slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*domain.Newsletter, error) {
	n, err := s.repo.BySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNotFound
	}
	return n, nil
}

// List returns newsletters filtered by status, newest first.
func (s *Service) List(ctx context.Context, status domain.NewsletterStatus, limit, offset int) ([]domain.Newsletter, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, status, limit, offset)
}

// Archive returns sent newsletters for the public archive pages.
func (s *Service) Archive(ctx context.Context, limit, offset int) ([]domain.Newsletter, int, error) {
	return s.List(ctx, domain.NewsletterSent, limit, offset)
}

// UpdateInput holds the mutable content fields. Nil pointers are not applied.
type UpdateInput struct {
	Subject   *string      `json:"subject"`
	Preheader *string      `json:"preheader"`
	Hero      *domain.Hero `json:"hero"`
	IntroText *string      `json:"intro_text"`
}

// Update edits newsletter content. Sent newsletters are immutable.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*domain.Newsletter, error) {
	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status == domain.NewsletterSent {
		return nil, ErrCannotEditSent
	}

	if input.Subject != nil {
		if *input.Subject == "" {
			return nil, fmt.Errorf("subject cannot be empty")
		}
		n.Subject = *input.Subject
	}
	if input.Preheader != nil {
		n.Preheader = *input.Preheader
	}
	if input.Hero != nil {
		n.Hero = *input.Hero
	}
	if input.IntroText != nil {
		n.IntroText = *input.IntroText
	}
	n.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Delete removes a newsletter. Permitted only while draft.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.Status != domain.NewsletterDraft {
		return ErrCannotDeleteNonDraft
	}
	return s.repo.Delete(ctx, id)
}

// Schedule queues a draft for sending at the given time, which must lie
// strictly in the future at the moment scheduling is requested.
func (s *Service) Schedule(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Newsletter, error) {
	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status != domain.NewsletterDraft {
		return nil, ErrInvalidStatus
	}
	if !at.After(s.now()) {
		return nil, ErrScheduleInPast
	}

	if err := s.repo.Schedule(ctx, id, at); err != nil {
		return nil, err
	}
	n.Status = domain.NewsletterScheduled
	n.ScheduledAt = &at
	logger.Info("newsletter scheduled", "newsletter_id", id.String(), "scheduled_at", at.Format(time.RFC3339))
	return n, nil
}

// Unschedule moves a scheduled newsletter back to draft.
func (s *Service) Unschedule(ctx context.Context, id uuid.UUID) (*domain.Newsletter, error) {
	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status != domain.NewsletterScheduled {
		return nil, ErrInvalidStatus
	}

	if err := s.repo.Unschedule(ctx, id); err != nil {
		return nil, err
	}
	n.Status = domain.NewsletterDraft
	n.ScheduledAt = nil
	return n, nil
}

// BlockInput describes one content block when setting a newsletter's blocks.
type BlockInput struct {
	ContentType        domain.ContentType `json:"content_type"`
	ContentID          *uuid.UUID         `json:"content_id"`
	SectionHeading     string             `json:"section_heading"`
	SectionDescription string             `json:"section_description"`
}

// SetBlocks replaces the newsletter's ordered block set. Positions are
// renumbered dense and zero-based in the given order.
func (s *Service) SetBlocks(ctx context.Context, id uuid.UUID, inputs []BlockInput) ([]domain.ContentBlock, error) {
	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status == domain.NewsletterSent {
		return nil, ErrCannotEditSent
	}

	blocks := make([]domain.ContentBlock, 0, len(inputs))
	for i, in := range inputs {
		switch in.ContentType {
		case domain.ContentEvent, domain.ContentArticle, domain.ContentShow, domain.ContentCustomSection:
		default:
			return nil, fmt.Errorf("unknown content type %q", in.ContentType)
		}
		blocks = append(blocks, domain.ContentBlock{
			ID:                 uuid.New(),
			NewsletterID:       id,
			ContentType:        in.ContentType,
			ContentID:          in.ContentID,
			SectionHeading:     in.SectionHeading,
			SectionDescription: in.SectionDescription,
			OrderPosition:      i,
		})
	}

	if err := s.repo.ReplaceBlocks(ctx, id, blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// Blocks returns the newsletter's blocks in render order.
func (s *Service) Blocks(ctx context.Context, id uuid.UUID) ([]domain.ContentBlock, error) {
	return s.repo.Blocks(ctx, id)
}

// Stats returns the engagement aggregate for a newsletter.
func (s *Service) Stats(ctx context.Context, id uuid.UUID) (*domain.Stats, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Stats(ctx, id)
}
