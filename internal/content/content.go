// Package content manages the venue's events and articles and resolves
// newsletter block references to their source entities.
package content

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/openvenue/mailroom/internal/domain"
)

// ErrNotFound is returned when a referenced event or article does not exist.
var ErrNotFound = errors.New("content not found")

// Repository defines the data access contract for venue content.
// *store.Store satisfies it directly.
type Repository interface {
	CreateVenueEvent(ctx context.Context, e *domain.VenueEvent) error
	VenueEventByID(ctx context.Context, id uuid.UUID) (*domain.VenueEvent, error)
	ListVenueEvents(ctx context.Context, publishedOnly bool) ([]domain.VenueEvent, error)
	UpdateVenueEvent(ctx context.Context, e *domain.VenueEvent) error
	DeleteVenueEvent(ctx context.Context, id uuid.UUID) error

	CreateArticle(ctx context.Context, a *domain.Article) error
	ArticleByID(ctx context.Context, id uuid.UUID) (*domain.Article, error)
	ListArticles(ctx context.Context, publishedOnly bool) ([]domain.Article, error)
	UpdateArticle(ctx context.Context, a *domain.Article) error
	DeleteArticle(ctx context.Context, id uuid.UUID) error
}

// Service provides venue content operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a content service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// ResolvedBlock is a newsletter block joined with its source entity, ready
// for template rendering. Exactly one of Event/Article is set for reference
// blocks; both are nil for custom sections.
type ResolvedBlock struct {
	Type        domain.ContentType
	Heading     string
	Description string
	Event       *domain.VenueEvent
	Article     *domain.Article
}

// ResolveBlocks joins content blocks with their source entities in render
// order. Blocks whose source entity has been deleted are skipped rather than
// failing the render.
func (s *Service) ResolveBlocks(ctx context.Context, blocks []domain.ContentBlock) ([]ResolvedBlock, error) {
	out := make([]ResolvedBlock, 0, len(blocks))
	for _, b := range blocks {
		rb := ResolvedBlock{
			Type:        b.ContentType,
			Heading:     b.SectionHeading,
			Description: b.SectionDescription,
		}
		switch b.ContentType {
		case domain.ContentCustomSection:
		case domain.ContentEvent, domain.ContentShow:
			if b.ContentID == nil {
				continue
			}
			e, err := s.repo.VenueEventByID(ctx, *b.ContentID)
			if err != nil {
				return nil, err
			}
			if e == nil {
				continue
			}
			rb.Event = e
		case domain.ContentArticle:
			if b.ContentID == nil {
				continue
			}
			a, err := s.repo.ArticleByID(ctx, *b.ContentID)
			if err != nil {
				return nil, err
			}
			if a == nil {
				continue
			}
			rb.Article = a
		default:
			continue
		}
		out = append(out, rb)
	}
	return out, nil
}

// EventInput holds the fields for creating or updating a venue event.
type EventInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	TicketURL   string     `json:"ticket_url"`
	Published   bool       `json:"published"`
}

// CreateEvent adds a venue event.
func (s *Service) CreateEvent(ctx context.Context, input EventInput) (*domain.VenueEvent, error) {
	now := s.now()
	e := &domain.VenueEvent{
		ID:          uuid.New(),
		Title:       input.Title,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		StartsAt:    input.StartsAt,
		EndsAt:      input.EndsAt,
		TicketURL:   input.TicketURL,
		Published:   input.Published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateVenueEvent(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Event returns one venue event.
func (s *Service) Event(ctx context.Context, id uuid.UUID) (*domain.VenueEvent, error) {
	e, err := s.repo.VenueEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}
	return e, nil
}

// Events lists venue events; publishedOnly restricts to upcoming published
// ones for the public site.
func (s *Service) Events(ctx context.Context, publishedOnly bool) ([]domain.VenueEvent, error) {
	return s.repo.ListVenueEvents(ctx, publishedOnly)
}

// UpdateEvent replaces a venue event's fields.
func (s *Service) UpdateEvent(ctx context.Context, id uuid.UUID, input EventInput) (*domain.VenueEvent, error) {
	e, err := s.Event(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Title = input.Title
	e.Description = input.Description
	e.ImageURL = input.ImageURL
	e.StartsAt = input.StartsAt
	e.EndsAt = input.EndsAt
	e.TicketURL = input.TicketURL
	e.Published = input.Published
	e.UpdatedAt = s.now()
	if err := s.repo.UpdateVenueEvent(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEvent removes a venue event.
func (s *Service) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteVenueEvent(ctx, id)
}

// ArticleInput holds the fields for creating or updating an article.
type ArticleInput struct {
	Title     string `json:"title"`
	Teaser    string `json:"teaser"`
	Body      string `json:"body"`
	ImageURL  string `json:"image_url"`
	Published bool   `json:"published"`
}

// CreateArticle adds an article. Publishing stamps published_at once.
func (s *Service) CreateArticle(ctx context.Context, input ArticleInput) (*domain.Article, error) {
	now := s.now()
	a := &domain.Article{
		ID:        uuid.New(),
		Title:     input.Title,
		Teaser:    input.Teaser,
		Body:      input.Body,
		ImageURL:  input.ImageURL,
		Published: input.Published,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.Published {
		a.PublishedAt = &now
	}
	if err := s.repo.CreateArticle(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Article returns one article.
func (s *Service) Article(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	a, err := s.repo.ArticleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	return a, nil
}

// Articles lists articles, optionally published only.
func (s *Service) Articles(ctx context.Context, publishedOnly bool) ([]domain.Article, error) {
	return s.repo.ListArticles(ctx, publishedOnly)
}

// UpdateArticle replaces an article's fields.
func (s *Service) UpdateArticle(ctx context.Context, id uuid.UUID, input ArticleInput) (*domain.Article, error) {
	a, err := s.Article(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Published && !a.Published {
		now := s.now()
		a.PublishedAt = &now
	}
	a.Title = input.Title
	a.Teaser = input.Teaser
	a.Body = input.Body
	a.ImageURL = input.ImageURL
	a.Published = input.Published
	a.UpdatedAt = s.now()
	if err := s.repo.UpdateArticle(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteArticle removes an article.
func (s *Service) DeleteArticle(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteArticle(ctx, id)
}
