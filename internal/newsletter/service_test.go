package newsletter_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/openvenue/mailroom/internal/domain"
	"github.com/openvenue/mailroom/internal/newsletter"
)

// memRepo is an in-memory newsletter repository for unit testing.
type memRepo struct {
	mu     sync.Mutex
	items  map[uuid.UUID]*domain.Newsletter
	blocks map[uuid.UUID][]domain.ContentBlock
}

func newMemRepo() *memRepo {
	return &memRepo{
		items:  make(map[uuid.UUID]*domain.Newsletter),
		blocks: make(map[uuid.UUID][]domain.ContentBlock),
	}
}

func (m *memRepo) Create(_ context.Context, n *domain.Newsletter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.items {
		if x.Slug == n.Slug {
			return newsletter.ErrDuplicateSlug
		}
	}
	cp := *n
	m.items[cp.ID] = &cp
	return nil
}

func (m *memRepo) ByID(_ context.Context, id uuid.UUID) (*domain.Newsletter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (m *memRepo) BySlug(_ context.Context, slug string) (*domain.Newsletter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.Slug == slug {
			cp := *n
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRepo) List(_ context.Context, status domain.NewsletterStatus, limit, offset int) ([]domain.Newsletter, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Newsletter
	for _, n := range m.items {
		if status != "" && n.Status != status {
			continue
		}
		out = append(out, *n)
	}
	return out, len(out), nil
}

func (m *memRepo) Update(_ context.Context, n *domain.Newsletter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[n.ID]
	if !ok {
		return newsletter.ErrNotFound
	}
	cur.Subject = n.Subject
	cur.Preheader = n.Preheader
	cur.Hero = n.Hero
	cur.IntroText = n.IntroText
	cur.UpdatedAt = n.UpdatedAt
	return nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	delete(m.blocks, id)
	return nil
}

func (m *memRepo) Schedule(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[id]
	if !ok {
		return newsletter.ErrNotFound
	}
	n.Status = domain.NewsletterScheduled
	n.ScheduledAt = &at
	return nil
}

func (m *memRepo) Unschedule(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[id]
	if !ok {
		return newsletter.ErrNotFound
	}
	n.Status = domain.NewsletterDraft
	n.ScheduledAt = nil
	return nil
}

func (m *memRepo) ReplaceBlocks(_ context.Context, id uuid.UUID, blocks []domain.ContentBlock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[id] = append([]domain.ContentBlock(nil), blocks...)
	return nil
}

func (m *memRepo) Blocks(_ context.Context, id uuid.UUID) ([]domain.ContentBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ContentBlock(nil), m.blocks[id]...), nil
}

func (m *memRepo) Stats(_ context.Context, id uuid.UUID) (*domain.Stats, error) {
	return &domain.Stats{NewsletterID: id}, nil
}

// markSent flips a newsletter to sent the way the sender's finalize would.
func (m *memRepo) markSent(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	n := m.items[id]
	n.Status = domain.NewsletterSent
	n.SentAt = &now
}

func TestCreateDerivesSlug(t *testing.T) {
	svc := newsletter.NewService(newMemRepo())
	ctx := context.Background()

	n, err := svc.Create(ctx, newsletter.CreateInput{Subject: "Spring Season Opening!"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	want := newsletter.Slugify("Spring Season Opening!", time.Now())
	if n.Slug != want {
		t.Errorf("slug = %q, want %q", n.Slug, want)
	}
	if n.Status != domain.NewsletterDraft {
		t.Errorf("status = %q, want draft", n.Status)
	}

	// Same subject in the same period: collision resolved with a suffix.
	n2, err := svc.Create(ctx, newsletter.CreateInput{Subject: "Spring Season Opening!"})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if n2.Slug == n.Slug {
		t.Error("expected distinct slug after collision")
	}
}

func TestUpdateRejectsSent(t *testing.T) {
	repo := newMemRepo()
	svc := newsletter.NewService(repo)
	ctx := context.Background()

	n, _ := svc.Create(ctx, newsletter.CreateInput{Subject: "April program"})
	repo.markSent(n.ID)

	subject := "changed"
	if _, err := svc.Update(ctx, n.ID, newsletter.UpdateInput{Subject: &subject}); err != newsletter.ErrCannotEditSent {
		t.Errorf("got %v, want ErrCannotEditSent", err)
	}
	if _, err := svc.SetBlocks(ctx, n.ID, nil); err != newsletter.ErrCannotEditSent {
		t.Errorf("set blocks: got %v, want ErrCannotEditSent", err)
	}
}

func TestDeleteOnlyDraft(t *testing.T) {
	repo := newMemRepo()
	svc := newsletter.NewService(repo)
	ctx := context.Background()

	n, _ := svc.Create(ctx, newsletter.CreateInput{Subject: "May program"})
	if _, err := svc.Schedule(ctx, n.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := svc.Delete(ctx, n.ID); err != newsletter.ErrCannotDeleteNonDraft {
		t.Errorf("delete scheduled: got %v, want ErrCannotDeleteNonDraft", err)
	}

	if _, err := svc.Unschedule(ctx, n.ID); err != nil {
		t.Fatalf("unschedule: %v", err)
	}
	if err := svc.Delete(ctx, n.ID); err != nil {
		t.Errorf("delete draft: %v", err)
	}
}

func TestScheduleValidation(t *testing.T) {
	repo := newMemRepo()
	svc := newsletter.NewService(repo)
	ctx := context.Background()

	n, _ := svc.Create(ctx, newsletter.CreateInput{Subject: "June program"})

	if _, err := svc.Schedule(ctx, n.ID, time.Now().Add(-time.Minute)); err != newsletter.ErrScheduleInPast {
		t.Errorf("past time: got %v, want ErrScheduleInPast", err)
	}

	if _, err := svc.Schedule(ctx, n.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	// Scheduling twice is an invalid transition.
	if _, err := svc.Schedule(ctx, n.ID, time.Now().Add(2*time.Hour)); err != newsletter.ErrInvalidStatus {
		t.Errorf("double schedule: got %v, want ErrInvalidStatus", err)
	}

	repo.markSent(n.ID)
	if _, err := svc.Unschedule(ctx, n.ID); err != newsletter.ErrInvalidStatus {
		t.Errorf("unschedule sent: got %v, want ErrInvalidStatus", err)
	}
}

func TestSetBlocksRenumbersDense(t *testing.T) {
	repo := newMemRepo()
	svc := newsletter.NewService(repo)
	ctx := context.Background()

	n, _ := svc.Create(ctx, newsletter.CreateInput{Subject: "July program"})
	eventID := uuid.New()

	blocks, err := svc.SetBlocks(ctx, n.ID, []newsletter.BlockInput{
		{ContentType: domain.ContentCustomSection, SectionHeading: "Welcome"},
		{ContentType: domain.ContentEvent, ContentID: &eventID},
		{ContentType: domain.ContentArticle, ContentID: &eventID},
	})
	if err != nil {
		t.Fatalf("set blocks: %v", err)
	}
	for i, b := range blocks {
		if b.OrderPosition != i {
			t.Errorf("block %d position = %d", i, b.OrderPosition)
		}
	}

	if _, err := svc.SetBlocks(ctx, n.ID, []newsletter.BlockInput{{ContentType: "banner"}}); err == nil {
		t.Error("unknown content type should be rejected")
	}
}

func TestSlugify(t *testing.T) {
	period := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		subject string
		want    string
	}{
		{"Spring Season Opening!", "spring-season-opening-2026-03"},
		{"  Jazz & Blues — Nights  ", "jazz-blues-nights-2026-03"},
		{"***", "newsletter-2026-03"},
	}
	for _, tt := range tests {
		if got := newsletter.Slugify(tt.subject, period); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.subject, got, tt.want)
		}
	}
}
