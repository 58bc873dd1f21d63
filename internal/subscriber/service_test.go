package subscriber_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/openvenue/mailroom/internal/domain"
	"github.com/openvenue/mailroom/internal/subscriber"
)

// memRepo is an in-memory subscriber repository for unit testing.
type memRepo struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*domain.Subscriber
}

func newMemRepo() *memRepo {
	return &memRepo{subs: make(map[uuid.UUID]*domain.Subscriber)}
}

func (m *memRepo) Create(_ context.Context, sub *domain.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.Email == sub.Email {
			return subscriber.ErrDuplicateEmail
		}
	}
	cp := *sub
	m.subs[cp.ID] = &cp
	return nil
}

func (m *memRepo) ByID(_ context.Context, id uuid.UUID) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) ByEmail(_ context.Context, email string) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.Email == email {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRepo) ByToken(_ context.Context, token string) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.OptInToken != nil && *s.OptInToken == token {
			cp := *s
			return &cp, nil
		}
		if redeemed, ok := s.Metadata["confirmed_token"].(string); ok && redeemed == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRepo) Activate(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return subscriber.ErrNotFound
	}
	s.Status = domain.SubscriberActive
	if s.ConfirmedAt == nil {
		s.ConfirmedAt = &at
	}
	if s.OptInToken != nil {
		if s.Metadata == nil {
			s.Metadata = map[string]any{}
		}
		s.Metadata["confirmed_token"] = *s.OptInToken
		s.OptInToken = nil
	}
	return nil
}

func (m *memRepo) MarkUnsubscribed(_ context.Context, id uuid.UUID, status domain.SubscriberStatus, at time.Time, reason map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return subscriber.ErrNotFound
	}
	s.Status = status
	s.UnsubscribedAt = &at
	if s.Metadata == nil {
		s.Metadata = map[string]any{}
	}
	for k, v := range reason {
		s.Metadata[k] = v
	}
	return nil
}

func (m *memRepo) ActiveRecipients(_ context.Context) ([]domain.Recipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Recipient
	for _, s := range m.subs {
		if s.Status == domain.SubscriberActive {
			out = append(out, domain.Recipient{ID: s.ID, Email: s.Email, FirstName: s.FirstName})
		}
	}
	return out, nil
}

func (m *memRepo) List(_ context.Context, status domain.SubscriberStatus, limit, offset int) ([]domain.Subscriber, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Subscriber
	for _, s := range m.subs {
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, *s)
	}
	return out, len(out), nil
}

func TestCreateNormalizesAndValidates(t *testing.T) {
	svc := subscriber.NewService(newMemRepo())
	ctx := context.Background()

	sub, err := svc.Create(ctx, "  Jane.Doe@Example.COM ", "Jane", []string{"concerts"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub.Email != "jane.doe@example.com" {
		t.Errorf("email = %q, want normalized lowercase", sub.Email)
	}
	if sub.Status != domain.SubscriberPending {
		t.Errorf("status = %q, want pending", sub.Status)
	}
	if sub.OptInToken == nil || len(*sub.OptInToken) != 64 {
		t.Error("expected 64-char hex opt-in token")
	}

	if _, err := svc.Create(ctx, "not-an-email", "", nil); err != subscriber.ErrInvalidEmail {
		t.Errorf("invalid email: got %v, want ErrInvalidEmail", err)
	}
}

func TestCreateRejectsDuplicateAnyStatus(t *testing.T) {
	repo := newMemRepo()
	svc := subscriber.NewService(repo)
	ctx := context.Background()

	sub, err := svc.Create(ctx, "a@x.com", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, "A@X.COM", "", nil); err != subscriber.ErrDuplicateEmail {
		t.Errorf("duplicate pending: got %v, want ErrDuplicateEmail", err)
	}

	// Even an unsubscribed record blocks re-signup.
	if _, err := svc.Unsubscribe(ctx, "a@x.com"); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if _, err := svc.Create(ctx, "a@x.com", "", nil); err != subscriber.ErrDuplicateEmail {
		t.Errorf("duplicate after unsubscribe: got %v, want ErrDuplicateEmail", err)
	}
	_ = sub
}

func TestConfirmLifecycle(t *testing.T) {
	repo := newMemRepo()
	svc := subscriber.NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, "b@x.com", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	token := *created.OptInToken

	confirmed, err := svc.Confirm(ctx, token)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != domain.SubscriberActive {
		t.Errorf("status = %q, want active", confirmed.Status)
	}
	if confirmed.ConfirmedAt == nil {
		t.Error("confirmedAt not stamped")
	}

	// Second click on the same link is a no-op success.
	again, err := svc.Confirm(ctx, token)
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if again.Status != domain.SubscriberActive {
		t.Errorf("second confirm status = %q, want active", again.Status)
	}

	// confirmedAt is set exactly once.
	stored, _ := repo.ByEmail(ctx, "b@x.com")
	first := *stored.ConfirmedAt
	_ = repo.Activate(ctx, stored.ID, first.Add(time.Hour))
	stored, _ = repo.ByEmail(ctx, "b@x.com")
	if !stored.ConfirmedAt.Equal(first) {
		t.Error("confirmedAt changed on repeat activation")
	}

	if _, err := svc.Confirm(ctx, "bogus"); err != subscriber.ErrInvalidToken {
		t.Errorf("bogus token: got %v, want ErrInvalidToken", err)
	}
}

func TestConfirmExpiredToken(t *testing.T) {
	repo := newMemRepo()
	svc := subscriber.NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, "c@x.com", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Age the opt-in timestamp past the 7-day window.
	old := time.Now().Add(-8 * 24 * time.Hour)
	repo.mu.Lock()
	repo.subs[created.ID].OptInSentAt = &old
	repo.mu.Unlock()

	if _, err := svc.Confirm(ctx, *created.OptInToken); err != subscriber.ErrTokenExpired {
		t.Errorf("expired token: got %v, want ErrTokenExpired", err)
	}
}

func TestUnsubscribeByEmailAndID(t *testing.T) {
	repo := newMemRepo()
	svc := subscriber.NewService(repo)
	ctx := context.Background()

	created, _ := svc.Create(ctx, "d@x.com", "", nil)

	sub, err := svc.Unsubscribe(ctx, "d@x.com")
	if err != nil {
		t.Fatalf("unsubscribe by email: %v", err)
	}
	if sub.Status != domain.SubscriberUnsubscribed || sub.UnsubscribedAt == nil {
		t.Errorf("got status %q, want unsubscribed with timestamp", sub.Status)
	}

	// Repeat is a no-op success.
	if _, err := svc.Unsubscribe(ctx, created.ID.String()); err != nil {
		t.Errorf("repeat unsubscribe: %v", err)
	}

	if _, err := svc.Unsubscribe(ctx, "missing@x.com"); err != subscriber.ErrNotFound {
		t.Errorf("missing: got %v, want ErrNotFound", err)
	}
}

func TestActiveProjection(t *testing.T) {
	repo := newMemRepo()
	svc := subscriber.NewService(repo)
	ctx := context.Background()

	a, _ := svc.Create(ctx, "e@x.com", "Eve", nil)
	svc.Create(ctx, "f@x.com", "", nil) // stays pending

	if _, err := svc.Confirm(ctx, *a.OptInToken); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	active, err := svc.Active(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("got %d active, want 1", len(active))
	}
	if active[0].Email != "e@x.com" || active[0].FirstName != "Eve" {
		t.Errorf("unexpected projection: %+v", active[0])
	}
}
