package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/openvenue/mailroom/internal/domain"
)

// memStore tracks stats, the engagement log and subscriber state in memory.
type memStore struct {
	newsletters map[uuid.UUID]bool
	stats       map[uuid.UUID]map[string]int
	events      []domain.EngagementEvent
	subscribers map[uuid.UUID]*domain.Subscriber
}

func newMemStore() *memStore {
	return &memStore{
		newsletters: make(map[uuid.UUID]bool),
		stats:       make(map[uuid.UUID]map[string]int),
		subscribers: make(map[uuid.UUID]*domain.Subscriber),
	}
}

func (m *memStore) NewsletterExists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.newsletters[id], nil
}

func (m *memStore) IncrementStat(_ context.Context, id uuid.UUID, column string, delta int) error {
	if m.stats[id] == nil {
		m.stats[id] = make(map[string]int)
	}
	m.stats[id][column] += delta
	return nil
}

func (m *memStore) HasEngagementEvent(_ context.Context, newsletterID, subscriberID uuid.UUID, eventType domain.EngagementType) (bool, error) {
	for _, ev := range m.events {
		if ev.NewsletterID == newsletterID && ev.SubscriberID != nil &&
			*ev.SubscriberID == subscriberID && ev.EventType == eventType {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) InsertEngagementEvent(_ context.Context, ev *domain.EngagementEvent) error {
	m.events = append(m.events, *ev)
	return nil
}

func (m *memStore) TouchSubscriberEngagement(_ context.Context, id uuid.UUID, eventType domain.EngagementType, at time.Time) error {
	sub, ok := m.subscribers[id]
	if !ok {
		return nil
	}
	if eventType == domain.EngagementClicked {
		sub.LastClickAt = &at
	} else {
		sub.LastOpenAt = &at
	}
	return nil
}

func (m *memStore) MarkSubscriberUnsubscribed(_ context.Context, id uuid.UUID, status domain.SubscriberStatus, at time.Time, reason map[string]any) error {
	sub, ok := m.subscribers[id]
	if !ok {
		return nil
	}
	sub.Status = status
	sub.UnsubscribedAt = &at
	for k, v := range reason {
		if sub.Metadata == nil {
			sub.Metadata = map[string]any{}
		}
		sub.Metadata[k] = v
	}
	return nil
}

func (m *memStore) MergeSubscriberMetadata(_ context.Context, id uuid.UUID, meta map[string]any) error {
	sub, ok := m.subscribers[id]
	if !ok {
		return nil
	}
	if sub.Metadata == nil {
		sub.Metadata = map[string]any{}
	}
	for k, v := range meta {
		sub.Metadata[k] = v
	}
	return nil
}

func setupIngestor() (*Ingestor, *memStore, uuid.UUID, uuid.UUID) {
	st := newMemStore()
	newsletterID := uuid.New()
	subscriberID := uuid.New()
	st.newsletters[newsletterID] = true
	st.subscribers[subscriberID] = &domain.Subscriber{
		ID:     subscriberID,
		Email:  "jane@example.com",
		Status: domain.SubscriberActive,
	}
	return NewIngestor(st), st, newsletterID, subscriberID
}

func event(eventType string, newsletterID, subscriberID uuid.UUID) Event {
	return Event{
		Type:      eventType,
		CreatedAt: time.Now(),
		Data: EventData{
			EmailID: "msg-1",
			To:      []string{"jane@example.com"},
			Tags: []Tag{
				{Name: "newsletter_id", Value: newsletterID.String()},
				{Name: "subscriber_id", Value: subscriberID.String()},
			},
		},
	}
}

func TestUniqueOpenCounting(t *testing.T) {
	in, st, nid, sid := setupIngestor()
	ctx := context.Background()

	// N opens from the same subscriber: raw counts N, unique counts 1.
	for i := 0; i < 5; i++ {
		if err := in.Handle(ctx, event("opened", nid, sid)); err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
	}

	if got := st.stats[nid]["open_count"]; got != 5 {
		t.Errorf("open_count = %d, want 5", got)
	}
	if got := st.stats[nid]["unique_open_count"]; got != 1 {
		t.Errorf("unique_open_count = %d, want 1", got)
	}
	if len(st.events) != 5 {
		t.Errorf("event log rows = %d, want one per raw event", len(st.events))
	}
	if st.subscribers[sid].LastOpenAt == nil {
		t.Error("last_open_at not stamped")
	}
}

func TestUniqueClickPerSubscriber(t *testing.T) {
	in, st, nid, s1 := setupIngestor()
	s2 := uuid.New()
	st.subscribers[s2] = &domain.Subscriber{ID: s2, Status: domain.SubscriberActive}
	ctx := context.Background()

	click := func(sid uuid.UUID) Event {
		ev := event("clicked", nid, sid)
		ev.Data.Click = &ClickData{Link: "https://venue.example/tickets"}
		return ev
	}

	for _, sid := range []uuid.UUID{s1, s1, s2} {
		if err := in.Handle(ctx, click(sid)); err != nil {
			t.Fatalf("click: %v", err)
		}
	}

	if got := st.stats[nid]["click_count"]; got != 3 {
		t.Errorf("click_count = %d, want 3", got)
	}
	// Two distinct subscribers clicked.
	if got := st.stats[nid]["unique_click_count"]; got != 2 {
		t.Errorf("unique_click_count = %d, want 2", got)
	}
	if st.events[0].EventData["link"] != "https://venue.example/tickets" {
		t.Errorf("click link not stored: %+v", st.events[0].EventData)
	}
}

func TestEngagementScenario(t *testing.T) {
	// One subscriber opens twice and clicks once.
	in, st, nid, sid := setupIngestor()
	ctx := context.Background()

	for _, typ := range []string{"opened", "opened", "clicked"} {
		if err := in.Handle(ctx, event(typ, nid, sid)); err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
	}

	want := map[string]int{
		"open_count":         2,
		"unique_open_count":  1,
		"click_count":        1,
		"unique_click_count": 1,
	}
	for col, n := range want {
		if got := st.stats[nid][col]; got != n {
			t.Errorf("%s = %d, want %d", col, got, n)
		}
	}
	if len(st.events) != 3 {
		t.Errorf("event rows = %d, want 3", len(st.events))
	}
}

func TestDelivered(t *testing.T) {
	in, st, nid, sid := setupIngestor()

	if err := in.Handle(context.Background(), event("delivered", nid, sid)); err != nil {
		t.Fatalf("delivered: %v", err)
	}
	if got := st.stats[nid]["delivered_count"]; got != 1 {
		t.Errorf("delivered_count = %d, want 1", got)
	}
	if len(st.events) != 0 {
		t.Error("delivered must not create engagement log rows")
	}
}

func TestHardBounceUnsubscribes(t *testing.T) {
	// Classification casing varies by provider.
	for _, bounceType := range []string{"hard", "Hard", "HARD"} {
		t.Run(bounceType, func(t *testing.T) {
			in, st, nid, sid := setupIngestor()

			ev := event("bounced", nid, sid)
			ev.Data.Bounce = &BounceData{Type: bounceType, Reason: "550 user unknown"}
			if err := in.Handle(context.Background(), ev); err != nil {
				t.Fatalf("bounce: %v", err)
			}

			sub := st.subscribers[sid]
			if sub.Status != domain.SubscriberBounced {
				t.Errorf("status = %q, want bounced", sub.Status)
			}
			if sub.UnsubscribedAt == nil {
				t.Error("unsubscribed_at not stamped")
			}
			if sub.Metadata["bounce_reason"] != "550 user unknown" {
				t.Errorf("provenance missing: %+v", sub.Metadata)
			}
		})
	}
}

func TestSoftBounceKeepsSubscriberActive(t *testing.T) {
	in, st, nid, sid := setupIngestor()

	ev := event("bounced", nid, sid)
	ev.Data.Bounce = &BounceData{Type: "soft", Reason: "mailbox full"}
	if err := in.Handle(context.Background(), ev); err != nil {
		t.Fatalf("bounce: %v", err)
	}

	sub := st.subscribers[sid]
	if sub.Status != domain.SubscriberActive {
		t.Errorf("soft bounce changed status to %q", sub.Status)
	}
	if sub.Metadata["bounce_reason"] != "mailbox full" {
		t.Errorf("soft bounce note missing: %+v", sub.Metadata)
	}
}

func TestComplaintUnsubscribes(t *testing.T) {
	in, st, nid, sid := setupIngestor()

	if err := in.Handle(context.Background(), event("complained", nid, sid)); err != nil {
		t.Fatalf("complaint: %v", err)
	}
	sub := st.subscribers[sid]
	if sub.Status != domain.SubscriberUnsubscribed {
		t.Errorf("status = %q, want unsubscribed", sub.Status)
	}
	if sub.Metadata["complaint"] != true {
		t.Errorf("complaint provenance missing: %+v", sub.Metadata)
	}
}

func TestUnknownNewsletterSkipsStatsSilently(t *testing.T) {
	in, st, _, sid := setupIngestor()
	unknown := uuid.New()

	if err := in.Handle(context.Background(), event("opened", unknown, sid)); err != nil {
		t.Fatalf("unknown newsletter must not error, got %v", err)
	}
	if len(st.stats) != 0 || len(st.events) != 0 {
		t.Error("unknown newsletter must skip bookkeeping")
	}
	// Subscriber engagement still moves.
	if st.subscribers[sid].LastOpenAt == nil {
		t.Error("last_open_at should be stamped even without a known newsletter")
	}
}

func TestUnrecognizedEventTypeIgnored(t *testing.T) {
	in, st, nid, sid := setupIngestor()

	if err := in.Handle(context.Background(), event("link_unsubscribe", nid, sid)); err != nil {
		t.Fatalf("unrecognized type must not error, got %v", err)
	}
	if len(st.stats) != 0 {
		t.Error("unrecognized type must not touch stats")
	}
}

func TestMissingTagsAreNormal(t *testing.T) {
	in, _, _, _ := setupIngestor()

	ev := Event{Type: "opened", Data: EventData{To: []string{"x@example.com"}}}
	if err := in.Handle(context.Background(), ev); err != nil {
		t.Fatalf("tagless event must not error, got %v", err)
	}
}

func TestSignatureRoundTrip(t *testing.T) {
	body := []byte(`{"type":"opened"}`)
	sig := Sign("secret-1", body)

	if !VerifySignature("secret-1", body, sig) {
		t.Error("valid signature rejected")
	}
	if VerifySignature("secret-1", body, "deadbeef") {
		t.Error("bad signature accepted")
	}
	if VerifySignature("secret-1", []byte(`{"type":"clicked"}`), sig) {
		t.Error("signature over different body accepted")
	}
	// No secret configured: verification is skipped.
	if !VerifySignature("", body, "") {
		t.Error("empty secret must pass verification")
	}
}
