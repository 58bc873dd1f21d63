package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/openvenue/mailroom/internal/domain"
	"github.com/openvenue/mailroom/internal/newsletter"
	"github.com/openvenue/mailroom/internal/subscriber"
)

func setupTestStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return New(db), mock, func() { db.Close() }
}

func TestCreateSubscriberDuplicate(t *testing.T) {
	st, mock, cleanup := setupTestStore(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO subscribers").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "subscribers_email_key"})

	token := "abc"
	now := time.Now()
	err := st.CreateSubscriber(context.Background(), &domain.Subscriber{
		ID:          uuid.New(),
		Email:       "jane@example.com",
		Status:      domain.SubscriberPending,
		OptInToken:  &token,
		OptInSentAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != subscriber.ErrDuplicateEmail {
		t.Errorf("got %v, want ErrDuplicateEmail", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSubscriberByIDMissing(t *testing.T) {
	st, mock, cleanup := setupTestStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM subscribers WHERE id").
		WillReturnError(sql.ErrNoRows)

	sub, err := st.SubscriberByID(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub != nil {
		t.Error("expected nil subscriber for missing row")
	}
}

func TestActivateSubscriberNotPending(t *testing.T) {
	st, mock, cleanup := setupTestStore(t)
	defer cleanup()

	// Status guard in the WHERE clause matches zero rows.
	mock.ExpectExec("UPDATE subscribers").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.ActivateSubscriber(context.Background(), uuid.New(), time.Now())
	if err != subscriber.ErrNotFound {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestCreateNewsletterDuplicateSlug(t *testing.T) {
	st, mock, cleanup := setupTestStore(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO newsletters").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "newsletters_slug_key"})

	err := st.CreateNewsletter(context.Background(), &domain.Newsletter{
		ID:     uuid.New(),
		Slug:   "spring-opening-2026-03",
		Status: domain.NewsletterDraft,
	})
	if err != newsletter.ErrDuplicateSlug {
		t.Errorf("got %v, want ErrDuplicateSlug", err)
	}
}

func TestMarkNewsletterSendingGuard(t *testing.T) {
	st, mock, cleanup := setupTestStore(t)
	defer cleanup()

	mock.ExpectExec("UPDATE newsletters SET status = 'sending'").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.MarkNewsletterSending(context.Background(), uuid.New())
	if err != newsletter.ErrInvalidStatus {
		t.Errorf("got %v, want ErrInvalidStatus", err)
	}
}

func TestFinalizeNewsletterSendTransaction(t *testing.T) {
	st, mock, cleanup := setupTestStore(t)
	defer cleanup()

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE newsletters").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO newsletter_stats").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := st.FinalizeNewsletterSend(context.Background(), id, time.Now(), 42); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestIncrementStatRejectsUnknownColumn(t *testing.T) {
	st, _, cleanup := setupTestStore(t)
	defer cleanup()

	if err := st.IncrementStat(context.Background(), uuid.New(), "open_count; DROP TABLE", 1); err == nil {
		t.Error("expected rejection of unknown column")
	}
}

func TestIncrementStatUpsert(t *testing.T) {
	st, mock, cleanup := setupTestStore(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO newsletter_stats \\(newsletter_id, open_count\\)").
		WithArgs(sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.IncrementStat(context.Background(), uuid.New(), "open_count", 1); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestNewsletterStatsZeroWhenMissing(t *testing.T) {
	st, mock, cleanup := setupTestStore(t)
	defer cleanup()

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM newsletter_stats").
		WillReturnError(sql.ErrNoRows)

	stats, err := st.NewsletterStats(context.Background(), id)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.NewsletterID != id || stats.OpenCount != 0 || stats.UniqueOpenCount != 0 {
		t.Errorf("expected zero-valued stats, got %+v", stats)
	}
}

func TestHasEngagementEvent(t *testing.T) {
	st, mock, cleanup := setupTestStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := st.HasEngagementEvent(context.Background(), uuid.New(), uuid.New(), domain.EngagementOpened)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !ok {
		t.Error("expected existing event to be reported")
	}
}

func TestDueNewslettersOrdering(t *testing.T) {
	st, mock, cleanup := setupTestStore(t)
	defer cleanup()

	now := time.Now()
	early := now.Add(-2 * time.Hour)
	late := now.Add(-time.Hour)
	cols := []string{"id", "slug", "subject", "preheader", "hero_title",
		"hero_subtitle", "hero_image_url", "hero_cta_label", "hero_cta_url",
		"intro_text", "status", "scheduled_at", "sent_at", "recipient_count",
		"metadata", "created_at", "updated_at"}
	rows := sqlmock.NewRows(cols).
		AddRow(uuid.New(), "a-2026-08", "A", "", "", "", "", "", "", "",
			"scheduled", early, nil, 0, []byte(`{}`), now, now).
		AddRow(uuid.New(), "b-2026-08", "B", "", "", "", "", "", "", "",
			"scheduled", late, nil, 0, []byte(`{}`), now, now)

	mock.ExpectQuery("FROM newsletters").
		WillReturnRows(rows)

	due, err := st.DueNewsletters(context.Background(), now)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("len = %d, want 2", len(due))
	}
	if !due[0].ScheduledAt.Before(*due[1].ScheduledAt) {
		t.Error("expected oldest schedule first")
	}
}
