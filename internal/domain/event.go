package domain

import (
	"time"

	"github.com/google/uuid"
)

// EngagementType enumerates recorded engagement event types.
type EngagementType string

const (
	EngagementOpened  EngagementType = "OPENED"
	EngagementClicked EngagementType = "CLICKED"
)

// EngagementEvent is one row of the append-only engagement log. One row is
// created per raw provider event; the log's existence check is what makes the
// unique counters idempotent.
type EngagementEvent struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	NewsletterID uuid.UUID      `json:"newsletter_id" db:"newsletter_id"`
	SubscriberID *uuid.UUID     `json:"subscriber_id" db:"subscriber_id"`
	EventType    EngagementType `json:"event_type" db:"event_type"`
	EventData    map[string]any `json:"event_data" db:"event_data"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// VenueEvent is a show/concert/performance hosted at the venue, referenced by
// newsletter content blocks and listed on the public site.
type VenueEvent struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	ImageURL    string     `json:"image_url" db:"image_url"`
	StartsAt    time.Time  `json:"starts_at" db:"starts_at"`
	EndsAt      *time.Time `json:"ends_at" db:"ends_at"`
	TicketURL   string     `json:"ticket_url" db:"ticket_url"`
	Published   bool       `json:"published" db:"published"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Article is a news post on the venue site, referenced by newsletter
// content blocks.
type Article struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Teaser      string     `json:"teaser" db:"teaser"`
	Body        string     `json:"body" db:"body"`
	ImageURL    string     `json:"image_url" db:"image_url"`
	Published   bool       `json:"published" db:"published"`
	PublishedAt *time.Time `json:"published_at" db:"published_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}
