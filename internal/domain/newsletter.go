package domain

import (
	"time"

	"github.com/google/uuid"
)

// NewsletterStatus enumerates the lifecycle states of a newsletter.
type NewsletterStatus string

const (
	NewsletterDraft     NewsletterStatus = "draft"
	NewsletterScheduled NewsletterStatus = "scheduled"
	NewsletterSending   NewsletterStatus = "sending"
	NewsletterSent      NewsletterStatus = "sent"
)

// ContentType enumerates the kinds of content block a newsletter can carry.
type ContentType string

const (
	ContentEvent         ContentType = "event"
	ContentArticle       ContentType = "article"
	ContentShow          ContentType = "show"
	ContentCustomSection ContentType = "custom_section"
)

// Hero is the lead block at the top of a newsletter.
type Hero struct {
	Title    string `json:"title" db:"hero_title"`
	Subtitle string `json:"subtitle" db:"hero_subtitle"`
	ImageURL string `json:"image_url" db:"hero_image_url"`
	CTALabel string `json:"cta_label" db:"hero_cta_label"`
	CTAURL   string `json:"cta_url" db:"hero_cta_url"`
}

// Newsletter is the aggregate root for one email issue.
type Newsletter struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	Slug      string           `json:"slug" db:"slug"`
	Subject   string           `json:"subject" db:"subject"`
	Preheader string           `json:"preheader" db:"preheader"`
	Hero      Hero             `json:"hero"`
	IntroText string           `json:"intro_text" db:"intro_text"`
	Status    NewsletterStatus `json:"status" db:"status"`

	ScheduledAt    *time.Time `json:"scheduled_at" db:"scheduled_at"`
	SentAt         *time.Time `json:"sent_at" db:"sent_at"`
	RecipientCount int        `json:"recipient_count" db:"recipient_count"`

	// Metadata records the last scheduled-send error for operator visibility.
	Metadata map[string]any `json:"metadata" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Sendable reports whether a send may start from the current status.
// Sending from SENT is a hard error, never a no-op.
func (n *Newsletter) Sendable() bool {
	return n.Status == NewsletterDraft || n.Status == NewsletterScheduled
}

// ContentBlock is one ordered section of a newsletter. ContentID references
// the source entity for event/article/show blocks and is nil for custom
// sections.
type ContentBlock struct {
	ID                 uuid.UUID   `json:"id" db:"id"`
	NewsletterID       uuid.UUID   `json:"newsletter_id" db:"newsletter_id"`
	ContentType        ContentType `json:"content_type" db:"content_type"`
	ContentID          *uuid.UUID  `json:"content_id" db:"content_id"`
	SectionHeading     string      `json:"section_heading" db:"section_heading"`
	SectionDescription string      `json:"section_description" db:"section_description"`
	// OrderPosition is dense and zero-based; it defines render order.
	OrderPosition int `json:"order_position" db:"order_position"`
}

// Stats is the per-newsletter engagement aggregate. Raw counters count every
// provider event; unique counters count at most one per (newsletter,
// subscriber, event type).
type Stats struct {
	NewsletterID     uuid.UUID `json:"newsletter_id" db:"newsletter_id"`
	SentCount        int       `json:"sent_count" db:"sent_count"`
	DeliveredCount   int       `json:"delivered_count" db:"delivered_count"`
	OpenCount        int       `json:"open_count" db:"open_count"`
	UniqueOpenCount  int       `json:"unique_open_count" db:"unique_open_count"`
	ClickCount       int       `json:"click_count" db:"click_count"`
	UniqueClickCount int       `json:"unique_click_count" db:"unique_click_count"`
}
