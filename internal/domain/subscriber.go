package domain

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SubscriberStatus enumerates the states a newsletter subscriber can be in.
type SubscriberStatus string

const (
	// SubscriberPending means the signup exists but the double opt-in link
	// has not been clicked yet. The opt-in token is only present here.
	SubscriberPending SubscriberStatus = "pending"
	SubscriberActive  SubscriberStatus = "active"
	// SubscriberUnsubscribed covers explicit unsubscribes, hard bounces and
	// spam complaints. Terminal: re-subscription is a new record.
	SubscriberUnsubscribed SubscriberStatus = "unsubscribed"
	SubscriberBounced      SubscriberStatus = "bounced"
)

// OptInTokenTTL bounds how long a double opt-in confirmation link stays valid.
const OptInTokenTTL = 7 * 24 * time.Hour

// Subscriber represents a single newsletter recipient.
type Subscriber struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	Email     string           `json:"email" db:"email"`
	FirstName string           `json:"first_name" db:"first_name"`
	Status    SubscriberStatus `json:"status" db:"status"`
	Interests []string         `json:"interests" db:"interests"`

	// OptInToken is non-nil iff Status == SubscriberPending.
	OptInToken  *string    `json:"-" db:"opt_in_token"`
	OptInSentAt *time.Time `json:"opt_in_sent_at" db:"opt_in_sent_at"`

	ConfirmedAt    *time.Time `json:"confirmed_at" db:"confirmed_at"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at" db:"unsubscribed_at"`
	LastOpenAt     *time.Time `json:"last_open_at" db:"last_open_at"`
	LastClickAt    *time.Time `json:"last_click_at" db:"last_click_at"`

	// Metadata carries bounce/complaint provenance and scheduler error notes.
	Metadata map[string]any `json:"metadata" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TokenExpired reports whether the opt-in token is past its lifetime at now.
func (s *Subscriber) TokenExpired(now time.Time) bool {
	if s.OptInSentAt == nil {
		return true
	}
	return now.Sub(*s.OptInSentAt) > OptInTokenTTL
}

// Recipient is the delivery-relevant projection of an active subscriber.
// It never carries the opt-in token.
type Recipient struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
}

// TestRecipient is an admin-curated address for safe test sends,
// independent of the subscriber lifecycle.
type TestRecipient struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NormalizeEmail lowercases and trims an address for case-insensitive
// uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail performs basic syntax validation on an email address.
func ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if len(email) < 3 || len(email) > 254 {
		return false
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	local, dom := parts[0], parts[1]
	if len(local) == 0 || len(local) > 64 {
		return false
	}
	if len(dom) == 0 || len(dom) > 253 || !strings.Contains(dom, ".") {
		return false
	}
	_, err := url.Parse("mailto:" + email)
	return err == nil
}
