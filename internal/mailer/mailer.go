// Package mailer wraps the transactional email provider's HTTP API.
package mailer

import (
	"context"
	"errors"

	"github.com/openvenue/mailroom/internal/domain"
)

// ErrUnavailable means the provider could not be reached at all. The sender
// treats it as a hard failure for the whole operation rather than a
// per-recipient error.
var ErrUnavailable = errors.New("email provider unavailable")

// Tag is one name/value pair the provider round-trips back in webhook
// payloads. Correlation between webhook events and local rows depends on the
// subscriber_id and newsletter_id tags attached at send time.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Message is one outbound email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
	Tags    []Tag
}

// Client sends email. Implementations must be safe for concurrent use; the
// batched sender dispatches a full batch at a time.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// CorrelationTags builds the standard tag set for a newsletter send.
func CorrelationTags(newsletterID string, recipient domain.Recipient) []Tag {
	return []Tag{
		{Name: "newsletter_id", Value: newsletterID},
		{Name: "subscriber_id", Value: recipient.ID.String()},
	}
}
