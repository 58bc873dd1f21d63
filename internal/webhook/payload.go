package webhook

import (
	"time"

	"github.com/google/uuid"
)

// Event is one provider webhook callback. Tags round-trip the correlation
// ids the sender attached at dispatch time.
type Event struct {
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Data      EventData `json:"data"`
}

// EventData carries the provider's event payload.
type EventData struct {
	EmailID string      `json:"email_id"`
	To      []string    `json:"to"`
	Tags    []Tag       `json:"tags"`
	Click   *ClickData  `json:"click,omitempty"`
	Bounce  *BounceData `json:"bounce,omitempty"`
}

// Tag is one round-tripped name/value pair.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ClickData describes a clicked link.
type ClickData struct {
	Link string `json:"link"`
}

// BounceData describes a bounce. Type is "hard" or "soft".
type BounceData struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// tag returns the named tag's value, or "".
func (d EventData) tag(name string) string {
	for _, t := range d.Tags {
		if t.Name == name {
			return t.Value
		}
	}
	return ""
}

// correlation resolves the subscriber and newsletter ids from tags. A
// missing or malformed tag yields a nil id, which is a normal condition,
// never an error.
func (d EventData) correlation() (subscriberID, newsletterID *uuid.UUID) {
	if id, err := uuid.Parse(d.tag("subscriber_id")); err == nil {
		subscriberID = &id
	}
	if id, err := uuid.Parse(d.tag("newsletter_id")); err == nil {
		newsletterID = &id
	}
	return subscriberID, newsletterID
}
