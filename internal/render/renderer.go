// Package render turns a newsletter and its resolved content into the HTML
// email body. Rendering is pure given its inputs; batching and dispatch live
// elsewhere.
package render

import (
	"fmt"
	"html"
	"net/url"
	"sync"
	"time"

	"github.com/osteele/liquid"

	"github.com/openvenue/mailroom/internal/content"
	"github.com/openvenue/mailroom/internal/domain"
)

// Renderer wraps a Liquid engine with the newsletter layout template.
// Safe for concurrent use; the parsed template is cached.
type Renderer struct {
	engine *liquid.Engine

	mu  sync.RWMutex
	tpl *liquid.Template
}

// New creates a renderer with the built-in layout and custom filters.
func New() (*Renderer, error) {
	engine := liquid.NewEngine()
	registerFilters(engine)

	tpl, err := engine.ParseString(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse layout template: %w", err)
	}
	return &Renderer{engine: engine, tpl: tpl}, nil
}

// SetTemplate swaps in a custom layout, e.g. loaded from disk at startup.
func (r *Renderer) SetTemplate(src string) error {
	tpl, err := r.engine.ParseString(src)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	r.mu.Lock()
	r.tpl = tpl
	r.mu.Unlock()
	return nil
}

func registerFilters(engine *liquid.Engine) {
	engine.RegisterFilter("default", func(value any, fallback string) any {
		if value == nil {
			return fallback
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return fallback
		}
		return value
	})
	engine.RegisterFilter("escape", func(s string) string {
		return html.EscapeString(s)
	})
	engine.RegisterFilter("urlencode", func(s string) string {
		return url.QueryEscape(s)
	})
	// {{ starts_at | event_date }} -> "Saturday, March 14 at 8:00 PM"
	engine.RegisterFilter("event_date", func(v any) string {
		var ts time.Time
		switch t := v.(type) {
		case time.Time:
			ts = t
		case *time.Time:
			if t == nil {
				return ""
			}
			ts = *t
		default:
			return fmt.Sprintf("%v", v)
		}
		return ts.Format("Monday, January 2 at 3:04 PM")
	})
}

// Personalization carries the per-recipient fields embedded in the body.
type Personalization struct {
	FirstName      string
	SubscriberID   string
	UnsubscribeURL string
}

// BuildInput assembles the template binding map from the newsletter, its
// resolved blocks and one recipient's personalization.
func BuildInput(n *domain.Newsletter, blocks []content.ResolvedBlock, p Personalization) map[string]any {
	bound := make([]map[string]any, 0, len(blocks))
	for _, b := range blocks {
		m := map[string]any{
			"type":        string(b.Type),
			"heading":     b.Heading,
			"description": b.Description,
		}
		if b.Event != nil {
			m["event"] = map[string]any{
				"title":       b.Event.Title,
				"description": b.Event.Description,
				"image_url":   b.Event.ImageURL,
				"starts_at":   b.Event.StartsAt,
				"ticket_url":  b.Event.TicketURL,
			}
		}
		if b.Article != nil {
			m["article"] = map[string]any{
				"title":     b.Article.Title,
				"teaser":    b.Article.Teaser,
				"image_url": b.Article.ImageURL,
			}
		}
		bound = append(bound, m)
	}

	return map[string]any{
		"subject":   n.Subject,
		"preheader": n.Preheader,
		"hero": map[string]any{
			"title":     n.Hero.Title,
			"subtitle":  n.Hero.Subtitle,
			"image_url": n.Hero.ImageURL,
			"cta_label": n.Hero.CTALabel,
			"cta_url":   n.Hero.CTAURL,
		},
		"intro_text":      n.IntroText,
		"blocks":          bound,
		"first_name":      p.FirstName,
		"subscriber_id":   p.SubscriberID,
		"unsubscribe_url": p.UnsubscribeURL,
	}
}

// Render produces the HTML body for one recipient.
func (r *Renderer) Render(input map[string]any) (string, error) {
	r.mu.RLock()
	tpl := r.tpl
	r.mu.RUnlock()

	out, err := tpl.RenderString(input)
	if err != nil {
		return "", fmt.Errorf("render newsletter: %w", err)
	}
	return out, nil
}
