package api

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/openvenue/mailroom/internal/domain"
	"github.com/openvenue/mailroom/internal/mailer"
	"github.com/openvenue/mailroom/internal/pkg/httputil"
	"github.com/openvenue/mailroom/internal/pkg/logger"
	"github.com/openvenue/mailroom/internal/pkg/ratelimit"
	"github.com/openvenue/mailroom/internal/subscriber"
)

func (h *Handlers) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil {
		res, err := h.limiter.Check(r.Context(), "signup:"+clientIP(r), ratelimit.Config{
			Limit:  h.cfg.Signup.RateLimit,
			Window: h.cfg.Signup.RateWindow(),
		})
		if err != nil {
			logger.Warn("signup rate check failed, allowing", "error", err.Error())
		} else if !res.Allowed {
			httputil.Error(w, http.StatusTooManyRequests, "too many signup attempts, try again later")
			return
		}
	}

	var body struct {
		Email     string   `json:"email"`
		FirstName string   `json:"first_name"`
		Interests []string `json:"interests"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}

	sub, err := h.subscribers.Create(r.Context(), body.Email, body.FirstName, body.Interests)
	switch {
	case errors.Is(err, subscriber.ErrInvalidEmail):
		httputil.BadRequest(w, "invalid email address")
		return
	case errors.Is(err, subscriber.ErrDuplicateEmail):
		httputil.Conflict(w, "email already subscribed")
		return
	case err != nil:
		httputil.InternalError(w, err)
		return
	}

	// Confirmation email failure must not fail the signup; the record
	// exists and a re-sent link can follow.
	if err := h.sendConfirmationEmail(r, sub); err != nil {
		logger.Error("confirmation email failed",
			"subscriber_id", sub.ID.String(), "error", err.Error())
	}

	httputil.Created(w, map[string]any{
		"id":     sub.ID,
		"status": sub.Status,
	})
}

func (h *Handlers) sendConfirmationEmail(r *http.Request, sub *domain.Subscriber) error {
	if sub.OptInToken == nil {
		return nil
	}
	confirmURL := fmt.Sprintf("%s/api/newsletter/confirm?token=%s",
		h.cfg.Site.BaseURL, url.QueryEscape(*sub.OptInToken))

	name := sub.FirstName
	if name == "" {
		name = "there"
	}
	html := fmt.Sprintf(`<p>Hi %s,</p>
<p>Please confirm your newsletter subscription by clicking the link below. The link is valid for 7 days.</p>
<p><a href="%s">Confirm subscription</a></p>
<p>If you did not sign up, you can ignore this email.</p>`, name, confirmURL)

	return h.mailer.Send(r.Context(), mailer.Message{
		To:      sub.Email,
		ToName:  sub.FirstName,
		Subject: "Please confirm your subscription",
		HTML:    html,
	})
}

// handleConfirm lands the emailed double opt-in link, so it answers with a
// redirect to the site rather than JSON.
func (h *Handlers) handleConfirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	_, err := h.subscribers.Confirm(r.Context(), token)
	switch {
	case err == nil:
		h.redirect(w, r, "/newsletter/confirmed?success=true")
	case errors.Is(err, subscriber.ErrTokenExpired):
		h.redirect(w, r, "/newsletter/confirmed?error=expired")
	default:
		h.redirect(w, r, "/newsletter/confirmed?error=invalid")
	}
}

// handleUnsubscribe supports emailed one-click links (GET) and form posts.
func (h *Handlers) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("email")
	if target == "" {
		target = r.URL.Query().Get("id")
	}
	if target == "" && r.Method == http.MethodPost {
		var body struct {
			Email string `json:"email"`
			ID    string `json:"id"`
		}
		if !httputil.Decode(w, r, &body) {
			return
		}
		target = body.Email
		if target == "" {
			target = body.ID
		}
	}
	if target == "" {
		h.redirect(w, r, "/newsletter/unsubscribed?error=missing")
		return
	}

	if _, err := h.subscribers.Unsubscribe(r.Context(), target); err != nil {
		h.redirect(w, r, "/newsletter/unsubscribed?error=unknown")
		return
	}
	h.redirect(w, r, "/newsletter/unsubscribed?success=true")
}

func (h *Handlers) redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, h.cfg.Site.BaseURL+path, http.StatusFound)
}

func (h *Handlers) handleArchiveList(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	items, total, err := h.newsletters.Archive(r.Context(), limit, offset)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	type archiveEntry struct {
		Slug    string `json:"slug"`
		Subject string `json:"subject"`
		SentAt  any    `json:"sent_at"`
	}
	entries := make([]archiveEntry, 0, len(items))
	for _, n := range items {
		entries = append(entries, archiveEntry{Slug: n.Slug, Subject: n.Subject, SentAt: n.SentAt})
	}
	httputil.OK(w, map[string]any{"newsletters": entries, "total": total})
}

func (h *Handlers) handleArchiveBySlug(w http.ResponseWriter, r *http.Request) {
	n, err := h.newsletters.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.NotFound(w, "newsletter not found")
		return
	}
	// Only sent newsletters are public.
	if n.Status != domain.NewsletterSent {
		httputil.NotFound(w, "newsletter not found")
		return
	}
	blocks, err := h.newsletters.Blocks(r.Context(), n.ID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"newsletter": n, "blocks": blocks})
}

func (h *Handlers) handlePublicEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.content.Events(r.Context(), true)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"events": events})
}

func (h *Handlers) handlePublicArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := h.content.Articles(r.Context(), true)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"articles": articles})
}

func clientIP(r *http.Request) string {
	// middleware.RealIP already rewrote RemoteAddr from the proxy headers.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
