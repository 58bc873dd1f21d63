package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openvenue/mailroom/internal/domain"
	"github.com/openvenue/mailroom/internal/mailer"
	"github.com/openvenue/mailroom/internal/newsletter"
	"github.com/openvenue/mailroom/internal/pkg/httputil"
	"github.com/openvenue/mailroom/internal/sender"
)

func urlID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// writeNewsletterError maps the newsletter service sentinels onto statuses.
func writeNewsletterError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, newsletter.ErrNotFound):
		httputil.NotFound(w, "newsletter not found")
	case errors.Is(err, newsletter.ErrDuplicateSlug):
		httputil.Conflict(w, "slug already in use")
	case errors.Is(err, newsletter.ErrCannotEditSent):
		httputil.Conflict(w, "sent newsletters cannot be edited")
	case errors.Is(err, newsletter.ErrCannotDeleteNonDraft):
		httputil.Conflict(w, "only draft newsletters can be deleted")
	case errors.Is(err, newsletter.ErrInvalidStatus):
		httputil.Conflict(w, "operation not valid for current status")
	case errors.Is(err, newsletter.ErrScheduleInPast):
		httputil.BadRequest(w, "scheduled time must be in the future")
	default:
		httputil.InternalError(w, err)
	}
}

func (h *Handlers) handleNewsletterCreate(w http.ResponseWriter, r *http.Request) {
	var input newsletter.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	n, err := h.newsletters.Create(r.Context(), input)
	if err != nil {
		writeNewsletterError(w, err)
		return
	}
	httputil.Created(w, n)
}

func (h *Handlers) handleNewsletterList(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	status := domain.NewsletterStatus(r.URL.Query().Get("status"))

	items, total, err := h.newsletters.List(r.Context(), status, limit, offset)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"newsletters": items, "total": total})
}

func (h *Handlers) handleNewsletterGet(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	n, err := h.newsletters.Get(r.Context(), id)
	if err != nil {
		writeNewsletterError(w, err)
		return
	}
	httputil.OK(w, n)
}

func (h *Handlers) handleNewsletterUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var input newsletter.UpdateInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	n, err := h.newsletters.Update(r.Context(), id, input)
	if err != nil {
		writeNewsletterError(w, err)
		return
	}
	httputil.OK(w, n)
}

func (h *Handlers) handleNewsletterDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := h.newsletters.Delete(r.Context(), id); err != nil {
		writeNewsletterError(w, err)
		return
	}
	httputil.NoContent(w)
}

func (h *Handlers) handleBlocksSet(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var body struct {
		Blocks []newsletter.BlockInput `json:"blocks"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	blocks, err := h.newsletters.SetBlocks(r.Context(), id, body.Blocks)
	if err != nil {
		if errors.Is(err, newsletter.ErrNotFound) || errors.Is(err, newsletter.ErrCannotEditSent) {
			writeNewsletterError(w, err)
		} else {
			httputil.BadRequest(w, err.Error())
		}
		return
	}
	httputil.OK(w, map[string]any{"blocks": blocks})
}

func (h *Handlers) handleBlocksGet(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	blocks, err := h.newsletters.Blocks(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"blocks": blocks})
}

func (h *Handlers) handleSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var body struct {
		ScheduledAt time.Time `json:"scheduled_at"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	n, err := h.newsletters.Schedule(r.Context(), id, body.ScheduledAt)
	if err != nil {
		writeNewsletterError(w, err)
		return
	}
	httputil.OK(w, n)
}

func (h *Handlers) handleUnschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	n, err := h.newsletters.Unschedule(r.Context(), id)
	if err != nil {
		writeNewsletterError(w, err)
		return
	}
	httputil.OK(w, n)
}

func (h *Handlers) handleStatsGet(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	stats, err := h.newsletters.Stats(r.Context(), id)
	if err != nil {
		writeNewsletterError(w, err)
		return
	}
	httputil.OK(w, stats)
}

// writeSendError maps sender errors. Partial failure is not an error: it
// arrives as data in the result.
func writeSendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, newsletter.ErrNotFound):
		httputil.NotFound(w, "newsletter not found")
	case errors.Is(err, sender.ErrAlreadySent):
		httputil.Conflict(w, "newsletter already sent")
	case errors.Is(err, sender.ErrNoRecipients):
		httputil.Error(w, http.StatusUnprocessableEntity, "no recipients resolved")
	case errors.Is(err, mailer.ErrUnavailable):
		httputil.Error(w, http.StatusBadGateway, "email provider unavailable")
	default:
		httputil.InternalError(w, err)
	}
}

func (h *Handlers) handleSend(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var body struct {
		DryRun bool `json:"dry_run"`
	}
	if r.ContentLength > 0 && !httputil.Decode(w, r, &body) {
		return
	}
	result, err := h.sender.Send(r.Context(), id, sender.Options{DryRun: body.DryRun})
	if err != nil {
		writeSendError(w, err)
		return
	}
	httputil.OK(w, result)
}

func (h *Handlers) handleSendTest(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var body struct {
		Recipients []string `json:"recipients"`
	}
	if r.ContentLength > 0 && !httputil.Decode(w, r, &body) {
		return
	}
	result, err := h.sender.Send(r.Context(), id, sender.Options{
		TestRecipients:    true,
		RecipientOverride: body.Recipients,
	})
	if err != nil {
		writeSendError(w, err)
		return
	}
	httputil.OK(w, result)
}

func (h *Handlers) handleSubscriberList(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	status := domain.SubscriberStatus(r.URL.Query().Get("status"))

	items, total, err := h.subscribers.List(r.Context(), status, limit, offset)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"subscribers": items, "total": total})
}

func (h *Handlers) handleTestRecipientList(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.TestRecipients(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"test_recipients": items})
}

func (h *Handlers) handleTestRecipientCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	email := domain.NormalizeEmail(body.Email)
	if !domain.ValidEmail(email) {
		httputil.BadRequest(w, "invalid email address")
		return
	}
	rec := &domain.TestRecipient{
		ID:        uuid.New(),
		Email:     email,
		Name:      body.Name,
		CreatedAt: time.Now(),
	}
	if err := h.store.CreateTestRecipient(r.Context(), rec); err != nil {
		httputil.Conflict(w, err.Error())
		return
	}
	httputil.Created(w, rec)
}

func (h *Handlers) handleTestRecipientDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteTestRecipient(r.Context(), id); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}
