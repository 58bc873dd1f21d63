package api

import (
	"errors"
	"net/http"

	"github.com/openvenue/mailroom/internal/content"
	"github.com/openvenue/mailroom/internal/pkg/httputil"
)

func writeContentError(w http.ResponseWriter, err error) {
	if errors.Is(err, content.ErrNotFound) {
		httputil.NotFound(w, "content not found")
		return
	}
	httputil.InternalError(w, err)
}

func (h *Handlers) handleEventCreate(w http.ResponseWriter, r *http.Request) {
	var input content.EventInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	if input.Title == "" {
		httputil.BadRequest(w, "title is required")
		return
	}
	e, err := h.content.CreateEvent(r.Context(), input)
	if err != nil {
		writeContentError(w, err)
		return
	}
	httputil.Created(w, e)
}

func (h *Handlers) handleEventList(w http.ResponseWriter, r *http.Request) {
	events, err := h.content.Events(r.Context(), false)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"events": events})
}

func (h *Handlers) handleEventUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var input content.EventInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	e, err := h.content.UpdateEvent(r.Context(), id, input)
	if err != nil {
		writeContentError(w, err)
		return
	}
	httputil.OK(w, e)
}

func (h *Handlers) handleEventDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := h.content.DeleteEvent(r.Context(), id); err != nil {
		writeContentError(w, err)
		return
	}
	httputil.NoContent(w)
}

func (h *Handlers) handleArticleCreate(w http.ResponseWriter, r *http.Request) {
	var input content.ArticleInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	if input.Title == "" {
		httputil.BadRequest(w, "title is required")
		return
	}
	a, err := h.content.CreateArticle(r.Context(), input)
	if err != nil {
		writeContentError(w, err)
		return
	}
	httputil.Created(w, a)
}

func (h *Handlers) handleArticleList(w http.ResponseWriter, r *http.Request) {
	articles, err := h.content.Articles(r.Context(), false)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"articles": articles})
}

func (h *Handlers) handleArticleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var input content.ArticleInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	a, err := h.content.UpdateArticle(r.Context(), id, input)
	if err != nil {
		writeContentError(w, err)
		return
	}
	httputil.OK(w, a)
}

func (h *Handlers) handleArticleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := h.content.DeleteArticle(r.Context(), id); err != nil {
		writeContentError(w, err)
		return
	}
	httputil.NoContent(w)
}
