package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/openvenue/mailroom/internal/pkg/httputil"
	"github.com/openvenue/mailroom/internal/pkg/logger"
	"github.com/openvenue/mailroom/internal/webhook"
)

// handleWebhook receives provider callbacks. Once the signature checks out
// and the body parses, the response is 200 no matter what: surfacing errors
// here would only trigger the provider's retry storm. Failures are logged.
func (h *Handlers) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httputil.BadRequest(w, "unreadable body")
		return
	}

	if !webhook.VerifySignature(h.cfg.Webhook.Secret, body, r.Header.Get(webhook.SignatureHeader)) {
		httputil.Unauthorized(w, "invalid signature")
		return
	}

	acknowledge := func() {
		httputil.OK(w, map[string]bool{"received": true})
	}

	// A provider may batch events into an array; single objects also occur.
	var events []webhook.Event
	if strings.HasPrefix(strings.TrimSpace(string(body)), "[") {
		if err := json.Unmarshal(body, &events); err != nil {
			logger.Error("webhook parse failed", "error", err.Error())
			acknowledge()
			return
		}
	} else {
		var ev webhook.Event
		if err := json.Unmarshal(body, &ev); err != nil {
			logger.Error("webhook parse failed", "error", err.Error())
			acknowledge()
			return
		}
		events = append(events, ev)
	}

	for _, ev := range events {
		if err := h.ingestor.Handle(r.Context(), ev); err != nil {
			logger.Error("webhook processing failed",
				"type", ev.Type, "error", err.Error())
		}
	}

	acknowledge()
}
