package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openvenue/mailroom/internal/pkg/httputil"
	"github.com/openvenue/mailroom/internal/pkg/logger"
	"github.com/openvenue/mailroom/internal/scheduler"
)

// cronTriggerHeader is set by the hosting platform on scheduled invocations.
// The platform is configured with the same shared secret as the Bearer path.
const cronTriggerHeader = "X-Cron-Trigger"

type cronRunResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Sent    int                    `json:"sent"`
	Failed  int                    `json:"failed"`
	Results []scheduler.ItemResult `json:"results"`
}

// handleCronTrigger runs one scheduler pass. Authorized by either the
// platform cron header or the shared bearer secret; with no secret
// configured the endpoint stays open.
func (h *Handlers) handleCronTrigger(w http.ResponseWriter, r *http.Request) {
	if !h.cronAuthorized(r) {
		httputil.Unauthorized(w, "cron trigger not authorized")
		return
	}

	summary, err := h.scheduler.RunDue(r.Context(), time.Now())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	logger.Info("cron run finished", "sent", summary.Sent, "failed", summary.Failed)
	httputil.OK(w, cronRunResponse{
		Success: summary.Failed == 0,
		Message: fmt.Sprintf("%d sent, %d failed", summary.Sent, summary.Failed),
		Sent:    summary.Sent,
		Failed:  summary.Failed,
		Results: summary.Results,
	})
}

func (h *Handlers) cronAuthorized(r *http.Request) bool {
	secret := h.cfg.Cron.Secret
	if secret == "" {
		return true
	}
	if r.Header.Get(cronTriggerHeader) == secret {
		return true
	}
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") &&
		strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")) == secret
}
