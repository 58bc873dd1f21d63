// Package api wires the HTTP surface: public signup/confirm/unsubscribe
// flows, the provider webhook, the cron trigger and the role-gated admin
// endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/openvenue/mailroom/internal/auth"
	"github.com/openvenue/mailroom/internal/config"
	"github.com/openvenue/mailroom/internal/content"
	"github.com/openvenue/mailroom/internal/mailer"
	"github.com/openvenue/mailroom/internal/newsletter"
	"github.com/openvenue/mailroom/internal/pkg/logger"
	"github.com/openvenue/mailroom/internal/pkg/ratelimit"
	"github.com/openvenue/mailroom/internal/scheduler"
	"github.com/openvenue/mailroom/internal/sender"
	"github.com/openvenue/mailroom/internal/store"
	"github.com/openvenue/mailroom/internal/subscriber"
	"github.com/openvenue/mailroom/internal/webhook"
)

// Server is the HTTP front of the service.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	handlers   *Handlers
}

// Handlers carries the service dependencies shared by all endpoints.
type Handlers struct {
	cfg         *config.Config
	store       *store.Store
	subscribers *subscriber.Service
	newsletters *newsletter.Service
	content     *content.Service
	sender      *sender.Sender
	scheduler   *scheduler.Runner
	ingestor    *webhook.Ingestor
	mailer      mailer.Client
	limiter     ratelimit.Limiter
	authMW      *auth.Middleware
}

// NewHandlers bundles the dependencies for route setup.
func NewHandlers(
	cfg *config.Config,
	st *store.Store,
	subscribers *subscriber.Service,
	newsletters *newsletter.Service,
	contentSvc *content.Service,
	snd *sender.Sender,
	runner *scheduler.Runner,
	ingestor *webhook.Ingestor,
	mail mailer.Client,
	limiter ratelimit.Limiter,
) *Handlers {
	return &Handlers{
		cfg:         cfg,
		store:       st,
		subscribers: subscribers,
		newsletters: newsletters,
		content:     contentSvc,
		sender:      snd,
		scheduler:   runner,
		ingestor:    ingestor,
		mailer:      mail,
		limiter:     limiter,
		authMW:      auth.NewMiddleware(cfg.Auth.Tokens),
	}
}

// NewServer creates the HTTP server with all routes mounted.
func NewServer(cfg *config.Config, handlers *Handlers) *Server {
	return &Server{
		cfg:      cfg,
		handlers: handlers,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      SetupRoutes(handlers),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start begins serving. Blocks until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
