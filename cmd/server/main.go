package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openvenue/mailroom/internal/api"
	"github.com/openvenue/mailroom/internal/config"
	"github.com/openvenue/mailroom/internal/content"
	"github.com/openvenue/mailroom/internal/mailer"
	"github.com/openvenue/mailroom/internal/newsletter"
	"github.com/openvenue/mailroom/internal/pkg/logger"
	"github.com/openvenue/mailroom/internal/pkg/ratelimit"
	"github.com/openvenue/mailroom/internal/render"
	"github.com/openvenue/mailroom/internal/scheduler"
	"github.com/openvenue/mailroom/internal/sender"
	"github.com/openvenue/mailroom/internal/store"
	"github.com/openvenue/mailroom/internal/subscriber"
	"github.com/openvenue/mailroom/internal/webhook"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	if cfg.Logging.RedactPII != nil {
		logger.SetRedactPII(*cfg.Logging.RedactPII)
	}

	st, err := store.Open(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer st.Close()

	var limiter ratelimit.Limiter
	if cfg.Redis.URL != "" {
		rl, err := ratelimit.NewRedisLimiterFromURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		limiter = rl
	} else {
		logger.Warn("redis not configured, using in-memory rate limiter")
		limiter = ratelimit.NewMemoryLimiter()
	}

	renderer, err := render.New()
	if err != nil {
		log.Fatalf("renderer: %v", err)
	}

	mailClient := mailer.NewHTTPClient(
		cfg.Mailer.BaseURL, cfg.Mailer.APIKey,
		cfg.Mailer.FromEmail, cfg.Mailer.FromName)

	subscribers := subscriber.NewService(st.Subscribers())
	newsletters := newsletter.NewService(st.Newsletters())
	contentSvc := content.NewService(st)

	snd := sender.New(st, contentSvc, renderer, mailClient,
		cfg.Newsletter.BatchSize, cfg.Newsletter.BatchDelay(), cfg.Site.BaseURL)
	runner := scheduler.NewRunner(st, snd)
	ingestor := webhook.NewIngestor(st)

	handlers := api.NewHandlers(cfg, st, subscribers, newsletters, contentSvc,
		snd, runner, ingestor, mailClient, limiter)
	server := api.NewServer(cfg, handlers)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server: %v", err)
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown", "error", err.Error())
		}
	}
}
