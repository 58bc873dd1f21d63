// Package sender implements batched newsletter fan-out: recipient
// resolution, per-recipient rendering and dispatch, partial-failure
// accounting and final aggregate bookkeeping.
package sender

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openvenue/mailroom/internal/content"
	"github.com/openvenue/mailroom/internal/domain"
	"github.com/openvenue/mailroom/internal/mailer"
	"github.com/openvenue/mailroom/internal/newsletter"
	"github.com/openvenue/mailroom/internal/pkg/logger"
	"github.com/openvenue/mailroom/internal/render"
)

// Sentinel errors for send attempts.
var (
	// ErrAlreadySent means the newsletter is in the sent state. Re-sending
	// is a hard error regardless of dry-run or test flags.
	ErrAlreadySent = errors.New("newsletter already sent")
	// ErrNoRecipients means recipient resolution produced an empty list.
	// The newsletter's status is left untouched.
	ErrNoRecipients = errors.New("no recipients resolved")
)

// Store is the data access surface the sender needs. *store.Store
// satisfies it.
type Store interface {
	NewsletterByID(ctx context.Context, id uuid.UUID) (*domain.Newsletter, error)
	NewsletterBlocks(ctx context.Context, newsletterID uuid.UUID) ([]domain.ContentBlock, error)
	ActiveRecipients(ctx context.Context) ([]domain.Recipient, error)
	TestRecipients(ctx context.Context) ([]domain.TestRecipient, error)
	MarkNewsletterSending(ctx context.Context, id uuid.UUID) error
	FinalizeNewsletterSend(ctx context.Context, id uuid.UUID, sentAt time.Time, recipientCount int) error
	RevertNewsletterToDraft(ctx context.Context, id uuid.UUID, sendErr string, at time.Time) error
}

// ContentResolver joins content blocks with their source entities.
type ContentResolver interface {
	ResolveBlocks(ctx context.Context, blocks []domain.ContentBlock) ([]content.ResolvedBlock, error)
}

// Options gate the side effects of a send. With DryRun set, rendering runs
// but nothing is dispatched. With TestRecipients set, the curated test list
// replaces the subscriber store. Either flag leaves the newsletter row
// untouched.
type Options struct {
	DryRun         bool
	TestRecipients bool
	// RecipientOverride, when non-empty with TestRecipients, replaces the
	// stored test list for this one send.
	RecipientOverride []string
}

// RecipientResult is the per-recipient outcome of one send.
type RecipientResult struct {
	Email   string `json:"email"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Result aggregates one send attempt.
type Result struct {
	NewsletterID uuid.UUID         `json:"newsletter_id"`
	DryRun       bool              `json:"dry_run"`
	Success      int               `json:"success"`
	Failed       int               `json:"failed"`
	Recipients   []RecipientResult `json:"recipients"`
}

// Sender dispatches newsletters in bounded batches.
type Sender struct {
	store    Store
	resolver ContentResolver
	renderer *render.Renderer
	client   mailer.Client

	batchSize  int
	batchDelay time.Duration
	baseURL    string

	now   func() time.Time
	sleep func(time.Duration)
}

// New creates a sender. batchSize is the per-batch recipient ceiling and
// batchDelay the pause between batches; baseURL is the public site root used
// for unsubscribe links.
func New(st Store, resolver ContentResolver, renderer *render.Renderer, client mailer.Client, batchSize int, batchDelay time.Duration, baseURL string) *Sender {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Sender{
		store:      st,
		resolver:   resolver,
		renderer:   renderer,
		client:     client,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		baseURL:    baseURL,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// Send runs one send attempt to completion. There is no mid-flight
// cancellation: once dispatch starts, the resolved recipient set is worked
// through, with per-recipient failures recorded rather than propagated. The
// one aborting condition is a provider transport outage
// (mailer.ErrUnavailable), which fails the call and, for a real send,
// reverts the newsletter to draft.
func (s *Sender) Send(ctx context.Context, newsletterID uuid.UUID, opts Options) (*Result, error) {
	n, err := s.store.NewsletterByID(ctx, newsletterID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, newsletter.ErrNotFound
	}
	if n.Status == domain.NewsletterSent {
		return nil, ErrAlreadySent
	}

	recipients, err := s.resolveRecipients(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	blocks, err := s.store.NewsletterBlocks(ctx, newsletterID)
	if err != nil {
		return nil, err
	}
	resolved, err := s.resolver.ResolveBlocks(ctx, blocks)
	if err != nil {
		return nil, err
	}

	realSend := !opts.DryRun && !opts.TestRecipients
	if realSend {
		if err := s.store.MarkNewsletterSending(ctx, newsletterID); err != nil {
			return nil, fmt.Errorf("claim newsletter for sending: %w", err)
		}
	}

	logger.Info("send started",
		"newsletter_id", newsletterID.String(),
		"recipients", len(recipients),
		"dry_run", opts.DryRun,
		"test", opts.TestRecipients)

	result := &Result{NewsletterID: newsletterID, DryRun: opts.DryRun}
	for start := 0; start < len(recipients); start += s.batchSize {
		end := start + s.batchSize
		if end > len(recipients) {
			end = len(recipients)
		}

		if err := s.dispatchBatch(ctx, n, resolved, recipients[start:end], opts.DryRun, result); err != nil {
			if realSend {
				if revertErr := s.store.RevertNewsletterToDraft(ctx, newsletterID, err.Error(), s.now()); revertErr != nil {
					logger.Error("revert after aborted send failed",
						"newsletter_id", newsletterID.String(), "error", revertErr.Error())
				}
			}
			return nil, err
		}

		if end < len(recipients) && s.batchDelay > 0 {
			s.sleep(s.batchDelay)
		}
	}

	if realSend {
		if err := s.store.FinalizeNewsletterSend(ctx, newsletterID, s.now(), len(recipients)); err != nil {
			return nil, fmt.Errorf("finalize send: %w", err)
		}
	}

	logger.Info("send finished",
		"newsletter_id", newsletterID.String(),
		"success", result.Success,
		"failed", result.Failed)
	return result, nil
}

func (s *Sender) resolveRecipients(ctx context.Context, opts Options) ([]domain.Recipient, error) {
	if opts.TestRecipients {
		if len(opts.RecipientOverride) > 0 {
			out := make([]domain.Recipient, 0, len(opts.RecipientOverride))
			for _, email := range opts.RecipientOverride {
				out = append(out, domain.Recipient{ID: uuid.New(), Email: domain.NormalizeEmail(email)})
			}
			return out, nil
		}
		stored, err := s.store.TestRecipients(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]domain.Recipient, 0, len(stored))
		for _, r := range stored {
			out = append(out, domain.Recipient{ID: r.ID, Email: r.Email, FirstName: r.Name})
		}
		return out, nil
	}
	return s.store.ActiveRecipients(ctx)
}

// dispatchBatch renders and dispatches one batch concurrently. A
// mailer.ErrUnavailable from any dispatch aborts the whole send; every other
// failure is recorded per recipient.
func (s *Sender) dispatchBatch(ctx context.Context, n *domain.Newsletter, blocks []content.ResolvedBlock, batch []domain.Recipient, dryRun bool, result *Result) error {
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		unavailable error
	)

	for _, rcpt := range batch {
		wg.Add(1)
		go func(rcpt domain.Recipient) {
			defer wg.Done()

			err := s.dispatchOne(ctx, n, blocks, rcpt, dryRun)
			rr := RecipientResult{Email: rcpt.Email, Success: err == nil}
			if err != nil {
				rr.Error = err.Error()
				logger.Warn("recipient dispatch failed",
					"newsletter_id", n.ID.String(),
					"recipient", rcpt.Email,
					"error", err.Error())
			}

			mu.Lock()
			defer mu.Unlock()
			result.Recipients = append(result.Recipients, rr)
			if err == nil {
				result.Success++
				return
			}
			result.Failed++
			if errors.Is(err, mailer.ErrUnavailable) && unavailable == nil {
				unavailable = err
			}
		}(rcpt)
	}
	wg.Wait()

	return unavailable
}

// dispatchOne renders and sends a single email.
func (s *Sender) dispatchOne(ctx context.Context, n *domain.Newsletter, blocks []content.ResolvedBlock, rcpt domain.Recipient, dryRun bool) error {
	input := render.BuildInput(n, blocks, render.Personalization{
		FirstName:      rcpt.FirstName,
		SubscriberID:   rcpt.ID.String(),
		UnsubscribeURL: s.unsubscribeURL(rcpt),
	})
	html, err := s.renderer.Render(input)
	if err != nil {
		return err
	}
	if dryRun {
		return nil
	}

	return s.client.Send(ctx, mailer.Message{
		To:      rcpt.Email,
		ToName:  rcpt.FirstName,
		Subject: n.Subject,
		HTML:    html,
		Tags:    mailer.CorrelationTags(n.ID.String(), rcpt),
	})
}

func (s *Sender) unsubscribeURL(rcpt domain.Recipient) string {
	return fmt.Sprintf("%s/api/newsletter/unsubscribe?id=%s&email=%s",
		s.baseURL, rcpt.ID.String(), url.QueryEscape(rcpt.Email))
}
