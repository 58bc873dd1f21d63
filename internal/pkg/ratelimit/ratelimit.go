// Package ratelimit provides an injectable fixed-window rate limiter for the
// public signup endpoint.
//
// Two backends exist: a Redis-backed limiter whose counters survive
// multi-instance deployment, and an in-memory limiter that keeps the
// process-wide-map semantics the original site shipped with. The in-memory
// backend is only correct for a single instance; that scalability gap is
// inherited, not introduced here.
package ratelimit

import (
	"context"
	"time"
)

// Config tunes one limiter check.
type Config struct {
	// Limit is the maximum number of allowed hits per window.
	Limit int
	// Window is the fixed window length.
	Window time.Duration
}

// Result reports the outcome of a limiter check.
type Result struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// Limiter checks whether another hit for identifier is allowed within the
// configured window. Check counts the hit when it is allowed.
type Limiter interface {
	Check(ctx context.Context, identifier string, cfg Config) (Result, error)
}
