package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryLimiterWindow(t *testing.T) {
	l := NewMemoryLimiter()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	cfg := Config{Limit: 3, Window: time.Minute}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Check(ctx, "1.2.3.4", cfg)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("check %d: expected allowed", i)
		}
		if want := 3 - i - 1; res.Remaining != want {
			t.Errorf("check %d: remaining = %d, want %d", i, res.Remaining, want)
		}
	}

	res, _ := l.Check(ctx, "1.2.3.4", cfg)
	if res.Allowed {
		t.Error("4th check should be denied")
	}
	if !res.ResetAt.Equal(base.Add(time.Minute)) {
		t.Errorf("resetAt = %v, want %v", res.ResetAt, base.Add(time.Minute))
	}

	// A different identifier has its own window.
	other, _ := l.Check(ctx, "5.6.7.8", cfg)
	if !other.Allowed {
		t.Error("other identifier should be allowed")
	}

	// Window expiry resets the counter.
	base = base.Add(2 * time.Minute)
	res, _ = l.Check(ctx, "1.2.3.4", cfg)
	if !res.Allowed {
		t.Error("check after window expiry should be allowed")
	}
}

func TestRedisLimiter(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	l := NewRedisLimiter(client)

	cfg := Config{Limit: 2, Window: time.Minute}
	ctx := context.Background()

	first, err := l.Check(ctx, "signup:9.9.9.9", cfg)
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if !first.Allowed || first.Remaining != 1 {
		t.Errorf("first = %+v, want allowed with 1 remaining", first)
	}

	second, _ := l.Check(ctx, "signup:9.9.9.9", cfg)
	if !second.Allowed || second.Remaining != 0 {
		t.Errorf("second = %+v, want allowed with 0 remaining", second)
	}

	third, _ := l.Check(ctx, "signup:9.9.9.9", cfg)
	if third.Allowed {
		t.Error("third check should be denied")
	}
}
