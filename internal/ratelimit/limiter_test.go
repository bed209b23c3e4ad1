package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/repository/memory"
)

func TestLimiterRejectsNPlusOne(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.New()
	l := &Limiter{Counter: StoreCounter{Repo: store}, Now: func() time.Time { return now }}
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		r := l.Check(ctx, "k", 3, time.Minute)
		if !r.Allowed {
			t.Fatalf("hit %d rejected", i)
		}
		if r.CurrentCount != int64(i) || r.Remaining != int64(3-i) {
			t.Fatalf("hit %d count=%d remaining=%d", i, r.CurrentCount, r.Remaining)
		}
	}
	r := l.Check(ctx, "k", 3, time.Minute)
	if r.Allowed {
		t.Fatalf("4th hit allowed")
	}
	if r.Remaining != 0 {
		t.Fatalf("remaining=%d want=0", r.Remaining)
	}
	if got := r.RetryAfter(now); got != 60 {
		t.Fatalf("retry_after=%d want=60", got)
	}

	now = now.Add(time.Minute)
	if r := l.Check(ctx, "k", 3, time.Minute); !r.Allowed || r.CurrentCount != 1 {
		t.Fatalf("after window allowed=%v count=%d", r.Allowed, r.CurrentCount)
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	store := memory.New()
	l := &Limiter{Counter: StoreCounter{Repo: store}}
	ctx := context.Background()
	if !l.Check(ctx, SyncClientKey("a"), 1, time.Minute).Allowed {
		t.Fatalf("first client hit rejected")
	}
	if !l.Check(ctx, SyncUserKey("a"), 1, time.Minute).Allowed {
		t.Fatalf("user key shares the client counter")
	}
	if l.Check(ctx, SyncClientKey("a"), 1, time.Minute).Allowed {
		t.Fatalf("second client hit allowed")
	}
}

func TestLimiterFailsOpen(t *testing.T) {
	store := memory.New()
	store.FailRateLimit = true
	l := &Limiter{Counter: StoreCounter{Repo: store}}
	for i := 0; i < 5; i++ {
		if r := l.Check(context.Background(), "k", 1, time.Minute); !r.Allowed {
			t.Fatalf("hit %d rejected on store failure", i)
		}
	}
}
