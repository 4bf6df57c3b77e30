package ratekit_test

import (
	"context"
	"testing"
	"time"

	"github.com/nhalm/ratekit"
	"github.com/nhalm/ratekit/store"
	"github.com/nhalm/ratekit/tier"
)

var bucketTier = tier.Tier{
	Name:       "burst",
	Algorithm:  tier.TokenBucket,
	Limit:      3600,
	Window:     time.Hour,
	Capacity:   10,
	RefillRate: 1, // per second
}

// Burst then steady state: the full capacity is admitted immediately, the
// next request is rejected, and waiting 5s buys exactly 5 more admissions.
func TestTokenBucketBurstAndRefill(t *testing.T) {
	st := store.NewMemory()
	defer st.Close()

	tb := &ratekit.TokenBucket{Store: st}
	ctx := context.Background()
	base := time.Unix(5000, 0)

	for i := 1; i <= 10; i++ {
		d, err := tb.Evaluate(ctx, "k", bucketTier, base)
		if err != nil {
			t.Fatal(err)
		}
		if !d.Allowed {
			t.Fatalf("burst request %d rejected", i)
		}
		if want := int64(10 - i); d.Remaining != want {
			t.Errorf("burst request %d: Remaining = %d, want %d", i, d.Remaining, want)
		}
	}

	d, err := tb.Evaluate(ctx, "k", bucketTier, base)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Error("request 11 allowed with empty bucket")
	}
	if d.RetryAfter != time.Second {
		t.Errorf("RetryAfter = %v, want 1s (one token at 1/s)", d.RetryAfter)
	}

	later := base.Add(5 * time.Second)
	admitted := 0
	for i := 0; i < 10; i++ {
		d, err := tb.Evaluate(ctx, "k", bucketTier, later)
		if err != nil {
			t.Fatal(err)
		}
		if d.Allowed {
			admitted++
		}
	}
	if admitted != 5 {
		t.Errorf("admitted %d after 5s refill, want exactly 5", admitted)
	}
}

func TestTokenBucketRejectionPreservesElapsedTime(t *testing.T) {
	st := store.NewMemory()
	defer st.Close()

	small := bucketTier
	small.Capacity = 1

	tb := &ratekit.TokenBucket{Store: st}
	ctx := context.Background()
	base := time.Unix(0, 0)

	if _, err := tb.Evaluate(ctx, "k", small, base); err != nil {
		t.Fatal(err)
	}

	// A rejected probe halfway through the refill persists the partial
	// refill; it is not lost when the next request arrives.
	d, err := tb.Evaluate(ctx, "k", small, base.Add(500*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("expected rejection at half a token")
	}

	d, err = tb.Evaluate(ctx, "k", small, base.Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Error("elapsed time was lost across the rejected probe")
	}
}

func TestTokenBucketResetAt(t *testing.T) {
	st := store.NewMemory()
	defer st.Close()

	small := bucketTier
	small.Capacity = 1
	small.RefillRate = 0.5

	tb := &ratekit.TokenBucket{Store: st}
	base := time.Unix(0, 0)

	d, err := tb.Evaluate(context.Background(), "k", small, base)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Fatal("first request rejected")
	}
	// Bucket is empty; the next whole token arrives in 1/0.5 = 2s.
	if want := base.Add(2 * time.Second); !d.ResetAt.Equal(want) {
		t.Errorf("ResetAt = %v, want %v", d.ResetAt, want)
	}
}

func TestTokenBucketLimitIsCapacity(t *testing.T) {
	st := store.NewMemory()
	defer st.Close()

	tb := &ratekit.TokenBucket{Store: st}
	d, err := tb.Evaluate(context.Background(), "k", bucketTier, time.Unix(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if d.Limit != bucketTier.Capacity {
		t.Errorf("Limit = %d, want capacity %d", d.Limit, bucketTier.Capacity)
	}
}
