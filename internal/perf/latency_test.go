package perf

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/hopebridge/donor-portal/internal/ratelimit"
	"github.com/hopebridge/donor-portal/internal/rbac"
	"github.com/hopebridge/donor-portal/internal/store/memory"
)

func TestParityAuthorizationLatency(t *testing.T) {
	st, err := memory.New(memory.DefaultSeed())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	guard := rbac.NewGuard(rbac.NewResolver(st))
	limiter := ratelimit.New()
	ctx := context.Background()

	scenarios := []struct {
		name      string
		run       func() error
		threshold time.Duration
	}{
		{
			name: "authorize",
			run: func() error {
				_, err := guard.Authorize(ctx, memory.SeedAnalystID, rbac.PermViewAudit)
				return err
			},
			threshold: 20 * time.Millisecond,
		},
		{
			name: "limiter",
			run: func() error {
				limiter.Check("192.0.2.10:role_assign", 1<<20, time.Minute)
				return nil
			},
			threshold: 5 * time.Millisecond,
		},
	}

	for _, scenario := range scenarios {
		samples := make([]time.Duration, 0, 200)
		for i := 0; i < 200; i++ {
			start := time.Now()
			if err := scenario.run(); err != nil {
				t.Fatalf("%s: %v", scenario.name, err)
			}
			samples = append(samples, time.Since(start))
		}
		p95 := percentile95(samples)
		if p95 > scenario.threshold {
			t.Fatalf("%s latency regression: p95=%s threshold=%s", scenario.name, p95, scenario.threshold)
		}
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[int(float64(len(sorted)-1)*0.95)]
}
