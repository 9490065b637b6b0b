package payment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
)

// DefaultSuccessRate approves roughly nine of ten charges.
const DefaultSuccessRate = 0.90

// SimGateway stands in for a real payment provider. It approves a
// configurable fraction of charges using a seeded pseudo-random draw, so a
// fixed seed replays the same sequence of outcomes.
type SimGateway struct {
	mu          sync.Mutex
	rng         *rand.Rand
	successRate float64
}

var _ Gateway = (*SimGateway)(nil)

// NewSimGateway creates a simulated gateway. Rates outside [0, 1] fall back
// to DefaultSuccessRate.
func NewSimGateway(successRate float64, seed int64) *SimGateway {
	if successRate < 0 || successRate > 1 {
		successRate = DefaultSuccessRate
	}
	return &SimGateway{
		rng:         rand.New(rand.NewSource(seed)),
		successRate: successRate,
	}
}

// Charge draws an outcome. A context that is already done surfaces as the
// context error so charge timeouts are distinguishable from declines.
func (g *SimGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	approved := g.rng.Float64() < g.successRate
	ref := fmt.Sprintf("ch_%016x", g.rng.Uint64())
	g.mu.Unlock()

	result := &ChargeResult{Ref: ref, Approved: approved}
	if !approved {
		result.Reason = "declined"
	}
	return result, nil
}
