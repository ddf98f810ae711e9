package delivery

import (
	"context"
	"math/rand"
	"sync"

	"github.com/ignite/engage/internal/domain"
)

// SimulationFailureReason is the reason attached to simulated failures,
// mirroring what the vendor sandbox reports.
const SimulationFailureReason = "simulation: delivery failed"

// SimulatedProvider stands in for a real vendor gateway. Each Send
// succeeds with the configured probability (the sandbox default is 0.9).
// Seeding the RNG makes a whole simulated send reproducible.
type SimulatedProvider struct {
	mu          sync.Mutex
	rng         *rand.Rand
	successRate float64
}

// NewSimulatedProvider creates a simulated provider. successRate is
// clamped to [0, 1].
func NewSimulatedProvider(successRate float64, seed int64) *SimulatedProvider {
	if successRate < 0 {
		successRate = 0
	}
	if successRate > 1 {
		successRate = 1
	}
	return &SimulatedProvider{
		rng:         rand.New(rand.NewSource(seed)),
		successRate: successRate,
	}
}

// Send simulates one delivery attempt.
func (p *SimulatedProvider) Send(_ context.Context, _ domain.Customer, _ domain.MessageContent) (Outcome, error) {
	p.mu.Lock()
	roll := p.rng.Float64()
	p.mu.Unlock()

	if roll < p.successRate {
		return Outcome{Status: domain.DeliverySent}, nil
	}
	return Outcome{Status: domain.DeliveryFailed, Reason: SimulationFailureReason}, nil
}
