// Package notify exposes campaign completion to interested parties.
//
// In-process consumers subscribe to the Hub and receive a push signal
// when the aggregator finishes a send. External clients use the polling
// contract in PollUntilSent as a coarse fallback: re-fetch the campaign
// at a fixed interval for a bounded window, stop on a terminal 'sent'
// status, and treat window expiry as "unknown, check later" rather than
// failure.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/ignite/engage/internal/domain"
)

// Completion is the terminal signal for one campaign send.
type Completion struct {
	CampaignID  string
	OwnerID     string
	Metrics     domain.CampaignMetrics
	CompletedAt time.Time
}

// Hub fans completion signals out to subscribers. Subscriptions are
// one-shot: the channel receives at most one Completion and is closed
// after publish.
type Hub struct {
	mu   sync.Mutex
	subs map[string][]chan Completion
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string][]chan Completion)}
}

// Subscribe registers interest in one campaign's next completion.
// The returned channel is buffered; the publisher never blocks on it.
func (h *Hub) Subscribe(campaignID string) <-chan Completion {
	ch := make(chan Completion, 1)
	h.mu.Lock()
	h.subs[campaignID] = append(h.subs[campaignID], ch)
	h.mu.Unlock()
	return ch
}

// Publish delivers the completion to every subscriber of the campaign
// and drops the subscriptions.
func (h *Hub) Publish(c Completion) {
	h.mu.Lock()
	subs := h.subs[c.CampaignID]
	delete(h.subs, c.CampaignID)
	h.mu.Unlock()

	for _, ch := range subs {
		ch <- c
		close(ch)
	}
}

// CampaignGetter is the read access the poller needs.
type CampaignGetter interface {
	Get(ctx context.Context, ownerID, id string) (*domain.Campaign, error)
}

// PollUntilSent re-fetches the campaign every interval until it reports
// status 'sent' or the window expires. Returns the last observed
// campaign and whether a terminal 'sent' status was seen. An expired
// window is not an error: the campaign may still complete later.
func PollUntilSent(ctx context.Context, store CampaignGetter, ownerID, id string, interval, window time.Duration) (*domain.Campaign, bool, error) {
	deadline := time.Now().Add(window)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *domain.Campaign
	for {
		c, err := store.Get(ctx, ownerID, id)
		if err != nil {
			return last, false, err
		}
		last = c
		if c.Status == domain.CampaignSent {
			return c, true, nil
		}
		if time.Now().After(deadline) {
			return last, false, nil
		}

		select {
		case <-ctx.Done():
			return last, false, ctx.Err()
		case <-ticker.C:
		}
	}
}
