package delivery

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/engage/internal/domain"
	"github.com/ignite/engage/internal/metrics"
	"github.com/ignite/engage/internal/notify"
	"github.com/ignite/engage/internal/personalize"
	"github.com/ignite/engage/internal/pkg/distlock"
	"github.com/ignite/engage/internal/pkg/logger"
)

const defaultWorkers = 8

// sendLockTTL bounds how long a crashed send can hold the distributed
// lock before another instance may retry.
const sendLockTTL = 10 * time.Minute

// Report summarizes one completed send for the API response.
type Report struct {
	MessageCount int `json:"messageCount"`
	Sent         int `json:"sent"`
	Failed       int `json:"failed"`
}

// Dispatcher executes campaign sends: exactly one delivery attempt per
// resolved recipient, through a bounded worker pool, with every outcome
// recorded before metrics are aggregated.
type Dispatcher struct {
	campaigns CampaignStore
	recorder  *Recorder
	provider  Provider
	hub       *notify.Hub
	stats     *metrics.Metrics
	locker    func(campaignID string) distlock.DistLock
	workers   int
	now       func() time.Time
}

// NewDispatcher wires a dispatcher. hub, stats, and locker are optional;
// workers <= 0 selects the default pool size.
func NewDispatcher(campaigns CampaignStore, recorder *Recorder, provider Provider, workers int) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Dispatcher{
		campaigns: campaigns,
		recorder:  recorder,
		provider:  provider,
		workers:   workers,
		now:       time.Now,
	}
}

// WithHub attaches the completion hub.
func (d *Dispatcher) WithHub(hub *notify.Hub) *Dispatcher {
	d.hub = hub
	return d
}

// WithMetrics attaches Prometheus instrumentation.
func (d *Dispatcher) WithMetrics(m *metrics.Metrics) *Dispatcher {
	d.stats = m
	return d
}

// WithLocker attaches a distributed single-flight lock factory.
func (d *Dispatcher) WithLocker(locker func(campaignID string) distlock.DistLock) *Dispatcher {
	d.locker = locker
	return d
}

// WithClock overrides the dispatcher's clock for tests.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Dispatch runs one complete send of the campaign to the resolved
// audience. The caller has already verified preconditions (sendable
// status, owned segment, non-empty audience); Dispatch owns everything
// from the status flip onward. A send, once begun, runs to completion —
// ctx cancellation is honored only before the first attempt.
func (d *Dispatcher) Dispatch(ctx context.Context, c *domain.Campaign, audience []domain.Customer) (*Report, error) {
	if d.locker != nil {
		lock := d.locker(c.ID)
		ok, err := lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire send lock: %w", err)
		}
		if !ok {
			return nil, ErrAlreadySending
		}
		defer lock.Release(context.Background())
	}

	// Status CAS from the campaign's observed status (draft or
	// scheduled): losing this race means a concurrent send got there
	// first, regardless of lock configuration.
	if err := d.campaigns.TransitionStatus(ctx, c.OwnerID, c.ID, c.Status, domain.CampaignSending); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAlreadySending, err)
	}

	sendID := uuid.New().String()
	started := d.now()
	log.Printf("[delivery.Dispatcher] Campaign %s: dispatching to %d recipients (send %s)", c.ID, len(audience), sendID)

	attempts := d.run(c, audience, sendID)

	var sent, failed int
	for _, a := range attempts {
		if a.Outcome == domain.DeliverySent {
			sent++
		} else {
			failed++
		}
	}

	// One attempt per resolved recipient, by construction. If the tally
	// diverges anyway, refuse to publish inconsistent metrics.
	if sent+failed != len(audience) {
		logger.Error("delivery integrity violation",
			"campaign_id", c.ID, "attempts", sent+failed, "audience", len(audience))
		if err := d.campaigns.TransitionStatus(context.Background(), c.OwnerID, c.ID, domain.CampaignSending, domain.CampaignFailed); err != nil {
			log.Printf("[delivery.Dispatcher] Campaign %s: failed-state transition error: %v", c.ID, err)
		}
		return nil, ErrIntegrity
	}

	m := domain.CampaignMetrics{Sent: sent, Delivered: sent, Failed: failed}
	completedAt := d.now()
	if err := d.campaigns.CompleteSend(context.Background(), c.OwnerID, c.ID, m, completedAt); err != nil {
		return nil, fmt.Errorf("complete send: %w", err)
	}

	if d.stats != nil {
		d.stats.MessagesSentTotal.WithLabelValues(string(c.Type)).Add(float64(sent))
		d.stats.MessagesFailedTotal.WithLabelValues(string(c.Type)).Add(float64(failed))
		d.stats.CampaignsSentTotal.Inc()
		d.stats.SendDurationSeconds.Observe(completedAt.Sub(started).Seconds())
		d.stats.AudienceSize.Observe(float64(len(audience)))
	}
	if d.hub != nil {
		d.hub.Publish(notify.Completion{
			CampaignID:  c.ID,
			OwnerID:     c.OwnerID,
			Metrics:     m,
			CompletedAt: completedAt,
		})
	}

	log.Printf("[delivery.Dispatcher] Campaign %s: send %s complete (sent=%d failed=%d)", c.ID, sendID, sent, failed)
	return &Report{MessageCount: len(audience), Sent: sent, Failed: failed}, nil
}

// run fans the audience out over the worker pool and joins on every
// attempt reaching a terminal state. This barrier is what lets the
// aggregation above publish final counts instead of a running tally.
func (d *Dispatcher) run(c *domain.Campaign, audience []domain.Customer, sendID string) []domain.DeliveryAttempt {
	recipients := make(chan domain.Customer)
	attempts := make([]domain.DeliveryAttempt, 0, len(audience))
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for recipient := range recipients {
				attempt := d.attempt(c, recipient, sendID)
				mu.Lock()
				attempts = append(attempts, attempt)
				mu.Unlock()
			}
		}()
	}

	for _, recipient := range audience {
		recipients <- recipient
	}
	close(recipients)
	wg.Wait()

	return attempts
}

// attempt processes a single recipient. Whatever goes wrong inside —
// provider error, recording failure, even a panic — collapses into a
// FAILED outcome for this recipient only; the rest of the batch is
// untouched.
func (d *Dispatcher) attempt(c *domain.Campaign, recipient domain.Customer, sendID string) (attempt domain.DeliveryAttempt) {
	// Sends run to completion; per-recipient work gets its own context.
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[delivery.Dispatcher] Campaign %s: panic processing customer %s: %v", c.ID, recipient.ID, r)
			attempt = domain.DeliveryAttempt{
				CustomerID:    recipient.ID,
				Outcome:       domain.DeliveryFailed,
				FailureReason: fmt.Sprintf("internal error: %v", r),
			}
		}
	}()

	body := personalize.Personalize(c.Content.Body, recipient)
	attempt = domain.DeliveryAttempt{
		CustomerID:       recipient.ID,
		PersonalizedBody: body,
	}

	outcome, err := d.provider.Send(ctx, recipient, domain.MessageContent{
		Subject:  c.Content.Subject,
		Body:     body,
		MediaURL: c.Content.MediaURL,
	})
	if err != nil {
		outcome = Outcome{Status: domain.DeliveryFailed, Reason: err.Error()}
	}
	attempt.Outcome = outcome.Status
	attempt.FailureReason = outcome.Reason

	if _, err := d.recorder.Record(ctx, c, recipient, sendID, attempt); err != nil {
		// A recipient whose outcome we could not persist counts as
		// failed, whatever the provider said.
		log.Printf("[delivery.Dispatcher] Campaign %s: record outcome for customer %s: %v", c.ID, recipient.ID, err)
		attempt.Outcome = domain.DeliveryFailed
		if attempt.FailureReason == "" {
			attempt.FailureReason = "outcome recording failed"
		}
	}
	return attempt
}
