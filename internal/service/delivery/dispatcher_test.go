package delivery_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/engage/internal/domain"
	"github.com/ignite/engage/internal/notify"
	"github.com/ignite/engage/internal/service/delivery"
)

// fakeCampaigns is an in-memory CampaignStore with a real CAS on status.
type fakeCampaigns struct {
	mu          sync.Mutex
	status      domain.CampaignStatus
	metrics     domain.CampaignMetrics
	completed   int
	completedAt time.Time
}

func (f *fakeCampaigns) TransitionStatus(_ context.Context, _, _ string, from, to domain.CampaignStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != from {
		return fmt.Errorf("status is %q, not %q", f.status, from)
	}
	f.status = to
	return nil
}

func (f *fakeCampaigns) CompleteSend(_ context.Context, _, _ string, m domain.CampaignMetrics, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = domain.CampaignSent
	f.metrics = m
	f.completed++
	f.completedAt = at
	return nil
}

// fakeOutcomes is an in-memory OutcomeStore that can be told to reject
// writes for specific customers.
type fakeOutcomes struct {
	mu            sync.Mutex
	messages      map[string]*domain.Message // by message ID
	logs          []*domain.CommunicationLog
	failWritesFor map[string]bool // customer ID -> reject
}

func newFakeOutcomes() *fakeOutcomes {
	return &fakeOutcomes{messages: make(map[string]*domain.Message), failWritesFor: map[string]bool{}}
}

func (f *fakeOutcomes) CreateQueued(_ context.Context, msg *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWritesFor[msg.CustomerID] {
		return errors.New("store unavailable")
	}
	cp := *msg
	f.messages[msg.ID] = &cp
	return nil
}

func (f *fakeOutcomes) FinalizeOutcome(_ context.Context, msg *domain.Message, logEntry *domain.CommunicationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWritesFor[msg.CustomerID] {
		return errors.New("store unavailable")
	}
	cp := *msg
	f.messages[msg.ID] = &cp
	lc := *logEntry
	f.logs = append(f.logs, &lc)
	return nil
}

// scriptedProvider succeeds unless told otherwise per customer ID.
type scriptedProvider struct {
	mu       sync.Mutex
	failIDs  map[string]bool
	errIDs   map[string]bool
	panicIDs map[string]bool
	calls    int
}

func (p *scriptedProvider) Send(_ context.Context, recipient domain.Customer, _ domain.MessageContent) (delivery.Outcome, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.panicIDs[recipient.ID] {
		panic("provider exploded")
	}
	if p.errIDs[recipient.ID] {
		return delivery.Outcome{}, errors.New("gateway timeout")
	}
	if p.failIDs[recipient.ID] {
		return delivery.Outcome{Status: domain.DeliveryFailed, Reason: "mailbox full"}, nil
	}
	return delivery.Outcome{Status: domain.DeliverySent}, nil
}

func testCampaign() *domain.Campaign {
	return &domain.Campaign{
		ID:        "camp-1",
		OwnerID:   "owner-1",
		SegmentID: "seg-1",
		Name:      "Welcome back",
		Type:      domain.CampaignEmail,
		Status:    domain.CampaignDraft,
		Content:   domain.MessageContent{Subject: "Hello", Body: "Hi {{firstName}}, we miss you!"},
	}
}

func testAudience(n int) []domain.Customer {
	out := make([]domain.Customer, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Customer{
			ID:      fmt.Sprintf("cust-%d", i),
			OwnerID: "owner-1",
			Name:    fmt.Sprintf("Customer %d Example", i),
			Email:   fmt.Sprintf("c%d@example.com", i),
		})
	}
	return out
}

func newTestDispatcher(campaigns *fakeCampaigns, outcomes *fakeOutcomes, p delivery.Provider) *delivery.Dispatcher {
	return delivery.NewDispatcher(campaigns, delivery.NewRecorder(outcomes), p, 4)
}

func TestDispatchAllSucceed(t *testing.T) {
	campaigns := &fakeCampaigns{status: domain.CampaignDraft}
	outcomes := newFakeOutcomes()
	d := newTestDispatcher(campaigns, outcomes, &scriptedProvider{})

	audience := testAudience(5)
	report, err := d.Dispatch(context.Background(), testCampaign(), audience)
	require.NoError(t, err)

	assert.Equal(t, &delivery.Report{MessageCount: 5, Sent: 5, Failed: 0}, report)
	assert.Equal(t, domain.CampaignSent, campaigns.status)
	assert.Equal(t, domain.CampaignMetrics{Sent: 5, Delivered: 5, Failed: 0}, campaigns.metrics)
	assert.Equal(t, 1, campaigns.completed)

	// Exactly one Message and one CommunicationLog per recipient.
	assert.Len(t, outcomes.messages, 5)
	assert.Len(t, outcomes.logs, 5)
	for _, msg := range outcomes.messages {
		assert.Equal(t, domain.MessageDelivered, msg.Status)
		require.NotNil(t, msg.DeliveredAt)
	}
}

func TestDispatchPersonalizesPerRecipient(t *testing.T) {
	campaigns := &fakeCampaigns{status: domain.CampaignDraft}
	outcomes := newFakeOutcomes()
	d := newTestDispatcher(campaigns, outcomes, &scriptedProvider{})

	audience := []domain.Customer{
		{ID: "c1", OwnerID: "owner-1", Name: "Jane Cooper", Email: "jane@example.com"},
		{ID: "c2", OwnerID: "owner-1", Name: "John Smith", Email: "john@example.com"},
	}
	_, err := d.Dispatch(context.Background(), testCampaign(), audience)
	require.NoError(t, err)

	bodies := map[string]string{}
	for _, l := range outcomes.logs {
		bodies[l.CustomerID] = l.Metadata.Message
	}
	assert.Equal(t, "Hi Jane, we miss you!", bodies["c1"])
	assert.Equal(t, "Hi John, we miss you!", bodies["c2"])
}

func TestDispatchPartialFailureIsolation(t *testing.T) {
	campaigns := &fakeCampaigns{status: domain.CampaignDraft}
	outcomes := newFakeOutcomes()
	provider := &scriptedProvider{failIDs: map[string]bool{"cust-2": true}}
	d := newTestDispatcher(campaigns, outcomes, provider)

	audience := testAudience(5)
	report, err := d.Dispatch(context.Background(), testCampaign(), audience)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Sent)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 5, report.MessageCount)
	assert.Equal(t, domain.CampaignSent, campaigns.status)

	var failedLogs int
	for _, l := range outcomes.logs {
		if l.Status == domain.DeliveryFailed {
			failedLogs++
			assert.Equal(t, "cust-2", l.CustomerID)
			assert.Equal(t, "mailbox full", l.FailureReason)
		}
	}
	assert.Equal(t, 1, failedLogs)
}

func TestDispatchProviderErrorBecomesFailedOutcome(t *testing.T) {
	campaigns := &fakeCampaigns{status: domain.CampaignDraft}
	outcomes := newFakeOutcomes()
	provider := &scriptedProvider{errIDs: map[string]bool{"cust-0": true}}
	d := newTestDispatcher(campaigns, outcomes, provider)

	report, err := d.Dispatch(context.Background(), testCampaign(), testAudience(3))
	require.NoError(t, err, "one recipient's error must not abort the batch")
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Failed)
}

func TestDispatchPanicBecomesFailedOutcome(t *testing.T) {
	campaigns := &fakeCampaigns{status: domain.CampaignDraft}
	outcomes := newFakeOutcomes()
	provider := &scriptedProvider{panicIDs: map[string]bool{"cust-1": true}}
	d := newTestDispatcher(campaigns, outcomes, provider)

	report, err := d.Dispatch(context.Background(), testCampaign(), testAudience(3))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, domain.CampaignSent, campaigns.status)
}

func TestDispatchRecordingFailureCountsAsFailed(t *testing.T) {
	campaigns := &fakeCampaigns{status: domain.CampaignDraft}
	outcomes := newFakeOutcomes()
	outcomes.failWritesFor["cust-0"] = true
	d := newTestDispatcher(campaigns, outcomes, &scriptedProvider{})

	report, err := d.Dispatch(context.Background(), testCampaign(), testAudience(3))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Failed)

	// The aggregate invariant holds even when a write was lost.
	assert.Equal(t, report.Sent+report.Failed, report.MessageCount)
}

func TestDispatchMetricsInvariant(t *testing.T) {
	for _, n := range []int{1, 4, 17} {
		campaigns := &fakeCampaigns{status: domain.CampaignDraft}
		outcomes := newFakeOutcomes()
		provider := &scriptedProvider{failIDs: map[string]bool{"cust-0": true, "cust-3": true}}
		d := newTestDispatcher(campaigns, outcomes, provider)

		report, err := d.Dispatch(context.Background(), testCampaign(), testAudience(n))
		require.NoError(t, err)
		assert.Equal(t, n, report.Sent+report.Failed, "audience size %d", n)
		assert.Equal(t, campaigns.metrics.Sent+campaigns.metrics.Failed, n)
		assert.Equal(t, campaigns.metrics.Sent, campaigns.metrics.Delivered)
	}
}

func TestDispatchSingleFlight(t *testing.T) {
	campaigns := &fakeCampaigns{status: domain.CampaignDraft}
	outcomes := newFakeOutcomes()
	d := newTestDispatcher(campaigns, outcomes, &scriptedProvider{})

	audience := testAudience(10)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = d.Dispatch(context.Background(), testCampaign(), audience)
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
		} else if errors.Is(err, delivery.ErrAlreadySending) {
			lost++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won, "exactly one concurrent send may win")
	assert.Equal(t, 1, lost)

	// The losing send produced no records.
	assert.Len(t, outcomes.messages, 10)
	assert.Len(t, outcomes.logs, 10)
}

func TestDispatchPublishesCompletion(t *testing.T) {
	campaigns := &fakeCampaigns{status: domain.CampaignDraft}
	outcomes := newFakeOutcomes()
	hub := notify.NewHub()
	d := newTestDispatcher(campaigns, outcomes, &scriptedProvider{}).WithHub(hub)

	done := hub.Subscribe("camp-1")
	_, err := d.Dispatch(context.Background(), testCampaign(), testAudience(2))
	require.NoError(t, err)

	select {
	case c := <-done:
		assert.Equal(t, "camp-1", c.CampaignID)
		assert.Equal(t, domain.CampaignMetrics{Sent: 2, Delivered: 2}, c.Metrics)
	case <-time.After(time.Second):
		t.Fatal("expected a completion signal after dispatch")
	}
}

func TestSimulatedProvider(t *testing.T) {
	always := delivery.NewSimulatedProvider(1.0, 1)
	never := delivery.NewSimulatedProvider(0.0, 1)
	c := domain.Customer{ID: "c1", Name: "Jane"}
	content := domain.MessageContent{Body: "hi"}

	for i := 0; i < 20; i++ {
		out, err := always.Send(context.Background(), c, content)
		require.NoError(t, err)
		assert.Equal(t, domain.DeliverySent, out.Status)

		out, err = never.Send(context.Background(), c, content)
		require.NoError(t, err)
		assert.Equal(t, domain.DeliveryFailed, out.Status)
		assert.Equal(t, delivery.SimulationFailureReason, out.Reason)
	}
}

func TestSimulatedProviderSeedIsDeterministic(t *testing.T) {
	run := func(seed int64) []domain.DeliveryStatus {
		p := delivery.NewSimulatedProvider(0.5, seed)
		var out []domain.DeliveryStatus
		for i := 0; i < 50; i++ {
			o, err := p.Send(context.Background(), domain.Customer{}, domain.MessageContent{})
			require.NoError(t, err)
			out = append(out, o.Status)
		}
		return out
	}
	assert.Equal(t, run(42), run(42))
}
