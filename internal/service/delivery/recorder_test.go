package delivery_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/engage/internal/domain"
	"github.com/ignite/engage/internal/service/delivery"
)

func TestRecordDeliveredAttempt(t *testing.T) {
	outcomes := newFakeOutcomes()
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r := delivery.NewRecorder(outcomes).WithClock(func() time.Time { return clock })

	c := testCampaign()
	recipient := domain.Customer{ID: "c1", OwnerID: c.OwnerID, Name: "Jane Cooper", Email: "jane@example.com"}
	msg, err := r.Record(context.Background(), c, recipient, "send-1", domain.DeliveryAttempt{
		CustomerID:       "c1",
		PersonalizedBody: "Hi Jane, we miss you!",
		Outcome:          domain.DeliverySent,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.MessageDelivered, msg.Status)
	assert.Equal(t, c.ID, msg.CampaignID)
	assert.Equal(t, "send-1", msg.SendID)
	assert.Equal(t, "Hi Jane, we miss you!", msg.Content.Body)
	assert.Equal(t, c.Content.Subject, msg.Content.Subject)
	require.NotNil(t, msg.DeliveredAt)
	assert.Equal(t, clock, *msg.DeliveredAt)
	assert.Empty(t, msg.FailureReason)

	require.Len(t, outcomes.logs, 1)
	l := outcomes.logs[0]
	assert.Equal(t, domain.DeliverySent, l.Status)
	assert.Equal(t, msg.ID, l.MessageID)
	assert.Equal(t, c.SegmentID, l.SegmentID)
	assert.Equal(t, "send-1", l.SendID)
	assert.Equal(t, "Hi Jane, we miss you!", l.Metadata.Message)
}

func TestRecordFailedAttempt(t *testing.T) {
	outcomes := newFakeOutcomes()
	r := delivery.NewRecorder(outcomes)

	c := testCampaign()
	recipient := domain.Customer{ID: "c2", OwnerID: c.OwnerID, Name: "John Smith"}
	msg, err := r.Record(context.Background(), c, recipient, "send-1", domain.DeliveryAttempt{
		CustomerID:       "c2",
		PersonalizedBody: "Hi John, we miss you!",
		Outcome:          domain.DeliveryFailed,
		FailureReason:    "simulation: delivery failed",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.MessageFailed, msg.Status)
	assert.Equal(t, "simulation: delivery failed", msg.FailureReason)
	assert.Nil(t, msg.DeliveredAt)

	require.Len(t, outcomes.logs, 1)
	assert.Equal(t, domain.DeliveryFailed, outcomes.logs[0].Status)
	assert.Equal(t, "simulation: delivery failed", outcomes.logs[0].FailureReason)
}

func TestRecordStoreErrorSurfaces(t *testing.T) {
	outcomes := newFakeOutcomes()
	outcomes.failWritesFor["c3"] = true
	r := delivery.NewRecorder(outcomes)

	_, err := r.Record(context.Background(), testCampaign(), domain.Customer{ID: "c3"}, "send-1", domain.DeliveryAttempt{
		CustomerID: "c3",
		Outcome:    domain.DeliverySent,
	})
	require.Error(t, err)
	assert.Empty(t, outcomes.logs)
}
