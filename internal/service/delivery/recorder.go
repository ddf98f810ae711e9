package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/engage/internal/domain"
)

// Recorder persists the durable trace of one delivery attempt: a Message
// that moves queued → delivered/failed, and a CommunicationLog row
// carrying the same terminal status.
type Recorder struct {
	store OutcomeStore
	now   func() time.Time
}

// NewRecorder creates a recorder over the given outcome store.
func NewRecorder(store OutcomeStore) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// WithClock overrides the recorder's clock for tests.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Record writes the Message and CommunicationLog pair for one attempt.
// The message is created in queued state first, then finalized together
// with the log append in a single atomic write, so a crash can leave a
// queued message but never a half-recorded outcome.
func (r *Recorder) Record(ctx context.Context, c *domain.Campaign, recipient domain.Customer, sendID string, attempt domain.DeliveryAttempt) (*domain.Message, error) {
	queuedAt := r.now()
	msg := &domain.Message{
		ID:         uuid.New().String(),
		OwnerID:    c.OwnerID,
		CampaignID: c.ID,
		CustomerID: recipient.ID,
		SendID:     sendID,
		Type:       c.Type,
		Content: domain.MessageContent{
			Subject:  c.Content.Subject,
			Body:     attempt.PersonalizedBody,
			MediaURL: c.Content.MediaURL,
		},
		Status:   domain.MessageQueued,
		QueuedAt: queuedAt,
	}
	if err := r.store.CreateQueued(ctx, msg); err != nil {
		return nil, fmt.Errorf("create queued message: %w", err)
	}

	sentAt := r.now()
	if attempt.Outcome == domain.DeliverySent {
		msg.Status = domain.MessageDelivered
		msg.DeliveredAt = &sentAt
	} else {
		msg.Status = domain.MessageFailed
		msg.FailureReason = attempt.FailureReason
	}

	logEntry := &domain.CommunicationLog{
		ID:            uuid.New().String(),
		OwnerID:       c.OwnerID,
		CustomerID:    recipient.ID,
		SegmentID:     c.SegmentID,
		CampaignID:    c.ID,
		MessageID:     msg.ID,
		SendID:        sendID,
		Status:        attempt.Outcome,
		FailureReason: attempt.FailureReason,
		Metadata:      domain.LogMetadata{Message: attempt.PersonalizedBody},
		SentAt:        sentAt,
	}

	if err := r.store.FinalizeOutcome(ctx, msg, logEntry); err != nil {
		return nil, fmt.Errorf("finalize outcome: %w", err)
	}
	return msg, nil
}
