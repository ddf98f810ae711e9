package delivery

import (
	"context"
	"time"

	"github.com/ignite/engage/internal/domain"
)

// Outcome is a provider's verdict for one recipient.
type Outcome struct {
	Status domain.DeliveryStatus
	Reason string
}

// Provider delivers one personalized message to one recipient.
// Implementations must be safe for concurrent use; the dispatcher calls
// Send from multiple workers.
type Provider interface {
	Send(ctx context.Context, recipient domain.Customer, content domain.MessageContent) (Outcome, error)
}

// CampaignStore is the write access the dispatcher needs to advance a
// campaign through a send. Implementations must be safe for concurrent
// use.
type CampaignStore interface {
	// TransitionStatus atomically moves a campaign from one status to
	// another. It fails with the repository's invalid-transition error
	// if the current status is not exactly `from` — this
	// compare-and-swap is the single-flight guard for sends.
	TransitionStatus(ctx context.Context, ownerID, id string, from, to domain.CampaignStatus) error

	// CompleteSend records the final metrics, stamps CompletedAt, and
	// flips status to sent in one write.
	CompleteSend(ctx context.Context, ownerID, id string, m domain.CampaignMetrics, completedAt time.Time) error
}

// OutcomeStore persists per-recipient delivery records. FinalizeOutcome
// must apply the message's terminal update and the log append
// atomically, so that exactly one Message and one CommunicationLog row
// exist per (campaign, customer, send) even under concurrent dispatch.
type OutcomeStore interface {
	CreateQueued(ctx context.Context, msg *domain.Message) error
	FinalizeOutcome(ctx context.Context, msg *domain.Message, logEntry *domain.CommunicationLog) error
}

// LogStore is the read/update access the API layer has to communication
// logs: listing for the audit view and applying vendor delivery
// receipts.
type LogStore interface {
	// ListLogs returns the owner's logs, newest first.
	ListLogs(ctx context.Context, ownerID string) ([]domain.CommunicationLog, error)

	// UpdateLogStatus applies a delivery receipt to the log row of the
	// given message. Vendor callbacks carry the message ID, not the log
	// row ID. A message without a log entry is ErrLogNotFound.
	UpdateLogStatus(ctx context.Context, ownerID, messageID string, status domain.DeliveryStatus, reason string) error
}
