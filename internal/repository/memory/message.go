package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ignite/engage/internal/domain"
	"github.com/ignite/engage/internal/service/delivery"
)

// MessageRepo implements delivery.OutcomeStore and delivery.LogStore in
// memory. FinalizeOutcome applies the message update and the log append
// under one lock, matching the transactional behavior of the Postgres
// implementation.
type MessageRepo struct {
	mu       sync.RWMutex
	messages map[string]*domain.Message // keyed by id
	logs     []*domain.CommunicationLog // append order
}

// NewMessageRepo creates an empty in-memory message repository.
func NewMessageRepo() *MessageRepo {
	return &MessageRepo{messages: make(map[string]*domain.Message)}
}

func (r *MessageRepo) CreateQueued(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *msg
	r.messages[msg.ID] = &cp
	return nil
}

func (r *MessageRepo) FinalizeOutcome(_ context.Context, msg *domain.Message, logEntry *domain.CommunicationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	mc := *msg
	r.messages[msg.ID] = &mc
	lc := *logEntry
	r.logs = append(r.logs, &lc)
	return nil
}

func (r *MessageRepo) ListLogs(_ context.Context, ownerID string) ([]domain.CommunicationLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.CommunicationLog
	for _, l := range r.logs {
		if l.OwnerID == ownerID {
			out = append(out, *l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	return out, nil
}

func (r *MessageRepo) UpdateLogStatus(_ context.Context, ownerID, messageID string, status domain.DeliveryStatus, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.logs {
		if l.MessageID == messageID && l.OwnerID == ownerID {
			l.Status = status
			l.FailureReason = reason
			if msg, ok := r.messages[l.MessageID]; ok {
				if status == domain.DeliverySent {
					msg.Status = domain.MessageDelivered
					msg.FailureReason = ""
				} else {
					msg.Status = domain.MessageFailed
					msg.FailureReason = reason
				}
			}
			return nil
		}
	}
	return delivery.ErrLogNotFound
}

// GetMessage returns a stored message by ID, for tests and debugging.
func (r *MessageRepo) GetMessage(_ context.Context, ownerID, id string) (*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.messages[id]
	if !ok || m.OwnerID != ownerID {
		return nil, delivery.ErrLogNotFound
	}
	cp := *m
	return &cp, nil
}
