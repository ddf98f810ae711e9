package segments

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ignite/engage/internal/domain"
)

// Repository defines the data access contract for segments.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single segment. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, ownerID, id string) (*domain.Segment, error)

	// List returns the owner's segments, ordered by created_at DESC.
	List(ctx context.Context, ownerID string) ([]domain.Segment, error)

	// Create inserts a new segment and returns its ID.
	Create(ctx context.Context, s *domain.Segment) (string, error)

	// Update modifies a segment. Only non-nil fields in the update are applied;
	// Rules replaces the whole tree when set.
	Update(ctx context.Context, ownerID, id string, u UpdateFields) error

	// Delete removes a segment. Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, ownerID, id string) error

	// UpdateEstimate stores a freshly computed audience size and evaluation
	// timestamp without touching the rest of the segment.
	UpdateEstimate(ctx context.Context, ownerID, id string, count int, evaluatedAt time.Time) error
}

// UpdateFields holds the mutable fields for a segment update.
// Nil fields are not applied.
type UpdateFields struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Rules       json.RawMessage `json:"rules,omitempty"`
}
