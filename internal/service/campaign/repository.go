package campaign

import (
	"context"
	"time"

	"github.com/ignite/engage/internal/domain"
)

// Repository defines the data access contract for campaigns.
// Implementations must be safe for concurrent use and must also satisfy
// delivery.CampaignStore, which the dispatcher uses for its status CAS.
type Repository interface {
	// Get returns a single campaign. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, ownerID, id string) (*domain.Campaign, error)

	// List returns campaigns matching the given filter, ordered by
	// created_at DESC, plus the total before pagination.
	List(ctx context.Context, ownerID string, filter ListFilter) ([]domain.Campaign, int, error)

	// Create inserts a new campaign and returns its ID.
	Create(ctx context.Context, c *domain.Campaign) (string, error)

	// Update modifies a campaign. Only non-nil fields in the update are applied.
	Update(ctx context.Context, ownerID, id string, u UpdateFields) error

	// Delete removes a campaign. Only draft/cancelled campaigns can be deleted.
	Delete(ctx context.Context, ownerID, id string) error

	// TransitionStatus atomically moves a campaign from one status to
	// another. Returns ErrInvalidTransition if the current status is not
	// exactly `from`.
	TransitionStatus(ctx context.Context, ownerID, id string, from, to domain.CampaignStatus) error

	// CompleteSend records final metrics, stamps CompletedAt, and flips
	// status to sent in one write.
	CompleteSend(ctx context.Context, ownerID, id string, m domain.CampaignMetrics, completedAt time.Time) error
}

// ListFilter controls pagination and filtering for campaign lists.
type ListFilter struct {
	Status string
	Search string
	Limit  int
	Offset int
}

// UpdateFields holds the mutable fields for a campaign update.
// Nil fields are not applied.
type UpdateFields struct {
	Name      *string `json:"name,omitempty"`
	SegmentID *string `json:"segment_id,omitempty"`
	Subject   *string `json:"subject,omitempty"`
	Body      *string `json:"body,omitempty"`
	MediaURL  *string `json:"media_url,omitempty"`
}
