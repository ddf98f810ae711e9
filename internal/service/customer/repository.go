package customer

import (
	"context"
	"time"

	"github.com/ignite/engage/internal/domain"
)

// Repository defines the data access contract for customers.
// Implementations must be safe for concurrent use and must also satisfy
// audience.CustomerStore (ListByOwner) so the resolver reads the same
// store the CRUD surface writes.
type Repository interface {
	// Get returns a single customer. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, ownerID, id string) (*domain.Customer, error)

	// List returns customers matching the filter, ordered by created_at
	// DESC, plus the total before pagination.
	List(ctx context.Context, ownerID string, filter ListFilter) ([]domain.Customer, int, error)

	// ListByOwner returns all of the owner's customers, unpaginated.
	// Segment evaluation reads through this.
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Customer, error)

	// FindByEmail returns the owner's customer with the given email, or
	// ErrNotFound.
	FindByEmail(ctx context.Context, ownerID, email string) (*domain.Customer, error)

	// Create inserts a new customer and returns its ID.
	Create(ctx context.Context, c *domain.Customer) (string, error)

	// Update modifies a customer. Only non-nil fields in the update are applied.
	Update(ctx context.Context, ownerID, id string, u UpdateFields) error

	// Delete removes a customer. Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, ownerID, id string) error
}

// ListFilter controls pagination and filtering for customer lists.
type ListFilter struct {
	Search string // matches name or email, case-insensitive
	Limit  int
	Offset int
}

// UpdateFields holds the mutable fields for a customer update.
// Nil fields are not applied.
type UpdateFields struct {
	Name           *string    `json:"name,omitempty"`
	Email          *string    `json:"email,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	TotalSpend     *float64   `json:"total_spend,omitempty"`
	Visits         *int       `json:"visits,omitempty"`
	LastActiveDate *time.Time `json:"last_active_date,omitempty"`
}
