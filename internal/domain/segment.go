package domain

import (
	"encoding/json"
	"time"
)

// Segment is a named, persisted audience definition: a rule tree plus a
// cached estimate of how many customers currently match it.
//
// Rules holds the serialized rule tree (see internal/segment for the
// model and evaluator). The tree is only ever replaced wholesale; there
// is no partial patching of nodes.
type Segment struct {
	ID          string          `json:"id" db:"id"`
	OwnerID     string          `json:"owner_id" db:"owner_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description,omitempty" db:"description"`
	Rules       json.RawMessage `json:"rules" db:"rules"`

	// EstimatedCount is a cached, potentially stale preview value. It is
	// refreshed by re-running the audience resolver, never trusted as an
	// invariant.
	EstimatedCount  int        `json:"estimated_count" db:"estimated_count"`
	LastEvaluatedAt *time.Time `json:"last_evaluated_at,omitempty" db:"last_evaluated_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
