// Package audience resolves segment rule trees against the customer
// store, either as a cheap count-only preview or as a fully materialized
// recipient list for dispatch.
package audience

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ignite/engage/internal/domain"
	"github.com/ignite/engage/internal/segment"
)

// CustomerStore is the read-only view of the customer store the resolver
// needs. Implementations must be safe for concurrent use.
type CustomerStore interface {
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Customer, error)
}

// Resolver evaluates rule trees against the current customer snapshot.
// It holds no cache and has no side effects; both Preview and Resolve
// read the store fresh on every call.
type Resolver struct {
	store CustomerStore
	now   func() time.Time
}

// NewResolver creates a resolver over the given customer store.
func NewResolver(store CustomerStore) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// WithClock overrides the evaluation clock. Tests use this to pin
// time-relative rules (inactive_days) to a fixed instant.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Preview returns the number of the owner's customers matching the tree.
// Calling Preview twice against an unchanged store returns the same count.
func (r *Resolver) Preview(ctx context.Context, ownerID string, rules segment.Node) (int, error) {
	matched, err := r.Resolve(ctx, ownerID, rules)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

// Resolve materializes the matching audience, ordered by creation time
// (ties broken by ID) so that dispatch over the result is reproducible.
func (r *Resolver) Resolve(ctx context.Context, ownerID string, rules segment.Node) ([]domain.Customer, error) {
	customers, err := r.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	ectx := segment.EvalContext{Now: r.now()}
	matched, err := segment.Match(rules, customers, ectx)
	if err != nil {
		return nil, fmt.Errorf("evaluate segment: %w", err)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	return matched, nil
}
