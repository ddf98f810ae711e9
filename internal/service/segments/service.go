package segments

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/engage/internal/audience"
	"github.com/ignite/engage/internal/domain"
	"github.com/ignite/engage/internal/segment"
)

// Service implements segment business logic. It validates rule trees
// before they are stored and keeps the audience-size estimate current.
// All public methods are safe for concurrent use if the underlying
// repository is concurrency-safe.
type Service struct {
	repo     Repository
	resolver *audience.Resolver
	now      func() time.Time
}

// NewService creates a segment service backed by the given repository
// and audience resolver.
func NewService(repo Repository, resolver *audience.Resolver) *Service {
	return &Service{repo: repo, resolver: resolver, now: time.Now}
}

// WithClock overrides the service clock for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Get returns a single segment.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*domain.Segment, error) {
	return s.repo.Get(ctx, ownerID, id)
}

// List returns the owner's segments.
func (s *Service) List(ctx context.Context, ownerID string) ([]domain.Segment, error) {
	return s.repo.List(ctx, ownerID)
}

// Create validates the rule tree, previews its audience size, and
// persists the segment with the estimate already filled in.
func (s *Service) Create(ctx context.Context, ownerID string, input CreateInput) (*domain.Segment, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("name is required")
	}

	rules, err := s.parseRules(input.Rules)
	if err != nil {
		return nil, err
	}

	count, err := s.resolver.Preview(ctx, ownerID, rules)
	if err != nil {
		return nil, fmt.Errorf("preview audience: %w", err)
	}

	evaluatedAt := s.now()
	seg := &domain.Segment{
		ID:              uuid.New().String(),
		OwnerID:         ownerID,
		Name:            input.Name,
		Description:     input.Description,
		Rules:           input.Rules,
		EstimatedCount:  count,
		LastEvaluatedAt: &evaluatedAt,
	}

	id, err := s.repo.Create(ctx, seg)
	if err != nil {
		return nil, err
	}
	seg.ID = id
	log.Printf("[segments.Service] Segment %s created (estimated audience %d)", id, count)
	return seg, nil
}

// Update applies the given fields. A new rule tree replaces the stored
// one wholesale and triggers a fresh estimate; there is no merging of
// partial trees.
func (s *Service) Update(ctx context.Context, ownerID, id string, u UpdateFields) (*domain.Segment, error) {
	if u.Rules != nil {
		rules, err := s.parseRules(u.Rules)
		if err != nil {
			return nil, err
		}
		if err := s.repo.Update(ctx, ownerID, id, u); err != nil {
			return nil, err
		}
		count, err := s.resolver.Preview(ctx, ownerID, rules)
		if err != nil {
			return nil, fmt.Errorf("preview audience: %w", err)
		}
		if err := s.repo.UpdateEstimate(ctx, ownerID, id, count, s.now()); err != nil {
			return nil, err
		}
	} else if err := s.repo.Update(ctx, ownerID, id, u); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, ownerID, id)
}

// Delete removes a segment.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.Delete(ctx, ownerID, id)
}

// Preview evaluates an ad-hoc rule tree against the owner's current
// customers without persisting anything. The same tree against an
// unchanged customer base yields the same count.
func (s *Service) Preview(ctx context.Context, ownerID string, raw json.RawMessage) (int, error) {
	rules, err := s.parseRules(raw)
	if err != nil {
		return 0, err
	}
	return s.resolver.Preview(ctx, ownerID, rules)
}

// Refresh recomputes a stored segment's audience estimate.
func (s *Service) Refresh(ctx context.Context, ownerID, id string) (*domain.Segment, error) {
	seg, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	rules, err := s.parseRules(seg.Rules)
	if err != nil {
		return nil, err
	}
	count, err := s.resolver.Preview(ctx, ownerID, rules)
	if err != nil {
		return nil, fmt.Errorf("preview audience: %w", err)
	}
	if err := s.repo.UpdateEstimate(ctx, ownerID, id, count, s.now()); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, ownerID, id)
}

// parseRules decodes and validates a rule tree, wrapping every problem
// in ErrInvalidRules so handlers can map it to a 400.
func (s *Service) parseRules(raw json.RawMessage) (segment.Node, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: rules are required", ErrInvalidRules)
	}
	rules, err := segment.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	if errs := segment.Validate(rules); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, errs[0])
	}
	return rules, nil
}

// CreateInput holds the fields for creating a new segment.
type CreateInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Rules       json.RawMessage `json:"rules"`
}
