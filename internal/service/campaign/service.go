package campaign

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/ignite/engage/internal/audience"
	"github.com/ignite/engage/internal/domain"
	"github.com/ignite/engage/internal/segment"
	"github.com/ignite/engage/internal/service/delivery"
)

// SegmentGetter is the read access the campaign service needs to the
// segment store: resolving a campaign's target at create and send time.
type SegmentGetter interface {
	Get(ctx context.Context, ownerID, id string) (*domain.Segment, error)
}

// Dispatcher runs a send against a resolved audience and returns the
// per-send report. Implemented by delivery.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, c *domain.Campaign, audience []domain.Customer) (*delivery.Report, error)
}

// Service implements campaign business logic. It coordinates the
// repository, the segment store, the audience resolver, and the delivery
// dispatcher. All public methods are safe for concurrent use if the
// underlying stores are concurrency-safe.
type Service struct {
	repo       Repository
	segments   SegmentGetter
	resolver   *audience.Resolver
	dispatcher Dispatcher
}

// NewService creates a campaign service.
func NewService(repo Repository, segs SegmentGetter, resolver *audience.Resolver, dispatcher Dispatcher) *Service {
	return &Service{repo: repo, segments: segs, resolver: resolver, dispatcher: dispatcher}
}

// Get returns a single campaign.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*domain.Campaign, error) {
	return s.repo.Get(ctx, ownerID, id)
}

// List returns campaigns matching the filter.
func (s *Service) List(ctx context.Context, ownerID string, f ListFilter) ([]domain.Campaign, int, error) {
	return s.repo.List(ctx, ownerID, f)
}

// Create validates and persists a new campaign in draft status. The
// target segment must exist and belong to the same owner.
func (s *Service) Create(ctx context.Context, ownerID string, input CreateInput) (*domain.Campaign, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if input.Content.Body == "" {
		return nil, fmt.Errorf("message body is required")
	}
	t := domain.CampaignType(input.Type)
	if input.Type == "" {
		t = domain.CampaignEmail
	} else if !domain.ValidType(t) {
		return nil, fmt.Errorf("unknown campaign type %q", input.Type)
	}

	if _, err := s.segments.Get(ctx, ownerID, input.SegmentID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSegmentNotFound, err)
	}

	c := &domain.Campaign{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		SegmentID:   input.SegmentID,
		Name:        input.Name,
		Description: input.Description,
		Type:        t,
		Status:      domain.CampaignDraft,
		Content:     input.Content,
	}

	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = id
	return c, nil
}

// Update modifies mutable campaign fields. Only draft campaigns can be
// edited; the repository enforces that.
func (s *Service) Update(ctx context.Context, ownerID, id string, u UpdateFields) error {
	return s.repo.Update(ctx, ownerID, id, u)
}

// Delete removes a campaign (only draft/cancelled).
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.Delete(ctx, ownerID, id)
}

// Send resolves the campaign's segment to a concrete audience and runs
// the delivery dispatcher against it. Delivery goes to exactly the
// customers matching the segment at this moment, never the whole base.
//
// The dispatcher's compare-and-swap into sending makes concurrent
// sends of the same campaign lose with ErrAlreadySending.
func (s *Service) Send(ctx context.Context, ownerID, campaignID string) (*delivery.Report, error) {
	c, err := s.repo.Get(ctx, ownerID, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.CampaignDraft && c.Status != domain.CampaignScheduled {
		return nil, ErrAlreadySending
	}

	seg, err := s.segments.Get(ctx, ownerID, c.SegmentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSegmentNotFound, err)
	}

	rules, err := segment.Decode(seg.Rules)
	if err != nil {
		return nil, fmt.Errorf("decode segment rules: %w", err)
	}

	recipients, err := s.resolver.Resolve(ctx, ownerID, rules)
	if err != nil {
		return nil, fmt.Errorf("resolve audience: %w", err)
	}
	if len(recipients) == 0 {
		return nil, ErrEmptyAudience
	}

	report, err := s.dispatcher.Dispatch(ctx, c, recipients)
	if err != nil {
		if errors.Is(err, delivery.ErrAlreadySending) {
			return nil, ErrAlreadySending
		}
		return nil, err
	}

	log.Printf("[campaign.Service] Campaign %s: sent=%d failed=%d of %d recipients",
		campaignID, report.Sent, report.Failed, report.MessageCount)
	return report, nil
}

// CreateInput holds the fields for creating a new campaign.
type CreateInput struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Type        string                `json:"type"`
	SegmentID   string                `json:"segment_id"`
	Content     domain.MessageContent `json:"content"`
}
