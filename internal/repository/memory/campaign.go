package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/engage/internal/domain"
	"github.com/ignite/engage/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository in memory. The status
// compare-and-swap in TransitionStatus runs under the repository lock,
// so it is a real single-flight guard, not just a best effort.
type CampaignRepo struct {
	mu        sync.RWMutex
	campaigns map[string]*domain.Campaign // keyed by id
}

// NewCampaignRepo creates an empty in-memory campaign repository.
func NewCampaignRepo() *CampaignRepo {
	return &CampaignRepo{campaigns: make(map[string]*domain.Campaign)}
}

func (r *CampaignRepo) Get(_ context.Context, ownerID, id string) (*domain.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.campaigns[id]
	if !ok || c.OwnerID != ownerID {
		return nil, campaign.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *CampaignRepo) List(_ context.Context, ownerID string, f campaign.ListFilter) ([]domain.Campaign, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Campaign
	needle := strings.ToLower(f.Search)
	for _, c := range r.campaigns {
		if c.OwnerID != ownerID {
			continue
		}
		if f.Status != "" && string(c.Status) != f.Status {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(c.Name), needle) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	total := len(out)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, total, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (r *CampaignRepo) Create(_ context.Context, c *domain.Campaign) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	cp := *c
	r.campaigns[c.ID] = &cp
	return c.ID, nil
}

func (r *CampaignRepo) Update(_ context.Context, ownerID, id string, u campaign.UpdateFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok || c.OwnerID != ownerID {
		return campaign.ErrNotFound
	}
	if c.Status != domain.CampaignDraft {
		return fmt.Errorf("%w: only draft campaigns can be edited", campaign.ErrInvalidTransition)
	}
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.SegmentID != nil {
		c.SegmentID = *u.SegmentID
	}
	if u.Subject != nil {
		c.Content.Subject = *u.Subject
	}
	if u.Body != nil {
		c.Content.Body = *u.Body
	}
	if u.MediaURL != nil {
		c.Content.MediaURL = *u.MediaURL
	}
	c.UpdatedAt = time.Now()
	return nil
}

func (r *CampaignRepo) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok || c.OwnerID != ownerID {
		return campaign.ErrNotFound
	}
	if c.Status != domain.CampaignDraft && c.Status != domain.CampaignCancelled {
		return campaign.ErrInvalidTransition
	}
	delete(r.campaigns, id)
	return nil
}

func (r *CampaignRepo) TransitionStatus(_ context.Context, ownerID, id string, from, to domain.CampaignStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok || c.OwnerID != ownerID {
		return campaign.ErrNotFound
	}
	if c.Status != from {
		return fmt.Errorf("%w: %s -> %s (current %s)", campaign.ErrInvalidTransition, from, to, c.Status)
	}
	c.Status = to
	if to == domain.CampaignSending {
		now := time.Now()
		c.StartedAt = &now
	}
	c.UpdatedAt = time.Now()
	return nil
}

func (r *CampaignRepo) CompleteSend(_ context.Context, ownerID, id string, m domain.CampaignMetrics, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok || c.OwnerID != ownerID {
		return campaign.ErrNotFound
	}
	c.Status = domain.CampaignSent
	c.Metrics = m
	c.CompletedAt = &completedAt
	c.UpdatedAt = time.Now()
	return nil
}
