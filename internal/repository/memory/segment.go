package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/engage/internal/domain"
	"github.com/ignite/engage/internal/service/segments"
)

// SegmentRepo implements segments.Repository in memory.
type SegmentRepo struct {
	mu   sync.RWMutex
	segs map[string]*domain.Segment // keyed by id
}

// NewSegmentRepo creates an empty in-memory segment repository.
func NewSegmentRepo() *SegmentRepo {
	return &SegmentRepo{segs: make(map[string]*domain.Segment)}
}

func (r *SegmentRepo) Get(_ context.Context, ownerID, id string) (*domain.Segment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.segs[id]
	if !ok || s.OwnerID != ownerID {
		return nil, segments.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *SegmentRepo) List(_ context.Context, ownerID string) ([]domain.Segment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Segment
	for _, s := range r.segs {
		if s.OwnerID == ownerID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *SegmentRepo) Create(_ context.Context, s *domain.Segment) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	cp := *s
	r.segs[s.ID] = &cp
	return s.ID, nil
}

func (r *SegmentRepo) Update(_ context.Context, ownerID, id string, u segments.UpdateFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.segs[id]
	if !ok || s.OwnerID != ownerID {
		return segments.ErrNotFound
	}
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Description != nil {
		s.Description = *u.Description
	}
	if u.Rules != nil {
		s.Rules = append([]byte(nil), u.Rules...)
	}
	s.UpdatedAt = time.Now()
	return nil
}

func (r *SegmentRepo) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.segs[id]
	if !ok || s.OwnerID != ownerID {
		return segments.ErrNotFound
	}
	delete(r.segs, id)
	return nil
}

func (r *SegmentRepo) UpdateEstimate(_ context.Context, ownerID, id string, count int, evaluatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.segs[id]
	if !ok || s.OwnerID != ownerID {
		return segments.ErrNotFound
	}
	s.EstimatedCount = count
	s.LastEvaluatedAt = &evaluatedAt
	s.UpdatedAt = time.Now()
	return nil
}
