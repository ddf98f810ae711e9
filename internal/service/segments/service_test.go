package segments_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ignite/engage/internal/audience"
	"github.com/ignite/engage/internal/domain"
	"github.com/ignite/engage/internal/service/segments"
)

// memRepo is an in-memory segment repository for unit testing.
type memRepo struct {
	mu   sync.Mutex
	segs map[string]*domain.Segment // keyed by id
}

func newMemRepo() *memRepo {
	return &memRepo{segs: make(map[string]*domain.Segment)}
}

func (m *memRepo) Get(_ context.Context, ownerID, id string) (*domain.Segment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.segs[id]
	if !ok || s.OwnerID != ownerID {
		return nil, segments.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, ownerID string) ([]domain.Segment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Segment
	for _, s := range m.segs {
		if s.OwnerID == ownerID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memRepo) Create(_ context.Context, s *domain.Segment) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.segs[s.ID] = &cp
	return s.ID, nil
}

func (m *memRepo) Update(_ context.Context, ownerID, id string, u segments.UpdateFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.segs[id]
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
		s.Rules = u.Rules
	}
	return nil
}

func (m *memRepo) Delete(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.segs[id]
	if !ok || s.OwnerID != ownerID {
		return segments.ErrNotFound
	}
	delete(m.segs, id)
	return nil
}

func (m *memRepo) UpdateEstimate(_ context.Context, ownerID, id string, count int, evaluatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.segs[id]
	if !ok || s.OwnerID != ownerID {
		return segments.ErrNotFound
	}
	s.EstimatedCount = count
	s.LastEvaluatedAt = &evaluatedAt
	return nil
}

// staticCustomers backs the resolver with a fixed customer list.
type staticCustomers struct {
	customers []domain.Customer
}

func (s *staticCustomers) ListByOwner(_ context.Context, ownerID string) ([]domain.Customer, error) {
	var out []domain.Customer
	for _, c := range s.customers {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func highSpendersRule(threshold string) json.RawMessage {
	return json.RawMessage(`{"combinator":"AND","rules":[{"field":"total_spend","operator":">","value":"` + threshold + `"}]}`)
}

func newTestService(customers []domain.Customer) (*segments.Service, *memRepo) {
	repo := newMemRepo()
	resolver := audience.NewResolver(&staticCustomers{customers: customers})
	return segments.NewService(repo, resolver), repo
}

func spendAudience(spends ...float64) []domain.Customer {
	out := make([]domain.Customer, 0, len(spends))
	for i, spend := range spends {
		out = append(out, domain.Customer{
			ID:         string(rune('a' + i)),
			OwnerID:    "owner-1",
			TotalSpend: spend,
		})
	}
	return out
}

func TestCreateEstimatesAudience(t *testing.T) {
	svc, repo := newTestService(spendAudience(500, 1500, 2000))

	seg, err := svc.Create(context.Background(), "owner-1", segments.CreateInput{
		Name:  "High spenders",
		Rules: highSpendersRule("1000"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if seg.EstimatedCount != 2 {
		t.Errorf("EstimatedCount = %d, want 2", seg.EstimatedCount)
	}
	if seg.LastEvaluatedAt == nil {
		t.Error("LastEvaluatedAt not set")
	}

	stored, err := repo.Get(context.Background(), "owner-1", seg.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.EstimatedCount != 2 {
		t.Errorf("stored EstimatedCount = %d, want 2", stored.EstimatedCount)
	}
}

func TestCreateRejectsInvalidRules(t *testing.T) {
	svc, _ := newTestService(nil)

	cases := []struct {
		name  string
		rules json.RawMessage
	}{
		{"missing rules", nil},
		{"unknown field", json.RawMessage(`{"combinator":"AND","rules":[{"field":"loyalty_tier","operator":">","value":"3"}]}`)},
		{"unknown operator", json.RawMessage(`{"combinator":"AND","rules":[{"field":"visits","operator":"~","value":"3"}]}`)},
		{"bad combinator", json.RawMessage(`{"combinator":"XOR","rules":[]}`)},
		{"malformed json", json.RawMessage(`{"combinator":`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "owner-1", segments.CreateInput{Name: "x", Rules: tc.rules})
			if !errors.Is(err, segments.ErrInvalidRules) {
				t.Errorf("err = %v, want ErrInvalidRules", err)
			}
		})
	}
}

func TestCreateRequiresName(t *testing.T) {
	svc, _ := newTestService(nil)
	_, err := svc.Create(context.Background(), "owner-1", segments.CreateInput{Rules: highSpendersRule("1000")})
	if err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestUpdateReplacesRulesAndReEstimates(t *testing.T) {
	svc, _ := newTestService(spendAudience(500, 1500, 2000))

	seg, err := svc.Create(context.Background(), "owner-1", segments.CreateInput{
		Name:  "High spenders",
		Rules: highSpendersRule("1000"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(context.Background(), "owner-1", seg.ID, segments.UpdateFields{
		Rules: highSpendersRule("1800"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.EstimatedCount != 1 {
		t.Errorf("EstimatedCount = %d, want 1 after tightening the rule", updated.EstimatedCount)
	}
}

func TestUpdateRejectsInvalidRulesWithoutWriting(t *testing.T) {
	svc, repo := newTestService(spendAudience(500, 1500))

	seg, err := svc.Create(context.Background(), "owner-1", segments.CreateInput{
		Name:  "High spenders",
		Rules: highSpendersRule("1000"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Update(context.Background(), "owner-1", seg.ID, segments.UpdateFields{
		Rules: json.RawMessage(`{"combinator":"NAND","rules":[]}`),
	})
	if !errors.Is(err, segments.ErrInvalidRules) {
		t.Fatalf("err = %v, want ErrInvalidRules", err)
	}

	stored, _ := repo.Get(context.Background(), "owner-1", seg.ID)
	if string(stored.Rules) != string(highSpendersRule("1000")) {
		t.Error("invalid update must not replace the stored rules")
	}
}

func TestPreviewIsIdempotent(t *testing.T) {
	svc, _ := newTestService(spendAudience(500, 1500, 2000))

	first, err := svc.Preview(context.Background(), "owner-1", highSpendersRule("1000"))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	second, err := svc.Preview(context.Background(), "owner-1", highSpendersRule("1000"))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if first != 2 || second != 2 {
		t.Errorf("counts = %d, %d; want 2, 2", first, second)
	}
}

func TestPreviewScopesToOwner(t *testing.T) {
	customers := append(spendAudience(1500, 2000), domain.Customer{
		ID: "other", OwnerID: "owner-2", TotalSpend: 9000,
	})
	svc, _ := newTestService(customers)

	count, err := svc.Preview(context.Background(), "owner-2", highSpendersRule("1000"))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (only owner-2's customer)", count)
	}
}

func TestRefreshRecomputesEstimate(t *testing.T) {
	store := &staticCustomers{customers: spendAudience(1500)}
	repo := newMemRepo()
	svc := segments.NewService(repo, audience.NewResolver(store))

	seg, err := svc.Create(context.Background(), "owner-1", segments.CreateInput{
		Name:  "High spenders",
		Rules: highSpendersRule("1000"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if seg.EstimatedCount != 1 {
		t.Fatalf("EstimatedCount = %d, want 1", seg.EstimatedCount)
	}

	// New matching customers arrive after creation.
	store.customers = append(store.customers, spendAudience(0, 3000)[1])

	refreshed, err := svc.Refresh(context.Background(), "owner-1", seg.ID)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.EstimatedCount != 2 {
		t.Errorf("EstimatedCount = %d, want 2 after refresh", refreshed.EstimatedCount)
	}
}

func TestDeleteUnknownSegment(t *testing.T) {
	svc, _ := newTestService(nil)
	if err := svc.Delete(context.Background(), "owner-1", "nope"); !errors.Is(err, segments.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
