package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/engage/internal/domain"
	"github.com/ignite/engage/internal/service/customer"
)

// CustomerRepo implements customer.Repository in memory. It also
// satisfies audience.CustomerStore.
type CustomerRepo struct {
	mu        sync.RWMutex
	customers map[string]*domain.Customer // keyed by id
}

// NewCustomerRepo creates an empty in-memory customer repository.
func NewCustomerRepo() *CustomerRepo {
	return &CustomerRepo{customers: make(map[string]*domain.Customer)}
}

func (r *CustomerRepo) Get(_ context.Context, ownerID, id string) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[id]
	if !ok || c.OwnerID != ownerID {
		return nil, customer.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *CustomerRepo) List(_ context.Context, ownerID string, f customer.ListFilter) ([]domain.Customer, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Customer
	needle := strings.ToLower(f.Search)
	for _, c := range r.customers {
		if c.OwnerID != ownerID {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(c.Name), needle) &&
			!strings.Contains(strings.ToLower(c.Email), needle) {
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

func (r *CustomerRepo) ListByOwner(_ context.Context, ownerID string) ([]domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Customer
	for _, c := range r.customers {
		if c.OwnerID == ownerID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *CustomerRepo) FindByEmail(_ context.Context, ownerID, email string) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.customers {
		if c.OwnerID == ownerID && strings.EqualFold(c.Email, email) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, customer.ErrNotFound
}

func (r *CustomerRepo) Create(_ context.Context, c *domain.Customer) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	cp := *c
	r.customers[c.ID] = &cp
	return c.ID, nil
}

func (r *CustomerRepo) Update(_ context.Context, ownerID, id string, u customer.UpdateFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok || c.OwnerID != ownerID {
		return customer.ErrNotFound
	}
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Email != nil {
		c.Email = *u.Email
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	if u.TotalSpend != nil {
		c.TotalSpend = *u.TotalSpend
	}
	if u.Visits != nil {
		c.Visits = *u.Visits
	}
	if u.LastActiveDate != nil {
		c.LastActiveDate = *u.LastActiveDate
	}
	c.UpdatedAt = time.Now()
	return nil
}

func (r *CustomerRepo) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok || c.OwnerID != ownerID {
		return customer.ErrNotFound
	}
	delete(r.customers, id)
	return nil
}
