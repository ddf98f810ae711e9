package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/engage/internal/domain"
)

// Service implements customer business logic. All public methods are
// safe for concurrent use if the underlying repository is
// concurrency-safe.
type Service struct {
	repo Repository
}

// NewService creates a customer service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a single customer.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*domain.Customer, error) {
	return s.repo.Get(ctx, ownerID, id)
}

// List returns customers matching the filter.
func (s *Service) List(ctx context.Context, ownerID string, f ListFilter) ([]domain.Customer, int, error) {
	return s.repo.List(ctx, ownerID, f)
}

// Create validates and persists a new customer. Emails are normalized
// to lower case and must be unique within the owner's customer base.
func (s *Service) Create(ctx context.Context, ownerID string, input CreateInput) (*domain.Customer, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	if _, err := s.repo.FindByEmail(ctx, ownerID, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	c := &domain.Customer{
		ID:             uuid.New().String(),
		OwnerID:        ownerID,
		Name:           input.Name,
		Email:          email,
		Phone:          input.Phone,
		TotalSpend:     input.TotalSpend,
		Visits:         input.Visits,
		LastActiveDate: input.LastActiveDate,
	}

	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = id
	return c, nil
}

// Update applies the given fields. A changed email is normalized and
// re-checked for uniqueness against the owner's other customers.
func (s *Service) Update(ctx context.Context, ownerID, id string, u UpdateFields) (*domain.Customer, error) {
	if u.Email != nil {
		email := normalizeEmail(*u.Email)
		if email == "" {
			return nil, fmt.Errorf("email cannot be empty")
		}
		existing, err := s.repo.FindByEmail(ctx, ownerID, email)
		if err == nil && existing.ID != id {
			return nil, ErrDuplicateEmail
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		u.Email = &email
	}
	if err := s.repo.Update(ctx, ownerID, id, u); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, ownerID, id)
}

// Delete removes a customer.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.Delete(ctx, ownerID, id)
}

// RecordVisit bumps the visit counter and activity timestamp, the way a
// storefront integration would on each session.
func (s *Service) RecordVisit(ctx context.Context, ownerID, id string, at time.Time, spend float64) (*domain.Customer, error) {
	c, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	visits := c.Visits + 1
	total := c.TotalSpend + spend
	u := UpdateFields{Visits: &visits, TotalSpend: &total, LastActiveDate: &at}
	if err := s.repo.Update(ctx, ownerID, id, u); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, ownerID, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateInput holds the fields for creating a new customer.
type CreateInput struct {
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	TotalSpend     float64   `json:"total_spend"`
	Visits         int       `json:"visits"`
	LastActiveDate time.Time `json:"last_active_date"`
}
