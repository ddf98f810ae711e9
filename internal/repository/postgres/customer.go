package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/engage/internal/domain"
	"github.com/ignite/engage/internal/service/customer"
)

// CustomerRepo implements customer.Repository against PostgreSQL.
type CustomerRepo struct{ db *sql.DB }

// NewCustomerRepo creates a Postgres-backed customer repository.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

const customerColumns = `id, owner_id, name, email, COALESCE(phone,''),
	total_spend, visits, last_active_date, created_at, updated_at`

// scanCustomer maps one row. A NULL last_active_date stays the zero
// time, which the segment evaluator treats as "no activity recorded".
func scanCustomer(row interface{ Scan(...interface{}) error }, c *domain.Customer) error {
	var lastActive sql.NullTime
	if err := row.Scan(
		&c.ID, &c.OwnerID, &c.Name, &c.Email, &c.Phone,
		&c.TotalSpend, &c.Visits, &lastActive,
		&c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return err
	}
	if lastActive.Valid {
		c.LastActiveDate = lastActive.Time
	}
	return nil
}

func (r *CustomerRepo) Get(ctx context.Context, ownerID, id string) (*domain.Customer, error) {
	c := &domain.Customer{}
	err := scanCustomer(r.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE id = $1 AND owner_id = $2
	`, id, ownerID), c)
	if err == sql.ErrNoRows {
		return nil, customer.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (r *CustomerRepo) List(ctx context.Context, ownerID string, f customer.ListFilter) ([]domain.Customer, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	countQ := `SELECT COUNT(*) FROM customers WHERE owner_id = $1`
	countArgs := []interface{}{ownerID}
	if f.Search != "" {
		countQ += ` AND (name ILIKE $2 OR email ILIKE $2)`
		countArgs = append(countArgs, "%"+f.Search+"%")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	q := `SELECT ` + customerColumns + ` FROM customers WHERE owner_id = $1`
	args := []interface{}{ownerID}
	idx := 2
	if f.Search != "" {
		q += fmt.Sprintf(" AND (name ILIKE $%d OR email ILIKE $%d)", idx, idx)
		args = append(args, "%"+f.Search+"%")
		idx++
	}
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, 0, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *CustomerRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE owner_id = $1
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CustomerRepo) FindByEmail(ctx context.Context, ownerID, email string) (*domain.Customer, error) {
	c := &domain.Customer{}
	err := scanCustomer(r.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE owner_id = $1 AND lower(email) = lower($2)
	`, ownerID, email), c)
	if err == sql.ErrNoRows {
		return nil, customer.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find customer by email: %w", err)
	}
	return c, nil
}

func (r *CustomerRepo) Create(ctx context.Context, c *domain.Customer) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	var lastActive interface{}
	if !c.LastActiveDate.IsZero() {
		lastActive = c.LastActiveDate
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customers
			(id, owner_id, name, email, phone, total_spend, visits, last_active_date,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`, c.ID, c.OwnerID, c.Name, c.Email, c.Phone, c.TotalSpend, c.Visits, lastActive)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return "", customer.ErrDuplicateEmail
		}
		return "", fmt.Errorf("create customer: %w", err)
	}
	return c.ID, nil
}

func (r *CustomerRepo) Update(ctx context.Context, ownerID, id string, u customer.UpdateFields) error {
	sets := []string{}
	args := []interface{}{}
	idx := 1
	add := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}

	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.Email != nil {
		add("email", *u.Email)
	}
	if u.Phone != nil {
		add("phone", *u.Phone)
	}
	if u.TotalSpend != nil {
		add("total_spend", *u.TotalSpend)
	}
	if u.Visits != nil {
		add("visits", *u.Visits)
	}
	if u.LastActiveDate != nil {
		add("last_active_date", *u.LastActiveDate)
	}

	if len(sets) == 0 {
		return nil
	}

	q := fmt.Sprintf("UPDATE customers SET %s, updated_at = NOW() WHERE id = $%d AND owner_id = $%d",
		joinComma(sets), idx, idx+1)
	args = append(args, id, ownerID)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return customer.ErrDuplicateEmail
		}
		return fmt.Errorf("update customer: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return customer.ErrNotFound
	}
	return nil
}

func (r *CustomerRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM customers WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return customer.ErrNotFound
	}
	return nil
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
