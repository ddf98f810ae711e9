package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/engage/internal/domain"
	"github.com/ignite/engage/internal/service/segments"
)

// SegmentRepo implements segments.Repository against PostgreSQL. Rule
// trees are stored as jsonb and round-tripped opaquely.
type SegmentRepo struct{ db *sql.DB }

// NewSegmentRepo creates a Postgres-backed segment repository.
func NewSegmentRepo(db *sql.DB) *SegmentRepo { return &SegmentRepo{db: db} }

func scanSegment(row interface{ Scan(...interface{}) error }, s *domain.Segment) error {
	var rules []byte
	var evaluatedAt sql.NullTime
	if err := row.Scan(
		&s.ID, &s.OwnerID, &s.Name, &s.Description, &rules,
		&s.EstimatedCount, &evaluatedAt, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return err
	}
	s.Rules = rules
	if evaluatedAt.Valid {
		s.LastEvaluatedAt = &evaluatedAt.Time
	}
	return nil
}

func (r *SegmentRepo) Get(ctx context.Context, ownerID, id string) (*domain.Segment, error) {
	s := &domain.Segment{}
	err := scanSegment(r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, COALESCE(description,''), rules,
		       estimated_count, last_evaluated_at, created_at, updated_at
		FROM segments
		WHERE id = $1 AND owner_id = $2
	`, id, ownerID), s)
	if err == sql.ErrNoRows {
		return nil, segments.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get segment: %w", err)
	}
	return s, nil
}

func (r *SegmentRepo) List(ctx context.Context, ownerID string) ([]domain.Segment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, name, COALESCE(description,''), rules,
		       estimated_count, last_evaluated_at, created_at, updated_at
		FROM segments
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var out []domain.Segment
	for rows.Next() {
		var s domain.Segment
		if err := scanSegment(rows, &s); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SegmentRepo) Create(ctx context.Context, s *domain.Segment) (string, error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO segments
			(id, owner_id, name, description, rules, estimated_count,
			 last_evaluated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`, s.ID, s.OwnerID, s.Name, s.Description, []byte(s.Rules),
		s.EstimatedCount, s.LastEvaluatedAt)
	if err != nil {
		return "", fmt.Errorf("create segment: %w", err)
	}
	return s.ID, nil
}

func (r *SegmentRepo) Update(ctx context.Context, ownerID, id string, u segments.UpdateFields) error {
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
	if u.Description != nil {
		add("description", *u.Description)
	}
	if u.Rules != nil {
		add("rules", []byte(u.Rules))
	}

	if len(sets) == 0 {
		return nil
	}

	q := fmt.Sprintf("UPDATE segments SET %s, updated_at = NOW() WHERE id = $%d AND owner_id = $%d",
		joinComma(sets), idx, idx+1)
	args = append(args, id, ownerID)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update segment: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return segments.ErrNotFound
	}
	return nil
}

func (r *SegmentRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM segments WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete segment: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return segments.ErrNotFound
	}
	return nil
}

func (r *SegmentRepo) UpdateEstimate(ctx context.Context, ownerID, id string, count int, evaluatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE segments
		SET estimated_count = $1, last_evaluated_at = $2, updated_at = NOW()
		WHERE id = $3 AND owner_id = $4
	`, count, evaluatedAt, id, ownerID)
	if err != nil {
		return fmt.Errorf("update estimate: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return segments.ErrNotFound
	}
	return nil
}
