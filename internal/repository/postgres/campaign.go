package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/engage/internal/domain"
	"github.com/ignite/engage/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository against PostgreSQL.
//
// TransitionStatus is a conditional UPDATE on the current status, so
// the draft→sending compare-and-swap holds across server instances
// sharing one database.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

const campaignColumns = `id, owner_id, segment_id, name, COALESCE(description,''),
	type, status, COALESCE(subject,''), body, COALESCE(media_url,''),
	sent_count, delivered_count, failed_count,
	started_at, completed_at, created_at, updated_at`

func scanCampaign(row interface{ Scan(...interface{}) error }, c *domain.Campaign) error {
	var startedAt, completedAt sql.NullTime
	if err := row.Scan(
		&c.ID, &c.OwnerID, &c.SegmentID, &c.Name, &c.Description,
		&c.Type, &c.Status, &c.Content.Subject, &c.Content.Body, &c.Content.MediaURL,
		&c.Metrics.Sent, &c.Metrics.Delivered, &c.Metrics.Failed,
		&startedAt, &completedAt, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return err
	}
	if startedAt.Valid {
		c.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		c.CompletedAt = &completedAt.Time
	}
	return nil
}

func (r *CampaignRepo) Get(ctx context.Context, ownerID, id string) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := scanCampaign(r.db.QueryRowContext(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE id = $1 AND owner_id = $2
	`, id, ownerID), c)
	if err == sql.ErrNoRows {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *CampaignRepo) List(ctx context.Context, ownerID string, f campaign.ListFilter) ([]domain.Campaign, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	countQ := `SELECT COUNT(*) FROM campaigns WHERE owner_id = $1`
	countArgs := []interface{}{ownerID}
	cIdx := 2
	if f.Status != "" {
		countQ += fmt.Sprintf(" AND status = $%d", cIdx)
		countArgs = append(countArgs, f.Status)
		cIdx++
	}
	if f.Search != "" {
		countQ += fmt.Sprintf(" AND name ILIKE $%d", cIdx)
		countArgs = append(countArgs, "%"+f.Search+"%")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	q := `SELECT ` + campaignColumns + ` FROM campaigns WHERE owner_id = $1`
	args := []interface{}{ownerID}
	idx := 2
	if f.Status != "" {
		q += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Search != "" {
		q += fmt.Sprintf(" AND name ILIKE $%d", idx)
		args = append(args, "%"+f.Search+"%")
		idx++
	}
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		if err := scanCampaign(rows, &c); err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO campaigns
			(id, owner_id, segment_id, name, description, type, status,
			 subject, body, media_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`, c.ID, c.OwnerID, c.SegmentID, c.Name, c.Description, c.Type, c.Status,
		c.Content.Subject, c.Content.Body, c.Content.MediaURL)
	if err != nil {
		return "", fmt.Errorf("create campaign: %w", err)
	}
	return c.ID, nil
}

func (r *CampaignRepo) Update(ctx context.Context, ownerID, id string, u campaign.UpdateFields) error {
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
	if u.SegmentID != nil {
		add("segment_id", *u.SegmentID)
	}
	if u.Subject != nil {
		add("subject", *u.Subject)
	}
	if u.Body != nil {
		add("body", *u.Body)
	}
	if u.MediaURL != nil {
		add("media_url", *u.MediaURL)
	}

	if len(sets) == 0 {
		return nil
	}

	// Only drafts are editable.
	q := fmt.Sprintf("UPDATE campaigns SET %s, updated_at = NOW() WHERE id = $%d AND owner_id = $%d AND status = 'draft'",
		joinComma(sets), idx, idx+1)
	args = append(args, id, ownerID)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM campaigns
		WHERE id = $1 AND owner_id = $2 AND status IN ('draft','cancelled')
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) TransitionStatus(ctx context.Context, ownerID, id string, from, to domain.CampaignStatus) error {
	started := ""
	if to == domain.CampaignSending {
		started = ", started_at = NOW()"
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE campaigns SET status = $1, updated_at = NOW()%s
		WHERE id = $2 AND owner_id = $3 AND status = $4
	`, started), to, id, ownerID, from)
	if err != nil {
		return fmt.Errorf("transition status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s -> %s", campaign.ErrInvalidTransition, from, to)
	}
	return nil
}

func (r *CampaignRepo) CompleteSend(ctx context.Context, ownerID, id string, m domain.CampaignMetrics, completedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET status = 'sent', sent_count = $1, delivered_count = $2,
		    failed_count = $3, completed_at = $4, updated_at = NOW()
		WHERE id = $5 AND owner_id = $6
	`, m.Sent, m.Delivered, m.Failed, completedAt, id, ownerID)
	if err != nil {
		return fmt.Errorf("complete send: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}
