package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ignite/engage/internal/domain"
	"github.com/ignite/engage/internal/service/delivery"
)

// MessageRepo implements delivery.OutcomeStore and delivery.LogStore
// against PostgreSQL. FinalizeOutcome runs the message update and the
// log insert in one transaction.
type MessageRepo struct{ db *sql.DB }

// NewMessageRepo creates a Postgres-backed message repository.
func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

func (r *MessageRepo) CreateQueued(ctx context.Context, msg *domain.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages
			(id, owner_id, campaign_id, customer_id, send_id, type,
			 subject, body, media_url, status, queued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, msg.ID, msg.OwnerID, msg.CampaignID, msg.CustomerID, msg.SendID, msg.Type,
		msg.Content.Subject, msg.Content.Body, msg.Content.MediaURL,
		msg.Status, msg.QueuedAt)
	if err != nil {
		return fmt.Errorf("create queued message: %w", err)
	}
	return nil
}

func (r *MessageRepo) FinalizeOutcome(ctx context.Context, msg *domain.Message, logEntry *domain.CommunicationLog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin finalize: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE messages
		SET status = $1, failure_reason = $2, delivered_at = $3
		WHERE id = $4
	`, msg.Status, msg.FailureReason, msg.DeliveredAt, msg.ID); err != nil {
		return fmt.Errorf("finalize message: %w", err)
	}

	metadata, err := json.Marshal(logEntry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal log metadata: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO communication_logs
			(id, owner_id, customer_id, segment_id, campaign_id, message_id,
			 send_id, status, failure_reason, metadata, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, logEntry.ID, logEntry.OwnerID, logEntry.CustomerID, logEntry.SegmentID,
		logEntry.CampaignID, logEntry.MessageID, logEntry.SendID,
		logEntry.Status, logEntry.FailureReason, metadata, logEntry.SentAt); err != nil {
		return fmt.Errorf("append communication log: %w", err)
	}

	return tx.Commit()
}

func (r *MessageRepo) ListLogs(ctx context.Context, ownerID string) ([]domain.CommunicationLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, customer_id, segment_id, campaign_id, message_id,
		       send_id, status, COALESCE(failure_reason,''), metadata, sent_at
		FROM communication_logs
		WHERE owner_id = $1
		ORDER BY sent_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	var out []domain.CommunicationLog
	for rows.Next() {
		var l domain.CommunicationLog
		var metadata []byte
		if err := rows.Scan(
			&l.ID, &l.OwnerID, &l.CustomerID, &l.SegmentID, &l.CampaignID,
			&l.MessageID, &l.SendID, &l.Status, &l.FailureReason,
			&metadata, &l.SentAt,
		); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &l.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal log metadata: %w", err)
			}
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *MessageRepo) UpdateLogStatus(ctx context.Context, ownerID, messageID string, status domain.DeliveryStatus, reason string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin receipt: %w", err)
	}
	defer tx.Rollback()

	var logID string
	err = tx.QueryRowContext(ctx, `
		UPDATE communication_logs
		SET status = $1, failure_reason = $2
		WHERE message_id = $3 AND owner_id = $4
		RETURNING id
	`, status, reason, messageID, ownerID).Scan(&logID)
	if err == sql.ErrNoRows {
		return delivery.ErrLogNotFound
	}
	if err != nil {
		return fmt.Errorf("update log status: %w", err)
	}

	msgStatus := domain.MessageDelivered
	if status == domain.DeliveryFailed {
		msgStatus = domain.MessageFailed
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE messages SET status = $1, failure_reason = $2 WHERE id = $3
	`, msgStatus, reason, messageID); err != nil {
		return fmt.Errorf("update message status: %w", err)
	}

	return tx.Commit()
}
