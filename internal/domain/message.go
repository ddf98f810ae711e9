package domain

import "time"

// MessageStatus enumerates the lifecycle of a single queued message.
type MessageStatus string

const (
	MessageQueued    MessageStatus = "queued"
	MessageDelivered MessageStatus = "delivered"
	MessageFailed    MessageStatus = "failed"
)

// DeliveryStatus is the terminal outcome reported by a delivery provider.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "SENT"
	DeliveryFailed DeliveryStatus = "FAILED"
)

// Message is the durable record of one personalized message to one
// customer within one send of a campaign. Exactly one Message exists per
// (campaign, customer, send).
type Message struct {
	ID         string         `json:"id" db:"id"`
	OwnerID    string         `json:"owner_id" db:"owner_id"`
	CampaignID string         `json:"campaign_id" db:"campaign_id"`
	CustomerID string         `json:"customer_id" db:"customer_id"`
	SendID     string         `json:"send_id" db:"send_id"`
	Type       CampaignType   `json:"type" db:"type"`
	Content    MessageContent `json:"content"`
	Status     MessageStatus  `json:"status" db:"status"`

	FailureReason string     `json:"failure_reason,omitempty" db:"failure_reason"`
	QueuedAt      time.Time  `json:"queued_at" db:"queued_at"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
}

// LogMetadata carries the personalized message text alongside a
// communication log row.
type LogMetadata struct {
	Message string `json:"message"`
}

// CommunicationLog is the append-only audit record of one delivery
// attempt. One row per DeliveryAttempt; rows are never updated except by
// an explicit vendor delivery receipt.
type CommunicationLog struct {
	ID         string         `json:"id" db:"id"`
	OwnerID    string         `json:"owner_id" db:"owner_id"`
	CustomerID string         `json:"customer_id" db:"customer_id"`
	SegmentID  string         `json:"segment_id" db:"segment_id"`
	CampaignID string         `json:"campaign_id" db:"campaign_id"`
	MessageID  string         `json:"message_id" db:"message_id"`
	SendID     string         `json:"send_id" db:"send_id"`
	Status     DeliveryStatus `json:"status" db:"status"`

	FailureReason string      `json:"failure_reason,omitempty" db:"failure_reason"`
	Metadata      LogMetadata `json:"metadata"`
	SentAt        time.Time   `json:"sent_at" db:"sent_at"`
}

// DeliveryAttempt is the ephemeral outcome of sending personalized
// content to one recipient. Produced once per recipient per send, never
// mutated after creation.
type DeliveryAttempt struct {
	CustomerID       string
	PersonalizedBody string
	Outcome          DeliveryStatus
	FailureReason    string
}
