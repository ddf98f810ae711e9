package domain

import "time"

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignSent      CampaignStatus = "sent"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCancelled CampaignStatus = "cancelled"
	CampaignFailed    CampaignStatus = "failed"
)

// CampaignType enumerates the delivery channels a campaign can use.
type CampaignType string

const (
	CampaignEmail  CampaignType = "email"
	CampaignSMS    CampaignType = "sms"
	CampaignPush   CampaignType = "push"
	CampaignSocial CampaignType = "social"
)

// MessageContent is the raw (pre-personalization) content of a campaign.
type MessageContent struct {
	Subject  string `json:"subject,omitempty" db:"subject"`
	Body     string `json:"body" db:"body"`
	MediaURL string `json:"media_url,omitempty" db:"media_url"`
}

// CampaignMetrics aggregates per-recipient delivery outcomes.
//
// After a completed send, Sent + Failed equals the resolved audience size
// and Delivered equals Sent (delivery success is determined synchronously
// per attempt; there is no separate bounce-back channel).
type CampaignMetrics struct {
	Sent      int `json:"sent" db:"sent_count"`
	Delivered int `json:"delivered" db:"delivered_count"`
	Failed    int `json:"failed" db:"failed_count"`
}

// Campaign targets a segment's audience with a personalized message and
// records aggregate delivery metrics.
//
// Status transitions are monotonic and single-writer: only the delivery
// dispatcher/aggregator pair advances a campaign past draft.
type Campaign struct {
	ID          string          `json:"id" db:"id"`
	OwnerID     string          `json:"owner_id" db:"owner_id"`
	SegmentID   string          `json:"segment_id" db:"segment_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description,omitempty" db:"description"`
	Type        CampaignType    `json:"type" db:"type"`
	Status      CampaignStatus  `json:"status" db:"status"`
	Content     MessageContent  `json:"content"`
	Metrics     CampaignMetrics `json:"metrics"`

	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true if the campaign is in a final state.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignSent || c.Status == CampaignFailed || c.Status == CampaignCancelled
}

// ValidType reports whether t is a known campaign type.
func ValidType(t CampaignType) bool {
	switch t {
	case CampaignEmail, CampaignSMS, CampaignPush, CampaignSocial:
		return true
	}
	return false
}
