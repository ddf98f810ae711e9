package domain

import "time"

// Customer is the snapshot of a customer record that the segmentation
// engine evaluates. It is owned by the customer store; the delivery
// pipeline treats it as read-only.
type Customer struct {
	ID             string    `json:"id" db:"id"`
	OwnerID        string    `json:"owner_id" db:"owner_id"`
	Name           string    `json:"name" db:"name"`
	Email          string    `json:"email" db:"email"`
	Phone          string    `json:"phone,omitempty" db:"phone"`
	TotalSpend     float64   `json:"total_spend" db:"total_spend"`
	Visits         int       `json:"visits" db:"visits"`
	LastActiveDate time.Time `json:"last_active_date" db:"last_active_date"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// FirstName returns the first whitespace-delimited token of the customer's
// name. Used by message personalization.
func (c *Customer) FirstName() string {
	for i := 0; i < len(c.Name); i++ {
		if c.Name[i] == ' ' || c.Name[i] == '\t' {
			return c.Name[:i]
		}
	}
	return c.Name
}
