package models

import "time"

// School represents a driving school tenant.
type School struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Document  string    `db:"document" json:"document"`
	City      string    `db:"city" json:"city"`
	State     string    `db:"state" json:"state"`
	Phone     string    `db:"phone" json:"phone"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
