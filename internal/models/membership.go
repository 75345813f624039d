package models

import "time"

// SchoolMembership links a user to a school. The pair (school_id, user_id)
// is unique; removal flips the active flag instead of deleting the row, so
// re-assignment reactivates the existing membership.
type SchoolMembership struct {
	ID         int64     `db:"id" json:"id"`
	SchoolID   int64     `db:"school_id" json:"school_id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	Active     bool      `db:"active" json:"active"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
}

// SchoolMember is a membership annotated with the member's identity,
// as listed for a school.
type SchoolMember struct {
	UserID     int64     `db:"user_id" json:"user_id"`
	FullName   string    `db:"full_name" json:"full_name"`
	Email      string    `db:"email" json:"email"`
	Role       UserRole  `db:"role" json:"role"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
}
