package models

import "time"

// UserRole represents one of the six fixed roles recognised by the platform.
type UserRole string

const (
	RoleSuperAdmin     UserRole = "SUPERADMIN"
	RoleSchoolAdmin    UserRole = "SCHOOLADMIN"
	RoleGeneralManager UserRole = "GENERALMANAGER"
	RoleSchoolManager  UserRole = "SCHOOLMANAGER"
	RoleInstructor     UserRole = "INSTRUCTOR"
	RoleStudent        UserRole = "STUDENT"
)

// AllRoles enumerates the closed role set.
var AllRoles = []UserRole{
	RoleSuperAdmin,
	RoleSchoolAdmin,
	RoleGeneralManager,
	RoleSchoolManager,
	RoleInstructor,
	RoleStudent,
}

// Valid reports whether the role belongs to the closed set.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleSchoolAdmin, RoleGeneralManager, RoleSchoolManager, RoleInstructor, RoleStudent:
		return true
	}
	return false
}

// Global reports whether the role bypasses school membership checks.
func (r UserRole) Global() bool {
	return r == RoleSuperAdmin || r == RoleSchoolAdmin
}

// User represents an application user stored in the users table.
// Users are soft-deactivated via the active flag; rows referenced by
// historical records are never physically removed.
type User struct {
	ID           int64      `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Active   *bool
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
