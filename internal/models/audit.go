package models

import "time"

// Audit actions recorded by the platform.
const (
	AuditActionLogin            = "LOGIN"
	AuditActionAssignMembership = "ASSIGN_MEMBERSHIP"
	AuditActionRevokeMembership = "REVOKE_MEMBERSHIP"
	AuditActionCreateEnrollment = "CREATE_ENROLLMENT"
	AuditActionApplyPayment     = "APPLY_PAYMENT"
	AuditActionCreateUser       = "CREATE_USER"
	AuditActionDeactivateUser   = "DEACTIVATE_USER"
	AuditActionCreateSchool     = "CREATE_SCHOOL"
	AuditActionCancelEnrollment = "CANCEL_ENROLLMENT"
)

// AuditLog records who did what to which resource.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *int64    `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *int64    `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
