package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/driveadmin/autoescola-api/internal/models"
)

// MembershipRepository persists the many-to-many relation between users and
// schools. A pair is unique; removal flips the active flag so rows survive
// for history and re-assignment reactivates them in place.
type MembershipRepository struct {
	db *sqlx.DB
}

// NewMembershipRepository constructs the repository.
func NewMembershipRepository(db *sqlx.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Upsert inserts the membership or reactivates the existing row. The original
// assigned_at is preserved when the membership is already active, so calling
// twice is a no-op beyond the first call.
func (r *MembershipRepository) Upsert(ctx context.Context, schoolID, userID int64) (*models.SchoolMembership, error) {
	const query = `INSERT INTO school_users (school_id, user_id, active, assigned_at)
        VALUES ($1, $2, TRUE, $3)
        ON CONFLICT (school_id, user_id) DO UPDATE
        SET active = TRUE,
            assigned_at = CASE WHEN school_users.active THEN school_users.assigned_at ELSE EXCLUDED.assigned_at END
        RETURNING id, school_id, user_id, active, assigned_at`
	var membership models.SchoolMembership
	if err := r.db.GetContext(ctx, &membership, query, schoolID, userID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("upsert membership: %w", err)
	}
	return &membership, nil
}

// Deactivate sets active=false for the pair. Returns the number of affected
// rows: 0 when the membership was absent or already inactive, 1 on success.
func (r *MembershipRepository) Deactivate(ctx context.Context, schoolID, userID int64) (int64, error) {
	const query = `UPDATE school_users SET active = FALSE WHERE school_id = $1 AND user_id = $2 AND active`
	res, err := r.db.ExecContext(ctx, query, schoolID, userID)
	if err != nil {
		return 0, fmt.Errorf("deactivate membership: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivate membership rows affected: %w", err)
	}
	return affected, nil
}

// IsMember reports whether the user holds an active membership in the school.
func (r *MembershipRepository) IsMember(ctx context.Context, schoolID, userID int64) (bool, error) {
	const query = `SELECT 1 FROM school_users WHERE school_id = $1 AND user_id = $2 AND active LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, schoolID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check membership: %w", err)
	}
	return true, nil
}

// ListSchoolsForUser returns the schools the user actively belongs to,
// alphabetical by name.
func (r *MembershipRepository) ListSchoolsForUser(ctx context.Context, userID int64) ([]models.School, error) {
	const query = `SELECT s.id, s.name, s.document, s.city, s.state, s.phone, s.active, s.created_at, s.updated_at
        FROM schools s
        JOIN school_users su ON su.school_id = s.id
        WHERE su.user_id = $1 AND su.active
        ORDER BY s.name ASC`
	var schools []models.School
	if err := r.db.SelectContext(ctx, &schools, query, userID); err != nil {
		return nil, fmt.Errorf("list schools for user: %w", err)
	}
	return schools, nil
}

// ListUsersForSchool returns the active members of a school annotated with
// role and assignment timestamp, alphabetical by name.
func (r *MembershipRepository) ListUsersForSchool(ctx context.Context, schoolID int64) ([]models.SchoolMember, error) {
	const query = `SELECT u.id AS user_id, u.full_name, u.email, u.role, su.assigned_at
        FROM users u
        JOIN school_users su ON su.user_id = u.id
        WHERE su.school_id = $1 AND su.active
        ORDER BY u.full_name ASC`
	var members []models.SchoolMember
	if err := r.db.SelectContext(ctx, &members, query, schoolID); err != nil {
		return nil, fmt.Errorf("list users for school: %w", err)
	}
	return members, nil
}

// ListUnassignedUsers returns active users with no active membership in the
// school, for assignment pickers.
func (r *MembershipRepository) ListUnassignedUsers(ctx context.Context, schoolID int64) ([]models.User, error) {
	const query = `SELECT u.id, u.email, u.password_hash, u.full_name, u.role, u.active, u.last_login, u.created_at, u.updated_at
        FROM users u
        WHERE u.active AND NOT EXISTS (
            SELECT 1 FROM school_users su WHERE su.user_id = u.id AND su.school_id = $1 AND su.active
        )
        ORDER BY u.full_name ASC`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, schoolID); err != nil {
		return nil, fmt.Errorf("list unassigned users: %w", err)
	}
	return users, nil
}

// ListUnassignedSchools returns active schools the user does not belong to.
func (r *MembershipRepository) ListUnassignedSchools(ctx context.Context, userID int64) ([]models.School, error) {
	const query = `SELECT s.id, s.name, s.document, s.city, s.state, s.phone, s.active, s.created_at, s.updated_at
        FROM schools s
        WHERE s.active AND NOT EXISTS (
            SELECT 1 FROM school_users su WHERE su.school_id = s.id AND su.user_id = $1 AND su.active
        )
        ORDER BY s.name ASC`
	var schools []models.School
	if err := r.db.SelectContext(ctx, &schools, query, userID); err != nil {
		return nil, fmt.Errorf("list unassigned schools: %w", err)
	}
	return schools, nil
}
