package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/driveadmin/autoescola-api/internal/models"
	appErrors "github.com/driveadmin/autoescola-api/pkg/errors"
)

type membershipRepository interface {
	Upsert(ctx context.Context, schoolID, userID int64) (*models.SchoolMembership, error)
	Deactivate(ctx context.Context, schoolID, userID int64) (int64, error)
	IsMember(ctx context.Context, schoolID, userID int64) (bool, error)
	ListSchoolsForUser(ctx context.Context, userID int64) ([]models.School, error)
	ListUsersForSchool(ctx context.Context, schoolID int64) ([]models.SchoolMember, error)
	ListUnassignedUsers(ctx context.Context, schoolID int64) ([]models.User, error)
	ListUnassignedSchools(ctx context.Context, userID int64) ([]models.School, error)
}

type schoolReader interface {
	FindByID(ctx context.Context, id int64) (*models.School, error)
}

type userReader interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// MembershipService maintains the user↔school assignments gating tenant
// visibility.
type MembershipService struct {
	repo    membershipRepository
	schools schoolReader
	users   userReader
	audits  auditWriter
	logger  *zap.Logger
}

// NewMembershipService constructs MembershipService.
func NewMembershipService(repo membershipRepository, schools schoolReader, users userReader, audits auditWriter, logger *zap.Logger) *MembershipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MembershipService{repo: repo, schools: schools, users: users, audits: audits, logger: logger}
}

// Assign creates or reactivates the membership for the pair. Assigning an
// already-active pair succeeds and returns the existing membership.
func (s *MembershipService) Assign(ctx context.Context, schoolID, userID, actorID int64) (*models.SchoolMembership, error) {
	if _, err := s.schools.FindByID(ctx, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load school")
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load user")
	}

	membership, err := s.repo.Upsert(ctx, schoolID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to assign membership")
	}

	s.audit(ctx, actorID, models.AuditActionAssignMembership, membership.ID, schoolID, userID)
	return membership, nil
}

// Revoke deactivates the membership and returns the number of rows affected:
// 0 when the pair was absent or already inactive, 1 on success. Callers use
// the count to tell a no-op from a removal.
func (s *MembershipService) Revoke(ctx context.Context, schoolID, userID, actorID int64) (int64, error) {
	affected, err := s.repo.Deactivate(ctx, schoolID, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to revoke membership")
	}
	if affected > 0 {
		s.audit(ctx, actorID, models.AuditActionRevokeMembership, 0, schoolID, userID)
	}
	return affected, nil
}

// IsMember reports whether the user actively belongs to the school.
func (s *MembershipService) IsMember(ctx context.Context, schoolID, userID int64) (bool, error) {
	member, err := s.repo.IsMember(ctx, schoolID, userID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to check membership")
	}
	return member, nil
}

// ListSchoolsForUser returns the user's active schools, alphabetical by name.
func (s *MembershipService) ListSchoolsForUser(ctx context.Context, userID int64) ([]models.School, error) {
	schools, err := s.repo.ListSchoolsForUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list schools for user")
	}
	return schools, nil
}

// ListUsersForSchool returns the school's active members, alphabetical by name.
func (s *MembershipService) ListUsersForSchool(ctx context.Context, schoolID int64) ([]models.SchoolMember, error) {
	members, err := s.repo.ListUsersForSchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list users for school")
	}
	return members, nil
}

// ListUnassignedUsers returns users eligible for assignment to the school.
func (s *MembershipService) ListUnassignedUsers(ctx context.Context, schoolID int64) ([]models.User, error) {
	users, err := s.repo.ListUnassignedUsers(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list unassigned users")
	}
	return users, nil
}

// ListUnassignedSchools returns schools the user could still be assigned to.
func (s *MembershipService) ListUnassignedSchools(ctx context.Context, userID int64) ([]models.School, error) {
	schools, err := s.repo.ListUnassignedSchools(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list unassigned schools")
	}
	return schools, nil
}

func (s *MembershipService) audit(ctx context.Context, actorID int64, action string, membershipID, schoolID, userID int64) {
	if s.audits == nil {
		return
	}
	var actor *int64
	if actorID != 0 {
		actor = &actorID
	}
	payload := []byte(fmt.Sprintf(`{"school_id":%d,"user_id":%d}`, schoolID, userID))
	var resourceID *int64
	if membershipID != 0 {
		resourceID = &membershipID
	}
	if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     actor,
		Action:     action,
		Resource:   "memberships",
		ResourceID: resourceID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record membership audit log", zap.Error(err))
	}
}
