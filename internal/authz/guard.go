package authz

import (
	"context"

	"go.uber.org/zap"

	"github.com/driveadmin/autoescola-api/internal/models"
	appErrors "github.com/driveadmin/autoescola-api/pkg/errors"
)

// MembershipChecker answers whether a user is an active member of a school.
// Checks always hit storage: caching membership would let a revoked user keep
// acting on a school until the cache expired.
type MembershipChecker interface {
	IsMember(ctx context.Context, schoolID, userID int64) (bool, error)
}

// Guard is the single choke point for school-scoped authorization decisions.
type Guard struct {
	table       *PermissionTable
	memberships MembershipChecker
	logger      *zap.Logger
}

// NewGuard constructs the guard.
func NewGuard(table *PermissionTable, memberships MembershipChecker, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{table: table, memberships: memberships, logger: logger}
}

// Authorize decides whether the principal may perform action on resource,
// optionally scoped to a school. Every denial surfaces as the same FORBIDDEN
// error so callers cannot probe which rule rejected them.
func (g *Guard) Authorize(ctx context.Context, claims *models.JWTClaims, action Action, resource Resource, schoolID *int64) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}

	// Global roles bypass membership for school-scoped checks.
	if claims.Role.Global() {
		return nil
	}

	if schoolID != nil {
		member, err := g.memberships.IsMember(ctx, *schoolID, claims.UserID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "membership check failed")
		}
		if !member {
			g.logger.Debug("membership denial",
				zap.Int64("user_id", claims.UserID),
				zap.Int64("school_id", *schoolID),
				zap.String("resource", string(resource)))
			return appErrors.ErrForbidden
		}
	}

	if !g.table.HasPermission(claims.Role, resource, action) {
		return appErrors.ErrForbidden
	}
	return nil
}
