package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/driveadmin/autoescola-api/internal/authz"
	"github.com/driveadmin/autoescola-api/internal/models"
)

type fakeMembershipChecker struct {
	members map[[2]int64]bool
	calls   int
}

func (f *fakeMembershipChecker) IsMember(_ context.Context, schoolID, userID int64) (bool, error) {
	f.calls++
	return f.members[[2]int64{schoolID, userID}], nil
}

func setupAuthorizeRouter(t *testing.T, claims *models.JWTClaims, checker *fakeMembershipChecker, action authz.Action, resource authz.Resource) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	guard := authz.NewGuard(authz.NewPermissionTable(), checker, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	})
	handle := func(c *gin.Context) {
		var body struct {
			SchoolID int64 `json:"school_id"`
		}
		// The middleware must leave the body readable for the handler.
		_ = c.ShouldBindJSON(&body)
		c.JSON(http.StatusOK, gin.H{"school_id": body.SchoolID})
	}
	r.POST("/scoped", Authorize(guard, nil, action, resource), handle)
	r.POST("/schools/:school_id/members", Authorize(guard, nil, action, resource), handle)
	return r
}

func TestAuthorizeMissingClaims(t *testing.T) {
	r := setupAuthorizeRouter(t, nil, &fakeMembershipChecker{}, authz.ActionRead, authz.ResourceSchools)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scoped", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthorizeGlobalRoleSkipsMembership(t *testing.T) {
	checker := &fakeMembershipChecker{}
	claims := &models.JWTClaims{UserID: 1, Role: models.RoleSuperAdmin}
	r := setupAuthorizeRouter(t, claims, checker, authz.ActionCreate, authz.ResourceMemberships)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/schools/7/members", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, checker.calls)
}

func TestAuthorizeSchoolFromPathParam(t *testing.T) {
	checker := &fakeMembershipChecker{members: map[[2]int64]bool{{7, 3}: true}}
	claims := &models.JWTClaims{UserID: 3, Role: models.RoleGeneralManager}
	r := setupAuthorizeRouter(t, claims, checker, authz.ActionCreate, authz.ResourceMemberships)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/schools/7/members", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, checker.calls)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/schools/8/members", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthorizeSchoolManagerCannotManageMemberships(t *testing.T) {
	// SchoolManager runs one school's operations but has no memberships
	// grant; being a member of the school does not help.
	checker := &fakeMembershipChecker{members: map[[2]int64]bool{{7, 3}: true}}
	claims := &models.JWTClaims{UserID: 3, Role: models.RoleSchoolManager}
	r := setupAuthorizeRouter(t, claims, checker, authz.ActionCreate, authz.ResourceMemberships)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/schools/7/members", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthorizeSchoolFromBodyKeepsBodyReadable(t *testing.T) {
	checker := &fakeMembershipChecker{members: map[[2]int64]bool{{5, 3}: true}}
	claims := &models.JWTClaims{UserID: 3, Role: models.RoleGeneralManager}
	r := setupAuthorizeRouter(t, claims, checker, authz.ActionCreate, authz.ResourceEnrollments)

	body := bytes.NewBufferString(`{"school_id":5}`)
	req := httptest.NewRequest(http.MethodPost, "/scoped", body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, checker.calls)
	assert.Contains(t, rec.Body.String(), `"school_id":5`)
}

func TestAuthorizeSchoolFromQuery(t *testing.T) {
	checker := &fakeMembershipChecker{members: map[[2]int64]bool{{9, 3}: true}}
	claims := &models.JWTClaims{UserID: 3, Role: models.RoleInstructor}
	r := setupAuthorizeRouter(t, claims, checker, authz.ActionRead, authz.ResourceStudents)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scoped?school_id=9", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scoped?school_id=10", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthorizeRoleWithoutPermission(t *testing.T) {
	checker := &fakeMembershipChecker{members: map[[2]int64]bool{{7, 3}: true}}
	claims := &models.JWTClaims{UserID: 3, Role: models.RoleStudent}
	r := setupAuthorizeRouter(t, claims, checker, authz.ActionCreate, authz.ResourceMemberships)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/schools/7/members", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
