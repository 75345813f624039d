package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveadmin/autoescola-api/internal/models"
)

type fakeAuditWriter struct {
	logs []*models.AuditLog
}

func (f *fakeAuditWriter) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	f.logs = append(f.logs, log)
	return nil
}

func setupAuditRouter(audits *fakeAuditWriter, claims *models.JWTClaims, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	})
	r.POST("/users", Audit(audits, models.AuditActionCreateUser, "users"), func(c *gin.Context) {
		c.JSON(status, gin.H{})
	})
	return r
}

func TestAuditRecordsSuccessfulMutation(t *testing.T) {
	audits := &fakeAuditWriter{}
	claims := &models.JWTClaims{UserID: 42, Role: models.RoleSuperAdmin}
	r := setupAuditRouter(audits, claims, http.StatusCreated)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users", nil))

	require.Len(t, audits.logs, 1)
	entry := audits.logs[0]
	assert.Equal(t, models.AuditActionCreateUser, entry.Action)
	assert.Equal(t, "users", entry.Resource)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, int64(42), *entry.UserID)
	assert.Contains(t, string(entry.NewValues), `"path":"/users"`)
}

func TestAuditSkipsFailedRequests(t *testing.T) {
	audits := &fakeAuditWriter{}
	claims := &models.JWTClaims{UserID: 42, Role: models.RoleSuperAdmin}
	r := setupAuditRouter(audits, claims, http.StatusBadRequest)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users", nil))

	assert.Empty(t, audits.logs)
}

func TestAuditWithoutClaimsLeavesUserNil(t *testing.T) {
	audits := &fakeAuditWriter{}
	r := setupAuditRouter(audits, nil, http.StatusOK)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users", nil))

	require.Len(t, audits.logs, 1)
	assert.Nil(t, audits.logs[0].UserID)
}
