package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/driveadmin/autoescola-api/internal/middleware"
	"github.com/driveadmin/autoescola-api/internal/models"
)

func testContext(t *testing.T, method, target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	if body != "" {
		c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
	} else {
		c.Request = httptest.NewRequest(method, target, nil)
	}
	return c, rec
}

func TestMembershipHandlerAssignRejectsBadSchoolID(t *testing.T) {
	h := NewMembershipHandler(nil)

	c, rec := testContext(t, http.MethodPost, "/schools/abc/members", `{"user_id":7}`)
	c.Params = gin.Params{{Key: "school_id", Value: "abc"}}

	h.Assign(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMembershipHandlerRevokeRejectsBadUserID(t *testing.T) {
	h := NewMembershipHandler(nil)

	c, rec := testContext(t, http.MethodDelete, "/schools/2/members/xyz", "")
	c.Params = gin.Params{{Key: "school_id", Value: "2"}, {Key: "user_id", Value: "xyz"}}

	h.Revoke(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnrollmentHandlerCreateRejectsMalformedBody(t *testing.T) {
	h := NewEnrollmentHandler(nil, nil)

	c, rec := testContext(t, http.MethodPost, "/enrollments", `{"student_id":`)

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	h := NewAuthHandler(nil)

	c, rec := testContext(t, http.MethodGet, "/auth/me", "")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 42, Email: "gm@escola.com", Role: models.RoleGeneralManager})

	h.Me(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.UserInfo `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, int64(42), envelope.Data.ID)
	assert.Equal(t, models.RoleGeneralManager, envelope.Data.Role)
}

func TestAuthHandlerMeUnauthenticated(t *testing.T) {
	h := NewAuthHandler(nil)

	c, rec := testContext(t, http.MethodGet, "/auth/me", "")

	h.Me(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
