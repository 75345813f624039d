package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/driveadmin/autoescola-api/internal/service"
	appErrors "github.com/driveadmin/autoescola-api/pkg/errors"
	"github.com/driveadmin/autoescola-api/pkg/response"
)

// MembershipHandler exposes school membership endpoints.
type MembershipHandler struct {
	memberships *service.MembershipService
}

// NewMembershipHandler constructs MembershipHandler.
func NewMembershipHandler(memberships *service.MembershipService) *MembershipHandler {
	return &MembershipHandler{memberships: memberships}
}

// Assign godoc
// @Summary Assign user to school
// @Description Links a user to a school; repeating the call is a no-op
// @Tags Memberships
// @Accept json
// @Produce json
// @Param school_id path int true "School ID"
// @Param payload body object true "User reference"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schools/{school_id}/members [post]
func (h *MembershipHandler) Assign(c *gin.Context) {
	schoolID, ok := pathID(c, "school_id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid school id"))
		return
	}

	var payload struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	membership, err := h.memberships.Assign(c.Request.Context(), schoolID, payload.UserID, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, membership)
}

// Revoke godoc
// @Summary Revoke user from school
// @Description Removes a user from a school; revoking a non-member is a no-op
// @Tags Memberships
// @Produce json
// @Param school_id path int true "School ID"
// @Param user_id path int true "User ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{school_id}/members/{user_id} [delete]
func (h *MembershipHandler) Revoke(c *gin.Context) {
	schoolID, ok := pathID(c, "school_id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid school id"))
		return
	}
	userID, ok := pathID(c, "user_id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}

	affected, err := h.memberships.Revoke(c.Request.Context(), schoolID, userID, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"revoked": affected}, nil)
}

// ListMembers godoc
// @Summary List school members
// @Tags Memberships
// @Produce json
// @Param school_id path int true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{school_id}/members [get]
func (h *MembershipHandler) ListMembers(c *gin.Context) {
	schoolID, ok := pathID(c, "school_id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid school id"))
		return
	}
	members, err := h.memberships.ListUsersForSchool(c.Request.Context(), schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, members, nil)
}

// ListUnassignedUsers godoc
// @Summary List users not assigned to the school
// @Tags Memberships
// @Produce json
// @Param school_id path int true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{school_id}/members/unassigned [get]
func (h *MembershipHandler) ListUnassignedUsers(c *gin.Context) {
	schoolID, ok := pathID(c, "school_id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid school id"))
		return
	}
	users, err := h.memberships.ListUnassignedUsers(c.Request.Context(), schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, nil)
}

// ListSchoolsForUser godoc
// @Summary List schools a user belongs to
// @Tags Memberships
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/schools [get]
func (h *MembershipHandler) ListSchoolsForUser(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}
	schools, err := h.memberships.ListSchoolsForUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schools, nil)
}

// ListUnassignedSchools godoc
// @Summary List schools a user does not belong to
// @Tags Memberships
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/schools/unassigned [get]
func (h *MembershipHandler) ListUnassignedSchools(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}
	schools, err := h.memberships.ListUnassignedSchools(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schools, nil)
}
