package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveadmin/autoescola-api/internal/models"
)

func TestPermissionsForCoversAllRoles(t *testing.T) {
	table := NewPermissionTable()
	for _, role := range models.AllRoles {
		perms, err := table.PermissionsFor(role)
		require.NoError(t, err, "role %s", role)
		assert.NotEmpty(t, perms, "role %s", role)
	}
}

func TestPermissionsForUnknownRole(t *testing.T) {
	table := NewPermissionTable()
	_, err := table.PermissionsFor(models.UserRole("JANITOR"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestHasPermission(t *testing.T) {
	table := NewPermissionTable()

	assert.True(t, table.HasPermission(models.RoleSuperAdmin, ResourcePayments, ActionDelete))
	assert.True(t, table.HasPermission(models.RoleSchoolManager, ResourcePayments, ActionCreate))
	assert.True(t, table.HasPermission(models.RoleInstructor, ResourceStudents, ActionRead))

	assert.False(t, table.HasPermission(models.RoleInstructor, ResourcePayments, ActionCreate))
	assert.False(t, table.HasPermission(models.RoleStudent, ResourceEnrollments, ActionCreate))
	assert.False(t, table.HasPermission(models.UserRole("JANITOR"), ResourceUsers, ActionRead))
}
