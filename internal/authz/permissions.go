// Package authz holds the static role permission table and the authorization
// guard every school-scoped operation passes through.
package authz

import (
	"github.com/driveadmin/autoescola-api/internal/models"
	appErrors "github.com/driveadmin/autoescola-api/pkg/errors"
)

// Action is one of the four operations a role may perform on a resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Resource identifies a protected resource kind.
type Resource string

const (
	ResourceUsers       Resource = "users"
	ResourceSchools     Resource = "schools"
	ResourceMemberships Resource = "memberships"
	ResourceStudents    Resource = "students"
	ResourceEnrollments Resource = "enrollments"
	ResourcePayments    Resource = "payments"
	ResourceDashboard   Resource = "dashboard"
)

// Permission pairs a resource with an action.
type Permission struct {
	Resource Resource
	Action   Action
}

// PermissionTable is the immutable resource-action matrix over the closed
// role set. It is built once at startup and never mutated afterwards.
type PermissionTable struct {
	grants map[models.UserRole]map[Permission]struct{}
}

type roleGrant struct {
	resource Resource
	actions  []Action
}

var crud = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}
var readOnly = []Action{ActionRead}

// NewPermissionTable builds the static permission configuration.
func NewPermissionTable() *PermissionTable {
	manage := func(resources ...Resource) []roleGrant {
		grants := make([]roleGrant, len(resources))
		for i, r := range resources {
			grants[i] = roleGrant{resource: r, actions: crud}
		}
		return grants
	}

	byRole := map[models.UserRole][]roleGrant{
		models.RoleSuperAdmin:  manage(ResourceUsers, ResourceSchools, ResourceMemberships, ResourceStudents, ResourceEnrollments, ResourcePayments, ResourceDashboard),
		models.RoleSchoolAdmin: manage(ResourceUsers, ResourceSchools, ResourceMemberships, ResourceStudents, ResourceEnrollments, ResourcePayments, ResourceDashboard),
		models.RoleGeneralManager: {
			{resource: ResourceUsers, actions: readOnly},
			{resource: ResourceSchools, actions: readOnly},
			{resource: ResourceMemberships, actions: []Action{ActionCreate, ActionRead, ActionDelete}},
			{resource: ResourceStudents, actions: crud},
			{resource: ResourceEnrollments, actions: crud},
			{resource: ResourcePayments, actions: []Action{ActionCreate, ActionRead}},
			{resource: ResourceDashboard, actions: readOnly},
		},
		models.RoleSchoolManager: {
			{resource: ResourceUsers, actions: readOnly},
			{resource: ResourceStudents, actions: crud},
			{resource: ResourceEnrollments, actions: crud},
			{resource: ResourcePayments, actions: []Action{ActionCreate, ActionRead}},
			{resource: ResourceDashboard, actions: readOnly},
		},
		models.RoleInstructor: {
			{resource: ResourceStudents, actions: readOnly},
			{resource: ResourceEnrollments, actions: readOnly},
		},
		models.RoleStudent: {
			{resource: ResourceEnrollments, actions: readOnly},
			{resource: ResourcePayments, actions: readOnly},
		},
	}

	grants := make(map[models.UserRole]map[Permission]struct{}, len(byRole))
	for role, roleGrants := range byRole {
		set := make(map[Permission]struct{})
		for _, g := range roleGrants {
			for _, a := range g.actions {
				set[Permission{Resource: g.resource, Action: a}] = struct{}{}
			}
		}
		grants[role] = set
	}
	return &PermissionTable{grants: grants}
}

// PermissionsFor returns the permission set for a role. It fails for roles
// outside the closed set.
func (t *PermissionTable) PermissionsFor(role models.UserRole) ([]Permission, error) {
	if !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "unknown role "+string(role))
	}
	set := t.grants[role]
	perms := make([]Permission, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	return perms, nil
}

// HasPermission reports whether the role may perform action on resource.
// Unknown roles have no permissions.
func (t *PermissionTable) HasPermission(role models.UserRole, resource Resource, action Action) bool {
	set, ok := t.grants[role]
	if !ok {
		return false
	}
	_, ok = set[Permission{Resource: resource, Action: action}]
	return ok
}
