package rbac

import (
	"sort"
	"strings"
)

// Role is a named grouping of permissions assigned to a user.
type Role string

// Permission is a named capability gating one class of privileged operation.
type Permission string

// Roles known to the portal.
const (
	RoleSuperAdmin     Role = "super_admin"
	RoleLMSManager     Role = "lms_manager"
	RoleContentManager Role = "content_manager"
	RoleSupportManager Role = "support_manager"
	RoleAnalyst        Role = "analyst"
	RoleViewer         Role = "viewer"
)

// Permissions known to the portal.
const (
	PermAdminAccess   Permission = "admin.access"
	PermManageUsers   Permission = "users.manage"
	PermManageContent Permission = "content.manage"
	PermManageSupport Permission = "support.manage"
	PermViewAnalytics Permission = "analytics.view"
	PermViewAudit     Permission = "audit.view"
)

var allRoles = []Role{
	RoleSuperAdmin,
	RoleLMSManager,
	RoleContentManager,
	RoleSupportManager,
	RoleAnalyst,
	RoleViewer,
}

var allPermissions = []Permission{
	PermAdminAccess,
	PermManageUsers,
	PermManageContent,
	PermManageSupport,
	PermViewAnalytics,
	PermViewAudit,
}

// rolePermissions is the fixed role to permission table. super_admin is
// listed with the full catalog so the table alone is auditable.
var rolePermissions = map[Role][]Permission{
	RoleSuperAdmin:     allPermissions,
	RoleLMSManager:     {PermAdminAccess, PermManageContent, PermViewAnalytics},
	RoleContentManager: {PermAdminAccess, PermManageContent},
	RoleSupportManager: {PermAdminAccess, PermManageSupport, PermManageUsers},
	RoleAnalyst:        {PermAdminAccess, PermViewAnalytics, PermViewAudit},
	RoleViewer:         {PermAdminAccess},
}

// AllRoles returns the closed list of role names.
func AllRoles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// AllPermissions returns the closed list of permission names.
func AllPermissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// PermissionsForRole returns the permissions granted by role. Unknown role
// names yield an empty slice.
func PermissionsForRole(role string) []Permission {
	perms, ok := rolePermissions[Role(role)]
	if !ok {
		return []Permission{}
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// IsValidRole reports whether name belongs to the role catalog.
func IsValidRole(name string) bool {
	_, ok := rolePermissions[Role(name)]
	return ok
}

// IsValidPermission reports whether name belongs to the permission catalog.
func IsValidPermission(name string) bool {
	for _, p := range allPermissions {
		if string(p) == name {
			return true
		}
	}
	return false
}

// NormalizeRoles trims, deduplicates and sorts role names, silently dropping
// anything outside the catalog.
func NormalizeRoles(raw []string) []Role {
	unique := make(map[Role]struct{}, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if !IsValidRole(r) {
			continue
		}
		unique[Role(r)] = struct{}{}
	}
	roles := make([]Role, 0, len(unique))
	for r := range unique {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// permissionsFor computes the deduplicated, sorted permission union. The
// admin flag and the super_admin role both short-circuit to the full catalog.
func permissionsFor(isAdmin bool, roles []Role) []Permission {
	unique := make(map[Permission]struct{}, len(allPermissions))
	for _, r := range roles {
		if r == RoleSuperAdmin {
			isAdmin = true
			break
		}
		for _, p := range rolePermissions[r] {
			unique[p] = struct{}{}
		}
	}
	if isAdmin {
		for _, p := range allPermissions {
			unique[p] = struct{}{}
		}
	}
	perms := make([]Permission, 0, len(unique))
	for p := range unique {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}
