// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

// Role represents a dashboard user role.
type Role string

const (
	// RoleAdmin has full access including user and settings management.
	RoleAdmin Role = "admin"

	// RoleAnalyst can run and save queries, use AI, and export data.
	RoleAnalyst Role = "analyst"

	// RoleViewer has read-only dashboard access.
	RoleViewer Role = "viewer"
)

// Permission is a named boolean capability resolved through the static
// role table. Permission names mirror the keys the dashboard UI checks.
type Permission string

const (
	PermViewDashboard  Permission = "canViewDashboard"
	PermRunQueries     Permission = "canRunQueries"
	PermSaveQueries    Permission = "canSaveQueries"
	PermUseAI          Permission = "canUseAI"
	PermExportData     Permission = "canExportData"
	PermManageUsers    Permission = "canManageUsers"
	PermAccessSQLLab   Permission = "canAccessSQLLab"
	PermModifySettings Permission = "canModifySettings"
)

// =============================================================================
// ROLE PERMISSIONS MATRIX
// =============================================================================

// rolePermissions is the static role capability table. Permissions absent
// from a role's map are denied.
var rolePermissions = map[Role]map[Permission]bool{
	RoleAdmin: {
		PermViewDashboard:  true,
		PermRunQueries:     true,
		PermSaveQueries:    true,
		PermUseAI:          true,
		PermExportData:     true,
		PermManageUsers:    true,
		PermAccessSQLLab:   true,
		PermModifySettings: true,
	},
	RoleAnalyst: {
		PermViewDashboard:  true,
		PermRunQueries:     true,
		PermSaveQueries:    true,
		PermUseAI:          true,
		PermExportData:     true,
		PermManageUsers:    false,
		PermAccessSQLLab:   true,
		PermModifySettings: false,
	},
	RoleViewer: {
		PermViewDashboard:  true,
		PermRunQueries:     false,
		PermSaveQueries:    false,
		PermUseAI:          false,
		PermExportData:     false,
		PermManageUsers:    false,
		PermAccessSQLLab:   false,
		PermModifySettings: false,
	},
}

// RoleHasPermission resolves a permission for a role against the static
// table. Unknown roles and unknown permissions are denied.
func RoleHasPermission(role Role, perm Permission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	return perms[perm]
}

// PermissionsFor returns a copy of the full permission set for a role.
func PermissionsFor(role Role) map[Permission]bool {
	perms := rolePermissions[role]
	out := make(map[Permission]bool, len(perms))
	for p, allowed := range perms {
		out[p] = allowed
	}
	return out
}
