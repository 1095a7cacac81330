// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import "testing"

func TestRoleHasPermission(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleAdmin, PermManageUsers, true},
		{RoleAdmin, PermModifySettings, true},
		{RoleAdmin, PermExportData, true},
		{RoleAnalyst, PermRunQueries, true},
		{RoleAnalyst, PermSaveQueries, true},
		{RoleAnalyst, PermUseAI, true},
		{RoleAnalyst, PermExportData, true},
		{RoleAnalyst, PermAccessSQLLab, true},
		{RoleAnalyst, PermManageUsers, false},
		{RoleAnalyst, PermModifySettings, false},
		{RoleViewer, PermViewDashboard, true},
		{RoleViewer, PermRunQueries, false},
		{RoleViewer, PermExportData, false},
		{RoleViewer, PermAccessSQLLab, false},
		{Role("unknown"), PermViewDashboard, false},
		{RoleAdmin, Permission("canDoAnything"), false},
	}

	for _, tt := range tests {
		if got := RoleHasPermission(tt.role, tt.perm); got != tt.want {
			t.Errorf("RoleHasPermission(%s, %s) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
}

func TestPermissionsFor_ReturnsCopy(t *testing.T) {
	perms := PermissionsFor(RoleViewer)
	if len(perms) != 8 {
		t.Fatalf("PermissionsFor(viewer) has %d entries, want 8", len(perms))
	}

	perms[PermManageUsers] = true
	if RoleHasPermission(RoleViewer, PermManageUsers) {
		t.Error("mutating the returned map leaked into the role table")
	}
}

func TestVerifyCredentials_DemoRoster(t *testing.T) {
	r := DefaultRoster()

	if !r.VerifyCredentials("admin@techcorp.com", "admin123") {
		t.Error("admin demo credentials rejected")
	}
	if r.VerifyCredentials("admin@techcorp.com", "admin124") {
		t.Error("wrong password accepted")
	}
	if !r.VerifyCredentials("ANALYST@techcorp.com", "analyst123") {
		t.Error("email matching should be case-insensitive")
	}
}
