// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package authz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/squadapi/internal/models"
)

func newTestEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	e, err := NewEnforcer(EnforcerConfig{})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestRoleHierarchy(t *testing.T) {
	e := newTestEnforcer(t)

	user := (&models.User{}).RoleNames()
	member := (&models.User{Roles: models.Roles{Member: true}}).RoleNames()
	super := (&models.User{Roles: models.Roles{Member: true, SuperUser: true}}).RoleNames()
	archived := (&models.User{Roles: models.Roles{SuperUser: true, Archived: true}}).RoleNames()

	tests := []struct {
		name     string
		roles    []string
		obj, act string
		want     bool
	}{
		{"user creates requests", user, ObjRequests, ActCreate, true},
		{"user cannot review", user, ObjRequests, ActReview, false},
		{"user cannot request tasks", user, ObjTasks, ActRequest, false},
		{"member requests tasks", member, ObjTasks, ActRequest, true},
		{"member inherits user", member, ObjShortURLs, ActCreate, true},
		{"member cannot manage users", member, ObjUsers, ActManage, false},
		{"super user reviews", super, ObjRequests, ActReview, true},
		{"super user inherits member", super, ObjTasks, ActRequest, true},
		{"super user impersonates", super, ObjImpersonation, ActRequest, true},
		{"archived loses everything", archived, ObjRequests, ActCreate, false},
		{"archived super user", archived, ObjUsers, ActManage, false},
		{"unknown object", super, "reactor", "melt", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Allowed(tt.roles, tt.obj, tt.act); got != tt.want {
				t.Errorf("Allowed(%v, %s, %s) = %v, want %v", tt.roles, tt.obj, tt.act, got, tt.want)
			}
		})
	}
}

func TestDecisionCache(t *testing.T) {
	e := newTestEnforcer(t)
	before := testutil.ToFloat64(AuthzCacheHits)

	e.Allowed([]string{"user"}, ObjLogs, ActRead)
	e.Allowed([]string{"user"}, ObjLogs, ActRead)

	if got := testutil.ToFloat64(AuthzCacheHits); got != before+1 {
		t.Errorf("cache hits = %v, want %v", got, before+1)
	}
}

func TestFilePolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.csv")
	if err := os.WriteFile(path, []byte("p, user, logs, read\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	e, err := NewEnforcer(EnforcerConfig{PolicyPath: path})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	defer e.Close()

	if !e.Allowed([]string{"user"}, ObjLogs, ActRead) {
		t.Error("file policy should grant logs:read to user")
	}
	if e.Allowed([]string{"user"}, ObjRequests, ActCreate) {
		t.Error("file policy replaces the embedded one")
	}

	if err := os.WriteFile(path, []byte("p, user, requests, create\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := e.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if e.Allowed([]string{"user"}, ObjLogs, ActRead) {
		t.Error("reload should drop cached allow")
	}
}

func TestLoadEmbeddedPolicyRejectsMalformed(t *testing.T) {
	e := newTestEnforcer(t)
	if err := loadEmbeddedPolicy(e.enforcer, "p, only, two"); err == nil {
		t.Error("expected error for malformed line")
	}
}
