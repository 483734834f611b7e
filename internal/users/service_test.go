// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/squadapi/internal/apperr"
	"github.com/tomtom215/squadapi/internal/audit"
	"github.com/tomtom215/squadapi/internal/auth"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/events"
	"github.com/tomtom215/squadapi/internal/models"
)

var testNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *database.Store
	svc    *Service
	events *events.Recorder
	clock  *time.Time
}

func newFixture(t *testing.T, bootstrap ...string) *fixture {
	t.Helper()
	store, err := database.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	f := &fixture{store: store, events: &events.Recorder{}}
	now := testNow
	f.clock = &now
	f.svc = NewService(store, f.events, bootstrap, WithClock(func() time.Time { return *f.clock }))
	return f
}

// signup creates a user through GitHub login and completes the profile.
func (f *fixture) signup(t *testing.T, githubID, username string) *models.User {
	t.Helper()
	ctx := context.Background()
	u, created, err := f.svc.LoginWithGitHub(ctx, &auth.GitHubProfile{ID: githubID, Login: username, Name: "Test " + username})
	if err != nil || !created {
		t.Fatalf("LoginWithGitHub(%s) = %v, created=%v", githubID, err, created)
	}
	last := "User"
	u, err = f.svc.UpdateProfile(ctx, u.ID, ProfileUpdate{Username: &username, LastName: &last})
	if err != nil {
		t.Fatalf("UpdateProfile(%s) = %v", username, err)
	}
	return u
}

func TestLoginWithGitHub(t *testing.T) {
	f := newFixture(t, "42")
	ctx := context.Background()

	admin, created, err := f.svc.LoginWithGitHub(ctx, &auth.GitHubProfile{ID: "42", Name: "Ada Lovelace", AvatarURL: "a.png"})
	if err != nil || !created {
		t.Fatalf("first login: %v created=%v", err, created)
	}
	if !admin.IsSuperUser() || !admin.Roles.Member {
		t.Errorf("bootstrap user roles = %+v", admin.Roles)
	}
	if admin.FirstName != "Ada" || admin.LastName != "Lovelace" || !admin.IncompleteUserDetails {
		t.Errorf("user = %+v", admin)
	}

	again, created, err := f.svc.LoginWithGitHub(ctx, &auth.GitHubProfile{ID: "42", Name: "Ada Lovelace", AvatarURL: "b.png"})
	if err != nil || created || again.ID != admin.ID || again.Picture != "b.png" {
		t.Errorf("second login = %+v, created=%v, err=%v", again, created, err)
	}

	newbie, _, err := f.svc.LoginWithGitHub(ctx, &auth.GitHubProfile{ID: "7", Name: "Newbie"})
	if err != nil {
		t.Fatal(err)
	}
	if newbie.Roles.Member || newbie.Roles.SuperUser {
		t.Errorf("regular user roles = %+v", newbie.Roles)
	}
	st, err := f.svc.Status(ctx, newbie.ID)
	if err != nil || st.Current.State != models.StateOnboarding {
		t.Errorf("new user status = %+v, %v", st, err)
	}
}

func TestUpdateProfileUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ankur := f.signup(t, "1", "ankur")

	if ankur.IncompleteUserDetails {
		t.Error("details should be complete after username and names are set")
	}
	other := "someone-else"
	if _, err := f.svc.UpdateProfile(ctx, ankur.ID, ProfileUpdate{Username: &other}); !errors.Is(err, ErrUsernameLocked) {
		t.Errorf("username change on complete profile = %v", err)
	}

	u2, _, _ := f.svc.LoginWithGitHub(ctx, &auth.GitHubProfile{ID: "2", Name: "Second"})
	taken := "ankur"
	_, err := f.svc.UpdateProfile(ctx, u2.ID, ProfileUpdate{Username: &taken})
	if !errors.Is(err, ErrUsernameTaken) || !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("taken username = %v", err)
	}

	available, err := f.svc.UsernameAvailable(ctx, "ankur")
	if err != nil || available {
		t.Errorf("UsernameAvailable(ankur) = %v, %v", available, err)
	}
	available, _ = f.svc.UsernameAvailable(ctx, "free-name")
	if !available {
		t.Error("free-name should be available")
	}

	byName, err := f.svc.ByUsername(ctx, "ANKUR")
	if err != nil || byName.ID != ankur.ID {
		t.Errorf("ByUsername = %+v, %v", byName, err)
	}
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i, name := range []string{"carol", "alice", "alfred", "bob"} {
		f.signup(t, string(rune('a'+i)), name)
	}
	bob, _ := f.svc.ByUsername(ctx, "bob")
	if _, err := f.svc.MoveToMember(ctx, "admin", "bob"); err != nil {
		t.Fatal(err)
	}

	all, total, err := f.svc.List(ctx, ListFilter{})
	if err != nil || total != 4 || all[0].Username != "alfred" {
		t.Fatalf("List() = %v total=%d err=%v", all, total, err)
	}

	al, total, _ := f.svc.List(ctx, ListFilter{Search: "al"})
	if total != 2 || al[1].Username != "alice" {
		t.Errorf("search al = %v", al)
	}

	members, total, _ := f.svc.Members(ctx, 10, 0)
	if total != 1 || members[0].ID != bob.ID {
		t.Errorf("Members() = %v", members)
	}

	page, total, _ := f.svc.List(ctx, ListFilter{Limit: 2, Offset: 2})
	if total != 4 || len(page) != 2 || page[0].Username != "bob" {
		t.Errorf("page = %v", page)
	}

	if _, _, err := f.svc.List(ctx, ListFilter{Role: "wizard"}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("unknown role = %v", err)
	}
}

func TestUpdateRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.signup(t, "9", "dana")

	yes := true
	discordID := "123456"
	updated, err := f.svc.UpdateRoles(ctx, "admin", u.ID, RolesUpdate{InDiscord: &yes, DiscordID: &discordID, Archived: &yes})
	if err != nil {
		t.Fatal(err)
	}
	if !updated.Roles.Archived || updated.DiscordJoinedAt == nil || !updated.DiscordJoinedAt.Equal(testNow) {
		t.Errorf("updated = %+v", updated)
	}
	if got := updated.RoleNames(); len(got) != 1 || got[0] != models.RoleArchived {
		t.Errorf("RoleNames() = %v", got)
	}

	types := f.events.Types()
	if len(types) != 2 || types[0] != events.UserRolesUpdated || types[1] != events.UserArchived {
		t.Errorf("events = %v", types)
	}

	logs, total, err := audit.NewService(f.store).List(ctx, audit.Filter{Type: models.LogUserRoleUpdated})
	if err != nil || total != 1 || logs[0].Meta[audit.MetaActorID] != "admin" {
		t.Errorf("logs = %v, %v", logs, err)
	}

	if _, err := f.svc.UpdateRoles(ctx, "admin", "missing", RolesUpdate{}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("missing user = %v", err)
	}
}

func TestMoveAndArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.signup(t, "3", "eve")

	if _, err := f.svc.MoveToMember(ctx, "admin", "eve"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.MoveToMember(ctx, "admin", "eve"); !errors.Is(err, ErrAlreadyMember) {
		t.Errorf("second move = %v", err)
	}
	st, _ := f.svc.Status(ctx, u.ID)
	if st.Current.State != models.StateActive {
		t.Errorf("status after move = %s", st.Current.State)
	}

	archived, err := f.svc.Archive(ctx, "admin", "eve", "inactive for months")
	if err != nil || !archived.Roles.Archived {
		t.Fatalf("Archive() = %+v, %v", archived, err)
	}
	if _, err := f.svc.Archive(ctx, "admin", "eve", "again"); !errors.Is(err, ErrAlreadyArchived) {
		t.Errorf("second archive = %v", err)
	}
	if _, err := f.svc.Archive(ctx, "admin", "ghost", "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("archive missing = %v", err)
	}

	last := f.events.Events()[len(f.events.Events())-1]
	if last.Type != events.UserArchived || last.String("reason") != "inactive for months" {
		t.Errorf("last event = %+v", last)
	}
}
