// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package users manages community accounts, their roles, membership and
// availability status.
package users

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tomtom215/squadapi/internal/apperr"
	"github.com/tomtom215/squadapi/internal/audit"
	"github.com/tomtom215/squadapi/internal/auth"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/events"
	"github.com/tomtom215/squadapi/internal/logging"
	"github.com/tomtom215/squadapi/internal/models"
)

var (
	ErrUserNotFound    = apperr.NotFound("user not found")
	ErrUsernameTaken   = apperr.Conflict("username is already taken")
	ErrUsernameLocked  = apperr.Invalid("username can only be changed while the profile is incomplete")
	ErrUnknownRole     = apperr.Invalid("unknown role filter")
	ErrAlreadyMember   = apperr.Conflict("user is already a member")
	ErrAlreadyArchived = apperr.Conflict("user is already archived")
)

// Service implements user operations.
type Service struct {
	store     *database.Store
	events    events.Publisher
	bootstrap map[string]bool
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the user service. GitHub accounts listed in
// bootstrapGithubIDs become super users on first login.
func NewService(store *database.Store, pub events.Publisher, bootstrapGithubIDs []string, opts ...Option) *Service {
	s := &Service{
		store:     store,
		events:    pub,
		bootstrap: make(map[string]bool, len(bootstrapGithubIDs)),
		now:       time.Now,
	}
	for _, id := range bootstrapGithubIDs {
		s.bootstrap[id] = true
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	return s
}

// Now returns the service clock.
func (s *Service) Now() time.Time {
	return s.now()
}

// GetUser loads a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u *models.User
	err := s.store.View(ctx, func(tx *database.Tx) error {
		var err error
		u, err = Load(tx, id)
		return err
	})
	return u, err
}

// ByUsername loads a user by username.
func (s *Service) ByUsername(ctx context.Context, username string) (*models.User, error) {
	var u *models.User
	err := s.store.View(ctx, func(tx *database.Tx) error {
		var err error
		u, err = LoadByUsername(tx, username)
		return err
	})
	return u, err
}

// Load reads a user inside tx.
func Load(tx *database.Tx, id string) (*models.User, error) {
	u, err := database.Get[models.User](tx, database.Users, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// LoadByUsername reads a user through the username index inside tx.
func LoadByUsername(tx *database.Tx, username string) (*models.User, error) {
	id, err := tx.LookupIndex(database.Users, database.IndexUsername, strings.ToLower(username))
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return Load(tx, id)
}

// ListFilter narrows List. Role is one of member, super_user, archived or
// in_discord.
type ListFilter struct {
	Search string
	Role   string
	Limit  int
	Offset int
}

// List returns users ordered by username and the total match count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.User, int, error) {
	hasRole, err := roleMatcher(f.Role)
	if err != nil {
		return nil, 0, err
	}
	search := strings.ToLower(f.Search)

	var found []models.User
	err = s.store.View(ctx, func(tx *database.Tx) error {
		found, err = database.List(tx, database.Users, func(u *models.User) bool {
			return strings.HasPrefix(u.Username, search) && hasRole(u)
		})
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	slices.SortFunc(found, func(a, b models.User) int { return strings.Compare(a.Username, b.Username) })
	return database.Page(found, f.Limit, f.Offset), len(found), nil
}

func roleMatcher(role string) (func(*models.User) bool, error) {
	switch role {
	case "":
		return func(*models.User) bool { return true }, nil
	case models.RoleMember:
		return func(u *models.User) bool { return u.Roles.Member && !u.Roles.Archived }, nil
	case models.RoleSuperUser:
		return func(u *models.User) bool { return u.Roles.SuperUser }, nil
	case models.RoleArchived:
		return func(u *models.User) bool { return u.Roles.Archived }, nil
	case "in_discord":
		return func(u *models.User) bool { return u.Roles.InDiscord }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
}

// UsernameAvailable reports whether username is unclaimed.
func (s *Service) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	available := false
	err := s.store.View(ctx, func(tx *database.Tx) error {
		_, err := tx.LookupIndex(database.Users, database.IndexUsername, strings.ToLower(username))
		if errors.Is(err, database.ErrNotFound) {
			available = true
			return nil
		}
		return err
	})
	return available, err
}

// ProfileUpdate carries the self-editable fields. Nil fields are left alone.
type ProfileUpdate struct {
	Username    *string `json:"username" validate:"omitempty,username"`
	FirstName   *string `json:"first_name" validate:"omitempty,min=1,max=50"`
	LastName    *string `json:"last_name" validate:"omitempty,min=1,max=50"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone" validate:"omitempty,max=20"`
	YOE         *int    `json:"yoe" validate:"omitempty,gte=0,lte=50"`
	Company     *string `json:"company" validate:"omitempty,max=100"`
	Designation *string `json:"designation" validate:"omitempty,max=100"`
	LinkedinID  *string `json:"linkedin_id" validate:"omitempty,max=100"`
	TwitterID   *string `json:"twitter_id" validate:"omitempty,max=100"`
	InstagramID *string `json:"instagram_id" validate:"omitempty,max=100"`
	Website     *string `json:"website" validate:"omitempty,http_url"`
}

// UpdateProfile applies p to the user's own profile.
func (s *Service) UpdateProfile(ctx context.Context, userID string, p ProfileUpdate) (*models.User, error) {
	var updated *models.User
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		u, err := Load(tx, userID)
		if err != nil {
			return err
		}
		if p.Username != nil && *p.Username != u.Username {
			if !u.IncompleteUserDetails {
				return ErrUsernameLocked
			}
			if err := claimUsername(tx, u, *p.Username); err != nil {
				return err
			}
		}
		set(&u.FirstName, p.FirstName)
		set(&u.LastName, p.LastName)
		set(&u.Email, p.Email)
		set(&u.Phone, p.Phone)
		set(&u.Company, p.Company)
		set(&u.Designation, p.Designation)
		set(&u.LinkedinID, p.LinkedinID)
		set(&u.TwitterID, p.TwitterID)
		set(&u.InstagramID, p.InstagramID)
		set(&u.Website, p.Website)
		if p.YOE != nil {
			u.YOE = *p.YOE
		}
		if u.IncompleteUserDetails && u.DetailsComplete() {
			u.IncompleteUserDetails = false
		}
		u.UpdatedAt = s.now().UTC()
		updated = u
		return tx.Put(database.Users, u.ID, u)
	})
	return updated, err
}

func claimUsername(tx *database.Tx, u *models.User, username string) error {
	username = strings.ToLower(username)
	err := tx.SetIndex(database.Users, database.IndexUsername, username, u.ID)
	if errors.Is(err, database.ErrIndexTaken) {
		return ErrUsernameTaken
	}
	if err != nil {
		return err
	}
	if u.Username != "" && u.Username != username {
		if err := tx.DeleteIndex(database.Users, database.IndexUsername, u.Username); err != nil {
			return err
		}
	}
	u.Username = username
	return nil
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// RolesUpdate toggles role flags. Nil fields are left alone.
type RolesUpdate struct {
	Archived  *bool   `json:"archived"`
	InDiscord *bool   `json:"in_discord"`
	Member    *bool   `json:"member"`
	SuperUser *bool   `json:"super_user"`
	DiscordID *string `json:"discord_id" validate:"omitempty,numeric,max=32"`
}

// UpdateRoles applies r to the user identified by userID.
func (s *Service) UpdateRoles(ctx context.Context, actorID, userID string, r RolesUpdate) (*models.User, error) {
	now := s.now().UTC()
	var (
		updated     *models.User
		archivedNow bool
	)
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		u, err := Load(tx, userID)
		if err != nil {
			return err
		}
		before := u.Roles
		archivedNow = r.Archived != nil && *r.Archived && !before.Archived

		setBool(&u.Roles.Archived, r.Archived)
		setBool(&u.Roles.Member, r.Member)
		setBool(&u.Roles.SuperUser, r.SuperUser)
		setBool(&u.Roles.InDiscord, r.InDiscord)
		if r.DiscordID != nil {
			u.DiscordID = *r.DiscordID
		}
		if u.Roles.InDiscord && !before.InDiscord && u.DiscordJoinedAt == nil {
			u.DiscordJoinedAt = &now
		}
		u.UpdatedAt = now
		updated = u

		if err := tx.Put(database.Users, u.ID, u); err != nil {
			return err
		}
		return audit.Record(tx, now, audit.Entry{
			Type: models.LogUserRoleUpdated,
			Meta: map[string]string{audit.MetaUserID: u.ID, audit.MetaActorID: actorID},
			Body: map[string]interface{}{"before": before, "after": u.Roles},
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.UserRolesUpdated, updated.ID, map[string]interface{}{"actor_id": actorID})
	if archivedNow {
		s.publish(ctx, events.UserArchived, updated.ID, map[string]interface{}{"actor_id": actorID})
	}
	return updated, nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// LoginWithGitHub finds the user linked to profile, creating one on first
// login. The boolean reports whether the user was created.
func (s *Service) LoginWithGitHub(ctx context.Context, profile *auth.GitHubProfile) (*models.User, bool, error) {
	githubID := profile.ID
	now := s.now().UTC()
	var (
		user    *models.User
		created bool
	)
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		created = false
		id, err := tx.LookupIndex(database.Users, database.IndexGithubID, githubID)
		switch {
		case err == nil:
			u, err := Load(tx, id)
			if err != nil {
				return err
			}
			u.Picture = profile.AvatarURL
			u.GithubDisplayName = profile.Name
			u.UpdatedAt = now
			user = u
			return tx.Put(database.Users, u.ID, u)
		case !errors.Is(err, database.ErrNotFound):
			return err
		}

		u := newUserFromGitHub(githubID, profile, now)
		if s.bootstrap[githubID] {
			u.Roles.SuperUser = true
			u.Roles.Member = true
		}
		if err := tx.SetIndex(database.Users, database.IndexGithubID, githubID, u.ID); err != nil {
			return err
		}
		if err := tx.Put(database.Users, u.ID, u); err != nil {
			return err
		}
		initial := models.StateOnboarding
		if u.Roles.Member {
			initial = models.StateActive
		}
		if err := SaveStatus(tx, &models.UserStatus{
			UserID:    u.ID,
			Current:   models.Status{State: initial, UpdatedAt: now},
			UpdatedAt: now,
		}); err != nil {
			return err
		}
		user, created = u, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		logging.Ctx(ctx).Info().Str("user_id", user.ID).Str("github_id", githubID).Msg("User created from GitHub login")
	}
	return user, created, nil
}

func newUserFromGitHub(githubID string, p *auth.GitHubProfile, now time.Time) *models.User {
	first, last, _ := strings.Cut(strings.TrimSpace(p.Name), " ")
	return &models.User{
		ID:                    database.NewID(),
		FirstName:             first,
		LastName:              strings.TrimSpace(last),
		Email:                 p.Email,
		Picture:               p.AvatarURL,
		GithubID:              githubID,
		GithubDisplayName:     p.Name,
		IncompleteUserDetails: true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

func (s *Service) publish(ctx context.Context, t events.Type, userID string, data map[string]interface{}) {
	e := events.New(t, userID, userID, data)
	e.OccurredAt = s.now().UTC()
	if err := s.events.Publish(ctx, e); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event_type", string(t)).Msg("Failed to publish event")
	}
}
