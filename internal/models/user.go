// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package models holds the documents persisted in the store and returned by
// the API. Field names follow the snake_case JSON used by existing clients.
package models

import "time"

// Role names used for authorization. Every active user has RoleUser.
const (
	RoleUser      = "user"
	RoleMember    = "member"
	RoleSuperUser = "super_user"
	RoleArchived  = "archived"
)

// Roles are the boolean role flags stored on a user.
type Roles struct {
	SuperUser      bool `json:"super_user"`
	Member         bool `json:"member"`
	Archived       bool `json:"archived"`
	InDiscord      bool `json:"in_discord"`
	Maven          bool `json:"maven,omitempty"`
	Designer       bool `json:"designer,omitempty"`
	ProductManager bool `json:"product_manager,omitempty"`
}

// User is a community account created on first GitHub login.
type User struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Email             string     `json:"email,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	YOE               int        `json:"yoe"`
	Company           string     `json:"company,omitempty"`
	Designation       string     `json:"designation,omitempty"`
	Picture           string     `json:"picture,omitempty"`
	GithubID          string     `json:"github_id"`
	GithubDisplayName string     `json:"github_display_name,omitempty"`
	LinkedinID        string     `json:"linkedin_id,omitempty"`
	TwitterID         string     `json:"twitter_id,omitempty"`
	InstagramID       string     `json:"instagram_id,omitempty"`
	Website           string     `json:"website,omitempty"`
	DiscordID         string     `json:"discord_id,omitempty"`
	DiscordJoinedAt   *time.Time `json:"discord_joined_at,omitempty"`
	Roles             Roles      `json:"roles"`

	// IncompleteUserDetails stays true until the user has picked a username
	// and supplied first and last name. Username changes are only allowed
	// while it is true.
	IncompleteUserDetails bool `json:"incomplete_user_details"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoleNames returns the authorization roles the user holds.
// Archived users hold RoleArchived alone.
func (u *User) RoleNames() []string {
	if u.Roles.Archived {
		return []string{RoleArchived}
	}
	names := []string{RoleUser}
	if u.Roles.Member {
		names = append(names, RoleMember)
	}
	if u.Roles.SuperUser {
		names = append(names, RoleSuperUser)
	}
	return names
}

// IsSuperUser reports whether the user holds the super user role.
func (u *User) IsSuperUser() bool {
	return u.Roles.SuperUser && !u.Roles.Archived
}

// DetailsComplete reports whether the profile has the fields required to
// leave the incomplete state.
func (u *User) DetailsComplete() bool {
	return u.Username != "" && u.FirstName != "" && u.LastName != ""
}

// PublicUser is the user representation exposed to other users.
type PublicUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Picture     string `json:"picture,omitempty"`
	Company     string `json:"company,omitempty"`
	Designation string `json:"designation,omitempty"`
	GithubID    string `json:"github_id"`
	LinkedinID  string `json:"linkedin_id,omitempty"`
	TwitterID   string `json:"twitter_id,omitempty"`
	Website     string `json:"website,omitempty"`
	Roles       Roles  `json:"roles"`
}

// Public strips contact details from u.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Picture:     u.Picture,
		Company:     u.Company,
		Designation: u.Designation,
		GithubID:    u.GithubID,
		LinkedinID:  u.LinkedinID,
		TwitterID:   u.TwitterID,
		Website:     u.Website,
		Roles:       u.Roles,
	}
}
