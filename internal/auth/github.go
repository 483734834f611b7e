// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/tomtom215/squadapi/internal/config"
)

const (
	defaultGitHubAuthURL  = "https://github.com/login/oauth/authorize"
	defaultGitHubTokenURL = "https://github.com/login/oauth/access_token"
	defaultGitHubAPIURL   = "https://api.github.com"
)

// ErrGitHubDisabled is returned when no OAuth client is configured.
var ErrGitHubDisabled = errors.New("github login is not configured")

// GitHubProfile is the subset of the GitHub user payload used at login.
type GitHubProfile struct {
	ID        string
	Login     string
	Name      string
	Email     string
	AvatarURL string
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// GitHubClient runs the OAuth authorization code flow against GitHub.
type GitHubClient struct {
	oauth  *oauth2.Config
	apiURL string
}

// NewGitHubClient returns nil when the client ID or secret is unset.
func NewGitHubClient(cfg *config.GitHubConfig) *GitHubClient {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil
	}
	authURL, tokenURL, apiURL := cfg.AuthURL, cfg.TokenURL, cfg.APIURL
	if authURL == "" {
		authURL = defaultGitHubAuthURL
	}
	if tokenURL == "" {
		tokenURL = defaultGitHubTokenURL
	}
	if apiURL == "" {
		apiURL = defaultGitHubAPIURL
	}
	return &GitHubClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiURL: strings.TrimRight(apiURL, "/"),
	}
}

// AuthCodeURL returns the GitHub consent URL carrying state.
func (c *GitHubClient) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token and fetches the profile.
func (c *GitHubClient) Exchange(ctx context.Context, code string) (*GitHubProfile, error) {
	if c == nil {
		return nil, ErrGitHubDisabled
	}
	if code == "" {
		return nil, errors.New("missing authorization code")
	}
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch github user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch github user: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var gu githubUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, fmt.Errorf("decode github user: %w", err)
	}
	if gu.ID == 0 {
		return nil, errors.New("github user has no id")
	}
	return &GitHubProfile{
		ID:        strconv.FormatInt(gu.ID, 10),
		Login:     gu.Login,
		Name:      gu.Name,
		Email:     gu.Email,
		AvatarURL: gu.AvatarURL,
	}, nil
}
