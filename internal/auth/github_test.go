// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/tomtom215/squadapi/internal/config"
)

func newFakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_test","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":4242,"login":"Ankur","name":"Ankur B","email":"a@b.co","avatar_url":"https://img"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewGitHubClientDisabled(t *testing.T) {
	if c := NewGitHubClient(&config.GitHubConfig{}); c != nil {
		t.Error("expected nil client without credentials")
	}
	var c *GitHubClient
	if _, err := c.Exchange(context.Background(), "x"); err != ErrGitHubDisabled {
		t.Errorf("nil client Exchange error = %v", err)
	}
}

func TestGitHubExchange(t *testing.T) {
	srv := newFakeGitHub(t)
	c := NewGitHubClient(&config.GitHubConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		CallbackURL:  "http://localhost:3000/auth/github/callback",
		AuthURL:      srv.URL + "/login/oauth/authorize",
		TokenURL:     srv.URL + "/login/oauth/access_token",
		APIURL:       srv.URL,
	})

	u, err := url.Parse(c.AuthCodeURL("state-123"))
	if err != nil {
		t.Fatal(err)
	}
	if u.Query().Get("state") != "state-123" || !strings.Contains(u.Query().Get("scope"), "read:user") {
		t.Errorf("AuthCodeURL = %s", u)
	}

	profile, err := c.Exchange(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if profile.ID != "4242" || profile.Login != "Ankur" || profile.AvatarURL != "https://img" {
		t.Errorf("profile = %+v", profile)
	}

	if _, err := c.Exchange(context.Background(), "bad-code"); err == nil {
		t.Error("Exchange() with bad code expected error")
	}
}
