// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/squadapi/internal/audit"
	"github.com/tomtom215/squadapi/internal/auth"
	"github.com/tomtom215/squadapi/internal/authz"
	"github.com/tomtom215/squadapi/internal/challenges"
	"github.com/tomtom215/squadapi/internal/config"
	"github.com/tomtom215/squadapi/internal/crypto"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/events"
	"github.com/tomtom215/squadapi/internal/models"
	"github.com/tomtom215/squadapi/internal/recruiters"
	"github.com/tomtom215/squadapi/internal/requests"
	"github.com/tomtom215/squadapi/internal/shorturl"
	"github.com/tomtom215/squadapi/internal/tasks"
	"github.com/tomtom215/squadapi/internal/users"
)

type fakeGitHub struct {
	profile *auth.GitHubProfile
}

func (f fakeGitHub) AuthCodeURL(state string) string {
	return "https://github.test/login/oauth/authorize?state=" + state
}

func (f fakeGitHub) Exchange(_ context.Context, code string) (*auth.GitHubProfile, error) {
	if code != "good-code" {
		return nil, errors.New("bad verification code")
	}
	return f.profile, nil
}

type testServer struct {
	router http.Handler
	store  *database.Store
	tokens *auth.JWTManager
	events *events.Recorder

	admin, member, newbie, archived *models.User
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{PublicURL: "http://squad.test"},
		Security: config.SecurityConfig{
			JWTSecret:            strings.Repeat("k", 40),
			SessionTimeout:       time.Hour,
			ImpersonationTimeout: 15 * time.Minute,
			CookieName:           "squad-session",
			RateLimitDisabled:    true,
		},
		Wallet: config.WalletConfig{StartingDinero: 1000, StartingNeelam: 10},
		API:    config.APIConfig{DefaultPageSize: 20, MaxPageSize: 100},
	}
}

func newTestServer(t *testing.T, github OAuthProvider) *testServer {
	t.Helper()
	cfg := testConfig()

	store, err := database.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	enforcer, err := authz.NewEnforcer(authz.EnforcerConfig{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(enforcer.Close)

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatal(err)
	}

	rec := &events.Recorder{}
	usersSvc := users.NewService(store, rec, []string{"1"})
	requestsSvc := requests.NewService(requests.Config{
		Store:  store,
		Authz:  enforcer,
		Events: rec,
		Tokens: jwtManager,
	})
	h := NewHandler(Deps{
		Config:     cfg,
		Store:      store,
		Authz:      enforcer,
		Auth:       auth.NewAuthenticator(jwtManager, usersSvc, cfg.Security.CookieName, auth.WithImpersonationCheck(requestsSvc)),
		Tokens:     jwtManager,
		Cookies:    auth.NewCookieWriter(&cfg.Security),
		GitHub:     github,
		Users:      usersSvc,
		Tasks:      tasks.NewService(store, enforcer, nil),
		Requests:   requestsSvc,
		Crypto:     crypto.NewService(crypto.Config{Store: store, Wallet: cfg.Wallet, Events: rec}),
		ShortURLs:  shorturl.NewService(store, nil),
		Recruiters: recruiters.NewService(store, nil),
		Challenges: challenges.NewService(store, nil),
		Logs:       audit.NewService(store),
	})

	s := &testServer{router: NewRouter(h), store: store, tokens: jwtManager, events: rec}
	s.admin = s.putUser(t, &models.User{ID: "admin", Username: "boss", FirstName: "Bo", LastName: "Ss", Roles: models.Roles{SuperUser: true, Member: true}})
	s.member = s.putUser(t, &models.User{ID: "m1", Username: "mia", FirstName: "Mia", LastName: "Wong", Roles: models.Roles{Member: true}})
	s.newbie = s.putUser(t, &models.User{ID: "n1", Username: "nia", FirstName: "Nia", LastName: "Ray"})
	s.archived = s.putUser(t, &models.User{ID: "a1", Username: "ash", FirstName: "Ash", LastName: "Lee", Roles: models.Roles{Member: true, Archived: true}})
	return s
}

func (s *testServer) putUser(t *testing.T, u *models.User) *models.User {
	t.Helper()
	err := s.store.Update(context.Background(), func(tx *database.Tx) error {
		if err := tx.SetIndex(database.Users, database.IndexUsername, u.Username, u.ID); err != nil {
			return err
		}
		return tx.Put(database.Users, u.ID, u)
	})
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func (s *testServer) token(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := s.tokens.GenerateToken(u.ID)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

// do sends a request as token (empty for anonymous) with an optional JSON body.
func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data %s: %v", env.Data, err)
		}
	}
	return env
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", w.Code, want, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	expectStatus(t, w, http.StatusOK)
	var data map[string]interface{}
	if env := decode(t, w, &data); !env.Success || data["status"] != "healthy" {
		t.Errorf("health = %s", w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/health/ready", "", nil)
	expectStatus(t, w, http.StatusOK)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/no/such/route", "", nil)
	expectStatus(t, w, http.StatusNotFound)
	if env := decode(t, w, nil); env.Success || env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized},
		{"valid token", s.token(t, s.member), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/users/self", tt.token, nil)
			expectStatus(t, w, tt.want)
		})
	}

	// Cookie sessions are accepted as well as bearer tokens.
	req := httptest.NewRequest(http.MethodGet, "/users/self", nil)
	req.AddCookie(&http.Cookie{Name: "squad-session", Value: s.token(t, s.member)})
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	expectStatus(t, w, http.StatusOK)
	var self models.User
	decode(t, w, &self)
	if self.ID != s.member.ID {
		t.Errorf("self = %+v", self)
	}
}

func TestPermissions(t *testing.T) {
	s := newTestServer(t, nil)
	task := map[string]interface{}{"title": "Fix login", "type": "bug"}

	tests := []struct {
		name   string
		method string
		path   string
		user   *models.User
		body   interface{}
		want   int
	}{
		{"user cannot create tasks", http.MethodPost, "/tasks", s.newbie, task, http.StatusForbidden},
		{"member cannot create tasks", http.MethodPost, "/tasks", s.member, task, http.StatusForbidden},
		{"super user creates tasks", http.MethodPost, "/tasks", s.admin, task, http.StatusCreated},
		{"member cannot read logs", http.MethodGet, "/logs", s.member, nil, http.StatusForbidden},
		{"super user reads logs", http.MethodGet, "/logs", s.admin, nil, http.StatusOK},
		{"archived user cannot update profile", http.MethodPatch, "/users/self", s.archived, map[string]string{"first_name": "A"}, http.StatusForbidden},
		{"member cannot read other wallets", http.MethodGet, "/wallet/nia", s.member, nil, http.StatusForbidden},
		{"super user reads other wallets", http.MethodGet, "/wallet/nia", s.admin, nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, s.token(t, tt.user), tt.body)
			expectStatus(t, w, tt.want)
			if tt.want == http.StatusForbidden {
				if env := decode(t, w, nil); env.Error == nil || env.Error.Code != ErrCodeForbidden {
					t.Errorf("body = %s", w.Body.String())
				}
			}
		})
	}
}

func TestValidationErrorEnvelope(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/tasks", s.token(t, s.admin), map[string]string{"type": "epic"})
	expectStatus(t, w, http.StatusBadRequest)
	env := decode(t, w, nil)
	if env.Error == nil || env.Error.Code != ErrCodeValidationFailed || env.Error.Details == nil {
		t.Errorf("body = %s", w.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+s.token(t, s.admin))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusBadRequest)
	if env := decode(t, rec, nil); env.Error == nil || env.Error.Code != ErrCodeBadRequest {
		t.Errorf("body = %s", rec.Body.String())
	}

	w = s.do(t, http.MethodGet, "/tasks?limit=zero", s.token(t, s.admin), nil)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestRequestReviewFlow(t *testing.T) {
	s := newTestServer(t, nil)
	tomorrow := time.Now().Add(24 * time.Hour)

	w := s.do(t, http.MethodPost, "/requests", s.token(t, s.member), map[string]interface{}{
		"type":   "OOO",
		"reason": "family trip",
		"from":   tomorrow.UnixMilli(),
		"until":  tomorrow.Add(72 * time.Hour).UnixMilli(),
	})
	expectStatus(t, w, http.StatusCreated)
	var req models.Request
	decode(t, w, &req)
	if req.ID == "" || req.State != models.RequestPending {
		t.Fatalf("created = %+v", req)
	}

	// A second pending OOO request from the same user conflicts.
	w = s.do(t, http.MethodPost, "/requests", s.token(t, s.member), map[string]interface{}{
		"type":   "OOO",
		"reason": "again",
		"from":   tomorrow.UnixMilli(),
		"until":  tomorrow.Add(time.Hour).UnixMilli(),
	})
	expectStatus(t, w, http.StatusConflict)

	path := "/requests/" + req.ID
	approve := map[string]string{"state": "APPROVED", "comment": "enjoy"}

	w = s.do(t, http.MethodPut, path, s.token(t, s.member), approve)
	expectStatus(t, w, http.StatusForbidden)

	w = s.do(t, http.MethodPut, path, s.token(t, s.admin), approve)
	expectStatus(t, w, http.StatusOK)
	decode(t, w, &req)
	if req.State != models.RequestApproved || req.LastModifiedBy != s.admin.ID {
		t.Errorf("reviewed = %+v", req)
	}

	w = s.do(t, http.MethodPut, path, s.token(t, s.admin), map[string]string{"state": "REJECTED"})
	expectStatus(t, w, http.StatusConflict)

	w = s.do(t, http.MethodGet, "/users/status/self", s.token(t, s.member), nil)
	expectStatus(t, w, http.StatusOK)
	var st models.UserStatus
	decode(t, w, &st)
	if st.Future == nil || st.Future.State != models.StateOOO {
		t.Errorf("status after approval = %+v", st)
	}

	// Other users cannot see the request; its owner can.
	w = s.do(t, http.MethodGet, path, s.token(t, s.newbie), nil)
	if w.Code == http.StatusOK {
		t.Errorf("stranger read request: %s", w.Body.String())
	}
	w = s.do(t, http.MethodGet, path, s.token(t, s.member), nil)
	expectStatus(t, w, http.StatusOK)
}

func TestImpersonationFlow(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/requests", s.token(t, s.admin), map[string]string{
		"type":                 "IMPERSONATION",
		"reason":               "debug profile page",
		"impersonated_user_id": s.member.ID,
	})
	expectStatus(t, w, http.StatusCreated)
	var req models.Request
	decode(t, w, &req)

	w = s.do(t, http.MethodPut, "/requests/"+req.ID, s.token(t, s.member), map[string]string{"state": "APPROVED"})
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodPatch, "/requests/"+req.ID+"/impersonation?action=START", s.token(t, s.admin), nil)
	expectStatus(t, w, http.StatusOK)
	var session requests.Session
	decode(t, w, &session)
	if session.Token == "" {
		t.Fatalf("no impersonation token: %s", w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/users/self", session.Token, nil)
	expectStatus(t, w, http.StatusOK)
	var self models.User
	decode(t, w, &self)
	if self.ID != s.member.ID {
		t.Errorf("impersonated self = %s, want %s", self.ID, s.member.ID)
	}

	w = s.do(t, http.MethodPost, "/short-urls", session.Token, map[string]string{"url": "https://example.com"})
	expectStatus(t, w, http.StatusForbidden)

	impersonationToken := session.Token
	w = s.do(t, http.MethodPatch, "/requests/"+req.ID+"/impersonation?action=STOP", impersonationToken, nil)
	expectStatus(t, w, http.StatusOK)
	decode(t, w, &session)
	if !session.Request.IsImpersonationFinished {
		t.Errorf("request = %+v", session.Request)
	}

	claims, err := s.tokens.ValidateToken(session.Token)
	if err != nil || claims.UserID != s.admin.ID || claims.IsImpersonation() {
		t.Errorf("stop token claims = %+v, err = %v", claims, err)
	}

	// The impersonation token dies with the session, not with its expiry.
	w = s.do(t, http.MethodGet, "/users/self", impersonationToken, nil)
	expectStatus(t, w, http.StatusUnauthorized)
	w = s.do(t, http.MethodGet, "/users/self", session.Token, nil)
	expectStatus(t, w, http.StatusOK)
}

func TestAuthenticateStoreOutage(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.token(t, s.member)
	if err := s.store.Close(); err != nil {
		t.Fatal(err)
	}

	w := s.do(t, http.MethodGet, "/users/self", token, nil)
	expectStatus(t, w, http.StatusServiceUnavailable)
}

func TestShortURLRedirect(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.token(t, s.newbie)

	w := s.do(t, http.MethodPost, "/short-urls", token, map[string]string{"url": "https://example.com/a/long/path"})
	expectStatus(t, w, http.StatusCreated)
	var created struct {
		ShortURL models.ShortURL `json:"short_url"`
		Link     string          `json:"link"`
	}
	decode(t, w, &created)
	code := created.ShortURL.Code
	if len(code) != 8 || created.Link != "http://squad.test/s/"+code {
		t.Fatalf("created = %+v", created)
	}

	w = s.do(t, http.MethodPost, "/short-urls", token, map[string]string{"url": "https://example.com/a/long/path"})
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodGet, "/s/"+code, "", nil)
	expectStatus(t, w, http.StatusFound)
	if loc := w.Header().Get("Location"); loc != "https://example.com/a/long/path" {
		t.Errorf("Location = %q", loc)
	}

	w = s.do(t, http.MethodGet, "/short-urls/"+code, "", nil)
	expectStatus(t, w, http.StatusOK)
	var got models.ShortURL
	decode(t, w, &got)
	if got.Hits != 1 {
		t.Errorf("hits = %d, want 1", got.Hits)
	}

	w = s.do(t, http.MethodGet, "/s/missing1", "", nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestListPagination(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.token(t, s.admin)
	for i := 0; i < 3; i++ {
		w := s.do(t, http.MethodPost, "/tasks", token, map[string]string{"title": fmt.Sprintf("task %d", i), "type": "chore"})
		expectStatus(t, w, http.StatusCreated)
	}

	w := s.do(t, http.MethodGet, "/tasks?limit=2", token, nil)
	expectStatus(t, w, http.StatusOK)
	var body struct {
		Data []models.Task `json:"data"`
		Meta APIMeta       `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	p := body.Meta.Pagination
	if len(body.Data) != 2 || p == nil || p.Total != 3 || !p.HasMore {
		t.Errorf("page = %d items, meta = %+v", len(body.Data), p)
	}
}

func TestGitHubLogin(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		s := newTestServer(t, nil)
		w := s.do(t, http.MethodGet, "/auth/github/login", "", nil)
		expectStatus(t, w, http.StatusServiceUnavailable)
	})

	s := newTestServer(t, fakeGitHub{profile: &auth.GitHubProfile{ID: "1", Login: "octo", Name: "Octo Cat"}})

	w := s.do(t, http.MethodGet, "/auth/github/login", "", nil)
	expectStatus(t, w, http.StatusFound)
	var state *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.StateCookieName {
			state = c
		}
	}
	if state == nil || !strings.Contains(w.Header().Get("Location"), "state="+state.Value) {
		t.Fatalf("login redirect = %q, cookies = %v", w.Header().Get("Location"), w.Result().Cookies())
	}

	callback := func(stateParam, code string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?state="+stateParam+"&code="+code, nil)
		req.AddCookie(state)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		return rec
	}

	expectStatus(t, callback("forged", "good-code"), http.StatusBadRequest)
	expectStatus(t, callback(state.Value, "bad-code"), http.StatusUnauthorized)

	rec := callback(state.Value, "good-code")
	expectStatus(t, rec, http.StatusOK)
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "squad-session" {
			session = c
		}
	}
	if session == nil || session.Value == "" {
		t.Fatalf("no session cookie in %v", rec.Result().Cookies())
	}
	var data struct {
		User       models.User `json:"user"`
		Incomplete bool        `json:"incomplete_user_details"`
	}
	decode(t, rec, &data)
	if !data.User.IsSuperUser() || !data.Incomplete {
		t.Errorf("signed in user = %+v", data)
	}

	claims, err := s.tokens.ValidateToken(session.Value)
	if err != nil || claims.UserID != data.User.ID {
		t.Errorf("session claims = %+v, err = %v", claims, err)
	}
}
