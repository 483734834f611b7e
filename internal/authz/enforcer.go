// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package authz decides role-based permissions with Casbin.
//
// Permissions are (object, action) pairs such as ("requests", "review").
// Subjects are the role names of a user (models.User.RoleNames); the role
// hierarchy super_user > member > user lives in the policy grouping rules.
package authz

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/squadapi/internal/logging"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Permission objects.
const (
	ObjProfile       = "profile"
	ObjStatus        = "status"
	ObjRequests      = "requests"
	ObjShortURLs     = "short_urls"
	ObjChallenges    = "challenges"
	ObjWallets       = "wallets"
	ObjTasks         = "tasks"
	ObjUsers         = "users"
	ObjMembers       = "members"
	ObjLogs          = "logs"
	ObjProducts      = "products"
	ObjStocks        = "stocks"
	ObjExchange      = "exchange"
	ObjRecruiters    = "recruiters"
	ObjImpersonation = "impersonation"
)

// Permission actions.
const (
	ActCreate    = "create"
	ActUpdate    = "update"
	ActReview    = "review"
	ActManage    = "manage"
	ActRead      = "read"
	ActReadAny   = "read_any"
	ActRequest   = "request"
	ActSubscribe = "subscribe"
	ActTrade     = "trade"
)

// Authorizer answers permission checks for a set of roles.
type Authorizer interface {
	Allowed(roles []string, obj, act string) bool
}

// EnforcerConfig holds configuration for the Casbin enforcer.
type EnforcerConfig struct {
	// ModelPath overrides the embedded model when the file exists.
	ModelPath string

	// PolicyPath overrides the embedded policy when the file exists.
	PolicyPath string

	// ReloadInterval enables periodic policy reload from PolicyPath.
	ReloadInterval time.Duration
}

// Enforcer wraps a synced Casbin enforcer with a decision cache.
type Enforcer struct {
	config   EnforcerConfig
	enforcer *casbin.SyncedEnforcer
	cache    *decisionCache
}

// NewEnforcer loads the model and policy and returns a ready enforcer.
func NewEnforcer(cfg EnforcerConfig) (*Enforcer, error) {
	var m model.Model
	var err error
	if cfg.ModelPath != "" && fileExists(cfg.ModelPath) {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	filePolicy := cfg.PolicyPath != "" && fileExists(cfg.PolicyPath)
	if filePolicy {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if filePolicy && cfg.ReloadInterval > 0 {
		enforcer.StartAutoLoadPolicy(cfg.ReloadInterval)
	}

	policies, _ := enforcer.GetPolicy() //nolint:errcheck // only fails on a nil model
	logging.Info().
		Bool("file_policy", filePolicy).
		Int("rules", len(policies)).
		Msg("Authorization policy loaded")

	return &Enforcer{config: cfg, enforcer: enforcer, cache: newDecisionCache()}, nil
}

// loadEmbeddedPolicy parses CSV policy lines of the form "p, sub, obj, act"
// and "g, role, parent".
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Enforce checks a single subject.
func (e *Enforcer) Enforce(subject, obj, act string) (bool, error) {
	if allowed, ok := e.cache.get(subject, obj, act); ok {
		recordCacheHit()
		return allowed, nil
	}
	allowed, err := e.enforcer.Enforce(subject, obj, act)
	if err != nil {
		AuthzErrors.Inc()
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	e.cache.set(subject, obj, act, allowed)
	return allowed, nil
}

// Allowed reports whether any of roles grants (obj, act). Enforcement errors
// deny.
func (e *Enforcer) Allowed(roles []string, obj, act string) bool {
	for _, role := range roles {
		allowed, err := e.Enforce(role, obj, act)
		if err != nil {
			logging.Error().Err(err).Str("role", role).Msg("Authorization check failed")
			recordDecision(obj, act, false)
			return false
		}
		if allowed {
			recordDecision(obj, act, true)
			return true
		}
	}
	recordDecision(obj, act, false)
	return false
}

// Reload re-reads the policy file. It is a no-op with the embedded policy.
func (e *Enforcer) Reload() error {
	if e.config.PolicyPath == "" || !fileExists(e.config.PolicyPath) {
		return nil
	}
	if err := e.enforcer.LoadPolicy(); err != nil {
		return err
	}
	e.cache.clear()
	return nil
}

// Close stops policy auto-reload.
func (e *Enforcer) Close() {
	e.enforcer.StopAutoLoadPolicy()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
