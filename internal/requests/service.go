// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package requests runs the review lifecycle shared by every request type.
//
// Creation validates the input, refuses a duplicate pending request of the
// same shape, stores the request and appends a REQUEST_CREATED log in one
// transaction. Review moves a PENDING request to APPROVED or REJECTED
// exactly once and applies the type's side effects in the same transaction.
// Events are published after commit.
package requests

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/tomtom215/squadapi/internal/audit"
	"github.com/tomtom215/squadapi/internal/authz"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/events"
	"github.com/tomtom215/squadapi/internal/logging"
	"github.com/tomtom215/squadapi/internal/metrics"
	"github.com/tomtom215/squadapi/internal/models"
	"github.com/tomtom215/squadapi/internal/users"
)

// TokenIssuer mints session tokens for impersonation.
type TokenIssuer interface {
	GenerateToken(userID string) (string, error)
	GenerateImpersonationToken(targetID, byUserID, requestID string) (string, error)
}

// Service implements the request lifecycle.
type Service struct {
	store  *database.Store
	authz  authz.Authorizer
	events events.Publisher
	tokens TokenIssuer
	now    func() time.Time
}

// Config holds Service dependencies. Events and Now are optional.
type Config struct {
	Store  *database.Store
	Authz  authz.Authorizer
	Events events.Publisher
	Tokens TokenIssuer
	Now    func() time.Time
}

// NewService creates the request service.
func NewService(cfg Config) *Service {
	s := &Service{
		store:  cfg.Store,
		authz:  cfg.Authz,
		events: cfg.Events,
		tokens: cfg.Tokens,
		now:    cfg.Now,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateInput is the body of POST /requests. Which fields apply depends on
// Type.
type CreateInput struct {
	Type    models.RequestType `json:"type" validate:"required"`
	Reason  string             `json:"reason" validate:"max=1000"`
	Message string             `json:"message" validate:"max=1000"`

	From  int64 `json:"from" validate:"gte=0"`
	Until int64 `json:"until" validate:"gte=0"`

	TaskID       string `json:"task_id"`
	Title        string `json:"title" validate:"max=200"`
	OldEndsOn    int64  `json:"old_ends_on" validate:"gte=0"`
	NewEndsOn    int64  `json:"new_ends_on" validate:"gte=0"`
	NumberOfDays int    `json:"number_of_days"`

	ImpersonatedUserID string `json:"impersonated_user_id"`

	RequestType       models.TaskRequestType `json:"request_type"`
	ExternalIssueURL  string                 `json:"external_issue_url" validate:"omitempty,http_url"`
	ProposedStartDate int64                  `json:"proposed_start_date" validate:"gte=0"`
	ProposedDeadline  int64                  `json:"proposed_deadline" validate:"gte=0"`
	Description       string                 `json:"description" validate:"max=5000"`
	MarkdownEnabled   bool                   `json:"markdown_enabled"`
}

// ReviewInput is the body of PUT /requests/{id}. UserID picks the applicant
// when approving a TASK request.
type ReviewInput struct {
	State   models.RequestState `json:"state" validate:"required"`
	Comment string              `json:"comment" validate:"max=1000"`
	UserID  string              `json:"user_id"`

	reviewer string
}

// creator builds the request for one type. It returns the request to store
// and whether it is new (false when an applicant joined an existing one).
type creator func(s *Service, tx *database.Tx, actor *models.User, in *CreateInput, now time.Time) (*models.Request, bool, error)

// approver applies the side effects of approving one type.
type approver func(s *Service, tx *database.Tx, req *models.Request, in *ReviewInput, now time.Time) (*effects, error)

// effects are follow-ups published after an approval commits.
type effects struct {
	status *models.UserStatus
}

type lifecycle struct {
	create  creator
	approve approver
	reject  func(req *models.Request)
}

var lifecycles = map[models.RequestType]lifecycle{
	models.RequestOOO:           {create: createOOO, approve: approveOOO},
	models.RequestExtension:     {create: createExtension, approve: approveExtension},
	models.RequestOnboarding:    {create: createOnboarding, approve: approveOnboarding},
	models.RequestImpersonation: {create: createImpersonation, approve: approveImpersonation},
	models.RequestTask:          {create: createTaskRequest, approve: approveTaskRequest, reject: rejectTaskRequest},
}

// Load reads a request inside tx.
func Load(tx *database.Tx, id string) (*models.Request, error) {
	r, err := database.Get[models.Request](tx, database.Requests, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrRequestNotFound
	}
	return r, err
}

func save(tx *database.Tx, r *models.Request) error {
	return tx.Put(database.Requests, r.ID, r)
}

// findPending returns the first pending request of type t matching fn.
func findPending(tx *database.Tx, t models.RequestType, fn func(*models.Request) bool) (*models.Request, error) {
	r, err := database.First(tx, database.Requests, func(r *models.Request) bool {
		return r.Type == t && r.IsPending() && fn(r)
	})
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return r, err
}

// Create validates and stores a new request by actor.
func (s *Service) Create(ctx context.Context, actor *models.User, in CreateInput) (*models.Request, error) {
	lc, ok := lifecycles[in.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, in.Type)
	}
	if !s.authz.Allowed(actor.RoleNames(), authz.ObjRequests, authz.ActCreate) {
		return nil, ErrNotAllowed
	}

	now := s.now().UTC()
	var (
		req   *models.Request
		isNew bool
	)
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		var err error
		req, isNew, err = lc.create(s, tx, actor, &in, now)
		if err != nil {
			return err
		}
		if isNew {
			req.State = models.RequestPending
			req.CreatedAt = now
		}
		req.UpdatedAt = now
		if err := save(tx, req); err != nil {
			return err
		}
		return audit.Record(tx, now, audit.Entry{
			Type: models.LogRequestCreated,
			Meta: map[string]string{
				audit.MetaRequestID: req.ID,
				audit.MetaUserID:    actor.ID,
				audit.MetaActorID:   actor.ID,
			},
			Body: map[string]interface{}{"type": req.Type, "joined": !isNew},
		})
	})
	if err != nil {
		return nil, err
	}

	if isNew {
		metrics.RequestsCreated.WithLabelValues(string(req.Type)).Inc()
	}
	s.publish(ctx, events.RequestCreated, req, actor.ID, "")
	logging.Ctx(ctx).Info().
		Str("request_id", req.ID).
		Str("type", string(req.Type)).
		Str("requested_by", actor.ID).
		Msg("Request created")
	return req, nil
}

// Get returns a request visible to actor.
func (s *Service) Get(ctx context.Context, actor *models.User, id string) (*models.Request, error) {
	var req *models.Request
	err := s.store.View(ctx, func(tx *database.Tx) error {
		var err error
		req, err = Load(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !s.visible(actor, req) {
		return nil, ErrNotAllowed
	}
	return req, nil
}

// Filter narrows List.
type Filter struct {
	Type        models.RequestType
	State       models.RequestState
	RequestedBy string
	Limit       int
	Offset      int
}

// List returns requests visible to actor, newest first, and the total.
// Users without review permission see only requests they take part in.
func (s *Service) List(ctx context.Context, actor *models.User, f Filter) ([]models.Request, int, error) {
	if f.Type != "" && !slices.Contains(models.RequestTypes, f.Type) {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownType, f.Type)
	}
	var found []models.Request
	err := s.store.View(ctx, func(tx *database.Tx) error {
		var err error
		found, err = database.List(tx, database.Requests, func(r *models.Request) bool {
			return (f.Type == "" || r.Type == f.Type) &&
				(f.State == "" || r.State == f.State) &&
				(f.RequestedBy == "" || r.RequestedBy == f.RequestedBy) &&
				s.visible(actor, r)
		})
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	slices.SortFunc(found, func(a, b models.Request) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return database.Page(found, f.Limit, f.Offset), len(found), nil
}

func (s *Service) visible(actor *models.User, r *models.Request) bool {
	if s.authz.Allowed(actor.RoleNames(), authz.ObjRequests, authz.ActReview) {
		return true
	}
	if r.RequestedBy == actor.ID || r.ImpersonatedUserID == actor.ID {
		return true
	}
	return slices.ContainsFunc(r.Users, func(u models.TaskRequestUser) bool { return u.UserID == actor.ID })
}

// canReview reports whether actor may review r. Impersonation requests are
// reviewed by the impersonated user; every other type needs requests:review.
func (s *Service) canReview(actor *models.User, r *models.Request) bool {
	if r.Type == models.RequestImpersonation {
		return actor.ID == r.ImpersonatedUserID && !actor.Roles.Archived
	}
	return s.authz.Allowed(actor.RoleNames(), authz.ObjRequests, authz.ActReview)
}

// Review approves or rejects a pending request.
func (s *Service) Review(ctx context.Context, actor *models.User, id string, in ReviewInput) (*models.Request, error) {
	if in.State != models.RequestApproved && in.State != models.RequestRejected {
		return nil, ErrInvalidState
	}
	in.reviewer = actor.ID

	now := s.now().UTC()
	var (
		req *models.Request
		fx  *effects
	)
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		fx = nil
		var err error
		req, err = Load(tx, id)
		if err != nil {
			return err
		}
		if !s.canReview(actor, req) {
			return ErrNotAllowed
		}
		if !req.IsPending() {
			return ErrAlreadyReviewed
		}

		lc := lifecycles[req.Type]
		logType := models.LogRequestRejected
		if in.State == models.RequestApproved {
			logType = models.LogRequestApproved
			if fx, err = lc.approve(s, tx, req, &in, now); err != nil {
				return err
			}
		} else if lc.reject != nil {
			lc.reject(req)
		}

		req.State = in.State
		req.LastModifiedBy = actor.ID
		req.ReviewComment = in.Comment
		req.UpdatedAt = now
		if err := save(tx, req); err != nil {
			return err
		}
		return audit.Record(tx, now, audit.Entry{
			Type: logType,
			Meta: map[string]string{
				audit.MetaRequestID: req.ID,
				audit.MetaUserID:    req.RequestedBy,
				audit.MetaActorID:   actor.ID,
			},
			Body: map[string]interface{}{"type": req.Type, "comment": in.Comment},
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.RequestsReviewed.WithLabelValues(string(req.Type), string(req.State)).Inc()
	eventType := events.RequestRejected
	if req.State == models.RequestApproved {
		eventType = events.RequestApproved
	}
	s.publish(ctx, eventType, req, req.RequestedBy, actor.ID)
	if fx != nil && fx.status != nil {
		s.emit(ctx, events.New(events.UserStatusChanged, fx.status.UserID, fx.status.UserID, users.StatusEventData(fx.status)))
	}
	return req, nil
}

func (s *Service) publish(ctx context.Context, t events.Type, req *models.Request, userID, reviewedBy string) {
	data := map[string]interface{}{
		"type":         string(req.Type),
		"requested_by": req.RequestedBy,
	}
	if reviewedBy != "" {
		data["reviewed_by"] = reviewedBy
	}
	s.emit(ctx, events.New(t, userID, req.ID, data))
}

func (s *Service) emit(ctx context.Context, e events.Event) {
	e.OccurredAt = s.now().UTC()
	if err := s.events.Publish(ctx, e); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event_type", string(e.Type)).Msg("Failed to publish event")
	}
}

func newRequest(t models.RequestType, actor *models.User, in *CreateInput) *models.Request {
	return &models.Request{
		ID:          database.NewID(),
		Type:        t,
		RequestedBy: actor.ID,
		Reason:      in.Reason,
		Message:     in.Message,
	}
}
