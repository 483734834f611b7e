// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package requests

import "github.com/tomtom215/squadapi/internal/apperr"

var (
	ErrRequestNotFound  = apperr.NotFound("request not found")
	ErrUnknownType      = apperr.Invalid("unknown request type")
	ErrInvalidState     = apperr.Invalid("state must be APPROVED or REJECTED")
	ErrAlreadyReviewed  = apperr.Conflict("request has already been reviewed")
	ErrPendingExists    = apperr.Conflict("a pending request of this kind already exists")
	ErrNotAllowed       = apperr.Forbidden("not allowed to perform this action on the request")
	ErrReasonRequired   = apperr.Invalid("reason is required")
	ErrInvalidDateRange = apperr.Invalid("until must be after from")
	ErrFromInPast       = apperr.Invalid("from must not be before the start of today")

	ErrTaskNotAssigned  = apperr.Forbidden("task is not assigned to you")
	ErrEndsOnMismatch   = apperr.Invalid("old_ends_on does not match the task deadline")
	ErrDeadlineNotLater = apperr.Invalid("new_ends_on must be after old_ends_on")

	ErrNotOnboarding = apperr.Invalid("only users in onboarding can request an onboarding extension")
	ErrInvalidDays   = apperr.Invalid("number_of_days must be between 1 and 31")

	ErrSelfImpersonation = apperr.Invalid("cannot impersonate yourself")
	ErrNotApproved       = apperr.Invalid("impersonation request is not approved")
	ErrAlreadyStarted    = apperr.Conflict("impersonation has already been started")
	ErrNotStarted        = apperr.Invalid("impersonation has not been started")
	ErrAlreadyFinished   = apperr.Conflict("impersonation has already finished")
	ErrUnknownAction     = apperr.Invalid("action must be START or STOP")

	ErrUnknownTaskRequestType = apperr.Invalid("request_type must be ASSIGNMENT or CREATION")
	ErrTaskUnavailable        = apperr.Conflict("task is not available for assignment")
	ErrAlreadyApplied         = apperr.Conflict("you have already requested this task")
	ErrInvalidProposal        = apperr.Invalid("proposed_deadline must be after proposed_start_date")
	ErrIssueRequired          = apperr.Invalid("external_issue_url and title are required")
	ErrApplicantRequired      = apperr.Invalid("user_id must name a pending applicant")
)
