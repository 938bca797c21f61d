// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` helper in this package) and the translation of
// service errors into status and code pairs.
//
// Conventions:
//   - Codes are lowercase and snake_case.
//   - Generic codes (e.g., bad_request, unauthorized, conflict) mirror common
//     HTTP status semantics.
//   - Domain-specific codes (e.g., sync_failed, invalid_transition) are
//     reserved for failures that status alone cannot convey.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "invalid_transition",
//	  "message": "period cannot move backwards"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/matchday-live/internal/matchclock"
	"github.com/tbourn/matchday-live/internal/services"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeSyncFailed        = "sync_failed"
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeCreateFailed      = "create_failed"
	ErrCodeListFailed        = "list_failed"
	ErrCodeMethodNotAllowed  = "method_not_allowed"
)

// statusFor maps a service error to an HTTP status and error code. fallback
// is the code used for unexpected (500) errors.
func statusFor(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, services.ErrMatchNotFound),
		errors.Is(err, services.ErrAutomationNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, services.ErrInvalidFixtureID),
		errors.Is(err, services.ErrInvalidExtraTime),
		errors.Is(err, services.ErrEmptyTitle),
		errors.Is(err, services.ErrInvalidMinute),
		errors.Is(err, services.ErrInvalidTeamSide),
		errors.Is(err, matchclock.ErrNegativeExtraTime),
		errors.Is(err, matchclock.ErrUnknownTransition):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, matchclock.ErrHalfRegression),
		errors.Is(err, matchclock.ErrNoStoppageField):
		return http.StatusConflict, ErrCodeInvalidTransition
	default:
		return http.StatusInternalServerError, fallback
	}
}

// failErr writes the envelope for a service error.
func failErr(c *gin.Context, err error, fallback string) {
	status, code := statusFor(err, fallback)
	fail(c, status, code, err.Error())
}
