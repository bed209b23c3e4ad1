package service

import (
	"fmt"
	"net/http"
)

const (
	CodeInvalidRequest    = "invalid_request"
	CodeInvalidClient     = "invalid_client"
	CodeInvalidGrant      = "invalid_grant"
	CodeInvalidToken      = "invalid_token"
	CodeTokenExpired      = "token_expired"
	CodeUnauthorized      = "unauthorized"
	CodeRateLimited       = "rate_limit_exceeded"
	CodeValidationFailed  = "validation_failed"
	CodeValidationError   = "validation_error"
	CodePayloadTooLarge   = "payload_too_large"
	CodeServerError       = "server_error"
	CodeDatabaseError     = "database_error"
	CodeInsufficientScope = "insufficient_scope"
)

// FieldError names one rejected field in a validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// OAuthError is the error type every service returns for caller-visible
// failures. Anything else is an internal error.
type OAuthError struct {
	Status      int
	Code        string
	Description string
	RetryAfter  int
	Details     []FieldError
	Err         error
}

func (e *OAuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.Err)
	}
	return e.Code + ": " + e.Description
}

func (e *OAuthError) Unwrap() error { return e.Err }

func newOAuthError(code, description string, status int) *OAuthError {
	return &OAuthError{Status: status, Code: code, Description: description}
}

func ErrInvalidRequest(description string) *OAuthError {
	return newOAuthError(CodeInvalidRequest, description, http.StatusBadRequest)
}

func ErrInvalidClient(description string) *OAuthError {
	return newOAuthError(CodeInvalidClient, description, http.StatusUnauthorized)
}

func ErrInvalidGrant(description string) *OAuthError {
	return newOAuthError(CodeInvalidGrant, description, http.StatusBadRequest)
}

func ErrInvalidToken(description string) *OAuthError {
	return newOAuthError(CodeInvalidToken, description, http.StatusUnauthorized)
}

func ErrTokenExpired(description string) *OAuthError {
	return newOAuthError(CodeTokenExpired, description, http.StatusUnauthorized)
}

func ErrUnauthorized(description string) *OAuthError {
	return newOAuthError(CodeUnauthorized, description, http.StatusUnauthorized)
}

func ErrInsufficientScope(description string) *OAuthError {
	return newOAuthError(CodeInsufficientScope, description, http.StatusForbidden)
}

func ErrRateLimited(retryAfter int) *OAuthError {
	e := newOAuthError(CodeRateLimited, "too many requests, retry later", http.StatusTooManyRequests)
	e.RetryAfter = retryAfter
	return e
}

func ErrValidationFailed(details []FieldError) *OAuthError {
	e := newOAuthError(CodeValidationFailed, "payload failed validation", http.StatusUnprocessableEntity)
	e.Details = details
	return e
}

func ErrValidationError(description string, details []FieldError) *OAuthError {
	e := newOAuthError(CodeValidationError, description, http.StatusBadRequest)
	e.Details = details
	return e
}

func ErrPayloadTooLarge(description string) *OAuthError {
	return newOAuthError(CodePayloadTooLarge, description, http.StatusRequestEntityTooLarge)
}

func ErrServer(err error) *OAuthError {
	e := newOAuthError(CodeServerError, "internal server error", http.StatusInternalServerError)
	e.Err = err
	return e
}

func ErrDatabase(err error) *OAuthError {
	e := newOAuthError(CodeDatabaseError, "database operation failed", http.StatusInternalServerError)
	e.Err = err
	return e
}
