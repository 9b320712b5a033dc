package auth

import (
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeFlowRouteNotFound  = "FLOW_ROUTE_NOT_FOUND"
	TextCodeUnauthorized       = "SESSION_UNAUTHORIZED"
	TextCodeAccessTokenExpired = "ACCESS_TOKEN_EXPIRED"
	TextCodeInvalidUser        = "INVALID_USER_PAYLOAD"
	TextCodeMalformedResponse  = "MALFORMED_AUTH_RESPONSE"
	TextCodeSessionStore       = "SESSION_STORE_FAILURE"
	TextCodeProfileFetch       = "PROFILE_FETCH_FAILED"
)

// ErrFlowRouteNotFound is returned when a pending flow has no configured
// route. It is a configuration bug and must not be swallowed.
var ErrFlowRouteNotFound = goerrors.New("no route configured for flow", goerrors.CategoryNotFound).
	WithTextCode(TextCodeFlowRouteNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUnauthorized is returned by RequireAccessToken when the request has no
// authenticated session.
var ErrUnauthorized = goerrors.New("no authenticated session", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccessTokenExpired is returned when the stored access token carries an
// exp claim in the past.
var ErrAccessTokenExpired = goerrors.New("access token has expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccessTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidUserPayload is returned when a refetched profile does not match
// the user schema.
var ErrInvalidUserPayload = goerrors.New("user payload failed validation", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidUser).
	WithCode(http.StatusUnprocessableEntity)

// ErrMalformedResponse is returned by DecodeResponse.
var ErrMalformedResponse = goerrors.New("malformed authentication response", goerrors.CategoryBadInput).
	WithTextCode(TextCodeMalformedResponse).
	WithCode(goerrors.CodeBadRequest)

// ErrSessionStore wraps failures of the backing session store.
var ErrSessionStore = goerrors.New("session store failure", goerrors.CategoryInternal).
	WithTextCode(TextCodeSessionStore).
	WithCode(goerrors.CodeInternal)

// ErrProfileFetch wraps transport failures while refetching the user.
var ErrProfileFetch = goerrors.New("unable to fetch user profile", goerrors.CategoryOperation).
	WithTextCode(TextCodeProfileFetch).
	WithCode(http.StatusBadGateway)

// withDetails clones a sentinel so per call metadata never leaks into the
// shared value.
func withDetails(base *goerrors.Error, source error, meta map[string]any) *goerrors.Error {
	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if source != nil {
		clone.Source = source
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}
	return clone
}

// IsUnauthorized reports whether err is an authorization failure raised by
// the session manager.
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryAuth
	}
	return false
}

// IsValidationError reports whether err is a user payload validation failure.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryValidation
	}
	return errors.Is(err, ErrInvalidUserPayload)
}
