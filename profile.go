package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// Validate checks a refetched profile against the user schema.
func (u User) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.ID, validation.Required),
		validation.Field(&u.Email, validation.Length(3, 254), is.Email),
		validation.Field(&u.Username, validation.Length(1, 150)),
		validation.Field(&u.Display, validation.Length(0, 255)),
	)
}

// FetchUserData refetches the user named by resp and caches it on the
// session once it validates. Responses without a user id are skipped and
// return (nil, nil).
//
// The bearer token is, in order: accessToken, resp.meta.access_token, or
// the headers rebuilt from the stored session.
func (s *ScopedSession) FetchUserData(ctx context.Context, resp AuthResponse, accessToken string) (*User, error) {
	data := responseData(resp)
	if data == nil || data.User == nil || data.User.ID == "" {
		s.manager.logger.Debug("skipping user refetch, response carries no user id", "session_id", s.sessionID)
		return nil, nil
	}

	if s.manager.fetcher == nil {
		s.manager.logger.Debug("skipping user refetch, no fetcher configured", "session_id", s.sessionID)
		return nil, nil
	}

	userID := data.User.ID

	headers, err := s.profileHeaders(ctx, resp, accessToken)
	if err != nil {
		return nil, err
	}

	body, err := s.manager.fetcher.FetchUser(ctx, userID, headers)
	if err != nil {
		s.manager.logger.Warn("user refetch failed", "session_id", s.sessionID, "user_id", userID, "error", err)
		return nil, withDetails(ErrProfileFetch, err, map[string]any{
			"user_id": userID.String(),
		})
	}

	user, err := decodeUserPayload(body, userID)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			s.manager.logger.Warn("user payload rejected",
				"session_id", s.sessionID,
				"details", print.MaybePrettyJSON(richErr.Metadata),
			)
		}
		return nil, err
	}

	stored, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		stored = &SessionData{}
	}
	stored.User = user
	if err := s.save(ctx, stored); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *ScopedSession) profileHeaders(ctx context.Context, resp AuthResponse, accessToken string) (http.Header, error) {
	token := accessToken
	if token == "" {
		if res, ok := resp.(*SuccessResponse); ok && res != nil {
			token = res.Meta.AccessToken
		}
	}
	if token != "" {
		return s.manager.CreateHeaders("", token), nil
	}
	return s.Headers(ctx)
}

// decodeUserPayload accepts a bare user object, {"user": {...}} or the
// provider envelope {"data": {"user": {...}}}.
func decodeUserPayload(body []byte, expected UserID) (*User, error) {
	raw, err := unwrapUser(body, 0)
	if err != nil {
		return nil, withDetails(ErrInvalidUserPayload, err, map[string]any{
			"reason": "invalid json",
		})
	}

	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, withDetails(ErrInvalidUserPayload, err, map[string]any{
			"reason": "invalid user object",
		})
	}

	if err := user.Validate(); err != nil {
		return nil, withDetails(ErrInvalidUserPayload, err, map[string]any{
			"fields": validationFields(err),
		})
	}

	if expected != "" && user.ID != expected {
		return nil, withDetails(ErrInvalidUserPayload, nil, map[string]any{
			"reason":   "user id mismatch",
			"expected": expected.String(),
			"received": user.ID.String(),
		})
	}

	return &user, nil
}

func unwrapUser(body []byte, depth int) (json.RawMessage, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	if depth > 2 {
		return body, nil
	}
	if inner, ok := envelope["data"]; ok {
		return unwrapUser(inner, depth+1)
	}
	if inner, ok := envelope["user"]; ok {
		return unwrapUser(inner, depth+1)
	}
	return body, nil
}

func validationFields(err error) map[string]string {
	out := map[string]string{}
	var fields validation.Errors
	if errors.As(err, &fields) {
		for name, fieldErr := range fields {
			if fieldErr != nil {
				out[name] = fieldErr.Error()
			}
		}
		return out
	}
	out["_"] = err.Error()
	return out
}
