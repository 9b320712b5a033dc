package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
)

// AuthResponse is a decoded authentication provider payload. It is a closed
// sum: the only implementations are *SuccessResponse and *FailureResponse,
// discriminated by the status code carried in the payload.
type AuthResponse interface {
	StatusCode() int
	isAuthResponse()
}

var (
	_ AuthResponse = (*SuccessResponse)(nil)
	_ AuthResponse = (*FailureResponse)(nil)
)

// SuccessMeta is the meta block of a status 200 payload.
type SuccessMeta struct {
	IsAuthenticated bool   `json:"is_authenticated"`
	AccessToken     string `json:"access_token,omitempty"`
	SessionToken    string `json:"session_token,omitempty"`
	RefreshToken    string `json:"refresh_token,omitempty"`
}

// FailureMeta is the meta block of an error payload. Providers include a
// session token while a flow is pending.
type FailureMeta struct {
	IsAuthenticated bool   `json:"is_authenticated"`
	SessionToken    string `json:"session_token,omitempty"`
}

// Data is the data block shared by both variants.
type Data struct {
	User    *User    `json:"user,omitempty"`
	Flows   []Flow   `json:"flows,omitempty"`
	Methods []Method `json:"methods,omitempty"`
}

// SuccessResponse is the status 200 variant.
type SuccessResponse struct {
	Meta SuccessMeta `json:"meta"`
	Data Data        `json:"data"`
}

// StatusCode implements AuthResponse.
func (r *SuccessResponse) StatusCode() int { return http.StatusOK }

func (*SuccessResponse) isAuthResponse() {}

// MarshalJSON writes the payload including its status discriminant.
func (r *SuccessResponse) MarshalJSON() ([]byte, error) {
	type alias SuccessResponse
	return json.Marshal(struct {
		Status int `json:"status"`
		*alias
	}{Status: http.StatusOK, alias: (*alias)(r)})
}

// FailureResponse is any non 200 variant (400, 401, 403, 404, 409, 410...).
type FailureResponse struct {
	Status int           `json:"status"`
	Meta   FailureMeta   `json:"meta"`
	Errors []ErrorDetail `json:"errors,omitempty"`
	Data   *Data         `json:"data,omitempty"`
}

// StatusCode implements AuthResponse.
func (r *FailureResponse) StatusCode() int { return r.Status }

func (*FailureResponse) isAuthResponse() {}

// ErrorDetail is a single provider error entry.
type ErrorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

// User is the provider's user object.
type User struct {
	ID                UserID `json:"id"`
	Display           string `json:"display,omitempty"`
	Email             string `json:"email,omitempty"`
	Username          string `json:"username,omitempty"`
	HasUsablePassword bool   `json:"has_usable_password,omitempty"`
}

// UserID accepts both numeric and string identifiers and compares as a string.
type UserID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = UserID(n.String())
	return nil
}

// MarshalJSON keeps numeric identifiers numeric.
func (id UserID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// String implements fmt.Stringer.
func (id UserID) String() string { return string(id) }

// FlowProvider describes the third party provider attached to a provider flow.
type FlowProvider struct {
	ID     string   `json:"id"`
	Name   string   `json:"name,omitempty"`
	Flows  []string `json:"flows,omitempty"`
	Client string   `json:"client_id,omitempty"`
}

// Flow is a provider tracked requirement such as verify_email or
// mfa_authenticate.
type Flow struct {
	ID        string        `json:"id"`
	IsPending bool          `json:"is_pending,omitempty"`
	Types     []string      `json:"types,omitempty"`
	Provider  *FlowProvider `json:"provider,omitempty"`
}

// Method is an authentication method used during the current session.
type Method struct {
	Method          string  `json:"method"`
	At              float64 `json:"at,omitempty"`
	Email           string  `json:"email,omitempty"`
	Username        string  `json:"username,omitempty"`
	Provider        string  `json:"provider,omitempty"`
	UID             string  `json:"uid,omitempty"`
	Type            string  `json:"type,omitempty"`
	Reauthenticated bool    `json:"reauthenticated,omitempty"`
}

// DecodeResponse decodes a raw provider payload into the variant selected by
// its status field.
func DecodeResponse(body []byte) (AuthResponse, error) {
	var head struct {
		Status *int `json:"status"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, malformed(err, "payload is not a JSON object")
	}
	if head.Status == nil {
		return nil, malformed(nil, "payload has no status")
	}

	if *head.Status == http.StatusOK {
		var res SuccessResponse
		if err := json.Unmarshal(body, &res); err != nil {
			return nil, malformed(err, "success payload does not match schema")
		}
		return &res, nil
	}

	var res FailureResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, malformed(err, "error payload does not match schema")
	}
	return &res, nil
}

func malformed(err error, reason string) error {
	meta := map[string]any{"reason": reason}
	if err != nil {
		meta["error"] = err.Error()
	}
	return withDetails(ErrMalformedResponse, err, meta)
}

// responseData returns the data block of either variant, nil when the
// payload carries none.
func responseData(r AuthResponse) *Data {
	switch res := r.(type) {
	case *SuccessResponse:
		if res == nil {
			return nil
		}
		return &res.Data
	case *FailureResponse:
		if res == nil {
			return nil
		}
		return res.Data
	default:
		return nil
	}
}

// statusOf is nil safe.
func statusOf(r AuthResponse) int {
	switch res := r.(type) {
	case *SuccessResponse:
		if res == nil {
			return 0
		}
		return http.StatusOK
	case *FailureResponse:
		if res == nil {
			return 0
		}
		return res.Status
	default:
		return 0
	}
}
