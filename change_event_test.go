package auth_test

import (
	"context"
	"net/http"
	"testing"

	auth "github.com/goliatone/go-headless-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthChangeEventString(t *testing.T) {
	assert.Equal(t, "none", auth.EventNone.String())
	assert.Equal(t, "logged_in", auth.EventLoggedIn.String())
	assert.Equal(t, "flow_updated", auth.EventFlowUpdated.String())
}

func TestDetermineAuthChangeEvent(t *testing.T) {
	loggedIn := &auth.SuccessResponse{
		Meta: auth.SuccessMeta{IsAuthenticated: true, SessionToken: "sess"},
		Data: auth.Data{User: &auth.User{ID: "1"}},
	}
	reauthRequired := &auth.FailureResponse{
		Status: http.StatusUnauthorized,
		Meta:   auth.FailureMeta{IsAuthenticated: true},
		Data:   &auth.Data{Flows: []auth.Flow{{ID: auth.FlowReauthenticate, IsPending: true}}},
	}
	anonymous := failure(http.StatusUnauthorized, false)

	tests := []struct {
		name     string
		next     auth.AuthResponse
		previous auth.AuthResponse
		expected auth.AuthChangeEvent
	}{
		{
			name:     "both nil",
			expected: auth.EventNone,
		},
		{
			name:     "login with fresh token",
			next:     loggedIn,
			previous: anonymous,
			expected: auth.EventLoggedIn,
		},
		{
			name:     "first observation of an authenticated session",
			next:     loggedIn,
			expected: auth.EventLoggedIn,
		},
		{
			name:     "authenticated without fresh tokens",
			next:     &auth.SuccessResponse{Meta: auth.SuccessMeta{IsAuthenticated: true}, Data: auth.Data{User: &auth.User{ID: "1"}}},
			previous: anonymous,
			expected: auth.EventNone,
		},
		{
			name:     "step up from anonymous",
			next:     reauthRequired,
			previous: anonymous,
			expected: auth.EventReauthenticationRequired,
		},
		{
			name:     "step up from authenticated",
			next:     reauthRequired,
			previous: loggedIn,
			expected: auth.EventReauthenticationRequired,
		},
		{
			name:     "step up completed",
			next:     loggedIn,
			previous: reauthRequired,
			expected: auth.EventReauthenticated,
		},
		{
			name: "still requires reauthentication",
			next: &auth.FailureResponse{
				Status: http.StatusUnauthorized,
				Meta:   auth.FailureMeta{IsAuthenticated: true},
				Data:   &auth.Data{Flows: []auth.Flow{{ID: auth.FlowMFAReauthenticate, IsPending: true}}},
			},
			previous: reauthRequired,
			expected: auth.EventReauthenticationRequired,
		},
		{
			name: "more authentication methods",
			next: &auth.SuccessResponse{
				Meta: auth.SuccessMeta{IsAuthenticated: true},
				Data: auth.Data{
					User:    &auth.User{ID: "1"},
					Methods: []auth.Method{{Method: "password"}, {Method: "mfa"}},
				},
			},
			previous: &auth.SuccessResponse{
				Meta: auth.SuccessMeta{IsAuthenticated: true},
				Data: auth.Data{
					User:    &auth.User{ID: "1"},
					Methods: []auth.Method{{Method: "password"}},
				},
			},
			expected: auth.EventReauthenticated,
		},
		{
			name:     "logout",
			next:     anonymous,
			previous: loggedIn,
			expected: auth.EventLoggedOut,
		},
		{
			name:     "flow appears while anonymous",
			next:     flowsResponse(auth.Flow{ID: auth.FlowVerifyEmail, IsPending: true}),
			previous: anonymous,
			expected: auth.EventFlowUpdated,
		},
		{
			name:     "flow changes while anonymous",
			next:     flowsResponse(auth.Flow{ID: auth.FlowMFAAuthenticate, IsPending: true}),
			previous: flowsResponse(auth.Flow{ID: auth.FlowLogin, IsPending: true}),
			expected: auth.EventFlowUpdated,
		},
		{
			name:     "resolved flow pending again",
			next:     flowsResponse(auth.Flow{ID: auth.FlowVerifyEmail, IsPending: true}),
			previous: flowsResponse(auth.Flow{ID: auth.FlowVerifyEmail}),
			expected: auth.EventFlowUpdated,
		},
		{
			name:     "methods appear where there were none",
			next:     withMethods("password", "mfa"),
			previous: withMethods(),
			expected: auth.EventNone,
		},
		{
			name:     "methods disappear",
			next:     withMethods(),
			previous: withMethods("password"),
			expected: auth.EventNone,
		},
		{
			name:     "fewer methods",
			next:     withMethods("password"),
			previous: withMethods("password", "mfa"),
			expected: auth.EventNone,
		},
		{
			name:     "same number of methods",
			next:     withMethods("mfa"),
			previous: withMethods("password"),
			expected: auth.EventNone,
		},
		{
			name: "same pending flow again",
			next: &auth.FailureResponse{
				Status: http.StatusUnauthorized,
				Errors: []auth.ErrorDetail{{Code: "incorrect_code"}},
				Data:   &auth.Data{Flows: []auth.Flow{{ID: auth.FlowMFAAuthenticate, IsPending: true}}},
			},
			previous: flowsResponse(auth.Flow{ID: auth.FlowMFAAuthenticate, IsPending: true}),
			expected: auth.EventLoggedOut,
		},
		{
			name:     "anonymous first observation without flows",
			next:     anonymous,
			expected: auth.EventLoggedOut,
		},
		{
			name:     "session gone",
			next:     failure(http.StatusGone, false),
			previous: loggedIn,
			expected: auth.EventLoggedOut,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.DetermineAuthChangeEvent(tt.next, tt.previous))
		})
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	resp := &auth.SuccessResponse{
		Meta: auth.SuccessMeta{IsAuthenticated: true, AccessToken: "acc"},
		Data: auth.Data{User: &auth.User{ID: "1"}},
	}
	assert.Equal(t, auth.EventNone, auth.DetermineAuthChangeEvent(resp, resp))

	copied := *resp
	assert.Equal(t, auth.EventNone, auth.DetermineAuthChangeEvent(&copied, resp))

	anonymous := failure(http.StatusUnauthorized, false)
	assert.Equal(t, auth.EventNone, auth.DetermineAuthChangeEvent(anonymous, anonymous))

	pending := flowsResponse(auth.Flow{ID: auth.FlowVerifyEmail, IsPending: true})
	assert.Equal(t, auth.EventNone, auth.DetermineAuthChangeEvent(pending, pending))

	gone := failure(http.StatusGone, false)
	assert.Equal(t, auth.EventLoggedOut, auth.DetermineAuthChangeEvent(gone, gone))
}

func TestClassifyEqualDecodedResponses(t *testing.T) {
	body := []byte(`{"status":401,"data":{"flows":[{"id":"login"},{"id":"verify_email","is_pending":true}]},"meta":{"is_authenticated":false}}`)

	previous, err := auth.DecodeResponse(body)
	require.NoError(t, err)
	next, err := auth.DecodeResponse(body)
	require.NoError(t, err)

	require.NotSame(t, previous, next)
	assert.Equal(t, auth.EventNone, auth.DetermineAuthChangeEvent(next, previous))

	anonymous := []byte(`{"status":401,"data":{},"meta":{"is_authenticated":false}}`)
	previous, err = auth.DecodeResponse(anonymous)
	require.NoError(t, err)
	next, err = auth.DecodeResponse(anonymous)
	require.NoError(t, err)

	assert.Equal(t, auth.EventNone, auth.DetermineAuthChangeEvent(next, previous))
}

// withMethods returns an authenticated response for user 1. No names means
// the methods array is absent.
func withMethods(names ...string) *auth.SuccessResponse {
	resp := &auth.SuccessResponse{
		Meta: auth.SuccessMeta{IsAuthenticated: true},
		Data: auth.Data{User: &auth.User{ID: "1"}},
	}
	for _, name := range names {
		resp.Data.Methods = append(resp.Data.Methods, auth.Method{Method: name})
	}
	return resp
}

func TestClassifyIgnoresPreviousSnapshotOfAnotherUser(t *testing.T) {
	previous := &auth.SuccessResponse{
		Meta: auth.SuccessMeta{IsAuthenticated: true},
		Data: auth.Data{User: &auth.User{ID: "1"}},
	}
	next := &auth.SuccessResponse{
		Meta: auth.SuccessMeta{IsAuthenticated: true, SessionToken: "other"},
		Data: auth.Data{User: &auth.User{ID: "2"}},
	}

	assert.Equal(t, auth.EventLoggedIn, auth.DetermineAuthChangeEvent(next, previous))
}

func TestClassifierNotifiesOnSessionGone(t *testing.T) {
	var notices []auth.NoticeKey
	classifier := auth.NewClassifier(auth.WithNotifier(auth.NotifierFunc(func(ctx context.Context, key auth.NoticeKey) {
		notices = append(notices, key)
	})))

	event := classifier.Classify(context.Background(), failure(http.StatusGone, false), nil)
	assert.Equal(t, auth.EventLoggedOut, event)
	assert.Equal(t, []auth.NoticeKey{auth.NoticeSessionExpired}, notices)

	classifier.Classify(context.Background(), failure(http.StatusUnauthorized, false), success(true))
	assert.Len(t, notices, 1)
}

func TestClassifierLogsClassifiedEvents(t *testing.T) {
	logger := &captureLogger{}
	classifier := auth.NewClassifier(auth.WithClassifierLogger(logger), auth.WithNotifier(nil))

	classifier.Classify(context.Background(), failure(http.StatusUnauthorized, false), success(true))
	assert.Equal(t, []string{"debug"}, logger.levels())
}
