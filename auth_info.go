package auth

import "net/http"

// AuthInfo is the normalized snapshot derived from one AuthResponse. It is
// recomputed on every response and never persisted.
type AuthInfo struct {
	IsAuthenticated          bool
	RequiresReauthentication bool
	User                     *User
	PendingFlow              *Flow
}

// NewAuthInfo normalizes a response. A nil response yields the zero value.
//
// A 401 whose meta still reports is_authenticated means "authenticated but
// must step up", not "logged out". User data is only surfaced from success
// payloads so partial state in error payloads never leaks out.
func NewAuthInfo(r AuthResponse) AuthInfo {
	var info AuthInfo

	switch res := r.(type) {
	case *SuccessResponse:
		if res == nil {
			return info
		}
		info.IsAuthenticated = res.Meta.IsAuthenticated
		if info.IsAuthenticated {
			info.User = res.Data.User
		}
	case *FailureResponse:
		if res == nil {
			return info
		}
		info.IsAuthenticated = res.Status == http.StatusUnauthorized && res.Meta.IsAuthenticated
		info.RequiresReauthentication = info.IsAuthenticated
	default:
		return info
	}

	info.PendingFlow = GetPendingFlow(r)
	return info
}

// sameUser reports whether both snapshots carry users with equal ids.
func (a AuthInfo) sameUser(b AuthInfo) bool {
	if a.User == nil || b.User == nil {
		return true
	}
	return a.User.ID == b.User.ID
}
