package auth

import (
	"net/http"
	"strings"
)

// Flow identifiers emitted by the provider.
const (
	FlowLogin               = "login"
	FlowSignup              = "signup"
	FlowVerifyEmail         = "verify_email"
	FlowProviderRedirect    = "provider_redirect"
	FlowProviderSignup      = "provider_signup"
	FlowProviderToken       = "provider_token"
	FlowMFAAuthenticate     = "mfa_authenticate"
	FlowMFAReauthenticate   = "mfa_reauthenticate"
	FlowReauthenticate      = "reauthenticate"
	FlowLoginByCode         = "login_by_code"
	FlowPasswordResetByCode = "password_reset_by_code"
	FlowMFATrust            = "mfa_trust"
	FlowMFASignupWebAuthn   = "mfa_signup_webauthn"
)

// Authenticator types carried in Flow.Types.
const (
	AuthenticatorTOTP          = "totp"
	AuthenticatorRecoveryCodes = "recovery_codes"
	AuthenticatorWebAuthn      = "webauthn"
)

// GetPendingFlows returns the pending flows of a response, nil when the
// response has no data block.
func GetPendingFlows(r AuthResponse) []Flow {
	data := responseData(r)
	if data == nil {
		return nil
	}
	var pending []Flow
	for _, flow := range data.Flows {
		if flow.IsPending {
			pending = append(pending, flow)
		}
	}
	return pending
}

// GetPendingFlow returns the last pending flow. Providers append newly
// triggered flows, so the last one is the most recent requirement.
func GetPendingFlow(r AuthResponse) *Flow {
	pending := GetPendingFlows(r)
	if len(pending) == 0 {
		return nil
	}
	flow := pending[len(pending)-1]
	return &flow
}

// FlowRoutes maps "flow_id" or "flow_id:type" keys to storefront paths.
type FlowRoutes map[string]string

// DefaultFlowRoutes returns the storefront account routes.
func DefaultFlowRoutes() FlowRoutes {
	return FlowRoutes{
		FlowLogin:               "/account/login",
		FlowSignup:              "/account/signup",
		FlowVerifyEmail:         "/account/verify-email",
		FlowProviderSignup:      "/account/provider/signup",
		FlowReauthenticate:      "/account/reauthenticate",
		FlowLoginByCode:         "/account/login/code/confirm",
		FlowPasswordResetByCode: "/account/password/reset/confirm",
		FlowMFATrust:            "/account/authenticate/trust",
		FlowMFASignupWebAuthn:   "/account/signup/passkey/create",

		FlowMFAAuthenticate + ":" + AuthenticatorTOTP:            "/account/authenticate/totp",
		FlowMFAAuthenticate + ":" + AuthenticatorRecoveryCodes:   "/account/authenticate/recovery-codes",
		FlowMFAAuthenticate + ":" + AuthenticatorWebAuthn:        "/account/authenticate/webauthn",
		FlowMFAReauthenticate + ":" + AuthenticatorTOTP:          "/account/reauthenticate/totp",
		FlowMFAReauthenticate + ":" + AuthenticatorRecoveryCodes: "/account/reauthenticate/recovery-codes",
		FlowMFAReauthenticate + ":" + AuthenticatorWebAuthn:      "/account/reauthenticate/webauthn",
	}
}

// With returns a copy of the routes with overrides applied.
func (routes FlowRoutes) With(overrides map[string]string) FlowRoutes {
	out := make(FlowRoutes, len(routes)+len(overrides))
	for k, v := range routes {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// PathForFlow resolves "id:type" first, then "id". The type defaults to the
// first entry of flow.Types. A missing mapping returns ErrFlowRouteNotFound.
func (routes FlowRoutes) PathForFlow(flow Flow, typ string) (string, error) {
	typ = strings.TrimSpace(typ)
	if typ == "" && len(flow.Types) > 0 {
		typ = flow.Types[0]
	}

	if typ != "" {
		if path, ok := routes[flow.ID+":"+typ]; ok {
			return path, nil
		}
	}
	if path, ok := routes[flow.ID]; ok {
		return path, nil
	}

	return "", withDetails(ErrFlowRouteNotFound, nil, map[string]any{
		"flow": flow.ID,
		"type": typ,
	})
}

// PathForPendingFlow returns "" with a nil error when nothing is pending.
func (routes FlowRoutes) PathForPendingFlow(r AuthResponse) (string, error) {
	flow := GetPendingFlow(r)
	if flow == nil {
		return "", nil
	}
	return routes.PathForFlow(*flow, "")
}

// Redirector is satisfied by fiber and go-router contexts.
type Redirector interface {
	Redirect(location string, status ...int) error
}

// NavigateToPendingFlow redirects to the pending flow route. It reports
// whether a redirect was issued.
func (routes FlowRoutes) NavigateToPendingFlow(to Redirector, r AuthResponse) (bool, error) {
	path, err := routes.PathForPendingFlow(r)
	if err != nil {
		return false, err
	}
	if path == "" {
		return false, nil
	}
	if err := to.Redirect(path, http.StatusFound); err != nil {
		return false, err
	}
	return true, nil
}
