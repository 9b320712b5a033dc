// Package auth tracks a storefront's headless authentication session against
// an allauth style provider (session tokens, access tokens, pending flows)
// and tells the rest of the application when the state changes.
//
// Response handling:
//   - DecodeResponse turns a provider payload into an AuthResponse, either a
//     *SuccessResponse (status 200) or a *FailureResponse.
//   - NewAuthInfo normalizes a response into an AuthInfo snapshot. A 401 that
//     still reports is_authenticated means "step up", not "logged out".
//
// Change events:
//   - Classifier compares the next response with the previous one and yields
//     at most one AuthChangeEvent. A 410 always means logged out and raises
//     the session expired notice through the configured Notifier.
//   - Tracker owns the previous response for one client session and forwards
//     events to a Dispatcher. Sinks run best-effort (errors are logged).
//
// Session persistence:
//   - SessionManager stores tokens per platform session id in a SessionStore
//     (memory, redis or SQL). Scope it per request; ScopedSession echoes
//     rotated tokens on the response and refetches the user profile after a
//     login, validating it before it is cached.
//
// Flows:
//   - FlowRoutes maps pending flows to storefront routes. A pending flow with
//     no route is a configuration error and surfaces as ErrFlowRouteNotFound.
package auth
