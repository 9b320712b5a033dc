package auth

import (
	"net/http"
	"strings"
)

// Header names exchanged with the provider and echoed to the storefront
// client.
const (
	HeaderContentType   = "Content-Type"
	HeaderForwardedHost = "X-Forwarded-Host"
	HeaderSessionToken  = "X-Session-Token"
	HeaderAccessToken   = "X-Access-Token"
	HeaderAuthorization = "Authorization"
)

// HeaderOption customizes CreateHeaders.
type HeaderOption func(*headerOptions)

type headerOptions struct {
	forwardedHost string
}

// WithForwardedHost adds X-Forwarded-Host when host is not empty.
func WithForwardedHost(host string) HeaderOption {
	return func(o *headerOptions) {
		o.forwardedHost = strings.TrimSpace(host)
	}
}

// CreateHeaders builds the provider request headers. Empty tokens are
// omitted rather than sent as empty headers.
func CreateHeaders(sessionToken, accessToken string, opts ...HeaderOption) http.Header {
	options := headerOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	headers := http.Header{}
	headers.Set(HeaderContentType, "application/json")

	if options.forwardedHost != "" {
		headers.Set(HeaderForwardedHost, options.forwardedHost)
	}
	if sessionToken != "" {
		headers.Set(HeaderSessionToken, sessionToken)
	}
	if accessToken != "" {
		headers.Set(HeaderAuthorization, "Bearer "+accessToken)
	}

	return headers
}

// HTTPHeaderWriter writes into a net/http header map.
func HTTPHeaderWriter(h http.Header) HeaderWriter {
	return HeaderWriterFunc(func(key, value string) {
		h.Set(key, value)
	})
}
