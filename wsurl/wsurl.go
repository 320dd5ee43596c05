// Package wsurl normalizes user-supplied server addresses into canonical
// WebSocket connection URLs.
//
// Callers typically pass whatever the user configured ("example.com:9000",
// "//example.com", "wss://example.com/custom") and get back a fully-qualified
// ws:// or wss:// URL with a guaranteed scheme, host and path.
package wsurl

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Sentinel errors returned by Normalize. Match with errors.Is.
var (
	// ErrUnsupportedProtocol is returned when the input explicitly uses a
	// scheme other than ws or wss.
	ErrUnsupportedProtocol = errors.New("only ws:// and wss:// URLs are supported")

	// ErrMissingHost is returned when the input parses to a URL without a
	// host component.
	ErrMissingHost = errors.New("missing host")
)

// Normalize validates raw and returns a canonical connection URL.
//
// Rules:
//   - http:// and https:// inputs are rejected outright.
//   - A bare host ("example.com:9000") gets the insecure ws:// scheme.
//   - A protocol-relative input ("//example.com") gets just "ws:" prepended.
//   - An empty path is replaced with defaultPath; an explicit path is kept.
//
// The result always has a scheme, a host and a path. Query and fragment
// components pass through untouched. Normalize is pure and safe for
// concurrent use.
func Normalize(raw, defaultPath string) (string, error) {
	if strings.HasPrefix(raw, "http:") || strings.HasPrefix(raw, "https:") {
		return "", fmt.Errorf("%w (got %q)", ErrUnsupportedProtocol, raw)
	}

	switch {
	case hasWSScheme(raw):
		// Already carries a recognized scheme, leave untouched.
	case strings.HasPrefix(raw, "//"):
		// Protocol-relative: keep the existing authority marker.
		raw = "ws:" + raw
	default:
		raw = "ws://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}

	if u.Host == "" {
		return "", fmt.Errorf("%w in %q", ErrMissingHost, raw)
	}
	if u.Scheme == "" {
		u.Scheme = "ws"
	}
	if u.Path == "" {
		u.Path = defaultPath
	}

	return u.String(), nil
}

// hasWSScheme reports whether s starts with a ws: or wss: scheme prefix.
// The match is on the scheme alone so that inputs with an unusual slash
// count after the colon are still treated as already having a protocol.
func hasWSScheme(s string) bool {
	return strings.HasPrefix(s, "ws:") || strings.HasPrefix(s, "wss:")
}
