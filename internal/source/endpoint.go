package source

import (
	"fmt"
	"net/url"
	"strings"
)

// Default endpoint paths served by the CPU load server.
const (
	DefaultPollPath   = "/api/cpus"
	DefaultStreamPath = "/rt/cpus"
)

// PollURL resolves the JSON endpoint against the page origin.
func PollURL(origin, path string) (string, error) {
	u, err := resolve(origin, path)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	return u.String(), nil
}

// StreamURL resolves the streaming endpoint against the page origin, upgrading
// http to ws and https to wss.
func StreamURL(origin, path string) (string, error) {
	u, err := resolve(origin, path)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(u.Scheme, "http") {
		u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	}
	return u.String(), nil
}

func resolve(origin, path string) (*url.URL, error) {
	base, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	switch base.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return nil, fmt.Errorf("origin %q: unsupported scheme %q", origin, base.Scheme)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("origin %q: missing host", origin)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path: %w", err)
	}
	return base.ResolveReference(ref), nil
}
