package httputil

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dotsetlabs/axion/utils"
)

// BaseURLOptions configures NormalizeBaseURL.
type BaseURLOptions struct {
	// RequireHTTPSInStrictMode enforces https URLs whenever strict TLS mode
	// is enabled via AXION_STRICT_TLS=1.
	RequireHTTPSInStrictMode bool
}

// strictTLSMode reports whether the remote sync endpoint must use https.
func strictTLSMode() bool {
	return utils.GetEnvOptional("AXION_STRICT_TLS") == "1"
}

// NormalizeBaseURL normalizes and validates a base URL used for service-to-service calls.
//
// It trims whitespace, removes trailing slashes, validates scheme/host, disallows
// user info, and optionally enforces https in strict TLS mode.
func NormalizeBaseURL(raw string, opts BaseURLOptions) (string, *url.URL, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(raw), "/")
	if baseURL == "" {
		return "", nil, fmt.Errorf("base URL is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", nil, fmt.Errorf("base URL must be a valid URL")
	}
	if parsed.User != nil {
		return "", nil, fmt.Errorf("base URL must not include user info")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", nil, fmt.Errorf("base URL scheme must be http or https")
	}
	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return "", nil, fmt.Errorf("base URL must not include query or fragment")
	}
	if opts.RequireHTTPSInStrictMode && strictTLSMode() && parsed.Scheme != "https" {
		return "", nil, fmt.Errorf("base URL must use https in strict TLS mode")
	}

	return baseURL, parsed, nil
}

// NormalizeRemoteBaseURL is the standard normalization used by the sync arbiter's
// remote client. It enforces https whenever strict TLS mode is enabled.
func NormalizeRemoteBaseURL(raw string) (string, *url.URL, error) {
	return NormalizeBaseURL(raw, BaseURLOptions{RequireHTTPSInStrictMode: true})
}
