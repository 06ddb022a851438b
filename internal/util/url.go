package util

import (
	"net/url"
	"strings"
)

// IsReturnURLAllowed reports whether returnURL is an absolute http(s) URL
// whose origin (scheme://host[:port]) is one of allowedOrigins.
func IsReturnURLAllowed(returnURL string, allowedOrigins []string) bool {
	if returnURL == "" {
		return false
	}

	// Must not contain newlines or carriage returns (header injection)
	if strings.ContainsAny(returnURL, "\r\n\\") {
		return false
	}

	parsed, err := url.Parse(returnURL)
	if err != nil {
		return false
	}

	// Reject javascript:, data:, relative and protocol-relative URLs
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	if parsed.Host == "" || parsed.User != nil {
		return false
	}

	origin := strings.ToLower(parsed.Scheme + "://" + parsed.Host)
	for _, allowed := range allowedOrigins {
		if origin == strings.ToLower(strings.TrimSuffix(allowed, "/")) {
			return true
		}
	}
	return false
}

// AppendQuery returns rawURL with params merged into its query string.
// Existing keys with the same name are replaced.
func AppendQuery(rawURL string, params url.Values) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	q := parsed.Query()
	for k, v := range params {
		q[k] = v
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}
