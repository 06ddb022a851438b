package util

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsReturnURLAllowed(t *testing.T) {
	allowed := []string{"https://app.example.com", "http://localhost:5173/"}

	tests := []struct {
		name      string
		returnURL string
		want      bool
	}{
		{"allowed origin with path", "https://app.example.com/settings?tab=1", true},
		{"allowed localhost with port", "http://localhost:5173/integrations", true},
		{"host is case insensitive", "https://APP.example.com/", true},
		{"empty", "", false},
		{"relative path", "/settings", false},
		{"protocol relative", "//evil.com/x", false},
		{"other host", "https://evil.com/settings", false},
		{"suffix attack", "https://app.example.com.evil.com/", false},
		{"wrong scheme", "http://app.example.com/", false},
		{"wrong port", "http://localhost:3000/", false},
		{"javascript", "javascript:alert(1)", false},
		{"userinfo", "https://user@app.example.com/", false},
		{"header injection", "https://app.example.com/\r\nSet-Cookie: x", false},
		{"backslash", "https://app.example.com\\@evil.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsReturnURLAllowed(tt.returnURL, allowed))
		})
	}
}

func TestAppendQuery(t *testing.T) {
	got := AppendQuery("https://app.example.com/settings?tab=integrations&error=old", url.Values{
		"error":    {"access_denied"},
		"provider": {"slack"},
	})

	parsed, err := url.Parse(got)
	assert.NoError(t, err)
	assert.Equal(t, "integrations", parsed.Query().Get("tab"))
	assert.Equal(t, "access_denied", parsed.Query().Get("error"))
	assert.Equal(t, "slack", parsed.Query().Get("provider"))
}
