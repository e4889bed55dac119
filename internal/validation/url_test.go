package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"http", "http://localhost:3000", false},
		{"https with path and query", "https://example.com/a/b?x=1&y=2", false},
		{"ipv6", "http://[::1]:3000/", false},
		{"file scheme", "file:///etc/passwd", true},
		{"javascript scheme", "javascript:alert(1)", true},
		{"no host", "http:///path", true},
		{"relative", "example.com", true},
		{"semicolon", "http://example.com/;rm -rf", true},
		{"backtick", "http://example.com/`id`", true},
		{"space", "http://example.com/a b", true},
		{"newline", "http://example.com/\nx", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
