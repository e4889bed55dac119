// Package validation checks URLs before they leave the process, either as an
// API query parameter or as an argument to the platform's browser opener.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// unsafeChars could change the meaning of a URL handed to a shell-adjacent
// opener such as rundll32 or xdg-open.
const unsafeChars = ";|`$<>\"'\\ \n\r\t"

// ValidateURL accepts absolute http(s) URLs with a host and none of
// unsafeChars.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme %q (only http and https are allowed)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL %q has no host", rawURL)
	}
	if i := strings.IndexAny(rawURL, unsafeChars); i >= 0 {
		return fmt.Errorf("URL contains unsafe character %q", rawURL[i])
	}
	return nil
}
