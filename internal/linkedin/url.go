// Package linkedin contains LinkedIn-specific URL handling: validating a
// user-supplied profile URL and reducing it to a canonical username.
package linkedin

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned for any input that cannot be reduced to a
// canonical profile username.
var ErrInvalidURL = errors.New("invalid LinkedIn profile URL")

const (
	domain            = "linkedin.com"
	profilePathMarker = "in"

	minUsernameLen = 2
	maxUsernameLen = 100
)

// Normalize validates a raw profile URL and extracts the username.
//
// The input is trimmed and, when no scheme is present, prefixed with
// https:// before parsing. The host must contain linkedin.com and the path
// must be of the form /in/<username>[/...]. Query string and fragment are
// stripped from the username, which must be 2-100 characters long.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalidURL)
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	host := strings.ToLower(u.Hostname())
	if host != domain && !strings.HasSuffix(host, "."+domain) {
		return "", fmt.Errorf("%w: host %q is not a linkedin.com host", ErrInvalidURL, u.Hostname())
	}

	segments := splitPath(u.Path)
	if len(segments) < 2 || segments[0] != profilePathMarker {
		return "", fmt.Errorf("%w: path %q does not contain a /in/<username> profile path", ErrInvalidURL, u.Path)
	}

	username := segments[1]
	// url.Parse already separates query and fragment, but usernames pasted
	// from chat clients occasionally carry them embedded in the segment.
	if i := strings.IndexAny(username, "?#"); i >= 0 {
		username = username[:i]
	}

	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return "", fmt.Errorf("%w: username %q must be %d-%d characters", ErrInvalidURL, username, minUsernameLen, maxUsernameLen)
	}

	return username, nil
}

// ProfileURL returns the canonical profile URL for a username.
func ProfileURL(username string) string {
	return "https://www.linkedin.com/in/" + username
}

func splitPath(p string) []string {
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
