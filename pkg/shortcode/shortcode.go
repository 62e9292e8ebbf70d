// Package shortcode extracts the platform-assigned post identifier from
// post, reel and tv URLs.
package shortcode

import (
	"strings"

	igerrors "igresolver/pkg/errors"
)

// pathMarkers are URL path components that introduce a post identifier but
// are never identifiers themselves.
var pathMarkers = map[string]bool{
	"p":    true,
	"reel": true,
	"tv":   true,
}

// Extract returns the shortcode embedded in a post URL. The query string is
// stripped and the shortcode is the last non-empty path segment. A URL whose
// last segment is a bare path marker carries no identifier and is invalid.
func Extract(rawURL string) (string, error) {
	base := rawURL
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}

	var segments []string
	for _, seg := range strings.Split(base, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	if len(segments) == 0 {
		return "", igerrors.New(igerrors.TypeInvalidURL, "URL contains no path segments")
	}

	code := segments[len(segments)-1]
	if pathMarkers[code] {
		return "", igerrors.Newf(igerrors.TypeInvalidURL, "URL ends at path marker %q with no identifier", code)
	}

	return code, nil
}
