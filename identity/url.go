package identity

import (
	"net/url"
	"strings"
)

// NormalizeListingURL strips the query string and fragment from a listing URL
// so that two links differing only in tracking parameters share one identity.
// Idempotent; returns the input unchanged when it does not parse.
func NormalizeListingURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// RegionFromURL returns the first path segment of a listing URL, lowercased.
// On avito this segment is the region slug ("/novosibirsk/telefony/...").
// Returns "" when the URL does not parse or has no path.
func RegionFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	for _, part := range strings.Split(u.Path, "/") {
		if part != "" {
			return strings.ToLower(part)
		}
	}
	return ""
}
