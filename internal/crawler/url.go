// internal/crawler/url.go
package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize canonicalizes a URL for visited-set membership: fragments are
// stripped (they never change the document), host and scheme are lowered,
// and an empty path becomes "/" so "https://a.test" and "https://a.test/"
// count as one page.
func Normalize(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("unparseable URL %q: %w", raw, err)
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" && u.Host != "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// SameOrigin reports whether two URLs share scheme and host. The crawl
// never leaves the origin it started on.
func SameOrigin(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return strings.EqualFold(ua.Scheme, ub.Scheme) && strings.EqualFold(ua.Host, ub.Host)
}

// urlChanged reports whether two addresses name different pages once
// normalized, so a fragment-only move does not count as a navigation.
func urlChanged(before, after string) bool {
	if after == "" || after == before {
		return false
	}
	na, errA := Normalize(after)
	nb, errB := Normalize(before)
	if errA != nil || errB != nil {
		return true
	}
	return na != nb
}

// Resolve turns a possibly relative href into an absolute URL against base.
func Resolve(base, href string) string {
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	hu, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(hu).String()
}
