// internal/crawler/url_test.go
package crawler

import (
	"net/url"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStripsFragment(t *testing.T) {
	norm, err := Normalize("https://site.test/docs#section-3")
	require.NoError(t, err)
	assert.Equal(t, "https://site.test/docs", norm)
}

func TestNormalizeCanonicalizes(t *testing.T) {
	cases := map[string]string{
		"HTTPS://Site.Test":               "https://site.test/",
		"https://site.test/":              "https://site.test/",
		"https://site.test/a?x=1#frag":    "https://site.test/a?x=1",
		"https://site.test/a/b/../c":      "https://site.test/a/b/../c",
		"https://site.test:8443/app#menu": "https://site.test:8443/app",
	}
	for raw, want := range cases {
		norm, err := Normalize(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, norm, raw)
	}
}

func TestNormalizeMergesFragmentVariants(t *testing.T) {
	a, err := Normalize("https://site.test/page#top")
	require.NoError(t, err)
	b, err := Normalize("https://site.test/page#bottom")
	require.NoError(t, err)
	assert.Equal(t, a, b, "fragment-only variants must collapse to one page")
}

func TestSameOrigin(t *testing.T) {
	assert.True(t, SameOrigin("https://site.test/a", "https://site.test/b?q=1"))
	assert.True(t, SameOrigin("https://SITE.test/a", "https://site.test/b"))
	assert.False(t, SameOrigin("https://site.test/a", "https://sub.site.test/a"))
	assert.False(t, SameOrigin("https://site.test/a", "http://site.test/a"))
	assert.False(t, SameOrigin("https://site.test/a", "https://other.test/a"))
}

func TestURLChanged(t *testing.T) {
	assert.True(t, urlChanged("https://site.test/", "https://site.test/about"))
	assert.True(t, urlChanged("https://site.test/a", "https://site.test/a?tab=2"))
	assert.False(t, urlChanged("https://site.test/a", "https://site.test/a"))
	assert.False(t, urlChanged("https://site.test/a", ""))
	assert.False(t, urlChanged("https://site.test/a#top", "https://site.test/a#bottom"),
		"a fragment move is not a navigation")
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "https://site.test/about", Resolve("https://site.test/home", "/about"))
	assert.Equal(t, "https://site.test/a/b", Resolve("https://site.test/a/", "b"))
	assert.Equal(t, "https://other.test/x", Resolve("https://site.test/", "https://other.test/x"))
}

// Normalization must be total and idempotent on anything that parses: the
// visited set depends on every spelling of a page mapping to one key.
func FuzzNormalize(f *testing.F) {
	f.Add([]byte("https://site.test/docs#section"))
	f.Add([]byte("HTTP://Example.COM"))
	f.Add([]byte("relative/path?q=#x"))

	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)
		raw, err := consumer.GetString()
		if err != nil {
			return
		}
		norm, err := Normalize(raw)
		if err != nil {
			return
		}
		again, err := Normalize(norm)
		if err != nil {
			t.Fatalf("normalized form %q no longer parses: %v", norm, err)
		}
		if again != norm {
			t.Fatalf("not idempotent: %q -> %q -> %q", raw, norm, again)
		}
		u, err := url.Parse(norm)
		if err != nil {
			t.Fatalf("normalized form %q unparseable: %v", norm, err)
		}
		if u.Fragment != "" {
			t.Fatalf("fragment survived normalization of %q: %q", raw, norm)
		}
	})
}
