// internal/crawler/notfound_test.go
package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMissingPageKnownStatus(t *testing.T) {
	assert.True(t, IsMissingPage(404, true, ""))
	assert.True(t, IsMissingPage(410, true, ""))
	assert.False(t, IsMissingPage(200, true, ""))
	assert.False(t, IsMissingPage(500, true, ""))
}

// A 200 with missing-page content is still a missing page.
func TestIsMissingPageSoft404BehindOKStatus(t *testing.T) {
	html := `<html><head><title>Page not found</title></head>
		<body><h1>404 - Page Not Found</h1><p>The page you requested is gone.</p></body></html>`
	assert.True(t, IsMissingPage(200, true, html))
}

func TestIsMissingPageTitleHeuristic(t *testing.T) {
	html := `<html><head><title>Page Not Found | Acme</title></head><body><p>content</p></body></html>`
	assert.True(t, IsMissingPage(0, false, html))
}

func TestIsMissingPageHeadingHeuristic(t *testing.T) {
	html := `<html><head><title>Acme</title></head><body><h1>404</h1><p>We looked everywhere.</p></body></html>`
	assert.True(t, IsMissingPage(0, false, html))

	html = `<html><body><h2>This page doesn't exist</h2></body></html>`
	assert.True(t, IsMissingPage(0, false, html))
}

func TestIsMissingPageSparseBodyHeuristic(t *testing.T) {
	html := `<html><body><div>Sorry, that page is no longer available.</div></body></html>`
	assert.True(t, IsMissingPage(0, false, html))
}

func TestIsMissingPageHealthyContent(t *testing.T) {
	html := `<html><head><title>Products</title></head><body><h1>Catalog</h1>
		<p>Browse our full range of products below. Every item ships within two
		business days and carries a one year warranty. Use the filters on the
		left to narrow the list by category, price and availability. Customer
		reviews are shown on each product card together with the current stock
		level in your region. Free returns within thirty days on all orders.
		Sign in to see personalized recommendations based on your previous
		purchases and saved items.</p></body></html>`
	assert.False(t, IsMissingPage(0, false, html))
	assert.False(t, IsMissingPage(0, false, ""))
}
