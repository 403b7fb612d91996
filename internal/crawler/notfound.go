// internal/crawler/notfound.go
package crawler

import (
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// missingPhrases are the body/title fragments that flag a soft 404: a page
// served with status 200 whose content says the resource is gone.
var missingPhrases = []string{
	"404",
	"not found",
	"page not found",
	"doesn't exist",
	"does not exist",
	"no longer available",
	"nothing here",
}

// IsMissingPage decides whether a navigation landed on a missing-page
// response. A known 404/410 status settles it, but a 200 proves nothing:
// soft 404s serve success statuses, so the document's title, headings and
// body text always get a say.
func IsMissingPage(status int, statusKnown bool, html string) bool {
	if statusKnown && (status == http.StatusNotFound || status == http.StatusGone) {
		return true
	}
	if html == "" {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}

	if containsMissingPhrase(doc.Find("title").Text()) {
		return true
	}
	found := false
	doc.Find("h1, h2").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if containsMissingPhrase(s.Text()) {
			found = true
			return false
		}
		return true
	})
	if found {
		return true
	}

	// A sparse body that talks about missing pages is a 404 shell even when
	// no heading says so.
	body := strings.TrimSpace(doc.Find("body").Text())
	return len(body) < 600 && containsMissingPhrase(body)
}

func containsMissingPhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range missingPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
