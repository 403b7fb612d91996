// internal/probers/iconlink.go
package probers

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
)

// expectation is an inferred destination for an icon-only link.
type expectation struct {
	// Domain is the organizational domain the link should land on.
	// Alternates lists additional acceptable domains (brand renames).
	Domain     string
	Alternates []string
	// Scheme is set instead of Domain for non-HTTP links like mailto.
	Scheme string
}

// iconExpectations maps brand keywords found in the element's href, class,
// id, icon class or accessible name to the destination they imply. Ordered
// so a multi-keyword match resolves the same way on every run.
var iconExpectations = []struct {
	keyword string
	expect  expectation
}{
	{"linkedin", expectation{Domain: "linkedin.com"}},
	{"github", expectation{Domain: "github.com"}},
	{"twitter", expectation{Domain: "twitter.com", Alternates: []string{"x.com"}}},
	{"facebook", expectation{Domain: "facebook.com"}},
	{"instagram", expectation{Domain: "instagram.com"}},
	{"youtube", expectation{Domain: "youtube.com", Alternates: []string{"youtu.be"}}},
	{"mailto", expectation{Scheme: "mailto"}},
}

// IconLinkProber verifies icon-only anchors: a GitHub icon must land on
// github.com, a mail icon must be a mailto link. The check opens the href
// in a fresh browsing context so the crawl position is never disturbed,
// and always closes it.
type IconLinkProber struct {
	deps   *Deps
	logger *zap.Logger
}

func NewIconLinkProber(deps *Deps) *IconLinkProber {
	return &IconLinkProber{deps: deps, logger: deps.Logger.Named("iconlink-prober")}
}

// Applies reports whether the element is an icon-only link this prober can
// judge: an anchor with an icon child, no visible text, an href, and an
// inferable expectation.
func (p *IconLinkProber) Applies(el schemas.TaggedElement) bool {
	if el.TagName != "a" || !el.HasIcon || el.Text != "" || el.Href == "" {
		return false
	}
	_, ok := p.expectationFor(el)
	return ok
}

// Probe opens the link in a new browsing context and classifies
// IconLinkRedirectionError when the landing URL contradicts the icon.
func (p *IconLinkProber) Probe(ctx context.Context, el schemas.TaggedElement) schemas.InteractionResult {
	p.deps.notify(el.Selector, el.Label(), schemas.ElementLink)
	log := p.logger.With(zap.String("selector", el.Selector), zap.String("href", el.Href))

	urlBefore, _ := p.deps.Page.CurrentURL(ctx)
	result := schemas.InteractionResult{
		Selector:    el.Selector,
		TextContent: el.Label(),
		ElementType: schemas.ElementLink,
		URLBefore:   urlBefore,
		URLAfter:    urlBefore,
		IsVisible:   el.Visible,
	}

	expect, ok := p.expectationFor(el)
	if !ok {
		return result
	}

	// mailto and friends never reach the network; judge the href directly.
	if expect.Scheme != "" {
		result.WasClicked = true
		if !strings.HasPrefix(strings.ToLower(el.Href), expect.Scheme+":") {
			result.BugType = schemas.BugIconLinkRedirection
			result.Description = "icon implies a " + expect.Scheme + " link but href is " + el.Href
		}
		return result
	}

	href := absoluteHref(urlBefore, el.Href)
	tab, err := p.deps.Page.OpenTab(ctx, href)
	if err != nil {
		result.BugType = schemas.BugClickError
		result.Description = "opening link in a new context failed: " + err.Error()
		return result
	}
	defer func() {
		if cerr := tab.Close(ctx); cerr != nil {
			log.Warn("closing spawned context failed", zap.Error(cerr))
		}
	}()
	result.WasClicked = true
	result.Navigated = true

	settle(ctx, p.deps.Network.PostClickWait)
	landed, err := tab.CurrentURL(ctx)
	if err != nil {
		result.BugType = schemas.BugClickError
		result.Description = "reading spawned context URL failed: " + err.Error()
		return result
	}
	result.URLAfter = landed

	if !matchesDomain(landed, expect) {
		result.BugType = schemas.BugIconLinkRedirection
		result.Description = "icon implies " + expect.Domain + " but link landed on " + landed
	}
	return result
}

func (p *IconLinkProber) expectationFor(el schemas.TaggedElement) (expectation, bool) {
	// The tag selector carries no author hints, so the element's class/id
	// and the icon child's class join the href and the accessible names.
	haystack := strings.ToLower(strings.Join([]string{
		el.Href, el.AriaLabel, el.Title, el.ClassName, el.DOMID, el.IconClass,
	}, " "))
	for _, entry := range iconExpectations {
		if strings.Contains(haystack, entry.keyword) {
			return entry.expect, true
		}
	}
	return expectation{}, false
}

// matchesDomain compares the landing URL's organizational domain (eTLD+1,
// via the Public Suffix List) against the expectation. Subdomains of the
// expected domain are fine.
func matchesDomain(rawURL string, expect expectation) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(u.Hostname())
	if err != nil {
		return false
	}
	if domain == expect.Domain {
		return true
	}
	for _, alt := range expect.Alternates {
		if domain == alt {
			return true
		}
	}
	return false
}

func absoluteHref(base, href string) string {
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
