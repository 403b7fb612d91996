// internal/crawler/crawler.go

// Package crawler implements the depth-first page traversal that drives
// discovery and the probers on every reachable same-origin page, with cycle
// control, backtracking and heuristic bug classification.
package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
	"github.com/xkilldash9x/uiprobe-cli/internal/config"
	"github.com/xkilldash9x/uiprobe-cli/internal/discovery"
	"github.com/xkilldash9x/uiprobe-cli/internal/probe"
	"github.com/xkilldash9x/uiprobe-cli/internal/probers"
	"github.com/xkilldash9x/uiprobe-cli/internal/snapshot"
)

// defaultSkipLabels are the policy exclusions applied on top of the
// configured ones. Money-moving controls are never probed.
var defaultSkipLabels = []string{"billing", "subscription", "subscribe", "checkout", "payment"}

// Options wires a crawler to one browser page and one run's configuration.
type Options struct {
	Page     schemas.Page
	Analyzer config.AnalyzerConfig
	Network  config.NetworkConfig
	Progress schemas.ProgressFunc
	Logger   *zap.Logger
}

// Crawler owns all mutable state of one analysis run: the visited and
// checked sets, the footer dedupe index and the ordered result list. All of
// it is touched only by the single traversal flow, so no locking.
type Crawler struct {
	page     schemas.Page
	tagger   *discovery.Tagger
	exec     *probe.Executor
	snap     *snapshot.Engine
	sidebar  *SidebarManager
	search   *probers.SearchProber
	dropdown *probers.DropdownProber
	checkbox *probers.CheckboxProber
	icon     *probers.IconLinkProber
	auth     *probers.AuthProber

	limiter  *rate.Limiter
	analyzer config.AnalyzerConfig
	network  config.NetworkConfig
	progress schemas.ProgressFunc
	logger   *zap.Logger

	visited    map[string]struct{}
	checked    map[string]struct{}
	footerSeen map[string]struct{}
	results    []schemas.InteractionResult
	pages      int
}

// New assembles the full probing pipeline around one page.
func New(opts Options) *Crawler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("crawler")

	validator := probe.NewValidator(opts.Page, logger)
	exec := probe.NewExecutor(opts.Page, validator, opts.Analyzer.StabilityTimeout, logger)
	snap := snapshot.NewEngine(opts.Page, logger)
	deps := &probers.Deps{
		Page:     opts.Page,
		Snap:     snap,
		Exec:     exec,
		Network:  opts.Network,
		Analyzer: opts.Analyzer,
		Progress: opts.Progress,
		Logger:   logger,
	}

	limit := rate.Inf
	if opts.Analyzer.ProbesPerSecond > 0 {
		limit = rate.Limit(opts.Analyzer.ProbesPerSecond)
	}

	return &Crawler{
		page:       opts.Page,
		tagger:     discovery.NewTagger(opts.Page, logger),
		exec:       exec,
		snap:       snap,
		sidebar:    NewSidebarManager(opts.Page, exec, logger),
		search:     probers.NewSearchProber(deps),
		dropdown:   probers.NewDropdownProber(deps),
		checkbox:   probers.NewCheckboxProber(deps),
		icon:       probers.NewIconLinkProber(deps),
		auth:       probers.NewAuthProber(deps),
		limiter:    rate.NewLimiter(limit, 1),
		analyzer:   opts.Analyzer,
		network:    opts.Network,
		progress:   opts.Progress,
		logger:     logger,
		visited:    make(map[string]struct{}),
		checked:    make(map[string]struct{}),
		footerSeen: make(map[string]struct{}),
	}
}

// Run crawls the target and returns the ordered result list. A context
// error ends the crawl early; the summary still carries everything probed
// up to that point.
func (c *Crawler) Run(ctx context.Context, target string) (*schemas.RunSummary, error) {
	summary := &schemas.RunSummary{
		RunID:     uuid.NewString(),
		Target:    target,
		StartedAt: time.Now().UTC(),
	}

	nav, err := c.page.Navigate(ctx, target, c.network.NavigationTimeout)
	if err != nil {
		return nil, fmt.Errorf("initial navigation to %s failed: %w", target, err)
	}
	start := target
	if nav != nil && nav.URL != "" {
		start = nav.URL
	}

	runErr := c.visit(ctx, start, 0)

	summary.FinishedAt = time.Now().UTC()
	summary.PagesSeen = c.pages
	summary.Results = append([]schemas.InteractionResult(nil), c.results...)
	if runErr != nil {
		c.logger.Warn("crawl ended early", zap.Error(runErr))
	}
	return summary, runErr
}

// visit probes the page the browser is currently on. rawURL must be that
// page's address.
func (c *Crawler) visit(ctx context.Context, rawURL string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	norm, err := Normalize(rawURL)
	if err != nil {
		c.logger.Warn("skipping unparseable page URL", zap.String("url", rawURL), zap.Error(err))
		return nil
	}
	if _, seen := c.visited[norm]; seen {
		return nil
	}
	c.visited[norm] = struct{}{}
	c.pages++

	log := c.logger.With(zap.String("page", norm), zap.Int("depth", depth))
	log.Info("visiting page")

	c.sidebar.Normalize(ctx)

	// Non-navigating affordance probers run before the element walk so
	// their state restoration isn't disturbed by generic clicks.
	c.results = append(c.results, c.search.Probe(ctx)...)
	c.results = append(c.results, c.dropdown.Probe(ctx)...)
	c.results = append(c.results, c.checkbox.Probe(ctx)...)

	det, err := c.auth.Detect(ctx)
	if err != nil {
		log.Warn("auth detection failed", zap.Error(err))
	} else if det.IsAuthPage {
		// Auth pages belong to the auth prober exclusively.
		log.Info("auth page detected, handing off")
		results, next := c.auth.Probe(ctx, det)
		c.results = append(c.results, results...)
		if next != "" && SameOrigin(norm, next) {
			return c.visit(ctx, next, depth+1)
		}
		return nil
	}

	// Tags die on every navigation, so each iteration re-discovers against
	// the current DOM and probes exactly one fresh candidate.
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		elements, err := c.tagger.Discover(ctx)
		if err != nil {
			log.Warn("discovery failed, leaving page", zap.Error(err))
			return nil
		}
		el, ok := c.nextCandidate(norm, elements)
		if !ok {
			return nil
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := c.probeElement(ctx, norm, el, depth); err != nil {
			return err
		}
	}
}

// nextCandidate picks the first element not yet probed on this page,
// burning skipped ones into the checked set so the walk terminates.
func (c *Crawler) nextCandidate(norm string, elements []schemas.TaggedElement) (schemas.TaggedElement, bool) {
	for _, el := range elements {
		key := norm + "|" + el.Selector
		if _, done := c.checked[key]; done {
			continue
		}
		label := el.Label()
		if c.skipByPolicy(label) {
			c.logger.Debug("skipping by label policy", zap.String("label", label))
			c.checked[key] = struct{}{}
			continue
		}
		if el.Text == "" && el.AriaLabel == "" && el.Title == "" && !el.HasIcon {
			c.checked[key] = struct{}{}
			continue
		}
		if el.InFooter {
			fkey := string(el.Category) + "|" + label
			if _, seen := c.footerSeen[fkey]; seen {
				c.checked[key] = struct{}{}
				continue
			}
		}
		return el, true
	}
	return schemas.TaggedElement{}, false
}

func (c *Crawler) skipByPolicy(label string) bool {
	lower := strings.ToLower(label)
	for _, skip := range defaultSkipLabels {
		if strings.Contains(lower, skip) {
			return true
		}
	}
	for _, skip := range c.analyzer.SkipLabels {
		if skip != "" && strings.Contains(lower, strings.ToLower(skip)) {
			return true
		}
	}
	return false
}

// probeElement interacts with one element and classifies the outcome. Only
// context errors propagate; anything element-local becomes a result.
func (c *Crawler) probeElement(ctx context.Context, norm string, el schemas.TaggedElement, depth int) error {
	c.checked[norm+"|"+el.Selector] = struct{}{}
	if el.InFooter {
		c.footerSeen[string(el.Category)+"|"+el.Label()] = struct{}{}
	}

	if el.Category == schemas.ElementLink {
		if c.icon.Applies(el) {
			c.results = append(c.results, c.icon.Probe(ctx, el))
			return nil
		}
		if el.Href != "" {
			abs := Resolve(norm, el.Href)
			if strings.HasPrefix(abs, "http") && !SameOrigin(norm, abs) {
				c.logger.Debug("skipping cross-origin link", zap.String("href", el.Href))
				return nil
			}
			if scheme := strings.SplitN(abs, ":", 2)[0]; scheme != "http" && scheme != "https" {
				return nil
			}
		}
	}

	if c.progress != nil {
		c.progress(schemas.ProbeEvent{Selector: el.Selector, TextContent: el.Label(), ElementType: el.Category})
	}
	log := c.logger.With(zap.String("selector", el.Selector), zap.String("label", el.Label()))

	urlBefore, _ := c.page.CurrentURL(ctx)
	result := schemas.InteractionResult{
		Selector:    el.Selector,
		TextContent: el.Label(),
		ElementType: el.Category,
		URLBefore:   urlBefore,
		URLAfter:    urlBefore,
		IsVisible:   el.Visible,
	}

	before, err := c.snap.Capture(ctx)
	if err != nil {
		log.Warn("snapshot before probe failed", zap.Error(err))
	}

	outcome := c.exec.Click(ctx, el.Selector)
	result.WasClicked = outcome.Success
	if !outcome.Success {
		if outcome.Method == schemas.ClickMethodValidation {
			// Expected non-interactable state, not a bug.
			log.Debug("element not interactable", zap.String("reason", outcome.Error))
			return nil
		}
		result.BugType = schemas.BugClickError
		result.Description = "interaction failed: " + outcome.Error
		c.results = append(c.results, result)
		return nil
	}

	nav, navigated := c.page.WaitNavigation(ctx, c.network.PostClickWait)
	if !navigated {
		// A navigation completing inside the click fires before the wait
		// starts listening; the address bar is the authority then.
		if after, err := c.page.CurrentURL(ctx); err == nil && urlChanged(urlBefore, after) {
			nav = &schemas.NavigationResult{URL: after}
			navigated = true
		}
	}
	if navigated && nav != nil {
		return c.afterNavigation(ctx, norm, result, nav, depth, log)
	}

	after, err := c.snap.Capture(ctx)
	if err != nil {
		log.Warn("snapshot after probe failed", zap.Error(err))
	}
	result.ContentChanged = snapshot.IsSignificantChange(before, after)
	if !result.ContentChanged && !c.isSelfLink(norm, el) {
		result.BugType = schemas.BugNoNavigation
		result.Description = "interaction produced neither navigation nor a content change"
	}
	c.results = append(c.results, result)
	return nil
}

// afterNavigation records the navigation outcome, recurses into unvisited
// same-origin pages, and always returns the browser to the page the probe
// started on.
func (c *Crawler) afterNavigation(ctx context.Context, norm string, result schemas.InteractionResult, nav *schemas.NavigationResult, depth int, log *zap.Logger) error {
	result.Navigated = true
	result.URLAfter = nav.URL

	// The document always gets a look: soft 404s hide behind a 200.
	html, _ := c.page.HTML(ctx)
	if IsMissingPage(nav.Status, nav.StatusKnown, html) {
		result.BugType = schemas.BugMissingPage
		result.Description = fmt.Sprintf("link leads to a missing page (%s)", nav.URL)
		c.results = append(c.results, result)
		c.goBack(ctx, log)
		return nil
	}
	c.results = append(c.results, result)

	normAfter, err := Normalize(nav.URL)
	if err == nil && SameOrigin(norm, normAfter) {
		if _, seen := c.visited[normAfter]; !seen && c.depthAllows(depth + 1) {
			if err := c.visit(ctx, normAfter, depth+1); err != nil {
				return err
			}
		}
	}
	c.goBack(ctx, log)
	return nil
}

func (c *Crawler) depthAllows(depth int) bool {
	return c.analyzer.MaxDepth == 0 || depth <= c.analyzer.MaxDepth
}

// isSelfLink reports whether the element is a link that merely points at
// the page it lives on; such links legitimately do nothing.
func (c *Crawler) isSelfLink(norm string, el schemas.TaggedElement) bool {
	if el.Category != schemas.ElementLink || el.Href == "" {
		return false
	}
	target, err := Normalize(Resolve(norm, el.Href))
	if err != nil {
		return false
	}
	return target == norm
}

func (c *Crawler) goBack(ctx context.Context, log *zap.Logger) {
	if err := c.page.NavigateBack(ctx, c.network.NavigationTimeout); err != nil {
		log.Warn("navigate back failed", zap.Error(err))
	}
}
