// internal/probers/search.go
package probers

import (
	"context"
	_ "embed"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
	"github.com/xkilldash9x/uiprobe-cli/internal/snapshot"
)

//go:embed js_scripts/search_discover.js
var searchDiscoverScript string

//go:embed js_scripts/clear_input.js
var clearInputScript string

// searchField mirrors the descriptor search_discover.js emits.
type searchField struct {
	Selector       string `json:"selector"`
	SubmitSelector string `json:"submitSelector"`
	Label          string `json:"label"`
}

// SearchProber exercises every search field on the current page: clear,
// type a fixed probe string, submit, and require either a navigation or a
// significant content change.
type SearchProber struct {
	deps   *Deps
	logger *zap.Logger
}

func NewSearchProber(deps *Deps) *SearchProber {
	return &SearchProber{deps: deps, logger: deps.Logger.Named("search-prober")}
}

// Probe runs the protocol against all search fields. If a submission
// navigated, the prober returns to the original page before moving on so
// the caller's position is preserved.
func (p *SearchProber) Probe(ctx context.Context) []schemas.InteractionResult {
	var fields []searchField
	if err := p.deps.Page.Evaluate(ctx, searchDiscoverScript, &fields); err != nil {
		p.logger.Warn("search discovery failed", zap.Error(err))
		return nil
	}

	var results []schemas.InteractionResult
	for _, field := range fields {
		results = append(results, p.probeField(ctx, field))
	}
	return results
}

func (p *SearchProber) probeField(ctx context.Context, field searchField) schemas.InteractionResult {
	p.deps.notify(field.Selector, field.Label, schemas.ElementCustom)
	log := p.logger.With(zap.String("selector", field.Selector))

	urlBefore, _ := p.deps.Page.CurrentURL(ctx)
	result := schemas.InteractionResult{
		Selector:    field.Selector,
		TextContent: field.Label,
		ElementType: schemas.ElementCustom,
		URLBefore:   urlBefore,
		URLAfter:    urlBefore,
		IsVisible:   true,
	}

	before, err := p.deps.Snap.Capture(ctx)
	if err != nil {
		result.BugType = schemas.BugSearchError
		result.Description = fmt.Sprintf("snapshot before search failed: %v", err)
		return result
	}

	var cleared jsResult
	if err := p.deps.Page.Evaluate(ctx, inject(clearInputScript, "__SELECTOR__", field.Selector), &cleared); err != nil || !cleared.OK {
		result.BugType = schemas.BugSearchError
		result.Description = fmt.Sprintf("could not clear search field: %v %s", err, cleared.Error)
		return result
	}
	probeText := p.deps.Analyzer.SearchProbe
	if probeText == "" {
		probeText = "test"
	}
	if err := p.deps.Page.Type(ctx, field.Selector, probeText); err != nil {
		result.BugType = schemas.BugSearchError
		result.Description = fmt.Sprintf("typing probe string failed: %v", err)
		return result
	}

	// Submit through the associated control when one was found, otherwise
	// fall back to the default submit key.
	if field.SubmitSelector != "" {
		outcome := p.deps.Exec.Click(ctx, field.SubmitSelector)
		result.WasClicked = outcome.Success
		if !outcome.Success && outcome.Method != schemas.ClickMethodValidation {
			result.BugType = schemas.BugSearchError
			result.Description = fmt.Sprintf("submit control click failed: %v", outcome.Error)
			return result
		}
	} else {
		if err := p.deps.Page.Press(ctx, field.Selector, "Enter"); err != nil {
			result.BugType = schemas.BugSearchError
			result.Description = fmt.Sprintf("submit key failed: %v", err)
			return result
		}
		result.WasClicked = true
	}

	// Navigation and content-only updates are both legitimate outcomes;
	// whichever resolves first wins the race.
	nav, navigated := p.deps.Page.WaitNavigation(ctx, p.deps.Network.PostClickWait)
	if navigated {
		result.Navigated = true
		if nav != nil {
			result.URLAfter = nav.URL
		}
		if err := p.deps.Page.NavigateBack(ctx, p.deps.Network.NavigationTimeout); err != nil {
			log.Warn("navigate back after search failed", zap.Error(err))
		}
		return result
	}

	after, err := p.deps.Snap.Capture(ctx)
	if err != nil {
		result.BugType = schemas.BugSearchError
		result.Description = fmt.Sprintf("snapshot after search failed: %v", err)
		return result
	}
	result.ContentChanged = snapshot.IsSignificantChange(before, after)
	if !result.ContentChanged {
		result.BugType = schemas.BugNoSearchEffect
		result.Description = "search submission produced neither navigation nor a content change"
	}
	return result
}
