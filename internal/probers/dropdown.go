// internal/probers/dropdown.go
package probers

import (
	"context"
	_ "embed"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
	"github.com/xkilldash9x/uiprobe-cli/internal/snapshot"
)

//go:embed js_scripts/dropdown_discover.js
var dropdownDiscoverScript string

//go:embed js_scripts/select_option.js
var selectOptionScript string

// dropdownWidget mirrors the descriptor dropdown_discover.js emits.
type dropdownWidget struct {
	Selector      string `json:"selector"`
	Native        bool   `json:"native"`
	OptionCount   int    `json:"optionCount"`
	ApplySelector string `json:"applySelector"`
	Label         string `json:"label"`
}

// DropdownProber exercises native selects and ARIA combobox/listbox/menu
// widgets: pick a different option, press a nearby apply control when one
// exists, and require a significant change otherwise.
type DropdownProber struct {
	deps   *Deps
	logger *zap.Logger
}

func NewDropdownProber(deps *Deps) *DropdownProber {
	return &DropdownProber{deps: deps, logger: deps.Logger.Named("dropdown-prober")}
}

func (p *DropdownProber) Probe(ctx context.Context) []schemas.InteractionResult {
	var widgets []dropdownWidget
	if err := p.deps.Page.Evaluate(ctx, dropdownDiscoverScript, &widgets); err != nil {
		p.logger.Warn("dropdown discovery failed", zap.Error(err))
		return nil
	}

	var results []schemas.InteractionResult
	for _, w := range widgets {
		if w.OptionCount < 1 {
			continue
		}
		results = append(results, p.probeWidget(ctx, w))
	}
	return results
}

func (p *DropdownProber) probeWidget(ctx context.Context, w dropdownWidget) schemas.InteractionResult {
	p.deps.notify(w.Selector, w.Label, schemas.ElementCustom)

	urlBefore, _ := p.deps.Page.CurrentURL(ctx)
	result := schemas.InteractionResult{
		Selector:    w.Selector,
		TextContent: w.Label,
		ElementType: schemas.ElementCustom,
		URLBefore:   urlBefore,
		URLAfter:    urlBefore,
		IsVisible:   true,
	}

	before, err := p.deps.Snap.Capture(ctx)
	if err != nil {
		result.BugType = schemas.BugDropdownError
		result.Description = fmt.Sprintf("snapshot before selection failed: %v", err)
		return result
	}

	// Custom widgets need a real click to open; native selects mutate fine
	// without one.
	if !w.Native {
		outcome := p.deps.Exec.Click(ctx, w.Selector)
		if !outcome.Success {
			if outcome.Method == schemas.ClickMethodValidation {
				return result
			}
			result.BugType = schemas.BugDropdownError
			result.Description = fmt.Sprintf("opening dropdown failed: %s", outcome.Error)
			return result
		}
		result.WasClicked = true
		settle(ctx, p.deps.Network.PostClickWait/2)
	}

	var selected jsResult
	if err := p.deps.Page.Evaluate(ctx, inject(selectOptionScript, "__SELECTOR__", w.Selector), &selected); err != nil || !selected.OK {
		result.BugType = schemas.BugDropdownError
		result.Description = fmt.Sprintf("selecting an option failed: %v %s", err, selected.Error)
		return result
	}
	result.WasClicked = true

	hasApply := w.ApplySelector != ""
	if hasApply {
		outcome := p.deps.Exec.Click(ctx, w.ApplySelector)
		if !outcome.Success {
			p.logger.Debug("apply control click failed",
				zap.String("selector", w.ApplySelector), zap.String("error", outcome.Error))
		}
	}
	settle(ctx, p.deps.Network.PostClickWait)

	after, err := p.deps.Snap.Capture(ctx)
	if err != nil {
		result.BugType = schemas.BugDropdownError
		result.Description = fmt.Sprintf("snapshot after selection failed: %v", err)
		return result
	}
	result.ContentChanged = snapshot.IsSignificantChange(before, after)

	// A dropdown wired to an apply control is allowed to stay inert until
	// the apply fires; only classify when no such control exists.
	if !result.ContentChanged && !hasApply {
		result.BugType = schemas.BugNoDropdownEffect
		result.Description = "changing the selection produced no observable effect"
	}
	return result
}
