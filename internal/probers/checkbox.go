// internal/probers/checkbox.go
package probers

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
	"github.com/xkilldash9x/uiprobe-cli/internal/snapshot"
)

//go:embed js_scripts/checkbox_discover.js
var checkboxDiscoverScript string

//go:embed js_scripts/set_checked.js
var setCheckedScript string

// checkboxGroup mirrors the descriptor checkbox_discover.js emits.
type checkboxGroup struct {
	Label         string   `json:"label"`
	Boxes         []string `json:"boxes"`
	ApplySelector string   `json:"applySelector"`
}

// maxBoxesPerGroup caps how many checkboxes one group probe toggles.
const maxBoxesPerGroup = 3

// CheckboxProber exercises checkbox groups: check a few boxes, fire the
// group's apply control when one exists, diff, and always restore the
// original unchecked state afterwards.
type CheckboxProber struct {
	deps   *Deps
	logger *zap.Logger
}

func NewCheckboxProber(deps *Deps) *CheckboxProber {
	return &CheckboxProber{deps: deps, logger: deps.Logger.Named("checkbox-prober")}
}

func (p *CheckboxProber) Probe(ctx context.Context) []schemas.InteractionResult {
	var groups []checkboxGroup
	if err := p.deps.Page.Evaluate(ctx, checkboxDiscoverScript, &groups); err != nil {
		p.logger.Warn("checkbox discovery failed", zap.Error(err))
		return nil
	}

	var results []schemas.InteractionResult
	for _, group := range groups {
		if len(group.Boxes) == 0 {
			continue
		}
		results = append(results, p.probeGroup(ctx, group))
	}
	return results
}

func (p *CheckboxProber) probeGroup(ctx context.Context, group checkboxGroup) schemas.InteractionResult {
	selector := strings.Join(group.Boxes, ", ")
	p.deps.notify(selector, group.Label, schemas.ElementCustom)

	urlBefore, _ := p.deps.Page.CurrentURL(ctx)
	result := schemas.InteractionResult{
		Selector:    selector,
		TextContent: group.Label,
		ElementType: schemas.ElementCustom,
		URLBefore:   urlBefore,
		URLAfter:    urlBefore,
		IsVisible:   true,
	}

	toggled := group.Boxes
	if len(toggled) > maxBoxesPerGroup {
		toggled = toggled[:maxBoxesPerGroup]
	}
	// Whatever happens below, the page leaves this probe the way we found
	// it.
	defer p.restore(ctx, toggled)

	before, err := p.deps.Snap.Capture(ctx)
	if err != nil {
		result.BugType = schemas.BugCheckboxError
		result.Description = fmt.Sprintf("snapshot before toggle failed: %v", err)
		return result
	}

	for _, box := range toggled {
		if err := p.setChecked(ctx, box, true); err != nil {
			result.BugType = schemas.BugCheckboxError
			result.Description = fmt.Sprintf("checking %s failed: %v", box, err)
			return result
		}
	}
	result.WasClicked = true

	if group.ApplySelector != "" {
		outcome := p.deps.Exec.Click(ctx, group.ApplySelector)
		if !outcome.Success {
			p.logger.Debug("apply control click failed",
				zap.String("selector", group.ApplySelector), zap.String("error", outcome.Error))
		}
	}
	settle(ctx, p.deps.Network.PostClickWait)

	after, err := p.deps.Snap.Capture(ctx)
	if err != nil {
		result.BugType = schemas.BugCheckboxError
		result.Description = fmt.Sprintf("snapshot after toggle failed: %v", err)
		return result
	}
	result.ContentChanged = snapshot.IsSignificantChange(before, after)
	if !result.ContentChanged {
		result.BugType = schemas.BugNoCheckboxEffect
		result.Description = "toggling the group produced no observable effect"
	}
	return result
}

func (p *CheckboxProber) setChecked(ctx context.Context, selector string, checked bool) error {
	script := inject(setCheckedScript, "__SELECTOR__", selector)
	script = strings.ReplaceAll(script, "__CHECKED__", fmt.Sprintf("%t", checked))
	var res jsResult
	if err := p.deps.Page.Evaluate(ctx, script, &res); err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("%s", res.Error)
	}
	return nil
}

func (p *CheckboxProber) restore(ctx context.Context, boxes []string) {
	for _, box := range boxes {
		if err := p.setChecked(ctx, box, false); err != nil {
			p.logger.Warn("restoring checkbox failed", zap.String("selector", box), zap.Error(err))
		}
	}
}
