// internal/probe/validate.go
package probe

import (
	"context"
	_ "embed"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
)

//go:embed js_scripts/validate.js
var validateScript string

//go:embed js_scripts/bounds.js
var boundsScript string

// Stability sampling parameters: up to 4 bounding-box samples ~50ms apart,
// two consecutive samples within 2px on every axis count as settled.
const (
	stabilitySamples   = 4
	stabilityInterval  = 50 * time.Millisecond
	stabilityTolerance = 2.0
)

// Validator judges whether a DOM node is real, visible, clickable,
// unoccluded, and geometrically settled. It gates every interaction.
type Validator struct {
	page   schemas.Page
	logger *zap.Logger
}

// NewValidator creates a validator bound to one page.
func NewValidator(page schemas.Page, logger *zap.Logger) *Validator {
	return &Validator{
		page:   page,
		logger: logger.Named("validator"),
	}
}

// Validate inspects the selector's target. A missing or malformed DOM
// answer is treated as "feature absent", never as a crash.
func (v *Validator) Validate(ctx context.Context, selector string) (schemas.Validation, error) {
	var result schemas.Validation
	if err := v.page.Evaluate(ctx, injectSelector(validateScript, selector), &result); err != nil {
		return schemas.Validation{}, err
	}
	return result, nil
}

// IsStable samples the element's bounding box until two consecutive samples
// agree within tolerance. It returns false when the element disappears or
// the timeout elapses first.
func (v *Validator) IsStable(ctx context.Context, selector string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	var prev *schemas.Rect
	for i := 0; i < stabilitySamples; i++ {
		if ctx.Err() != nil || time.Now().After(deadline) {
			return false
		}

		var rect *schemas.Rect
		if err := v.page.Evaluate(ctx, injectSelector(boundsScript, selector), &rect); err != nil {
			v.logger.Debug("Bounding box sample failed.", zap.String("selector", selector), zap.Error(err))
			return false
		}
		if rect == nil {
			// Element vanished mid-poll.
			return false
		}

		if prev != nil && rectsWithin(*prev, *rect, stabilityTolerance) {
			return true
		}
		prev = rect

		select {
		case <-time.After(stabilityInterval):
		case <-ctx.Done():
			return false
		}
	}
	return false
}

func rectsWithin(a, b schemas.Rect, tolerance float64) bool {
	return math.Abs(a.X-b.X) <= tolerance &&
		math.Abs(a.Y-b.Y) <= tolerance &&
		math.Abs(a.Width-b.Width) <= tolerance &&
		math.Abs(a.Height-b.Height) <= tolerance
}

// injectSelector substitutes the quoted selector into an embedded script.
func injectSelector(script, selector string) string {
	return strings.ReplaceAll(script, "__SELECTOR__", strconv.Quote(selector))
}
