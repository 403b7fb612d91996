// internal/snapshot/snapshot.go
package snapshot

import (
	"context"
	_ "embed"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
)

//go:embed js_scripts/snapshot.js
var snapshotScript string

// Significance thresholds. Coarse size deltas catch content swaps; the
// structural and ARIA-state lists catch expand/collapse toggles that barely
// move the byte counts. Anything under these limits is background noise.
const (
	textLengthThreshold   = 10
	htmlLengthThreshold   = 50
	visibleCountThreshold = 2
)

// Engine captures comparable page fingerprints and judges whether an
// interaction changed anything that matters.
type Engine struct {
	page   schemas.Page
	logger *zap.Logger
}

// NewEngine creates a snapshot engine bound to one page.
func NewEngine(page schemas.Page, logger *zap.Logger) *Engine {
	return &Engine{
		page:   page,
		logger: logger.Named("snapshot"),
	}
}

// Capture fingerprints the current page state.
func (e *Engine) Capture(ctx context.Context) (*schemas.PageSnapshot, error) {
	var snap schemas.PageSnapshot
	if err := e.page.Evaluate(ctx, snapshotScript, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// IsSignificantChange reports whether the delta between two snapshots
// crosses any threshold. A nil snapshot on either side means the capture
// failed; that is treated as "no observable change", never as a crash.
func IsSignificantChange(before, after *schemas.PageSnapshot) bool {
	if before == nil || after == nil {
		return false
	}
	if absDiff(len(before.TextContent), len(after.TextContent)) > textLengthThreshold {
		return true
	}
	if absDiff(before.HTMLLength, after.HTMLLength) > htmlLengthThreshold {
		return true
	}
	if absDiff(before.VisibleElementCount, after.VisibleElementCount) > visibleCountThreshold {
		return true
	}
	if serialize(before.DynamicContent) != serialize(after.DynamicContent) {
		return true
	}
	if serialize(before.LiveRegions) != serialize(after.LiveRegions) {
		return true
	}
	if serialize(before.ExpandedStates) != serialize(after.ExpandedStates) {
		return true
	}
	return false
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func serialize(list []string) string {
	return strings.Join(list, "\x1f")
}
