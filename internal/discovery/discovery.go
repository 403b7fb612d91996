// internal/discovery/discovery.go
package discovery

import (
	"context"
	_ "embed"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
)

//go:embed js_scripts/discover.js
var discoverScript string

// Tagger finds candidate interactive elements on the current DOM and stamps
// each with a page-scoped data attribute so later interactions can address
// it with a stable selector. Tags do not survive navigation; the traversal
// layer must call Discover again after every page change.
type Tagger struct {
	page   schemas.Page
	logger *zap.Logger
}

// NewTagger creates a tagger bound to one page.
func NewTagger(page schemas.Page, logger *zap.Logger) *Tagger {
	return &Tagger{
		page:   page,
		logger: logger.Named("discovery"),
	}
}

// Discover tags untagged candidates and returns every tagged element on the
// page, previously tagged ones included, in (category, index) order. The
// operation is idempotent: running it twice on an unchanged DOM yields an
// identical set, with no renumbering.
func (t *Tagger) Discover(ctx context.Context) ([]schemas.TaggedElement, error) {
	var elements []schemas.TaggedElement
	if err := t.page.Evaluate(ctx, discoverScript, &elements); err != nil {
		return nil, fmt.Errorf("element discovery script failed: %w", err)
	}

	t.logger.Debug("discovery complete", zap.Int("elements", len(elements)))
	return elements, nil
}
