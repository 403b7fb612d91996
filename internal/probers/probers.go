// internal/probers/probers.go

// Package probers implements the per-affordance interaction protocols:
// search fields, dropdowns, checkbox groups, icon-only external links and
// authentication forms. Each prober snapshots the page, performs its
// protocol through the shared executor, diffs the result and classifies
// anomalies. Probers never panic the run; a broken element yields an
// error-typed result and the caller moves on.
package probers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
	"github.com/xkilldash9x/uiprobe-cli/internal/config"
	"github.com/xkilldash9x/uiprobe-cli/internal/probe"
	"github.com/xkilldash9x/uiprobe-cli/internal/snapshot"
)

// Deps bundles the collaborators every prober shares. The page, snapshot
// engine and executor are all bound to the same browser tab.
type Deps struct {
	Page     schemas.Page
	Snap     *snapshot.Engine
	Exec     *probe.Executor
	Network  config.NetworkConfig
	Analyzer config.AnalyzerConfig
	Progress schemas.ProgressFunc
	Logger   *zap.Logger
}

// notify mirrors the probe to the progress callback, when one is set.
func (d *Deps) notify(selector, text string, et schemas.ElementType) {
	if d.Progress != nil {
		d.Progress(schemas.ProbeEvent{Selector: selector, TextContent: text, ElementType: et})
	}
}

// jsResult is the {ok, error} shape the embedded mutation helpers return.
type jsResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// inject substitutes a token in an embedded script with a quoted value.
func inject(script, token, value string) string {
	return strings.ReplaceAll(script, token, strconv.Quote(value))
}

// settle gives the page time to react to a non-navigating interaction.
func settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = 500 * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
