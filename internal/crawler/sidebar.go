// internal/crawler/sidebar.go
package crawler

import (
	"context"
	_ "embed"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
	"github.com/xkilldash9x/uiprobe-cli/internal/probe"
)

//go:embed js_scripts/sidebar_detect.js
var sidebarDetectScript string

// sidebarDetection is the shape sidebar_detect.js returns.
type sidebarDetection struct {
	Present        bool   `json:"present"`
	Open           bool   `json:"open"`
	Kind           string `json:"kind"`
	ToggleSelector string `json:"toggleSelector"`
}

// SidebarManager collapses open overlay/hamburger navigation before a page
// walk so drawers don't occlude the elements under test. Detection runs
// once per run and is cached; pages on one site share a layout.
type SidebarManager struct {
	page   schemas.Page
	exec   *probe.Executor
	logger *zap.Logger

	state  *schemas.SidebarState
	toggle string
}

func NewSidebarManager(page schemas.Page, exec *probe.Executor, logger *zap.Logger) *SidebarManager {
	return &SidebarManager{page: page, exec: exec, logger: logger.Named("sidebar")}
}

// State returns the cached detection, or nil before the first Normalize.
func (m *SidebarManager) State() *schemas.SidebarState {
	return m.state
}

// Normalize detects the sidebar lazily and collapses it when open. Failures
// are logged and swallowed: a stuck drawer degrades occlusion checks but
// must not abort the crawl.
func (m *SidebarManager) Normalize(ctx context.Context) {
	if m.state == nil {
		var det sidebarDetection
		if err := m.page.Evaluate(ctx, sidebarDetectScript, &det); err != nil {
			m.logger.Warn("sidebar detection failed", zap.Error(err))
			m.state = &schemas.SidebarState{}
			return
		}
		m.state = &schemas.SidebarState{Present: det.Present, Open: det.Open, Kind: det.Kind}
		m.toggle = det.ToggleSelector
		m.logger.Debug("sidebar detected",
			zap.Bool("present", det.Present), zap.Bool("open", det.Open), zap.String("kind", det.Kind))
	}

	if !m.state.Present || !m.state.Open {
		return
	}
	if m.toggle != "" {
		if outcome := m.exec.Click(ctx, m.toggle); outcome.Success {
			m.state.Open = false
			return
		}
	}
	// No usable toggle control: Escape dismisses most overlay drawers.
	if err := m.page.Press(ctx, "body", "Escape"); err != nil {
		m.logger.Warn("collapsing sidebar failed", zap.Error(err))
		return
	}
	m.state.Open = false
}
