// internal/crawler/sidebar_test.go
package crawler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
	"github.com/xkilldash9x/uiprobe-cli/internal/mocks"
	"github.com/xkilldash9x/uiprobe-cli/internal/probe"
)

func sidebarPage(det sidebarDetection, detectCalls *int) *mocks.FakePage {
	return &mocks.FakePage{
		EvaluateFunc: func(script string, out any) error {
			switch {
			case strings.Contains(script, "toggleSelector"):
				*detectCalls++
				return mocks.WriteJSON(out, det)
			case strings.Contains(script, "occluded"):
				return mocks.WriteJSON(out, schemas.Validation{Exists: true, Visible: true, Clickable: true, InViewport: true})
			case strings.Contains(script, "el.click()"), strings.Contains(script, "dispatchEvent(new MouseEvent"):
				return mocks.WriteJSON(out, map[string]any{"ok": true})
			case strings.Contains(script, "getBoundingClientRect"):
				return mocks.WriteJSON(out, schemas.Rect{X: 1, Y: 1, Width: 20, Height: 20})
			}
			return mocks.WriteJSON(out, nil)
		},
	}
}

func newSidebarManager(page schemas.Page) *SidebarManager {
	logger := zap.NewNop()
	validator := probe.NewValidator(page, logger)
	exec := probe.NewExecutor(page, validator, 150*time.Millisecond, logger)
	return NewSidebarManager(page, exec, logger)
}

func TestSidebarDetectionIsCached(t *testing.T) {
	var calls int
	page := sidebarPage(sidebarDetection{Present: true, Open: false, Kind: "aside"}, &calls)
	m := newSidebarManager(page)

	m.Normalize(context.Background())
	m.Normalize(context.Background())
	m.Normalize(context.Background())

	assert.Equal(t, 1, calls, "layout query must run once per run")
	require.NotNil(t, m.State())
	assert.True(t, m.State().Present)
	assert.Equal(t, "aside", m.State().Kind)
}

func TestSidebarOpenOverlayIsCollapsedViaToggle(t *testing.T) {
	var calls int
	det := sidebarDetection{
		Present:        true,
		Open:           true,
		Kind:           "overlay",
		ToggleSelector: `[data-uiprobe-id="sidebar-toggle"]`,
	}
	page := sidebarPage(det, &calls)
	m := newSidebarManager(page)

	m.Normalize(context.Background())

	assert.False(t, m.State().Open)
	assert.Contains(t, page.CallLog(), `Click [data-uiprobe-id="sidebar-toggle"]`)
}

func TestSidebarEscapeFallbackWithoutToggle(t *testing.T) {
	var calls int
	page := sidebarPage(sidebarDetection{Present: true, Open: true, Kind: "overlay"}, &calls)
	m := newSidebarManager(page)

	m.Normalize(context.Background())

	assert.False(t, m.State().Open)
	assert.Contains(t, page.CallLog(), "Press body Escape")
}

func TestSidebarAbsentIsANoop(t *testing.T) {
	var calls int
	page := sidebarPage(sidebarDetection{}, &calls)
	m := newSidebarManager(page)

	m.Normalize(context.Background())

	for _, call := range page.CallLog() {
		assert.NotContains(t, call, "Click")
		assert.NotContains(t, call, "Press")
	}
}
