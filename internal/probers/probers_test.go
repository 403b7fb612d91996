// internal/probers/probers_test.go
package probers

import (
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
	"github.com/xkilldash9x/uiprobe-cli/internal/config"
	"github.com/xkilldash9x/uiprobe-cli/internal/mocks"
	"github.com/xkilldash9x/uiprobe-cli/internal/probe"
	"github.com/xkilldash9x/uiprobe-cli/internal/snapshot"
)

// siteDOM scripts a FakePage for whole-prober tests. Each embedded script is
// recognized by a substring unique to it; snapshot captures are served from
// a sequence so tests can stage before/after deltas.
type siteDOM struct {
	mu sync.Mutex

	searchFields []searchField
	dropdowns    []dropdownWidget
	checkboxes   []checkboxGroup
	detection    AuthDetection
	filled       fillOutcome
	invalidShown bool
	fieldSets    [][]string
	snapshots    []*schemas.PageSnapshot

	validation schemas.Validation
	bounds     *schemas.Rect
	selectErr  string

	fieldCalls int
	snapCalls  int
	checkedLog []string
}

func interactable() schemas.Validation {
	return schemas.Validation{Exists: true, Visible: true, Clickable: true, InViewport: true}
}

func (d *siteDOM) page() *mocks.FakePage {
	return &mocks.FakePage{
		URL: "https://site.test/",
		EvaluateFunc: func(script string, out any) error {
			d.mu.Lock()
			defer d.mu.Unlock()
			switch {
			case strings.Contains(script, "looksLikeSearch"):
				return mocks.WriteJSON(out, d.searchFields)
			case strings.Contains(script, "el.value = ''"):
				return mocks.WriteJSON(out, jsResult{OK: true})
			case strings.Contains(script, "optionCount"):
				return mocks.WriteJSON(out, d.dropdowns)
			case strings.Contains(script, "selectedIndex"):
				return mocks.WriteJSON(out, jsResult{OK: d.selectErr == "", Error: d.selectErr})
			case strings.Contains(script, `input[type="checkbox"]`):
				return mocks.WriteJSON(out, d.checkboxes)
			case strings.Contains(script, "el.checked"):
				d.checkedLog = append(d.checkedLog, script)
				return mocks.WriteJSON(out, jsResult{OK: true})
			case strings.Contains(script, "isAuthPage"):
				return mocks.WriteJSON(out, d.detection)
			case strings.Contains(script, "contentDocument"):
				return mocks.WriteJSON(out, d.filled)
			case strings.Contains(script, "no\\s+account"):
				return mocks.WriteJSON(out, d.invalidShown)
			case strings.Contains(script, "textarea"):
				fields := []string{}
				if len(d.fieldSets) > 0 {
					i := d.fieldCalls
					if i >= len(d.fieldSets) {
						i = len(d.fieldSets) - 1
					}
					fields = d.fieldSets[i]
				}
				d.fieldCalls++
				return mocks.WriteJSON(out, fields)
			case strings.Contains(script, "expandedStates"):
				var snap *schemas.PageSnapshot
				if len(d.snapshots) > 0 {
					i := d.snapCalls
					if i >= len(d.snapshots) {
						i = len(d.snapshots) - 1
					}
					snap = d.snapshots[i]
				}
				d.snapCalls++
				return mocks.WriteJSON(out, snap)
			case strings.Contains(script, "occluded"):
				return mocks.WriteJSON(out, d.validation)
			case strings.Contains(script, "el.click()"):
				return mocks.WriteJSON(out, jsResult{OK: true})
			case strings.Contains(script, "dispatchEvent(new MouseEvent"):
				return mocks.WriteJSON(out, jsResult{OK: true})
			case strings.Contains(script, "getBoundingClientRect"):
				return mocks.WriteJSON(out, d.bounds)
			}
			return mocks.WriteJSON(out, nil)
		},
	}
}

func (d *siteDOM) checkedCalls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.checkedLog...)
}

// stableSnapshots stages two identical captures: no observable change.
func stableSnapshots() []*schemas.PageSnapshot {
	s := &schemas.PageSnapshot{HTMLLength: 1000, VisibleElementCount: 40, TextContent: strings.Repeat("a", 200)}
	return []*schemas.PageSnapshot{s, s}
}

// changedSnapshots stages a significant content delta between captures.
func changedSnapshots() []*schemas.PageSnapshot {
	return []*schemas.PageSnapshot{
		{HTMLLength: 1000, VisibleElementCount: 40, TextContent: strings.Repeat("a", 200)},
		{HTMLLength: 1400, VisibleElementCount: 55, TextContent: strings.Repeat("a", 320)},
	}
}

func newTestDeps(t *testing.T, page *mocks.FakePage) *Deps {
	t.Helper()
	logger := zap.NewNop()
	validator := probe.NewValidator(page, logger)
	return &Deps{
		Page:    page,
		Snap:    snapshot.NewEngine(page, logger),
		Exec:    probe.NewExecutor(page, validator, 150*time.Millisecond, logger),
		Network: config.NetworkConfig{NavigationTimeout: time.Second, PostClickWait: 30 * time.Millisecond, PostLoadWait: 10 * time.Millisecond},
		Analyzer: config.AnalyzerConfig{
			SearchProbe:  "probe query",
			AuthEmail:    "probe.agent@example.com",
			AuthPassword: "Probe-Agent-1!",
		},
		Logger: logger,
	}
}
