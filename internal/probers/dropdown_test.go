// internal/probers/dropdown_test.go
package probers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
)

func TestDropdownInertNativeSelectIsClassified(t *testing.T) {
	dom := &siteDOM{
		dropdowns: []dropdownWidget{{
			Selector:    `[data-uiprobe-id="dropdown-0"]`,
			Native:      true,
			OptionCount: 3,
			Label:       "Sort by",
		}},
		snapshots: stableSnapshots(),
	}

	results := NewDropdownProber(newTestDeps(t, dom.page())).Probe(context.Background())
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, schemas.BugNoDropdownEffect, r.BugType)
	assert.True(t, r.WasClicked)
	assert.False(t, r.ContentChanged)
}

// A dropdown wired to an apply control may legitimately stay inert until
// the apply fires; it must not be classified.
func TestDropdownWithApplyControlIsNotClassified(t *testing.T) {
	dom := &siteDOM{
		dropdowns: []dropdownWidget{{
			Selector:      `[data-uiprobe-id="dropdown-0"]`,
			Native:        true,
			OptionCount:   3,
			ApplySelector: `[data-uiprobe-id="dropdown-0-apply"]`,
			Label:         "Sort by",
		}},
		snapshots:  stableSnapshots(),
		validation: interactable(),
		bounds:     &schemas.Rect{X: 1, Y: 1, Width: 30, Height: 15},
	}
	page := dom.page()

	results := NewDropdownProber(newTestDeps(t, page)).Probe(context.Background())
	require.Len(t, results, 1)
	assert.Empty(t, results[0].BugType)
	assert.Contains(t, page.CallLog(), `Click [data-uiprobe-id="dropdown-0-apply"]`)
}

func TestDropdownCustomWidgetOpensThenSelects(t *testing.T) {
	dom := &siteDOM{
		dropdowns: []dropdownWidget{{
			Selector:    `[data-uiprobe-id="dropdown-0"]`,
			Native:      false,
			OptionCount: 4,
			Label:       "Filters",
		}},
		snapshots:  changedSnapshots(),
		validation: interactable(),
		bounds:     &schemas.Rect{X: 1, Y: 1, Width: 30, Height: 15},
	}
	page := dom.page()

	results := NewDropdownProber(newTestDeps(t, page)).Probe(context.Background())
	require.Len(t, results, 1)

	r := results[0]
	assert.Empty(t, r.BugType)
	assert.True(t, r.ContentChanged)
	assert.Contains(t, page.CallLog(), `Click [data-uiprobe-id="dropdown-0"]`)
}

func TestDropdownSelectionFailureIsAnError(t *testing.T) {
	dom := &siteDOM{
		dropdowns: []dropdownWidget{{
			Selector:    `[data-uiprobe-id="dropdown-0"]`,
			Native:      true,
			OptionCount: 2,
			Label:       "Sort by",
		}},
		snapshots: stableSnapshots(),
		selectErr: "no unselected option",
	}

	results := NewDropdownProber(newTestDeps(t, dom.page())).Probe(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, schemas.BugDropdownError, results[0].BugType)
	assert.Contains(t, results[0].Description, "no unselected option")
}

func TestDropdownWithoutOptionsIsSkipped(t *testing.T) {
	dom := &siteDOM{
		dropdowns: []dropdownWidget{{
			Selector:    `[data-uiprobe-id="dropdown-0"]`,
			Native:      false,
			OptionCount: 0,
			Label:       "Empty menu",
		}},
	}

	results := NewDropdownProber(newTestDeps(t, dom.page())).Probe(context.Background())
	assert.Empty(t, results)
}
