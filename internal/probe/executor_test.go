package probe

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
	"github.com/xkilldash9x/uiprobe-cli/internal/mocks"
)

// scriptedDOM wires a FakePage whose evaluation answers model one element.
type scriptedDOM struct {
	validation  schemas.Validation
	bounds      *schemas.Rect
	nativeOK    bool
	nativeErr   string
	dispatchOK  bool
	dispatchErr string
}

func (d *scriptedDOM) page() *mocks.FakePage {
	return &mocks.FakePage{
		EvaluateFunc: func(script string, out any) error {
			switch {
			case strings.Contains(script, "occluded"):
				return mocks.WriteJSON(out, d.validation)
			case strings.Contains(script, "getBoundingClientRect"):
				return mocks.WriteJSON(out, d.bounds)
			case strings.Contains(script, "el.click()"):
				return mocks.WriteJSON(out, map[string]any{"ok": d.nativeOK, "error": d.nativeErr})
			case strings.Contains(script, "dispatchEvent"):
				return mocks.WriteJSON(out, map[string]any{"ok": d.dispatchOK, "error": d.dispatchErr})
			}
			return errors.New("unexpected script")
		},
	}
}

func interactable() schemas.Validation {
	return schemas.Validation{Exists: true, Visible: true, Clickable: true, InViewport: true}
}

func newTestExecutor(page schemas.Page) *Executor {
	v := NewValidator(page, zap.NewNop())
	return NewExecutor(page, v, 300*time.Millisecond, zap.NewNop())
}

func TestClickValidationRejection(t *testing.T) {
	dom := &scriptedDOM{validation: schemas.Validation{Exists: true, Visible: false}}
	e := newTestExecutor(dom.page())

	outcome := e.Click(context.Background(), "#hidden")
	assert.False(t, outcome.Success)
	assert.Equal(t, schemas.ClickMethodValidation, outcome.Method)
	assert.Contains(t, outcome.Error, "not visible")
}

func TestClickOccludedElementIsRejected(t *testing.T) {
	val := interactable()
	val.Occluded = true
	dom := &scriptedDOM{validation: val}
	e := newTestExecutor(dom.page())

	outcome := e.Click(context.Background(), "#covered")
	assert.False(t, outcome.Success)
	assert.Equal(t, schemas.ClickMethodValidation, outcome.Method)
}

func TestClickPointerSuccess(t *testing.T) {
	dom := &scriptedDOM{validation: interactable(), bounds: &schemas.Rect{X: 1, Y: 1, Width: 10, Height: 10}}
	page := dom.page()
	e := newTestExecutor(page)

	outcome := e.Click(context.Background(), "#btn")
	require.True(t, outcome.Success)
	assert.Equal(t, schemas.ClickMethodPointer, outcome.Method)
	assert.Contains(t, page.CallLog(), "Click #btn")
}

func TestClickFallsBackToNative(t *testing.T) {
	dom := &scriptedDOM{
		validation: interactable(),
		bounds:     &schemas.Rect{X: 1, Y: 1, Width: 10, Height: 10},
		nativeOK:   true,
	}
	page := dom.page()
	page.ClickFunc = func(string) error { return errors.New("node is detached") }
	e := newTestExecutor(page)

	outcome := e.Click(context.Background(), "#btn")
	require.True(t, outcome.Success)
	assert.Equal(t, schemas.ClickMethodNative, outcome.Method)
}

func TestClickFallsBackToDispatch(t *testing.T) {
	dom := &scriptedDOM{
		validation: interactable(),
		bounds:     &schemas.Rect{X: 1, Y: 1, Width: 10, Height: 10},
		nativeErr:  "handler threw",
		dispatchOK: true,
	}
	page := dom.page()
	page.ClickFunc = func(string) error { return errors.New("node is detached") }
	e := newTestExecutor(page)

	outcome := e.Click(context.Background(), "#btn")
	require.True(t, outcome.Success)
	assert.Equal(t, schemas.ClickMethodDispatch, outcome.Method)
}

func TestClickAllStrategiesExhausted(t *testing.T) {
	dom := &scriptedDOM{
		validation:  interactable(),
		bounds:      &schemas.Rect{X: 1, Y: 1, Width: 10, Height: 10},
		nativeErr:   "handler threw",
		dispatchErr: "event blocked",
	}
	page := dom.page()
	page.ClickFunc = func(string) error { return errors.New("node is detached") }
	e := newTestExecutor(page)

	outcome := e.Click(context.Background(), "#btn")
	assert.False(t, outcome.Success)
	assert.Equal(t, schemas.ClickMethodExhausted, outcome.Method)
	// The aggregated error references every failed strategy.
	assert.Contains(t, outcome.Error, "pointer")
	assert.Contains(t, outcome.Error, "native")
	assert.Contains(t, outcome.Error, "dispatch")
}

func TestClickUnstableElementUsesNativeClick(t *testing.T) {
	// A nil bounds answer means the element vanished mid-poll, so the
	// stability gate fails and the pointer path is skipped.
	dom := &scriptedDOM{validation: interactable(), bounds: nil, nativeOK: true}
	page := dom.page()
	e := newTestExecutor(page)

	outcome := e.Click(context.Background(), "#spinner")
	require.True(t, outcome.Success)
	assert.Equal(t, schemas.ClickMethodNative, outcome.Method)
	assert.NotContains(t, page.CallLog(), "Click #spinner", "pointer click must be skipped for unstable elements")
}

func TestClickNeverReturnsEmptyMethod(t *testing.T) {
	// Even a page that errors on everything yields a tagged outcome.
	page := &mocks.FakePage{
		EvaluateFunc: func(string, any) error { return errors.New("page is gone") },
	}
	e := newTestExecutor(page)

	outcome := e.Click(context.Background(), "#any")
	assert.False(t, outcome.Success)
	assert.NotEmpty(t, outcome.Method)
	assert.NotEmpty(t, outcome.Error)
}
