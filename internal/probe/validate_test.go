package probe

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
)

func isValidateScript(script string) bool {
	return strings.Contains(script, "occluded")
}

func isBoundsScript(script string) bool {
	return strings.Contains(script, "getBoundingClientRect") && !isValidateScript(script)
}

func TestValidateReportsInteractableElement(t *testing.T) {
	page := &mocks.FakePage{
		EvaluateFunc: func(script string, out any) error {
			require.True(t, isValidateScript(script))
			require.Contains(t, script, `"#login"`, "selector must be quoted into the script")
			return mocks.WriteJSON(out, schemas.Validation{
				Exists:     true,
				Visible:    true,
				Clickable:  true,
				InViewport: true,
				Bounds:     schemas.Rect{X: 10, Y: 20, Width: 100, Height: 30},
			})
		},
	}

	v := NewValidator(page, zap.NewNop())
	result, err := v.Validate(context.Background(), "#login")
	require.NoError(t, err)
	assert.True(t, result.Interactable())
	assert.Equal(t, 100.0, result.Bounds.Width)
}

func TestValidateMissingElement(t *testing.T) {
	page := &mocks.FakePage{
		EvaluateFunc: func(script string, out any) error {
			return mocks.WriteJSON(out, schemas.Validation{})
		},
	}

	v := NewValidator(page, zap.NewNop())
	result, err := v.Validate(context.Background(), "#ghost")
	require.NoError(t, err)
	assert.False(t, result.Exists)
	assert.False(t, result.Interactable())
}

func TestIsStableSettledElement(t *testing.T) {
	page := &mocks.FakePage{
		EvaluateFunc: func(script string, out any) error {
			require.True(t, isBoundsScript(script))
			return mocks.WriteJSON(out, schemas.Rect{X: 5, Y: 5, Width: 50, Height: 20})
		},
	}

	v := NewValidator(page, zap.NewNop())
	assert.True(t, v.IsStable(context.Background(), "#btn", time.Second))
}

func TestIsStableToleratesSmallJitter(t *testing.T) {
	x := 0.0
	page := &mocks.FakePage{
		EvaluateFunc: func(script string, out any) error {
			x += 1.5 // within the 2px tolerance
			return mocks.WriteJSON(out, schemas.Rect{X: x, Y: 5, Width: 50, Height: 20})
		},
	}

	v := NewValidator(page, zap.NewNop())
	assert.True(t, v.IsStable(context.Background(), "#btn", time.Second))
}

func TestIsStableAnimatingElement(t *testing.T) {
	x := 0.0
	page := &mocks.FakePage{
		EvaluateFunc: func(script string, out any) error {
			x += 30 // still moving every sample
			return mocks.WriteJSON(out, schemas.Rect{X: x, Y: 5, Width: 50, Height: 20})
		},
	}

	v := NewValidator(page, zap.NewNop())
	assert.False(t, v.IsStable(context.Background(), "#btn", time.Second))
}

func TestIsStableDisappearedElement(t *testing.T) {
	page := &mocks.FakePage{
		EvaluateFunc: func(script string, out any) error {
			return mocks.WriteJSON(out, nil)
		},
	}

	v := NewValidator(page, zap.NewNop())
	assert.False(t, v.IsStable(context.Background(), "#btn", time.Second))
}

func TestIsStableTimeout(t *testing.T) {
	v := NewValidator(&mocks.FakePage{
		EvaluateFunc: func(script string, out any) error {
			return mocks.WriteJSON(out, schemas.Rect{})
		},
	}, zap.NewNop())

	// A timeout shorter than one sampling interval cannot settle.
	assert.False(t, v.IsStable(context.Background(), "#btn", time.Nanosecond))
}
