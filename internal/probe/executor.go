// internal/probe/executor.go
package probe

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
)

//go:embed js_scripts/click_native.js
var clickNativeScript string

//go:embed js_scripts/click_dispatch.js
var clickDispatchScript string

// Executor performs clicks with ordered fallback strategies. It never
// returns a Go error: every call produces a tagged outcome so callers can
// tell "not interactable" apart from "interactable but broke".
type Executor struct {
	page             schemas.Page
	validator        *Validator
	stabilityTimeout time.Duration
	logger           *zap.Logger
}

// NewExecutor creates an executor bound to one page.
func NewExecutor(page schemas.Page, validator *Validator, stabilityTimeout time.Duration, logger *zap.Logger) *Executor {
	if stabilityTimeout <= 0 {
		stabilityTimeout = 500 * time.Millisecond
	}
	return &Executor{
		page:             page,
		validator:        validator,
		stabilityTimeout: stabilityTimeout,
		logger:           logger.Named("executor"),
	}
}

// jsClickResult is the shape both embedded click helpers return.
type jsClickResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Click runs the fallback chain: validate, require stability, pointer
// click, native element.click(), synthetic dispatched event.
func (e *Executor) Click(ctx context.Context, selector string) schemas.ClickOutcome {
	log := e.logger.With(zap.String("selector", selector))

	// (a) Validation gate. Failing here is expected non-interactable state,
	// not a bug.
	validation, err := e.validator.Validate(ctx, selector)
	if err != nil {
		return schemas.ClickOutcome{
			Success: false,
			Method:  schemas.ClickMethodValidation,
			Error:   fmt.Sprintf("validation probe failed: %v", err),
		}
	}
	if !validation.Interactable() {
		return schemas.ClickOutcome{
			Success: false,
			Method:  schemas.ClickMethodValidation,
			Error:   describeRejection(validation),
		}
	}

	var attempts []string

	// (b) A moving element can't take a pointer click; try the element's
	// own click method once as a last resort and skip the pointer path.
	if !e.validator.IsStable(ctx, selector, e.stabilityTimeout) {
		log.Debug("Element did not settle; falling back to native click.")
		attempts = append(attempts, "stability: element did not settle")
		if outcome, ok := e.jsClick(ctx, selector, clickNativeScript, schemas.ClickMethodNative, &attempts); ok {
			return outcome
		}
		return e.dispatchFallback(ctx, selector, attempts)
	}

	// (c) Scroll into view and native pointer click.
	if err := e.page.Click(ctx, selector); err == nil {
		return schemas.ClickOutcome{Success: true, Method: schemas.ClickMethodPointer}
	} else {
		log.Debug("Pointer click failed; falling back.", zap.Error(err))
		attempts = append(attempts, fmt.Sprintf("pointer: %v", err))
	}

	// (d) The element's native click method.
	if outcome, ok := e.jsClick(ctx, selector, clickNativeScript, schemas.ClickMethodNative, &attempts); ok {
		return outcome
	}

	// (e) Synthetic bubbling click event.
	return e.dispatchFallback(ctx, selector, attempts)
}

// jsClick executes one of the embedded click helpers and reports whether it
// succeeded. On failure the error text is appended to attempts.
func (e *Executor) jsClick(ctx context.Context, selector, script, method string, attempts *[]string) (schemas.ClickOutcome, bool) {
	var result jsClickResult
	if err := e.page.Evaluate(ctx, injectSelector(script, selector), &result); err != nil {
		*attempts = append(*attempts, fmt.Sprintf("%s: %v", method, err))
		return schemas.ClickOutcome{}, false
	}
	if !result.OK {
		*attempts = append(*attempts, fmt.Sprintf("%s: %s", method, result.Error))
		return schemas.ClickOutcome{}, false
	}
	return schemas.ClickOutcome{Success: true, Method: method}, true
}

// dispatchFallback is the final strategy; when it also fails the outcome
// carries the aggregated error text of every attempt.
func (e *Executor) dispatchFallback(ctx context.Context, selector string, attempts []string) schemas.ClickOutcome {
	if outcome, ok := e.jsClick(ctx, selector, clickDispatchScript, schemas.ClickMethodDispatch, &attempts); ok {
		return outcome
	}
	return schemas.ClickOutcome{
		Success: false,
		Method:  schemas.ClickMethodExhausted,
		Error:   strings.Join(attempts, "; "),
	}
}

func describeRejection(v schemas.Validation) string {
	switch {
	case !v.Exists:
		return "element does not exist"
	case !v.Visible:
		return "element is not visible"
	case !v.Clickable:
		return "element is disabled or ignores pointer events"
	case v.Occluded:
		return "element is covered by another node"
	}
	return "element is not interactable"
}
