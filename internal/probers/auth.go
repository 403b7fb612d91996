// internal/probers/auth.go
package probers

import (
	"context"
	_ "embed"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
)

//go:embed js_scripts/auth_detect.js
var authDetectScript string

//go:embed js_scripts/auth_fill.js
var authFillScript string

//go:embed js_scripts/auth_invalid.js
var authInvalidScript string

//go:embed js_scripts/auth_fields.js
var authFieldsScript string

// AuthDetection is the page classification auth_detect.js returns. The
// selectors address controls the script tagged while detecting.
type AuthDetection struct {
	IsAuthPage     bool   `json:"isAuthPage"`
	HasLoginForm   bool   `json:"hasLoginForm"`
	SignInSelector string `json:"signInSelector"`
	SignUpSelector string `json:"signUpSelector"`
	SubmitSelector string `json:"submitSelector"`
}

// fillOutcome is the shape auth_fill.js returns.
type fillOutcome struct {
	Filled int `json:"filled"`
	Frames int `json:"frames"`
}

// AuthProber owns pages that look like authentication surfaces. It signs in
// with canonical throwaway credentials and verifies the page pushes back
// visibly on a failed attempt; when only sign-up is offered it walks the
// registration flow instead. A page handed to this prober gets no generic
// element walk.
type AuthProber struct {
	deps   *Deps
	logger *zap.Logger
}

func NewAuthProber(deps *Deps) *AuthProber {
	return &AuthProber{deps: deps, logger: deps.Logger.Named("auth-prober")}
}

// Detect classifies the current page. Safe to call on any page.
func (p *AuthProber) Detect(ctx context.Context) (AuthDetection, error) {
	var det AuthDetection
	if err := p.deps.Page.Evaluate(ctx, authDetectScript, &det); err != nil {
		return AuthDetection{}, fmt.Errorf("auth detection script failed: %w", err)
	}
	return det, nil
}

// Probe runs the full protocol. nextURL is non-empty when a submission
// apparently succeeded and landed on a new page the caller should recurse
// into.
func (p *AuthProber) Probe(ctx context.Context, det AuthDetection) (results []schemas.InteractionResult, nextURL string) {
	switch {
	case det.HasLoginForm:
		res, next := p.signIn(ctx, det)
		return []schemas.InteractionResult{res}, next

	case det.SignUpSelector != "":
		results = p.signUp(ctx, det)
		// Registration done (or classified); sign-in gets exactly one
		// retry if a login form materialized.
		redet, err := p.Detect(ctx)
		if err == nil && redet.HasLoginForm {
			res, next := p.signIn(ctx, redet)
			return append(results, res), next
		}
		return results, ""

	case det.SignInSelector != "":
		// A sign-in control without a form usually leads to the form.
		res, next := p.followControl(ctx, det.SignInSelector, "sign in")
		return []schemas.InteractionResult{res}, next
	}
	return nil, ""
}

func (p *AuthProber) credentials() (email, password, username string) {
	email = p.deps.Analyzer.AuthEmail
	if email == "" {
		email = "probe.agent@example.com"
	}
	password = p.deps.Analyzer.AuthPassword
	if password == "" {
		password = "Probe-Agent-1!"
	}
	username = email
	if at := strings.IndexByte(email, '@'); at > 0 {
		username = email[:at]
	}
	return email, password, username
}

func (p *AuthProber) fill(ctx context.Context) (fillOutcome, error) {
	email, password, username := p.credentials()
	script := inject(authFillScript, "__EMAIL__", email)
	script = inject(script, "__PASSWORD__", password)
	script = inject(script, "__USERNAME__", username)
	var out fillOutcome
	if err := p.deps.Page.Evaluate(ctx, script, &out); err != nil {
		return out, err
	}
	p.fillCrossOriginFrames(ctx, script, &out)
	return out, nil
}

// fillCrossOriginFrames reaches login fields living in frames the in-page
// script cannot touch. Same-origin frames were already covered through
// contentDocument; cross-origin ones are separate browsing contexts, so the
// fill runs again through each frame's own target. Hosted-auth embeds are
// the usual case.
func (p *AuthProber) fillCrossOriginFrames(ctx context.Context, script string, out *fillOutcome) {
	frames, err := p.deps.Page.Frames(ctx)
	if err != nil {
		p.logger.Debug("frame enumeration failed", zap.Error(err))
		return
	}
	pageURL, _ := p.deps.Page.CurrentURL(ctx)
	for _, fr := range frames {
		if fr.Main || fr.URL == "" || strings.HasPrefix(fr.URL, "about:") || !crossOrigin(pageURL, fr.URL) {
			continue
		}
		var sub fillOutcome
		if err := p.deps.Page.EvaluateInFrame(ctx, fr.ID, script, &sub); err != nil {
			p.logger.Debug("frame fill failed", zap.String("frame", fr.URL), zap.Error(err))
			continue
		}
		out.Filled += sub.Filled
		if sub.Filled > 0 {
			out.Frames++
		}
	}
}

func crossOrigin(pageURL, frameURL string) bool {
	a, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	b, err := url.Parse(frameURL)
	if err != nil {
		return false
	}
	return !strings.EqualFold(a.Scheme, b.Scheme) || !strings.EqualFold(a.Host, b.Host)
}

func (p *AuthProber) signIn(ctx context.Context, det AuthDetection) (schemas.InteractionResult, string) {
	selector := det.SubmitSelector
	if selector == "" {
		selector = `input[type="password"]`
	}
	p.deps.notify(selector, "sign in", schemas.ElementButton)
	log := p.logger.With(zap.String("selector", selector))

	urlBefore, _ := p.deps.Page.CurrentURL(ctx)
	result := schemas.InteractionResult{
		Selector:    selector,
		TextContent: "sign in",
		ElementType: schemas.ElementButton,
		URLBefore:   urlBefore,
		URLAfter:    urlBefore,
		IsVisible:   true,
	}

	filled, err := p.fill(ctx)
	if err != nil || filled.Filled == 0 {
		result.BugType = schemas.BugAuthError
		result.Description = fmt.Sprintf("filling credentials failed: %v (filled %d)", err, filled.Filled)
		return result, ""
	}
	log.Debug("credentials filled", zap.Int("fields", filled.Filled), zap.Int("frames", filled.Frames))

	if det.SubmitSelector != "" {
		outcome := p.deps.Exec.Click(ctx, det.SubmitSelector)
		result.WasClicked = outcome.Success
		if !outcome.Success && outcome.Method != schemas.ClickMethodValidation {
			result.BugType = schemas.BugAuthError
			result.Description = "submitting credentials failed: " + outcome.Error
			return result, ""
		}
	} else {
		if err := p.deps.Page.Press(ctx, selector, "Enter"); err != nil {
			result.BugType = schemas.BugAuthError
			result.Description = "submitting credentials failed: " + err.Error()
			return result, ""
		}
		result.WasClicked = true
	}

	nav, navigated := p.deps.Page.WaitNavigation(ctx, p.deps.Network.PostClickWait)
	if navigated && nav != nil && nav.URL != urlBefore {
		// Apparent success. The caller recurses into the landing page.
		result.Navigated = true
		result.URLAfter = nav.URL
		return result, nav.URL
	}

	// Throwaway credentials should be rejected, and the rejection must be
	// visible. A silent failure is the bug this prober exists to find.
	settle(ctx, p.deps.Network.PostLoadWait)
	var invalid bool
	if err := p.deps.Page.Evaluate(ctx, authInvalidScript, &invalid); err != nil {
		result.BugType = schemas.BugAuthError
		result.Description = "checking for a rejection message failed: " + err.Error()
		return result, ""
	}
	result.ContentChanged = invalid
	if !invalid {
		result.BugType = schemas.BugNoInvalidCredsNotice
		result.Description = "failed sign-in produced no visible rejection message"
	}
	return result, ""
}

func (p *AuthProber) signUp(ctx context.Context, det AuthDetection) []schemas.InteractionResult {
	p.deps.notify(det.SignUpSelector, "sign up", schemas.ElementButton)

	urlBefore, _ := p.deps.Page.CurrentURL(ctx)
	result := schemas.InteractionResult{
		Selector:    det.SignUpSelector,
		TextContent: "sign up",
		ElementType: schemas.ElementButton,
		URLBefore:   urlBefore,
		URLAfter:    urlBefore,
		IsVisible:   true,
	}

	var fieldsBefore []string
	if err := p.deps.Page.Evaluate(ctx, authFieldsScript, &fieldsBefore); err != nil {
		p.logger.Warn("reading form fields failed", zap.Error(err))
	}

	outcome := p.deps.Exec.Click(ctx, det.SignUpSelector)
	result.WasClicked = outcome.Success
	if !outcome.Success {
		if outcome.Method != schemas.ClickMethodValidation {
			result.BugType = schemas.BugAuthError
			result.Description = "sign-up control click failed: " + outcome.Error
		}
		return []schemas.InteractionResult{result}
	}

	nav, navigated := p.deps.Page.WaitNavigation(ctx, p.deps.Network.PostClickWait)
	if navigated && nav != nil {
		result.Navigated = true
		result.URLAfter = nav.URL
	}

	// The registration surface must differ from the sign-in one; at
	// minimum a new field (a username, typically) has to show up.
	var fieldsAfter []string
	if err := p.deps.Page.Evaluate(ctx, authFieldsScript, &fieldsAfter); err != nil {
		p.logger.Warn("reading form fields failed", zap.Error(err))
	}
	if !result.Navigated && strings.Join(fieldsBefore, "\x1f") == strings.Join(fieldsAfter, "\x1f") {
		result.BugType = schemas.BugNoUIChangeOnSignUp
		result.Description = "activating sign-up changed nothing in the form"
		return []schemas.InteractionResult{result}
	}
	result.ContentChanged = true

	if filled, err := p.fill(ctx); err != nil || filled.Filled == 0 {
		result.BugType = schemas.BugAuthError
		result.Description = fmt.Sprintf("filling the registration form failed: %v (filled %d)", err, filled.Filled)
		return []schemas.InteractionResult{result}
	}
	redet, err := p.Detect(ctx)
	if err == nil && redet.SubmitSelector != "" {
		p.deps.Exec.Click(ctx, redet.SubmitSelector)
		p.deps.Page.WaitNavigation(ctx, p.deps.Network.PostClickWait)
	}
	return []schemas.InteractionResult{result}
}

// followControl clicks a navigation-ish control and reports where it led.
func (p *AuthProber) followControl(ctx context.Context, selector, label string) (schemas.InteractionResult, string) {
	p.deps.notify(selector, label, schemas.ElementButton)

	urlBefore, _ := p.deps.Page.CurrentURL(ctx)
	result := schemas.InteractionResult{
		Selector:    selector,
		TextContent: label,
		ElementType: schemas.ElementButton,
		URLBefore:   urlBefore,
		URLAfter:    urlBefore,
		IsVisible:   true,
	}

	outcome := p.deps.Exec.Click(ctx, selector)
	result.WasClicked = outcome.Success
	if !outcome.Success {
		if outcome.Method != schemas.ClickMethodValidation {
			result.BugType = schemas.BugClickError
			result.Description = label + " control click failed: " + outcome.Error
		}
		return result, ""
	}

	nav, navigated := p.deps.Page.WaitNavigation(ctx, p.deps.Network.PostClickWait)
	if navigated && nav != nil && nav.URL != urlBefore {
		result.Navigated = true
		result.URLAfter = nav.URL
		return result, nav.URL
	}
	return result, ""
}
