// api/schemas/elements.go
package schemas

import "fmt"

// TaggedElement describes one interactive candidate found by discovery.
// The TagID is only valid for the DOM it was assigned in; any navigation
// (forward or back) invalidates it and discovery must run again.
type TaggedElement struct {
	// TagID is the page-scoped stable identifier, e.g. "button-3".
	TagID string `json:"tagId"`
	// Category is the coarse element class the per-category counter is keyed by.
	Category ElementType `json:"category"`
	// Index is the deterministic per-category counter value.
	Index int `json:"index"`
	// Selector addresses the element through its tag attribute.
	Selector string `json:"selector"`

	TagName   string `json:"tagName"`
	Text      string `json:"text"`
	AriaLabel string `json:"ariaLabel"`
	Title     string `json:"title"`
	Href      string `json:"href"`
	InputType string `json:"inputType"`
	// ClassName and DOMID carry the element's own class and id attributes,
	// IconClass the icon child's class. The tag selector replaces the
	// author's selector, so destination inference reads these instead.
	ClassName string `json:"className"`
	DOMID     string `json:"domId"`
	IconClass string `json:"iconClass"`
	HasIcon   bool   `json:"hasIcon"`
	Visible   bool   `json:"visible"`
	// InFooter marks elements living inside a footer landmark; repeated
	// footer elements are deduplicated across pages by (category, label)
	// instead of by selector.
	InFooter bool `json:"inFooter"`
}

// Label resolves the human label used for skip policies and footer
// deduplication: visible text first, then aria-label/title/type, then the
// raw selector.
func (e TaggedElement) Label() string {
	switch {
	case e.Text != "":
		return e.Text
	case e.AriaLabel != "":
		return e.AriaLabel
	case e.Title != "":
		return e.Title
	case e.InputType != "":
		return e.InputType
	}
	return e.Selector
}

// TagSelector builds the attribute selector for a tag id.
func TagSelector(tagID string) string {
	return fmt.Sprintf(`[data-uiprobe-id=%q]`, tagID)
}

// Validation is the verdict of the stability and validation probe for a
// single selector. Every interaction is gated on it.
type Validation struct {
	Exists     bool `json:"exists"`
	Visible    bool `json:"visible"`
	Clickable  bool `json:"clickable"`
	InViewport bool `json:"inViewport"`
	Occluded   bool `json:"occluded"`
	Bounds     Rect `json:"bounds"`
}

// Interactable reports whether the element passed every gate.
func (v Validation) Interactable() bool {
	return v.Exists && v.Visible && v.Clickable && !v.Occluded
}

// Rect is a bounding box in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ClickOutcome is the structured result of the interaction executor. The
// executor never returns a Go error to its caller; failures are folded into
// the outcome so callers can distinguish "not interactable" from
// "interactable but broke".
type ClickOutcome struct {
	Success bool   `json:"success"`
	Method  string `json:"method"`
	Error   string `json:"error,omitempty"`
}

// Click strategy identifiers, in fallback order.
const (
	ClickMethodValidation = "validation"
	ClickMethodPointer    = "pointer"
	ClickMethodNative     = "native"
	ClickMethodDispatch   = "dispatch"
	ClickMethodExhausted  = "exhausted"
)
