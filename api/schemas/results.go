// api/schemas/results.go
package schemas

import "time"

// BugType classifies an anomaly detected by a probe. An empty BugType means
// the probe observed the expected behaviour.
type BugType string

const (
	BugNoNavigation         BugType = "NoNavigation"
	BugNoSearchEffect       BugType = "NoSearchEffect"
	BugNoDropdownEffect     BugType = "NoDropdownEffect"
	BugNoCheckboxEffect     BugType = "NoCheckboxEffect"
	BugMissingPage          BugType = "404Error"
	BugClickError           BugType = "ClickError"
	BugSearchError          BugType = "SearchError"
	BugDropdownError        BugType = "DropdownError"
	BugCheckboxError        BugType = "CheckboxError"
	BugAuthError            BugType = "AuthError"
	BugIconLinkRedirection  BugType = "IconLinkRedirectionError"
	BugNoInvalidCredsNotice BugType = "NoInvalidCredentialsMessage"
	BugNoUIChangeOnSignUp   BugType = "NoUIChangeOnSignUp"
)

// ElementType is the coarse category assigned to an element during discovery.
type ElementType string

const (
	ElementButton ElementType = "button"
	ElementLink   ElementType = "link"
	ElementCustom ElementType = "custom"
)

// InteractionResult records one probe against one element. It is created once
// per probe, never mutated afterwards, and appended to the run's ordered
// result list.
type InteractionResult struct {
	Selector       string      `json:"selector"`
	TextContent    string      `json:"textContent"`
	ElementType    ElementType `json:"elementType"`
	Navigated      bool        `json:"navigated"`
	URLBefore      string      `json:"urlBefore"`
	URLAfter       string      `json:"urlAfter"`
	ContentChanged bool        `json:"contentChanged"`
	BugType        BugType     `json:"bugType,omitempty"`
	Description    string      `json:"description,omitempty"`
	IsVisible      bool        `json:"isVisible"`
	WasClicked     bool        `json:"wasClicked"`
}

// IsBug reports whether a heuristic classifier fired for this result.
func (r InteractionResult) IsBug() bool {
	return r.BugType != ""
}

// Label resolves the display label consumers should use for this result.
func (r InteractionResult) Label() string {
	if r.TextContent != "" {
		return r.TextContent
	}
	return r.Selector
}

// ProbeEvent is handed to the progress callback immediately before each
// probe. Callbacks must not block and must not mutate run state.
type ProbeEvent struct {
	Selector    string      `json:"selector"`
	TextContent string      `json:"textContent"`
	ElementType ElementType `json:"elementType"`
}

// ProgressFunc mirrors probe events to an external consumer. It is invoked
// synchronously from the single traversal goroutine.
type ProgressFunc func(ProbeEvent)

// RunSummary is the terminal output of one analysis run.
type RunSummary struct {
	RunID      string              `json:"runId"`
	Target     string              `json:"target"`
	StartedAt  time.Time           `json:"startedAt"`
	FinishedAt time.Time           `json:"finishedAt"`
	PagesSeen  int                 `json:"pagesSeen"`
	Results    []InteractionResult `json:"results"`
}

// Findings filters the ordered result list down to classified bugs.
func (s *RunSummary) Findings() []InteractionResult {
	var out []InteractionResult
	for _, r := range s.Results {
		if r.IsBug() {
			out = append(out, r)
		}
	}
	return out
}
