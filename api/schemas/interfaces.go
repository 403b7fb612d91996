// api/schemas/interfaces.go
package schemas

import (
	"context"
	"time"
)

// NavigationResult reports where a navigation ended up and, when the driver
// observed the main document response, its HTTP status.
type NavigationResult struct {
	URL         string
	Status      int
	StatusKnown bool
}

// FrameInfo identifies one frame of the current page. Cross-origin frames
// live in their own browsing contexts; in-page scripts cannot reach them
// and must go through EvaluateInFrame instead.
type FrameInfo struct {
	ID   string
	URL  string
	Main bool
}

// Page is the capability surface the analysis core requires from the
// headless-browser driver. The driver itself is an opaque collaborator; the
// core never talks CDP directly, which keeps every component above the
// driver testable with a scripted fake.
type Page interface {
	// Navigate loads a URL, waiting for the load policy within timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) (*NavigationResult, error)
	// NavigateBack returns to the previous history entry.
	NavigateBack(ctx context.Context, timeout time.Duration) error
	// CurrentURL reads the page's current location.
	CurrentURL(ctx context.Context) (string, error)
	// Title reads the current document title.
	Title(ctx context.Context) (string, error)
	// Evaluate runs a script against the DOM and unmarshals its JSON result
	// into out. A nil out discards the result.
	Evaluate(ctx context.Context, script string, out any) error
	// Frames enumerates the page's frame tree, the main frame first.
	Frames(ctx context.Context) ([]FrameInfo, error)
	// EvaluateInFrame runs a script inside a frame that lives in its own
	// browsing context, addressed by its FrameInfo.ID.
	EvaluateInFrame(ctx context.Context, frameID, script string, out any) error
	// Click scrolls the element into view and performs a native pointer
	// click with a small input delay.
	Click(ctx context.Context, selector string) error
	// Type focuses the element and sends real keyboard input.
	Type(ctx context.Context, selector, text string) error
	// Press sends a single named key (e.g. "Enter") to the element.
	Press(ctx context.Context, selector, key string) error
	// WaitNavigation blocks until a main-frame navigation completes or the
	// timeout elapses; navigated reports which of the two happened first.
	WaitNavigation(ctx context.Context, timeout time.Duration) (result *NavigationResult, navigated bool)
	// OpenTab opens a URL in a fresh browsing context, as a ctrl-click would.
	OpenTab(ctx context.Context, url string) (Tab, error)
	// HTML returns the serialized current document.
	HTML(ctx context.Context) (string, error)
}

// Tab is a spawned browsing context. Callers must always Close it.
type Tab interface {
	CurrentURL(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}

// BrowserManager owns the browser process lifecycle. Launch must not return
// until the instance passed its health check; Shutdown must tolerate benign
// close-time permission errors and tear down on every exit path.
type BrowserManager interface {
	Launch(ctx context.Context) error
	NewPage(ctx context.Context) (Page, func(), error)
	Shutdown(ctx context.Context) error
}

// ResultStore persists completed run summaries. Implementations must treat
// the summary as immutable.
type ResultStore interface {
	SaveRun(ctx context.Context, summary *RunSummary) error
	GetRun(ctx context.Context, runID string) (*RunSummary, error)
	Close()
}
