// internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
	"github.com/xkilldash9x/uiprobe-cli/internal/config"
)

var _ schemas.Page = (*Page)(nil)

// Page implements the driver capability surface on top of a chromedp tab
// context. All methods combine the tab's lifecycle context with the caller's
// context so a run deadline fails in-flight operations without orphaning
// the tab.
type Page struct {
	ctx    context.Context
	cfg    *config.Config
	logger *zap.Logger
}

// NewPage wraps an existing chromedp tab context.
func NewPage(tabCtx context.Context, cfg *config.Config, logger *zap.Logger) *Page {
	return &Page{
		ctx:    tabCtx,
		cfg:    cfg,
		logger: logger.Named("page"),
	}
}

// Navigate loads a URL, waits for the body, settles briefly, and reports the
// main document status when the driver observed it.
func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration) (*schemas.NavigationResult, error) {
	navCtx, cancel := p.operationContext(ctx, timeout)
	defer cancel()

	resp, err := chromedp.RunResponse(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("navigation to %s failed: %w", url, err)
	}

	p.settle(navCtx)

	result := &schemas.NavigationResult{}
	if resp != nil {
		result.Status = int(resp.Status)
		result.StatusKnown = true
	}
	if current, err := p.CurrentURL(ctx); err == nil {
		result.URL = current
	} else {
		result.URL = url
	}
	return result, nil
}

// NavigateBack returns to the previous history entry.
func (p *Page) NavigateBack(ctx context.Context, timeout time.Duration) error {
	navCtx, cancel := p.operationContext(ctx, timeout)
	defer cancel()

	err := chromedp.Run(navCtx,
		chromedp.NavigateBack(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("back navigation failed: %w", err)
	}
	p.settle(navCtx)
	return nil
}

// settle waits the configured post-load period so late DOM mutations land
// before anyone snapshots the page.
func (p *Page) settle(ctx context.Context) {
	if p.cfg.Network.PostLoadWait <= 0 {
		return
	}
	select {
	case <-time.After(p.cfg.Network.PostLoadWait):
	case <-ctx.Done():
	}
}

// CurrentURL reads the page's current location.
func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	opCtx, cancel := p.operationContext(ctx, 10*time.Second)
	defer cancel()

	var url string
	if err := chromedp.Run(opCtx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return url, nil
}

// Title reads the current document title.
func (p *Page) Title(ctx context.Context) (string, error) {
	opCtx, cancel := p.operationContext(ctx, 10*time.Second)
	defer cancel()

	var title string
	if err := chromedp.Run(opCtx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to read title: %w", err)
	}
	return title, nil
}

// Evaluate runs a script and unmarshals its JSON result into out.
func (p *Page) Evaluate(ctx context.Context, script string, out any) error {
	opCtx, cancel := p.operationContext(ctx, 20*time.Second)
	defer cancel()

	if err := chromedp.Run(opCtx, chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	return nil
}

// Frames enumerates the page's frame tree, the main document first.
// Out-of-process iframes appear with their own frame IDs, which double as
// target IDs.
func (p *Page) Frames(ctx context.Context) ([]schemas.FrameInfo, error) {
	opCtx, cancel := p.operationContext(ctx, 10*time.Second)
	defer cancel()

	var tree *cdppage.FrameTree
	err := chromedp.Run(opCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		tree, err = cdppage.GetFrameTree().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read frame tree: %w", err)
	}

	var frames []schemas.FrameInfo
	var walk func(node *cdppage.FrameTree, main bool)
	walk = func(node *cdppage.FrameTree, main bool) {
		if node == nil || node.Frame == nil {
			return
		}
		frames = append(frames, schemas.FrameInfo{
			ID:   string(node.Frame.ID),
			URL:  node.Frame.URL,
			Main: main,
		})
		for _, child := range node.ChildFrames {
			walk(child, false)
		}
	}
	walk(tree, true)
	return frames, nil
}

// EvaluateInFrame runs a script inside a cross-origin frame by attaching to
// the frame's own target.
func (p *Page) EvaluateInFrame(ctx context.Context, frameID, script string, out any) error {
	frameCtx, frameCancel := chromedp.NewContext(p.ctx, chromedp.WithTargetID(target.ID(frameID)))
	defer frameCancel()

	opCtx, opCancel := context.WithTimeout(frameCtx, 20*time.Second)
	stop := context.AfterFunc(ctx, opCancel)
	defer stop()
	defer opCancel()

	if err := chromedp.Run(opCtx, chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("script evaluation in frame %s failed: %w", frameID, err)
	}
	return nil
}

// Click scrolls the element to the viewport center and performs a native
// pointer click with a small input delay.
func (p *Page) Click(ctx context.Context, selector string) error {
	opCtx, cancel := p.operationContext(ctx, 15*time.Second)
	defer cancel()

	err := chromedp.Run(opCtx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Sleep(50*time.Millisecond),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("pointer click on %s failed: %w", selector, err)
	}
	return nil
}

// Type focuses the element and sends real keyboard input.
func (p *Page) Type(ctx context.Context, selector, text string) error {
	opCtx, cancel := p.operationContext(ctx, 20*time.Second)
	defer cancel()

	err := chromedp.Run(opCtx,
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("typing into %s failed: %w", selector, err)
	}
	return nil
}

// Press sends a single named key to the element.
func (p *Page) Press(ctx context.Context, selector, key string) error {
	opCtx, cancel := p.operationContext(ctx, 10*time.Second)
	defer cancel()

	keys := key
	switch key {
	case "Enter":
		keys = kb.Enter
	case "Tab":
		keys = kb.Tab
	case "Escape":
		keys = kb.Escape
	}

	if err := chromedp.Run(opCtx, chromedp.SendKeys(selector, keys, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("key press on %s failed: %w", selector, err)
	}
	return nil
}

// WaitNavigation races a main-frame navigation against the timeout.
// Whichever resolves first wins, so content-only changes aren't mistaken
// for hangs.
func (p *Page) WaitNavigation(ctx context.Context, timeout time.Duration) (*schemas.NavigationResult, bool) {
	listenCtx, cancel := p.operationContext(ctx, timeout)
	defer cancel()

	navigated := make(chan string, 1)
	status := make(chan int, 1)

	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if e.Type == network.ResourceTypeDocument {
				select {
				case status <- int(e.Response.Status):
				default:
				}
			}
		case *cdppage.EventFrameNavigated:
			// Only the main frame counts as a navigation.
			if e.Frame.ParentID == "" {
				select {
				case navigated <- e.Frame.URL:
				default:
				}
			}
		}
	})

	select {
	case url := <-navigated:
		result := &schemas.NavigationResult{URL: url}
		select {
		case s := <-status:
			result.Status = s
			result.StatusKnown = true
		default:
		}
		// Let the new document reach a usable state before callers poke it.
		waitCtx, waitCancel := p.operationContext(ctx, p.cfg.Network.NavigationTimeout)
		defer waitCancel()
		if err := chromedp.Run(waitCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
			p.logger.Debug("Body never became ready after navigation.", zap.Error(err))
		}
		p.settle(waitCtx)
		return result, true
	case <-listenCtx.Done():
		return nil, false
	}
}

// OpenTab opens a URL in a fresh browsing context on the same browser, the
// way a ctrl-click would.
func (p *Page) OpenTab(ctx context.Context, url string) (schemas.Tab, error) {
	tabCtx, tabCancel := chromedp.NewContext(p.ctx)

	navCtx, cancel := context.WithTimeout(tabCtx, p.cfg.Network.NavigationTimeout)
	defer cancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		// The tab exists even if navigation failed; hand it back so the
		// caller's deferred Close still runs.
		p.logger.Debug("Spawned tab navigation failed.", zap.String("url", url), zap.Error(err))
	}

	return &tab{ctx: tabCtx, cancel: tabCancel}, nil
}

// HTML returns the serialized current document.
func (p *Page) HTML(ctx context.Context) (string, error) {
	opCtx, cancel := p.operationContext(ctx, 20*time.Second)
	defer cancel()

	var html string
	if err := chromedp.Run(opCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to serialize document: %w", err)
	}
	return html, nil
}

// operationContext derives a context from the tab's lifecycle context that
// also honors the caller's context and a timeout. Cancelling it aborts the
// chromedp operation without closing the tab.
func (p *Page) operationContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(p.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

// tab is a spawned browsing context.
type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (t *tab) CurrentURL(ctx context.Context) (string, error) {
	opCtx, cancel := context.WithTimeout(t.ctx, 10*time.Second)
	defer cancel()

	var url string
	if err := chromedp.Run(opCtx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read tab location: %w", err)
	}
	return url, nil
}

func (t *tab) Close(ctx context.Context) error {
	err := chromedp.Cancel(t.ctx)
	t.cancel()
	if err != nil {
		return fmt.Errorf("failed to close tab: %w", err)
	}
	return nil
}
