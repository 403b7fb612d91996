// File: internal/mocks/page.go
package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
)

// FakePage is a scripted implementation of schemas.Page for unit tests.
// Behaviour is injected through the function fields; unset fields fall back
// to simple defaults that keep most tests short. Every call is appended to
// Calls so tests can assert on interaction order.
type FakePage struct {
	mu sync.Mutex

	// Current page state the defaults operate on.
	URL       string
	TitleText string
	HTMLText  string

	NavigateFunc        func(url string) (*schemas.NavigationResult, error)
	NavigateBackFunc    func() error
	EvaluateFunc        func(script string, out any) error
	FramesFunc          func() ([]schemas.FrameInfo, error)
	EvaluateInFrameFunc func(frameID, script string, out any) error
	ClickFunc           func(selector string) error
	TypeFunc            func(selector, text string) error
	PressFunc           func(selector, key string) error
	WaitNavigationFunc  func(timeout time.Duration) (*schemas.NavigationResult, bool)
	OpenTabFunc         func(url string) (schemas.Tab, error)
	HTMLFunc            func() (string, error)

	Calls []string
}

var _ schemas.Page = (*FakePage)(nil)

func (p *FakePage) record(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, fmt.Sprintf(format, args...))
}

// CallLog returns a copy of the recorded calls.
func (p *FakePage) CallLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Calls...)
}

func (p *FakePage) Navigate(_ context.Context, url string, _ time.Duration) (*schemas.NavigationResult, error) {
	p.record("Navigate %s", url)
	if p.NavigateFunc != nil {
		res, err := p.NavigateFunc(url)
		if err == nil && res != nil {
			p.setURL(res.URL)
		}
		return res, err
	}
	p.setURL(url)
	return &schemas.NavigationResult{URL: url, Status: 200, StatusKnown: true}, nil
}

func (p *FakePage) NavigateBack(_ context.Context, _ time.Duration) error {
	p.record("NavigateBack")
	if p.NavigateBackFunc != nil {
		return p.NavigateBackFunc()
	}
	return nil
}

func (p *FakePage) setURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.URL = url
}

func (p *FakePage) CurrentURL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.URL, nil
}

func (p *FakePage) Title(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.TitleText, nil
}

func (p *FakePage) Evaluate(_ context.Context, script string, out any) error {
	p.record("Evaluate")
	if p.EvaluateFunc != nil {
		return p.EvaluateFunc(script, out)
	}
	return fmt.Errorf("FakePage: no EvaluateFunc configured for script: %.60s", script)
}

func (p *FakePage) Frames(context.Context) ([]schemas.FrameInfo, error) {
	p.record("Frames")
	if p.FramesFunc != nil {
		return p.FramesFunc()
	}
	return nil, nil
}

func (p *FakePage) EvaluateInFrame(_ context.Context, frameID, script string, out any) error {
	p.record("EvaluateInFrame %s", frameID)
	if p.EvaluateInFrameFunc != nil {
		return p.EvaluateInFrameFunc(frameID, script, out)
	}
	return fmt.Errorf("FakePage: no EvaluateInFrameFunc configured for frame %s", frameID)
}

func (p *FakePage) Click(_ context.Context, selector string) error {
	p.record("Click %s", selector)
	if p.ClickFunc != nil {
		return p.ClickFunc(selector)
	}
	return nil
}

func (p *FakePage) Type(_ context.Context, selector, text string) error {
	p.record("Type %s %q", selector, text)
	if p.TypeFunc != nil {
		return p.TypeFunc(selector, text)
	}
	return nil
}

func (p *FakePage) Press(_ context.Context, selector, key string) error {
	p.record("Press %s %s", selector, key)
	if p.PressFunc != nil {
		return p.PressFunc(selector, key)
	}
	return nil
}

func (p *FakePage) WaitNavigation(_ context.Context, timeout time.Duration) (*schemas.NavigationResult, bool) {
	p.record("WaitNavigation")
	if p.WaitNavigationFunc != nil {
		res, ok := p.WaitNavigationFunc(timeout)
		if ok && res != nil {
			p.setURL(res.URL)
		}
		return res, ok
	}
	return nil, false
}

func (p *FakePage) OpenTab(_ context.Context, url string) (schemas.Tab, error) {
	p.record("OpenTab %s", url)
	if p.OpenTabFunc != nil {
		return p.OpenTabFunc(url)
	}
	return &FakeTab{URL: url}, nil
}

func (p *FakePage) HTML(context.Context) (string, error) {
	if p.HTMLFunc != nil {
		return p.HTMLFunc()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.HTMLText, nil
}

// FakeTab is a spawned-context stand-in that records whether it was closed.
type FakeTab struct {
	mu     sync.Mutex
	URL    string
	Closed bool
}

var _ schemas.Tab = (*FakeTab)(nil)

func (t *FakeTab) CurrentURL(context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.URL, nil
}

func (t *FakeTab) Close(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Closed = true
	return nil
}

func (t *FakeTab) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Closed
}

// WriteJSON copies v into out through a JSON round trip, mirroring how the
// real driver unmarshals evaluation results.
func WriteJSON(out any, v any) error {
	if out == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
