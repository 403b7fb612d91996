// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
	"github.com/xkilldash9x/uiprobe-cli/internal/config"
	"github.com/xkilldash9x/uiprobe-cli/internal/retry"
)

var _ schemas.BrowserManager = (*Manager)(nil)

// Manager handles the browser process lifecycle: hardened launch, a health
// check before anyone trusts the instance, and guaranteed teardown on every
// exit path.
type Manager struct {
	cfg    *config.Config
	logger *zap.Logger

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	probeCtx    context.Context
	probeCancel context.CancelFunc
	launched    bool
}

// NewManager creates a manager. Launch must be called before NewPage.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: logger.Named("browser_manager"),
	}
}

// allocatorOptions assembles the exec allocator flags. The defaults are the
// set needed to keep Chrome alive in containers.
func (m *Manager) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", m.cfg.Browser.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.WindowSize(m.cfg.Browser.ViewportWidth, m.cfg.Browser.ViewportHeight),
	)
	if m.cfg.Browser.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(m.cfg.Browser.ExecPath))
	}
	for _, arg := range m.cfg.Browser.Args {
		opts = append(opts, chromedp.Flag(arg, true))
	}
	return opts
}

// Launch starts the browser process and verifies it is responsive. The
// whole-run retry budget applies here: permission-class failures back off
// and retry, anything else aborts immediately.
func (m *Manager) Launch(ctx context.Context) error {
	policy := retry.Policy{
		MaxAttempts: m.cfg.Browser.LaunchAttempts,
		Backoff:     m.cfg.Browser.LaunchBackoff,
		Retryable:   retry.IsPermissionError,
	}

	attempt := 0
	err := policy.Do(ctx, func(ctx context.Context) error {
		attempt++
		m.logger.Info("Launching browser.", zap.Int("attempt", attempt))
		if err := m.launchOnce(ctx); err != nil {
			m.logger.Warn("Browser launch attempt failed.", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("browser launch failed after %d attempt(s): %w", attempt, err)
	}

	m.logger.Info("Browser launched and healthy.")
	return nil
}

func (m *Manager) launchOnce(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.launched {
		return nil
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, m.allocatorOptions()...)

	// The probe tab doubles as the keep-alive context: the browser process
	// exits when its last tab context is cancelled.
	probeCtx, probeCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	if err := m.healthCheck(probeCtx); err != nil {
		probeCancel()
		allocCancel()
		return err
	}

	m.allocCtx = allocCtx
	m.allocCancel = allocCancel
	m.probeCtx = probeCtx
	m.probeCancel = probeCancel
	m.launched = true
	return nil
}

// healthCheck opens a page and requires it to answer a trivial evaluation
// before the run proceeds.
func (m *Manager) healthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, m.cfg.Browser.LaunchTimeout)
	defer cancel()

	var got int
	err := chromedp.Run(checkCtx,
		chromedp.Navigate("about:blank"),
		chromedp.Evaluate("1 + 1", &got),
	)
	if err != nil {
		return fmt.Errorf("browser health check failed: %w", err)
	}
	if got != 2 {
		return fmt.Errorf("browser health check returned unexpected result: %d", got)
	}
	return nil
}

// NewPage opens a fresh tab for one analysis run. The returned cleanup
// closes the tab and is safe to call on every exit path.
func (m *Manager) NewPage(ctx context.Context) (schemas.Page, func(), error) {
	m.mu.Lock()
	launched := m.launched
	allocCtx := m.allocCtx
	m.mu.Unlock()

	if !launched {
		return nil, nil, fmt.Errorf("browser manager not launched")
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Materialize the tab now so failures surface here, not mid-run.
	startCtx, cancel := context.WithTimeout(tabCtx, m.cfg.Browser.LaunchTimeout)
	defer cancel()
	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		tabCancel()
		return nil, nil, fmt.Errorf("failed to open page: %w", err)
	}

	page := NewPage(tabCtx, m.cfg, m.logger)
	cleanup := func() {
		if err := chromedp.Cancel(tabCtx); err != nil && !retry.IsPermissionError(err) {
			m.logger.Warn("Error closing page.", zap.Error(err))
		}
		tabCancel()
	}
	return page, cleanup, nil
}

// Shutdown tears the browser down. Benign close-time permission errors are
// tolerated; anything else is returned.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.launched {
		return nil
	}
	m.launched = false
	m.logger.Info("Shutting down browser.")

	var shutdownErr error
	if m.probeCtx != nil {
		if err := chromedp.Cancel(m.probeCtx); err != nil {
			if retry.IsPermissionError(err) {
				m.logger.Debug("Ignoring permission error during browser close.", zap.Error(err))
			} else {
				shutdownErr = fmt.Errorf("failed to close browser: %w", err)
			}
		}
	}
	if m.probeCancel != nil {
		m.probeCancel()
	}
	if m.allocCancel != nil {
		m.allocCancel()
	}

	// Give the process a moment to exit before the caller moves on.
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
	}

	return shutdownErr
}
