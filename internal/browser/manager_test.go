package browser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe-cli/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Browser: config.BrowserConfig{
			Headless:       true,
			ViewportWidth:  1366,
			ViewportHeight: 900,
			LaunchAttempts: 3,
		},
	}
}

func TestNewPageRequiresLaunch(t *testing.T) {
	m := NewManager(testConfig(), zap.NewNop())

	_, _, err := m.NewPage(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not launched")
}

func TestShutdownBeforeLaunchIsNoop(t *testing.T) {
	m := NewManager(testConfig(), zap.NewNop())
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestAllocatorOptionsIncludeExecPathAndArgs(t *testing.T) {
	cfg := testConfig()
	cfg.Browser.ExecPath = "/usr/bin/chromium"
	cfg.Browser.Args = []string{"disable-extensions"}
	m := NewManager(cfg, zap.NewNop())

	opts := m.allocatorOptions()
	// Hardened defaults plus headless/sandbox/gpu/shm/first-run/default-check/
	// popup/background flags, window size, exec path and the extra arg.
	assert.Greater(t, len(opts), len(testConfig().Browser.Args)+8)
}

func TestLaunchHonorsCancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewManager(testConfig(), zap.NewNop())
	err := m.Launch(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
