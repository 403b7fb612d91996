// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Network  NetworkConfig  `mapstructure:"network" yaml:"network"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer" yaml:"analyzer"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Report   ReportConfig   `mapstructure:"report" yaml:"report"`
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig maps log levels to terminal colors for the console encoder.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls the headless browser process.
type BrowserConfig struct {
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// ExecPath points at a specific Chrome/Chromium binary. Empty lets the
	// driver resolve one from the environment.
	ExecPath string `mapstructure:"exec_path" yaml:"exec_path"`
	// Extra command-line arguments merged with the hardened defaults.
	Args           []string      `mapstructure:"args" yaml:"args"`
	ViewportWidth  int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	LaunchTimeout  time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	// LaunchAttempts is the whole-run retry budget for permission-class
	// launch failures.
	LaunchAttempts int           `mapstructure:"launch_attempts" yaml:"launch_attempts"`
	LaunchBackoff  time.Duration `mapstructure:"launch_backoff" yaml:"launch_backoff"`
}

// NetworkConfig controls navigation and settling behaviour.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// PostClickWait bounds the navigation-vs-timeout race after a probe.
	PostClickWait time.Duration `mapstructure:"post_click_wait" yaml:"post_click_wait"`
	PostLoadWait  time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// AnalyzerConfig controls the crawl-and-probe engine.
type AnalyzerConfig struct {
	// RunTimeout is the coarse process-wide deadline; expiring it closes
	// the browser and fails any in-flight operation.
	RunTimeout time.Duration `mapstructure:"run_timeout" yaml:"run_timeout"`
	// MaxDepth bounds the DFS recursion. Zero means unbounded.
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth"`
	// ProbesPerSecond paces interactions so unattended runs don't hammer
	// the target. Zero disables pacing.
	ProbesPerSecond float64 `mapstructure:"probes_per_second" yaml:"probes_per_second"`
	// StabilityTimeout bounds the bounding-box settling poll per element.
	StabilityTimeout time.Duration `mapstructure:"stability_timeout" yaml:"stability_timeout"`
	// SkipLabels excludes elements by label substring (policy exclusion,
	// not a bug signal). Billing/subscription controls live here.
	SkipLabels []string `mapstructure:"skip_labels" yaml:"skip_labels"`
	// Credentials used by the authentication prober.
	AuthEmail    string `mapstructure:"auth_email" yaml:"auth_email"`
	AuthPassword string `mapstructure:"auth_password" yaml:"auth_password"`
	// SearchProbe is the fixed string typed into discovered search fields.
	SearchProbe string `mapstructure:"search_probe" yaml:"search_probe"`
}

// StoreConfig enables the optional postgres result store.
type StoreConfig struct {
	// URL is a pgx connection string. Empty disables persistence.
	URL string `mapstructure:"url" yaml:"url"`
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	// Output is the report file path; "~" is expanded. Empty writes to stdout.
	Output string `mapstructure:"output" yaml:"output"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "uiprobe-cli")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport_width", 1366)
	v.SetDefault("browser.viewport_height", 900)
	v.SetDefault("browser.launch_timeout", "60s")
	v.SetDefault("browser.launch_attempts", 3)
	v.SetDefault("browser.launch_backoff", "2s")

	v.SetDefault("network.navigation_timeout", "30s")
	v.SetDefault("network.post_click_wait", "3s")
	v.SetDefault("network.post_load_wait", "1500ms")

	v.SetDefault("analyzer.run_timeout", "20m")
	v.SetDefault("analyzer.max_depth", 0)
	v.SetDefault("analyzer.probes_per_second", 2.0)
	v.SetDefault("analyzer.stability_timeout", "500ms")
	v.SetDefault("analyzer.skip_labels", []string{"billing", "subscription", "upgrade plan"})
	v.SetDefault("analyzer.auth_email", "probe.user@example.com")
	v.SetDefault("analyzer.auth_password", "UiProbeTest123!")
	v.SetDefault("analyzer.search_probe", "test query")

	v.SetDefault("report.format", "json")
	v.SetDefault("report.output", "")
}

// Load applies defaults, unmarshals the viper state into a Config, expands
// user paths, and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand ~ in user-supplied paths before anyone tries to open them.
	for _, p := range []*string{&cfg.Report.Output, &cfg.Logger.LogFile, &cfg.Browser.ExecPath} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return nil, fmt.Errorf("could not resolve path %q: %w", *p, err)
		}
		*p = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Browser.LaunchAttempts < 1 {
		return fmt.Errorf("browser.launch_attempts must be at least 1, got %d", c.Browser.LaunchAttempts)
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport must be positive, got %dx%d",
			c.Browser.ViewportWidth, c.Browser.ViewportHeight)
	}
	if c.Network.NavigationTimeout <= 0 {
		return fmt.Errorf("network.navigation_timeout must be positive")
	}
	if c.Analyzer.RunTimeout <= 0 {
		return fmt.Errorf("analyzer.run_timeout must be positive")
	}
	if c.Analyzer.ProbesPerSecond < 0 {
		return fmt.Errorf("analyzer.probes_per_second must not be negative")
	}
	switch c.Report.Format {
	case "json", "junit", "sarif":
	default:
		return fmt.Errorf("unsupported report format: %s", c.Report.Format)
	}
	return nil
}
