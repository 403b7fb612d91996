// cmd/analyze.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
	"github.com/xkilldash9x/uiprobe-cli/internal/browser"
	"github.com/xkilldash9x/uiprobe-cli/internal/crawler"
	"github.com/xkilldash9x/uiprobe-cli/internal/observability"
	"github.com/xkilldash9x/uiprobe-cli/internal/reporting"
	"github.com/xkilldash9x/uiprobe-cli/internal/store"
)

// errFindings signals a clean run that recorded defects, so CI pipelines
// get a non-zero exit without a stack of log noise.
var errFindings = errors.New("functional defects found")

// newAnalyzeCmd creates the `analyze` command.
func newAnalyzeCmd() *cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze [targets...]",
		Short: "Crawls the targets and probes every interactive element",
		Long: `Analyze launches a headless browser per target, walks every reachable
same-origin page depth-first and exercises each interactive element,
classifying dead controls, broken links, misdirected icon links and
silent authentication failures.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Flags override config file and environment through viper.
			if err := viper.BindPFlag("analyzer.max_depth", cmd.Flags().Lookup("depth")); err != nil {
				return err
			}
			if err := viper.BindPFlag("report.format", cmd.Flags().Lookup("format")); err != nil {
				return err
			}
			if err := viper.BindPFlag("report.output", cmd.Flags().Lookup("output")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			if err := viper.BindPFlag("store.url", cmd.Flags().Lookup("store-url")); err != nil {
				return err
			}
			// The root hook loaded config before these binds existed.
			return reloadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), args)
		},
	}

	analyzeCmd.Flags().Int("depth", 0, "maximum crawl depth (0 = unbounded)")
	analyzeCmd.Flags().String("format", "", "report format: json, junit or sarif")
	analyzeCmd.Flags().StringP("output", "o", "", "report file path (default: stdout)")
	analyzeCmd.Flags().Bool("headless", true, "run the browser headless")
	analyzeCmd.Flags().String("store-url", "", "PostgreSQL URL to mirror run results into")
	return analyzeCmd
}

func runAnalyze(ctx context.Context, targets []string) error {
	logger := observability.GetLogger()

	for i := range targets {
		targets[i] = ensureScheme(targets[i])
	}

	// Coarse run deadline: expiring it tears the browsers down and fails
	// any in-flight operation.
	if cfg.Analyzer.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Analyzer.RunTimeout)
		defer cancel()
	}

	logger.Info("starting analysis",
		zap.Strings("targets", targets),
		zap.Int("max_depth", cfg.Analyzer.MaxDepth),
		zap.Duration("run_timeout", cfg.Analyzer.RunTimeout))

	// Independent runs share nothing: each target gets its own browser and
	// its own mutable crawl state.
	var (
		mu        sync.Mutex
		summaries []*schemas.RunSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		g.Go(func() error {
			summary, err := analyzeTarget(gctx, target, logger)
			if summary != nil {
				mu.Lock()
				summaries = append(summaries, summary)
				mu.Unlock()
			}
			return err
		})
	}
	runErr := g.Wait()

	if cfg.Store.URL != "" && len(summaries) > 0 {
		mirrorToStore(context.WithoutCancel(ctx), summaries, logger)
	}

	findings := 0
	for i, summary := range summaries {
		findings += len(summary.Findings())
		if err := writeReport(summary, i, len(summaries)); err != nil {
			return err
		}
	}
	logger.Info("analysis finished",
		zap.Int("runs", len(summaries)), zap.Int("findings", findings))

	if runErr != nil {
		return runErr
	}
	if findings > 0 {
		return fmt.Errorf("%w: %d across %d run(s)", errFindings, findings, len(summaries))
	}
	return nil
}

// analyzeTarget owns one browser lifecycle end to end.
func analyzeTarget(ctx context.Context, target string, logger *zap.Logger) (*schemas.RunSummary, error) {
	log := logger.With(zap.String("target", target))

	manager := browser.NewManager(cfg, log)
	if err := manager.Launch(ctx); err != nil {
		return nil, fmt.Errorf("launching browser for %s: %w", target, err)
	}
	defer func() {
		if err := manager.Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Warn("browser shutdown failed", zap.Error(err))
		}
	}()

	page, cleanup, err := manager.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening page for %s: %w", target, err)
	}
	defer cleanup()

	c := crawler.New(crawler.Options{
		Page:     page,
		Analyzer: cfg.Analyzer,
		Network:  cfg.Network,
		Progress: func(e schemas.ProbeEvent) {
			log.Debug("probe started",
				zap.String("selector", e.Selector),
				zap.String("label", e.TextContent),
				zap.String("type", string(e.ElementType)))
		},
		Logger: log,
	})

	summary, err := c.Run(ctx, target)
	if err != nil && summary != nil &&
		(errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
		// A deadline mid-crawl still yields the results probed so far.
		log.Warn("run ended early", zap.Error(err), zap.Int("results", len(summary.Results)))
		return summary, nil
	}
	return summary, err
}

// mirrorToStore persists completed runs; persistence failures are logged,
// never fatal to a finished analysis.
func mirrorToStore(ctx context.Context, summaries []*schemas.RunSummary, logger *zap.Logger) {
	s, err := store.Connect(ctx, cfg.Store.URL, logger)
	if err != nil {
		logger.Warn("connecting result store failed", zap.Error(err))
		return
	}
	defer s.Close()
	for _, summary := range summaries {
		if err := s.SaveRun(ctx, summary); err != nil {
			logger.Warn("persisting run failed", zap.String("run_id", summary.RunID), zap.Error(err))
		}
	}
}

// writeReport renders one summary to the configured output. With multiple
// targets each run gets its own file, suffixed by run id.
func writeReport(summary *schemas.RunSummary, index, total int) error {
	reporter, err := reporting.New(cfg.Report.Format)
	if err != nil {
		return err
	}
	if sr, ok := reporter.(*reporting.SARIFReporter); ok {
		sr.ToolVersion = Version
	}

	if cfg.Report.Output == "" {
		return reporter.Write(summary, os.Stdout)
	}

	path := cfg.Report.Output
	if total > 1 {
		path = numberedPath(path, summary.RunID)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()
	return reporter.Write(summary, f)
}

func numberedPath(path, runID string) string {
	if dot := strings.LastIndexByte(path, '.'); dot > 0 {
		return path[:dot] + "-" + runID + path[dot:]
	}
	return path + "-" + runID
}

func ensureScheme(target string) string {
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return "https://" + target
	}
	return target
}
