// cmd/report.go
package cmd

import (
	"fmt"
	"os"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
	"github.com/xkilldash9x/uiprobe-cli/internal/observability"
	"github.com/xkilldash9x/uiprobe-cli/internal/store"
)

// newReportCmd creates the `report` command, which re-renders a completed
// run without re-crawling: from a JSON report file, or from the result
// store by run id.
func newReportCmd() *cobra.Command {
	var (
		fromFile string
		runID    string
	)

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Re-renders a stored run in another format",
		Long: `Report loads a finished run, either from a JSON report file written by
a previous analyze invocation or from the PostgreSQL result store, and
renders it in the configured format.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("report.format", cmd.Flags().Lookup("format")); err != nil {
				return err
			}
			if err := viper.BindPFlag("report.output", cmd.Flags().Lookup("output")); err != nil {
				return err
			}
			if err := viper.BindPFlag("store.url", cmd.Flags().Lookup("store-url")); err != nil {
				return err
			}
			return reloadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := loadRun(cmd, fromFile, runID)
			if err != nil {
				return err
			}
			return writeReport(summary, 0, 1)
		},
	}

	reportCmd.Flags().StringVar(&fromFile, "from-file", "", "JSON report file to re-render")
	reportCmd.Flags().StringVar(&runID, "run-id", "", "run id to load from the result store")
	reportCmd.Flags().String("format", "", "report format: json, junit or sarif")
	reportCmd.Flags().StringP("output", "o", "", "report file path (default: stdout)")
	reportCmd.Flags().String("store-url", "", "PostgreSQL URL of the result store")
	reportCmd.MarkFlagsOneRequired("from-file", "run-id")
	reportCmd.MarkFlagsMutuallyExclusive("from-file", "run-id")
	return reportCmd
}

func loadRun(cmd *cobra.Command, fromFile, runID string) (*schemas.RunSummary, error) {
	if fromFile != "" {
		return loadRunFile(fromFile)
	}

	if cfg.Store.URL == "" {
		return nil, fmt.Errorf("--run-id requires a store URL (flag, config or UIPROBE_STORE_URL)")
	}
	s, err := store.Connect(cmd.Context(), cfg.Store.URL, observability.GetLogger())
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.GetRun(cmd.Context(), runID)
}

func loadRunFile(path string) (*schemas.RunSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run file: %w", err)
	}
	var summary schemas.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("parsing run file %s: %w", path, err)
	}
	if summary.RunID == "" {
		return nil, fmt.Errorf("run file %s does not look like a run report", path)
	}
	return &summary, nil
}
