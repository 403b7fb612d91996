// internal/reporting/sarif_test.go
package reporting

import (
	"bytes"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
	"github.com/xkilldash9x/uiprobe-cli/internal/reporting/sarif"
)

func decodeSARIF(t *testing.T, data []byte) *sarif.Log {
	t.Helper()
	var log sarif.Log
	require.NoError(t, json.Unmarshal(data, &log))
	return &log
}

func TestSARIFReportFindings(t *testing.T) {
	r, err := New("sarif")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Write(reportSummary(), &buf))

	log := decodeSARIF(t, buf.Bytes())
	assert.Equal(t, "2.1.0", log.Version)
	require.Len(t, log.Runs, 1)
	run := log.Runs[0]

	require.NotNil(t, run.Tool.Driver)
	assert.Equal(t, "uiprobe", run.Tool.Driver.Name)
	require.Len(t, run.Tool.Driver.Rules, 1)
	assert.Equal(t, string(schemas.BugNoNavigation), run.Tool.Driver.Rules[0].ID)

	// Only the finding appears; the healthy link does not.
	require.Len(t, run.Results, 1)
	result := run.Results[0]
	assert.Equal(t, string(schemas.BugNoNavigation), result.RuleID)
	assert.Equal(t, sarif.LevelWarning, result.Level)
	require.NotNil(t, result.Message.Text)
	assert.Equal(t, "interaction produced neither navigation nor a content change", *result.Message.Text)

	require.Len(t, result.Locations, 1)
	loc := result.Locations[0]
	require.NotNil(t, loc.PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, "https://site.test/", *loc.PhysicalLocation.ArtifactLocation.URI)
	require.NotNil(t, loc.Message.Text)
	assert.Equal(t, `[data-uiprobe-id="button-0"]`, *loc.Message.Text)
}

func TestSARIFReportHealthyRunIsEmpty(t *testing.T) {
	summary := reportSummary()
	summary.Results = summary.Results[:1]

	var buf bytes.Buffer
	require.NoError(t, (&SARIFReporter{ToolVersion: "1.2.3"}).Write(summary, &buf))

	log := decodeSARIF(t, buf.Bytes())
	require.Len(t, log.Runs, 1)
	assert.Empty(t, log.Runs[0].Results)
	assert.Empty(t, log.Runs[0].Tool.Driver.Rules)
	require.NotNil(t, log.Runs[0].Tool.Driver.Version)
	assert.Equal(t, "1.2.3", *log.Runs[0].Tool.Driver.Version)
}

func TestSARIFRuleDeduplication(t *testing.T) {
	summary := reportSummary()
	extra := summary.Results[1]
	extra.Selector = `[data-uiprobe-id="button-1"]`
	summary.Results = append(summary.Results, extra, schemas.InteractionResult{
		Selector:    `[data-uiprobe-id="link-3"]`,
		TextContent: "Docs",
		ElementType: schemas.ElementLink,
		URLBefore:   "https://site.test/",
		URLAfter:    "https://site.test/docs",
		BugType:     schemas.BugMissingPage,
		Description: "destination responded with a missing page",
		WasClicked:  true,
	})

	var buf bytes.Buffer
	require.NoError(t, (&SARIFReporter{}).Write(summary, &buf))

	log := decodeSARIF(t, buf.Bytes())
	run := log.Runs[0]
	assert.Len(t, run.Results, 3)
	require.Len(t, run.Tool.Driver.Rules, 2)
	assert.Equal(t, string(schemas.BugMissingPage), run.Tool.Driver.Rules[0].ID)
	assert.Equal(t, string(schemas.BugNoNavigation), run.Tool.Driver.Rules[1].ID)
}
