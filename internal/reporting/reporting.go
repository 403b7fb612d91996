// internal/reporting/reporting.go

// Package reporting renders run summaries for consumers: pretty JSON for
// machines and archives, JUnit XML so CI systems can surface findings as
// test failures, and SARIF for code-scanning UIs.
package reporting

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/beevik/etree"
	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
)

// Reporter renders one run summary to a writer.
type Reporter interface {
	Write(summary *schemas.RunSummary, out io.Writer) error
}

// New returns the reporter for a format name.
func New(format string) (Reporter, error) {
	switch format {
	case "json":
		return &JSONReporter{}, nil
	case "junit":
		return &JUnitReporter{}, nil
	case "sarif":
		return &SARIFReporter{}, nil
	}
	return nil, fmt.Errorf("unknown report format %q (want json, junit or sarif)", format)
}

// JSONReporter emits the summary as indented JSON.
type JSONReporter struct{}

func (r *JSONReporter) Write(summary *schemas.RunSummary, out io.Writer) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling summary failed: %w", err)
	}
	if _, err := out.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing report failed: %w", err)
	}
	return nil
}

// JUnitReporter emits one testsuite per run: every probed element is a
// testcase, every finding a failure. CI pipelines fail the build on
// findings without knowing anything about this tool.
type JUnitReporter struct{}

func (r *JUnitReporter) Write(summary *schemas.RunSummary, out io.Writer) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	suite := doc.CreateElement("testsuite")
	suite.CreateAttr("name", "uiprobe "+summary.Target)
	suite.CreateAttr("tests", strconv.Itoa(len(summary.Results)))
	suite.CreateAttr("failures", strconv.Itoa(len(summary.Findings())))
	suite.CreateAttr("timestamp", summary.StartedAt.UTC().Format(time.RFC3339))
	suite.CreateAttr("time", fmt.Sprintf("%.3f", summary.FinishedAt.Sub(summary.StartedAt).Seconds()))

	props := suite.CreateElement("properties")
	addProperty(props, "runId", summary.RunID)
	addProperty(props, "pagesSeen", strconv.Itoa(summary.PagesSeen))

	for _, result := range summary.Results {
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("name", result.Label())
		tc.CreateAttr("classname", result.URLBefore)
		if result.IsBug() {
			failure := tc.CreateElement("failure")
			failure.CreateAttr("type", string(result.BugType))
			failure.CreateAttr("message", result.Description)
			failure.SetText(fmt.Sprintf("selector: %s\nurl before: %s\nurl after: %s",
				result.Selector, result.URLBefore, result.URLAfter))
		}
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(out); err != nil {
		return fmt.Errorf("writing report failed: %w", err)
	}
	return nil
}

func addProperty(parent *etree.Element, name, value string) {
	prop := parent.CreateElement("property")
	prop.CreateAttr("name", name)
	prop.CreateAttr("value", value)
}
