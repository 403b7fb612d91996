// internal/reporting/sarif.go
package reporting

import (
	"fmt"
	"io"
	"sort"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/uiprobe-cli/api/schemas"
	"github.com/xkilldash9x/uiprobe-cli/internal/reporting/sarif"
)

// Constants for tool identification in the SARIF report.
const (
	toolName     = "uiprobe"
	toolInfoURI  = "https://github.com/xkilldash9x/uiprobe-cli"
	sarifVersion = "2.1.0"
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
)

// ruleCatalog maps each defect class to its SARIF rule metadata. Rule IDs
// double as bug type names so downstream suppressions stay stable.
var ruleCatalog = map[schemas.BugType]struct {
	Summary string
	Level   sarif.Level
}{
	schemas.BugNoNavigation:         {"A link or button produced no navigation and no visible change when activated.", sarif.LevelWarning},
	schemas.BugNoSearchEffect:       {"Submitting a search query changed nothing on the page.", sarif.LevelWarning},
	schemas.BugNoDropdownEffect:     {"Selecting a dropdown option had no visible effect.", sarif.LevelWarning},
	schemas.BugNoCheckboxEffect:     {"Toggling checkboxes had no visible effect.", sarif.LevelWarning},
	schemas.BugMissingPage:          {"A link led to a missing page.", sarif.LevelError},
	schemas.BugClickError:           {"An interactable element broke when activated.", sarif.LevelError},
	schemas.BugSearchError:          {"A search field broke while being exercised.", sarif.LevelError},
	schemas.BugDropdownError:        {"A dropdown broke while being exercised.", sarif.LevelError},
	schemas.BugCheckboxError:        {"A checkbox broke while being exercised.", sarif.LevelError},
	schemas.BugAuthError:            {"The authentication flow broke while being exercised.", sarif.LevelError},
	schemas.BugIconLinkRedirection:  {"An icon link navigated somewhere other than the destination its icon implies.", sarif.LevelError},
	schemas.BugNoInvalidCredsNotice: {"Signing in with invalid credentials produced no visible rejection.", sarif.LevelWarning},
	schemas.BugNoUIChangeOnSignUp:   {"Activating sign-up changed nothing on the page.", sarif.LevelWarning},
}

// SARIFReporter emits findings as a SARIF 2.1.0 log so code-scanning UIs
// can ingest them. Healthy interactions are omitted; SARIF reports
// problems, not coverage.
type SARIFReporter struct {
	// ToolVersion is stamped into the driver block when set.
	ToolVersion string
}

func (r *SARIFReporter) Write(summary *schemas.RunSummary, out io.Writer) error {
	findings := summary.Findings()

	rules := make([]*sarif.ReportingDescriptor, 0, len(ruleCatalog))
	seen := make(map[schemas.BugType]bool, len(ruleCatalog))
	results := make([]*sarif.Result, 0, len(findings))
	for _, f := range findings {
		meta, known := ruleCatalog[f.BugType]
		if !known {
			meta.Summary = "Unclassified functional defect."
			meta.Level = sarif.LevelWarning
		}
		if !seen[f.BugType] {
			seen[f.BugType] = true
			rules = append(rules, &sarif.ReportingDescriptor{
				ID:               string(f.BugType),
				Name:             pString(string(f.BugType)),
				ShortDescription: &sarif.MultiformatMessageString{Text: pString(meta.Summary)},
			})
		}
		results = append(results, &sarif.Result{
			RuleID:  string(f.BugType),
			Level:   meta.Level,
			Message: &sarif.Message{Text: pString(f.Description)},
			Locations: []*sarif.Location{{
				PhysicalLocation: &sarif.PhysicalLocation{
					ArtifactLocation: &sarif.ArtifactLocation{URI: pString(f.URLBefore)},
				},
				Message: &sarif.Message{Text: pString(f.Selector)},
			}},
		})
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })

	driver := &sarif.ToolComponent{
		Name:           toolName,
		InformationURI: pString(toolInfoURI),
		Rules:          rules,
	}
	if r.ToolVersion != "" {
		driver.Version = pString(r.ToolVersion)
	}
	log := &sarif.Log{
		Version: sarifVersion,
		Schema:  sarifSchema,
		Runs: []*sarif.Run{{
			Tool:    &sarif.Tool{Driver: driver},
			Results: results,
		}},
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(log); err != nil {
		return fmt.Errorf("encoding sarif log failed: %w", err)
	}
	return nil
}

func pString(s string) *string { return &s }
