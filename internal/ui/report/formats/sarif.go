package formats

import (
	"encoding/json"
	"fmt"

	"modgraph/internal/engine/graph"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"

	ruleIDUnusedExport  = "MG001"
	ruleIDUnreachable   = "MG002"
	ruleIDUnusedPackage = "MG003"
	ruleIDParseFailure  = "MG004"
)

type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
}

// SARIFData holds the findings exported as SARIF results.
type SARIFData struct {
	UnusedExports  []graph.UnusedExport
	Unreachable    []graph.ModuleID
	UnusedPackages []graph.UnusedDependency
	PackageJSON    string
	ParseFailures  []string
}

// GenerateSARIF builds a SARIF v2.1.0 document. Module URIs are the
// project-relative module ids; absolute paths are made relative to
// projectRoot.
func GenerateSARIF(projectRoot, toolVersion string, data SARIFData) ([]byte, error) {
	results := make([]sarifResult, 0)

	for _, u := range data.UnusedExports {
		loc := moduleLocation(u.ModuleID.Path())
		if u.Export.Span.Line > 0 {
			loc.PhysicalLocation.Region = &sarifRegion{
				StartLine:   u.Export.Span.Line,
				StartColumn: u.Export.Span.Column,
			}
		}
		results = append(results, sarifResult{
			RuleID:    ruleIDUnusedExport,
			Level:     "warning",
			Message:   sarifMessage{Text: fmt.Sprintf("Export %q is never imported", u.Export.Name)},
			Locations: []sarifLocation{loc},
		})
	}

	for _, id := range data.Unreachable {
		results = append(results, sarifResult{
			RuleID:    ruleIDUnreachable,
			Level:     "note",
			Message:   sarifMessage{Text: fmt.Sprintf("Module %s is not imported by any module", id.Path())},
			Locations: []sarifLocation{moduleLocation(id.Path())},
		})
	}

	for _, dep := range data.UnusedPackages {
		result := sarifResult{
			RuleID:  ruleIDUnusedPackage,
			Level:   "warning",
			Message: sarifMessage{Text: fmt.Sprintf("Package %s (%s) is declared in %s but never imported", dep.Package, dep.Version, dep.Type)},
		}
		if data.PackageJSON != "" {
			result.Locations = []sarifLocation{moduleLocation(relPath(projectRoot, data.PackageJSON))}
		}
		results = append(results, result)
	}

	for _, id := range data.ParseFailures {
		results = append(results, sarifResult{
			RuleID:    ruleIDParseFailure,
			Level:     "error",
			Message:   sarifMessage{Text: fmt.Sprintf("Module %s could not be parsed", id)},
			Locations: []sarifLocation{moduleLocation(id)},
		})
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "modgraph",
						Version: nonEmpty(toolVersion, "unknown"),
						Rules:   buildSARIFRules(data),
					},
				},
				Results: results,
			},
		},
	}

	return json.MarshalIndent(report, "", "  ")
}

// buildSARIFRules returns only the rules that are relevant for the given findings.
func buildSARIFRules(data SARIFData) []sarifRule {
	rules := make([]sarifRule, 0, 4)
	if len(data.UnusedExports) > 0 {
		rules = append(rules, sarifRule{
			ID:               ruleIDUnusedExport,
			Name:             "UnusedExport",
			ShortDescription: sarifMessage{Text: "An exported binding is not imported by any module."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "warning"},
		})
	}
	if len(data.Unreachable) > 0 {
		rules = append(rules, sarifRule{
			ID:               ruleIDUnreachable,
			Name:             "UnreachableModule",
			ShortDescription: sarifMessage{Text: "A module without side effects is not imported by any module."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "note"},
		})
	}
	if len(data.UnusedPackages) > 0 {
		rules = append(rules, sarifRule{
			ID:               ruleIDUnusedPackage,
			Name:             "UnusedPackageDependency",
			ShortDescription: sarifMessage{Text: "A package.json dependency is never imported."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "warning"},
		})
	}
	if len(data.ParseFailures) > 0 {
		rules = append(rules, sarifRule{
			ID:               ruleIDParseFailure,
			Name:             "ParseFailure",
			ShortDescription: sarifMessage{Text: "A module failed to parse and was analyzed as empty."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "error"},
		})
	}
	return rules
}

func moduleLocation(uri string) sarifLocation {
	return sarifLocation{
		PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{
				URI:       uri,
				URIBaseID: "%SRCROOT%",
			},
		},
	}
}
