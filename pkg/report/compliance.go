// Package report aggregates suite results into compliance and diagnostics
// reports. Aggregation is a pure function of the result set: running it
// twice over the same results yields identical output, and nothing here
// mutates a TestResult.
package report

import (
	"fmt"
	"sort"

	"github.com/camarero-ai/dinerbench/pkg/conversation"
)

// DefaultThreshold is the minimum passing fraction for a compliant run.
const DefaultThreshold = 0.90

// RequirementCheck is one development-plan check evaluated independently of
// the pass-rate threshold.
type RequirementCheck struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Details string `json:"details,omitempty"`
}

// ComplianceReport is the serialized snapshot of a ComplianceTracker.
type ComplianceReport struct {
	IsCompliant       bool               `json:"is_compliant"`
	PassingPercentage float64            `json:"passing_percentage"`
	Threshold         float64            `json:"threshold"`
	TotalTests        int                `json:"total_tests"`
	PassedTests       int                `json:"passed_tests"`
	FailedTests       int                `json:"failed_tests"`
	PassedScenarios   []string           `json:"passed_scenarios,omitempty"`
	FailedScenarios   []string           `json:"failed_scenarios,omitempty"`
	Requirements      []RequirementCheck `json:"requirements"`
}

// ComplianceTracker accumulates per-scenario outcomes. It is an explicit,
// caller-owned value — there is no package-level state. Serialize via
// Snapshot.
type ComplianceTracker struct {
	Threshold float64

	passed []string
	failed []string

	missingSQL           []string
	missingResponse      []string
	missingClarification []string
	sawAmbiguous         bool
}

// NewTracker creates a tracker with the given threshold (<= 0 selects
// DefaultThreshold).
func NewTracker(threshold float64) *ComplianceTracker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &ComplianceTracker{Threshold: threshold}
}

// Update folds one scenario result into the tracker.
func (t *ComplianceTracker) Update(name string, res *conversation.TestResult) {
	if res.Status == conversation.StatusSuccess {
		t.passed = append(t.passed, name)
	} else {
		t.failed = append(t.failed, name)
	}

	if res.Ambiguous {
		t.sawAmbiguous = true
		if !conversation.IsClarification(res.LastResponse()) {
			t.missingClarification = append(t.missingClarification, name)
		}
		return
	}

	if res.FirstSQL() == nil {
		t.missingSQL = append(t.missingSQL, name)
	}
	if res.LastResponse() == "" {
		t.missingResponse = append(t.missingResponse, name)
	}
}

// Snapshot derives the report from the tracker's current state.
func (t *ComplianceTracker) Snapshot() ComplianceReport {
	total := len(t.passed) + len(t.failed)
	pct := 0.0
	if total > 0 {
		pct = float64(len(t.passed)) / float64(total)
	}

	rep := ComplianceReport{
		IsCompliant:       total > 0 && pct >= t.Threshold,
		PassingPercentage: pct,
		Threshold:         t.Threshold,
		TotalTests:        total,
		PassedTests:       len(t.passed),
		FailedTests:       len(t.failed),
		PassedScenarios:   sortedCopy(t.passed),
		FailedScenarios:   sortedCopy(t.failed),
		Requirements: []RequirementCheck{
			check("every_scenario_produced_sql", t.missingSQL,
				"every non-ambiguous scenario recorded a SQL query"),
			check("every_scenario_produced_response", t.missingResponse,
				"every non-ambiguous scenario produced a non-empty response"),
			check("ambiguous_scenarios_request_clarification", t.missingClarification,
				"every ambiguous scenario's response asked for clarification"),
		},
	}
	return rep
}

// Compliance computes a report directly from a result map — a convenience
// around a fresh tracker.
func Compliance(results map[string]*conversation.TestResult, threshold float64) ComplianceReport {
	t := NewTracker(threshold)
	for _, name := range sortedKeys(results) {
		t.Update(name, results[name])
	}
	return t.Snapshot()
}

func check(name string, offenders []string, description string) RequirementCheck {
	c := RequirementCheck{Name: name, Passed: len(offenders) == 0}
	if !c.Passed {
		c.Details = fmt.Sprintf("%s — violated by: %s", description, joinSorted(offenders))
	}
	return c
}

func sortedCopy(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	sort.Strings(out)
	return out
}

func joinSorted(s []string) string {
	sorted := sortedCopy(s)
	out := ""
	for i, v := range sorted {
		if i > 0 {
			out += ", "
		}
		out += v
	}
	return out
}

func sortedKeys(results map[string]*conversation.TestResult) []string {
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
