package report

import (
	"strings"
	"testing"

	"github.com/camarero-ai/dinerbench/pkg/conversation"
)

func passingResult() *conversation.TestResult {
	return &conversation.TestResult{
		Status: conversation.StatusSuccess,
		Interactions: []conversation.Interaction{{
			Turn:     1,
			Query:    "how many items?",
			Response: "You have 44 items.",
			SQLQuery: "SELECT COUNT(*) FROM menu_items",
			Status:   conversation.TurnSuccess,
		}},
	}
}

func failingResult() *conversation.TestResult {
	r := passingResult()
	r.Status = conversation.StatusFailed
	return r
}

func TestComplianceThreshold(t *testing.T) {
	results := map[string]*conversation.TestResult{}
	for i := 0; i < 8; i++ {
		results[string(rune('a'+i))] = passingResult()
	}
	results["y"] = failingResult()
	results["z"] = failingResult()

	rep := Compliance(results, 0.90)
	if rep.IsCompliant {
		t.Error("8/10 must not clear a 0.90 threshold")
	}
	if rep.PassingPercentage != 0.8 {
		t.Errorf("passing = %f", rep.PassingPercentage)
	}
	if rep.TotalTests != 10 || rep.PassedTests != 8 || rep.FailedTests != 2 {
		t.Errorf("totals = %d/%d/%d", rep.TotalTests, rep.PassedTests, rep.FailedTests)
	}

	rep = Compliance(results, 0.75)
	if !rep.IsCompliant {
		t.Error("8/10 clears a 0.75 threshold")
	}
}

func TestComplianceEmptyResultsNotCompliant(t *testing.T) {
	rep := Compliance(nil, 0.90)
	if rep.IsCompliant {
		t.Error("an empty run must not be compliant")
	}
	if rep.PassingPercentage != 0 {
		t.Errorf("passing = %f", rep.PassingPercentage)
	}
}

func TestComplianceDefaultThreshold(t *testing.T) {
	tr := NewTracker(0)
	if tr.Threshold != DefaultThreshold {
		t.Errorf("threshold = %f", tr.Threshold)
	}
}

func TestComplianceRequirementOffenders(t *testing.T) {
	noSQL := &conversation.TestResult{
		Status: conversation.StatusFailed,
		Interactions: []conversation.Interaction{{
			Turn: 1, Query: "q", Response: "an answer", Status: conversation.TurnSuccess,
		}},
	}
	results := map[string]*conversation.TestResult{
		"grounded":   passingResult(),
		"ungrounded": noSQL,
	}

	rep := Compliance(results, 0.90)
	var sqlCheck *RequirementCheck
	for i := range rep.Requirements {
		if rep.Requirements[i].Name == "every_scenario_produced_sql" {
			sqlCheck = &rep.Requirements[i]
		}
	}
	if sqlCheck == nil {
		t.Fatal("missing sql requirement check")
	}
	if sqlCheck.Passed {
		t.Error("sql check should fail")
	}
	if !strings.Contains(sqlCheck.Details, "ungrounded") {
		t.Errorf("details = %q", sqlCheck.Details)
	}
}

func TestComplianceAmbiguousClarification(t *testing.T) {
	clarified := &conversation.TestResult{
		Status:    conversation.StatusSuccess,
		Ambiguous: true,
		Interactions: []conversation.Interaction{{
			Turn: 1, Query: "update the salad", Status: conversation.TurnSuccess,
			Response: "Could you clarify which salad you mean?",
		}},
	}
	answered := &conversation.TestResult{
		Status:    conversation.StatusFailed,
		Ambiguous: true,
		Interactions: []conversation.Interaction{{
			Turn: 1, Query: "update the salad", Status: conversation.TurnSuccess,
			Response: "Done, salad updated.",
		}},
	}
	results := map[string]*conversation.TestResult{
		"clarified": clarified,
		"answered":  answered,
	}

	rep := Compliance(results, 0.5)
	for _, req := range rep.Requirements {
		if req.Name != "ambiguous_scenarios_request_clarification" {
			continue
		}
		if req.Passed {
			t.Error("clarification check should fail")
		}
		if !strings.Contains(req.Details, "answered") || strings.Contains(req.Details, "clarified") {
			t.Errorf("details = %q", req.Details)
		}
		return
	}
	t.Fatal("missing clarification requirement check")
}

func TestTrackerMatchesBatchCompliance(t *testing.T) {
	results := map[string]*conversation.TestResult{
		"a": passingResult(),
		"b": failingResult(),
		"c": passingResult(),
	}

	tr := NewTracker(0.90)
	for _, name := range []string{"a", "b", "c"} {
		tr.Update(name, results[name])
	}
	incremental := tr.Snapshot()
	batch := Compliance(results, 0.90)

	if incremental.PassingPercentage != batch.PassingPercentage ||
		incremental.IsCompliant != batch.IsCompliant ||
		incremental.TotalTests != batch.TotalTests {
		t.Errorf("incremental = %+v, batch = %+v", incremental, batch)
	}
	if strings.Join(incremental.FailedScenarios, ",") != strings.Join(batch.FailedScenarios, ",") {
		t.Errorf("failed lists differ: %v vs %v", incremental.FailedScenarios, batch.FailedScenarios)
	}
}
