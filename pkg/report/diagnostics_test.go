package report

import (
	"reflect"
	"testing"

	"github.com/camarero-ai/dinerbench/pkg/conversation"
	"github.com/camarero-ai/dinerbench/pkg/validation"
)

func errorResult(msg string) *conversation.TestResult {
	return &conversation.TestResult{
		Status: conversation.StatusError,
		Error:  msg,
		Interactions: []conversation.Interaction{{
			Turn: 1, Query: "q", Response: "Something went wrong, please try again.",
			Status: conversation.TurnError, Error: msg,
		}},
	}
}

func TestDiagnosticsAttributesSQLErrors(t *testing.T) {
	results := map[string]*conversation.TestResult{
		"bad_column_a": errorResult(`column "menu_itmes" does not exist`),
		"bad_column_b": errorResult(`column "pric" does not exist`),
	}

	rep := Diagnostics(results)

	gen := rep.ServiceDiagnostics[SQLGenerator]
	if gen.ErrorCount != 2 || gen.Status != HealthWarning {
		t.Errorf("SQLGenerator = %+v", gen)
	}
	if rep.ServiceDiagnostics[ResponseGenerator].Status != HealthHealthy {
		t.Errorf("ResponseGenerator = %+v", rep.ServiceDiagnostics[ResponseGenerator])
	}

	p, ok := rep.ErrorPatterns["column_does_not_exist"]
	if !ok {
		t.Fatalf("patterns = %v", rep.ErrorPatterns)
	}
	if p.Count != 2 || !reflect.DeepEqual(p.Scenarios, []string{"bad_column_a", "bad_column_b"}) {
		t.Errorf("pattern = %+v", p)
	}
	if len(rep.RootCauses) != 1 {
		t.Fatalf("root causes = %+v", rep.RootCauses)
	}
	if rep.RootCauses[0].AffectedServices[0] != string(SQLGenerator) {
		t.Errorf("cause = %+v", rep.RootCauses[0])
	}
}

func TestDiagnosticsCriticalAtThreeErrors(t *testing.T) {
	results := map[string]*conversation.TestResult{
		"a": errorResult("no such column: price"),
		"b": errorResult("unknown column 'total'"),
		"c": errorResult(`column "x" does not exist`),
	}
	rep := Diagnostics(results)
	if rep.ServiceDiagnostics[SQLGenerator].Status != HealthCritical {
		t.Errorf("status = %q", rep.ServiceDiagnostics[SQLGenerator].Status)
	}
	if rep.HealthAssessment != HealthCritical {
		t.Errorf("assessment = %q", rep.HealthAssessment)
	}
	// critical component remediation surfaces in the recommendations
	found := false
	for _, rec := range rep.PriorityRecommendations {
		if rec == "critical: stabilize SQLGenerator immediately (3 errors)" {
			found = true
		}
	}
	if !found {
		t.Errorf("recommendations = %v", rep.PriorityRecommendations)
	}
}

func TestDiagnosticsHallucinationVsNoResults(t *testing.T) {
	hallucinated := passingResult()
	hallucinated.Status = conversation.StatusFailed
	hallucinated.Validation.SQLValidation = &validation.Outcome{
		IsValid:          false,
		ImportantMissing: []string{"44"},
		Details:          "1 of 1 significant values missing",
	}

	silentEmpty := passingResult()
	silentEmpty.Status = conversation.StatusFailed
	silentEmpty.Validation.SQLValidation = &validation.Outcome{
		IsValid: false,
		Details: "no indication that query returned no results",
	}

	rep := Diagnostics(map[string]*conversation.TestResult{
		"hallucinated": hallucinated,
		"silent_empty": silentEmpty,
	})

	if p := rep.ErrorPatterns["potential_hallucination"]; p.Count != 1 || p.Scenarios[0] != "hallucinated" {
		t.Errorf("hallucination pattern = %+v", p)
	}
	if p := rep.ErrorPatterns["missing_no_results_message"]; p.Count != 1 || p.Scenarios[0] != "silent_empty" {
		t.Errorf("no-results pattern = %+v", p)
	}
	if rep.ServiceDiagnostics[ResponseGenerator].ErrorCount != 2 {
		t.Errorf("ResponseGenerator = %+v", rep.ServiceDiagnostics[ResponseGenerator])
	}
}

func TestDiagnosticsFallbackAndClarification(t *testing.T) {
	fallback := &conversation.TestResult{
		Status: conversation.StatusFailed,
		Interactions: []conversation.Interaction{{
			Turn: 1, Query: "q", Response: "Sorry, I didn't get that.",
			Status: conversation.TurnFallback, IsFallback: true,
		}},
	}
	guessed := &conversation.TestResult{
		Status:    conversation.StatusFailed,
		Ambiguous: true,
		Interactions: []conversation.Interaction{{
			Turn: 1, Query: "update the salad", Response: "Done.",
			Status: conversation.TurnSuccess,
		}},
	}

	rep := Diagnostics(map[string]*conversation.TestResult{
		"fallback": fallback,
		"guessed":  guessed,
	})

	if rep.ServiceDiagnostics[ClassificationService].ErrorCount != 1 {
		t.Errorf("ClassificationService = %+v", rep.ServiceDiagnostics[ClassificationService])
	}
	if rep.ServiceDiagnostics[RulesService].ErrorCount != 1 {
		t.Errorf("RulesService = %+v", rep.ServiceDiagnostics[RulesService])
	}
}

func TestDiagnosticsCleanRun(t *testing.T) {
	rep := Diagnostics(map[string]*conversation.TestResult{"ok": passingResult()})
	if rep.HealthAssessment != HealthHealthy {
		t.Errorf("assessment = %q", rep.HealthAssessment)
	}
	if len(rep.ErrorPatterns) != 0 || len(rep.RootCauses) != 0 {
		t.Errorf("patterns = %v, causes = %v", rep.ErrorPatterns, rep.RootCauses)
	}
}

func TestDiagnosticsDeterministic(t *testing.T) {
	results := map[string]*conversation.TestResult{
		"a": errorResult("syntax error at or near SELECT"),
		"b": errorResult(`table "orders" does not exist`),
		"c": passingResult(),
	}
	first := Diagnostics(results)
	second := Diagnostics(results)
	if !reflect.DeepEqual(first, second) {
		t.Error("same results produced different reports")
	}
}

func TestClassifySQLError(t *testing.T) {
	cases := []struct {
		msg  string
		want ErrorKind
	}{
		{`column "price" does not exist`, KindColumnDoesNotExist},
		{"no such column: total", KindColumnDoesNotExist},
		{"unknown column 'qty' in field list", KindColumnDoesNotExist},
		{`relation table "menu" does not exist`, KindTableDoesNotExist},
		{"no such table: orders", KindTableDoesNotExist},
		{"syntax error at or near FROM", KindSQLSyntax},
		{"parameter $1 was not supplied", KindParameterSubstitution},
		{"query contains literal %s placeholder", KindParameterSubstitution},
		{"sql: connection refused", KindOtherSQLError},
		{"something else entirely", KindUnknown},
		{"", KindUnknown},
	}
	for _, tc := range cases {
		if got := classifySQLError(tc.msg); got != tc.want {
			t.Errorf("classifySQLError(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

func TestHealthFor(t *testing.T) {
	cases := map[int]string{
		0: HealthHealthy,
		1: HealthWarning,
		2: HealthWarning,
		3: HealthCritical,
		9: HealthCritical,
	}
	for count, want := range cases {
		if got := healthFor(count); got != want {
			t.Errorf("healthFor(%d) = %q, want %q", count, got, want)
		}
	}
}
