package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/camarero-ai/dinerbench/pkg/conversation"
)

// ErrorKind is the finite set of issue categories the diagnostics layer
// recognizes. New kinds are a compile-time addition here plus a row in
// kindToComponent and causeTemplates — never a silently-ignored string.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindColumnDoesNotExist
	KindTableDoesNotExist
	KindSQLSyntax
	KindParameterSubstitution
	KindOtherSQLError
	KindPotentialHallucination
	KindMissingNoResultsMessage
	KindEmptyResponse
	KindFallbackResponse
	KindMissingClarification
	KindTurnError
)

var kindNames = map[ErrorKind]string{
	KindUnknown:                 "unknown",
	KindColumnDoesNotExist:      "column_does_not_exist",
	KindTableDoesNotExist:       "table_does_not_exist",
	KindSQLSyntax:               "sql_syntax_error",
	KindParameterSubstitution:   "parameter_substitution_error",
	KindOtherSQLError:           "other_sql_error",
	KindPotentialHallucination:  "potential_hallucination",
	KindMissingNoResultsMessage: "missing_no_results_message",
	KindEmptyResponse:           "empty_response",
	KindFallbackResponse:        "fallback_response",
	KindMissingClarification:    "missing_clarification",
	KindTurnError:               "turn_error",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ServiceComponent names the downstream services that issues are attributed
// to.
type ServiceComponent string

const (
	SQLGenerator          ServiceComponent = "SQLGenerator"
	SQLExecutor           ServiceComponent = "SQLExecutor"
	ResponseGenerator     ServiceComponent = "ResponseGenerator"
	RulesService          ServiceComponent = "RulesService"
	ClassificationService ServiceComponent = "ClassificationService"
)

// kindToComponent attributes every error kind to exactly one component.
var kindToComponent = map[ErrorKind]ServiceComponent{
	KindUnknown:                 SQLExecutor,
	KindColumnDoesNotExist:      SQLGenerator,
	KindTableDoesNotExist:       SQLGenerator,
	KindSQLSyntax:               SQLGenerator,
	KindParameterSubstitution:   SQLGenerator,
	KindOtherSQLError:           SQLExecutor,
	KindPotentialHallucination:  ResponseGenerator,
	KindMissingNoResultsMessage: ResponseGenerator,
	KindEmptyResponse:           ResponseGenerator,
	KindFallbackResponse:        ClassificationService,
	KindMissingClarification:    RulesService,
	KindTurnError:               SQLExecutor,
}

// Service health statuses. The error-count thresholds are fixed policy:
// 0 healthy, 1-2 warning, more than 2 critical.
const (
	HealthHealthy  = "healthy"
	HealthWarning  = "warning"
	HealthCritical = "critical"
)

// IssueCount is one de-duplicated issue type with its occurrence count.
type IssueCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// ServiceHealth summarizes one component's accumulated issues.
type ServiceHealth struct {
	ErrorCount int          `json:"error_count"`
	Status     string       `json:"status"`
	Issues     []IssueCount `json:"issues,omitempty"`
}

// Pattern tallies one error kind across the whole suite.
type Pattern struct {
	Count     int      `json:"count"`
	Scenarios []string `json:"scenarios"`
}

// RootCause is an aggregator-inferred systemic reason behind a cluster of
// failures.
type RootCause struct {
	Cause            string   `json:"cause"`
	Impact           string   `json:"impact"`
	AffectedServices []string `json:"affected_services"`
	Solution         string   `json:"solution"`
}

// DiagnosticsReport is the full diagnostics output.
type DiagnosticsReport struct {
	ServiceDiagnostics      map[ServiceComponent]ServiceHealth `json:"service_diagnostics"`
	ErrorPatterns           map[string]Pattern                 `json:"error_patterns"`
	RootCauses              []RootCause                        `json:"root_causes"`
	HealthAssessment        string                             `json:"health_assessment"`
	PriorityRecommendations []string                           `json:"priority_recommendations"`
}

// issue is one classified problem observed in one scenario.
type issue struct {
	kind     ErrorKind
	scenario string
}

// Diagnostics classifies every issue in the result set, attributes it to a
// service component, and derives root causes and prioritized
// recommendations. Pure and deterministic: same results, same output.
func Diagnostics(results map[string]*conversation.TestResult) DiagnosticsReport {
	var issues []issue
	for _, name := range sortedKeys(results) {
		for _, kind := range classifyResult(results[name]) {
			issues = append(issues, issue{kind: kind, scenario: name})
		}
	}

	rep := DiagnosticsReport{
		ServiceDiagnostics: serviceDiagnostics(issues),
		ErrorPatterns:      errorPatterns(issues),
	}
	rep.RootCauses = rootCauses(rep.ErrorPatterns)
	rep.HealthAssessment = overallHealth(rep.ServiceDiagnostics)
	rep.PriorityRecommendations = recommendations(rep.RootCauses, rep.ServiceDiagnostics)
	return rep
}

// classifyResult extracts every issue kind a single result exhibits.
func classifyResult(res *conversation.TestResult) []ErrorKind {
	var kinds []ErrorKind

	for _, in := range res.Interactions {
		if in.Status == conversation.TurnError {
			if k := classifySQLError(in.Error); k != KindUnknown {
				kinds = append(kinds, k)
			} else {
				kinds = append(kinds, KindTurnError)
			}
		}
		if in.IsFallback {
			kinds = append(kinds, KindFallbackResponse)
		}
	}

	if sv := res.Validation.SQLValidation; sv != nil && !sv.IsValid {
		switch {
		case len(sv.ImportantMissing) > 0:
			kinds = append(kinds, KindPotentialHallucination)
		case strings.Contains(sv.Details, "no indication that query returned no results"):
			kinds = append(kinds, KindMissingNoResultsMessage)
		default:
			kinds = append(kinds, KindPotentialHallucination)
		}
	}

	if res.Ambiguous && !conversation.IsClarification(res.LastResponse()) {
		kinds = append(kinds, KindMissingClarification)
	}
	if res.Status != conversation.StatusBlocked && len(res.Interactions) > 0 && res.LastResponse() == "" {
		kinds = append(kinds, KindEmptyResponse)
	}

	return kinds
}

// classifySQLError maps a raw turn error message onto a SQL error kind.
func classifySQLError(msg string) ErrorKind {
	m := strings.ToLower(msg)
	switch {
	case m == "":
		return KindUnknown
	case strings.Contains(m, "column") && strings.Contains(m, "does not exist"),
		strings.Contains(m, "no such column"),
		strings.Contains(m, "unknown column"):
		return KindColumnDoesNotExist
	case strings.Contains(m, "table") && strings.Contains(m, "does not exist"),
		strings.Contains(m, "no such table"):
		return KindTableDoesNotExist
	case strings.Contains(m, "syntax error"):
		return KindSQLSyntax
	case strings.Contains(m, "parameter"), strings.Contains(m, "placeholder"),
		strings.Contains(m, "%s"), strings.Contains(m, ":param"):
		return KindParameterSubstitution
	case strings.Contains(m, "sql"):
		return KindOtherSQLError
	default:
		return KindUnknown
	}
}

func serviceDiagnostics(issues []issue) map[ServiceComponent]ServiceHealth {
	counts := make(map[ServiceComponent]map[ErrorKind]int)
	for _, comp := range []ServiceComponent{SQLGenerator, SQLExecutor, ResponseGenerator, RulesService, ClassificationService} {
		counts[comp] = make(map[ErrorKind]int)
	}
	for _, is := range issues {
		comp := kindToComponent[is.kind]
		counts[comp][is.kind]++
	}

	out := make(map[ServiceComponent]ServiceHealth, len(counts))
	for comp, kinds := range counts {
		h := ServiceHealth{}
		for kind, n := range kinds {
			h.ErrorCount += n
			h.Issues = append(h.Issues, IssueCount{Type: kind.String(), Count: n})
		}
		sort.Slice(h.Issues, func(i, j int) bool { return h.Issues[i].Type < h.Issues[j].Type })
		h.Status = healthFor(h.ErrorCount)
		out[comp] = h
	}
	return out
}

// healthFor applies the fixed status thresholds.
func healthFor(errorCount int) string {
	switch {
	case errorCount == 0:
		return HealthHealthy
	case errorCount <= 2:
		return HealthWarning
	default:
		return HealthCritical
	}
}

// errorPatterns tallies each kind across scenarios. Kinds with zero
// occurrences are omitted.
func errorPatterns(issues []issue) map[string]Pattern {
	byKind := make(map[ErrorKind]map[string]bool)
	counts := make(map[ErrorKind]int)
	for _, is := range issues {
		if byKind[is.kind] == nil {
			byKind[is.kind] = make(map[string]bool)
		}
		byKind[is.kind][is.scenario] = true
		counts[is.kind]++
	}

	out := make(map[string]Pattern, len(byKind))
	for kind, scenarios := range byKind {
		names := make([]string, 0, len(scenarios))
		for n := range scenarios {
			names = append(names, n)
		}
		sort.Strings(names)
		out[kind.String()] = Pattern{Count: counts[kind], Scenarios: names}
	}
	return out
}

// causeTemplate is the fixed natural-language template for one error kind.
type causeTemplate struct {
	cause    string
	impact   string
	solution string
}

var causeTemplates = map[ErrorKind]causeTemplate{
	KindColumnDoesNotExist: {
		cause:    "incomplete schema information supplied to the SQL generator",
		impact:   "queries reference columns that do not exist",
		solution: "update the schema information provided to the SQL generator",
	},
	KindTableDoesNotExist: {
		cause:    "incomplete schema information supplied to the SQL generator",
		impact:   "queries reference tables that do not exist",
		solution: "update the schema information provided to the SQL generator",
	},
	KindSQLSyntax: {
		cause:    "SQL generator emits malformed statements",
		impact:   "queries fail before execution",
		solution: "tighten the SQL generation templates and add dialect checks",
	},
	KindParameterSubstitution: {
		cause:    "query parameters are not substituted before execution",
		impact:   "queries run with literal placeholders",
		solution: "fix parameter handling in the SQL generation pipeline",
	},
	KindOtherSQLError: {
		cause:    "SQL execution failures not attributable to generation",
		impact:   "queries error at the database",
		solution: "inspect database connectivity and executor error handling",
	},
	KindPotentialHallucination: {
		cause:    "response generator asserts values absent from the SQL results",
		impact:   "users receive fabricated figures — critical, fix immediately",
		solution: "restrict the response generator to SQL-sourced facts",
	},
	KindMissingNoResultsMessage: {
		cause:    "empty result sets are not communicated to the user",
		impact:   "responses imply data that was never returned",
		solution: "add an explicit no-results template to the response generator",
	},
	KindEmptyResponse: {
		cause:    "the pipeline completes without producing any response text",
		impact:   "users receive silence for valid questions",
		solution: "ensure every query path ends in a rendered response",
	},
	KindFallbackResponse: {
		cause:    "queries are not classified into a supported category",
		impact:   "valid questions degrade to fallback answers",
		solution: "broaden classification training data for the affected intents",
	},
	KindMissingClarification: {
		cause:    "ambiguous requests are answered instead of clarified",
		impact:   "the assistant guesses at underspecified requests",
		solution: "strengthen ambiguity detection in the rules service",
	},
	KindTurnError: {
		cause:    "unhandled errors while processing a turn",
		impact:   "scenarios abort mid-conversation",
		solution: "harden query processing error handling",
	},
	KindUnknown: {
		cause:    "unclassified failures",
		impact:   "failures with no recognizable signature",
		solution: "review raw error logs for the affected scenarios",
	},
}

// rootCauses emits one structured cause per observed pattern, in a stable
// order (by descending count, then name).
func rootCauses(patterns map[string]Pattern) []RootCause {
	type entry struct {
		name    string
		pattern Pattern
	}
	entries := make([]entry, 0, len(patterns))
	for name, p := range patterns {
		entries = append(entries, entry{name, p})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].pattern.Count != entries[j].pattern.Count {
			return entries[i].pattern.Count > entries[j].pattern.Count
		}
		return entries[i].name < entries[j].name
	})

	out := make([]RootCause, 0, len(entries))
	for _, e := range entries {
		kind := kindFromName(e.name)
		tmpl := causeTemplates[kind]
		out = append(out, RootCause{
			Cause: tmpl.cause,
			Impact: fmt.Sprintf("%d occurrence(s) across %d scenario(s): %s",
				e.pattern.Count, len(e.pattern.Scenarios), tmpl.impact),
			AffectedServices: []string{string(kindToComponent[kind])},
			Solution:         tmpl.solution,
		})
	}
	return out
}

func kindFromName(name string) ErrorKind {
	for kind, n := range kindNames {
		if n == name {
			return kind
		}
	}
	return KindUnknown
}

// overallHealth is the worst component status.
func overallHealth(services map[ServiceComponent]ServiceHealth) string {
	worst := HealthHealthy
	for _, h := range services {
		switch h.Status {
		case HealthCritical:
			return HealthCritical
		case HealthWarning:
			worst = HealthWarning
		}
	}
	return worst
}

// recommendations merges root-cause solutions with component-level
// remediation, de-duplicated, urgent items first.
func recommendations(causes []RootCause, services map[ServiceComponent]ServiceHealth) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(rec string) {
		if rec != "" && !seen[rec] {
			seen[rec] = true
			out = append(out, rec)
		}
	}

	for _, c := range causes {
		add(c.Solution)
	}

	comps := make([]string, 0, len(services))
	for comp := range services {
		comps = append(comps, string(comp))
	}
	sort.Strings(comps)
	for _, comp := range comps {
		h := services[ServiceComponent(comp)]
		if h.Status == HealthCritical {
			add(fmt.Sprintf("critical: stabilize %s immediately (%d errors)", comp, h.ErrorCount))
		}
	}

	// Urgent recommendations sort first; the sort is stable so ties keep
	// their insertion order.
	sort.SliceStable(out, func(i, j int) bool {
		return urgency(out[i]) > urgency(out[j])
	})
	return out
}

func urgency(rec string) int {
	r := strings.ToLower(rec)
	if strings.Contains(r, "critical") || strings.Contains(r, "immediately") {
		return 1
	}
	return 0
}
