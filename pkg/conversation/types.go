// Package conversation drives one scenario through the system under test:
// it resolves each turn's query, invokes the assistant, records structured
// interactions, evaluates success conditions, and finalizes a TestResult
// with fact and phrase validation outcomes.
package conversation

import (
	"time"

	"github.com/camarero-ai/dinerbench/pkg/validation"
)

// TestResult statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusError   = "error"
	StatusBlocked = "blocked"
)

// Interaction statuses.
const (
	TurnSuccess  = "success"
	TurnError    = "error"
	TurnFallback = "fallback"
)

// Interaction is one conversational turn, immutable once appended.
type Interaction struct {
	Turn         int     `json:"turn"`
	Query        string  `json:"query"`
	Response     string  `json:"response"`
	ResponseTime float64 `json:"response_time"` // seconds
	Status       string  `json:"status"`
	IsFallback   bool    `json:"is_fallback,omitempty"`
	SQLQuery     string  `json:"sql_query,omitempty"`
	SQLResult    any     `json:"sql_result,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// ValidationSet carries the scenario-level validation outcomes. A nil
// outcome means that validation was not required for the scenario.
type ValidationSet struct {
	SQLValidation    *validation.Outcome `json:"sql_validation,omitempty"`
	PhraseValidation *validation.Outcome `json:"phrase_validation,omitempty"`
}

// TestResult is the outcome of running one scenario once. Created by the
// runner, consumed (never mutated) by the suite and the aggregator.
type TestResult struct {
	ScenarioName string `json:"scenario_name"`
	Category     string `json:"category,omitempty"`
	SessionID    string `json:"session_id,omitempty"`

	Status       string        `json:"status"` // success, failed, error, blocked
	Interactions []Interaction `json:"interactions"`
	Validation   ValidationSet `json:"validation"`

	ExecutionTime          float64 `json:"execution_time"` // seconds
	SuccessConditionsMet   int     `json:"success_conditions_met"`
	SuccessConditionsTotal int     `json:"success_conditions_total"`
	PerformanceMet         bool    `json:"performance_met"`
	Ambiguous              bool    `json:"ambiguous,omitempty"`

	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// LastResponse returns the response of the final turn, or "".
func (r *TestResult) LastResponse() string {
	if len(r.Interactions) == 0 {
		return ""
	}
	return r.Interactions[len(r.Interactions)-1].Response
}

// FirstSQL returns the first recorded SQL exchange, or nil. Scenario-level
// SQL validation is run against this exchange only; later turns' SQL is
// recorded on the interactions but not separately re-validated.
func (r *TestResult) FirstSQL() *SQLExchange {
	for _, in := range r.Interactions {
		if in.SQLQuery != "" {
			return &SQLExchange{Query: in.SQLQuery, Result: in.SQLResult}
		}
	}
	return nil
}

// HasFallback reports whether any turn produced a fallback response.
func (r *TestResult) HasFallback() bool {
	for _, in := range r.Interactions {
		if in.IsFallback {
			return true
		}
	}
	return false
}
