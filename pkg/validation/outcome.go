// Package validation implements the response validators: the fact validator,
// which checks that a generated natural-language response is grounded in the
// SQL result rows that produced it, and the phrase validator, which checks
// literal phrase containment.
//
// Both validators degrade instead of failing: malformed result shapes,
// missing responses, and ambiguous turns all produce a well-formed Outcome,
// never an error. When a validator cannot judge (ambiguous turn, shapeless
// input) it defaults to pass with an explanatory detail — a deliberate trade
// of false negatives for resilience of the harness itself. Callers that need
// the stricter contract set Validator.Strict, which additionally requires
// every important column's value to surface in the response.
package validation

// Outcome is the immutable result of one validation pass.
type Outcome struct {
	IsValid      bool     `json:"is_valid"`
	MatchedCount int      `json:"matched_count"`
	TotalCount   int      `json:"total_count"`
	Missing      []string `json:"missing,omitempty"`
	Found        []string `json:"found,omitempty"`
	// ImportantMissing lists important-column values absent from the
	// response; populated only by the strict fact validator. These are the
	// signals the diagnostics layer classifies as potential hallucination.
	ImportantMissing []string `json:"important_missing,omitempty"`
	Details          string   `json:"details,omitempty"`
}
