// Package scenario defines the conversational test scenario model and the
// JSON file store that persists it. A scenario describes one simulated
// conversation with the assistant under test: the opening utterances,
// scripted follow-ups, success conditions, and validation requirements.
package scenario

import (
	"strings"
	"time"
)

// Priority levels for scenarios.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Defaults applied to fields omitted from a scenario file.
const (
	DefaultMaxTurns            = 5
	DefaultPerformanceTargetMs = 5000
)

// Scenario is a reusable, named test specification for one simulated
// conversation. Name is the unique key within a store; the persisted file is
// named after it.
type Scenario struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Priority    string   `json:"priority,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	// Context seeds the conversation: persona, restaurant context, optional
	// pre-seeded session state. Passed verbatim to the system under test.
	Context map[string]any `json:"context"`

	// InitialQueryHints are candidate opening utterances. The first is used
	// unless RandomHint is set, in which case one is chosen at random.
	InitialQueryHints []string `json:"initial_query_hints,omitempty"`
	RandomHint        bool     `json:"random_hint,omitempty"`

	// FollowUpQueries are scripted follow-ups consumed turn-by-turn before
	// the follow-up generator takes over.
	FollowUpQueries []string `json:"follow_up_queries,omitempty"`

	SuccessConditions  []Condition `json:"success_conditions,omitempty"`
	TerminationPhrases []string    `json:"termination_phrases,omitempty"`

	MaxTurns            int `json:"max_turns,omitempty"`
	PerformanceTargetMs int `json:"performance_target_ms,omitempty"`

	Validation Requirements `json:"validation_requirements,omitempty"`

	// Ambiguous marks a scenario where the correct behavior is to ask for
	// clarification rather than answer. Also implied by an "ambiguous" tag
	// or category.
	Ambiguous bool `json:"ambiguous,omitempty"`

	// TestHistory is an append-only log of past runs.
	TestHistory []HistoryEntry `json:"test_history,omitempty"`
}

// Requirements selects which validators run for a scenario.
type Requirements struct {
	DatabaseValidation bool `json:"database_validation,omitempty"`
	PhraseValidation   bool `json:"phrase_validation,omitempty"`

	// RequiredPhrases holds phrases the final response must contain. Entries
	// are either bare strings or {"phrase": "..."} objects; both forms are
	// accepted for compatibility with hand-written scenario files.
	RequiredPhrases []any `json:"required_phrases,omitempty"`
}

// Condition is one success condition. Exactly one field is set per entry;
// the zero Condition is invalid.
type Condition struct {
	// ResponseContains passes once a response contains the phrase
	// (case-insensitive).
	ResponseContains string `json:"response_contains,omitempty"`
	// ResponseMatches passes once a response matches the regular expression.
	ResponseMatches string `json:"response_matches,omitempty"`
	// ResponseTimeBelow passes when a turn completes in under the given
	// number of seconds.
	ResponseTimeBelow float64 `json:"response_time_below,omitempty"`
	// NoFallbacks passes while no turn has produced a fallback response.
	NoFallbacks bool `json:"no_fallbacks,omitempty"`
	// Expression is an expr-lang predicate over the current turn, e.g.
	// `response_time_ms < 2000 && !is_fallback`.
	Expression string `json:"expression,omitempty"`
}

// HistoryEntry records one past run of a scenario.
type HistoryEntry struct {
	Timestamp        time.Time `json:"timestamp"`
	Status           string    `json:"status"`
	ExecutionTime    float64   `json:"execution_time"`
	Turns            int       `json:"turns"`
	ConditionsMet    int       `json:"conditions_met"`
	ConditionsTotals int       `json:"conditions_total"`
}

// ApplyDefaults back-fills optional fields with their documented defaults.
func (s *Scenario) ApplyDefaults() {
	if s.MaxTurns <= 0 {
		s.MaxTurns = DefaultMaxTurns
	}
	if s.PerformanceTargetMs <= 0 {
		s.PerformanceTargetMs = DefaultPerformanceTargetMs
	}
	if s.Priority == "" {
		s.Priority = PriorityMedium
	}
	if s.Context == nil {
		s.Context = map[string]any{}
	}
}

// IsAmbiguous reports whether the scenario expects a clarification request
// instead of a direct answer.
func (s *Scenario) IsAmbiguous() bool {
	if s.Ambiguous {
		return true
	}
	for _, t := range s.Tags {
		if strings.EqualFold(t, "ambiguous") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(s.Category), "ambiguous")
}

// HasTag reports whether the scenario carries the given tag (case-insensitive).
func (s *Scenario) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Kind returns which condition field is set, for display and validation.
// Returns "" for an empty condition.
func (c Condition) Kind() string {
	switch {
	case c.ResponseContains != "":
		return "response_contains"
	case c.ResponseMatches != "":
		return "response_matches"
	case c.ResponseTimeBelow > 0:
		return "response_time_below"
	case c.NoFallbacks:
		return "no_fallbacks"
	case c.Expression != "":
		return "expression"
	}
	return ""
}

// fieldCount returns how many condition fields are set. Valid conditions set
// exactly one.
func (c Condition) fieldCount() int {
	n := 0
	if c.ResponseContains != "" {
		n++
	}
	if c.ResponseMatches != "" {
		n++
	}
	if c.ResponseTimeBelow > 0 {
		n++
	}
	if c.NoFallbacks {
		n++
	}
	if c.Expression != "" {
		n++
	}
	return n
}
