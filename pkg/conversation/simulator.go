package conversation

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/camarero-ai/dinerbench/pkg/scenario"
)

// FollowUpGenerator produces the next user utterance once a scenario's
// scripted follow-ups are exhausted. Returning an empty string ends the
// conversation; it is not retried.
type FollowUpGenerator interface {
	Next(sc *scenario.Scenario, history []Interaction) (string, error)
}

// TemplateSimulator is the production follow-up generator: a fixed probe
// list per category, rendered through Go templates against the scenario
// context and the last response. Deterministic — the same scenario and
// history always produce the same follow-up.
type TemplateSimulator struct {
	Templates map[string][]string
}

// NewSimulator returns a simulator seeded with the built-in probe sets.
func NewSimulator() *TemplateSimulator {
	return &TemplateSimulator{Templates: map[string][]string{
		"menu_query": {
			"Which of those are currently available?",
			"What categories do they fall under?",
		},
		"menu_update": {
			"Can you confirm that change took effect?",
		},
		"order_history": {
			"How does that compare to the week before?",
			"Which location had the most?",
		},
		"multi_turn": {
			"Tell me more about that.",
			"Anything unusual I should know about?",
		},
		"edge_cases": {
			"Are you sure? Please double-check.",
		},
		"default": {
			"Can you give me more detail on that?",
			"Thanks — anything else worth noting{{ if .Restaurant }} about {{ .Restaurant }}{{ end }}?",
		},
	}}
}

// Next picks the probe for the current position in the conversation. The
// probe index counts only generated follow-ups, so scripted follow-ups do
// not consume probes. An exhausted probe list yields "".
func (t *TemplateSimulator) Next(sc *scenario.Scenario, history []Interaction) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("no conversation history to follow up on")
	}

	probes, ok := t.Templates[strings.ToLower(sc.Category)]
	if !ok {
		probes = t.Templates["default"]
	}

	idx := len(history) - 1 - len(sc.FollowUpQueries)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(probes) {
		return "", nil
	}

	return renderProbe(probes[idx], sc, history[len(history)-1])
}

// renderProbe resolves template placeholders in a probe string.
func renderProbe(probe string, sc *scenario.Scenario, last Interaction) (string, error) {
	if !strings.Contains(probe, "{{") {
		return probe, nil // fast path for literals
	}

	data := map[string]any{
		"Category":     sc.Category,
		"Context":      sc.Context,
		"LastResponse": last.Response,
		"Turn":         last.Turn,
		"Restaurant":   "",
	}
	if r, ok := sc.Context["restaurant"].(string); ok {
		data["Restaurant"] = r
	}

	tmpl, err := template.New("").Funcs(probeFuncs()).Parse(probe)
	if err != nil {
		return "", fmt.Errorf("parse follow-up template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render follow-up: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func probeFuncs() template.FuncMap {
	return template.FuncMap{
		"lower":     strings.ToLower,
		"contains":  strings.Contains,
		"hasPrefix": strings.HasPrefix,
		"hasSuffix": strings.HasSuffix,
	}
}
