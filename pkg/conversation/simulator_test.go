package conversation

import (
	"strings"
	"testing"

	"github.com/camarero-ai/dinerbench/pkg/scenario"
)

func history(n int) []Interaction {
	out := make([]Interaction, n)
	for i := range out {
		out[i] = Interaction{Turn: i + 1, Query: "q", Response: "r", Status: TurnSuccess}
	}
	return out
}

func TestSimulatorProbeSequence(t *testing.T) {
	sim := NewSimulator()
	sc := &scenario.Scenario{Name: "seq", Category: "menu_query"}

	first, err := sim.Next(sc, history(1))
	if err != nil {
		t.Fatal(err)
	}
	second, err := sim.Next(sc, history(2))
	if err != nil {
		t.Fatal(err)
	}
	if first == second || first == "" || second == "" {
		t.Errorf("probes = %q, %q", first, second)
	}

	// two probes in the menu_query set, so the third ask is exhaustion
	third, err := sim.Next(sc, history(3))
	if err != nil {
		t.Fatal(err)
	}
	if third != "" {
		t.Errorf("exhausted simulator returned %q", third)
	}
}

func TestSimulatorScriptedFollowUpsDontConsumeProbes(t *testing.T) {
	sim := NewSimulator()
	sc := &scenario.Scenario{
		Name:            "scripted",
		Category:        "menu_query",
		FollowUpQueries: []string{"scripted one", "scripted two"},
	}

	// three turns already happened: opening + the two scripted follow-ups.
	// The simulator should still be on its first probe.
	got, err := sim.Next(sc, history(3))
	if err != nil {
		t.Fatal(err)
	}
	want, _ := sim.Next(&scenario.Scenario{Category: "menu_query"}, history(1))
	if got != want {
		t.Errorf("probe after scripted follow-ups = %q, want %q", got, want)
	}
}

func TestSimulatorUnknownCategoryFallsBackToDefault(t *testing.T) {
	sim := NewSimulator()
	sc := &scenario.Scenario{Name: "odd", Category: "reservations"}

	got, err := sim.Next(sc, history(1))
	if err != nil {
		t.Fatal(err)
	}
	if got != sim.Templates["default"][0] {
		t.Errorf("got %q, want first default probe", got)
	}
}

func TestSimulatorCategoryCaseInsensitive(t *testing.T) {
	sim := NewSimulator()
	got, err := sim.Next(&scenario.Scenario{Category: "Menu_Query"}, history(1))
	if err != nil {
		t.Fatal(err)
	}
	if got != sim.Templates["menu_query"][0] {
		t.Errorf("got %q", got)
	}
}

func TestSimulatorEmptyHistory(t *testing.T) {
	sim := NewSimulator()
	if _, err := sim.Next(&scenario.Scenario{Category: "menu_query"}, nil); err == nil {
		t.Fatal("expected an error with no history")
	}
}

func TestSimulatorTemplateRendering(t *testing.T) {
	sim := &TemplateSimulator{Templates: map[string][]string{
		"default": {"Anything else{{ if .Restaurant }} about {{ .Restaurant }}{{ end }}?"},
	}}

	withRestaurant := &scenario.Scenario{
		Category: "whatever",
		Context:  map[string]any{"restaurant": "Testaurant"},
	}
	got, err := sim.Next(withRestaurant, history(1))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "about Testaurant") {
		t.Errorf("rendered probe = %q", got)
	}

	without := &scenario.Scenario{Category: "whatever"}
	got, err = sim.Next(without, history(1))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "about") {
		t.Errorf("rendered probe = %q, restaurant clause should be absent", got)
	}
}

func TestSimulatorBadTemplate(t *testing.T) {
	sim := &TemplateSimulator{Templates: map[string][]string{
		"default": {"{{ .Broken"},
	}}
	if _, err := sim.Next(&scenario.Scenario{Category: "x"}, history(1)); err == nil {
		t.Fatal("expected a parse error")
	}
}
