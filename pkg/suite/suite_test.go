package suite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/camarero-ai/dinerbench/pkg/conversation"
	"github.com/camarero-ai/dinerbench/pkg/scenario"
)

// scriptedSUT answers per scenario name, keyed by the opening query.
type scriptedSUT struct {
	responses map[string]*conversation.QueryResult
}

func (s *scriptedSUT) ProcessQuery(ctx context.Context, query string, convCtx map[string]any) (*conversation.QueryResult, error) {
	if res, ok := s.responses[query]; ok {
		return res, nil
	}
	return &conversation.QueryResult{Response: "I'm not sure.", IsFallback: true}, nil
}

func suiteScenario(name, opening, want string) *scenario.Scenario {
	sc := &scenario.Scenario{
		Name:              name,
		Category:          "menu_query",
		Description:       "suite test scenario",
		MaxTurns:          1,
		InitialQueryHints: []string{opening},
		SuccessConditions: []scenario.Condition{{ResponseContains: want}},
	}
	sc.ApplyDefaults()
	return sc
}

func twoScenarioSuite() (map[string]*scenario.Scenario, conversation.SystemUnderTest) {
	scenarios := map[string]*scenario.Scenario{
		"a_passes": suiteScenario("a_passes", "count items", "44 items"),
		"b_fails":  suiteScenario("b_fails", "count orders", "12 orders"),
	}
	sut := &scriptedSUT{responses: map[string]*conversation.QueryResult{
		"count items":  {Response: "You have 44 items."},
		"count orders": {Response: "You have 99 orders."},
	}}
	return scenarios, sut
}

func TestRunTallies(t *testing.T) {
	scenarios, sut := twoScenarioSuite()
	r := &Runner{Conversation: conversation.NewRunner(conversation.Options{})}
	out := r.Run(context.Background(), scenarios, sut)

	if out.Summary.Total != 2 || out.Summary.Passed != 1 || out.Summary.Failed != 1 {
		t.Errorf("summary = %+v", out.Summary)
	}
	if out.RunID == "" {
		t.Error("missing run id")
	}
	if out.Results["a_passes"].Status != conversation.StatusSuccess {
		t.Errorf("a_passes = %q", out.Results["a_passes"].Status)
	}
	if out.Results["b_fails"].Status != conversation.StatusFailed {
		t.Errorf("b_fails = %q", out.Results["b_fails"].Status)
	}
}

func TestRunBlockedTally(t *testing.T) {
	scenarios := map[string]*scenario.Scenario{
		"only": suiteScenario("only", "q", "w"),
	}
	r := &Runner{Conversation: conversation.NewRunner(conversation.Options{})}
	out := r.Run(context.Background(), scenarios, nil)
	if out.Summary.Blocked != 1 {
		t.Errorf("summary = %+v", out.Summary)
	}
}

func TestRunNameOrderAndOnResult(t *testing.T) {
	scenarios, sut := twoScenarioSuite()
	var seen []string
	r := &Runner{
		Conversation: conversation.NewRunner(conversation.Options{}),
		OnResult: func(name string, res *conversation.TestResult) {
			seen = append(seen, name)
		},
	}
	r.Run(context.Background(), scenarios, sut)

	if strings.Join(seen, ",") != "a_passes,b_fails" {
		t.Errorf("execution order = %v", seen)
	}
}

func TestRunFailFast(t *testing.T) {
	scenarios, sut := twoScenarioSuite()
	// make the first scenario (by name order) the failing one
	scenarios["a_passes"].SuccessConditions = []scenario.Condition{{ResponseContains: "never"}}

	r := &Runner{
		Conversation: conversation.NewRunner(conversation.Options{}),
		FailFast:     true,
	}
	out := r.Run(context.Background(), scenarios, sut)
	if out.Summary.Total != 1 {
		t.Errorf("fail-fast ran %d scenarios, want 1", out.Summary.Total)
	}
}

func TestRunPersistsResultsAndManifest(t *testing.T) {
	scenarios, sut := twoScenarioSuite()
	dir := t.TempDir()
	r := &Runner{
		Conversation: conversation.NewRunner(conversation.Options{}),
		ResultsDir:   dir,
	}
	out := r.Run(context.Background(), scenarios, sut)

	for name := range scenarios {
		pattern := filepath.Join(dir, name+"_*.json")
		matches, err := filepath.Glob(pattern)
		if err != nil || len(matches) != 1 {
			t.Errorf("result file for %s: matches=%v err=%v", name, matches, err)
		}
	}

	manifests, _ := filepath.Glob(filepath.Join(dir, "run_*.json"))
	if len(manifests) != 1 {
		t.Fatalf("manifests = %v", manifests)
	}
	if got := LatestManifest(dir); got != manifests[0] {
		t.Errorf("LatestManifest = %q, want %q", got, manifests[0])
	}
	if out.ElapsedSeconds < 0 {
		t.Errorf("elapsed = %f", out.ElapsedSeconds)
	}
}

func TestRunResultFilesSurviveRepeatRuns(t *testing.T) {
	scenarios, sut := twoScenarioSuite()
	dir := t.TempDir()
	r := &Runner{
		Conversation: conversation.NewRunner(conversation.Options{}),
		ResultsDir:   dir,
	}

	// fast replay runs land in the same second; the run id keeps them apart
	first := r.Run(context.Background(), scenarios, sut)
	second := r.Run(context.Background(), scenarios, sut)
	if first.RunID == second.RunID {
		t.Fatal("runs share an id")
	}

	matches, err := filepath.Glob(filepath.Join(dir, "a_passes_*.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Errorf("result files = %v, want one per run", matches)
	}
}

func TestRunAppendsStoreHistory(t *testing.T) {
	store := scenario.NewStore(t.TempDir())
	sc := suiteScenario("a_passes", "count items", "44 items")
	if err := store.Add(sc, true); err != nil {
		t.Fatal(err)
	}

	_, sut := twoScenarioSuite()
	r := &Runner{
		Conversation: conversation.NewRunner(conversation.Options{}),
		Store:        store,
	}
	r.Run(context.Background(), map[string]*scenario.Scenario{"a_passes": sc}, sut)

	got, err := store.Load("a_passes")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.TestHistory) != 1 {
		t.Fatalf("history = %d entries, want 1", len(got.TestHistory))
	}
	entry := got.TestHistory[0]
	if entry.Status != conversation.StatusSuccess || entry.Turns != 1 {
		t.Errorf("entry = %+v", entry)
	}
}

func TestLatestManifestEmptyDir(t *testing.T) {
	if got := LatestManifest(t.TempDir()); got != "" {
		t.Errorf("LatestManifest = %q, want empty", got)
	}
	if got := LatestManifest(filepath.Join(t.TempDir(), "missing")); got != "" {
		t.Errorf("LatestManifest on missing dir = %q", got)
	}
}
