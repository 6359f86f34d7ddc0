package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testScenario(name string) *Scenario {
	return &Scenario{
		Name:        name,
		Category:    "menu_query",
		Description: "asks how many menu items exist",
		Context:     map[string]any{"restaurant": "Testaurant"},
		SuccessConditions: []Condition{
			{ResponseContains: "menu"},
		},
	}
}

func TestStoreAddAndGet(t *testing.T) {
	s := NewStore(t.TempDir())
	sc := testScenario("menu_count")

	if err := s.Add(sc, true); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, ok := s.Get("menu_count")
	if !ok {
		t.Fatal("Get returned false after Add")
	}
	if got.MaxTurns != DefaultMaxTurns {
		t.Errorf("defaults not applied: MaxTurns = %d", got.MaxTurns)
	}
	if got.Priority != PriorityMedium {
		t.Errorf("default priority = %q", got.Priority)
	}

	// persisted as name + .json
	if _, err := os.Stat(filepath.Join(s.Dir, "menu_count.json")); err != nil {
		t.Errorf("scenario file not written: %v", err)
	}
}

func TestStoreAddDuplicate(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Add(testScenario("dup"), false); err != nil {
		t.Fatalf("Add: %v", err)
	}
	err := s.Add(testScenario("dup"), false)
	if !errors.Is(err, ErrScenarioExists) {
		t.Errorf("duplicate Add error = %v, want ErrScenarioExists", err)
	}
}

func TestStoreAddMissingFields(t *testing.T) {
	s := NewStore(t.TempDir())
	err := s.Add(&Scenario{Name: "incomplete"}, false)
	if !errors.Is(err, ErrScenarioInvalid) {
		t.Errorf("Add without category = %v, want ErrScenarioInvalid", err)
	}
}

func TestStoreLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	if err := s.Add(testScenario("roundtrip"), true); err != nil {
		t.Fatalf("Add: %v", err)
	}

	fresh := NewStore(dir)
	got, err := fresh.Load("roundtrip")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Category != "menu_query" || len(got.SuccessConditions) != 1 {
		t.Errorf("loaded scenario differs: %+v", got)
	}
}

func TestStoreResolve(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	for _, name := range []string{"orders_yesterday", "orders_last_week", "menu_count"} {
		if err := s.Add(testScenario(name), true); err != nil {
			t.Fatalf("Add %s: %v", name, err)
		}
	}

	// exact name
	if path, ok := s.Resolve("menu_count"); !ok || filepath.Base(path) != "menu_count.json" {
		t.Errorf("exact resolve failed: %q %v", path, ok)
	}
	// unique prefix
	if path, ok := s.Resolve("menu"); !ok || filepath.Base(path) != "menu_count.json" {
		t.Errorf("prefix resolve failed: %q %v", path, ok)
	}
	// ambiguous prefix
	if _, ok := s.Resolve("orders"); ok {
		t.Error("ambiguous prefix must not resolve")
	}
	// literal path
	literal := filepath.Join(dir, "orders_yesterday.json")
	if path, ok := s.Resolve(literal); !ok || path != literal {
		t.Errorf("literal path resolve failed: %q %v", path, ok)
	}
	// nothing
	if _, ok := s.Resolve("nope"); ok {
		t.Error("unknown name must not resolve")
	}
}

func TestStoreLoadAllSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	if err := s.Add(testScenario("good"), true); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	all, err := NewStore(dir).LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("LoadAll = %d scenarios, want 1 (malformed skipped)", len(all))
	}
}

func TestStoreLoadAllMissingDir(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "does-not-exist"))
	all, err := s.LoadAll()
	if err != nil {
		t.Fatalf("missing dir must not error: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("got %d scenarios from a missing dir", len(all))
	}
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Add(testScenario("upd"), true); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := s.Update("upd", map[string]any{"priority": "high", "max_turns": 7}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := s.Get("upd")
	if got.Priority != PriorityHigh || got.MaxTurns != 7 {
		t.Errorf("update not applied: %+v", got)
	}

	// unknown fields rejected
	if err := s.Update("upd", map[string]any{"no_such_field": true}); !errors.Is(err, ErrScenarioInvalid) {
		t.Errorf("unknown field error = %v, want ErrScenarioInvalid", err)
	}
	// invalid values rejected
	if err := s.Update("upd", map[string]any{"priority": "urgent"}); !errors.Is(err, ErrScenarioInvalid) {
		t.Errorf("bad priority error = %v, want ErrScenarioInvalid", err)
	}
}

func TestStoreDelete(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Add(testScenario("gone"), true); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Delete("gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s.Get("gone"); ok {
		t.Error("scenario still present after Delete")
	}
	if _, err := os.Stat(filepath.Join(s.Dir, "gone.json")); !os.IsNotExist(err) {
		t.Error("scenario file still on disk after Delete")
	}
	if err := s.Delete("gone"); !errors.Is(err, ErrScenarioNotFound) {
		t.Errorf("double delete error = %v, want ErrScenarioNotFound", err)
	}
}

func TestStoreFilter(t *testing.T) {
	s := NewStore(t.TempDir())
	a := testScenario("a")
	a.Category = "menu_query"
	a.Tags = []string{"smoke"}
	b := testScenario("b")
	b.Category = "order_history"
	b.Priority = PriorityHigh
	for _, sc := range []*Scenario{a, b} {
		if err := s.Add(sc, false); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	if got := s.Filter(Filter{Category: "menu_query"}); len(got) != 1 || got[0].Name != "a" {
		t.Errorf("category filter = %v", names(got))
	}
	if got := s.Filter(Filter{Tag: "smoke"}); len(got) != 1 || got[0].Name != "a" {
		t.Errorf("tag filter = %v", names(got))
	}
	if got := s.Filter(Filter{Priority: "high"}); len(got) != 1 || got[0].Name != "b" {
		t.Errorf("priority filter = %v", names(got))
	}
	if got := s.Filter(Filter{}); len(got) != 2 || got[0].Name != "a" {
		t.Errorf("empty filter must match all, sorted: %v", names(got))
	}
}

func names(scs []*Scenario) []string {
	out := make([]string, len(scs))
	for i, sc := range scs {
		out[i] = sc.Name
	}
	return out
}

func TestStoreAddTestResult(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	if err := s.Add(testScenario("hist"), true); err != nil {
		t.Fatalf("Add: %v", err)
	}

	entry := HistoryEntry{Status: "success", ExecutionTime: 1.5, Turns: 3}
	if err := s.AddTestResult("hist", entry); err != nil {
		t.Fatalf("AddTestResult: %v", err)
	}
	if err := s.AddTestResult("hist", HistoryEntry{Status: "failed", Timestamp: time.Now()}); err != nil {
		t.Fatalf("AddTestResult: %v", err)
	}

	// history is append-only and persisted
	got, err := NewStore(dir).Load("hist")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.TestHistory) != 2 {
		t.Fatalf("history length = %d, want 2", len(got.TestHistory))
	}
	if got.TestHistory[0].Timestamp.IsZero() {
		t.Error("zero timestamp should have been filled in")
	}
}

func TestGenerateDefaults(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	n, err := s.GenerateDefaults()
	if err != nil {
		t.Fatalf("GenerateDefaults: %v", err)
	}
	if n == 0 {
		t.Fatal("no defaults generated into an empty store")
	}

	// idempotent: second call on the same directory is a no-op
	n2, err := NewStore(dir).GenerateDefaults()
	if err != nil {
		t.Fatalf("GenerateDefaults (second): %v", err)
	}
	if n2 != 0 {
		t.Errorf("second GenerateDefaults created %d scenarios, want 0", n2)
	}
}

func TestIsAmbiguous(t *testing.T) {
	cases := []struct {
		sc   Scenario
		want bool
	}{
		{Scenario{Ambiguous: true}, true},
		{Scenario{Tags: []string{"Ambiguous"}}, true},
		{Scenario{Category: "ambiguous_requests"}, true},
		{Scenario{Category: "menu_query"}, false},
	}
	for i, c := range cases {
		if got := c.sc.IsAmbiguous(); got != c.want {
			t.Errorf("case %d: IsAmbiguous = %v, want %v", i, got, c.want)
		}
	}
}
