package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/camarero-ai/dinerbench/pkg/conversation"
)

func TestProcessQueryExactMatch(t *testing.T) {
	s := New([]Exchange{
		{Query: "How many menu items do we have?", Response: "44 items."},
		{Query: "Which are available?", Response: "All of them."},
	})

	// whitespace and case differences must not break the match
	res, err := s.ProcessQuery(context.Background(), "  how MANY menu   items do we have? ", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Response != "44 items." {
		t.Errorf("response = %q", res.Response)
	}

	// a matched exchange is consumed
	res, _ = s.ProcessQuery(context.Background(), "How many menu items do we have?", nil)
	if !res.IsFallback {
		t.Errorf("reused exchange: %q", res.Response)
	}
}

func TestProcessQuerySequential(t *testing.T) {
	s := New([]Exchange{
		{Response: "first"},
		{Response: "second"},
	})

	for _, want := range []string{"first", "second"} {
		res, err := s.ProcessQuery(context.Background(), "anything", nil)
		if err != nil {
			t.Fatal(err)
		}
		if res.Response != want {
			t.Errorf("response = %q, want %q", res.Response, want)
		}
	}
}

func TestProcessQueryExhaustionFallsBack(t *testing.T) {
	s := New(nil)
	res, err := s.ProcessQuery(context.Background(), "anything", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsFallback || res.Response == "" {
		t.Errorf("exhausted system returned %+v", res)
	}
}

func TestProcessQueryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(nil).ProcessQuery(ctx, "q", nil); err == nil {
		t.Fatal("expected context error")
	}
}

func TestReset(t *testing.T) {
	s := New([]Exchange{{Query: "hi", Response: "hello"}})
	s.ProcessQuery(context.Background(), "hi", nil)
	s.Reset()

	res, _ := s.ProcessQuery(context.Background(), "hi", nil)
	if res.Response != "hello" {
		t.Errorf("Reset did not restore the exchange: %q", res.Response)
	}
}

func TestSQLPromotion(t *testing.T) {
	s := New([]Exchange{{
		Response:  "You have 44 menu items.",
		SQL:       "SELECT COUNT(*) FROM menu_items",
		SQLResult: []map[string]any{{"count": float64(44)}},
	}})

	res, _ := s.ProcessQuery(context.Background(), "q", nil)
	if len(res.SQLQueries) != 1 {
		t.Fatalf("sql_queries = %d, want the flat sql field promoted", len(res.SQLQueries))
	}
	if res.SQLQueries[0].Query != "SELECT COUNT(*) FROM menu_items" {
		t.Errorf("query = %q", res.SQLQueries[0].Query)
	}
}

func TestSQLQueriesPreferred(t *testing.T) {
	s := New([]Exchange{{
		Response:   "ok",
		SQL:        "SELECT ignored",
		SQLQueries: []conversation.SQLExchange{{Query: "SELECT kept"}},
	}})
	res, _ := s.ProcessQuery(context.Background(), "q", nil)
	if len(res.SQLQueries) != 1 || res.SQLQueries[0].Query != "SELECT kept" {
		t.Errorf("sql_queries = %+v", res.SQLQueries)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	data := `[{"query": "hi", "response": "hello", "sql": "SELECT 1"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Exchanges) != 1 || s.Exchanges[0].Response != "hello" {
		t.Errorf("exchanges = %+v", s.Exchanges)
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "exchanges.json"), []byte(`[{"response": "r"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Exchanges) != 1 {
		t.Errorf("exchanges = %d", len(s.Exchanges))
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("missing file should fail")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0o644)
	if _, err := Load(bad); err == nil {
		t.Error("malformed file should fail")
	}
}
