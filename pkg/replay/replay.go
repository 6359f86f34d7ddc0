// Package replay implements a deterministic, offline system under test: it
// answers queries from pre-recorded exchanges instead of a live NL-to-SQL
// pipeline. Used by CLI replay runs, the scenario debugger, and tests.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/camarero-ai/dinerbench/pkg/conversation"
)

// Exchange is one pre-recorded query/response pair.
type Exchange struct {
	Query      string                     `json:"query,omitempty"`
	Response   string                     `json:"response"`
	SQL        string                     `json:"sql,omitempty"`
	SQLResult  any                        `json:"sql_result,omitempty"`
	SQLQueries []conversation.SQLExchange `json:"sql_queries,omitempty"`
	Category   string                     `json:"category,omitempty"`
	IsFallback bool                       `json:"is_fallback,omitempty"`
}

// System serves recorded exchanges as a conversation.SystemUnderTest.
// Matching is by normalized query first, then first-unused order. When
// everything is exhausted it degrades to a fallback response rather than
// failing the turn.
type System struct {
	Exchanges []Exchange
	Fallback  string

	used []bool
}

// New creates a replay system over the given exchanges.
func New(exchanges []Exchange) *System {
	return &System{
		Exchanges: exchanges,
		Fallback:  "I'm sorry, I can't help with that right now.",
		used:      make([]bool, len(exchanges)),
	}
}

// Load reads exchanges from a JSON file, or from exchanges.json inside a
// directory.
func Load(path string) (*System, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("replay source: %w", err)
	}
	if info.IsDir() {
		path = filepath.Join(path, "exchanges.json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read exchanges: %w", err)
	}
	var exchanges []Exchange
	if err := json.Unmarshal(data, &exchanges); err != nil {
		return nil, fmt.Errorf("parse exchanges: %w", err)
	}
	return New(exchanges), nil
}

// Reset marks all exchanges unused. Called by the runner between scenarios.
func (s *System) Reset() {
	s.used = make([]bool, len(s.Exchanges))
}

// ProcessQuery implements conversation.SystemUnderTest.
func (s *System) ProcessQuery(ctx context.Context, query string, convCtx map[string]any) (*conversation.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Exact (normalized) query match on an unused exchange.
	want := normalize(query)
	for i, ex := range s.Exchanges {
		if s.used[i] || ex.Query == "" {
			continue
		}
		if normalize(ex.Query) == want {
			s.used[i] = true
			return s.toResult(ex), nil
		}
	}

	// Sequential: next unused exchange without a query key.
	for i, ex := range s.Exchanges {
		if s.used[i] || ex.Query != "" {
			continue
		}
		s.used[i] = true
		return s.toResult(ex), nil
	}

	return &conversation.QueryResult{
		Response:   s.Fallback,
		IsFallback: true,
	}, nil
}

func (s *System) toResult(ex Exchange) *conversation.QueryResult {
	res := &conversation.QueryResult{
		Response:   ex.Response,
		SQL:        ex.SQL,
		SQLQueries: ex.SQLQueries,
		Category:   ex.Category,
		IsFallback: ex.IsFallback,
	}
	if len(res.SQLQueries) == 0 && ex.SQL != "" {
		res.SQLQueries = []conversation.SQLExchange{{Query: ex.SQL, Result: ex.SQLResult}}
	}
	return res
}

func normalize(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(q))), " ")
}
