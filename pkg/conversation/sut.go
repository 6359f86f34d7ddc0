package conversation

import "context"

// SQLExchange pairs one generated SQL query with the rows it returned.
type SQLExchange struct {
	Query  string `json:"query"`
	Result any    `json:"result"`
}

// QueryResult is what the system under test returns for one query. A nil
// result or empty Response is treated as a fallback turn, not a crash.
type QueryResult struct {
	Response   string        `json:"response"`
	SQL        string        `json:"sql,omitempty"`
	SQLQueries []SQLExchange `json:"sql_queries,omitempty"`
	Category   string        `json:"category,omitempty"`
	IsFallback bool          `json:"is_fallback,omitempty"`
}

// SystemUnderTest is the only contract the harness has with the assistant.
// The conversation context map includes a "session_id" key; a new session id
// means prior conversational state should be discarded. Any error or panic
// from ProcessQuery is caught by the runner and recorded as an error turn.
type SystemUnderTest interface {
	ProcessQuery(ctx context.Context, query string, convCtx map[string]any) (*QueryResult, error)
}

// Resetter is optionally implemented by systems that hold replayable or
// session state. The runner calls Reset at the start of each scenario.
type Resetter interface {
	Reset()
}
