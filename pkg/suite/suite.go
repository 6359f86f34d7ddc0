// Package suite runs many scenarios sequentially, persisting each result as
// it completes so a crash mid-suite never loses finished work.
package suite

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/camarero-ai/dinerbench/pkg/conversation"
	"github.com/camarero-ai/dinerbench/pkg/scenario"
)

// Summary holds running totals across a suite.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errors  int `json:"errors"`
	Blocked int `json:"blocked"`
}

// Output is the collected result of one suite run.
type Output struct {
	RunID          string                              `json:"run_id"`
	Results        map[string]*conversation.TestResult `json:"results"`
	Summary        Summary                             `json:"summary"`
	ElapsedSeconds float64                             `json:"elapsed_seconds"`
	StartedAt      time.Time                           `json:"started_at"`
}

// Runner iterates scenarios and delegates each conversation to the
// conversation runner.
type Runner struct {
	Conversation *conversation.Runner

	// ResultsDir receives one JSON file per completed result plus the run
	// manifest. Empty disables persistence.
	ResultsDir string

	// Store, when set, gets a history entry appended per scenario.
	Store *scenario.Store

	// FailFast stops the suite after the first failed or errored scenario.
	FailFast bool

	// OnResult observes each result as it completes (the TUI hook).
	OnResult func(name string, res *conversation.TestResult)
}

// Run executes every scenario in name order, continuing past individual
// failures. Persistence problems are reported and swallowed — they must
// never abort the loop.
func (r *Runner) Run(ctx context.Context, scenarios map[string]*scenario.Scenario, sut conversation.SystemUnderTest) *Output {
	out := &Output{
		RunID:     uuid.NewString(),
		Results:   make(map[string]*conversation.TestResult, len(scenarios)),
		StartedAt: time.Now(),
	}

	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sc := scenarios[name]
		res := r.Conversation.Run(ctx, sc, sut)
		out.Results[name] = res
		out.Summary.Total++

		switch res.Status {
		case conversation.StatusSuccess:
			out.Summary.Passed++
		case conversation.StatusFailed:
			out.Summary.Failed++
		case conversation.StatusBlocked:
			out.Summary.Blocked++
		default:
			out.Summary.Errors++
		}

		if err := r.persistResult(out.RunID, name, res); err != nil {
			fmt.Fprintf(os.Stderr, "  ⚠ persist result for %s: %v\n", name, err)
		}
		if r.Store != nil {
			entry := scenario.HistoryEntry{
				Timestamp:        res.Timestamp,
				Status:           res.Status,
				ExecutionTime:    res.ExecutionTime,
				Turns:            len(res.Interactions),
				ConditionsMet:    res.SuccessConditionsMet,
				ConditionsTotals: res.SuccessConditionsTotal,
			}
			if err := r.Store.AddTestResult(name, entry); err != nil {
				fmt.Fprintf(os.Stderr, "  ⚠ record history for %s: %v\n", name, err)
			}
		}
		if r.OnResult != nil {
			r.OnResult(name, res)
		}

		if r.FailFast && res.Status != conversation.StatusSuccess {
			break
		}
	}

	out.ElapsedSeconds = time.Since(out.StartedAt).Seconds()
	if err := r.persistManifest(out); err != nil {
		fmt.Fprintf(os.Stderr, "  ⚠ persist run manifest: %v\n", err)
	}
	return out
}
