package debugger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camarero-ai/dinerbench/pkg/conversation"
	"github.com/camarero-ai/dinerbench/pkg/validation"
)

// handleNext runs the next conversation turn and displays it.
func (d *Debugger) handleNext(ctx context.Context) {
	if d.session.Done() {
		fmt.Fprintf(d.output, "Conversation is over. Use 'result' to see the outcome.\n")
		return
	}

	in, done := d.session.Step(ctx)
	if in == nil {
		fmt.Fprintf(d.output, "No further query could be produced; conversation ended.\n")
		return
	}

	fmt.Fprintf(d.output, "Turn %d\n", in.Turn)
	fmt.Fprintf(d.output, "  → %s\n", in.Query)
	fmt.Fprintf(d.output, "  ← %s\n", in.Response)
	if in.SQLQuery != "" {
		fmt.Fprintf(d.output, "  sql: %s\n", in.SQLQuery)
	}
	switch {
	case in.Status == conversation.TurnError:
		fmt.Fprintf(d.output, "  ✗ error: %s\n", in.Error)
	case in.IsFallback:
		fmt.Fprintf(d.output, "  ⚠ fallback response (%.2fs)\n", in.ResponseTime)
	default:
		fmt.Fprintf(d.output, "  ✓ ok (%.2fs)\n", in.ResponseTime)
	}
	if done {
		fmt.Fprintf(d.output, "Conversation ended: %s\n", d.session.TerminationReason())
	}
}

// handleContinue runs all remaining turns.
func (d *Debugger) handleContinue(ctx context.Context) {
	for !d.session.Done() {
		d.handleNext(ctx)
	}
	fmt.Fprintf(d.output, "All turns completed.\n")
}

// handleConditions shows success conditions and their current state.
func (d *Debugger) handleConditions() {
	conds := d.scenario.SuccessConditions
	if len(conds) == 0 {
		fmt.Fprintf(d.output, "No success conditions defined.\n")
		return
	}
	met := d.session.ConditionsMet()
	for i, c := range conds {
		mark := "○"
		if i < len(met) && met[i] {
			mark = "✓"
		}
		fmt.Fprintf(d.output, "  %s %s\n", mark, conversation.DescribeCondition(c))
	}
}

// handleValidate runs fact and phrase validation against the conversation so
// far, without finalizing the session.
func (d *Debugger) handleValidate() {
	res := d.session.Result()
	if len(res.Interactions) == 0 {
		fmt.Fprintf(d.output, "No turns executed yet.\n")
		return
	}

	v := validation.Validator{}
	response := res.LastResponse()

	if first := res.FirstSQL(); first != nil {
		out := v.Facts(first.Query, first.Result, response, res.Ambiguous)
		d.printOutcome("facts", out)
	} else {
		fmt.Fprintf(d.output, "  facts: no SQL recorded yet\n")
	}

	if phrases := d.scenario.Validation.RequiredPhrases; len(phrases) > 0 {
		out := v.Phrases(response, phrases)
		d.printOutcome("phrases", out)
	} else {
		fmt.Fprintf(d.output, "  phrases: none required\n")
	}
}

func (d *Debugger) printOutcome(label string, out validation.Outcome) {
	mark := "✓"
	if !out.IsValid {
		mark = "✗"
	}
	fmt.Fprintf(d.output, "  %s %s: %d/%d matched\n", mark, label, out.MatchedCount, out.TotalCount)
	for _, m := range out.Missing {
		fmt.Fprintf(d.output, "      missing: %s\n", m)
	}
	for _, m := range out.ImportantMissing {
		fmt.Fprintf(d.output, "      missing (important): %s\n", m)
	}
}

// handleHistory shows the interactions so far.
func (d *Debugger) handleHistory() {
	res := d.session.Result()
	if len(res.Interactions) == 0 {
		fmt.Fprintf(d.output, "No turns executed yet.\n")
		return
	}
	for _, in := range res.Interactions {
		mark := "✓"
		switch {
		case in.Status == conversation.TurnError:
			mark = "✗"
		case in.IsFallback:
			mark = "⚠"
		}
		fmt.Fprintf(d.output, "  %s [%d] %s\n", mark, in.Turn, in.Query)
		if in.Error != "" {
			fmt.Fprintf(d.output, "       error: %s\n", in.Error)
		}
	}
}

// handleResult finalizes the session and dumps the result as JSON.
func (d *Debugger) handleResult() {
	if !d.session.Done() {
		fmt.Fprintf(d.output, "Conversation still in progress; 'continue' to finish it first.\n")
		return
	}
	res := d.session.Finalize()
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		fmt.Fprintf(d.output, "  Error marshaling result: %v\n", err)
		return
	}
	fmt.Fprintln(d.output, string(data))
}

// handleHelp displays available commands.
func (d *Debugger) handleHelp() {
	fmt.Fprintln(d.output, "Available commands:")
	fmt.Fprintln(d.output, "  next (n)       Run the next conversation turn")
	fmt.Fprintln(d.output, "  continue (c)   Run all remaining turns")
	fmt.Fprintln(d.output, "  conditions     Show success conditions and their state")
	fmt.Fprintln(d.output, "  validate (v)   Run fact/phrase validation against the turns so far")
	fmt.Fprintln(d.output, "  history (h)    Show executed turns")
	fmt.Fprintln(d.output, "  result         Finalize and dump the test result as JSON")
	fmt.Fprintln(d.output, "  help (?)       Show this help")
	fmt.Fprintln(d.output, "  quit (q)       Exit debugger")
}
