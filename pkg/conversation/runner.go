package conversation

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/camarero-ai/dinerbench/pkg/scenario"
	"github.com/camarero-ai/dinerbench/pkg/validation"
)

// DefaultGreeting opens a conversation when a scenario gives no hints.
const DefaultGreeting = "Hi, I have a question about my restaurant."

// Options configures a Runner. All collaborators are injected here; there is
// no test mode other than passing different implementations.
type Options struct {
	// Validator judges fact grounding and phrases. The zero value is the
	// lenient production validator.
	Validator validation.Validator

	// FollowUp generates follow-up queries once the scripted ones are
	// exhausted. Nil defaults to the built-in template simulator.
	FollowUp FollowUpGenerator

	// SQLValidation / PhraseValidation force validators on or off regardless
	// of what the scenario requests. Nil defers to the scenario.
	SQLValidation    *bool
	PhraseValidation *bool

	// Greeting overrides DefaultGreeting.
	Greeting string

	// Now is the clock, injectable for tests.
	Now func() time.Time
}

// Runner executes scenarios one conversation at a time.
type Runner struct {
	opts Options
}

// NewRunner creates a Runner, filling in default collaborators.
func NewRunner(opts Options) *Runner {
	if opts.FollowUp == nil {
		opts.FollowUp = NewSimulator()
	}
	if opts.Greeting == "" {
		opts.Greeting = DefaultGreeting
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{opts: opts}
}

// Run drives one scenario through the system under test and always returns
// a TestResult — turn-level errors are recorded, never propagated.
func (r *Runner) Run(ctx context.Context, sc *scenario.Scenario, sut SystemUnderTest) *TestResult {
	s := r.NewSession(sc, sut)
	for !s.Done() {
		s.Step(ctx)
	}
	return s.Finalize()
}

// Session is the conversation state machine, stepped one turn at a time.
// Runner.Run drives it to completion; the debugger steps it interactively.
type Session struct {
	Scenario *scenario.Scenario

	runner  *Runner
	sut     SystemUnderTest
	result  *TestResult
	convCtx map[string]any

	met          []bool
	fallbackSeen bool
	terminated   bool
	termReason   string
	byPhrase     bool
	finalized    bool
	started      time.Time
}

// NewSession initializes a session: fresh session id, cleared SUT state, and
// the opening query validated up front.
func (r *Runner) NewSession(sc *scenario.Scenario, sut SystemUnderTest) *Session {
	sessionID := uuid.NewString()

	convCtx := make(map[string]any, len(sc.Context)+2)
	for k, v := range sc.Context {
		convCtx[k] = v
	}
	convCtx["session_id"] = sessionID
	convCtx["scenario"] = sc.Name

	s := &Session{
		Scenario: sc,
		runner:   r,
		sut:      sut,
		convCtx:  convCtx,
		met:      make([]bool, len(sc.SuccessConditions)),
		started:  r.opts.Now(),
		result: &TestResult{
			ScenarioName: sc.Name,
			Category:     sc.Category,
			SessionID:    sessionID,
			Ambiguous:    sc.IsAmbiguous(),
		},
	}

	if sut == nil {
		s.result.Status = StatusBlocked
		s.result.Error = "no system under test configured"
		s.terminated = true
		return s
	}
	if resetter, ok := sut.(Resetter); ok {
		resetter.Reset()
	}
	return s
}

// Done reports whether the conversation has ended.
func (s *Session) Done() bool {
	if s.terminated {
		return true
	}
	return len(s.result.Interactions) >= s.Scenario.MaxTurns
}

// Step executes one turn. Returns the recorded interaction (nil when the
// session ended without producing one) and whether the session is done.
func (s *Session) Step(ctx context.Context) (*Interaction, bool) {
	if s.Done() {
		return nil, true
	}

	turn := len(s.result.Interactions) + 1
	query, ok := s.resolveQuery(turn)
	if !ok {
		return nil, true
	}

	in := s.executeTurn(ctx, turn, query)
	s.result.Interactions = append(s.result.Interactions, *in)

	if in.Status == TurnError {
		s.result.Status = StatusError
		s.result.Error = in.Error
		s.terminate("turn error")
		return in, true
	}
	if in.IsFallback {
		s.fallbackSeen = true
	}

	// Termination phrases end the scenario immediately, independent of the
	// turn count.
	for _, phrase := range s.Scenario.TerminationPhrases {
		if phrase != "" && strings.Contains(strings.ToLower(in.Response), strings.ToLower(phrase)) {
			s.byPhrase = true
			s.terminate(fmt.Sprintf("termination phrase %q", phrase))
		}
	}

	s.checkConditions(*in)
	if total := len(s.met); total > 0 && s.metCount() == total {
		s.terminate("all success conditions met")
	}

	return in, s.Done()
}

// resolveQuery produces this turn's query: the opening hint on turn 1, the
// scripted follow-up when one remains, otherwise a generated follow-up.
// Returns false when the session must end instead of asking anything.
func (s *Session) resolveQuery(turn int) (string, bool) {
	if turn == 1 {
		q := s.openingQuery()
		if strings.TrimSpace(q) == "" {
			s.result.Status = StatusError
			s.result.Error = "no opening query could be produced"
			s.terminate("no opening query")
			return "", false
		}
		return q, true
	}

	idx := turn - 2
	if idx < len(s.Scenario.FollowUpQueries) {
		return s.Scenario.FollowUpQueries[idx], true
	}

	q, err := s.runner.opts.FollowUp.Next(s.Scenario, s.result.Interactions)
	if err != nil || strings.TrimSpace(q) == "" {
		// Generation failure or exhaustion ends the scenario; it is not
		// retried and not an error by itself.
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ⚠ %s: follow-up generation: %v\n", s.Scenario.Name, err)
		}
		s.terminate("follow-ups exhausted")
		return "", false
	}
	return q, true
}

// openingQuery picks from initial_query_hints: the first, or a random one
// when the scenario asks for it, falling back to the greeting.
func (s *Session) openingQuery() string {
	hints := s.Scenario.InitialQueryHints
	switch {
	case len(hints) == 0:
		return s.runner.opts.Greeting
	case s.Scenario.RandomHint && len(hints) > 1:
		return hints[rand.Intn(len(hints))]
	default:
		return hints[0]
	}
}

// executeTurn invokes the system under test, measuring latency and
// containing any error or panic inside the returned interaction.
func (s *Session) executeTurn(ctx context.Context, turn int, query string) (in *Interaction) {
	in = &Interaction{Turn: turn, Query: query}

	start := s.runner.opts.Now()
	defer func() {
		if rec := recover(); rec != nil {
			in.Status = TurnError
			in.Error = fmt.Sprintf("panic in process_query: %v", rec)
		}
		in.ResponseTime = s.runner.opts.Now().Sub(start).Seconds()
	}()

	res, err := s.sut.ProcessQuery(ctx, query, s.convCtx)
	if err != nil {
		in.Status = TurnError
		in.Error = err.Error()
		return in
	}

	// A missing or empty response is a fallback turn, not a crash.
	if res == nil || strings.TrimSpace(res.Response) == "" {
		in.Status = TurnFallback
		in.IsFallback = true
		if res != nil {
			in.Response = res.Response
			s.recordSQL(in, res)
		}
		return in
	}

	in.Response = res.Response
	if res.IsFallback {
		in.Status = TurnFallback
		in.IsFallback = true
	} else {
		in.Status = TurnSuccess
	}
	s.recordSQL(in, res)
	return in
}

// recordSQL attaches the turn's first SQL exchange to the interaction.
func (s *Session) recordSQL(in *Interaction, res *QueryResult) {
	if len(res.SQLQueries) > 0 {
		in.SQLQuery = res.SQLQueries[0].Query
		in.SQLResult = res.SQLQueries[0].Result
		return
	}
	if res.SQL != "" {
		in.SQLQuery = res.SQL
	}
}

// checkConditions updates the monotone condition set after a turn.
func (s *Session) checkConditions(in Interaction) {
	for i, c := range s.Scenario.SuccessConditions {
		if c.NoFallbacks {
			// Re-derived each turn — a later fallback undoes it.
			s.met[i] = !s.fallbackSeen
			continue
		}
		if s.met[i] {
			continue
		}
		ok, err := evalCondition(c, in, s.Scenario.Category, s.fallbackSeen)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ⚠ %s: condition %d: %v\n", s.Scenario.Name, i+1, err)
			continue
		}
		if ok {
			s.met[i] = true
		}
	}
}

func (s *Session) metCount() int {
	n := 0
	for _, m := range s.met {
		if m {
			n++
		}
	}
	return n
}

func (s *Session) terminate(reason string) {
	if !s.terminated {
		s.terminated = true
		s.termReason = reason
	}
}

// TerminationReason reports why the conversation ended, for the debugger.
func (s *Session) TerminationReason() string {
	return s.termReason
}

// ConditionsMet returns the per-condition satisfaction flags.
func (s *Session) ConditionsMet() []bool {
	out := make([]bool, len(s.met))
	copy(out, s.met)
	return out
}

// Result exposes the partial result while a session is in flight.
func (s *Session) Result() *TestResult {
	return s.result
}

// Finalize runs the scenario-level validations and settles the status.
// Idempotent; safe to call once stepping stops.
func (s *Session) Finalize() *TestResult {
	if s.finalized {
		return s.result
	}
	s.finalized = true

	res := s.result
	res.Timestamp = s.runner.opts.Now()
	res.ExecutionTime = res.Timestamp.Sub(s.started).Seconds()
	res.SuccessConditionsTotal = len(s.met)
	res.SuccessConditionsMet = s.metCount()

	res.PerformanceMet = true
	target := float64(s.Scenario.PerformanceTargetMs) / 1000
	for _, in := range res.Interactions {
		if in.ResponseTime > target {
			res.PerformanceMet = false
		}
	}

	s.runValidations()

	if res.Status == StatusError || res.Status == StatusBlocked {
		return res
	}

	if s.succeeded() {
		res.Status = StatusSuccess
	} else {
		res.Status = StatusFailed
	}
	return res
}

// runValidations computes the scenario-level SQL and phrase outcomes per
// the scenario's validation requirements (with runner-level overrides).
// Only the first recorded SQL exchange is validated, against the final
// response.
func (s *Session) runValidations() {
	v := s.runner.opts.Validator
	res := s.result
	final := res.LastResponse()

	if s.sqlRequired() {
		if first := res.FirstSQL(); first != nil {
			out := v.Facts(first.Query, first.Result, final, res.Ambiguous)
			res.Validation.SQLValidation = &out
		} else if !res.Ambiguous {
			res.Validation.SQLValidation = &validation.Outcome{
				Details: "no SQL query was recorded for this scenario",
			}
		}
	}

	if s.phrasesRequired() {
		out := v.Phrases(final, s.Scenario.Validation.RequiredPhrases)
		res.Validation.PhraseValidation = &out
	}
}

func (s *Session) sqlRequired() bool {
	if s.runner.opts.SQLValidation != nil {
		return *s.runner.opts.SQLValidation
	}
	return s.Scenario.Validation.DatabaseValidation
}

func (s *Session) phrasesRequired() bool {
	if s.runner.opts.PhraseValidation != nil {
		return *s.runner.opts.PhraseValidation
	}
	return s.Scenario.Validation.PhraseValidation
}

// succeeded applies the finalization rules. Ambiguous scenarios succeed on
// phrase validation plus a clarification cue in the last response — SQL
// grounding is not required. Normal scenarios need every required
// validation, the performance target on every turn, and their success
// conditions (a termination phrase counts as reaching the goal). With no
// conditions declared at all, any non-empty response suffices on that axis.
func (s *Session) succeeded() bool {
	res := s.result
	phraseOK := res.Validation.PhraseValidation == nil || res.Validation.PhraseValidation.IsValid

	if res.Ambiguous {
		return phraseOK && IsClarification(res.LastResponse())
	}

	sqlOK := res.Validation.SQLValidation == nil || res.Validation.SQLValidation.IsValid
	if !sqlOK || !phraseOK || !res.PerformanceMet {
		return false
	}

	if res.SuccessConditionsTotal == 0 {
		return strings.TrimSpace(res.LastResponse()) != ""
	}
	if s.byPhrase {
		return true
	}
	return res.SuccessConditionsMet == res.SuccessConditionsTotal
}
