package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/spf13/cobra"

	"github.com/camarero-ai/dinerbench/pkg/config"
	"github.com/camarero-ai/dinerbench/pkg/conversation"
	"github.com/camarero-ai/dinerbench/pkg/debugger"
	"github.com/camarero-ai/dinerbench/pkg/replay"
	"github.com/camarero-ai/dinerbench/pkg/report"
	"github.com/camarero-ai/dinerbench/pkg/scenario"
	"github.com/camarero-ai/dinerbench/pkg/suite"
	"github.com/camarero-ai/dinerbench/pkg/tui"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

var cfg *config.Config

func main() {
	loadDotEnv() // load .env file if present (gitignored)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadDotEnv reads a .env file from the working directory and sets
// any variables that aren't already set in the environment.
// Lines are KEY=VALUE (or KEY="VALUE"). Comments (#) and blanks are skipped.
func loadDotEnv() {
	f, err := os.Open(".env")
	if err != nil {
		return // no .env file — that's fine
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		val = strings.Trim(val, `"'`)
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

var cfgPath = "dinerbench.yaml"

var rootCmd = &cobra.Command{
	Use:   "dinerbench",
	Short: "Scenario test harness for the restaurant NL-to-SQL assistant",
	Long:  "dinerbench — conversational test scenarios, fact-grounding validation, and compliance reporting for the restaurant assistant.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		return nil
	},
}

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate [scenario.json]",
	Short: "Validate a scenario JSON file against the schema",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	sc, errs := scenario.ValidateFile(args[0])
	if len(errs) > 0 {
		var errors []*scenario.ValidationError
		var warnings []*scenario.ValidationError
		for _, e := range errs {
			if e.Severity == "warning" {
				warnings = append(warnings, e)
			} else {
				errors = append(errors, e)
			}
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "  ⚠ [%s] %s\n", w.Phase, w.Message)
			if w.Path != "" {
				fmt.Fprintf(os.Stderr, "    at: %s\n", w.Path)
			}
		}
		if len(errors) > 0 {
			fmt.Fprintf(os.Stderr, "Validation failed: %d error(s)\n\n", len(errors))
			for i, e := range errors {
				fmt.Fprintf(os.Stderr, "  %d. [%s] %s\n", i+1, e.Phase, e.Message)
				if e.Path != "" {
					fmt.Fprintf(os.Stderr, "     at: %s\n", e.Path)
				}
			}
			os.Exit(2)
		}
	}
	fmt.Printf("✓ %s is valid (%d success conditions, max %d turns)\n",
		sc.Name, len(sc.SuccessConditions), sc.MaxTurns)
	return nil
}

// --- scenario ---

var (
	listCategory string
	listTag      string
	listPriority string
	showJSON     bool
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Manage test scenarios",
}

var scenarioListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scenarios in the scenarios directory",
	RunE:  runScenarioList,
}

func runScenarioList(cmd *cobra.Command, args []string) error {
	store := scenario.NewStore(cfg.ScenariosDir)
	if _, err := store.LoadAll(); err != nil {
		return fmt.Errorf("load scenarios: %w", err)
	}

	matches := store.Filter(scenario.Filter{
		Category: listCategory,
		Tag:      listTag,
		Priority: listPriority,
	})
	if len(matches) == 0 {
		fmt.Println("No scenarios found.")
		return nil
	}

	for _, sc := range matches {
		marker := " "
		if sc.IsAmbiguous() {
			marker = "?"
		}
		fmt.Printf("  %s %-35s %-15s %s\n", marker, sc.Name, sc.Category, sc.Description)
	}
	fmt.Printf("\n  %d scenario(s)\n", len(matches))
	return nil
}

var scenarioShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show one scenario in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runScenarioShow,
}

func runScenarioShow(cmd *cobra.Command, args []string) error {
	store := scenario.NewStore(cfg.ScenariosDir)
	sc, err := store.Load(args[0])
	if err != nil {
		return err
	}

	if showJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sc)
	}

	fmt.Printf("%s  [%s]\n", sc.Name, sc.Category)
	fmt.Printf("  %s\n", sc.Description)
	fmt.Printf("  priority: %s  max turns: %d  target: %dms\n",
		sc.Priority, sc.MaxTurns, sc.PerformanceTargetMs)
	if len(sc.Tags) > 0 {
		fmt.Printf("  tags: %s\n", strings.Join(sc.Tags, ", "))
	}
	if len(sc.SuccessConditions) > 0 {
		fmt.Println("  success conditions:")
		for _, c := range sc.SuccessConditions {
			fmt.Printf("    - %s\n", conversation.DescribeCondition(c))
		}
	}
	if len(sc.TestHistory) > 0 {
		fmt.Println("  recent runs:")
		n := len(sc.TestHistory)
		if n > 5 {
			n = 5
		}
		for _, h := range sc.TestHistory[len(sc.TestHistory)-n:] {
			glyph := "✓"
			if h.Status != conversation.StatusSuccess {
				glyph = "✗"
			}
			fmt.Printf("    %s %s (%.2fs, %d turns)\n",
				glyph, h.Timestamp.Format("2006-01-02 15:04"), h.ExecutionTime, h.Turns)
		}
	}
	return nil
}

var scenarioInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the built-in default scenarios to the scenarios directory",
	RunE:  runScenarioInit,
}

func runScenarioInit(cmd *cobra.Command, args []string) error {
	store := scenario.NewStore(cfg.ScenariosDir)
	if _, err := store.LoadAll(); err != nil {
		return fmt.Errorf("load scenarios: %w", err)
	}
	n, err := store.GenerateDefaults()
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Println("Scenarios directory is not empty — nothing generated.")
		return nil
	}
	fmt.Printf("✓ Generated %d default scenario(s) in %s\n", n, cfg.ScenariosDir)
	return nil
}

// --- run ---

var (
	runAll          bool
	runScenarioName string
	runCategory     string
	runTag          string
	runReplayPath   string
	runThreshold    float64
	runReport       bool
	runSQLFlag      string
	runPhrasesFlag  string
	runBlockInvalid bool
	runFailFast     bool
	runTUI          bool
	runJSON         bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run scenarios against a recorded replay transcript",
	Long: `Run one scenario or the whole suite against the system under test.

The system under test is a recorded replay transcript (--replay or the
configured replay_dir): a JSON file of query/response/SQL exchanges
captured from a live assistant session.

Exit codes: 0 = compliant run or non-enforced failure, 1 = threshold
failure with --block-invalid, 2 = configuration or validation error.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	if !runAll && runScenarioName == "" && runCategory == "" && runTag == "" {
		fmt.Fprintln(os.Stderr, "Error: pass --scenario, --category, --tag, or --all")
		os.Exit(2)
	}

	store := scenario.NewStore(cfg.ScenariosDir)
	if _, err := store.LoadAll(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: load scenarios: %v\n", err)
		os.Exit(2)
	}

	scenarios := make(map[string]*scenario.Scenario)
	if runScenarioName != "" {
		sc, err := store.Load(runScenarioName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		scenarios[sc.Name] = sc
	} else {
		for _, sc := range store.Filter(scenario.Filter{Category: runCategory, Tag: runTag}) {
			scenarios[sc.Name] = sc
		}
	}
	if len(scenarios) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no scenarios matched")
		os.Exit(2)
	}

	if runBlockInvalid {
		blocked := 0
		for name, sc := range scenarios {
			if errs := scenario.ValidateDomain(sc); hasValidationErrors(errs) {
				fmt.Fprintf(os.Stderr, "  ✗ %s: invalid scenario, skipping\n", name)
				delete(scenarios, name)
				blocked++
			}
		}
		if blocked > 0 && len(scenarios) == 0 {
			fmt.Fprintln(os.Stderr, "Error: every matched scenario failed validation")
			os.Exit(2)
		}
	}

	sut, err := loadReplaySUT()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	threshold := cfg.Threshold
	if cmd.Flags().Changed("threshold") {
		threshold = runThreshold
	}

	convRunner := conversation.NewRunner(conversation.Options{
		SQLValidation:    parseTriState(runSQLFlag),
		PhraseValidation: parseTriState(runPhrasesFlag),
	})
	suiteRunner := &suite.Runner{
		Conversation: convRunner,
		ResultsDir:   cfg.ResultsDir,
		Store:        store,
		FailFast:     runFailFast,
	}

	var out *suite.Output
	var compliance report.ComplianceReport
	if runTUI {
		out, err = runWithTUI(suiteRunner, scenarios, sut)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		if out == nil {
			os.Exit(2)
		}
		compliance = report.Compliance(out.Results, threshold)
	} else {
		tracker := report.NewTracker(threshold)
		suiteRunner.OnResult = func(name string, res *conversation.TestResult) {
			tracker.Update(name, res)
			if !runJSON {
				printResultLine(name, res)
			}
		}
		out = suiteRunner.Run(context.Background(), scenarios, sut)
		compliance = tracker.Snapshot()
	}

	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(map[string]any{
			"run_id":     out.RunID,
			"summary":    out.Summary,
			"results":    out.Results,
			"compliance": compliance,
		})
	} else {
		printSuiteSummary(out, compliance)
	}

	if runReport {
		emitter := report.NewEmitter(cfg.ReportsDir)
		if path, err := emitter.WriteCompliance(compliance); err != nil {
			fmt.Fprintf(os.Stderr, "  ⚠ write compliance report: %v\n", err)
		} else if !runJSON {
			fmt.Printf("  Compliance report: %s\n", path)
		}
		diag := report.Diagnostics(out.Results)
		if path, err := emitter.WriteDiagnostics(diag); err != nil {
			fmt.Fprintf(os.Stderr, "  ⚠ write diagnostics report: %v\n", err)
		} else if !runJSON {
			fmt.Printf("  Diagnostics report: %s\n", path)
		}
	}

	if code := runExitCode(compliance, runBlockInvalid); code != 0 {
		os.Exit(code)
	}
	return nil
}

// runExitCode reflects only the aggregate threshold check: individual failed
// or errored scenarios never fail the process on their own, and a
// non-compliant run fails it only when enforcement was requested.
func runExitCode(compliance report.ComplianceReport, enforce bool) int {
	if enforce && !compliance.IsCompliant {
		return 1
	}
	return 0
}

// runWithTUI drives the suite inside the live bubbletea view.
func runWithTUI(r *suite.Runner, scenarios map[string]*scenario.Scenario, sut conversation.SystemUnderTest) (*suite.Output, error) {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	// The suite runs in name order; the view mirrors that.
	sort.Strings(names)

	events := make(chan tea.Msg, len(names)+1)
	r.OnResult = func(name string, res *conversation.TestResult) {
		events <- tui.ResultMsg{Name: name, Result: res}
	}

	go func() {
		out := r.Run(context.Background(), scenarios, sut)
		events <- tui.DoneMsg{Output: out}
		close(events)
	}()

	final, err := tea.NewProgram(tui.New(names, events)).Run()
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}
	m, ok := final.(tui.Model)
	if !ok {
		return nil, fmt.Errorf("tui: unexpected final model")
	}
	if m.Err() != nil {
		return nil, m.Err()
	}
	return m.Output(), nil
}

func printResultLine(name string, res *conversation.TestResult) {
	switch res.Status {
	case conversation.StatusSuccess:
		fmt.Printf("    ✓ %-35s (%d/%d conditions)  %.2fs\n",
			name, res.SuccessConditionsMet, res.SuccessConditionsTotal, res.ExecutionTime)
	case conversation.StatusFailed:
		fmt.Printf("    ✗ %-35s %s  %.2fs\n", name, failureReason(res), res.ExecutionTime)
	case conversation.StatusBlocked:
		fmt.Printf("    ○ %-35s BLOCKED: %s\n", name, res.Error)
	default:
		fmt.Printf("    ✗ %-35s ERROR: %s\n", name, res.Error)
	}
}

func failureReason(res *conversation.TestResult) string {
	if v := res.Validation.SQLValidation; v != nil && !v.IsValid {
		return "(fact validation failed)"
	}
	if v := res.Validation.PhraseValidation; v != nil && !v.IsValid {
		return "(required phrases missing)"
	}
	if !res.PerformanceMet {
		return "(performance target missed)"
	}
	return fmt.Sprintf("(%d/%d conditions)", res.SuccessConditionsMet, res.SuccessConditionsTotal)
}

func printSuiteSummary(out *suite.Output, compliance report.ComplianceReport) {
	s := out.Summary
	fmt.Printf("\n  %d scenarios, %d passed, %d failed", s.Total, s.Passed, s.Failed)
	if s.Errors > 0 {
		fmt.Printf(", %d errors", s.Errors)
	}
	if s.Blocked > 0 {
		fmt.Printf(", %d blocked", s.Blocked)
	}
	fmt.Printf("  (%.1fs)\n", out.ElapsedSeconds)

	glyph := "✓"
	verdict := "COMPLIANT"
	if !compliance.IsCompliant {
		glyph = "✗"
		verdict = "NOT COMPLIANT"
	}
	fmt.Printf("  %s %s — %.1f%% passing (threshold %.0f%%)\n",
		glyph, verdict, compliance.PassingPercentage*100, compliance.Threshold*100)
	for _, req := range compliance.Requirements {
		mark := "✓"
		if !req.Passed {
			mark = "✗"
		}
		fmt.Printf("    %s %s\n", mark, req.Name)
		if !req.Passed && req.Details != "" {
			fmt.Printf("      %s\n", req.Details)
		}
	}
}

// --- report ---

var (
	reportLatest bool
	reportRender bool
	reportKind   string
)

var reportCmd = &cobra.Command{
	Use:   "report [report.md]",
	Short: "Show a generated report",
	Long: `Show a compliance or diagnostics report.

With --latest the newest report of the requested kind is located in the
reports directory. With --render the markdown is styled for the terminal.`,
	RunE: runShowReport,
}

func runShowReport(cmd *cobra.Command, args []string) error {
	var path string
	switch {
	case len(args) == 1:
		path = args[0]
	case reportLatest:
		prefix := "compliance_report"
		if reportKind == "diagnostics" {
			prefix = "diagnostics_report"
		}
		path = report.Latest(cfg.ReportsDir, prefix, ".md")
		if path == "" {
			fmt.Fprintf(os.Stderr, "Error: no %s found in %s\n", prefix, cfg.ReportsDir)
			os.Exit(2)
		}
	default:
		fmt.Fprintln(os.Stderr, "Error: pass a report path or --latest")
		os.Exit(2)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if reportRender {
		fmt.Println(tui.RenderMarkdown(string(data)))
	} else {
		fmt.Print(string(data))
	}
	return nil
}

// --- debug ---

var debugReplayPath string

var debugCmd = &cobra.Command{
	Use:   "debug [scenario]",
	Short: "Step through one scenario interactively",
	Args:  cobra.ExactArgs(1),
	RunE:  runDebug,
}

func runDebug(cmd *cobra.Command, args []string) error {
	store := scenario.NewStore(cfg.ScenariosDir)
	sc, err := store.Load(args[0])
	if err != nil {
		return err
	}

	if debugReplayPath != "" {
		runReplayPath = debugReplayPath
	}
	sut, err := loadReplaySUT()
	if err != nil {
		return err
	}

	d := debugger.New(sc, conversation.NewRunner(conversation.Options{}), sut)
	return d.Run(context.Background())
}

// --- schema export ---

var (
	schemaType string
	schemaOut  string
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Schema operations",
}

var schemaExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export JSON Schema to stdout or a file",
	RunE:  runSchemaExport,
}

func runSchemaExport(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	switch schemaType {
	case "scenario":
		data, err = scenario.GenerateJSONSchema()
	case "result":
		data, err = conversation.GenerateResultJSONSchema()
	default:
		return fmt.Errorf("unknown schema type %q (use 'scenario' or 'result')", schemaType)
	}
	if err != nil {
		return fmt.Errorf("generate schema: %w", err)
	}

	var out json.RawMessage = data
	formatted, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		formatted = data
	}

	if schemaOut != "" {
		if err := os.WriteFile(schemaOut, append(formatted, '\n'), 0o644); err != nil {
			return fmt.Errorf("write schema: %w", err)
		}
		fmt.Printf("wrote %s\n", schemaOut)
		return nil
	}
	fmt.Println(string(formatted))
	return nil
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dinerbench %s (build: %s)\n", version, commit)
	},
}

// --- helpers ---

// loadReplaySUT resolves the replay transcript: the --replay flag first,
// then the configured replay_dir.
func loadReplaySUT() (*replay.System, error) {
	path := runReplayPath
	if path == "" {
		path = cfg.ReplayDir
	}
	if path == "" {
		return nil, fmt.Errorf("no replay transcript: pass --replay or configure replay_dir")
	}
	sut, err := replay.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load replay: %w", err)
	}
	return sut, nil
}

// parseTriState maps ""/auto → nil, on/true → &true, off/false → &false.
func parseTriState(v string) *bool {
	switch strings.ToLower(v) {
	case "on", "true", "yes":
		t := true
		return &t
	case "off", "false", "no":
		f := false
		return &f
	}
	return nil
}

func hasValidationErrors(errs []*scenario.ValidationError) bool {
	for _, e := range errs {
		if e.Severity != "warning" {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "dinerbench.yaml", "Path to the config file")

	// scenario flags
	scenarioListCmd.Flags().StringVar(&listCategory, "category", "", "Only scenarios in this category")
	scenarioListCmd.Flags().StringVar(&listTag, "tag", "", "Only scenarios carrying this tag")
	scenarioListCmd.Flags().StringVar(&listPriority, "priority", "", "Only scenarios with this priority")
	scenarioShowCmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")
	scenarioCmd.AddCommand(scenarioListCmd)
	scenarioCmd.AddCommand(scenarioShowCmd)
	scenarioCmd.AddCommand(scenarioInitCmd)

	// run flags
	runCmd.Flags().BoolVar(&runAll, "all", false, "Run every scenario")
	runCmd.Flags().StringVar(&runScenarioName, "scenario", "", "Run only the named scenario")
	runCmd.Flags().StringVar(&runCategory, "category", "", "Only scenarios in this category")
	runCmd.Flags().StringVar(&runTag, "tag", "", "Only scenarios carrying this tag")
	runCmd.Flags().StringVar(&runReplayPath, "replay", "", "Path to the replay transcript")
	runCmd.Flags().Float64Var(&runThreshold, "threshold", 0.90, "Minimum passing fraction for compliance")
	runCmd.Flags().BoolVar(&runReport, "report", false, "Write compliance and diagnostics reports")
	runCmd.Flags().StringVar(&runSQLFlag, "sql-validation", "", "Force fact validation on/off (default: per scenario)")
	runCmd.Flags().StringVar(&runPhrasesFlag, "validate-phrases", "", "Force phrase validation on/off (default: per scenario)")
	runCmd.Flags().BoolVar(&runBlockInvalid, "block-invalid", false, "Skip invalid scenarios and enforce the compliance threshold via the exit code")
	runCmd.Flags().BoolVar(&runFailFast, "fail-fast", false, "Stop after the first non-passing scenario")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show live progress in the terminal UI")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Output results as structured JSON")

	// report flags
	reportCmd.Flags().BoolVar(&reportLatest, "latest", false, "Show the newest report in the reports directory")
	reportCmd.Flags().BoolVar(&reportRender, "render", false, "Render markdown for the terminal")
	reportCmd.Flags().StringVar(&reportKind, "kind", "compliance", "Report kind for --latest: compliance or diagnostics")

	// debug flags
	debugCmd.Flags().StringVar(&debugReplayPath, "replay", "", "Path to the replay transcript")

	// schema subcommands
	schemaExportCmd.Flags().StringVar(&schemaType, "type", "scenario", "Schema type: scenario or result")
	schemaExportCmd.Flags().StringVar(&schemaOut, "out", "", "Write the schema to a file instead of stdout")
	schemaCmd.AddCommand(schemaExportCmd)

	// root subcommands
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(scenarioCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}
