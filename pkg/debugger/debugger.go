// Package debugger implements the interactive REPL for stepping a scenario
// conversation one turn at a time.
package debugger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/camarero-ai/dinerbench/pkg/conversation"
	"github.com/camarero-ai/dinerbench/pkg/scenario"
)

// Debugger provides an interactive REPL for stepping through a conversation.
type Debugger struct {
	scenario *scenario.Scenario
	session  *conversation.Session
	output   io.Writer
	rl       *readline.Instance
}

// New creates a debugger for the given scenario and system under test.
func New(sc *scenario.Scenario, runner *conversation.Runner, sut conversation.SystemUnderTest) *Debugger {
	return &Debugger{
		scenario: sc,
		session:  runner.NewSession(sc, sut),
		output:   os.Stdout,
	}
}

// Session exposes the underlying session for external inspection.
func (d *Debugger) Session() *conversation.Session {
	return d.session
}

// Run starts the interactive REPL loop.
func (d *Debugger) Run(ctx context.Context) error {
	commands := []string{"next", "continue", "conditions", "validate",
		"history", "result", "help", "quit"}

	var completer = readline.NewPrefixCompleter()
	for _, cmd := range commands {
		completer.Children = append(completer.Children,
			readline.PcItem(cmd))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          d.buildPrompt(),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	d.rl = rl
	defer rl.Close()

	fmt.Fprintf(d.output, "dinerbench debugger — scenario %q, max %d turns\n",
		d.scenario.Name, d.scenario.MaxTurns)
	fmt.Fprintf(d.output, "Type 'help' for available commands, 'next' to run the next turn.\n\n")

	for {
		rl.SetPrompt(d.buildPrompt())
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]

		switch cmd {
		case "next", "n":
			d.handleNext(ctx)
		case "continue", "c":
			d.handleContinue(ctx)
		case "conditions":
			d.handleConditions()
		case "validate", "v":
			d.handleValidate()
		case "history", "h":
			d.handleHistory()
		case "result":
			d.handleResult()
		case "help", "?":
			d.handleHelp()
		case "quit", "q":
			fmt.Fprintf(d.output, "Exiting debugger.\n")
			return nil
		default:
			fmt.Fprintf(d.output, "Unknown command: %q. Type 'help' for available commands.\n", cmd)
		}
	}
}

// buildPrompt creates the prompt string: dinerbench[turn N/M | name]>
func (d *Debugger) buildPrompt() string {
	if d.session.Done() {
		return fmt.Sprintf("dinerbench[done | %s]> ", d.scenario.Name)
	}
	turn := len(d.session.Result().Interactions) + 1
	return fmt.Sprintf("dinerbench[turn %d/%d | %s]> ",
		turn, d.scenario.MaxTurns, d.scenario.Name)
}
