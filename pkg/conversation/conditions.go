package conversation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/camarero-ai/dinerbench/pkg/scenario"
)

// clarificationCues mark a response as a clarification request. Ambiguous
// scenarios succeed only when the final response contains one of these.
var clarificationCues = []string{
	"clarify",
	"could you please provide",
	"more information",
	"more specific",
	"what do you mean",
}

// IsClarification reports whether a response asks the user to clarify.
func IsClarification(response string) bool {
	text := strings.ToLower(response)
	for _, cue := range clarificationCues {
		if strings.Contains(text, cue) {
			return true
		}
	}
	return false
}

// evalCondition checks one success condition against a completed turn.
// Conditions other than no_fallbacks are monotone: once met they stay met.
// no_fallbacks is re-derived from fallbackSeen each turn, since a later
// fallback undoes it.
func evalCondition(c scenario.Condition, in Interaction, category string, fallbackSeen bool) (bool, error) {
	switch {
	case c.ResponseContains != "":
		return strings.Contains(strings.ToLower(in.Response), strings.ToLower(c.ResponseContains)), nil

	case c.ResponseMatches != "":
		re, err := regexp.Compile(c.ResponseMatches)
		if err != nil {
			return false, fmt.Errorf("compile condition regex %q: %w", c.ResponseMatches, err)
		}
		return re.MatchString(in.Response), nil

	case c.ResponseTimeBelow > 0:
		return in.ResponseTime < c.ResponseTimeBelow, nil

	case c.NoFallbacks:
		return !fallbackSeen, nil

	case c.Expression != "":
		return evalExpression(c.Expression, in, category)

	default:
		return false, fmt.Errorf("condition has no field set")
	}
}

// evalExpression evaluates an expr-lang predicate over the turn.
func evalExpression(exprStr string, in Interaction, category string) (bool, error) {
	env := map[string]any{
		"response":         in.Response,
		"response_time_ms": in.ResponseTime * 1000,
		"turn":             in.Turn,
		"is_fallback":      in.IsFallback,
		"category":         category,
	}
	program, err := expr.Compile(exprStr, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compile condition %q: %w", exprStr, err)
	}
	output, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("eval condition %q: %w", exprStr, err)
	}
	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not return bool (got %T: %v)", exprStr, output, output)
	}
	return result, nil
}

// DescribeCondition renders a condition for listings and the debugger.
func DescribeCondition(c scenario.Condition) string {
	switch {
	case c.ResponseContains != "":
		return fmt.Sprintf("response contains %q", c.ResponseContains)
	case c.ResponseMatches != "":
		return fmt.Sprintf("response matches /%s/", c.ResponseMatches)
	case c.ResponseTimeBelow > 0:
		return fmt.Sprintf("response time below %.1fs", c.ResponseTimeBelow)
	case c.NoFallbacks:
		return "no fallback responses"
	case c.Expression != "":
		return fmt.Sprintf("expression: %s", c.Expression)
	}
	return "empty condition"
}
