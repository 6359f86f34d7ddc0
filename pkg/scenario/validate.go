package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidationError represents a single validation error with location context.
type ValidationError struct {
	Phase    string `json:"phase"` // structural, semantic, domain
	Path     string `json:"path"`  // JSON-path-like location (e.g., "success_conditions[0]")
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

// ValidateFile performs the full 3-phase validation pipeline on a scenario file.
// Phase 1: Structural (strict JSON decode)
// Phase 2: Semantic (JSON Schema validation)
// Phase 3: Domain (custom Go rules)
func ValidateFile(path string) (*Scenario, []*ValidationError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []*ValidationError{{
			Phase:    "structural",
			Message:  fmt.Sprintf("read scenario: %v", err),
			Severity: "error",
		}}
	}
	return ValidateBytes(data)
}

// ValidateBytes runs the validation pipeline over raw scenario JSON.
func ValidateBytes(data []byte) (*Scenario, []*ValidationError) {
	var allErrors []*ValidationError

	// Phase 1: Structural — strict JSON decode
	sc, err := decodeStrict(data)
	if err != nil {
		allErrors = append(allErrors, &ValidationError{
			Phase:    "structural",
			Message:  err.Error(),
			Severity: "error",
		})
		return nil, allErrors
	}

	// Phase 2: Semantic — JSON Schema validation
	allErrors = append(allErrors, validateSemantic(data)...)

	// Phase 3: Domain — custom Go rules
	sc.ApplyDefaults()
	allErrors = append(allErrors, ValidateDomain(sc)...)

	if hasErrors(allErrors) {
		return sc, allErrors
	}
	return sc, allErrors
}

// validateSemantic validates scenario JSON against the generated schema.
func validateSemantic(data []byte) []*ValidationError {
	schemaJSON, err := GenerateJSONSchema()
	if err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("generate schema: %v", err),
			Severity: "error",
		}}
	}

	var schemaDoc interface{}
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("unmarshal schema: %v", err),
			Severity: "error",
		}}
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("scenario-v0.json", schemaDoc); err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("add schema resource: %v", err),
			Severity: "error",
		}}
	}
	sch, err := c.Compile("scenario-v0.json")
	if err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("compile schema: %v", err),
			Severity: "error",
		}}
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("unmarshal document: %v", err),
			Severity: "error",
		}}
	}

	if err := sch.Validate(doc); err != nil {
		var errs []*ValidationError
		if ve, ok := err.(*sjsonschema.ValidationError); ok {
			for _, cause := range flattenValidationErrors(ve) {
				errs = append(errs, &ValidationError{
					Phase:    "semantic",
					Path:     strings.Join(cause.InstanceLocation, "/"),
					Message:  fmt.Sprintf("%v", cause.ErrorKind),
					Severity: "error",
				})
			}
		} else {
			errs = append(errs, &ValidationError{
				Phase:    "semantic",
				Message:  err.Error(),
				Severity: "error",
			})
		}
		return errs
	}
	return nil
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// ValidateDomain performs Phase 3 domain-level validation.
// Returns a slice of errors; empty means valid.
func ValidateDomain(sc *Scenario) []*ValidationError {
	var errs []*ValidationError

	if sc.Name == "" {
		errs = append(errs, domainErr("name", "name is required"))
	}
	if sc.Category == "" {
		errs = append(errs, domainErr("category", "category is required"))
	}
	if sc.Description == "" {
		errs = append(errs, domainErr("description", "description is required"))
	}
	if sc.MaxTurns < 1 {
		errs = append(errs, domainErr("max_turns", fmt.Sprintf("max_turns must be >= 1, got %d", sc.MaxTurns)))
	}

	switch sc.Priority {
	case "", PriorityHigh, PriorityMedium, PriorityLow:
	default:
		errs = append(errs, domainErr("priority",
			fmt.Sprintf("unrecognized priority %q, expected high, medium or low", sc.Priority)))
	}

	for i, c := range sc.SuccessConditions {
		path := fmt.Sprintf("success_conditions[%d]", i)
		switch c.fieldCount() {
		case 0:
			errs = append(errs, domainErr(path, "condition has no field set"))
			continue
		case 1:
		default:
			errs = append(errs, domainErr(path, "condition sets more than one field"))
			continue
		}

		if c.ResponseMatches != "" {
			if _, err := regexp.Compile(c.ResponseMatches); err != nil {
				errs = append(errs, domainErr(path, fmt.Sprintf("invalid regex: %v", err)))
			}
		}
		if c.Expression != "" {
			if _, err := expr.Compile(c.Expression, expr.Env(conditionEnv()), expr.AsBool()); err != nil {
				errs = append(errs, domainErr(path, fmt.Sprintf("invalid expression: %v", err)))
			}
		}
	}

	for i, p := range sc.TerminationPhrases {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, domainErr(fmt.Sprintf("termination_phrases[%d]", i), "empty phrase"))
		}
	}

	for i, p := range sc.Validation.RequiredPhrases {
		path := fmt.Sprintf("validation_requirements.required_phrases[%d]", i)
		switch v := p.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				errs = append(errs, domainErr(path, "empty phrase"))
			}
		case map[string]any:
			if ph, _ := v["phrase"].(string); strings.TrimSpace(ph) == "" {
				errs = append(errs, domainErr(path, `object form requires a non-empty "phrase" field`))
			}
		default:
			errs = append(errs, domainErr(path, fmt.Sprintf("phrase must be a string or {phrase: ...} object, got %T", p)))
		}
	}

	if sc.Validation.PhraseValidation && len(sc.Validation.RequiredPhrases) == 0 {
		errs = append(errs, &ValidationError{
			Phase:    "domain",
			Path:     "validation_requirements",
			Message:  "phrase_validation enabled with no required_phrases — it will trivially pass",
			Severity: "warning",
		})
	}

	return errs
}

// conditionEnv is the expr environment shape for expression conditions.
// Must stay in sync with the runner's per-turn environment.
func conditionEnv() map[string]any {
	return map[string]any{
		"response":         "",
		"response_time_ms": float64(0),
		"turn":             0,
		"is_fallback":      false,
		"category":         "",
	}
}

func domainErr(path, msg string) *ValidationError {
	return &ValidationError{Phase: "domain", Path: path, Message: msg, Severity: "error"}
}

// hasErrors returns true if the list contains any errors (not just warnings).
func hasErrors(errs []*ValidationError) bool {
	for _, e := range errs {
		if e.Severity != "warning" {
			return true
		}
	}
	return false
}

// firstError returns the first non-warning error, or the first entry if all
// are warnings.
func firstError(errs []*ValidationError) *ValidationError {
	for _, e := range errs {
		if e.Severity != "warning" {
			return e
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
