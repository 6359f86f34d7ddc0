package validation

import (
	"fmt"
	"strings"
)

// Phrases checks that response contains every required phrase,
// case-insensitively. Phrases are given either as bare strings or as
// {"phrase": "..."} objects; both forms are accepted. An empty requirement
// list trivially validates.
func (v Validator) Phrases(response string, required []any) Outcome {
	if len(required) == 0 {
		return Outcome{
			IsValid: true,
			Details: "no required phrases",
		}
	}

	text := strings.ToLower(response)
	out := Outcome{}
	for _, raw := range required {
		phrase := coercePhrase(raw)
		if phrase == "" {
			continue
		}
		out.TotalCount++
		if strings.Contains(text, strings.ToLower(phrase)) {
			out.MatchedCount++
			out.Found = append(out.Found, phrase)
		} else {
			out.Missing = append(out.Missing, phrase)
		}
	}

	out.IsValid = len(out.Missing) == 0
	if !out.IsValid {
		out.Details = fmt.Sprintf("%d of %d required phrases not found", len(out.Missing), out.TotalCount)
	}
	return out
}

// coercePhrase accepts both phrase encodings. Anything else yields "" and
// is skipped rather than failing the validation.
func coercePhrase(raw any) string {
	switch p := raw.(type) {
	case string:
		return strings.TrimSpace(p)
	case map[string]any:
		s, _ := p["phrase"].(string)
		return strings.TrimSpace(s)
	default:
		return ""
	}
}
