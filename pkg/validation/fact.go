package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Validator checks responses against SQL results and required phrases.
// The zero value is the lenient production validator; Strict additionally
// enforces the important-column policy.
type Validator struct {
	// Strict requires every important column's value to appear somewhere in
	// the response. Without it a response can pass on generic fragments even
	// when the headline figure never surfaced.
	Strict bool
}

// noResultsPhrases are accepted as an honest report of an empty result set.
var noResultsPhrases = []string{
	"no results",
	"no data",
	"found 0",
	"0 records",
	"empty",
	"no records",
	"no orders",
	"nothing matching",
	"couldn't find",
	"could not find",
}

// importantColumns are the columns whose values must surface in a response
// under the strict policy. Matching an unrelated number elsewhere in the row
// is not enough to claim a response is grounded.
var importantColumns = map[string]bool{
	"customer_name": true,
	"order_total":   true,
	"item_name":     true,
	"price":         true,
	"quantity":      true,
	"order_id":      true,
	"revenue":       true,
	"total":         true,
	"count":         true,
	"amount":        true,
	"name":          true,
}

// fragment separators within string values ("Caesar Salad, Greek Salad").
const fragmentSeparators = ",;|:"

// minFragmentLen drops noise fragments like "of" or "id".
const minFragmentLen = 3

// Facts decides whether response is factually supported by the rows that
// sqlQuery returned. It never returns an error: unrecognized result shapes
// are normalized or degraded, and ambiguous turns skip validation entirely.
func (v Validator) Facts(sqlQuery string, results any, response string, ambiguous bool) Outcome {
	if ambiguous {
		return Outcome{
			IsValid: true,
			Details: "ambiguous request — no SQL grounding to check",
		}
	}

	text := strings.ToLower(strings.TrimSpace(response))

	pairs := normalizeRows(results)
	if len(pairs) == 0 {
		return v.validateEmptyResults(text)
	}

	out := Outcome{}
	for _, p := range pairs {
		if num, ok := numericValue(p.value); ok {
			out.TotalCount++
			label := fmt.Sprintf("%s=%s", p.column, formatNumber(num))
			if matchesAnyCandidate(text, numericCandidates(num)) {
				out.MatchedCount++
				out.Found = append(out.Found, label)
			} else {
				out.Missing = append(out.Missing, label)
				if v.Strict && importantColumns[strings.ToLower(p.column)] {
					out.ImportantMissing = append(out.ImportantMissing, label)
				}
			}
			continue
		}

		frags := significantFragments(fmt.Sprint(p.value))
		if len(frags) == 0 {
			continue
		}
		matched := false
		for _, f := range frags {
			out.TotalCount++
			if strings.Contains(text, f) {
				out.MatchedCount++
				out.Found = append(out.Found, f)
				matched = true
			} else {
				out.Missing = append(out.Missing, f)
			}
		}
		if v.Strict && !matched && importantColumns[strings.ToLower(p.column)] {
			out.ImportantMissing = append(out.ImportantMissing,
				fmt.Sprintf("%s=%v", p.column, p.value))
		}
	}

	out.IsValid = len(out.Missing) == 0
	if out.TotalCount == 0 {
		// Nothing significant to check — default to pass rather than fail
		// the scenario on inscrutable data.
		out.IsValid = true
		out.Details = "no significant values to verify"
	} else if !out.IsValid {
		out.Details = fmt.Sprintf("%d of %d values from SQL results not reflected in response",
			len(out.Missing), out.TotalCount)
	}
	return out
}

// validateEmptyResults requires the response to admit that the query
// returned nothing.
func (v Validator) validateEmptyResults(text string) Outcome {
	for _, phrase := range noResultsPhrases {
		if strings.Contains(text, phrase) {
			return Outcome{
				IsValid:      true,
				MatchedCount: 1,
				TotalCount:   1,
				Found:        []string{phrase},
				Details:      "query returned no rows and the response says so",
			}
		}
	}
	return Outcome{
		TotalCount: 1,
		Missing:    []string{"no-results indication"},
		Details:    "no indication that query returned no results",
	}
}

// pair is one (column, value) extracted from a result row.
type pair struct {
	column string
	value  any
}

// normalizeRows flattens any realistic SQL result shape — list of row maps,
// single map, list of scalars, bare scalar, nil — into (column, value)
// pairs. Unrecognized shapes degrade to one opaque value rather than
// panicking on malformed input.
func normalizeRows(results any) []pair {
	switch rows := results.(type) {
	case nil:
		return nil
	case []map[string]any:
		var out []pair
		for _, row := range rows {
			out = append(out, mapPairs(row)...)
		}
		return out
	case map[string]any:
		return mapPairs(rows)
	case []any:
		var out []pair
		for _, el := range rows {
			switch row := el.(type) {
			case map[string]any:
				out = append(out, mapPairs(row)...)
			case nil:
			default:
				out = append(out, pair{column: "result", value: row})
			}
		}
		return out
	case string:
		if strings.TrimSpace(rows) == "" {
			return nil
		}
		return []pair{{column: "result", value: rows}}
	default:
		return []pair{{column: "result", value: rows}}
	}
}

// mapPairs extracts pairs from one row in sorted column order so validation
// output is deterministic regardless of map iteration.
func mapPairs(row map[string]any) []pair {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	var out []pair
	for _, c := range cols {
		v := row[c]
		if v == nil {
			continue
		}
		out = append(out, pair{column: c, value: v})
	}
	return out
}

// significantFragments splits a string value on separators and keeps the
// fragments worth checking: lowercased, unquoted, at least minFragmentLen
// characters, and not a bare number (numeric matching handles those).
func significantFragments(s string) []string {
	raw := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(fragmentSeparators, r)
	})

	var out []string
	for _, f := range raw {
		f = strings.TrimSpace(f)
		f = strings.Trim(f, `"'`)
		f = strings.ToLower(f)
		if len(f) < minFragmentLen {
			continue
		}
		if isBareNumber(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// isBareNumber reports whether s is purely numeric with no unit attached.
func isBareNumber(s string) bool {
	_, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return err == nil
}

// numericValue extracts a float from any numeric representation a SQL result
// may carry: Go numbers, json.Number, or a numeric string.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	case bool:
		return 0, false
	default:
		return 0, false
	}
}

// numericCandidates generates the accepted textual renderings of a value:
// with and without currency symbol, decimals, thousands separators, and
// integer rounding. A value matches if any candidate appears in the response.
func numericCandidates(v float64) []string {
	plain := formatNumber(v)
	twoDec := strconv.FormatFloat(v, 'f', 2, 64)
	rounded := strconv.FormatFloat(math.Round(v), 'f', 0, 64)
	truncated := strconv.FormatFloat(math.Trunc(v), 'f', 0, 64)

	forms := []string{plain, twoDec, rounded, truncated}
	if v >= 1000 {
		forms = append(forms, groupThousands(plain), groupThousands(twoDec), groupThousands(rounded))
	}

	seen := make(map[string]bool, len(forms)*2)
	var out []string
	for _, f := range forms {
		for _, c := range []string{f, "$" + f} {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// formatNumber renders a float the way Go would print it: no trailing
// zeros, no decimal point for whole numbers.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// groupThousands inserts comma separators into the integer part of s.
func groupThousands(s string) string {
	intPart := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	neg := strings.HasPrefix(intPart, "-")
	if neg {
		intPart = intPart[1:]
	}

	var b strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	out := b.String()
	if neg {
		out = "-" + out
	}
	return out + frac
}

func matchesAnyCandidate(text string, candidates []string) bool {
	for _, c := range candidates {
		if strings.Contains(text, c) {
			return true
		}
	}
	return false
}
