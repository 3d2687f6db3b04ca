// Package datalog parses the solver's textual output back into typed
// per-card derivations.
package datalog

import (
	"strings"
)

// Output markers emitted by the solver after the answer-set block. Only an
// entire line counts as a marker, so a field value containing the token
// cannot truncate the derived-fact block.
const (
	SuccessMarker = "SATISFIABLE"
	UnsatMarker   = "UNSATISFIABLE"
	UnknownMarker = "UNKNOWN"
)

// DerivedFact is one (card, field, value) derivation. Ordering follows
// solver emission order and carries no meaning beyond that.
type DerivedFact struct {
	CardKey string `json:"cardKey"`
	Field   string `json:"field"`
	Value   string `json:"value"`
}

// ParseResults extracts derived facts from solver standard output. Only the
// block preceding the success marker is considered; an absent marker or an
// empty block yields no derivations, which is not an error. Lines that do
// not match the fact grammar are skipped silently; rule-compilation
// diagnostics and comments are expected noise, not failures.
func ParseResults(output string) []DerivedFact {
	var facts []DerivedFact
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch line {
		case SuccessMarker:
			return facts
		case UnsatMarker, UnknownMarker:
			return nil
		}
		if fact, ok := parseFactLine(line); ok {
			facts = append(facts, fact)
		}
	}
	// No marker: treat the whole output as diagnostics.
	return nil
}

// parseFactLine matches field(Key,"Name",Value...) and
// fieldtype(Key,"Name",Value...). The value spans everything after the
// second top-level comma up to the closing parenthesis and may contain
// embedded quotes and spaces.
func parseFactLine(line string) (DerivedFact, bool) {
	line = strings.TrimSuffix(line, ".")

	var body string
	switch {
	case strings.HasPrefix(line, "field("):
		body = strings.TrimPrefix(line, "field(")
	case strings.HasPrefix(line, "fieldtype("):
		body = strings.TrimPrefix(line, "fieldtype(")
	default:
		return DerivedFact{}, false
	}
	if !strings.HasSuffix(body, ")") {
		return DerivedFact{}, false
	}
	body = body[:len(body)-1]

	args := SmartSplit(body)
	if len(args) < 3 {
		return DerivedFact{}, false
	}

	key := strings.TrimSpace(args[0])
	name := unquote(strings.TrimSpace(args[1]))
	// Re-join in case the value itself carried top-level commas.
	value := unquote(strings.TrimSpace(strings.Join(args[2:], ",")))
	if key == "" || name == "" {
		return DerivedFact{}, false
	}

	return DerivedFact{CardKey: key, Field: name, Value: value}, true
}

// unquote strips one layer of surrounding double quotes and unescapes the
// solver's \" and \\ sequences. Unquoted input passes through unchanged.
func unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}

// SmartSplit splits a string by comma, correctly handling quotes and parentheses.
// e.g. `a, b, "c,d"` -> ["a", "b", `"c,d"`]
func SmartSplit(s string) []string {
	var results []string
	var current strings.Builder
	depth := 0
	inQuote := false
	escaped := false

	for _, r := range s {
		if escaped {
			current.WriteRune(r)
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inQuote {
				escaped = true
			}
			current.WriteRune(r)
		case '"':
			inQuote = !inQuote
			current.WriteRune(r)
		case '(':
			if !inQuote {
				depth++
			}
			current.WriteRune(r)
		case ')':
			if !inQuote {
				depth--
			}
			current.WriteRune(r)
		case ',':
			if !inQuote && depth == 0 {
				results = append(results, strings.TrimSpace(current.String()))
				current.Reset()
				continue
			}
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		results = append(results, strings.TrimSpace(current.String()))
	}
	return results
}
