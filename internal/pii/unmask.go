package pii

import (
	"regexp"
	"sort"
	"strings"
)

// tokenPattern recognizes anything shaped like a placeholder token, including
// slightly drifted variants the provider occasionally emits (extra infix
// segments). Used only to count leftovers; replacement matches exact tokens.
var tokenPattern = regexp.MustCompile(`\b(?:PARTY|VALUE|DESC|DATE)(?:_[A-Z0-9]{1,12})+\b`)

// Report summarizes one unmasking pass.
type Report struct {
	Resolved         int      `json:"resolved"`
	Unresolved       int      `json:"unresolved"`
	UnresolvedTokens []string `json:"unresolved_tokens,omitempty"`
}

// Unmask substitutes every known token occurrence in text with its original
// value. Exact, case-sensitive matching; a single replacement pass per token.
// Tokens absent from text are ignored (the provider may drop a field), and
// token-shaped strings absent from the map are left verbatim and counted so
// operators can detect generation drift. Pure function.
func Unmask(text string, m *Map) (string, Report) {
	if m == nil {
		leftovers := tokenPattern.FindAllString(text, -1)
		return text, Report{Unresolved: len(leftovers), UnresolvedTokens: dedupe(leftovers)}
	}

	flat := m.Flatten()

	// Leftovers are counted on the input: a substituted original value may
	// itself contain token-shaped text and must not read as drift.
	var leftovers []string
	for _, match := range tokenPattern.FindAllString(text, -1) {
		if _, known := flat[match]; !known {
			leftovers = append(leftovers, match)
		}
	}

	out := text
	var resolved int
	for tok, val := range flat {
		if n := strings.Count(out, tok); n > 0 {
			out = strings.ReplaceAll(out, tok, val)
			resolved += n
		}
	}

	report := Report{
		Resolved:         resolved,
		Unresolved:       len(leftovers),
		UnresolvedTokens: dedupe(leftovers),
	}
	return out, report
}

func dedupe(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
