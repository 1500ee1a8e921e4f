// Package password scores and validates passwords against a configurable
// rule table. Rules are data, not control flow, so policy changes do not
// require touching the scoring code.
package password

import (
	"strings"
	"unicode"
)

// Rule is one scoring criterion.
type Rule struct {
	Name  string
	Check func(string) bool
}

func hasRune(pred func(rune) bool) func(string) bool {
	return func(s string) bool {
		for _, r := range s {
			if pred(r) {
				return true
			}
		}
		return false
	}
}

func isSymbol(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// classRules are the character-class criteria counted toward MinClasses.
var classRules = []Rule{
	{Name: "upper", Check: hasRune(unicode.IsUpper)},
	{Name: "lower", Check: hasRune(unicode.IsLower)},
	{Name: "digit", Check: hasRune(unicode.IsDigit)},
	{Name: "symbol", Check: hasRune(isSymbol)},
}

// Policy bundles the thresholds a password must meet.
type Policy struct {
	MinLength  int
	MinClasses int
	Classes    []Rule
}

// DefaultPolicy matches the admin console's rule: at least 8 characters and
// any 3 of the 4 character classes.
var DefaultPolicy = Policy{
	MinLength:  8,
	MinClasses: 3,
	Classes:    classRules,
}

func (p Policy) classes(pw string) int {
	n := 0
	for _, rule := range p.Classes {
		if rule.Check(pw) {
			n++
		}
	}
	return n
}

// Meets reports whether pw satisfies the policy. Surrounding whitespace does
// not count toward length or classes; Score and Label rate the raw input.
func (p Policy) Meets(pw string) bool {
	pw = strings.TrimSpace(pw)
	return len(pw) >= p.MinLength && p.classes(pw) >= p.MinClasses
}

// Score rates pw from 0 to 100: one point for length, one per class present.
func (p Policy) Score(pw string) int {
	score := 0
	if len(pw) >= p.MinLength {
		score++
	}
	score += p.classes(pw)
	full := 1 + len(p.Classes)
	return score * 100 / full
}

// Label maps a score to a human-readable strength.
func (p Policy) Label(pw string) string {
	switch s := p.Score(pw); {
	case s >= 80:
		return "Strong"
	case s >= 60:
		return "Good"
	case s >= 40:
		return "Fair"
	case s > 0:
		return "Weak"
	default:
		return "Very weak"
	}
}
