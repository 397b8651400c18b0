// Package categorize assigns every transaction an expense category.
package categorize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/insightdelivered/statement-expenses/internal/config"
)

type rule struct {
	category string
	keywords []string
}

// RuleSet is the ordered keyword table plus the valid category names.
type RuleSet struct {
	rules           []rule
	names           []string
	byFold          map[string]string
	defaultCategory string
}

// NewRuleSet builds a rule set from cats in priority order. defaultCategory
// is added to the valid set when cats does not contain it.
func NewRuleSet(cats []config.Category, defaultCategory string) *RuleSet {
	rs := &RuleSet{byFold: make(map[string]string), defaultCategory: defaultCategory}

	for _, c := range cats {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := rs.byFold[key]; dup {
			continue
		}
		rs.byFold[key] = name
		rs.names = append(rs.names, name)

		r := rule{category: name}
		for _, kw := range c.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				r.keywords = append(r.keywords, kw)
			}
		}
		rs.rules = append(rs.rules, r)
	}

	if canon, ok := rs.byFold[strings.ToLower(defaultCategory)]; ok {
		rs.defaultCategory = canon
	} else {
		rs.byFold[strings.ToLower(defaultCategory)] = defaultCategory
		rs.names = append(rs.names, defaultCategory)
	}
	return rs
}

// Match returns the first category, in rule order, with a keyword that is a
// substring of the description.
func (rs *RuleSet) Match(description string) (string, bool) {
	desc := strings.ToLower(description)
	for _, r := range rs.rules {
		for _, kw := range r.keywords {
			if strings.Contains(desc, kw) {
				return r.category, true
			}
		}
	}
	return "", false
}

// Valid reports whether name is a category, ignoring case, and returns its
// configured spelling.
func (rs *RuleSet) Valid(name string) (string, bool) {
	canon, ok := rs.byFold[strings.ToLower(strings.TrimSpace(name))]
	return canon, ok
}

// Names returns the valid categories in rule order.
func (rs *RuleSet) Names() []string {
	out := make([]string, len(rs.names))
	copy(out, rs.names)
	return out
}

// Default returns the catch-all category.
func (rs *RuleSet) Default() string { return rs.defaultCategory }

var upper = cases.Upper(language.Und)

// NormalizeDescription produces the learned-rule key for a description:
// NFKC folded, upper-cased, digits and punctuation removed, whitespace
// collapsed. "Whole Foods #1024 Austin" and "WHOLE FOODS #0988  AUSTIN"
// share a key.
func NormalizeDescription(description string) string {
	s := upper.String(norm.NFKC.String(description))
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r):
			return r
		case unicode.IsDigit(r):
			return -1
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
