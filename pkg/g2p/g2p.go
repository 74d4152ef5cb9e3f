// Package g2p implements grapheme-to-phoneme prediction via ordered
// rewrite rules, for words absent from a voice's pronunciation dictionary.
package g2p

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// WhitespaceChar sentinel-brackets a word before rule matching, so
// word-boundary context can be expressed the same way as interior context.
const WhitespaceChar = "#"

// GraphemeNotDefined is returned when a word contains a grapheme with no
// rule list at all.
type GraphemeNotDefined struct {
	Word     string
	Grapheme string
}

func (e *GraphemeNotDefined) Error() string {
	return fmt.Sprintf("g2p: grapheme %q not defined (word %q)", e.Grapheme, e.Word)
}

// NoRuleFound is returned when a grapheme has a rule list but none of its
// rules match the surrounding context.
type NoRuleFound struct {
	Word     string
	Grapheme string
}

func (e *NoRuleFound) Error() string {
	return fmt.Sprintf("g2p: no rule matched for grapheme %q in word %q", e.Grapheme, e.Word)
}

// Rule is one context-sensitive grapheme rewrite:
// (grapheme, left-context, right-context, phoneme, ordinal).
//
// A rule matches an input position when its left-context is a suffix of
// the input's left-context and its right-context is a prefix of the
// input's right-context — i.e. the rule's context need not span the whole
// remaining word, only the part closest to the grapheme. Phoneme may be
// empty, meaning the grapheme produces no phone (a "pnull").
type Rule struct {
	Grapheme     string
	LeftContext  string
	RightContext string
	Phoneme      string
	Ordinal      int
}

// Match reports whether r applies given the actual left and right context
// strings surrounding a grapheme.
func (r Rule) Match(leftContext, rightContext string) bool {
	if !strings.HasSuffix(leftContext, r.LeftContext) {
		return false
	}
	return strings.HasPrefix(rightContext, r.RightContext)
}

// RuleSet holds every rewrite rule, grouped by grapheme and sorted most
// specific first, plus the gnulls digraph-splitting substitutions and the
// whitespace-sentinel word wrapping predict_word applies before matching.
type RuleSet struct {
	rules  map[string][]Rule
	gnulls map[string]string
	// gnullOrder preserves insertion order so substitution is
	// deterministic when multiple gnulls could apply to overlapping text.
	gnullOrder []string
}

// NewRuleSet returns an empty, ready-to-populate RuleSet.
func NewRuleSet() *RuleSet {
	return &RuleSet{rules: make(map[string][]Rule), gnulls: make(map[string]string)}
}

// AddRule registers a rule under its grapheme. Call Finalize after adding
// every rule so each grapheme's list is sorted by ordinal descending.
func (rs *RuleSet) AddRule(r Rule) {
	rs.rules[r.Grapheme] = append(rs.rules[r.Grapheme], r)
}

// Finalize sorts each grapheme's rule list from most specific context to
// least specific (ordinal descending), as rule application requires.
func (rs *RuleSet) Finalize() {
	for g := range rs.rules {
		list := rs.rules[g]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Ordinal > list[j].Ordinal })
		rs.rules[g] = list
	}
}

// SetGnull registers a gnull substitution: pattern, when found in the
// sentinel-wrapped word, is replaced with replacement (typically pattern
// with a null grapheme '0' spliced in, to split an orthographic digraph
// into two rule-matchable positions).
func (rs *RuleSet) SetGnull(pattern, replacement string) {
	if _, exists := rs.gnulls[pattern]; !exists {
		rs.gnullOrder = append(rs.gnullOrder, pattern)
	}
	rs.gnulls[pattern] = replacement
}

// applyGnulls performs every registered gnull substitution on word, in
// registration order.
func (rs *RuleSet) applyGnulls(word string) string {
	for _, pattern := range rs.gnullOrder {
		word = strings.ReplaceAll(word, pattern, rs.gnulls[pattern])
	}
	return word
}

// PredictWord predicts the phone sequence for word by sentinel-wrapping it,
// applying gnulls, then scanning each interior grapheme's rule list in
// order and taking the first match's phoneme (skipping empty "pnull"
// phonemes). Fails with [GraphemeNotDefined] if a grapheme has no rule
// list, or [NoRuleFound] if none of its rules match.
func (rs *RuleSet) PredictWord(word string) ([]string, error) {
	var phones []string

	wrapped := WhitespaceChar + word + WhitespaceChar
	wrapped = rs.applyGnulls(wrapped)
	runes := []rune(wrapped)

	for i := 1; i < len(runes)-1; i++ {
		lc := string(runes[:i])
		g := string(runes[i])
		rc := string(runes[i+1:])

		rulelist, ok := rs.rules[g]
		if !ok {
			return nil, &GraphemeNotDefined{Word: wrapped, Grapheme: g}
		}

		matched := false
		for _, rule := range rulelist {
			if rule.Match(lc, rc) {
				if rule.Phoneme != "" {
					phones = append(phones, rule.Phoneme)
				}
				matched = true
				break
			}
		}
		if !matched {
			return nil, &NoRuleFound{Word: wrapped, Grapheme: g}
		}
	}
	return phones, nil
}

// MapPhones rewrites every rule's phoneme through phonemap, failing if a
// phoneme used by a rule is absent from the map.
func (rs *RuleSet) MapPhones(phonemap map[string]string) error {
	for g, list := range rs.rules {
		for i, r := range list {
			mapped, ok := phonemap[r.Phoneme]
			if !ok {
				if r.Phoneme == "" {
					continue
				}
				return fmt.Errorf("g2p: phoneme %q has no entry in phone map", r.Phoneme)
			}
			list[i].Phoneme = mapped
		}
		rs.rules[g] = list
	}
	return nil
}

// errOneToOne is returned by [LoadSimpleMapFile] when a mapping file
// violates the one-to-one invariant its loader enforces.
var errOneToOne = errors.New("g2p: mapping file is not one-to-one")
