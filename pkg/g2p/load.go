package g2p

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// LoadSimpleMapFile reads a one-to-one mapping file ("1;p" per line) such
// as a phone or grapheme map.
func LoadSimpleMapFile(r io.Reader) (map[string]string, error) {
	mapping := make(map[string]string)
	seenValues := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ";", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("g2p: malformed map line %q", line)
		}
		a, b := parts[0], parts[1]
		if _, exists := mapping[a]; exists {
			return nil, errOneToOne
		}
		if _, exists := seenValues[b]; exists {
			return nil, errOneToOne
		}
		mapping[a] = b
		seenValues[b] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return mapping, nil
}

// LoadGnulls reads a gnulls mapping file ("uk;u0k" per line, with literal
// spaces standing in for the whitespace sentinel) into rs.
func (rs *RuleSet) LoadGnulls(r io.Reader, wchar string) error {
	if wchar == "" {
		wchar = WhitespaceChar
	}
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\n")
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ";", 2)
		if len(parts) != 2 {
			return fmt.Errorf("g2p: malformed gnulls line %q", line)
		}
		a := strings.ReplaceAll(parts[0], " ", wchar)
		b := strings.ReplaceAll(parts[1], " ", wchar)
		if _, exists := seen[a]; exists {
			return fmt.Errorf("g2p: gnulls keys are not unique (%q)", a)
		}
		seen[a] = struct{}{}
		rs.SetGnull(a, b)
	}
	return scanner.Err()
}

// LoadRulesetSemicolon reads the "dictionarymaker" semicolon-delimited
// rule format:
//
//	grapheme;left_context;right_context;phoneme;ordinal;count
//
// with literal spaces in the context fields standing in for the
// whitespace sentinel. The trailing count field is accepted but unused.
// Rules are sorted (most specific context first) before returning.
func LoadRulesetSemicolon(r io.Reader, wchar string) (*RuleSet, error) {
	if wchar == "" {
		wchar = WhitespaceChar
	}
	rs := NewRuleSet()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\n")
		if line == "" {
			continue
		}
		fields := strings.Split(line, ";")
		if len(fields) != 6 {
			return nil, fmt.Errorf("g2p: malformed rule line %q", line)
		}
		g, l, r2, p, o := fields[0], fields[1], fields[2], fields[3], fields[4]
		l = strings.ReplaceAll(l, " ", wchar)
		r2 = strings.ReplaceAll(r2, " ", wchar)
		ordinal, err := strconv.Atoi(o)
		if err != nil {
			return nil, fmt.Errorf("g2p: invalid ordinal %q in line %q: %w", o, line, err)
		}
		rs.AddRule(Rule{Grapheme: g, LeftContext: l, RightContext: r2, Phoneme: p, Ordinal: ordinal})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	rs.Finalize()
	return rs, nil
}
