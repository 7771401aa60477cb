// Package nlp holds the in-process language heuristics: the help-like
// override, help subtype detection, a lexicon entity extractor and a keyword
// intent classifier. The ML classifier and semantic extractor remain
// external collaborators; these are the wired defaults.
package nlp

import (
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"

	"trip-hub/errors"
)

// Matcher wraps an Aho-Corasick automaton over a normalized keyword set and
// reports which keywords occur in a text. One automaton pass covers every
// family at once, instead of one scan per keyword.
type Matcher struct {
	machine *goahocorasick.Machine
}

// NewMatcher builds the automaton from the given keywords. Keywords are
// normalized the same way the searched text is, so matching is
// case-insensitive and ignores punctuation noise.
func NewMatcher(keywords []string) (*Matcher, error) {
	patterns := make([][]rune, 0, len(keywords))
	for _, k := range keywords {
		p := normalizeRunes([]rune(k))
		if len(p) == 0 {
			continue
		}
		patterns = append(patterns, p)
	}
	if len(patterns) == 0 {
		return nil, errors.ErrEmptyLexicon
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Matcher{machine: m}, nil
}

// Match returns the distinct normalized keywords found in text.
func (m *Matcher) Match(text string) []string {
	norm := normalizeRunes([]rune(text))
	if len(norm) == 0 {
		return nil
	}
	terms := m.machine.MultiPatternSearch(norm, false)
	if len(terms) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(terms))
	var found []string
	for _, t := range terms {
		word := string(t.Word)
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		found = append(found, word)
	}
	return found
}

// Contains reports whether any keyword occurs in text.
func (m *Matcher) Contains(text string) bool {
	norm := normalizeRunes([]rune(text))
	if len(norm) == 0 {
		return false
	}
	return len(m.machine.MultiPatternSearch(norm, true)) > 0
}

// normalizeRunes lowercases and collapses whitespace runs to single spaces
// so that multi-word keywords match across irregular spacing.
func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	lastSpace := true
	for _, r := range input {
		if unicode.IsSpace(r) {
			if !lastSpace {
				out = append(out, ' ')
				lastSpace = true
			}
			continue
		}
		out = append(out, unicode.ToLower(r))
		lastSpace = false
	}
	for len(out) > 0 && out[len(out)-1] == ' ' {
		out = out[:len(out)-1]
	}
	return out
}

func normalize(text string) string {
	return strings.TrimSpace(strings.ToLower(text))
}
