package classifier

import (
	"sort"
	"strings"

	"cybernews/pkg/utils"
)

type phrase struct {
	label  string
	tokens []string
	weight int
}

// matcher finds phrases in a token stream. At each position the longest
// phrase wins and matching resumes after it, so matches never overlap and
// "data breach" is not also counted as "breach".
type matcher struct {
	byFirst map[string][]phrase
	prefix  bool
}

// match is a phrase found in the text.
type match struct {
	phrase phrase
	pos    int
}

func newMatcher(prefix bool) *matcher {
	return &matcher{byFirst: make(map[string][]phrase), prefix: prefix}
}

// add registers term under label. A term already registered keeps its first
// label and weight.
func (m *matcher) add(term, label string, weight int) {
	tokens := utils.Tokens(term)
	if len(tokens) == 0 {
		return
	}

	key := strings.Join(tokens, " ")

	for _, list := range m.byFirst {
		for _, p := range list {
			if strings.Join(p.tokens, " ") == key {
				return
			}
		}
	}

	first := tokens[0]
	if m.prefix {
		first = ""
	}

	list := append(m.byFirst[first], phrase{
		label:  label,
		tokens: tokens,
		weight: weight,
	})

	sort.SliceStable(list, func(i, j int) bool {
		return len(list[i].tokens) > len(list[j].tokens)
	})

	m.byFirst[first] = list
}

// find returns every non-overlapping match in text order.
func (m *matcher) find(tokens []string) []match {
	var out []match

	for i := 0; i < len(tokens); {
		key := tokens[i]
		if m.prefix {
			key = ""
		}

		matched := false

		for _, p := range m.byFirst[key] {
			if m.matchesAt(tokens, i, p) {
				out = append(out, match{phrase: p, pos: i})
				i += len(p.tokens)
				matched = true

				break
			}
		}

		if !matched {
			i++
		}
	}

	return out
}

func (m *matcher) matchesAt(tokens []string, at int, p phrase) bool {
	if at+len(p.tokens) > len(tokens) {
		return false
	}

	last := len(p.tokens) - 1

	for k, tok := range p.tokens {
		got := tokens[at+k]

		if m.prefix && k == last {
			if !strings.HasPrefix(got, tok) {
				return false
			}

			continue
		}

		if got != tok {
			return false
		}
	}

	return true
}

// contains reports whether at least one phrase occurs in tokens.
func (m *matcher) contains(tokens []string) bool {
	return len(m.find(tokens)) > 0
}
