// Package utils provides common utility functions.
package utils

import (
	"strings"
	"unicode"
)

// NormalizeWhitespace replaces runs of whitespace with a single space.
func NormalizeWhitespace(str string) string {
	return strings.Join(strings.Fields(str), " ")
}

// TruncateString truncates str to at most maxRunes runes, appending "..."
// when anything was cut.
func TruncateString(str string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}

	runes := []rune(str)
	if len(runes) <= maxRunes {
		return str
	}

	return strings.TrimSpace(string(runes[:maxRunes])) + "..."
}

// SearchForm lowercases str, turns punctuation and symbols into spaces and
// collapses whitespace. Keyword matching runs against this form.
func SearchForm(str string) string {
	var sb strings.Builder

	sb.Grow(len(str))

	for _, r := range str {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteRune(' ')
		}
	}

	return NormalizeWhitespace(sb.String())
}

// Tokens splits the search form of str into words.
func Tokens(str string) []string {
	return strings.Fields(SearchForm(str))
}

// UniqueStrings returns values without duplicates, keeping first-seen order.
func UniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))

	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}

		seen[v] = true
		out = append(out, v)
	}

	return out
}
