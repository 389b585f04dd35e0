package extractor

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrExtractionQuality marks content rejected as implausible. It is never
// fatal: the extractor falls through to the next strategy.
var ErrExtractionQuality = errors.New("extraction below quality threshold")

const (
	minTitleRunes = 4
	maxTitleRunes = 400
)

// boilerplateMarkers identify sentences that belong to page chrome rather
// than article text.
var boilerplateMarkers = []string{
	"cookie",
	"subscribe",
	"sign in",
	"sign up",
	"log in",
	"all rights reserved",
	"enable javascript",
	"privacy policy",
	"terms of use",
	"newsletter",
	"advertisement",
	"follow us",
	"share this",
	"skip to content",
}

// blockedTitles are page titles served instead of an article.
var blockedTitles = []string{
	"access denied",
	"403 forbidden",
	"404 not found",
	"page not found",
	"just a moment",
	"attention required",
	"service unavailable",
}

// Quality holds the plausibility rules for extracted fields.
type Quality struct {
	MinBodyLength       int
	MaxBoilerplateRatio float64
}

// QualityFromConfig builds the rules from extraction settings.
func QualityFromConfig(minBodyLength int, maxBoilerplateRatio float64) Quality {
	return Quality{MinBodyLength: minBodyLength, MaxBoilerplateRatio: maxBoilerplateRatio}
}

// CheckTitle rejects titles that are too short, too long or error pages.
func (q Quality) CheckTitle(title string) error {
	n := utf8.RuneCountInString(title)
	if n < minTitleRunes || n > maxTitleRunes {
		return fmt.Errorf("%w: title length %d", ErrExtractionQuality, n)
	}

	lower := strings.ToLower(title)
	for _, blocked := range blockedTitles {
		if strings.HasPrefix(lower, blocked) {
			return fmt.Errorf("%w: error page title %q", ErrExtractionQuality, title)
		}
	}

	return nil
}

// CheckBody rejects bodies shorter than the minimum or dominated by boilerplate.
func (q Quality) CheckBody(body string) error {
	if n := utf8.RuneCountInString(body); n < q.MinBodyLength {
		return fmt.Errorf("%w: body length %d below %d", ErrExtractionQuality, n, q.MinBodyLength)
	}

	if q.MaxBoilerplateRatio > 0 {
		if ratio := BoilerplateRatio(body); ratio > q.MaxBoilerplateRatio {
			return fmt.Errorf("%w: boilerplate ratio %.2f above %.2f", ErrExtractionQuality, ratio, q.MaxBoilerplateRatio)
		}
	}

	return nil
}

// BoilerplateRatio returns the fraction of sentences containing a
// boilerplate marker.
func BoilerplateRatio(body string) float64 {
	sentences := splitSentences(body)
	if len(sentences) == 0 {
		return 0
	}

	boiler := 0

	for _, s := range sentences {
		lower := strings.ToLower(s)

		for _, marker := range boilerplateMarkers {
			if strings.Contains(lower, marker) {
				boiler++

				break
			}
		}
	}

	return float64(boiler) / float64(len(sentences))
}

func splitSentences(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n' || r == '|'
	})

	sentences := fields[:0]

	for _, f := range fields {
		if s := strings.TrimSpace(f); s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}
