package normalizer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrDateParse is reported when no layout matches. The normalizer resolves it
// to a nil publication date.
var ErrDateParse = errors.New("no date layout matched")

// DefaultLayouts are tried in order. Numeric dates are read day first, the
// convention of the sources this watcher was built for.
var DefaultLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	"January 2, 2006 15:04",
	"January 2, 2006",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
	"Jan. 2, 2006",
	"Monday, January 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2 January, 2006",
	"Jan 2 2006",
	"02/01/2006 15:04",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2006/01/02",
	"02/01/06",
	"02-01-06",
}

var (
	datePrefix = regexp.MustCompile(`(?i)^(?:original issue date|last updated|updated on|updated|published on|published|posted on|posted|date|issued)\s*[:\-]?\s*`)
	ordinal    = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)\b`)
	septAbbrev = regexp.MustCompile(`\bSept\b\.?`)
	trailingTZ = regexp.MustCompile(`\s+(?:IST|UTC|GMT)$`)
)

// ParseDate tries each layout in order and returns the first successful
// parse in UTC.
func ParseDate(raw string, layouts []string) (*time.Time, error) {
	value := cleanDate(raw)
	if value == "" {
		return nil, fmt.Errorf("%w: empty value", ErrDateParse)
	}

	candidates := []string{value}
	if stripped := trailingTZ.ReplaceAllString(value, ""); stripped != value {
		candidates = append(candidates, stripped)
	}

	for _, candidate := range candidates {
		for _, layout := range layouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				utc := t.UTC()

				return &utc, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrDateParse, raw)
}

func cleanDate(raw string) string {
	value := strings.Join(strings.Fields(raw), " ")
	value = datePrefix.ReplaceAllString(value, "")
	value = ordinal.ReplaceAllString(value, "$1")
	value = septAbbrev.ReplaceAllString(value, "Sep")

	return strings.TrimSpace(value)
}
