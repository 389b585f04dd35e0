package normalizer

import (
	"errors"
	"fmt"
	"strings"

	"cybernews/internal/models"
)

// Validation errors.
var (
	ErrMissingSourceID = errors.New("record has no source id")
	ErrMissingURL      = errors.New("record has no url")
	ErrBlankField      = errors.New("present field is blank")
	ErrPartialMismatch = errors.New("partial flag disagrees with fields")
)

// Validate checks the invariants of an extracted record before it is
// normalized. A record with neither title nor body yields ErrEmptyRecord.
func Validate(rec models.ExtractedRecord) error {
	if rec.SourceID == "" {
		return ErrMissingSourceID
	}

	if rec.URL == "" {
		return ErrMissingURL
	}

	fields := map[string]string{
		"title":        rec.Title,
		"body":         rec.Body,
		"published_at": rec.PublishedAt,
	}

	for name, value := range fields {
		if value != "" && strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s", ErrBlankField, name)
		}
	}

	if !rec.Complete() && !rec.Partial {
		return ErrPartialMismatch
	}

	if rec.Title == "" && rec.Body == "" {
		return ErrEmptyRecord
	}

	return nil
}
