package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DisplayLayout is the human readable datetime, e.g. "05 Mar 2024, 14:07".
	DisplayLayout = "02 Jan 2006, 15:04"
	// InputLayout matches the value of an <input type="datetime-local">.
	InputLayout = "2006-01-02T15:04"
	// DateLayout is the YYYY-MM-DD form used for range bounds.
	DateLayout = "2006-01-02"
	// StorageLayout is fixed width so that lexical order equals time order.
	StorageLayout = "2006-01-02T15:04:05.000Z"
)

// FormatDisplayDatetime renders t in loc using DisplayLayout.
func FormatDisplayDatetime(t time.Time, loc *time.Location) string {
	return t.In(locOrUTC(loc)).Format(DisplayLayout)
}

// FormatForInput renders t in loc as a form value accepted by ParseFormInput.
func FormatForInput(t time.Time, loc *time.Location) string {
	return t.In(locOrUTC(loc)).Format(InputLayout)
}

// ParseFormInput parses a local form value in loc and returns the UTC instant.
// Seconds are accepted and kept.
func ParseFormInput(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	layouts := []string{InputLayout, "2006-01-02T15:04:05"}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, locOrUTC(loc)); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid datetime %q", ErrInvalidInput, s)
}

// FormatStorage renders t for persistence.
func FormatStorage(t time.Time) string {
	return t.UTC().Format(StorageLayout)
}

// ParseStorage is the inverse of FormatStorage. RFC 3339 values are accepted
// as well.
func ParseStorage(s string) (time.Time, error) {
	if t, err := time.Parse(StorageLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func locOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
