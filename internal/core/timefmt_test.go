package core

import (
	"errors"
	"testing"
	"time"
)

func TestFormatDisplayDatetime(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 14, 7, 0, 0, time.UTC)
	if got := FormatDisplayDatetime(ts, nil); got != "05 Mar 2024, 14:07" {
		t.Fatalf("got %q", got)
	}
	rome := time.FixedZone("CET", 3600)
	if got := FormatDisplayDatetime(ts, rome); got != "05 Mar 2024, 15:07" {
		t.Fatalf("got %q in fixed zone", got)
	}
}

func TestFormInputRoundTrip(t *testing.T) {
	zones := []*time.Location{time.UTC, time.FixedZone("X", -5*3600), time.FixedZone("Y", 5*3600+1800)}
	inputs := []string{"2024-01-31T23:59", "2023-01-01T00:00", "2025-06-15T08:30"}
	for _, loc := range zones {
		for _, in := range inputs {
			ts, err := ParseFormInput(in, loc)
			if err != nil {
				t.Fatalf("parse %q: %v", in, err)
			}
			if ts.Location() != time.UTC {
				t.Fatalf("parsed instant not UTC: %v", ts.Location())
			}
			stored := FormatStorage(ts)
			back, err := ParseStorage(stored)
			if err != nil {
				t.Fatalf("parse storage %q: %v", stored, err)
			}
			if got := FormatForInput(back, loc); got != in {
				t.Errorf("round trip in %s: %q -> %q", loc, in, got)
			}
		}
	}
}

func TestParseFormInputInvalid(t *testing.T) {
	for _, in := range []string{"", "2024-13-01T00:00", "yesterday", "2024-01-01"} {
		if _, err := ParseFormInput(in, time.UTC); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%q: expected ErrInvalidInput, got %v", in, err)
		}
	}
}

func TestStorageLayoutOrdersLexically(t *testing.T) {
	a := FormatStorage(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	b := FormatStorage(time.Date(2024, 1, 2, 3, 4, 5, int(time.Millisecond), time.UTC))
	c := FormatStorage(time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC))
	if !(a < b && b < c) {
		t.Fatalf("unexpected order: %s %s %s", a, b, c)
	}
	if len(a) != len(c) {
		t.Fatalf("layout not fixed width")
	}
}
