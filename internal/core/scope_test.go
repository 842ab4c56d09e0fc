package core

import (
	"errors"
	"testing"
	"time"
)

func TestResolveRange(t *testing.T) {
	now := time.Date(2024, time.May, 10, 22, 30, 0, 0, time.UTC)

	tests := []struct {
		name         string
		start, end   string
		wantStart    string
		wantEnd      string
		wantExplicit bool
		wantErr      bool
	}{
		{"defaults", "", "", "2023-01-01", "2024-05-11", false, false},
		{"explicit start", "2024-01-01", "", "2024-01-01", "2024-05-11", true, false},
		{"explicit end", "", "2024-02-29", "2023-01-01", "2024-02-29", true, false},
		{"both", "2024-02-01", "2024-02-29", "2024-02-01", "2024-02-29", true, false},
		{"bad start", "01/02/2024", "", "", "", false, true},
		{"bad end", "", "2024-02-30", "", "", false, true},
		{"inverted", "2024-03-01", "2024-02-01", "", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ResolveRange(tt.start, tt.end, now, DefaultEpoch, time.UTC)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.StartDate() != tt.wantStart || r.EndDate() != tt.wantEnd {
				t.Errorf("range = %s..%s, want %s..%s", r.StartDate(), r.EndDate(), tt.wantStart, tt.wantEnd)
			}
			if r.Explicit != tt.wantExplicit {
				t.Errorf("explicit = %v, want %v", r.Explicit, tt.wantExplicit)
			}
		})
	}
}

func TestDateRangeBoundsIncludeWholeEndDay(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	r, err := ResolveRange("2024-02-01", "2024-02-29", time.Now(), DefaultEpoch, loc)
	if err != nil {
		t.Fatal(err)
	}
	from, to := r.Bounds()
	if want := time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC); !from.Equal(want) {
		t.Errorf("from = %v, want %v", from, want)
	}
	if want := time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC); !to.Equal(want) {
		t.Errorf("to = %v, want %v", to, want)
	}
}

func TestScopeKey(t *testing.T) {
	if AllScope().Key() != "all" || ByAccount(3).Key() != "account:3" || ByTag(7).Key() != "tag:7" {
		t.Fatal("unexpected scope keys")
	}
}

func TestOptions(t *testing.T) {
	accs := AccountOptions([]Account{{1, "A"}, {2, "B"}}, 2)
	if accs[0].Selected || !accs[1].Selected {
		t.Errorf("account options = %+v", accs)
	}
	tags := TagOptions([]Tag{{1, "x"}, {2, "y"}, {3, "z"}}, []int64{3, 1})
	if !tags[0].Selected || tags[1].Selected || !tags[2].Selected {
		t.Errorf("tag options = %+v", tags)
	}
	if got := DedupeIDs([]int64{3, 1, 3, 2, 1}); len(got) != 3 || got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Errorf("DedupeIDs = %v", got)
	}
}
