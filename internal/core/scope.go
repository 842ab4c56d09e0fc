package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	ScopeAll ScopeKind = iota
	ScopeAccount
	ScopeTag
)

// DefaultEpoch is the range start used when no start date is given.
var DefaultEpoch = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

type (
	ScopeKind int

	// Scope selects which transactions a query or aggregate considers.
	Scope struct {
		Kind ScopeKind
		ID   int64
	}

	// DateRange is an inclusive interval of calendar days. Start and End are
	// local midnights; transactions match when Start <= ts < End+1 day.
	DateRange struct {
		Start    time.Time
		End      time.Time
		Explicit bool // at least one bound came from the caller
	}
)

func AllScope() Scope { return Scope{Kind: ScopeAll} }
func ByAccount(id int64) Scope { return Scope{Kind: ScopeAccount, ID: id} }
func ByTag(id int64) Scope { return Scope{Kind: ScopeTag, ID: id} }
func (s Scope) IsAll() bool { return s.Kind == ScopeAll }
func (s Scope) IsAccount() bool { return s.Kind == ScopeAccount }
func (s Scope) IsTag() bool { return s.Kind == ScopeTag }

// Key identifies the scope in caches and logs.
func (s Scope) Key() string {
	switch s.Kind {
	case ScopeAccount:
		return fmt.Sprintf("account:%d", s.ID)
	case ScopeTag:
		return fmt.Sprintf("tag:%d", s.ID)
	default:
		return "all"
	}
}

// ResolveRange builds the effective range from two optional YYYY-MM-DD
// strings. A missing start falls back to epoch; a missing end falls back to
// the day after now, so transactions recorded later today are included.
// Dates are interpreted in loc.
func ResolveRange(startDate, endDate string, now, epoch time.Time, loc *time.Location) (DateRange, error) {
	loc = locOrUTC(loc)
	startDate = strings.TrimSpace(startDate)
	endDate = strings.TrimSpace(endDate)

	r := DateRange{Explicit: startDate != "" || endDate != ""}

	if startDate != "" {
		t, err := time.ParseInLocation(DateLayout, startDate, loc)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: invalid start date %q", ErrInvalidInput, startDate)
		}
		r.Start = t
	} else {
		y, m, d := epoch.Date()
		r.Start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	}

	if endDate != "" {
		t, err := time.ParseInLocation(DateLayout, endDate, loc)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: invalid end date %q", ErrInvalidInput, endDate)
		}
		r.End = t
	} else {
		y, m, d := now.In(loc).Date()
		r.End = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	}

	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("%w: end date %s before start date %s",
			ErrInvalidInput, r.End.Format(DateLayout), r.Start.Format(DateLayout))
	}
	return r, nil
}

// Bounds returns the half-open UTC instant interval [from, to) covered by r.
func (r DateRange) Bounds() (from, to time.Time) {
	y, m, d := r.End.Date()
	return r.Start.UTC(), time.Date(y, m, d+1, 0, 0, 0, 0, r.End.Location()).UTC()
}

// StartDate and EndDate render the bounds for range forms.
func (r DateRange) StartDate() string { return r.Start.Format(DateLayout) }
func (r DateRange) EndDate() string { return r.End.Format(DateLayout) }
