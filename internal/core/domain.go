package core

import (
	"errors"
	"time"
)

type (
	Account struct {
		ID   int64
		Name string
	}

	Tag struct {
		ID   int64
		Name string
	}

	// Transaction is one ledger record. The sign of Amount is the direction:
	// positive is income, negative is expense.
	Transaction struct {
		ID          int64
		Timestamp   time.Time // UTC
		Amount      Money
		Description string
		AccountID   int64
		Notes       string
	}

	// TransactionRow is a transaction annotated for listing.
	TransactionRow struct {
		Transaction
		AccountName string
		Tags        string // comma-joined tag names, empty when untagged
	}

	// Option is an account or tag entry of an edit form.
	Option struct {
		ID       int64
		Name     string
		Selected bool
	}

	// TransactionForm carries everything an edit form needs.
	TransactionForm struct {
		Transaction Transaction
		TagIDs      []int64
		Accounts    []Option
		Tags        []Option
	}

	// LedgerView is the result of listing a scope over a range together with
	// its lifetime total and, when a range was requested, the range total.
	LedgerView struct {
		Rows       []TransactionRow
		Total      Money
		RangeTotal *Money
		Range      DateRange
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidReference = errors.New("invalid reference")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStorageFailure   = errors.New("storage failure")
)

// AccountOptions marks the account with id selected.
func AccountOptions(accounts []Account, selected int64) []Option {
	out := make([]Option, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, Option{ID: a.ID, Name: a.Name, Selected: a.ID == selected})
	}
	return out
}

// TagOptions marks every tag contained in selected.
func TagOptions(tags []Tag, selected []int64) []Option {
	set := make(map[int64]struct{}, len(selected))
	for _, id := range selected {
		set[id] = struct{}{}
	}
	out := make([]Option, 0, len(tags))
	for _, t := range tags {
		_, ok := set[t.ID]
		out = append(out, Option{ID: t.ID, Name: t.Name, Selected: ok})
	}
	return out
}

// DedupeIDs returns ids without repetitions, keeping first occurrence order.
func DedupeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
