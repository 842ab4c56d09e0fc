package core

import (
	"strconv"
	"time"
)

// JournalEntry is one line of the exported ledger journal.
type JournalEntry struct {
	OccurredAt    time.Time
	Kind          string
	TransactionID int64
	Timestamp     time.Time
	Account       string
	Description   string
	Amount        Money
	Tags          string
}

// NewJournalEntry builds an entry from a listed transaction row.
func NewJournalEntry(kind string, occurredAt time.Time, row TransactionRow) JournalEntry {
	return JournalEntry{
		OccurredAt:    occurredAt,
		Kind:          kind,
		TransactionID: row.ID,
		Timestamp:     row.Timestamp,
		Account:       row.AccountName,
		Description:   row.Description,
		Amount:        row.Amount,
		Tags:          row.Tags,
	}
}

// Values renders the entry as a spreadsheet row.
func (e JournalEntry) Values(loc *time.Location) []any {
	return []any{
		FormatDisplayDatetime(e.OccurredAt, loc),
		e.Kind,
		strconv.FormatInt(e.TransactionID, 10),
		FormatDisplayDatetime(e.Timestamp, loc),
		e.Account,
		e.Description,
		FormatAmount(e.Amount),
		e.Tags,
	}
}
