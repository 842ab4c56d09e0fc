package sheets

import (
	"context"

	"ledger/internal/core"
)

// Ports for outbound adapters.
type (
	// JournalWriter appends entries to the exported journal in order and
	// returns a reference to the written rows.
	JournalWriter interface {
		AppendEntries(ctx context.Context, entries []core.JournalEntry) (ref string, err error)
	}
)

// JournalHeader names the journal columns, matching core.JournalEntry.Values.
var JournalHeader = []any{"Occurred at", "Event", "Transaction", "Date", "Account", "Description", "Amount", "Tags"}
