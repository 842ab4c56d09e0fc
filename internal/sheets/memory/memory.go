package memory

import (
	"context"
	"fmt"
	"sync"

	"ledger/internal/core"
	"ledger/internal/sheets"
)

// Journal keeps exported entries in process. The worker uses it when no
// spreadsheet is configured.
type Journal struct {
	mu      sync.Mutex
	entries []core.JournalEntry
}

var _ sheets.JournalWriter = (*Journal)(nil)

func New() *Journal {
	return &Journal{}
}

// AppendEntries stores the entries and returns a synthetic row reference.
func (j *Journal) AppendEntries(_ context.Context, entries []core.JournalEntry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	first := len(j.entries) + 1
	j.entries = append(j.entries, entries...)
	return fmt.Sprintf("mem:%d-%d", first, len(j.entries)), nil
}

// Entries returns a copy of everything appended so far.
func (j *Journal) Entries() []core.JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]core.JournalEntry(nil), j.entries...)
}
