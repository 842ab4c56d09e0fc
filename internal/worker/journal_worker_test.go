package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/sheets"
	"ledger/internal/sheets/memory"
)

type fakeReader struct {
	rows map[int64]core.TransactionRow
	err  error
}

func (f *fakeReader) TransactionRow(_ context.Context, id int64) (core.TransactionRow, error) {
	if f.err != nil {
		return core.TransactionRow{}, f.err
	}
	row, ok := f.rows[id]
	if !ok {
		return core.TransactionRow{}, fmt.Errorf("get transaction %d: %w", id, core.ErrNotFound)
	}
	return row, nil
}

type failingWriter struct{}

func (failingWriter) AppendEntries(context.Context, []core.JournalEntry) (string, error) {
	return "", errors.New("quota exceeded")
}

type fakeSource struct {
	events []*amqp.LedgerEvent
	errs   []error
}

func (s *fakeSource) ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error {
	for _, ev := range s.events {
		s.errs = append(s.errs, handler(ctx, ev))
	}
	return nil
}

var ts = time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)

func row(id, account int64, cents int64, desc string) core.TransactionRow {
	return core.TransactionRow{
		Transaction: core.Transaction{ID: id, Timestamp: ts, Amount: core.Money{Cents: cents}, Description: desc, AccountID: account},
		AccountName: fmt.Sprintf("acct-%d", account),
	}
}

func TestHandleLedgerEvent_Transfer(t *testing.T) {
	reader := &fakeReader{rows: map[int64]core.TransactionRow{
		1: row(1, 1, -5000, "transfer to acct-2"),
		2: row(2, 2, 5000, "transfer from acct-1"),
	}}
	journal := memory.New()
	w := NewJournalWorker(reader, journal)

	ev := amqp.NewLedgerEvent(amqp.KindTransferCreated, []int64{1, 2}, []int64{1, 2})
	if err := w.HandleLedgerEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleLedgerEvent: %v", err)
	}

	got := journal.Entries()
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].TransactionID != 1 || got[0].Amount.Cents != -5000 || got[0].Kind != amqp.KindTransferCreated {
		t.Errorf("first entry = %+v", got[0])
	}
	if got[1].Account != "acct-2" || !got[1].OccurredAt.Equal(ev.OccurredAt) {
		t.Errorf("second entry = %+v", got[1])
	}
}

func TestHandleLedgerEvent_DeletedUsesSnapshot(t *testing.T) {
	journal := memory.New()
	w := NewJournalWorker(&fakeReader{}, journal)

	deleted := row(9, 3, -700, "dinner")
	deleted.Tags = "Food"
	ev := amqp.NewDeletedEvent(deleted)

	if err := w.HandleLedgerEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleLedgerEvent: %v", err)
	}

	got := journal.Entries()
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	if got[0].TransactionID != 9 || got[0].Tags != "Food" || got[0].Description != "dinner" || got[0].Kind != amqp.KindTransactionDeleted {
		t.Errorf("entry = %+v", got[0])
	}
}

func TestHandleLedgerEvent_SkipsVanishedTransactions(t *testing.T) {
	reader := &fakeReader{rows: map[int64]core.TransactionRow{1: row(1, 1, 100, "salary")}}
	journal := memory.New()
	w := NewJournalWorker(reader, journal)

	ev := amqp.NewLedgerEvent(amqp.KindTransactionUpdated, []int64{1, 42}, []int64{1})
	if err := w.HandleLedgerEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleLedgerEvent: %v", err)
	}
	if got := journal.Entries(); len(got) != 1 || got[0].TransactionID != 1 {
		t.Errorf("entries = %+v, want only transaction 1", got)
	}

	ev = amqp.NewLedgerEvent(amqp.KindTransactionCreated, []int64{42}, []int64{1})
	if err := w.HandleLedgerEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleLedgerEvent with nothing to export: %v", err)
	}
	if got := journal.Entries(); len(got) != 1 {
		t.Errorf("entries = %d, want unchanged 1", len(got))
	}
}

func TestHandleLedgerEvent_Errors(t *testing.T) {
	tests := []struct {
		name   string
		reader *fakeReader
		writer sheets.JournalWriter
	}{
		{
			name:   "storage failure",
			reader: &fakeReader{err: fmt.Errorf("boom: %w", core.ErrStorageFailure)},
			writer: memory.New(),
		},
		{
			name:   "writer failure",
			reader: &fakeReader{rows: map[int64]core.TransactionRow{1: row(1, 1, 100, "salary")}},
			writer: failingWriter{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewJournalWorker(tt.reader, tt.writer)
			ev := amqp.NewLedgerEvent(amqp.KindTransactionCreated, []int64{1}, []int64{1})
			if err := w.HandleLedgerEvent(context.Background(), ev); err == nil {
				t.Fatal("expected an error so the event is redelivered")
			}
		})
	}
}

func TestRunDispatchesEvents(t *testing.T) {
	reader := &fakeReader{rows: map[int64]core.TransactionRow{
		1: row(1, 1, 100, "a"),
		2: row(2, 1, 200, "b"),
	}}
	journal := memory.New()
	src := &fakeSource{events: []*amqp.LedgerEvent{
		amqp.NewLedgerEvent(amqp.KindTransactionCreated, []int64{1}, []int64{1}),
		amqp.NewLedgerEvent(amqp.KindTransactionCreated, []int64{2}, []int64{1}),
	}}

	if err := NewJournalWorker(reader, journal).Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, err := range src.errs {
		if err != nil {
			t.Errorf("event %d: %v", i, err)
		}
	}
	if got := len(journal.Entries()); got != 2 {
		t.Errorf("journal has %d entries, want 2", got)
	}
}
