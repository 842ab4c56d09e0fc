package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ledger/internal/amqp"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/sheets"
)

// TransactionReader is satisfied by *services.QueryService.
type TransactionReader interface {
	TransactionRow(ctx context.Context, id int64) (core.TransactionRow, error)
}

// EventSource is satisfied by *amqp.Client.
type EventSource interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
}

// JournalWorker mirrors ledger events into the exported journal.
type JournalWorker struct {
	reader TransactionReader
	writer sheets.JournalWriter
}

func NewJournalWorker(reader TransactionReader, writer sheets.JournalWriter) *JournalWorker {
	return &JournalWorker{reader: reader, writer: writer}
}

// Run consumes events until ctx ends.
func (w *JournalWorker) Run(ctx context.Context, src EventSource) error {
	return src.ConsumeLedgerEvents(ctx, w.HandleLedgerEvent)
}

// HandleLedgerEvent appends one journal entry per transaction the event
// names. Transactions removed since the event was published are skipped.
// A returned error asks for redelivery.
func (w *JournalWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		applog.FieldEventID, ev.ID,
		applog.FieldEventKind, ev.Kind,
		"transaction_ids", ev.TransactionIDs)

	entries, err := w.entries(ctx, ev)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		slog.WarnContext(ctx, "Nothing to journal for event",
			applog.FieldEventID, ev.ID,
			applog.FieldEventKind, ev.Kind)
		return nil
	}

	ref, err := w.writer.AppendEntries(ctx, entries)
	if err != nil {
		return fmt.Errorf("append journal entries: %w", err)
	}

	slog.InfoContext(ctx, "Journaled ledger event",
		applog.FieldEventID, ev.ID,
		applog.FieldEventKind, ev.Kind,
		applog.FieldSheetsRef, ref,
		"entries", len(entries))
	return nil
}

func (w *JournalWorker) entries(ctx context.Context, ev *amqp.LedgerEvent) ([]core.JournalEntry, error) {
	if ev.Kind == amqp.KindTransactionDeleted {
		out := make([]core.JournalEntry, 0, len(ev.Deleted))
		for _, snap := range ev.Deleted {
			out = append(out, core.NewJournalEntry(ev.Kind, ev.OccurredAt, snap.Row()))
		}
		return out, nil
	}

	out := make([]core.JournalEntry, 0, len(ev.TransactionIDs))
	for _, id := range ev.TransactionIDs {
		row, err := w.reader.TransactionRow(ctx, id)
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Transaction gone before export, skipping",
				applog.FieldEventID, ev.ID,
				applog.FieldTransactionID, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read transaction %d: %w", id, err)
		}
		out = append(out, core.NewJournalEntry(ev.Kind, ev.OccurredAt, row))
	}
	return out, nil
}
