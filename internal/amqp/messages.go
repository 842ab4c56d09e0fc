package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ledger/internal/core"
)

// Event kinds published after a committed ledger mutation.
const (
	KindTransactionCreated = "transaction.created"
	KindTransactionUpdated = "transaction.updated"
	KindTransactionDeleted = "transaction.deleted"
	KindTransferCreated    = "transfer.created"
)

// LedgerEvent announces that one or more transactions changed. Consumers
// read current state from the store by id; deleted transactions travel as
// snapshots because nothing is left to read.
type LedgerEvent struct {
	ID             string                `json:"id"`
	Kind           string                `json:"kind"`
	TransactionIDs []int64               `json:"transaction_ids"`
	AccountIDs     []int64               `json:"account_ids"`
	Deleted        []TransactionSnapshot `json:"deleted,omitempty"`
	OccurredAt     time.Time             `json:"occurred_at"`
}

// TransactionSnapshot is the state of a transaction at deletion time.
type TransactionSnapshot struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description"`
	AccountID   int64     `json:"account_id"`
	AccountName string    `json:"account_name"`
	Tags        string    `json:"tags"`
}

// NewLedgerEvent stamps a fresh event id and the current time.
func NewLedgerEvent(kind string, transactionIDs, accountIDs []int64) *LedgerEvent {
	return &LedgerEvent{
		ID:             uuid.NewString(),
		Kind:           kind,
		TransactionIDs: transactionIDs,
		AccountIDs:     accountIDs,
		OccurredAt:     time.Now().UTC(),
	}
}

// NewDeletedEvent carries the snapshot of the removed transaction.
func NewDeletedEvent(row core.TransactionRow) *LedgerEvent {
	ev := NewLedgerEvent(KindTransactionDeleted, []int64{row.ID}, []int64{row.AccountID})
	ev.Deleted = []TransactionSnapshot{SnapshotFromRow(row)}
	return ev
}

func SnapshotFromRow(row core.TransactionRow) TransactionSnapshot {
	return TransactionSnapshot{
		ID:          row.ID,
		Timestamp:   row.Timestamp,
		AmountCents: row.Amount.Cents,
		Description: row.Description,
		AccountID:   row.AccountID,
		AccountName: row.AccountName,
		Tags:        row.Tags,
	}
}

// Row converts the snapshot back to a listing row.
func (s TransactionSnapshot) Row() core.TransactionRow {
	return core.TransactionRow{
		Transaction: core.Transaction{
			ID:          s.ID,
			Timestamp:   s.Timestamp,
			Amount:      core.Money{Cents: s.AmountCents},
			Description: s.Description,
			AccountID:   s.AccountID,
		},
		AccountName: s.AccountName,
		Tags:        s.Tags,
	}
}

func (e *LedgerEvent) Validate() error {
	if _, err := uuid.Parse(e.ID); err != nil {
		return fmt.Errorf("invalid event id %q: %w", e.ID, err)
	}
	switch e.Kind {
	case KindTransactionCreated, KindTransactionUpdated, KindTransferCreated:
		if len(e.TransactionIDs) == 0 {
			return errors.New("event without transaction ids")
		}
	case KindTransactionDeleted:
		if len(e.Deleted) == 0 {
			return errors.New("delete event without snapshot")
		}
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and validates an event.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
