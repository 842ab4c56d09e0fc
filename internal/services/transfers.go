package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/storage"
)

type (
	Transfer struct {
		FromAccountID int64
		ToAccountID   int64
		Magnitude     core.Money // positive
		Timestamp     time.Time  // zero means now
	}

	TransferResult struct {
		DebitID  int64
		CreditID int64
	}
)

// TransferService moves money between accounts as two linked transactions.
type TransferService struct {
	store  storage.Store
	txs    *TransactionService
	notify *notifier
}

// Transfer writes an expense leg on the source account and an income leg on
// the destination. Both legs commit together or not at all.
func (s *TransferService) Transfer(ctx context.Context, in Transfer) (TransferResult, error) {
	if in.Magnitude.Cents <= 0 {
		return TransferResult{}, fmt.Errorf("transfer: %w: amount must be greater than zero", core.ErrInvalidInput)
	}
	if in.FromAccountID == in.ToAccountID {
		return TransferResult{}, fmt.Errorf("transfer: %w: source and destination are the same account", core.ErrInvalidInput)
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = s.txs.now()
	}

	var res TransferResult
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		from, err := requireAccount(ctx, tx, in.FromAccountID)
		if err != nil {
			return err
		}
		to, err := requireAccount(ctx, tx, in.ToAccountID)
		if err != nil {
			return err
		}

		res.DebitID, err = s.txs.create(ctx, tx, NewTransaction{
			Timestamp:   in.Timestamp,
			Amount:      core.Money{Cents: -in.Magnitude.Cents},
			Description: "transfer to " + to.Name,
			AccountID:   from.ID,
		})
		if err != nil {
			return fmt.Errorf("debit leg: %w", err)
		}

		res.CreditID, err = s.txs.create(ctx, tx, NewTransaction{
			Timestamp:   in.Timestamp,
			Amount:      in.Magnitude,
			Description: "transfer from " + from.Name,
			AccountID:   to.ID,
		})
		if err != nil {
			return fmt.Errorf("credit leg: %w", err)
		}
		return nil
	})
	if err != nil {
		return TransferResult{}, fmt.Errorf("transfer: %w", err)
	}

	slog.InfoContext(ctx, "Transfer recorded",
		"from_account_id", in.FromAccountID,
		"to_account_id", in.ToAccountID,
		applog.FieldAmountCents, in.Magnitude.Cents,
		"debit_id", res.DebitID,
		"credit_id", res.CreditID)

	s.notify.committed(ctx, amqp.NewLedgerEvent(amqp.KindTransferCreated,
		[]int64{res.DebitID, res.CreditID},
		[]int64{in.FromAccountID, in.ToAccountID}))
	return res, nil
}
