package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/storage"
)

type (
	// NewTransaction describes a transaction to record. A zero Timestamp
	// means now.
	NewTransaction struct {
		Timestamp   time.Time
		Amount      core.Money
		Description string
		AccountID   int64
		Notes       string
		TagIDs      []int64
	}

	// TransactionUpdate overwrites a transaction. A nil Timestamp keeps the
	// stored one. Tags are touched only when ReplaceTags is set; an empty
	// TagIDs with ReplaceTags clears them.
	TransactionUpdate struct {
		Amount      core.Money
		Description string
		AccountID   int64
		Notes       string
		Timestamp   *time.Time
		TagIDs      []int64
		ReplaceTags bool
	}
)

// TransactionService creates, updates and deletes transactions together with
// their tag associations, one unit of work per call.
type TransactionService struct {
	store  storage.Store
	notify *notifier
	now    func() time.Time
}

func (s *TransactionService) Create(ctx context.Context, in NewTransaction) (int64, error) {
	var id int64
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		id, err = s.create(ctx, tx, in)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		applog.FieldTransactionID, id,
		applog.FieldAccountID, in.AccountID,
		applog.FieldAmountCents, in.Amount.Cents,
		applog.FieldTagCount, len(in.TagIDs))

	s.notify.committed(ctx, amqp.NewLedgerEvent(amqp.KindTransactionCreated, []int64{id}, []int64{in.AccountID}))
	return id, nil
}

// create inserts the row and its associations inside tx.
func (s *TransactionService) create(ctx context.Context, tx storage.Tx, in NewTransaction) (int64, error) {
	if in.Timestamp.IsZero() {
		in.Timestamp = s.now()
	}
	if _, err := requireAccount(ctx, tx, in.AccountID); err != nil {
		return 0, err
	}
	tagIDs := core.DedupeIDs(in.TagIDs)
	if err := requireTags(ctx, tx, tagIDs); err != nil {
		return 0, err
	}

	id, err := tx.InsertTransaction(ctx, core.Transaction{
		Timestamp:   in.Timestamp.UTC(),
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		AccountID:   in.AccountID,
		Notes:       strings.TrimSpace(in.Notes),
	})
	if err != nil {
		return 0, err
	}
	if err := tx.InsertTransactionTags(ctx, id, tagIDs); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *TransactionService) Update(ctx context.Context, id int64, in TransactionUpdate) error {
	var previous core.Transaction
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		if previous, err = tx.GetTransaction(ctx, id); err != nil {
			return err
		}
		if _, err := requireAccount(ctx, tx, in.AccountID); err != nil {
			return err
		}

		ts := previous.Timestamp
		if in.Timestamp != nil {
			ts = in.Timestamp.UTC()
		}
		err = tx.UpdateTransaction(ctx, core.Transaction{
			ID:          id,
			Timestamp:   ts,
			Amount:      in.Amount,
			Description: strings.TrimSpace(in.Description),
			AccountID:   in.AccountID,
			Notes:       strings.TrimSpace(in.Notes),
		})
		if err != nil {
			return err
		}

		if !in.ReplaceTags {
			return nil
		}
		tagIDs := core.DedupeIDs(in.TagIDs)
		if err := requireTags(ctx, tx, tagIDs); err != nil {
			return err
		}
		if err := tx.DeleteTransactionTags(ctx, id); err != nil {
			return err
		}
		return tx.InsertTransactionTags(ctx, id, tagIDs)
	})
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Transaction updated",
		applog.FieldTransactionID, id,
		applog.FieldAccountID, in.AccountID,
		applog.FieldAmountCents, in.Amount.Cents,
		"tags_replaced", in.ReplaceTags)

	accounts := []int64{in.AccountID}
	if previous.AccountID != in.AccountID {
		accounts = append(accounts, previous.AccountID)
	}
	s.notify.committed(ctx, amqp.NewLedgerEvent(amqp.KindTransactionUpdated, []int64{id}, accounts))
	return nil
}

// Delete removes the transaction and its associations and returns the
// account it belonged to.
func (s *TransactionService) Delete(ctx context.Context, id int64) (int64, error) {
	var row core.TransactionRow
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		if row, err = tx.GetTransactionRow(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteTransactionTags(ctx, id); err != nil {
			return err
		}
		return tx.DeleteTransaction(ctx, id)
	})
	if err != nil {
		return 0, fmt.Errorf("delete transaction %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Transaction deleted",
		applog.FieldTransactionID, id,
		applog.FieldAccountID, row.AccountID)

	s.notify.committed(ctx, amqp.NewDeletedEvent(row))
	return row.AccountID, nil
}

// requireAccount turns a missing account into an invalid reference.
func requireAccount(ctx context.Context, tx storage.Tx, id int64) (core.Account, error) {
	a, err := tx.GetAccount(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Account{}, fmt.Errorf("%w: account %d does not exist", core.ErrInvalidReference, id)
	}
	return a, err
}

func requireTags(ctx context.Context, tx storage.Tx, ids []int64) error {
	for _, id := range ids {
		_, err := tx.GetTag(ctx, id)
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("%w: tag %d does not exist", core.ErrInvalidReference, id)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
