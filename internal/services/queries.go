package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/storage"
)

// QueryService answers listing and aggregate questions over a scope.
type QueryService struct {
	store  storage.Store
	totals *totals
	loc    *time.Location
	epoch  time.Time
	now    func() time.Time
}

func (s *QueryService) Location() *time.Location { return s.loc }

// ResolveRange interprets optional YYYY-MM-DD strings in the ledger time zone.
func (s *QueryService) ResolveRange(startDate, endDate string) (core.DateRange, error) {
	return core.ResolveRange(startDate, endDate, s.now(), s.epoch, s.loc)
}

// List returns the transactions of scope inside r, newest first.
func (s *QueryService) List(ctx context.Context, scope core.Scope, r core.DateRange) ([]core.TransactionRow, error) {
	rows, err := s.store.ListTransactions(ctx, storage.RangeFilter(scope, r))
	if err != nil {
		return nil, fmt.Errorf("list transactions (%s): %w", scope.Key(), err)
	}
	return rows, nil
}

// Total sums every transaction of scope regardless of date.
func (s *QueryService) Total(ctx context.Context, scope core.Scope) (core.Money, error) {
	key := s.totals.key(scope)
	if m, ok := s.totals.get(key); ok {
		slog.DebugContext(ctx, "Total served from cache", applog.FieldScope, scope.Key())
		return m, nil
	}

	m, err := s.store.SumAmount(ctx, storage.ScopeFilter(scope))
	if err != nil {
		return core.Money{}, fmt.Errorf("total (%s): %w", scope.Key(), err)
	}
	s.totals.set(key, m)
	return m, nil
}

// RangeTotal sums scope inside r. It returns nil when r was not requested
// explicitly, and zero when nothing matches.
func (s *QueryService) RangeTotal(ctx context.Context, scope core.Scope, r core.DateRange) (*core.Money, error) {
	if !r.Explicit {
		return nil, nil
	}
	m, err := s.store.SumAmount(ctx, storage.RangeFilter(scope, r))
	if err != nil {
		return nil, fmt.Errorf("range total (%s): %w", scope.Key(), err)
	}
	return &m, nil
}

// View gathers the rows, the lifetime total and the range total of scope.
func (s *QueryService) View(ctx context.Context, scope core.Scope, r core.DateRange) (core.LedgerView, error) {
	view := core.LedgerView{Range: r}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.List(ctx, scope, r)
		view.Rows = rows
		return err
	})
	g.Go(func() error {
		total, err := s.Total(ctx, scope)
		view.Total = total
		return err
	})
	g.Go(func() error {
		rt, err := s.RangeTotal(ctx, scope, r)
		view.RangeTotal = rt
		return err
	})
	if err := g.Wait(); err != nil {
		return core.LedgerView{}, err
	}
	return view, nil
}

// TransactionRow returns one annotated transaction.
func (s *QueryService) TransactionRow(ctx context.Context, id int64) (core.TransactionRow, error) {
	row, err := s.store.GetTransactionRow(ctx, id)
	if err != nil {
		return core.TransactionRow{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return row, nil
}

// GetTransaction returns the edit form of a transaction: the row, its tag
// ids and every account and tag with the current ones selected.
func (s *QueryService) GetTransaction(ctx context.Context, id int64) (core.TransactionForm, error) {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.TransactionForm{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	tagIDs, err := s.store.TransactionTagIDs(ctx, id)
	if err != nil {
		return core.TransactionForm{}, fmt.Errorf("get transaction %d tags: %w", id, err)
	}

	form, err := s.form(ctx, t.AccountID, tagIDs)
	if err != nil {
		return core.TransactionForm{}, err
	}
	form.Transaction = t
	form.TagIDs = tagIDs
	return form, nil
}

// NewTransactionForm returns an empty form with accountID preselected
// (zero selects nothing).
func (s *QueryService) NewTransactionForm(ctx context.Context, accountID int64) (core.TransactionForm, error) {
	form, err := s.form(ctx, accountID, nil)
	if err != nil {
		return core.TransactionForm{}, err
	}
	form.Transaction = core.Transaction{AccountID: accountID, Timestamp: s.now().UTC()}
	return form, nil
}

func (s *QueryService) form(ctx context.Context, accountID int64, tagIDs []int64) (core.TransactionForm, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return core.TransactionForm{}, fmt.Errorf("list accounts: %w", err)
	}
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return core.TransactionForm{}, fmt.Errorf("list tags: %w", err)
	}
	return core.TransactionForm{
		Accounts: core.AccountOptions(accounts, accountID),
		Tags:     core.TagOptions(tags, tagIDs),
	}, nil
}
