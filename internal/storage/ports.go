package storage

import (
	"context"
	"time"

	"ledger/internal/core"
)

// Filter restricts transaction queries to a scope and, when Bounded, to the
// half-open instant interval [From, To).
type Filter struct {
	Scope   core.Scope
	From    time.Time
	To      time.Time
	Bounded bool
}

// ScopeFilter matches every transaction of a scope.
func ScopeFilter(scope core.Scope) Filter {
	return Filter{Scope: scope}
}

// RangeFilter matches the transactions of a scope inside r.
func RangeFilter(scope core.Scope, r core.DateRange) Filter {
	from, to := r.Bounds()
	return Filter{Scope: scope, From: from, To: to, Bounded: true}
}

// Ports implemented by every entity store backend.
type (
	Reader interface {
		GetAccount(ctx context.Context, id int64) (core.Account, error)
		ListAccounts(ctx context.Context) ([]core.Account, error)
		GetTag(ctx context.Context, id int64) (core.Tag, error)
		ListTags(ctx context.Context) ([]core.Tag, error)
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		GetTransactionRow(ctx context.Context, id int64) (core.TransactionRow, error)
		TransactionTagIDs(ctx context.Context, id int64) ([]int64, error)
		// ListTransactions orders rows newest first, ties by ascending id.
		ListTransactions(ctx context.Context, f Filter) ([]core.TransactionRow, error)
		// SumAmount returns zero when nothing matches.
		SumAmount(ctx context.Context, f Filter) (core.Money, error)
	}

	Writer interface {
		InsertAccount(ctx context.Context, name string) (int64, error)
		InsertTag(ctx context.Context, name string) (int64, error)
		InsertTransaction(ctx context.Context, t core.Transaction) (int64, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id int64) error
		InsertTransactionTags(ctx context.Context, transID int64, tagIDs []int64) error
		DeleteTransactionTags(ctx context.Context, transID int64) error
	}

	// Tx is the view of the store inside a unit of work.
	Tx interface {
		Reader
		Writer
	}

	// Store is constructed once per process and passed to the services.
	Store interface {
		Reader
		// WithTx applies every write made by fn, or none of them when fn
		// returns an error.
		WithTx(ctx context.Context, fn func(tx Tx) error) error
		Ping(ctx context.Context) error
		Close() error
	}
)
