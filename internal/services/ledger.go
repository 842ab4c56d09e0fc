package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/storage"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// TotalsCache is satisfied by *cache.LRUCache[core.Money].
type TotalsCache interface {
	Get(key string) (core.Money, bool)
	Set(key string, m core.Money)
	Purge()
}

type Options struct {
	Publisher EventPublisher // nil disables event publishing
	Totals    TotalsCache    // nil disables total caching
	Location  *time.Location
	Epoch     time.Time
	Now       func() time.Time
}

// Ledger groups the services sharing one store.
type Ledger struct {
	Catalog      *CatalogService
	Transactions *TransactionService
	Transfers    *TransferService
	Queries      *QueryService

	store storage.Store
}

func NewLedger(store storage.Store, opts Options) *Ledger {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Epoch.IsZero() {
		opts.Epoch = core.DefaultEpoch
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	n := &notifier{publisher: opts.Publisher, totals: &totals{cache: opts.Totals}}
	txs := &TransactionService{store: store, notify: n, now: opts.Now}

	return &Ledger{
		Catalog:      &CatalogService{store: store},
		Transactions: txs,
		Transfers:    &TransferService{store: store, txs: txs, notify: n},
		Queries: &QueryService{
			store:  store,
			totals: n.totals,
			loc:    opts.Location,
			epoch:  opts.Epoch,
			now:    opts.Now,
		},
		store: store,
	}
}

// Ready reports whether the store answers.
func (l *Ledger) Ready(ctx context.Context) error {
	return l.store.Ping(ctx)
}

// totals caches lifetime totals per scope. Keys carry a generation that
// every committed mutation bumps, so a value computed before a commit is
// never served after it.
type totals struct {
	cache TotalsCache
	gen   atomic.Uint64
}

func (t *totals) key(scope core.Scope) string {
	return fmt.Sprintf("%d:%s", t.gen.Load(), scope.Key())
}

func (t *totals) get(key string) (core.Money, bool) {
	if t.cache == nil {
		return core.Money{}, false
	}
	return t.cache.Get(key)
}

func (t *totals) set(key string, m core.Money) {
	if t.cache != nil {
		t.cache.Set(key, m)
	}
}

func (t *totals) invalidate() {
	t.gen.Add(1)
	if t.cache != nil {
		t.cache.Purge()
	}
}

type notifier struct {
	publisher EventPublisher
	totals    *totals
}

// committed runs after a unit of work commits. Publishing failures are
// logged only: the local write already succeeded.
func (n *notifier) committed(ctx context.Context, ev *amqp.LedgerEvent) {
	n.totals.invalidate()

	if n.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping ledger event", "kind", ev.Kind)
		return
	}
	if err := n.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			applog.FieldEventKind, ev.Kind,
			applog.FieldEventID, ev.ID,
			applog.FieldError, err)
	}
}
