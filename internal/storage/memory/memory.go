// Package memory provides an in-process entity store with the same contract
// as the SQLite repository. Units of work snapshot the state and restore it
// when the work fails.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"ledger/internal/core"
	"ledger/internal/storage"
)

type Store struct {
	mu sync.RWMutex
	st *state
}

var (
	_ storage.Store = (*Store)(nil)
	_ storage.Tx    = (*state)(nil)
)

func New() *Store {
	return &Store{st: newState()}
}

type state struct {
	accounts map[int64]core.Account
	tags     map[int64]core.Tag
	txns     map[int64]core.Transaction
	links    map[int64][]int64 // transaction id -> tag ids
	nextAcc  int64
	nextTag  int64
	nextTxn  int64
}

func newState() *state {
	return &state{
		accounts: make(map[int64]core.Account),
		tags:     make(map[int64]core.Tag),
		txns:     make(map[int64]core.Transaction),
		links:    make(map[int64][]int64),
	}
}

func (s *state) clone() *state {
	c := *s
	c.accounts = maps.Clone(s.accounts)
	c.tags = maps.Clone(s.tags)
	c.txns = maps.Clone(s.txns)
	c.links = make(map[int64][]int64, len(s.links))
	for k, v := range s.links {
		c.links[k] = append([]int64(nil), v...)
	}
	return &c
}

func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

// WithTx holds the write lock for the whole unit of work.
func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrStorageFailure, err)
	}
	snapshot := s.st.clone()
	if err := fn(s.st); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }
func (s *Store) Close() error                   { return nil }

func (s *Store) GetAccount(ctx context.Context, id int64) (a core.Account, err error) {
	err = s.read(func(st *state) error { a, err = st.GetAccount(ctx, id); return err })
	return a, err
}

func (s *Store) ListAccounts(ctx context.Context) (out []core.Account, err error) {
	err = s.read(func(st *state) error { out, err = st.ListAccounts(ctx); return err })
	return out, err
}

func (s *Store) GetTag(ctx context.Context, id int64) (t core.Tag, err error) {
	err = s.read(func(st *state) error { t, err = st.GetTag(ctx, id); return err })
	return t, err
}

func (s *Store) ListTags(ctx context.Context) (out []core.Tag, err error) {
	err = s.read(func(st *state) error { out, err = st.ListTags(ctx); return err })
	return out, err
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (t core.Transaction, err error) {
	err = s.read(func(st *state) error { t, err = st.GetTransaction(ctx, id); return err })
	return t, err
}

func (s *Store) GetTransactionRow(ctx context.Context, id int64) (r core.TransactionRow, err error) {
	err = s.read(func(st *state) error { r, err = st.GetTransactionRow(ctx, id); return err })
	return r, err
}

func (s *Store) TransactionTagIDs(ctx context.Context, id int64) (ids []int64, err error) {
	err = s.read(func(st *state) error { ids, err = st.TransactionTagIDs(ctx, id); return err })
	return ids, err
}

func (s *Store) ListTransactions(ctx context.Context, f storage.Filter) (rows []core.TransactionRow, err error) {
	err = s.read(func(st *state) error { rows, err = st.ListTransactions(ctx, f); return err })
	return rows, err
}

func (s *Store) SumAmount(ctx context.Context, f storage.Filter) (m core.Money, err error) {
	err = s.read(func(st *state) error { m, err = st.SumAmount(ctx, f); return err })
	return m, err
}

// state implements storage.Tx; callers hold the store lock.

func (st *state) GetAccount(_ context.Context, id int64) (core.Account, error) {
	a, ok := st.accounts[id]
	if !ok {
		return core.Account{}, fmt.Errorf("get account %d: %w", id, core.ErrNotFound)
	}
	return a, nil
}

func (st *state) ListAccounts(_ context.Context) ([]core.Account, error) {
	out := make([]core.Account, 0, len(st.accounts))
	for _, a := range st.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st *state) InsertAccount(_ context.Context, name string) (int64, error) {
	st.nextAcc++
	st.accounts[st.nextAcc] = core.Account{ID: st.nextAcc, Name: name}
	return st.nextAcc, nil
}

func (st *state) GetTag(_ context.Context, id int64) (core.Tag, error) {
	t, ok := st.tags[id]
	if !ok {
		return core.Tag{}, fmt.Errorf("get tag %d: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (st *state) ListTags(_ context.Context) ([]core.Tag, error) {
	out := make([]core.Tag, 0, len(st.tags))
	for _, t := range st.tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st *state) InsertTag(_ context.Context, name string) (int64, error) {
	st.nextTag++
	st.tags[st.nextTag] = core.Tag{ID: st.nextTag, Name: name}
	return st.nextTag, nil
}

func (st *state) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	t, ok := st.txns[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (st *state) GetTransactionRow(ctx context.Context, id int64) (core.TransactionRow, error) {
	t, err := st.GetTransaction(ctx, id)
	if err != nil {
		return core.TransactionRow{}, err
	}
	return st.row(t), nil
}

func (st *state) row(t core.Transaction) core.TransactionRow {
	names := make([]string, 0, len(st.links[t.ID]))
	for _, tagID := range st.links[t.ID] {
		names = append(names, st.tags[tagID].Name)
	}
	sort.Strings(names)
	return core.TransactionRow{
		Transaction: t,
		AccountName: st.accounts[t.AccountID].Name,
		Tags:        strings.Join(names, ", "),
	}
}

func (st *state) TransactionTagIDs(_ context.Context, id int64) ([]int64, error) {
	ids := append([]int64(nil), st.links[id]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}

func (st *state) matches(t core.Transaction, f storage.Filter) bool {
	switch f.Scope.Kind {
	case core.ScopeAccount:
		if t.AccountID != f.Scope.ID {
			return false
		}
	case core.ScopeTag:
		found := false
		for _, tagID := range st.links[t.ID] {
			if tagID == f.Scope.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Bounded && (t.Timestamp.Before(f.From) || !t.Timestamp.Before(f.To)) {
		return false
	}
	return true
}

func (st *state) ListTransactions(_ context.Context, f storage.Filter) ([]core.TransactionRow, error) {
	var out []core.TransactionRow
	for _, t := range st.txns {
		if st.matches(t, f) {
			out = append(out, st.row(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (st *state) SumAmount(_ context.Context, f storage.Filter) (core.Money, error) {
	var sum core.Money
	for _, t := range st.txns {
		if st.matches(t, f) {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

func (st *state) InsertTransaction(_ context.Context, t core.Transaction) (int64, error) {
	if _, ok := st.accounts[t.AccountID]; !ok {
		return 0, fmt.Errorf("insert transaction: account %d: %w", t.AccountID, core.ErrInvalidReference)
	}
	st.nextTxn++
	t.ID = st.nextTxn
	t.Timestamp = t.Timestamp.UTC().Truncate(time.Millisecond)
	st.txns[t.ID] = t
	return t.ID, nil
}

func (st *state) UpdateTransaction(_ context.Context, t core.Transaction) error {
	if _, ok := st.txns[t.ID]; !ok {
		return fmt.Errorf("update transaction %d: %w", t.ID, core.ErrNotFound)
	}
	if _, ok := st.accounts[t.AccountID]; !ok {
		return fmt.Errorf("update transaction %d: account %d: %w", t.ID, t.AccountID, core.ErrInvalidReference)
	}
	t.Timestamp = t.Timestamp.UTC().Truncate(time.Millisecond)
	st.txns[t.ID] = t
	return nil
}

func (st *state) DeleteTransaction(_ context.Context, id int64) error {
	if _, ok := st.txns[id]; !ok {
		return fmt.Errorf("delete transaction %d: %w", id, core.ErrNotFound)
	}
	if len(st.links[id]) > 0 {
		return fmt.Errorf("delete transaction %d: still tagged: %w", id, core.ErrInvalidReference)
	}
	delete(st.txns, id)
	return nil
}

func (st *state) InsertTransactionTags(_ context.Context, transID int64, tagIDs []int64) error {
	if _, ok := st.txns[transID]; !ok {
		return fmt.Errorf("tag transaction %d: %w", transID, core.ErrInvalidReference)
	}
	for _, tagID := range tagIDs {
		if _, ok := st.tags[tagID]; !ok {
			return fmt.Errorf("tag transaction %d with %d: %w", transID, tagID, core.ErrInvalidReference)
		}
		for _, existing := range st.links[transID] {
			if existing == tagID {
				return fmt.Errorf("tag transaction %d with %d: duplicate association: %w", transID, tagID, core.ErrStorageFailure)
			}
		}
		st.links[transID] = append(st.links[transID], tagID)
	}
	return nil
}

func (st *state) DeleteTransactionTags(_ context.Context, transID int64) error {
	delete(st.links, transID)
	return nil
}
