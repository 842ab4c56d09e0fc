// Package storetest holds the behaviour every storage.Store must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// Run executes the conformance suite. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("Catalogue", func(t *testing.T) { testCatalogue(t, newStore(t)) })
	t.Run("TransactionRoundTrip", func(t *testing.T) { testTransactionRoundTrip(t, newStore(t)) })
	t.Run("ReferentialIntegrity", func(t *testing.T) { testReferentialIntegrity(t, newStore(t)) })
	t.Run("ListOrderingAndTags", func(t *testing.T) { testListOrderingAndTags(t, newStore(t)) })
	t.Run("Scopes", func(t *testing.T) { testScopes(t, newStore(t)) })
	t.Run("RangeBounds", func(t *testing.T) { testRangeBounds(t, newStore(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("UpdateAndDelete", func(t *testing.T) { testUpdateAndDelete(t, newStore(t)) })
}

var base = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	checking, savings int64
	food, rent        int64
}

func seed(t *testing.T, s storage.Store) fixture {
	t.Helper()
	var f fixture
	err := s.WithTx(context.Background(), func(tx storage.Tx) error {
		var err error
		ctx := context.Background()
		if f.checking, err = tx.InsertAccount(ctx, "Checking"); err != nil {
			return err
		}
		if f.savings, err = tx.InsertAccount(ctx, "Savings"); err != nil {
			return err
		}
		if f.food, err = tx.InsertTag(ctx, "Food"); err != nil {
			return err
		}
		f.rent, err = tx.InsertTag(ctx, "Rent")
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return f
}

func insert(t *testing.T, s storage.Store, txn core.Transaction, tags ...int64) int64 {
	t.Helper()
	var id int64
	err := s.WithTx(context.Background(), func(tx storage.Tx) error {
		var err error
		ctx := context.Background()
		if id, err = tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		return tx.InsertTransactionTags(ctx, id, tags)
	})
	if err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
	return id
}

func testCatalogue(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := seed(t, s)

	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	if len(accounts) != 2 || accounts[0].Name != "Checking" || accounts[1].Name != "Savings" {
		t.Fatalf("unexpected accounts: %+v", accounts)
	}
	tags, err := s.ListTags(ctx)
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	if len(tags) != 2 || tags[0].ID != f.food {
		t.Fatalf("unexpected tags: %+v", tags)
	}
	if a, err := s.GetAccount(ctx, f.savings); err != nil || a.Name != "Savings" {
		t.Fatalf("get account: %+v %v", a, err)
	}
	if _, err := s.GetAccount(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for account, got %v", err)
	}
	if _, err := s.GetTag(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for tag, got %v", err)
	}
}

func testTransactionRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := seed(t, s)
	want := core.Transaction{
		Timestamp:   base.Add(1500 * time.Millisecond),
		Amount:      core.Money{Cents: -1250},
		Description: "groceries",
		AccountID:   f.checking,
		Notes:       "weekly",
	}
	id := insert(t, s, want, f.rent, f.food)

	got, err := s.GetTransaction(ctx, id)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	want.ID = id
	if !sameTransaction(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	ids, err := s.TransactionTagIDs(ctx, id)
	if err != nil {
		t.Fatalf("tag ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != f.food || ids[1] != f.rent {
		t.Fatalf("unexpected tag ids %v", ids)
	}
	row, err := s.GetTransactionRow(ctx, id)
	if err != nil {
		t.Fatalf("get row: %v", err)
	}
	if row.AccountName != "Checking" || row.Tags != "Food, Rent" {
		t.Fatalf("unexpected row %+v", row)
	}
	if _, err := s.GetTransaction(ctx, id+100); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetTransactionRow(ctx, id+100); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for row, got %v", err)
	}
}

func testReferentialIntegrity(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := seed(t, s)

	err := s.WithTx(ctx, func(tx storage.Tx) error {
		_, err := tx.InsertTransaction(ctx, core.Transaction{Timestamp: base, AccountID: 404})
		return err
	})
	if !errors.Is(err, core.ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference for account, got %v", err)
	}

	id := insert(t, s, core.Transaction{Timestamp: base, AccountID: f.checking})
	err = s.WithTx(ctx, func(tx storage.Tx) error {
		return tx.InsertTransactionTags(ctx, id, []int64{404})
	})
	if !errors.Is(err, core.ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference for tag, got %v", err)
	}

	err = s.WithTx(ctx, func(tx storage.Tx) error {
		return tx.InsertTransactionTags(ctx, id, []int64{f.food, f.food})
	})
	if err == nil {
		t.Fatal("expected duplicate association to fail")
	}

	tagged := insert(t, s, core.Transaction{Timestamp: base, AccountID: f.checking}, f.food)
	err = s.WithTx(ctx, func(tx storage.Tx) error {
		return tx.DeleteTransaction(ctx, tagged)
	})
	if !errors.Is(err, core.ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference deleting a tagged transaction, got %v", err)
	}
}

func testListOrderingAndTags(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := seed(t, s)

	older := insert(t, s, core.Transaction{Timestamp: base, Amount: core.Money{Cents: 100}, AccountID: f.checking}, f.food, f.rent)
	tieA := insert(t, s, core.Transaction{Timestamp: base.Add(time.Hour), Amount: core.Money{Cents: 200}, AccountID: f.savings})
	tieB := insert(t, s, core.Transaction{Timestamp: base.Add(time.Hour), Amount: core.Money{Cents: 300}, AccountID: f.checking}, f.rent)
	newest := insert(t, s, core.Transaction{Timestamp: base.Add(48 * time.Hour), Amount: core.Money{Cents: -50}, AccountID: f.checking})

	rows, err := s.ListTransactions(ctx, storage.ScopeFilter(core.AllScope()))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	wantOrder := []int64{newest, tieA, tieB, older}
	if len(rows) != len(wantOrder) {
		t.Fatalf("got %d rows, want %d", len(rows), len(wantOrder))
	}
	for i, id := range wantOrder {
		if rows[i].ID != id {
			t.Fatalf("row %d: got id %d, want %d", i, rows[i].ID, id)
		}
	}
	if rows[0].Tags != "" || rows[1].AccountName != "Savings" {
		t.Errorf("unexpected annotations: %+v %+v", rows[0], rows[1])
	}
	if rows[3].Tags != "Food, Rent" {
		t.Errorf("tags = %q, want %q", rows[3].Tags, "Food, Rent")
	}

	sum, err := s.SumAmount(ctx, storage.ScopeFilter(core.AllScope()))
	if err != nil || sum.Cents != 550 {
		t.Fatalf("sum = %d, err = %v", sum.Cents, err)
	}
}

func testScopes(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := seed(t, s)

	insert(t, s, core.Transaction{Timestamp: base, Amount: core.Money{Cents: -1250}, AccountID: f.checking}, f.food, f.rent)
	insert(t, s, core.Transaction{Timestamp: base, Amount: core.Money{Cents: 9000}, AccountID: f.savings}, f.rent)
	insert(t, s, core.Transaction{Timestamp: base, Amount: core.Money{Cents: -300}, AccountID: f.checking})

	tests := []struct {
		name  string
		scope core.Scope
		count int
		sum   int64
	}{
		{"all", core.AllScope(), 3, 7450},
		{"checking", core.ByAccount(f.checking), 2, -1550},
		{"savings", core.ByAccount(f.savings), 1, 9000},
		{"food", core.ByTag(f.food), 1, -1250},
		{"rent", core.ByTag(f.rent), 2, 7750},
		{"unknown account", core.ByAccount(404), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := s.ListTransactions(ctx, storage.ScopeFilter(tt.scope))
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(rows) != tt.count {
				t.Errorf("rows = %d, want %d", len(rows), tt.count)
			}
			sum, err := s.SumAmount(ctx, storage.ScopeFilter(tt.scope))
			if err != nil {
				t.Fatalf("sum: %v", err)
			}
			if sum.Cents != tt.sum {
				t.Errorf("sum = %d, want %d", sum.Cents, tt.sum)
			}
		})
	}

	rows, err := s.ListTransactions(ctx, storage.ScopeFilter(core.ByTag(f.food)))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Tags != "Food, Rent" {
		t.Fatalf("tag scope must keep every tag name: %+v", rows)
	}
}

func testRangeBounds(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := seed(t, s)

	day := func(d int, h int) time.Time { return time.Date(2024, time.February, d, h, 0, 0, 0, time.UTC) }
	insert(t, s, core.Transaction{Timestamp: day(1, 0), Amount: core.Money{Cents: 1}, AccountID: f.checking})
	insert(t, s, core.Transaction{Timestamp: day(10, 23), Amount: core.Money{Cents: 10}, AccountID: f.checking})
	insert(t, s, core.Transaction{Timestamp: day(11, 0), Amount: core.Money{Cents: 100}, AccountID: f.checking})

	r, err := core.ResolveRange("2024-02-01", "2024-02-10", day(20, 0), core.DefaultEpoch, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := s.ListTransactions(ctx, storage.RangeFilter(core.AllScope(), r))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (whole end day inclusive)", len(rows))
	}
	sum, err := s.SumAmount(ctx, storage.RangeFilter(core.AllScope(), r))
	if err != nil || sum.Cents != 11 {
		t.Fatalf("range sum = %d, err = %v", sum.Cents, err)
	}

	empty, err := core.ResolveRange("2030-01-01", "2030-12-31", day(20, 0), core.DefaultEpoch, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	sum, err = s.SumAmount(ctx, storage.RangeFilter(core.AllScope(), empty))
	if err != nil || sum.Cents != 0 {
		t.Fatalf("empty range sum = %d, err = %v", sum.Cents, err)
	}
}

func testRollback(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := seed(t, s)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx storage.Tx) error {
		id, err := tx.InsertTransaction(ctx, core.Transaction{Timestamp: base, Amount: core.Money{Cents: 1}, AccountID: f.checking})
		if err != nil {
			return err
		}
		if err := tx.InsertTransactionTags(ctx, id, []int64{f.food}); err != nil {
			return err
		}
		if _, err := tx.InsertAccount(ctx, "Ghost"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	rows, err := s.ListTransactions(ctx, storage.ScopeFilter(core.AllScope()))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("rolled back transaction is visible: %+v", rows)
	}
	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 2 {
		t.Fatalf("rolled back account is visible: %+v", accounts)
	}
}

func testUpdateAndDelete(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := seed(t, s)
	id := insert(t, s, core.Transaction{Timestamp: base, Amount: core.Money{Cents: -100}, AccountID: f.checking}, f.food)

	updated := core.Transaction{ID: id, Timestamp: base.Add(time.Minute), Amount: core.Money{Cents: 700}, Description: "refund", AccountID: f.savings}
	err := s.WithTx(ctx, func(tx storage.Tx) error { return tx.UpdateTransaction(ctx, updated) })
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GetTransaction(ctx, id)
	if err != nil || !sameTransaction(got, updated) {
		t.Fatalf("after update got %+v (%v), want %+v", got, err, updated)
	}

	missing := updated
	missing.ID = id + 100
	err = s.WithTx(ctx, func(tx storage.Tx) error { return tx.UpdateTransaction(ctx, missing) })
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}

	err = s.WithTx(ctx, func(tx storage.Tx) error {
		if err := tx.DeleteTransactionTags(ctx, id); err != nil {
			return err
		}
		return tx.DeleteTransaction(ctx, id)
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetTransaction(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if ids, err := s.TransactionTagIDs(ctx, id); err != nil || len(ids) != 0 {
		t.Fatalf("associations survived delete: %v %v", ids, err)
	}
	err = s.WithTx(ctx, func(tx storage.Tx) error { return tx.DeleteTransaction(ctx, id) })
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func sameTransaction(a, b core.Transaction) bool {
	return a.ID == b.ID && a.Timestamp.Equal(b.Timestamp) && a.Amount == b.Amount &&
		a.Description == b.Description && a.AccountID == b.AccountID && a.Notes == b.Notes
}
