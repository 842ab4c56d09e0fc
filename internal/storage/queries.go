package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ledger/internal/core"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries runs the ledger statements against a pool or a transaction.
type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

var _ Tx = (*Queries)(nil)

const getAccount = `SELECT id, name FROM accounts WHERE id = ?`

func (q *Queries) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	var a core.Account
	if err := q.db.QueryRowContext(ctx, getAccount, id).Scan(&a.ID, &a.Name); err != nil {
		return core.Account{}, fmt.Errorf("get account %d: %w", id, classify(err))
	}
	return a, nil
}

const listAccounts = `SELECT id, name FROM accounts ORDER BY id`

func (q *Queries) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", classify(err))
	}
	defer rows.Close()

	var items []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("scan account: %w", classify(err))
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", classify(err))
	}
	return items, nil
}

const insertAccount = `INSERT INTO accounts (name) VALUES (?) RETURNING id`

func (q *Queries) InsertAccount(ctx context.Context, name string) (int64, error) {
	var id int64
	if err := q.db.QueryRowContext(ctx, insertAccount, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert account: %w", classify(err))
	}
	return id, nil
}

const getTag = `SELECT id, name FROM tags WHERE id = ?`

func (q *Queries) GetTag(ctx context.Context, id int64) (core.Tag, error) {
	var t core.Tag
	if err := q.db.QueryRowContext(ctx, getTag, id).Scan(&t.ID, &t.Name); err != nil {
		return core.Tag{}, fmt.Errorf("get tag %d: %w", id, classify(err))
	}
	return t, nil
}

const listTags = `SELECT id, name FROM tags ORDER BY id`

func (q *Queries) ListTags(ctx context.Context) ([]core.Tag, error) {
	rows, err := q.db.QueryContext(ctx, listTags)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", classify(err))
	}
	defer rows.Close()

	var items []core.Tag
	for rows.Next() {
		var t core.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", classify(err))
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tags: %w", classify(err))
	}
	return items, nil
}

const insertTag = `INSERT INTO tags (name) VALUES (?) RETURNING id`

func (q *Queries) InsertTag(ctx context.Context, name string) (int64, error) {
	var id int64
	if err := q.db.QueryRowContext(ctx, insertTag, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert tag: %w", classify(err))
	}
	return id, nil
}

const getTransaction = `
SELECT id, timestamp, amount, description, account_id, notes
FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	var (
		t  core.Transaction
		ts string
	)
	err := q.db.QueryRowContext(ctx, getTransaction, id).
		Scan(&t.ID, &ts, &t.Amount.Cents, &t.Description, &t.AccountID, &t.Notes)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, classify(err))
	}
	if t.Timestamp, err = core.ParseStorage(ts); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", core.ErrStorageFailure, err)
	}
	return t, nil
}

// Tag names are concatenated in name order; the left joins keep untagged
// transactions exactly once.
const selectTransactionRows = `
SELECT t.id, t.timestamp, t.amount, t.description, t.account_id, t.notes, a.name,
       COALESCE(group_concat(tg.name, ', ' ORDER BY tg.name), '')
FROM transactions t
JOIN accounts a ON a.id = t.account_id
LEFT JOIN transaction_tags tt ON tt.trans_id = t.id
LEFT JOIN tags tg ON tg.id = tt.tag_id`

const groupTransactionRows = `
GROUP BY t.id
ORDER BY t.timestamp DESC, t.id ASC`

func (q *Queries) GetTransactionRow(ctx context.Context, id int64) (core.TransactionRow, error) {
	rows, err := q.queryRows(ctx, selectTransactionRows+"\nWHERE t.id = ?"+groupTransactionRows, id)
	if err != nil {
		return core.TransactionRow{}, fmt.Errorf("get transaction row %d: %w", id, err)
	}
	if len(rows) == 0 {
		return core.TransactionRow{}, fmt.Errorf("get transaction row %d: %w", id, core.ErrNotFound)
	}
	return rows[0], nil
}

func (q *Queries) ListTransactions(ctx context.Context, f Filter) ([]core.TransactionRow, error) {
	where, args := whereClause(f)
	rows, err := q.queryRows(ctx, selectTransactionRows+where+groupTransactionRows, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", f.Scope.Key(), err)
	}
	return rows, nil
}

func (q *Queries) queryRows(ctx context.Context, query string, args ...any) ([]core.TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var items []core.TransactionRow
	for rows.Next() {
		var (
			r  core.TransactionRow
			ts string
		)
		if err := rows.Scan(&r.ID, &ts, &r.Amount.Cents, &r.Description, &r.AccountID, &r.Notes, &r.AccountName, &r.Tags); err != nil {
			return nil, classify(err)
		}
		if r.Timestamp, err = core.ParseStorage(ts); err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrStorageFailure, err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return items, nil
}

func (q *Queries) SumAmount(ctx context.Context, f Filter) (core.Money, error) {
	where, args := whereClause(f)
	var sum int64
	query := "SELECT COALESCE(SUM(t.amount), 0) FROM transactions t" + where
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&sum); err != nil {
		return core.Money{}, fmt.Errorf("sum transactions for %s: %w", f.Scope.Key(), classify(err))
	}
	return core.Money{Cents: sum}, nil
}

func whereClause(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	switch f.Scope.Kind {
	case core.ScopeAccount:
		conds = append(conds, "t.account_id = ?")
		args = append(args, f.Scope.ID)
	case core.ScopeTag:
		conds = append(conds, "EXISTS (SELECT 1 FROM transaction_tags x WHERE x.trans_id = t.id AND x.tag_id = ?)")
		args = append(args, f.Scope.ID)
	}
	if f.Bounded {
		conds = append(conds, "t.timestamp >= ?", "t.timestamp < ?")
		args = append(args, core.FormatStorage(f.From), core.FormatStorage(f.To))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "\nWHERE " + strings.Join(conds, " AND "), args
}

const transactionTagIDs = `SELECT tag_id FROM transaction_tags WHERE trans_id = ? ORDER BY tag_id`

func (q *Queries) TransactionTagIDs(ctx context.Context, id int64) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, transactionTagIDs, id)
	if err != nil {
		return nil, fmt.Errorf("list tags of transaction %d: %w", id, classify(err))
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var tagID int64
		if err := rows.Scan(&tagID); err != nil {
			return nil, fmt.Errorf("scan tag id: %w", classify(err))
		}
		ids = append(ids, tagID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tags of transaction %d: %w", id, classify(err))
	}
	return ids, nil
}

const insertTransaction = `
INSERT INTO transactions (timestamp, amount, description, account_id, notes)
VALUES (?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) InsertTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, insertTransaction,
		core.FormatStorage(t.Timestamp), t.Amount.Cents, t.Description, t.AccountID, t.Notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", classify(err))
	}
	return id, nil
}

const updateTransaction = `
UPDATE transactions
SET timestamp = ?, amount = ?, description = ?, account_id = ?, notes = ?
WHERE id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		core.FormatStorage(t.Timestamp), t.Amount.Cents, t.Description, t.AccountID, t.Notes, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", t.ID, classify(err))
	}
	return expectOne(res, fmt.Sprintf("update transaction %d", t.ID))
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, classify(err))
	}
	return expectOne(res, fmt.Sprintf("delete transaction %d", id))
}

const insertTransactionTag = `INSERT INTO transaction_tags (trans_id, tag_id) VALUES (?, ?)`

func (q *Queries) InsertTransactionTags(ctx context.Context, transID int64, tagIDs []int64) error {
	for _, tagID := range tagIDs {
		if _, err := q.db.ExecContext(ctx, insertTransactionTag, transID, tagID); err != nil {
			return fmt.Errorf("tag transaction %d with %d: %w", transID, tagID, classify(err))
		}
	}
	return nil
}

const deleteTransactionTags = `DELETE FROM transaction_tags WHERE trans_id = ?`

func (q *Queries) DeleteTransactionTags(ctx context.Context, transID int64) error {
	if _, err := q.db.ExecContext(ctx, deleteTransactionTags, transID); err != nil {
		return fmt.Errorf("untag transaction %d: %w", transID, classify(err))
	}
	return nil
}

func expectOne(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}
