// Package ledger persists the user's transactions, goals and investments in
// SQLite. Each exported operation runs as its own short transaction; nothing
// spans multiple calls.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/everydev1618/fincoach/errdefs"
)

// TransactionKind is either income or expense.
type TransactionKind string

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

// ParseKind validates a transaction kind literal.
func ParseKind(s string) (TransactionKind, error) {
	switch k := TransactionKind(s); k {
	case KindIncome, KindExpense:
		return k, nil
	}
	return "", errdefs.Invalid("transaction_type", "must be %q or %q, got %q", KindIncome, KindExpense, s)
}

// Transaction is an income or expense record.
type Transaction struct {
	ID        int64           `json:"id" csv:"id"`
	Kind      TransactionKind `json:"type" csv:"type"`
	Amount    float64         `json:"amount" csv:"amount"`
	CreatedAt time.Time       `json:"created_at" csv:"created_at"`
}

// Goal is a savings target.
type Goal struct {
	ID           int64     `json:"id" csv:"id"`
	Note         string    `json:"note" csv:"note"`
	TargetDate   time.Time `json:"date_target" csv:"date_target"`
	TargetAmount int64     `json:"money_target" csv:"money_target"`
}

// Investment records a purchase of an asset.
type Investment struct {
	ID        int64     `json:"id" csv:"id"`
	Title     string    `json:"title" csv:"title"`
	Quantity  float64   `json:"amount" csv:"amount"`
	Price     float64   `json:"price" csv:"price"`
	CreatedAt time.Time `json:"created_at" csv:"created_at"`
}

const (
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
)

const schema = `
CREATE TABLE IF NOT EXISTS goals (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	note          TEXT NOT NULL,
	target_date   TEXT NOT NULL,
	target_amount INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	kind       TEXT NOT NULL CHECK(kind IN ('expense', 'income')),
	amount     REAL NOT NULL,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS investments (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	title      TEXT NOT NULL,
	quantity   REAL NOT NULL,
	price      REAL NOT NULL,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_transactions_created ON transactions(created_at);
CREATE INDEX IF NOT EXISTS idx_investments_created ON investments(created_at);
`

// Store is the SQLite-backed ledger.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for created_at defaults.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// connPragmas apply to every pooled connection. Writers wait for the lock
// instead of failing with SQLITE_BUSY, and transactions take the write lock
// up front so a read never has to be upgraded mid-transaction.
const connPragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

// dsn appends connPragmas to path, keeping any query it already has.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + connPragmas
}

// Open opens or creates the SQLite database at path. Call Init before use.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, &errdefs.StoreError{Op: "open", Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &errdefs.StoreError{Op: "open", Err: err}
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Init creates the schema tables. It is a no-op when they already exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return &errdefs.StoreError{Op: "init", Err: err}
	}
	return nil
}

// Reset drops every ledger table and recreates an empty schema.
func (s *Store) Reset(ctx context.Context) error {
	err := s.inTx(ctx, "reset", func(tx *sql.Tx) error {
		for _, table := range []string{"goals", "transactions", "investments"} {
			if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.Init(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// inTx runs fn inside a transaction scoped to a single store operation.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &errdefs.StoreError{Op: op, Err: err}
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return classify(op, err)
	}
	if err := tx.Commit(); err != nil {
		return &errdefs.StoreError{Op: op, Err: err}
	}
	return nil
}

// classify maps constraint failures to ValidationError and everything else to StoreError.
func classify(op string, err error) error {
	var v *errdefs.ValidationError
	if errors.As(err, &v) {
		return err
	}
	if strings.Contains(err.Error(), "constraint failed") {
		return &errdefs.ValidationError{Message: op + " violates a ledger constraint", Err: err}
	}
	return &errdefs.StoreError{Op: op, Err: err}
}

func insert(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CreateTransaction records an income or expense and returns its id.
// Amounts are stored as given; negative values are accepted.
func (s *Store) CreateTransaction(ctx context.Context, kind TransactionKind, amount float64) (int64, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return 0, err
	}
	var id int64
	err := s.inTx(ctx, "insert transaction", func(tx *sql.Tx) (err error) {
		id, err = insert(ctx, tx,
			`INSERT INTO transactions (kind, amount, created_at) VALUES (?, ?, ?)`,
			string(kind), amount, s.now().UTC().Format(timestampLayout),
		)
		return err
	})
	return id, err
}

// CreateGoal records a savings goal and returns its id.
// The target date is not required to be in the future.
func (s *Store) CreateGoal(ctx context.Context, note string, targetDate time.Time, targetAmount int64) (int64, error) {
	var id int64
	err := s.inTx(ctx, "insert goal", func(tx *sql.Tx) (err error) {
		id, err = insert(ctx, tx,
			`INSERT INTO goals (note, target_date, target_amount) VALUES (?, ?, ?)`,
			note, targetDate.Format(dateLayout), targetAmount,
		)
		return err
	})
	return id, err
}

// CreateInvestment records an asset purchase and returns its id.
func (s *Store) CreateInvestment(ctx context.Context, title string, quantity, price float64) (int64, error) {
	var id int64
	err := s.inTx(ctx, "insert investment", func(tx *sql.Tx) (err error) {
		id, err = insert(ctx, tx,
			`INSERT INTO investments (title, quantity, price, created_at) VALUES (?, ?, ?, ?)`,
			title, quantity, price, s.now().UTC().Format(timestampLayout),
		)
		return err
	})
	return id, err
}

// ListTransactions returns every transaction, newest first.
func (s *Store) ListTransactions(ctx context.Context) ([]Transaction, error) {
	return s.queryTransactions(ctx, "list transactions",
		`SELECT id, kind, amount, created_at FROM transactions ORDER BY created_at DESC, id DESC`)
}

// ListTransactionsByKind returns the transactions of one kind, newest first.
func (s *Store) ListTransactionsByKind(ctx context.Context, kind TransactionKind) ([]Transaction, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	return s.queryTransactions(ctx, "list transactions by kind",
		`SELECT id, kind, amount, created_at FROM transactions WHERE kind = ? ORDER BY created_at DESC, id DESC`,
		string(kind))
}

func (s *Store) queryTransactions(ctx context.Context, op, query string, args ...any) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &errdefs.StoreError{Op: op, Err: err}
	}
	defer rows.Close()

	txs := []Transaction{}
	for rows.Next() {
		var (
			t       Transaction
			kind    string
			created string
		)
		if err := rows.Scan(&t.ID, &kind, &t.Amount, &created); err != nil {
			return nil, &errdefs.StoreError{Op: op, Err: err}
		}
		t.Kind = TransactionKind(kind)
		if t.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, &errdefs.StoreError{Op: op, Err: err}
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &errdefs.StoreError{Op: op, Err: err}
	}
	return txs, nil
}

// ListGoals returns every goal in insertion order.
func (s *Store) ListGoals(ctx context.Context) ([]Goal, error) {
	const op = "list goals"
	rows, err := s.db.QueryContext(ctx, `SELECT id, note, target_date, target_amount FROM goals ORDER BY id`)
	if err != nil {
		return nil, &errdefs.StoreError{Op: op, Err: err}
	}
	defer rows.Close()

	goals := []Goal{}
	for rows.Next() {
		var (
			g      Goal
			target string
		)
		if err := rows.Scan(&g.ID, &g.Note, &target, &g.TargetAmount); err != nil {
			return nil, &errdefs.StoreError{Op: op, Err: err}
		}
		if g.TargetDate, err = time.Parse(dateLayout, target); err != nil {
			return nil, &errdefs.StoreError{Op: op, Err: err}
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, &errdefs.StoreError{Op: op, Err: err}
	}
	return goals, nil
}

// ListInvestments returns every investment, newest first.
func (s *Store) ListInvestments(ctx context.Context) ([]Investment, error) {
	const op = "list investments"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, quantity, price, created_at FROM investments ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, &errdefs.StoreError{Op: op, Err: err}
	}
	defer rows.Close()

	investments := []Investment{}
	for rows.Next() {
		var (
			inv     Investment
			created string
		)
		if err := rows.Scan(&inv.ID, &inv.Title, &inv.Quantity, &inv.Price, &created); err != nil {
			return nil, &errdefs.StoreError{Op: op, Err: err}
		}
		if inv.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, &errdefs.StoreError{Op: op, Err: err}
		}
		investments = append(investments, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, &errdefs.StoreError{Op: op, Err: err}
	}
	return investments, nil
}

// AggregateByDateRange sums transaction amounts per kind for transactions
// whose creation date falls within [start, end], compared by UTC calendar
// day. Timestamps are stored in UTC, so a transaction made late in the
// evening west of Greenwich counts toward the next day.
// Kinds without transactions in the range are absent from the result.
func (s *Store) AggregateByDateRange(ctx context.Context, start, end time.Time) (map[TransactionKind]float64, error) {
	const op = "aggregate transactions"
	if end.Before(start) {
		return nil, errdefs.Invalid("end_date", "must not be before start_date")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, amount FROM transactions WHERE date(created_at) BETWEEN ? AND ?`,
		start.Format(dateLayout), end.Format(dateLayout),
	)
	if err != nil {
		return nil, &errdefs.StoreError{Op: op, Err: err}
	}
	defer rows.Close()

	sums := make(map[TransactionKind]decimal.Decimal)
	for rows.Next() {
		var (
			kind   string
			amount float64
		)
		if err := rows.Scan(&kind, &amount); err != nil {
			return nil, &errdefs.StoreError{Op: op, Err: err}
		}
		k := TransactionKind(kind)
		sums[k] = sums[k].Add(decimal.NewFromFloat(amount))
	}
	if err := rows.Err(); err != nil {
		return nil, &errdefs.StoreError{Op: op, Err: err}
	}

	totals := make(map[TransactionKind]float64, len(sums))
	for k, v := range sums {
		totals[k] = v.InexactFloat64()
	}
	return totals, nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &errdefs.ValidationError{Field: field, Message: "expected a YYYY-MM-DD date", Err: err}
	}
	return t, nil
}
