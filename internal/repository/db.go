package repository

import (
	"context"
	"database/sql"
)

// dbtx is the subset of *sql.DB and *sql.Tx the repositories use, so the
// same repo can run on the pool or inside a caller's transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// inTx runs fn in a transaction. When db already is a transaction fn runs
// on it directly and the caller owns commit and rollback.
func inTx(ctx context.Context, db dbtx, fn func(q dbtx) error) error {
	pool, ok := db.(*sql.DB)
	if !ok {
		return fn(db)
	}
	tx, err := pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, 2*n-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}

// requireRow reports sql.ErrNoRows when an UPDATE matched nothing. MySQL
// counts changed rows, so a zero count is confirmed against the table.
func requireRow(ctx context.Context, db dbtx, res sql.Result, table string, id uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var one int
	return db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
}
