// Package txn provides the scoped transaction boundary every mutating
// engine operation runs inside: acquire on entry, roll back on every exit
// path, serializable isolation so check-then-act sequences on the stock
// ledger cannot interleave.
package txn

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"bloodlink/pkg/apperrors"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Store methods take a Querier so they compose into a caller's
// transaction without caring who owns it.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Runner executes fn inside one atomic unit. An error from fn discards
// every change fn made.
type Runner interface {
	RunInTx(ctx context.Context, fn func(q Querier) error) error
}

// SQLRunner runs functions inside serializable database transactions.
type SQLRunner struct {
	db *sql.DB
}

// NewRunner wraps db in a serializable transaction runner.
func NewRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

// RunInTx begins a serializable transaction, runs fn against it, and
// commits only when fn succeeds. Serialization failures surface as a
// conflict error; the engine never retries, the caller resubmits.
func (r *SQLRunner) RunInTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodePersistence, "storage unavailable")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return Translate(err)
	}

	if err := tx.Commit(); err != nil {
		return Translate(err)
	}
	return nil
}

// Translate maps driver errors onto the engine taxonomy. Already-coded
// errors pass through unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	var coded *apperrors.Error
	if errors.As(err, &coded) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return apperrors.Wrap(err, apperrors.CodeConflict, "operation conflicted with a concurrent update, please resubmit")
		case "23505": // unique_violation
			return apperrors.Wrap(err, apperrors.CodeConflict, "duplicate record")
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.Wrap(err, apperrors.CodeNotFound, "record not found")
	}

	return apperrors.Wrap(err, apperrors.CodePersistence, "storage failure")
}
