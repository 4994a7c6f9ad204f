// Package remote implements the ledger's remote store over PostgreSQL.
package remote

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Error wraps a remote store failure with the operation that produced it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("remote: %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// PermanentFailure reports whether retrying can never succeed. Integrity
// violations (SQLSTATE class 23, e.g. a foreign key to a deleted supplier)
// are permanent; network trouble and everything else is treated as
// transient.
func (e *Error) PermanentFailure() bool {
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		return len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23"
	}
	return false
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
