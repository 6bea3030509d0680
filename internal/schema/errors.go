package schema

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Use errors.Is to test for one of these against an
// error returned by Plan/Apply/RunMigrations.
var (
	// ErrSchemaInvalid: target DDL failed to load into the pristine
	// in-memory database. The engine's error is wrapped verbatim.
	ErrSchemaInvalid = errors.New("schema invalid")

	// ErrPlanInfeasible: a structural modification would drop columns
	// whose rows cannot be mapped — e.g. a NOT NULL column with no
	// default added to an existing non-empty table. Raised before any
	// mutation.
	ErrPlanInfeasible = errors.New("plan infeasible")

	// ErrForeignKeyViolation: PRAGMA foreign_key_check returned rows
	// after applying a plan.
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrStatementSplit: a migration file still contains BEGIN TRANSACTION
	// after one strip attempt.
	ErrStatementSplit = errors.New("statement split failed")

	// ErrMigrationTampered: an applied migration's content hash no longer
	// matches its file. Logged as a warning per migration, not fatal to
	// the overall run.
	ErrMigrationTampered = errors.New("migration tampered")

	// ErrRemoteTransport: the remote-migration HTTP handshake failed
	// (non-2xx or ETag mismatch).
	ErrRemoteTransport = errors.New("remote transport error")
)

// wrap attaches context to one of the sentinel errors while keeping it
// matchable via errors.Is.
func wrap(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}
