package postgres

import (
	"errors"
	"fmt"

	"marketplace-backend/internal/core/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories translate into port errors.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// mapPgError tags driver errors with the matching port sentinel so services can branch on errors.Is.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return fmt.Errorf("%w: %w", ports.ErrConflict, err)
	case codeUniqueViolation:
		return fmt.Errorf("%w: %w", ports.ErrDuplicate, err)
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: %w", ports.ErrForeignKey, err)
	}
	return err
}
