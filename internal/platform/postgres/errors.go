package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/carousel-api/internal/store"
)

// SQLSTATE codes from the integrity constraint violation class.
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

var constraintErrors = map[string]struct {
	sentinel error
	label    string
}{
	uniqueViolationCode:     {store.ErrDuplicate, "unique"},
	foreignKeyViolationCode: {store.ErrInvalidEntity, "foreign key"},
	checkViolationCode:      {store.ErrInvalidEntity, "check"},
	notNullViolationCode:    {store.ErrInvalidEntity, "not null"},
}

// MapError translates driver errors into store sentinels so callers above
// the store never import pgx. Unrecognised errors become ErrPersistence.
func MapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if c, ok := constraintErrors[pgErr.Code]; ok {
			target := pgErr.ConstraintName
			if target == "" {
				target = pgErr.ColumnName
			}
			return fmt.Errorf("%w: %s violation on %q: %v", c.sentinel, c.label, target, err)
		}
	}

	for _, sentinel := range []error{store.ErrNotFound, store.ErrDuplicate, store.ErrInvalidEntity, store.ErrPersistence} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", store.ErrPersistence, err)
}

// CheckRowsAffected turns a zero-row UPDATE or DELETE into notFound, or
// store.ErrNotFound when notFound is nil.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return fmt.Errorf("%w: no result to inspect", store.ErrPersistence)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", store.ErrPersistence, err)
	}
	if n > 0 {
		return nil
	}
	if notFound != nil {
		return notFound
	}
	return store.ErrNotFound
}
