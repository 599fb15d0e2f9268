package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prior-it/cepcache/core"
)

// convertPgError tags store errors with the core sentinel the service branches on.
// The original error stays in the chain for logging, nil stays nil.
func convertPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.Join(core.ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		// addresses_postal_code_key is the only unique index
		return errors.Join(core.ErrDuplicateKey, err)
	}
	return err
}
