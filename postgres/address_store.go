package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/prior-it/cepcache/core"
)

const addressColumns = "postal_code, street, complement, neighborhood, city, state_code, extra_tags"

func NewAddressStore(DB *DB) *AddressStore {
	return &AddressStore{DB}
}

// Postgres implementation of the core AddressStore interface.
// Uniqueness of postal codes is enforced by the addresses_postal_code_key index.
type AddressStore struct {
	db *DB
}

// Force struct to implement the core interface
var _ core.AddressStore = &AddressStore{}

type addressRow struct {
	PostalCode   string   `db:"postal_code"`
	Street       string   `db:"street"`
	Complement   *string  `db:"complement"`
	Neighborhood string   `db:"neighborhood"`
	City         string   `db:"city"`
	StateCode    string   `db:"state_code"`
	ExtraTags    []string `db:"extra_tags"`
}

// FindByCode implements core.AddressStore.FindByCode
func (s *AddressStore) FindByCode(ctx context.Context, code string) (*core.Address, error) {
	rows, _ := s.db.Query(
		ctx,
		"SELECT "+addressColumns+" FROM addresses WHERE postal_code = $1",
		code,
	)
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[addressRow])
	if err != nil {
		return nil, convertPgError(err)
	}
	return convertAddress(row), nil
}

// FindAll implements core.AddressStore.FindAll
func (s *AddressStore) FindAll(ctx context.Context, filter core.AddressFilter) ([]core.Address, error) {
	rows, _ := s.db.Query(
		ctx,
		"SELECT "+addressColumns+` FROM addresses
		WHERE $1 = '' OR state_code = $1
		ORDER BY id
		LIMIT $2`,
		filter.StateCode,
		core.MaxListResults,
	)
	list, err := pgx.CollectRows(rows, pgx.RowToStructByName[addressRow])
	if err != nil {
		return nil, convertPgError(err)
	}
	addresses := make([]core.Address, len(list))
	for i, row := range list {
		addresses[i] = *convertAddress(row)
	}
	return addresses, nil
}

// Insert implements core.AddressStore.Insert
func (s *AddressStore) Insert(ctx context.Context, address core.Address) error {
	_, err := s.db.Exec(
		ctx,
		"INSERT INTO addresses ("+addressColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		address.PostalCode,
		address.Street,
		address.Complement,
		address.Neighborhood,
		address.City,
		address.StateCode,
		tags(address.ExtraTags),
	)
	return convertPgError(err)
}

// ReplaceByCode implements core.AddressStore.ReplaceByCode
func (s *AddressStore) ReplaceByCode(
	ctx context.Context,
	code string,
	address core.Address,
) (int64, error) {
	tag, err := s.db.Exec(
		ctx,
		`UPDATE addresses SET
			postal_code = $2,
			street = $3,
			complement = $4,
			neighborhood = $5,
			city = $6,
			state_code = $7,
			extra_tags = $8
		WHERE postal_code = $1`,
		code,
		address.PostalCode,
		address.Street,
		address.Complement,
		address.Neighborhood,
		address.City,
		address.StateCode,
		tags(address.ExtraTags),
	)
	if err != nil {
		return 0, convertPgError(err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByCode implements core.AddressStore.DeleteByCode
func (s *AddressStore) DeleteByCode(ctx context.Context, code string) (int64, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM addresses WHERE postal_code = $1", code)
	if err != nil {
		return 0, convertPgError(err)
	}
	return tag.RowsAffected(), nil
}

// extra_tags is NOT NULL, a nil slice would be encoded as NULL.
func tags(extraTags []string) []string {
	if extraTags == nil {
		return []string{}
	}
	return extraTags
}

func convertAddress(row addressRow) *core.Address {
	address := core.Address{
		PostalCode:   row.PostalCode,
		Street:       row.Street,
		Complement:   row.Complement,
		Neighborhood: row.Neighborhood,
		City:         row.City,
		StateCode:    row.StateCode,
		ExtraTags:    row.ExtraTags,
	}
	if len(address.ExtraTags) == 0 {
		address.ExtraTags = nil
	}
	return &address
}
