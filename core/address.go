package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

/**
 * DOMAIN
 */

// MaxListResults is the fixed page size of every address listing.
const MaxListResults = 100

const (
	minPostalCodeLength = 8
	maxPostalCodeLength = 9
)

type Address struct {
	PostalCode   string   `json:"postal_code"`
	Street       string   `json:"street"`
	Complement   *string  `json:"complement,omitempty"`
	Neighborhood string   `json:"neighborhood"`
	City         string   `json:"city"`
	StateCode    string   `json:"state_code"`
	ExtraTags    []string `json:"extra_tags,omitempty"`
}

// ValidatePostalCode checks the loose length rule for postal codes (8 digits, or 9 with a hyphen).
// The format itself is not enforced.
func ValidatePostalCode(code string) error {
	if len(code) < minPostalCodeLength || len(code) > maxPostalCodeLength {
		return errors.Join(
			ErrInvalidInput,
			fmt.Errorf(
				"postal code %q should be between %d and %d characters",
				code,
				minPostalCodeLength,
				maxPostalCodeLength,
			),
		)
	}
	return nil
}

// NormalizeStateCode returns the canonical (upper-case) form of a state code.
func NormalizeStateCode(uf string) string {
	return strings.ToUpper(strings.TrimSpace(uf))
}

// Validate checks the address and normalises it in place.
// Street and neighborhood may be empty strings, some postal codes only identify a city.
func (a *Address) Validate() error {
	if err := ValidatePostalCode(a.PostalCode); err != nil {
		return err
	}
	if len(strings.TrimSpace(a.City)) == 0 {
		return errors.Join(ErrInvalidInput, errors.New("city cannot be empty"))
	}
	a.StateCode = NormalizeStateCode(a.StateCode)
	if len(a.StateCode) == 0 {
		return errors.Join(ErrInvalidInput, errors.New("state code cannot be empty"))
	}
	if a.Complement != nil && len(*a.Complement) == 0 {
		a.Complement = nil
	}
	if len(a.ExtraTags) == 0 {
		a.ExtraTags = nil
	}
	return nil
}

// Clone returns a copy of the address that shares no memory with the original.
func (a *Address) Clone() *Address {
	clone := *a
	if a.Complement != nil {
		complement := *a.Complement
		clone.Complement = &complement
	}
	clone.ExtraTags = slices.Clone(a.ExtraTags)
	return &clone
}

/**
 * APPLICATION
 */

type AddressFilter struct {
	// StateCode restricts the results to a single state, the empty string matches every state.
	StateCode string
}

// AddressStore persists addresses, uniquely keyed by postal code.
type AddressStore interface {
	// Retrieve the address with the specified postal code or ErrNotFound if no such address exists.
	FindByCode(ctx context.Context, code string) (*Address, error)
	// Retrieve at most MaxListResults addresses matching the filter.
	FindAll(ctx context.Context, filter AddressFilter) ([]Address, error)
	// Insert a new address or return ErrDuplicateKey if its postal code is already taken.
	Insert(ctx context.Context, address Address) error
	// Replace the address with the specified postal code and return the amount of matched addresses.
	ReplaceByCode(ctx context.Context, code string, address Address) (int64, error)
	// Delete the address with the specified postal code and return the amount of deleted addresses.
	DeleteByCode(ctx context.Context, code string) (int64, error)
}
