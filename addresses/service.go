// Package addresses implements the address use cases on top of a core.AddressStore, falling back to a
// core.Resolver when a postal code is not stored yet (cache-aside).
package addresses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prior-it/cepcache/core"
	"golang.org/x/sync/singleflight"
)

type Service struct {
	store          core.AddressStore
	resolver       core.Resolver
	fills          singleflight.Group
	returnExisting bool
}

type Option func(*Service)

// WithReturnExisting makes a lookup that loses the write-back race return the address that won it,
// instead of failing with core.ErrConflict.
func WithReturnExisting(enabled bool) Option {
	return func(s *Service) {
		s.returnExisting = enabled
	}
}

func NewService(store core.AddressStore, resolver core.Resolver, opts ...Option) *Service {
	s := &Service{
		store:    store,
		resolver: resolver,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetByCode returns the stored address for the postal code. Unknown postal codes are looked up with
// the resolver and stored before being returned.
func (s *Service) GetByCode(ctx context.Context, code string) (*core.Address, error) {
	if err := core.ValidatePostalCode(code); err != nil {
		return nil, err
	}
	address, err := s.store.FindByCode(ctx, code)
	if err == nil {
		slog.DebugContext(ctx, "Address found in store", "postal_code", code)
		return address, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("cannot retrieve address %q: %w", code, err)
	}

	// Concurrent misses for the same code share a single lookup and write-back.
	// The fill ignores the caller's cancellation, only the resolver timeout bounds it.
	result, err, shared := s.fills.Do(code, func() (any, error) {
		return s.fill(context.WithoutCancel(ctx), code)
	})
	if err != nil {
		return nil, err
	}
	address = result.(*core.Address)
	if shared {
		address = address.Clone()
	}
	return address, nil
}

func (s *Service) fill(ctx context.Context, code string) (*core.Address, error) {
	// A fill for this code may have completed between the caller's miss and joining the group.
	address, err := s.store.FindByCode(ctx, code)
	switch {
	case err == nil:
		return address, nil
	case !errors.Is(err, core.ErrNotFound):
		return nil, fmt.Errorf("cannot retrieve address %q: %w", code, err)
	}

	payload, err := s.resolver.Resolve(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve postal code %q: %w", code, err)
	}
	if payload.NotFound() {
		slog.DebugContext(ctx, "Postal code unknown to resolver", "postal_code", code)
		return nil, core.ErrNotFound
	}
	address, err = payload.Address()
	if err != nil {
		return nil, fmt.Errorf("cannot use resolved postal code %q: %w", code, err)
	}
	// Stored under the requested code, the resolver may answer in another form (01001-000 for 01001000).
	if address.PostalCode != code {
		slog.DebugContext(ctx, "Resolved postal code differs from the requested one",
			"postal_code", code, "resolved", address.PostalCode)
		address.PostalCode = code
	}

	err = s.store.Insert(ctx, *address)
	switch {
	case errors.Is(err, core.ErrDuplicateKey) && s.returnExisting:
		slog.InfoContext(ctx, "Resolved address was stored concurrently", "postal_code", address.PostalCode)
		return s.store.FindByCode(ctx, address.PostalCode)
	case errors.Is(err, core.ErrDuplicateKey):
		return nil, errors.Join(core.ErrConflict, err)
	case err != nil:
		return nil, fmt.Errorf("cannot store resolved address %q: %w", code, err)
	}
	slog.InfoContext(ctx, "Resolved address stored", "postal_code", address.PostalCode)
	return address, nil
}

// List returns at most core.MaxListResults addresses, optionally restricted to a state.
// The state code is case-insensitive.
func (s *Service) List(ctx context.Context, stateCode string) ([]core.Address, error) {
	filter := core.AddressFilter{StateCode: core.NormalizeStateCode(stateCode)}
	addresses, err := s.store.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("cannot list addresses: %w", err)
	}
	return addresses, nil
}

// Create stores a new address or returns core.ErrConflict if its postal code is already taken.
func (s *Service) Create(ctx context.Context, address core.Address) (*core.Address, error) {
	if err := address.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, address); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, errors.Join(core.ErrConflict, err)
		}
		return nil, fmt.Errorf("cannot create address %q: %w", address.PostalCode, err)
	}
	return &address, nil
}

// Update replaces the address stored under code, or returns core.ErrNotFound if there is none.
func (s *Service) Update(ctx context.Context, code string, address core.Address) error {
	if err := address.Validate(); err != nil {
		return err
	}
	matched, err := s.store.ReplaceByCode(ctx, code, address)
	switch {
	case errors.Is(err, core.ErrDuplicateKey):
		return errors.Join(core.ErrConflict, err)
	case err != nil:
		return fmt.Errorf("cannot update address %q: %w", code, err)
	case matched == 0:
		return core.ErrNotFound
	}
	return nil
}

// Delete removes the address stored under code, or returns core.ErrNotFound if there is none.
func (s *Service) Delete(ctx context.Context, code string) error {
	deleted, err := s.store.DeleteByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("cannot delete address %q: %w", code, err)
	}
	if deleted == 0 {
		return core.ErrNotFound
	}
	return nil
}
