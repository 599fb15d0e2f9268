package core

import (
	"context"
	"errors"
	"fmt"
)

// notFoundMarker is the key the lookup service embeds in an otherwise successful response when it
// does not know a postal code.
const notFoundMarker = "erro"

// Payload is the raw object returned by the postal code lookup service.
type Payload map[string]any

// NotFound reports whether the payload carries the lookup service's not-found marker.
// Only the presence of the key matters, its value is ignored.
func (p Payload) NotFound() bool {
	_, ok := p[notFoundMarker]
	return ok
}

func (p Payload) field(key string) (string, error) {
	raw, ok := p[key]
	if !ok {
		return "", fmt.Errorf("missing field %q", key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field %q should be a string, got %T", key, raw)
	}
	return value, nil
}

// Address maps the payload onto an Address and validates the result.
// Any mismatch is reported as ErrInvalidPayload.
func (p Payload) Address() (*Address, error) {
	var address Address
	var err error
	for key, target := range map[string]*string{
		"cep":        &address.PostalCode,
		"logradouro": &address.Street,
		"bairro":     &address.Neighborhood,
		"localidade": &address.City,
		"uf":         &address.StateCode,
	} {
		if *target, err = p.field(key); err != nil {
			return nil, errors.Join(ErrInvalidPayload, err)
		}
	}
	if complement, err := p.field("complemento"); err == nil && len(complement) > 0 {
		address.Complement = &complement
	}
	if err := address.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}
	return &address, nil
}

// Resolver looks up postal codes in an authoritative external source.
type Resolver interface {
	// Resolve returns the payload for the postal code as-is, including not-found payloads.
	Resolve(ctx context.Context, code string) (Payload, error)
}
