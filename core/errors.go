package core

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidPayload = errors.New("invalid resolver payload")
)
