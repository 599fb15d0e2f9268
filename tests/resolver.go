package tests

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/prior-it/cepcache/core"
)

// Resolver is a core.Resolver that answers from a fixed set of payloads.
// Unknown postal codes get the not-found payload, like the real lookup service.
type Resolver struct {
	mu       sync.Mutex
	payloads map[string]core.Payload
	// Err, when set, is returned by every call instead of a payload.
	Err error
	// Gate, when set, blocks every call until it is closed.
	Gate  chan struct{}
	calls atomic.Int64
}

var _ core.Resolver = &Resolver{}

func NewResolver() *Resolver {
	return &Resolver{payloads: make(map[string]core.Payload)}
}

// Add registers a payload for the postal code.
func (r *Resolver) Add(code string, payload core.Payload) *Resolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads[code] = payload
	return r
}

// Calls returns the amount of times Resolve has been called.
func (r *Resolver) Calls() int {
	return int(r.calls.Load())
}

// Resolve implements core.Resolver.
func (r *Resolver) Resolve(ctx context.Context, code string) (core.Payload, error) {
	r.calls.Add(1)
	if r.Gate != nil {
		select {
		case <-r.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	payload, ok := r.payloads[code]
	if !ok {
		return core.Payload{"erro": true}, nil
	}
	return maps.Clone(payload), nil
}
