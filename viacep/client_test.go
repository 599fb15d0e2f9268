package viacep_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prior-it/cepcache/tests"
	"github.com/prior-it/cepcache/viacep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lookupServer mimics ViaCEP: known codes return an address, anything else {"erro": true}.
func lookupServer(t *testing.T, known map[string]any) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		code := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/ws/"), "/json/")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case code == "broken":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("<html>Bad Request</html>"))
		case code == "garbage":
			_, _ = w.Write([]byte(`["not", "an", "object"]`))
		case known[code] != nil:
			_ = json.NewEncoder(w).Encode(known[code])
		default:
			_, _ = w.Write([]byte(`{"erro": "true"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newClient(t *testing.T, srv *httptest.Server, missTTL time.Duration) *viacep.Client {
	t.Helper()
	client, err := viacep.NewClient(viacep.Config{
		URL:     srv.URL + "/ws/%s/json/",
		Timeout: time.Second,
		MissTTL: missTTL,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	payload := tests.FakePayload("01001-000")
	srv, calls := lookupServer(t, map[string]any{"01001000": payload})

	t.Run("ok: known postal code", func(t *testing.T) {
		client := newClient(t, srv, 0)
		result, err := client.Resolve(ctx, "01001000")
		require.NoError(t, err)
		assert.False(t, result.NotFound())

		address, err := result.Address()
		require.NoError(t, err)
		assert.Equal(t, "01001-000", address.PostalCode)
		assert.Equal(t, payload["localidade"], address.City)
	})

	t.Run("ok: not-found marker is returned as payload", func(t *testing.T) {
		client := newClient(t, srv, 0)
		result, err := client.Resolve(ctx, "12420-339")
		require.NoError(t, err, "A not-found answer is not an error")
		assert.True(t, result.NotFound())
	})

	t.Run("ok: miss cache avoids repeated lookups", func(t *testing.T) {
		client := newClient(t, srv, time.Minute)
		before := calls.Load()

		for range 3 {
			result, err := client.Resolve(ctx, "99999-999")
			require.NoError(t, err)
			assert.True(t, result.NotFound())
		}
		assert.Equal(t, before+1, calls.Load(), "Only the first lookup should reach the server")

		_, err := client.Resolve(ctx, "01001000")
		require.NoError(t, err)
		_, err = client.Resolve(ctx, "01001000")
		require.NoError(t, err)
		assert.Equal(t, before+3, calls.Load(), "Found postal codes should never be cached")
	})

	t.Run("err: unexpected status", func(t *testing.T) {
		client := newClient(t, srv, 0)
		_, err := client.Resolve(ctx, "broken")
		assert.ErrorContains(t, err, "status 400")
	})

	t.Run("err: body is not an object", func(t *testing.T) {
		client := newClient(t, srv, 0)
		_, err := client.Resolve(ctx, "garbage")
		assert.Error(t, err)
	})

	t.Run("err: cancelled context", func(t *testing.T) {
		client := newClient(t, srv, 0)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := client.Resolve(cancelled, "01001000")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("err: url template without verb", func(t *testing.T) {
		_, err := viacep.NewClient(viacep.Config{URL: "https://viacep.com.br/ws/json/"})
		assert.Error(t, err)
	})
}
