package postgres_test

import (
	"context"
	"sync"
	"testing"

	"github.com/prior-it/cepcache/core"
	"github.com/prior-it/cepcache/postgres"
	"github.com/prior-it/cepcache/tests"
	"github.com/stretchr/testify/assert"
)

func TestAddressStore(t *testing.T) {
	db := tests.DB(t)
	store := postgres.NewAddressStore(db)
	ctx := context.Background()
	tests.DeleteAllAddresses(store)
	defer tests.DeleteAllAddresses(store)

	t.Run("ok: pool size follows the options", func(t *testing.T) {
		assert.Equal(t, int32(tests.TestMaxConns), db.Config().MaxConns)
	})

	t.Run("ok: insert and find address", func(t *testing.T) {
		address := tests.FakeAddress()
		address.ExtraTags = []string{"residential", "verified"}
		tests.Check(store.Insert(ctx, address))

		found, err := store.FindByCode(ctx, address.PostalCode)
		tests.Check(err)
		assert.Equal(t, address, *found, "The stored address should match the inserted one")

		address = tests.FakeAddress()
		address.Complement = nil
		tests.Check(store.Insert(ctx, address))

		found, err = store.FindByCode(ctx, address.PostalCode)
		tests.Check(err)
		assert.Nil(t, found.Complement, "Complement field should be nil")
		assert.Nil(t, found.ExtraTags, "ExtraTags field should be nil when empty")
	})

	t.Run("err: find unknown address", func(t *testing.T) {
		found, err := store.FindByCode(ctx, "00000-000")
		assert.Nil(t, found)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("err: insert duplicate postal code", func(t *testing.T) {
		address := tests.FakeAddress()
		tests.Check(store.Insert(ctx, address))

		err := store.Insert(ctx, address)
		assert.ErrorIs(t, err, core.ErrDuplicateKey, "The duplicate address should return ErrDuplicateKey")
	})

	t.Run("ok: concurrent inserts keep a single address", func(t *testing.T) {
		address := tests.FakeAddress()
		const workers = 8
		errs := make([]error, workers)
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = store.Insert(ctx, address)
			}()
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, core.ErrDuplicateKey)
			}
		}
		assert.Equal(t, 1, succeeded, "Exactly one insert should succeed")
	})

	t.Run("ok: find all filters by state", func(t *testing.T) {
		tests.DeleteAllAddresses(store)
		for _, uf := range []string{"SP", "SP", "RJ"} {
			address := tests.FakeAddress()
			address.StateCode = uf
			tests.Check(store.Insert(ctx, address))
		}

		all, err := store.FindAll(ctx, core.AddressFilter{})
		tests.Check(err)
		assert.Len(t, all, 3)

		sp, err := store.FindAll(ctx, core.AddressFilter{StateCode: "SP"})
		tests.Check(err)
		assert.Len(t, sp, 2)

		none, err := store.FindAll(ctx, core.AddressFilter{StateCode: "AM"})
		tests.Check(err)
		assert.NotNil(t, none, "An empty result should be an empty list")
		assert.Empty(t, none)
	})

	t.Run("ok: find all is capped", func(t *testing.T) {
		tests.DeleteAllAddresses(store)
		for i := 0; i < core.MaxListResults+5; i++ {
			address := tests.FakeAddress()
			address.PostalCode = tests.Faker.Numerify("########")
			for store.Insert(ctx, address) != nil {
				address.PostalCode = tests.Faker.Numerify("########")
			}
		}
		all, err := store.FindAll(ctx, core.AddressFilter{})
		tests.Check(err)
		assert.Len(t, all, core.MaxListResults)
	})

	t.Run("ok: replace address", func(t *testing.T) {
		address := tests.FakeAddress()
		tests.Check(store.Insert(ctx, address))

		replacement := tests.FakeAddress()
		replacement.PostalCode = address.PostalCode
		replacement.Complement = nil
		matched, err := store.ReplaceByCode(ctx, address.PostalCode, replacement)
		tests.Check(err)
		assert.Equal(t, int64(1), matched)

		found, err := store.FindByCode(ctx, address.PostalCode)
		tests.Check(err)
		assert.Equal(t, replacement, *found, "Every field should be replaced")
	})

	t.Run("ok: replace unknown address", func(t *testing.T) {
		matched, err := store.ReplaceByCode(ctx, "00000-000", tests.FakeAddress())
		tests.Check(err)
		assert.Equal(t, int64(0), matched)
	})

	t.Run("err: replace onto an existing postal code", func(t *testing.T) {
		first := tests.FakeAddress()
		second := tests.FakeAddress()
		tests.Check(store.Insert(ctx, first))
		tests.Check(store.Insert(ctx, second))

		code := second.PostalCode
		second.PostalCode = first.PostalCode
		matched, err := store.ReplaceByCode(ctx, code, second)
		assert.ErrorIs(t, err, core.ErrDuplicateKey)
		assert.Equal(t, int64(0), matched)

		found, err := store.FindByCode(ctx, code)
		tests.Check(err)
		assert.Equal(t, code, found.PostalCode, "The original address should be left untouched")
	})

	t.Run("ok: delete address", func(t *testing.T) {
		address := tests.FakeAddress()
		tests.Check(store.Insert(ctx, address))

		deleted, err := store.DeleteByCode(ctx, address.PostalCode)
		tests.Check(err)
		assert.Equal(t, int64(1), deleted)

		found, err := store.FindByCode(ctx, address.PostalCode)
		assert.Nil(t, found, "Getting a deleted address should return nil for the address")
		assert.ErrorIs(t, err, core.ErrNotFound, "Getting a deleted address should return ErrNotFound")

		deleted, err = store.DeleteByCode(ctx, address.PostalCode)
		tests.Check(err)
		assert.Equal(t, int64(0), deleted, "Deleting twice should not match anything")
	})
}
