package core_test

import (
	"testing"

	"github.com/prior-it/cepcache/core"
	"github.com/prior-it/cepcache/tests"
	"github.com/stretchr/testify/assert"
)

func TestPostalCode(t *testing.T) {
	t.Run("ok: 8 or 9 characters", func(t *testing.T) {
		for _, value := range []string{"12432330", "12432-330", "abcdefgh"} {
			assert.Nil(t, core.ValidatePostalCode(value), "%q should be accepted", value)
		}
	})

	t.Run("err: too short or too long", func(t *testing.T) {
		for _, value := range []string{"", "1243233", "12432-3300", "1234567890"} {
			err := core.ValidatePostalCode(value)
			assert.ErrorIs(t, err, core.ErrInvalidInput, "%q should be rejected", value)
		}
	})
}

func TestAddressValidate(t *testing.T) {
	t.Run("ok: state code is upper-cased", func(t *testing.T) {
		address := tests.FakeAddress()
		address.StateCode = "sp"
		assert.Nil(t, address.Validate())
		assert.Equal(t, "SP", address.StateCode)
	})

	t.Run("ok: empty optional fields are unset", func(t *testing.T) {
		address := tests.FakeAddress()
		empty := ""
		address.Complement = &empty
		address.ExtraTags = []string{}
		assert.Nil(t, address.Validate())
		assert.Nil(t, address.Complement)
		assert.Nil(t, address.ExtraTags)
	})

	t.Run("ok: street and neighborhood may be empty", func(t *testing.T) {
		address := tests.FakeAddress()
		address.Street = ""
		address.Neighborhood = ""
		assert.Nil(t, address.Validate())
	})

	t.Run("err: missing city or state", func(t *testing.T) {
		address := tests.FakeAddress()
		address.City = " "
		assert.ErrorIs(t, address.Validate(), core.ErrInvalidInput)

		address = tests.FakeAddress()
		address.StateCode = ""
		assert.ErrorIs(t, address.Validate(), core.ErrInvalidInput)
	})
}

func TestAddressClone(t *testing.T) {
	address := tests.FakeAddress()
	address.ExtraTags = []string{"comercial"}

	clone := address.Clone()
	assert.Equal(t, address, *clone)

	*clone.Complement = "changed"
	clone.ExtraTags[0] = "changed"
	assert.NotEqual(t, "changed", *address.Complement)
	assert.Equal(t, "comercial", address.ExtraTags[0])
}

func TestPayload(t *testing.T) {
	t.Run("ok: not-found marker", func(t *testing.T) {
		assert.True(t, core.Payload{"erro": true}.NotFound())
		assert.True(t, core.Payload{"erro": "true"}.NotFound())
		assert.False(t, core.Payload{"cep": "01001-000"}.NotFound())
	})

	t.Run("ok: map lookup fields", func(t *testing.T) {
		payload := core.Payload{
			"cep":         "01001-000",
			"logradouro":  "Praça da Sé",
			"complemento": "lado ímpar",
			"bairro":      "Sé",
			"localidade":  "São Paulo",
			"uf":          "SP",
			"ibge":        "3550308",
		}
		address, err := payload.Address()
		tests.Check(err)
		assert.Equal(t, "01001-000", address.PostalCode)
		assert.Equal(t, "Praça da Sé", address.Street)
		assert.Equal(t, "lado ímpar", *address.Complement)
		assert.Equal(t, "Sé", address.Neighborhood)
		assert.Equal(t, "São Paulo", address.City)
		assert.Equal(t, "SP", address.StateCode)
		assert.Nil(t, address.ExtraTags)
	})

	t.Run("ok: empty complement is unset", func(t *testing.T) {
		payload := tests.FakePayload("01001-000")
		payload["complemento"] = ""
		address, err := payload.Address()
		tests.Check(err)
		assert.Nil(t, address.Complement)
	})

	t.Run("err: missing or mistyped fields", func(t *testing.T) {
		payload := tests.FakePayload("01001-000")
		delete(payload, "localidade")
		_, err := payload.Address()
		assert.ErrorIs(t, err, core.ErrInvalidPayload)

		payload = tests.FakePayload("01001-000")
		payload["uf"] = 35
		_, err = payload.Address()
		assert.ErrorIs(t, err, core.ErrInvalidPayload)
	})

	t.Run("err: invalid postal code", func(t *testing.T) {
		_, err := tests.FakePayload("0100").Address()
		assert.ErrorIs(t, err, core.ErrInvalidPayload)
	})
}
