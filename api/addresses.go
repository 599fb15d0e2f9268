package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/prior-it/cepcache/core"
	"github.com/prior-it/cepcache/server"
)

const stateCodeLength = 2

type listQuery struct {
	UF string `schema:"uf"`
}

// addressInput uses pointers to tell missing required fields apart from empty ones.
type addressInput struct {
	PostalCode   *string  `json:"postal_code"`
	Street       *string  `json:"street"`
	Complement   *string  `json:"complement"`
	Neighborhood *string  `json:"neighborhood"`
	City         *string  `json:"city"`
	StateCode    *string  `json:"state_code"`
	ExtraTags    []string `json:"extra_tags"`
}

func (in addressInput) toAddress() (core.Address, error) {
	for field, value := range map[string]*string{
		"postal_code":  in.PostalCode,
		"street":       in.Street,
		"neighborhood": in.Neighborhood,
		"city":         in.City,
		"state_code":   in.StateCode,
	} {
		if value == nil {
			return core.Address{}, errors.Join(core.ErrInvalidInput, fmt.Errorf("field %q is required", field))
		}
	}
	return core.Address{
		PostalCode:   *in.PostalCode,
		Street:       *in.Street,
		Complement:   in.Complement,
		Neighborhood: *in.Neighborhood,
		City:         *in.City,
		StateCode:    *in.StateCode,
		ExtraTags:    in.ExtraTags,
	}, nil
}

func parseAddress(ex *server.Exchange) (core.Address, error) {
	var input addressInput
	if err := ex.ParseBody(&input); err != nil {
		return core.Address{}, err
	}
	return input.toAddress()
}

func pathCode(ex *server.Exchange) (string, error) {
	code := ex.GetPath("code")
	ex.LogString("postal_code", code)
	return code, core.ValidatePostalCode(code)
}

// ListAddresses handles GET /address?uf=XX
func ListAddresses(ex *server.Exchange, state *State) error {
	var query listQuery
	if err := ex.ParseQuery(&query); err != nil {
		return err
	}
	if ex.HasQuery("uf") && utf8.RuneCountInString(query.UF) != stateCodeLength {
		return errors.Join(
			core.ErrInvalidInput,
			fmt.Errorf("uf should be exactly %d characters", stateCodeLength),
		)
	}
	addresses, err := state.Addresses.List(ex.Context(), query.UF)
	if err != nil {
		return err
	}
	ex.LogField("results", slog.IntValue(len(addresses)))
	ex.JSON(http.StatusOK, addresses)
	return nil
}

// GetAddress handles GET /address/{code}
func GetAddress(ex *server.Exchange, state *State) error {
	code, err := pathCode(ex)
	if err != nil {
		return err
	}
	address, err := state.Addresses.GetByCode(ex.Context(), code)
	if err != nil {
		return err
	}
	ex.JSON(http.StatusOK, address)
	return nil
}

// CreateAddress handles POST /address
func CreateAddress(ex *server.Exchange, state *State) error {
	address, err := parseAddress(ex)
	if err != nil {
		return err
	}
	ex.LogString("postal_code", address.PostalCode)
	created, err := state.Addresses.Create(ex.Context(), address)
	if err != nil {
		return err
	}
	ex.JSON(http.StatusCreated, created)
	return nil
}

// UpdateAddress handles PUT /address/{code}
func UpdateAddress(ex *server.Exchange, state *State) error {
	code, err := pathCode(ex)
	if err != nil {
		return err
	}
	address, err := parseAddress(ex)
	if err != nil {
		return err
	}
	if err := state.Addresses.Update(ex.Context(), code, address); err != nil {
		return err
	}
	ex.NoContent()
	return nil
}

// DeleteAddress handles DELETE /address/{code}
func DeleteAddress(ex *server.Exchange, state *State) error {
	code, err := pathCode(ex)
	if err != nil {
		return err
	}
	if err := state.Addresses.Delete(ex.Context(), code); err != nil {
		return err
	}
	ex.NoContent()
	return nil
}
