package tests

import (
	"context"
	"log"
	"math/rand/v2"
	"os"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"github.com/prior-it/cepcache/core"
	"github.com/prior-it/cepcache/postgres"
)

var Faker = gofakeit.New(rand.Uint64())

// TestMaxConns is the pool size of every test database.
const TestMaxConns = 8

// DB connects to the database in DATABASE_URL, switches to an isolated schema and migrates it.
// The test is skipped when no database has been configured.
func DB(t *testing.T) *postgres.DB {
	t.Helper()
	ctx := context.Background()
	err := godotenv.Load("../.env")
	if err != nil {
		log.Printf("Could not load the .env file: %v", err)
	}
	url := os.Getenv("DATABASE_URL")
	if len(url) == 0 {
		t.Skip("To test database functionality, set the DATABASE_URL env variable to a valid database")
	}
	schema := "cepcache_test"
	db, err := postgres.NewDB(ctx, url, postgres.WithSchema(schema), postgres.WithMaxConns(TestMaxConns))
	if err != nil {
		t.Fatalf("cannot connect to the test database: %v", err)
	}
	Check(db.CreateSchema(ctx, schema))
	Check(db.Migrate(ctx))

	t.Cleanup(func() {
		Check(db.DeleteSchema(context.Background(), schema))
		db.Close()
	})
	return db
}

func DeleteAllAddresses(store core.AddressStore) {
	ctx := context.Background()
	for {
		addresses, err := store.FindAll(ctx, core.AddressFilter{})
		Check(err)
		if len(addresses) == 0 {
			return
		}
		for _, address := range addresses {
			_, err := store.DeleteByCode(ctx, address.PostalCode)
			Check(err)
		}
	}
}

// FakeAddress returns a valid address with a random postal code.
func FakeAddress() core.Address {
	fake := Faker.Address()
	complement := Faker.Numerify("Apto ##")
	return core.Address{
		PostalCode:   Faker.Numerify("#####-###"),
		Street:       fake.Street,
		Complement:   &complement,
		Neighborhood: Faker.City(),
		City:         fake.City,
		StateCode:    Faker.StateAbr(),
	}
}

// FakePayload returns a lookup payload for the specified postal code, shaped like a ViaCEP response.
func FakePayload(code string) core.Payload {
	fake := Faker.Address()
	return core.Payload{
		"cep":         code,
		"logradouro":  fake.Street,
		"complemento": "",
		"bairro":      Faker.City(),
		"localidade":  fake.City,
		"uf":          Faker.StateAbr(),
		"ibge":        Faker.DigitN(7),
		"ddd":         Faker.DigitN(2),
	}
}

func Check(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
