package database

import (
	"testing"

	"github.com/arklim/authgate/internal/infra/config"
)

func TestDSNEscapesCredentials(t *testing.T) {
	dsn := DSN(config.PostgresSettings{
		Host:     "db",
		Port:     5432,
		User:     "auth",
		Password: "p@ss:word/1",
		Database: "authgate",
		SSLMode:  "disable",
	})

	want := "postgres://auth:p%40ss%3Aword%2F1@db:5432/authgate?sslmode=disable"
	if dsn != want {
		t.Fatalf("unexpected dsn %q, want %q", dsn, want)
	}
}
