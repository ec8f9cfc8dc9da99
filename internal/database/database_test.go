package database

import (
	"testing"

	"go-gin-event-admission/config"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host: "localhost", Port: "5433", User: "postgres", Password: "postgres",
		DBName: "test_db", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=localhost port=5433 user=postgres password=postgres dbname=test_db sslmode=disable timezone=UTC",
		DSN(cfg))
}
