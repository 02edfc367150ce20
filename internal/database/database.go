package database

import (
	"embed"
	"errors"
	"fmt"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// ErrDuplicateKey is returned when an insert collides with a unique key.
var ErrDuplicateKey = errors.New("duplicate key")

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open returns the store named by driver.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case DriverMemory:
		return NewMemStore(), nil
	case DriverPostgres:
		return NewPgStore(dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
