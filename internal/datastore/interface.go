// Package datastore opens the relational store for the configured driver.
package datastore

import (
	"context"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"facilityops/internal/store"
)

// Type represents the database engine backing the store.
type Type string

const (
	// PostgreSQLStore uses a PostgreSQL database (production).
	PostgreSQLStore Type = "postgres"
	// SQLiteStore uses an embedded SQLite database (local development).
	SQLiteStore Type = "sqlite"
)

// Config holds configuration for store creation.
type Config struct {
	Type             Type
	ConnectionString string
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, cfg Config) (*store.Store, error) {
	switch Type(strings.ToLower(string(cfg.Type))) {
	case PostgreSQLStore:
		return store.NewStore(ctx, string(PostgreSQLStore), cfg.ConnectionString)
	case SQLiteStore:
		s, err := store.NewStore(ctx, string(SQLiteStore), cfg.ConnectionString)
		if err != nil {
			return nil, err
		}
		// SQLite allows a single writer.
		s.DB().SetMaxOpenConns(1)
		return s, nil
	default:
		return nil, &UnsupportedStoreTypeError{Type: string(cfg.Type)}
	}
}

// UnsupportedStoreTypeError is returned when an unsupported store type is requested.
type UnsupportedStoreTypeError struct {
	Type string
}

func (e *UnsupportedStoreTypeError) Error() string {
	return "unsupported store type: " + e.Type
}
