// Package store is the SQLite persistence layer for adcheck: extraction
// templates, the template decision cache and the model call log.
package store

import (
	"database/sql"

	"github.com/hazyhaar/adcheck/internal/dbopen"
)

// Store is the adcheck database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
