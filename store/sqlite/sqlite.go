/*
Package sqlite provides a SQLite-backed RestrictionStore.

PURPOSE:
  Restriction sets outlive any single allocation run (batch/order data is
  replaced per upload and stays in memory), so they get durable storage.
  One row per customer, the set serialized as JSON - the same shape the
  registry hands out, so the store stays dumb about restriction semantics.

KEY TABLE:
  customer_restrictions:
    customer_id  TEXT PRIMARY KEY
    config_json  TEXT NOT NULL      -- serialized RestrictionSet
    created_at / updated_at

LATEST WRITE WINS:
  SaveRestrictions upserts; there is exactly one active set per customer.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite WAL mode. Reads
  (engine resolving restrictions) never block each other.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/restrictions.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  registry := allocation.NewRegistry(store)

SEE ALSO:
  - allocation/restrictions.go: RestrictionStore interface, Registry
  - allocation/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harvestline/allocation-engine/allocation"
)

// Store implements allocation.RestrictionStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS customer_restrictions (
		customer_id TEXT PRIMARY KEY,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SERIALIZED FORM
// =============================================================================

// restrictionJSON is the stored shape. A nil slice pointer is the
// wildcard; a present (possibly empty) slice is a OneOf filter. The
// distinction matters: an empty OneOf is a malformed set the engine must
// still see as malformed after a round-trip.
type restrictionJSON struct {
	Quality  *[]string `json:"quality"`
	Origin   *[]string `json:"origin"`
	Variety  *[]string `json:"variety"`
	Supplier *[]string `json:"supplier"`
	GGN      string    `json:"ggn,omitempty"`
}

func encodeFilter(f allocation.Filter) *[]string {
	if f.IsAny() {
		return nil
	}
	v := f.Values()
	if v == nil {
		v = []string{}
	}
	return &v
}

func decodeFilter(p *[]string) allocation.Filter {
	if p == nil {
		return allocation.Any()
	}
	// An empty slice decodes to an empty OneOf, preserving a malformed
	// set across the round-trip instead of laundering it into a wildcard.
	return allocation.OneOf(*p...)
}

func encodeSet(set allocation.RestrictionSet) (string, error) {
	rec := restrictionJSON{
		Quality:  encodeFilter(set.Quality),
		Origin:   encodeFilter(set.Origin),
		Variety:  encodeFilter(set.Variety),
		Supplier: encodeFilter(set.Supplier),
		GGN:      set.GGN,
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeSet(customerID allocation.CustomerID, raw string) (allocation.RestrictionSet, error) {
	var rec restrictionJSON
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return allocation.RestrictionSet{}, err
	}
	return allocation.RestrictionSet{
		CustomerID: customerID,
		Quality:    decodeFilter(rec.Quality),
		Origin:     decodeFilter(rec.Origin),
		Variety:    decodeFilter(rec.Variety),
		Supplier:   decodeFilter(rec.Supplier),
		GGN:        rec.GGN,
	}, nil
}

// =============================================================================
// RESTRICTION STORE
// =============================================================================

// GetRestrictions returns the stored set, or nil when none exists.
func (s *Store) GetRestrictions(ctx context.Context, customerID allocation.CustomerID) (*allocation.RestrictionSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json FROM customer_restrictions WHERE customer_id = ?",
		string(customerID),
	).Scan(&raw)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	set, err := decodeSet(customerID, raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt restriction record for %s: %w", customerID, err)
	}
	return &set, nil
}

// SaveRestrictions upserts the customer's set. Latest write wins.
func (s *Store) SaveRestrictions(ctx context.Context, set allocation.RestrictionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := encodeSet(set)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO customer_restrictions (customer_id, config_json, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(customer_id) DO UPDATE SET
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, query, string(set.CustomerID), raw, now, now)
	return err
}

// DeleteRestrictions removes the customer's set. No-op if absent.
func (s *Store) DeleteRestrictions(ctx context.Context, customerID allocation.CustomerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM customer_restrictions WHERE customer_id = ?",
		string(customerID),
	)
	return err
}

// ListCustomerIDs returns every customer with a stored set, sorted.
// Used by callers auditing which customers carry overrides.
func (s *Store) ListCustomerIDs(ctx context.Context) ([]allocation.CustomerID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT customer_id FROM customer_restrictions ORDER BY customer_id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []allocation.CustomerID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, allocation.CustomerID(id))
	}
	return ids, rows.Err()
}
