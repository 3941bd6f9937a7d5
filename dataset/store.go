/*
Package dataset holds the Batch Store and Order Store behind one run lock.

PURPOSE:
  Uploaded stock and orders live here between runs. A bulk load replaces
  the entire collection (a new stock file supersedes the prior one; no
  incremental merge). The store also owns the run lifecycle: an allocation
  run checks out a deep-cloned batch arena, mutates only the clone, and
  commits it back atomically - so a failed run leaves remaining weights
  exactly as they were.

VALIDATION:
  The store's contract begins at "sequence of well-typed records". Every
  record is still checked for the invariants uploads must hold (ids
  present, non-negative weights, positive requested weights); one bad row
  fails the whole upload with the full list of row errors. Stock rows
  under MinStockWeight are dropped silently, matching how the warehouse
  treats sub-10-gram remnants.

CONCURRENCY:
  Uploads, resets, and runs all contend on one mutex plus a `running`
  flag. While a run is active, uploads and further runs fail fast with
  ConflictError instead of corrupting in-progress consumption.
  Reads copy out under the lock.

SEE ALSO:
  - allocation/engine.go: Consumes the checked-out arena
  - allocation/errors.go: ValidationError / ConflictError
*/
package dataset

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/allocation-engine/allocation"
)

// MinStockWeight is the ingestion cutoff: stock rows lighter than this
// are dropped rather than allocated (0.01 KG).
var MinStockWeight = decimal.New(1, -2)

// =============================================================================
// STORE
// =============================================================================

// Store holds the current batch and order datasets.
type Store struct {
	mu      sync.Mutex
	running bool

	batches []allocation.Batch
	orders  []allocation.Order

	stockSnapshotID  string
	ordersSnapshotID string
}

func NewStore() *Store {
	return &Store{}
}

// =============================================================================
// BULK LOADS
// =============================================================================

// ReplaceBatches validates and installs a new stock dataset, replacing the
// previous one wholesale. Returns the ingested count and the snapshot id.
// All-or-nothing: any invalid row fails the upload with every row error.
func (s *Store) ReplaceBatches(records []allocation.Batch) (int, string, error) {
	clean, err := validateBatches(records)
	if err != nil {
		return 0, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return 0, "", &allocation.ConflictError{Op: "upload_stock"}
	}

	s.batches = clean
	s.stockSnapshotID = uuid.NewString()
	return len(clean), s.stockSnapshotID, nil
}

// ReplaceOrders validates and installs a new orders dataset.
func (s *Store) ReplaceOrders(records []allocation.Order) (int, string, error) {
	clean, err := validateOrders(records)
	if err != nil {
		return 0, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return 0, "", &allocation.ConflictError{Op: "upload_orders"}
	}

	s.orders = clean
	s.ordersSnapshotID = uuid.NewString()
	return len(clean), s.ordersSnapshotID, nil
}

func validateBatches(records []allocation.Batch) ([]allocation.Batch, error) {
	var errs allocation.ValidationErrors
	clean := make([]allocation.Batch, 0, len(records))

	for i, b := range records {
		if b.ID == "" {
			errs = append(errs, &allocation.ValidationError{Row: i, Field: "id", Reason: "missing batch id"})
			continue
		}
		if b.Weight.IsNegative() {
			errs = append(errs, &allocation.ValidationError{Row: i, Field: "weight", Reason: "negative weight"})
			continue
		}
		if b.AgeDays < 0 {
			errs = append(errs, &allocation.ValidationError{Row: i, Field: "age_days", Reason: "negative age"})
			continue
		}
		if b.Weight.LessThan(MinStockWeight) {
			// Sub-cutoff remnant, dropped rather than rejected.
			continue
		}
		b.Remaining = b.Weight
		clean = append(clean, b)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return clean, nil
}

func validateOrders(records []allocation.Order) ([]allocation.Order, error) {
	var errs allocation.ValidationErrors
	clean := make([]allocation.Order, 0, len(records))

	for i, o := range records {
		if o.CustomerID == "" {
			errs = append(errs, &allocation.ValidationError{Row: i, Field: "customer_id", Reason: "missing customer id"})
			continue
		}
		if o.OrderID == "" {
			errs = append(errs, &allocation.ValidationError{Row: i, Field: "order_id", Reason: "missing order id"})
			continue
		}
		if !o.RequestedWeight.IsPositive() {
			errs = append(errs, &allocation.ValidationError{Row: i, Field: "requested_weight", Reason: "requested weight must be positive"})
			continue
		}
		clean = append(clean, o)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return clean, nil
}

// =============================================================================
// RUN LIFECYCLE - checkout / commit / abort
// =============================================================================

// Run is one checked-out allocation run: a deep clone of the batch arena
// plus a copy of the orders. Exactly one Run may be active per Store.
type Run struct {
	store *Store
	done  bool

	// Batches is the cloned arena the engine mutates.
	Batches []allocation.Batch
	// Orders is a copy of the order dataset.
	Orders []allocation.Order
}

// BeginRun checks out the current datasets for an allocation run.
// Fails with ConflictError if another run is active, and with ErrNoDataset
// when stock or orders have not been uploaded yet.
func (s *Store) BeginRun() (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil, &allocation.ConflictError{Op: "allocate"}
	}
	if s.stockSnapshotID == "" || s.ordersSnapshotID == "" {
		return nil, allocation.ErrNoDataset
	}

	s.running = true
	orders := make([]allocation.Order, len(s.orders))
	copy(orders, s.orders)
	return &Run{
		store:   s,
		Batches: allocation.CloneBatches(s.batches),
		Orders:  orders,
	}, nil
}

// Commit validates the mutated arena and installs it atomically.
func (r *Run) Commit() error {
	if r.done {
		return fmt.Errorf("run already finished")
	}
	if err := allocation.CheckArena(r.Batches); err != nil {
		r.Abort()
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.batches = r.Batches
	r.store.running = false
	r.done = true
	return nil
}

// Abort releases the run without touching the store.
func (r *Run) Abort() {
	if r.done {
		return
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.running = false
	r.done = true
}

// =============================================================================
// READS & RESET
// =============================================================================

// Batches returns a copy of the current batch dataset.
func (s *Store) Batches() []allocation.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return allocation.CloneBatches(s.batches)
}

// Orders returns a copy of the current order dataset.
func (s *Store) Orders() []allocation.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]allocation.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// Counts reports the dataset sizes (batches, orders).
func (s *Store) Counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches), len(s.orders)
}

// SnapshotIDs reports the current upload snapshot ids (stock, orders).
// Empty means that dataset has not been uploaded.
func (s *Store) SnapshotIDs() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stockSnapshotID, s.ordersSnapshotID
}

// ResetConsumption restores every batch's remaining weight to its initial
// weight, so a replayed run sees the arena as freshly uploaded.
func (s *Store) ResetConsumption() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return &allocation.ConflictError{Op: "reset_consumption"}
	}
	for i := range s.batches {
		s.batches[i].Remaining = s.batches[i].Weight
	}
	return nil
}
