/*
Package allocation provides the core fruit-stock allocation engine.

PURPOSE:
  This package contains the domain types and algorithms for matching finite,
  aging, quality-tagged stock batches to customer orders under per-customer
  eligibility restrictions. It knows nothing about HTTP, spreadsheets, or
  persistence - callers hand it well-typed batches, orders, and restriction
  sets and get back a structured allocation report.

KEY CONCEPTS IN THIS FILE (types.go):
  - Batch: A discrete quantity of stock with fixed attributes and a
    depleting remaining weight
  - Order: A customer's request for a given weight
  - BatchCut: A single consumption of weight from one batch
  - Status: The fulfillment classification of an order or customer

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all weights to avoid
     floating-point errors (stock is sold by the kilogram)
  2. Type Safety: Strong typing for IDs prevents mixing customer,
     order, and batch identifiers
  3. Auditability: Consumption order is preserved in every result

SEE ALSO:
  - filter.go: Restriction dimension filters
  - engine.go: The allocation run
  - report.go: External result shape
*/
package allocation

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CustomerID string
type OrderID string
type BatchID string

// DefaultCustomerID is used when a caller does not name a customer.
const DefaultCustomerID CustomerID = "default"

// =============================================================================
// BATCH - A quantity of stock with a depleting remaining weight
// =============================================================================

// Batch is one row of the uploaded stock dataset. Weight is the quantity
// received; Remaining is what allocation has not yet consumed.
// Invariant: 0 <= Remaining <= Weight.
type Batch struct {
	ID        BatchID
	Weight    decimal.Decimal
	Remaining decimal.Decimal
	AgeDays   int
	Quality   string
	Origin    string
	Variety   string
	Supplier  string
	GGN       string // empty means uncertified
}

// Exhausted reports whether the batch has no weight left to allocate.
func (b Batch) Exhausted() bool {
	return !b.Remaining.IsPositive()
}

// CloneBatches deep-copies a batch slice. The engine mutates Remaining on
// the clone only, so a failed run never touches the caller's arena.
func CloneBatches(batches []Batch) []Batch {
	out := make([]Batch, len(batches))
	copy(out, batches)
	return out
}

// =============================================================================
// ORDER - A customer's request for weight
// =============================================================================

// Order is one row of the uploaded orders dataset. Immutable after load.
type Order struct {
	CustomerID      CustomerID
	OrderID         OrderID
	RequestedWeight decimal.Decimal
}

// =============================================================================
// STATUS - Fulfillment classification
// =============================================================================

type Status string

const (
	StatusFullyAllocated     Status = "fully_allocated"
	StatusPartiallyAllocated Status = "partially_allocated"
	StatusUnfulfilled        Status = "unfulfilled"

	// StatusError marks a customer whose restriction set was malformed.
	// Other customers in the same run still allocate normally.
	StatusError Status = "error"
)

// ClassifyWeight maps allocated-vs-requested weight to a status.
// fully_allocated iff allocated == requested, unfulfilled iff zero,
// partially_allocated otherwise.
func ClassifyWeight(allocated, requested decimal.Decimal) Status {
	switch {
	case allocated.Equal(requested):
		return StatusFullyAllocated
	case allocated.IsZero():
		return StatusUnfulfilled
	default:
		return StatusPartiallyAllocated
	}
}

// =============================================================================
// CONSUMPTION - One cut of weight from one batch
// =============================================================================

// BatchCut records a single consumption of weight from a batch.
// The sequence of cuts doubles as the audit trail: insertion order is
// consumption order.
type BatchCut struct {
	BatchID     BatchID
	WeightTaken decimal.Decimal
	AgeDays     int
}

// OrderOutcome is the engine's record for a single order.
type OrderOutcome struct {
	Order           Order
	Status          Status
	AllocatedWeight decimal.Decimal
	Cuts            []BatchCut
}

// CustomerOutcome groups a customer's order outcomes within one run.
// Reason is set only when Status == StatusError.
type CustomerOutcome struct {
	CustomerID      CustomerID
	Status          Status
	RequestedWeight decimal.Decimal
	AllocatedWeight decimal.Decimal
	Orders          []OrderOutcome
	Reason          string
}

// Cuts returns the customer's consumption trail across all orders,
// in consumption order.
func (c CustomerOutcome) Cuts() []BatchCut {
	var cuts []BatchCut
	for _, o := range c.Orders {
		cuts = append(cuts, o.Cuts...)
	}
	return cuts
}
