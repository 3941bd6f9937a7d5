/*
restrictions.go - Per-customer restriction sets and the Restriction Registry

PURPOSE:
  A RestrictionSet decides which batches a customer's orders may draw from:
  one filter per dimension (quality, origin, variety, supplier) plus an
  optional GGN certification constraint. The Registry stores one active set
  per customer (latest write wins) and falls back to documented defaults
  when none is stored.

DEFAULTING:
  Get never fails. Resolution is a pure function - stored-or-nothing in,
  complete RestrictionSet out - so there is no implicit global fallback
  state to reason about.

PERSISTENCE:
  The Registry is backed by a RestrictionStore. Restrictions outlive any
  single allocation run, unlike batch/order data which is replaced per
  upload, so they get their own store interface.

SEE ALSO:
  - store/memory.go: In-memory RestrictionStore (tests)
  - store/sqlite: SQLite-backed RestrictionStore (production)
  - engine.go: Applies resolved sets when computing eligible pools
*/
package allocation

import (
	"context"
	"fmt"
	"strings"
)

// =============================================================================
// RESTRICTION SET
// =============================================================================

// RestrictionSet filters which batches a customer may draw from.
// GGN is an exact-match constraint; empty means no GGN constraint.
type RestrictionSet struct {
	CustomerID CustomerID
	Quality    Filter
	Origin     Filter
	Variety    Filter
	Supplier   Filter
	GGN        string
}

// Default restriction values applied when a customer has no stored set.
// These mirror what the order desk works with day to day: reinspected
// Chilean LEGACY fruit from any supplier.
var (
	DefaultQuality = []string{"Good Q/S", "Fair M/C"}
	DefaultOrigin  = []string{"Chile"}
	DefaultVariety = []string{"LEGACY"}
)

// DefaultRestrictions returns the documented default set for a customer.
func DefaultRestrictions(customerID CustomerID) RestrictionSet {
	return RestrictionSet{
		CustomerID: customerID,
		Quality:    OneOf(DefaultQuality...),
		Origin:     OneOf(DefaultOrigin...),
		Variety:    OneOf(DefaultVariety...),
		Supplier:   Any(),
		GGN:        "",
	}
}

// Resolve is the pure defaulting function: a stored set passes through,
// absence yields the defaults.
func Resolve(customerID CustomerID, stored *RestrictionSet) RestrictionSet {
	if stored == nil {
		return DefaultRestrictions(customerID)
	}
	rs := *stored
	rs.CustomerID = customerID
	return rs
}

// Validate checks that every constrained dimension references at least one
// valid value. An Any dimension is always valid; a OneOf that normalized
// to nothing, or a whitespace-only GGN, is malformed.
func (rs RestrictionSet) Validate() error {
	dims := []struct {
		name string
		f    Filter
	}{
		{"quality", rs.Quality},
		{"origin", rs.Origin},
		{"variety", rs.Variety},
		{"supplier", rs.Supplier},
	}
	for _, d := range dims {
		if !d.f.Valid() {
			return &InvalidRestrictionError{CustomerID: rs.CustomerID, Dimension: d.name}
		}
	}
	if rs.GGN != "" && strings.TrimSpace(rs.GGN) == "" {
		return &InvalidRestrictionError{CustomerID: rs.CustomerID, Dimension: "ggn"}
	}
	return nil
}

// Admits reports whether a batch passes every dimension of the set.
// Exhaustion is the eligible-pool's concern, not the restriction's.
func (rs RestrictionSet) Admits(b Batch) bool {
	if !rs.Quality.Matches(b.Quality) {
		return false
	}
	if !rs.Origin.Matches(b.Origin) {
		return false
	}
	if !rs.Variety.Matches(b.Variety) {
		return false
	}
	if !rs.Supplier.Matches(b.Supplier) {
		return false
	}
	if rs.GGN != "" && b.GGN != rs.GGN {
		return false
	}
	return true
}

// =============================================================================
// RESTRICTION STORE - Persistence interface
// =============================================================================

// RestrictionStore persists restriction sets keyed by customer.
// Implementations: store.Memory (tests), sqlite.Store (production).
type RestrictionStore interface {
	// GetRestrictions returns the stored set, or nil if none exists.
	GetRestrictions(ctx context.Context, customerID CustomerID) (*RestrictionSet, error)

	// SaveRestrictions replaces the customer's set wholesale.
	SaveRestrictions(ctx context.Context, set RestrictionSet) error

	// DeleteRestrictions removes the customer's set. No-op if absent.
	DeleteRestrictions(ctx context.Context, customerID CustomerID) error
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is the Restriction Registry: get/set/delete with defaulting.
type Registry struct {
	store RestrictionStore
}

func NewRegistry(store RestrictionStore) *Registry {
	return &Registry{store: store}
}

// Get returns the customer's active restriction set, falling back to the
// documented defaults when none is stored. Only store I/O can fail.
func (r *Registry) Get(ctx context.Context, customerID CustomerID) (RestrictionSet, error) {
	if customerID == "" {
		customerID = DefaultCustomerID
	}
	stored, err := r.store.GetRestrictions(ctx, customerID)
	if err != nil {
		return RestrictionSet{}, fmt.Errorf("get restrictions for %s: %w", customerID, err)
	}
	return Resolve(customerID, stored), nil
}

// Set replaces the customer's restriction set wholesale. Merging partial
// updates into a full set is the caller's responsibility. Idempotent.
func (r *Registry) Set(ctx context.Context, set RestrictionSet) error {
	if set.CustomerID == "" {
		set.CustomerID = DefaultCustomerID
	}
	if err := r.store.SaveRestrictions(ctx, set); err != nil {
		return fmt.Errorf("set restrictions for %s: %w", set.CustomerID, err)
	}
	return nil
}

// Delete removes the customer's stored set; Get reverts to defaults.
func (r *Registry) Delete(ctx context.Context, customerID CustomerID) error {
	if customerID == "" {
		customerID = DefaultCustomerID
	}
	if err := r.store.DeleteRestrictions(ctx, customerID); err != nil {
		return fmt.Errorf("delete restrictions for %s: %w", customerID, err)
	}
	return nil
}
