/*
engine.go - The allocation run

PURPOSE:
  One run matches the current order dataset against the current batch
  arena under each customer's restrictions. The engine is handed a CLONED
  arena (see dataset.Store.BeginRun) and mutates only that clone; the
  caller commits the clone atomically on success, so a failed run never
  leaves half-consumed batches behind.

ALLOCATION POLICY (business rules, all testable):
  - Customers are processed in ascending CustomerID order, orders in
    ascending OrderID order within a customer. Batch consumption is
    global across the run: first-come-by-sort-order, not proportional
    sharing.
  - The eligible pool for an order is every non-exhausted batch admitted
    by the customer's restriction set.
  - The pool is consumed oldest first (AgeDays descending, BatchID
    ascending for ties): aging stock ships before fresh stock.
  - Consumption is greedy: min(batch remaining, order outstanding) per
    batch until the order is satisfied or the pool runs dry.

ERROR ISOLATION:
  A malformed restriction set fails only that customer (status "error"
  with a typed reason); every other customer still allocates. An eligible
  pool that filters down to nothing is NOT an error - the order is
  legitimately unfulfilled.

SEE ALSO:
  - dataset/store.go: Arena cloning, run locking, atomic commit
  - report.go: External result shape
*/
package allocation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ENGINE
// =============================================================================

// RestrictionResolver yields the active restriction set for a customer.
// *Registry satisfies this.
type RestrictionResolver interface {
	Get(ctx context.Context, customerID CustomerID) (RestrictionSet, error)
}

// Engine runs allocations. It holds no mutable state of its own; all
// mutation happens on the batch slice passed to Allocate.
type Engine struct {
	Resolver RestrictionResolver
}

func NewEngine(resolver RestrictionResolver) *Engine {
	return &Engine{Resolver: resolver}
}

// RunOutcome is the engine's raw product: per-customer outcomes in
// processing order, plus run metadata.
type RunOutcome struct {
	RunID     string
	StartedAt time.Time
	Elapsed   time.Duration
	Customers []CustomerOutcome
}

// Allocate consumes the batch arena against the orders. The batches slice
// is mutated in place (it must be the run's clone, not the live store).
// Restriction reads are read-only.
func (e *Engine) Allocate(ctx context.Context, batches []Batch, orders []Order) (*RunOutcome, error) {
	if len(batches) == 0 && len(orders) == 0 {
		return nil, ErrNoDataset
	}

	started := time.Now()
	outcome := &RunOutcome{
		RunID:     uuid.NewString(),
		StartedAt: started,
	}

	for _, group := range groupOrders(orders) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		outcome.Customers = append(outcome.Customers, e.allocateCustomer(ctx, batches, group))
	}

	outcome.Elapsed = time.Since(started)
	return outcome, nil
}

// allocateCustomer processes one customer's orders against the shared arena.
func (e *Engine) allocateCustomer(ctx context.Context, batches []Batch, orders []Order) CustomerOutcome {
	customerID := orders[0].CustomerID
	out := CustomerOutcome{CustomerID: customerID}
	for _, o := range orders {
		out.RequestedWeight = out.RequestedWeight.Add(o.RequestedWeight)
	}

	rs, err := e.Resolver.Get(ctx, customerID)
	if err == nil {
		err = rs.Validate()
	}
	if err != nil {
		// This customer is done; the arena is untouched for them.
		out.Status = StatusError
		out.Reason = err.Error()
		return out
	}

	for _, order := range orders {
		out.Orders = append(out.Orders, consumeOrder(batches, order, rs))
	}
	for _, oo := range out.Orders {
		out.AllocatedWeight = out.AllocatedWeight.Add(oo.AllocatedWeight)
	}
	out.Status = ClassifyWeight(out.AllocatedWeight, out.RequestedWeight)
	return out
}

// consumeOrder greedily draws the order's weight from the eligible pool.
func consumeOrder(batches []Batch, order Order, rs RestrictionSet) OrderOutcome {
	oo := OrderOutcome{Order: order, AllocatedWeight: decimal.Zero}

	pool := eligiblePool(batches, rs)
	outstanding := order.RequestedWeight
	for _, idx := range pool {
		if !outstanding.IsPositive() {
			break
		}
		b := &batches[idx]
		take := decimal.Min(b.Remaining, outstanding)
		b.Remaining = b.Remaining.Sub(take)
		outstanding = outstanding.Sub(take)
		oo.AllocatedWeight = oo.AllocatedWeight.Add(take)
		oo.Cuts = append(oo.Cuts, BatchCut{
			BatchID:     b.ID,
			WeightTaken: take,
			AgeDays:     b.AgeDays,
		})
	}

	oo.Status = ClassifyWeight(oo.AllocatedWeight, order.RequestedWeight)
	return oo
}

// eligiblePool returns indices into batches for every non-exhausted batch
// the restriction set admits, ordered oldest first (AgeDays descending,
// BatchID ascending for ties).
func eligiblePool(batches []Batch, rs RestrictionSet) []int {
	var pool []int
	for i := range batches {
		if batches[i].Exhausted() {
			continue
		}
		if rs.Admits(batches[i]) {
			pool = append(pool, i)
		}
	}
	sort.Slice(pool, func(a, b int) bool {
		ba, bb := batches[pool[a]], batches[pool[b]]
		if ba.AgeDays != bb.AgeDays {
			return ba.AgeDays > bb.AgeDays
		}
		return ba.ID < bb.ID
	})
	return pool
}

// groupOrders buckets orders by customer and returns the buckets in the
// run's deterministic processing order: ascending CustomerID, then
// ascending OrderID within each customer.
func groupOrders(orders []Order) [][]Order {
	byCustomer := make(map[CustomerID][]Order)
	for _, o := range orders {
		byCustomer[o.CustomerID] = append(byCustomer[o.CustomerID], o)
	}

	customers := make([]CustomerID, 0, len(byCustomer))
	for id := range byCustomer {
		customers = append(customers, id)
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i] < customers[j] })

	groups := make([][]Order, 0, len(customers))
	for _, id := range customers {
		group := byCustomer[id]
		sort.Slice(group, func(i, j int) bool { return group[i].OrderID < group[j].OrderID })
		groups = append(groups, group)
	}
	return groups
}

// CheckArena verifies the batch invariant 0 <= Remaining <= Weight.
// Used by the dataset store before committing a run.
func CheckArena(batches []Batch) error {
	for i := range batches {
		b := &batches[i]
		if b.Remaining.IsNegative() || b.Remaining.GreaterThan(b.Weight) {
			return fmt.Errorf("batch %s: remaining %s outside [0, %s]",
				b.ID, b.Remaining, b.Weight)
		}
	}
	return nil
}
