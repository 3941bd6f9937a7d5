package allocation_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/allocation-engine/allocation"
	"github.com/harvestline/allocation-engine/allocation/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func kg(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// goodBatch returns a batch matching the default restriction set.
func goodBatch(id string, weight int64, ageDays int) allocation.Batch {
	return allocation.Batch{
		ID:        allocation.BatchID(id),
		Weight:    kg(weight),
		Remaining: kg(weight),
		AgeDays:   ageDays,
		Quality:   "Good Q/S",
		Origin:    "Chile",
		Variety:   "LEGACY",
		Supplier:  "AgroSur",
	}
}

func order(customer, id string, requested int64) allocation.Order {
	return allocation.Order{
		CustomerID:      allocation.CustomerID(customer),
		OrderID:         allocation.OrderID(id),
		RequestedWeight: kg(requested),
	}
}

// newTestEngine returns an engine over a fresh in-memory registry.
func newTestEngine() (*allocation.Engine, *allocation.Registry) {
	registry := allocation.NewRegistry(store.NewMemory())
	return allocation.NewEngine(registry), registry
}

// wildcard returns a restriction set that admits every batch.
func wildcard(customer string) allocation.RestrictionSet {
	return allocation.RestrictionSet{
		CustomerID: allocation.CustomerID(customer),
		Quality:    allocation.Any(),
		Origin:     allocation.Any(),
		Variety:    allocation.Any(),
		Supplier:   allocation.Any(),
	}
}

func customerResult(t *testing.T, outcome *allocation.RunOutcome, customer string) allocation.CustomerOutcome {
	t.Helper()
	for _, c := range outcome.Customers {
		if c.CustomerID == allocation.CustomerID(customer) {
			return c
		}
	}
	t.Fatalf("no outcome for customer %s", customer)
	return allocation.CustomerOutcome{}
}

// =============================================================================
// CORE ALLOCATION TESTS
// =============================================================================

func TestAllocate_OldestFirstAcrossBatches(t *testing.T) {
	// GIVEN: B1 (100 KG, 30 days old) and B2 (50 KG, 5 days old), both
	//        matching the default restrictions
	// WHEN: C1 orders 120 KG
	// THEN: all 100 KG come from B1 (oldest), then 20 KG from B2;
	//       the order is fully allocated

	engine, _ := newTestEngine()
	ctx := context.Background()

	batches := []allocation.Batch{
		goodBatch("B1", 100, 30),
		goodBatch("B2", 50, 5),
	}
	orders := []allocation.Order{order("C1", "O1", 120)}

	outcome, err := engine.Allocate(ctx, batches, orders)
	require.NoError(t, err)

	c1 := customerResult(t, outcome, "C1")
	assert.Equal(t, allocation.StatusFullyAllocated, c1.Status)
	assert.True(t, c1.AllocatedWeight.Equal(kg(120)), "allocated %s", c1.AllocatedWeight)

	cuts := c1.Cuts()
	require.Len(t, cuts, 2)
	assert.Equal(t, allocation.BatchID("B1"), cuts[0].BatchID)
	assert.True(t, cuts[0].WeightTaken.Equal(kg(100)))
	assert.Equal(t, 30, cuts[0].AgeDays)
	assert.Equal(t, allocation.BatchID("B2"), cuts[1].BatchID)
	assert.True(t, cuts[1].WeightTaken.Equal(kg(20)))
	assert.Equal(t, 5, cuts[1].AgeDays)

	// Arena state reflects the consumption.
	assert.True(t, batches[0].Remaining.IsZero())
	assert.True(t, batches[1].Remaining.Equal(kg(30)))
}

func TestAllocate_OldestFirstTieBreak(t *testing.T) {
	// GIVEN: two equally eligible batches, ages 10 and 3, each large
	//        enough to cover the order alone
	// WHEN: an order smaller than either batch arrives
	// THEN: the age-10 batch is consumed first

	engine, _ := newTestEngine()

	batches := []allocation.Batch{
		goodBatch("B-young", 100, 3),
		goodBatch("B-old", 100, 10),
	}
	outcome, err := engine.Allocate(context.Background(), batches,
		[]allocation.Order{order("C1", "O1", 40)})
	require.NoError(t, err)

	cuts := customerResult(t, outcome, "C1").Cuts()
	require.Len(t, cuts, 1)
	assert.Equal(t, allocation.BatchID("B-old"), cuts[0].BatchID)
}

func TestAllocate_EqualAgeTieBreaksOnBatchID(t *testing.T) {
	// GIVEN: two eligible batches with identical age
	// WHEN: an order consumes from the pool
	// THEN: the lower batch id is consumed first

	engine, _ := newTestEngine()

	batches := []allocation.Batch{
		goodBatch("B2", 100, 7),
		goodBatch("B1", 100, 7),
	}
	outcome, err := engine.Allocate(context.Background(), batches,
		[]allocation.Order{order("C1", "O1", 10)})
	require.NoError(t, err)

	cuts := customerResult(t, outcome, "C1").Cuts()
	require.Len(t, cuts, 1)
	assert.Equal(t, allocation.BatchID("B1"), cuts[0].BatchID)
}

func TestAllocate_PartialAndUnfulfilled(t *testing.T) {
	// GIVEN: 60 KG of eligible stock
	// WHEN: C1 orders 100 KG and C2 orders 10 KG
	// THEN: C1 is partially allocated (60), C2 comes up empty because
	//       consumption is global across the run

	engine, _ := newTestEngine()

	batches := []allocation.Batch{goodBatch("B1", 60, 12)}
	orders := []allocation.Order{
		order("C1", "O1", 100),
		order("C2", "O2", 10),
	}

	outcome, err := engine.Allocate(context.Background(), batches, orders)
	require.NoError(t, err)

	c1 := customerResult(t, outcome, "C1")
	assert.Equal(t, allocation.StatusPartiallyAllocated, c1.Status)
	assert.True(t, c1.AllocatedWeight.Equal(kg(60)))

	c2 := customerResult(t, outcome, "C2")
	assert.Equal(t, allocation.StatusUnfulfilled, c2.Status)
	assert.True(t, c2.AllocatedWeight.IsZero())
	assert.Empty(t, c2.Cuts())
}

func TestAllocate_CustomersProcessedInSortedOrder(t *testing.T) {
	// GIVEN: two customers competing for one 50 KG batch, submitted in
	//        reverse lexical order
	// WHEN: allocation runs
	// THEN: the lexically smaller customer id wins (first-come-by-sort-order)

	engine, _ := newTestEngine()

	batches := []allocation.Batch{goodBatch("B1", 50, 9)}
	orders := []allocation.Order{
		order("C2", "O1", 50),
		order("C1", "O2", 50),
	}

	outcome, err := engine.Allocate(context.Background(), batches, orders)
	require.NoError(t, err)

	require.Len(t, outcome.Customers, 2)
	assert.Equal(t, allocation.CustomerID("C1"), outcome.Customers[0].CustomerID)
	assert.Equal(t, allocation.StatusFullyAllocated, outcome.Customers[0].Status)
	assert.Equal(t, allocation.StatusUnfulfilled, outcome.Customers[1].Status)
}

func TestAllocate_OrdersWithinCustomerSortedByOrderID(t *testing.T) {
	// GIVEN: one customer with two orders submitted out of order and only
	//        enough stock for one
	// WHEN: allocation runs
	// THEN: the lower order id is satisfied first

	engine, _ := newTestEngine()

	batches := []allocation.Batch{goodBatch("B1", 30, 9)}
	orders := []allocation.Order{
		order("C1", "O2", 30),
		order("C1", "O1", 30),
	}

	outcome, err := engine.Allocate(context.Background(), batches, orders)
	require.NoError(t, err)

	c1 := customerResult(t, outcome, "C1")
	require.Len(t, c1.Orders, 2)
	assert.Equal(t, allocation.OrderID("O1"), c1.Orders[0].Order.OrderID)
	assert.Equal(t, allocation.StatusFullyAllocated, c1.Orders[0].Status)
	assert.Equal(t, allocation.StatusUnfulfilled, c1.Orders[1].Status)
	assert.Equal(t, allocation.StatusPartiallyAllocated, c1.Status)
}

// =============================================================================
// RESTRICTION FILTERING TESTS
// =============================================================================

func TestAllocate_RestrictionsFilterEligiblePool(t *testing.T) {
	// GIVEN: batches differing only in origin
	// WHEN: the customer is restricted to Peru
	// THEN: only the Peruvian batch is consumed

	engine, registry := newTestEngine()
	ctx := context.Background()

	rs := wildcard("C1")
	rs.Origin = allocation.OneOf("Peru")
	require.NoError(t, registry.Set(ctx, rs))

	chile := goodBatch("B-chile", 100, 20)
	peru := goodBatch("B-peru", 100, 5)
	peru.Origin = "Peru"

	outcome, err := engine.Allocate(ctx, []allocation.Batch{chile, peru},
		[]allocation.Order{order("C1", "O1", 40)})
	require.NoError(t, err)

	cuts := customerResult(t, outcome, "C1").Cuts()
	require.Len(t, cuts, 1)
	assert.Equal(t, allocation.BatchID("B-peru"), cuts[0].BatchID)
}

func TestAllocate_GGNConstraintExactMatch(t *testing.T) {
	// GIVEN: a customer requiring GGN 4049928999999
	// WHEN: batches with a different or missing GGN are in stock
	// THEN: only the exact-match batch is eligible

	engine, registry := newTestEngine()
	ctx := context.Background()

	rs := wildcard("C1")
	rs.GGN = "4049928999999"
	require.NoError(t, registry.Set(ctx, rs))

	certified := goodBatch("B-cert", 50, 10)
	certified.GGN = "4049928999999"
	other := goodBatch("B-other", 50, 30)
	other.GGN = "4049928000000"
	uncertified := goodBatch("B-none", 50, 40)

	outcome, err := engine.Allocate(ctx,
		[]allocation.Batch{certified, other, uncertified},
		[]allocation.Order{order("C1", "O1", 80)})
	require.NoError(t, err)

	c1 := customerResult(t, outcome, "C1")
	assert.Equal(t, allocation.StatusPartiallyAllocated, c1.Status)
	assert.True(t, c1.AllocatedWeight.Equal(kg(50)))
	require.Len(t, c1.Cuts(), 1)
	assert.Equal(t, allocation.BatchID("B-cert"), c1.Cuts()[0].BatchID)
}

func TestAllocate_EmptyDimensionsAdmitEverything(t *testing.T) {
	// GIVEN: a restriction set with every dimension the wildcard
	// WHEN: a batch with arbitrary attributes is in stock
	// THEN: the batch is eligible

	engine, registry := newTestEngine()
	ctx := context.Background()
	require.NoError(t, registry.Set(ctx, wildcard("C1")))

	odd := allocation.Batch{
		ID:        "B-odd",
		Weight:    kg(10),
		Remaining: kg(10),
		AgeDays:   1,
		Quality:   "Poor",
		Origin:    "Nowhere",
		Variety:   "UNKNOWN",
		Supplier:  "???",
		GGN:       "123",
	}

	outcome, err := engine.Allocate(ctx, []allocation.Batch{odd},
		[]allocation.Order{order("C1", "O1", 10)})
	require.NoError(t, err)
	assert.Equal(t, allocation.StatusFullyAllocated, customerResult(t, outcome, "C1").Status)
}

func TestAllocate_DefaultRestrictionsApplyWhenUnset(t *testing.T) {
	// GIVEN: no stored restrictions for C1
	// WHEN: stock contains a default-conforming batch and a misfit
	// THEN: only the conforming batch is consumed

	engine, _ := newTestEngine()

	conforming := goodBatch("B-ok", 100, 10)
	misfit := goodBatch("B-no", 100, 50)
	misfit.Quality = "Poor M/C"

	outcome, err := engine.Allocate(context.Background(),
		[]allocation.Batch{conforming, misfit},
		[]allocation.Order{order("C1", "O1", 150)})
	require.NoError(t, err)

	c1 := customerResult(t, outcome, "C1")
	assert.Equal(t, allocation.StatusPartiallyAllocated, c1.Status)
	assert.True(t, c1.AllocatedWeight.Equal(kg(100)))
}

// =============================================================================
// ERROR ISOLATION TESTS
// =============================================================================

func TestAllocate_InvalidRestrictionIsolatedPerCustomer(t *testing.T) {
	// GIVEN: C1 has a restriction dimension that normalized to nothing,
	//        C2 has valid restrictions
	// WHEN: allocation runs
	// THEN: C1 is status "error" with a reason; C2 allocates normally and
	//       no stock was consumed for C1

	engine, registry := newTestEngine()
	ctx := context.Background()

	bad := wildcard("C1")
	bad.Quality = allocation.OneOf("   ", "")
	require.NoError(t, registry.Set(ctx, bad))
	require.NoError(t, registry.Set(ctx, wildcard("C2")))

	batches := []allocation.Batch{goodBatch("B1", 100, 10)}
	orders := []allocation.Order{
		order("C1", "O1", 100),
		order("C2", "O2", 100),
	}

	outcome, err := engine.Allocate(ctx, batches, orders)
	require.NoError(t, err)

	c1 := customerResult(t, outcome, "C1")
	assert.Equal(t, allocation.StatusError, c1.Status)
	assert.Contains(t, c1.Reason, "quality")
	assert.True(t, c1.AllocatedWeight.IsZero())
	assert.Empty(t, c1.Cuts())

	c2 := customerResult(t, outcome, "C2")
	assert.Equal(t, allocation.StatusFullyAllocated, c2.Status)
	assert.True(t, c2.AllocatedWeight.Equal(kg(100)))
}

func TestAllocate_NoDataset(t *testing.T) {
	// GIVEN: neither stock nor orders
	// WHEN: allocation runs
	// THEN: ErrNoDataset

	engine, _ := newTestEngine()
	_, err := engine.Allocate(context.Background(), nil, nil)
	assert.ErrorIs(t, err, allocation.ErrNoDataset)
}

// =============================================================================
// INVARIANT TESTS
// =============================================================================

func TestAllocate_Invariants(t *testing.T) {
	// GIVEN: a mixed dataset with several competing customers
	// WHEN: allocation runs
	// THEN: remaining weights stay within [0, weight], per-customer cut
	//       sums equal allocated weight, and allocated never exceeds
	//       requested

	engine, registry := newTestEngine()
	ctx := context.Background()
	for _, c := range []string{"C1", "C2", "C3"} {
		require.NoError(t, registry.Set(ctx, wildcard(c)))
	}

	batches := []allocation.Batch{
		goodBatch("B1", 75, 30),
		goodBatch("B2", 40, 30),
		goodBatch("B3", 10, 2),
	}
	orders := []allocation.Order{
		order("C1", "O1", 50),
		order("C2", "O2", 50),
		order("C3", "O3", 50),
		order("C1", "O4", 5),
	}

	outcome, err := engine.Allocate(ctx, batches, orders)
	require.NoError(t, err)
	require.NoError(t, allocation.CheckArena(batches))

	for _, c := range outcome.Customers {
		sum := decimal.Zero
		for _, cut := range c.Cuts() {
			assert.True(t, cut.WeightTaken.IsPositive(), "cuts record positive weight only")
			sum = sum.Add(cut.WeightTaken)
		}
		assert.True(t, sum.Equal(c.AllocatedWeight),
			"customer %s: cut sum %s != allocated %s", c.CustomerID, sum, c.AllocatedWeight)
		assert.True(t, c.AllocatedWeight.LessThanOrEqual(c.RequestedWeight))
	}

	// Everything available was handed out: 125 KG of stock vs 155 requested.
	total := decimal.Zero
	for _, c := range outcome.Customers {
		total = total.Add(c.AllocatedWeight)
	}
	assert.True(t, total.Equal(kg(125)), "total allocated %s", total)
}

func TestAllocate_RerunOnConsumedArenaYieldsLess(t *testing.T) {
	// GIVEN: an arena already consumed by a committed run
	// WHEN: the same orders run again without a reset
	// THEN: the second run allocates from remainders only

	engine, _ := newTestEngine()
	ctx := context.Background()

	batches := []allocation.Batch{goodBatch("B1", 100, 10)}
	orders := []allocation.Order{order("C1", "O1", 80)}

	first, err := engine.Allocate(ctx, batches, orders)
	require.NoError(t, err)
	assert.True(t, customerResult(t, first, "C1").AllocatedWeight.Equal(kg(80)))

	second, err := engine.Allocate(ctx, batches, orders)
	require.NoError(t, err)
	c1 := customerResult(t, second, "C1")
	assert.Equal(t, allocation.StatusPartiallyAllocated, c1.Status)
	assert.True(t, c1.AllocatedWeight.Equal(kg(20)), "second run gets the 20 KG remainder")
}
