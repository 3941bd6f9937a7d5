package allocation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/allocation-engine/allocation"
)

func TestBuildReport_AggregatesPerCustomer(t *testing.T) {
	// GIVEN: a run where C1 is fully served and C2 gets nothing
	// WHEN: the report is built
	// THEN: results are keyed by customer, consumption order is preserved,
	//       and the summary totals line up

	engine, _ := newTestEngine()
	ctx := context.Background()

	batches := []allocation.Batch{
		goodBatch("B1", 100, 30),
		goodBatch("B2", 50, 5),
	}
	orders := []allocation.Order{
		order("C1", "O1", 120),
		order("C2", "O2", 60),
	}

	outcome, err := engine.Allocate(ctx, batches, orders)
	require.NoError(t, err)
	report := allocation.BuildReport(outcome)

	assert.Equal(t, outcome.RunID, report.RunID)
	require.Len(t, report.Results, 2)

	c1 := report.Results["C1"]
	assert.Equal(t, allocation.StatusFullyAllocated, c1.Status)
	assert.True(t, c1.AllocatedWeight.Equal(kg(120)))
	require.Len(t, c1.Batches, 2)
	assert.Equal(t, allocation.BatchID("B1"), c1.Batches[0].BatchID, "consumption order preserved")

	c2 := report.Results["C2"]
	assert.Equal(t, allocation.StatusPartiallyAllocated, c2.Status)
	assert.True(t, c2.AllocatedWeight.Equal(kg(30)), "C2 gets B2's 30 KG remainder")

	assert.True(t, report.Summary.TotalRequested.Equal(kg(180)))
	assert.True(t, report.Summary.TotalAllocated.Equal(kg(150)))
	assert.Equal(t, 1, report.Summary.StatusCounts[allocation.StatusFullyAllocated])
	assert.Equal(t, 1, report.Summary.StatusCounts[allocation.StatusPartiallyAllocated])

	// 150/180 = 83.3%
	assert.Equal(t, "83.3", report.Summary.AllocationRate.String())
}

func TestBuildReport_EmptyRun(t *testing.T) {
	report := allocation.BuildReport(&allocation.RunOutcome{RunID: "run-1"})
	assert.Empty(t, report.Results)
	assert.True(t, report.Summary.AllocationRate.IsZero())
	assert.True(t, report.Summary.TotalAllocated.IsZero())
}

func TestClassifyWeight(t *testing.T) {
	assert.Equal(t, allocation.StatusFullyAllocated, allocation.ClassifyWeight(kg(10), kg(10)))
	assert.Equal(t, allocation.StatusPartiallyAllocated, allocation.ClassifyWeight(kg(3), kg(10)))
	assert.Equal(t, allocation.StatusUnfulfilled, allocation.ClassifyWeight(kg(0), kg(10)))
}
