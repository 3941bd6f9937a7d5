/*
report.go - Allocation Report Builder

PURPOSE:
  Pure formatting: converts the engine's per-customer outcomes into the
  externally exposed result shape. Consumption order is preserved in every
  batch list (insertion order = consumption order), which doubles as the
  audit trail. Also computes the run summary the order desk reads first:
  totals, allocation rate, status breakdown.

CONTRACT NOTE:
  Upstream frontend snapshots disagreed on field names (weight vs
  allocated_weight, status spellings). This is the single place the
  external contract is chosen: allocated_weight, batches[].{batch_id,
  weight_taken, age_days}, statuses per types.go.

SEE ALSO:
  - engine.go: Produces RunOutcome
  - api/dto.go: JSON tags for the shapes defined here
*/
package allocation

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// EXTERNAL RESULT SHAPE
// =============================================================================

// AllocationResult is the per-customer result exposed to callers.
type AllocationResult struct {
	Status          Status
	AllocatedWeight decimal.Decimal
	RequestedWeight decimal.Decimal
	Batches         []BatchCut
	Orders          []OrderOutcome // per-order audit detail
	Reason          string         // set only when Status == StatusError
}

// Summary aggregates a whole run.
type Summary struct {
	TotalRequested decimal.Decimal
	TotalAllocated decimal.Decimal
	// AllocationRate is allocated/requested in percent, zero when nothing
	// was requested.
	AllocationRate decimal.Decimal
	StatusCounts   map[Status]int
}

// Report is the full product of one run.
type Report struct {
	RunID     string
	StartedAt time.Time
	Elapsed   time.Duration
	Results   map[CustomerID]AllocationResult
	Summary   Summary
}

// =============================================================================
// BUILDER
// =============================================================================

var hundred = decimal.NewFromInt(100)

// BuildReport formats a RunOutcome for return to the caller.
func BuildReport(outcome *RunOutcome) *Report {
	report := &Report{
		RunID:     outcome.RunID,
		StartedAt: outcome.StartedAt,
		Elapsed:   outcome.Elapsed,
		Results:   make(map[CustomerID]AllocationResult, len(outcome.Customers)),
		Summary: Summary{
			TotalRequested: decimal.Zero,
			TotalAllocated: decimal.Zero,
			StatusCounts:   make(map[Status]int),
		},
	}

	for _, c := range outcome.Customers {
		result := AllocationResult{
			Status:          c.Status,
			AllocatedWeight: c.AllocatedWeight,
			RequestedWeight: c.RequestedWeight,
			Batches:         c.Cuts(),
			Orders:          c.Orders,
			Reason:          c.Reason,
		}
		report.Results[c.CustomerID] = result

		report.Summary.TotalRequested = report.Summary.TotalRequested.Add(c.RequestedWeight)
		report.Summary.TotalAllocated = report.Summary.TotalAllocated.Add(c.AllocatedWeight)
		report.Summary.StatusCounts[c.Status]++
	}

	if report.Summary.TotalRequested.IsPositive() {
		report.Summary.AllocationRate = report.Summary.TotalAllocated.
			Div(report.Summary.TotalRequested).Mul(hundred).Round(1)
	} else {
		report.Summary.AllocationRate = decimal.Zero
	}
	return report
}
