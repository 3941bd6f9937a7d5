/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Weights cross
  the wire as JSON numbers (the frontend does arithmetic-free display),
  while the domain keeps decimal.Decimal throughout.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

COLUMN TOLERANCE:
  Uploaded rows come from spreadsheets whose column headers drift between
  exports ("Sales Document" vs "Order", "Origin Country" vs "Origin").
  Row DTOs accept the known aliases so the caller does not have to
  pre-normalize.

WIRE SEMANTICS FOR RESTRICTIONS:
  An empty list for a dimension means "no filter on that dimension".
  That maps onto the internal tagged union at exactly one place
  (FilterFromValues); nothing else in the system overloads the empty
  collection.

SEE ALSO:
  - handlers.go: Uses these types
  - allocation/report.go: Internal result shapes
*/
package api

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/harvestline/allocation-engine/allocation"
)

// =============================================================================
// WEIGHT - JSON number or numeric string, parsed to decimal
// =============================================================================

// Weight accepts a JSON number or a numeric string and keeps it exact.
type Weight struct {
	decimal.Decimal
	set bool
}

func (w *Weight) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		return nil
	}
	s = strings.Trim(s, `"`)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid weight %q", s)
	}
	w.Decimal = d
	w.set = true
	return nil
}

// =============================================================================
// UPLOAD REQUESTS
// =============================================================================

// StockRowDTO is one parsed stock spreadsheet row.
type StockRowDTO struct {
	ID       string `json:"id"`
	Batch    string `json:"batch"` // alias
	Weight   Weight `json:"weight"`
	StockW   Weight `json:"stock_weight"` // alias ("Stock Weight")
	AgeDays  int    `json:"age_days"`
	Age      int    `json:"age"` // alias
	Quality  string `json:"quality"`
	Origin   string `json:"origin"`
	Country  string `json:"origin_country"` // alias ("Origin Country")
	Variety  string `json:"variety"`
	Supplier string `json:"supplier"`
	GGN      string `json:"ggn"`
}

// HasWeight reports whether the row carried a weight under any alias.
// A missing weight is a validation error, distinct from an explicit tiny
// weight which the ingestion cutoff drops.
func (r StockRowDTO) HasWeight() bool {
	return r.Weight.set || r.StockW.set
}

// ToBatch resolves aliases into a domain Batch. Remaining is assigned by
// the dataset store on ingestion.
func (r StockRowDTO) ToBatch() allocation.Batch {
	id := r.ID
	if id == "" {
		id = r.Batch
	}
	weight := r.Weight
	if !weight.set {
		weight = r.StockW
	}
	age := r.AgeDays
	if age == 0 {
		age = r.Age
	}
	origin := r.Origin
	if origin == "" {
		origin = r.Country
	}
	return allocation.Batch{
		ID:       allocation.BatchID(strings.TrimSpace(id)),
		Weight:   weight.Decimal,
		AgeDays:  age,
		Quality:  strings.TrimSpace(r.Quality),
		Origin:   strings.TrimSpace(origin),
		Variety:  strings.TrimSpace(r.Variety),
		Supplier: strings.TrimSpace(r.Supplier),
		GGN:      strings.TrimSpace(r.GGN),
	}
}

// OrderRowDTO is one parsed orders spreadsheet row.
type OrderRowDTO struct {
	CustomerID string `json:"customer_id"`
	SoldTo     string `json:"sold_to_party"` // alias ("Sold-to Party")
	OrderID    string `json:"order_id"`
	Order      string `json:"order"`          // alias
	SalesDoc   string `json:"sales_document"` // alias ("Sales Document")
	Requested  Weight `json:"requested_weight"`
	Quantity   Weight `json:"quantity"`    // alias
	QuantityKG Weight `json:"quantity_kg"` // alias ("Quantity KG")
}

// ToOrder resolves aliases into a domain Order.
func (r OrderRowDTO) ToOrder() allocation.Order {
	customer := r.CustomerID
	if customer == "" {
		customer = r.SoldTo
	}
	order := r.OrderID
	if order == "" {
		order = r.Order
	}
	if order == "" {
		order = r.SalesDoc
	}
	requested := r.Requested
	if !requested.set {
		requested = r.Quantity
	}
	if !requested.set {
		requested = r.QuantityKG
	}
	return allocation.Order{
		CustomerID:      allocation.CustomerID(strings.TrimSpace(customer)),
		OrderID:         allocation.OrderID(strings.TrimSpace(order)),
		RequestedWeight: requested.Decimal,
	}
}

// UploadStockRequest is the body of POST /upload_stock.
type UploadStockRequest struct {
	Stock []StockRowDTO `json:"stock"`
}

// UploadOrdersRequest is the body of POST /upload_orders.
type UploadOrdersRequest struct {
	Orders []OrderRowDTO `json:"orders"`
}

// UploadResponse reports a successful bulk load.
type UploadResponse struct {
	Success    bool   `json:"success"`
	Count      int    `json:"count"`
	SnapshotID string `json:"snapshot_id"`
}

// RowErrorDTO reports one malformed upload row.
type RowErrorDTO struct {
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// =============================================================================
// RESTRICTIONS
// =============================================================================

// RestrictionsDTO is the wire shape of a restriction set. Empty lists are
// the wildcard; ggn null means no GGN constraint.
type RestrictionsDTO struct {
	Quality  []string `json:"quality"`
	Origin   []string `json:"origin"`
	Variety  []string `json:"variety"`
	GGN      *string  `json:"ggn"`
	Supplier []string `json:"supplier"`
}

func toRestrictionsDTO(set allocation.RestrictionSet) RestrictionsDTO {
	dto := RestrictionsDTO{
		Quality:  valuesOrEmpty(set.Quality),
		Origin:   valuesOrEmpty(set.Origin),
		Variety:  valuesOrEmpty(set.Variety),
		Supplier: valuesOrEmpty(set.Supplier),
	}
	if set.GGN != "" {
		dto.GGN = &set.GGN
	}
	return dto
}

func valuesOrEmpty(f allocation.Filter) []string {
	if v := f.Values(); v != nil {
		return v
	}
	return []string{}
}

// SetRestrictionsRequest carries a partial update. Absent fields keep the
// customer's current (resolved) values; present fields replace them.
// Merging happens here at the API layer - the registry always receives a
// complete set.
type SetRestrictionsRequest struct {
	CustomerID   string                 `json:"customer_id"`
	Restrictions PartialRestrictionsDTO `json:"restrictions"`
}

// PartialRestrictionsDTO distinguishes "not sent" (nil) from "sent empty"
// (wildcard) via pointers.
type PartialRestrictionsDTO struct {
	Quality  *[]string `json:"quality"`
	Origin   *[]string `json:"origin"`
	Variety  *[]string `json:"variety"`
	GGN      *string   `json:"ggn"`
	Supplier *[]string `json:"supplier"`
}

// MergeInto applies the partial update onto a resolved base set.
func (p PartialRestrictionsDTO) MergeInto(base allocation.RestrictionSet) allocation.RestrictionSet {
	if p.Quality != nil {
		base.Quality = allocation.FilterFromValues(*p.Quality)
	}
	if p.Origin != nil {
		base.Origin = allocation.FilterFromValues(*p.Origin)
	}
	if p.Variety != nil {
		base.Variety = allocation.FilterFromValues(*p.Variety)
	}
	if p.Supplier != nil {
		base.Supplier = allocation.FilterFromValues(*p.Supplier)
	}
	if p.GGN != nil {
		base.GGN = strings.TrimSpace(*p.GGN)
	}
	return base
}

// RestrictionsResponse wraps GET /get_restrictions.
type RestrictionsResponse struct {
	CustomerID   string          `json:"customer_id"`
	Restrictions RestrictionsDTO `json:"restrictions"`
}

// =============================================================================
// ALLOCATION RESULTS
// =============================================================================

// BatchCutDTO is one consumption from one batch, in consumption order.
type BatchCutDTO struct {
	BatchID     string  `json:"batch_id"`
	WeightTaken float64 `json:"weight_taken"`
	AgeDays     int     `json:"age_days"`
}

// OrderOutcomeDTO is the per-order audit detail.
type OrderOutcomeDTO struct {
	OrderID         string  `json:"order_id"`
	Status          string  `json:"status"`
	RequestedWeight float64 `json:"requested_weight"`
	AllocatedWeight float64 `json:"allocated_weight"`
}

// AllocationResultDTO is the per-customer result.
type AllocationResultDTO struct {
	Status          string            `json:"status"`
	AllocatedWeight float64           `json:"allocated_weight"`
	RequestedWeight float64           `json:"requested_weight"`
	Batches         []BatchCutDTO     `json:"batches"`
	Orders          []OrderOutcomeDTO `json:"orders"`
	Reason          string            `json:"reason,omitempty"`
}

// SummaryDTO aggregates the run.
type SummaryDTO struct {
	TotalRequested float64        `json:"total_requested"`
	TotalAllocated float64        `json:"total_allocated"`
	AllocationRate float64        `json:"allocation_rate"`
	StatusCounts   map[string]int `json:"status_counts"`
}

// AllocateResponse is the body of POST /allocate_stock.
type AllocateResponse struct {
	Success    bool                           `json:"success"`
	RunID      string                         `json:"run_id"`
	ElapsedMS  int64                          `json:"elapsed_ms"`
	Allocation map[string]AllocationResultDTO `json:"allocation"`
	Summary    SummaryDTO                     `json:"summary"`
}

func toAllocateResponse(report *allocation.Report) AllocateResponse {
	resp := AllocateResponse{
		Success:    true,
		RunID:      report.RunID,
		ElapsedMS:  report.Elapsed.Milliseconds(),
		Allocation: make(map[string]AllocationResultDTO, len(report.Results)),
		Summary: SummaryDTO{
			TotalRequested: report.Summary.TotalRequested.InexactFloat64(),
			TotalAllocated: report.Summary.TotalAllocated.InexactFloat64(),
			AllocationRate: report.Summary.AllocationRate.InexactFloat64(),
			StatusCounts:   make(map[string]int, len(report.Summary.StatusCounts)),
		},
	}
	for status, n := range report.Summary.StatusCounts {
		resp.Summary.StatusCounts[string(status)] = n
	}

	for customerID, result := range report.Results {
		dto := AllocationResultDTO{
			Status:          string(result.Status),
			AllocatedWeight: result.AllocatedWeight.InexactFloat64(),
			RequestedWeight: result.RequestedWeight.InexactFloat64(),
			Batches:         make([]BatchCutDTO, 0, len(result.Batches)),
			Orders:          make([]OrderOutcomeDTO, 0, len(result.Orders)),
			Reason:          result.Reason,
		}
		for _, cut := range result.Batches {
			dto.Batches = append(dto.Batches, BatchCutDTO{
				BatchID:     string(cut.BatchID),
				WeightTaken: cut.WeightTaken.InexactFloat64(),
				AgeDays:     cut.AgeDays,
			})
		}
		for _, oo := range result.Orders {
			dto.Orders = append(dto.Orders, OrderOutcomeDTO{
				OrderID:         string(oo.Order.OrderID),
				Status:          string(oo.Status),
				RequestedWeight: oo.Order.RequestedWeight.InexactFloat64(),
				AllocatedWeight: oo.AllocatedWeight.InexactFloat64(),
			})
		}
		resp.Allocation[string(customerID)] = dto
	}
	return resp
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string        `json:"error"`
	Details string        `json:"details,omitempty"`
	Rows    []RowErrorDTO `json:"rows,omitempty"`
}
