/*
handlers.go - HTTP API handlers for the stock allocation service

PURPOSE:
  Exposes the allocation engine via the HTTP contract the frontend calls.
  Handles request/response, JSON serialization, and delegates to domain
  logic.

ENDPOINTS:
  POST /upload_stock         Replace the stock dataset
  POST /upload_orders        Replace the orders dataset
  GET  /get_restrictions     Resolved restriction set for a customer
  POST /set_restrictions     Partial update, merged then stored wholesale
  POST /delete_restrictions  Revert a customer to the defaults
  POST /allocate_stock       Run allocation (alias: /allocate)
  POST /reset_consumption    Restore batch remaining weights
  GET  /healthz              Liveness
  GET  /metrics              Prometheus metrics

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (dataset store, registry, engine)
  4. Serialize response
  5. Map errors to status codes

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 409: Conflict with an in-flight run (retryable)
  - 500: Internal errors
  Malformed restriction sets do NOT fail the run: they surface inside the
  allocation mapping as per-customer "error" results.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/harvestline/allocation-engine/allocation"
	"github.com/harvestline/allocation-engine/dataset"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Data     *dataset.Store
	Registry *allocation.Registry
	Engine   *allocation.Engine
	Metrics  *Metrics
}

// NewHandler creates a new handler around the dataset store and registry.
func NewHandler(data *dataset.Store, registry *allocation.Registry) *Handler {
	return &Handler{
		Data:     data,
		Registry: registry,
		Engine:   allocation.NewEngine(registry),
		Metrics:  NewMetrics(),
	}
}

// =============================================================================
// UPLOAD HANDLERS
// =============================================================================

// UploadStock replaces the stock dataset.
// POST /upload_stock
func (h *Handler) UploadStock(w http.ResponseWriter, r *http.Request) {
	var req UploadStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Metrics.uploadsTotal.WithLabelValues("stock", "invalid").Inc()
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Stock) == 0 {
		h.Metrics.uploadsTotal.WithLabelValues("stock", "invalid").Inc()
		writeError(w, http.StatusBadRequest, "No stock records provided", nil)
		return
	}

	// A row without any weight field is a validation error, not a tiny
	// batch for the ingestion cutoff to drop.
	var missing allocation.ValidationErrors
	records := make([]allocation.Batch, len(req.Stock))
	for i, row := range req.Stock {
		if !row.HasWeight() {
			missing = append(missing, &allocation.ValidationError{Row: i, Field: "weight", Reason: "missing weight"})
		}
		records[i] = row.ToBatch()
	}
	if len(missing) > 0 {
		h.uploadError(w, "stock", missing)
		return
	}

	count, snapshotID, err := h.Data.ReplaceBatches(records)
	if err != nil {
		h.uploadError(w, "stock", err)
		return
	}

	h.Metrics.uploadsTotal.WithLabelValues("stock", "ok").Inc()
	h.updateDatasetGauges()
	writeJSON(w, http.StatusOK, UploadResponse{Success: true, Count: count, SnapshotID: snapshotID})
}

// UploadOrders replaces the orders dataset.
// POST /upload_orders
func (h *Handler) UploadOrders(w http.ResponseWriter, r *http.Request) {
	var req UploadOrdersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Metrics.uploadsTotal.WithLabelValues("orders", "invalid").Inc()
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Orders) == 0 {
		h.Metrics.uploadsTotal.WithLabelValues("orders", "invalid").Inc()
		writeError(w, http.StatusBadRequest, "No order records provided", nil)
		return
	}

	records := make([]allocation.Order, len(req.Orders))
	for i, row := range req.Orders {
		records[i] = row.ToOrder()
	}

	count, snapshotID, err := h.Data.ReplaceOrders(records)
	if err != nil {
		h.uploadError(w, "orders", err)
		return
	}

	h.Metrics.uploadsTotal.WithLabelValues("orders", "ok").Inc()
	h.updateDatasetGauges()
	writeJSON(w, http.StatusOK, UploadResponse{Success: true, Count: count, SnapshotID: snapshotID})
}

// uploadError maps dataset store failures onto HTTP responses.
func (h *Handler) uploadError(w http.ResponseWriter, kind string, err error) {
	var verrs allocation.ValidationErrors
	if errors.As(err, &verrs) {
		h.Metrics.uploadsTotal.WithLabelValues(kind, "invalid").Inc()
		resp := ErrorResponse{Error: "Upload rejected", Details: verrs.Error()}
		for _, ve := range verrs {
			resp.Rows = append(resp.Rows, RowErrorDTO{Row: ve.Row, Field: ve.Field, Reason: ve.Reason})
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}
	if allocation.IsRetryable(err) {
		h.Metrics.uploadsTotal.WithLabelValues(kind, "conflict").Inc()
		writeError(w, http.StatusConflict, "Allocation run in progress", err)
		return
	}
	h.Metrics.uploadsTotal.WithLabelValues(kind, "invalid").Inc()
	writeError(w, http.StatusInternalServerError, "Upload failed", err)
}

// =============================================================================
// RESTRICTION HANDLERS
// =============================================================================

// GetRestrictions returns the resolved restriction set for a customer,
// defaults applied when none is stored.
// GET /get_restrictions?customer_id=...
func (h *Handler) GetRestrictions(w http.ResponseWriter, r *http.Request) {
	customerID := allocation.CustomerID(r.URL.Query().Get("customer_id"))
	if customerID == "" {
		customerID = allocation.DefaultCustomerID
	}

	set, err := h.Registry.Get(r.Context(), customerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get restrictions", err)
		return
	}

	writeJSON(w, http.StatusOK, RestrictionsResponse{
		CustomerID:   string(customerID),
		Restrictions: toRestrictionsDTO(set),
	})
}

// SetRestrictions merges a partial update into the customer's resolved set
// and stores the result wholesale.
// POST /set_restrictions
func (h *Handler) SetRestrictions(w http.ResponseWriter, r *http.Request) {
	var req SetRestrictionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	customerID := allocation.CustomerID(req.CustomerID)
	if customerID == "" {
		customerID = allocation.DefaultCustomerID
	}

	base, err := h.Registry.Get(r.Context(), customerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve restrictions", err)
		return
	}

	merged := req.Restrictions.MergeInto(base)
	merged.CustomerID = customerID
	if err := h.Registry.Set(r.Context(), merged); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save restrictions", err)
		return
	}

	writeJSON(w, http.StatusOK, RestrictionsResponse{
		CustomerID:   string(customerID),
		Restrictions: toRestrictionsDTO(merged),
	})
}

// DeleteRestrictions reverts the customer to the documented defaults.
// POST /delete_restrictions
func (h *Handler) DeleteRestrictions(w http.ResponseWriter, r *http.Request) {
	customerID := allocation.CustomerID(r.URL.Query().Get("customer_id"))
	if customerID == "" {
		var body struct {
			CustomerID string `json:"customer_id"`
		}
		// Body is optional; an empty customer falls back to "default".
		_ = json.NewDecoder(r.Body).Decode(&body)
		customerID = allocation.CustomerID(body.CustomerID)
	}
	if customerID == "" {
		customerID = allocation.DefaultCustomerID
	}

	if err := h.Registry.Delete(r.Context(), customerID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete restrictions", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "customer_id": string(customerID)})
}

// =============================================================================
// ALLOCATION HANDLERS
// =============================================================================

// Allocate runs the engine over the current batch/order/restriction state.
// POST /allocate_stock
func (h *Handler) Allocate(w http.ResponseWriter, r *http.Request) {
	run, err := h.Data.BeginRun()
	if err != nil {
		if allocation.IsRetryable(err) {
			h.Metrics.runsTotal.WithLabelValues("conflict").Inc()
			writeError(w, http.StatusConflict, "Another allocation run is in progress", err)
			return
		}
		h.Metrics.runsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusBadRequest, "Upload stock and orders before allocating", err)
		return
	}

	outcome, err := h.Engine.Allocate(r.Context(), run.Batches, run.Orders)
	if err != nil {
		run.Abort()
		h.Metrics.runsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, "Allocation failed", err)
		return
	}
	if err := run.Commit(); err != nil {
		h.Metrics.runsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, "Failed to commit allocation run", err)
		return
	}

	report := allocation.BuildReport(outcome)
	h.Metrics.runsTotal.WithLabelValues("ok").Inc()
	h.Metrics.allocatedKilos.Add(report.Summary.TotalAllocated.InexactFloat64())

	writeJSON(w, http.StatusOK, toAllocateResponse(report))
}

// ResetConsumption restores every batch's remaining weight.
// POST /reset_consumption
func (h *Handler) ResetConsumption(w http.ResponseWriter, r *http.Request) {
	if err := h.Data.ResetConsumption(); err != nil {
		if allocation.IsRetryable(err) {
			writeError(w, http.StatusConflict, "Allocation run in progress", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to reset consumption", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Healthz reports liveness and dataset counts.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	batches, orders := h.Data.Counts()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"batches": batches,
		"orders":  orders,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) updateDatasetGauges() {
	batches, orders := h.Data.Counts()
	h.Metrics.batchesLoaded.Set(float64(batches))
	h.Metrics.ordersLoaded.Set(float64(orders))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
