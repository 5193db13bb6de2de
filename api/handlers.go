/*
handlers.go - HTTP API handlers

PURPOSE:
  Exposes the claims service via REST. Handles HTTP request/response,
  JSON serialization, and delegates everything else to the service.

ENDPOINTS:
  Cases:
    GET    /api/cases                 List case ids
    GET    /api/cases/{id}            Full case projection
    POST   /api/cases/{id}/events     Submit a claim event
    POST   /api/cases/{id}/recompute  Recompute and commit
    GET    /api/cases/{id}/timeline   Arbitrated day timeline
    GET    /api/cases/{id}/results    Flattened economic results
    GET    /api/cases/{id}/lines      Issued payment-line chains

  Reference data:
    GET    /api/baseamounts           Statutory base amount revisions

CACHING:
  Read projections are cached per case for a short TTL and dropped on
  every write to that case. Recomputation is cheap but not free, and
  case-worker UIs poll.

ERROR HANDLING:
  - 400: Validation errors, invalid input
  - 404: Unknown case
  - 422: Recomputation rejected (missing income, conflicting input)
  - 500: Internal errors
*/
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/warp/sickpay-engine/claims"
	"github.com/warp/sickpay-engine/engine"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *claims.Service
	Table   engine.BaseAmountTable

	// Per-case projection cache, dropped on every write to the case.
	projections *cache.Cache
}

// NewHandler creates a new handler around the claims service.
func NewHandler(svc *claims.Service, table engine.BaseAmountTable) *Handler {
	return &Handler{
		Service:     svc,
		Table:       table,
		projections: cache.New(30*time.Second, time.Minute),
	}
}

func (h *Handler) cachedCase(r *http.Request, caseID string) (*claims.CaseFile, error) {
	if v, ok := h.projections.Get(caseID); ok {
		return v.(*claims.CaseFile), nil
	}
	cf, err := h.Service.Get(r.Context(), caseID)
	if err != nil {
		return nil, err
	}
	h.projections.SetDefault(caseID, cf)
	return cf, nil
}

// =============================================================================
// CASE HANDLERS
// =============================================================================

// ListCases returns all known case ids.
func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Service.ListCases(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list cases", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// GetCase returns the full projection of a case.
func (h *Handler) GetCase(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "id")
	cf, err := h.cachedCase(r, caseID)
	if err != nil {
		writeCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCaseDTO(cf))
}

// SubmitEvent accepts one claim event for a case.
func (h *Handler) SubmitEvent(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "id")

	var req SubmitEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	ev, err := toClaimEvent(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event", err)
		return
	}

	accepted, err := h.Service.SubmitEvent(r.Context(), caseID, req.PersonID, ev)
	if err != nil {
		switch {
		case errors.Is(err, claims.ErrWrongPerson):
			writeError(w, http.StatusBadRequest, "Event person does not match case", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to accept event", err)
		}
		return
	}
	h.projections.Delete(caseID)

	writeJSON(w, http.StatusAccepted, SubmitEventResponse{EventID: accepted.ID, CaseID: caseID})
}

// Recompute runs the full pipeline for a case and commits the outcome.
func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "id")

	rec, err := h.Service.Recompute(r.Context(), caseID)
	if err != nil {
		switch {
		case errors.Is(err, claims.ErrCaseNotFound):
			writeError(w, http.StatusNotFound, "Case not found", err)
		case errors.Is(err, claims.ErrMissingIncome), engine.IsInputError(err):
			writeError(w, http.StatusUnprocessableEntity, "Recomputation rejected", err)
		default:
			writeError(w, http.StatusInternalServerError, "Recomputation failed", err)
		}
		return
	}
	h.projections.Delete(caseID)

	results := make([]map[string]string, 0, len(rec.Results))
	for _, res := range rec.Results {
		results = append(results, res.Flatten())
	}
	writeJSON(w, http.StatusOK, RecomputeResponse{
		CaseID:     caseID,
		Days:       len(rec.Timeline),
		Results:    results,
		Changes:    rec.Changes,
		PolicyGaps: toPolicyGapDTO(rec.Gaps),
	})
}

// GetTimeline returns the arbitrated day timeline.
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	cf, err := h.cachedCase(r, chi.URLParam(r, "id"))
	if err != nil {
		writeCaseError(w, err)
		return
	}
	days := toTimelineDTO(cf.Timeline)
	if days == nil {
		days = []TimelineDayDTO{}
	}
	writeJSON(w, http.StatusOK, days)
}

// GetResults returns the flattened economic results.
func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	cf, err := h.cachedCase(r, chi.URLParam(r, "id"))
	if err != nil {
		writeCaseError(w, err)
		return
	}
	results := cf.Results
	if results == nil {
		results = []map[string]string{}
	}
	writeJSON(w, http.StatusOK, results)
}

// GetLines returns the issued payment-line chains.
func (h *Handler) GetLines(w http.ResponseWriter, r *http.Request) {
	cf, err := h.cachedCase(r, chi.URLParam(r, "id"))
	if err != nil {
		writeCaseError(w, err)
		return
	}
	issued := cf.Issued
	if issued == nil {
		issued = map[string][]engine.PaymentLine{}
	}
	writeJSON(w, http.StatusOK, issued)
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// ListBaseAmounts returns the statutory base amount revisions.
func (h *Handler) ListBaseAmounts(w http.ResponseWriter, r *http.Request) {
	dtos := make([]BaseAmountDTO, len(h.Table))
	for i, ba := range h.Table {
		dailyMax, _ := h.Table.DailyMax(ba.EffectiveFrom)
		dtos[i] = BaseAmountDTO{
			EffectiveFrom: ba.EffectiveFrom.String(),
			Annual:        ba.Annual.StringFixed(0),
			DailyMax:      dailyMax.StringFixed(2),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func toClaimEvent(req SubmitEventRequest) (claims.ClaimEvent, error) {
	ev := claims.ClaimEvent{
		ID:               req.ID,
		Kind:             claims.EventKind(req.Kind),
		PersonID:         req.PersonID,
		EmployerID:       req.EmployerID,
		ReportedAt:       req.ReportedAt,
		Status:           claims.ClaimStatus(req.Status),
		Corrects:         req.Corrects,
		ReimbursementPct: req.ReimbursementPct,
	}
	for _, p := range req.Periods {
		from, err := engine.ParseDate(p.From)
		if err != nil {
			return ev, err
		}
		to, err := engine.ParseDate(p.To)
		if err != nil {
			return ev, err
		}
		ev.Periods = append(ev.Periods, claims.ReportedPeriod{
			From:  from,
			To:    to,
			Class: engine.DayClass(p.Class),
			Grade: p.Grade,
		})
	}
	var err error
	if req.DailyIncome != "" {
		if ev.DailyIncome, err = decimal.NewFromString(req.DailyIncome); err != nil {
			return ev, err
		}
	}
	if req.CoverageBase != "" {
		if ev.CoverageBase, err = decimal.NewFromString(req.CoverageBase); err != nil {
			return ev, err
		}
	}
	return ev, nil
}

func writeCaseError(w http.ResponseWriter, err error) {
	if errors.Is(err, claims.ErrCaseNotFound) {
		writeError(w, http.StatusNotFound, "Case not found", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to load case", err)
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
