package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/eugenenazirov/apportionment/internal/apportion"
	"github.com/eugenenazirov/apportionment/internal/config"
	"github.com/eugenenazirov/apportionment/internal/metrics"
	"github.com/eugenenazirov/apportionment/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler wires the apportionment engine and storage into HTTP handlers.
type Handler struct {
	engine  apportion.Engine
	storage storage.Storage
	metrics metrics.Recorder

	seats    int
	bonus    int
	maxSeats int

	clock func() time.Time

	mu                    sync.RWMutex
	subdivisionsUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithDefaults sets the house size and bonus used when a request omits them.
func WithDefaults(seats, bonus int) HandlerOption {
	return func(h *Handler) {
		h.seats = seats
		h.bonus = bonus
	}
}

// WithMaxSeats caps the house size a request may ask for. Values <= 0 are
// ignored.
func WithMaxSeats(maxSeats int) HandlerOption {
	return func(h *Handler) {
		if maxSeats > 0 {
			h.maxSeats = maxSeats
		}
	}
}

// WithMetrics records every apportionment run on r.
func WithMetrics(r metrics.Recorder) HandlerOption {
	return func(h *Handler) {
		if r != nil {
			h.metrics = r
		}
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(engine apportion.Engine, store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		engine:   engine,
		storage:  store,
		metrics:  metrics.Nop{},
		seats:    config.DefaultSeats,
		bonus:    config.DefaultBonus,
		maxSeats: config.DefaultMaxSeats,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.subdivisionsUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSubdivisions(w http.ResponseWriter, r *http.Request) {
	_ = r
	subs, err := h.storage.GetSubdivisions()
	if err != nil && !errors.Is(err, storage.ErrEmpty) {
		writeInternalError(w, err)
		return
	}

	resp := subdivisionsResponse{
		Subdivisions: toPayload(subs),
		UpdatedAt:    h.currentSubdivisionsUpdatedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePutSubdivisions(w http.ResponseWriter, r *http.Request) {
	var req subdivisionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if len(req.Subdivisions) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid subdivisions", "subdivisions must contain at least one entry")
		return
	}

	if err := h.storage.SetSubdivisions(fromPayload(req.Subdivisions)); err != nil {
		if errors.Is(err, storage.ErrInvalidSubdivisions) {
			writeError(w, http.StatusBadRequest, "Invalid subdivisions", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	h.markSubdivisionsUpdated()

	subs, err := h.storage.GetSubdivisions()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := subdivisionsResponse{
		Subdivisions: toPayload(subs),
		UpdatedAt:    h.currentSubdivisionsUpdatedAt(),
		Message:      "Subdivisions updated successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleApportion(w http.ResponseWriter, r *http.Request) {
	var req apportionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	subs, ok := h.resolveSubdivisions(w, req.Subdivisions)
	if !ok {
		return
	}

	seats := h.seats
	if req.Seats != nil {
		seats = *req.Seats
	}
	bonus := h.bonus
	if req.Bonus != nil {
		bonus = *req.Bonus
	}
	if !h.allowSeats(w, "apportion", seats) {
		return
	}

	start := time.Now()
	alloc, err := h.engine.Allocate(subs, seats, bonus)
	elapsed := time.Since(start)
	h.metrics.ObserveRun("apportion", outcomeOf(err), elapsed)

	if err != nil {
		writeEngineError(w, err)
		return
	}
	h.metrics.ObserveAllocation(len(alloc.Shares), alloc.TotalSeats)

	shares := make([]sharePayload, len(alloc.Shares))
	for i, s := range alloc.Shares {
		shares[i] = sharePayload{
			ID:         s.ID,
			Population: s.Population,
			Seats:      s.Seats,
			Electors:   s.Electors,
		}
	}

	resp := apportionResponse{
		TotalSeats:        alloc.TotalSeats,
		Bonus:             alloc.Bonus,
		TotalElectors:     alloc.TotalElectors(),
		Allocations:       shares,
		CalculationTimeMs: elapsed.Milliseconds(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePriorityList(w http.ResponseWriter, r *http.Request) {
	var req priorityListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	subs, ok := h.resolveSubdivisions(w, req.Subdivisions)
	if !ok {
		return
	}

	seats := h.seats
	if req.Seats != nil {
		seats = *req.Seats
	}
	if !h.allowSeats(w, "priority_list", seats) {
		return
	}

	populations := make([]int, len(subs))
	for i, s := range subs {
		populations[i] = s.Population
	}

	start := time.Now()
	list, err := h.engine.PriorityList(populations, seats)
	elapsed := time.Since(start)
	h.metrics.ObserveRun("priority_list", outcomeOf(err), elapsed)

	if err != nil {
		writeEngineError(w, err)
		return
	}

	entries := make([]assignmentPayload, len(list))
	for i, a := range list {
		entries[i] = assignmentPayload{
			Seat:     a.Seat,
			ID:       subs[a.Index].ID,
			Priority: a.Priority,
		}
	}

	writeJSON(w, http.StatusOK, priorityListResponse{
		TotalSeats:  seats,
		Assignments: entries,
	})
}

// resolveSubdivisions prefers inline subdivisions over the stored dataset.
// It writes the error response itself and reports false on failure.
func (h *Handler) resolveSubdivisions(w http.ResponseWriter, inline []subdivisionPayload) ([]apportion.Subdivision, bool) {
	if len(inline) > 0 {
		subs, err := storage.Normalize(fromPayload(inline))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid subdivisions", err.Error())
			return nil, false
		}
		return subs, true
	}

	subs, err := h.storage.GetSubdivisions()
	if err != nil {
		if errors.Is(err, storage.ErrEmpty) {
			writeError(w, http.StatusUnprocessableEntity, "No subdivisions", err.Error(),
				"Upload populations with PUT /api/subdivisions or include subdivisions in the request")
			return nil, false
		}
		writeInternalError(w, err)
		return nil, false
	}
	return subs, true
}

// allowSeats rejects house sizes above the configured ceiling before any
// engine work starts. The run time of an apportionment grows with seats.
func (h *Handler) allowSeats(w http.ResponseWriter, operation string, seats int) bool {
	if seats <= h.maxSeats {
		return true
	}
	h.metrics.ObserveRun(operation, metrics.OutcomeInvalid, 0)
	err := &apportion.InvalidInputError{
		Field:  "total seats",
		Reason: fmt.Sprintf("must not exceed %d, got %d", h.maxSeats, seats),
	}
	writeError(w, http.StatusBadRequest, "Invalid request", err.Error(),
		"Request fewer seats or raise max_seats in the service configuration")
	return false
}

func (h *Handler) currentSubdivisionsUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.subdivisionsUpdatedAt
}

func (h *Handler) markSubdivisionsUpdated() {
	h.mu.Lock()
	h.subdivisionsUpdatedAt = h.clock()
	h.mu.Unlock()
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, apportion.ErrInvalidInput):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

func writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, apportion.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	writeInternalError(w, err)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func toPayload(subs []apportion.Subdivision) []subdivisionPayload {
	out := make([]subdivisionPayload, len(subs))
	for i, s := range subs {
		out[i] = subdivisionPayload{ID: s.ID, Population: s.Population}
	}
	return out
}

func fromPayload(in []subdivisionPayload) []apportion.Subdivision {
	out := make([]apportion.Subdivision, len(in))
	for i, s := range in {
		out[i] = apportion.Subdivision{ID: s.ID, Population: s.Population}
	}
	return out
}

type subdivisionPayload struct {
	ID         string `json:"id"`
	Population int    `json:"population"`
}

type subdivisionsRequest struct {
	Subdivisions []subdivisionPayload `json:"subdivisions"`
}

type subdivisionsResponse struct {
	Subdivisions []subdivisionPayload `json:"subdivisions"`
	UpdatedAt    time.Time            `json:"updatedAt"`
	Message      string               `json:"message,omitempty"`
}

type apportionRequest struct {
	Seats        *int                 `json:"seats,omitempty"`
	Bonus        *int                 `json:"bonus,omitempty"`
	Subdivisions []subdivisionPayload `json:"subdivisions,omitempty"`
}

type sharePayload struct {
	ID         string `json:"id"`
	Population int    `json:"population"`
	Seats      int    `json:"seats"`
	Electors   int    `json:"electors"`
}

type apportionResponse struct {
	TotalSeats        int            `json:"totalSeats"`
	Bonus             int            `json:"bonus"`
	TotalElectors     int            `json:"totalElectors"`
	Allocations       []sharePayload `json:"allocations"`
	CalculationTimeMs int64          `json:"calculationTimeMs"`
}

type priorityListRequest struct {
	Seats        *int                 `json:"seats,omitempty"`
	Subdivisions []subdivisionPayload `json:"subdivisions,omitempty"`
}

type assignmentPayload struct {
	Seat     int     `json:"seat"`
	ID       string  `json:"id"`
	Priority float64 `json:"priority"`
}

type priorityListResponse struct {
	TotalSeats  int                 `json:"totalSeats"`
	Assignments []assignmentPayload `json:"assignments"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
