package contract

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/epic-events/crm/internal/access"
	"github.com/epic-events/crm/internal/audit"
	"github.com/epic-events/crm/internal/shared/auth"
	"github.com/epic-events/crm/internal/shared/errors"
	"github.com/epic-events/crm/internal/shared/metrics"
	"github.com/epic-events/crm/internal/shared/types"
	"github.com/go-chi/chi/v5"
)

// Store is the persistence surface the contract handlers need.
// *Repository satisfies it.
type Store interface {
	ClientOwner(ctx context.Context, clientID types.ID) (types.ID, error)
	Create(ctx context.Context, contract *Contract) error
	Get(ctx context.Context, id types.ID, scope access.Scope) (*Contract, error)
	Update(ctx context.Context, contract *Contract) error
	List(ctx context.Context, scope access.Scope, filter ListFilter) ([]Contract, int, error)
	Event(ctx context.Context, contractID types.ID) (*EventSummary, error)
}

// Handler provides HTTP handlers for the contract module
type Handler struct {
	store    Store
	recorder *audit.Recorder
}

// NewHandler creates a new contract handler
func NewHandler(store Store, recorder *audit.Recorder) *Handler {
	return &Handler{store: store, recorder: recorder}
}

// Routes registers the contract routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/statuses", h.Statuses)

	r.Route("/{contractID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
	})

	return r
}

// List lists the contracts in the principal's visible set
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	filter := ListFilter{
		Search: r.URL.Query().Get("search"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := Status(s)
		filter.Status = &status
	}
	if c := r.URL.Query().Get("client"); c != "" {
		id, err := types.ParseID(c)
		if err != nil {
			writeError(w, errors.BadRequest("invalid client ID"))
			return
		}
		filter.ClientID = &id
	}
	if v := r.URL.Query().Get("amount_min"); v != "" {
		min, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, errors.BadRequest("invalid amount_min"))
			return
		}
		filter.AmountMin = &min
	}
	if v := r.URL.Query().Get("amount_max"); v != "" {
		max, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, errors.BadRequest("invalid amount_max"))
			return
		}
		filter.AmountMax = &max
	}
	if v := r.URL.Query().Get("payment_due_before"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, errors.BadRequest("invalid payment_due_before"))
			return
		}
		filter.PaymentDueBefore = &ts
	}
	if v := r.URL.Query().Get("payment_due_after"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, errors.BadRequest("invalid payment_due_after"))
			return
		}
		filter.PaymentDueAfter = &ts
	}

	contracts, total, err := h.store.List(r.Context(), access.ContractScope(principal), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  contracts,
		"total": total,
	})
}

// Get returns a contract detail with its event. A contract outside the
// visible set is reported as not found.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "contractID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid contract ID"))
		return
	}

	contract, err := h.store.Get(r.Context(), id, access.ContractScope(principal))
	if err != nil {
		writeError(w, err)
		return
	}

	event, err := h.store.Event(r.Context(), contract.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Detail{Contract: *contract, Event: event})
}

// Create creates a new contract. The creating principal must be the
// sales contact of the referenced client; the role gate alone is not
// enough.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	allowed := access.CanCreateContracts(principal)
	metrics.RecordAuthorizationDecision("contract", "create", allowed)
	if !allowed {
		writeError(w, errors.Forbidden("only sales may create contracts"))
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	details := map[string]string{}
	if req.ClientID.IsZero() {
		details["client"] = "client is required"
	}
	if req.Amount < 0 {
		details["amount"] = "amount cannot be negative"
	}
	if req.Status != nil && !req.Status.Valid() {
		details["status"] = "unknown status"
	}
	if len(details) > 0 {
		writeError(w, errors.Validation("validation failed", details))
		return
	}

	owner, err := h.store.ClientOwner(r.Context(), req.ClientID)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.Err == errors.ErrNotFound {
			writeError(w, errors.Validation("validation failed", map[string]string{
				"client": "unknown client",
			}))
			return
		}
		writeError(w, err)
		return
	}

	// Ownership gate: evaluated against the resolved client, after the
	// role gate.
	owns := access.OwnsAsSales(principal, owner)
	metrics.RecordAuthorizationDecision("contract", "create", owns)
	if !owns {
		writeError(w, errors.Forbidden("only the client's sales contact may create its contracts"))
		return
	}

	status := StatusUnsigned
	if req.Status != nil {
		status = *req.Status
	}

	contract := &Contract{
		ID:           types.NewID(),
		ClientID:     req.ClientID,
		Status:       status,
		Amount:       req.Amount,
		PaymentDue:   req.PaymentDue,
		SalesContact: owner,
	}

	if err := h.store.Create(r.Context(), contract); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordCreated("contract")
	h.recorder.Record(r.Context(), principal, audit.ActionCreate, "contract", contract.ID)

	writeJSON(w, http.StatusCreated, contract)
}

// Update updates a contract. Only the sales contact of its client may
// write to it.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "contractID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid contract ID"))
		return
	}

	// Visibility first: an invisible contract reads as absent.
	contract, err := h.store.Get(r.Context(), id, access.ContractScope(principal))
	if err != nil {
		writeError(w, err)
		return
	}

	allowed := access.CanUpdateContracts(principal) && access.OwnsAsSales(principal, contract.SalesContact)
	metrics.RecordAuthorizationDecision("contract", "update", allowed)
	if !allowed {
		writeError(w, errors.Forbidden("only the client's sales contact may update its contracts"))
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	details := map[string]string{}
	if req.Status != nil && !req.Status.Valid() {
		details["status"] = "unknown status"
	}
	if req.Amount != nil && *req.Amount < 0 {
		details["amount"] = "amount cannot be negative"
	}
	if len(details) > 0 {
		writeError(w, errors.Validation("validation failed", details))
		return
	}

	if req.Status != nil {
		contract.Status = *req.Status
	}
	if req.Amount != nil {
		contract.Amount = *req.Amount
	}
	if req.PaymentDue != nil {
		contract.PaymentDue = req.PaymentDue
	}

	if err := h.store.Update(r.Context(), contract); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordUpdated("contract")
	h.recorder.Record(r.Context(), principal, audit.ActionUpdate, "contract", contract.ID)

	writeJSON(w, http.StatusOK, contract)
}

// Statuses returns the fixed contract status values
func (h *Handler) Statuses(w http.ResponseWriter, r *http.Request) {
	if auth.GetPrincipal(r.Context()) == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	infos := make([]StatusInfo, 0, len(Statuses()))
	for _, s := range Statuses() {
		infos = append(infos, StatusInfo{Status: s, Label: s.Label()})
	}

	writeJSON(w, http.StatusOK, infos)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
