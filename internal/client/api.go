package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/epic-events/crm/internal/access"
	"github.com/epic-events/crm/internal/audit"
	"github.com/epic-events/crm/internal/shared/auth"
	"github.com/epic-events/crm/internal/shared/errors"
	"github.com/epic-events/crm/internal/shared/metrics"
	"github.com/epic-events/crm/internal/shared/types"
	"github.com/go-chi/chi/v5"
)

// Store is the persistence surface the client handlers need.
// *Repository satisfies it.
type Store interface {
	Create(ctx context.Context, client *Client) error
	Get(ctx context.Context, id types.ID, scope access.Scope) (*Client, error)
	Update(ctx context.Context, client *Client) error
	List(ctx context.Context, scope access.Scope, filter ListFilter) ([]Client, int, error)
	ContractSummaries(ctx context.Context, clientID types.ID) ([]ContractSummary, error)
}

// Handler provides HTTP handlers for the client module
type Handler struct {
	store    Store
	recorder *audit.Recorder
}

// NewHandler creates a new client handler
func NewHandler(store Store, recorder *audit.Recorder) *Handler {
	return &Handler{store: store, recorder: recorder}
}

// Routes registers the client routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/statuses", h.Statuses)

	r.Route("/{clientID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
	})

	return r
}

// List lists the clients in the principal's visible set
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

	clients, total, err := h.store.List(r.Context(), access.ClientScope(principal), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  clients,
		"total": total,
	})
}

// Get returns a client detail with its contracts and events. A client
// outside the visible set is reported as not found.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "clientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid client ID"))
		return
	}

	client, err := h.store.Get(r.Context(), id, access.ClientScope(principal))
	if err != nil {
		writeError(w, err)
		return
	}

	summaries, err := h.store.ContractSummaries(r.Context(), client.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Detail{Client: *client, ContractsAndEvents: summaries})
}

// Create creates a new client. The sales contact is always the creating
// principal, regardless of the payload.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	allowed := access.CanWriteClients(principal)
	metrics.RecordAuthorizationDecision("client", "create", allowed)
	if !allowed {
		writeError(w, errors.Forbidden("only sales may create clients"))
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	details := map[string]string{}
	if req.CompanyName == "" {
		details["company_name"] = "company_name is required"
	}
	if req.Email == "" {
		details["email"] = "email is required"
	}
	if req.Status != nil && !req.Status.Valid() {
		details["status"] = "unknown status"
	}
	if len(details) > 0 {
		writeError(w, errors.Validation("validation failed", details))
		return
	}

	status := StatusProspect
	if req.Status != nil {
		status = *req.Status
	}

	client := &Client{
		ID:           types.NewID(),
		CompanyName:  req.CompanyName,
		Status:       status,
		SalesContact: principal.ID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Contact: types.ContactInfo{
			PhoneNumber:  req.PhoneNumber,
			MobileNumber: req.MobileNumber,
		},
	}

	if err := h.store.Create(r.Context(), client); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordCreated("client")
	h.recorder.Record(r.Context(), principal, audit.ActionCreate, "client", client.ID)

	writeJSON(w, http.StatusCreated, client)
}

// Update updates a client. Only its sales contact may write to it.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "clientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid client ID"))
		return
	}

	// Visibility first: an invisible client reads as absent.
	client, err := h.store.Get(r.Context(), id, access.ClientScope(principal))
	if err != nil {
		writeError(w, err)
		return
	}

	allowed := access.CanWriteClients(principal) && access.OwnsAsSales(principal, client.SalesContact)
	metrics.RecordAuthorizationDecision("client", "update", allowed)
	if !allowed {
		writeError(w, errors.Forbidden("only the client's sales contact may update it"))
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Status != nil && !req.Status.Valid() {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"status": "unknown status",
		}))
		return
	}
	if req.SalesContact != nil && req.SalesContact.IsZero() {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"sales_contact": "sales_contact cannot be cleared",
		}))
		return
	}

	if req.CompanyName != nil {
		client.CompanyName = *req.CompanyName
	}
	if req.Status != nil {
		client.Status = *req.Status
	}
	if req.SalesContact != nil {
		client.SalesContact = *req.SalesContact
	}
	if req.FirstName != nil {
		client.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		client.LastName = *req.LastName
	}
	if req.Email != nil {
		client.Email = *req.Email
	}
	if req.PhoneNumber != nil {
		client.Contact.PhoneNumber = *req.PhoneNumber
	}
	if req.MobileNumber != nil {
		client.Contact.MobileNumber = *req.MobileNumber
	}

	if err := h.store.Update(r.Context(), client); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordUpdated("client")
	h.recorder.Record(r.Context(), principal, audit.ActionUpdate, "client", client.ID)

	writeJSON(w, http.StatusOK, client)
}

// Statuses returns the fixed client status values
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
