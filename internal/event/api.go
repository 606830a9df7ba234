package event

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/epic-events/crm/internal/access"
	"github.com/epic-events/crm/internal/audit"
	"github.com/epic-events/crm/internal/shared/auth"
	"github.com/epic-events/crm/internal/shared/errors"
	"github.com/epic-events/crm/internal/shared/metrics"
	"github.com/epic-events/crm/internal/shared/types"
	"github.com/go-chi/chi/v5"
)

// Store is the persistence surface the event handlers need.
// *Repository satisfies it.
type Store interface {
	ContractOwner(ctx context.Context, contractID types.ID) (clientID, owner types.ID, err error)
	Create(ctx context.Context, event *Event) error
	Get(ctx context.Context, id types.ID, scope access.Scope) (*Event, error)
	Update(ctx context.Context, event *Event) error
	List(ctx context.Context, scope access.Scope, filter ListFilter) ([]Event, int, error)
}

// Handler provides HTTP handlers for the event module
type Handler struct {
	store    Store
	recorder *audit.Recorder
}

// NewHandler creates a new event handler
func NewHandler(store Store, recorder *audit.Recorder) *Handler {
	return &Handler{store: store, recorder: recorder}
}

// Routes registers the event routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/statuses", h.Statuses)

	r.Route("/{eventID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
	})

	return r
}

// List lists the events in the principal's visible set
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
	if sc := r.URL.Query().Get("support_contact"); sc != "" {
		id, err := types.ParseID(sc)
		if err != nil {
			writeError(w, errors.BadRequest("invalid support contact ID"))
			return
		}
		filter.SupportContact = &id
	}
	if v := r.URL.Query().Get("event_date_before"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, errors.BadRequest("invalid event_date_before"))
			return
		}
		filter.EventDateBefore = &ts
	}
	if v := r.URL.Query().Get("event_date_after"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, errors.BadRequest("invalid event_date_after"))
			return
		}
		filter.EventDateAfter = &ts
	}

	events, total, err := h.store.List(r.Context(), access.EventScope(principal), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  events,
		"total": total,
	})
}

// Get returns an event. An event outside the visible set is reported
// as not found.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid event ID"))
		return
	}

	event, err := h.store.Get(r.Context(), id, access.EventScope(principal))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// Create creates a new event. The creating principal must be the sales
// contact at the top of the referenced contract's client chain.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	allowed := access.CanCreateEvents(principal)
	metrics.RecordAuthorizationDecision("event", "create", allowed)
	if !allowed {
		writeError(w, errors.Forbidden("only sales may create events"))
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	details := map[string]string{}
	if req.ContractID.IsZero() {
		details["contract"] = "contract is required"
	}
	if req.Status != nil && !req.Status.Valid() {
		details["status"] = "unknown status"
	}
	if req.Attendees != nil && *req.Attendees < 0 {
		details["attendees"] = "attendees cannot be negative"
	}
	if len(details) > 0 {
		writeError(w, errors.Validation("validation failed", details))
		return
	}

	clientID, owner, err := h.store.ContractOwner(r.Context(), req.ContractID)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.Err == errors.ErrNotFound {
			writeError(w, errors.Validation("validation failed", map[string]string{
				"contract": "unknown contract",
			}))
			return
		}
		writeError(w, err)
		return
	}

	// Ownership gate: evaluated against the resolved contract chain,
	// after the role gate.
	owns := access.OwnsAsSales(principal, owner)
	metrics.RecordAuthorizationDecision("event", "create", owns)
	if !owns {
		writeError(w, errors.Forbidden("only the client's sales contact may create its events"))
		return
	}

	status := StatusCreated
	if req.Status != nil {
		status = *req.Status
	}

	event := &Event{
		ID:             types.NewID(),
		ContractID:     req.ContractID,
		SupportContact: req.SupportContact,
		Status:         status,
		Attendees:      req.Attendees,
		EventDate:      req.EventDate,
		Notes:          req.Notes,
		ClientID:       clientID,
		SalesContact:   owner,
	}

	// Duplicate event for the contract comes back as a 400 validation
	// error, not an authorization failure.
	if err := h.store.Create(r.Context(), event); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordCreated("event")
	h.recorder.Record(r.Context(), principal, audit.ActionCreate, "event", event.ID)

	writeJSON(w, http.StatusCreated, event)
}

// Update updates an event. Any support member may update any event;
// assignment via support_contact is not enforced here.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid event ID"))
		return
	}

	// Visibility first: an invisible event reads as absent.
	event, err := h.store.Get(r.Context(), id, access.EventScope(principal))
	if err != nil {
		writeError(w, err)
		return
	}

	allowed := access.CanUpdateEvents(principal)
	metrics.RecordAuthorizationDecision("event", "update", allowed)
	if !allowed {
		writeError(w, errors.Forbidden("only support may update events"))
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
	if req.Attendees != nil && *req.Attendees < 0 {
		details["attendees"] = "attendees cannot be negative"
	}
	if len(details) > 0 {
		writeError(w, errors.Validation("validation failed", details))
		return
	}

	if req.SupportContact != nil {
		event.SupportContact = req.SupportContact
	}
	if req.Status != nil {
		event.Status = *req.Status
	}
	if req.Attendees != nil {
		event.Attendees = req.Attendees
	}
	if req.EventDate != nil {
		event.EventDate = req.EventDate
	}
	if req.Notes != nil {
		event.Notes = *req.Notes
	}

	if err := h.store.Update(r.Context(), event); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordUpdated("event")
	h.recorder.Record(r.Context(), principal, audit.ActionUpdate, "event", event.ID)

	writeJSON(w, http.StatusOK, event)
}

// Statuses returns the fixed event status values
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
