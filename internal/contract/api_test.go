package contract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/epic-events/crm/internal/access"
	"github.com/epic-events/crm/internal/account"
	"github.com/epic-events/crm/internal/shared/auth"
	"github.com/epic-events/crm/internal/shared/errors"
	"github.com/epic-events/crm/internal/shared/types"
)

// fakeStore keeps contracts in memory and applies the visibility scope
// the way the SQL repository does. owners maps known client IDs to
// their sales contact.
type fakeStore struct {
	contracts map[types.ID]*Contract
	owners    map[types.ID]types.ID
	hasEvent  map[types.ID]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		contracts: map[types.ID]*Contract{},
		owners:    map[types.ID]types.ID{},
		hasEvent:  map[types.ID]bool{},
	}
}

func (s *fakeStore) ClientOwner(ctx context.Context, clientID types.ID) (types.ID, error) {
	owner, ok := s.owners[clientID]
	if !ok {
		return "", errors.NotFound("client", clientID.String())
	}
	return owner, nil
}

func (s *fakeStore) Create(ctx context.Context, contract *Contract) error {
	s.contracts[contract.ID] = contract
	return nil
}

func (s *fakeStore) Get(ctx context.Context, id types.ID, scope access.Scope) (*Contract, error) {
	c, ok := s.contracts[id]
	if !ok || !scope.Matches(access.Chain{SalesContact: c.SalesContact, HasEvent: s.hasEvent[id]}) {
		return nil, errors.NotFound("contract", id.String())
	}
	copied := *c
	return &copied, nil
}

func (s *fakeStore) Update(ctx context.Context, contract *Contract) error {
	if _, ok := s.contracts[contract.ID]; !ok {
		return errors.NotFound("contract", contract.ID.String())
	}
	s.contracts[contract.ID] = contract
	return nil
}

func (s *fakeStore) List(ctx context.Context, scope access.Scope, filter ListFilter) ([]Contract, int, error) {
	var out []Contract
	for id, c := range s.contracts {
		if scope.Matches(access.Chain{SalesContact: c.SalesContact, HasEvent: s.hasEvent[id]}) {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (s *fakeStore) Event(ctx context.Context, contractID types.ID) (*EventSummary, error) {
	return nil, nil
}

func principal(role account.Role) *auth.Principal {
	return &auth.Principal{ID: types.NewID(), Email: "user@epicevents.test", Role: role}
}

func do(t *testing.T, h http.Handler, p *auth.Principal, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(auth.WithPrincipal(req.Context(), p))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()

	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

// --- Create Tests ---

func TestCreateRejectsUnknownClient(t *testing.T) {
	handler := NewHandler(newFakeStore(), nil)

	rec := do(t, handler.Routes(), principal(account.RoleSales), http.MethodPost, "/",
		`{"client":"`+types.NewID().String()+`","amount":1000}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeError(t, rec); body.Details["client"] != "unknown client" {
		t.Errorf("details[client] = %q, want %q", body.Details["client"], "unknown client")
	}
}

func TestCreateRejectsNonOwnerSales(t *testing.T) {
	store := newFakeStore()
	owner := principal(account.RoleSales)
	clientID := types.NewID()
	store.owners[clientID] = owner.ID

	handler := NewHandler(store, nil)

	rec := do(t, handler.Routes(), principal(account.RoleSales), http.MethodPost, "/",
		`{"client":"`+clientID.String()+`","amount":1000}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateDerivesSalesContactFromClient(t *testing.T) {
	store := newFakeStore()
	owner := principal(account.RoleSales)
	clientID := types.NewID()
	store.owners[clientID] = owner.ID

	handler := NewHandler(store, nil)

	rec := do(t, handler.Routes(), owner, http.MethodPost, "/",
		`{"client":"`+clientID.String()+`","amount":1000}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created Contract
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.SalesContact != owner.ID {
		t.Errorf("sales_contact = %s, want client owner %s", created.SalesContact, owner.ID)
	}
	if created.Status != StatusUnsigned {
		t.Errorf("status = %s, want default %s", created.Status, StatusUnsigned)
	}
}

// --- Update Tests ---

func TestUpdateRejectsNonOwnerSales(t *testing.T) {
	store := newFakeStore()
	owner := principal(account.RoleSales)
	other := principal(account.RoleSales)

	existing := &Contract{
		ID:           types.NewID(),
		ClientID:     types.NewID(),
		Status:       StatusSigned,
		Amount:       1000,
		SalesContact: owner.ID,
	}
	store.contracts[existing.ID] = existing

	handler := NewHandler(store, nil)

	// Sales sees every contract, so the lookup succeeds and the denial
	// comes from the ownership gate.
	rec := do(t, handler.Routes(), other, http.MethodPut, "/"+existing.ID.String(),
		`{"amount":2000}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.contracts[existing.ID].Amount != 1000 {
		t.Error("contract was modified by a denied update")
	}
}

func TestUpdateAllowsManagement(t *testing.T) {
	store := newFakeStore()
	owner := principal(account.RoleSales)

	existing := &Contract{
		ID:           types.NewID(),
		ClientID:     types.NewID(),
		Status:       StatusSigned,
		Amount:       1000,
		SalesContact: owner.ID,
	}
	store.contracts[existing.ID] = existing

	handler := NewHandler(store, nil)

	rec := do(t, handler.Routes(), principal(account.RoleManagement), http.MethodPut, "/"+existing.ID.String(),
		`{"status":"payed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.contracts[existing.ID].Status != StatusPayed {
		t.Errorf("status = %s, want %s", store.contracts[existing.ID].Status, StatusPayed)
	}
}

// --- Get Tests ---

func TestGetHidesContractWithoutEventFromSupport(t *testing.T) {
	store := newFakeStore()
	owner := principal(account.RoleSales)

	existing := &Contract{
		ID:           types.NewID(),
		ClientID:     types.NewID(),
		Status:       StatusSigned,
		Amount:       1000,
		SalesContact: owner.ID,
	}
	store.contracts[existing.ID] = existing

	handler := NewHandler(store, nil)

	// Outside the visible set the contract reads as absent, never as a
	// permission failure.
	rec := do(t, handler.Routes(), principal(account.RoleSupport), http.MethodGet, "/"+existing.ID.String(), "")
	if rec.Code == http.StatusForbidden {
		t.Fatal("invisible contract surfaced as 403, want 404")
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	store.hasEvent[existing.ID] = true
	rec = do(t, handler.Routes(), principal(account.RoleSupport), http.MethodGet, "/"+existing.ID.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 once an event exists, got %d", rec.Code)
	}
}
