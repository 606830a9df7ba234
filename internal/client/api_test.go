package client

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

// fakeStore keeps clients in memory and applies the visibility scope
// the way the SQL repository does. knownUsers stands in for the users
// table: reassigning sales_contact to an ID outside it fails the same
// way the foreign key does.
type fakeStore struct {
	clients    map[types.ID]*Client
	hasEvent   map[types.ID]bool
	knownUsers map[types.ID]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clients:    map[types.ID]*Client{},
		hasEvent:   map[types.ID]bool{},
		knownUsers: map[types.ID]bool{},
	}
}

func (s *fakeStore) chain(c *Client) access.Chain {
	return access.Chain{SalesContact: c.SalesContact, HasEvent: s.hasEvent[c.ID]}
}

func (s *fakeStore) Create(ctx context.Context, client *Client) error {
	s.clients[client.ID] = client
	return nil
}

func (s *fakeStore) Get(ctx context.Context, id types.ID, scope access.Scope) (*Client, error) {
	c, ok := s.clients[id]
	if !ok || !scope.Matches(s.chain(c)) {
		return nil, errors.NotFound("client", id.String())
	}
	copied := *c
	return &copied, nil
}

func (s *fakeStore) Update(ctx context.Context, client *Client) error {
	if _, ok := s.clients[client.ID]; !ok {
		return errors.NotFound("client", client.ID.String())
	}
	if !s.knownUsers[client.SalesContact] {
		return errors.Validation("validation failed", map[string]string{
			"sales_contact": "unknown user",
		})
	}
	s.clients[client.ID] = client
	return nil
}

func (s *fakeStore) List(ctx context.Context, scope access.Scope, filter ListFilter) ([]Client, int, error) {
	var out []Client
	for _, c := range s.clients {
		if scope.Matches(s.chain(c)) {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (s *fakeStore) ContractSummaries(ctx context.Context, clientID types.ID) ([]ContractSummary, error) {
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

func TestCreateForcesSalesContact(t *testing.T) {
	store := newFakeStore()
	handler := NewHandler(store, nil)
	sales := principal(account.RoleSales)

	rec := do(t, handler.Routes(), sales, http.MethodPost, "/",
		`{"company_name":"Cool Startup","email":"kevin@coolstartup.test","sales_contact":"`+types.NewID().String()+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created Client
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.SalesContact != sales.ID {
		t.Errorf("sales_contact = %s, want creating principal %s", created.SalesContact, sales.ID)
	}
}

func TestCreateRejectsSupport(t *testing.T) {
	handler := NewHandler(newFakeStore(), nil)

	rec := do(t, handler.Routes(), principal(account.RoleSupport), http.MethodPost, "/",
		`{"company_name":"Cool Startup","email":"kevin@coolstartup.test"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

// --- Update Tests ---

func TestUpdateRejectsNonOwnerSales(t *testing.T) {
	store := newFakeStore()
	owner := principal(account.RoleSales)
	other := principal(account.RoleSales)
	store.knownUsers[owner.ID] = true

	existing := &Client{
		ID:           types.NewID(),
		CompanyName:  "Cool Startup",
		Status:       StatusProspect,
		SalesContact: owner.ID,
		Email:        "kevin@coolstartup.test",
	}
	store.clients[existing.ID] = existing

	handler := NewHandler(store, nil)

	// Sales sees every client, so the lookup succeeds and the denial
	// comes from the ownership gate.
	rec := do(t, handler.Routes(), other, http.MethodPut, "/"+existing.ID.String(),
		`{"company_name":"Renamed"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeError(t, rec); body.Code != "FORBIDDEN" {
		t.Errorf("code = %q, want FORBIDDEN", body.Code)
	}
	if store.clients[existing.ID].CompanyName != "Cool Startup" {
		t.Error("client was modified by a denied update")
	}
}

func TestUpdateRejectsUnknownSalesContact(t *testing.T) {
	store := newFakeStore()
	owner := principal(account.RoleSales)
	store.knownUsers[owner.ID] = true

	existing := &Client{
		ID:           types.NewID(),
		CompanyName:  "Cool Startup",
		Status:       StatusProspect,
		SalesContact: owner.ID,
		Email:        "kevin@coolstartup.test",
	}
	store.clients[existing.ID] = existing

	handler := NewHandler(store, nil)

	rec := do(t, handler.Routes(), owner, http.MethodPut, "/"+existing.ID.String(),
		`{"sales_contact":"`+types.NewID().String()+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeError(t, rec); body.Details["sales_contact"] != "unknown user" {
		t.Errorf("details[sales_contact] = %q, want %q", body.Details["sales_contact"], "unknown user")
	}
}

// --- Get Tests ---

func TestGetHidesClientWithoutEventFromSupport(t *testing.T) {
	store := newFakeStore()
	owner := principal(account.RoleSales)

	existing := &Client{
		ID:           types.NewID(),
		CompanyName:  "Cool Startup",
		Status:       StatusProspect,
		SalesContact: owner.ID,
		Email:        "kevin@coolstartup.test",
	}
	store.clients[existing.ID] = existing

	handler := NewHandler(store, nil)

	// Outside the visible set the client reads as absent, never as a
	// permission failure.
	rec := do(t, handler.Routes(), principal(account.RoleSupport), http.MethodGet, "/"+existing.ID.String(), "")
	if rec.Code == http.StatusForbidden {
		t.Fatal("invisible client surfaced as 403, want 404")
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
