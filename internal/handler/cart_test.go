package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bookbarn/api/internal/auth"
	"github.com/bookbarn/api/internal/cart"
	"github.com/bookbarn/api/internal/database"
	"github.com/bookbarn/api/internal/enum"
	"github.com/bookbarn/api/internal/middleware"
	"github.com/bookbarn/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

var testProductID = uuid.MustParse("11111111-1111-1111-1111-111111111111")

// stubCatalog backs handler tests with a map of products.
type stubCatalog struct {
	products map[uuid.UUID]database.Product
}

func (s *stubCatalog) GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return database.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func testNumeric(t *testing.T, s string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		t.Fatalf("scan numeric %q: %v", s, err)
	}
	return n
}

func testBook(t *testing.T) database.Product {
	t.Helper()
	return database.Product{
		ID:            testProductID,
		Title:         "The Go Programming Language",
		Author:        "Alan A. A. Donovan",
		Price:         testNumeric(t, "54.99"),
		StockQuantity: 5,
		Status:        enum.ProductStatusActive,
	}
}

// authedRequest builds a request carrying a valid customer token.
func authedRequest(t *testing.T, method, path string, body interface{}, userID uuid.UUID, role string) *http.Request {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	token, err := auth.GenerateToken(testSecret, userID, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func newCartRouter(t *testing.T) (*chi.Mux, *stubCatalog, *service.CartService) {
	t.Helper()
	catalog := &stubCatalog{products: map[uuid.UUID]database.Product{
		testProductID: testBook(t),
	}}
	svc := service.NewCartService(cart.NewStore(), catalog)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		NewCartHandler(svc).RegisterRoutes(r)
	})
	return r, catalog, svc
}

func TestCartAddAndGet(t *testing.T) {
	r, _, _ := newCartRouter(t)
	userID := uuid.New()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/cart/items",
		map[string]interface{}{"product_id": testProductID.String(), "quantity": 2},
		userID, enum.UserRoleCustomer))
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d, body %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/cart", nil, userID, enum.UserRoleCustomer))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	var resp cartResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(resp.Items))
	}
	if resp.Items[0].Quantity != 2 {
		t.Errorf("quantity = %d, want 2", resp.Items[0].Quantity)
	}
	if resp.Items[0].LineTotal != "109.98" {
		t.Errorf("line total = %q, want 109.98", resp.Items[0].LineTotal)
	}
	if resp.ItemCount != 2 {
		t.Errorf("item count = %d, want 2", resp.ItemCount)
	}
	if resp.Subtotal != "109.98" {
		t.Errorf("subtotal = %q, want 109.98", resp.Subtotal)
	}
}

func TestCartAddUnknownProductIs404(t *testing.T) {
	r, _, _ := newCartRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/cart/items",
		map[string]interface{}{"product_id": uuid.NewString(), "quantity": 1},
		uuid.New(), enum.UserRoleCustomer))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCartAddBeyondStockIs400(t *testing.T) {
	r, _, _ := newCartRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/cart/items",
		map[string]interface{}{"product_id": testProductID.String(), "quantity": 99},
		uuid.New(), enum.UserRoleCustomer))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCartUpdateItem(t *testing.T) {
	r, _, _ := newCartRouter(t)
	userID := uuid.New()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/cart/items",
		map[string]interface{}{"product_id": testProductID.String(), "quantity": 1},
		userID, enum.UserRoleCustomer))
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPatch, "/cart/items/"+testProductID.String(),
		map[string]interface{}{"quantity": 4}, userID, enum.UserRoleCustomer))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body)
	}

	var resp cartResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Items[0].Quantity != 4 {
		t.Errorf("quantity = %d, want 4", resp.Items[0].Quantity)
	}
}

func TestCartUpdateMissingLineIs404(t *testing.T) {
	r, _, _ := newCartRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPatch, "/cart/items/"+testProductID.String(),
		map[string]interface{}{"quantity": 1}, uuid.New(), enum.UserRoleCustomer))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCartRemoveItem(t *testing.T) {
	r, _, _ := newCartRouter(t)
	userID := uuid.New()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/cart/items",
		map[string]interface{}{"product_id": testProductID.String(), "quantity": 1},
		userID, enum.UserRoleCustomer))
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodDelete, "/cart/items/"+testProductID.String(),
		nil, userID, enum.UserRoleCustomer))
	if rec.Code != http.StatusOK {
		t.Fatalf("remove status = %d", rec.Code)
	}

	var resp cartResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Items) != 0 {
		t.Errorf("items = %d, want 0", len(resp.Items))
	}
}

func TestCartClearEndpoint(t *testing.T) {
	r, _, _ := newCartRouter(t)
	userID := uuid.New()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/cart/items",
		map[string]interface{}{"product_id": testProductID.String(), "quantity": 1},
		userID, enum.UserRoleCustomer))
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodDelete, "/cart", nil, userID, enum.UserRoleCustomer))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/cart", nil, userID, enum.UserRoleCustomer))
	var resp cartResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Items) != 0 {
		t.Errorf("items = %d after clear, want 0", len(resp.Items))
	}
}

func TestCartRequiresAuthentication(t *testing.T) {
	r, _, _ := newCartRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
