package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bookbarn/api/internal/cart"
	"github.com/bookbarn/api/internal/database"
	"github.com/bookbarn/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

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

func newCartFixture(t *testing.T) (*CartService, *stubCatalog, uuid.UUID) {
	t.Helper()
	catalog := &stubCatalog{products: map[uuid.UUID]database.Product{
		testProductID: {
			ID:            testProductID,
			Title:         "The Go Programming Language",
			Price:         makeNumeric(t, "54.99"),
			StockQuantity: 5,
			Status:        enum.ProductStatusActive,
		},
	}}
	return NewCartService(cart.NewStore(), catalog), catalog, uuid.New()
}

func TestCartAdd(t *testing.T) {
	svc, _, userID := newCartFixture(t)

	items, err := svc.Add(context.Background(), userID, testProductID, 2)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].Quantity != 2 {
		t.Errorf("quantity = %d, want 2", items[0].Quantity)
	}
	if !items[0].UnitPrice.Equal(decimal.RequireFromString("54.99")) {
		t.Errorf("unit price = %s, want 54.99", items[0].UnitPrice)
	}
}

func TestCartAddMergesQuantities(t *testing.T) {
	svc, _, userID := newCartFixture(t)

	if _, err := svc.Add(context.Background(), userID, testProductID, 2); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	items, err := svc.Add(context.Background(), userID, testProductID, 3)
	if err != nil {
		t.Fatalf("second Add: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 merged line", len(items))
	}
	if items[0].Quantity != 5 {
		t.Errorf("quantity = %d, want 5", items[0].Quantity)
	}
}

func TestCartAddMergedQuantityExceedsStock(t *testing.T) {
	svc, _, userID := newCartFixture(t)

	if _, err := svc.Add(context.Background(), userID, testProductID, 4); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	_, err := svc.Add(context.Background(), userID, testProductID, 2)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("want ErrInsufficientStock, got %v", err)
	}

	// The failed add must not have touched the stored cart.
	items, err := svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 4 {
		t.Errorf("cart after failed add = %+v, want single line of 4", items)
	}
}

func TestCartAddUnknownProduct(t *testing.T) {
	svc, _, userID := newCartFixture(t)
	_, err := svc.Add(context.Background(), userID, uuid.New(), 1)
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("want ErrProductNotFound, got %v", err)
	}
}

func TestCartAddInactiveProduct(t *testing.T) {
	svc, catalog, userID := newCartFixture(t)
	p := catalog.products[testProductID]
	p.Status = enum.ProductStatusInactive
	catalog.products[testProductID] = p

	_, err := svc.Add(context.Background(), userID, testProductID, 1)
	if !errors.Is(err, ErrProductInactive) {
		t.Fatalf("want ErrProductInactive, got %v", err)
	}
}

func TestCartAddInvalidQuantity(t *testing.T) {
	svc, _, userID := newCartFixture(t)
	_, err := svc.Add(context.Background(), userID, testProductID, 0)
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("want ErrInvalidQuantity, got %v", err)
	}
}

func TestCartUpdateQuantity(t *testing.T) {
	svc, _, userID := newCartFixture(t)
	if _, err := svc.Add(context.Background(), userID, testProductID, 2); err != nil {
		t.Fatalf("Add: %v", err)
	}

	items, err := svc.Update(context.Background(), userID, testProductID, 4)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if items[0].Quantity != 4 {
		t.Errorf("quantity = %d, want 4", items[0].Quantity)
	}
}

func TestCartUpdateToZeroRemovesLine(t *testing.T) {
	svc, _, userID := newCartFixture(t)
	if _, err := svc.Add(context.Background(), userID, testProductID, 2); err != nil {
		t.Fatalf("Add: %v", err)
	}

	items, err := svc.Update(context.Background(), userID, testProductID, 0)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %d, want 0", len(items))
	}
}

func TestCartUpdateMissingLine(t *testing.T) {
	svc, _, userID := newCartFixture(t)
	_, err := svc.Update(context.Background(), userID, testProductID, 1)
	if !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("want ErrCartItemNotFound, got %v", err)
	}
}

func TestCartRemoveMissingLine(t *testing.T) {
	svc, _, userID := newCartFixture(t)
	_, err := svc.Remove(context.Background(), userID, testProductID)
	if !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("want ErrCartItemNotFound, got %v", err)
	}
}

func TestCartGetReconcilesAgainstCatalog(t *testing.T) {
	svc, catalog, userID := newCartFixture(t)
	if _, err := svc.Add(context.Background(), userID, testProductID, 5); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Price drops and stock shrinks while the cart sits idle.
	p := catalog.products[testProductID]
	p.OfferPrice = makeNumeric(t, "39.99")
	p.StockQuantity = 3
	catalog.products[testProductID] = p

	items, err := svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].Quantity != 3 {
		t.Errorf("quantity = %d, want clamped to 3", items[0].Quantity)
	}
	if !items[0].UnitPrice.Equal(decimal.RequireFromString("39.99")) {
		t.Errorf("unit price = %s, want refreshed 39.99", items[0].UnitPrice)
	}
}

func TestCartGetDropsInactiveAndMissingProducts(t *testing.T) {
	svc, catalog, userID := newCartFixture(t)
	otherID := uuid.New()
	catalog.products[otherID] = database.Product{
		ID:            otherID,
		Title:         "A Tour of C++",
		Price:         makeNumeric(t, "49.00"),
		StockQuantity: 10,
		Status:        enum.ProductStatusActive,
	}
	if _, err := svc.Add(context.Background(), userID, testProductID, 1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := svc.Add(context.Background(), userID, otherID, 1); err != nil {
		t.Fatalf("Add: %v", err)
	}

	p := catalog.products[testProductID]
	p.Status = enum.ProductStatusInactive
	catalog.products[testProductID] = p

	items, err := svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(items) != 1 || items[0].ProductID != otherID {
		t.Fatalf("items = %+v, want only the active product", items)
	}

	// The reconciled cart is stored back.
	items, err = svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("items = %d after reconcile, want 1", len(items))
	}
}

func TestCartClear(t *testing.T) {
	svc, _, userID := newCartFixture(t)
	if _, err := svc.Add(context.Background(), userID, testProductID, 1); err != nil {
		t.Fatalf("Add: %v", err)
	}

	svc.Clear(userID)

	items, err := svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %d after clear, want 0", len(items))
	}
}
