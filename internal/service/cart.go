package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bookbarn/api/internal/cart"
	"github.com/bookbarn/api/internal/database"
	"github.com/bookbarn/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Errors returned by the cart service.
var (
	ErrCartItemNotFound = errors.New("item not in cart")
)

// CartStore holds carts between requests.
type CartStore interface {
	Get(userID uuid.UUID) []cart.Item
	Replace(userID uuid.UUID, items []cart.Item)
	Clear(userID uuid.UUID)
}

// ProductGetter reads single products from the catalog.
type ProductGetter interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
}

// CartService applies cart business rules: live stock checks, quantity
// merging, and effective-price snapshots.
type CartService struct {
	carts    CartStore
	products ProductGetter
}

func NewCartService(carts CartStore, products ProductGetter) *CartService {
	return &CartService{carts: carts, products: products}
}

// Add puts quantity of a product in the cart, merging with an existing line.
// The merged quantity is validated against live stock.
func (s *CartService) Add(ctx context.Context, userID, productID uuid.UUID, quantity int32) ([]cart.Item, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product.Status != enum.ProductStatusActive {
		return nil, ErrProductInactive
	}

	items := s.carts.Get(userID)
	merged := quantity
	idx := -1
	for i, item := range items {
		if item.ProductID == productID {
			merged += item.Quantity
			idx = i
			break
		}
	}
	if merged > product.StockQuantity {
		return nil, fmt.Errorf("%q: %w", product.Title, ErrInsufficientStock)
	}

	line := cart.Item{
		ProductID: productID,
		Title:     product.Title,
		Quantity:  merged,
		UnitPrice: effectivePrice(product),
	}
	if idx >= 0 {
		items[idx] = line
	} else {
		items = append(items, line)
	}
	s.carts.Replace(userID, items)
	return items, nil
}

// Update sets the quantity of a cart line. Quantity 0 removes the line.
func (s *CartService) Update(ctx context.Context, userID, productID uuid.UUID, quantity int32) ([]cart.Item, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.Remove(ctx, userID, productID)
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product.Status != enum.ProductStatusActive {
		return nil, ErrProductInactive
	}
	if quantity > product.StockQuantity {
		return nil, fmt.Errorf("%q: %w", product.Title, ErrInsufficientStock)
	}

	items := s.carts.Get(userID)
	for i, item := range items {
		if item.ProductID == productID {
			items[i].Quantity = quantity
			items[i].UnitPrice = effectivePrice(product)
			s.carts.Replace(userID, items)
			return items, nil
		}
	}
	return nil, ErrCartItemNotFound
}

// Remove drops a line from the cart.
func (s *CartService) Remove(_ context.Context, userID, productID uuid.UUID) ([]cart.Item, error) {
	items := s.carts.Get(userID)
	for i, item := range items {
		if item.ProductID == productID {
			items = append(items[:i], items[i+1:]...)
			s.carts.Replace(userID, items)
			return items, nil
		}
	}
	return nil, ErrCartItemNotFound
}

// Get returns the cart reconciled against the live catalog: prices are
// refreshed, quantities clamped to current stock, and lines whose product
// went missing or inactive are dropped. The reconciled cart is stored back
// so checkout sees the same view the customer saw.
func (s *CartService) Get(ctx context.Context, userID uuid.UUID) ([]cart.Item, error) {
	items := s.carts.Get(userID)
	reconciled := make([]cart.Item, 0, len(items))
	for _, item := range items {
		product, err := s.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product.Status != enum.ProductStatusActive || product.StockQuantity <= 0 {
			continue
		}
		if item.Quantity > product.StockQuantity {
			item.Quantity = product.StockQuantity
		}
		item.Title = product.Title
		item.UnitPrice = effectivePrice(product)
		reconciled = append(reconciled, item)
	}
	s.carts.Replace(userID, reconciled)
	return reconciled, nil
}

// Clear empties the cart.
func (s *CartService) Clear(userID uuid.UUID) {
	s.carts.Clear(userID)
}

// effectivePrice is the offer price when one is set and positive, otherwise
// the list price.
func effectivePrice(p database.Product) decimal.Decimal {
	if p.OfferPrice.Valid {
		offer := numericToDecimal(p.OfferPrice)
		if offer.IsPositive() {
			return offer
		}
	}
	return numericToDecimal(p.Price)
}
