package service

import (
	"context"
	"errors"
	"time"

	"github.com/bookbarn/api/internal/database"
	"github.com/bookbarn/api/internal/enum"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Errors returned by promo validation.
var (
	ErrPromoNotFound    = errors.New("promo code not found")
	ErrPromoInactive    = errors.New("promo code is inactive")
	ErrPromoNotYetValid = errors.New("promo code is not yet valid")
	ErrPromoExpired     = errors.New("promo code has expired")
)

// PromoStore defines the DB methods needed to validate promo codes.
type PromoStore interface {
	GetPromoCodeByCode(ctx context.Context, code string) (database.PromoCode, error)
}

// PromoService validates promo codes against their activation window.
type PromoService struct {
	store PromoStore
}

func NewPromoService(store PromoStore) *PromoService {
	return &PromoService{store: store}
}

// Validate looks up a code and checks status and date window. It is a pure
// read: usage counting happens when an order applying the code commits.
func (s *PromoService) Validate(ctx context.Context, code string) (database.PromoCode, error) {
	promo, err := s.store.GetPromoCodeByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.PromoCode{}, ErrPromoNotFound
		}
		return database.PromoCode{}, err
	}
	if promo.Status != enum.PromoStatusActive {
		return promo, ErrPromoInactive
	}
	now := time.Now()
	if promo.StartDate.Valid && now.Before(promo.StartDate.Time) {
		return promo, ErrPromoNotYetValid
	}
	if promo.EndDate.Valid && now.After(promo.EndDate.Time) {
		return promo, ErrPromoExpired
	}
	return promo, nil
}

// Quote is the priced breakdown of a set of order lines.
type Quote struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// QuoteLine is a priced line going into a quote.
type QuoteLine struct {
	UnitPrice decimal.Decimal
	Quantity  int32
}

// ComputeQuote prices a set of lines with an optional discount.
// Percentage discounts round half-up to 2 decimals. The discount is
// clamped to [0, subtotal] so it never exceeds what was charged and
// the total never goes negative.
func ComputeQuote(lines []QuoteLine, discountType string, discountValue decimal.Decimal) Quote {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt32(line.Quantity)))
	}

	discount := decimal.Zero
	switch discountType {
	case enum.DiscountTypePercentage:
		discount = subtotal.Mul(discountValue).Div(decimal.NewFromInt(100)).Round(2)
	case enum.DiscountTypeFixed:
		discount = discountValue
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	return Quote{Subtotal: subtotal, Discount: discount, Total: subtotal.Sub(discount)}
}
