package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bookbarn/api/internal/database"
	"github.com/bookbarn/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyOrder          = errors.New("order has no items")
	ErrMissingCustomerInfo = errors.New("customer name and email are required")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrProductNotFound     = errors.New("product not found")
	ErrProductInactive     = errors.New("product is not available")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrOrderNotFound       = errors.New("order not found")
	ErrNotOwner            = errors.New("order belongs to another customer")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInvalidStatus       = errors.New("unknown order status")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrInvalidDiscount     = errors.New("invalid discount amount")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order service.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	ReserveStock(ctx context.Context, arg database.ReserveStockParams) (int64, error)
	ReleaseStock(ctx context.Context, arg database.ReleaseStockParams) error
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
	CancelPendingOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	DeleteOrderItems(ctx context.Context, orderID uuid.UUID) error
	DeleteOrder(ctx context.Context, id uuid.UUID) (int64, error)
	GetPromoCodeByCode(ctx context.Context, code string) (database.PromoCode, error)
	IncrementPromoUsage(ctx context.Context, id uuid.UUID) error
	GetUser(ctx context.Context, id uuid.UUID) (database.User, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// OrderLine is one product/quantity pair going into an order.
type OrderLine struct {
	ProductID uuid.UUID
	Quantity  int32
}

// PlaceOrderRequest is the validated input for a self-checkout order.
type PlaceOrderRequest struct {
	UserID          uuid.UUID
	CustomerName    string
	CustomerEmail   string
	ShippingAddress string
	PromoCode       string
	Items           []OrderLine
}

// POSOrderRequest is the input for a staff-created point-of-sale order.
// POS sales are finalized at the counter, so they are written as completed.
type POSOrderRequest struct {
	StaffID        uuid.UUID
	CustomerID     uuid.UUID
	DiscountAmount string
	PaymentMethod  string
	Notes          string
	Items          []OrderLine
}

// OrderResult is the created order with its items.
type OrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles order placement, cancellation and lifecycle.
type OrderService struct {
	pool     TxBeginner
	db       database.DBTX
	newStore NewOrderStore
	promos   *PromoService
}

// NewOrderService wires the service to the pool. The pool is passed twice:
// once to begin transactions and once as the DBTX for reads that do not need
// one.
func NewOrderService(pool TxBeginner, db database.DBTX, newStore NewOrderStore, promos *PromoService) *OrderService {
	return &OrderService{pool: pool, db: db, newStore: newStore, promos: promos}
}

// orderDraft carries the shared fields of the two order creation paths into
// the transactional core.
type orderDraft struct {
	userID          pgtype.UUID
	customerName    string
	customerEmail   string
	shippingAddress pgtype.Text
	paymentMethod   pgtype.Text
	notes           pgtype.Text
	status          string
	createdBy       pgtype.UUID
	promo           *database.PromoCode
	fixedDiscount   decimal.Decimal
	items           []OrderLine
}

// PlaceOrder validates the cart, prices it, and creates the order atomically:
// the order row, its items, and every stock reservation commit together or
// not at all. Retries up to maxOrderNumberRetries times on order_number
// unique constraint violations.
//
// An invalid promo code does not fail the order; it degrades to a zero
// discount. ValidatePromo is the surface that reports the precise reason.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if req.CustomerName == "" || req.CustomerEmail == "" {
		return nil, ErrMissingCustomerInfo
	}

	var promo *database.PromoCode
	if req.PromoCode != "" {
		p, err := s.promos.Validate(ctx, req.PromoCode)
		switch {
		case err == nil:
			promo = &p
		case errors.Is(err, ErrPromoNotFound), errors.Is(err, ErrPromoInactive),
			errors.Is(err, ErrPromoNotYetValid), errors.Is(err, ErrPromoExpired):
			// Stale code at checkout: proceed without a discount.
		default:
			return nil, fmt.Errorf("validate promo: %w", err)
		}
	}

	shippingAddress := pgtype.Text{}
	if req.ShippingAddress != "" {
		shippingAddress = pgtype.Text{String: req.ShippingAddress, Valid: true}
	}

	draft := orderDraft{
		userID:          pgtype.UUID{Bytes: req.UserID, Valid: true},
		customerName:    req.CustomerName,
		customerEmail:   req.CustomerEmail,
		shippingAddress: shippingAddress,
		status:          enum.OrderStatusPending,
		promo:           promo,
		items:           req.Items,
	}

	result, err := s.createWithRetry(ctx, draft)
	if err != nil {
		return nil, err
	}

	// Usage counting is best effort after commit: the order stands even if
	// the counter update fails.
	if promo != nil {
		if err := s.newStore(s.db).IncrementPromoUsage(ctx, promo.ID); err != nil {
			log.Printf("ERROR: increment promo usage for %s: %v", promo.Code, err)
		}
	}

	return result, nil
}

// CreatePOSOrder creates a staff point-of-sale order. The sale is finalized
// at the counter: stock is reserved in the same transaction and the order is
// written as completed.
func (s *OrderService) CreatePOSOrder(ctx context.Context, req POSOrderRequest) (*OrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	store := s.newStore(s.db)
	customer, err := store.GetUser(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	fixedDiscount := decimal.Zero
	if req.DiscountAmount != "" {
		fixedDiscount, err = decimal.NewFromString(req.DiscountAmount)
		if err != nil || fixedDiscount.IsNegative() {
			return nil, ErrInvalidDiscount
		}
	}

	paymentMethod := pgtype.Text{}
	if req.PaymentMethod != "" {
		paymentMethod = pgtype.Text{String: req.PaymentMethod, Valid: true}
	}
	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	draft := orderDraft{
		userID:        pgtype.UUID{Bytes: req.CustomerID, Valid: true},
		customerName:  customer.FullName,
		customerEmail: customer.Email,
		paymentMethod: paymentMethod,
		notes:         notes,
		status:        enum.OrderStatusCompleted,
		createdBy:     pgtype.UUID{Bytes: req.StaffID, Valid: true},
		fixedDiscount: fixedDiscount,
		items:         req.Items,
	}

	return s.createWithRetry(ctx, draft)
}

// createWithRetry runs the order transaction, retrying on the rare
// order_number collision.
func (s *OrderService) createWithRetry(ctx context.Context, draft orderDraft) (*OrderResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, draft)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

// createOrderTx executes the full order creation in a single transaction:
// price each line from the live catalog, insert the order and its items, and
// reserve stock with a conditional decrement. Any failure rolls everything
// back, so stock is never held by an order that was not created.
func (s *OrderService) createOrderTx(ctx context.Context, draft orderDraft) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Price each line from the live catalog ---
	var priced []pricedLine
	for i, line := range draft.items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		product, err := store.GetProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrProductNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get product: %w", i, err)
		}
		if product.Status != enum.ProductStatusActive {
			return nil, fmt.Errorf("item[%d] %q: %w", i, product.Title, ErrProductInactive)
		}

		unitPrice := effectivePrice(product)
		total := unitPrice.Mul(decimal.NewFromInt32(line.Quantity))
		priced = append(priced, pricedLine{
			line:      line,
			title:     product.Title,
			unitPrice: unitPrice,
			total:     total,
		})
	}

	// --- Discount ---
	discountType := ""
	discountValue := decimal.Zero
	promoCode := pgtype.Text{}
	if draft.promo != nil {
		discountType = draft.promo.DiscountType
		discountValue = numericToDecimal(draft.promo.DiscountValue)
		promoCode = pgtype.Text{String: draft.promo.Code, Valid: true}
	} else if draft.fixedDiscount.IsPositive() {
		discountType = enum.DiscountTypeFixed
		discountValue = draft.fixedDiscount
	}
	quote := ComputeQuote(quoteLines(priced), discountType, discountValue)

	// --- Insert order ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:     generateOrderNumber(),
		UserID:          draft.userID,
		CustomerName:    draft.customerName,
		CustomerEmail:   draft.customerEmail,
		ShippingAddress: draft.shippingAddress,
		PaymentMethod:   draft.paymentMethod,
		Notes:           draft.notes,
		Status:          draft.status,
		TotalAmount:     decimalToNumeric(quote.Subtotal),
		DiscountAmount:  decimalToNumeric(quote.Discount),
		FinalAmount:     decimalToNumeric(quote.Total),
		PromoCode:       promoCode,
		CreatedBy:       draft.createdBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert items and reserve stock ---
	var items []database.OrderItem
	for _, p := range priced {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    order.ID,
			ProductID:  p.line.ProductID,
			Quantity:   p.line.Quantity,
			UnitPrice:  decimalToNumeric(p.unitPrice),
			TotalPrice: decimalToNumeric(p.total),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}

		affected, err := store.ReserveStock(ctx, database.ReserveStockParams{
			ID:       p.line.ProductID,
			Quantity: p.line.Quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("reserve stock: %w", err)
		}
		if affected == 0 {
			return nil, fmt.Errorf("%q: %w", p.title, ErrInsufficientStock)
		}

		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{Order: order, Items: items}, nil
}

// pricedLine is an order line priced from the live catalog.
type pricedLine struct {
	line      OrderLine
	title     string
	unitPrice decimal.Decimal
	total     decimal.Decimal
}

func quoteLines(priced []pricedLine) []QuoteLine {
	lines := make([]QuoteLine, len(priced))
	for i, p := range priced {
		lines[i] = QuoteLine{UnitPrice: p.unitPrice, Quantity: p.line.Quantity}
	}
	return lines
}

// CancelOrder cancels a pending order owned by the requester and releases
// its stock reservations. The status flip and the releases share one
// transaction, and the conditional update guards against double release: a
// second cancel loses the precondition and returns ErrInvalidTransition.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, requesterID uuid.UUID) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if !order.UserID.Valid || uuid.UUID(order.UserID.Bytes) != requesterID {
		return nil, ErrNotOwner
	}

	cancelled, err := store.CancelPendingOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	if err := s.releaseOrderStock(ctx, store, orderID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &cancelled, nil
}

// UpdateStatus moves an order along the lifecycle. Transitions other than
// cancellation never touch stock; cancellation releases every item's
// reservation in the same transaction as the status flip.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus string) (*database.Order, error) {
	if !isValidStatus(newStatus) {
		return nil, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if !CanTransition(order.Status, newStatus) {
		return nil, ErrInvalidTransition
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         orderID,
		Status:     newStatus,
		FromStatus: order.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost a race with a concurrent transition.
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if newStatus == enum.OrderStatusCancelled {
		if err := s.releaseOrderStock(ctx, store, orderID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &updated, nil
}

func (s *OrderService) releaseOrderStock(ctx context.Context, store OrderStore, orderID uuid.UUID) error {
	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	for _, item := range items {
		if err := store.ReleaseStock(ctx, database.ReleaseStockParams{
			ID:       item.ProductID,
			Quantity: item.Quantity,
		}); err != nil {
			return fmt.Errorf("release stock: %w", err)
		}
	}
	return nil
}

// DeleteOrder removes an order and its items. This is an administrative
// purge: cancelled or bad data cleanup, not a refund path, so stock is left
// alone.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	if err := store.DeleteOrderItems(ctx, orderID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	affected, err := store.DeleteOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetOrderWithItems fetches an order and its item lines.
func (s *OrderService) GetOrderWithItems(ctx context.Context, orderID uuid.UUID) (*database.Order, []database.ListOrderItemsByOrderRow, error) {
	store := s.newStore(s.db)
	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, fmt.Errorf("get order: %w", err)
	}
	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("list order items: %w", err)
	}
	return &order, items, nil
}

// generateOrderNumber builds a date-prefixed order number with a random
// suffix. Collisions are caught by the unique constraint and retried.
func generateOrderNumber() string {
	suffix := make([]byte, 3)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), hex.EncodeToString(suffix))
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
