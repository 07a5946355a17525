package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/bookbarn/api/internal/database"
	"github.com/bookbarn/api/internal/enum"
	"github.com/bookbarn/api/internal/middleware"
	"github.com/bookbarn/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CancelOrder(ctx context.Context, orderID, requesterID uuid.UUID) (*database.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus string) (*database.Order, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	GetOrderWithItems(ctx context.Context, orderID uuid.UUID) (*database.Order, []database.ListOrderItemsByOrderRow, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	ListOrders(ctx context.Context) ([]database.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]database.Order, error)
	ListOrdersByStatus(ctx context.Context, status string) ([]database.Order, error)
	SearchOrders(ctx context.Context, keyword string) ([]database.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (database.Order, error)
	CountOrdersByStatus(ctx context.Context, status string) (int64, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterCustomerRoutes registers the customer-facing order endpoints.
// Expected to be mounted inside the authenticated group.
func (h *OrderHandler) RegisterCustomerRoutes(r chi.Router) {
	r.Get("/my/orders", h.ListMine)
	r.Get("/my/orders/{id}", h.GetMine)
	r.Post("/my/orders/{id}/cancel", h.Cancel)
}

// RegisterStaffRoutes registers the back-office order endpoints.
// Expected to be mounted inside the staff/admin group.
func (h *OrderHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Get("/orders/search", h.Search)
	r.Get("/orders/stats", h.Stats)
	r.Get("/orders/number/{number}", h.GetByNumber)
	r.Get("/orders/{id}", h.Get)
	r.Patch("/orders/{id}/status", h.UpdateStatus)
	r.Delete("/orders/{id}", h.Delete)
}

// --- Request / Response types ---

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	UserID          *string             `json:"user_id"`
	CustomerName    string              `json:"customer_name"`
	CustomerEmail   string              `json:"customer_email"`
	ShippingAddress *string             `json:"shipping_address"`
	PaymentMethod   *string             `json:"payment_method"`
	Notes           *string             `json:"notes"`
	Status          string              `json:"status"`
	TotalAmount     string              `json:"total_amount"`
	DiscountAmount  string              `json:"discount_amount"`
	FinalAmount     string              `json:"final_amount"`
	PromoCode       *string             `json:"promo_code"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Items           []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID         uuid.UUID `json:"id"`
	ProductID  uuid.UUID `json:"product_id"`
	Title      string    `json:"title,omitempty"`
	Author     string    `json:"author,omitempty"`
	Quantity   int32     `json:"quantity"`
	UnitPrice  string    `json:"unit_price"`
	TotalPrice string    `json:"total_price"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderStatsResponse struct {
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Shipped   int64 `json:"shipped"`
	Delivered int64 `json:"delivered"`
	Cancelled int64 `json:"cancelled"`
	Completed int64 `json:"completed"`
}

// --- Customer handlers ---

// ListMine handles GET /my/orders.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orders, err := h.store.ListOrdersByUser(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list my orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, dbOrdersToResponses(orders))
}

// GetMine handles GET /my/orders/{id}.
func (h *OrderHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, items, err := h.svc.GetOrderWithItems(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get my order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Hide other customers' orders rather than confirming they exist.
	if !order.UserID.Valid || uuid.UUID(order.UserID.Bytes) != claims.UserID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}

	resp := dbOrderToResponse(*order)
	resp.Items = itemRowsToResponses(items)
	writeJSON(w, http.StatusOK, resp)
}

// Cancel handles POST /my/orders/{id}/cancel. Only the owner may cancel, and
// only while the order is still pending.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	cancelled, err := h.svc.CancelOrder(r.Context(), orderID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrNotOwner):
			writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidTransition):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "only pending orders can be cancelled"})
		default:
			log.Printf("ERROR: cancel order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}
	writeJSON(w, http.StatusOK, dbOrderToResponse(*cancelled))
}

// --- Staff handlers ---

// List handles GET /orders with an optional ?status= filter.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		orders []database.Order
		err    error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		orders, err = h.store.ListOrdersByStatus(r.Context(), status)
	} else {
		orders, err = h.store.ListOrders(r.Context())
	}
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, dbOrdersToResponses(orders))
}

// Search handles GET /orders/search?q=keyword over order number, customer
// name and customer email.
func (h *OrderHandler) Search(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("q")
	if keyword == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}

	orders, err := h.store.SearchOrders(r.Context(), keyword)
	if err != nil {
		log.Printf("ERROR: search orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, dbOrdersToResponses(orders))
}

// Stats handles GET /orders/stats.
func (h *OrderHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var resp orderStatsResponse
	counts := []struct {
		status string
		dst    *int64
	}{
		{enum.OrderStatusPending, &resp.Pending},
		{enum.OrderStatusConfirmed, &resp.Confirmed},
		{enum.OrderStatusShipped, &resp.Shipped},
		{enum.OrderStatusDelivered, &resp.Delivered},
		{enum.OrderStatusCancelled, &resp.Cancelled},
		{enum.OrderStatusCompleted, &resp.Completed},
	}
	for _, c := range counts {
		n, err := h.store.CountOrdersByStatus(r.Context(), c.status)
		if err != nil {
			log.Printf("ERROR: count orders by status: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		*c.dst = n
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, items, err := h.svc.GetOrderWithItems(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbOrderToResponse(*order)
	resp.Items = itemRowsToResponses(items)
	writeJSON(w, http.StatusOK, resp)
}

// GetByNumber handles GET /orders/number/{number}.
func (h *OrderHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	order, err := h.store.GetOrderByNumber(r.Context(), number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order by number: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	updated, err := h.svc.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrInvalidStatus):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		case errors.Is(err, service.ErrInvalidTransition):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: update order status: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}
	writeJSON(w, http.StatusOK, dbOrderToResponse(*updated))
}

// Delete handles DELETE /orders/{id}. Administrative purge; stock is not
// restored.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	if err := h.svc.DeleteOrder(r.Context(), orderID); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: delete order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyOrder) ||
		errors.Is(err, service.ErrMissingCustomerInfo) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrProductNotFound) ||
		errors.Is(err, service.ErrProductInactive) ||
		errors.Is(err, service.ErrInvalidDiscount)
}

func toOrderResponse(result *service.OrderResult) orderResponse {
	resp := dbOrderToResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, item := range result.Items {
		resp.Items[i] = orderItemResponse{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  numericToString(item.UnitPrice),
			TotalPrice: numericToString(item.TotalPrice),
		}
	}
	return resp
}

// dbOrderToResponse converts a database.Order to an orderResponse.
func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		CustomerName:   o.CustomerName,
		CustomerEmail:  o.CustomerEmail,
		Status:         o.Status,
		TotalAmount:    numericToString(o.TotalAmount),
		DiscountAmount: numericToString(o.DiscountAmount),
		FinalAmount:    numericToString(o.FinalAmount),
		CreatedAt:      o.CreatedAt.Time,
		UpdatedAt:      o.UpdatedAt.Time,
	}

	if o.UserID.Valid {
		s := uuid.UUID(o.UserID.Bytes).String()
		resp.UserID = &s
	}
	if o.ShippingAddress.Valid {
		resp.ShippingAddress = &o.ShippingAddress.String
	}
	if o.PaymentMethod.Valid {
		resp.PaymentMethod = &o.PaymentMethod.String
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}
	if o.PromoCode.Valid {
		resp.PromoCode = &o.PromoCode.String
	}

	return resp
}

func dbOrdersToResponses(orders []database.Order) []orderResponse {
	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	return resp
}

func itemRowsToResponses(items []database.ListOrderItemsByOrderRow) []orderItemResponse {
	resp := make([]orderItemResponse, len(items))
	for i, item := range items {
		resp[i] = orderItemResponse{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Title:      item.Title,
			Author:     item.Author,
			Quantity:   item.Quantity,
			UnitPrice:  numericToString(item.UnitPrice),
			TotalPrice: numericToString(item.TotalPrice),
		}
	}
	return resp
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

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
