package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/bookbarn/api/internal/cart"
	"github.com/bookbarn/api/internal/database"
	"github.com/bookbarn/api/internal/middleware"
	"github.com/bookbarn/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// CheckoutServicer defines the order service methods needed at checkout.
// Satisfied by *service.OrderService; narrow interface for testability.
type CheckoutServicer interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*service.OrderResult, error)
}

// PromoServicer validates promo codes.
// Satisfied by *service.PromoService.
type PromoServicer interface {
	Validate(ctx context.Context, code string) (database.PromoCode, error)
}

// Broadcaster pushes events to the staff order feed.
// Satisfied by *ws.Hub; nil disables broadcasting.
type Broadcaster interface {
	BroadcastEvent(eventType string, payload interface{})
}

// CheckoutHandler handles quoting and order placement for the storefront.
type CheckoutHandler struct {
	orders CheckoutServicer
	carts  CartServicer
	promos PromoServicer
	hub    Broadcaster
}

func NewCheckoutHandler(orders CheckoutServicer, carts CartServicer, promos PromoServicer, hub Broadcaster) *CheckoutHandler {
	return &CheckoutHandler{orders: orders, carts: carts, promos: promos, hub: hub}
}

// RegisterRoutes registers checkout endpoints on the given Chi router.
// Expected to be mounted inside the authenticated group.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Post("/checkout/quote", h.Quote)
	r.Post("/checkout/orders", h.PlaceOrder)
}

// --- Request / Response types ---

type quoteRequest struct {
	PromoCode string `json:"promo_code"`
}

type quoteResponse struct {
	Items        []cartItemResponse `json:"items"`
	Subtotal     string             `json:"subtotal"`
	Discount     string             `json:"discount"`
	FinalTotal   string             `json:"final_total"`
	PromoCode    *string            `json:"promo_code"`
	PromoMessage string             `json:"promo_message,omitempty"`
}

type placeOrderRequest struct {
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	ShippingAddress string `json:"shipping_address"`
	PromoCode       string `json:"promo_code"`
}

// --- Handlers ---

// Quote handles POST /checkout/quote: price the current cart with an
// optional promo code, without touching stock or promo usage.
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items, err := h.carts.Get(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: get cart for quote: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	discountType := ""
	discountValue := decimal.Zero
	var appliedCode *string
	promoMessage := ""
	if req.PromoCode != "" {
		promo, err := h.promos.Validate(r.Context(), req.PromoCode)
		switch {
		case err == nil:
			discountType = promo.DiscountType
			discountValue = numericToDecimal(promo.DiscountValue)
			appliedCode = &promo.Code
		case isPromoError(err):
			// A bad code does not block the quote: price with zero
			// discount and tell the customer why it did not apply.
			promoMessage = err.Error()
		default:
			log.Printf("ERROR: validate promo for quote: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
	}

	lines := make([]service.QuoteLine, len(items))
	for i, item := range items {
		lines[i] = service.QuoteLine{UnitPrice: item.UnitPrice, Quantity: item.Quantity}
	}
	quote := service.ComputeQuote(lines, discountType, discountValue)

	cartResp := toCartResponse(items)
	writeJSON(w, http.StatusOK, quoteResponse{
		Items:        cartResp.Items,
		Subtotal:     quote.Subtotal.StringFixed(2),
		Discount:     quote.Discount.StringFixed(2),
		FinalTotal:   quote.Total.StringFixed(2),
		PromoCode:    appliedCode,
		PromoMessage: promoMessage,
	})
}

// PlaceOrder handles POST /checkout/orders: turn the current cart into an
// order. The cart is cleared only after the order commits.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items, err := h.carts.Get(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: get cart for checkout: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	result, err := h.orders.PlaceOrder(r.Context(), service.PlaceOrderRequest{
		UserID:          claims.UserID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		ShippingAddress: req.ShippingAddress,
		PromoCode:       req.PromoCode,
		Items:           toOrderLines(items),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInsufficientStock):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case isValidationError(err):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: place order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	h.carts.Clear(claims.UserID)

	resp := toOrderResponse(result)
	if h.hub != nil {
		h.hub.BroadcastEvent("order.created", resp)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// --- Helpers ---

func toOrderLines(items []cart.Item) []service.OrderLine {
	lines := make([]service.OrderLine, len(items))
	for i, item := range items {
		lines[i] = service.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return lines
}

func isPromoError(err error) bool {
	return errors.Is(err, service.ErrPromoNotFound) ||
		errors.Is(err, service.ErrPromoInactive) ||
		errors.Is(err, service.ErrPromoNotYetValid) ||
		errors.Is(err, service.ErrPromoExpired)
}
