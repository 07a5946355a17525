package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/bookbarn/api/internal/cart"
	"github.com/bookbarn/api/internal/middleware"
	"github.com/bookbarn/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartServicer defines the service methods needed by cart handlers.
// Satisfied by *service.CartService; narrow interface for testability.
type CartServicer interface {
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int32) ([]cart.Item, error)
	Update(ctx context.Context, userID, productID uuid.UUID, quantity int32) ([]cart.Item, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) ([]cart.Item, error)
	Get(ctx context.Context, userID uuid.UUID) ([]cart.Item, error)
	Clear(userID uuid.UUID)
}

// CartHandler handles the customer cart endpoints.
type CartHandler struct {
	svc CartServicer
}

func NewCartHandler(svc CartServicer) *CartHandler {
	return &CartHandler{svc: svc}
}

// RegisterRoutes registers cart endpoints on the given Chi router.
// Expected to be mounted inside the authenticated group.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/cart", h.Get)
	r.Delete("/cart", h.Clear)
	r.Post("/cart/items", h.AddItem)
	r.Patch("/cart/items/{pid}", h.UpdateItem)
	r.Delete("/cart/items/{pid}", h.RemoveItem)
}

// --- Request / Response types ---

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int32 `json:"quantity"`
}

type cartItemResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Title     string    `json:"title"`
	Quantity  int32     `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	LineTotal string    `json:"line_total"`
}

type cartResponse struct {
	Items     []cartItemResponse `json:"items"`
	ItemCount int32              `json:"item_count"`
	Subtotal  string             `json:"subtotal"`
}

// --- Handlers ---

// Get handles GET /cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	items, err := h.svc.Get(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: get cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(items))
}

// Clear handles DELETE /cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	h.svc.Clear(claims.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// AddItem handles POST /cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product_id"})
		return
	}

	items, err := h.svc.Add(r.Context(), claims.UserID, productID, req.Quantity)
	if err != nil {
		h.respondCartError(w, err, "add to cart")
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(items))
}

// UpdateItem handles PATCH /cart/items/{pid}. Quantity 0 removes the line.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req updateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items, err := h.svc.Update(r.Context(), claims.UserID, productID, req.Quantity)
	if err != nil {
		h.respondCartError(w, err, "update cart")
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(items))
}

// RemoveItem handles DELETE /cart/items/{pid}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	items, err := h.svc.Remove(r.Context(), claims.UserID, productID)
	if err != nil {
		h.respondCartError(w, err, "remove from cart")
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(items))
}

// --- Helpers ---

func (h *CartHandler) respondCartError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrProductNotFound), errors.Is(err, service.ErrCartItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrProductInactive),
		errors.Is(err, service.ErrInsufficientStock):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func toCartResponse(items []cart.Item) cartResponse {
	subtotal := decimal.Zero
	resp := cartResponse{Items: make([]cartItemResponse, len(items))}
	for i, item := range items {
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		subtotal = subtotal.Add(lineTotal)
		resp.ItemCount += item.Quantity
		resp.Items[i] = cartItemResponse{
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			LineTotal: lineTotal.StringFixed(2),
		}
	}
	resp.Subtotal = subtotal.StringFixed(2)
	return resp
}
