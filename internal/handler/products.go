package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/bookbarn/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductStore defines the database methods needed by catalog handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	ListProducts(ctx context.Context) ([]database.Product, error)
	SearchProducts(ctx context.Context, keyword string) ([]database.Product, error)
}

// ProductHandler serves the public catalog.
type ProductHandler struct {
	store ProductStore
}

func NewProductHandler(store ProductStore) *ProductHandler {
	return &ProductHandler{store: store}
}

// RegisterRoutes registers catalog endpoints on the given Chi router.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/products", h.List)
	r.Get("/products/search", h.Search)
	r.Get("/products/{id}", h.Get)
}

type productResponse struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Description   *string   `json:"description"`
	Price         string    `json:"price"`
	OfferPrice    *string   `json:"offer_price"`
	StockQuantity int32     `json:"stock_quantity"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// List handles GET /products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		log.Printf("ERROR: list products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toProductResponses(products))
}

// Search handles GET /products/search?q=keyword.
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("q")
	if keyword == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}

	products, err := h.store.SearchProducts(r.Context(), keyword)
	if err != nil {
		log.Printf("ERROR: search products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toProductResponses(products))
}

// Get handles GET /products/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// --- Helpers ---

func toProductResponse(p database.Product) productResponse {
	resp := productResponse{
		ID:            p.ID,
		Title:         p.Title,
		Author:        p.Author,
		Price:         numericToString(p.Price),
		StockQuantity: p.StockQuantity,
		Status:        p.Status,
		CreatedAt:     p.CreatedAt.Time,
	}
	if p.Description.Valid {
		resp.Description = &p.Description.String
	}
	if p.OfferPrice.Valid {
		s := numericToString(p.OfferPrice)
		resp.OfferPrice = &s
	}
	return resp
}

func toProductResponses(products []database.Product) []productResponse {
	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	return resp
}
