package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/bookbarn/api/internal/database"
	"github.com/bookbarn/api/internal/enum"
	"github.com/bookbarn/api/internal/middleware"
	"github.com/bookbarn/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

// POSServicer defines the order service methods needed at the counter.
// Satisfied by *service.OrderService; narrow interface for testability.
type POSServicer interface {
	CreatePOSOrder(ctx context.Context, req service.POSOrderRequest) (*service.OrderResult, error)
}

// POSStore defines the database methods needed by POS customer handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type POSStore interface {
	SearchCustomers(ctx context.Context, keyword string) ([]database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
}

// POSHandler handles the staff point-of-sale endpoints.
type POSHandler struct {
	svc   POSServicer
	store POSStore
	hub   Broadcaster
}

func NewPOSHandler(svc POSServicer, store POSStore, hub Broadcaster) *POSHandler {
	return &POSHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers POS endpoints on the given Chi router.
// Expected to be mounted inside the staff group.
func (h *POSHandler) RegisterRoutes(r chi.Router) {
	r.Post("/pos/orders", h.CreateOrder)
	r.Get("/pos/customers/search", h.SearchCustomers)
	r.Post("/pos/customers", h.CreateCustomer)
}

// --- Request / Response types ---

type posOrderRequest struct {
	CustomerID     string                `json:"customer_id"`
	DiscountAmount string                `json:"discount_amount"`
	PaymentMethod  string                `json:"payment_method"`
	Notes          string                `json:"notes"`
	Items          []posOrderItemRequest `json:"items"`
}

type posOrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

type createCustomerRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type customerResponse struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Phone    *string   `json:"phone"`
}

// --- Handlers ---

// CreateOrder handles POST /pos/orders. POS sales are finalized at the
// counter: the order is written as completed with stock reserved in the same
// transaction.
func (h *POSHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req posOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer_id"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	lines := make([]service.OrderLine, len(req.Items))
	for i, item := range req.Items {
		pid, err := uuid.Parse(item.ProductID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product_id"})
			return
		}
		lines[i] = service.OrderLine{ProductID: pid, Quantity: item.Quantity}
	}

	result, err := h.svc.CreatePOSOrder(r.Context(), service.POSOrderRequest{
		StaffID:        claims.UserID,
		CustomerID:     customerID,
		DiscountAmount: req.DiscountAmount,
		PaymentMethod:  req.PaymentMethod,
		Notes:          req.Notes,
		Items:          lines,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCustomerNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrInsufficientStock):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case isValidationError(err):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: create pos order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	resp := toOrderResponse(result)
	if h.hub != nil {
		h.hub.BroadcastEvent("order.created", resp)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// SearchCustomers handles GET /pos/customers/search?q=keyword.
func (h *POSHandler) SearchCustomers(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("q")
	if keyword == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}

	customers, err := h.store.SearchCustomers(r.Context(), keyword)
	if err != nil {
		log.Printf("ERROR: search customers: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]customerResponse, len(customers))
	for i, c := range customers {
		resp[i] = toCustomerResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateCustomer handles POST /pos/customers: register a walk-in customer at
// the counter so the sale has someone to bill to.
func (h *POSHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Email == "" || req.FullName == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email, full_name and password are required"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("ERROR: hash password: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	phone := pgtype.Text{}
	if req.Phone != "" {
		phone = pgtype.Text{String: req.Phone, Valid: true}
	}

	customer, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Phone:        phone,
		Role:         enum.UserRoleCustomer,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
			return
		}
		log.Printf("ERROR: create customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerResponse(customer))
}

// --- Helpers ---

func toCustomerResponse(u database.User) customerResponse {
	resp := customerResponse{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
	}
	if u.Phone.Valid {
		resp.Phone = &u.Phone.String
	}
	return resp
}
