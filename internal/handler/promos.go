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
	"github.com/bookbarn/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// PromoStore defines the database methods needed by promo admin handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type PromoStore interface {
	ListPromoCodes(ctx context.Context) ([]database.PromoCode, error)
	CreatePromoCode(ctx context.Context, arg database.CreatePromoCodeParams) (database.PromoCode, error)
	UpdatePromoCode(ctx context.Context, arg database.UpdatePromoCodeParams) (database.PromoCode, error)
	DeletePromoCode(ctx context.Context, id uuid.UUID) (int64, error)
}

// PromoHandler handles promo code endpoints.
type PromoHandler struct {
	svc   PromoServicer
	store PromoStore
}

func NewPromoHandler(svc PromoServicer, store PromoStore) *PromoHandler {
	return &PromoHandler{svc: svc, store: store}
}

// RegisterRoutes registers the customer-facing validation endpoint.
func (h *PromoHandler) RegisterRoutes(r chi.Router) {
	r.Get("/promos/validate", h.Validate)
}

// RegisterAdminRoutes registers the promo CRUD endpoints.
// Expected to be mounted inside the admin group.
func (h *PromoHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/promos", h.List)
	r.Post("/promos", h.Create)
	r.Put("/promos/{id}", h.Update)
	r.Delete("/promos/{id}", h.Delete)
}

// --- Request / Response types ---

type promoRequest struct {
	Code          string `json:"code"`
	DiscountType  string `json:"discount_type"`
	DiscountValue string `json:"discount_value"`
	StartDate     string `json:"start_date"` // RFC3339
	EndDate       string `json:"end_date"`   // RFC3339
	Status        string `json:"status"`
}

type promoResponse struct {
	ID            uuid.UUID `json:"id"`
	Code          string    `json:"code"`
	DiscountType  string    `json:"discount_type"`
	DiscountValue string    `json:"discount_value"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	Status        string    `json:"status"`
	UsedCount     int32     `json:"used_count"`
}

type validatePromoResponse struct {
	Valid         bool   `json:"valid"`
	Code          string `json:"code"`
	DiscountType  string `json:"discount_type,omitempty"`
	DiscountValue string `json:"discount_value,omitempty"`
}

// --- Handlers ---

// Validate handles GET /promos/validate?code=CODE.
func (h *PromoHandler) Validate(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "code is required"})
		return
	}

	promo, err := h.svc.Validate(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPromoNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case isPromoError(err):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: validate promo: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, validatePromoResponse{
		Valid:         true,
		Code:          promo.Code,
		DiscountType:  promo.DiscountType,
		DiscountValue: numericToString(promo.DiscountValue),
	})
}

// List handles GET /promos.
func (h *PromoHandler) List(w http.ResponseWriter, r *http.Request) {
	promos, err := h.store.ListPromoCodes(r.Context())
	if err != nil {
		log.Printf("ERROR: list promo codes: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]promoResponse, len(promos))
	for i, p := range promos {
		resp[i] = toPromoResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /promos.
func (h *PromoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "code is required"})
		return
	}
	fields, errMsg := parsePromoFields(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	promo, err := h.store.CreatePromoCode(r.Context(), database.CreatePromoCodeParams{
		Code:          req.Code,
		DiscountType:  req.DiscountType,
		DiscountValue: fields.value,
		StartDate:     fields.start,
		EndDate:       fields.end,
		Status:        fields.status,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "promo code already exists"})
			return
		}
		log.Printf("ERROR: create promo code: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toPromoResponse(promo))
}

// Update handles PUT /promos/{id}.
func (h *PromoHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid promo ID"})
		return
	}

	var req promoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	fields, errMsg := parsePromoFields(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	promo, err := h.store.UpdatePromoCode(r.Context(), database.UpdatePromoCodeParams{
		ID:            id,
		DiscountType:  req.DiscountType,
		DiscountValue: fields.value,
		StartDate:     fields.start,
		EndDate:       fields.end,
		Status:        fields.status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "promo code not found"})
			return
		}
		log.Printf("ERROR: update promo code: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toPromoResponse(promo))
}

// Delete handles DELETE /promos/{id}.
func (h *PromoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid promo ID"})
		return
	}

	affected, err := h.store.DeletePromoCode(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: delete promo code: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if affected == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "promo code not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

type promoFields struct {
	value  pgtype.Numeric
	start  pgtype.Timestamptz
	end    pgtype.Timestamptz
	status string
}

func parsePromoFields(req promoRequest) (promoFields, string) {
	var f promoFields

	if req.DiscountType != enum.DiscountTypePercentage && req.DiscountType != enum.DiscountTypeFixed {
		return f, "discount_type must be percentage or fixed"
	}
	dv, err := decimal.NewFromString(req.DiscountValue)
	if err != nil || dv.IsNegative() {
		return f, "invalid discount_value"
	}
	if req.DiscountType == enum.DiscountTypePercentage && dv.GreaterThan(decimal.NewFromInt(100)) {
		return f, "percentage discount_value cannot exceed 100"
	}
	_ = f.value.Scan(dv.StringFixed(2))

	start, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		return f, "invalid start_date, use RFC3339"
	}
	end, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil {
		return f, "invalid end_date, use RFC3339"
	}
	if end.Before(start) {
		return f, "end_date must be after start_date"
	}
	f.start = pgtype.Timestamptz{Time: start, Valid: true}
	f.end = pgtype.Timestamptz{Time: end, Valid: true}

	f.status = req.Status
	if f.status == "" {
		f.status = enum.PromoStatusActive
	}
	if f.status != enum.PromoStatusActive && f.status != enum.PromoStatusInactive {
		return f, "status must be active or inactive"
	}
	return f, ""
}

func toPromoResponse(p database.PromoCode) promoResponse {
	return promoResponse{
		ID:            p.ID,
		Code:          p.Code,
		DiscountType:  p.DiscountType,
		DiscountValue: numericToString(p.DiscountValue),
		StartDate:     p.StartDate.Time,
		EndDate:       p.EndDate.Time,
		Status:        p.Status,
		UsedCount:     p.UsedCount,
	}
}
