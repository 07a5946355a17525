package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const promoColumns = `id, code, discount_type, discount_value, start_date, end_date, status, used_count, created_at, updated_at`

func scanPromo(row interface{ Scan(...interface{}) error }) (PromoCode, error) {
	var p PromoCode
	err := row.Scan(
		&p.ID,
		&p.Code,
		&p.DiscountType,
		&p.DiscountValue,
		&p.StartDate,
		&p.EndDate,
		&p.Status,
		&p.UsedCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

const getPromoCode = `
SELECT ` + promoColumns + `
FROM promo_codes
WHERE id = $1
`

func (q *Queries) GetPromoCode(ctx context.Context, id uuid.UUID) (PromoCode, error) {
	return scanPromo(q.db.QueryRow(ctx, getPromoCode, id))
}

const getPromoCodeByCode = `
SELECT ` + promoColumns + `
FROM promo_codes
WHERE code = $1
`

func (q *Queries) GetPromoCodeByCode(ctx context.Context, code string) (PromoCode, error) {
	return scanPromo(q.db.QueryRow(ctx, getPromoCodeByCode, code))
}

const listPromoCodes = `
SELECT ` + promoColumns + `
FROM promo_codes
ORDER BY created_at DESC
`

func (q *Queries) ListPromoCodes(ctx context.Context) ([]PromoCode, error) {
	rows, err := q.db.Query(ctx, listPromoCodes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var promos []PromoCode
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, err
		}
		promos = append(promos, p)
	}
	return promos, rows.Err()
}

const createPromoCode = `
INSERT INTO promo_codes (code, discount_type, discount_value, start_date, end_date, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + promoColumns

type CreatePromoCodeParams struct {
	Code          string
	DiscountType  string
	DiscountValue pgtype.Numeric
	StartDate     pgtype.Timestamptz
	EndDate       pgtype.Timestamptz
	Status        string
}

func (q *Queries) CreatePromoCode(ctx context.Context, arg CreatePromoCodeParams) (PromoCode, error) {
	return scanPromo(q.db.QueryRow(ctx, createPromoCode,
		arg.Code,
		arg.DiscountType,
		arg.DiscountValue,
		arg.StartDate,
		arg.EndDate,
		arg.Status,
	))
}

const updatePromoCode = `
UPDATE promo_codes
SET discount_type = $2, discount_value = $3, start_date = $4, end_date = $5, status = $6, updated_at = now()
WHERE id = $1
RETURNING ` + promoColumns

type UpdatePromoCodeParams struct {
	ID            uuid.UUID
	DiscountType  string
	DiscountValue pgtype.Numeric
	StartDate     pgtype.Timestamptz
	EndDate       pgtype.Timestamptz
	Status        string
}

func (q *Queries) UpdatePromoCode(ctx context.Context, arg UpdatePromoCodeParams) (PromoCode, error) {
	return scanPromo(q.db.QueryRow(ctx, updatePromoCode,
		arg.ID,
		arg.DiscountType,
		arg.DiscountValue,
		arg.StartDate,
		arg.EndDate,
		arg.Status,
	))
}

const deletePromoCode = `
DELETE FROM promo_codes WHERE id = $1
`

func (q *Queries) DeletePromoCode(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePromoCode, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const incrementPromoUsage = `
UPDATE promo_codes
SET used_count = used_count + 1, updated_at = now()
WHERE id = $1
`

func (q *Queries) IncrementPromoUsage(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, incrementPromoUsage, id)
	return err
}
