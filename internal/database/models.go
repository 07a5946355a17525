package database

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Phone        pgtype.Text
	Role         string
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

type Product struct {
	ID            uuid.UUID
	Title         string
	Author        string
	Description   pgtype.Text
	Price         pgtype.Numeric
	OfferPrice    pgtype.Numeric
	StockQuantity int32
	Status        string
	CreatedAt     pgtype.Timestamptz
	UpdatedAt     pgtype.Timestamptz
}

type PromoCode struct {
	ID            uuid.UUID
	Code          string
	DiscountType  string
	DiscountValue pgtype.Numeric
	StartDate     pgtype.Timestamptz
	EndDate       pgtype.Timestamptz
	Status        string
	UsedCount     int32
	CreatedAt     pgtype.Timestamptz
	UpdatedAt     pgtype.Timestamptz
}

type Order struct {
	ID              uuid.UUID
	OrderNumber     string
	UserID          pgtype.UUID
	CustomerName    string
	CustomerEmail   string
	ShippingAddress pgtype.Text
	PaymentMethod   pgtype.Text
	Notes           pgtype.Text
	Status          string
	TotalAmount     pgtype.Numeric
	DiscountAmount  pgtype.Numeric
	FinalAmount     pgtype.Numeric
	PromoCode       pgtype.Text
	CreatedBy       pgtype.UUID
	CreatedAt       pgtype.Timestamptz
	UpdatedAt       pgtype.Timestamptz
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	ProductID  uuid.UUID
	Quantity   int32
	UnitPrice  pgtype.Numeric
	TotalPrice pgtype.Numeric
	CreatedAt  pgtype.Timestamptz
}
