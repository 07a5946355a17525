package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
	OrderStatusCompleted = "completed"
)

const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

const (
	PromoStatusActive   = "active"
	PromoStatusInactive = "inactive"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleAdmin    = "ADMIN"
	UserRoleStaff    = "STAFF"
	UserRoleCustomer = "CUSTOMER"
)

const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodTransfer = "TRANSFER"
)
