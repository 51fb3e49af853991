package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	OrderStatusDraft     = "draft"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
	OrderStatusExpired   = "expired"
)

const (
	CategoryGeneral = "general"
	CategoryVIP     = "vip"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID                 int64      `bun:"id,pk,autoincrement" json:"id"`
	PublicToken        string     `bun:"public_token,notnull,unique" json:"publicToken"`
	Status             string     `bun:"status,notnull" json:"status"`
	PaymentStatus      string     `bun:"payment_status,nullzero" json:"paymentStatus,omitempty"`
	Currency           string     `bun:"currency,notnull" json:"currency"`
	TotalAmount        float64    `bun:"total_amount" json:"totalAmount"`
	TotalItems         int        `bun:"total_items" json:"totalItems"`
	CustomerName       string     `bun:"customer_name,nullzero" json:"customerName,omitempty"`
	CustomerEmail      string     `bun:"customer_email,nullzero" json:"customerEmail,omitempty"`
	CustomerPhone      string     `bun:"customer_phone,nullzero" json:"customerPhone,omitempty"`
	StripeSessionID    string     `bun:"stripe_session_id,nullzero" json:"-"`
	TicketsEmailSentAt *time.Time `bun:"tickets_email_sent_at,nullzero" json:"-"`
	CreatedAt          time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt          time.Time  `bun:"updated_at,nullzero" json:"updatedAt,omitempty"`
}

// IsDraft reports whether item and allocation mutations are still allowed.
func (o *Order) IsDraft() bool {
	return o.Status == OrderStatusDraft
}

type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	OrderID      int64     `bun:"order_id,notnull" json:"orderId"`
	ProductID    int64     `bun:"product_id,notnull" json:"productId"`
	Category     string    `bun:"category,nullzero" json:"category"`
	Quantity     int       `bun:"quantity,notnull" json:"quantity"`
	UnitPrice    float64   `bun:"unit_price,nullzero" json:"unitPrice"`
	LineTotal    float64   `bun:"line_total,nullzero" json:"lineTotal"`
	DaySet       string    `bun:"day_set,nullzero" json:"daySet"`
	DurationDays int       `bun:"duration_days,nullzero" json:"durationDays"`
	ProductName  string    `bun:"product_name,nullzero" json:"productName"`
	VariantLabel string    `bun:"variant_label,nullzero" json:"variantLabel,omitempty"`
	CreatedAt    time.Time `bun:"created_at,nullzero" json:"createdAt,omitempty"`
}

type OrderItemDay struct {
	bun.BaseModel `bun:"table:order_item_days"`

	ID          int64 `bun:"id,pk,autoincrement" json:"id"`
	OrderItemID int64 `bun:"order_item_id,notnull" json:"orderItemId"`
	EventDayID  int64 `bun:"event_day_id,notnull" json:"eventDayId"`
}
