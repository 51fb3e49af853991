package models

import (
	"time"

	"github.com/uptrace/bun"
)

const TicketStatusValid = "valid"

type IssuedTicket struct {
	bun.BaseModel `bun:"table:issued_tickets"`

	TicketID     string    `bun:"ticket_id,pk" json:"ticketId"`
	OrderID      int64     `bun:"order_id,notnull" json:"orderId"`
	OrderItemID  int64     `bun:"order_item_id,notnull" json:"orderItemId"`
	TicketNumber int64     `bun:"ticket_number,notnull" json:"ticketNumber"`
	QRPayload    string    `bun:"qr_payload,notnull" json:"qrPayload"`
	AttendeeName string    `bun:"attendee_name,nullzero" json:"attendeeName,omitempty"`
	Status       string    `bun:"status,notnull" json:"status"`
	IssuedAt     time.Time `bun:"issued_at,notnull" json:"issuedAt"`
}
