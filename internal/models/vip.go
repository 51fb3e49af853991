package models

import (
	"time"

	"github.com/uptrace/bun"
)

// DefaultTableCapacity is used when a vip_tables row has no explicit
// capacity value.
const DefaultTableCapacity = 6

type VipTable struct {
	bun.BaseModel `bun:"table:vip_tables"`

	ID          int64  `bun:"id,pk,autoincrement" json:"id"`
	Label       string `bun:"label,nullzero" json:"label"`
	TableNumber int    `bun:"table_number,nullzero" json:"tableNumber"`
	Capacity    int    `bun:"capacity,nullzero" json:"capacity"`
}

// EffectiveCapacity returns the table capacity, falling back to the
// default when the column is null or zero.
func (t *VipTable) EffectiveCapacity() int {
	if t.Capacity > 0 {
		return t.Capacity
	}
	return DefaultTableCapacity
}

// VipTableReservation is the header row for one order's seats at one
// table. OrderItemID points at the order's primary VIP item; the schema
// wants a non-null item reference even though a reservation spans every
// VIP item on the order. Seats is the maximum per-day seat count at
// this table, not the sum across days.
type VipTableReservation struct {
	bun.BaseModel `bun:"table:vip_table_reservations"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	OrderID     int64     `bun:"order_id,notnull" json:"orderId"`
	VipTableID  int64     `bun:"vip_table_id,notnull" json:"vipTableId"`
	OrderItemID int64     `bun:"order_item_id,notnull" json:"orderItemId"`
	Seats       int       `bun:"seats,notnull" json:"seats"`
	CreatedAt   time.Time `bun:"created_at,nullzero" json:"createdAt,omitempty"`
}

// VipTableSummary is the read shape for checkout display: one entry per
// reserved table with the per-day seat breakdown.
type VipTableSummary struct {
	TableID    int64          `json:"tableId"`
	TableLabel string         `json:"tableLabel"`
	Seats      int            `json:"seats"`
	SeatsByDay map[string]int `json:"seatsByDay"`
}

type VipTableReservationDay struct {
	bun.BaseModel `bun:"table:vip_table_reservation_days"`

	ID            int64 `bun:"id,pk,autoincrement" json:"id"`
	ReservationID int64 `bun:"reservation_id,notnull" json:"reservationId"`
	EventDayID    int64 `bun:"event_day_id,notnull" json:"eventDayId"`
	SeatsReserved int   `bun:"seats_reserved,notnull" json:"seatsReserved"`
}
