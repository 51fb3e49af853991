package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"fanpit-ticketing/internal/models"
)

type DB struct {
	Bun *bun.DB
}

var ErrNotFound = errors.New("not found")

// ---------------- ORDERS ----------------

func (d *DB) CreateOrder(order *models.Order) error {
	_, err := d.Bun.NewInsert().Model(order).Exec(context.Background())
	return err
}

// GetOrderByToken fetches one order by its public token.
func (d *DB) GetOrderByToken(token string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("public_token = ?", token).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ---------------- REFERENCE DATA ----------------

// ListEventDays returns all configured festival days, keyed by nothing:
// callers index by code, never by position.
func (d *DB) ListEventDays() ([]models.EventDay, error) {
	var days []models.EventDay
	err := d.Bun.NewSelect().
		Model(&days).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return days, nil
}

func (d *DB) ListProducts() ([]models.Product, error) {
	var products []models.Product
	err := d.Bun.NewSelect().
		Model(&products).
		Order("id").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return products, nil
}

// ---------------- ORDER ITEMS ----------------

func (d *DB) GetOrderItems(orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := d.Bun.NewSelect().
		Model(&items).
		Where("order_id = ?", orderID).
		Order("id").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (d *DB) GetOrderItemDays(orderID int64) ([]models.OrderItemDay, error) {
	var links []models.OrderItemDay
	err := d.Bun.NewSelect().
		Model(&links).
		Where("order_item_id IN (SELECT id FROM order_items WHERE order_id = ?)", orderID).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return links, nil
}

// DeleteOrderItems removes the order's items and their day links. Items
// are always replaced wholesale, never patched.
func (d *DB) DeleteOrderItems(orderID int64) error {
	ctx := context.Background()
	_, err := d.Bun.NewDelete().
		Model((*models.OrderItemDay)(nil)).
		Where("order_item_id IN (SELECT id FROM order_items WHERE order_id = ?)", orderID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete order item days: %w", err)
	}
	_, err = d.Bun.NewDelete().
		Model((*models.OrderItem)(nil)).
		Where("order_id = ?", orderID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	return nil
}

// DeleteReservations removes the order's VIP reservations and their day
// rows. Any basket change invalidates the prior seat allocation.
func (d *DB) DeleteReservations(orderID int64) error {
	ctx := context.Background()
	_, err := d.Bun.NewDelete().
		Model((*models.VipTableReservationDay)(nil)).
		Where("reservation_id IN (SELECT id FROM vip_table_reservations WHERE order_id = ?)", orderID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete reservation days: %w", err)
	}
	_, err = d.Bun.NewDelete().
		Model((*models.VipTableReservation)(nil)).
		Where("order_id = ?", orderID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete reservations: %w", err)
	}
	return nil
}

// itemColumns lists every order_items column we try to write.
// requiredItemColumns can never be dropped; the rest are dropped one at
// a time when the store reports them missing (deployments differ in
// which optional columns their schema carries).
var itemColumns = []string{
	"order_id", "product_id", "category", "quantity", "unit_price",
	"line_total", "day_set", "duration_days", "product_name",
	"variant_label", "created_at",
}

var requiredItemColumns = map[string]bool{
	"order_id":   true,
	"product_id": true,
	"quantity":   true,
}

const maxInsertAttempts = 6

// InsertOrderItem inserts one item row, retrying with progressively fewer
// optional columns when the schema lacks one. It returns the columns that
// were dropped so the caller can log them, and fails hard if a required
// column cannot be satisfied.
func (d *DB) InsertOrderItem(item *models.OrderItem) ([]string, error) {
	cols := append([]string(nil), itemColumns...)
	var dropped []string

	var lastErr error
	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		_, err := d.Bun.NewInsert().
			Model(item).
			Column(cols...).
			Exec(context.Background())
		if err == nil {
			return dropped, nil
		}
		lastErr = err
		if !IsMissingColumnErr(err) {
			return dropped, err
		}
		missing := missingColumnName(err, cols)
		if missing == "" || requiredItemColumns[missing] {
			return dropped, fmt.Errorf("order item insert cannot satisfy required column: %w", err)
		}
		cols = removeColumn(cols, missing)
		dropped = append(dropped, missing)
	}
	return dropped, fmt.Errorf("order item insert exhausted fallback attempts: %w", lastErr)
}

// InsertOrderItemDays inserts the item/day links. Callers treat failures
// here as non-fatal; some deployments don't provision this table.
func (d *DB) InsertOrderItemDays(links []models.OrderItemDay) error {
	if len(links) == 0 {
		return nil
	}
	_, err := d.Bun.NewInsert().Model(&links).Exec(context.Background())
	return err
}

// totalColumnCandidates are the column combinations tried, in order, when
// writing recomputed order totals. Schema variants name these columns
// differently; the first combination the store accepts wins.
var totalColumnCandidates = [][2]string{
	{"total_amount", "total_items"},
	{"total_amount", ""},
	{"total", ""},
}

// UpdateOrderTotals writes the recomputed total amount and item count,
// stopping at the first candidate column combination the schema accepts.
func (d *DB) UpdateOrderTotals(orderID int64, totalAmount float64, totalItems int) error {
	var lastErr error
	for _, candidate := range totalColumnCandidates {
		q := d.Bun.NewUpdate().
			Table("orders").
			Set(candidate[0]+" = ?", totalAmount).
			Where("id = ?", orderID)
		if candidate[1] != "" {
			q = q.Set(candidate[1]+" = ?", totalItems)
		}
		_, err := q.Exec(context.Background())
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsMissingColumnErr(err) {
			return err
		}
	}
	return fmt.Errorf("no total column variant accepted: %w", lastErr)
}

// UpdateOrderCustomer writes the contact fields captured at checkout.
func (d *DB) UpdateOrderCustomer(order *models.Order) error {
	_, err := d.Bun.NewUpdate().
		Model(order).
		Column("customer_name", "customer_email", "customer_phone", "updated_at").
		Where("id = ?", order.ID).
		Exec(context.Background())
	return err
}

// UpdateOrderStripeSession stores the checkout session id on the order.
func (d *DB) UpdateOrderStripeSession(orderID int64, sessionID string) error {
	_, err := d.Bun.NewUpdate().
		Table("orders").
		Set("stripe_session_id = ?", sessionID).
		Where("id = ?", orderID).
		Exec(context.Background())
	return err
}

// MarkOrderPaid flips the order out of draft once the payment webhook
// confirms the charge.
func (d *DB) MarkOrderPaid(orderID int64, paymentStatus string) error {
	_, err := d.Bun.NewUpdate().
		Table("orders").
		Set("status = ?", models.OrderStatusPaid).
		Set("payment_status = ?", paymentStatus).
		Where("id = ?", orderID).
		Exec(context.Background())
	return err
}

// ---------------- VIP SUMMARY ----------------

// GetVipSummaries assembles the order's reserved tables with their
// per-day seat counts for checkout display.
func (d *DB) GetVipSummaries(orderID int64) ([]models.VipTableSummary, error) {
	ctx := context.Background()

	var reservations []models.VipTableReservation
	err := d.Bun.NewSelect().
		Model(&reservations).
		Where("order_id = ?", orderID).
		Order("id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(reservations) == 0 {
		return []models.VipTableSummary{}, nil
	}

	tableIDs := make([]int64, len(reservations))
	resIDs := make([]int64, len(reservations))
	for i, r := range reservations {
		tableIDs[i] = r.VipTableID
		resIDs[i] = r.ID
	}

	var tables []models.VipTable
	err = d.Bun.NewSelect().
		Model(&tables).
		Where("id IN (?)", bun.In(tableIDs)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	labelByID := make(map[int64]string, len(tables))
	for _, t := range tables {
		labelByID[t.ID] = t.Label
	}

	var dayRows []models.VipTableReservationDay
	err = d.Bun.NewSelect().
		Model(&dayRows).
		Where("reservation_id IN (?)", bun.In(resIDs)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	days, err := d.ListEventDays()
	if err != nil {
		return nil, err
	}
	codeByDayID := make(map[int64]string, len(days))
	for _, day := range days {
		codeByDayID[day.ID] = day.Code
	}

	summaries := make([]models.VipTableSummary, len(reservations))
	byResID := make(map[int64]*models.VipTableSummary, len(reservations))
	for i, r := range reservations {
		summaries[i] = models.VipTableSummary{
			TableID:    r.VipTableID,
			TableLabel: labelByID[r.VipTableID],
			Seats:      r.Seats,
			SeatsByDay: map[string]int{},
		}
		byResID[r.ID] = &summaries[i]
	}
	for _, row := range dayRows {
		if summary, ok := byResID[row.ReservationID]; ok {
			summary.SeatsByDay[codeByDayID[row.EventDayID]] = row.SeatsReserved
		}
	}

	return summaries, nil
}

// ---------------- SCHEMA DRIFT HELPERS ----------------

// IsMissingColumnErr recognizes the store's missing-column failure
// signatures (postgres 42703 wording and sqlite's two variants).
func IsMissingColumnErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return (strings.Contains(msg, "column") && strings.Contains(msg, "does not exist")) ||
		strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "has no column named")
}

// missingColumnName finds which of the attempted columns the error names.
func missingColumnName(err error, cols []string) string {
	msg := err.Error()
	for _, c := range cols {
		if strings.Contains(msg, c) {
			return c
		}
	}
	return ""
}

func removeColumn(cols []string, name string) []string {
	out := cols[:0]
	for _, c := range cols {
		if c != name {
			out = append(out, c)
		}
	}
	return out
}
