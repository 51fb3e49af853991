package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"fanpit-ticketing/internal/models"
)

type DB struct {
	Bun *bun.DB
}

var ErrNotFound = errors.New("not found")

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

func (d *DB) GetVipTableByID(id int64) (*models.VipTable, error) {
	var table models.VipTable
	err := d.Bun.NewSelect().
		Model(&table).
		Where("id = ?", id).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}

func (d *DB) ListVipTables() ([]models.VipTable, error) {
	var tables []models.VipTable
	err := d.Bun.NewSelect().
		Model(&tables).
		Order("id").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return tables, nil
}

// SumOtherReservations returns the seats already reserved at a table on a
// day by every order except the one being allocated.
func (d *DB) SumOtherReservations(tableID, eventDayID, excludeOrderID int64) (int, error) {
	var total sql.NullInt64
	err := d.Bun.NewSelect().
		ColumnExpr("SUM(d.seats_reserved)").
		TableExpr("vip_table_reservation_days AS d").
		Join("JOIN vip_table_reservations AS r ON r.id = d.reservation_id").
		Where("r.vip_table_id = ?", tableID).
		Where("d.event_day_id = ?", eventDayID).
		Where("r.order_id != ?", excludeOrderID).
		Scan(context.Background(), &total)
	if err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}

// DeleteReservations removes the order's own reservation day rows and
// headers. An allocation call is always a full replacement.
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

func (d *DB) InsertReservation(reservation *models.VipTableReservation) error {
	_, err := d.Bun.NewInsert().
		Model(reservation).
		Exec(context.Background())
	return err
}

func (d *DB) InsertReservationDays(rows []models.VipTableReservationDay) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := d.Bun.NewInsert().Model(&rows).Exec(context.Background())
	return err
}
