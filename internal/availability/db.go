package availability

import (
	"context"

	"github.com/uptrace/bun"

	"fanpit-ticketing/internal/models"
)

type DB struct {
	Bun *bun.DB
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

type soldByDayRow struct {
	EventDayID int64 `bun:"event_day_id"`
	Sold       int   `bun:"sold"`
}

// SoldByDayViaLinks aggregates paid general-admission quantities through
// the explicit item/day link rows.
func (d *DB) SoldByDayViaLinks() (map[int64]int, error) {
	var rows []soldByDayRow
	err := d.Bun.NewSelect().
		ColumnExpr("l.event_day_id AS event_day_id").
		ColumnExpr("SUM(i.quantity) AS sold").
		TableExpr("order_item_days AS l").
		Join("JOIN order_items AS i ON i.id = l.order_item_id").
		Join("JOIN orders AS o ON o.id = i.order_id").
		Where("o.status = ?", models.OrderStatusPaid).
		Where("i.category = ?", models.CategoryGeneral).
		GroupExpr("l.event_day_id").
		Scan(context.Background(), &rows)
	if err != nil {
		return nil, err
	}
	sold := make(map[int64]int, len(rows))
	for _, row := range rows {
		sold[row.EventDayID] = row.Sold
	}
	return sold, nil
}

// ItemsWithoutDayLinks returns paid general items that have no link rows,
// so their day-set strings can be parsed as a fallback source.
func (d *DB) ItemsWithoutDayLinks() ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := d.Bun.NewSelect().
		Model(&items).
		Join("JOIN orders AS o ON o.id = order_item.order_id").
		Where("o.status = ?", models.OrderStatusPaid).
		Where("order_item.category = ?", models.CategoryGeneral).
		Where("NOT EXISTS (SELECT 1 FROM order_item_days l WHERE l.order_item_id = order_item.id)").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return items, nil
}
