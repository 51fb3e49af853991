package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

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

func (d *DB) GetTicketsByOrder(orderID int64) ([]models.IssuedTicket, error) {
	var tickets []models.IssuedTicket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("order_id = ?", orderID).
		Order("ticket_number").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (d *DB) GetTicketByID(ticketID string) (*models.IssuedTicket, error) {
	var ticket models.IssuedTicket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("ticket_id = ?", ticketID).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// MaxTicketNumber returns the highest ticket number issued across the
// whole system, 0 when none exist. Numbers are never reused.
func (d *DB) MaxTicketNumber() (int64, error) {
	var max sql.NullInt64
	err := d.Bun.NewSelect().
		ColumnExpr("MAX(ticket_number)").
		Model((*models.IssuedTicket)(nil)).
		Scan(context.Background(), &max)
	if err != nil {
		return 0, err
	}
	return max.Int64, nil
}

// InsertTickets writes one batch of ticket rows.
func (d *DB) InsertTickets(tickets []models.IssuedTicket) error {
	if len(tickets) == 0 {
		return nil
	}
	_, err := d.Bun.NewInsert().Model(&tickets).Exec(context.Background())
	return err
}

// ClaimTicketsEmail stamps tickets_email_sent_at if and only if it is
// still null. The affected-row count decides which caller won the claim;
// a won claim is never rolled back even if the send then fails.
func (d *DB) ClaimTicketsEmail(orderID int64) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Table("orders").
		Set("tickets_email_sent_at = ?", time.Now()).
		Where("id = ?", orderID).
		Where("tickets_email_sent_at IS NULL").
		Exec(context.Background())
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
