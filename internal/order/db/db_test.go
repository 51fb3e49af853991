package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"fanpit-ticketing/internal/models"
	"fanpit-ticketing/internal/order/db"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	return &db.DB{Bun: bunDB}, bunDB
}

func createAllTables(t *testing.T, bunDB *bun.DB) {
	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Order)(nil),
		(*models.OrderItem)(nil),
		(*models.OrderItemDay)(nil),
		(*models.EventDay)(nil),
		(*models.Product)(nil),
		(*models.VipTable)(nil),
		(*models.VipTableReservation)(nil),
		(*models.VipTableReservationDay)(nil),
	} {
		_, err := bunDB.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}
}

func insertTestOrder(t *testing.T, bunDB *bun.DB) *models.Order {
	order := &models.Order{
		PublicToken: uuid.NewString(),
		Status:      models.OrderStatusDraft,
		Currency:    "RON",
		CreatedAt:   time.Now(),
	}
	_, err := bunDB.NewInsert().Model(order).Exec(context.Background())
	require.NoError(t, err)
	return order
}

func TestGetOrderByToken(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	createAllTables(t, bunDB)

	created := insertTestOrder(t, bunDB)

	got, err := orderDB.GetOrderByToken(created.PublicToken)
	assert.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, models.OrderStatusDraft, got.Status)

	_, err = orderDB.GetOrderByToken(uuid.NewString())
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestInsertOrderItemFullSchema(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	createAllTables(t, bunDB)
	order := insertTestOrder(t, bunDB)

	item := &models.OrderItem{
		OrderID:     order.ID,
		ProductID:   1,
		Category:    models.CategoryGeneral,
		Quantity:    2,
		UnitPrice:   199,
		LineTotal:   398,
		DaySet:      "fri",
		ProductName: "Abonament General 1 Zi",
		CreatedAt:   time.Now(),
	}
	dropped, err := orderDB.InsertOrderItem(item)
	assert.NoError(t, err)
	assert.Empty(t, dropped)
	assert.NotZero(t, item.ID)
}

func TestInsertOrderItemDriftFallback(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	// A deployment whose order_items table never got the category and
	// day_set columns.
	_, err := bunDB.Exec(`CREATE TABLE order_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price REAL,
		line_total REAL,
		duration_days INTEGER,
		product_name TEXT,
		variant_label TEXT,
		created_at TIMESTAMP
	)`)
	require.NoError(t, err)

	item := &models.OrderItem{
		OrderID:     1,
		ProductID:   1,
		Category:    models.CategoryVIP,
		Quantity:    3,
		UnitPrice:   1299,
		LineTotal:   3897,
		DaySet:      "fri,sun,mon",
		ProductName: "Abonament VIP 3 Zile",
		CreatedAt:   time.Now(),
	}
	dropped, err := orderDB.InsertOrderItem(item)
	assert.NoError(t, err)
	assert.Equal(t, []string{"category", "day_set"}, dropped)
	assert.NotZero(t, item.ID)

	// The surviving columns still round-trip.
	var got models.OrderItem
	err = bunDB.NewSelect().Model(&got).
		Column("id", "order_id", "quantity", "unit_price", "line_total", "product_name").
		Where("id = ?", item.ID).
		Scan(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, 1299.0, got.UnitPrice)
}

func TestInsertOrderItemRequiredColumnFailsHard(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	// No product_id column: the product foreign key is not optional.
	_, err := bunDB.Exec(`CREATE TABLE order_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL
	)`)
	require.NoError(t, err)

	item := &models.OrderItem{OrderID: 1, ProductID: 1, Quantity: 1}
	_, err = orderDB.InsertOrderItem(item)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "required column")
}

func TestUpdateOrderTotalsColumnFallback(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	// Schema variant: total_amount exists but total_items does not.
	_, err := bunDB.Exec(`CREATE TABLE orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		public_token TEXT NOT NULL,
		status TEXT NOT NULL,
		currency TEXT NOT NULL,
		total_amount REAL
	)`)
	require.NoError(t, err)
	_, err = bunDB.Exec(`INSERT INTO orders (public_token, status, currency) VALUES (?, ?, ?)`,
		uuid.NewString(), models.OrderStatusDraft, "RON")
	require.NoError(t, err)

	err = orderDB.UpdateOrderTotals(1, 398, 2)
	assert.NoError(t, err)

	var total float64
	err = bunDB.QueryRow(`SELECT total_amount FROM orders WHERE id = 1`).Scan(&total)
	assert.NoError(t, err)
	assert.Equal(t, 398.0, total)
}

func TestUpdateOrderTotalsLegacyTotalColumn(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	_, err := bunDB.Exec(`CREATE TABLE orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		public_token TEXT NOT NULL,
		status TEXT NOT NULL,
		total REAL
	)`)
	require.NoError(t, err)
	_, err = bunDB.Exec(`INSERT INTO orders (public_token, status) VALUES (?, ?)`,
		uuid.NewString(), models.OrderStatusDraft)
	require.NoError(t, err)

	err = orderDB.UpdateOrderTotals(1, 599, 1)
	assert.NoError(t, err)

	var total float64
	err = bunDB.QueryRow(`SELECT total FROM orders WHERE id = 1`).Scan(&total)
	assert.NoError(t, err)
	assert.Equal(t, 599.0, total)
}

func TestDeleteOrderItemsCascadesDayLinks(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	createAllTables(t, bunDB)
	order := insertTestOrder(t, bunDB)

	ctx := context.Background()
	item := &models.OrderItem{OrderID: order.ID, ProductID: 1, Quantity: 1, CreatedAt: time.Now()}
	_, err := bunDB.NewInsert().Model(item).Exec(ctx)
	require.NoError(t, err)
	link := &models.OrderItemDay{OrderItemID: item.ID, EventDayID: 1}
	_, err = bunDB.NewInsert().Model(link).Exec(ctx)
	require.NoError(t, err)

	err = orderDB.DeleteOrderItems(order.ID)
	assert.NoError(t, err)

	itemCount, err := bunDB.NewSelect().Model((*models.OrderItem)(nil)).Count(ctx)
	assert.NoError(t, err)
	assert.Zero(t, itemCount)
	linkCount, err := bunDB.NewSelect().Model((*models.OrderItemDay)(nil)).Count(ctx)
	assert.NoError(t, err)
	assert.Zero(t, linkCount)
}

func TestDeleteReservationsRemovesHeadersAndDays(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	createAllTables(t, bunDB)
	order := insertTestOrder(t, bunDB)

	ctx := context.Background()
	res := &models.VipTableReservation{OrderID: order.ID, VipTableID: 1, OrderItemID: 1, Seats: 3}
	_, err := bunDB.NewInsert().Model(res).Exec(ctx)
	require.NoError(t, err)
	day := &models.VipTableReservationDay{ReservationID: res.ID, EventDayID: 1, SeatsReserved: 3}
	_, err = bunDB.NewInsert().Model(day).Exec(ctx)
	require.NoError(t, err)

	err = orderDB.DeleteReservations(order.ID)
	assert.NoError(t, err)

	resCount, err := bunDB.NewSelect().Model((*models.VipTableReservation)(nil)).Count(ctx)
	assert.NoError(t, err)
	assert.Zero(t, resCount)
	dayCount, err := bunDB.NewSelect().Model((*models.VipTableReservationDay)(nil)).Count(ctx)
	assert.NoError(t, err)
	assert.Zero(t, dayCount)
}

func TestGetVipSummaries(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	createAllTables(t, bunDB)
	order := insertTestOrder(t, bunDB)

	ctx := context.Background()
	fri := &models.EventDay{Code: "fri", Label: "Vineri"}
	sun := &models.EventDay{Code: "sun", Label: "Duminica"}
	for _, d := range []*models.EventDay{fri, sun} {
		_, err := bunDB.NewInsert().Model(d).Exec(ctx)
		require.NoError(t, err)
	}
	table := &models.VipTable{Label: "Masa 5", TableNumber: 5, Capacity: 6}
	_, err := bunDB.NewInsert().Model(table).Exec(ctx)
	require.NoError(t, err)

	res := &models.VipTableReservation{OrderID: order.ID, VipTableID: table.ID, OrderItemID: 1, Seats: 3}
	_, err = bunDB.NewInsert().Model(res).Exec(ctx)
	require.NoError(t, err)
	dayRows := []models.VipTableReservationDay{
		{ReservationID: res.ID, EventDayID: fri.ID, SeatsReserved: 3},
		{ReservationID: res.ID, EventDayID: sun.ID, SeatsReserved: 2},
	}
	_, err = bunDB.NewInsert().Model(&dayRows).Exec(ctx)
	require.NoError(t, err)

	summaries, err := orderDB.GetVipSummaries(order.ID)
	assert.NoError(t, err)
	assert.Len(t, summaries, 1)
	assert.Equal(t, "Masa 5", summaries[0].TableLabel)
	assert.Equal(t, 3, summaries[0].Seats)
	assert.Equal(t, map[string]int{"fri": 3, "sun": 2}, summaries[0].SeatsByDay)
}

func TestGetVipSummariesEmpty(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	createAllTables(t, bunDB)
	order := insertTestOrder(t, bunDB)

	summaries, err := orderDB.GetVipSummaries(order.ID)
	assert.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestIsMissingColumnErr(t *testing.T) {
	assert.True(t, db.IsMissingColumnErr(errSQL(`column "variant_label" of relation "order_items" does not exist`)))
	assert.True(t, db.IsMissingColumnErr(errSQL(`table order_items has no column named day_set`)))
	assert.True(t, db.IsMissingColumnErr(errSQL(`no such column: total_items`)))
	assert.False(t, db.IsMissingColumnErr(errSQL(`duplicate key value violates unique constraint`)))
	assert.False(t, db.IsMissingColumnErr(nil))
}

type errSQL string

func (e errSQL) Error() string { return string(e) }
