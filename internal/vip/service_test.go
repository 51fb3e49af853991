package vip_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fanpit-ticketing/internal/logger"
	"fanpit-ticketing/internal/models"
	"fanpit-ticketing/internal/utils"
	"fanpit-ticketing/internal/vip"
	"fanpit-ticketing/internal/vip/db"
)

// Mock implementations for testing

type mockVipDB struct {
	order        *models.Order
	items        []models.OrderItem
	days         []models.EventDay
	tables       []models.VipTable
	occupied     map[[2]int64]int // (tableID, dayID) seats held by other orders
	reservations []models.VipTableReservation
	dayRows      []models.VipTableReservationDay
	deletedFor   []int64
	nextResID    int64
	shouldFailOn string
	errorMsg     string
}

func newMockVipDB() *mockVipDB {
	return &mockVipDB{
		order: &models.Order{ID: 1, PublicToken: "tok", Status: models.OrderStatusDraft},
		days: []models.EventDay{
			{ID: 1, Code: "fri"},
			{ID: 2, Code: "sat"},
			{ID: 3, Code: "sun"},
			{ID: 4, Code: "mon"},
		},
		tables: []models.VipTable{
			{ID: 5, Label: "Masa 5", TableNumber: 5, Capacity: 6},
			{ID: 6, Label: "Masa 6", TableNumber: 6, Capacity: 6},
		},
		occupied: make(map[[2]int64]int),
	}
}

func (m *mockVipDB) GetOrderByToken(token string) (*models.Order, error) {
	if m.shouldFailOn == "GetOrderByToken" {
		return nil, errors.New(m.errorMsg)
	}
	if m.order == nil || m.order.PublicToken != token {
		return nil, db.ErrNotFound
	}
	copied := *m.order
	return &copied, nil
}

func (m *mockVipDB) GetOrderItems(orderID int64) ([]models.OrderItem, error) {
	if m.shouldFailOn == "GetOrderItems" {
		return nil, errors.New(m.errorMsg)
	}
	return m.items, nil
}

func (m *mockVipDB) ListEventDays() ([]models.EventDay, error) {
	if m.shouldFailOn == "ListEventDays" {
		return nil, errors.New(m.errorMsg)
	}
	return m.days, nil
}

func (m *mockVipDB) GetVipTableByID(id int64) (*models.VipTable, error) {
	if m.shouldFailOn == "GetVipTableByID" {
		return nil, errors.New(m.errorMsg)
	}
	for i := range m.tables {
		if m.tables[i].ID == id {
			return &m.tables[i], nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockVipDB) ListVipTables() ([]models.VipTable, error) {
	if m.shouldFailOn == "ListVipTables" {
		return nil, errors.New(m.errorMsg)
	}
	return m.tables, nil
}

func (m *mockVipDB) SumOtherReservations(tableID, eventDayID, excludeOrderID int64) (int, error) {
	if m.shouldFailOn == "SumOtherReservations" {
		return 0, errors.New(m.errorMsg)
	}
	return m.occupied[[2]int64{tableID, eventDayID}], nil
}

func (m *mockVipDB) DeleteReservations(orderID int64) error {
	if m.shouldFailOn == "DeleteReservations" {
		return errors.New(m.errorMsg)
	}
	m.deletedFor = append(m.deletedFor, orderID)
	m.reservations = nil
	m.dayRows = nil
	return nil
}

func (m *mockVipDB) InsertReservation(reservation *models.VipTableReservation) error {
	if m.shouldFailOn == "InsertReservation" {
		return errors.New(m.errorMsg)
	}
	m.nextResID++
	reservation.ID = m.nextResID
	m.reservations = append(m.reservations, *reservation)
	return nil
}

func (m *mockVipDB) InsertReservationDays(rows []models.VipTableReservationDay) error {
	if m.shouldFailOn == "InsertReservationDays" {
		return errors.New(m.errorMsg)
	}
	m.dayRows = append(m.dayRows, rows...)
	return nil
}

type mockVipPublisher struct {
	events []string
}

func (m *mockVipPublisher) PublishOrderEvent(eventType string, order models.Order) error {
	m.events = append(m.events, eventType)
	return nil
}

func newAllocService() (*vip.AllocationService, *mockVipDB, *mockVipPublisher) {
	mockDB := newMockVipDB()
	events := &mockVipPublisher{}
	return vip.NewAllocationService(mockDB, events, logger.NewLogger()), mockDB, events
}

func vipItem(id int64, qty int, daySet string) models.OrderItem {
	return models.OrderItem{
		ID:       id,
		OrderID:  1,
		Category: models.CategoryVIP,
		Quantity: qty,
		DaySet:   daySet,
	}
}

func TestAllocateExactMatch(t *testing.T) {
	svc, mockDB, events := newAllocService()
	// 3 VIP passes covering Friday, Sunday and Monday.
	mockDB.items = []models.OrderItem{vipItem(10, 3, "fri,sun,mon")}

	summary, err := svc.Allocate("tok", []vip.AllocationRequest{
		{TableLabel: "Masa 5", DayCodes: []string{"fri", "sun", "mon"}, Seats: 3},
	})
	require.NoError(t, err)

	assert.True(t, summary.Complete)
	assert.Equal(t, map[string]int{"fri": 3, "sun": 3, "mon": 3}, summary.RequiredByDay)
	assert.Equal(t, summary.RequiredByDay, summary.AllocatedByDay)
	assert.Equal(t, 1, summary.TablesSaved)
	assert.Equal(t, 3, summary.DaysSaved)

	require.Len(t, mockDB.reservations, 1)
	res := mockDB.reservations[0]
	assert.Equal(t, int64(5), res.VipTableID)
	assert.Equal(t, int64(10), res.OrderItemID)
	assert.Equal(t, 3, res.Seats)
	require.Len(t, mockDB.dayRows, 3)
	for _, row := range mockDB.dayRows {
		assert.Equal(t, res.ID, row.ReservationID)
		assert.Equal(t, 3, row.SeatsReserved)
	}

	assert.Equal(t, []int64{1}, mockDB.deletedFor, "prior allocation must be wiped first")
	assert.Contains(t, events.events, "order.vip_allocated")
}

func TestAllocateSplitAcrossTables(t *testing.T) {
	svc, mockDB, _ := newAllocService()
	mockDB.items = []models.OrderItem{vipItem(10, 8, "sat")}

	summary, err := svc.Allocate("tok", []vip.AllocationRequest{
		{TableID: 5, DayCodes: []string{"sat"}, Seats: 6},
		{TableID: 6, DayCodes: []string{"sat"}, Seats: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TablesSaved)
	assert.Equal(t, map[string]int{"sat": 8}, summary.AllocatedByDay)
}

func TestAllocateSeatCountMismatch(t *testing.T) {
	svc, mockDB, _ := newAllocService()
	mockDB.items = []models.OrderItem{vipItem(10, 3, "fri,sun,mon")}

	_, err := svc.Allocate("tok", []vip.AllocationRequest{
		{TableID: 5, DayCodes: []string{"fri", "sun", "mon"}, Seats: 2},
	})
	require.Error(t, err)
	apiErr := utils.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, 400, apiErr.Status)
	assert.Empty(t, mockDB.deletedFor, "a rejected allocation must leave the prior one in place")
}

func TestAllocateDayMismatch(t *testing.T) {
	svc, mockDB, _ := newAllocService()
	mockDB.items = []models.OrderItem{vipItem(10, 3, "fri,sun,mon")}

	// Right aggregate total, wrong day coverage: Saturday is not part of
	// this order.
	_, err := svc.Allocate("tok", []vip.AllocationRequest{
		{TableID: 5, DayCodes: []string{"fri", "sat", "mon"}, Seats: 3},
	})
	require.Error(t, err)
	apiErr := utils.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, 400, apiErr.Status)
	detail, ok := apiErr.Detail.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "sat", detail["day"])
}

func TestAllocateCapacityBreach(t *testing.T) {
	svc, mockDB, _ := newAllocService()
	mockDB.items = []models.OrderItem{vipItem(10, 4, "fri")}
	// Another order already holds 4 of the 6 seats on Friday.
	mockDB.occupied[[2]int64{5, 1}] = 4

	_, err := svc.Allocate("tok", []vip.AllocationRequest{
		{TableID: 5, DayCodes: []string{"fri"}, Seats: 4},
	})
	require.Error(t, err)
	apiErr := utils.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, 409, apiErr.Status)
	detail, ok := apiErr.Detail.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 2, detail["available"])
	assert.Equal(t, 4, detail["requested"])
	assert.Empty(t, mockDB.deletedFor)
}

func TestAllocateCapacityExactFit(t *testing.T) {
	svc, mockDB, _ := newAllocService()
	mockDB.items = []models.OrderItem{vipItem(10, 2, "fri")}
	mockDB.occupied[[2]int64{5, 1}] = 4

	_, err := svc.Allocate("tok", []vip.AllocationRequest{
		{TableID: 5, DayCodes: []string{"fri"}, Seats: 2},
	})
	assert.NoError(t, err, "filling a table to exactly its capacity is allowed")
}

func TestAllocateDefaultCapacity(t *testing.T) {
	svc, mockDB, _ := newAllocService()
	// Table row without an explicit capacity value.
	mockDB.tables = []models.VipTable{{ID: 7, Label: "Masa 7", TableNumber: 7}}
	mockDB.items = []models.OrderItem{vipItem(10, 7, "fri")}

	_, err := svc.Allocate("tok", []vip.AllocationRequest{
		{TableID: 7, DayCodes: []string{"fri"}, Seats: 7},
	})
	require.Error(t, err)
	apiErr := utils.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, 409, apiErr.Status)
	detail, ok := apiErr.Detail.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, models.DefaultTableCapacity, detail["capacity"])
}

func TestAllocateResolvesTableByLabel(t *testing.T) {
	svc, mockDB, _ := newAllocService()
	mockDB.items = []models.OrderItem{vipItem(10, 1, "mon")}

	_, err := svc.Allocate("tok", []vip.AllocationRequest{
		{TableLabel: "masa nr. 6", DayCodes: []string{"mon"}, Seats: 1},
	})
	require.NoError(t, err)
	require.Len(t, mockDB.reservations, 1)
	assert.Equal(t, int64(6), mockDB.reservations[0].VipTableID)
}

func TestAllocateUnknownTable(t *testing.T) {
	svc, mockDB, _ := newAllocService()
	mockDB.items = []models.OrderItem{vipItem(10, 1, "fri")}

	_, err := svc.Allocate("tok", []vip.AllocationRequest{
		{TableID: 99, DayCodes: []string{"fri"}, Seats: 1},
	})
	require.Error(t, err)
	assert.Equal(t, 404, utils.StatusOf(err))

	_, err = svc.Allocate("tok", []vip.AllocationRequest{
		{TableLabel: "Terasa", DayCodes: []string{"fri"}, Seats: 1},
	})
	require.Error(t, err)
	assert.Equal(t, 404, utils.StatusOf(err))
}

func TestAllocateUnknownDay(t *testing.T) {
	svc, mockDB, _ := newAllocService()
	mockDB.items = []models.OrderItem{vipItem(10, 1, "fri")}

	_, err := svc.Allocate("tok", []vip.AllocationRequest{
		{TableID: 5, DayCodes: []string{"tue"}, Seats: 1},
	})
	require.Error(t, err)
	assert.Equal(t, 400, utils.StatusOf(err))
}

func TestAllocateRejectsNonPositiveSeats(t *testing.T) {
	svc, mockDB, _ := newAllocService()
	mockDB.items = []models.OrderItem{vipItem(10, 1, "fri")}

	_, err := svc.Allocate("tok", []vip.AllocationRequest{
		{TableID: 5, DayCodes: []string{"fri"}, Seats: 0},
	})
	require.Error(t, err)
	assert.Equal(t, 400, utils.StatusOf(err))
}

func TestAllocateOrderGates(t *testing.T) {
	svc, mockDB, _ := newAllocService()

	_, err := svc.Allocate("wrong-token", nil)
	require.Error(t, err)
	assert.Equal(t, 404, utils.StatusOf(err))

	mockDB.order.Status = models.OrderStatusPaid
	_, err = svc.Allocate("tok", nil)
	require.Error(t, err)
	assert.Equal(t, 409, utils.StatusOf(err))
}

func TestAllocateEmptyMatchesNoVipItems(t *testing.T) {
	svc, mockDB, _ := newAllocService()
	// Only general items on the order: an empty allocation is the one
	// valid shape, and it still wipes any stale reservations.
	mockDB.items = []models.OrderItem{{ID: 1, OrderID: 1, Category: models.CategoryGeneral, Quantity: 2, DaySet: "fri"}}
	mockDB.reservations = []models.VipTableReservation{{ID: 1, OrderID: 1}}

	summary, err := svc.Allocate("tok", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TablesSaved)
	assert.True(t, summary.Complete)
	assert.Empty(t, mockDB.reservations)
	assert.Equal(t, []int64{1}, mockDB.deletedFor)
}
