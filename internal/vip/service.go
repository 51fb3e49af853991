// Package vip implements the VIP table seat-allocation engine: matching
// an order's VIP line items to table reservations day by day, enforcing
// per-table capacity and replacing the order's allocation atomically
// from the caller's point of view.
package vip

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"fanpit-ticketing/internal/catalog"
	"fanpit-ticketing/internal/logger"
	"fanpit-ticketing/internal/models"
	"fanpit-ticketing/internal/utils"
	"fanpit-ticketing/internal/vip/db"
)

type DBLayer interface {
	GetOrderByToken(token string) (*models.Order, error)
	GetOrderItems(orderID int64) ([]models.OrderItem, error)
	ListEventDays() ([]models.EventDay, error)
	GetVipTableByID(id int64) (*models.VipTable, error)
	ListVipTables() ([]models.VipTable, error)
	SumOtherReservations(tableID, eventDayID, excludeOrderID int64) (int, error)
	DeleteReservations(orderID int64) error
	InsertReservation(reservation *models.VipTableReservation) error
	InsertReservationDays(rows []models.VipTableReservationDay) error
}

type EventPublisher interface {
	PublishOrderEvent(eventType string, order models.Order) error
}

type AllocationService struct {
	DB     DBLayer
	Events EventPublisher
	Logger *logger.Logger
}

func NewAllocationService(dbLayer DBLayer, events EventPublisher, log *logger.Logger) *AllocationService {
	return &AllocationService{DB: dbLayer, Events: events, Logger: log}
}

type AllocationRequest struct {
	TableID    int64    `json:"tableId,omitempty"`
	TableLabel string   `json:"tableLabel,omitempty"`
	DayCodes   []string `json:"dayCodes"`
	Seats      int      `json:"seats"`
}

type AllocationSummary struct {
	RequiredByDay  map[string]int `json:"requiredVipSeatsByDay"`
	AllocatedByDay map[string]int `json:"allocatedVipSeatsByDay"`
	TablesSaved    int            `json:"tablesSaved"`
	DaysSaved      int            `json:"daysSaved"`
	Complete       bool           `json:"complete"`
}

// Allocate validates and persists a full replacement of the order's VIP
// table allocation. The request must account for every required seat on
// every day exactly; partial allocations are rejected outright.
func (s *AllocationService) Allocate(token string, requests []AllocationRequest) (*AllocationSummary, error) {
	order, err := s.DB.GetOrderByToken(token)
	if errors.Is(err, db.ErrNotFound) {
		return nil, utils.NotFoundError("order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if !order.IsDraft() {
		return nil, utils.ConflictError("order is %s and its allocation can no longer be changed", order.Status)
	}

	days, err := s.DB.ListEventDays()
	if err != nil {
		return nil, fmt.Errorf("failed to load event days: %w", err)
	}
	daysByCode := make(map[string]models.EventDay, len(days))
	for _, d := range days {
		daysByCode[strings.ToLower(d.Code)] = d
	}

	// Resolve every allocation up front: unresolved days are a 400,
	// unresolved tables a 404, before anything is written.
	type resolvedAllocation struct {
		table *models.VipTable
		days  []models.EventDay
		seats int
	}
	resolved := make([]resolvedAllocation, 0, len(requests))
	for i, req := range requests {
		if req.Seats <= 0 {
			return nil, utils.ValidationError("allocation %d: seats must be at least 1", i+1)
		}
		if len(req.DayCodes) == 0 {
			return nil, utils.ValidationError("allocation %d: no days selected", i+1)
		}
		var reqDays []models.EventDay
		for _, code := range catalog.CanonicalDaySet(req.DayCodes) {
			day, ok := daysByCode[code]
			if !ok {
				return nil, utils.ValidationError("allocation %d: unknown festival day %q", i+1, code)
			}
			reqDays = append(reqDays, day)
		}
		table, err := s.resolveTable(req)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, resolvedAllocation{table: table, days: reqDays, seats: req.Seats})
	}

	items, err := s.DB.GetOrderItems(order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	requiredByDay := map[string]int{}
	requiredTotal := 0
	var primaryVipItem *models.OrderItem
	for i := range items {
		item := items[i]
		if item.Category != models.CategoryVIP {
			continue
		}
		if primaryVipItem == nil {
			primaryVipItem = &items[i]
		}
		requiredTotal += item.Quantity
		for _, code := range catalog.ParseDaySet(item.DaySet) {
			requiredByDay[code] += item.Quantity
		}
	}

	allocatedByDay := map[string]int{}
	allocatedTotal := 0
	for _, alloc := range resolved {
		allocatedTotal += alloc.seats
		for _, day := range alloc.days {
			allocatedByDay[strings.ToLower(day.Code)] += alloc.seats
		}
	}

	if err := checkExactness(requiredByDay, allocatedByDay, requiredTotal, allocatedTotal); err != nil {
		return nil, err
	}

	// Seats requested per (table, day) across the whole request; two
	// allocations can target the same table.
	type tableDay struct {
		tableID int64
		dayID   int64
	}
	requestedSeats := map[tableDay]int{}
	tablesByID := map[int64]*models.VipTable{}
	dayCodeByID := map[int64]string{}
	for _, alloc := range resolved {
		tablesByID[alloc.table.ID] = alloc.table
		for _, day := range alloc.days {
			requestedSeats[tableDay{alloc.table.ID, day.ID}] += alloc.seats
			dayCodeByID[day.ID] = strings.ToLower(day.Code)
		}
	}

	// Capacity check against every other order's reservations. This is a
	// read-then-write check without a transaction; two requests racing
	// for the same table can both pass it.
	for key, seats := range requestedSeats {
		table := tablesByID[key.tableID]
		capacity := table.EffectiveCapacity()
		occupied, err := s.DB.SumOtherReservations(key.tableID, key.dayID, order.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check table occupancy: %w", err)
		}
		if occupied+seats > capacity {
			return nil, &utils.APIError{
				Status: http.StatusConflict,
				Message: fmt.Sprintf("table %s has only %d free seats on %s",
					tableDisplayName(table), capacity-occupied, dayCodeByID[key.dayID]),
				Detail: map[string]interface{}{
					"tableId":   table.ID,
					"day":       dayCodeByID[key.dayID],
					"capacity":  capacity,
					"occupied":  occupied,
					"available": capacity - occupied,
					"requested": seats,
				},
			}
		}
	}

	// Full replacement: wipe the prior allocation, then write the new one.
	if err := s.DB.DeleteReservations(order.ID); err != nil {
		return nil, fmt.Errorf("failed to clear prior allocation: %w", err)
	}

	tablesSaved := 0
	daysSaved := 0
	if allocatedTotal > 0 {
		// One header per distinct table, attributed to the first VIP item
		// to satisfy the non-null item reference. Header seats are the
		// per-day maximum: one physical seat serves the same ticket on
		// multiple days.
		for tableID, table := range tablesByID {
			maxSeats := 0
			var dayRows []models.VipTableReservationDay
			for key, seats := range requestedSeats {
				if key.tableID != tableID {
					continue
				}
				if seats > maxSeats {
					maxSeats = seats
				}
				dayRows = append(dayRows, models.VipTableReservationDay{
					EventDayID:    key.dayID,
					SeatsReserved: seats,
				})
			}
			reservation := models.VipTableReservation{
				OrderID:     order.ID,
				VipTableID:  table.ID,
				OrderItemID: primaryVipItem.ID,
				Seats:       maxSeats,
			}
			if err := s.DB.InsertReservation(&reservation); err != nil {
				return nil, fmt.Errorf("failed to save reservation: %w", err)
			}
			for i := range dayRows {
				dayRows[i].ReservationID = reservation.ID
			}
			if err := s.DB.InsertReservationDays(dayRows); err != nil {
				return nil, fmt.Errorf("failed to save reservation days: %w", err)
			}
			tablesSaved++
			daysSaved += len(dayRows)
		}
	}

	s.Logger.LogAllocation("SAVE", token,
		fmt.Sprintf("%d tables, %d day rows, %d seats", tablesSaved, daysSaved, allocatedTotal))
	if s.Events != nil {
		if err := s.Events.PublishOrderEvent("order.vip_allocated", *order); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("publish order.vip_allocated failed: %v", err))
		}
	}

	return &AllocationSummary{
		RequiredByDay:  requiredByDay,
		AllocatedByDay: allocatedByDay,
		TablesSaved:    tablesSaved,
		DaysSaved:      daysSaved,
		Complete:       true,
	}, nil
}

// checkExactness enforces the allocation invariant: aggregate seats and
// every per-day count must match required exactly.
func checkExactness(required, allocated map[string]int, requiredTotal, allocatedTotal int) *utils.APIError {
	if allocatedTotal != requiredTotal {
		return &utils.APIError{
			Status: http.StatusBadRequest,
			Message: fmt.Sprintf("allocation covers %d seats but the order's VIP tickets require %d",
				allocatedTotal, requiredTotal),
			Detail: map[string]interface{}{"required": requiredTotal, "allocated": allocatedTotal},
		}
	}
	for _, day := range catalog.DayOrder {
		req := required[day]
		alloc := allocated[day]
		if req != alloc {
			return &utils.APIError{
				Status: http.StatusBadRequest,
				Message: fmt.Sprintf("day %s needs exactly %d VIP seats, allocation has %d",
					day, req, alloc),
				Detail: map[string]interface{}{"day": day, "required": req, "allocated": alloc},
			}
		}
	}
	return nil
}

// resolveTable finds the VipTable row referenced by id or label. Labels
// like "Masa 5" resolve through their embedded number.
func (s *AllocationService) resolveTable(req AllocationRequest) (*models.VipTable, error) {
	if req.TableID > 0 {
		table, err := s.DB.GetVipTableByID(req.TableID)
		if errors.Is(err, db.ErrNotFound) {
			return nil, utils.NotFoundError("table %d not found", req.TableID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load table %d: %w", req.TableID, err)
		}
		return table, nil
	}

	number, ok := numericToken(req.TableLabel)
	if !ok {
		return nil, utils.NotFoundError("table %q not found", req.TableLabel)
	}
	tables, err := s.DB.ListVipTables()
	if err != nil {
		return nil, fmt.Errorf("failed to load tables: %w", err)
	}
	for i := range tables {
		if tables[i].TableNumber == number {
			return &tables[i], nil
		}
	}
	for i := range tables {
		if n, ok := numericToken(tables[i].Label); ok && n == number {
			return &tables[i], nil
		}
	}
	return nil, utils.NotFoundError("table %q not found", req.TableLabel)
}

// numericToken extracts the first run of digits from a table label.
func numericToken(label string) (int, bool) {
	start := -1
	for i, r := range label {
		if unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, err := strconv.Atoi(label[start:i])
			return n, err == nil
		}
	}
	if start >= 0 {
		n, err := strconv.Atoi(label[start:])
		return n, err == nil
	}
	return 0, false
}

func tableDisplayName(table *models.VipTable) string {
	if table.Label != "" {
		return table.Label
	}
	return fmt.Sprintf("#%d", table.ID)
}
