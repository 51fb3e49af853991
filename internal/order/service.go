package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fanpit-ticketing/internal/logger"
	"fanpit-ticketing/internal/models"
	"fanpit-ticketing/internal/order/db"
	"fanpit-ticketing/internal/pricing"
	"fanpit-ticketing/internal/utils"
)

type DBLayer interface {
	CreateOrder(order *models.Order) error
	GetOrderByToken(token string) (*models.Order, error)
	ListEventDays() ([]models.EventDay, error)
	ListProducts() ([]models.Product, error)
	GetOrderItems(orderID int64) ([]models.OrderItem, error)
	DeleteOrderItems(orderID int64) error
	DeleteReservations(orderID int64) error
	InsertOrderItem(item *models.OrderItem) ([]string, error)
	InsertOrderItemDays(links []models.OrderItemDay) error
	UpdateOrderTotals(orderID int64, totalAmount float64, totalItems int) error
	GetVipSummaries(orderID int64) ([]models.VipTableSummary, error)
}

type EventPublisher interface {
	PublishOrderEvent(eventType string, order models.Order) error
}

type OrderService struct {
	DB     DBLayer
	Events EventPublisher
	Logger *logger.Logger
}

func NewOrderService(dbLayer DBLayer, events EventPublisher, log *logger.Logger) *OrderService {
	return &OrderService{DB: dbLayer, Events: events, Logger: log}
}

// ---------------- DRAFT CREATION ----------------

type DraftRequest struct {
	CustomerName  string `json:"customerName,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty"`
	CustomerPhone string `json:"customerPhone,omitempty"`
}

// CreateDraft creates an empty draft order addressed by a fresh public token.
func (s *OrderService) CreateDraft(req DraftRequest) (*models.Order, error) {
	order := &models.Order{
		PublicToken:   uuid.NewString(),
		Status:        models.OrderStatusDraft,
		Currency:      "RON",
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		CreatedAt:     time.Now(),
	}
	if err := s.DB.CreateOrder(order); err != nil {
		return nil, fmt.Errorf("failed to create draft order: %w", err)
	}
	s.Logger.LogOrder("CREATE", order.PublicToken, "draft order created")
	s.publish("order.created", *order)
	return order, nil
}

// ---------------- ITEM SYNC ----------------

type ItemSyncResult struct {
	Items       []models.OrderItem `json:"items"`
	TotalAmount float64            `json:"totalAmount"`
	TotalItems  int                `json:"totalItems"`
}

// SyncItems replaces the order's stored items with the normalized lines
// computed from the request. The old items, their day links and any VIP
// reservations are deleted first; a failure mid-insert leaves the order
// temporarily item-less and callers retry the whole save.
func (s *OrderService) SyncItems(token string, entries []pricing.ItemRequest) (*ItemSyncResult, error) {
	order, err := s.getDraftOrder(token)
	if err != nil {
		return nil, err
	}

	lines, apiErr := pricing.NormalizeItems(entries)
	if apiErr != nil {
		return nil, apiErr
	}

	days, err := s.DB.ListEventDays()
	if err != nil {
		return nil, fmt.Errorf("failed to load event days: %w", err)
	}
	daysByCode := make(map[string]models.EventDay, len(days))
	for _, d := range days {
		daysByCode[strings.ToLower(d.Code)] = d
	}

	products, err := s.DB.ListProducts()
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	resolved := make([]models.Product, len(lines))
	for i, line := range lines {
		product, err := resolveProduct(products, line)
		if err != nil {
			return nil, err
		}
		resolved[i] = product
	}

	// Replacing the basket invalidates any prior seat allocation.
	if err := s.DB.DeleteOrderItems(order.ID); err != nil {
		return nil, fmt.Errorf("failed to clear existing items: %w", err)
	}
	if err := s.DB.DeleteReservations(order.ID); err != nil {
		return nil, fmt.Errorf("failed to clear existing reservations: %w", err)
	}

	now := time.Now()
	items := make([]models.OrderItem, 0, len(lines))
	var links []models.OrderItemDay
	totalAmount := 0.0
	totalItems := 0

	for i, line := range lines {
		item := models.OrderItem{
			OrderID:      order.ID,
			ProductID:    resolved[i].ID,
			Category:     line.Category,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			LineTotal:    line.LineTotal,
			DaySet:       line.DaySetString(),
			DurationDays: line.Product.DurationDays,
			ProductName:  resolved[i].Name,
			VariantLabel: variantLabel(line),
			CreatedAt:    now,
		}
		dropped, err := s.DB.InsertOrderItem(&item)
		if len(dropped) > 0 {
			s.Logger.Warn("DATABASE", fmt.Sprintf("order_items insert dropped columns %v for order %s", dropped, token))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}
		items = append(items, item)
		totalAmount += line.LineTotal
		totalItems += line.Quantity

		for _, code := range line.DaySet {
			day, ok := daysByCode[code]
			if !ok {
				s.Logger.Warn("DATABASE", fmt.Sprintf("event day %q is not configured, skipping day link", code))
				continue
			}
			links = append(links, models.OrderItemDay{OrderItemID: item.ID, EventDayID: day.ID})
		}
	}

	// Day links are best-effort bookkeeping; a failure never rolls back
	// the saved items.
	if err := s.DB.InsertOrderItemDays(links); err != nil {
		s.Logger.Warn("DATABASE", fmt.Sprintf("order item day links not saved for order %s: %v", token, err))
	}

	if err := s.DB.UpdateOrderTotals(order.ID, totalAmount, totalItems); err != nil {
		s.Logger.Warn("DATABASE", fmt.Sprintf("order totals not updated for order %s: %v", token, err))
	}

	order.TotalAmount = totalAmount
	order.TotalItems = totalItems
	s.Logger.LogOrder("SYNC", token, fmt.Sprintf("%d items saved, total %.2f %s", len(items), totalAmount, order.Currency))
	s.publish("order.items_synced", *order)

	return &ItemSyncResult{Items: items, TotalAmount: totalAmount, TotalItems: totalItems}, nil
}

// ---------------- PUBLIC READ ----------------

type PublicOrder struct {
	Order     *models.Order            `json:"order"`
	Items     []models.OrderItem       `json:"items"`
	VipTables []models.VipTableSummary `json:"vipTables"`
}

// GetPublicOrder returns the order with its items and VIP table summary
// for checkout display. Deployments whose item schema lacks price columns
// get per-unit prices back-filled from the order total.
func (s *OrderService) GetPublicOrder(token string) (*PublicOrder, error) {
	order, err := s.DB.GetOrderByToken(token)
	if errors.Is(err, db.ErrNotFound) {
		return nil, utils.NotFoundError("order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	items, err := s.DB.GetOrderItems(order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	distributeOrderTotal(order, items)

	vipTables, err := s.DB.GetVipSummaries(order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load vip reservations: %w", err)
	}

	return &PublicOrder{Order: order, Items: items, VipTables: vipTables}, nil
}

// distributeOrderTotal back-fills missing item prices from the order
// total, spreading it evenly across units.
func distributeOrderTotal(order *models.Order, items []models.OrderItem) {
	if order.TotalAmount <= 0 {
		return
	}
	totalUnits := 0
	for _, item := range items {
		if item.UnitPrice > 0 || item.LineTotal > 0 {
			return
		}
		totalUnits += item.Quantity
	}
	if totalUnits == 0 {
		return
	}
	perUnit := order.TotalAmount / float64(totalUnits)
	for i := range items {
		items[i].UnitPrice = perUnit
		items[i].LineTotal = perUnit * float64(items[i].Quantity)
	}
}

// ---------------- HELPERS ----------------

func (s *OrderService) getDraftOrder(token string) (*models.Order, error) {
	order, err := s.DB.GetOrderByToken(token)
	if errors.Is(err, db.ErrNotFound) {
		return nil, utils.NotFoundError("order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if !order.IsDraft() {
		return nil, utils.ConflictError("order is %s and can no longer be changed", order.Status)
	}
	return order, nil
}

func (s *OrderService) publish(eventType string, order models.Order) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishOrderEvent(eventType, order); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish %s failed: %v", eventType, err))
	}
}

func variantLabel(line pricing.NormalizedLine) string {
	if len(line.DaySet) == 0 {
		return ""
	}
	return strings.Join(line.DaySet, "+")
}

// resolveProduct maps a normalized line to a products row: exact code
// match first, then alias-normalized code, then (category, duration)
// with snapshot-name disambiguation, else the first candidate.
func resolveProduct(products []models.Product, line pricing.NormalizedLine) (models.Product, error) {
	for _, p := range products {
		if p.Code == line.Code {
			return p, nil
		}
	}
	want := normalizeAlias(line.Code)
	for _, p := range products {
		if normalizeAlias(p.Code) == want {
			return p, nil
		}
	}

	var candidates []models.Product
	for _, p := range products {
		if strings.EqualFold(p.Category, line.Category) && p.DurationDays == line.Product.DurationDays {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return models.Product{}, fmt.Errorf("product %s is not configured in the store", line.Code)
	}
	if len(candidates) > 1 {
		for _, p := range candidates {
			if p.Name == line.Product.Name {
				return p, nil
			}
		}
	}
	return candidates[0], nil
}

// normalizeAlias strips case and punctuation so "general-1-day" resolves
// to "GENERAL_1_DAY".
func normalizeAlias(code string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(code) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
