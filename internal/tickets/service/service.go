package tickets

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fanpit-ticketing/internal/logger"
	"fanpit-ticketing/internal/models"
	"fanpit-ticketing/internal/tickets/db"
	"fanpit-ticketing/internal/utils"
)

type TicketDBLayer interface {
	GetOrderByToken(token string) (*models.Order, error)
	GetOrderItems(orderID int64) ([]models.OrderItem, error)
	GetTicketsByOrder(orderID int64) ([]models.IssuedTicket, error)
	GetTicketByID(ticketID string) (*models.IssuedTicket, error)
	MaxTicketNumber() (int64, error)
	InsertTickets(tickets []models.IssuedTicket) error
	ClaimTicketsEmail(orderID int64) (bool, error)
}

type MailSender interface {
	SendTicketsEmail(order models.Order, tickets []models.IssuedTicket) error
}

type TicketService struct {
	DB          TicketDBLayer
	Mailer      MailSender
	Logger      *logger.Logger
	QRNamespace string
	BatchSize   int
}

func NewTicketService(dbLayer TicketDBLayer, mailer MailSender, log *logger.Logger, qrNamespace string, batchSize int) *TicketService {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &TicketService{
		DB:          dbLayer,
		Mailer:      mailer,
		Logger:      log,
		QRNamespace: qrNamespace,
		BatchSize:   batchSize,
	}
}

type PublicTickets struct {
	Order   *models.Order         `json:"order"`
	Items   []models.OrderItem    `json:"items"`
	Tickets []models.IssuedTicket `json:"tickets"`
}

// GetPublicTickets returns the order with its tickets, issuing them first
// when the order is paid and none exist yet. The same read also triggers
// the one-time confirmation email.
func (s *TicketService) GetPublicTickets(token string) (*PublicTickets, error) {
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

	var issued []models.IssuedTicket
	if order.Status == models.OrderStatusPaid {
		issued, err = s.IssueTicketsIfMissing(order, items)
		if err != nil {
			return nil, err
		}
		s.sendConfirmationOnce(order, issued)
	} else {
		issued, err = s.DB.GetTicketsByOrder(order.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load tickets: %w", err)
		}
	}

	return &PublicTickets{Order: order, Items: items, Tickets: issued}, nil
}

// IssueTicketsIfMissing creates one ticket row per purchased unit, with
// globally sequential numbers assigned in item-then-unit order. Any
// already-issued ticket for the order short-circuits re-issuance.
func (s *TicketService) IssueTicketsIfMissing(order *models.Order, items []models.OrderItem) ([]models.IssuedTicket, error) {
	existing, err := s.DB.GetTicketsByOrder(order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check issued tickets: %w", err)
	}
	if len(existing) > 0 {
		return existing, nil
	}

	maxNumber, err := s.DB.MaxTicketNumber()
	if err != nil {
		return nil, fmt.Errorf("failed to read ticket numbering: %w", err)
	}

	next := maxNumber + 1
	now := time.Now()
	var tickets []models.IssuedTicket
	for _, item := range items {
		for unit := 1; unit <= item.Quantity; unit++ {
			tickets = append(tickets, models.IssuedTicket{
				TicketID:     uuid.NewString(),
				OrderID:      order.ID,
				OrderItemID:  item.ID,
				TicketNumber: next,
				QRPayload:    fmt.Sprintf("%s:%s:%d:%d", s.QRNamespace, order.PublicToken, item.ID, unit),
				AttendeeName: order.CustomerName,
				Status:       models.TicketStatusValid,
				IssuedAt:     now,
			})
			next++
		}
	}

	// Fixed-size batches bound request size; a failed batch aborts the
	// whole issuance with no partial cleanup.
	for start := 0; start < len(tickets); start += s.BatchSize {
		end := start + s.BatchSize
		if end > len(tickets) {
			end = len(tickets)
		}
		if err := s.DB.InsertTickets(tickets[start:end]); err != nil {
			return nil, fmt.Errorf("failed to insert ticket batch: %w", err)
		}
	}

	s.Logger.LogTickets("ISSUE", order.PublicToken, fmt.Sprintf("%d tickets issued, numbers %d-%d", len(tickets), maxNumber+1, next-1))
	return tickets, nil
}

// GetTicket loads one issued ticket for the QR endpoint.
func (s *TicketService) GetTicket(ticketID string) (*models.IssuedTicket, error) {
	ticket, err := s.DB.GetTicketByID(ticketID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, utils.NotFoundError("ticket not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}
	return ticket, nil
}

// sendConfirmationOnce sends the confirmation email to the caller that
// wins the claim. A send failure after a won claim is logged and not
// retried: no duplicate email beats guaranteed delivery.
func (s *TicketService) sendConfirmationOnce(order *models.Order, tickets []models.IssuedTicket) {
	if s.Mailer == nil || order.CustomerEmail == "" {
		return
	}
	won, err := s.DB.ClaimTicketsEmail(order.ID)
	if err != nil {
		s.Logger.Error("EMAIL", fmt.Sprintf("claim failed for order %s: %v", order.PublicToken, err))
		return
	}
	if !won {
		return
	}
	if err := s.Mailer.SendTicketsEmail(*order, tickets); err != nil {
		s.Logger.Error("EMAIL", fmt.Sprintf("send failed for order %s (claim kept): %v", order.PublicToken, err))
		return
	}
	s.Logger.LogEmail("SENT", order.CustomerEmail, fmt.Sprintf("confirmation for order %s", order.PublicToken))
}
