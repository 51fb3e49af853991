// Package payment creates Stripe checkout sessions for priced draft
// orders and processes the completion webhook that marks them paid.
package payment

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"fanpit-ticketing/internal/config"
	"fanpit-ticketing/internal/logger"
	"fanpit-ticketing/internal/models"
	"fanpit-ticketing/internal/order/db"
	"fanpit-ticketing/internal/utils"
)

type DBLayer interface {
	GetOrderByToken(token string) (*models.Order, error)
	UpdateOrderStripeSession(orderID int64, sessionID string) error
	MarkOrderPaid(orderID int64, paymentStatus string) error
}

type EventPublisher interface {
	PublishOrderEvent(eventType string, order models.Order) error
}

type StripeService struct {
	DB     DBLayer
	Events EventPublisher
	Logger *logger.Logger
	Config config.StripeConfig
}

func NewStripeService(dbLayer DBLayer, events EventPublisher, log *logger.Logger, cfg config.StripeConfig) *StripeService {
	stripe.Key = cfg.SecretKey
	return &StripeService{DB: dbLayer, Events: events, Logger: log, Config: cfg}
}

type CheckoutResult struct {
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
}

// CreateCheckoutSession builds a Stripe checkout session for the order's
// current total. The order's public token travels in session metadata so
// the webhook can find its way back.
func (s *StripeService) CreateCheckoutSession(token string) (*CheckoutResult, error) {
	order, err := s.DB.GetOrderByToken(token)
	if errors.Is(err, db.ErrNotFound) {
		return nil, utils.NotFoundError("order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if !order.IsDraft() {
		return nil, utils.ConflictError("order is %s and cannot be checked out again", order.Status)
	}
	if order.TotalAmount <= 0 {
		return nil, utils.ValidationError("order has no priced items to check out")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.Config.SuccessURL + "?token=" + order.PublicToken),
		CancelURL:  stripe.String(s.Config.CancelURL + "?token=" + order.PublicToken),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("ron"),
					UnitAmount: stripe.Int64(int64(order.TotalAmount * 100)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Festival tickets (%d)", order.TotalItems)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{"public_token": order.PublicToken},
	}
	if order.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(order.CustomerEmail)
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe session create failed: %w", err)
	}

	if err := s.DB.UpdateOrderStripeSession(order.ID, sess.ID); err != nil {
		s.Logger.Warn("PAYMENT", fmt.Sprintf("session id not stored for order %s: %v", token, err))
	}
	s.Logger.LogOrder("CHECKOUT", token, fmt.Sprintf("stripe session %s created", sess.ID))

	return &CheckoutResult{SessionID: sess.ID, CheckoutURL: sess.URL}, nil
}

// HandleSessionCompleted marks the order paid when the checkout session
// completes. Called by the webhook handler after signature verification.
func (s *StripeService) HandleSessionCompleted(sess stripe.CheckoutSession) error {
	token := sess.Metadata["public_token"]
	if token == "" {
		return errors.New("checkout session has no public_token metadata")
	}
	order, err := s.DB.GetOrderByToken(token)
	if err != nil {
		return fmt.Errorf("order for session %s not found: %w", sess.ID, err)
	}
	if order.Status == models.OrderStatusPaid {
		return nil
	}
	if err := s.DB.MarkOrderPaid(order.ID, string(sess.PaymentStatus)); err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	order.Status = models.OrderStatusPaid
	s.Logger.LogOrder("PAID", token, fmt.Sprintf("stripe session %s completed", sess.ID))
	if s.Events != nil {
		if err := s.Events.PublishOrderEvent("order.paid", *order); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("publish order.paid failed: %v", err))
		}
	}
	return nil
}
