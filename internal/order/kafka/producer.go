package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"fanpit-ticketing/internal/logger"
	"fanpit-ticketing/internal/models"
)

// Producer streams order lifecycle events (order.created,
// order.items_synced, order.vip_allocated, order.paid) to a single
// topic. In mock mode events are only logged, which keeps local
// development broker-free.
type Producer struct {
	Writer   *kafka.Writer
	Logger   *logger.Logger
	MockMode bool
}

func NewProducer(brokers []string, topic string, log *logger.Logger, mockMode bool) *Producer {
	p := &Producer{Logger: log, MockMode: mockMode}
	if !mockMode {
		p.Writer = &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		}
	}
	return p
}

type orderEvent struct {
	Type        string    `json:"type"`
	OrderID     int64     `json:"order_id"`
	PublicToken string    `json:"public_token"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"total_amount"`
	Timestamp   time.Time `json:"timestamp"`
}

func (p *Producer) PublishOrderEvent(eventType string, order models.Order) error {
	event := orderEvent{
		Type:        eventType,
		OrderID:     order.ID,
		PublicToken: order.PublicToken,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Timestamp:   time.Now(),
	}
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if p.MockMode {
		p.Logger.LogKafka("MOCK", eventType, string(msgBytes))
		return nil
	}

	err = p.Writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(order.PublicToken),
		Value: msgBytes,
	})
	if err != nil {
		return err
	}
	p.Logger.LogKafka("PUBLISH", eventType, order.PublicToken)
	return nil
}

func (p *Producer) Close() error {
	if p.Writer != nil {
		return p.Writer.Close()
	}
	return nil
}
