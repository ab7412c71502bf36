package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
	"github.com/prohmpiriya/donation-rush/pkg/kafka"
	"github.com/prohmpiriya/donation-rush/pkg/logger"
)

const (
	TopicDonationEvents = "donation-events"

	EventDonationCreated = "donation.created"
	EventStatusChanged   = "donation.status_changed"
)

// DonationCreated is emitted once per transaction created at the provider
type DonationCreated struct {
	EventID       string                   `json:"event_id"`
	EventType     string                   `json:"event_type"`
	DonationID    string                   `json:"donation_id"`
	Campaign      string                   `json:"campaign"`
	ExternalID    string                   `json:"external_id"`
	TransactionID string                   `json:"transaction_id"`
	Provider      string                   `json:"provider"`
	Method        domain.PaymentMethod     `json:"method"`
	AmountMinor   int64                    `json:"amount_minor"`
	Split         []domain.SplitAllocation `json:"split,omitempty"`
	DemoMode      bool                     `json:"demo_mode"`
	OccurredAt    time.Time                `json:"occurred_at"`
}

// StatusChanged is emitted when a transaction leaves PENDING
type StatusChanged struct {
	EventID       string                   `json:"event_id"`
	EventType     string                   `json:"event_type"`
	Campaign      string                   `json:"campaign"`
	TransactionID string                   `json:"transaction_id"`
	From          domain.TransactionStatus `json:"from"`
	To            domain.TransactionStatus `json:"to"`
	AmountMinor   int64                    `json:"amount_minor"`
	PaidAt        *time.Time               `json:"paid_at,omitempty"`
	OccurredAt    time.Time                `json:"occurred_at"`
}

// Publisher announces donation lifecycle events
type Publisher interface {
	PublishDonationCreated(ctx context.Context, d *domain.Donation) error
	PublishStatusChanged(ctx context.Context, campaign, transactionID string, from, to domain.TransactionStatus, amountMinor int64, paidAt *time.Time) error
}

// JSONProducer is the part of pkg/kafka the publisher writes through
type JSONProducer interface {
	ProduceJSON(ctx context.Context, topic, key string, value interface{}, headers map[string]string) error
}

var _ JSONProducer = (*kafka.Producer)(nil)

// KafkaPublisher writes events to one topic keyed by transaction id, so
// every event of a transaction lands on the same partition in order
type KafkaPublisher struct {
	producer JSONProducer
	topic    string
	source   string
	log      *logger.Logger
}

// NewKafkaPublisher creates a publisher; an empty topic uses TopicDonationEvents
func NewKafkaPublisher(producer JSONProducer, topic, source string) *KafkaPublisher {
	if topic == "" {
		topic = TopicDonationEvents
	}
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		source:   source,
		log:      logger.Get(),
	}
}

func (p *KafkaPublisher) PublishDonationCreated(ctx context.Context, d *domain.Donation) error {
	event := &DonationCreated{
		EventID:       uuid.New().String(),
		EventType:     EventDonationCreated,
		DonationID:    d.ID,
		Campaign:      d.Campaign,
		ExternalID:    d.ExternalID,
		TransactionID: d.TransactionID,
		Provider:      d.Provider,
		Method:        d.Method,
		AmountMinor:   d.AmountMinor,
		Split:         d.Split,
		DemoMode:      d.DemoMode,
		OccurredAt:    time.Now().UTC(),
	}
	return p.publish(ctx, d.TransactionID, EventDonationCreated, event)
}

func (p *KafkaPublisher) PublishStatusChanged(ctx context.Context, campaign, transactionID string, from, to domain.TransactionStatus, amountMinor int64, paidAt *time.Time) error {
	event := &StatusChanged{
		EventID:       uuid.New().String(),
		EventType:     EventStatusChanged,
		Campaign:      campaign,
		TransactionID: transactionID,
		From:          from,
		To:            to,
		AmountMinor:   amountMinor,
		PaidAt:        paidAt,
		OccurredAt:    time.Now().UTC(),
	}
	return p.publish(ctx, transactionID, EventStatusChanged, event)
}

func (p *KafkaPublisher) publish(ctx context.Context, key, eventType string, event interface{}) error {
	headers := map[string]string{
		"event_type":   eventType,
		"content_type": "application/json",
		"source":       p.source,
	}
	if err := p.producer.ProduceJSON(ctx, p.topic, key, event, headers); err != nil {
		p.log.Error("failed to publish event",
			zap.String("event_type", eventType),
			zap.String("transaction_id", key),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// NoopPublisher drops every event; used when Kafka is disabled
type NoopPublisher struct{}

func (NoopPublisher) PublishDonationCreated(ctx context.Context, d *domain.Donation) error {
	return nil
}

func (NoopPublisher) PublishStatusChanged(ctx context.Context, campaign, transactionID string, from, to domain.TransactionStatus, amountMinor int64, paidAt *time.Time) error {
	return nil
}
