// Package events publishes scoring and alert events to Kafka
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/banking/fraud-monitor/internal/config"
	"github.com/banking/fraud-monitor/internal/domain"
)

// Event types
const (
	TypeTransactionScored = "transaction.scored"
	TypeAlertCreated      = "alert.created"
	TypeAlertUpdated      = "alert.updated"
)

// Envelope wraps every published payload
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// TransactionScored is the payload of a transaction.scored event
type TransactionScored struct {
	TransactionID  string                   `json:"transaction_id"`
	UserID         string                   `json:"user_id"`
	FraudScore     float64                  `json:"fraud_score"`
	RiskLevel      domain.RiskLevel         `json:"risk_level"`
	Severity       domain.Severity          `json:"severity"`
	Recommendation domain.Recommendation    `json:"recommendation"`
	Status         domain.TransactionStatus `json:"status"`
	Factors        []domain.RiskFactor      `json:"factors"`
}

// AlertEvent is the payload of alert.created and alert.updated events
type AlertEvent struct {
	AlertID       string             `json:"alert_id"`
	TransactionID string             `json:"transaction_id"`
	UserID        string             `json:"user_id"`
	AlertType     domain.AlertType   `json:"alert_type"`
	Severity      domain.Severity    `json:"severity"`
	Status        domain.AlertStatus `json:"status"`
	FraudScore    float64            `json:"fraud_score"`
	Message       string             `json:"message"`
	ResolvedAt    *time.Time         `json:"resolved_at,omitempty"`
}

// NewAlertEvent builds the event payload for an alert
func NewAlertEvent(a *domain.Alert) AlertEvent {
	return AlertEvent{
		AlertID:       a.ID.String(),
		TransactionID: a.TransactionID,
		UserID:        a.OwnerID,
		AlertType:     a.AlertType,
		Severity:      a.Severity,
		Status:        a.Status,
		FraudScore:    a.Score,
		Message:       a.Message,
		ResolvedAt:    a.ResolvedAt,
	}
}

// Publisher delivers domain events
type Publisher interface {
	PublishTransactionScored(ctx context.Context, e TransactionScored) error
	PublishAlert(ctx context.Context, eventType string, e AlertEvent) error
	Close() error
}

// KafkaPublisher publishes events through a synchronous sarama producer.
// Messages are keyed by transaction id so events for one transaction stay
// ordered within a partition
type KafkaPublisher struct {
	producer          sarama.SyncProducer
	transactionsTopic string
	alertsTopic       string
	now               func() time.Time
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher connects a producer to the configured brokers
func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 3
	sc.Producer.Return.Successes = true
	sc.Producer.Idempotent = false

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, cfg.TransactionsTopic, cfg.AlertsTopic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, transactionsTopic, alertsTopic string) *KafkaPublisher {
	return &KafkaPublisher{
		producer:          producer,
		transactionsTopic: transactionsTopic,
		alertsTopic:       alertsTopic,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

func (p *KafkaPublisher) PublishTransactionScored(ctx context.Context, e TransactionScored) error {
	return p.publish(ctx, p.transactionsTopic, TypeTransactionScored, e.TransactionID, e)
}

func (p *KafkaPublisher) PublishAlert(ctx context.Context, eventType string, e AlertEvent) error {
	return p.publish(ctx, p.alertsTopic, eventType, e.TransactionID, e)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, eventType, key string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	env, err := json.Marshal(Envelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: p.now(),
		Payload:   body,
	})
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", eventType, err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(env),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(eventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", eventType, topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher drops every event
type NoopPublisher struct{}

var _ Publisher = NoopPublisher{}

func (NoopPublisher) PublishTransactionScored(context.Context, TransactionScored) error { return nil }

func (NoopPublisher) PublishAlert(context.Context, string, AlertEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
