package events

import (
	"context"
	"fmt"
	"staybook/pkg/config"
	"staybook/pkg/kafka"
	kafka_middleware "staybook/pkg/kafka/middleware"
	"staybook/pkg/middleware"
	"staybook/pkg/model"
	"staybook/pkg/rabbitmq"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	BookingCreated Type = "booking.created"
	BookingUpdated Type = "booking.updated"
	BookingDeleted Type = "booking.deleted"

	Source        = "bookings"
	SchemaVersion = "1"

	HeaderBookingKind = "booking-kind"
)

// Event describes a committed change to a booking.
type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Booking    *model.Booking `json:"booking"`
}

func NewEvent(t Type, booking *model.Booking, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: at.UTC(),
		Booking:    booking,
	}
}

// Publisher delivers booking events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// New builds the publisher selected by EVENTS_BROKER.
func New(cfg *config.Config) (Publisher, error) {
	switch cfg.EventsBroker {
	case config.BrokerKafka:
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaTopic,
			Compression:  cfg.KafkaCompression,
			RequireAcks:  cfg.KafkaRequireAcks,
			MaxAttempts:  cfg.KafkaMaxAttempts,
			BatchTimeout: cfg.KafkaBatchTimeout,
		}, cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("create kafka producer: %w", err)
		}
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		return NewKafkaPublisher(producer), nil
	case config.BrokerRabbitMQ:
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, cfg.Log)
		if err != nil {
			return nil, err
		}
		return NewRabbitMQPublisher(publisher), nil
	default:
		return NoopPublisher{}, nil
	}
}

type kafkaPublisher struct {
	producer *kafka.Producer
}

func NewKafkaPublisher(producer *kafka.Producer) Publisher {
	return &kafkaPublisher{producer: producer}
}

// Publish keys the message by booking id and carries the originating request id
// as the correlation id.
func (p *kafkaPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := kafka.NewMessage().
		WithKey(event.Booking.ID).
		WithHeader(HeaderBookingKind, string(event.Booking.Kind)).
		WithValue(event).
		WithEventID(event.ID).
		WithEventType(string(event.Type)).
		WithCorrelationID(middleware.RequestIDFrom(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithTimestamp(event.OccurredAt).
		Build()
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

type rabbitMQPublisher struct {
	publisher *rabbitmq.Publisher
}

func NewRabbitMQPublisher(publisher *rabbitmq.Publisher) Publisher {
	return &rabbitMQPublisher{publisher: publisher}
}

// Publish routes on the event type so consumers can bind to booking.* or a single type.
func (p *rabbitMQPublisher) Publish(ctx context.Context, event Event) error {
	return p.publisher.Publish(ctx, string(event.Type), event.ID, event)
}

func (p *rabbitMQPublisher) Close() error {
	return p.publisher.Close()
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
