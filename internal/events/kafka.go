package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// envelope — обёртка сообщения в топике.
type envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// messageWriter — часть *kafka.Writer, нужная публикатору.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher пишет события в один топик, ключ сообщения — userId,
// чтобы события одного клиента шли в одну партицию.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher создаёт публикатор поверх kafka.Writer.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}

	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) TokenIssued(ctx context.Context, e TokenIssued) error {
	return p.publish(ctx, TypeTokenIssued, e.UserID, e)
}

func (p *KafkaPublisher) RedemptionCompleted(ctx context.Context, e RedemptionCompleted) error {
	return p.publish(ctx, TypeRedemptionCompleted, e.UserID, e)
}

func (p *KafkaPublisher) publish(ctx context.Context, typ, key string, data any) error {
	const op = "events.kafka.publish"

	body, err := json.Marshal(envelope{Type: typ, OccurredAt: time.Now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(typ)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%s: %s: %w", op, typ, err)
	}

	return nil
}

// Close закрывает writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
