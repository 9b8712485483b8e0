package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"casepay/internal/domain/service"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// CaseEventPublisher writes case lifecycle events for the notice subsystem.
// Messages are keyed by case number so one case's events stay ordered.
type CaseEventPublisher struct {
	writer messageWriter
}

func NewCaseEventPublisher(brokers []string, topic string) *CaseEventPublisher {
	return &CaseEventPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *CaseEventPublisher) PublishCaseEvent(ctx context.Context, event service.CaseEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal case event: %w", err)
	}

	key := event.CaseNumber
	if key == "" {
		key = strconv.FormatUint(uint64(event.CaseID), 10)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
}

func (p *CaseEventPublisher) Close() error {
	return p.writer.Close()
}
