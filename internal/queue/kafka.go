package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes events to a topic keyed by location id, so every
// event of one location lands on the same partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	msg, err := encodeKafka(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

func encodeKafka(ev Event) (kafka.Message, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatUint(ev.LocationID, 10)),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(ev.Name)},
			{Key: "event_id", Value: []byte(ev.ID)},
		},
	}, nil
}

// KafkaConsumer reads reservation events written by any instance.
type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaConsumer(brokers []string, groupID, topic string) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}),
	}
}

// Consume feeds decoded events to handler until ctx is done. Undecodable
// messages and handler failures are logged and skipped.
func (c *KafkaConsumer) Consume(ctx context.Context, handler func(context.Context, Event) error) error {
	defer c.reader.Close()
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			slog.Warn("kafka read failed", slog.Any("err", err))
			if !sleepCtx(ctx, time.Second) {
				return nil
			}
			continue
		}
		var ev Event
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			slog.Warn("kafka message skipped", slog.Int64("offset", m.Offset), slog.Any("err", err))
			continue
		}
		if err := handler(ctx, ev); err != nil {
			slog.Warn("kafka handler failed", slog.String("event", ev.Name), slog.Any("err", err))
		}
	}
}
