package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/cap-comb/app/alerting"
	kafkago "github.com/segmentio/kafka-go"
)

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = NoopPublisher{}
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher writes one message per alert to a Kafka topic. The message
// key is the alert hash so identical alerts land on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{writer: w, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, source string, alerts []*alerting.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	msgs := make([]kafkago.Message, 0, len(alerts))
	for _, alert := range alerts {
		if alert == nil {
			continue
		}
		msg, err := serializeAlert(source, alert)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write %d alerts for source %s: %w", len(msgs), source, err)
	}

	p.logger.Debug("Alerts published", "source", source, "count", len(msgs))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func serializeAlert(source string, alert *alerting.Alert) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert %s: %w", alert.Identifier, err)
	}

	headers := []kafkago.Header{
		{Key: "source", Value: []byte(source)},
		{Key: "identifier", Value: []byte(alert.Identifier)},
		{Key: "msg_type", Value: []byte(alert.MsgType)},
	}
	if alert.Sent != nil {
		headers = append(headers, kafkago.Header{Key: "sent", Value: []byte(alert.Sent.UTC().Format(time.RFC3339))})
	}

	return kafkago.Message{
		Key:     []byte(alert.Hash),
		Value:   data,
		Headers: headers,
	}, nil
}
