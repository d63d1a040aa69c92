package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"campus-eats-be/internal/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrNoBrokers = errors.New("no kafka brokers configured")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher publishes notifications as JSON keyed by order id so a
// downstream mailer sees one order's messages in order.
type KafkaDispatcher struct {
	writer messageWriter
	topic  string
}

func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func NewKafkaDispatcher(brokersCSV, topic string) (*KafkaDispatcher, error) {
	brokers := ParseBrokers(brokersCSV)
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}
	return &KafkaDispatcher{writer: w, topic: topic}, nil
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	err = d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.OrderID),
		Value: data,
		Time:  msg.OccurredAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("publish notification to %s: %w", d.topic, err)
	}

	logger.FromCtx(ctx).Debug("notification published",
		zap.String("topic", d.topic),
		zap.String("order_id", msg.OrderID),
		zap.String("kind", string(msg.Kind)),
	)
	return nil
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}
