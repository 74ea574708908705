package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"go-commerce/pkg/logger"
)

// ErrDisabled is returned when no brokers are configured
var ErrDisabled = errors.New("kafka disabled")

// Client holds the broker list
type Client struct {
	Brokers []string
}

// NewClient parses a comma separated broker list
func NewClient(brokersCSV string) *Client {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return &Client{Brokers: brokers}
}

// Enabled reports whether any broker is configured
func (c *Client) Enabled() bool {
	return len(c.Brokers) > 0
}

// NewWriter creates a writer for topic that hashes on the message key, so
// messages sharing a key stay in one partition
func (c *Client) NewWriter(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}

// Publisher publishes JSON messages to one topic, keyed by routing key
type Publisher struct {
	writer *kafka.Writer
	log    *logger.Logger
}

// NewPublisher creates a publisher for topic
func NewPublisher(client *Client, topic string, log *logger.Logger) (*Publisher, error) {
	if !client.Enabled() {
		return nil, ErrDisabled
	}
	return &Publisher{writer: client.NewWriter(topic), log: log}, nil
}

// Publish writes message under key, carrying the trace id as a header
func (p *Publisher) Publish(ctx context.Context, key string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	traceID := logger.GetTraceID(ctx)
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Time:    time.Now().UTC(),
		Headers: []kafka.Header{{Key: "x-trace-id", Value: []byte(traceID)}},
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.log.WithContext(ctx).Debug("message published",
		zap.String("topic", p.writer.Topic),
		zap.String("key", key),
		zap.String("trace_id", traceID),
	)
	return nil
}

// Close flushes pending writes
func (p *Publisher) Close() error {
	return p.writer.Close()
}
