package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"go-commerce/pkg/logger"
)

const (
	reconnectDelay = 2 * time.Second
	retryDelay     = time.Second
)

// Connection manages a RabbitMQ connection with reconnect capability
type Connection struct {
	url        string
	conn       *amqp.Connection
	channel    *amqp.Channel
	log        *logger.Logger
	mu         sync.RWMutex
	closeChan  chan struct{}
	reconnects int
	hooks      []func()
}

// NewConnection creates a new RabbitMQ connection and watches it for drops
func NewConnection(url string, log *logger.Logger) (*Connection, error) {
	c := &Connection{
		url:       url,
		log:       log,
		closeChan: make(chan struct{}),
	}

	if err := c.connect(); err != nil {
		return nil, err
	}
	go c.watch()

	return c, nil
}

func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	c.conn = conn
	c.channel = ch

	c.log.Info("connected to RabbitMQ", zap.Int("reconnects", c.reconnects))
	return nil
}

// watch redials after an unexpected close until Close is called, then runs
// the reconnect hooks
func (c *Connection) watch() {
	for {
		c.mu.RLock()
		notify := c.conn.NotifyClose(make(chan *amqp.Error, 1))
		c.mu.RUnlock()

		select {
		case <-c.closeChan:
			return
		case amqpErr, ok := <-notify:
			if !ok || amqpErr == nil {
				return
			}
			c.log.Warn("RabbitMQ connection lost", zap.String("reason", amqpErr.Reason))
		}

		if !c.redial() {
			return
		}
		c.reconnected()
	}
}

// redial retries until connected or closed
func (c *Connection) redial() bool {
	for {
		select {
		case <-c.closeChan:
			return false
		case <-time.After(reconnectDelay):
		}

		c.mu.Lock()
		c.reconnects++
		c.mu.Unlock()

		if err := c.connect(); err != nil {
			c.log.Error("failed to reconnect to RabbitMQ", zap.Error(err))
			continue
		}
		return true
	}
}

// OnReconnect registers fn to run after every successful reconnect
func (c *Connection) OnReconnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

func (c *Connection) reconnected() {
	c.mu.RLock()
	hooks := slices.Clone(c.hooks)
	c.mu.RUnlock()

	for _, fn := range hooks {
		fn()
	}
}

// Channel returns the current channel
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Close closes the connection
func (c *Connection) Close() error {
	close(c.closeChan)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return nil
}

// Publisher publishes messages to RabbitMQ
type Publisher struct {
	conn     *Connection
	exchange string
	log      *logger.Logger
}

// NewPublisher creates a new publisher
func NewPublisher(conn *Connection, exchange string, log *logger.Logger) (*Publisher, error) {
	if err := declareExchange(conn.Channel(), exchange); err != nil {
		return nil, err
	}

	return &Publisher{
		conn:     conn,
		exchange: exchange,
		log:      log,
	}, nil
}

// Publish publishes a message
func (p *Publisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	traceID := logger.GetTraceID(ctx)

	err = p.conn.Channel().PublishWithContext(
		ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			Body:          body,
			DeliveryMode:  amqp.Persistent,
			Timestamp:     time.Now(),
			CorrelationId: traceID,
			Headers: amqp.Table{
				"x-trace-id": traceID,
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.log.WithContext(ctx).Debug("message published",
		zap.String("exchange", p.exchange),
		zap.String("routing_key", routingKey),
		zap.String("trace_id", traceID),
	)

	return nil
}

// permanentError marks a message that can never succeed
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the consumer dead-letters the message instead of
// requeueing it
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Consumer consumes messages from RabbitMQ
type Consumer struct {
	conn        *Connection
	queue       string
	exchange    string
	routingKeys []string
	log         *logger.Logger
	subscribe   func() (<-chan amqp.Delivery, error)
}

// NewConsumer declares the exchange, the queue with its dead-letter queue
// and the bindings, then returns a consumer for the queue
func NewConsumer(conn *Connection, queue, exchange string, routingKeys []string, log *logger.Logger) (*Consumer, error) {
	c := &Consumer{
		conn:        conn,
		queue:       queue,
		exchange:    exchange,
		routingKeys: routingKeys,
		log:         log,
	}
	if err := c.declare(conn.Channel()); err != nil {
		return nil, err
	}
	c.subscribe = c.subscribeChannel
	return c, nil
}

func (c *Consumer) declare(ch *amqp.Channel) error {
	dlx := c.exchange + ".dlx"

	if err := declareExchange(ch, c.exchange); err != nil {
		return err
	}
	if err := declareExchange(ch, dlx); err != nil {
		return err
	}

	// Dead-letter queue catches everything rejected from queue
	if _, err := ch.QueueDeclare(c.queue+".dlq", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead-letter queue: %w", err)
	}
	if err := ch.QueueBind(c.queue+".dlq", "#", dlx, false, nil); err != nil {
		return fmt.Errorf("failed to bind dead-letter queue: %w", err)
	}

	_, err := ch.QueueDeclare(
		c.queue, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		amqp.Table{
			"x-dead-letter-exchange": dlx,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, key := range c.routingKeys {
		if err := ch.QueueBind(c.queue, key, c.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue: %w", err)
		}
	}
	return nil
}

// subscribeChannel declares the topology on the current channel, which may
// belong to a fresh connection, and starts delivery
func (c *Consumer) subscribeChannel() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if err := c.declare(ch); err != nil {
		return nil, err
	}
	return ch.Consume(
		c.queue, // queue
		"",      // consumer
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
}

// MessageHandler is a function that handles a message
type MessageHandler func(ctx context.Context, body []byte) error

// Consume starts consuming messages and starts again after every reconnect
// until ctx is done. A handler error wrapped with Permanent dead-letters the
// message; any other error requeues it after a delay.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	if err := c.start(ctx, handler); err != nil {
		return err
	}

	c.conn.OnReconnect(func() {
		if ctx.Err() != nil {
			return
		}
		if err := c.start(ctx, handler); err != nil {
			c.log.Error("failed to restart consumer",
				zap.Error(err),
				zap.String("queue", c.queue),
			)
		}
	})
	return nil
}

func (c *Consumer) start(ctx context.Context, handler MessageHandler) error {
	msgs, err := c.subscribe()
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					c.log.Warn("delivery channel closed", zap.String("queue", c.queue))
					return
				}
				c.handle(ctx, msg, handler)
			}
		}
	}()

	c.log.Info("consumer started",
		zap.String("queue", c.queue),
		zap.Strings("routing_keys", c.routingKeys),
	)

	return nil
}

func (c *Consumer) handle(ctx context.Context, msg amqp.Delivery, handler MessageHandler) {
	traceID := ""
	if tid, ok := msg.Headers["x-trace-id"].(string); ok {
		traceID = tid
	}
	msgCtx := logger.WithTraceIDContext(ctx, traceID)

	c.log.WithContext(msgCtx).Debug("message received",
		zap.String("queue", c.queue),
		zap.String("routing_key", msg.RoutingKey),
		zap.String("trace_id", traceID),
	)

	err := handler(msgCtx, msg.Body)
	switch {
	case err == nil:
		msg.Ack(false)
	case IsPermanent(err):
		c.log.WithContext(msgCtx).Warn("message rejected",
			zap.Error(err),
			zap.String("queue", c.queue),
		)
		msg.Nack(false, false)
	default:
		c.log.WithContext(msgCtx).Error("failed to handle message",
			zap.Error(err),
			zap.String("queue", c.queue),
		)
		time.Sleep(retryDelay)
		msg.Nack(false, true)
	}
}
