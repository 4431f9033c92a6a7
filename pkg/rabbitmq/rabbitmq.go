package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"foodorder/internal/logger"

	amqp "github.com/streadway/amqp"
)

// NotificationQueue receives every order notification.
const NotificationQueue = "order_notifications"

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	mu           sync.Mutex // guards publishing on channel
	paymentQueue string
	log          *logger.Logger
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL          string
	PaymentQueue string
}

// NewClient connects to RabbitMQ, opens a channel and declares the queues it uses.
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, name := range []string{NotificationQueue, cfg.PaymentQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare %s: %w", name, err)
		}
	}

	log.Info("rabbitmq_connected", "", "RabbitMQ client connected", map[string]any{
		"queues": []string{NotificationQueue, cfg.PaymentQueue},
	})

	return &Client{
		conn:         conn,
		channel:      ch,
		paymentQueue: cfg.PaymentQueue,
		log:          log,
	}, nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Notification is the message body published for every order event.
type Notification struct {
	UserID     string         `json:"user_id"`
	Event      string         `json:"event"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Notify publishes a persistent notification to NotificationQueue.
func (c *Client) Notify(ctx context.Context, userID, event string, payload map[string]any) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(Notification{UserID: userID, Event: event, Payload: payload, OccurredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.channel.Publish("", NotificationQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event, err)
	}
	return nil
}

// PaymentResult is a payment gateway outcome delivered through the payment queue.
type PaymentResult struct {
	OrderID    string `json:"order_id"`
	Status     string `json:"status"`
	GatewayRef string `json:"gateway_ref"`
}

// PaymentResultHandler applies one payment result. Returning an error wrapped with
// Permanent drops the message; any other error requeues it.
type PaymentResultHandler func(ctx context.Context, result PaymentResult) error

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth redelivering.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var perm permanentError
	return errors.As(err, &perm)
}

// ConsumePaymentResults dispatches payment results to handler until ctx is done
// or the channel closes.
func (c *Client) ConsumePaymentResults(ctx context.Context, handler PaymentResultHandler) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(c.paymentQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.log.Info("payment_consumer_started", "", "Waiting for payment results", map[string]any{"queue": c.paymentQueue})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("payment result delivery channel closed")
			}
			c.dispatch(ctx, msg, handler)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, msg amqp.Delivery, handler PaymentResultHandler) {
	fields := map[string]any{"delivery_tag": msg.DeliveryTag}

	var result PaymentResult
	if err := json.Unmarshal(msg.Body, &result); err != nil || result.OrderID == "" {
		if err == nil {
			err = fmt.Errorf("order_id missing")
		}
		c.log.Warn("payment_result_rejected", "", "Malformed payment result dropped", err, fields)
		if nackErr := msg.Nack(false, false); nackErr != nil {
			c.log.Error("payment_result_nack", "", "Error nacking message", nackErr, fields)
		}
		return
	}

	fields["order_id"] = result.OrderID
	if err := handler(ctx, result); err != nil {
		requeue := !IsPermanent(err)
		c.log.Warn("payment_result_failed", "", "Error processing payment result", err, fields)
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			c.log.Error("payment_result_nack", "", "Error nacking message", nackErr, fields)
		}
		return
	}

	if ackErr := msg.Ack(false); ackErr != nil {
		c.log.Error("payment_result_ack", "", "Error acking message", ackErr, fields)
	}
}
