package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/VytasKer/Fintegrate/internal/broker"
	"github.com/VytasKer/Fintegrate/internal/model"
)

// PermanentError marks a processing failure that retrying cannot fix
// (malformed payload, missing required field). The consumer routes such
// messages straight to the DLQ.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the consumer treats it as non-retryable.
func Permanent(err error) error { return &PermanentError{Err: err} }

func isPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

type action int

const (
	actionAck action = iota
	actionDeadLetter
	actionRetry
)

// decide maps a handler outcome onto the ack/retry/dead-letter choice.
// retryCount is the count already carried in the envelope: counts below
// maxRetries get another in-band retry, counts at or above it dead-letter.
func decide(err error, retryCount, maxRetries int) action {
	switch {
	case err == nil:
		return actionAck
	case isPermanent(err) || retryCount >= maxRetries:
		return actionDeadLetter
	default:
		return actionRetry
	}
}

// Handler processes one decoded event. Return nil on success, a
// PermanentError to dead-letter immediately, any other error for a bounded
// in-band retry.
type Handler func(ctx context.Context, env model.Envelope) error

// Confirmer reports delivery outcomes back to the receipt tracker.
type Confirmer interface {
	Confirm(ctx context.Context, eventID string, status model.ProcessingStatus, failureReason *string) error
}

// Consumer subscribes to one tenant's queue and drives the bounded in-band
// retry loop: below MaxRetries a transiently failing message is republished
// to the same queue with an incremented envelope retry count; at the ceiling
// (or on a permanent error) it is nacked without requeue, which dead-letters
// it into the tenant's DLQ.
//
// The delivery receipt table is idempotent per event_id, but the business
// effect of Handler is not guaranteed idempotent by this process: a slow
// consumer racing a redelivery sweep can process the same event twice.
// Handlers must tolerate that.
type Consumer struct {
	Opts       broker.Options
	TenantID   string
	Name       string // consumer name, reported with receipts
	MaxRetries int    // in-band retry ceiling, default 3
	Handler    Handler
	Confirmer  Confirmer
	Log        *zap.Logger
}

// Run blocks consuming the tenant queue until ctx is cancelled or the
// connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	if c.TenantID == "" {
		return errors.New("consumer: tenant id is required")
	}
	if c.Handler == nil {
		return errors.New("consumer: handler is required")
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.Log == nil {
		c.Log = zap.NewNop()
	}

	conn, err := amqp.DialConfig(c.Opts.URL, amqp.Config{
		Dial:      amqp.DefaultDial(c.Opts.DialTimeout),
		Heartbeat: c.Opts.Heartbeat,
	})
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	route := broker.Route{TenantID: c.TenantID, EventType: "customer_event"}
	if err := broker.DeclareTopology(ch, c.Opts, route); err != nil {
		return err
	}

	if err := ch.Qos(16, 0, false); err != nil {
		return err
	}

	queue := broker.QueueName(c.Opts.QueuePrefix, c.TenantID)
	deliveries, err := ch.Consume(queue, c.Name, false, false, false, false, nil)
	if err != nil {
		return err
	}

	c.Log.Info("consumer started",
		zap.String("queue", queue),
		zap.String("tenant_id", c.TenantID))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("consumer: delivery channel closed")
			}
			c.handle(ctx, ch, queue, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, ch *amqp.Channel, queue string, d amqp.Delivery) {
	var env model.Envelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		// undecodable body: dead-letter and report, nothing to retry
		c.Log.Error("malformed message, dead-lettering", zap.Error(err))
		_ = d.Nack(false, false)
		c.confirm(ctx, d.MessageId, model.ProcessingFailed, "malformed payload: "+err.Error())
		return
	}

	err := c.Handler(ctx, env)
	switch decide(err, env.Metadata.RetryCount, c.MaxRetries) {
	case actionAck:
		_ = d.Ack(false)
		c.confirm(ctx, env.EventID, model.ProcessingProcessed, "")
		return
	case actionDeadLetter:
		c.Log.Warn("dead-lettering message",
			zap.String("event_id", env.EventID),
			zap.Int("retry_count", env.Metadata.RetryCount),
			zap.Error(err))
		_ = d.Nack(false, false)
		c.confirm(ctx, env.EventID, model.ProcessingFailed, err.Error())
		return
	}

	// transient failure below the ceiling: republish to the same queue with
	// an incremented retry count, then ack the original
	env.Metadata.RetryCount++
	if pubErr := c.republish(ctx, ch, queue, env); pubErr != nil {
		c.Log.Error("republish for retry failed, requeueing original",
			zap.String("event_id", env.EventID),
			zap.Error(pubErr))
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
	c.Log.Info("scheduled in-band retry",
		zap.String("event_id", env.EventID),
		zap.Int("retry_count", env.Metadata.RetryCount))
}

func (c *Consumer) republish(ctx context.Context, ch *amqp.Channel, queue string, env model.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	// default exchange routes directly to the queue by name
	return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.EventID,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

func (c *Consumer) confirm(ctx context.Context, eventID string, status model.ProcessingStatus, failureReason string) {
	if c.Confirmer == nil || eventID == "" {
		return
	}
	var reason *string
	if failureReason != "" {
		reason = &failureReason
	}
	if err := c.Confirmer.Confirm(ctx, eventID, status, reason); err != nil {
		// the redeliver sweeper repairs gaps a lost confirmation leaves
		c.Log.Warn("delivery confirmation failed",
			zap.String("event_id", eventID),
			zap.Error(err))
	}
}
