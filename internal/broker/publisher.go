package broker

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/VytasKer/Fintegrate/internal/model"
)

// Options configures the RabbitMQ publisher.
type Options struct {
	URL            string
	Exchange       string // topic exchange, e.g. "customer_events"
	QueuePrefix    string // per-tenant queue name prefix
	DialTimeout    time.Duration
	Heartbeat      time.Duration
	QueueTTL       time.Duration // x-message-ttl on tenant main queues
	QueueMaxLength int64         // x-max-length on tenant main queues
}

func (o Options) withDefaults() Options {
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	if o.Heartbeat <= 0 {
		o.Heartbeat = 10 * time.Second
	}
	return o
}

// Publisher emits event envelopes to RabbitMQ. Each Publish dials a fresh
// connection, declares the tenant's topology, and publishes in confirm mode.
// The connection-per-publish model trades throughput for the absence of any
// cross-request channel sharing; the breaker keeps a dead broker from costing
// a full dial timeout on every attempt.
type Publisher struct {
	opts    Options
	breaker *MicroBreaker
	log     *zap.Logger
}

// NewPublisher constructs a Publisher. breaker may be nil to disable gating.
func NewPublisher(opts Options, breaker *MicroBreaker, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{opts: opts.withDefaults(), breaker: breaker, log: log}
}

// Available reports whether a publish attempt is currently worth making.
// Sweepers use it to short-circuit a run to all-skipped.
func (p *Publisher) Available() bool {
	return p.breaker == nil || p.breaker.Ready()
}

// Publish emits one envelope under the tenant-scoped routing key. A nil
// return means the broker acknowledged acceptance; it says nothing about
// consumer delivery. All failures come back as *broker.Error.
func (p *Publisher) Publish(ctx context.Context, env model.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return &Error{Reason: model.ReasonSerializationError, Detail: err.Error(), Err: err}
	}

	route := Route{TenantID: env.Metadata.TenantID, EventType: env.EventType}

	if p.breaker != nil && !p.breaker.TryAcquire() {
		return &Error{Reason: model.ReasonPublisherUnavailable, Detail: "broker circuit open"}
	}

	err = p.publishOnce(ctx, route, env.EventID, body)
	if p.breaker != nil {
		if err != nil {
			p.breaker.OnFailure()
		} else {
			p.breaker.OnSuccess()
		}
	}
	if err != nil {
		p.log.Warn("publish failed",
			zap.String("event_id", env.EventID),
			zap.String("routing_key", route.Key()),
			zap.Error(err))
	}
	return err
}

func (p *Publisher) publishOnce(ctx context.Context, route Route, eventID string, body []byte) error {
	conn, err := amqp.DialConfig(p.opts.URL, amqp.Config{
		Dial:      amqp.DefaultDial(p.opts.DialTimeout),
		Heartbeat: p.opts.Heartbeat,
	})
	if err != nil {
		return classify(err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return classify(err)
	}
	defer func() { _ = ch.Close() }()

	if err := DeclareTopology(ch, p.opts, route); err != nil {
		return classify(err)
	}

	if err := ch.Confirm(false); err != nil {
		return classify(err)
	}

	dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, p.opts.Exchange, route.Key(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    eventID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return classify(err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, p.opts.DialTimeout)
	defer cancel()
	acked, err := dc.WaitContext(waitCtx)
	if err != nil {
		return classify(err)
	}
	if !acked {
		return &Error{Reason: model.ReasonUnknown, Detail: "message nacked by broker"}
	}
	return nil
}

// DeclareTopology makes sure the exchange and the tenant's queue/DLQ pair
// exist. Declarations are idempotent; repeating them per publish is a no-op
// on the broker. The consumer runs the same declaration on startup so either
// side can come up first.
func DeclareTopology(ch *amqp.Channel, opts Options, route Route) error {
	dlx := opts.Exchange + ".dlx"

	if err := ch.ExchangeDeclare(opts.Exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(dlx, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	dlqName := DLQName(opts.QueuePrefix, route.TenantID)
	if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(dlqName, route.DLQKey(), dlx, false, nil); err != nil {
		return err
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    dlx,
		"x-dead-letter-routing-key": route.DLQKey(),
	}
	if opts.QueueTTL > 0 {
		args["x-message-ttl"] = opts.QueueTTL.Milliseconds()
	}
	if opts.QueueMaxLength > 0 {
		args["x-max-length"] = opts.QueueMaxLength
	}

	qName := QueueName(opts.QueuePrefix, route.TenantID)
	if _, err := ch.QueueDeclare(qName, true, false, false, false, args); err != nil {
		return err
	}
	return ch.QueueBind(qName, route.BindingKey(), opts.Exchange, false, nil)
}
