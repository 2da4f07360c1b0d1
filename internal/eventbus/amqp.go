package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"orderflow/internal/event"
	"orderflow/internal/pkg/config"
	"orderflow/internal/pkg/errs"

	amqp "github.com/rabbitmq/amqp091-go"
)

const exchangeType = "topic"

// AMQPBus is a Bus backed by a RabbitMQ topic exchange. Subjects map
// directly to routing keys, so subscribe-by-pattern is the exchange's
// native binding semantics. Each subscriber group gets its own durable
// queue; two groups bound to the same subject each receive a copy.
// Deliveries are manually acked; retryable handler failures are nacked
// with requeue.
type AMQPBus struct {
	cfg    config.BrokerConfig
	logger *slog.Logger

	conn    *amqp.Connection
	channel *amqp.Channel

	mu     sync.Mutex
	groups map[string]map[string]Handler

	done chan struct{}
}

func NewAMQPBus(cfg config.BrokerConfig, logger *slog.Logger) (*AMQPBus, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, errs.Wrap(err, "failed to connect to broker")
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errs.Wrap(err, "failed to open channel")
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		exchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, errs.Wrap(err, "failed to declare exchange")
	}

	return &AMQPBus{
		cfg:     cfg,
		logger:  logger,
		conn:    conn,
		channel: ch,
		groups:  map[string]map[string]Handler{},
		done:    make(chan struct{}),
	}, nil
}

func (b *AMQPBus) Subscribe(group, subject string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.groups[group] == nil {
		b.groups[group] = map[string]Handler{}
	}
	b.groups[group][subject] = h
}

func (b *AMQPBus) Start(_ context.Context) error {
	b.mu.Lock()
	groups := make(map[string]map[string]Handler, len(b.groups))
	for g, handlers := range b.groups {
		groups[g] = handlers
	}
	b.mu.Unlock()

	for group, handlers := range groups {
		if err := b.startGroup(group, handlers); err != nil {
			return err
		}
	}
	return nil
}

func (b *AMQPBus) startGroup(group string, handlers map[string]Handler) error {
	queueName := b.cfg.Queue + "." + group + ".queue"

	queue, err := b.channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return errs.Wrapf(err, "failed to declare queue %s", queueName)
	}

	for subject := range handlers {
		if err := b.channel.QueueBind(queue.Name, subject, b.cfg.Exchange, false, nil); err != nil {
			return errs.Wrapf(err, "failed to bind queue to %s", subject)
		}
		b.logger.Info("subscribed", "group", group, "subject", subject, "queue", queue.Name)
	}

	msgs, err := b.channel.Consume(
		queue.Name,
		b.cfg.Queue+"."+group, // consumer tag
		false,                 // auto-ack
		false,                 // exclusive
		false,                 // no-local
		false,                 // no-wait
		nil,
	)
	if err != nil {
		return errs.Wrapf(err, "failed to register consumer for %s", group)
	}

	go b.consume(group, handlers, msgs)
	return nil
}

func (b *AMQPBus) consume(group string, handlers map[string]Handler, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-b.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			// Each delivery is an independent task; a slow handler
			// must not block the stream.
			go b.dispatch(group, handlers, msg)
		}
	}
}

func (b *AMQPBus) dispatch(group string, handlers map[string]Handler, msg amqp.Delivery) {
	e, err := event.Unmarshal(msg.Body)
	if err != nil {
		b.logger.Warn("discarding undecodable delivery",
			"group", group, "routing_key", msg.RoutingKey, "error", err.Error())
		_ = msg.Nack(false, false)
		return
	}

	h, ok := handlers[msg.RoutingKey]
	if !ok {
		h, ok = handlers[e.Subject()]
	}
	if !ok {
		b.logger.Warn("no handler for subject", "group", group, "subject", e.Subject())
		_ = msg.Nack(false, false)
		return
	}

	switch err := h(context.Background(), e); {
	case err == nil:
		_ = msg.Ack(false)
	case errors.Is(err, ErrRetryable):
		b.logger.Warn("requeueing event after retryable failure",
			"group", group, "subject", e.Subject(), "event_id", e.ID, "error", err.Error())
		_ = msg.Nack(false, true)
	case errors.Is(err, event.ErrValidation):
		b.logger.Warn("dropping invalid event",
			"group", group, "subject", e.Subject(), "event_id", e.ID, "error", err.Error())
		_ = msg.Ack(false)
	default:
		b.logger.Error("dropping event after handler failure",
			"group", group, "subject", e.Subject(), "event_id", e.ID, "error", err.Error())
		_ = msg.Ack(false)
	}
}

func (b *AMQPBus) Publish(_ context.Context, e event.Event) error {
	body, err := e.Marshal()
	if err != nil {
		return err
	}

	err = b.channel.Publish(
		b.cfg.Exchange,
		e.Subject(),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    e.ID,
			AppId:        e.Source,
		},
	)
	if err != nil {
		return errs.Wrap(err, "failed to publish event")
	}
	return nil
}

func (b *AMQPBus) Close(_ context.Context) error {
	close(b.done)
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
