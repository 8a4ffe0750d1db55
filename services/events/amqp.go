package events

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/flowtaskhq/flowtask/core"
)

const taskStatusRoutingKey = "task.status.changed"

// AMQPPublisher emits events to a topic exchange on RabbitMQ.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

var _ Publisher = (*AMQPPublisher)(nil)

func NewAMQPPublisher(conf *core.Config) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(conf.Broker.URL)
	if err != nil {
		return nil, errors.Wrap(err, "dialing broker")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "opening channel")
	}
	if err = ch.ExchangeDeclare(
		conf.Broker.Exchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrap(err, "declaring exchange")
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: conf.Broker.Exchange}, nil
}

func (p *AMQPPublisher) PublishTaskStatusChanged(ctx context.Context, evt TaskStatusChanged) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "marshalling event")
	}
	err = p.ch.PublishWithContext(
		ctx,
		p.exchange,
		taskStatusRoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    evt.ChangedAt,
			Body:         body,
		},
	)
	return errors.Wrap(err, "publishing event")
}

func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}
