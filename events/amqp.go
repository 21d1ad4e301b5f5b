// SPDX-License-Identifier: GPL-3.0-only

package events

import (
	"context"
	"devtrust-server/commons"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const exchangeName = "devtrust.events"

// AMQPDispatcher publishes lifecycle events to a topic exchange, one routing
// key per event type. Consumers (the webhook delivery workers) bind their own
// queues; this side neither declares nor drains them.
type AMQPDispatcher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAMQPDispatcher(amqpURL string) (*AMQPDispatcher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := channel.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}
	commons.Logger.Infof("AMQP dispatcher connected, exchange: %s", exchangeName)
	return &AMQPDispatcher{conn: conn, channel: channel}, nil
}

func (d *AMQPDispatcher) Publish(ctx context.Context, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		commons.Logger.Error("Failed to marshal event: ", err)
		return
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err = d.channel.PublishWithContext(publishCtx, exchangeName, event.Type, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   event.OccurredAt,
		Body:        body,
	})
	if err != nil {
		commons.Logger.Errorf("Failed to publish event %s: %v", event.Type, err)
	}
}

func (d *AMQPDispatcher) Close() {
	if d.channel != nil {
		d.channel.Close()
	}
	if d.conn != nil {
		d.conn.Close()
	}
}
