// Package rabbitmq содержит подключение к RabbitMQ и публикацию событий
// жизненного цикла подписок для внешнего диспетчера уведомлений.
package rabbitmq

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// EventsExchange — exchange, в который публикуются события жизненного цикла.
const EventsExchange = "subscription.events"

// QueueConfig описывает очередь и её ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetEventQueues возвращает очереди диспетчера уведомлений.
// Ключ маршрутизации совпадает с типом события.
func GetEventQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.created", RoutingKey: "created"},
		{QueueName: "notification.renewed", RoutingKey: "renewed"},
		{QueueName: "notification.cancelled", RoutingKey: "cancelled"},
		{QueueName: "notification.trial_ended", RoutingKey: "trial_ended"},
		{QueueName: "notification.plan_changed", RoutingKey: "plan_changed"},
		{QueueName: "notification.expired", RoutingKey: "expired"},
		{QueueName: "notification.payment_failed", RoutingKey: "payment_failed"},
		{QueueName: "notification.usage_warning", RoutingKey: "usage_warning"},
		{QueueName: "notification.usage_exceeded", RoutingKey: "usage_exceeded"},
	}
}

// Connect устанавливает соединение с RabbitMQ с повторными попытками.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	var conn *amqp.Connection
	var err error

	for range retries {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel открывает канал, объявляет exchange событий и связывает очереди.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	err = ch.ExchangeDeclare(
		EventsExchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		err = ch.QueueBind(
			q.QueueName,
			q.RoutingKey,
			EventsExchange,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
