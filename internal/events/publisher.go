package events

import (
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// OrderEvent is the lifecycle record published for external consumers
// (email workers, analytics) alongside the in-process notification hub.
type OrderEvent struct {
	OrderID       string    `json:"order_id"`
	UserID        string    `json:"user_id"`
	Type          string    `json:"type"` // created, payment_pending, paid, payment_status, delivery_status
	PaymentStatus string    `json:"payment_status,omitempty"`
	Delivery      string    `json:"delivery,omitempty"`
	TotalCents    int64     `json:"total_cents"`
	Occurred      time.Time `json:"occurred"`
}

// Publisher fans order lifecycle events out on a fanout exchange. A nil
// Publisher is valid and drops everything, so the event feed stays optional.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// Connect dials the broker and declares the exchange.
func Connect(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"fanout",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// Publish sends ev fire-and-forget; delivery failures are the caller's to
// log, never to propagate.
func (p *Publisher) Publish(ev OrderEvent) error {
	if p == nil {
		return nil
	}
	if ev.Occurred.IsZero() {
		ev.Occurred = time.Now().UTC()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return p.channel.Publish(
		p.exchange,
		"",
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			Timestamp:    ev.Occurred,
			ContentType:  "application/json",
			Body:         body,
		},
	)
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
