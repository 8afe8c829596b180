package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher sends screening events to RabbitMQ.  Each publish dials its own
// connection, so a broker outage never blocks startup.  Errors are logged
// and returned; callers treat them as best effort.
type Publisher struct {
	url string
	log *logrus.Entry
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log *logrus.Entry) *Publisher {
	return &Publisher{url: url, log: log.WithField("component", "publisher")}
}

// defaultDialTimeout bounds the connection handshake when ctx has no deadline.
const defaultDialTimeout = 5 * time.Second

// dialTimeout returns the time left until ctx's deadline, or
// defaultDialTimeout when there is none.
func dialTimeout(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return defaultDialTimeout
	}
	if left := time.Until(deadline); left > 0 {
		return left
	}
	return time.Millisecond
}

// PublishScreeningScheduled publishes ev as a persistent message on the
// screening.scheduled queue.
func (p *Publisher) PublishScreeningScheduled(ctx context.Context, ev ScreeningScheduledEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout(ctx))})
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(ScreeningQueueName, true, false, false, false, nil); err != nil {
		p.log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", ScreeningQueueName, false, false, pub); err != nil {
		p.log.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}
