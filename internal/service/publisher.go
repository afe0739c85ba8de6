// Package service publishes domain events to RabbitMQ.  Publishing is best
// effort: errors are logged and returned so callers may ignore them without
// interrupting the request flow.
package service

//go:generate mockgen -destination=mocks/mock_publisher.go -package=mocks github.com/iliyamo/openmat-booking/internal/service EventPublisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/iliyamo/openmat-booking/internal/metrics"
	"github.com/iliyamo/openmat-booking/internal/queue"
)

const (
	// dialTimeout bounds the TCP connect and AMQP handshake when the caller's
	// context carries no deadline.
	dialTimeout = 5 * time.Second
	// redialDelay is how long a failed dial keeps further publishes from
	// trying again.
	redialDelay = 5 * time.Second
)

// ErrBrokerUnavailable is returned without dialing while a previous dial
// failure is still recent.
var ErrBrokerUnavailable = errors.New("rabbitmq: broker unavailable")

// EventPublisher is implemented by Publisher and NopPublisher.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
	PublishVerificationRequested(ctx context.Context, ev queue.VerificationRequestedEvent) error
}

// Publisher sends persistent JSON messages to durable queues on the default
// exchange.  The connection is opened on first use and re-opened after a
// failure.
type Publisher struct {
	url string
	m   *metrics.Metrics

	mu          sync.Mutex
	conn        *amqp.Connection
	ch          *amqp.Channel
	declared    map[string]bool
	redialDelay time.Duration
	retryAt     time.Time
}

func NewPublisher(url string, m *metrics.Metrics) *Publisher {
	return &Publisher{url: url, m: m, declared: map[string]bool{}, redialDelay: redialDelay}
}

func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	return p.publishJSON(ctx, queue.QueueBookingConfirmed, ev)
}

func (p *Publisher) PublishVerificationRequested(ctx context.Context, ev queue.VerificationRequestedEvent) error {
	return p.publishJSON(ctx, queue.QueueUserVerification, ev)
}

// channel returns an open channel, dialing when needed.  The dial and the
// AMQP handshake end no later than ctx's deadline.  Callers hold p.mu.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if time.Now().Before(p.retryAt) {
		return nil, ErrBrokerUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      contextDialer(ctx),
	})
	if err != nil {
		p.retryAt = time.Now().Add(p.redialDelay)
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

// contextDialer connects within ctx and sets the socket deadline the AMQP
// handshake runs under.  amqp clears the deadline once the connection is open.
func contextDialer(ctx context.Context) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		deadline, ok := ctx.Deadline()
		if !ok {
			deadline = time.Now().Add(dialTimeout)
		}
		d := net.Dialer{Deadline: deadline}
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

// reset drops the current connection.  Callers hold p.mu.
func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
	p.declared = map[string]bool{}
}

func (p *Publisher) publishJSON(ctx context.Context, queueName string, v any) (err error) {
	defer func() {
		p.m.ObservePublish(queueName, err)
		if err != nil {
			logrus.WithError(err).WithField("queue", queueName).Warn("rabbitmq: publish failed")
		}
	}()

	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// trace context travels in the message headers
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := amqp.Table{}
	for k, val := range carrier {
		headers[k] = val
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	if !p.declared[queueName] {
		// Durable so messages survive broker restarts.
		if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
			p.reset()
			return fmt.Errorf("queue declare: %w", err)
		}
		p.declared[queueName] = true
	}

	pub := amqp.Publishing{
		Headers:      headers,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		p.reset()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

// NopPublisher drops every event.  It is used when the broker is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishBookingConfirmed(context.Context, queue.BookingConfirmedEvent) error {
	return nil
}

func (NopPublisher) PublishVerificationRequested(context.Context, queue.VerificationRequestedEvent) error {
	return nil
}
