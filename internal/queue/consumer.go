package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Consumer drains the booking.confirmed and user.verification queues and
// appends one line per message to booking.log / verification.log in its
// log directory.
type Consumer struct {
	url      string
	logDir   string
	prefetch int

	mu sync.Mutex // serializes file appends
}

// NewConsumer returns a consumer for the broker at url writing into logDir.
func NewConsumer(url, logDir string) *Consumer {
	if logDir == "" {
		logDir = "logs"
	}
	return &Consumer{url: url, logDir: logDir, prefetch: 50}
}

// Run connects to the broker and consumes until ctx is cancelled.  Lost
// connections are re-established with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	log := logrus.WithField("component", "consumer")
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			log.WithError(err).WithField("retry_in", backoff.String()).Warn("failed to dial broker")
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		log.WithError(err).Warn("consume loop ended, reconnecting")
		if !sleepCtx(ctx, 2*time.Second) {
			return nil
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		logrus.WithError(err).Warn("consumer: set QoS failed")
	}

	deliveries := make(map[string]<-chan amqp.Delivery, 2)
	for _, name := range []string{QueueBookingConfirmed, QueueUserVerification} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.ConsumeWithContext(ctx, name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		deliveries[name] = msgs
	}

	bookings, verifications := deliveries[QueueBookingConfirmed], deliveries[QueueUserVerification]
	for {
		var (
			d  amqp.Delivery
			ok bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-bookings:
		case d, ok = <-verifications:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := c.handle(d.RoutingKey, d.Body); err != nil {
			logrus.WithError(err).WithField("queue", d.RoutingKey).Error("consumer: handle message failed")
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
}

// handle formats a message from queue and appends it to the matching log.
func (c *Consumer) handle(queue string, body []byte) error {
	var (
		file string
		line string
	)
	switch queue {
	case QueueBookingConfirmed:
		var ev BookingConfirmedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.BookingID == 0 || ev.SessionID == 0 {
			return errors.New("booking event without ids")
		}
		file = "booking.log"
		line = fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | session_id=%d | club=%q | name=%q | email=%q | phone=%q | starts=%s | ends=%s\n",
			ev.ConfirmedAt.UTC().Format(time.RFC3339), ev.BookingID, ev.SessionID, ev.ClubName, ev.Name, ev.Email, ev.Phone,
			ev.StartTime.UTC().Format(time.RFC3339), ev.EndTime.UTC().Format(time.RFC3339))
	case QueueUserVerification:
		var ev VerificationRequestedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.UserID == 0 || ev.Token == "" {
			return errors.New("verification event without user or token")
		}
		file = "verification.log"
		line = fmt.Sprintf("[%s] Verification requested | user_id=%d | email=%q | token=%s | expires=%s\n",
			time.Now().UTC().Format(time.RFC3339), ev.UserID, ev.Email, ev.Token, ev.ExpiresAt.UTC().Format(time.RFC3339))
	default:
		return fmt.Errorf("unknown queue %q", queue)
	}
	return c.appendLine(file, line)
}

func (c *Consumer) appendLine(name, line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(c.logDir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
