package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

// ErrBrokerUnavailable is returned while the broker is down and the next
// redial attempt is not due yet.
var ErrBrokerUnavailable = errors.New("rabbitmq unavailable")

const (
	redialMinDelay = time.Second
	redialMaxDelay = 30 * time.Second
)

// redialBackoff spaces out reconnect attempts, doubling up to redialMaxDelay.
type redialBackoff struct {
	delay time.Duration
	next  time.Time
}

func (b *redialBackoff) allow(now time.Time) bool {
	return !now.Before(b.next)
}

func (b *redialBackoff) failed(now time.Time) {
	switch {
	case b.delay == 0:
		b.delay = redialMinDelay
	case b.delay < redialMaxDelay:
		b.delay *= 2
		if b.delay > redialMaxDelay {
			b.delay = redialMaxDelay
		}
	}
	b.next = now.Add(b.delay)
}

func (b *redialBackoff) reset() {
	b.delay = 0
	b.next = time.Time{}
}

// RabbitMQ holds a broker connection and one publishing channel. The queue is
// declared durable so queued notifications survive broker restarts. A dropped
// connection is redialed lazily by the next Publish.
type RabbitMQ struct {
	mu     sync.Mutex
	url    string
	queue  string
	logger *zap.Logger
	now    func() time.Time

	conn       *amqp.Connection
	channel    *amqp.Channel
	connClosed chan *amqp.Error
	chanClosed chan *amqp.Error
	retry      redialBackoff
	shutdown   bool
}

// NewRabbitMQ dials the broker when a URL is configured. An empty URL returns a
// nil handle and notifications stay in the log sink.
func NewRabbitMQ(cfg config.NotificationConfig, logger *zap.Logger) (*RabbitMQ, error) {
	if cfg.AMQPURL == "" {
		logger.Info("NOTIFY_AMQP_URL not provided; notifications will be logged only")
		return nil, nil
	}
	r := &RabbitMQ{url: cfg.AMQPURL, queue: cfg.Queue, logger: logger, now: time.Now}
	if err := r.connectLocked(); err != nil {
		return nil, err
	}
	logger.Info("connected to rabbitmq", zap.String("queue", cfg.Queue))
	return r, nil
}

func (r *RabbitMQ) connectLocked() error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(r.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare queue %s: %w", r.queue, err)
	}
	r.conn = conn
	r.channel = ch
	r.connClosed = conn.NotifyClose(make(chan *amqp.Error, 1))
	r.chanClosed = ch.NotifyClose(make(chan *amqp.Error, 1))
	return nil
}

// connectedLocked reports whether the current channel is usable and forgets
// it once the broker has closed either end.
func (r *RabbitMQ) connectedLocked() bool {
	if r.channel == nil {
		return false
	}
	select {
	case err := <-r.connClosed:
		r.dropLocked(err)
		return false
	case err := <-r.chanClosed:
		r.dropLocked(err)
		return false
	default:
		return true
	}
}

func (r *RabbitMQ) dropLocked(cause *amqp.Error) {
	if cause != nil {
		r.logger.Warn("rabbitmq connection lost", zap.String("reason", cause.Reason), zap.Int("code", cause.Code))
	}
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
	r.conn, r.channel = nil, nil
	r.connClosed, r.chanClosed = nil, nil
}

// Publish sends a persistent message to the configured queue through the
// default exchange, redialing first when the connection was lost.
func (r *RabbitMQ) Publish(ctx context.Context, msg amqp.Publishing) error {
	if r == nil {
		return errors.New("rabbitmq not configured")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shutdown {
		return errors.New("rabbitmq closed")
	}

	if !r.connectedLocked() {
		now := r.now()
		if !r.retry.allow(now) {
			return ErrBrokerUnavailable
		}
		if err := r.connectLocked(); err != nil {
			r.retry.failed(now)
			r.logger.Warn("rabbitmq redial failed", zap.Error(err), zap.Duration("retry_in", r.retry.delay))
			return err
		}
		r.retry.reset()
		r.logger.Info("reconnected to rabbitmq", zap.String("queue", r.queue))
	}

	msg.DeliveryMode = amqp.Persistent
	err := r.channel.PublishWithContext(ctx, "", r.queue, false, false, msg)
	if errors.Is(err, amqp.ErrClosed) {
		r.dropLocked(nil)
	}
	return err
}

// Status reports "disabled", "ok" or "reconnecting" for readiness output.
func (r *RabbitMQ) Status() string {
	if r == nil {
		return "disabled"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connectedLocked() {
		return "ok"
	}
	return "reconnecting"
}

// Close releases the channel and connection.
func (r *RabbitMQ) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdown = true
	r.dropLocked(nil)
}
