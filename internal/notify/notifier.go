// Package notify delivers notifications to the outside world. Delivery is best
// effort: callers log failures and move on.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// Notifier sends one notification.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger *zap.Logger
	from   string
}

// NewLogNotifier builds a notifier that only logs.
func NewLogNotifier(logger *zap.Logger, from string) *LogNotifier {
	return &LogNotifier{logger: logger, from: from}
}

func (n *LogNotifier) Notify(_ context.Context, msg domain.Notification) error {
	n.logger.Info("notification",
		zap.String("kind", string(msg.Kind)),
		zap.String("from", n.from),
		zap.String("to", msg.Recipient),
		zap.String("subject", msg.Subject),
		zap.String("ticket_id", msg.TicketID))
	return nil
}

// Publisher is the slice of the broker connection the AMQP notifier needs.
type Publisher interface {
	Publish(ctx context.Context, msg amqp.Publishing) error
}

// AMQPNotifier hands notifications to the mail dispatcher through a queue.
type AMQPNotifier struct {
	publisher Publisher
	from      string
}

// NewAMQPNotifier builds a queue-backed notifier.
func NewAMQPNotifier(publisher Publisher, from string) *AMQPNotifier {
	return &AMQPNotifier{publisher: publisher, from: from}
}

type envelope struct {
	From string `json:"from"`
	domain.Notification
}

func (n *AMQPNotifier) Notify(ctx context.Context, msg domain.Notification) error {
	body, err := json.Marshal(envelope{From: n.from, Notification: msg})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return n.publisher.Publish(ctx, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   msg.ID,
		Type:        string(msg.Kind),
		Timestamp:   time.Now().UTC(),
		Body:        body,
	})
}

// Fanout delivers to every notifier and returns the first error.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, msg domain.Notification) error {
	var first error
	for _, n := range f {
		if err := n.Notify(ctx, msg); err != nil && first == nil {
			first = err
		}
	}
	return first
}
