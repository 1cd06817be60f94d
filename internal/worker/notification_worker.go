package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/notify"
)

const deliveryTimeout = 5 * time.Second

// NotificationWorker delivers notifications off the request path. Enqueue never
// blocks; when the buffer is full the notification is dropped and logged.
type NotificationWorker struct {
	notifier notify.Notifier
	logger   *zap.Logger
	queue    chan domain.Notification
	wg       sync.WaitGroup
	once     sync.Once
}

// NewNotificationWorker builds a worker with the given buffer size.
func NewNotificationWorker(notifier notify.Notifier, logger *zap.Logger, buffer int) *NotificationWorker {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		notifier: notifier,
		logger:   logger,
		queue:    make(chan domain.Notification, buffer),
	}
}

// Start launches the delivery goroutine. It exits when Stop is called and the
// buffer has drained.
func (w *NotificationWorker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for n := range w.queue {
			w.deliver(n)
		}
	}()
}

// Enqueue schedules a notification and reports whether it was accepted.
func (w *NotificationWorker) Enqueue(n domain.Notification) (accepted bool) {
	defer func() {
		// send on a closed queue after Stop
		if recover() != nil {
			accepted = false
		}
	}()
	select {
	case w.queue <- n:
		return true
	default:
		w.logger.Warn("notification queue full; dropping",
			zap.String("kind", string(n.Kind)),
			zap.String("ticket_id", n.TicketID))
		return false
	}
}

// Stop closes the queue and waits for pending deliveries.
func (w *NotificationWorker) Stop() {
	w.once.Do(func() { close(w.queue) })
	w.wg.Wait()
}

func (w *NotificationWorker) deliver(n domain.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	if err := w.notifier.Notify(ctx, n); err != nil {
		w.logger.Warn("notification delivery failed",
			zap.String("kind", string(n.Kind)),
			zap.String("recipient", n.Recipient),
			zap.Error(err))
	}
}
