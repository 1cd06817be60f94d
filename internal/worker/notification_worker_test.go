package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/spec-kit/helpdesk/internal/domain"
)

type collectingNotifier struct {
	mu   sync.Mutex
	got  []domain.Notification
	fail bool
}

func (c *collectingNotifier) Notify(_ context.Context, n domain.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, n)
	if c.fail {
		return errors.New("delivery failed")
	}
	return nil
}

func TestWorkerDeliversQueuedNotifications(t *testing.T) {
	sink := &collectingNotifier{}
	w := NewNotificationWorker(sink, nil, 8)
	w.Start()

	for _, id := range []string{"a", "b", "c"} {
		if !w.Enqueue(domain.Notification{ID: id}) {
			t.Fatalf("enqueue %s rejected", id)
		}
	}
	w.Stop()

	if len(sink.got) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(sink.got))
	}
	for i, id := range []string{"a", "b", "c"} {
		if sink.got[i].ID != id {
			t.Errorf("delivery %d: got %s, want %s", i, sink.got[i].ID, id)
		}
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	w := NewNotificationWorker(&collectingNotifier{}, nil, 1)
	// not started: the single slot fills and the next enqueue must not block
	if !w.Enqueue(domain.Notification{ID: "1"}) {
		t.Fatal("first enqueue should fit")
	}
	if w.Enqueue(domain.Notification{ID: "2"}) {
		t.Fatal("second enqueue should be dropped")
	}
}

func TestEnqueueAfterStopIsRejected(t *testing.T) {
	w := NewNotificationWorker(&collectingNotifier{fail: true}, nil, 1)
	w.Start()
	w.Stop()
	if w.Enqueue(domain.Notification{ID: "late"}) {
		t.Fatal("enqueue after stop must be rejected")
	}
}
