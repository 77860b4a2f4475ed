package events

import (
	"log/slog"
	"sync"
	"time"
)

const subscriberBuffer = 32

// Bus fans notifications out to subscribers. Publishing never blocks; a
// subscriber that falls behind loses notifications.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[chan Notification]struct{}
	now         func() time.Time
}

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[chan Notification]struct{}),
		now:         time.Now,
	}
}

// Subscribe returns a channel of notifications and a function to unsubscribe.
// The channel is closed by unsubscribe.
func (b *Bus) Subscribe() (<-chan Notification, func()) {
	ch := make(chan Notification, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish stamps n and delivers it to every subscriber.
func (b *Bus) Publish(n Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = b.now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- n:
		default:
			slog.Warn("Notification channel full, dropping notification", slog.String("type", string(n.Type)))
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
