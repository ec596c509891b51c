package iot

import (
	"sync"

	"liyu1981.xyz/smart-farm-service/pkg/models"
)

// AlertBroker fans out committed alerts to live subscribers. Slow subscribers miss alerts
// instead of blocking ingestion. A nil broker is a no-op.
type AlertBroker struct {
	mu      sync.Mutex
	clients map[chan models.Alert]struct{}
}

func NewAlertBroker() *AlertBroker {
	return &AlertBroker{clients: make(map[chan models.Alert]struct{})}
}

func (b *AlertBroker) Subscribe() chan models.Alert {
	if b == nil {
		return nil
	}
	ch := make(chan models.Alert, 16)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *AlertBroker) Unsubscribe(ch chan models.Alert) {
	if b == nil || ch == nil {
		return
	}
	b.mu.Lock()
	_, ok := b.clients[ch]
	delete(b.clients, ch)
	b.mu.Unlock()
	if ok {
		close(ch)
	}
}

func (b *AlertBroker) Publish(alerts ...*models.Alert) {
	if b == nil {
		return
	}
	// sends never block, so holding the lock keeps Unsubscribe from closing a channel mid-send
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, alert := range alerts {
		if alert == nil {
			continue
		}
		for ch := range b.clients {
			select {
			case ch <- *alert:
			default:
			}
		}
	}
}

func (b *AlertBroker) Subscribers() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}
