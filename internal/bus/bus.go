// Package bus fans session updates out to subscribers in-process.
package bus

import (
	"log/slog"
	"sync"

	"kanad/internal/domain"
)

// InMemoryBus delivers every published update to all current subscribers.
// A slow subscriber's updates are dropped rather than blocking the
// publisher; transcript state is always re-fetchable from the store.
type InMemoryBus struct {
	mu      sync.RWMutex
	subs    map[int]chan domain.Update
	nextID  int
	bufSize int
	closed  bool
	logger  *slog.Logger
}

// New creates a bus with the given per-subscriber buffer size.
func New(bufferSize int, logger *slog.Logger) *InMemoryBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryBus{
		subs:    make(map[int]chan domain.Update),
		bufSize: bufferSize,
		logger:  logger,
	}
}

// Publish delivers the update to every subscriber without blocking.
func (b *InMemoryBus) Publish(u domain.Update) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("attempted to publish to closed bus")
		return
	}

	for id, ch := range b.subs {
		select {
		case ch <- u:
		default:
			b.logger.Warn("subscriber buffer full, dropping update",
				"subscriber", id,
				"workspace", u.Workspace,
			)
		}
	}
}

// Subscribe registers a new subscriber. The returned cancel function
// removes the subscription and closes the channel.
func (b *InMemoryBus) Subscribe() (<-chan domain.Update, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan domain.Update, b.bufSize)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

// Close shuts the bus down and closes every subscriber channel.
func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
