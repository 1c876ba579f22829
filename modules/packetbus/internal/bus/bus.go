package bus

import (
	"sync"
	"sync/atomic"
)

type subscriberHolder struct {
	id    string
	ch    chan<- Packet
	stats *SubscriberStats
}

type bus struct {
	mu             sync.RWMutex
	subscribers    map[string]*subscriberHolder
	totalPublished uint64
	closed         bool
}

// New creates a new packet bus instance
func New() Bus {
	return &bus{
		subscribers: make(map[string]*subscriberHolder),
	}
}

// Subscribe registers a channel. A full channel drops the packet for that
// subscriber only.
func (b *bus) Subscribe(id string, ch chan<- Packet) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}

	if ch == nil {
		return ErrNilChannel
	}

	b.subscribers[id] = &subscriberHolder{
		id:    id,
		ch:    ch,
		stats: &SubscriberStats{},
	}

	return nil
}

// Publish distributes the packet to all subscribers
func (b *bus) Publish(p Packet) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	p.Sequence = atomic.AddUint64(&b.totalPublished, 1)

	for _, holder := range b.subscribers {
		// Non-blocking send to channel
		select {
		case holder.ch <- p:
			atomic.AddUint64(&holder.stats.Sent, 1)
		default:
			atomic.AddUint64(&holder.stats.Dropped, 1)
		}
	}
}

// Unsubscribe removes a subscriber. The channel is left open; it belongs to
// the caller.
func (b *bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	if _, exists := b.subscribers[id]; !exists {
		return ErrSubscriberNotFound
	}

	delete(b.subscribers, id)
	return nil
}

// Stats returns aggregate and per-subscriber counters
func (b *bus) Stats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := BusStats{
		TotalPublished: atomic.LoadUint64(&b.totalPublished),
		Subscribers:    make(map[string]SubscriberStats, len(b.subscribers)),
	}
	for id, holder := range b.subscribers {
		s := SubscriberStats{
			Sent:    atomic.LoadUint64(&holder.stats.Sent),
			Dropped: atomic.LoadUint64(&holder.stats.Dropped),
		}
		stats.Subscribers[id] = s
		stats.TotalSent += s.Sent
		stats.TotalDropped += s.Dropped
	}
	return stats
}

// Close shuts down the bus. Publish becomes a no-op.
func (b *bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	b.subscribers = nil
}
