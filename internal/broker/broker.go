// Package broker fans newly appended events out to per-symbol subscribers.
package broker

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/liqwatch/liqhub/internal/domain"
)

// DefaultSubscriberBuffer is each subscriber's send-buffer size. A subscriber
// whose buffer is full when an event arrives is dropped.
const DefaultSubscriberBuffer = 64

// Subscriber is one downstream consumer. Events arrive on C in store append
// order; Done is closed when the broker removes the subscriber.
type Subscriber struct {
	symbols []string
	events  chan domain.Event
	done    chan struct{}
	once    sync.Once
}

// Events returns the delivery channel.
func (s *Subscriber) Events() <-chan domain.Event { return s.events }

// Done is closed once the subscriber has been removed from all symbol sets.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

// FanoutBroker maps uppercase symbols to subscriber sets. Delivery is
// best-effort, at-most-once and runs outside the registry lock.
type FanoutBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscriber]struct{}
	logger *zap.Logger
}

// New creates an empty broker.
func New(logger *zap.Logger) *FanoutBroker {
	return &FanoutBroker{
		subs:   make(map[string]map[*Subscriber]struct{}),
		logger: logger,
	}
}

// Subscribe registers a consumer for the given symbols (case-insensitive).
func (b *FanoutBroker) Subscribe(symbols []string) *Subscriber {
	sub := &Subscriber{
		events: make(chan domain.Event, DefaultSubscriberBuffer),
		done:   make(chan struct{}),
	}
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		sub.symbols = append(sub.symbols, s)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range sub.symbols {
		set := b.subs[s]
		if set == nil {
			set = make(map[*Subscriber]struct{})
			b.subs[s] = set
		}
		set[sub] = struct{}{}
	}
	return sub
}

// Unsubscribe removes the consumer from every symbol set and closes Done.
func (b *FanoutBroker) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	b.remove(sub)
	b.mu.Unlock()
}

// remove detaches sub from all its symbol sets. Callers hold b.mu.
func (b *FanoutBroker) remove(sub *Subscriber) {
	for _, s := range sub.symbols {
		if set := b.subs[s]; set != nil {
			delete(set, sub)
			if len(set) == 0 {
				delete(b.subs, s)
			}
		}
	}
	sub.close()
}

// Notify delivers the event to every subscriber of its symbol. The
// subscriber set is snapshotted under the read lock; sends happen outside
// it and never block. A subscriber that cannot keep up is silently removed.
func (b *FanoutBroker) Notify(e domain.Event) {
	symbol := strings.ToUpper(e.Symbol)

	b.mu.RLock()
	set := b.subs[symbol]
	targets := make([]*Subscriber, 0, len(set))
	for sub := range set {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	var stalled []*Subscriber
	for _, sub := range targets {
		select {
		case sub.events <- e:
		default:
			stalled = append(stalled, sub)
		}
	}

	if len(stalled) > 0 {
		b.mu.Lock()
		for _, sub := range stalled {
			b.remove(sub)
		}
		b.mu.Unlock()
		b.logger.Warn("dropped slow subscribers",
			zap.String("symbol", symbol),
			zap.Int("count", len(stalled)))
	}
}

// SubscriberCount returns the number of subscribers for a symbol.
func (b *FanoutBroker) SubscriberCount(symbol string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[strings.ToUpper(symbol)])
}
