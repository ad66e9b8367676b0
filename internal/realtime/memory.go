package realtime

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// MemoryBroker delivers events to subscribers of the same process
type MemoryBroker struct {
	items    chan Event
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers map[string]map[uint64]Handler
	nextID   uint64
	wg       sync.WaitGroup
}

// NewMemoryBroker creates a broker buffering up to bufferSize undelivered events
func NewMemoryBroker(bufferSize int, logger *logrus.Logger) *MemoryBroker {
	if logger == nil {
		logger = logrus.New()
	}
	return &MemoryBroker{
		items:    make(chan Event, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make(map[string]map[uint64]Handler),
	}
}

// Publish queues an event for delivery
func (b *MemoryBroker) Publish(ctx context.Context, evt Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBrokerClosed
	}

	// Non-blocking send to prevent deadlocks
	select {
	case b.items <- evt:
		b.logger.WithField("topic", evt.Topic).Debug("Published event")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBrokerFull
	}
}

// Subscribe registers a handler for every event published on topic
func (b *MemoryBroker) Subscribe(topic string, handler Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}

	b.nextID++
	id := b.nextID
	if b.handlers[topic] == nil {
		b.handlers[topic] = make(map[uint64]Handler)
	}
	b.handlers[topic][id] = handler

	return &memorySubscription{broker: b, topic: topic, id: id}, nil
}

// Start begins dispatching queued events
func (b *MemoryBroker) Start() {
	b.wg.Add(1)
	go b.process()
}

func (b *MemoryBroker) process() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case evt := <-b.items:
			b.dispatch(evt)
		}
	}
}

// dispatch hands the event to every handler of its topic
func (b *MemoryBroker) dispatch(evt Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[evt.Topic]))
	for _, h := range b.handlers[evt.Topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.safeCall(handler, evt)
	}
}

func (b *MemoryBroker) safeCall(handler Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithField("topic", evt.Topic).Errorf("Subscriber panicked: %v", r)
		}
	}()
	handler(evt)
}

func (b *MemoryBroker) unsubscribe(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers[topic], id)
	if len(b.handlers[topic]) == 0 {
		delete(b.handlers, topic)
	}
}

// Close stops dispatching and rejects further publishes
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

// Len returns the number of events waiting for dispatch
func (b *MemoryBroker) Len() int {
	return len(b.items)
}

// SubscriberCount returns the number of live handlers on topic
func (b *MemoryBroker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}

func (b *MemoryBroker) IsClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

type memorySubscription struct {
	broker *MemoryBroker
	topic  string
	id     uint64
	once   sync.Once
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.broker.unsubscribe(s.topic, s.id)
	})
	return nil
}
