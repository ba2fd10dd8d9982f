package broadcast

import (
	"context"
	"sync"
)

// MemoryBroker is an in-process Broker for tests and single-process runs.
// Delivery is synchronous: Publish invokes every subscribed handler for the
// session (the publisher's own included) before returning, so handlers must
// not block and must not publish while holding locks they also take on
// receipt.
type MemoryBroker struct {
	mu     sync.RWMutex
	topics map[string][]*memoryTopic
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		topics: make(map[string][]*memoryTopic),
	}
}

func (b *MemoryBroker) Topic(sessionID string) Topic {
	t := &memoryTopic{
		broker:    b,
		sessionID: sessionID,
		handlers:  make(map[EventType]map[int]Handler),
	}
	b.mu.Lock()
	b.topics[sessionID] = append(b.topics[sessionID], t)
	b.mu.Unlock()
	return t
}

func (b *MemoryBroker) deliver(sessionID string, ev Event) {
	b.mu.RLock()
	attached := make([]*memoryTopic, len(b.topics[sessionID]))
	copy(attached, b.topics[sessionID])
	b.mu.RUnlock()

	for _, t := range attached {
		t.dispatch(ev)
	}
}

func (b *MemoryBroker) detach(t *memoryTopic) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.topics[t.sessionID]
	for i, other := range list {
		if other == t {
			b.topics[t.sessionID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(b.topics[t.sessionID]) == 0 {
		delete(b.topics, t.sessionID)
	}
}

type memoryTopic struct {
	broker    *MemoryBroker
	sessionID string

	mu       sync.RWMutex
	handlers map[EventType]map[int]Handler
	nextID   int
	closed   bool
}

func (t *memoryTopic) Publish(ctx context.Context, eventType EventType, payload any) error {
	ev, err := NewEvent(t.sessionID, eventType, payload)
	if err != nil {
		return err
	}
	t.broker.deliver(t.sessionID, ev)
	return nil
}

func (t *memoryTopic) Subscribe(eventType EventType, h Handler) (func(), error) {
	t.mu.Lock()
	if t.handlers[eventType] == nil {
		t.handlers[eventType] = make(map[int]Handler)
	}
	id := t.nextID
	t.nextID++
	t.handlers[eventType][id] = h
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.handlers[eventType], id)
		t.mu.Unlock()
	}, nil
}

func (t *memoryTopic) Close() error {
	t.mu.Lock()
	t.closed = true
	t.handlers = make(map[EventType]map[int]Handler)
	t.mu.Unlock()
	t.broker.detach(t)
	return nil
}

func (t *memoryTopic) dispatch(ev Event) {
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return
	}
	hs := make([]Handler, 0, len(t.handlers[ev.Type]))
	for _, h := range t.handlers[ev.Type] {
		hs = append(hs, h)
	}
	t.mu.RUnlock()

	for _, h := range hs {
		h(ev)
	}
}
