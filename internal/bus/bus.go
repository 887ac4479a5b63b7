// bus.go — Synchronous typed publish/subscribe for engine events.
// Handlers run in registration order on the publisher's goroutine. Each
// invocation is isolated: a panicking handler is logged and dispatch
// continues with the next one.
package bus

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/brennhill/renderlens/internal/logging"
	"github.com/brennhill/renderlens/internal/types"
	"github.com/brennhill/renderlens/internal/util"
)

// Event is one published message. Payload is one of the *Payload structs
// from the types package, matching Topic.
type Event struct {
	Topic   types.Topic
	Payload any
}

// Handler receives published events.
type Handler func(Event)

type subscription struct {
	id      uint64
	topic   types.Topic // empty for wildcard subscriptions
	handler Handler
}

// Bus fans events out to subscribers. The zero value is not usable; call New.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	logger *log.Entry
}

// New creates a bus. A nil logger discards panic reports.
func New(logger *log.Logger) *Bus {
	return &Bus{logger: logging.Component(logger, "bus")}
}

// Subscribe registers handler for topic and returns a function that removes it.
// The returned function is idempotent.
func (b *Bus) Subscribe(topic types.Topic, handler Handler) func() {
	return b.add(topic, handler)
}

// SubscribeAll registers handler for every topic.
func (b *Bus) SubscribeAll(handler Handler) func() {
	return b.add("", handler)
}

func (b *Bus) add(topic types.Topic, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, topic: topic, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every handler subscribed to topic, then to
// wildcard handlers, each group in registration order. Handlers may
// subscribe, unsubscribe or publish re-entrantly; they see the subscriber
// set as it was when Publish started.
func (b *Bus) Publish(topic types.Topic, payload any) {
	b.mu.RLock()
	snapshot := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.topic == topic || s.topic == "" {
			snapshot = append(snapshot, s)
		}
	}
	b.mu.RUnlock()

	ev := Event{Topic: topic, Payload: payload}
	for _, s := range snapshot {
		label := fmt.Sprintf("%s#%d", topic, s.id)
		util.SafeCall(b.logger.WithField("topic", string(topic)), label, func() { s.handler(ev) })
	}
}

// SubscriberCount returns the number of handlers that would receive topic,
// wildcard handlers included.
func (b *Bus) SubscriberCount(topic types.Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, s := range b.subs {
		if s.topic == topic || s.topic == "" {
			n++
		}
	}
	return n
}

// On subscribes a handler that receives the typed payload for topic.
// Events whose payload is not a P are ignored.
func On[P any](b *Bus, topic types.Topic, fn func(P)) func() {
	return b.Subscribe(topic, func(ev Event) {
		if p, ok := ev.Payload.(P); ok {
			fn(p)
		}
	})
}
