// Package bus implements the in-process change-notification fan-out.
// Registries publish an event after every successful entity mutation; the
// vault publishes a separate event whenever its in-memory key material
// changes. UI layers and the ephemeral mirror subscribe to refresh views.
package bus

import "sync"

// EventKind distinguishes persisted-record changes from key-material changes.
type EventKind string

const (
	KindRecord EventKind = "record"
	KindKey    EventKind = "key"
)

// Table names used in record events.
const (
	TableProfiles   = "profiles"
	TableRules      = "rules"
	TableCredential = "masterCredential"
)

// Event describes a single mutation. For record events Old/New carry the
// decrypted entity values (either may be nil for create/delete). Key events
// carry only the kind; key material itself never rides the bus.
type Event struct {
	Kind  EventKind
	Table string
	Key   string
	Old   any
	New   any
}

// Handler consumes events. Handlers run synchronously on the publishing
// goroutine and must not block.
type Handler func(Event)

// Bus is a minimal in-process pub/sub. Subscriptions are append-only; the
// engine wires its consumers once at startup.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func New() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all subsequent events.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers ev to every subscriber in registration order.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// PublishRecord is a convenience wrapper for entity-mutation events.
func (b *Bus) PublishRecord(table, key string, old, new any) {
	b.Publish(Event{Kind: KindRecord, Table: table, Key: key, Old: old, New: new})
}

// PublishKeyChange signals that the in-memory master hash was set or cleared.
func (b *Bus) PublishKeyChange() {
	b.Publish(Event{Kind: KindKey})
}
