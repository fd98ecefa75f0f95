package websocket

import (
	"sync"

	"github.com/rs/zerolog"
)

// Event names dispatched by a Session. Server-defined message types outside
// this list are dispatched under their own type string.
const (
	EventConnected      = "connected"
	EventMarketUpdate   = "market_update"
	EventMarketSnapshot = "market_snapshot"
	EventSubscribed     = "subscribed"
	EventUnsubscribed   = "unsubscribed"
	EventError          = "error"
	EventDisconnect     = "disconnect"
	EventReconnect      = "reconnect"
)

// Handler receives one dispatched message. Handlers run synchronously, in
// registration order, on the session's read goroutine.
type Handler func(Message)

type handlerEntry struct {
	id int
	fn Handler
}

// emitter fans messages out to registered handlers. A panicking handler is
// recovered and logged; handlers registered after it still run.
type emitter struct {
	mu       sync.Mutex
	nextID   int
	handlers map[string][]handlerEntry
	logger   zerolog.Logger
}

// on registers a handler and returns a function that removes it.
func (e *emitter) on(event string, fn Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handlers == nil {
		e.handlers = make(map[string][]handlerEntry)
	}
	e.nextID++
	id := e.nextID
	e.handlers[event] = append(e.handlers[event], handlerEntry{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		entries := e.handlers[event]
		for i, entry := range entries {
			if entry.id == id {
				e.handlers[event] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

// emit dispatches msg to every handler registered for event, in order.
func (e *emitter) emit(event string, msg Message) {
	e.mu.Lock()
	entries := make([]handlerEntry, len(e.handlers[event]))
	copy(entries, e.handlers[event])
	e.mu.Unlock()

	for _, entry := range entries {
		e.call(event, entry.fn, msg)
	}
}

func (e *emitter) call(event string, fn Handler, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("event", event).
				Interface("panic", r).
				Msg("Event handler panicked")
		}
	}()
	fn(msg)
}
