// Package realtime carries named events between the conversation client and the
// messaging server. Transports connect, reconnect on their own, and report each
// (re)connection as a synthesized "connect" event.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/comigor/ridechat/internal/logger"
)

// Event names
const (
	EventConnect        = "connect"
	EventDisconnect     = "disconnect"
	EventJoinRoom       = "join_room"
	EventReceiveMessage = "receive_message"
	EventSendMessage    = "send_message"
)

// ErrNotConnected is returned by Emit while no connection is up.
var ErrNotConnected = errors.New("realtime: not connected")

// Handler receives the raw JSON payload of an event. It is nil for synthesized events.
type Handler func(payload json.RawMessage)

// Transport is the minimal surface the conversation client needs; it is easy to fake in tests.
type Transport interface {
	// On registers a handler for an event. Handlers for one event run in registration order.
	On(event string, h Handler)
	// Emit sends an event with a JSON-encodable payload.
	Emit(ctx context.Context, event string, payload any) error
	// Run connects and keeps reconnecting until ctx is cancelled.
	Run(ctx context.Context) error
}

// registry maps event names to handlers
type registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func newRegistry() *registry {
	return &registry{handlers: make(map[string][]Handler)}
}

// On registers a handler
func (r *registry) On(event string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[event] = append(r.handlers[event], h)
}

// dispatch calls every handler for event. A panicking handler is logged and skipped.
func (r *registry) dispatch(event string, payload json.RawMessage) {
	r.mu.RLock()
	hs := append([]Handler(nil), r.handlers[event]...)
	r.mu.RUnlock()

	if len(hs) == 0 {
		logger.L.Debug("no handler for event", "event", event)
		return
	}
	for i, h := range hs {
		func() {
			defer func() {
				if p := recover(); p != nil {
					logger.L.Error("event handler panic", "event", event, "handler", i, "panic", fmt.Sprint(p))
				}
			}()
			h(payload)
		}()
	}
}
