// Package client contains the race client: the event channel to the relay
// server and the frame loop driving the local car.
package client

import (
	"context"
	"errors"
	"sync"

	"github.com/mpapenbr/racelink/pkg/protocol"
)

var (
	ErrNotConnected   = errors.New("channel not connected")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Message is an inbound event. Data is still encoded.
type Message struct {
	Event string
	Data  []byte
	codec protocol.Codec
}

// Decode unmarshals the payload into v
func (m Message) Decode(v any) error {
	if m.codec == nil {
		return protocol.JSON.Unmarshal(m.Data, v)
	}
	return m.codec.Unmarshal(m.Data, v)
}

type Handler func(Message)

// Channel is the bidirectional event link to the relay server.
// Handlers are called from the channel's receive goroutine and must not block.
// The pseudo events protocol.EventConnect and protocol.EventDisconnect report
// transport state changes.
type Channel interface {
	Connect(ctx context.Context) error
	On(event string, h Handler)
	// Off removes all handlers of event
	Off(event string)
	// Emit queues an event for sending and never blocks
	Emit(event string, payload any) error
	Close() error
}

// handlers is the registry shared by the channel implementations
type handlers struct {
	mu sync.RWMutex
	m  map[string][]Handler
}

func (h *handlers) On(event string, fn Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.m == nil {
		h.m = make(map[string][]Handler)
	}
	h.m[event] = append(h.m[event], fn)
}

func (h *handlers) Off(event string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.m, event)
}

func (h *handlers) dispatch(msg Message) {
	h.mu.RLock()
	list := append([]Handler(nil), h.m[msg.Event]...)
	h.mu.RUnlock()
	for _, fn := range list {
		fn(msg)
	}
}
