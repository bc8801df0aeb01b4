package client

import (
	"context"
	"sync"

	"github.com/mpapenbr/racelink/pkg/protocol"
)

// Emitted is an event sent through a MemoryChannel
type Emitted struct {
	Event   string
	Payload any
}

// MemoryChannel is an in-process Channel. Inbound events are injected with
// Deliver, outbound events are recorded.
type MemoryChannel struct {
	handlers
	codec protocol.Codec

	mu        sync.Mutex
	connected bool
	emitted   []Emitted
}

func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{codec: protocol.JSON}
}

func (m *MemoryChannel) Connect(context.Context) error {
	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()
	m.dispatch(Message{Event: protocol.EventConnect, codec: m.codec})
	return nil
}

func (m *MemoryChannel) Emit(event string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.emitted = append(m.emitted, Emitted{Event: event, Payload: payload})
	return nil
}

func (m *MemoryChannel) Close() error {
	m.Disconnect()
	return nil
}

// Disconnect simulates a lost connection
func (m *MemoryChannel) Disconnect() {
	m.mu.Lock()
	was := m.connected
	m.connected = false
	m.mu.Unlock()
	if was {
		m.dispatch(Message{Event: protocol.EventDisconnect, codec: m.codec})
	}
}

// Deliver encodes payload like the server would and calls the handlers of event
func (m *MemoryChannel) Deliver(event string, payload any) error {
	frame, err := m.codec.Encode(event, payload)
	if err != nil {
		return err
	}
	ev, data, err := m.codec.Decode(frame)
	if err != nil {
		return err
	}
	m.dispatch(Message{Event: ev, Data: data, codec: m.codec})
	return nil
}

// Emitted returns a copy of everything sent so far
func (m *MemoryChannel) Emitted() []Emitted {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Emitted(nil), m.emitted...)
}

// Events returns the emitted events named event, all of them if event is empty
func (m *MemoryChannel) Events(event string) []Emitted {
	ret := []Emitted{}
	for _, e := range m.Emitted() {
		if event == "" || e.Event == event {
			ret = append(ret, e)
		}
	}
	return ret
}
