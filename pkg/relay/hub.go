// Package relay is the server side of the network sync layer. A single hub
// goroutine owns the session manager and processes every inbound event in
// order, websocket goroutines only move frames.
package relay

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mpapenbr/racelink/log"
	"github.com/mpapenbr/racelink/pkg/model"
	"github.com/mpapenbr/racelink/pkg/protocol"
	"github.com/mpapenbr/racelink/pkg/session"
	"github.com/mpapenbr/racelink/version"
)

var ErrHubStopped = errors.New("hub stopped")

type Option func(*Hub)

// WithSessionOptions passes options to the session manager the hub creates
func WithSessionOptions(opts ...session.Option) Option {
	return func(h *Hub) { h.sessionOpts = append(h.sessionOpts, opts...) }
}

// WithLobbyFeed receives every lobby update. Updates are dropped if the
// channel is not ready.
func WithLobbyFeed(ch chan<- []model.LobbyEntry) Option {
	return func(h *Hub) { h.lobbyFeed = ch }
}

func WithExpireInterval(d time.Duration) Option {
	return func(h *Hub) { h.expireInterval = d }
}

func WithInboxSize(n int) Option {
	return func(h *Hub) { h.inboxSize = n }
}

func WithConnIDGenerator(gen func() string) Option {
	return func(h *Hub) { h.newConnID = gen }
}

type Hub struct {
	inbox          chan func()
	stopped        chan struct{}
	conns          map[string]peer
	manager        *session.Manager
	sessionOpts    []session.Option
	lobbyFeed      chan<- []model.LobbyEntry
	expireInterval time.Duration
	inboxSize      int
	newConnID      func() string
	handlers       map[string]handlerFunc
	metrics        *metrics
	log            *log.Logger
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		stopped:        make(chan struct{}),
		conns:          map[string]peer{},
		expireInterval: time.Minute,
		inboxSize:      1024,
		newConnID:      uuid.NewString,
		log:            log.Default().Named("relay"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.inbox = make(chan func(), h.inboxSize)
	h.handlers = defaultHandlers()
	h.metrics = newMetrics()
	sessionOpts := append([]session.Option{
		session.WithScheduler(h),
		session.WithLogger(h.log.Named("session")),
	}, h.sessionOpts...)
	h.manager = session.NewManager(h, sessionOpts...)
	return h
}

// Run processes the inbox until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	ticker := time.NewTicker(h.expireInterval)
	defer ticker.Stop()
	h.log.Info("hub started")
	for {
		select {
		case <-ctx.Done():
			for _, p := range h.conns {
				p.close()
			}
			h.log.Info("hub stopped")
			return
		case fn := <-h.inbox:
			fn()
		case <-ticker.C:
			if n := h.manager.ExpireRooms(); n > 0 {
				h.log.Info("expired rooms", log.Int("count", n))
			}
		}
	}
}

// post queues fn for the hub goroutine
func (h *Hub) post(fn func()) bool {
	select {
	case h.inbox <- fn:
		return true
	case <-h.stopped:
		return false
	}
}

// Do runs fn on the hub goroutine and waits for it to complete
func (h *Hub) Do(ctx context.Context, fn func(m *session.Manager)) error {
	done := make(chan struct{})
	if !h.post(func() {
		defer close(done)
		fn(h.manager)
	}) {
		return ErrHubStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.stopped:
		return ErrHubStopped
	}
}

// AfterFunc implements session.Scheduler, f runs on the hub goroutine
func (h *Hub) AfterFunc(d time.Duration, f func()) session.Timer {
	return time.AfterFunc(d, func() { h.post(f) })
}

func (h *Hub) register(p peer) {
	h.post(func() {
		h.conns[p.ID()] = p
		h.metrics.connected()
		h.log.Debug("registered", log.String("conn", p.ID()), log.String("codec", p.Codec().Name()))
		h.Send(p.ID(), protocol.EventWelcome, &protocol.Welcome{
			ConnID:          p.ID(),
			ServerVersion:   version.Version,
			ProtocolVersion: version.ProtocolVersion,
		})
		h.Send(p.ID(), protocol.EventLobbyUpdate,
			&protocol.LobbyUpdate{Rooms: h.manager.LobbyList()})
	})
}

func (h *Hub) unregister(p peer) {
	h.post(func() {
		if _, ok := h.conns[p.ID()]; !ok {
			return
		}
		delete(h.conns, p.ID())
		h.metrics.disconnected()
		h.manager.Disconnect(p.ID())
		h.log.Debug("unregistered", log.String("conn", p.ID()))
	})
}

// receive hands an inbound frame to the hub goroutine
func (h *Hub) receive(p peer, frame []byte) {
	h.metrics.frameIn()
	h.post(func() { h.dispatch(p, frame) })
}

func (h *Hub) deliver(connID, event string, payload any, cache map[string][]byte) {
	p, ok := h.conns[connID]
	if !ok {
		return
	}
	codec := p.Codec()
	frame, ok := cache[codec.Name()]
	if !ok {
		var err error
		if frame, err = codec.Encode(event, payload); err != nil {
			h.log.Error("encode failed", log.String("event", event), log.ErrorField(err))
			return
		}
		if cache != nil {
			cache[codec.Name()] = frame
		}
	}
	if p.enqueue(frame, event == protocol.EventPlayerMoved) {
		h.metrics.frameOut()
	} else {
		h.metrics.dropped()
	}
}

// Send implements session.Notifier
func (h *Hub) Send(connID, event string, payload any) {
	h.deliver(connID, event, payload, nil)
}

func (h *Hub) Broadcast(roomID, event string, payload any) {
	cache := map[string][]byte{}
	for _, id := range h.manager.Members(roomID) {
		h.deliver(id, event, payload, cache)
	}
}

func (h *Hub) Relay(roomID, exceptConnID, event string, payload any) {
	cache := map[string][]byte{}
	for _, id := range h.manager.Members(roomID) {
		if id != exceptConnID {
			h.deliver(id, event, payload, cache)
		}
	}
}

func (h *Hub) LobbyUpdate(entries []model.LobbyEntry) {
	cache := map[string][]byte{}
	msg := &protocol.LobbyUpdate{Rooms: entries}
	for id := range h.conns {
		h.deliver(id, protocol.EventLobbyUpdate, msg, cache)
	}
	if h.lobbyFeed != nil {
		select {
		case h.lobbyFeed <- entries:
		default:
			h.log.Debug("lobby feed not ready, update dropped")
		}
	}
}
