// Package session owns the authoritative rooms of the relay server.
//
// A Manager is not safe for concurrent use. The relay hub calls it from a
// single goroutine which makes every operation atomic with respect to a room.
package session

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mpapenbr/racelink/log"
	"github.com/mpapenbr/racelink/pkg/model"
	"github.com/mpapenbr/racelink/pkg/protocol"
)

// Notifier delivers events to connections
type Notifier interface {
	// Send delivers to a single connection
	Send(connID, event string, payload any)
	// Broadcast delivers to every member of a room
	Broadcast(roomID, event string, payload any)
	// Relay delivers to every member of a room except one
	Relay(roomID, exceptConnID, event string, payload any)
	// LobbyUpdate publishes the current room list to all connections
	LobbyUpdate(entries []model.LobbyEntry)
}

// TrackLookup tells whether a track id is known
type TrackLookup interface {
	HasTrack(id string) bool
}

// RaceObserver is informed when all players of a room finished a race.
// The room is a snapshot owned by the observer.
type RaceObserver interface {
	RaceFinished(room *model.Room)
}

type Option func(*Manager)

func WithScheduler(s Scheduler) Option {
	return func(m *Manager) { m.scheduler = s }
}

func WithClock(clock func() time.Time) Option {
	return func(m *Manager) { m.clock = clock }
}

func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

func WithTrackLookup(t TrackLookup) Option {
	return func(m *Manager) { m.tracks = t }
}

func WithRaceObserver(o RaceObserver) Option {
	return func(m *Manager) { m.observer = o }
}

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.log = l }
}

func WithDefaultTrack(id string) Option {
	return func(m *Manager) { m.defaultTrack = id }
}

type Manager struct {
	rooms map[string]*model.Room
	// connection id -> room id
	members    map[string]string
	countdowns map[string]Timer

	notifier     Notifier
	scheduler    Scheduler
	tracks       TrackLookup
	observer     RaceObserver
	clock        func() time.Time
	newID        func() string
	defaultTrack string
	log          *log.Logger
	metrics      *metrics
}

func NewManager(n Notifier, opts ...Option) *Manager {
	m := &Manager{
		rooms:        map[string]*model.Room{},
		members:      map[string]string{},
		countdowns:   map[string]Timer{},
		notifier:     n,
		scheduler:    TimeScheduler{},
		clock:        time.Now,
		newID:        func() string { return uuid.NewString() },
		defaultTrack: "monaco",
		log:          log.Default().Named("session"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.metrics = newMetrics()
	return m
}

// RoomOf returns the room the connection is a member of
func (m *Manager) RoomOf(connID string) (*model.Room, bool) {
	id, ok := m.members[connID]
	if !ok {
		return nil, false
	}
	r, ok := m.rooms[id]
	return r, ok
}

// Room returns a snapshot of the room with the given id
func (m *Manager) Room(id string) (*model.Room, bool) {
	r, ok := m.rooms[id]
	if !ok {
		return nil, false
	}
	return r.Snapshot(), true
}

// LobbyList returns the room browser entries, oldest room first
func (m *Manager) LobbyList() []model.LobbyEntry {
	rooms := lo.Values(m.rooms)
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return lo.Map(rooms, func(r *model.Room, _ int) model.LobbyEntry {
		return r.LobbyEntry()
	})
}

// Members returns the connection ids of a room's players
func (m *Manager) Members(roomID string) []string {
	r, ok := m.rooms[roomID]
	if !ok {
		return nil
	}
	return lo.Map(r.Players, func(p *model.Player, _ int) string { return p.ID })
}

// NumRooms returns the number of live rooms
func (m *Manager) NumRooms() int { return len(m.rooms) }

// ExpireRooms removes rooms without activity for more than model.RoomTTL.
// Rooms with a race under way are kept. Members are notified with a kicked event.
func (m *Manager) ExpireRooms() int {
	now := m.clock()
	expired := lo.Filter(lo.Values(m.rooms), func(r *model.Room, _ int) bool {
		return !r.Phase.Active() && now.Sub(r.LastActivity) > model.RoomTTL
	})
	for _, r := range expired {
		m.log.Info("room expired",
			log.String("room", r.ID), log.Duration("idle", now.Sub(r.LastActivity)))
		for _, p := range r.Players {
			delete(m.members, p.ID)
			m.notifier.Send(p.ID, protocol.EventKicked,
				&protocol.Kicked{RoomID: r.ID, Reason: protocol.KickReasonExpired})
		}
		m.deleteRoom(r)
	}
	if len(expired) > 0 {
		m.publishLobby()
	}
	return len(expired)
}

func (m *Manager) now() time.Time { return m.clock() }

func (m *Manager) nowMillis() int64 { return m.clock().UnixMilli() }

func (m *Manager) publishLobby() {
	m.notifier.LobbyUpdate(m.LobbyList())
}

func (m *Manager) broadcastRoom(r *model.Room) {
	m.touch(r)
	m.notifier.Broadcast(r.ID, protocol.EventRoomUpdate, r.Snapshot())
}

func (m *Manager) touch(r *model.Room) { r.LastActivity = m.now() }

func (m *Manager) deleteRoom(r *model.Room) {
	m.cancelCountdown(r.ID)
	delete(m.rooms, r.ID)
	m.metrics.players.Add(-int64(len(r.Players)))
	m.metrics.roomClosed()
	m.log.Debug("room deleted", log.String("room", r.ID))
}

func (m *Manager) cancelCountdown(roomID string) {
	if t, ok := m.countdowns[roomID]; ok {
		t.Stop()
		delete(m.countdowns, roomID)
	}
}

// roomForConn resolves the room of a connection
func (m *Manager) roomForConn(connID string) (*model.Room, error) {
	r, ok := m.RoomOf(connID)
	if !ok {
		return nil, ErrNotInRoom
	}
	return r, nil
}

// hostRoom returns the room of connID if connID hosts it
func (m *Manager) hostRoom(connID string) (*model.Room, error) {
	r, err := m.roomForConn(connID)
	if err != nil {
		return nil, err
	}
	if !r.IsHost(connID) {
		return nil, ErrNotHost
	}
	return r, nil
}

// hostLobbyRoom is hostRoom restricted to the lobby phase
func (m *Manager) hostLobbyRoom(connID string) (*model.Room, error) {
	r, err := m.hostRoom(connID)
	if err != nil {
		return nil, err
	}
	if r.Phase != model.PhaseLobby {
		return nil, ErrNotInLobby
	}
	return r, nil
}
