package client

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/racelink/log"
	"github.com/mpapenbr/racelink/pkg/camera"
	"github.com/mpapenbr/racelink/pkg/collision"
	"github.com/mpapenbr/racelink/pkg/geometry"
	"github.com/mpapenbr/racelink/pkg/lap"
	"github.com/mpapenbr/racelink/pkg/model"
	"github.com/mpapenbr/racelink/pkg/physics"
	"github.com/mpapenbr/racelink/pkg/protocol"
	"github.com/mpapenbr/racelink/pkg/track"
	"github.com/mpapenbr/racelink/version"
)

// FrameInterval is the 60Hz baseline of the frame loop. dt passed to the
// physics is measured in multiples of it.
const FrameInterval = time.Second / 60

const inboxSize = 256

// TrackSource resolves the geometry of a track id
type TrackSource interface {
	Get(ctx context.Context, id string) (*track.Resolved, error)
}

// Status is a snapshot of the local session state
type Status struct {
	Connected bool
	RoomID    string
	PlayerID  string
	Phase     model.Phase
	Car       physics.State
	Lap       int
	Finished  bool
	LapTimes  []time.Duration
	Others    int
	// visible world rectangle of the chase camera
	View geometry.Rect
}

type SessionOption func(*Session)

func WithDriver(d Driver) SessionOption {
	return func(s *Session) { s.driver = d }
}

func WithPhysics(p physics.Params) SessionOption {
	return func(s *Session) { s.physics = p }
}

func WithCollisionParams(p collision.Params) SessionOption {
	return func(s *Session) { s.collParams = p }
}

func WithLapParams(p lap.Params) SessionOption {
	return func(s *Session) { s.lapParams = p }
}

func WithCamera(p camera.Params) SessionOption {
	return func(s *Session) { s.cam = camera.New(p) }
}

// WithFrames replaces the internal 60Hz ticker
func WithFrames(frames <-chan time.Time) SessionOption {
	return func(s *Session) { s.frames = frames }
}

// WithLapListener is called from the frame loop for every line crossing
func WithLapListener(fn func(lap.Event)) SessionOption {
	return func(s *Session) { s.onLap = fn }
}

// WithRoomListener is called from the frame loop for every room snapshot received
func WithRoomListener(fn func(*model.Room)) SessionOption {
	return func(s *Session) { s.onRoom = fn }
}

// Session drives the local car of one player. All state is owned by the
// goroutine executing Run: channel handlers and requests post closures into
// its inbox, frames integrate physics, resolve collisions, track laps and
// emit the position. Sends never block the loop.
type Session struct {
	ch         Channel
	tracks     TrackSource
	identity   protocol.Identity
	driver     Driver
	physics    physics.Params
	collParams collision.Params
	lapParams  lap.Params
	frames     <-chan time.Time
	onLap      func(lap.Event)
	onRoom     func(*model.Room)
	log        *log.Logger

	inbox  chan func()
	done   chan struct{}
	status atomic.Pointer[Status]

	// owned by the loop
	ctx       context.Context
	connected bool
	room      *model.Room
	playerID  string
	track     *track.Resolved
	coll      *collision.Resolver
	tracker   *lap.Tracker
	started   bool
	car       physics.State
	cam       *camera.Camera
	others    map[string]collision.Other
	last      time.Time
}

func NewSession(ch Channel, tracks TrackSource, id protocol.Identity, opts ...SessionOption) *Session {
	// the server stores the default setup for an empty one, drive the same car locally
	if id.Setup == (model.CarSetup{}) {
		id.Setup = model.DefaultSetup()
	}
	s := &Session{
		ch:         ch,
		tracks:     tracks,
		identity:   id,
		driver:     NewAutopilot(),
		physics:    physics.DefaultParams(),
		collParams: collision.DefaultParams(),
		lapParams:  lap.DefaultParams(),
		log:        log.Default().Named("client"),
		inbox:      make(chan func(), inboxSize),
		done:       make(chan struct{}),
		others:     make(map[string]collision.Other),
		ctx:        context.Background(),
		cam:        camera.New(camera.DefaultParams()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.status.Store(&Status{})
	s.registerHandlers()
	return s
}

// Run executes the frame loop until ctx is done
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	s.ctx = ctx
	frames := s.frames
	if frames == nil {
		t := time.NewTicker(FrameInterval)
		defer t.Stop()
		frames = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-s.inbox:
			fn()
		case now := <-frames:
			s.drain()
			s.frame(now)
		}
	}
}

func (s *Session) Status() Status {
	return *s.status.Load()
}

func (s *Session) post(fn func()) {
	select {
	case s.inbox <- fn:
	case <-s.done:
	}
}

// drain runs everything that arrived before the current frame
func (s *Session) drain() {
	for {
		select {
		case fn := <-s.inbox:
			fn()
		default:
			return
		}
	}
}

func (s *Session) CreateRoom(name, trackID string, laps int) error {
	return s.ch.Emit(protocol.EventCreateRoom, &protocol.CreateRoom{
		Identity: s.identity, RoomName: name, TrackID: trackID, Laps: laps,
	})
}

func (s *Session) JoinRoom(roomID string) error {
	return s.ch.Emit(protocol.EventJoinRoom, &protocol.JoinRoom{Identity: s.identity, RoomID: roomID})
}

func (s *Session) SetReady(ready bool) error {
	return s.ch.Emit(protocol.EventUpdateReady, &protocol.UpdateReady{Ready: ready})
}

func (s *Session) StartRace() error {
	return s.ch.Emit(protocol.EventStartRace, nil)
}

func (s *Session) SendChat(text string) error {
	return s.ch.Emit(protocol.EventChatSend, &protocol.ChatSend{Text: text})
}

// Leave stops the local car before the next frame and tells the server
func (s *Session) Leave() error {
	s.post(s.leaveLocal)
	return s.ch.Emit(protocol.EventLeaveRoom, nil)
}

//nolint:funlen // handler table
func (s *Session) registerHandlers() {
	s.ch.On(protocol.EventConnect, func(Message) {
		s.post(s.connectedLocal)
	})
	s.ch.On(protocol.EventDisconnect, func(Message) {
		s.post(func() {
			s.connected = false
			s.log.Warn("disconnected, position updates halted")
			s.publish()
		})
	})
	s.ch.On(protocol.EventWelcome, func(m Message) {
		var w protocol.Welcome
		if err := m.Decode(&w); err != nil {
			s.log.Warn("invalid welcome", log.ErrorField(err))
			return
		}
		s.log.Debug("welcome",
			log.String("conn", w.ConnID), log.String("server", w.ServerVersion))
		//nolint:errcheck // best effort
		s.ch.Emit(protocol.EventHello, &protocol.Hello{
			ProtocolVersion: version.ProtocolVersion, DriverID: s.identity.DriverID,
		})
	})
	s.ch.On(protocol.EventRoomJoined, func(m Message) {
		var j protocol.RoomJoined
		if err := m.Decode(&j); err != nil || j.Room == nil {
			s.log.Warn("invalid roomJoined", log.ErrorField(err))
			return
		}
		s.post(func() {
			s.playerID = j.PlayerID
			s.applyRoom(j.Room)
		})
	})
	s.ch.On(protocol.EventRoomUpdate, func(m Message) {
		var r model.Room
		if err := m.Decode(&r); err != nil {
			s.log.Warn("invalid roomUpdate", log.ErrorField(err))
			return
		}
		s.post(func() { s.applyRoom(&r) })
	})
	s.ch.On(protocol.EventRaceStarted, func(m Message) {
		var rs protocol.RaceStarted
		if err := m.Decode(&rs); err != nil || rs.Room == nil {
			s.log.Warn("invalid raceStarted", log.ErrorField(err))
			return
		}
		s.post(func() {
			rs.Room.Phase = rs.Phase
			s.applyRoom(rs.Room)
			s.startSession()
		})
	})
	s.ch.On(protocol.EventPlayerMoved, func(m Message) {
		var mv protocol.PlayerMoved
		if err := m.Decode(&mv); err != nil {
			return
		}
		s.post(func() {
			if s.room == nil || mv.PlayerID == s.playerID || s.room.Player(mv.PlayerID) == nil {
				return
			}
			s.others[mv.PlayerID] = collision.Other{ID: mv.PlayerID, X: mv.X, Y: mv.Y}
		})
	})
	s.ch.On(protocol.EventKicked, func(m Message) {
		var k protocol.Kicked
		//nolint:errcheck // reason is informational
		m.Decode(&k)
		s.post(func() {
			s.log.Info("removed from room", log.String("room", k.RoomID), log.String("reason", k.Reason))
			s.leaveLocal()
		})
	})
	s.ch.On(protocol.EventError, func(m Message) {
		var e protocol.Error
		//nolint:errcheck // logged as received
		m.Decode(&e)
		s.log.Warn("server error",
			log.String("code", e.Code), log.String("message", e.Message), log.String("event", e.Event))
	})
}

// connectedLocal resumes the session, a known room is recovered via rejoin
func (s *Session) connectedLocal() {
	s.connected = true
	if s.room != nil {
		s.log.Info("reconnected, rejoining", log.String("room", s.room.ID))
		if err := s.ch.Emit(protocol.EventRejoinRoom, &protocol.RejoinRoom{
			Identity: s.identity, RoomID: s.room.ID,
		}); err != nil {
			s.log.Warn("rejoin failed", log.ErrorField(err))
		}
	}
	s.publish()
}

func (s *Session) leaveLocal() {
	s.room = nil
	s.playerID = ""
	s.tracker = nil
	s.started = false
	clear(s.others)
	s.publish()
}

func (s *Session) applyRoom(r *model.Room) {
	if s.room == nil || s.room.ID != r.ID {
		clear(s.others)
	}
	s.room = r
	for id := range s.others {
		if r.Player(id) == nil {
			delete(s.others, id)
		}
	}
	if !r.Phase.Moving() {
		s.tracker = nil
		s.started = false
	}
	s.ensureTrack(r.TrackID)
	if s.onRoom != nil {
		s.onRoom(r)
	}
	s.publish()
}

func (s *Session) ensureTrack(id string) {
	if s.track != nil && s.track.Data.ID == id {
		return
	}
	resolved, err := s.tracks.Get(s.ctx, id)
	if err != nil {
		s.log.Error("cannot resolve track", log.String("track", id), log.ErrorField(err))
		s.track, s.coll = nil, nil
		return
	}
	s.track = resolved
	s.coll = collision.NewResolver(resolved.Barriers,
		collision.WithParams(s.collParams),
		collision.WithSurface(resolved.Geometry))
}

// startSession puts all cars on their grid slots. The lap clock starts with
// the next frame.
func (s *Session) startSession() {
	me := s.room.Player(s.playerID)
	if me == nil || s.track == nil || len(s.track.Grid) == 0 {
		s.log.Error("cannot start session",
			log.Bool("member", me != nil), log.Bool("track", s.track != nil))
		return
	}
	pose := s.gridPose(me.GridSlot)
	s.car = physics.State{X: pose.X, Y: pose.Y, Angle: pose.Angle}
	s.cam.Snap(&s.car)
	clear(s.others)
	for _, p := range s.room.Players {
		if p.ID == s.playerID {
			continue
		}
		gp := s.gridPose(p.GridSlot)
		s.others[p.ID] = collision.Other{ID: p.ID, X: gp.X, Y: gp.Y}
	}
	start := s.track.Geometry.Start
	s.tracker = lap.NewTracker(geometry.Vec2{X: start.X, Y: start.Y}, s.room.TotalLaps,
		lap.WithParams(s.lapParams))
	s.started = false
	s.log.Info("session started",
		log.String("phase", string(s.room.Phase)), log.Int("slot", me.GridSlot))
	s.publish()
}

func (s *Session) gridPose(slot int) model.Pose {
	if slot < 0 {
		slot = 0
	}
	return s.track.Grid[slot%len(s.track.Grid)]
}

func (s *Session) moving() bool {
	return s.connected && s.room != nil && s.room.Phase.Moving() &&
		s.tracker != nil && !s.tracker.Finished() && s.coll != nil
}

// frameDelta returns the elapsed time since the last frame in frame
// equivalents, bounded by the physics step limit
func (s *Session) frameDelta(now time.Time) float64 {
	dt := 1.0
	if !s.last.IsZero() {
		dt = float64(now.Sub(s.last)) / float64(FrameInterval)
	}
	s.last = now
	return math.Min(dt, s.physics.MaxDt)
}

func (s *Session) frame(now time.Time) {
	dt := s.frameDelta(now)
	if !s.moving() {
		return
	}
	if !s.started {
		s.tracker.Start(now)
		s.started = true
		dt = 1
	}
	phase := s.room.Phase
	in := s.driver.Input(s.car, s.track)
	s.car = s.physics.Step(s.car, in, &s.identity.Setup, s.room.Weather, dt)
	s.coll.Resolve(&s.car, s.otherCars(), phase, dt)
	s.cam.Update(&s.car, dt)
	ev, crossed := s.tracker.Update(&s.car, phase, now)

	// a finish nudges the car, this tick carries the final position
	s.emitMove()
	if crossed {
		s.crossed(ev)
	}
	s.publish()
}

// otherCars returns the last known positions in a stable order
func (s *Session) otherCars() []collision.Other {
	ret := lo.Values(s.others)
	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	return ret
}

func (s *Session) emitMove() {
	err := s.ch.Emit(protocol.EventPlayerMove, &protocol.PlayerMove{
		X: s.car.X, Y: s.car.Y, Angle: s.car.Angle, Speed: s.car.Speed, Lap: s.tracker.Lap(),
	})
	if err != nil && !errors.Is(err, ErrSendBufferFull) {
		s.log.Debug("position not sent", log.ErrorField(err))
	}
}

func (s *Session) crossed(ev lap.Event) {
	var err error
	switch ev.Kind {
	case lap.QualifyingFinished:
		err = s.ch.Emit(protocol.EventFinishQualifying,
			&protocol.FinishQualifying{QualifyTime: ev.Total.Milliseconds()})
	case lap.RaceFinished:
		err = s.ch.Emit(protocol.EventFinishRace,
			&protocol.FinishRace{FinishTime: ev.Total.Milliseconds()})
	case lap.LapCompleted:
	}
	if err != nil {
		s.log.Warn("finish not sent", log.String("kind", ev.Kind.String()), log.ErrorField(err))
	}
	s.log.Debug("line crossed",
		log.String("kind", ev.Kind.String()), log.Int("lap", ev.Lap), log.Duration("lapTime", ev.LapTime))
	if s.onLap != nil {
		s.onLap(ev)
	}
}

func (s *Session) publish() {
	st := &Status{Connected: s.connected, Car: s.car, Others: len(s.others), View: s.cam.Bounds()}
	if s.room != nil {
		st.RoomID = s.room.ID
		st.PlayerID = s.playerID
		st.Phase = s.room.Phase
	}
	if s.tracker != nil {
		st.Lap = s.tracker.Lap()
		st.Finished = s.tracker.Finished()
		st.LapTimes = s.tracker.LapTimes()
	}
	s.status.Store(st)
}
