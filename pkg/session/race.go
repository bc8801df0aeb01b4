package session

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mpapenbr/racelink/log"
	"github.com/mpapenbr/racelink/pkg/model"
	"github.com/mpapenbr/racelink/pkg/protocol"
)

const maxChatLength = 500

func (m *Manager) checkTrack(id string) error {
	if id == "" {
		return ErrUnknownTrack
	}
	if m.tracks != nil && !m.tracks.HasTrack(id) {
		return ErrUnknownTrack
	}
	return nil
}

// configChanged publishes a host side configuration change
func (m *Manager) configChanged(r *model.Room) {
	m.broadcastRoom(r)
	m.publishLobby()
}

func (m *Manager) ChangeTrack(connID, trackID string) error {
	r, err := m.hostLobbyRoom(connID)
	if err != nil {
		return err
	}
	if err := m.checkTrack(trackID); err != nil {
		return err
	}
	r.TrackID = trackID
	m.configChanged(r)
	return nil
}

func (m *Manager) ChangeLaps(connID string, laps int) error {
	r, err := m.hostLobbyRoom(connID)
	if err != nil {
		return err
	}
	if laps < 1 || laps > model.MaxLaps {
		return ErrInvalidLaps
	}
	r.TotalLaps = laps
	m.configChanged(r)
	return nil
}

func (m *Manager) ChangeWeather(connID string, w model.Weather) error {
	r, err := m.hostLobbyRoom(connID)
	if err != nil {
		return err
	}
	if !w.Valid() {
		return ErrInvalidWeather
	}
	r.Weather = w
	m.configChanged(r)
	return nil
}

func (m *Manager) ToggleQualifying(connID string, enabled bool) error {
	r, err := m.hostLobbyRoom(connID)
	if err != nil {
		return err
	}
	r.Qualifying = enabled
	m.configChanged(r)
	return nil
}

// SetReady updates the readiness of connID while the room is in lobby
func (m *Manager) SetReady(connID string, ready bool) error {
	r, err := m.roomForConn(connID)
	if err != nil {
		return err
	}
	if r.Phase != model.PhaseLobby {
		return ErrNotInLobby
	}
	r.Player(connID).Ready = ready
	m.broadcastRoom(r)
	return nil
}

// StartRace moves the host's room into countdown. After model.CountdownDelay
// the room switches to qualifying or racing.
func (m *Manager) StartRace(connID string) error {
	r, err := m.hostLobbyRoom(connID)
	if err != nil {
		return err
	}
	if !r.AllReady() {
		return ErrNotAllReady
	}
	for i, p := range r.Players {
		p.ResetRace()
		p.GridSlot = i
	}
	r.Phase = model.PhaseCountdown
	r.RaceStartTime = 0
	m.log.Info("countdown started", log.String("room", r.ID), log.Int("players", len(r.Players)))
	m.broadcastRoom(r)
	m.publishLobby()

	roomID := r.ID
	m.cancelCountdown(roomID)
	var t Timer
	t = m.scheduler.AfterFunc(model.CountdownDelay, func() {
		m.countdownElapsed(roomID, t)
	})
	m.countdowns[roomID] = t
	return nil
}

// countdownElapsed ignores timers that were replaced or cancelled after firing
func (m *Manager) countdownElapsed(roomID string, t Timer) {
	if cur, ok := m.countdowns[roomID]; !ok || cur != t {
		return
	}
	delete(m.countdowns, roomID)
	r, ok := m.rooms[roomID]
	if !ok || r.Phase != model.PhaseCountdown {
		return
	}
	phase := model.PhaseRacing
	if r.Qualifying {
		phase = model.PhaseQualifying
	}
	m.startSession(r, phase)
}

// startSession enters a moving phase and stamps the start time
func (m *Manager) startSession(r *model.Room, phase model.Phase) {
	r.Phase = phase
	r.RaceStartTime = m.nowMillis()
	m.metrics.raceStarted()
	m.log.Info("session started",
		log.String("room", r.ID), log.String("phase", string(phase)), log.Int64("start", r.RaceStartTime))
	m.notifier.Broadcast(r.ID, protocol.EventRaceStarted, &protocol.RaceStarted{
		Room: r.Snapshot(), Phase: phase, RaceStartTime: r.RaceStartTime,
	})
	m.broadcastRoom(r)
	m.publishLobby()
}

// Move stores the reported position of connID and relays it to the others.
// Ticks outside of moving phases or from finished cars are dropped.
func (m *Manager) Move(connID string, mv *protocol.PlayerMove) error {
	r, err := m.roomForConn(connID)
	if err != nil {
		return err
	}
	if !r.Phase.Moving() {
		return nil
	}
	p := r.Player(connID)
	p.X, p.Y, p.Angle, p.Speed = mv.X, mv.Y, mv.Angle, mv.Speed
	if mv.Lap > 0 {
		p.Lap = mv.Lap
	}
	m.metrics.moved()
	m.notifier.Relay(r.ID, connID, protocol.EventPlayerMoved, &protocol.PlayerMoved{
		PlayerID: connID, PlayerMove: *mv,
	})
	return nil
}

// FinishRace records the race time of connID. A second finish is a no-op.
func (m *Manager) FinishRace(connID string, finishTime int64) error {
	r, err := m.roomForConn(connID)
	if err != nil {
		return err
	}
	if r.Phase != model.PhaseRacing {
		return ErrWrongPhase
	}
	p := r.Player(connID)
	if p.Finished {
		return nil
	}
	p.Finished = true
	p.FinishTime = finishTime
	m.log.Info("player finished",
		log.String("room", r.ID), log.String("nickname", p.Nickname), log.Int64("time", finishTime))
	m.notifier.Broadcast(r.ID, protocol.EventPlayerFinished, &protocol.PlayerFinished{
		PlayerID: p.ID, Nickname: p.Nickname, FinishTime: finishTime,
	})
	m.broadcastRoom(r)
	m.checkSessionComplete(r)
	return nil
}

// FinishQualifying records the qualifying time of connID. A second report is a no-op.
func (m *Manager) FinishQualifying(connID string, qualifyTime int64) error {
	r, err := m.roomForConn(connID)
	if err != nil {
		return err
	}
	if r.Phase != model.PhaseQualifying {
		return ErrWrongPhase
	}
	p := r.Player(connID)
	if p.QualifyFinished {
		return nil
	}
	p.QualifyFinished = true
	p.QualifyTime = qualifyTime
	m.notifier.Broadcast(r.ID, protocol.EventPlayerQualifyFinished, &protocol.PlayerQualifyFinished{
		PlayerID: p.ID, Nickname: p.Nickname, QualifyTime: qualifyTime,
	})
	m.broadcastRoom(r)
	m.checkSessionComplete(r)
	return nil
}

// checkSessionComplete advances the phase once every player is done
func (m *Manager) checkSessionComplete(r *model.Room) {
	switch r.Phase {
	case model.PhaseQualifying:
		if r.AllQualified() {
			m.gridFromQualifying(r)
			m.startSession(r, model.PhaseRacing)
		}
	case model.PhaseRacing:
		if r.AllFinished() {
			r.Phase = model.PhaseFinished
			m.metrics.raceFinished()
			m.log.Info("race finished", log.String("room", r.ID))
			m.broadcastRoom(r)
			m.publishLobby()
			if m.observer != nil {
				m.observer.RaceFinished(r.Snapshot())
			}
		}
	default:
	}
}

// gridFromQualifying orders the players by qualifying time and clears race state
func (m *Manager) gridFromQualifying(r *model.Room) {
	sort.SliceStable(r.Players, func(i, j int) bool {
		return r.Players[i].QualifyTime < r.Players[j].QualifyTime
	})
	for i, p := range r.Players {
		p.GridSlot = i
		p.Finished = false
		p.FinishTime = 0
		p.Lap = 1
		p.Speed = 0
	}
}

// Reset returns the host's room to the lobby from any phase
func (m *Manager) Reset(connID string) error {
	r, err := m.hostRoom(connID)
	if err != nil {
		return err
	}
	m.cancelCountdown(r.ID)
	r.Phase = model.PhaseLobby
	r.RaceStartTime = 0
	for i, p := range r.Players {
		p.ResetRace()
		p.Ready = false
		p.GridSlot = i
	}
	m.log.Info("room reset", log.String("room", r.ID))
	m.broadcastRoom(r)
	m.publishLobby()
	return nil
}

// SendChat appends a message to the room history and broadcasts it
func (m *Manager) SendChat(connID, text string) error {
	r, err := m.roomForConn(connID)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > maxChatLength {
		text = string([]rune(text)[:maxChatLength])
	}
	p := r.Player(connID)
	msg := model.ChatMessage{
		ID:       m.newID(),
		PlayerID: p.ID,
		Nickname: p.Nickname,
		Text:     text,
		SentAt:   m.nowMillis(),
	}
	r.AppendChat(msg)
	m.touch(r)
	m.notifier.Broadcast(r.ID, protocol.EventChatMessage, &msg)
	return nil
}
