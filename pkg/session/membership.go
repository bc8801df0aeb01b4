package session

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/mpapenbr/racelink/log"
	"github.com/mpapenbr/racelink/pkg/model"
	"github.com/mpapenbr/racelink/pkg/protocol"
)

func newPlayer(connID string, id *protocol.Identity) *model.Player {
	setup := id.Setup
	if setup == (model.CarSetup{}) {
		setup = model.DefaultSetup()
	}
	return &model.Player{
		ID:       connID,
		DriverID: id.DriverID,
		Nickname: strings.TrimSpace(id.Nickname),
		Team:     id.Team,
		Livery:   id.Livery,
		Setup:    setup,
		Lap:      1,
	}
}

// CreateRoom opens a new room hosted by connID. A connection that is still
// member of another room leaves it first.
func (m *Manager) CreateRoom(connID string, req *protocol.CreateRoom) (*model.Room, error) {
	if strings.TrimSpace(req.Nickname) == "" {
		return nil, ErrInvalidNickname
	}
	trackID := req.TrackID
	if trackID == "" {
		trackID = m.defaultTrack
	}
	if err := m.checkTrack(trackID); err != nil {
		return nil, err
	}
	laps := req.Laps
	if laps == 0 {
		laps = model.DefaultLaps
	}
	if laps < 1 || laps > model.MaxLaps {
		return nil, ErrInvalidLaps
	}
	m.leave(connID)

	p := newPlayer(connID, &req.Identity)
	name := strings.TrimSpace(req.RoomName)
	if name == "" {
		name = fmt.Sprintf("%s's room", p.Nickname)
	}
	r := &model.Room{
		ID:        m.newID(),
		Name:      name,
		HostID:    connID,
		TrackID:   trackID,
		TotalLaps: laps,
		Weather:   model.WeatherSunny,
		Players:   []*model.Player{p},
		Phase:     model.PhaseLobby,
		CreatedAt: m.now(),
	}
	r.LastActivity = r.CreatedAt
	m.rooms[r.ID] = r
	m.members[connID] = r.ID
	m.metrics.roomCreated()
	m.metrics.playerJoined()
	m.log.Info("room created",
		log.String("room", r.ID), log.String("host", p.Nickname), log.String("track", trackID))

	m.notifier.Send(connID, protocol.EventRoomJoined, &protocol.RoomJoined{Room: r.Snapshot(), PlayerID: connID})
	m.publishLobby()
	return r, nil
}

// JoinRoom adds connID to a room in lobby phase
func (m *Manager) JoinRoom(connID string, req *protocol.JoinRoom) (*model.Room, error) {
	r, ok := m.rooms[req.RoomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if r.Phase != model.PhaseLobby {
		return nil, ErrNotInLobby
	}
	if r.Full() {
		return nil, ErrRoomFull
	}
	nick := strings.TrimSpace(req.Nickname)
	if nick == "" {
		return nil, ErrInvalidNickname
	}
	if _, taken := lo.Find(r.Players, func(p *model.Player) bool {
		return p.ID != connID && strings.EqualFold(p.Nickname, nick)
	}); taken {
		return nil, ErrNicknameTaken
	}
	if cur, ok := m.RoomOf(connID); ok {
		if cur.ID == r.ID {
			return r, nil
		}
		m.leave(connID)
	}

	r.Players = append(r.Players, newPlayer(connID, &req.Identity))
	m.members[connID] = r.ID
	m.metrics.playerJoined()
	m.log.Info("player joined",
		log.String("room", r.ID), log.String("nickname", nick), log.Int("players", len(r.Players)))

	m.sendJoined(connID, r)
	m.broadcastRoom(r)
	m.publishLobby()
	return r, nil
}

// RejoinRoom rebinds an existing player record to a new connection. The record
// is looked up by driver id, then by nickname. Host status moves with the
// record. Without a matching record the request is handled like a join.
// A member of the room may not take over the record of another player.
func (m *Manager) RejoinRoom(connID string, req *protocol.RejoinRoom) (*model.Room, error) {
	r, ok := m.rooms[req.RoomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	p := m.findRejoinRecord(r, &req.Identity)
	if p != nil && p.ID != connID && m.members[connID] == r.ID {
		return nil, ErrNicknameTaken
	}
	if p != nil && p.ID == connID {
		m.sendJoined(connID, r)
		return r, nil
	}
	if p == nil {
		if r.Phase != model.PhaseLobby {
			return nil, ErrPlayerNotFound
		}
		return m.JoinRoom(connID, &protocol.JoinRoom{Identity: req.Identity, RoomID: req.RoomID})
	}
	if cur, ok := m.RoomOf(connID); ok && cur.ID != r.ID {
		m.leave(connID)
	}
	oldID := p.ID
	wasHost := r.IsHost(oldID)
	delete(m.members, oldID)
	p.ID = connID
	if req.DriverID != "" {
		p.DriverID = req.DriverID
	}
	if wasHost {
		r.HostID = connID
	}
	m.members[connID] = r.ID
	m.log.Info("player rejoined",
		log.String("room", r.ID), log.String("nickname", p.Nickname),
		log.String("oldConn", oldID), log.String("conn", connID), log.Bool("host", wasHost))

	m.sendJoined(connID, r)
	m.broadcastRoom(r)
	return r, nil
}

func (m *Manager) findRejoinRecord(r *model.Room, id *protocol.Identity) *model.Player {
	if id.DriverID != "" {
		if p, ok := lo.Find(r.Players, func(p *model.Player) bool {
			return p.DriverID == id.DriverID
		}); ok {
			return p
		}
	}
	nick := strings.TrimSpace(id.Nickname)
	if nick == "" {
		return nil
	}
	p, _ := lo.Find(r.Players, func(p *model.Player) bool {
		return strings.EqualFold(p.Nickname, nick)
	})
	return p
}

func (m *Manager) sendJoined(connID string, r *model.Room) {
	m.notifier.Send(connID, protocol.EventRoomJoined, &protocol.RoomJoined{Room: r.Snapshot(), PlayerID: connID})
	if len(r.Chat) > 0 {
		m.notifier.Send(connID, protocol.EventChatHistory,
			&protocol.ChatHistory{Messages: append([]model.ChatMessage(nil), r.Chat...)})
	}
}

// LeaveRoom removes connID from its room
func (m *Manager) LeaveRoom(connID string) error {
	if _, ok := m.members[connID]; !ok {
		return ErrNotInRoom
	}
	m.leave(connID)
	return nil
}

// Disconnect cleans up after a closed connection
func (m *Manager) Disconnect(connID string) {
	m.leave(connID)
}

// Kick removes target from the host's room and notifies the target
func (m *Manager) Kick(connID, targetID string) error {
	r, err := m.hostRoom(connID)
	if err != nil {
		return err
	}
	if targetID == connID {
		return ErrCannotKickSelf
	}
	if r.Player(targetID) == nil {
		return ErrPlayerNotFound
	}
	m.removePlayer(r, targetID)
	m.notifier.Send(targetID, protocol.EventKicked,
		&protocol.Kicked{RoomID: r.ID, Reason: protocol.KickReasonHost})
	return nil
}

func (m *Manager) leave(connID string) {
	r, ok := m.RoomOf(connID)
	if !ok {
		delete(m.members, connID)
		return
	}
	m.removePlayer(r, connID)
}

// removePlayer drops connID from r. The last player leaving deletes the room,
// a leaving host hands over to the next remaining player.
func (m *Manager) removePlayer(r *model.Room, connID string) {
	delete(m.members, connID)
	before := len(r.Players)
	r.Players = lo.Reject(r.Players, func(p *model.Player, _ int) bool { return p.ID == connID })
	if len(r.Players) == before {
		return
	}
	m.metrics.playerLeft()
	m.log.Info("player left",
		log.String("room", r.ID), log.String("conn", connID), log.Int("players", len(r.Players)))

	if len(r.Players) == 0 {
		m.deleteRoom(r)
		m.publishLobby()
		return
	}
	if r.HostID == connID {
		r.HostID = r.Players[0].ID
		m.log.Info("host migrated",
			log.String("room", r.ID), log.String("host", r.Players[0].Nickname))
	}
	m.broadcastRoom(r)
	// the remaining players may all be done now
	m.checkSessionComplete(r)
	m.publishLobby()
}
