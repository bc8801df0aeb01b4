// Package protocol defines the event names and payloads exchanged between
// race clients and the relay server.
package protocol

import "github.com/mpapenbr/racelink/pkg/model"

// client to server
const (
	EventHello            = "hello"
	EventCreateRoom       = "createRoom"
	EventJoinRoom         = "joinRoom"
	EventRejoinRoom       = "rejoinRoom"
	EventLeaveRoom        = "leaveRoom"
	EventKick             = "room:kick"
	EventChangeTrack      = "room:changeTrack"
	EventChangeLaps       = "room:changeLaps"
	EventChangeWeather    = "room:changeWeather"
	EventToggleQualifying = "room:toggleQualifying"
	EventReset            = "room:reset"
	EventUpdateReady      = "updateReady"
	EventStartRace        = "startRace"
	EventPlayerMove       = "playerMove"
	EventFinishRace       = "finishRace"
	EventFinishQualifying = "finishQualifying"
	EventChatSend         = "chat:send"
	EventListRooms        = "listRooms"
)

// server to client
const (
	EventWelcome               = "welcome"
	EventLobbyUpdate           = "lobbyUpdate"
	EventRoomJoined            = "roomJoined"
	EventRoomUpdate            = "roomUpdate"
	EventRaceStarted           = "raceStarted"
	EventKicked                = "kicked"
	EventError                 = "error"
	EventPlayerMoved           = "playerMoved"
	EventPlayerFinished        = "playerFinished"
	EventPlayerQualifyFinished = "playerQualifyFinished"
	EventChatMessage           = "chat:message"
	EventChatHistory           = "chat:history"
)

// transport level pseudo events of the client channel
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
)

type Hello struct {
	ProtocolVersion string `json:"protocolVersion" msgpack:"protocolVersion" validate:"required"`
	DriverID        string `json:"driverId,omitempty" msgpack:"driverId"`
}

type Welcome struct {
	ConnID          string `json:"connId" msgpack:"connId"`
	ServerVersion   string `json:"serverVersion" msgpack:"serverVersion"`
	ProtocolVersion string `json:"protocolVersion" msgpack:"protocolVersion"`
}

// Identity describes the joining driver
type Identity struct {
	Nickname string         `json:"nickname" msgpack:"nickname" validate:"required,max=24"`
	DriverID string         `json:"driverId,omitempty" msgpack:"driverId" validate:"omitempty,max=64"`
	Team     string         `json:"team,omitempty" msgpack:"team" validate:"max=32"`
	Livery   model.Livery   `json:"livery" msgpack:"livery"`
	Setup    model.CarSetup `json:"setup" msgpack:"setup"`
}

type CreateRoom struct {
	Identity `msgpack:",inline"`
	RoomName string `json:"roomName,omitempty" msgpack:"roomName" validate:"max=40"`
	TrackID  string `json:"trackId,omitempty" msgpack:"trackId"`
	Laps     int    `json:"laps,omitempty" msgpack:"laps" validate:"gte=0,lte=50"`
}

type JoinRoom struct {
	Identity `msgpack:",inline"`
	RoomID   string `json:"roomId" msgpack:"roomId" validate:"required"`
}

type RejoinRoom struct {
	Identity `msgpack:",inline"`
	RoomID   string `json:"roomId" msgpack:"roomId" validate:"required"`
}

type RoomJoined struct {
	Room     *model.Room `json:"room" msgpack:"room"`
	PlayerID string      `json:"playerId" msgpack:"playerId"`
}

type Kick struct {
	TargetID string `json:"targetId" msgpack:"targetId" validate:"required"`
}

const (
	KickReasonHost    = "kicked"
	KickReasonExpired = "expired"
)

type Kicked struct {
	RoomID string `json:"roomId" msgpack:"roomId"`
	Reason string `json:"reason" msgpack:"reason"`
}

type ChangeTrack struct {
	TrackID string `json:"trackId" msgpack:"trackId" validate:"required"`
}

type ChangeLaps struct {
	Laps int `json:"laps" msgpack:"laps" validate:"gte=1,lte=50"`
}

type ChangeWeather struct {
	Weather model.Weather `json:"weather" msgpack:"weather" validate:"oneof=sunny rainy"`
}

type ToggleQualifying struct {
	Enabled bool `json:"enabled" msgpack:"enabled"`
}

type UpdateReady struct {
	Ready bool `json:"ready" msgpack:"ready"`
}

type PlayerMove struct {
	X     float64 `json:"x" msgpack:"x"`
	Y     float64 `json:"y" msgpack:"y"`
	Angle float64 `json:"angle" msgpack:"angle"`
	Speed float64 `json:"speed" msgpack:"speed"`
	Lap   int     `json:"lap" msgpack:"lap" validate:"gte=0"`
}

type PlayerMoved struct {
	PlayerID   string `json:"playerId" msgpack:"playerId"`
	PlayerMove `msgpack:",inline"`
}

// FinishRace carries the race time in milliseconds
type FinishRace struct {
	FinishTime int64 `json:"finishTime" msgpack:"finishTime" validate:"gt=0"`
}

type PlayerFinished struct {
	PlayerID   string `json:"playerId" msgpack:"playerId"`
	Nickname   string `json:"nickname" msgpack:"nickname"`
	FinishTime int64  `json:"finishTime" msgpack:"finishTime"`
}

// FinishQualifying carries the qualifying lap time in milliseconds
type FinishQualifying struct {
	QualifyTime int64 `json:"qualifyTime" msgpack:"qualifyTime" validate:"gt=0"`
}

type PlayerQualifyFinished struct {
	PlayerID    string `json:"playerId" msgpack:"playerId"`
	Nickname    string `json:"nickname" msgpack:"nickname"`
	QualifyTime int64  `json:"qualifyTime" msgpack:"qualifyTime"`
}

type ChatSend struct {
	Text string `json:"text" msgpack:"text" validate:"required,max=500"`
}

type ChatHistory struct {
	Messages []model.ChatMessage `json:"messages" msgpack:"messages"`
}

type RaceStarted struct {
	Room          *model.Room `json:"room" msgpack:"room"`
	Phase         model.Phase `json:"phase" msgpack:"phase"`
	RaceStartTime int64       `json:"raceStartTime" msgpack:"raceStartTime"`
}

type LobbyUpdate struct {
	Rooms []model.LobbyEntry `json:"rooms" msgpack:"rooms"`
}

type Error struct {
	Code    string `json:"code" msgpack:"code"`
	Message string `json:"message" msgpack:"message"`
	// request event that caused the error
	Event string `json:"event,omitempty" msgpack:"event"`
}
