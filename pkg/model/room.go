package model

import "time"

type (
	Phase   string
	Weather string
)

const (
	PhaseLobby      Phase = "lobby"
	PhaseCountdown  Phase = "countdown"
	PhaseQualifying Phase = "qualifying"
	PhaseRacing     Phase = "racing"
	PhaseFinished   Phase = "finished"
)

const (
	WeatherSunny Weather = "sunny"
	WeatherRainy Weather = "rainy"
)

const (
	MaxPlayers       = 4
	DefaultLaps      = 3
	MaxLaps          = 50
	ChatHistoryLimit = 50
	RoomTTL          = 2 * time.Hour
	CountdownDelay   = 3 * time.Second
)

// Active reports whether a race is under way in this phase
func (p Phase) Active() bool {
	return p == PhaseCountdown || p.Moving()
}

// Moving reports whether cars may move in this phase
func (p Phase) Moving() bool {
	return p == PhaseRacing || p == PhaseQualifying
}

func (w Weather) Valid() bool {
	return w == WeatherSunny || w == WeatherRainy
}

// Room is a multiplayer session. It is owned by the session manager, clients only
// ever see copies of it.
type Room struct {
	ID            string        `json:"id" msgpack:"id"`
	Name          string        `json:"name" msgpack:"name"`
	HostID        string        `json:"hostId" msgpack:"hostId"`
	TrackID       string        `json:"trackId" msgpack:"trackId"`
	TotalLaps     int           `json:"totalLaps" msgpack:"totalLaps"`
	Weather       Weather       `json:"weather" msgpack:"weather"`
	Qualifying    bool          `json:"qualifying" msgpack:"qualifying"`
	Players       []*Player     `json:"players" msgpack:"players"`
	Phase         Phase         `json:"phase" msgpack:"phase"`
	RaceStartTime int64         `json:"raceStartTime,omitempty" msgpack:"raceStartTime"`
	CreatedAt     time.Time     `json:"createdAt" msgpack:"createdAt"`
	LastActivity  time.Time     `json:"-" msgpack:"-"`
	Chat          []ChatMessage `json:"-" msgpack:"-"`
}

// LobbyEntry is the trimmed room view used by the room browser
type LobbyEntry struct {
	ID          string    `json:"id" msgpack:"id"`
	Name        string    `json:"name" msgpack:"name"`
	HostName    string    `json:"hostName" msgpack:"hostName"`
	TrackID     string    `json:"trackId" msgpack:"trackId"`
	TotalLaps   int       `json:"totalLaps" msgpack:"totalLaps"`
	Weather     Weather   `json:"weather" msgpack:"weather"`
	Phase       Phase     `json:"phase" msgpack:"phase"`
	PlayerCount int       `json:"playerCount" msgpack:"playerCount"`
	MaxPlayers  int       `json:"maxPlayers" msgpack:"maxPlayers"`
	CreatedAt   time.Time `json:"createdAt" msgpack:"createdAt"`
}

type ChatMessage struct {
	ID       string `json:"id" msgpack:"id"`
	PlayerID string `json:"playerId" msgpack:"playerId"`
	Nickname string `json:"nickname" msgpack:"nickname"`
	Text     string `json:"text" msgpack:"text"`
	SentAt   int64  `json:"sentAt" msgpack:"sentAt"`
}

func (r *Room) Player(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) IsHost(connID string) bool {
	return r.HostID != "" && r.HostID == connID
}

func (r *Room) Full() bool {
	return len(r.Players) >= MaxPlayers
}

// AppendChat adds msg and drops the oldest entries beyond ChatHistoryLimit
func (r *Room) AppendChat(msg ChatMessage) {
	r.Chat = append(r.Chat, msg)
	if over := len(r.Chat) - ChatHistoryLimit; over > 0 {
		r.Chat = append(r.Chat[:0:0], r.Chat[over:]...)
	}
}

func (r *Room) AllReady() bool {
	for _, p := range r.Players {
		if !p.Ready {
			return false
		}
	}
	return len(r.Players) > 0
}

func (r *Room) AllFinished() bool {
	for _, p := range r.Players {
		if !p.Finished {
			return false
		}
	}
	return len(r.Players) > 0
}

func (r *Room) AllQualified() bool {
	for _, p := range r.Players {
		if !p.QualifyFinished {
			return false
		}
	}
	return len(r.Players) > 0
}

// Snapshot returns a deep copy safe to hand out to other goroutines
func (r *Room) Snapshot() *Room {
	ret := *r
	ret.Players = make([]*Player, len(r.Players))
	for i, p := range r.Players {
		cp := *p
		ret.Players[i] = &cp
	}
	ret.Chat = nil
	return &ret
}

func (r *Room) LobbyEntry() LobbyEntry {
	hostName := ""
	if h := r.Player(r.HostID); h != nil {
		hostName = h.Nickname
	}
	return LobbyEntry{
		ID:          r.ID,
		Name:        r.Name,
		HostName:    hostName,
		TrackID:     r.TrackID,
		TotalLaps:   r.TotalLaps,
		Weather:     r.Weather,
		Phase:       r.Phase,
		PlayerCount: len(r.Players),
		MaxPlayers:  MaxPlayers,
		CreatedAt:   r.CreatedAt,
	}
}
