package model

// Player is a room member. ID is the volatile connection id, DriverID the stable
// identity token a client keeps across reloads.
type Player struct {
	ID       string   `json:"id" msgpack:"id"`
	DriverID string   `json:"driverId" msgpack:"driverId"`
	Nickname string   `json:"nickname" msgpack:"nickname"`
	Team     string   `json:"team,omitempty" msgpack:"team"`
	Livery   Livery   `json:"livery" msgpack:"livery"`
	Setup    CarSetup `json:"setup" msgpack:"setup"`
	Ready    bool     `json:"ready" msgpack:"ready"`

	X     float64 `json:"x" msgpack:"x"`
	Y     float64 `json:"y" msgpack:"y"`
	Angle float64 `json:"angle" msgpack:"angle"`
	Speed float64 `json:"speed" msgpack:"speed"`
	Lap   int     `json:"lap" msgpack:"lap"`

	Finished        bool  `json:"finished" msgpack:"finished"`
	FinishTime      int64 `json:"finishTime,omitempty" msgpack:"finishTime"`
	QualifyFinished bool  `json:"qualifyFinished" msgpack:"qualifyFinished"`
	QualifyTime     int64 `json:"qualifyTime,omitempty" msgpack:"qualifyTime"`
	GridSlot        int   `json:"gridSlot" msgpack:"gridSlot"`
}

// ResetRace clears everything a new race start or a lobby reset invalidates
func (p *Player) ResetRace() {
	p.Finished = false
	p.FinishTime = 0
	p.QualifyFinished = false
	p.QualifyTime = 0
	p.Lap = 1
	p.Speed = 0
}
