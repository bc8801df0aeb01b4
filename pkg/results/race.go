// Package results records finished races together with a generated race
// summary text.
package results

import (
	"sort"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/racelink/pkg/model"
)

// Race is the stored result of a finished session
type Race struct {
	ID         uuid.UUID `json:"id"`
	RoomID     string    `json:"roomId"`
	RoomName   string    `json:"roomName"`
	TrackID    string    `json:"trackId"`
	Laps       int       `json:"laps"`
	Weather    string    `json:"weather"`
	Qualifying bool      `json:"qualifying"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Feedback   string    `json:"feedback,omitempty"`
	Entries    []*Entry  `json:"entries"`
}

// Entry is one driver's line in the classification. Times are seconds.
type Entry struct {
	Position    int                 `json:"position"`
	DriverID    string              `json:"driverId"`
	Nickname    string              `json:"nickname"`
	Team        string              `json:"team,omitempty"`
	Finished    bool                `json:"finished"`
	FinishTime  decimal.NullDecimal `json:"finishTime"`
	QualifyTime decimal.NullDecimal `json:"qualifyTime"`
	Setup       model.CarSetup      `json:"-"`
}

func millisToSeconds(ms int64) decimal.NullDecimal {
	if ms <= 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.New(ms, -3))
}

// FromRoom builds the classification of a finished room. Finished drivers
// are ordered by finish time, the others keep their grid order behind them.
func FromRoom(r *model.Room, finishedAt time.Time) *Race {
	players := make([]*model.Player, len(r.Players))
	copy(players, r.Players)
	sort.SliceStable(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if a.Finished != b.Finished {
			return a.Finished
		}
		if a.Finished {
			return a.FinishTime < b.FinishTime
		}
		return a.GridSlot < b.GridSlot
	})
	race := &Race{
		ID:         uuid.Must(uuid.NewV7()),
		RoomID:     r.ID,
		RoomName:   r.Name,
		TrackID:    r.TrackID,
		Laps:       r.TotalLaps,
		Weather:    string(r.Weather),
		Qualifying: r.Qualifying,
		StartedAt:  time.UnixMilli(r.RaceStartTime).UTC(),
		FinishedAt: finishedAt.UTC(),
	}
	for i, p := range players {
		driverID := p.DriverID
		if driverID == "" {
			driverID = p.ID
		}
		race.Entries = append(race.Entries, &Entry{
			Position:    i + 1,
			DriverID:    driverID,
			Nickname:    p.Nickname,
			Team:        p.Team,
			Finished:    p.Finished,
			FinishTime:  millisToSeconds(p.FinishTime),
			QualifyTime: millisToSeconds(p.QualifyTime),
			Setup:       p.Setup,
		})
	}
	return race
}

// Winner returns the first classified entry
func (r *Race) Winner() *Entry {
	if len(r.Entries) == 0 || !r.Entries[0].Finished {
		return nil
	}
	return r.Entries[0]
}
