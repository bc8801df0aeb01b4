package results

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racelink/pkg/model"
)

func sampleRoom() *model.Room {
	return &model.Room{
		ID:            "room-1",
		Name:          "alice's room",
		TrackID:       "monaco",
		TotalLaps:     3,
		Weather:       model.WeatherRainy,
		Qualifying:    true,
		Phase:         model.PhaseFinished,
		RaceStartTime: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
		Players: []*model.Player{
			{ID: "c1", DriverID: "d1", Nickname: "alice", GridSlot: 0, Finished: true, FinishTime: 95123, QualifyTime: 31000},
			{ID: "c2", Nickname: "bob", GridSlot: 1},
			{ID: "c3", DriverID: "d3", Nickname: "carol", Team: "red", GridSlot: 2, Finished: true, FinishTime: 93001},
		},
	}
}

func TestFromRoom(t *testing.T) {
	finished := time.Date(2024, 5, 1, 12, 2, 0, 0, time.UTC)
	race := FromRoom(sampleRoom(), finished)

	assert.False(t, race.ID.IsNil())
	assert.Equal(t, "monaco", race.TrackID)
	assert.Equal(t, "rainy", race.Weather)
	assert.Equal(t, finished, race.FinishedAt)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), race.StartedAt)

	require.Len(t, race.Entries, 3)
	names := []string{race.Entries[0].Nickname, race.Entries[1].Nickname, race.Entries[2].Nickname}
	assert.Equal(t, []string{"carol", "alice", "bob"}, names)
	for i, e := range race.Entries {
		assert.Equal(t, i+1, e.Position)
	}

	carol := race.Entries[0]
	require.True(t, carol.FinishTime.Valid)
	assert.True(t, decimal.RequireFromString("93.001").Equal(carol.FinishTime.Decimal))
	assert.False(t, carol.QualifyTime.Valid)

	alice := race.Entries[1]
	assert.True(t, decimal.RequireFromString("31").Equal(alice.QualifyTime.Decimal))

	bob := race.Entries[2]
	assert.False(t, bob.Finished)
	assert.False(t, bob.FinishTime.Valid)
	assert.Equal(t, "c2", bob.DriverID, "connection id substitutes a missing driver id")

	assert.Equal(t, carol, race.Winner())
}

func TestWinnerWithoutFinisher(t *testing.T) {
	room := sampleRoom()
	for _, p := range room.Players {
		p.Finished = false
	}
	assert.Nil(t, FromRoom(room, time.Now()).Winner())
}

func TestBuildPrompt(t *testing.T) {
	room := sampleRoom()
	room.Players[0].Setup = model.CarSetup{FrontWing: 20, RearWing: 30, FrontSuspension: 5, RearSuspension: 6, Tire: model.TireWet}
	prompt := BuildPrompt(FromRoom(room, time.Now()))

	for _, want := range []string{
		`track "monaco"`,
		"rainy weather",
		"3 lap race with qualifying",
		"1. carol (red): 93.001s",
		"2. alice: 95.123s, qualifying 31.000s, setup wings 20/30 suspension 5/6 tires wet",
		"3. bob: did not finish",
	} {
		assert.True(t, strings.Contains(prompt, want), "missing %q in\n%s", want, prompt)
	}
}
