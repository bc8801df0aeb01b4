//nolint:whitespace,funlen // readability
package lap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racelink/pkg/geometry"
	"github.com/mpapenbr/racelink/pkg/model"
	"github.com/mpapenbr/racelink/pkg/physics"
)

var (
	line  = geometry.Vec2{X: 1000, Y: 1000}
	epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
)

// driver feeds positions into a tracker with a clock advancing one second per step
type driver struct {
	tr    *Tracker
	now   time.Time
	phase model.Phase
	evs   []Event
}

func newDriver(laps int, phase model.Phase) *driver {
	tr := NewTracker(line, laps)
	tr.Start(epoch)
	return &driver{tr: tr, now: epoch, phase: phase}
}

func (d *driver) at(x, y float64) *physics.State {
	d.now = d.now.Add(time.Second)
	s := &physics.State{X: x, Y: y, Speed: 10, VX: 10}
	if ev, ok := d.tr.Update(s, d.phase, d.now); ok {
		d.evs = append(d.evs, ev)
	}
	return s
}

// loop drives far away and back onto the line
func (d *driver) loop() {
	d.at(1500, 1000)
	d.at(2600, 1000)
	d.at(1500, 1000)
	d.at(1050, 1000)
}

func TestCrossingNeedsArming(t *testing.T) {
	d := newDriver(3, model.PhaseRacing)
	d.at(1200, 1000)
	d.at(1020, 1000)
	d.at(1000, 1000)
	d.at(1400, 1000)
	d.at(1010, 1000)
	assert.Empty(t, d.evs)
	assert.Equal(t, 1, d.tr.Lap())
	assert.False(t, d.tr.Armed())
}

func TestOneCrossingPerLoop(t *testing.T) {
	d := newDriver(5, model.PhaseRacing)
	d.loop()
	require.Len(t, d.evs, 1)
	assert.Equal(t, Event{Kind: LapCompleted, Lap: 1, LapTime: 4 * time.Second, Total: 4 * time.Second}, d.evs[0])
	assert.Equal(t, 2, d.tr.Lap())
	// lingering on the line does not count again
	d.at(1000, 1000)
	d.at(1030, 1000)
	assert.Len(t, d.evs, 1)

	d.loop()
	require.Len(t, d.evs, 2)
	assert.Equal(t, 2, d.evs[1].Lap)
	assert.Equal(t, 6*time.Second, d.evs[1].LapTime)
	assert.Equal(t, 10*time.Second, d.evs[1].Total)
	assert.Equal(t, []time.Duration{4 * time.Second, 6 * time.Second}, d.tr.LapTimes())
}

func TestRaceFinish(t *testing.T) {
	d := newDriver(2, model.PhaseRacing)
	d.loop()
	d.loop()
	require.Len(t, d.evs, 2)
	fin := d.evs[1]
	assert.Equal(t, RaceFinished, fin.Kind)
	assert.Equal(t, 2, fin.Lap)
	assert.Equal(t, 8*time.Second, fin.Total)
	assert.True(t, d.tr.Finished())
}

func TestFinishNudgesAndFreezes(t *testing.T) {
	tr := NewTracker(line, 1)
	tr.Start(epoch)
	far := &physics.State{X: 3000, Y: 1000}
	_, ok := tr.Update(far, model.PhaseRacing, epoch.Add(time.Second))
	assert.False(t, ok)
	// heading 0 moves up the screen
	s := &physics.State{X: 1000, Y: 1050, Speed: 9, VX: 1, VY: -9}
	ev, ok := tr.Update(s, model.PhaseRacing, epoch.Add(2*time.Second))
	require.True(t, ok)
	assert.Equal(t, RaceFinished, ev.Kind)
	assert.InDelta(t, 1000, s.X, 1e-9)
	assert.InDelta(t, 900, s.Y, 1e-9)
	assert.Equal(t, 0.0, s.Speed)
	assert.Equal(t, 0.0, s.VX)
	assert.Equal(t, 0.0, s.VY)
}

func TestFinishIsOneShot(t *testing.T) {
	d := newDriver(1, model.PhaseRacing)
	d.loop()
	require.Len(t, d.evs, 1)
	first := d.evs[0]
	d.loop()
	d.loop()
	assert.Len(t, d.evs, 1)
	assert.Equal(t, first, d.evs[0])
}

func TestQualifyingFinish(t *testing.T) {
	d := newDriver(3, model.PhaseQualifying)
	d.loop()
	require.Len(t, d.evs, 1)
	assert.Equal(t, QualifyingFinished, d.evs[0].Kind)
	assert.Equal(t, 4*time.Second, d.evs[0].Total)
	assert.True(t, d.tr.Finished())
	d.loop()
	assert.Len(t, d.evs, 1)

	// a new session start rearms the tracker
	d.tr.Start(d.now)
	d.phase = model.PhaseRacing
	d.loop()
	require.Len(t, d.evs, 2)
	assert.Equal(t, LapCompleted, d.evs[1].Kind)
}

func TestIgnoredOutsideMovingPhases(t *testing.T) {
	d := newDriver(1, model.PhaseCountdown)
	d.loop()
	assert.Empty(t, d.evs)
	assert.False(t, d.tr.Armed())
}
