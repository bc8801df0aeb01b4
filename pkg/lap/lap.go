// Package lap detects start/finish crossings with a distance based checkpoint.
package lap

import (
	"time"

	"github.com/mpapenbr/racelink/pkg/geometry"
	"github.com/mpapenbr/racelink/pkg/model"
	"github.com/mpapenbr/racelink/pkg/physics"
)

type Kind int

const (
	LapCompleted Kind = iota + 1
	QualifyingFinished
	RaceFinished
)

func (k Kind) String() string {
	switch k {
	case LapCompleted:
		return "lapCompleted"
	case QualifyingFinished:
		return "qualifyingFinished"
	case RaceFinished:
		return "raceFinished"
	}
	return "unknown"
}

type Params struct {
	// moving further away than this arms the finish detector
	ArmDistance float64
	// an armed car closer than this has crossed the line
	CrossDistance float64
	// distance a finished car is moved along its heading
	FinishNudge float64
}

func DefaultParams() Params {
	return Params{ArmDistance: 1500, CrossDistance: 100, FinishNudge: 150}
}

// Event describes one recorded crossing
type Event struct {
	Kind Kind
	// lap that was completed
	Lap     int
	LapTime time.Duration
	// race time for RaceFinished, qualifying lap time for QualifyingFinished
	Total time.Duration
}

type Option func(*Tracker)

func WithParams(p Params) Option {
	return func(t *Tracker) { t.params = p }
}

// Tracker holds the checkpoint state of one car
type Tracker struct {
	params    Params
	line      geometry.Vec2
	totalLaps int
	lap       int
	armed     bool
	finished  bool
	raceStart time.Time
	lapStart  time.Time
	laps      []time.Duration
}

func NewTracker(line geometry.Vec2, totalLaps int, opts ...Option) *Tracker {
	t := &Tracker{params: DefaultParams(), line: line, totalLaps: totalLaps, lap: 1}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start resets the tracker for a session beginning at start
func (t *Tracker) Start(start time.Time) {
	t.lap = 1
	t.armed = false
	t.finished = false
	t.raceStart = start
	t.lapStart = start
	t.laps = nil
}

func (t *Tracker) Lap() int            { return t.lap }
func (t *Tracker) Armed() bool         { return t.armed }
func (t *Tracker) Finished() bool      { return t.finished }
func (t *Tracker) TotalLaps() int      { return t.totalLaps }
func (t *Tracker) LapStart() time.Time { return t.lapStart }

// LapTimes returns the completed lap times
func (t *Tracker) LapTimes() []time.Duration {
	return append([]time.Duration(nil), t.laps...)
}

// Update checks the car position against the line. On a finish the car is
// moved forward off the line and stopped. A finished tracker never reports again.
func (t *Tracker) Update(s *physics.State, phase model.Phase, now time.Time) (Event, bool) {
	if t.finished || !phase.Moving() {
		return Event{}, false
	}
	d := geometry.Vec2{X: s.X, Y: s.Y}.Dist(t.line)
	if d > t.params.ArmDistance {
		t.armed = true
		return Event{}, false
	}
	if d >= t.params.CrossDistance || !t.armed {
		return Event{}, false
	}

	lapTime := now.Sub(t.lapStart)
	t.laps = append(t.laps, lapTime)
	switch {
	case phase == model.PhaseQualifying:
		t.finish(s)
		return Event{Kind: QualifyingFinished, Lap: t.lap, LapTime: lapTime, Total: lapTime}, true
	case t.lap >= t.totalLaps:
		t.finish(s)
		return Event{
			Kind: RaceFinished, Lap: t.lap, LapTime: lapTime, Total: now.Sub(t.raceStart),
		}, true
	default:
		ev := Event{Kind: LapCompleted, Lap: t.lap, LapTime: lapTime, Total: now.Sub(t.raceStart)}
		t.lap++
		t.armed = false
		t.lapStart = now
		return ev, true
	}
}

func (t *Tracker) finish(s *physics.State) {
	t.finished = true
	t.armed = false
	p := geometry.Vec2{X: s.X, Y: s.Y}.Add(geometry.Forward(s.Angle).Scale(t.params.FinishNudge))
	s.X, s.Y = p.X, p.Y
	s.Freeze()
}
