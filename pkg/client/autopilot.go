package client

import (
	"math"

	"github.com/mpapenbr/racelink/pkg/geometry"
	"github.com/mpapenbr/racelink/pkg/physics"
	"github.com/mpapenbr/racelink/pkg/track"
)

// Driver produces the input of the local car for one frame
type Driver interface {
	Input(s physics.State, t *track.Resolved) physics.Input
}

type DriverFunc func(s physics.State, t *track.Resolved) physics.Input

func (f DriverFunc) Input(s physics.State, t *track.Resolved) physics.Input {
	return f(s, t)
}

// Autopilot follows the centerline by aiming at a point LookAhead world
// units further down the track.
type Autopilot struct {
	LookAhead float64
	// heading error (radians) below which the car does not steer
	Deadband float64
	// the car brakes above CornerSpeed when the heading error exceeds CornerAngle
	CornerAngle float64
	CornerSpeed float64
}

func NewAutopilot() *Autopilot {
	return &Autopilot{LookAhead: 250, Deadband: 0.03, CornerAngle: 0.6, CornerSpeed: 6}
}

func (a *Autopilot) Input(s physics.State, t *track.Resolved) physics.Input {
	var in physics.Input
	if t == nil || t.Geometry == nil {
		return in
	}
	line := t.Geometry.World
	pos := geometry.Vec2{X: s.X, Y: s.Y}
	ahead := a.LookAhead
	if t.Data.Reverse {
		ahead = -ahead
	}
	target := line.PointAt(line.Project(pos) + ahead)
	d := target.Sub(pos)
	want := geometry.CarHeading(math.Atan2(d.Y, d.X))
	diff := normalizeAngle(want - s.Angle)

	in.Right = diff > a.Deadband
	in.Left = diff < -a.Deadband
	if math.Abs(diff) > a.CornerAngle && s.Speed > a.CornerSpeed {
		in.Brake = true
	} else {
		in.Accelerate = true
	}
	return in
}

// normalizeAngle maps a into (-pi, pi]
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	switch {
	case a > math.Pi:
		a -= 2 * math.Pi
	case a <= -math.Pi:
		a += 2 * math.Pi
	}
	return a
}
