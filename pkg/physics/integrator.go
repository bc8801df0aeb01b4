package physics

import (
	"math"

	"github.com/mpapenbr/racelink/pkg/model"
)

// Input is the held key intent of one frame
type Input struct {
	Accelerate bool
	Brake      bool
	Left       bool
	Right      bool
}

// State is the kinematic state of a car in world space.
// A car with heading Angle moves along (sin Angle, -cos Angle).
type State struct {
	X, Y   float64
	Angle  float64
	Speed  float64
	VX, VY float64
}

// Step advances s by dt frame equivalents. dt is clamped to MaxDt,
// a non positive dt leaves the state untouched.
func (p Params) Step(s State, in Input, setup *model.CarSetup, weather model.Weather, dt float64) State {
	if dt <= 0 {
		return s
	}
	dt = math.Min(dt, p.MaxDt)
	c := p.Coefficients(setup, weather, s.Speed)

	// 1. throttle and brake
	if in.Accelerate {
		s.Speed += p.Accel * dt
	}
	if in.Brake {
		if s.Speed > 0 {
			s.Speed = math.Max(0, s.Speed-p.Brake*dt)
		} else {
			s.Speed -= p.ReverseAccel * dt
		}
	}

	// 2. rolling friction
	s.Speed *= math.Pow(p.Friction, dt)

	// 3. steering, inverted while reversing
	if math.Abs(s.Speed) > p.MinSteerSpeed {
		dir := 1.0
		if s.Speed < 0 {
			dir = -1
		}
		if in.Left {
			s.Angle -= c.TurnRate * dir * dt
		}
		if in.Right {
			s.Angle += c.TurnRate * dir * dt
		}
	}

	// 4. speed limits
	s.Speed = math.Max(c.ReverseMax(p), math.Min(c.MaxSpeed, s.Speed))

	// 5. heading implied target velocity
	tx := math.Sin(s.Angle) * s.Speed
	ty := -math.Cos(s.Angle) * s.Speed

	// 6. actual velocity trails the target
	blend := 1 - math.Pow(1-c.Grip, dt)
	s.VX += (tx - s.VX) * blend
	s.VY += (ty - s.VY) * blend

	// 7. candidate position
	s.X += s.VX * dt
	s.Y += s.VY * dt
	return s
}

// Freeze stops the car in place
func (s *State) Freeze() {
	s.Speed = 0
	s.VX = 0
	s.VY = 0
}
