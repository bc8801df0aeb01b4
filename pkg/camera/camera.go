// Package camera is the chase camera consumers use to present a car.
package camera

import (
	"math"

	"github.com/mpapenbr/racelink/pkg/geometry"
	"github.com/mpapenbr/racelink/pkg/physics"
)

type Params struct {
	// fraction of the remaining distance covered per frame
	Follow float64
	// frames of velocity the camera looks ahead
	LookAhead float64
	// view size in world units
	ViewWidth  float64
	ViewHeight float64
}

func DefaultParams() Params {
	return Params{Follow: 0.12, LookAhead: 20, ViewWidth: 1600, ViewHeight: 900}
}

// Camera is centered at X,Y in world space and rotated by Angle
type Camera struct {
	X, Y   float64
	Angle  float64
	params Params
}

func New(p Params) *Camera {
	return &Camera{params: p}
}

// Snap centers the camera on s without easing
func (c *Camera) Snap(s *physics.State) {
	c.X, c.Y = s.X, s.Y
	c.Angle = s.Angle
	c.clamp()
}

// Update moves the camera toward a point ahead of the car
func (c *Camera) Update(s *physics.State, dt float64) {
	if dt <= 0 {
		return
	}
	target := geometry.Vec2{X: s.X, Y: s.Y}.Add(geometry.Vec2{X: s.VX, Y: s.VY}.Scale(c.params.LookAhead))
	k := 1 - math.Pow(1-c.params.Follow, dt)
	c.X += (target.X - c.X) * k
	c.Y += (target.Y - c.Y) * k
	c.Angle += normalizeAngle(s.Angle-c.Angle) * k
	c.clamp()
}

// Bounds returns the visible world rectangle ignoring rotation
func (c *Camera) Bounds() geometry.Rect {
	hw, hh := c.params.ViewWidth/2, c.params.ViewHeight/2
	return geometry.Rect{X0: c.X - hw, Y0: c.Y - hh, X1: c.X + hw, Y1: c.Y + hh}
}

func (c *Camera) clamp() {
	c.X = clampAxis(c.X, c.params.ViewWidth/2)
	c.Y = clampAxis(c.Y, c.params.ViewHeight/2)
}

func clampAxis(v, half float64) float64 {
	lo, hi := half, geometry.WorldSize-half
	if lo > hi {
		return geometry.WorldSize / 2
	}
	return math.Max(lo, math.Min(hi, v))
}

func normalizeAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
