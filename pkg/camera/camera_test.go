package camera

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/racelink/pkg/physics"
)

func TestFollow(t *testing.T) {
	c := New(DefaultParams())
	s := &physics.State{X: 2000, Y: 2000}
	c.Snap(s)
	s.X = 2200
	for i := 0; i < 300; i++ {
		c.Update(s, 1)
	}
	assert.InDelta(t, 2200, c.X, 1e-6)
	assert.InDelta(t, 2000, c.Y, 1e-6)
}

func TestLookAhead(t *testing.T) {
	c := New(DefaultParams())
	s := &physics.State{X: 2000, Y: 2000, VX: 5}
	c.Snap(s)
	for i := 0; i < 300; i++ {
		c.Update(s, 1)
	}
	assert.InDelta(t, 2100, c.X, 1e-6)
}

func TestClampToWorld(t *testing.T) {
	c := New(DefaultParams())
	c.Snap(&physics.State{X: 10, Y: 3990})
	assert.Equal(t, 800.0, c.X)
	assert.Equal(t, 3550.0, c.Y)

	wide := New(Params{Follow: 1, ViewWidth: 5000, ViewHeight: 100})
	wide.Snap(&physics.State{X: 10, Y: 10})
	assert.Equal(t, 2000.0, wide.X)
}

func TestAngleTakesShortWay(t *testing.T) {
	c := New(Params{Follow: 0.5, ViewWidth: 100, ViewHeight: 100})
	c.Snap(&physics.State{X: 2000, Y: 2000, Angle: math.Pi - 0.1})
	c.Update(&physics.State{X: 2000, Y: 2000, Angle: -math.Pi + 0.1}, 1)
	assert.InDelta(t, math.Pi, c.Angle, 1e-9)
}
