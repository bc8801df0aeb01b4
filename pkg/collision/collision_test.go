//nolint:whitespace,funlen // readability
package collision

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/racelink/pkg/geometry"
	"github.com/mpapenbr/racelink/pkg/model"
	"github.com/mpapenbr/racelink/pkg/physics"
)

type everywhere bool

func (e everywhere) OnTrack(geometry.Vec2) bool { return bool(e) }

func dist(a, b *physics.State) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func TestWorldBound(t *testing.T) {
	r := NewResolver(nil)
	s := &physics.State{X: 2000, Y: 5000, Speed: 8, VY: 8}
	res := r.Resolve(s, nil, model.PhaseRacing, 1)
	assert.True(t, res.WorldBound)
	assert.InDelta(t, 2000, s.X, 1e-9)
	assert.InDelta(t, 2000+2600, s.Y, 1e-9)
	assert.Equal(t, 0.0, s.Speed)

	inside := &physics.State{X: 2100, Y: 2100, Speed: 3}
	assert.False(t, r.Resolve(inside, nil, model.PhaseRacing, 1).WorldBound)
	assert.Equal(t, 3.0, inside.Speed)
}

func TestCarsPushApart(t *testing.T) {
	r := NewResolver(nil)
	a := &physics.State{X: 1000, Y: 1000, Speed: 10, VX: 10}
	b := &physics.State{X: 1030, Y: 1010, Speed: 8, VX: -8}
	snapA := Other{ID: "a", X: a.X, Y: a.Y}
	snapB := Other{ID: "b", X: b.X, Y: b.Y}

	resA := r.Resolve(a, []Other{snapB}, model.PhaseRacing, 1)
	resB := r.Resolve(b, []Other{snapA}, model.PhaseRacing, 1)

	assert.Equal(t, 1, resA.CarHits)
	assert.Equal(t, 1, resB.CarHits)
	assert.InDelta(t, 7, a.Speed, 1e-9)
	assert.InDelta(t, 5.6, b.Speed, 1e-9)
	assert.InDelta(t, 7, a.VX, 1e-9)
	assert.GreaterOrEqual(t, dist(a, b), 40.0)
	// each car sits exactly one radius from the other's previous position
	assert.InDelta(t, 40, math.Hypot(a.X-snapB.X, a.Y-snapB.Y), 1e-9)
	assert.InDelta(t, 40, math.Hypot(b.X-snapA.X, b.Y-snapA.Y), 1e-9)
}

func TestCarsCoincident(t *testing.T) {
	r := NewResolver(nil)
	a := &physics.State{X: 1000, Y: 1000, Speed: 4}
	r.Resolve(a, []Other{{X: 1000, Y: 1000}}, model.PhaseRacing, 1)
	// heading 0 moves up, the push goes backwards
	assert.InDelta(t, 1040, a.Y, 1e-9)
}

func TestGhostModeInQualifying(t *testing.T) {
	r := NewResolver(nil)
	a := &physics.State{X: 1000, Y: 1000, Speed: 10}
	res := r.Resolve(a, []Other{{X: 1010, Y: 1000}}, model.PhaseQualifying, 1)
	assert.Equal(t, 0, res.CarHits)
	assert.Equal(t, 1000.0, a.X)
	assert.Equal(t, 10.0, a.Speed)
}

func TestBarrier(t *testing.T) {
	wall := model.Barrier{X1: 900, Y1: 1000, X2: 1100, Y2: 1000}
	r := NewResolver([]model.Barrier{wall})

	// driving down the screen into the wall from above
	s := &physics.State{X: 1000, Y: 990, Speed: 10, VY: 10, Angle: math.Pi}
	before := s.Speed
	res := r.Resolve(s, nil, model.PhaseRacing, 1)
	assert.True(t, res.BarrierHit)
	assert.InDelta(t, 1000-18, s.Y, 1e-9)
	assert.Less(t, s.Speed, before)
	// reflected with overbounce
	assert.InDelta(t, -12, s.VY, 1e-9)

	// sliding away from the wall is pushed out but keeps its speed
	away := &physics.State{X: 1000, Y: 1010, Speed: 3, VY: 3}
	r.Resolve(away, nil, model.PhaseRacing, 1)
	assert.InDelta(t, 1018, away.Y, 1e-9)
	assert.Equal(t, 3.0, away.Speed)

	// exactly on the wall line
	on := &physics.State{X: 1000, Y: 1000, Speed: 6, VY: 6}
	r.Resolve(on, nil, model.PhaseRacing, 1)
	assert.InDelta(t, 982, on.Y, 1e-9)
	assert.Less(t, on.Speed, 6.0)

	clear := &physics.State{X: 1000, Y: 950, Speed: 6}
	assert.False(t, r.Resolve(clear, nil, model.PhaseRacing, 1).BarrierHit)
}

func TestBarrierLargeStep(t *testing.T) {
	wall := model.Barrier{X1: 900, Y1: 1000, X2: 1100, Y2: 1000}
	r := NewResolver([]model.Barrier{wall})

	tests := []struct {
		name  string
		dt    float64
		start float64
		vy    float64
	}{
		{"lands inside the band behind the wall", 2, 981, 15},
		{"lands beyond the band", 2, 981, 25},
		{"single frame", 1, 981, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &physics.State{X: 1000, Y: tt.start + tt.vy*tt.dt, Speed: tt.vy, VY: tt.vy}
			res := r.Resolve(s, nil, model.PhaseRacing, tt.dt)
			assert.True(t, res.BarrierHit)
			assert.InDelta(t, 1000-18, s.Y, 1e-9)
			assert.Less(t, s.VY, 0.0)
			assert.Less(t, s.Speed, tt.vy)
		})
	}

	// the band check alone still applies when the car stands still
	still := &physics.State{X: 1000, Y: 1010}
	assert.True(t, r.Resolve(still, nil, model.PhaseRacing, 2).BarrierHit)
	assert.InDelta(t, 1018, still.Y, 1e-9)
}

func TestOffTrack(t *testing.T) {
	r := NewResolver(nil, WithSurface(everywhere(false)))
	s := &physics.State{X: 1000, Y: 1000, Speed: 3}
	res := r.Resolve(s, nil, model.PhaseRacing, 1)
	assert.True(t, res.OffTrack)
	assert.InDelta(t, 3*0.92, s.Speed, 1e-9)

	fast := &physics.State{X: 1000, Y: 1000, Speed: 12}
	r.Resolve(fast, nil, model.PhaseRacing, 1)
	assert.Equal(t, 4.0, fast.Speed)

	back := &physics.State{X: 1000, Y: 1000, Speed: -6}
	r.Resolve(back, nil, model.PhaseRacing, 1)
	assert.Equal(t, -4.0, back.Speed)

	on := NewResolver(nil, WithSurface(everywhere(true)))
	s = &physics.State{X: 1000, Y: 1000, Speed: 12}
	assert.False(t, on.Resolve(s, nil, model.PhaseRacing, 1).OffTrack)
	assert.Equal(t, 12.0, s.Speed)
}

func TestNotMoving(t *testing.T) {
	r := NewResolver(nil, WithSurface(everywhere(false)))
	s := &physics.State{X: 9000, Y: 9000, Speed: 12}
	assert.Equal(t, Result{}, r.Resolve(s, nil, model.PhaseLobby, 1))
	assert.Equal(t, 9000.0, s.X)
}
