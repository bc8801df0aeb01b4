// Package collision corrects an integrated car position against the world
// bound, other cars, synthesized barriers and the drivable ribbon.
package collision

import (
	"math"

	"github.com/mpapenbr/racelink/pkg/geometry"
	"github.com/mpapenbr/racelink/pkg/model"
	"github.com/mpapenbr/racelink/pkg/physics"
)

type Params struct {
	WorldCenter    geometry.Vec2
	WorldRadius    float64
	CarRadius      float64
	BumpDamping    float64
	BarrierRadius  float64
	Restitution    float64
	BarrierDamping float64
	// per frame speed factor while off track
	OffTrackDecay float64
	GrassMaxSpeed float64
}

func DefaultParams() Params {
	return Params{
		WorldCenter:    geometry.Vec2{X: 2000, Y: 2000},
		WorldRadius:    2600,
		CarRadius:      40,
		BumpDamping:    0.7,
		BarrierRadius:  18,
		Restitution:    1.2,
		BarrierDamping: 0.5,
		OffTrackDecay:  0.92,
		GrassMaxSpeed:  4,
	}
}

// Surface answers the on/off track question for a world position
type Surface interface {
	OnTrack(p geometry.Vec2) bool
}

// Other is the last known position of another car
type Other struct {
	ID   string
	X, Y float64
}

// Result reports which corrections were applied
type Result struct {
	WorldBound bool
	CarHits    int
	BarrierHit bool
	OffTrack   bool
}

type Option func(*Resolver)

func WithParams(p Params) Option {
	return func(r *Resolver) { r.params = p }
}

func WithSurface(s Surface) Option {
	return func(r *Resolver) { r.surface = s }
}

// Resolver holds the static collision data of one track
type Resolver struct {
	params   Params
	surface  Surface
	barriers []model.Barrier
}

func NewResolver(barriers []model.Barrier, opts ...Option) *Resolver {
	r := &Resolver{params: DefaultParams(), barriers: barriers}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Params() Params { return r.params }

// Resolve corrects s in place. Checks run in a fixed order: world bound,
// other cars (not in qualifying), barriers and finally the track surface.
// dt must be the step the state was just integrated with. Outside of moving
// phases nothing is done.
func (r *Resolver) Resolve(s *physics.State, others []Other, phase model.Phase, dt float64) Result {
	var res Result
	if !phase.Moving() {
		return res
	}
	res.WorldBound = r.worldBound(s)
	if phase != model.PhaseQualifying {
		res.CarHits = r.cars(s, others)
	}
	res.BarrierHit = r.walls(s, dt)
	res.OffTrack = r.offTrack(s, dt)
	return res
}

func (r *Resolver) worldBound(s *physics.State) bool {
	p := geometry.Vec2{X: s.X, Y: s.Y}
	d := p.Dist(r.params.WorldCenter)
	if d <= r.params.WorldRadius {
		return false
	}
	p = r.params.WorldCenter.Add(p.Sub(r.params.WorldCenter).Scale(r.params.WorldRadius / d))
	s.X, s.Y = p.X, p.Y
	s.Freeze()
	return true
}

// cars resolves against the snapshot positions in others so two cars that
// overlap in the same frame end up at least one car radius apart
func (r *Resolver) cars(s *physics.State, others []Other) int {
	hits := 0
	for _, o := range others {
		p := geometry.Vec2{X: s.X, Y: s.Y}
		op := geometry.Vec2{X: o.X, Y: o.Y}
		d := p.Dist(op)
		if d >= r.params.CarRadius {
			continue
		}
		n := p.Sub(op).Norm()
		if d == 0 {
			n = geometry.Forward(s.Angle).Scale(-1)
		}
		p = p.Add(n.Scale(r.params.CarRadius - d))
		s.X, s.Y = p.X, p.Y
		s.Speed *= r.params.BumpDamping
		s.VX *= r.params.BumpDamping
		s.VY *= r.params.BumpDamping
		hits++
	}
	return hits
}

// walls keeps the car on the side of each barrier it came from. The
// position before the step is p - v*dt so a car that moved through a wall
// within one frame is caught as well.
func (r *Resolver) walls(s *physics.State, dt float64) bool {
	hit := false
	for i := range r.barriers {
		b := &r.barriers[i]
		a := geometry.Vec2{X: b.X1, Y: b.Y1}
		e := geometry.Vec2{X: b.X2, Y: b.Y2}
		p := geometry.Vec2{X: s.X, Y: s.Y}
		v := geometry.Vec2{X: s.VX, Y: s.VY}
		prev := p.Sub(v.Scale(math.Max(0, dt)))
		c := geometry.ClosestOnSegment(p, a, e)
		d := p.Dist(c)
		crossed := prev != p && geometry.SegmentsIntersect(prev, p, a, e)
		if d >= r.params.BarrierRadius && !crossed {
			continue
		}
		var n geometry.Vec2
		if d > 0 && !crossed {
			n = p.Sub(c).Scale(1 / d)
		} else {
			n = e.Sub(a).Perp().Norm()
			side := n.Dot(prev.Sub(a))
			// on the wall line without a previous side, push back against the direction of travel
			if side < 0 || (side == 0 && n.Dot(v) > 0) {
				n = n.Scale(-1)
			}
		}
		p = c.Add(n.Scale(r.params.BarrierRadius))
		s.X, s.Y = p.X, p.Y
		if vn := v.Dot(n); vn < 0 {
			v = v.Sub(n.Scale((1 + r.params.Restitution) * vn))
			s.VX, s.VY = v.X, v.Y
			s.Speed *= r.params.BarrierDamping
		}
		hit = true
	}
	return hit
}

func (r *Resolver) offTrack(s *physics.State, dt float64) bool {
	if r.surface == nil || r.surface.OnTrack(geometry.Vec2{X: s.X, Y: s.Y}) {
		return false
	}
	if dt > 0 {
		s.Speed *= math.Pow(r.params.OffTrackDecay, dt)
	}
	s.Speed = math.Max(-r.params.GrassMaxSpeed, math.Min(r.params.GrassMaxSpeed, s.Speed))
	return true
}
