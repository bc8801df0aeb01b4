// Package barrier derives walls that block shortcuts between track
// sections which pass close to each other without being sequential.
package barrier

import (
	"errors"
	"math"

	"github.com/mpapenbr/racelink/pkg/geometry"
	"github.com/mpapenbr/racelink/pkg/model"
)

// collision radius of a barrier, used to keep walls off the drivable ribbon
const Radius = 18.0

var ErrDegenerate = errors.New("cannot synthesize barriers on a degenerate path")

// Config holds the tunable thresholds of the synthesizer. All values are world units
// except MaxTangentDot.
type Config struct {
	// distance between centerline samples
	SampleStep float64
	// sections closer than MinGap are not separated by a wall
	MinGap float64
	// sections further apart than MaxGap are not considered close
	MaxGap float64
	// minimum arc length between two samples for them to count as non sequential
	MinArcSeparation float64
	// pairs whose tangents have a dot product above this value are ignored,
	// a negative value keeps only sections running in opposite directions
	MaxTangentDot float64
	// half length of a generated wall
	WallHalfLength float64
	// walls whose midpoints are closer than this are merged
	MinSpacing float64
}

// DefaultConfig returns thresholds derived from the drivable width
func DefaultConfig(trackWidth float64) Config {
	return Config{
		SampleStep:       20,
		MinGap:           trackWidth + 2*Radius,
		MaxGap:           3 * trackWidth,
		MinArcSeparation: 5 * trackWidth,
		MaxTangentDot:    -0.5,
		WallHalfLength:   20,
		MinSpacing:       20,
	}
}

type sample struct {
	p geometry.Vec2
	t geometry.Vec2
	s float64
}

// Synthesize scans the world space centerline for close, non sequential
// sections and places a wall halfway between them.
func Synthesize(line *geometry.Polyline, trackWidth float64, cfg Config) ([]model.Barrier, error) {
	if line == nil || line.Length() == 0 || cfg.SampleStep <= 0 {
		return nil, ErrDegenerate
	}
	total := line.Length()
	samples := make([]sample, 0, int(total/cfg.SampleStep)+1)
	for i, p := range line.Resample(cfg.SampleStep) {
		s := float64(i) * cfg.SampleStep
		samples = append(samples, sample{p: p, t: line.TangentAt(s), s: s})
	}
	ribbon := geometry.NewSegmentIndex(line, geometry.IndexCellSize)
	clearance := trackWidth/2 + Radius

	ret := []model.Barrier{}
	var mids []geometry.Vec2
	for i := range samples {
		a := samples[i]
		best := -1
		bestDist := math.Inf(1)
		for j := i + 1; j < len(samples); j++ {
			b := samples[j]
			d := a.p.Dist(b.p)
			if d < cfg.MinGap || d > cfg.MaxGap || d >= bestDist {
				continue
			}
			if arcSeparation(a.s, b.s, total, line.Closed()) < cfg.MinArcSeparation {
				continue
			}
			if a.t.Dot(b.t) > cfg.MaxTangentDot {
				continue
			}
			best, bestDist = j, d
		}
		if best < 0 {
			continue
		}
		b := samples[best]
		mid := geometry.Lerp(a.p, b.p, 0.5)
		dir := a.t.Sub(b.t).Norm()
		if dir == (geometry.Vec2{}) {
			continue
		}
		p1 := mid.Add(dir.Scale(cfg.WallHalfLength))
		p2 := mid.Sub(dir.Scale(cfg.WallHalfLength))
		// a wall must never reach onto the track
		if ribbon.Within(mid, clearance) || ribbon.Within(p1, clearance) || ribbon.Within(p2, clearance) {
			continue
		}
		if tooClose(mids, mid, cfg.MinSpacing) {
			continue
		}
		mids = append(mids, mid)
		ret = append(ret, model.Barrier{X1: p1.X, Y1: p1.Y, X2: p2.X, Y2: p2.Y})
	}
	return ret, nil
}

func arcSeparation(a, b, total float64, closed bool) float64 {
	d := math.Abs(a - b)
	if closed {
		d = math.Min(d, total-d)
	}
	return d
}

func tooClose(mids []geometry.Vec2, p geometry.Vec2, spacing float64) bool {
	for _, m := range mids {
		if m.Dist(p) < spacing {
			return true
		}
	}
	return false
}
