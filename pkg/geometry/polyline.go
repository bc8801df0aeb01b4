package geometry

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Polyline is a sampled curve with an arc-length table.
// cum[i] holds the path length from the first point up to pts[i].
type Polyline struct {
	pts    []Vec2
	cum    []float64
	closed bool
}

// NewPolyline builds the arc-length table for pts.
// A closed polyline gets its closing segment appended when missing.
func NewPolyline(pts []Vec2, closed bool) *Polyline {
	p := make([]Vec2, 0, len(pts)+1)
	for _, v := range pts {
		// drop zero length segments, they carry no direction
		if len(p) > 0 && p[len(p)-1] == v {
			continue
		}
		p = append(p, v)
	}
	if closed && len(p) > 1 && p[0] != p[len(p)-1] {
		p = append(p, p[0])
	}
	cum := make([]float64, len(p))
	for i := 1; i < len(p); i++ {
		cum[i] = cum[i-1] + p[i].Dist(p[i-1])
	}
	return &Polyline{pts: p, cum: cum, closed: closed}
}

func (p *Polyline) Length() float64 {
	if len(p.cum) == 0 {
		return 0
	}
	return p.cum[len(p.cum)-1]
}

func (p *Polyline) Closed() bool { return p.closed }

// Points returns the sample points, the caller must not modify them
func (p *Polyline) Points() []Vec2 { return p.pts }

func (p *Polyline) NumSegments() int {
	if len(p.pts) < 2 {
		return 0
	}
	return len(p.pts) - 1
}

func (p *Polyline) Segment(i int) (a, b Vec2) {
	return p.pts[i], p.pts[i+1]
}

// normalize maps s into [0,Length]. Closed paths wrap, open ones clamp.
func (p *Polyline) normalize(s float64) float64 {
	l := p.Length()
	if l == 0 {
		return 0
	}
	if p.closed {
		s = math.Mod(s, l)
		if s < 0 {
			s += l
		}
		return s
	}
	return math.Max(0, math.Min(l, s))
}

// locate returns the segment index containing arc length s and the
// interpolation parameter within that segment
func (p *Polyline) locate(s float64) (int, float64) {
	s = p.normalize(s)
	i := sort.SearchFloat64s(p.cum, s)
	if i == 0 {
		return 0, 0
	}
	if i >= len(p.cum) {
		i = len(p.cum) - 1
	}
	segLen := p.cum[i] - p.cum[i-1]
	if segLen == 0 {
		return i - 1, 0
	}
	return i - 1, (s - p.cum[i-1]) / segLen
}

// PointAt returns the point at arc length s
func (p *Polyline) PointAt(s float64) Vec2 {
	switch len(p.pts) {
	case 0:
		return Vec2{}
	case 1:
		return p.pts[0]
	}
	i, t := p.locate(s)
	return Lerp(p.pts[i], p.pts[i+1], t)
}

// TangentAt returns the unit direction of travel at arc length s
func (p *Polyline) TangentAt(s float64) Vec2 {
	if len(p.pts) < 2 {
		return Vec2{}
	}
	i, _ := p.locate(s)
	return p.pts[i+1].Sub(p.pts[i]).Norm()
}

// Bounds returns the bounding rectangle of all points
func (p *Polyline) Bounds() Rect {
	r := EmptyRect()
	for _, v := range p.pts {
		r = r.Extend(v)
	}
	return r
}

// Map returns a new polyline with f applied to every point
func (p *Polyline) Map(f func(Vec2) Vec2) *Polyline {
	pts := make([]Vec2, len(p.pts))
	for i, v := range p.pts {
		pts[i] = f(v)
	}
	return NewPolyline(pts, p.closed)
}

// Resample returns points spaced step apart along the path.
// For closed paths the last sample stops short of the start point.
func (p *Polyline) Resample(step float64) []Vec2 {
	l := p.Length()
	if l == 0 || step <= 0 {
		return nil
	}
	n := int(math.Floor(l / step))
	if !p.closed {
		n++
	}
	ret := make([]Vec2, 0, n)
	for i := 0; i < n; i++ {
		ret = append(ret, p.PointAt(float64(i)*step))
	}
	return ret
}

// PathData serializes the polyline as absolute SVG path data
func (p *Polyline) PathData() string {
	if len(p.pts) == 0 {
		return ""
	}
	var sb strings.Builder
	pts := p.pts
	if p.closed && len(pts) > 1 {
		pts = pts[:len(pts)-1]
	}
	for i, v := range pts {
		if i == 0 {
			sb.WriteString("M")
		} else {
			sb.WriteString(" L")
		}
		sb.WriteString(formatFloat(v.X))
		sb.WriteString(",")
		sb.WriteString(formatFloat(v.Y))
	}
	if p.closed {
		sb.WriteString(" Z")
	}
	return sb.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

// Project returns the arc length of the point on p closest to v
func (p *Polyline) Project(v Vec2) float64 {
	best, bestS := math.Inf(1), 0.0
	for i := 0; i < p.NumSegments(); i++ {
		a, b := p.Segment(i)
		c := ClosestOnSegment(v, a, b)
		if d := v.Dist(c); d < best {
			best = d
			bestS = p.cum[i] + a.Dist(c)
		}
	}
	return bestS
}
