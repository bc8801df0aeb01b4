package geometry

import "math"

type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

func (v Vec2) Scale(f float64) Vec2 { return Vec2{v.X * f, v.Y * f} }

func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

func (v Vec2) Cross(o Vec2) float64 { return v.X*o.Y - v.Y*o.X }

func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

func (v Vec2) Dist(o Vec2) float64 { return math.Hypot(v.X-o.X, v.Y-o.Y) }

// Perp returns v rotated by +90 degrees
func (v Vec2) Perp() Vec2 { return Vec2{-v.Y, v.X} }

// Norm returns the unit vector of v, the zero vector stays zero
func (v Vec2) Norm() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

func Lerp(a, b Vec2, t float64) Vec2 {
	return Vec2{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t}
}

// ClosestOnSegment returns the point on segment ab closest to p
func ClosestOnSegment(p, a, b Vec2) Vec2 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return a
	}
	t := p.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return a.Add(ab.Scale(t))
}

func SegmentDistance(p, a, b Vec2) float64 {
	return p.Dist(ClosestOnSegment(p, a, b))
}

// SegmentsIntersect reports whether the closed segments ab and cd share a point
func SegmentsIntersect(a, b, c, d Vec2) bool {
	d1 := b.Sub(a).Cross(c.Sub(a))
	d2 := b.Sub(a).Cross(d.Sub(a))
	d3 := d.Sub(c).Cross(a.Sub(c))
	d4 := d.Sub(c).Cross(b.Sub(c))
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	onSeg := func(p, q, r Vec2) bool {
		return math.Min(p.X, q.X) <= r.X && r.X <= math.Max(p.X, q.X) &&
			math.Min(p.Y, q.Y) <= r.Y && r.Y <= math.Max(p.Y, q.Y)
	}
	switch {
	case d1 == 0 && onSeg(a, b, c):
		return true
	case d2 == 0 && onSeg(a, b, d):
		return true
	case d3 == 0 && onSeg(c, d, a):
		return true
	case d4 == 0 && onSeg(c, d, b):
		return true
	}
	return false
}

// Rect is an axis aligned rectangle
type Rect struct {
	X0, Y0 float64
	X1, Y1 float64
}

func EmptyRect() Rect {
	return Rect{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
}

func (r Rect) Extend(p Vec2) Rect {
	return Rect{
		math.Min(r.X0, p.X), math.Min(r.Y0, p.Y),
		math.Max(r.X1, p.X), math.Max(r.Y1, p.Y),
	}
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

func (r Rect) Empty() bool { return r.X1 < r.X0 || r.Y1 < r.Y0 }

// Pad grows r by d on every side
func (r Rect) Pad(d float64) Rect {
	return Rect{r.X0 - d, r.Y0 - d, r.X1 + d, r.Y1 + d}
}
