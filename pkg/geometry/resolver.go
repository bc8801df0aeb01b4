package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/mpapenbr/racelink/pkg/model"
)

const (
	// edge length of the square world every track is mapped into
	WorldSize = 4000.0
	// distance in track units between the start point and the heading probe
	HeadingProbe = 5.0
	// padding around a recomputed viewbox, relative to its larger side
	ViewBoxPadding = 0.05
	// drivable ribbon width in world units for WidthFactor 1
	BaseTrackWidth = 160.0
	// cell size of the segment index in world units
	IndexCellSize = 200.0
	// gap (relative to path length) below which an open path counts as closed
	closeTolerance = 0.02
)

var ErrDegeneratePath = errors.New("path has zero length")

// Track is a resolved track: centerline, world transform and start pose
type Track struct {
	ID string
	// path data the geometry was derived from
	Path    string
	ViewBox model.ViewBox
	Scale   float64
	Offset  Vec2
	// centerline in track space
	Centerline *Polyline
	// centerline in world space
	World *Polyline
	// start/finish pose in world space, Angle is the direction of travel
	Start model.Pose
	// drivable width in world units
	Width float64
	// true if the path came from an external path document
	FromOverride bool
	// set when an override was supplied but could not be used
	OverrideErr error

	index *SegmentIndex
}

// Resolve derives the geometry for td. When override contains path data
// from an external document the longest sub path found there is used,
// otherwise (or when the override is unusable) the declared path is used.
func Resolve(td *model.TrackData, override []string) (*Track, error) {
	var overrideErr error
	if len(override) > 0 {
		t, err := resolveOverride(td, override)
		if err == nil {
			return t, nil
		}
		overrideErr = err
	}
	t, err := resolveDeclared(td)
	if err != nil {
		return nil, err
	}
	t.OverrideErr = overrideErr
	return t, nil
}

func resolveOverride(td *model.TrackData, paths []string) (*Track, error) {
	var best *Polyline
	for _, d := range paths {
		subs, err := ParsePath(d)
		if err != nil {
			continue
		}
		if l := longest(subs); l != nil && (best == nil || l.Length() > best.Length()) {
			best = l
		}
	}
	if best == nil || best.Length() == 0 {
		return nil, fmt.Errorf("no usable path in override document")
	}
	b := best.Bounds()
	pad := math.Max(b.Width(), b.Height()) * ViewBoxPadding
	b = b.Pad(pad)
	vb := model.ViewBox{MinX: b.X0, MinY: b.Y0, Width: b.Width(), Height: b.Height()}
	t, err := build(td, best, vb)
	if err != nil {
		return nil, err
	}
	t.FromOverride = true
	return t, nil
}

func resolveDeclared(td *model.TrackData) (*Track, error) {
	subs, err := ParsePath(td.Path)
	if err != nil {
		return nil, fmt.Errorf("track %s: %w", td.ID, err)
	}
	line := longest(subs)
	vb := td.ViewBox
	if vb.Width <= 0 || vb.Height <= 0 {
		b := line.Bounds()
		vb = model.ViewBox{MinX: b.X0, MinY: b.Y0, Width: b.Width(), Height: b.Height()}
	}
	return build(td, line, vb)
}

// longest returns the longest sub path as polyline
func longest(subs []SubPath) *Polyline {
	var best *Polyline
	for _, s := range subs {
		l := NewPolyline(s.Points, s.Closed)
		if !s.Closed && l.Length() > 0 {
			pts := l.Points()
			if pts[0].Dist(pts[len(pts)-1]) < l.Length()*closeTolerance {
				l = NewPolyline(pts, true)
			}
		}
		if best == nil || l.Length() > best.Length() {
			best = l
		}
	}
	return best
}

func build(td *model.TrackData, line *Polyline, vb model.ViewBox) (*Track, error) {
	if line == nil || line.Length() == 0 {
		return nil, ErrDegeneratePath
	}
	if vb.Width <= 0 || vb.Height <= 0 {
		return nil, fmt.Errorf("track %s: %w", td.ID, ErrDegeneratePath)
	}
	scale := WorldSize / math.Max(vb.Width, vb.Height)
	t := &Track{
		ID:         td.ID,
		Path:       line.PathData(),
		ViewBox:    vb,
		Scale:      scale,
		Offset:     Vec2{(WorldSize - vb.Width*scale) / 2, (WorldSize - vb.Height*scale) / 2},
		Centerline: line,
		Width:      BaseTrackWidth,
	}
	if td.WidthFactor > 0 {
		t.Width *= td.WidthFactor
	}
	t.World = line.Map(t.ToWorld)
	t.index = NewSegmentIndex(t.World, IndexCellSize)

	offset := math.Mod(td.StartOffset, 1)
	if offset < 0 {
		offset++
	}
	s0 := offset * line.Length()
	probe := HeadingProbe
	if td.Reverse {
		probe = -probe
	}
	p0 := t.ToWorld(line.PointAt(s0))
	p1 := t.ToWorld(line.PointAt(s0 + probe))
	if p0 == p1 {
		return nil, fmt.Errorf("track %s: cannot derive start heading: %w", td.ID, ErrDegeneratePath)
	}
	t.Start = model.Pose{X: p0.X, Y: p0.Y, Angle: math.Atan2(p1.Y-p0.Y, p1.X-p0.X)}
	return t, nil
}

// ToWorld maps a track space point into world space
func (t *Track) ToWorld(v Vec2) Vec2 {
	return Vec2{
		(v.X-t.ViewBox.MinX)*t.Scale + t.Offset.X,
		(v.Y-t.ViewBox.MinY)*t.Scale + t.Offset.Y,
	}
}

// ToTrack maps a world space point into track space
func (t *Track) ToTrack(v Vec2) Vec2 {
	return Vec2{
		(v.X-t.Offset.X)/t.Scale + t.ViewBox.MinX,
		(v.Y-t.Offset.Y)/t.Scale + t.ViewBox.MinY,
	}
}

// OnTrack reports whether the world point p lies on the drivable ribbon
func (t *Track) OnTrack(p Vec2) bool {
	return t.index.Within(p, t.Width/2)
}

// StartHeading is the car heading at the start line
func (t *Track) StartHeading() float64 {
	return CarHeading(t.Start.Angle)
}

// CarHeading converts a direction angle (atan2 convention) into a car heading.
// A car with heading h moves along (sin h, -cos h).
func CarHeading(direction float64) float64 {
	return direction + math.Pi/2
}

// Forward returns the unit vector a car with the given heading moves along
func Forward(heading float64) Vec2 {
	return Vec2{math.Sin(heading), -math.Cos(heading)}
}
