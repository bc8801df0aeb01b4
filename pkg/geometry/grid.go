package geometry

import (
	"math"

	"github.com/mpapenbr/racelink/pkg/model"
)

const (
	GridRowStep  = 120.0
	GridLateral  = 50.0
	GridMaxSlots = 4
	gridColumns  = 2
)

// GridPositions returns up to n starting poses behind start in a 2-wide grid.
// Slot 0 is on the front row left, slot 1 front row right and so on.
// The returned Angle is the car heading.
func GridPositions(start model.Pose, n int) []model.Pose {
	if n > GridMaxSlots {
		n = GridMaxSlots
	}
	if n < 0 {
		n = 0
	}
	dir := Vec2{math.Cos(start.Angle), math.Sin(start.Angle)}
	back := dir.Scale(-1)
	side := dir.Perp()
	heading := CarHeading(start.Angle)
	ret := make([]model.Pose, 0, n)
	for i := 0; i < n; i++ {
		row := float64(i / gridColumns)
		lat := -GridLateral
		if i%gridColumns == 1 {
			lat = GridLateral
		}
		p := Vec2{start.X, start.Y}.Add(back.Scale(row * GridRowStep)).Add(side.Scale(lat))
		ret = append(ret, model.Pose{X: p.X, Y: p.Y, Angle: heading})
	}
	return ret
}
