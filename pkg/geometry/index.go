package geometry

import "math"

// SegmentIndex buckets the segments of a polyline into a uniform grid so
// distance queries only visit nearby segments.
type SegmentIndex struct {
	line   *Polyline
	cell   float64
	origin Vec2
	cols   int
	rows   int
	cells  [][]int
}

// NewSegmentIndex indexes line with square cells of the given size
func NewSegmentIndex(line *Polyline, cell float64) *SegmentIndex {
	if cell <= 0 {
		cell = 100
	}
	b := line.Bounds()
	if b.Empty() {
		return &SegmentIndex{line: line, cell: cell}
	}
	idx := &SegmentIndex{
		line:   line,
		cell:   cell,
		origin: Vec2{b.X0, b.Y0},
		cols:   int(b.Width()/cell) + 1,
		rows:   int(b.Height()/cell) + 1,
	}
	idx.cells = make([][]int, idx.cols*idx.rows)
	for i := 0; i < line.NumSegments(); i++ {
		a, c := line.Segment(i)
		r := EmptyRect().Extend(a).Extend(c)
		x0, y0 := idx.cellOf(Vec2{r.X0, r.Y0})
		x1, y1 := idx.cellOf(Vec2{r.X1, r.Y1})
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				k := y*idx.cols + x
				idx.cells[k] = append(idx.cells[k], i)
			}
		}
	}
	return idx
}

func (idx *SegmentIndex) cellOf(p Vec2) (x, y int) {
	x = int(math.Floor((p.X - idx.origin.X) / idx.cell))
	y = int(math.Floor((p.Y - idx.origin.Y) / idx.cell))
	return clampInt(x, 0, idx.cols-1), clampInt(y, 0, idx.rows-1)
}

// Within reports whether p lies within radius of any segment
func (idx *SegmentIndex) Within(p Vec2, radius float64) bool {
	if idx.cols == 0 {
		return false
	}
	b := idx.line.Bounds().Pad(radius)
	if p.X < b.X0 || p.X > b.X1 || p.Y < b.Y0 || p.Y > b.Y1 {
		return false
	}
	x0, y0 := idx.cellOf(Vec2{p.X - radius, p.Y - radius})
	x1, y1 := idx.cellOf(Vec2{p.X + radius, p.Y + radius})
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			for _, s := range idx.cells[y*idx.cols+x] {
				a, c := idx.line.Segment(s)
				if SegmentDistance(p, a, c) <= radius {
					return true
				}
			}
		}
	}
	return false
}

// Distance returns the distance from p to the nearest segment.
// It scans all segments, use Within for hot paths.
func (idx *SegmentIndex) Distance(p Vec2) float64 {
	best := math.Inf(1)
	for i := 0; i < idx.line.NumSegments(); i++ {
		a, c := idx.line.Segment(i)
		best = math.Min(best, SegmentDistance(p, a, c))
	}
	return best
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
