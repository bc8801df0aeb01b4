//nolint:whitespace,funlen // readability
package geometry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name    string
		d       string
		want    []SubPath
		wantErr bool
	}{
		{
			name: "absolute closed",
			d:    "M0,0 L10,0 L10,10 Z",
			want: []SubPath{{Points: []Vec2{{0, 0}, {10, 0}, {10, 10}, {0, 0}}, Closed: true}},
		},
		{
			name: "relative with h and v",
			d:    "m0 0 h10 v10 h-10 z",
			want: []SubPath{{
				Points: []Vec2{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
				Closed: true,
			}},
		},
		{
			name: "implicit lineto",
			d:    "M0 0 10 0 10 10",
			want: []SubPath{{Points: []Vec2{{0, 0}, {10, 0}, {10, 10}}}},
		},
		{
			name: "compact numbers",
			d:    "M0-1.5L.5.5",
			want: []SubPath{{Points: []Vec2{{0, -1.5}, {0.5, 0.5}}}},
		},
		{
			name: "exponent",
			d:    "M1e1,0 L2E1,0",
			want: []SubPath{{Points: []Vec2{{10, 0}, {20, 0}}}},
		},
		{
			name: "two sub paths",
			d:    "M0 0 L1 0 M5 5 L6 5 L7 5",
			want: []SubPath{
				{Points: []Vec2{{0, 0}, {1, 0}}},
				{Points: []Vec2{{5, 5}, {6, 5}, {7, 5}}},
			},
		},
		{name: "empty", d: "", wantErr: true},
		{name: "no command", d: "10 10", wantErr: true},
		{name: "missing number", d: "M0 0 L", wantErr: true},
		{name: "only moveto", d: "M0 0 Z", wantErr: true},
		{name: "bad arc flag", d: "M0 0 A5 5 0 2 1 10 0", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePath(tt.d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePathEmptyIsSentinel(t *testing.T) {
	_, err := ParsePath("M0 0 Z")
	assert.True(t, errors.Is(err, ErrEmptyPath))
}

func TestParsePathCurves(t *testing.T) {
	t.Run("cubic", func(t *testing.T) {
		got, err := ParsePath("M0 0 C0 10 10 10 10 0")
		require.NoError(t, err)
		require.Len(t, got, 1)
		pts := got[0].Points
		assert.Len(t, pts, CurveSteps+1)
		assert.Equal(t, Vec2{10, 0}, pts[len(pts)-1])
		// symmetric curve peaks at t=0.5 with y=7.5
		assert.InDelta(t, 7.5, pts[CurveSteps/2].Y, 1e-9)
	})
	t.Run("smooth cubic reflects control point", func(t *testing.T) {
		got, err := ParsePath("M0 0 C0 10 10 10 10 0 S20 -10 20 0")
		require.NoError(t, err)
		pts := got[0].Points
		assert.Equal(t, Vec2{20, 0}, pts[len(pts)-1])
		assert.InDelta(t, -7.5, pts[CurveSteps+CurveSteps/2].Y, 1e-9)
	})
	t.Run("relative quadratic", func(t *testing.T) {
		got, err := ParsePath("M10 10 q5 10 10 0 t10 0")
		require.NoError(t, err)
		pts := got[0].Points
		assert.InDelta(t, 30, pts[len(pts)-1].X, 1e-9)
		assert.InDelta(t, 10, pts[len(pts)-1].Y, 1e-9)
		assert.InDelta(t, 15, pts[CurveSteps/2].Y, 1e-9)
		// reflected control point mirrors the curve
		assert.InDelta(t, 5, pts[CurveSteps+CurveSteps/2].Y, 1e-9)
	})
	t.Run("arc", func(t *testing.T) {
		got, err := ParsePath("M0 0 A5 5 0 0 1 10 0")
		require.NoError(t, err)
		pts := got[0].Points
		assert.Equal(t, Vec2{10, 0}, pts[len(pts)-1])
		for _, p := range pts {
			assert.InDelta(t, 5, p.Dist(Vec2{5, 0}), 1e-6)
		}
	})
}
