package track

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ohler55/ojg/jp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racelink/pkg/geometry"
	"github.com/mpapenbr/racelink/pkg/model"
)

const catalogYaml = `
tracks:
  - id: square
    name: Square
    path: "M 0 0 L 100 0 L 100 100 L 0 100 Z"
    viewBox: {minX: 0, minY: 0, width: 100, height: 100}
    startOffset: 0.1
    laps: 2
  - id: remote
    name: Remote
    path: "M 0 0 L 50 0 L 50 50 Z"
    pathUrl: "http://example.invalid/track.json"
`

func writeCatalog(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "tracks.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), catalogYaml)
	tracks, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "square", tracks[0].ID)
	assert.InDelta(t, 0.1, tracks[0].StartOffset, 1e-9)
	assert.Equal(t, 100.0, tracks[0].ViewBox.Width)
	assert.Equal(t, "http://example.invalid/track.json", tracks[1].PathURL)
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", "tracks: []"},
		{"no id", "tracks:\n  - path: \"M 0 0 L 1 1\""},
		{"no path", "tracks:\n  - id: x"},
		{"offset", "tracks:\n  - id: x\n    path: \"M 0 0 L 1 1\"\n    startOffset: 1.5"},
		{"yaml", "tracks: [ {"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeCatalog(t, t.TempDir(), tt.content))
			assert.Error(t, err)
		})
	}
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestCatalog(t *testing.T) {
	c := NewCatalog(Builtin())
	assert.True(t, c.HasTrack("monaco"))
	assert.False(t, c.HasTrack("nowhere"))
	assert.Equal(t, []string{"monaco", "monza", "canyon"}, c.IDs())

	c.Replace([]model.TrackData{{ID: "a", Name: "first"}, {ID: "b"}, {ID: "a", Name: "second"}})
	assert.Equal(t, []string{"a", "b"}, c.IDs())
	a, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "second", a.Name)
	assert.False(t, c.HasTrack("monaco"))
}

func TestLoadCatalog(t *testing.T) {
	builtin, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, builtin.IDs(), len(Builtin()))

	fromFile, err := LoadCatalog(writeCatalog(t, t.TempDir(), catalogYaml))
	require.NoError(t, err)
	assert.Equal(t, []string{"square", "remote"}, fromFile.IDs())

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestBuiltinTracksResolve(t *testing.T) {
	r := NewResolver(NewCatalog(Builtin()))
	for _, td := range Builtin() {
		t.Run(td.ID, func(t *testing.T) {
			res, err := r.Get(context.Background(), td.ID)
			require.NoError(t, err)
			g := res.Geometry
			assert.Positive(t, g.World.Length())
			assert.True(t, g.OnTrack(geometry.Vec2{X: g.Start.X, Y: g.Start.Y}))
			require.Len(t, res.Grid, geometry.GridMaxSlots)
			for _, p := range res.Grid {
				assert.True(t, g.OnTrack(geometry.Vec2{X: p.X, Y: p.Y}),
					"grid slot %+v off track", p)
			}
		})
	}
}

func TestHairpinGetsBarriers(t *testing.T) {
	r := NewResolver(NewCatalog(Builtin()))
	res, err := r.Get(context.Background(), "canyon")
	require.NoError(t, err)
	require.NotEmpty(t, res.Barriers)
	for _, b := range res.Barriers {
		mid := geometry.Vec2{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
		assert.False(t, res.Geometry.OnTrack(mid))
	}

	oval, err := r.Get(context.Background(), "monza")
	require.NoError(t, err)
	assert.Empty(t, oval.Barriers)
}

type fakeFetcher struct {
	paths []string
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(context.Context, string) ([]string, error) {
	f.calls++
	return f.paths, f.err
}

func TestResolverOverride(t *testing.T) {
	tracks, err := LoadFile(writeCatalog(t, t.TempDir(), catalogYaml))
	require.NoError(t, err)
	cat := NewCatalog(tracks)

	t.Run("override used", func(t *testing.T) {
		f := &fakeFetcher{paths: []string{"M 0 0 L 10 0", "M 0 0 L 200 0 L 200 200 L 0 200 Z"}}
		r := NewResolver(cat, WithFetcher(f))
		res, err := r.Get(context.Background(), "remote")
		require.NoError(t, err)
		assert.True(t, res.Geometry.FromOverride)
		assert.InDelta(t, 800.0, res.Geometry.Centerline.Length(), 1e-6)

		_, err = r.Get(context.Background(), "remote")
		require.NoError(t, err)
		assert.Equal(t, 1, f.calls, "resolved tracks are cached")

		r.Invalidate()
		_, err = r.Get(context.Background(), "remote")
		require.NoError(t, err)
		assert.Equal(t, 2, f.calls)
	})

	t.Run("fetch failure falls back", func(t *testing.T) {
		r := NewResolver(cat, WithFetcher(&fakeFetcher{err: errors.New("offline")}))
		res, err := r.Get(context.Background(), "remote")
		require.NoError(t, err)
		assert.False(t, res.Geometry.FromOverride)
		assert.InDelta(t, 100+math.Sqrt(2*50*50), res.Geometry.Centerline.Length(), 1e-6)
	})

	t.Run("unknown track", func(t *testing.T) {
		r := NewResolver(cat)
		_, err := r.Get(context.Background(), "nowhere")
		assert.ErrorIs(t, err, ErrUnknownTrack)
	})
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/track.json":
			_, _ = w.Write([]byte(`{"layers":[{"paths":[{"d":"M 0 0 L 10 0"},{"d":""}]},` +
				`{"paths":[{"d":"M 0 0 L 5 5"}]}],"meta":{"name":"x"}}`))
		case "/empty.json":
			_, _ = w.Write([]byte(`{"layers":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher()
	require.NoError(t, err)
	paths, err := f.Fetch(context.Background(), srv.URL+"/track.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"M 0 0 L 10 0", "M 0 0 L 5 5"}, paths)

	_, err = f.Fetch(context.Background(), srv.URL+"/empty.json")
	assert.ErrorIs(t, err, ErrNoPathData)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing.json")
	assert.Error(t, err)

	_, err = NewHTTPFetcher(WithPathExpr("$[[["))
	assert.Error(t, err)
}

func TestExtractPathsCustomExpr(t *testing.T) {
	doc := []byte(`{"svg":{"centerline":"M 1 1 L 2 2","pit":"M 0 0 L 1 0"}}`)
	paths, err := ExtractPaths(doc, jp.MustParseString("$.svg.centerline"))
	require.NoError(t, err)
	assert.Equal(t, []string{"M 1 1 L 2 2"}, paths)
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, catalogYaml)
	tracks, err := LoadFile(path)
	require.NoError(t, err)
	cat := NewCatalog(tracks)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, cat, func() { reloaded <- struct{}{} })
	}()
	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)

	writeCatalog(t, dir, "tracks:\n  - id: fresh\n    path: \"M 0 0 L 10 0 L 10 10 Z\"\n")
	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("catalog not reloaded")
	}
	assert.True(t, cat.HasTrack("fresh"))
	assert.False(t, cat.HasTrack("square"))

	cancel()
	assert.NoError(t, <-done)
}
