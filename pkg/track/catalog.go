// Package track provides the track catalog and the resolved geometry of its
// tracks.
package track

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/racelink/pkg/model"
)

var (
	ErrUnknownTrack = errors.New("unknown track")
	ErrNoTracks     = errors.New("catalog file contains no tracks")
)

// Catalog holds the static track configuration. It is safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	tracks map[string]model.TrackData
	order  []string
}

type catalogFile struct {
	Tracks []model.TrackData `yaml:"tracks"`
}

func NewCatalog(tracks []model.TrackData) *Catalog {
	c := &Catalog{}
	c.Replace(tracks)
	return c
}

// LoadFile reads a yaml catalog file
func LoadFile(path string) ([]model.TrackData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Tracks) == 0 {
		return nil, ErrNoTracks
	}
	for i, t := range f.Tracks {
		if t.ID == "" {
			return nil, fmt.Errorf("track #%d without id", i)
		}
		if t.Path == "" && t.PathURL == "" {
			return nil, fmt.Errorf("track %s: neither path nor pathUrl", t.ID)
		}
		if t.StartOffset < 0 || t.StartOffset >= 1 {
			return nil, fmt.Errorf("track %s: startOffset %v not in [0,1)", t.ID, t.StartOffset)
		}
	}
	return f.Tracks, nil
}

// Replace swaps the catalog content. Later duplicates of an id win.
func (c *Catalog) Replace(tracks []model.TrackData) {
	m := make(map[string]model.TrackData, len(tracks))
	order := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if _, ok := m[t.ID]; !ok {
			order = append(order, t.ID)
		}
		m[t.ID] = t
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks = m
	c.order = order
}

func (c *Catalog) Get(id string) (model.TrackData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tracks[id]
	return t, ok
}

func (c *Catalog) HasTrack(id string) bool {
	_, ok := c.Get(id)
	return ok
}

// Tracks returns all tracks in catalog order
func (c *Catalog) Tracks() []model.TrackData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ret := make([]model.TrackData, 0, len(c.order))
	for _, id := range c.order {
		ret = append(ret, c.tracks[id])
	}
	return ret
}

func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// LoadCatalog builds a catalog from a yaml file, an empty path selects the
// builtin tracks
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return NewCatalog(Builtin()), nil
	}
	tracks, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewCatalog(tracks), nil
}
