package track

import (
	"context"
	"fmt"
	"time"

	"github.com/mpapenbr/racelink/log"
	"github.com/mpapenbr/racelink/pkg/barrier"
	"github.com/mpapenbr/racelink/pkg/geometry"
	"github.com/mpapenbr/racelink/pkg/model"
	"github.com/mpapenbr/racelink/pkg/utils/cache"
	"github.com/mpapenbr/racelink/pkg/utils/cache/loadercache"
)

// Resolved is everything a race needs from a track
type Resolved struct {
	Data     model.TrackData
	Geometry *geometry.Track
	Barriers []model.Barrier
	// grid slots in world space, Angle is the car heading
	Grid []model.Pose
}

type ResolverOption func(*Resolver)

func WithFetcher(f PathFetcher) ResolverOption {
	return func(r *Resolver) { r.fetcher = f }
}

func WithBarrierConfig(fn func(width float64) barrier.Config) ResolverOption {
	return func(r *Resolver) { r.barrierConfig = fn }
}

func WithCacheExpiration(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.expiration = d }
}

// Resolver resolves catalog tracks and caches the result
type Resolver struct {
	catalog       *Catalog
	fetcher       PathFetcher
	barrierConfig func(width float64) barrier.Config
	expiration    time.Duration
	cache         cache.Cache[string, Resolved]
	log           *log.Logger
}

func NewResolver(c *Catalog, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		catalog:       c,
		barrierConfig: barrier.DefaultConfig,
		log:           log.Default().Named("track"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cache = loadercache.New(
		loadercache.WithLoader[string, Resolved](r.load),
		loadercache.WithExpiration[string, Resolved](r.expiration),
		loadercache.WithLogger[string, Resolved](r.log.Named("cache")),
	)
	return r
}

func (r *Resolver) Get(ctx context.Context, id string) (*Resolved, error) {
	return r.cache.Get(ctx, id)
}

// Invalidate drops all cached tracks, used after a catalog reload
func (r *Resolver) Invalidate() {
	r.cache.InvalidateAll(context.Background())
}

func (r *Resolver) load(ctx context.Context, id string) (*Resolved, error) {
	td, ok := r.catalog.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTrack, id)
	}
	var override []string
	if td.PathURL != "" && r.fetcher != nil {
		paths, err := r.fetcher.Fetch(ctx, td.PathURL)
		if err != nil {
			r.log.Debug("path document not usable, using declared path",
				log.String("track", id), log.String("url", td.PathURL), log.ErrorField(err))
		}
		override = paths
	}
	g, err := geometry.Resolve(&td, override)
	if err != nil {
		return nil, fmt.Errorf("resolve track %s: %w", id, err)
	}
	if g.OverrideErr != nil {
		r.log.Debug("override rejected",
			log.String("track", id), log.ErrorField(g.OverrideErr))
	}
	barriers, err := barrier.Synthesize(g.World, g.Width, r.barrierConfig(g.Width))
	if err != nil {
		r.log.Warn("barrier synthesis failed, track has no barriers",
			log.String("track", id), log.ErrorField(err))
		barriers = nil
	}
	r.log.Debug("track resolved",
		log.String("track", id),
		log.Float("length", g.World.Length()),
		log.Int("barriers", len(barriers)),
		log.Bool("override", g.FromOverride))
	return &Resolved{
		Data:     td,
		Geometry: g,
		Barriers: barriers,
		Grid:     geometry.GridPositions(g.Start, geometry.GridMaxSlots),
	}, nil
}
