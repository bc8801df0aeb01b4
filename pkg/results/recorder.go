package results

import (
	"context"
	"sync"
	"time"

	"github.com/mpapenbr/racelink/log"
	"github.com/mpapenbr/racelink/pkg/model"
)

type RecorderOption func(*Recorder)

func WithGenerator(g FeedbackGenerator) RecorderOption {
	return func(r *Recorder) { r.gen = g }
}

func WithFeedbackTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) { r.timeout = d }
}

func WithClock(clock func() time.Time) RecorderOption {
	return func(r *Recorder) { r.clock = clock }
}

// Recorder stores finished races and attaches generated feedback. It
// implements the race observer of the session manager and never blocks it.
type Recorder struct {
	store   Store
	gen     FeedbackGenerator
	timeout time.Duration
	clock   func() time.Time
	queue   chan *model.Room
	wg      sync.WaitGroup
	log     *log.Logger
}

func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:   store,
		timeout: 20 * time.Second,
		clock:   time.Now,
		queue:   make(chan *model.Room, 64),
		log:     log.Default().Named("results"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RaceFinished queues the room for recording
func (r *Recorder) RaceFinished(room *model.Room) {
	select {
	case r.queue <- room:
	default:
		r.log.Warn("result queue full, race not recorded", log.String("room", room.ID))
	}
}

// Run records queued races until ctx is done
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case room := <-r.queue:
			r.record(ctx, room)
		}
	}
}

// Wait blocks until pending feedback requests are done
func (r *Recorder) Wait() {
	r.wg.Wait()
}

func (r *Recorder) record(ctx context.Context, room *model.Room) {
	race := FromRoom(room, r.clock())
	if err := r.store.Save(ctx, race); err != nil {
		r.log.Error("could not store race result",
			log.String("room", room.ID), log.ErrorField(err))
		return
	}
	r.log.Info("race recorded",
		log.String("race", race.ID.String()),
		log.String("track", race.TrackID),
		log.Int("entries", len(race.Entries)))
	if r.gen == nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.attachFeedback(ctx, race)
	}()
}

func (r *Recorder) attachFeedback(ctx context.Context, race *Race) {
	fctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	text, err := r.gen.Generate(fctx, BuildPrompt(race))
	if err != nil || text == "" {
		r.log.Warn("feedback generation failed, using fallback",
			log.String("race", race.ID.String()), log.ErrorField(err))
		text = FallbackFeedback
	}
	// the request context may be gone by now, the update must still happen
	sctx, scancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer scancel()
	if err := r.store.SetFeedback(sctx, race.ID, text); err != nil {
		r.log.Error("could not store feedback",
			log.String("race", race.ID.String()), log.ErrorField(err))
	}
}
