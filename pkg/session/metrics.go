package session

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/racelink/log"
)

// metrics are written by the owning goroutine and read by the otel callbacks
type metrics struct {
	rooms   atomic.Int64
	players atomic.Int64

	roomsCreated metric.Int64Counter
	racesStarted metric.Int64Counter
	racesDone    metric.Int64Counter
	moves        metric.Int64Counter
}

//nolint:funlen // registration
func newMetrics() *metrics {
	ret := &metrics{}
	meter := otel.GetMeterProvider().Meter("racelink.session")
	gauge := func(name, desc string, v *atomic.Int64) {
		if _, err := meter.Int64ObservableGauge(name,
			metric.WithDescription(desc),
			metric.WithUnit("{count}"),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(v.Load())
				return nil
			})); err != nil {
			log.Error("failed to register metric", log.String("metric", name), log.ErrorField(err))
		}
	}
	gauge("racelink.session.rooms", "Number of live rooms", &ret.rooms)
	gauge("racelink.session.players", "Number of players in rooms", &ret.players)

	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit("{count}"))
		if err != nil {
			log.Error("failed to register metric", log.String("metric", name), log.ErrorField(err))
		}
		return c
	}
	ret.roomsCreated = counter("racelink.session.rooms_created", "Number of rooms created")
	ret.racesStarted = counter("racelink.session.races_started", "Number of race starts")
	ret.racesDone = counter("racelink.session.races_finished", "Number of finished races")
	ret.moves = counter("racelink.session.moves", "Number of relayed position ticks")
	return ret
}

func add(c metric.Int64Counter) {
	if c != nil {
		c.Add(context.Background(), 1)
	}
}

func (m *metrics) roomCreated() {
	m.rooms.Add(1)
	add(m.roomsCreated)
}

func (m *metrics) roomClosed()   { m.rooms.Add(-1) }
func (m *metrics) playerJoined() { m.players.Add(1) }
func (m *metrics) playerLeft()   { m.players.Add(-1) }
func (m *metrics) raceStarted()  { add(m.racesStarted) }
func (m *metrics) raceFinished() { add(m.racesDone) }
func (m *metrics) moved()        { add(m.moves) }
