package relay

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/racelink/log"
)

type metrics struct {
	conns     atomic.Int64
	framesIn  atomic.Int64
	framesOut atomic.Int64
	drops     atomic.Int64
}

func newMetrics() *metrics {
	ret := &metrics{}
	meter := otel.GetMeterProvider().Meter("racelink.relay")
	conns, err := meter.Int64ObservableGauge("racelink.relay.connections",
		metric.WithDescription("Number of connected clients"),
		metric.WithUnit("{count}"))
	if err != nil {
		log.Error("failed to register metric", log.ErrorField(err))
		return ret
	}
	in, _ := meter.Int64ObservableCounter("racelink.relay.frames_in",
		metric.WithDescription("Number of received frames"), metric.WithUnit("{count}"))
	out, _ := meter.Int64ObservableCounter("racelink.relay.frames_out",
		metric.WithDescription("Number of queued frames"), metric.WithUnit("{count}"))
	drops, _ := meter.Int64ObservableCounter("racelink.relay.dropped",
		metric.WithDescription("Number of frames dropped because of full send buffers"),
		metric.WithUnit("{count}"))
	if _, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(conns, ret.conns.Load())
		o.ObserveInt64(in, ret.framesIn.Load())
		o.ObserveInt64(out, ret.framesOut.Load())
		o.ObserveInt64(drops, ret.drops.Load())
		return nil
	}, conns, in, out, drops); err != nil {
		log.Error("failed to register metric callback", log.ErrorField(err))
	}
	return ret
}

func (m *metrics) connected()    { m.conns.Add(1) }
func (m *metrics) disconnected() { m.conns.Add(-1) }
func (m *metrics) frameIn()      { m.framesIn.Add(1) }
func (m *metrics) frameOut()     { m.framesOut.Add(1) }
func (m *metrics) dropped()      { m.drops.Add(1) }
