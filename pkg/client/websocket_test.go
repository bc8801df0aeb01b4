package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racelink/pkg/model"
	"github.com/mpapenbr/racelink/pkg/protocol"
	"github.com/mpapenbr/racelink/pkg/relay"
	"github.com/mpapenbr/racelink/pkg/session"
)

type relayServer struct {
	url   string
	hub   *relay.Hub
	sched *session.ManualScheduler
}

func newRelayServer(t *testing.T) *relayServer {
	t.Helper()
	sched := session.NewManualScheduler(t0)
	h := relay.NewHub(relay.WithSessionOptions(
		session.WithScheduler(sched),
		session.WithClock(sched.Now),
	))
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	srv := httptest.NewServer(relay.NewRouter(h))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return &relayServer{
		url:   "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		hub:   h,
		sched: sched,
	}
}

func TestWSChannelEvents(t *testing.T) {
	for _, codec := range []protocol.Codec{protocol.JSON, protocol.Msgpack} {
		t.Run(codec.Name(), func(t *testing.T) {
			srv := newRelayServer(t)
			ch := NewWSChannel(srv.url, WithCodec(codec))
			welcome := make(chan protocol.Welcome, 1)
			ch.On(protocol.EventWelcome, func(m Message) {
				var w protocol.Welcome
				if m.Decode(&w) == nil {
					welcome <- w
				}
			})
			disconnected := make(chan struct{})
			ch.On(protocol.EventDisconnect, func(Message) { close(disconnected) })

			assert.ErrorIs(t, ch.Emit(protocol.EventListRooms, nil), ErrNotConnected)
			require.NoError(t, ch.Connect(context.Background()))
			select {
			case w := <-welcome:
				assert.NotEmpty(t, w.ConnID)
			case <-time.After(2 * time.Second):
				t.Fatal("no welcome")
			}

			require.NoError(t, ch.Close())
			select {
			case <-disconnected:
			case <-time.After(2 * time.Second):
				t.Fatal("no disconnect")
			}
		})
	}
}

func TestWSChannelDialError(t *testing.T) {
	ch := NewWSChannel("ws://127.0.0.1:1/ws")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, ch.Connect(ctx))
}

// a full race of one driver against a relay server
func TestSessionOverRelay(t *testing.T) {
	srv := newRelayServer(t)
	ch := NewWSChannel(srv.url)
	frames := make(chan time.Time)
	s := NewSession(ch, builtinTracks(), protocol.Identity{
		Nickname: "Alice", DriverID: "drv-alice", Setup: model.DefaultSetup(),
	}, WithFrames(frames), WithDriver(fullThrottle), WithLapParams(quickLaps))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		//nolint:errcheck // test
		s.Run(ctx)
	}()
	go func() {
		for i := 0; ; i++ {
			select {
			case <-ctx.Done():
				return
			case frames <- t0.Add(time.Duration(i) * FrameInterval):
			}
			time.Sleep(time.Millisecond)
		}
	}()

	require.NoError(t, ch.Connect(ctx))
	require.NoError(t, s.CreateRoom("solo", "monza", 1))
	require.Eventually(t, func() bool {
		return s.Status().Phase == model.PhaseLobby && s.Status().PlayerID != ""
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.SetReady(true))
	require.NoError(t, s.StartRace())
	require.Eventually(t, func() bool { return srv.sched.Pending() == 1 },
		2*time.Second, 10*time.Millisecond)
	require.NoError(t, srv.hub.Do(ctx, func(*session.Manager) {
		srv.sched.Advance(model.CountdownDelay)
	}))

	// the server moves the room to finished once the only driver crossed the line
	require.Eventually(t, func() bool { return s.Status().Phase == model.PhaseFinished },
		5*time.Second, 10*time.Millisecond)

	var room *model.Room
	roomID := s.Status().RoomID
	require.NoError(t, srv.hub.Do(ctx, func(m *session.Manager) {
		if r, ok := m.Room(roomID); ok {
			room = r.Snapshot()
		}
	}))
	require.NotNil(t, room)
	require.Len(t, room.Players, 1)
	assert.True(t, room.Players[0].Finished)
	assert.Positive(t, room.Players[0].FinishTime)
}
