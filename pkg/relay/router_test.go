package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racelink/pkg/model"
	"github.com/mpapenbr/racelink/pkg/protocol"
	"github.com/mpapenbr/racelink/pkg/results"
)

type staticTracks []model.TrackData

func (s staticTracks) Tracks() []model.TrackData { return s }

type staticResults struct {
	races []*results.Race
	err   error
}

func (s staticResults) Latest(_ context.Context, limit int) ([]*results.Race, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.races) {
		return s.races[:limit], nil
	}
	return s.races, nil
}

type staticLobby []model.LobbyEntry

func (s staticLobby) List(context.Context) ([]model.LobbyEntry, error) { return s, nil }

func newTestServer(t *testing.T, opts ...RouterOption) (*httptest.Server, *Hub) {
	t.Helper()
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	srv := httptest.NewServer(NewRouter(h, opts...))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv, h
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn, codec protocol.Codec) (string, []byte) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := ws.ReadMessage()
	require.NoError(t, err)
	event, data, err := codec.Decode(frame)
	require.NoError(t, err)
	return event, data
}

// readUntil skips events until name arrives
func readUntil(t *testing.T, ws *websocket.Conn, codec protocol.Codec, name string) []byte {
	t.Helper()
	for i := 0; i < 20; i++ {
		event, data := readEvent(t, ws, codec)
		if event == name {
			return data
		}
	}
	t.Fatalf("event %s not received", name)
	return nil
}

func TestWebsocketRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	ws := dial(t, srv, "")

	event, data := readEvent(t, ws, protocol.JSON)
	require.Equal(t, protocol.EventWelcome, event)
	var welcome protocol.Welcome
	require.NoError(t, json.Unmarshal(data, &welcome))
	assert.NotEmpty(t, welcome.ConnID)

	frame, err := protocol.JSON.Encode(protocol.EventCreateRoom, &protocol.CreateRoom{
		Identity: protocol.Identity{Nickname: "alice"},
	})
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, frame))

	var joined protocol.RoomJoined
	require.NoError(t, json.Unmarshal(readUntil(t, ws, protocol.JSON, protocol.EventRoomJoined), &joined))
	assert.Equal(t, welcome.ConnID, joined.PlayerID)
	assert.Equal(t, model.PhaseLobby, joined.Room.Phase)

	resp, err := http.Get(srv.URL + "/api/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	var entries []model.LobbyEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].HostName)

	resp2, err := http.Get(srv.URL + "/api/rooms/" + joined.Room.ID)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestWebsocketMsgpack(t *testing.T) {
	srv, _ := newTestServer(t)
	ws := dial(t, srv, "?codec=msgpack")

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	msgType, frame, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, msgType)
	event, _, err := protocol.Msgpack.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, protocol.EventWelcome, event)
}

func TestUnknownCodecRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?codec=xml"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRestEndpoints(t *testing.T) {
	races := []*results.Race{{TrackID: "monaco"}, {TrackID: "monza"}}
	srv, _ := newTestServer(t,
		WithTracks(staticTracks{{ID: "monaco", Name: "Monaco"}}),
		WithResults(staticResults{races: races}),
	)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"rooms", "/api/rooms", http.StatusOK},
		{"lobby", "/api/lobby", http.StatusOK},
		{"missing room", "/api/rooms/nope", http.StatusNotFound},
		{"tracks", "/api/tracks", http.StatusOK},
		{"results", "/api/results?limit=1", http.StatusOK},
		{"bad limit", "/api/results?limit=abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	resp, err := http.Get(srv.URL + "/api/tracks")
	require.NoError(t, err)
	defer resp.Body.Close()
	var tracks []model.TrackData
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tracks))
	require.Len(t, tracks, 1)
	assert.Equal(t, "monaco", tracks[0].ID)
}

func TestSharedLobby(t *testing.T) {
	srv, _ := newTestServer(t, WithLobby(staticLobby{{ID: "remote-1"}, {ID: "remote-2"}}))
	resp, err := http.Get(srv.URL + "/api/lobby")
	require.NoError(t, err)
	defer resp.Body.Close()
	var entries []model.LobbyEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "remote-1", entries[0].ID)
}

func TestHealthCheck(t *testing.T) {
	var calls atomic.Int32
	counter := connect.UnaryInterceptorFunc(func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			calls.Add(1)
			return next(ctx, req)
		}
	})
	srv, _ := newTestServer(t, WithHealthOptions(connect.WithInterceptors(counter)))
	resp, err := http.Post(srv.URL+"/grpc.health.v1.Health/Check",
		"application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "SERVING", body["status"])
	assert.Equal(t, int32(1), calls.Load())
}

func TestResultsFailure(t *testing.T) {
	srv, _ := newTestServer(t, WithResults(staticResults{err: errors.New("db down")}))
	resp, err := http.Get(srv.URL + "/api/results")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestOriginCheck(t *testing.T) {
	srv, _ := newTestServer(t, WithAllowedOrigins([]string{"https://race.example"}))
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	hdr := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, hdr)
	require.Error(t, err)
	require.NotNil(t, resp)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	hdr = http.Header{"Origin": []string{"https://race.example"}}
	ws, resp, err := websocket.DefaultDialer.Dial(url, hdr)
	require.NoError(t, err)
	resp.Body.Close()
	ws.Close()
}
