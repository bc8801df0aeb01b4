package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/mpapenbr/racelink/log"
	"github.com/mpapenbr/racelink/pkg/model"
	"github.com/mpapenbr/racelink/pkg/protocol"
	"github.com/mpapenbr/racelink/pkg/results"
	"github.com/mpapenbr/racelink/pkg/session"
)

// TrackLister provides the track catalog
type TrackLister interface {
	Tracks() []model.TrackData
}

// ResultLister provides stored race results
type ResultLister interface {
	Latest(ctx context.Context, limit int) ([]*results.Race, error)
}

// LobbyLister provides the room list shared by all server instances
type LobbyLister interface {
	List(ctx context.Context) ([]model.LobbyEntry, error)
}

type RouterOption func(*router)

func WithTracks(t TrackLister) RouterOption {
	return func(r *router) { r.tracks = t }
}

func WithResults(l ResultLister) RouterOption {
	return func(r *router) { r.results = l }
}

// WithLobby serves /api/lobby from l instead of the local rooms
func WithLobby(l LobbyLister) RouterOption {
	return func(r *router) { r.lobby = l }
}

// WithAllowedOrigins restricts websocket and CORS origins. Empty allows all.
func WithAllowedOrigins(origins []string) RouterOption {
	return func(r *router) { r.origins = origins }
}

func WithRequestTimeout(d time.Duration) RouterOption {
	return func(r *router) { r.timeout = d }
}

// WithHealthOptions configures the grpc health handler
func WithHealthOptions(opts ...connect.HandlerOption) RouterOption {
	return func(r *router) { r.healthOpts = append(r.healthOpts, opts...) }
}

type router struct {
	hub        *Hub
	tracks     TrackLister
	results    ResultLister
	lobby      LobbyLister
	origins    []string
	timeout    time.Duration
	healthOpts []connect.HandlerOption
	upgrader   websocket.Upgrader
	log        *log.Logger
}

// NewRouter returns the HTTP surface of the relay server
func NewRouter(h *Hub, opts ...RouterOption) http.Handler {
	rt := &router{
		hub:     h,
		timeout: 5 * time.Second,
		log:     log.Default().Named("relay.http"),
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return rt.originAllowed(r.Header.Get("Origin"))
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ws", rt.serveWS)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(rt.timeout))
		r.Get("/rooms", rt.listRooms)
		r.Get("/lobby", rt.listLobby)
		r.Get("/rooms/{id}", rt.getRoom)
		r.Get("/tracks", rt.listTracks)
		r.Get("/results", rt.listResults)
	})
	path, handler := grpchealth.NewHandler(
		grpchealth.NewStaticChecker(),
		append([]connect.HandlerOption{connect.WithCompressMinBytes(1024)}, rt.healthOpts...)...,
	)
	r.Handle(path+"*", handler)

	return rt.cors().Handler(r)
}

func (rt *router) originAllowed(origin string) bool {
	if len(rt.origins) == 0 || origin == "" {
		return true
	}
	for _, o := range rt.origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (rt *router) cors() *cors.Cors {
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowOriginFunc: rt.originAllowed,
		AllowedHeaders:  []string{"*"},
		ExposedHeaders: []string{
			"Accept",
			"Accept-Encoding",
			"Connect-Accept-Encoding",
			"Connect-Content-Encoding",
			"Content-Encoding",
			"Grpc-Accept-Encoding",
			"Grpc-Encoding",
			"Grpc-Message",
			"Grpc-Status",
			"Grpc-Status-Details-Bin",
		},
		MaxAge: 7200,
	})
}

func (rt *router) serveWS(w http.ResponseWriter, r *http.Request) {
	codec, err := protocol.CodecByName(r.URL.Query().Get("codec"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ws, err := rt.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rt.log.Debug("upgrade failed", log.ErrorField(err))
		return
	}
	c := newConn(rt.hub.newConnID(), ws, codec)
	rt.log.Debug("client connected",
		log.String("conn", c.ID()), log.String("remote", r.RemoteAddr))
	rt.hub.register(c)
	go c.writePump()
	go c.readPump(rt.hub)
}

func (rt *router) listRooms(w http.ResponseWriter, r *http.Request) {
	var entries []model.LobbyEntry
	if err := rt.hub.Do(r.Context(), func(m *session.Manager) {
		entries = m.LobbyList()
	}); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	rt.writeJSON(w, entries)
}

func (rt *router) listLobby(w http.ResponseWriter, r *http.Request) {
	if rt.lobby == nil {
		rt.listRooms(w, r)
		return
	}
	entries, err := rt.lobby.List(r.Context())
	if err != nil {
		rt.log.Error("could not load lobby", log.ErrorField(err))
		http.Error(w, "could not load lobby", http.StatusInternalServerError)
		return
	}
	rt.writeJSON(w, entries)
}

func (rt *router) getRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var (
		room  *model.Room
		found bool
	)
	if err := rt.hub.Do(r.Context(), func(m *session.Manager) {
		room, found = m.Room(id)
	}); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if !found {
		http.Error(w, session.ErrRoomNotFound.Error(), http.StatusNotFound)
		return
	}
	rt.writeJSON(w, room)
}

func (rt *router) listTracks(w http.ResponseWriter, _ *http.Request) {
	if rt.tracks == nil {
		rt.writeJSON(w, []model.TrackData{})
		return
	}
	rt.writeJSON(w, rt.tracks.Tracks())
}

func (rt *router) listResults(w http.ResponseWriter, r *http.Request) {
	if rt.results == nil {
		http.Error(w, "results not available", http.StatusNotFound)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	races, err := rt.results.Latest(r.Context(), limit)
	if err != nil {
		rt.log.Error("could not load results", log.ErrorField(err))
		http.Error(w, "could not load results", http.StatusInternalServerError)
		return
	}
	rt.writeJSON(w, races)
}

func (rt *router) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rt.log.Debug("write response", log.ErrorField(err))
	}
}
