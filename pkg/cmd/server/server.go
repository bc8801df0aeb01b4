package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/otelconnect"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/racelink/log"
	"github.com/mpapenbr/racelink/pkg/config"
	"github.com/mpapenbr/racelink/pkg/db/migrate"
	"github.com/mpapenbr/racelink/pkg/db/postgres"
	"github.com/mpapenbr/racelink/pkg/lobbylist"
	"github.com/mpapenbr/racelink/pkg/model"
	"github.com/mpapenbr/racelink/pkg/relay"
	"github.com/mpapenbr/racelink/pkg/repository"
	"github.com/mpapenbr/racelink/pkg/results"
	"github.com/mpapenbr/racelink/pkg/session"
	"github.com/mpapenbr/racelink/pkg/track"
	"github.com/mpapenbr/racelink/pkg/utils"
	"github.com/mpapenbr/racelink/pkg/utils/broadcast"
)

//nolint:funlen // flag definitions
func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "starts the race relay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&config.ServerAddr,
		"addr",
		"a",
		"localhost:8080",
		"listen address for websocket and REST")
	cmd.Flags().StringSliceVar(&config.AllowedOrigins,
		"allowed-origins",
		nil,
		"origins allowed to connect (empty allows all)")
	cmd.Flags().StringVar(&config.TrackFile,
		"track-file",
		"",
		"yaml track catalog, reloaded on change (default: builtin tracks)")
	cmd.Flags().StringVar(&config.DefaultTrack,
		"default-track",
		"monaco",
		"track of rooms created without a track")
	cmd.Flags().StringVar(&config.NatsURL,
		"nats-url",
		"",
		"NATS server for the shared lobby list (empty disables it)")
	cmd.Flags().StringVar(&config.LobbyBucket,
		"lobby-bucket",
		lobbylist.DefaultBucket,
		"key value bucket of the shared lobby list")
	cmd.Flags().StringVar(&config.InstanceName,
		"instance-name",
		"",
		"name of this instance in the shared lobby list (default: hostname)")
	cmd.Flags().StringVar(&config.FeedbackURL,
		"feedback-url",
		"",
		"endpoint generating race feedback (empty uses a fixed text)")
	cmd.Flags().StringVar(&config.FeedbackToken,
		"feedback-token",
		"",
		"bearer token for the feedback endpoint")
	cmd.Flags().StringVar(&config.FeedbackModel,
		"feedback-model",
		"",
		"model requested from the feedback endpoint")
	cmd.Flags().StringVar(&config.TLSCertFile,
		"tls-cert",
		"",
		"cert file for TLS, reloaded on change")
	cmd.Flags().StringVar(&config.TLSKeyFile,
		"tls-key",
		"",
		"key file for TLS, reloaded on change")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data (stdout prints them)")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	return cmd
}

// components holds everything that must be stopped on shutdown
type components struct {
	closers []func()
}

func (c *components) onShutdown(fn func()) {
	c.closers = append(c.closers, fn)
}

func (c *components) shutdown() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

//nolint:funlen,cyclop // by design
func startServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	comps := &components{}
	defer func() {
		cancel()
		comps.shutdown()
	}()

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // by design
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	waitForRequiredServices()

	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		if telemetry, err := config.SetupTelemetry(ctx); err == nil {
			comps.onShutdown(telemetry.Shutdown)
		} else {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err := otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	catalog, err := setupCatalog(ctx)
	if err != nil {
		return err
	}
	store, err := setupResults(ctx, comps)
	if err != nil {
		return err
	}
	lobby, err := setupLobby(ctx, comps)
	if err != nil {
		return err
	}

	recorderOpts := []results.RecorderOption{}
	if config.FeedbackURL != "" {
		recorderOpts = append(recorderOpts, results.WithGenerator(
			results.NewHTTPGenerator(config.FeedbackURL,
				results.WithToken(config.FeedbackToken),
				results.WithModel(config.FeedbackModel))))
	}
	recorder := results.NewRecorder(store, recorderOpts...)
	go recorder.Run(ctx)
	comps.onShutdown(recorder.Wait)

	lobbyFeed := make(chan []model.LobbyEntry, 16)
	hub := relay.NewHub(
		relay.WithLobbyFeed(lobbyFeed),
		relay.WithSessionOptions(
			session.WithTrackLookup(catalog),
			session.WithRaceObserver(recorder),
			session.WithDefaultTrack(config.DefaultTrack),
		))
	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	bcst := broadcast.NewBroadcastServer[[]model.LobbyEntry]("lobby", lobbyFeed)
	comps.onShutdown(bcst.Close)
	go lobbylist.Feed(ctx, bcst.Subscribe(), lobby)

	routerOpts := []relay.RouterOption{
		relay.WithTracks(catalog),
		relay.WithResults(store),
		relay.WithLobby(lobby),
		relay.WithAllowedOrigins(config.AllowedOrigins),
	}
	if config.EnableTelemetry {
		if otelInterceptor, err := otelconnect.NewInterceptor(); err == nil {
			routerOpts = append(routerOpts,
				relay.WithHealthOptions(connect.WithInterceptors(otelInterceptor)))
		} else {
			log.Warn("Could not create otel interceptor", log.ErrorField(err))
		}
	}
	tlsConfig, err := newTLSConfig(ctx, config.TLSCertFile, config.TLSKeyFile)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              config.ServerAddr,
		Handler:           relay.NewRouter(hub, routerOpts...),
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         tlsConfig,
	}
	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting server",
			log.String("addr", config.ServerAddr), log.Bool("tls", tlsConfig != nil))
		var err error
		if tlsConfig != nil {
			// certificates come from TLSConfig
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()
	setupGoRoutinesDump()

	select {
	case <-ctx.Done():
		log.Debug("Got signal, shutting down")
	case err := <-serverErr:
		if err != nil {
			log.Error("server could not be started", log.ErrorField(err))
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", log.ErrorField(err))
	}
	cancel()
	<-hubDone
	log.Info("Server terminated")
	return nil
}

// setupCatalog loads the catalog and keeps a configured file watched
func setupCatalog(ctx context.Context) (*track.Catalog, error) {
	catalog, err := track.LoadCatalog(config.TrackFile)
	if err != nil {
		return nil, err
	}
	if config.TrackFile != "" {
		go func() {
			if err := track.Watch(ctx, config.TrackFile, catalog, nil); err != nil {
				log.Error("track catalog watch stopped", log.ErrorField(err))
			}
		}()
	}
	log.Info("track catalog loaded",
		log.String("file", config.TrackFile), log.Strings("tracks", catalog.IDs()))
	return catalog, nil
}

// setupResults stores results in postgres if configured, in memory otherwise
func setupResults(ctx context.Context, comps *components) (results.Store, error) {
	if config.DB == "" {
		log.Info("No database configured, results are kept in memory")
		return results.NewMemoryStore(100), nil
	}
	if err := migrate.MigrateDb(config.DB); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	tracer := postgres.NewMyTracer(
		log.Default().Named("sql"), parseLogLevel(config.SQLLogLevel, log.DebugLevel))
	if config.EnableTelemetry {
		tracer = postgres.NewOtlpTracer()
	}
	pool, err := postgres.InitWithURL(ctx, config.DB, postgres.WithTracer(tracer))
	if err != nil {
		return nil, err
	}
	comps.onShutdown(pool.Close)
	return results.NewPgStore(repository.NewDB(pool)), nil
}

// setupLobby shares the lobby via NATS if configured
func setupLobby(ctx context.Context, comps *components) (lobbylist.Store, error) {
	if config.NatsURL == "" {
		return lobbylist.NewMemoryStore(), nil
	}
	nc, err := nats.Connect(config.NatsURL, nats.Name("racelink"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	comps.onShutdown(nc.Close)
	instance := config.InstanceName
	if instance == "" {
		if instance, err = os.Hostname(); err != nil {
			return nil, err
		}
	}
	return lobbylist.NewKVStore(ctx, nc, config.LobbyBucket, instance)
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}

func waitForRequiredServices() {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}

	wg := sync.WaitGroup{}
	checkTCP := func(addr string) {
		defer wg.Done()
		if err := utils.WaitForTCP(addr, timeout); err != nil {
			log.Fatal("required services not ready", log.ErrorField(err))
		}
	}

	if postgresAddr := utils.ExtractFromDBURL(config.DB); postgresAddr != "" {
		wg.Add(1)
		go checkTCP(postgresAddr)
	}
	if natsAddr := utils.ExtractFromNatsURL(config.NatsURL); natsAddr != "" {
		wg.Add(1)
		go checkTCP(natsAddr)
	}
	log.Debug("Waiting for connection checks to return")
	wg.Wait()
	log.Debug("Required services are available")
}
