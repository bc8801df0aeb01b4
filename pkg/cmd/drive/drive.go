package drive

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/racelink/log"
	"github.com/mpapenbr/racelink/pkg/client"
	"github.com/mpapenbr/racelink/pkg/config"
	"github.com/mpapenbr/racelink/pkg/lap"
	"github.com/mpapenbr/racelink/pkg/model"
	"github.com/mpapenbr/racelink/pkg/protocol"
	"github.com/mpapenbr/racelink/pkg/track"
	"github.com/mpapenbr/racelink/pkg/utils"
)

var minPlayers int

//nolint:funlen // flag definitions
func NewDriveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drive",
		Short: "joins a race with an autopilot driven car",
		Long: `Connects to a relay server and drives a car with the autopilot.
Without --room a new room is created and the race is started once
--min-players are ready. The command returns when the race is finished.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return startDrive(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&config.ServerURL,
		"url",
		"u",
		"ws://localhost:8080/ws",
		"websocket url of the relay server")
	cmd.Flags().StringVarP(&config.Nickname,
		"nickname",
		"n",
		"autopilot",
		"nickname shown to other players")
	cmd.Flags().StringVar(&config.DriverID,
		"driver-id",
		"",
		"stable driver id used to rejoin (default: random)")
	cmd.Flags().StringVarP(&config.RoomID,
		"room",
		"r",
		"",
		"room to join (default: create a new room)")
	cmd.Flags().StringVar(&config.DefaultTrack,
		"track",
		"monza",
		"track of a created room")
	cmd.Flags().IntVar(&config.Laps,
		"laps",
		3,
		"laps of a created room")
	cmd.Flags().IntVar(&minPlayers,
		"min-players",
		1,
		"ready players required before the host starts the race")
	cmd.Flags().StringVar(&config.Codec,
		"codec",
		protocol.CodecJSON,
		"wire codec (json, msgpack)")
	cmd.Flags().StringVar(&config.TrackFile,
		"track-file",
		"",
		"yaml track catalog, must match the one of the server (default: builtin tracks)")
	return cmd
}

//nolint:funlen // setup sequence
func startDrive(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	codec, err := protocol.CodecByName(config.Codec)
	if err != nil {
		return err
	}
	catalog, err := track.LoadCatalog(config.TrackFile)
	if err != nil {
		return err
	}
	fetcher, err := track.NewHTTPFetcher()
	if err != nil {
		return err
	}
	tracks := track.NewResolver(catalog, track.WithFetcher(fetcher))

	if addr, _ := utils.ExtractFromWebsocketURL(config.ServerURL); addr != "" {
		timeout, err := time.ParseDuration(config.WaitForServices)
		if err != nil {
			timeout = 60 * time.Second
		}
		if err := utils.WaitForTCP(addr, timeout); err != nil {
			return err
		}
	}

	identity := protocol.Identity{
		Nickname: config.Nickname,
		DriverID: config.DriverID,
		Setup:    model.DefaultSetup(),
	}
	if identity.DriverID == "" {
		identity.DriverID = uuid.NewString()
	}

	ch := client.NewWSChannel(config.ServerURL, client.WithCodec(codec))
	defer ch.Close()

	race := newAutoRace(identity.DriverID, minPlayers)
	s := client.NewSession(ch, tracks, identity,
		client.WithDriver(client.NewAutopilot()),
		client.WithLapListener(race.onLap),
		client.WithRoomListener(func(r *model.Room) { race.onRoom(r) }),
	)
	race.ctrl = s

	sessionErr := make(chan error, 1)
	go func() { sessionErr <- s.Run(ctx) }()

	if err := ch.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", config.ServerURL, err)
	}
	log.Info("connected", log.String("url", config.ServerURL),
		log.String("driver", identity.DriverID), log.String("codec", codec.Name()))

	if config.RoomID != "" {
		err = s.JoinRoom(config.RoomID)
	} else {
		err = s.CreateRoom(fmt.Sprintf("%s's room", config.Nickname), config.DefaultTrack, config.Laps)
	}
	if err != nil {
		return err
	}

	select {
	case <-race.done:
		log.Info("race finished", log.Any("lapTimes", s.Status().LapTimes))
		//nolint:errcheck // leaving is best effort
		s.Leave()
		// allow the leave to be written before closing
		time.Sleep(100 * time.Millisecond)
	case <-ctx.Done():
		log.Info("interrupted")
	case err := <-sessionErr:
		return err
	}
	return nil
}

// raceControl is the part of the session used to progress a room
type raceControl interface {
	SetReady(ready bool) error
	StartRace() error
}

// autoRace readies the car and starts the race as host. Its methods are
// called from the session loop.
type autoRace struct {
	ctrl       raceControl
	driverID   string
	minPlayers int
	readySent  bool
	startSent  bool
	finished   bool
	done       chan struct{}
	log        *log.Logger
}

func newAutoRace(driverID string, minPlayers int) *autoRace {
	return &autoRace{
		driverID:   driverID,
		minPlayers: max(minPlayers, 1),
		done:       make(chan struct{}),
		log:        log.Default().Named("drive"),
	}
}

func (a *autoRace) self(r *model.Room) *model.Player {
	for _, p := range r.Players {
		if p.DriverID == a.driverID {
			return p
		}
	}
	return nil
}

func (a *autoRace) onRoom(r *model.Room) {
	me := a.self(r)
	if me == nil || a.finished {
		return
	}
	switch r.Phase {
	case model.PhaseLobby:
		a.startSent = false
		if !me.Ready && !a.readySent {
			a.readySent = true
			if err := a.ctrl.SetReady(true); err != nil {
				a.log.Warn("could not set ready", log.ErrorField(err))
				a.readySent = false
			}
			return
		}
		if r.HostID == me.ID && !a.startSent && r.AllReady() && len(r.Players) >= a.minPlayers {
			a.startSent = true
			a.log.Info("starting race", log.String("room", r.ID), log.Int("players", len(r.Players)))
			if err := a.ctrl.StartRace(); err != nil {
				a.log.Warn("could not start race", log.ErrorField(err))
				a.startSent = false
			}
		}
	case model.PhaseCountdown, model.PhaseQualifying, model.PhaseRacing:
		a.readySent = false
	case model.PhaseFinished:
		a.finished = true
		for _, p := range r.Players {
			a.log.Info("result",
				log.String("nickname", p.Nickname),
				log.Bool("finished", p.Finished),
				log.Duration("time", time.Duration(p.FinishTime)*time.Millisecond))
		}
		close(a.done)
	}
}

func (a *autoRace) onLap(ev lap.Event) {
	a.log.Info(ev.Kind.String(),
		log.Int("lap", ev.Lap),
		log.Duration("lapTime", ev.LapTime),
		log.Duration("total", ev.Total))
}
