package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                string // connection string for the results database, empty keeps results in memory
	WaitForServices   string // duration to wait for other services to be ready
	LogLevel          string // sets the log level (zap log level values)
	SQLLogLevel       string // sets the log level for sql subsystem
	LogFormat         string // text vs json
	LogConfig         string // path to log config file
	EnvFile           string // optional .env file loaded before flags are resolved
	EnableTelemetry   bool   // enable telemetry
	TelemetryEndpoint string // endpoint for telemetry, "stdout" prints to the console
	ProfilingPort     int    // port for profiling
	ServerAddr        string // listen addr for websocket and REST
	AllowedOrigins    []string
	TLSCertFile       string // server: cert file, enables TLS together with TLSKeyFile
	TLSKeyFile        string // server: key file
	TrackFile         string // optional track catalog file, watched for changes
	DefaultTrack      string // track of newly created rooms without a track
	NatsURL           string // NATS server for the shared lobby list, empty disables it
	LobbyBucket       string // jetstream key value bucket of the lobby list
	InstanceName      string // identifies this server in the shared lobby list
	FeedbackURL       string // endpoint of the race feedback generator
	FeedbackToken     string // bearer token for the race feedback generator
	FeedbackModel     string // model name passed to the race feedback generator
	ServerURL         string // websocket url the drive command connects to
	Nickname          string // drive: nickname of the driver
	DriverID          string // drive: stable driver id used for rejoin
	RoomID            string // drive: join this room instead of creating one
	Laps              int    // drive: laps of a created room
	Codec             string // drive: wire codec (json, msgpack)
)
