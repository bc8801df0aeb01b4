package version

import "fmt"

// these values are set via ldflags during build
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var FullVersion = fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate)

// ProtocolVersion is the wire protocol version sent to clients during the hello handshake
const ProtocolVersion = "v1.2.0"
