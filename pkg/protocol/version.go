package protocol

import (
	"strings"

	"golang.org/x/mod/semver"
)

// MinClientVersion is the oldest client protocol version the server accepts
const MinClientVersion = "v1.0.0"

// CheckClientVersion reports whether a client speaking toCheck may connect.
// Clients must share the major version and be at least MinClientVersion.
func CheckClientVersion(toCheck, serverVersion string) bool {
	if !strings.HasPrefix(toCheck, "v") {
		toCheck = "v" + toCheck
	}
	if !semver.IsValid(toCheck) {
		return false
	}
	if semver.Major(toCheck) != semver.Major(serverVersion) {
		return false
	}
	return semver.Compare(toCheck, MinClientVersion) >= 0
}
