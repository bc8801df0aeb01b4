package session

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrNotInLobby      = errors.New("room is not in lobby")
	ErrNotHost         = errors.New("only the host may do this")
	ErrNotInRoom       = errors.New("not in a room")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrUnknownTrack    = errors.New("unknown track")
	ErrInvalidLaps     = errors.New("invalid number of laps")
	ErrInvalidWeather  = errors.New("invalid weather")
	ErrNotAllReady     = errors.New("not all players are ready")
	ErrNicknameTaken   = errors.New("nickname already taken in this room")
	ErrCannotKickSelf  = errors.New("host cannot kick themselves")
	ErrWrongPhase      = errors.New("operation not allowed in current phase")
	ErrEmptyMessage    = errors.New("empty chat message")
	ErrInvalidNickname = errors.New("invalid nickname")
)

// Code maps an error to the short code sent in error events
func Code(err error) string {
	codes := []struct {
		err  error
		code string
	}{
		{ErrRoomNotFound, "roomNotFound"},
		{ErrRoomFull, "roomFull"},
		{ErrNotInLobby, "notInLobby"},
		{ErrNotHost, "notHost"},
		{ErrNotInRoom, "notInRoom"},
		{ErrPlayerNotFound, "playerNotFound"},
		{ErrUnknownTrack, "unknownTrack"},
		{ErrInvalidLaps, "invalidLaps"},
		{ErrInvalidWeather, "invalidWeather"},
		{ErrNotAllReady, "notAllReady"},
		{ErrNicknameTaken, "nicknameTaken"},
		{ErrCannotKickSelf, "cannotKickSelf"},
		{ErrWrongPhase, "wrongPhase"},
		{ErrEmptyMessage, "emptyMessage"},
		{ErrInvalidNickname, "invalidNickname"},
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}
