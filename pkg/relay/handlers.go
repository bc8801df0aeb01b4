package relay

import (
	"errors"
	"fmt"

	"github.com/mpapenbr/racelink/log"
	"github.com/mpapenbr/racelink/pkg/protocol"
	"github.com/mpapenbr/racelink/pkg/session"
	"github.com/mpapenbr/racelink/version"
)

var (
	ErrBadRequest          = errors.New("bad request")
	ErrUnknownEvent        = errors.New("unknown event")
	ErrIncompatibleVersion = errors.New("incompatible protocol version")
)

type handlerFunc func(h *Hub, p peer, data []byte) error

// decode unmarshals and validates the payload of an inbound event
func decode[T any](p peer, data []byte) (*T, error) {
	v := new(T)
	if err := p.Codec().Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if err := protocol.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return v, nil
}

// with adapts a typed handler to a handlerFunc
func with[T any](fn func(h *Hub, p peer, req *T) error) handlerFunc {
	return func(h *Hub, p peer, data []byte) error {
		req, err := decode[T](p, data)
		if err != nil {
			return err
		}
		return fn(h, p, req)
	}
}

//nolint:funlen // event table
func defaultHandlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		protocol.EventHello: with(func(h *Hub, p peer, req *protocol.Hello) error {
			if !protocol.CheckClientVersion(req.ProtocolVersion, version.ProtocolVersion) {
				return fmt.Errorf("%w: client %s, server %s",
					ErrIncompatibleVersion, req.ProtocolVersion, version.ProtocolVersion)
			}
			return nil
		}),
		protocol.EventListRooms: func(h *Hub, p peer, _ []byte) error {
			h.Send(p.ID(), protocol.EventLobbyUpdate,
				&protocol.LobbyUpdate{Rooms: h.manager.LobbyList()})
			return nil
		},
		protocol.EventCreateRoom: with(func(h *Hub, p peer, req *protocol.CreateRoom) error {
			_, err := h.manager.CreateRoom(p.ID(), req)
			return err
		}),
		protocol.EventJoinRoom: with(func(h *Hub, p peer, req *protocol.JoinRoom) error {
			_, err := h.manager.JoinRoom(p.ID(), req)
			return err
		}),
		protocol.EventRejoinRoom: with(func(h *Hub, p peer, req *protocol.RejoinRoom) error {
			_, err := h.manager.RejoinRoom(p.ID(), req)
			return err
		}),
		protocol.EventLeaveRoom: func(h *Hub, p peer, _ []byte) error {
			return h.manager.LeaveRoom(p.ID())
		},
		protocol.EventKick: with(func(h *Hub, p peer, req *protocol.Kick) error {
			return h.manager.Kick(p.ID(), req.TargetID)
		}),
		protocol.EventChangeTrack: with(func(h *Hub, p peer, req *protocol.ChangeTrack) error {
			return h.manager.ChangeTrack(p.ID(), req.TrackID)
		}),
		protocol.EventChangeLaps: with(func(h *Hub, p peer, req *protocol.ChangeLaps) error {
			return h.manager.ChangeLaps(p.ID(), req.Laps)
		}),
		protocol.EventChangeWeather: with(func(h *Hub, p peer, req *protocol.ChangeWeather) error {
			return h.manager.ChangeWeather(p.ID(), req.Weather)
		}),
		protocol.EventToggleQualifying: with(
			func(h *Hub, p peer, req *protocol.ToggleQualifying) error {
				return h.manager.ToggleQualifying(p.ID(), req.Enabled)
			}),
		protocol.EventReset: func(h *Hub, p peer, _ []byte) error {
			return h.manager.Reset(p.ID())
		},
		protocol.EventUpdateReady: with(func(h *Hub, p peer, req *protocol.UpdateReady) error {
			return h.manager.SetReady(p.ID(), req.Ready)
		}),
		protocol.EventStartRace: func(h *Hub, p peer, _ []byte) error {
			return h.manager.StartRace(p.ID())
		},
		protocol.EventPlayerMove: with(func(h *Hub, p peer, req *protocol.PlayerMove) error {
			return h.manager.Move(p.ID(), req)
		}),
		protocol.EventFinishRace: with(func(h *Hub, p peer, req *protocol.FinishRace) error {
			return h.manager.FinishRace(p.ID(), req.FinishTime)
		}),
		protocol.EventFinishQualifying: with(
			func(h *Hub, p peer, req *protocol.FinishQualifying) error {
				return h.manager.FinishQualifying(p.ID(), req.QualifyTime)
			}),
		protocol.EventChatSend: with(func(h *Hub, p peer, req *protocol.ChatSend) error {
			return h.manager.SendChat(p.ID(), req.Text)
		}),
	}
}

// dispatch runs on the hub goroutine
func (h *Hub) dispatch(p peer, frame []byte) {
	if _, ok := h.conns[p.ID()]; !ok {
		return
	}
	event, data, err := p.Codec().Decode(frame)
	if err != nil {
		h.log.Debug("undecodable frame", log.String("conn", p.ID()), log.ErrorField(err))
		h.sendError(p, "", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	fn, ok := h.handlers[event]
	if !ok {
		h.sendError(p, event, fmt.Errorf("%w: %s", ErrUnknownEvent, event))
		return
	}
	if err := fn(h, p, data); err != nil {
		h.sendError(p, event, err)
		if errors.Is(err, ErrIncompatibleVersion) {
			h.log.Info("closing connection",
				log.String("conn", p.ID()), log.ErrorField(err))
			p.close()
		}
	}
}

func (h *Hub) sendError(p peer, event string, err error) {
	code := errorCode(err)
	if code == "internal" {
		h.log.Error("request failed", log.String("event", event), log.ErrorField(err))
	} else {
		h.log.Debug("request rejected",
			log.String("event", event), log.String("code", code), log.ErrorField(err))
	}
	h.Send(p.ID(), protocol.EventError, &protocol.Error{
		Code:    code,
		Message: err.Error(),
		Event:   event,
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrBadRequest):
		return "badRequest"
	case errors.Is(err, ErrUnknownEvent):
		return "unknownEvent"
	case errors.Is(err, ErrIncompatibleVersion):
		return "incompatibleVersion"
	}
	return session.Code(err)
}
