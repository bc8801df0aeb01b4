package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var ErrMissingType = errors.New("envelope without type")

// Codec converts between wire frames and {type, data} envelopes
type Codec interface {
	Name() string
	// Binary reports whether frames are sent as binary websocket messages
	Binary() bool
	Encode(event string, payload any) ([]byte, error)
	// Decode splits a frame into event name and still encoded payload
	Decode(frame []byte) (event string, data []byte, err error)
	// Unmarshal decodes a payload returned by Decode into v
	Unmarshal(data []byte, v any) error
}

const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// CodecByName returns the codec for name, an empty name selects JSON
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", CodecJSON:
		return JSON, nil
	case CodecMsgpack:
		return Msgpack, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

type jsonEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return CodecJSON }
func (jsonCodec) Binary() bool { return false }

func (jsonCodec) Encode(event string, payload any) ([]byte, error) {
	env := jsonEnvelope{Type: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}

func (jsonCodec) Decode(frame []byte) (event string, data []byte, err error) {
	var env jsonEnvelope
	if err = json.Unmarshal(frame, &env); err != nil {
		return "", nil, err
	}
	if env.Type == "" {
		return "", nil, ErrMissingType
	}
	return env.Type, env.Data, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

type msgpackEnvelope struct {
	Type string             `msgpack:"type"`
	Data msgpack.RawMessage `msgpack:"data,omitempty"`
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return CodecMsgpack }
func (msgpackCodec) Binary() bool { return true }

func (msgpackCodec) Encode(event string, payload any) ([]byte, error) {
	env := msgpackEnvelope{Type: event}
	if payload != nil {
		data, err := msgpack.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return msgpack.Marshal(&env)
}

func (msgpackCodec) Decode(frame []byte) (event string, data []byte, err error) {
	var env msgpackEnvelope
	if err = msgpack.Unmarshal(frame, &env); err != nil {
		return "", nil, err
	}
	if env.Type == "" {
		return "", nil, ErrMissingType
	}
	return env.Type, env.Data, nil
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return msgpack.Unmarshal(data, v)
}
