//nolint:whitespace,funlen // readability
package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racelink/pkg/model"
)

func TestCodecs(t *testing.T) {
	for _, c := range []Codec{JSON, Msgpack} {
		t.Run(c.Name(), func(t *testing.T) {
			in := JoinRoom{
				Identity: Identity{Nickname: "Alice", DriverID: "d-1", Setup: model.DefaultSetup()},
				RoomID:   "r1",
			}
			frame, err := c.Encode(EventJoinRoom, in)
			require.NoError(t, err)

			ev, data, err := c.Decode(frame)
			require.NoError(t, err)
			assert.Equal(t, EventJoinRoom, ev)

			var out JoinRoom
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestCodecWithoutPayload(t *testing.T) {
	for _, c := range []Codec{JSON, Msgpack} {
		frame, err := c.Encode(EventStartRace, nil)
		require.NoError(t, err)
		ev, data, err := c.Decode(frame)
		require.NoError(t, err)
		assert.Equal(t, EventStartRace, ev)
		assert.Empty(t, data)
		var v UpdateReady
		assert.NoError(t, c.Unmarshal(data, &v))
	}
}

func TestJSONWireFormat(t *testing.T) {
	frame, err := JSON.Encode(EventUpdateReady, UpdateReady{Ready: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"updateReady","data":{"ready":true}}`, string(frame))

	_, _, err = JSON.Decode([]byte(`{"data":{}}`))
	assert.ErrorIs(t, err, ErrMissingType)
	_, _, err = JSON.Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestCodecByName(t *testing.T) {
	c, err := CodecByName("")
	require.NoError(t, err)
	assert.Equal(t, CodecJSON, c.Name())
	c, err = CodecByName("msgpack")
	require.NoError(t, err)
	assert.True(t, c.Binary())
	_, err = CodecByName("xml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		v       any
		wantErr bool
	}{
		{"valid join", &JoinRoom{Identity: Identity{Nickname: "Bob"}, RoomID: "r"}, false},
		{"missing nickname", &JoinRoom{RoomID: "r"}, true},
		{"missing room", &JoinRoom{Identity: Identity{Nickname: "Bob"}}, true},
		{"too many laps", &ChangeLaps{Laps: 51}, true},
		{"zero laps", &ChangeLaps{Laps: 0}, true},
		{"weather", &ChangeWeather{Weather: "foggy"}, true},
		{"rainy", &ChangeWeather{Weather: model.WeatherRainy}, false},
		{"wing out of range", &CreateRoom{Identity: Identity{
			Nickname: "A", Setup: model.CarSetup{FrontWing: 60},
		}}, true},
		{"bad livery", &CreateRoom{Identity: Identity{
			Nickname: "A", Livery: model.Livery{Primary: "red"},
		}}, true},
		{"good livery", &CreateRoom{Identity: Identity{
			Nickname: "A", Livery: model.Livery{Primary: "#ff0000"},
		}}, false},
		{"empty chat", &ChatSend{}, true},
		{"finish time", &FinishRace{FinishTime: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.v)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckClientVersion(t *testing.T) {
	assert.True(t, CheckClientVersion("v1.2.0", "v1.2.0"))
	assert.True(t, CheckClientVersion("1.0.3", "v1.2.0"))
	assert.False(t, CheckClientVersion("v0.9.0", "v1.2.0"))
	assert.False(t, CheckClientVersion("v2.0.0", "v1.2.0"))
	assert.False(t, CheckClientVersion("garbage", "v1.2.0"))
}
