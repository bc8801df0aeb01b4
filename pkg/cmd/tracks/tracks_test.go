package tracks

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/racelink/pkg/config"
	"github.com/mpapenbr/racelink/pkg/geometry"
	"github.com/mpapenbr/racelink/pkg/track"
)

func TestWriteList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeList(&buf, track.Builtin()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(track.Builtin())+1)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.True(t, strings.HasPrefix(lines[1], "monaco"))
}

func TestShowTrack(t *testing.T) {
	config.TrackFile = ""
	var buf bytes.Buffer
	require.NoError(t, showTrack(context.Background(), &buf, "canyon"))

	var got summary
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "canyon", got.ID)
	assert.Positive(t, got.Length)
	assert.Len(t, got.Grid, geometry.GridMaxSlots)
	assert.Positive(t, got.Barriers)

	assert.ErrorIs(t, showTrack(context.Background(), &buf, "nowhere"), track.ErrUnknownTrack)
}
