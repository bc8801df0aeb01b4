package drive

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/racelink/pkg/model"
)

type fakeControl struct {
	ready  []bool
	starts int
}

func (f *fakeControl) SetReady(ready bool) error {
	f.ready = append(f.ready, ready)
	return nil
}

func (f *fakeControl) StartRace() error {
	f.starts++
	return nil
}

func room(phase model.Phase, host string, players ...*model.Player) *model.Room {
	return &model.Room{ID: "r1", HostID: host, Phase: phase, Players: players}
}

func TestAutoRaceHost(t *testing.T) {
	ctrl := &fakeControl{}
	a := newAutoRace("drv-me", 2)
	a.ctrl = ctrl

	me := &model.Player{ID: "c1", DriverID: "drv-me"}
	other := &model.Player{ID: "c2", DriverID: "drv-other"}

	a.onRoom(room(model.PhaseLobby, "c1", me))
	assert.Equal(t, []bool{true}, ctrl.ready)
	// still waiting for the update
	a.onRoom(room(model.PhaseLobby, "c1", me))
	assert.Equal(t, []bool{true}, ctrl.ready)

	me.Ready = true
	a.onRoom(room(model.PhaseLobby, "c1", me))
	assert.Zero(t, ctrl.starts, "not enough players")

	a.onRoom(room(model.PhaseLobby, "c1", me, other))
	assert.Zero(t, ctrl.starts, "other not ready")

	other.Ready = true
	a.onRoom(room(model.PhaseLobby, "c1", me, other))
	a.onRoom(room(model.PhaseLobby, "c1", me, other))
	assert.Equal(t, 1, ctrl.starts)

	a.onRoom(room(model.PhaseRacing, "c1", me, other))
	select {
	case <-a.done:
		t.Fatal("done before finish")
	default:
	}
	a.onRoom(room(model.PhaseFinished, "c1", me, other))
	<-a.done
	// further updates are ignored
	a.onRoom(room(model.PhaseFinished, "c1", me, other))
}

func TestAutoRaceGuest(t *testing.T) {
	ctrl := &fakeControl{}
	a := newAutoRace("drv-me", 1)
	a.ctrl = ctrl

	me := &model.Player{ID: "c2", DriverID: "drv-me", Ready: true}
	host := &model.Player{ID: "c1", DriverID: "drv-host", Ready: true}
	a.onRoom(room(model.PhaseLobby, "c1", host, me))
	assert.Empty(t, ctrl.ready)
	assert.Zero(t, ctrl.starts)

	// rooms without this driver are ignored
	a.onRoom(room(model.PhaseFinished, "c1", host))
	select {
	case <-a.done:
		t.Fatal("finished foreign room")
	default:
	}
}
