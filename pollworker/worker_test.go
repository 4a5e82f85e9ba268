package pollworker

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/ardtek/msunpv/routerdata"
	"github.com/ardtek/msunpv/routertest"
	"github.com/ardtek/msunpv/webconnect"
)

type chanUpdater chan *State

func (u chanUpdater) UpdateRouterState(state *State) {
	select {
	case u <- state:
	default:
	}
}

func TestWorkerDeliversStates(t *testing.T) {
	c := qt.New(t)
	srv, err := routertest.NewServer("localhost:0", routerdata.Model2x2)
	c.Assert(err, qt.IsNil)
	defer srv.Close()
	client, err := webconnect.New(srv.Addr)
	c.Assert(err, qt.IsNil)

	states := make(chan *State, 1)
	w, err := New(Params{
		Client:   client,
		Updater:  chanUpdater(states),
		Interval: 10 * time.Millisecond,
	})
	c.Assert(err, qt.IsNil)
	defer w.Close()

	state := waitState(c, states)
	c.Assert(state.Status.Model, qt.Equals, routerdata.Model2x2)
	c.Assert(state.Index.Model, qt.Equals, routerdata.Model2x2)
	c.Assert(state.Status.Clock, qt.Equals, "16:03:53 ME")
	c.Assert(state.Time.IsZero(), qt.Equals, false)

	// The index snapshot is fetched once and shared across polls.
	state1 := waitState(c, states)
	c.Assert(state1.Index, qt.Equals, state.Index)
}

func TestWorkerSurvivesBrokenResponses(t *testing.T) {
	c := qt.New(t)
	srv, err := routertest.NewServer("localhost:0", routerdata.Model2x2)
	c.Assert(err, qt.IsNil)
	defer srv.Close()
	client, err := webconnect.New(srv.Addr)
	c.Assert(err, qt.IsNil)

	states := make(chan *State, 1)
	w, err := New(Params{
		Client:   client,
		Updater:  chanUpdater(states),
		Interval: 10 * time.Millisecond,
	})
	c.Assert(err, qt.IsNil)
	defer w.Close()

	waitState(c, states)
	srv.SetBroken(true)
	// Drain anything delivered before the server broke, then let a
	// few failed polls go by.
	drain(states, 50*time.Millisecond)
	srv.SetBroken(false)

	state := waitState(c, states)
	c.Assert(state.Status.Model, qt.Equals, routerdata.Model2x2)
}

func TestWorkerRefreshIndex(t *testing.T) {
	c := qt.New(t)
	srv, err := routertest.NewServer("localhost:0", routerdata.Model2x2)
	c.Assert(err, qt.IsNil)
	defer srv.Close()
	client, err := webconnect.New(srv.Addr)
	c.Assert(err, qt.IsNil)

	states := make(chan *State, 1)
	w, err := New(Params{
		Client:   client,
		Updater:  chanUpdater(states),
		Interval: 10 * time.Millisecond,
	})
	c.Assert(err, qt.IsNil)
	defer w.Close()

	state := waitState(c, states)
	w.RefreshIndex()
	// Wait until a state carrying the refetched index arrives.
	timeout := time.After(5 * time.Second)
	for {
		select {
		case state1 := <-states:
			if state1.Index != state.Index {
				return
			}
		case <-timeout:
			c.Fatalf("timed out waiting for refreshed index")
		}
	}
}

func TestNewParamValidation(t *testing.T) {
	c := qt.New(t)
	client, err := webconnect.New("localhost:1")
	c.Assert(err, qt.IsNil)
	_, err = New(Params{Updater: chanUpdater(nil)})
	c.Assert(err, qt.ErrorMatches, "no router client set")
	_, err = New(Params{Client: client})
	c.Assert(err, qt.ErrorMatches, "no updater set")
}

func waitState(c *qt.C, states chan *State) *State {
	select {
	case state := <-states:
		return state
	case <-time.After(5 * time.Second):
		c.Fatalf("timed out waiting for router state")
	}
	panic("unreachable")
}

func drain(states chan *State, d time.Duration) {
	deadline := time.After(d)
	for {
		select {
		case <-states:
		case <-deadline:
			return
		}
	}
}
