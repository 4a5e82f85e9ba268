// Package pollworker implements a worker that polls an MSunPV router
// and delivers decoded snapshots to an updater.
//
// The index document changes only when the router is reconfigured, so
// the worker fetches it once at startup and thereafter only on
// request; the status document is polled on every interval.
package pollworker

import (
	"context"
	"log"
	"sync"
	"time"

	errgo "gopkg.in/errgo.v1"
	retry "gopkg.in/retry.v1"

	"github.com/ardtek/msunpv/routerdata"
	"github.com/ardtek/msunpv/webconnect"
)

// Params holds the parameters for a call to New.
type Params struct {
	// Client is used to fetch the router's documents.
	Client *webconnect.Client
	// Updater receives a new state after every successful poll.
	Updater Updater
	// Interval holds the polling interval.
	// If it's zero, DefaultInterval will be used.
	Interval time.Duration
}

const DefaultInterval = 30 * time.Second

// Updater is used by the worker to notify an external entity of new
// router states. Implementations should not block.
type Updater interface {
	// UpdateRouterState delivers the most recent state. The
	// implementation may retain state but must not mutate anything
	// in it.
	UpdateRouterState(state *State)
}

// State is an immutable snapshot of everything known about the router.
type State struct {
	// Status holds the most recently polled status document.
	Status *routerdata.Status
	// Index holds the index document describing the status fields.
	Index *routerdata.Index
	// Time holds when Status was fetched.
	Time time.Time
}

// Worker polls a router in the background until closed.
type Worker struct {
	p       Params
	ctx     context.Context
	close   func()
	wg      sync.WaitGroup
	refresh chan struct{}
}

// New returns a new Worker polling the router behind p.Client.
// It should be closed after use.
func New(p Params) (*Worker, error) {
	if p.Client == nil {
		return nil, errgo.New("no router client set")
	}
	if p.Updater == nil {
		return nil, errgo.New("no updater set")
	}
	if p.Interval == 0 {
		p.Interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		p:       p,
		ctx:     ctx,
		close:   cancel,
		refresh: make(chan struct{}, 1),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// RefreshIndex makes the worker fetch the index document again before
// its next poll. It's only needed after the router has been
// reconfigured.
func (w *Worker) RefreshIndex() {
	select {
	case w.refresh <- struct{}{}:
	default:
	}
}

// Close shuts the worker down and waits for it to stop.
func (w *Worker) Close() {
	w.close()
	w.wg.Wait()
}

var retryStrategy = retry.Exponential{
	Initial:  100 * time.Millisecond,
	Factor:   1.5,
	MaxDelay: 5 * time.Second,
}

func (w *Worker) run() {
	defer w.wg.Done()
	index, ok := w.getIndex()
	if !ok {
		return
	}
	for {
		select {
		case <-w.refresh:
			index1, ok := w.getIndex()
			if !ok {
				return
			}
			index = index1
		default:
		}
		status, err := w.p.Client.GetStatus(w.ctx)
		if err != nil {
			// Transient failures are normal; skip the poll
			// and try again next interval.
			log.Printf("cannot poll router status: %v", err)
		} else {
			w.p.Updater.UpdateRouterState(&State{
				Status: status,
				Index:  index,
				Time:   time.Now(),
			})
		}
		select {
		case <-time.After(w.p.Interval):
		case <-w.ctx.Done():
			return
		}
	}
}

// getIndex fetches the index document, retrying until it succeeds or
// the worker is closed.
func (w *Worker) getIndex() (*routerdata.Index, bool) {
	for a := retry.StartWithCancel(retryStrategy, nil, w.ctx.Done()); a.Next(); {
		index, err := w.p.Client.GetIndex(w.ctx)
		if err == nil {
			return index, true
		}
		log.Printf("cannot fetch router index: %v", err)
	}
	// Note: this only happens when the worker is closed.
	return nil, false
}
