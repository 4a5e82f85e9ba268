package webconnect_test

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/ardtek/msunpv/routerdata"
	"github.com/ardtek/msunpv/routertest"
	"github.com/ardtek/msunpv/webconnect"
)

func TestSamplerGetAll(t *testing.T) {
	c := qt.New(t)
	srv0, err := routertest.NewServer("localhost:0", routerdata.Model2x2)
	c.Assert(err, qt.IsNil)
	defer srv0.Close()
	srv1, err := routertest.NewServer("localhost:0", routerdata.Model4x4)
	c.Assert(err, qt.IsNil)
	defer srv1.Close()
	srv0.SetPowerReso(-10)
	srv1.SetPowerReso(-20)

	sampler := webconnect.NewSampler()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	samples := sampler.GetAll(ctx, srv0.Addr, srv1.Addr)
	c.Assert(len(samples), qt.Equals, 2)
	c.Assert(samples[0].Status.PowerReso, qt.Equals, -10.0)
	c.Assert(samples[0].Status.Model, qt.Equals, routerdata.Model2x2)
	c.Assert(samples[1].Status.PowerReso, qt.Equals, -20.0)
	c.Assert(samples[1].Status.Model, qt.Equals, routerdata.Model4x4)
}

func TestSamplerCancelledContextReturnsRecent(t *testing.T) {
	c := qt.New(t)
	srv, err := routertest.NewServer("localhost:0", routerdata.Model2x2)
	c.Assert(err, qt.IsNil)
	defer srv.Close()

	sampler := webconnect.NewSampler()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	samples := sampler.GetAll(ctx, srv.Addr)
	c.Assert(len(samples), qt.Equals, 1)
	c.Assert(samples[0], qt.Not(qt.IsNil))

	// With a cancelled context we should get the sample acquired
	// above rather than nothing.
	cancelledCtx, cancel2 := context.WithCancel(context.Background())
	cancel2()
	samples2 := sampler.GetAll(cancelledCtx, srv.Addr)
	c.Assert(len(samples2), qt.Equals, 1)
	c.Assert(samples2[0], qt.Equals, samples[0])
}

func TestSamplerUnreachableAddressGivesNilSample(t *testing.T) {
	c := qt.New(t)
	sampler := webconnect.NewSampler()
	// The sampler keeps trying an unreachable router until the
	// context expires, then reports that it has nothing.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	samples := sampler.GetAll(ctx, "localhost:0")
	c.Assert(len(samples), qt.Equals, 1)
	c.Assert(samples[0], qt.IsNil)
}
