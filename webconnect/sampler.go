package webconnect

import (
	"context"
	"log"
	"sync"
	"time"

	"go4.org/syncutil/singleflight"
	errgo "gopkg.in/errgo.v1"

	"github.com/ardtek/msunpv/routerdata"
)

// NewSampler returns a new Sampler.
func NewSampler() *Sampler {
	return &Sampler{
		recent: make(map[string]*Sample),
	}
}

// Sampler allows the sampling of a set of routers over time. It
// coalesces concurrent requests for the same router and remembers the
// most recent sample acquired for each one.
type Sampler struct {
	group  singleflight.Group
	mu     sync.Mutex
	recent map[string]*Sample
}

// Sample holds a router status that was received at a particular time.
type Sample struct {
	Time   time.Time
	Status *routerdata.Status
}

type result struct {
	index  int
	sample *Sample
}

// GetAll tries to acquire a status sample from the routers at all the
// given addresses. If the context is cancelled, it returns immediately
// with the most recent data that it has acquired, which might be from
// an earlier time. The returned slice holds the result for each
// respective address in addrs; an element is nil when no data has
// ever been acquired for that address.
func (sampler *Sampler) GetAll(ctx context.Context, addrs ...string) []*Sample {
	results := make(chan result, len(addrs))
	for i, addr := range addrs {
		i, addr := i, addr
		go func() {
			s := sampler.getOne(ctx, addr)
			if s != nil {
				sampler.mu.Lock()
				defer sampler.mu.Unlock()
				sampler.recent[addr] = s
			}
			results <- result{
				index:  i,
				sample: s,
			}
		}()
	}
	samples := make([]*Sample, len(addrs))
	numSamples := 0
	for numSamples < len(samples) {
		select {
		case <-ctx.Done():
			// Fill any samples with previously retrieved data when we have some.
			sampler.mu.Lock()
			defer sampler.mu.Unlock()
			for i, s := range samples {
				if s == nil {
					samples[i] = sampler.recent[addrs[i]]
				}
			}
			return samples
		case s := <-results:
			samples[s.index] = s.sample
			numSamples++
		}
	}
	return samples
}

func (sampler *Sampler) getOne(ctx context.Context, addr string) *Sample {
	for ctx.Err() == nil {
		sample0, err := sampler.group.Do(addr, func() (interface{}, error) {
			client, err := New(addr)
			if err != nil {
				return nil, err
			}
			status, err := client.GetStatus(ctx)
			if err != nil {
				return nil, err
			}
			return &Sample{
				Time:   time.Now(),
				Status: status,
			}, nil
		})
		if err == nil {
			return sample0.(*Sample)
		}
		log.Printf("failed to get status from %s: %v", addr, err)
		if errgo.Cause(err) != ErrConnection {
			// A bad address or a broken document won't get
			// better by retrying.
			return nil
		}
	}
	log.Printf("failed to get status from %s: %v", addr, ctx.Err())
	return nil
}
