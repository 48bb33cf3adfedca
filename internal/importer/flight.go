package importer

import (
	"context"
	"sync"

	"github.com/emrgen/mediahub/internal/progress"
)

// flight is a root import shared by every caller asking for the same entity.
// It runs on a context of its own that is cancelled once no caller waits.
type flight struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	next    int
	waiters map[int]*progress.Sink
	last    float64
}

// report fans a fraction out to every waiting caller.
func (f *flight) report(fraction float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = fraction
	for _, s := range f.waiters {
		s.Report(fraction)
	}
}

// join registers a caller on the flight for key, starting a new one if none
// is running. Callers joining late see the progress made so far.
func (i *Importer) join(ctx context.Context, key string, fn progress.Func) (*flight, int) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.flights == nil {
		i.flights = make(map[string]*flight)
	}
	f, ok := i.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel, waiters: make(map[int]*progress.Sink)}
		i.flights[key] = f
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	sink := progress.New(fn)
	if f.last > 0 {
		sink.Report(f.last)
	}
	f.waiters[id] = sink
	return f, id
}

// leave drops a caller. The last caller to leave cancels the flight.
func (i *Importer) leave(key string, f *flight, id int) {
	i.mu.Lock()
	defer i.mu.Unlock()

	f.mu.Lock()
	delete(f.waiters, id)
	empty := len(f.waiters) == 0
	f.mu.Unlock()

	if !empty {
		return
	}
	if i.flights[key] == f {
		delete(i.flights, key)
	}
	f.cancel()
}
