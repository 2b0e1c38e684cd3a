package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gammazero/workerpool"

	"renthub/internal/models"
)

// FanoutSink delivers every event to all member sinks concurrently on a shared worker pool
// and waits for them. Member errors are joined.
type FanoutSink struct {
	sinks []Sink
	pool  *workerpool.WorkerPool
}

// NewFanoutSink runs deliveries on at most workers goroutines.
func NewFanoutSink(workers int, sinks ...Sink) *FanoutSink {
	if workers < 1 {
		workers = 1
	}
	return &FanoutSink{sinks: sinks, pool: workerpool.New(workers)}
}

// Add appends a member sink. Not safe for use concurrently with Record.
func (f *FanoutSink) Add(s Sink) {
	f.sinks = append(f.sinks, s)
}

// Record delivers ev to every member. A panicking member is reported as an error.
func (f *FanoutSink) Record(ctx context.Context, ev *models.EventLog) error {
	if len(f.sinks) == 1 {
		return f.sinks[0].Record(ctx, ev)
	}

	errs := make([]error, len(f.sinks))
	var wg sync.WaitGroup
	for i, s := range f.sinks {
		i, s := i, s
		wg.Add(1)
		f.pool.Submit(func() {
			defer wg.Done()
			// Members run on pool goroutines, out of reach of the Recorder's recover.
			defer func() {
				if p := recover(); p != nil {
					errs[i] = fmt.Errorf("audit sink panicked: %v", p)
				}
			}()
			errs[i] = s.Record(ctx, ev)
		})
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Close stops the pool after queued deliveries finish.
func (f *FanoutSink) Close() {
	f.pool.StopWait()
}
