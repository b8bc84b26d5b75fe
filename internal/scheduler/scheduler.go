// Package scheduler provides the shared execution facility handed to every
// connector and strategy: supervised goroutines, deferred callbacks, and a
// single HTTP client for outbound REST calls.
//
// Every unit of work launched through the scheduler is supervised: a non-nil
// error or a panic is converted into a Fault and delivered on the fault
// channel. The engine treats the first fault as fatal for the whole process.
package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Fault is an unhandled failure from a supervised unit of work.
type Fault struct {
	Origin string
	Err    error
}

// Scheduler owns the shared HTTP client and the fault channel. The zero value
// is not usable; construct with New.
type Scheduler struct {
	client *http.Client
	faults chan Fault
	wg     sync.WaitGroup
}

// New creates a Scheduler with a shared HTTP client.
func New() *Scheduler {
	return &Scheduler{
		client: &http.Client{Timeout: 30 * time.Second},
		// Buffered so faulting tasks never block; only the first fault
		// matters to the engine.
		faults: make(chan Fault, 16),
	}
}

// HTTPClient returns the shared HTTP client.
func (s *Scheduler) HTTPClient() *http.Client {
	return s.client
}

// Faults returns the channel on which supervised failures are delivered.
func (s *Scheduler) Faults() <-chan Fault {
	return s.faults
}

// Go runs fn on its own goroutine under supervision. A non-nil error or a
// panic is reported as a Fault attributed to origin. Context cancellation
// errors are not faults: they mean the process is already shutting down.
func (s *Scheduler) Go(ctx context.Context, origin string, fn func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.report(Fault{Origin: origin, Err: fmt.Errorf("panic: %v", r)})
			}
		}()
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			s.report(Fault{Origin: origin, Err: err})
		}
	}()
}

// CallLater schedules fn to run after delay, under the same supervision as
// Go. The callback is skipped if ctx is cancelled before the delay elapses.
func (s *Scheduler) CallLater(ctx context.Context, delay time.Duration, origin string, fn func(context.Context) error) {
	s.Go(ctx, origin, func(ctx context.Context) error {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			return fn(ctx)
		}
	})
}

// Every schedules fn to run repeatedly at the given interval until ctx is
// cancelled. Each invocation is supervised.
func (s *Scheduler) Every(ctx context.Context, interval time.Duration, origin string, fn func(context.Context) error) {
	s.Go(ctx, origin, func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					return err
				}
			}
		}
	})
}

// Wait blocks until every supervised unit of work has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) report(f Fault) {
	select {
	case s.faults <- f:
	default:
		// Channel full: a fault is already pending and the process is
		// about to terminate anyway.
	}
}
