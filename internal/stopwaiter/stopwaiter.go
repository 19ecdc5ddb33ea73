// Package stopwaiter provides a small lifecycle helper for services that run
// one or more background goroutines and need a single StopAndWait call to
// cancel and drain all of them.
package stopwaiter

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// StopWaiter is embedded by services with a Start/StopAndWait lifecycle.
// It is not safe for concurrent Start calls; Start is expected to be called
// once from the owning goroutine before any LaunchThread call.
type StopWaiter struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	name    string
}

type named interface {
	String() string
}

// Start arms the StopWaiter with a parent context. ctxIn is derived into a
// cancelable context; self is used only to derive a log-friendly name.
func (s *StopWaiter) Start(ctxIn context.Context, self interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		log.Warn("StopWaiter.Start called twice")
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctxIn)
	s.started = true
	if n, ok := self.(named); ok {
		s.name = n.String()
	}
}

// GetContext returns the context created by Start, for callers that need to
// pass it to a single RPC rather than a background goroutine.
func (s *StopWaiter) GetContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Started reports whether Start has been called. It stays true after
// StopOnly or StopAndWait.
func (s *StopWaiter) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// LaunchThread runs fn in a new goroutine, passing it the StopWaiter's
// context. StopAndWait blocks until every goroutine launched this way has
// returned.
func (s *StopWaiter) LaunchThread(fn func(ctx context.Context)) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		log.Error("LaunchThread called before Start")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(ctx)
	}()
}

// CallIteratively repeatedly invokes fn until StopAndWait is called, sleeping
// for the duration fn returns between calls. A zero or negative duration
// means "run again immediately" rather than "stop."
func (s *StopWaiter) CallIteratively(fn func(ctx context.Context) time.Duration) {
	s.LaunchThread(func(ctx context.Context) {
		for {
			interval := fn(ctx)
			if ctx.Err() != nil {
				return
			}
			if interval <= 0 {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
		}
	})
}

// StopOnly cancels the context without waiting for goroutines to exit.
func (s *StopWaiter) StopOnly() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// StopAndWait cancels the context and blocks until every launched goroutine
// has returned.
func (s *StopWaiter) StopAndWait() {
	s.StopOnly()
	s.wg.Wait()
}
