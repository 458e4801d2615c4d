package bootstrap

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

// Supervisor runs background loops (outbox delivery, limiter cleanup) and
// waits for them on shutdown.
type Supervisor struct {
	logger *logging.Logger
	wg     sync.WaitGroup
}

func NewSupervisor(logger *logging.Logger) *Supervisor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Supervisor{logger: logger}
}

// Go starts fn in its own goroutine. fn must return once ctx is done.
// A panic is logged and stops only that loop.
func (s *Supervisor) Go(ctx context.Context, name string, fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("background worker panicked", "worker", name, "panic", r)
			}
		}()
		s.logger.Info("background worker started", "worker", name)
		fn(ctx)
		s.logger.Info("background worker stopped", "worker", name)
	}()
}

// Wait blocks until every loop returns or timeout elapses. It reports
// whether all loops finished.
func (s *Supervisor) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		s.logger.Warn("background workers did not stop in time", "timeout", timeout)
		return false
	}
}
