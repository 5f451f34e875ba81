// Package shutdown coordinates interrupt handling for the command line tool:
// the first signal cancels the running enhancement, a repeated signal forces
// exit, and registered cleanups run in priority order on the way out.
package shutdown

import (
	"os"
	"os/signal"
	"sync"
)

// SignalCounter counts shutdown signals and calls onForce once the count
// reaches forceAfter, and on every signal after that.
type SignalCounter struct {
	mu         sync.Mutex
	count      int
	forceAfter int
	onForce    func()
}

// NewSignalCounter creates a counter. onForce may be nil.
func NewSignalCounter(forceAfter int, onForce func()) *SignalCounter {
	return &SignalCounter{
		forceAfter: forceAfter,
		onForce:    onForce,
	}
}

// Increment records one signal and returns the new count. onForce runs with
// the lock held, so it should return quickly or exit the process.
func (s *SignalCounter) Increment() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if s.count >= s.forceAfter && s.onForce != nil {
		s.onForce()
	}
	return s.count
}

// Count returns the current signal count.
func (s *SignalCounter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Reset sets the count back to zero, for example between batch items.
func (s *SignalCounter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = 0
}

// Watch feeds the given signals into counter and calls onFirst for the first
// one. The returned function stops watching.
func Watch(counter *SignalCounter, onFirst func(os.Signal), sigs ...os.Signal) (stop func()) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, sigs...)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case sig := <-ch:
				if counter.Increment() == 1 && onFirst != nil {
					onFirst(sig)
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}
