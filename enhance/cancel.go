package enhance

import (
	"context"
	"sync"
	"sync/atomic"
)

// CancelToken is a flag shared between the goroutine running the pipeline
// and any goroutine that wants it stopped. The pipeline polls it between
// tiles and stages.
type CancelToken struct {
	flag atomic.Bool

	mu   sync.Mutex
	stop context.CancelFunc
}

// Cancel requests cancellation. Safe from any goroutine.
func (t *CancelToken) Cancel() {
	t.flag.Store(true)
	t.mu.Lock()
	if t.stop != nil {
		t.stop()
	}
	t.mu.Unlock()
}

// Cancelled reports whether Cancel was called since the last Reset.
func (t *CancelToken) Cancelled() bool { return t.flag.Load() }

// Reset clears the flag.
func (t *CancelToken) Reset() { t.flag.Store(false) }

// Context returns a child of parent that is cancelled together with the
// token. The returned func releases it and must be called.
func (t *CancelToken) Context(parent context.Context) (context.Context, func()) {
	ctx, stop := context.WithCancel(parent)
	t.mu.Lock()
	t.stop = stop
	t.mu.Unlock()
	if t.Cancelled() {
		stop()
	}
	return ctx, func() {
		t.mu.Lock()
		t.stop = nil
		t.mu.Unlock()
		stop()
	}
}
