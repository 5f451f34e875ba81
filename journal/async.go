package journal

import (
	"sync"
	"time"
)

// Defaults for the background run writer.
const (
	DefaultQueueCapacity = 100
	DefaultDrainTimeout  = 10 * time.Second
)

// writeHandler persists one queued item. It logs its own failures.
type writeHandler func(item any) error

// asyncWriter hands writes to a single background goroutine so run callers
// never block on SQLite.
type asyncWriter struct {
	queue   chan any
	handler writeHandler
	drain   time.Duration

	mu      sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
	dropped int
}

func newAsyncWriter(handler writeHandler, capacity int, drain time.Duration) *asyncWriter {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	if drain <= 0 {
		drain = DefaultDrainTimeout
	}
	return &asyncWriter{
		queue:   make(chan any, capacity),
		handler: handler,
		drain:   drain,
		done:    make(chan struct{}),
	}
}

func (w *asyncWriter) start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	go func() {
		defer close(w.done)
		for item := range w.queue {
			_ = w.handler(item)
		}
	}()
}

// write queues item without blocking. It returns false when the queue is
// full or the writer has stopped.
func (w *asyncWriter) write(item any) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	select {
	case w.queue <- item:
		return true
	default:
		w.dropped++
		return false
	}
}

// stop closes the queue and waits up to the drain timeout for pending items.
// It reports whether the queue drained in time.
func (w *asyncWriter) stop() bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return true
	}
	w.closed = true
	close(w.queue)
	started := w.started
	w.mu.Unlock()

	if !started {
		return len(w.queue) == 0
	}
	select {
	case <-w.done:
		return true
	case <-time.After(w.drain):
		return false
	}
}

func (w *asyncWriter) droppedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}
