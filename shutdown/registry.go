package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Func is a cleanup step. It should respect ctx and be safe to call once.
type Func func(ctx context.Context) error

// Cleanup priorities. Lower runs first.
const (
	PriorityEngine  = 10 // release loaded networks
	PriorityJournal = 20 // drain and close the state database
	PriorityLogger  = 90 // flush logs last
)

type entry struct {
	name     string
	fn       Func
	priority int
}

// Registry runs cleanups in priority order. Registration order breaks ties.
type Registry struct {
	mu      sync.Mutex
	entries []entry
	closed  bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds fn. Registration after Run is ignored.
func (r *Registry) Register(name string, priority int, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.entries = append(r.entries, entry{name: name, fn: fn, priority: priority})
}

func (r *Registry) sorted() []entry {
	out := make([]entry, len(r.entries))
	copy(out, r.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].priority < out[j].priority
	})
	return out
}

// Run calls every cleanup, even after failures, and joins their errors. Only
// the first call does anything.
func (r *Registry) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	entries := r.sorted()
	r.mu.Unlock()

	var errs []error
	for _, e := range entries {
		if err := e.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		}
	}
	return errors.Join(errs...)
}

// Names returns the registered names in run order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.sorted()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}
