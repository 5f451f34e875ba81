package shutdown

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestSignalCounterForcesAtThreshold(t *testing.T) {
	var forced int
	c := NewSignalCounter(2, func() { forced++ })

	if c.Increment() != 1 || forced != 0 {
		t.Fatalf("first signal forced exit")
	}
	if c.Increment() != 2 || forced != 1 {
		t.Fatalf("second signal did not force, forced=%d", forced)
	}
	c.Increment()
	if forced != 2 {
		t.Errorf("signals past the threshold must force again, forced=%d", forced)
	}
	c.Reset()
	if c.Count() != 0 {
		t.Errorf("Count after Reset = %d", c.Count())
	}
}

func TestSignalCounterNilCallback(t *testing.T) {
	c := NewSignalCounter(1, nil)
	if c.Increment() != 1 {
		t.Error("Increment with nil callback")
	}
}

func TestSignalCounterConcurrent(t *testing.T) {
	c := NewSignalCounter(1000, nil)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c.Increment()
			}
		}()
	}
	wg.Wait()
	if c.Count() != 200 {
		t.Errorf("Count = %d, want 200", c.Count())
	}
}

func TestRegistryRunsInPriorityOrder(t *testing.T) {
	r := NewRegistry()
	var order []string
	add := func(name string, prio int, err error) {
		r.Register(name, prio, func(context.Context) error {
			order = append(order, name)
			return err
		})
	}
	add("logger", PriorityLogger, nil)
	add("journal", PriorityJournal, errors.New("disk gone"))
	add("engine", PriorityEngine, nil)
	add("engine-2", PriorityEngine, nil)

	if names := strings.Join(r.Names(), ","); names != "engine,engine-2,journal,logger" {
		t.Errorf("Names = %s", names)
	}

	err := r.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "journal: disk gone") {
		t.Errorf("Run error = %v", err)
	}
	if got := strings.Join(order, ","); got != "engine,engine-2,journal,logger" {
		t.Errorf("order = %s", got)
	}

	r.Register("late", 0, func(context.Context) error { t.Error("late cleanup ran"); return nil })
	if err := r.Run(context.Background()); err != nil {
		t.Errorf("second Run = %v", err)
	}
}
