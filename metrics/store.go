package metrics

import (
	"sync"
	"time"

	"go_enhance/enhance"
)

// DefaultHistoryCapacity is the number of samples kept when none is given.
const DefaultHistoryCapacity = 100

type kindStats struct {
	count         int64
	successCount  int64
	totalDuration time.Duration
}

// Store keeps recent samples in a ring buffer and running totals for all
// runs ever recorded. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	history []Sample
	head    int
	size    int

	total     int64
	succeeded int64
	failed    int64
	cancelled int64
	fallbacks int64
	retries   int64
	maxSeam   float32

	causes    map[string]int64
	delegates map[string]int64
	kinds     map[string]*kindStats

	startTime time.Time
}

// NewStore returns a store retaining up to capacity samples.
func NewStore(capacity int, startTime time.Time) *Store {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	return &Store{
		history:   make([]Sample, capacity),
		causes:    make(map[string]int64),
		delegates: make(map[string]int64),
		kinds:     make(map[string]*kindStats),
		startTime: startTime,
	}
}

// SampleFrom extracts a history sample from run telemetry.
func SampleFrom(t enhance.RunTelemetry) Sample {
	s := Sample{
		RunID:              t.RunID,
		Kind:               t.Kind,
		Profile:            t.Profile.String(),
		Delegate:           t.Delegate.String(),
		Success:            t.Success,
		Cancelled:          t.Cancelled,
		FallbackUsed:       t.FallbackUsed,
		Duration:           t.Total,
		Tiles:              t.Tiles.Total,
		SeamMaxDelta:       t.Tiles.SeamMaxDelta,
		AcceleratorRetries: t.AcceleratorRetries,
	}
	if t.FallbackUsed {
		s.FallbackCause = t.FallbackCause.String()
	}
	return s
}

// Observe records the telemetry of a finished run.
func (s *Store) Observe(t enhance.RunTelemetry) {
	s.Record(SampleFrom(t))
}

// Record adds a sample.
func (s *Store) Record(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[s.head] = sample
	s.head = (s.head + 1) % len(s.history)
	if s.size < len(s.history) {
		s.size++
	}

	s.total++
	switch {
	case sample.Success:
		s.succeeded++
	case sample.Cancelled:
		s.cancelled++
	default:
		s.failed++
	}
	if sample.FallbackUsed {
		s.fallbacks++
		s.causes[sample.FallbackCause]++
	}
	s.delegates[sample.Delegate]++
	s.retries += int64(sample.AcceleratorRetries)
	s.maxSeam = max(s.maxSeam, sample.SeamMaxDelta)

	ks, ok := s.kinds[sample.Kind]
	if !ok {
		ks = &kindStats{}
		s.kinds[sample.Kind] = ks
	}
	ks.count++
	if sample.Success {
		ks.successCount++
	}
	ks.totalDuration += sample.Duration
}

// Recent returns up to limit samples, oldest first.
func (s *Store) Recent(limit int) []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || s.size == 0 {
		return []Sample{}
	}
	limit = min(limit, s.size)
	n := len(s.history)
	out := make([]Sample, limit)
	for i := range out {
		out[i] = s.history[(s.head-limit+i+n)%n]
	}
	return out
}

// Summary returns the aggregated counters.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{
		Total:              s.total,
		Succeeded:          s.succeeded,
		Failed:             s.failed,
		Cancelled:          s.cancelled,
		Fallbacks:          s.fallbacks,
		FallbackCauses:     make(map[string]int64, len(s.causes)),
		ByDelegate:         make(map[string]int64, len(s.delegates)),
		ByKind:             make(map[string]*KindSummary, len(s.kinds)),
		AcceleratorRetries: s.retries,
		MaxSeamDelta:       s.maxSeam,
		Uptime:             time.Since(s.startTime),
	}
	for k, v := range s.causes {
		sum.FallbackCauses[k] = v
	}
	for k, v := range s.delegates {
		sum.ByDelegate[k] = v
	}
	for kind, ks := range s.kinds {
		ksum := &KindSummary{Count: ks.count}
		if ks.count > 0 {
			ksum.SuccessRate = float64(ks.successCount) / float64(ks.count) * 100
			ksum.AvgDuration = ks.totalDuration / time.Duration(ks.count)
		}
		sum.ByKind[kind] = ksum
	}
	return sum
}
