// Package metrics aggregates run telemetry in memory: a bounded history of
// recent runs plus counters per run kind and delegate.
package metrics

import "time"

// Sample is the part of a run's telemetry kept in history.
type Sample struct {
	RunID              string        `json:"run_id"`
	Kind               string        `json:"kind"`
	Profile            string        `json:"profile"`
	Delegate           string        `json:"delegate"`
	Success            bool          `json:"success"`
	Cancelled          bool          `json:"cancelled"`
	FallbackUsed       bool          `json:"fallback_used"`
	FallbackCause      string        `json:"fallback_cause,omitempty"`
	Duration           time.Duration `json:"duration"`
	Tiles              int           `json:"tiles"`
	SeamMaxDelta       float32       `json:"seam_max_delta"`
	AcceleratorRetries int           `json:"accelerator_retries"`
}

// KindSummary aggregates the runs of one kind.
type KindSummary struct {
	Count       int64         `json:"count"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// Summary is a point-in-time view of the store.
type Summary struct {
	Total              int64                   `json:"total"`
	Succeeded          int64                   `json:"succeeded"`
	Failed             int64                   `json:"failed"`
	Cancelled          int64                   `json:"cancelled"`
	Fallbacks          int64                   `json:"fallbacks"`
	FallbackCauses     map[string]int64        `json:"fallback_causes"`
	ByDelegate         map[string]int64        `json:"by_delegate"`
	ByKind             map[string]*KindSummary `json:"by_kind"`
	AcceleratorRetries int64                   `json:"accelerator_retries"`
	MaxSeamDelta       float32                 `json:"max_seam_delta"`
	Uptime             time.Duration           `json:"uptime"`
}
