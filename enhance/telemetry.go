package enhance

import (
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"

	"go_enhance/backend"
)

// FallbackCause records why a run left the accelerated delegate.
type FallbackCause int

const (
	CauseNone FallbackCause = iota
	CauseLoadFailed
	CauseExtractFailed
)

func (c FallbackCause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CauseLoadFailed:
		return "load_failed"
	case CauseExtractFailed:
		return "extract_failed"
	default:
		return fmt.Sprintf("cause(%d)", int(c))
	}
}

// TileTelemetry summarises tiling for a run or a stage.
type TileTelemetry struct {
	Used          bool
	TileSize      int
	Overlap       int
	Total         int
	Completed     int
	SeamMaxDelta  float32
	SeamMeanDelta float32

	seamSamples int64
}

func (t TileTelemetry) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddBool("used", t.Used)
	if !t.Used {
		return nil
	}
	enc.AddInt("tile_size", t.TileSize)
	enc.AddInt("overlap", t.Overlap)
	enc.AddInt("total", t.Total)
	enc.AddInt("completed", t.Completed)
	enc.AddFloat32("seam_max_delta", t.SeamMaxDelta)
	enc.AddFloat32("seam_mean_delta", t.SeamMeanDelta)
	return nil
}

// StageTelemetry describes one stage execution.
type StageTelemetry struct {
	Stage    string
	Delegate backend.Delegate
	Duration time.Duration
	Scaled   bool
	Tiles    TileTelemetry
}

func (s StageTelemetry) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("stage", s.Stage)
	enc.AddString("delegate", s.Delegate.String())
	enc.AddDuration("duration", s.Duration)
	if s.Scaled {
		enc.AddBool("scaled", true)
	}
	return enc.AddObject("tiles", s.Tiles)
}

// BackendError is the status code of the backend call that failed a run.
type BackendError struct {
	Code     backend.Status
	Duration time.Duration
}

// RunTelemetry is produced fresh by every run call.
type RunTelemetry struct {
	RunID   string
	Kind    string
	Profile Profile

	Success   bool
	Cancelled bool

	// Delegate is the delegate that executed the final attempt.
	Delegate       backend.Delegate
	FallbackUsed   bool
	FallbackCause  FallbackCause
	ForceCPUReason string

	Total            time.Duration
	AcceleratedPhase time.Duration
	CPUPhase         time.Duration

	Tiles              TileTelemetry
	AcceleratorRetries int
	BackendError       *BackendError

	Stages []StageTelemetry
}

// UsedAccelerator reports whether the final attempt ran on the accelerated delegate.
func (t *RunTelemetry) UsedAccelerator() bool {
	return t.Delegate == backend.Accelerated
}

// aggregateTiles folds the tiled stages of the final attempt into t.Tiles.
// Seam means are weighted by the number of seam samples per stage.
func (t *RunTelemetry) aggregateTiles() {
	var agg TileTelemetry
	var weighted float64
	for _, s := range t.Stages {
		if s.Delegate != t.Delegate || !s.Tiles.Used {
			continue
		}
		agg.Used = true
		agg.TileSize = s.Tiles.TileSize
		agg.Overlap = s.Tiles.Overlap
		agg.Total += s.Tiles.Total
		agg.Completed += s.Tiles.Completed
		agg.SeamMaxDelta = max(agg.SeamMaxDelta, s.Tiles.SeamMaxDelta)
		agg.seamSamples += s.Tiles.seamSamples
		weighted += float64(s.Tiles.SeamMeanDelta) * float64(s.Tiles.seamSamples)
	}
	if agg.seamSamples > 0 {
		agg.SeamMeanDelta = float32(weighted / float64(agg.seamSamples))
	}
	t.Tiles = agg
}

func (t RunTelemetry) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("run_id", t.RunID)
	enc.AddString("kind", t.Kind)
	enc.AddString("profile", t.Profile.String())
	enc.AddBool("success", t.Success)
	enc.AddBool("cancelled", t.Cancelled)
	enc.AddString("delegate", t.Delegate.String())
	enc.AddBool("fallback_used", t.FallbackUsed)
	if t.FallbackUsed {
		enc.AddString("fallback_cause", t.FallbackCause.String())
	}
	if t.ForceCPUReason != "" {
		enc.AddString("force_cpu_reason", t.ForceCPUReason)
	}
	enc.AddDuration("total", t.Total)
	enc.AddDuration("accelerated_phase", t.AcceleratedPhase)
	enc.AddDuration("cpu_phase", t.CPUPhase)
	enc.AddInt("accelerator_retries", t.AcceleratorRetries)
	if t.BackendError != nil {
		enc.AddInt("backend_error_code", int(t.BackendError.Code))
		enc.AddDuration("backend_error_after", t.BackendError.Duration)
	}
	if err := enc.AddObject("tiles", t.Tiles); err != nil {
		return err
	}
	return enc.AddArray("stages", zapcore.ArrayMarshalerFunc(func(arr zapcore.ArrayEncoder) error {
		for _, s := range t.Stages {
			if err := arr.AppendObject(s); err != nil {
				return err
			}
		}
		return nil
	}))
}
