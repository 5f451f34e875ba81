package enhance

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"go_enhance/backend"
	"go_enhance/logging"
	"go_enhance/tensor"
	"go_enhance/tiling"
)

// Progress is reported after every finished tile or whole-image call.
type Progress struct {
	Stage     string
	Completed int
	Total     int
}

// ProgressFunc observes run progress. It is called on the running goroutine.
type ProgressFunc func(Progress)

// runContext carries per-run state into the stages.
type runContext struct {
	cancel   *CancelToken
	progress ProgressFunc
	tel      *RunTelemetry
	logger   *logging.Logger
	attempts int
}

func (rc *runContext) cancelled() bool {
	return rc.cancel.Cancelled()
}

func (rc *runContext) report(stage string) tiling.ProgressFunc {
	return func(done, total int) {
		if rc.progress != nil {
			rc.progress(Progress{Stage: stage, Completed: done, Total: total})
		}
	}
}

// model is a loaded backend bound to the delegate it was created for.
type model struct {
	name     backend.Model
	delegate backend.Delegate
	backend  backend.Backend
}

// stage is one step of the pipeline.
type stage interface {
	Name() string
	Run(in *tensor.Planar, strength float32, rc *runContext) (*tensor.Planar, StageTelemetry, error)
}

// inference returns the per-call function handed to the tiler. On the
// accelerated delegate a failed call is retried in place up to rc.attempts
// times before the failure is passed on. A lost device is passed on at once.
func (m *model) inference(stageName string, rc *runContext) tiling.InferenceFunc {
	attempts := 1
	if m.delegate == backend.Accelerated {
		attempts = rc.attempts
	}
	return tiling.InferenceFuncOf(func(in *tensor.Planar) (*tensor.Planar, int, error) {
		var status backend.Status
		for attempt := 1; attempt <= attempts; attempt++ {
			if rc.cancelled() {
				return nil, 0, ErrCancelled
			}
			out, st := m.backend.Forward(in)
			if st == backend.StatusOK && in.SameShape(out) {
				return out, 0, nil
			}
			status = st
			if st == backend.StatusOK {
				status = backend.StatusExtractFailed
			}
			if st.DeviceLost() {
				break
			}
			if attempt < attempts {
				rc.tel.AcceleratorRetries++
				rc.logger.Warn("inference failed, retrying",
					zap.String("stage", stageName),
					zap.Int("status", int(status)),
					zap.Int("attempt", attempt),
				)
			}
		}
		return nil, int(status), nil
	})
}

// execute runs fn over in, tiled or whole, and converts failures into
// stage errors.
func (m *model) execute(stageName string, in *tensor.Planar, cfg tiling.Config, tiled bool, rc *runContext, st *StageTelemetry) (*tensor.Planar, error) {
	fn := m.inference(stageName, rc)
	progress := rc.report(stageName)

	var (
		out  *tensor.Planar
		err  error
		code int
	)
	if tiled {
		p := &tiling.Processor{Config: cfg, Cancelled: rc.cancelled, Progress: progress}
		var stats tiling.Stats
		out, err = p.ProcessTiled(in, fn, &stats)
		code = stats.ErrorCode
		st.Tiles = TileTelemetry{
			Used:          true,
			TileSize:      cfg.TileSize,
			Overlap:       cfg.Overlap,
			Total:         stats.TotalTiles,
			Completed:     stats.ProcessedTiles,
			SeamMaxDelta:  stats.SeamMaxDelta,
			SeamMeanDelta: stats.SeamMeanDelta,
			seamSamples:   stats.SeamSamples,
		}
	} else {
		out, code, err = fn.InferTile(in)
		if err == nil && code != 0 {
			err = errors.New("backend returned non-zero status")
		}
		if err == nil {
			progress(1, 1)
		}
	}

	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, ErrCancelled), errors.Is(err, tiling.ErrCancelled):
		return nil, ErrCancelled
	}

	se := &StageError{Stage: stageName, Op: "inference", Code: backend.Status(code), Err: err}
	// Grid and input errors are not the delegate's fault.
	var te *tiling.TileError
	if m.delegate == backend.Accelerated && (code != 0 || errors.As(err, &te)) {
		se.DelegateFailed = true
		se.Cause = CauseExtractFailed
	}
	return nil, se
}

func newStageTelemetry(name string, m *model) StageTelemetry {
	return StageTelemetry{Stage: name, Delegate: m.delegate}
}

func finishStage(st *StageTelemetry, start time.Time) {
	st.Duration = time.Since(start)
}
