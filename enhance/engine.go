// Package enhance runs the two-stage restoration and low-light enhancement
// pipeline over planar images, choosing between the accelerated and CPU
// delegates and falling back to CPU when the accelerator fails.
package enhance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go_enhance/backend"
	"go_enhance/integrity"
	"go_enhance/logging"
	"go_enhance/models"
	"go_enhance/tensor"
)

// Run kinds reported in telemetry.
const (
	KindPreview = "preview"
	KindFull    = "full"
)

// Options are supplied to Initialize.
type Options struct {
	ModelsDir string
	ZeroDCE   models.VariantChecksums
	Restormer models.VariantChecksums
	Profile   Profile

	// ForceCPU skips the accelerated delegate. ForceCPUReason is carried
	// into telemetry.
	ForceCPU       bool
	ForceCPUReason string
}

// Config wires an Engine to its collaborators.
type Config struct {
	Factory backend.Factory
	Stages  StageConfig

	// Mailbox keeps the last integrity failure. Nil selects
	// integrity.DefaultMailbox.
	Mailbox *integrity.Mailbox

	// Reporters also receive every integrity failure.
	Reporters []integrity.Reporter

	Progress ProgressFunc
	Logger   *logging.Logger
}

// Engine owns the loaded networks. Initialize, the run methods and Release
// are serialised; Cancel may be called concurrently with a run.
type Engine struct {
	mu sync.Mutex

	factory  backend.Factory
	stages   StageConfig
	mailbox  *integrity.Mailbox
	gate     *integrity.Gate
	progress ProgressFunc
	logger   *logging.Logger

	cancel CancelToken

	initialized  bool
	opts         Options
	loaded       *loadedSet
	forceReason  string
	pendingCause FallbackCause
}

// NewEngine validates cfg and returns an uninitialised engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Factory == nil {
		return nil, errors.New("enhance: backend factory is required")
	}
	if cfg.Stages == (StageConfig{}) {
		cfg.Stages = DefaultStageConfig()
	}
	if err := cfg.Stages.Validate(); err != nil {
		return nil, fmt.Errorf("enhance: %w", err)
	}
	if cfg.Mailbox == nil {
		cfg.Mailbox = integrity.DefaultMailbox
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}

	reporters := append([]integrity.Reporter{cfg.Mailbox}, cfg.Reporters...)
	return &Engine{
		factory:  cfg.Factory,
		stages:   cfg.Stages,
		mailbox:  cfg.Mailbox,
		gate:     integrity.NewGate(integrity.Tee(reporters...), cfg.Logger),
		progress: cfg.Progress,
		logger:   cfg.Logger.Named("engine"),
	}, nil
}

// Initialize verifies and loads both networks. The accelerated delegate is
// used when available and not forced off; if loading on it fails the engine
// loads the CPU variant instead and reports a load fallback on the next run.
// Integrity failures are never retried. Calling Initialize on an initialised
// engine is a no-op.
//
// Parameters:
//   - ctx: stops artifact verification between files
//   - opts: artifact directory, checksums per variant, profile and CPU forcing
//
// Returns:
//   - error: a *LoadError wrapping ErrIntegrity or ErrLoad, or ctx.Err()
func (e *Engine) Initialize(ctx context.Context, opts Options) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		e.logger.Warn("engine already initialized")
		return nil
	}

	e.opts = opts
	delegate := backend.CPU
	reason := ""
	switch {
	case opts.ForceCPU:
		reason = opts.ForceCPUReason
		if reason == "" {
			reason = "forced"
		}
	case !e.factory.AcceleratorAvailable():
		reason = "accelerator_unavailable"
	default:
		delegate = backend.Accelerated
	}

	e.logger.Info("initializing",
		zap.Stringer("delegate", delegate),
		zap.Stringer("profile", opts.Profile),
		zap.String("force_cpu_reason", reason),
	)

	set, err := e.load(ctx, delegate)
	cause := CauseNone
	if err != nil {
		var le *LoadError
		if delegate != backend.Accelerated || !errors.As(err, &le) || le.IsIntegrity() {
			e.logger.Error("initialization failed", zap.Error(err))
			return err
		}
		e.logger.Warn("accelerated load failed, loading CPU variant", zap.Error(err))
		set, err = e.load(ctx, backend.CPU)
		if err != nil {
			e.logger.Error("CPU load failed", zap.Error(err))
			return err
		}
		cause = CauseLoadFailed
	}

	e.loaded = set
	e.forceReason = reason
	e.pendingCause = cause
	e.initialized = true
	return nil
}

// Release unloads the networks. It is safe to call repeatedly.
func (e *Engine) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.loaded.close()
	e.loaded = nil
	e.initialized = false
	e.pendingCause = CauseNone
	e.forceReason = ""
}

// Cancel asks the current run to stop at its next checkpoint. A run started
// after Cancel is not affected.
func (e *Engine) Cancel() {
	e.cancel.Cancel()
}

// IsAcceleratedDelegateAvailable reports whether the backend offers an
// accelerated delegate on this machine.
func (e *Engine) IsAcceleratedDelegateAvailable() bool {
	return e.factory.AcceleratorAvailable()
}

// ConsumeLastIntegrityFailure returns the most recent unread digest mismatch.
func (e *Engine) ConsumeLastIntegrityFailure() (integrity.Failure, bool) {
	return e.mailbox.Consume()
}

// Delegate returns the delegate currently loaded, and false before
// initialisation.
func (e *Engine) Delegate() (backend.Delegate, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return backend.CPU, false
	}
	return e.loaded.delegate, true
}

// RunPreview runs the profile's pipeline and, on success only, overwrites img
// with the result.
func (e *Engine) RunPreview(img *tensor.Planar, strength float32) (RunTelemetry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run(KindPreview, img, img, strength, e.opts.Profile)
}

// RunFull always runs restoration followed by enhancement and writes the
// result into dst, which must match src in shape. dst is untouched on failure.
//
// Parameters:
//   - src: input image, not modified
//   - strength: enhancement blend factor, clamped to [0,1]
//   - dst: output buffer
//
// Returns:
//   - RunTelemetry: always populated, including on failure
//   - error: ErrNotInitialized, ErrInvalidInput, ErrCancelled, a *StageError
//     or a *LoadError from the CPU reload
func (e *Engine) RunFull(src *tensor.Planar, strength float32, dst *tensor.Planar) (RunTelemetry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if src != nil && !src.SameShape(dst) {
		tel := RunTelemetry{Kind: KindFull, Profile: Quality}
		return tel, fmt.Errorf("%w: output %s does not match input %s", ErrInvalidInput, dst.ShapeString(), src.ShapeString())
	}
	return e.run(KindFull, src, dst, strength, Quality)
}

func (e *Engine) pipeline(profile Profile) []stage {
	enh := &enhancementStage{cfg: e.stages.Enhancement, model: e.loaded.enhancer}
	if profile == Quality {
		return []stage{&restorationStage{cfg: e.stages.Restoration, model: e.loaded.restorer}, enh}
	}
	return []stage{enh}
}

func (e *Engine) run(kind string, src, dst *tensor.Planar, strength float32, profile Profile) (tel RunTelemetry, err error) {
	tel = RunTelemetry{
		RunID:   uuid.NewString()[:8],
		Kind:    kind,
		Profile: profile,
	}
	if !e.initialized {
		return tel, ErrNotInitialized
	}
	if src == nil || src.Pixels() == 0 || src.Channels == 0 {
		return tel, fmt.Errorf("%w: empty image", ErrInvalidInput)
	}

	e.cancel.Reset()
	logger := e.logger.With(zap.String("run_id", tel.RunID))
	start := time.Now()
	defer func() {
		tel.Total = time.Since(start)
		tel.aggregateTiles()
		tel.Cancelled = errors.Is(err, ErrCancelled)
		tel.Success = err == nil
		if err != nil && !tel.Cancelled {
			logger.Error("run failed", zap.Object("telemetry", tel), zap.Error(err))
			return
		}
		logger.Info("run finished", zap.Object("telemetry", tel))
	}()

	tel.Delegate = e.loaded.delegate
	tel.ForceCPUReason = e.forceReason
	if e.pendingCause != CauseNone {
		tel.FallbackUsed = true
		tel.FallbackCause = e.pendingCause
		e.pendingCause = CauseNone
	}

	rc := &runContext{
		cancel:   &e.cancel,
		progress: e.progress,
		tel:      &tel,
		logger:   logger,
		attempts: e.stages.AcceleratorAttempts,
	}

	out, err := e.attempt(rc, src, strength, profile)

	var se *StageError
	if err != nil && errors.As(err, &se) && se.DelegateFailed && e.loaded.delegate == backend.Accelerated {
		logger.Warn("accelerated delegate failed, falling back to CPU",
			zap.String("stage", se.Stage),
			zap.Int("status", int(se.Code)),
		)
		tel.FallbackUsed = true
		tel.FallbackCause = se.Cause

		if rerr := e.switchToCPU(rc); rerr != nil {
			return tel, rerr
		}
		tel.Delegate = backend.CPU
		out, err = e.attempt(rc, src, strength, profile)
	}

	if err == nil && e.cancel.Cancelled() {
		err = ErrCancelled
	}
	if err != nil {
		return tel, err
	}
	if err = dst.CopyFrom(out); err != nil {
		return tel, err
	}
	return tel, nil
}

// attempt runs the pipeline once on the currently loaded delegate.
func (e *Engine) attempt(rc *runContext, src *tensor.Planar, strength float32, profile Profile) (*tensor.Planar, error) {
	delegate := e.loaded.delegate
	start := time.Now()
	defer func() {
		if delegate == backend.Accelerated {
			rc.tel.AcceleratedPhase += time.Since(start)
		} else {
			rc.tel.CPUPhase += time.Since(start)
		}
	}()

	cur := src
	for _, s := range e.pipeline(profile) {
		if rc.cancelled() {
			return nil, ErrCancelled
		}
		out, st, err := s.Run(cur, strength, rc)
		rc.tel.Stages = append(rc.tel.Stages, st)
		if err != nil {
			var se *StageError
			if errors.As(err, &se) && se.Code != backend.StatusOK {
				rc.tel.BackendError = &BackendError{Code: se.Code, Duration: time.Since(start)}
			}
			return nil, err
		}
		cur = out
	}
	return cur, nil
}

// switchToCPU reloads every network on the CPU delegate through the gate.
// The accelerated set stays in place if the reload fails or the run is
// cancelled before it completes.
func (e *Engine) switchToCPU(rc *runContext) error {
	if rc.cancelled() {
		return ErrCancelled
	}
	ctx, release := rc.cancel.Context(context.Background())
	defer release()

	set, err := e.load(ctx, backend.CPU)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return ErrCancelled
		}
		e.logger.Error("CPU reload failed", zap.Error(err))
		return err
	}
	e.loaded.close()
	e.loaded = set
	return nil
}
