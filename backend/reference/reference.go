package reference

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"go_enhance/backend"
	"go_enhance/logging"
	"go_enhance/tensor"
)

// Factory creates reference backends. Accelerator reports whether the
// accelerated delegate is offered; its output is rounded to half precision.
type Factory struct {
	Accelerator bool
	Logger      *logging.Logger
}

// New implements backend.Factory.
func (f *Factory) New(model backend.Model, delegate backend.Delegate) (backend.Backend, error) {
	if delegate == backend.Accelerated && !f.Accelerator {
		return nil, fmt.Errorf("%w: %s", backend.ErrUnavailable, delegate)
	}
	return &Backend{
		model:    model,
		delegate: delegate,
		logger:   f.Logger.Named("reference").With(zap.String("model", string(model)), zap.Stringer("delegate", delegate)),
	}, nil
}

// AcceleratorAvailable implements backend.Factory.
func (f *Factory) AcceleratorAvailable() bool { return f.Accelerator }

// Backend is one loaded reference network.
type Backend struct {
	model    backend.Model
	delegate backend.Delegate
	logger   *logging.Logger

	mu      sync.Mutex
	params  *Params
	weights []float32
	closed  bool
}

func (b *Backend) LoadParams(path string) backend.Status {
	p, err := ReadParams(path)
	if err != nil {
		b.logger.Warn("param load failed", zap.String("path", path), zap.Error(err))
		return backend.StatusLoadFailed
	}
	if p.Model != string(b.model) || p.Precision != b.delegate.Precision() {
		b.logger.Warn("param file does not match backend",
			zap.String("path", path),
			zap.String("file_model", p.Model),
			zap.String("file_precision", p.Precision),
		)
		return backend.StatusLoadFailed
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.params = &p
	b.weights = nil
	return backend.StatusOK
}

func (b *Backend) LoadWeights(path string) backend.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.params == nil {
		return backend.StatusLoadFailed
	}
	w, err := ReadWeights(path, b.params.Weights)
	if err != nil {
		b.logger.Warn("weight load failed", zap.String("path", path), zap.Error(err))
		return backend.StatusLoadFailed
	}
	b.weights = w
	return backend.StatusOK
}

func (b *Backend) Forward(in *tensor.Planar) (*tensor.Planar, backend.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.params == nil || (b.params.Weights > 0 && b.weights == nil) {
		return nil, backend.StatusBadInput
	}
	if in == nil || in.Channels != b.params.Channels || in.Pixels() == 0 {
		return nil, backend.StatusBadInput
	}

	var out *tensor.Planar
	switch b.params.Op {
	case OpCurve:
		out = curve(in, b.weights, b.params.Iterations)
	case OpDenoise:
		out = denoise(in, b.weights[:9], b.weights[9])
	default:
		out = in.Clone()
	}
	if b.delegate == backend.Accelerated {
		roundHalf(out)
	}
	return out, backend.StatusOK
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.params = nil
	b.weights = nil
	return nil
}
