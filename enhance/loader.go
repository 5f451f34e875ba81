package enhance

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"go_enhance/backend"
	"go_enhance/models"
)

// loadedSet holds both networks on one delegate.
type loadedSet struct {
	delegate backend.Delegate
	restorer *model
	enhancer *model
}

func (s *loadedSet) close() {
	if s == nil {
		return
	}
	for _, m := range []*model{s.restorer, s.enhancer} {
		if m != nil && m.backend != nil {
			_ = m.backend.Close()
		}
	}
}

func (e *Engine) checksums(name backend.Model) models.VariantChecksums {
	if name == backend.ZeroDCE {
		return e.opts.ZeroDCE
	}
	return e.opts.Restormer
}

// load verifies every artifact of the delegate's variant through the gate,
// then creates and loads both backends. Nothing is loaded unless all four
// files verify.
func (e *Engine) load(ctx context.Context, d backend.Delegate) (*loadedSet, error) {
	layout := models.Layout{Dir: e.opts.ModelsDir}

	for _, name := range backend.Models {
		sums := e.checksums(name).For(d)
		param, bin := layout.Paths(name, d)
		for _, f := range []struct{ path, digest string }{{param, sums.Param}, {bin, sums.Bin}} {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !e.gate.Verify(f.path, f.digest) {
				return nil, &LoadError{Model: name, Delegate: d, File: f.path, Err: ErrIntegrity}
			}
		}
	}

	set := &loadedSet{delegate: d}
	for _, name := range backend.Models {
		if err := ctx.Err(); err != nil {
			set.close()
			return nil, err
		}
		m, err := e.loadModel(name, d, layout)
		if err != nil {
			set.close()
			return nil, err
		}
		if name == backend.ZeroDCE {
			set.enhancer = m
		} else {
			set.restorer = m
		}
	}

	e.logger.Info("models loaded", zap.Stringer("delegate", d), zap.String("dir", e.opts.ModelsDir))
	return set, nil
}

func (e *Engine) loadModel(name backend.Model, d backend.Delegate, layout models.Layout) (*model, error) {
	param, bin := layout.Paths(name, d)

	b, err := e.factory.New(name, d)
	if err != nil {
		return nil, &LoadError{Model: name, Delegate: d, File: param, Err: fmt.Errorf("%w: %v", ErrLoad, err)}
	}
	if st := b.LoadParams(param); st != backend.StatusOK {
		_ = b.Close()
		return nil, &LoadError{Model: name, Delegate: d, File: param, Code: st, Err: ErrLoad}
	}
	if st := b.LoadWeights(bin); st != backend.StatusOK {
		_ = b.Close()
		return nil, &LoadError{Model: name, Delegate: d, File: bin, Code: st, Err: ErrLoad}
	}
	return &model{name: name, delegate: d, backend: b}, nil
}
