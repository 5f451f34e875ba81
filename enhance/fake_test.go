package enhance

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go_enhance/backend"
	"go_enhance/integrity"
	"go_enhance/models"
	"go_enhance/tensor"
	"go_enhance/tiling"
)

type forwardFunc func(m backend.Model, d backend.Delegate, in *tensor.Planar) (*tensor.Planar, backend.Status)

// fakeFactory records every backend it creates and routes Forward through a
// configurable function.
type fakeFactory struct {
	mu          sync.Mutex
	accelerator bool
	failLoad    map[backend.Delegate]bool
	forward     forwardFunc
	created     []*fakeBackend
	calls       map[backend.Model]int
}

func newFakeFactory(accelerator bool) *fakeFactory {
	return &fakeFactory{
		accelerator: accelerator,
		failLoad:    map[backend.Delegate]bool{},
		calls:       map[backend.Model]int{},
	}
}

func (f *fakeFactory) New(m backend.Model, d backend.Delegate) (backend.Backend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := &fakeBackend{f: f, model: m, delegate: d}
	f.created = append(f.created, b)
	return b, nil
}

func (f *fakeFactory) AcceleratorAvailable() bool { return f.accelerator }

func (f *fakeFactory) callCount(m backend.Model) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[m]
}

type fakeBackend struct {
	f        *fakeFactory
	model    backend.Model
	delegate backend.Delegate
	closed   bool
}

func (b *fakeBackend) LoadParams(path string) backend.Status {
	if b.f.failLoad[b.delegate] {
		return backend.StatusLoadFailed
	}
	return backend.StatusOK
}

func (b *fakeBackend) LoadWeights(path string) backend.Status { return backend.StatusOK }

func (b *fakeBackend) Forward(in *tensor.Planar) (*tensor.Planar, backend.Status) {
	b.f.mu.Lock()
	b.f.calls[b.model]++
	fn := b.f.forward
	b.f.mu.Unlock()
	if fn != nil {
		return fn(b.model, b.delegate, in)
	}
	return defaultForward(b.model, in), backend.StatusOK
}

func (b *fakeBackend) Close() error {
	b.closed = true
	return nil
}

// defaultForward keeps restoration as identity and maps enhancement to
// 0.5 + x/2 so results are easy to predict per pixel.
func defaultForward(m backend.Model, in *tensor.Planar) *tensor.Planar {
	out := in.Clone()
	if m == backend.ZeroDCE {
		for i, v := range out.Data {
			out.Data[i] = 0.5 + v/2
		}
	}
	return out
}

// artifacts writes placeholder files for every model variant and returns
// options carrying their digests.
func artifacts(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	opts := Options{ModelsDir: dir}
	for _, m := range backend.Models {
		var v models.VariantChecksums
		for _, d := range []backend.Delegate{backend.CPU, backend.Accelerated} {
			param, bin := models.Layout{Dir: dir}.Paths(m, d)
			pdata := []byte("param " + filepath.Base(param))
			bdata := []byte("weights " + filepath.Base(bin))
			if err := os.WriteFile(param, pdata, 0o644); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(bin, bdata, 0o644); err != nil {
				t.Fatal(err)
			}
			sums := models.Checksums{Param: integrity.DigestBytes(pdata), Bin: integrity.DigestBytes(bdata)}
			if d == backend.CPU {
				v.CPU = sums
			} else {
				v.Accelerated = sums
			}
		}
		if m == backend.ZeroDCE {
			opts.ZeroDCE = v
		} else {
			opts.Restormer = v
		}
	}
	return opts
}

func smallStages() StageConfig {
	return StageConfig{
		Restoration: RestorationConfig{
			Tile: tiling.Config{TileSize: 64, Overlap: 8, Padding: tiling.PaddingZero, WindowEnabled: true},
		},
		Enhancement: EnhancementConfig{
			Tile:               tiling.Config{TileSize: 48, Overlap: 8, Padding: tiling.PaddingReflect, WindowEnabled: true},
			AreaThreshold:      48 * 48,
			MegapixelThreshold: 1.0,
		},
		AcceleratorAttempts: DefaultAcceleratorAttempts,
	}
}

func testImage(w, h int) *tensor.Planar {
	img := tensor.New(w, h, 3)
	for c := 0; c < 3; c++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.Set(x, y, c, float32((x*3+y*5+c*11)%97)/96)
			}
		}
	}
	return img
}
