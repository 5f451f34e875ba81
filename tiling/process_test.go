package tiling

import (
	"errors"
	"math"
	"testing"

	"go_enhance/tensor"
)

var identity = InferenceFuncOf(func(in *tensor.Planar) (*tensor.Planar, int, error) {
	return in.Clone(), 0, nil
})

func maxAbsDiff(a, b *tensor.Planar) float64 {
	var m float64
	for i := range a.Data {
		if d := math.Abs(float64(a.Data[i] - b.Data[i])); d > m {
			m = d
		}
	}
	return m
}

func TestProcessTiledIdentityReconstructs(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		cfg  Config
	}{
		{"reflect tapered", 300, 220, Config{TileSize: 96, Overlap: 16, Padding: PaddingReflect, WindowEnabled: true}},
		{"zero tapered", 300, 220, Config{TileSize: 96, Overlap: 16, Padding: PaddingZero, WindowEnabled: true}},
		{"hard seams", 257, 130, Config{TileSize: 64, Overlap: 8, Padding: PaddingReflect}},
		{"wide overlap", 200, 150, Config{TileSize: 64, Overlap: 24, Padding: PaddingReflect, WindowEnabled: true}},
		{"no overlap", 100, 70, Config{TileSize: 32, WindowEnabled: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := gradient(tt.w, tt.h, 3)
			p := &Processor{Config: tt.cfg}
			var stats Stats
			out, err := p.ProcessTiled(img, identity, &stats)
			if err != nil {
				t.Fatalf("ProcessTiled: %v", err)
			}
			if !out.SameShape(img) {
				t.Fatalf("shape = %s, want %s", out.ShapeString(), img.ShapeString())
			}
			if d := maxAbsDiff(out, img); d > 1e-5 {
				t.Errorf("max deviation %v", d)
			}
			if stats.TotalTiles < 2 || stats.ProcessedTiles != stats.TotalTiles {
				t.Errorf("stats = %+v", stats)
			}
			if stats.SeamMaxDelta > 1e-5 {
				t.Errorf("identity seam delta = %v", stats.SeamMaxDelta)
			}
		})
	}
}

func TestProcessTiledSeamStatsDetectDisagreement(t *testing.T) {
	img := tensor.New(200, 100, 1)
	calls := 0
	fn := InferenceFuncOf(func(in *tensor.Planar) (*tensor.Planar, int, error) {
		out := tensor.New(in.Width, in.Height, in.Channels)
		v := float32(calls % 2)
		for i := range out.Data {
			out.Data[i] = v
		}
		calls++
		return out, 0, nil
	})

	p := &Processor{Config: Config{TileSize: 64, Overlap: 8, Padding: PaddingReflect, WindowEnabled: true}}
	var stats Stats
	if _, err := p.ProcessTiled(img, fn, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.SeamMaxDelta < 0.99 {
		t.Errorf("SeamMaxDelta = %v, want ~1", stats.SeamMaxDelta)
	}
	if stats.SeamMeanDelta <= 0 || stats.SeamMeanDelta > stats.SeamMaxDelta {
		t.Errorf("SeamMeanDelta = %v", stats.SeamMeanDelta)
	}
}

func TestProcessTiledSingleTileCallsDirectly(t *testing.T) {
	img := gradient(40, 30, 3)
	var got *tensor.Planar
	fn := InferenceFuncOf(func(in *tensor.Planar) (*tensor.Planar, int, error) {
		got = in
		return in.Clone(), 0, nil
	})

	var progress [][2]int
	p := &Processor{
		Config:   Config{TileSize: 512, Overlap: 16},
		Progress: func(done, total int) { progress = append(progress, [2]int{done, total}) },
	}
	var stats Stats
	if _, err := p.ProcessTiled(img, fn, &stats); err != nil {
		t.Fatal(err)
	}
	if got != img {
		t.Error("single tile should receive the image unchanged")
	}
	if stats.TotalTiles != 1 || stats.ProcessedTiles != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(progress) != 1 || progress[0] != [2]int{1, 1} {
		t.Errorf("progress = %v", progress)
	}
}

func TestProcessTiledProgress(t *testing.T) {
	img := gradient(100, 100, 1)
	var calls []int
	p := &Processor{
		Config:   Config{TileSize: 40, Overlap: 5},
		Progress: func(done, total int) { calls = append(calls, done) },
	}
	var stats Stats
	if _, err := p.ProcessTiled(img, identity, &stats); err != nil {
		t.Fatal(err)
	}
	if len(calls) != stats.TotalTiles {
		t.Fatalf("progress called %d times for %d tiles", len(calls), stats.TotalTiles)
	}
	for i, done := range calls {
		if done != i+1 {
			t.Errorf("progress[%d] = %d", i, done)
		}
	}
}

func TestProcessTiledFailureAborts(t *testing.T) {
	img := gradient(100, 100, 1)
	calls := 0
	fn := InferenceFuncOf(func(in *tensor.Planar) (*tensor.Planar, int, error) {
		calls++
		if calls == 3 {
			return nil, -7, nil
		}
		return in.Clone(), 0, nil
	})
	p := &Processor{Config: Config{TileSize: 40, Overlap: 5}}
	var stats Stats
	out, err := p.ProcessTiled(img, fn, &stats)
	if out != nil {
		t.Error("partial canvas must not be returned")
	}
	var te *TileError
	if !errors.As(err, &te) {
		t.Fatalf("expected TileError, got %v", err)
	}
	if te.Index != 2 || te.Code != -7 || stats.ErrorCode != -7 {
		t.Errorf("TileError = %+v, stats = %+v", te, stats)
	}
	if stats.ProcessedTiles != 2 {
		t.Errorf("ProcessedTiles = %d, want 2", stats.ProcessedTiles)
	}
}

func TestProcessTiledShapeMismatch(t *testing.T) {
	img := gradient(100, 100, 1)
	fn := InferenceFuncOf(func(in *tensor.Planar) (*tensor.Planar, int, error) {
		return tensor.New(1, 1, 1), 0, nil
	})
	p := &Processor{Config: Config{TileSize: 40, Overlap: 5}}
	_, err := p.ProcessTiled(img, fn, nil)
	if !errors.Is(err, ErrOutputShape) {
		t.Fatalf("expected ErrOutputShape, got %v", err)
	}
}

func TestProcessTiledCancellation(t *testing.T) {
	img := gradient(100, 100, 1)

	t.Run("before start", func(t *testing.T) {
		calls := 0
		fn := InferenceFuncOf(func(in *tensor.Planar) (*tensor.Planar, int, error) {
			calls++
			return in.Clone(), 0, nil
		})
		p := &Processor{Config: Config{TileSize: 40, Overlap: 5}, Cancelled: func() bool { return true }}
		if _, err := p.ProcessTiled(img, fn, nil); !errors.Is(err, ErrCancelled) {
			t.Fatalf("expected ErrCancelled, got %v", err)
		}
		if calls != 0 {
			t.Errorf("inference ran %d times", calls)
		}
	})

	t.Run("mid run", func(t *testing.T) {
		cancelled := false
		calls := 0
		fn := InferenceFuncOf(func(in *tensor.Planar) (*tensor.Planar, int, error) {
			calls++
			if calls == 2 {
				cancelled = true
			}
			return in.Clone(), 0, nil
		})
		p := &Processor{Config: Config{TileSize: 40, Overlap: 5}, Cancelled: func() bool { return cancelled }}
		var stats Stats
		if _, err := p.ProcessTiled(img, fn, &stats); !errors.Is(err, ErrCancelled) {
			t.Fatalf("expected ErrCancelled, got %v", err)
		}
		if calls != 2 || stats.ProcessedTiles != 1 {
			t.Errorf("calls = %d, processed = %d", calls, stats.ProcessedTiles)
		}
	})
}
