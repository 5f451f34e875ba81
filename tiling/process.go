package tiling

import (
	"errors"
	"fmt"

	"go_enhance/tensor"
)

// InferenceFunc runs one inference call. A non-zero code or a non-nil error
// marks the call as failed. The output must have the same shape as in.
type InferenceFunc interface {
	InferTile(in *tensor.Planar) (out *tensor.Planar, code int, err error)
}

// InferenceFuncOf adapts a plain function to InferenceFunc.
type InferenceFuncOf func(in *tensor.Planar) (*tensor.Planar, int, error)

func (f InferenceFuncOf) InferTile(in *tensor.Planar) (*tensor.Planar, int, error) {
	return f(in)
}

// ProgressFunc receives (completed, total) after every finished tile.
type ProgressFunc func(completed, total int)

// Stats summarises one ProcessTiled call.
type Stats struct {
	TotalTiles     int
	ProcessedTiles int
	SeamMaxDelta   float32
	SeamMeanDelta  float32
	SeamSamples    int64
	ErrorCode      int
}

// Processor runs an inference function over a tile grid.
type Processor struct {
	Config Config

	// Cancelled is polled between tiles. Nil means never cancelled.
	Cancelled func() bool

	// Progress is optional.
	Progress ProgressFunc
}

func (p *Processor) cancelled() bool {
	return p.Cancelled != nil && p.Cancelled()
}

func (p *Processor) report(done, total int) {
	if p.Progress != nil {
		p.Progress(done, total)
	}
}

// ProcessTiled runs fn over img and returns the blended result. An image that
// fits in a single tile is passed to fn whole. Any tile failure aborts the
// call and the partial result is discarded.
//
// Parameters:
//   - img: planar input, left unmodified
//   - fn: per-tile inference
//   - stats: filled with tile counts and seam deltas; may be nil
//
// Returns:
//   - *tensor.Planar: blended output with img's shape
//   - error: grid errors, ErrCancelled, or a *TileError for a failed tile
func (p *Processor) ProcessTiled(img *tensor.Planar, fn InferenceFunc, stats *Stats) (*tensor.Planar, error) {
	if stats == nil {
		stats = &Stats{}
	}
	*stats = Stats{}

	grid, err := ComputeGrid(img.Width, img.Height, p.Config)
	if err != nil {
		return nil, err
	}
	total := grid.Len()
	stats.TotalTiles = total

	if p.cancelled() {
		return nil, ErrCancelled
	}

	if total == 1 {
		out, err := infer(fn, img, 0, 1)
		if err != nil {
			stats.ErrorCode = errorCode(err)
			return nil, err
		}
		stats.ProcessedTiles = 1
		p.report(1, 1)
		return out, nil
	}

	canvas := NewCanvas(grid, img.Channels)
	var seams SeamStats
	for i, t := range grid.Tiles {
		if p.cancelled() {
			return nil, ErrCancelled
		}

		in := grid.Extract(img, t)
		out, err := infer(fn, in, i, total)
		if err != nil {
			stats.ErrorCode = errorCode(err)
			return nil, err
		}
		if p.cancelled() {
			return nil, ErrCancelled
		}

		canvas.Blend(grid, t, out, grid.WeightsFor(t), &seams)
		stats.ProcessedTiles = i + 1
		p.report(i+1, total)
	}

	stats.SeamMaxDelta = seams.Max
	stats.SeamMeanDelta = seams.Mean()
	stats.SeamSamples = seams.Samples()
	return canvas.Image, nil
}

func infer(fn InferenceFunc, in *tensor.Planar, index, total int) (*tensor.Planar, error) {
	out, code, err := fn.InferTile(in)
	switch {
	case err != nil:
		return nil, &TileError{Index: index, Total: total, Code: code, Err: err}
	case code != 0:
		return nil, &TileError{Index: index, Total: total, Code: code, Err: errors.New("backend returned non-zero status")}
	case !in.SameShape(out):
		return nil, &TileError{Index: index, Total: total, Err: fmt.Errorf("%w: got %s, want %s", ErrOutputShape, out.ShapeString(), in.ShapeString())}
	}
	return out, nil
}

func errorCode(err error) int {
	var te *TileError
	if errors.As(err, &te) {
		return te.Code
	}
	return 0
}
