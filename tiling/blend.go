package tiling

import (
	"math"

	"go_enhance/tensor"
)

// SeamStats accumulates the disagreement between a tile and the content
// already blended underneath it, measured on tapered pixels.
type SeamStats struct {
	Max   float32
	sum   float64
	count int64
}

func (s *SeamStats) add(d float32) {
	if d > s.Max {
		s.Max = d
	}
	s.sum += float64(d)
	s.count++
}

// Mean returns the average recorded delta, or 0 when nothing was recorded.
func (s *SeamStats) Mean() float32 {
	if s.count == 0 {
		return 0
	}
	return float32(s.sum / float64(s.count))
}

// Samples returns the number of deltas recorded.
func (s *SeamStats) Samples() int64 { return s.count }

// Weights holds the separable blend weights of one tile in inference-buffer
// coordinates.
type Weights struct {
	X []float32
	Y []float32
}

// At returns the weight at buffer coordinate (tx, ty).
func (w Weights) At(tx, ty int) float32 { return w.X[tx] * w.Y[ty] }

// WeightsFor computes the blend weights for tile t. Sides on the image border
// keep full weight; sides shared with a neighbour ramp across the 2*Overlap
// band so that the neighbours' weights sum to 1 at every covered pixel.
func (g *Grid) WeightsFor(t TileSpec) Weights {
	cfg := g.Config
	return Weights{
		X: axisWeights(cfg, t.X > 0, t.X+t.Width < g.Width),
		Y: axisWeights(cfg, t.Y > 0, t.Y+t.Height < g.Height),
	}
}

// axisWeights is the difference of two seam ramps, one entering at the tile's
// leading edge and one leaving one stride later. Summed over a row of tiles
// the ramps telescope to exactly 1.
func axisWeights(cfg Config, hasPrev, hasNext bool) []float32 {
	step := cfg.Step()
	w := make([]float32, cfg.TileSize)
	for i := range w {
		v := float32(1)
		if hasPrev {
			v = seamStep(i, cfg.Overlap, cfg.WindowEnabled)
		}
		if hasNext {
			v -= seamStep(i-step, cfg.Overlap, cfg.WindowEnabled)
		}
		w[i] = v
	}
	return w
}

// Canvas accumulates weighted tile outputs for one image.
type Canvas struct {
	Image    *tensor.Planar
	coverage []float32
}

// NewCanvas allocates an empty canvas matching the grid's image.
func NewCanvas(g *Grid, channels int) *Canvas {
	return &Canvas{
		Image:    tensor.New(g.Width, g.Height, channels),
		coverage: make([]float32, g.Width*g.Height),
	}
}

// Blend adds out, the inference result for tile t, into the canvas. Only
// pixels inside both the image and the tile's padded region are written.
// Where the weight is below 1 and earlier tiles already contributed, the
// absolute difference to their normalised value is recorded in stats.
func (cv *Canvas) Blend(g *Grid, t TileSpec, out *tensor.Planar, w Weights, stats *SeamStats) {
	ox, oy := g.origin(t)
	size := g.Config.TileSize
	img := cv.Image

	x0, x1 := max(t.PaddedX, 0), min(t.PaddedX+t.PaddedWidth, img.Width)
	y0, y1 := max(t.PaddedY, 0), min(t.PaddedY+t.PaddedHeight, img.Height)

	for y := y0; y < y1; y++ {
		ty := y - oy
		for x := x0; x < x1; x++ {
			tx := x - ox
			weight := w.At(tx, ty)
			if weight == 0 {
				continue
			}
			pix := y*img.Width + x
			prior := cv.coverage[pix]
			for c := 0; c < img.Channels; c++ {
				v := out.Data[c*size*size+ty*size+tx]
				dst := &img.Data[c*img.Width*img.Height+pix]
				if stats != nil && weight < 1 && prior > 0 {
					stats.add(float32(math.Abs(float64(v - *dst/prior))))
				}
				*dst += v * weight
			}
			cv.coverage[pix] = prior + weight
		}
	}
}
