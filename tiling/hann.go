// Package tiling splits large planar images into overlapping tiles, runs an
// inference function on each and blends the results back with a raised-cosine
// taper across shared seams.
package tiling

import "math"

// hann evaluates the rising half of a Hann window of length 2*span at i.
func hann(i float64, span int) float32 {
	return float32(0.5 * (1 - math.Cos(math.Pi*i/float64(span))))
}

// Build1D returns a taper of length size: the first overlap samples rise along
// a Hann curve from 0, the last overlap samples mirror it, and everything in
// between is 1. An overlap of zero or less yields all ones.
func Build1D(size, overlap int) []float32 {
	w := make([]float32, size)
	for i := range w {
		switch {
		case overlap <= 0:
			w[i] = 1
		case i < overlap:
			w[i] = hann(float64(i), overlap)
		case i >= size-overlap:
			w[i] = hann(float64(size-1-i), overlap)
		default:
			w[i] = 1
		}
	}
	return w
}

// Build2D returns the row-major outer product of Build1D(width) and Build1D(height).
func Build2D(width, height, overlap int) []float32 {
	wx := Build1D(width, overlap)
	wy := Build1D(height, overlap)
	out := make([]float32, width*height)
	for y := 0; y < height; y++ {
		row := out[y*width : (y+1)*width]
		for x := range row {
			row[x] = wx[x] * wy[y]
		}
	}
	return out
}

// seamStep is the cumulative blend ramp for a tile edge. It is 0 before the
// seam band, 1 after it and follows the Hann curve across the 2*overlap band.
// Without tapering it degenerates to a hard step at the tile boundary.
func seamStep(t, overlap int, tapered bool) float32 {
	if !tapered || overlap == 0 {
		if t >= overlap {
			return 1
		}
		return 0
	}
	band := 2 * overlap
	switch {
	case t <= 0:
		return 0
	case t >= band:
		return 1
	}
	return hann(float64(t), band)
}
