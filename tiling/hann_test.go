package tiling

import (
	"math"
	"testing"
)

func TestBuild1DShape(t *testing.T) {
	tests := []struct {
		size, overlap int
	}{
		{384, 64},
		{512, 16},
		{10, 3},
		{7, 3},
	}
	for _, tt := range tests {
		w := Build1D(tt.size, tt.overlap)
		if len(w) != tt.size {
			t.Fatalf("len = %d, want %d", len(w), tt.size)
		}
		for i := range w {
			if w[i] != w[tt.size-1-i] {
				t.Errorf("size %d: w[%d]=%v != w[%d]=%v", tt.size, i, w[i], tt.size-1-i, w[tt.size-1-i])
			}
		}
		for i := 1; i < tt.overlap; i++ {
			if w[i] < w[i-1] {
				t.Errorf("size %d: taper decreases at %d", tt.size, i)
			}
		}
		for i := tt.overlap; i < tt.size-tt.overlap; i++ {
			if w[i] != 1 {
				t.Errorf("size %d: w[%d] = %v, want 1", tt.size, i, w[i])
			}
		}
		if w[0] != 0 {
			t.Errorf("size %d: w[0] = %v, want 0", tt.size, w[0])
		}
	}
}

func TestBuild1DNoOverlap(t *testing.T) {
	for i, v := range Build1D(16, 0) {
		if v != 1 {
			t.Fatalf("w[%d] = %v, want 1", i, v)
		}
	}
}

func TestBuild1DValues(t *testing.T) {
	w := Build1D(20, 4)
	for i := 0; i < 4; i++ {
		want := 0.5 * (1 - math.Cos(math.Pi*float64(i)/4))
		if math.Abs(float64(w[i])-want) > 1e-6 {
			t.Errorf("w[%d] = %v, want %v", i, w[i], want)
		}
	}
}

func TestBuild2DIsOuterProduct(t *testing.T) {
	wx := Build1D(12, 3)
	wy := Build1D(9, 3)
	w := Build2D(12, 9, 3)
	for y := 0; y < 9; y++ {
		for x := 0; x < 12; x++ {
			if got, want := w[y*12+x], wx[x]*wy[y]; got != want {
				t.Fatalf("w(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestSeamStepComplement(t *testing.T) {
	const overlap = 8
	for i := 0; i <= 2*overlap; i++ {
		a := seamStep(i, overlap, true)
		b := seamStep(2*overlap-i, overlap, true)
		if math.Abs(float64(a+b)-1) > 1e-6 {
			t.Errorf("step(%d)+step(%d) = %v, want 1", i, 2*overlap-i, a+b)
		}
	}
}
