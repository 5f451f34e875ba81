package tensor

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// planeView exposes one channel of a Planar as a 16-bit grayscale draw.Image
// so the x/image/draw kernels can resample it without an intermediate copy.
type planeView struct {
	p *Planar
	c int
}

func (v planeView) ColorModel() color.Model { return color.Gray16Model }

func (v planeView) Bounds() image.Rectangle { return image.Rect(0, 0, v.p.Width, v.p.Height) }

func (v planeView) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= v.p.Width || y >= v.p.Height {
		return color.Gray16{}
	}
	return color.Gray16{Y: toU16(v.p.At(x, y, v.c))}
}

func (v planeView) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= v.p.Width || y >= v.p.Height {
		return
	}
	g := color.Gray16Model.Convert(c).(color.Gray16)
	v.p.Set(x, y, v.c, float32(g.Y)/0xffff)
}

func toU16(v float32) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xffff
	}
	return uint16(v*0xffff + 0.5)
}

// Resize resamples src to width x height with the given interpolator.
// A nil interpolator selects draw.CatmullRom.
func Resize(src *Planar, width, height int, interp draw.Interpolator) *Planar {
	if interp == nil {
		interp = draw.CatmullRom
	}
	dst := New(width, height, src.Channels)
	if width == src.Width && height == src.Height {
		copy(dst.Data, src.Data)
		return dst
	}
	for c := 0; c < src.Channels; c++ {
		s := planeView{p: src, c: c}
		d := planeView{p: dst, c: c}
		interp.Scale(d, d.Bounds(), s, s.Bounds(), draw.Src, nil)
	}
	return dst
}

// FitWithin returns the dimensions of w x h scaled so the longer side is at
// most maxSide, preserving aspect ratio. ok is false when no scaling is needed.
func FitWithin(w, h, maxSide int) (int, int, bool) {
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return w, h, false
	}
	if w >= h {
		nh := int(float64(h)*float64(maxSide)/float64(w) + 0.5)
		if nh < 1 {
			nh = 1
		}
		return maxSide, nh, true
	}
	nw := int(float64(w)*float64(maxSide)/float64(h) + 0.5)
	if nw < 1 {
		nw = 1
	}
	return nw, maxSide, true
}
