package reference

import (
	"math"

	"go_enhance/tensor"
)

// curve applies the iterative light-enhancement curve x + a*x*(1-x) with one
// coefficient per channel.
func curve(in *tensor.Planar, alpha []float32, iterations int) *tensor.Planar {
	out := in.Clone()
	for c := 0; c < out.Channels; c++ {
		a := alpha[c]
		plane := out.Plane(c)
		for i, x := range plane {
			for n := 0; n < iterations; n++ {
				x += a * x * (1 - x)
			}
			plane[i] = x
		}
	}
	out.Clamp()
	return out
}

// denoise mixes each channel with its 3x3 convolution. Edges are clamped.
func denoise(in *tensor.Planar, kernel []float32, mix float32) *tensor.Planar {
	out := tensor.New(in.Width, in.Height, in.Channels)
	w, h := in.Width, in.Height
	for c := 0; c < in.Channels; c++ {
		src := in.Plane(c)
		dst := out.Plane(c)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				var acc float32
				for ky := -1; ky <= 1; ky++ {
					sy := min(max(y+ky, 0), h-1)
					for kx := -1; kx <= 1; kx++ {
						sx := min(max(x+kx, 0), w-1)
						acc += kernel[(ky+1)*3+kx+1] * src[sy*w+sx]
					}
				}
				v := src[y*w+x]
				dst[y*w+x] = v*(1-mix) + acc*mix
			}
		}
	}
	out.Clamp()
	return out
}

// roundHalf drops float32 mantissa bits to the 10 kept by IEEE half precision.
func roundHalf(p *tensor.Planar) {
	for i, v := range p.Data {
		bits := math.Float32bits(v)
		bits = (bits + 0x1000) &^ 0x1fff
		p.Data[i] = math.Float32frombits(bits)
	}
}
