package imageio

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"go_enhance/tensor"
)

// Channels is the channel count of buffers produced by ToPlanar.
const Channels = 3

// ToPlanar converts img to a 3-channel RGB buffer in [0,1]. Alpha is dropped.
func ToPlanar(img image.Image) *tensor.Planar {
	b := img.Bounds()
	src, ok := img.(*image.NRGBA64)
	if !ok {
		src = image.NewNRGBA64(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(src, src.Bounds(), img, b.Min, draw.Src)
	}

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	p := tensor.New(w, h, Channels)
	r, g, bl := p.Plane(0), p.Plane(1), p.Plane(2)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			px := row[x*8:]
			i := y*w + x
			r[i] = float32(uint16(px[0])<<8|uint16(px[1])) / 65535
			g[i] = float32(uint16(px[2])<<8|uint16(px[3])) / 65535
			bl[i] = float32(uint16(px[4])<<8|uint16(px[5])) / 65535
		}
	}
	return p
}

// FromPlanar converts a 1- or 3-channel buffer to an opaque 8-bit image,
// clamping to [0,1] and rounding to nearest.
func FromPlanar(p *tensor.Planar) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, p.Width, p.Height))
	n := p.Pixels()
	for y := 0; y < p.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < p.Width; x++ {
			i := y*p.Width + x
			px := row[x*4:]
			for c := 0; c < 3; c++ {
				src := c
				if p.Channels < 3 {
					src = 0
				}
				px[c] = to8(p.Data[src*n+i])
			}
			px[3] = 0xff
		}
	}
	return img
}

func to8(v float32) uint8 {
	if v != v || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xff
	}
	return uint8(math.Round(float64(v) * 255))
}
