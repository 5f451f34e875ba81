package tiling

import "go_enhance/tensor"

// Extract copies the inference input for tile t out of img. The result is
// always TileSize x TileSize and anchored Overlap pixels up and left of the
// unpadded region. Reflect padding mirrors out-of-range coordinates; zero
// padding leaves everything outside the clamped padded region at 0.
func (g *Grid) Extract(img *tensor.Planar, t TileSpec) *tensor.Planar {
	size := g.Config.TileSize
	ox, oy := g.origin(t)
	out := tensor.New(size, size, img.Channels)

	reflect := g.Config.Padding == PaddingReflect
	for c := 0; c < img.Channels; c++ {
		src := img.Plane(c)
		dst := out.Plane(c)
		for ty := 0; ty < size; ty++ {
			sy := oy + ty
			if reflect {
				sy = Reflect(sy, img.Height)
			} else if sy < t.PaddedY || sy >= t.PaddedY+t.PaddedHeight {
				continue
			}
			row := dst[ty*size : (ty+1)*size]
			srcRow := src[sy*img.Width : (sy+1)*img.Width]
			for tx := range row {
				sx := ox + tx
				if reflect {
					sx = Reflect(sx, img.Width)
				} else if sx < t.PaddedX || sx >= t.PaddedX+t.PaddedWidth {
					continue
				}
				row[tx] = srcRow[sx]
			}
		}
	}
	return out
}
