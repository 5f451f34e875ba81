// Package tensor holds the planar float buffers exchanged between the
// image boundary, the tiler and inference backends.
package tensor

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned when two buffers are expected to share a shape.
var ErrShapeMismatch = errors.New("tensor: shape mismatch")

// Planar is a channel-major float buffer: Data[c*Height*Width + y*Width + x].
// Values are expected in [0,1].
type Planar struct {
	Width    int
	Height   int
	Channels int
	Data     []float32
}

// New allocates a zeroed buffer.
func New(width, height, channels int) *Planar {
	if width < 0 || height < 0 || channels < 0 {
		panic(fmt.Sprintf("tensor: negative shape %dx%dx%d", width, height, channels))
	}
	return &Planar{
		Width:    width,
		Height:   height,
		Channels: channels,
		Data:     make([]float32, width*height*channels),
	}
}

// FromData wraps an existing slice, validating its length.
func FromData(width, height, channels int, data []float32) (*Planar, error) {
	if len(data) != width*height*channels {
		return nil, fmt.Errorf("%w: %d values for %dx%dx%d", ErrShapeMismatch, len(data), width, height, channels)
	}
	return &Planar{Width: width, Height: height, Channels: channels, Data: data}, nil
}

// Pixels returns Width*Height.
func (p *Planar) Pixels() int { return p.Width * p.Height }

// Index returns the offset of sample (x, y, c).
func (p *Planar) Index(x, y, c int) int {
	return c*p.Width*p.Height + y*p.Width + x
}

func (p *Planar) At(x, y, c int) float32 { return p.Data[p.Index(x, y, c)] }

func (p *Planar) Set(x, y, c int, v float32) { p.Data[p.Index(x, y, c)] = v }

// Plane returns the backing slice of channel c.
func (p *Planar) Plane(c int) []float32 {
	n := p.Width * p.Height
	return p.Data[c*n : (c+1)*n]
}

// SameShape reports whether o has identical dimensions.
func (p *Planar) SameShape(o *Planar) bool {
	return o != nil && p.Width == o.Width && p.Height == o.Height && p.Channels == o.Channels
}

// Clone returns a deep copy.
func (p *Planar) Clone() *Planar {
	out := &Planar{Width: p.Width, Height: p.Height, Channels: p.Channels, Data: make([]float32, len(p.Data))}
	copy(out.Data, p.Data)
	return out
}

// CopyFrom overwrites p with the contents of src.
func (p *Planar) CopyFrom(src *Planar) error {
	if !p.SameShape(src) {
		return fmt.Errorf("%w: %s vs %s", ErrShapeMismatch, p.ShapeString(), src.ShapeString())
	}
	copy(p.Data, src.Data)
	return nil
}

// Clamp limits every sample to [0,1].
func (p *Planar) Clamp() {
	for i, v := range p.Data {
		if v < 0 {
			p.Data[i] = 0
		} else if v > 1 {
			p.Data[i] = 1
		}
	}
}

// ShapeString formats the shape as WxHxC.
func (p *Planar) ShapeString() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%dx%dx%d", p.Width, p.Height, p.Channels)
}
