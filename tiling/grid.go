package tiling

import "fmt"

// Padding selects how samples outside the image are produced for a tile.
type Padding int

const (
	// PaddingZero clamps the padded region to the image and zero-fills the rest.
	PaddingZero Padding = iota
	// PaddingReflect mirrors coordinates at the image edges.
	PaddingReflect
)

func (p Padding) String() string {
	switch p {
	case PaddingZero:
		return "zero"
	case PaddingReflect:
		return "reflect"
	default:
		return fmt.Sprintf("padding(%d)", int(p))
	}
}

// ParsePadding maps "zero" or "reflect" to a Padding.
func ParsePadding(s string) (Padding, bool) {
	switch s {
	case "zero":
		return PaddingZero, true
	case "reflect":
		return PaddingReflect, true
	}
	return PaddingZero, false
}

// Config describes how an image is cut into tiles.
type Config struct {
	TileSize      int
	Overlap       int
	Padding       Padding
	WindowEnabled bool
}

// Step is the stride between tile origins.
func (c Config) Step() int {
	return c.TileSize - 2*c.Overlap
}

// Validate checks that the configuration produces a usable grid.
func (c Config) Validate() error {
	if c.TileSize <= 0 {
		return fmt.Errorf("%w: tile size %d", ErrInvalidConfig, c.TileSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: negative overlap %d", ErrInvalidConfig, c.Overlap)
	}
	if 2*c.Overlap >= c.TileSize {
		return fmt.Errorf("%w: overlap %d must be below half of tile size %d", ErrInvalidConfig, c.Overlap, c.TileSize)
	}
	return nil
}

// TileSpec locates one tile. X, Y, Width and Height describe the unpadded
// region; across a grid these regions cover every pixel exactly once. The
// padded fields describe the image region read for inference.
type TileSpec struct {
	X, Y          int
	Width, Height int

	PaddedX, PaddedY          int
	PaddedWidth, PaddedHeight int
}

// Grid is the row-major tile layout of one image.
type Grid struct {
	Config Config
	Width  int
	Height int
	Cols   int
	Rows   int
	Tiles  []TileSpec
}

// Len returns the number of tiles.
func (g *Grid) Len() int { return len(g.Tiles) }

// origin returns the top-left image coordinate of the inference buffer for t.
func (g *Grid) origin(t TileSpec) (int, int) {
	return t.X - g.Config.Overlap, t.Y - g.Config.Overlap
}

// ComputeGrid lays tiles over a width x height image.
//
// Parameters:
//   - width, height: image size in pixels
//   - cfg: tile size, overlap and padding mode
//
// Returns:
//   - *Grid: tiles in row-major order, stepping by cfg.Step() from (0,0)
//   - error: ErrInvalidConfig or ErrEmptyImage
func ComputeGrid(width, height int, cfg Config) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyImage, width, height)
	}

	step := cfg.Step()
	g := &Grid{
		Config: cfg,
		Width:  width,
		Height: height,
		Cols:   (width + step - 1) / step,
		Rows:   (height + step - 1) / step,
	}
	g.Tiles = make([]TileSpec, 0, g.Cols*g.Rows)

	for y := 0; y < height; y += step {
		for x := 0; x < width; x += step {
			t := TileSpec{
				X:      x,
				Y:      y,
				Width:  min(step, width-x),
				Height: min(step, height-y),
			}
			ox, oy := x-cfg.Overlap, y-cfg.Overlap
			if cfg.Padding == PaddingReflect {
				t.PaddedX, t.PaddedY = ox, oy
				t.PaddedWidth, t.PaddedHeight = cfg.TileSize, cfg.TileSize
			} else {
				t.PaddedX, t.PaddedY = max(0, ox), max(0, oy)
				t.PaddedWidth = min(width, ox+cfg.TileSize) - t.PaddedX
				t.PaddedHeight = min(height, oy+cfg.TileSize) - t.PaddedY
			}
			g.Tiles = append(g.Tiles, t)
		}
	}
	return g, nil
}

// Reflect mirrors coord into [0, limit) around 0 and limit-1 with period
// 2*(limit-1). A limit of 1 always maps to 0.
func Reflect(coord, limit int) int {
	if limit <= 1 {
		return 0
	}
	period := 2 * (limit - 1)
	c := coord % period
	if c < 0 {
		c += period
	}
	if c >= limit {
		c = period - c
	}
	return c
}
