package tiling

import (
	"errors"
	"testing"

	"go_enhance/tensor"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"restoration defaults", Config{TileSize: 512, Overlap: 16}, false},
		{"enhancement defaults", Config{TileSize: 384, Overlap: 64, Padding: PaddingReflect}, false},
		{"zero overlap", Config{TileSize: 8}, false},
		{"overlap at half", Config{TileSize: 8, Overlap: 4}, true},
		{"negative overlap", Config{TileSize: 8, Overlap: -1}, true},
		{"zero tile", Config{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestComputeGridCoversImageOnce(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		cfg  Config
	}{
		{"exact multiple", 512, 256, Config{TileSize: 160, Overlap: 16}},
		{"ragged", 1000, 333, Config{TileSize: 128, Overlap: 8}},
		{"reflect", 700, 500, Config{TileSize: 384, Overlap: 64, Padding: PaddingReflect}},
		{"smaller than tile", 50, 40, Config{TileSize: 512, Overlap: 16}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ComputeGrid(tt.w, tt.h, tt.cfg)
			if err != nil {
				t.Fatalf("ComputeGrid: %v", err)
			}
			cover := make([]int, tt.w*tt.h)
			for _, ts := range g.Tiles {
				for y := ts.Y; y < ts.Y+ts.Height; y++ {
					for x := ts.X; x < ts.X+ts.Width; x++ {
						cover[y*tt.w+x]++
					}
				}
			}
			for i, n := range cover {
				if n != 1 {
					t.Fatalf("pixel %d covered %d times", i, n)
				}
			}
			if g.Len() != g.Cols*g.Rows {
				t.Errorf("Len = %d, want %d", g.Len(), g.Cols*g.Rows)
			}
		})
	}
}

func TestComputeGridTileCount(t *testing.T) {
	g, err := ComputeGrid(4000, 3000, Config{TileSize: 384, Overlap: 64, Padding: PaddingReflect})
	if err != nil {
		t.Fatal(err)
	}
	if g.Cols != 16 || g.Rows != 12 || g.Len() != 192 {
		t.Errorf("grid = %dx%d (%d tiles), want 16x12 (192)", g.Cols, g.Rows, g.Len())
	}
}

func TestComputeGridPadding(t *testing.T) {
	reflect, err := ComputeGrid(600, 600, Config{TileSize: 384, Overlap: 64, Padding: PaddingReflect})
	if err != nil {
		t.Fatal(err)
	}
	first := reflect.Tiles[0]
	if first.PaddedX != -64 || first.PaddedY != -64 || first.PaddedWidth != 384 || first.PaddedHeight != 384 {
		t.Errorf("reflect padded region = %+v", first)
	}

	zero, err := ComputeGrid(600, 600, Config{TileSize: 384, Overlap: 64})
	if err != nil {
		t.Fatal(err)
	}
	first = zero.Tiles[0]
	if first.PaddedX != 0 || first.PaddedY != 0 || first.PaddedWidth != 320 || first.PaddedHeight != 320 {
		t.Errorf("zero first padded region = %+v", first)
	}
	last := zero.Tiles[len(zero.Tiles)-1]
	if last.X != 512 || last.Width != 88 || last.PaddedX != 448 || last.PaddedWidth != 152 {
		t.Errorf("zero last tile = %+v", last)
	}
}

func TestComputeGridRejectsEmpty(t *testing.T) {
	if _, err := ComputeGrid(0, 10, Config{TileSize: 8}); !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("expected ErrEmptyImage, got %v", err)
	}
}

func TestReflect(t *testing.T) {
	tests := []struct {
		coord, limit, want int
	}{
		{0, 5, 0},
		{4, 5, 4},
		{-1, 5, 1},
		{-4, 5, 4},
		{5, 5, 3},
		{8, 5, 0},
		{9, 5, 1},
		{-9, 5, 1},
		{7, 1, 0},
		{-3, 1, 0},
	}
	for _, tt := range tests {
		if got := Reflect(tt.coord, tt.limit); got != tt.want {
			t.Errorf("Reflect(%d, %d) = %d, want %d", tt.coord, tt.limit, got, tt.want)
		}
	}
}

func gradient(w, h, c int) *tensor.Planar {
	img := tensor.New(w, h, c)
	for ch := 0; ch < c; ch++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.Set(x, y, ch, float32((x*7+y*13+ch*29)%256)/255)
			}
		}
	}
	return img
}

func TestExtractReflect(t *testing.T) {
	img := gradient(20, 20, 1)
	g, err := ComputeGrid(20, 20, Config{TileSize: 12, Overlap: 2, Padding: PaddingReflect})
	if err != nil {
		t.Fatal(err)
	}
	tile := g.Extract(img, g.Tiles[0])
	if tile.Width != 12 || tile.Height != 12 {
		t.Fatalf("tile shape = %s", tile.ShapeString())
	}
	// buffer (0,0) maps to image (-2,-2), reflected to (2,2)
	if tile.At(0, 0, 0) != img.At(2, 2, 0) {
		t.Errorf("reflected corner = %v, want %v", tile.At(0, 0, 0), img.At(2, 2, 0))
	}
	if tile.At(2, 2, 0) != img.At(0, 0, 0) {
		t.Errorf("origin sample mismatch")
	}
}

func TestExtractZeroFillsOutsideImage(t *testing.T) {
	img := tensor.New(20, 20, 1)
	for i := range img.Data {
		img.Data[i] = 1
	}
	g, err := ComputeGrid(20, 20, Config{TileSize: 12, Overlap: 2})
	if err != nil {
		t.Fatal(err)
	}
	tile := g.Extract(img, g.Tiles[0])
	if tile.At(0, 0, 0) != 0 || tile.At(1, 5, 0) != 0 {
		t.Error("samples left of the image should be zero")
	}
	if tile.At(2, 2, 0) != 1 || tile.At(11, 11, 0) != 1 {
		t.Error("samples inside the image should be copied")
	}
}
