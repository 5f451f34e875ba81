package enhance

import (
	"fmt"
	"strings"

	"go_enhance/tiling"
)

// Profile selects the preview pipeline.
type Profile int

const (
	// Balanced runs enhancement only.
	Balanced Profile = iota
	// Quality runs restoration then enhancement.
	Quality
)

func (p Profile) String() string {
	switch p {
	case Balanced:
		return "balanced"
	case Quality:
		return "quality"
	default:
		return fmt.Sprintf("profile(%d)", int(p))
	}
}

// ParseProfile accepts "balanced" or "quality", case-insensitively.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "balanced":
		return Balanced, nil
	case "quality":
		return Quality, nil
	}
	return Balanced, fmt.Errorf("enhance: unknown profile %q", s)
}

// Stage names as they appear in progress reports and telemetry.
const (
	StageRestoration = "restoration"
	StageEnhancement = "enhancement"
)

// DefaultAcceleratorAttempts bounds in-place retries of one accelerated
// inference call.
const DefaultAcceleratorAttempts = 3

// RestorationConfig tunes the restoration stage.
type RestorationConfig struct {
	Tile tiling.Config
}

// EnhancementConfig tunes the enhancement stage. The stage tiles when either
// threshold is exceeded.
type EnhancementConfig struct {
	Tile               tiling.Config
	AreaThreshold      int
	MegapixelThreshold float64

	// MaxSide bounds the longer image side fed to the backend. Larger inputs
	// are downsampled before inference and the result upsampled back.
	// Zero disables the bound.
	MaxSide int
}

// StageConfig groups both stages' settings.
type StageConfig struct {
	Restoration         RestorationConfig
	Enhancement         EnhancementConfig
	AcceleratorAttempts int
}

// DefaultStageConfig returns the production tiling parameters.
func DefaultStageConfig() StageConfig {
	return StageConfig{
		Restoration: RestorationConfig{
			Tile: tiling.Config{TileSize: 512, Overlap: 16, Padding: tiling.PaddingZero, WindowEnabled: true},
		},
		Enhancement: EnhancementConfig{
			Tile:               tiling.Config{TileSize: 384, Overlap: 64, Padding: tiling.PaddingReflect, WindowEnabled: true},
			AreaThreshold:      384 * 384 * 4,
			MegapixelThreshold: 1.0,
			MaxSide:            4096,
		},
		AcceleratorAttempts: DefaultAcceleratorAttempts,
	}
}

// Validate checks both tile configurations and the thresholds.
func (c StageConfig) Validate() error {
	if err := c.Restoration.Tile.Validate(); err != nil {
		return fmt.Errorf("restoration: %w", err)
	}
	if err := c.Enhancement.Tile.Validate(); err != nil {
		return fmt.Errorf("enhancement: %w", err)
	}
	if c.Enhancement.AreaThreshold <= 0 || c.Enhancement.MegapixelThreshold <= 0 {
		return fmt.Errorf("enhancement: thresholds must be positive")
	}
	if c.Enhancement.MaxSide < 0 {
		return fmt.Errorf("enhancement: negative max side %d", c.Enhancement.MaxSide)
	}
	if c.AcceleratorAttempts < 1 {
		return fmt.Errorf("accelerator attempts must be at least 1, got %d", c.AcceleratorAttempts)
	}
	return nil
}
