// Package core holds the command line tool's configuration: environment
// parsing, validation errors, exit codes and build metadata.
package core

import (
	"path/filepath"
	"strings"
	"time"

	"go_enhance/enhance"
	"go_enhance/tiling"
)

// Accelerator modes accepted by ENHANCE_ACCELERATOR.
const (
	AcceleratorAuto = "auto"
	AcceleratorOn   = "on"
	AcceleratorOff  = "off"
)

// Config holds all configuration values.
type Config struct {
	// Models
	ModelsDir   string
	ModelSource string // optional directory installed into ModelsDir

	// Run defaults
	Profile  enhance.Profile
	Strength float64

	// Delegate selection
	Accelerator        string
	DeviceFingerprint  string // overrides the probed device when set
	DeviceDenylist     []string
	CrashLoopThreshold int
	CrashLoopWindow    time.Duration

	// State and logging
	JournalPath    string
	Retention      time.Duration
	LogLevel       string
	LogFile        string
	LogDevelopment bool

	Stages enhance.StageConfig

	// InvalidKeys lists variables whose values could not be parsed and were
	// replaced by defaults.
	InvalidKeys []string
}

// LoadConfig reads configuration from env. Unparseable numbers fall back to
// their defaults; unknown enumerations are errors.
func LoadConfig(env *Env) (*Config, error) {
	dataDir := GetDataDirectory()
	def := enhance.DefaultStageConfig()

	cfg := &Config{
		ModelsDir:          env.String("ENHANCE_MODELS_DIR", "./models"),
		ModelSource:        env.String("ENHANCE_MODEL_SOURCE", ""),
		Strength:           env.Float("ENHANCE_STRENGTH", 0.8),
		Accelerator:        strings.ToLower(env.String("ENHANCE_ACCELERATOR", AcceleratorAuto)),
		DeviceFingerprint:  env.String("ENHANCE_DEVICE", ""),
		DeviceDenylist:     env.List("ENHANCE_DEVICE_DENYLIST"),
		CrashLoopThreshold: env.Int("ENHANCE_CRASH_LOOP_THRESHOLD", 2),
		CrashLoopWindow:    env.Duration("ENHANCE_CRASH_LOOP_WINDOW", 24*time.Hour),
		JournalPath:        env.String("ENHANCE_JOURNAL_PATH", filepath.Join(dataDir, "journal.db")),
		Retention:          env.Duration("ENHANCE_JOURNAL_RETENTION", 30*24*time.Hour),
		LogLevel:           env.String("ENHANCE_LOG_LEVEL", "info"),
		LogFile:            env.String("ENHANCE_LOG_FILE", filepath.Join(dataDir, "enhance.log")),
		LogDevelopment:     env.Bool("ENHANCE_LOG_DEV", false),
	}

	profileName := env.String("ENHANCE_PROFILE", "balanced")
	profile, err := enhance.ParseProfile(profileName)
	if err != nil {
		return nil, ErrInvalidProfile(profileName)
	}
	cfg.Profile = profile

	switch cfg.Accelerator {
	case AcceleratorAuto, AcceleratorOn, AcceleratorOff:
	default:
		return nil, ErrInvalidAccelerator(cfg.Accelerator)
	}

	window := env.Bool("ENHANCE_HANN_WINDOW", true)

	restore := def.Restoration.Tile
	restore.TileSize = env.Int("ENHANCE_RESTORE_TILE", restore.TileSize)
	restore.Overlap = env.Int("ENHANCE_RESTORE_OVERLAP", restore.Overlap)
	restore.WindowEnabled = window
	if restore.Padding, err = parsePadding(env, "ENHANCE_RESTORE_PADDING", restore.Padding); err != nil {
		return nil, err
	}

	enh := def.Enhancement
	enh.Tile.TileSize = env.Int("ENHANCE_ZERODCE_TILE", enh.Tile.TileSize)
	enh.Tile.Overlap = env.Int("ENHANCE_ZERODCE_OVERLAP", enh.Tile.Overlap)
	enh.Tile.WindowEnabled = window
	if enh.Tile.Padding, err = parsePadding(env, "ENHANCE_ZERODCE_PADDING", enh.Tile.Padding); err != nil {
		return nil, err
	}
	enh.AreaThreshold = env.Int("ENHANCE_ZERODCE_AREA_THRESHOLD", enh.AreaThreshold)
	enh.MegapixelThreshold = env.Float("ENHANCE_ZERODCE_MP_THRESHOLD", enh.MegapixelThreshold)
	enh.MaxSide = env.Int("ENHANCE_ZERODCE_MAX_SIDE", enh.MaxSide)

	cfg.Stages = enhance.StageConfig{
		Restoration:         enhance.RestorationConfig{Tile: restore},
		Enhancement:         enh,
		AcceleratorAttempts: env.Int("ENHANCE_ACCEL_ATTEMPTS", def.AcceleratorAttempts),
	}
	cfg.InvalidKeys = append(cfg.InvalidKeys, env.Invalid...)
	return cfg, nil
}

func parsePadding(env *Env, key string, def tiling.Padding) (tiling.Padding, error) {
	v := env.String(key, "")
	if v == "" {
		return def, nil
	}
	p, ok := tiling.ParsePadding(strings.ToLower(v))
	if !ok {
		return def, ErrInvalidPadding(key, v)
	}
	return p, nil
}

// ValidateConfig checks values that parsed but cannot be used.
func ValidateConfig(cfg *Config) error {
	if cfg.ModelsDir == "" {
		return ErrMissingConfig("ENHANCE_MODELS_DIR")
	}
	if cfg.Strength < 0 || cfg.Strength > 1 {
		return ErrInvalidStrength(cfg.Strength)
	}
	if t := cfg.Stages.Restoration.Tile; t.Validate() != nil {
		return ErrInvalidTile(enhance.StageRestoration, t.TileSize, t.Overlap)
	}
	enh := cfg.Stages.Enhancement
	if enh.Tile.Validate() != nil {
		return ErrInvalidTile(enhance.StageEnhancement, enh.Tile.TileSize, enh.Tile.Overlap)
	}
	if enh.AreaThreshold <= 0 {
		return ErrInvalidThreshold("ENHANCE_ZERODCE_AREA_THRESHOLD", float64(enh.AreaThreshold))
	}
	if enh.MegapixelThreshold <= 0 {
		return ErrInvalidThreshold("ENHANCE_ZERODCE_MP_THRESHOLD", enh.MegapixelThreshold)
	}
	if enh.MaxSide < 0 {
		return ErrInvalidThreshold("ENHANCE_ZERODCE_MAX_SIDE", float64(enh.MaxSide))
	}
	if cfg.Stages.AcceleratorAttempts < 1 {
		return ErrInvalidThreshold("ENHANCE_ACCEL_ATTEMPTS", float64(cfg.Stages.AcceleratorAttempts))
	}
	if cfg.Retention < 0 {
		return ErrInvalidThreshold("ENHANCE_JOURNAL_RETENTION", cfg.Retention.Hours())
	}
	if cfg.CrashLoopThreshold < 0 {
		return ErrInvalidThreshold("ENHANCE_CRASH_LOOP_THRESHOLD", float64(cfg.CrashLoopThreshold))
	}
	return nil
}
