package core

import (
	"errors"
	"testing"
	"time"

	"go_enhance/enhance"
	"go_enhance/tiling"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(MapEnv(nil))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Profile != enhance.Balanced || cfg.Accelerator != AcceleratorAuto {
		t.Errorf("profile=%v accelerator=%q", cfg.Profile, cfg.Accelerator)
	}
	if cfg.Stages != enhance.DefaultStageConfig() {
		t.Errorf("stages = %+v, want defaults", cfg.Stages)
	}
	if cfg.CrashLoopWindow != 24*time.Hour || cfg.CrashLoopThreshold != 2 {
		t.Errorf("crash loop = %d/%v", cfg.CrashLoopThreshold, cfg.CrashLoopWindow)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("ValidateConfig: %v", err)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig(MapEnv(map[string]string{
		"ENHANCE_PROFILE":           "Quality",
		"ENHANCE_RESTORE_TILE":      "256",
		"ENHANCE_RESTORE_OVERLAP":   "8",
		"ENHANCE_RESTORE_PADDING":   "reflect",
		"ENHANCE_ZERODCE_MAX_SIDE":  "1024",
		"ENHANCE_HANN_WINDOW":       "off",
		"ENHANCE_DEVICE_DENYLIST":   "mali-g72*, ,adreno 506",
		"ENHANCE_CRASH_LOOP_WINDOW": "90",
		"ENHANCE_ACCELERATOR":       "OFF",
	}))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Profile != enhance.Quality {
		t.Errorf("profile = %v", cfg.Profile)
	}
	r := cfg.Stages.Restoration.Tile
	if r.TileSize != 256 || r.Overlap != 8 || r.Padding != tiling.PaddingReflect || r.WindowEnabled {
		t.Errorf("restoration tile = %+v", r)
	}
	if cfg.Stages.Enhancement.MaxSide != 1024 || cfg.Stages.Enhancement.Tile.WindowEnabled {
		t.Errorf("enhancement = %+v", cfg.Stages.Enhancement)
	}
	if len(cfg.DeviceDenylist) != 2 || cfg.DeviceDenylist[1] != "adreno 506" {
		t.Errorf("denylist = %q", cfg.DeviceDenylist)
	}
	if cfg.CrashLoopWindow != 90*time.Second {
		t.Errorf("window = %v", cfg.CrashLoopWindow)
	}
	if cfg.Accelerator != AcceleratorOff {
		t.Errorf("accelerator = %q", cfg.Accelerator)
	}
}

func TestLoadConfigInvalidNumbersFallBack(t *testing.T) {
	cfg, err := LoadConfig(MapEnv(map[string]string{
		"ENHANCE_ZERODCE_TILE": "big",
		"ENHANCE_STRENGTH":     "lots",
	}))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Stages.Enhancement.Tile.TileSize != 384 || cfg.Strength != 0.8 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if len(cfg.InvalidKeys) != 2 {
		t.Errorf("invalid keys = %v", cfg.InvalidKeys)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		code string
	}{
		{"profile", map[string]string{"ENHANCE_PROFILE": "fast"}, ErrCodeInvalidProfile},
		{"padding", map[string]string{"ENHANCE_ZERODCE_PADDING": "mirror"}, ErrCodeInvalidPadding},
		{"accelerator", map[string]string{"ENHANCE_ACCELERATOR": "maybe"}, ErrCodeInvalidAccel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(MapEnv(tt.env))
			if got := GetErrorCode(err); got != tt.code {
				t.Errorf("code = %q, want %q (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestValidateConfig(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadConfig(MapEnv(nil))
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		code   string
	}{
		{"overlap too wide", func(c *Config) { c.Stages.Restoration.Tile.Overlap = 256 }, ErrCodeInvalidTile},
		{"enhancement tile", func(c *Config) { c.Stages.Enhancement.Tile.TileSize = 0 }, ErrCodeInvalidTile},
		{"area", func(c *Config) { c.Stages.Enhancement.AreaThreshold = 0 }, ErrCodeInvalidThreshold},
		{"megapixels", func(c *Config) { c.Stages.Enhancement.MegapixelThreshold = -1 }, ErrCodeInvalidThreshold},
		{"strength", func(c *Config) { c.Strength = 1.5 }, ErrCodeInvalidStrength},
		{"models dir", func(c *Config) { c.ModelsDir = "" }, ErrCodeMissingConfig},
		{"attempts", func(c *Config) { c.Stages.AcceleratorAttempts = 0 }, ErrCodeInvalidThreshold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			if got := GetErrorCode(err); got != tt.code {
				t.Errorf("code = %q, want %q (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestEnvParsing(t *testing.T) {
	env := MapEnv(map[string]string{
		"B1": "YES", "B2": "0", "B3": "perhaps",
		"D1": "2m", "D2": "soon",
		"F": "0.25",
	})
	if !env.Bool("B1", false) || env.Bool("B2", true) || !env.Bool("B3", true) {
		t.Error("bool parsing")
	}
	if env.Duration("D1", 0) != 2*time.Minute || env.Duration("D2", time.Second) != time.Second {
		t.Error("duration parsing")
	}
	if env.Float("F", 0) != 0.25 || env.Float("missing", 1.5) != 1.5 {
		t.Error("float parsing")
	}
	if len(env.Invalid) != 2 {
		t.Errorf("invalid = %v", env.Invalid)
	}
}

func TestConfigErrorWrapping(t *testing.T) {
	err := errors.Join(errors.New("context"), ErrMissingConfig("X"))
	ce, ok := IsConfigError(err)
	if !ok || ce.Code != ErrCodeMissingConfig {
		t.Fatalf("IsConfigError = %v, %v", ce, ok)
	}
	if ce.Error() != "Missing required configuration: X. Set X in the environment or your .env file" {
		t.Errorf("message = %q", ce.Error())
	}
	if ExitCodeName(ExitCodeIntegrity) != "model integrity failure" || !IsSignalExit(ExitCodeSIGINT) {
		t.Error("exit code helpers")
	}
}
