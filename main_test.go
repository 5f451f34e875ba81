package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go_enhance/core"
	"go_enhance/journal"
)

// testEnv points every state path into a temp dir and returns it.
func testEnv(t *testing.T, accelerator string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ENHANCE_MODELS_DIR", filepath.Join(dir, "models"))
	t.Setenv("ENHANCE_JOURNAL_PATH", filepath.Join(dir, "state", "journal.db"))
	t.Setenv("ENHANCE_LOG_FILE", filepath.Join(dir, "enhance.log"))
	t.Setenv("ENHANCE_LOG_LEVEL", "error")
	t.Setenv("ENHANCE_ACCELERATOR", accelerator)
	return dir
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 4), B: 40, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"defaults", []string{"a.png"}, false},
		{"full", []string{"-mode", "FULL", "-strength", "0.5", "a.png"}, false},
		{"bad mode", []string{"-mode", "fast", "a.png"}, true},
		{"bad profile", []string{"-profile", "ultra", "a.png"}, true},
		{"strength", []string{"-strength", "2", "a.png"}, true},
		{"no inputs", []string{}, true},
		{"history without inputs", []string{"-history", "3"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	a := &app{opts: &cliOptions{suffix: "_x"}}
	got, err := a.outputPath(filepath.Join("in", "photo.webp"))
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join("in", "photo_x.png") {
		t.Errorf("webp output = %s", got)
	}
	out := t.TempDir()
	a.opts.outDir = out
	got, _ = a.outputPath("shot.JPG")
	if got != filepath.Join(out, "shot_x.JPG") {
		t.Errorf("output = %s", got)
	}
}

func TestRunVersion(t *testing.T) {
	code, out, _ := runCLI("-version")
	if code != core.ExitCodeSuccess || !strings.Contains(out, "go_enhance") {
		t.Errorf("code=%d out=%q", code, out)
	}
}

func TestRunMissingManifest(t *testing.T) {
	dir := testEnv(t, "off")
	in := filepath.Join(dir, "a.png")
	writePNG(t, in, 16, 16)

	code, _, stderr := runCLI(in)
	if code != core.ExitCodeConfig {
		t.Fatalf("code = %d, want %d; stderr=%s", code, core.ExitCodeConfig, stderr)
	}
	if !strings.Contains(stderr, "Model manifest not found") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRunPreviewAndFull(t *testing.T) {
	dir := testEnv(t, "off")
	in := filepath.Join(dir, "dark.png")
	writePNG(t, in, 40, 30)

	code, stdout, stderr := runCLI("-bootstrap", "-q", in)
	if code != core.ExitCodeSuccess {
		t.Fatalf("preview code = %d; stderr=%s", code, stderr)
	}
	if !strings.Contains(stdout, "cpu forced: forced") {
		t.Errorf("stdout = %q", stdout)
	}
	if _, err := os.Stat(filepath.Join(dir, "dark_enhanced.png")); err != nil {
		t.Errorf("preview output: %v", err)
	}

	outDir := filepath.Join(dir, "out")
	code, _, stderr = runCLI("-mode", "full", "-o", outDir, "-q", in)
	if code != core.ExitCodeSuccess {
		t.Fatalf("full code = %d; stderr=%s", code, stderr)
	}
	f, err := os.Open(filepath.Join(outDir, "dark_enhanced.png"))
	if err != nil {
		t.Fatalf("full output: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Errorf("output bounds = %v", img.Bounds())
	}

	code, stdout, _ = runCLI("-history", "5")
	if code != core.ExitCodeSuccess {
		t.Fatalf("history code = %d", code)
	}
	if !strings.Contains(stdout, "Last 2 runs") || !strings.Contains(stdout, "full") {
		t.Errorf("history = %q", stdout)
	}
}

func TestRunPreviewDownscale(t *testing.T) {
	dir := testEnv(t, "off")
	in := filepath.Join(dir, "big.png")
	writePNG(t, in, 60, 20)

	code, _, stderr := runCLI("-bootstrap", "-q", "-preview-max", "30", in)
	if code != core.ExitCodeSuccess {
		t.Fatalf("code = %d; stderr=%s", code, stderr)
	}
	f, err := os.Open(filepath.Join(dir, "big_enhanced.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 30 || cfg.Height != 10 {
		t.Errorf("preview size = %dx%d, want 30x10", cfg.Width, cfg.Height)
	}
}

func TestRunIntegrityFailure(t *testing.T) {
	dir := testEnv(t, "off")
	in := filepath.Join(dir, "a.png")
	writePNG(t, in, 16, 16)

	if code, _, stderr := runCLI("-bootstrap", "-q", in); code != core.ExitCodeSuccess {
		t.Fatalf("bootstrap run failed: %s", stderr)
	}

	bin := filepath.Join(dir, "models", "zerodce_fp32.bin")
	data, err := os.ReadFile(bin)
	if err != nil {
		t.Fatal(err)
	}
	data[0] ^= 0xff
	if err := os.WriteFile(bin, data, 0o644); err != nil {
		t.Fatal(err)
	}

	code, _, stderr := runCLI("-q", in)
	if code != core.ExitCodeIntegrity {
		t.Fatalf("code = %d, want %d; stderr=%s", code, core.ExitCodeIntegrity, stderr)
	}
	if !strings.Contains(stderr, "zerodce_fp32.bin") {
		t.Errorf("stderr = %q", stderr)
	}

	j, err := journal.Open(filepath.Join(dir, "state", "journal.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	events, err := j.IntegrityFailures(context.Background(), 5)
	if err != nil || len(events) != 1 {
		t.Fatalf("journal integrity events = %v, %v", events, err)
	}
}

func TestRunCrashLoopForcesCPU(t *testing.T) {
	dir := testEnv(t, "on")
	t.Setenv("ENHANCE_CRASH_LOOP_THRESHOLD", "1")
	in := filepath.Join(dir, "a.png")
	writePNG(t, in, 16, 16)

	// Leave a marker behind as a crashed process would.
	j, err := journal.Open(filepath.Join(dir, "state", "journal.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := j.MarkRunning(context.Background(), "earlier.png", "preview"); err != nil {
		t.Fatal(err)
	}
	j.Close()

	code, stdout, stderr := runCLI("-bootstrap", "-q", in)
	if code != core.ExitCodeSuccess {
		t.Fatalf("code = %d; stderr=%s", code, stderr)
	}
	if !strings.Contains(stdout, "cpu delegate") || !strings.Contains(stdout, "crash_loop") {
		t.Errorf("stdout = %q", stdout)
	}
}
