package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"go_enhance/backend"
	"go_enhance/core"
	"go_enhance/enhance"
	"go_enhance/imageio"
	"go_enhance/shutdown"
	"go_enhance/tensor"
)

// runBatch enhances every input in order. It stops at the first
// cancellation; other failures are reported and the batch continues.
func (a *app) runBatch(ctx context.Context, counter *shutdown.SignalCounter) int {
	code := core.ExitCodeSuccess
	for _, input := range a.opts.inputs {
		if counter.Count() > 0 {
			code = core.ExitCodeSIGINT
			break
		}
		tel, err := a.processFile(ctx, input)
		if tel.RunID != "" {
			a.store.Observe(tel)
			if a.journal != nil {
				a.journal.RecordRun(tel)
			}
		}
		switch {
		case err == nil:
			a.resetCrashesAfter(ctx, tel)
		case errors.Is(err, enhance.ErrCancelled):
			a.ui.warn("%s: cancelled", input)
			code = core.ExitCodeSIGINT
		default:
			a.ui.fail(input, err)
			if f, ok := a.engine.ConsumeLastIntegrityFailure(); ok {
				a.ui.integrityFailure(f)
				code = core.ExitCodeIntegrity
			} else if code == core.ExitCodeSuccess {
				code = core.ExitCodeError
			}
		}
		if code == core.ExitCodeSIGINT {
			break
		}
	}
	a.ui.summary(a.store.Summary())
	return code
}

// processFile decodes input, runs the configured kind and writes the result.
func (a *app) processFile(ctx context.Context, input string) (enhance.RunTelemetry, error) {
	img, _, err := imageio.DecodeFile(input)
	if err != nil {
		return enhance.RunTelemetry{}, err
	}
	src := imageio.ToPlanar(img)
	if a.opts.mode == modePreview && a.opts.previewMax > 0 {
		if w, h, ok := tensor.FitWithin(src.Width, src.Height, a.opts.previewMax); ok {
			src = tensor.Resize(src, w, h, draw.ApproxBiLinear)
		}
	}

	out, err := a.outputPath(input)
	if err != nil {
		return enhance.RunTelemetry{}, err
	}

	kind := enhance.KindPreview
	if a.opts.mode == modeFull {
		kind = enhance.KindFull
	}
	a.markRunning(ctx, input, kind)
	defer a.clearRunning(ctx)

	strength := float32(a.cfg.Strength)
	var tel enhance.RunTelemetry
	dst := src
	if kind == enhance.KindFull {
		dst = tensor.New(src.Width, src.Height, src.Channels)
		tel, err = a.engine.RunFull(src, strength, dst)
	} else {
		tel, err = a.engine.RunPreview(src, strength)
	}
	a.ui.endProgress()
	if err != nil {
		return tel, err
	}

	if err := imageio.EncodeFile(out, imageio.FromPlanar(dst), a.opts.quality); err != nil {
		return tel, err
	}
	a.ui.result(input, out, tel)
	return tel, nil
}

func (a *app) outputPath(input string) (string, error) {
	dir := filepath.Dir(input)
	if a.opts.outDir != "" {
		dir = a.opts.outDir
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	ext := filepath.Ext(input)
	if _, err := imageio.FormatFromPath(input); err != nil {
		// Inputs we can read but not write, such as webp, are saved as png.
		ext = ".png"
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+a.opts.suffix+ext), nil
}

func (a *app) markRunning(ctx context.Context, input, kind string) {
	if a.journal == nil {
		return
	}
	if err := a.journal.MarkRunning(ctx, input, kind); err != nil {
		a.logger.Warn("could not set run marker", zap.Error(err))
	}
}

func (a *app) clearRunning(ctx context.Context) {
	if a.journal == nil {
		return
	}
	if err := a.journal.ClearRunning(ctx); err != nil {
		a.logger.Warn("could not clear run marker", zap.Error(err))
	}
}

// resetCrashesAfter forgets earlier crashes once the accelerator has
// completed a run cleanly.
func (a *app) resetCrashesAfter(ctx context.Context, tel enhance.RunTelemetry) {
	if a.journal == nil || tel.Delegate != backend.Accelerated || tel.FallbackUsed {
		return
	}
	if err := a.journal.ResetCrashes(ctx); err != nil {
		a.logger.Warn("could not reset crash history", zap.Error(err))
	}
}
