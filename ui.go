package main

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"go_enhance/core"
	"go_enhance/enhance"
	"go_enhance/integrity"
	"go_enhance/journal"
	"go_enhance/metrics"
)

// ui prints human-facing output. Structured logs go to the logger instead.
type ui struct {
	stdout io.Writer
	stderr io.Writer
	quiet  bool

	mu           sync.Mutex
	progressLine bool
}

func newUI(stdout, stderr io.Writer, quiet bool) *ui {
	return &ui{stdout: stdout, stderr: stderr, quiet: quiet}
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
	dimColor  = color.New(color.FgHiBlack)
	headColor = color.New(color.FgCyan, color.Bold)
)

func (u *ui) info(format string, args ...any) {
	fmt.Fprintf(u.stdout, format+"\n", args...)
}

func (u *ui) warn(format string, args ...any) {
	warnColor.Fprintf(u.stderr, "! "+format+"\n", args...)
}

func (u *ui) fail(what string, err error) {
	errColor.Fprintf(u.stderr, "✗ %s\n", what)
	errColor.Fprintf(u.stderr, "    └─ %s\n", err)
}

func (u *ui) configError(err error) {
	if ce, ok := core.IsConfigError(err); ok {
		errColor.Fprintf(u.stderr, "✗ %s\n", ce.Message)
		if ce.Action != "" {
			dimColor.Fprintf(u.stderr, "    └─ %s\n", ce.Action)
		}
		return
	}
	u.fail("Configuration error", err)
}

func (u *ui) integrityFailure(f integrity.Failure) {
	errColor.Fprintf(u.stderr, "✗ Model file failed verification: %s\n", f.FilePath)
	dimColor.Fprintf(u.stderr, "    expected %s\n", f.ExpectedDigest)
	actual := f.ActualDigest
	if actual == "" {
		actual = "(unreadable)"
	}
	dimColor.Fprintf(u.stderr, "    actual   %s\n", actual)
}

// progress is the engine's progress callback.
func (u *ui) progress(p enhance.Progress) {
	if u.quiet {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintf(u.stderr, "\r  ◌ %s %d/%d   ", p.Stage, p.Completed, p.Total)
	u.progressLine = true
}

func (u *ui) endProgress() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.progressLine {
		fmt.Fprint(u.stderr, "\r\033[K")
		u.progressLine = false
	}
}

func (u *ui) result(input, output string, tel enhance.RunTelemetry) {
	okColor.Fprintf(u.stdout, "✓ %s", input)
	dimColor.Fprintf(u.stdout, " → %s (%s, %s, %v", output, tel.Kind, tel.Delegate, tel.Total.Round(time.Millisecond))
	if tel.Tiles.Used {
		dimColor.Fprintf(u.stdout, ", %d tiles, seam max %.4f", tel.Tiles.Total, tel.Tiles.SeamMaxDelta)
	}
	dimColor.Fprintln(u.stdout, ")")
	if tel.FallbackUsed {
		warnColor.Fprintf(u.stdout, "    fell back to CPU: %s\n", tel.FallbackCause)
	}
}

func (u *ui) summary(s metrics.Summary) {
	if s.Total == 0 {
		return
	}
	fmt.Fprintln(u.stdout)
	attr := color.FgGreen
	if s.Failed > 0 {
		attr = color.FgRed
	} else if s.Cancelled > 0 || s.Fallbacks > 0 {
		attr = color.FgYellow
	}
	color.New(attr, color.Bold).Fprintf(u.stdout, "━━━ %s runs: %d ok, %d failed, %d cancelled ━━━\n",
		humanize.Comma(s.Total), s.Succeeded, s.Failed, s.Cancelled)

	kinds := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		ks := s.ByKind[k]
		dimColor.Fprintf(u.stdout, "  %s: %d runs, %.0f%% ok, avg %v\n", k, ks.Count, ks.SuccessRate, ks.AvgDuration.Round(time.Millisecond))
	}
	if s.Fallbacks > 0 {
		warnColor.Fprintf(u.stdout, "  CPU fallbacks: %d %v\n", s.Fallbacks, s.FallbackCauses)
	}
	if s.AcceleratorRetries > 0 {
		dimColor.Fprintf(u.stdout, "  accelerator retries: %d\n", s.AcceleratorRetries)
	}
}

func (u *ui) history(runs []journal.RunRecord) {
	headColor.Fprintf(u.stdout, "━━━ Last %d runs ━━━\n", len(runs))
	for _, r := range runs {
		clr := okColor
		status := "ok"
		switch {
		case r.Cancelled:
			clr, status = warnColor, "cancelled"
		case !r.Success:
			clr, status = errColor, "failed"
		}
		clr.Fprintf(u.stdout, "  %-9s", status)
		fmt.Fprintf(u.stdout, " %s %-7s %-8s %-11s %8v", r.RunID, r.Kind, r.Profile, r.Delegate, r.Duration)
		dimColor.Fprintf(u.stdout, "  %s", humanize.Time(r.CreatedAt))
		if r.FallbackCause != enhance.CauseNone.String() {
			warnColor.Fprintf(u.stdout, "  fallback=%s", r.FallbackCause)
		}
		fmt.Fprintln(u.stdout)
	}
}
