package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"go_enhance/enhance"
)

const (
	modePreview = "preview"
	modeFull    = "full"
)

type cliOptions struct {
	mode       string
	strength   float64
	profile    string
	outDir     string
	suffix     string
	quality    int
	previewMax int
	bootstrap  bool
	forceCPU   bool
	history    int
	quiet      bool
	version    bool
	inputs     []string
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	fs := flag.NewFlagSet("go_enhance", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &cliOptions{}
	fs.StringVar(&o.mode, "mode", modePreview, "run kind: preview or full")
	fs.Float64Var(&o.strength, "strength", -1, "enhancement strength in [0,1] (default ENHANCE_STRENGTH)")
	fs.StringVar(&o.profile, "profile", "", "preview profile: balanced or quality (default ENHANCE_PROFILE)")
	fs.StringVar(&o.outDir, "o", "", "output directory (default: next to each input)")
	fs.StringVar(&o.suffix, "suffix", "_enhanced", "suffix added to output file names")
	fs.IntVar(&o.quality, "quality", 92, "JPEG output quality")
	fs.IntVar(&o.previewMax, "preview-max", 0, "downscale preview inputs so the longer side is at most this many pixels")
	fs.BoolVar(&o.bootstrap, "bootstrap", false, "generate reference models and models.lock if the models directory has none")
	fs.BoolVar(&o.forceCPU, "cpu", false, "never use the accelerated delegate")
	fs.IntVar(&o.history, "history", 0, "print the last N runs from the journal and exit")
	fs.BoolVar(&o.quiet, "q", false, "suppress progress output")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: go_enhance [flags] image...\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	o.inputs = fs.Args()
	o.mode = strings.ToLower(o.mode)

	switch o.mode {
	case modePreview, modeFull:
	default:
		return nil, fmt.Errorf("unknown mode %q (want preview or full)", o.mode)
	}
	if o.profile != "" {
		if _, err := enhance.ParseProfile(o.profile); err != nil {
			return nil, err
		}
	}
	if o.strength > 1 {
		return nil, fmt.Errorf("strength %g is outside [0, 1]", o.strength)
	}
	if o.previewMax < 0 {
		return nil, fmt.Errorf("negative -preview-max %d", o.previewMax)
	}
	if !o.version && o.history == 0 && len(o.inputs) == 0 {
		fs.Usage()
		return nil, fmt.Errorf("no input images")
	}
	return o, nil
}
