package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go_enhance/backend"
	"go_enhance/backend/reference"
	"go_enhance/core"
	"go_enhance/device"
	"go_enhance/enhance"
	"go_enhance/integrity"
	"go_enhance/journal"
	"go_enhance/logging"
	"go_enhance/metrics"
	"go_enhance/models"
	"go_enhance/shutdown"
)

// app holds everything a batch needs once setup succeeded.
type app struct {
	cfg     *core.Config
	opts    *cliOptions
	logger  *logging.Logger
	engine  *enhance.Engine
	journal *journal.Journal
	store   *metrics.Store
	ui      *ui
	cleanup *shutdown.Registry

	// probe is replaced in tests.
	probe device.Reader
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return core.ExitCodeSuccess
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return core.ExitCodeConfig
	}
	if opts.version {
		fmt.Fprintf(stdout, "go_enhance %s\n", core.GetVersionInfo())
		return core.ExitCodeSuccess
	}

	a := &app{
		opts:    opts,
		ui:      newUI(stdout, stderr, opts.quiet),
		cleanup: shutdown.NewRegistry(),
		store:   metrics.NewStore(metrics.DefaultHistoryCapacity, time.Now()),
		probe:   device.NvidiaSMI{},
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.cleanup.Run(ctx); err != nil {
			fmt.Fprintf(stderr, "Cleanup: %v\n", err)
		}
	}()

	if code := a.configure(core.OSEnv()); code != core.ExitCodeSuccess {
		return code
	}
	if opts.history > 0 {
		return a.printHistory(context.Background(), opts.history)
	}

	ctx := context.Background()
	if code := a.setup(ctx); code != core.ExitCodeSuccess {
		return code
	}

	counter := shutdown.NewSignalCounter(2, func() {
		fmt.Fprintln(stderr, "\nForced exit")
		os.Exit(core.ExitCodeSIGINT)
	})
	stop := shutdown.Watch(counter, func(sig os.Signal) {
		a.ui.warn("Cancelling, press Ctrl+C again to force exit")
		a.logger.Warn("cancellation requested", zap.String("signal", sig.String()))
		a.engine.Cancel()
	}, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.runBatch(ctx, counter)
}

// configure loads configuration and builds the logger and journal.
func (a *app) configure(env *core.Env) int {
	cfg, err := core.LoadConfig(env)
	if err == nil {
		err = core.ValidateConfig(cfg)
	}
	if err != nil {
		a.ui.configError(err)
		return core.ExitCodeConfig
	}
	if a.opts.profile != "" {
		cfg.Profile, _ = enhance.ParseProfile(a.opts.profile)
	}
	if a.opts.strength >= 0 {
		cfg.Strength = a.opts.strength
	}
	a.cfg = cfg

	level := logging.ParseLevel(cfg.LogLevel, zapcore.InfoLevel)
	logger, err := logging.New(logging.Options{
		Development: cfg.LogDevelopment,
		Level:       &level,
		FilePath:    cfg.LogFile,
		Console:     a.ui.stderr,
	})
	if err != nil {
		fmt.Fprintf(a.ui.stderr, "Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}
	a.logger = logger
	a.cleanup.Register("logger", shutdown.PriorityLogger, func(context.Context) error {
		_ = logger.Sync()
		return nil
	})
	for _, key := range cfg.InvalidKeys {
		logger.Warn("ignoring unparseable setting", zap.String("key", key))
	}

	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath, logger)
		if err != nil {
			// The journal only adds diagnostics and crash-loop protection.
			logger.Warn("journal unavailable", zap.Error(err))
		} else {
			a.journal = j
			if _, err := j.Prune(context.Background(), cfg.Retention); err != nil {
				logger.Warn("journal prune failed", zap.Error(err))
			}
			a.cleanup.Register("journal", shutdown.PriorityJournal, func(context.Context) error {
				return j.Close()
			})
		}
	}
	return core.ExitCodeSuccess
}

// setup prepares model artifacts, picks the delegate and initialises the engine.
func (a *app) setup(ctx context.Context) int {
	cfg := a.cfg
	manifest, err := a.prepareModels(ctx)
	if err != nil {
		if ce, ok := core.IsConfigError(err); ok {
			a.ui.configError(ce)
			return core.ExitCodeConfig
		}
		a.ui.fail("Model setup failed", err)
		return core.ExitCodeError
	}

	var available bool
	fingerprint := cfg.DeviceFingerprint
	switch cfg.Accelerator {
	case core.AcceleratorOn:
		available = true
	case core.AcceleratorAuto:
		var info device.Info
		info, available = device.Probe(ctx, a.probe, a.logger)
		if fingerprint == "" {
			fingerprint = info.Fingerprint()
		}
	}

	crashLoop := false
	if a.journal != nil {
		if _, err := a.journal.RecoverCrash(ctx); err != nil {
			a.logger.Warn("crash recovery failed", zap.Error(err))
		}
		crashLoop, err = a.journal.CrashLoopSuspected(ctx, cfg.CrashLoopThreshold, cfg.CrashLoopWindow)
		if err != nil {
			a.logger.Warn("crash loop check failed", zap.Error(err))
		}
	}

	opts := enhance.Options{
		ModelsDir: cfg.ModelsDir,
		Profile:   cfg.Profile,
	}
	if opts.ZeroDCE, err = manifest.Variants(backend.ZeroDCE); err == nil {
		opts.Restormer, err = manifest.Variants(backend.Restormer)
	}
	if err != nil {
		a.ui.fail("Model manifest incomplete", err)
		return core.ExitCodeConfig
	}
	if a.opts.forceCPU || cfg.Accelerator == core.AcceleratorOff {
		opts.ForceCPU, opts.ForceCPUReason = true, "forced"
	}
	enhance.DevicePolicy{Denylist: cfg.DeviceDenylist}.Decide(fingerprint, crashLoop).Apply(&opts)

	var reporters []integrity.Reporter
	if a.journal != nil {
		reporters = append(reporters, a.journal)
	}
	engine, err := enhance.NewEngine(enhance.Config{
		Factory:   &reference.Factory{Accelerator: available, Logger: a.logger},
		Stages:    cfg.Stages,
		Mailbox:   &integrity.Mailbox{},
		Reporters: reporters,
		Progress:  a.ui.progress,
		Logger:    a.logger,
	})
	if err != nil {
		a.ui.fail("Engine setup failed", err)
		return core.ExitCodeConfig
	}
	a.engine = engine
	a.cleanup.Register("engine", shutdown.PriorityEngine, func(context.Context) error {
		engine.Release()
		return nil
	})

	if err := engine.Initialize(ctx, opts); err != nil {
		if f, ok := engine.ConsumeLastIntegrityFailure(); ok {
			a.ui.integrityFailure(f)
		}
		a.ui.fail("Engine initialization failed", err)
		if errors.Is(err, enhance.ErrIntegrity) {
			return core.ExitCodeIntegrity
		}
		return core.ExitCodeError
	}

	delegate, _ := engine.Delegate()
	a.ui.info("Engine ready: %s delegate, %s profile%s", delegate, cfg.Profile, reasonSuffix(opts.ForceCPUReason))
	return core.ExitCodeSuccess
}

func reasonSuffix(reason string) string {
	if reason == "" {
		return ""
	}
	return " (cpu forced: " + reason + ")"
}

// prepareModels bootstraps or installs artifacts as configured and loads
// the manifest from the models directory.
func (a *app) prepareModels(ctx context.Context) (*models.Manifest, error) {
	cfg := a.cfg
	lockPath := filepath.Join(cfg.ModelsDir, models.LockFileName)

	if cfg.ModelSource != "" {
		src, err := models.LoadManifest(filepath.Join(cfg.ModelSource, models.LockFileName))
		if err != nil {
			return nil, err
		}
		in := &models.Installer{Source: os.DirFS(cfg.ModelSource), Dir: cfg.ModelsDir, Manifest: src, Logger: a.logger}
		report, err := in.Install(ctx)
		if err != nil {
			return nil, err
		}
		if len(report.Installed) > 0 {
			if err := src.Save(lockPath); err != nil {
				return nil, err
			}
			a.ui.info("Installed %d model files into %s", len(report.Installed), cfg.ModelsDir)
		}
	}

	if _, err := os.Stat(lockPath); errors.Is(err, os.ErrNotExist) {
		if !a.opts.bootstrap {
			return nil, core.ErrManifestMissing(lockPath)
		}
		m, err := reference.WriteArtifacts(cfg.ModelsDir)
		if err != nil {
			return nil, fmt.Errorf("bootstrap models: %w", err)
		}
		if err := m.Save(lockPath); err != nil {
			return nil, err
		}
		a.ui.info("Generated reference models in %s", cfg.ModelsDir)
		a.logger.Info("reference models generated", zap.String("dir", cfg.ModelsDir))
	}
	return models.LoadManifest(lockPath)
}

func (a *app) printHistory(ctx context.Context, n int) int {
	if a.journal == nil {
		a.ui.fail("Run history unavailable", errors.New("journal is disabled or could not be opened"))
		return core.ExitCodeError
	}
	runs, err := a.journal.RecentRuns(ctx, n)
	if err != nil {
		a.ui.fail("Run history unavailable", err)
		return core.ExitCodeError
	}
	a.ui.history(runs)
	return core.ExitCodeSuccess
}
