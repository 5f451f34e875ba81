package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"go_enhance/integrity"
	"go_enhance/logging"
)

var (
	// ErrTooSmall is returned for artifacts below the manifest's min_bytes.
	ErrTooSmall = errors.New("models: artifact smaller than expected")

	// ErrVerifyFailed is returned when a freshly copied artifact does not hash
	// to its manifest digest.
	ErrVerifyFailed = errors.New("models: installed artifact failed verification")
)

// Installer copies manifest artifacts from Source into Dir.
type Installer struct {
	Source   fs.FS
	Dir      string
	Manifest *Manifest
	Logger   *logging.Logger
}

// InstallReport lists what Install did per artifact file name.
type InstallReport struct {
	Installed []string
	Present   []string
}

// Install copies each artifact that is missing from Dir, below its minimum
// size or failing its digest, then verifies the copy. Artifacts that already
// verify are left untouched.
func (in *Installer) Install(ctx context.Context) (InstallReport, error) {
	var report InstallReport
	if in.Manifest == nil {
		return report, errors.New("models: installer has no manifest")
	}
	if err := os.MkdirAll(in.Dir, 0o755); err != nil {
		return report, fmt.Errorf("models: create %s: %w", in.Dir, err)
	}

	logger := in.Logger.Named("installer")
	for _, f := range in.Manifest.Files() {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		name := path.Base(f.Path)
		dest := filepath.Join(in.Dir, name)
		if CheckFile(dest, f) == nil {
			report.Present = append(report.Present, name)
			continue
		}

		logger.Info("installing artifact", zap.String("file", name))
		if err := in.copy(f.Path, dest); err != nil {
			return report, err
		}
		if err := CheckFile(dest, f); err != nil {
			_ = os.Remove(dest)
			return report, err
		}
		report.Installed = append(report.Installed, name)
	}
	return report, nil
}

func (in *Installer) copy(src, dest string) error {
	if in.Source == nil {
		return fmt.Errorf("models: no source for %s", src)
	}
	r, err := in.Source.Open(src)
	if err != nil {
		return fmt.Errorf("models: open source %s: %w", src, err)
	}
	defer r.Close()

	tmp := dest + ".tmp"
	w, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("models: create %s: %w", tmp, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		os.Remove(tmp)
		return fmt.Errorf("models: copy %s: %w", src, err)
	}
	if err := w.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}

// CheckFile verifies an installed artifact against its manifest entry. The
// size floor is checked before hashing.
func CheckFile(file string, f FileEntry) error {
	st, err := os.Stat(file)
	if err != nil {
		return err
	}
	if st.Size() < f.MinBytes {
		return fmt.Errorf("%w: %s is %d bytes, want at least %d", ErrTooSmall, file, st.Size(), f.MinBytes)
	}
	if got := integrity.ComputeDigest(file); got == "" || got != integrity.Normalize(f.SHA256) {
		return fmt.Errorf("%w: %s", ErrVerifyFailed, file)
	}
	return nil
}
