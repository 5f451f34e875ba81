package integrity

import (
	"go.uber.org/zap"

	"go_enhance/logging"
)

// Gate refuses artifacts whose digest does not match the expected value.
type Gate struct {
	reporter Reporter
	logger   *logging.Logger
}

// NewGate returns a gate that records mismatches into reporter. A nil
// reporter selects DefaultMailbox; a nil logger disables logging.
func NewGate(reporter Reporter, logger *logging.Logger) *Gate {
	if reporter == nil {
		reporter = DefaultMailbox
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Gate{reporter: reporter, logger: logger.Named("integrity")}
}

// Verify reports whether the file at path hashes to expected. It fails closed:
// an empty expected digest or an unreadable file is a failure. Only a real
// mismatch between two digests is reported as a Failure.
func (g *Gate) Verify(path, expected string) bool {
	want := Normalize(expected)
	if want == "" {
		g.logger.Warn("no expected digest supplied", zap.String("path", path))
		return false
	}

	actual := ComputeDigest(path)
	if actual == "" {
		g.logger.Warn("artifact unreadable", zap.String("path", path))
		return false
	}

	if actual != want {
		g.logger.Error("artifact digest mismatch",
			zap.String("path", path),
			zap.String("expected", want),
			zap.String("actual", actual),
		)
		g.reporter.Report(Failure{FilePath: path, ExpectedDigest: want, ActualDigest: actual})
		return false
	}

	g.logger.Debug("artifact verified", zap.String("path", path))
	return true
}
