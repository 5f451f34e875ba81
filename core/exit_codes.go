package core

// Exit codes for the command line tool. Signal exits follow the 128+N
// convention.
const (
	ExitCodeSuccess   = 0
	ExitCodeError     = 1
	ExitCodeConfig    = 2
	ExitCodeIntegrity = 3
	ExitCodeSIGINT    = 130
	ExitCodeSIGTERM   = 143
)

// ExitCodeName returns a human-readable name for an exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitCodeSuccess:
		return "success"
	case ExitCodeError:
		return "error"
	case ExitCodeConfig:
		return "configuration error"
	case ExitCodeIntegrity:
		return "model integrity failure"
	case ExitCodeSIGINT:
		return "interrupted (SIGINT)"
	case ExitCodeSIGTERM:
		return "terminated (SIGTERM)"
	default:
		return "unknown"
	}
}

// IsSignalExit returns true if the exit code indicates a signal-based termination.
func IsSignalExit(code int) bool {
	return code == ExitCodeSIGINT || code == ExitCodeSIGTERM
}
