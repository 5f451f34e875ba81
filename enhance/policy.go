package enhance

import "strings"

// Reasons recorded when the policy keeps a device on CPU.
const (
	ReasonDeviceDenylist = "device_blacklist"
	ReasonCrashLoop      = "crash_loop"
)

// DevicePolicy decides whether a device may use the accelerated delegate.
// Denylist entries match a device fingerprint case-insensitively; an entry
// ending in "*" matches by prefix.
type DevicePolicy struct {
	Denylist []string
}

// Decision is the outcome of DevicePolicy.Decide.
type Decision struct {
	ForceCPU bool
	Reason   string
}

// Decide applies the denylist, then the crash-loop signal.
func (p DevicePolicy) Decide(fingerprint string, crashLoopSuspected bool) Decision {
	if p.denied(fingerprint) {
		return Decision{ForceCPU: true, Reason: ReasonDeviceDenylist}
	}
	if crashLoopSuspected {
		return Decision{ForceCPU: true, Reason: ReasonCrashLoop}
	}
	return Decision{}
}

func (p DevicePolicy) denied(fingerprint string) bool {
	fp := strings.ToLower(strings.TrimSpace(fingerprint))
	if fp == "" {
		return false
	}
	for _, entry := range p.Denylist {
		e := strings.ToLower(strings.TrimSpace(entry))
		if prefix, ok := strings.CutSuffix(e, "*"); ok {
			if prefix != "" && strings.HasPrefix(fp, prefix) {
				return true
			}
			continue
		}
		if e == fp {
			return true
		}
	}
	return false
}

// Apply merges the decision into opts. An explicit ForceCPU already present
// in opts keeps its own reason.
func (d Decision) Apply(opts *Options) {
	if !d.ForceCPU || opts.ForceCPU {
		return
	}
	opts.ForceCPU = true
	opts.ForceCPUReason = d.Reason
}
