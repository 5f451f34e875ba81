package integrity

import "sync"

// Failure describes a digest mismatch.
type Failure struct {
	FilePath       string
	ExpectedDigest string
	ActualDigest   string
}

// Reporter receives integrity failures as they are detected.
type Reporter interface {
	Report(f Failure)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(f Failure)

func (fn ReporterFunc) Report(f Failure) { fn(f) }

// Tee fans a failure out to several reporters in order. Nil entries are skipped.
func Tee(reporters ...Reporter) Reporter {
	return ReporterFunc(func(f Failure) {
		for _, r := range reporters {
			if r != nil {
				r.Report(f)
			}
		}
	})
}

// Mailbox holds at most one unread Failure. A newer report replaces an unread
// one; Consume returns it once and empties the slot.
type Mailbox struct {
	mu      sync.Mutex
	pending *Failure
}

// Report stores f, replacing any unread failure.
func (m *Mailbox) Report(f Failure) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = &f
}

// Consume returns and clears the stored failure. ok is false when the slot
// was empty.
func (m *Mailbox) Consume() (f Failure, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return Failure{}, false
	}
	f = *m.pending
	m.pending = nil
	return f, true
}

// DefaultMailbox is the process-wide slot used when no mailbox is supplied.
var DefaultMailbox = &Mailbox{}
