// Package report implements the shared warning/error side channel used by
// every backend driver. Conditions are tagged with a severity and recorded in
// a last-error slot in addition to being logged; nothing reported here ever
// unwinds through a native real-time callback.
package report

import (
	"sync"

	"github.com/soundbus/midilink/sdk/contracts"
)

// Reporter records and logs recoverable warnings and driver errors.
type Reporter struct {
	log contracts.Logger

	mu       sync.Mutex
	last     error
	lastSev  contracts.Severity
	reported bool
}

// New returns a Reporter logging through log.
func New(log contracts.Logger) *Reporter {
	return &Reporter{log: log}
}

// Warning records err as a recoverable condition and returns it. The caller
// typically returns the result directly.
func (r *Reporter) Warning(err error) error {
	return r.report(contracts.SeverityWarning, err)
}

// Error records err as a driver error and returns it. Driver errors may leave
// the instance non-functional until reconstructed.
func (r *Reporter) Error(err error) error {
	return r.report(contracts.SeverityDriverError, err)
}

// Report records err with the severity derived from the error taxonomy.
func (r *Reporter) Report(err error) error {
	return r.report(contracts.SeverityOf(err), err)
}

func (r *Reporter) report(sev contracts.Severity, err error) error {
	if err == nil {
		return nil
	}

	r.mu.Lock()
	r.last = err
	r.lastSev = sev
	r.reported = true
	r.mu.Unlock()

	switch sev {
	case contracts.SeverityDriverError:
		r.log.Error(err.Error())
	default:
		r.log.Warn(err.Error())
	}
	return err
}

// Last returns the most recently reported condition and its severity, and
// whether anything has been reported at all. Callers needing hard failure
// semantics on the receive path inspect this instead of relying on control
// flow out of the native callback.
func (r *Reporter) Last() (error, contracts.Severity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.lastSev, r.reported
}
