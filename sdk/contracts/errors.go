package contracts

import "errors"

// Severity classifies a reported condition.
type Severity int

const (
	// SeverityWarning marks a recoverable condition: the operation had no
	// effect but the driver remains usable.
	SeverityWarning Severity = iota
	// SeverityDriverError marks a condition that may leave the driver
	// non-functional until reconstructed.
	SeverityDriverError
)

// Error taxonomy shared by all backends. Per-call failures wrap one of these
// sentinels so callers can classify with errors.Is.
var (
	// ErrNoDevicesFound is reported when the registry is empty at connect
	// time.
	ErrNoDevicesFound = errors.New("no MIDI devices found")
	// ErrInvalidParameter is reported for an index outside the enumerated
	// range or an otherwise malformed argument.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrDriver is reported for native resource creation, subscription or
	// encoding failures.
	ErrDriver = errors.New("driver error")
	// ErrPortAlreadyOpen is reported when OpenPort is called while a
	// connection is active. The existing connection is untouched.
	ErrPortAlreadyOpen = errors.New("a valid connection already exists")
	// ErrNotConnected is reported when a send or receive operation requires
	// an open port and none exists.
	ErrNotConnected = errors.New("no port connection")
	// ErrUnsupported is reported for operations the current backend's
	// transport cannot perform.
	ErrUnsupported = errors.New("operation not supported by this backend")
	// ErrBackendUnavailable is reported when the requested backend is not
	// built for the current platform.
	ErrBackendUnavailable = errors.New("backend not available on this platform")
)

// SeverityOf maps an error to its reporting severity. Unknown errors are
// treated as warnings: the operation failed but nothing suggests the driver
// itself is broken.
func SeverityOf(err error) Severity {
	switch {
	case errors.Is(err, ErrNoDevicesFound),
		errors.Is(err, ErrInvalidParameter),
		errors.Is(err, ErrDriver),
		errors.Is(err, ErrBackendUnavailable):
		return SeverityDriverError
	default:
		return SeverityWarning
	}
}
