package contracts

// Backend selects the native subsystem a driver binds to.
type Backend string

const (
	// BackendSeq is the packet-routing sequencer service (ALSA sequencer).
	BackendSeq Backend = "seq"
	// BackendJack is the low-latency audio/MIDI server (JACK).
	BackendJack Backend = "jack"
	// BackendPortMidi is the cross-platform PortMidi service.
	BackendPortMidi Backend = "portmidi"
	// BackendCoreMIDI is the macOS CoreMIDI service.
	BackendCoreMIDI Backend = "coremidi"
)

// Driver is the lifecycle contract shared by every backend. Lifecycle calls
// must be serialized by the caller; drivers do not support concurrent
// OpenPort/ClosePort from multiple goroutines.
type Driver interface {
	// OpenPort binds a subscription between a lazily created local endpoint
	// and the remote endpoint at index within the current enumeration. It
	// fails with ErrPortAlreadyOpen while a connection is active, with
	// ErrNoDevicesFound when no remotes are visible, and with
	// ErrInvalidParameter when index is out of range; in every failure case
	// the prior connection state is unchanged.
	OpenPort(index int, name string) error

	// OpenVirtualPort creates and advertises a local endpoint without binding
	// to a remote peer. External peers connect to it asynchronously; the
	// driver does not transition to the connected state.
	OpenVirtualPort(name string) error

	// ClosePort releases the active subscription if one exists. It is
	// idempotent; closing an already-closed port is a no-op.
	ClosePort() error

	// PortCount re-enumerates the remote endpoints matching this driver's
	// direction and returns how many are visible. An unreachable native
	// service yields 0, not an error.
	PortCount() int

	// PortName re-enumerates and returns the display name at index. Index
	// validity is only guaranteed within a single enumeration pass.
	PortName(index int) (string, error)

	// SetClientName renames the native client. Backends whose transport
	// cannot rename post-creation report a warning and leave the name
	// unchanged.
	SetClientName(name string) error

	// SetPortName renames the local endpoint, with the same caveat as
	// SetClientName.
	SetPortName(name string) error

	// Close tears down the driver: subscription, local endpoint, codec state
	// and finally the native client, in reverse acquisition order. A native
	// context supplied by the caller is never closed.
	Close() error
}

// In is a source driver: it receives messages from remote endpoints.
type In interface {
	Driver

	// Messages is the pull-side delivery queue, used when no Receiver
	// callback is configured. The producer side never blocks; messages are
	// dropped with a logged warning when the queue is full.
	Messages() <-chan Message
}

// Out is a sink driver: it sends messages to remote endpoints.
type Out interface {
	Driver

	// SendMessage encodes and queues one complete MIDI message for
	// transmission, then asks the native subsystem to drain its output
	// queue. On return the message is transmit-queued, not necessarily on
	// the wire. A mid-message encode or queue failure aborts the remaining
	// chunks with a warning; chunks already queued are not retracted.
	SendMessage(msg []byte) error
}
