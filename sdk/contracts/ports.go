package contracts

// PortInfo describes one remote endpoint visible to the native subsystem at
// enumeration time. Indexes are positions within a single enumeration pass
// and are not stable across calls; live device topology may change between
// any two queries.
type PortInfo struct {
	Name string
	// CanReceive reports whether the remote endpoint accepts data sent to it.
	CanReceive bool
	// CanSend reports whether the remote endpoint emits data that can be
	// subscribed to.
	CanSend bool
}

// PollDescriptor is one native file descriptor an input driver waits on for
// pending events.
type PollDescriptor struct {
	FD     int32
	Events int16
}

// PollFunc is a caller-supplied readiness predicate for input drivers that
// support manual polling. When configured, the driver does not wait on the
// descriptors itself; it calls the predicate and reads pending events when it
// returns true. Returning false stops the receive loop.
type PollFunc func(fds []PollDescriptor) bool
