// Package midiseq implements the sequencer-service backend: a native client
// addressing remote endpoints through port and subscription objects, with an
// event-encoder transmit path. This is the ALSA sequencer programming model.
package midiseq

import (
	"time"

	"github.com/soundbus/midilink/sdk/contracts"
)

type direction int

const (
	dirIn direction = iota
	dirOut
)

// seqAddr identifies one endpoint on the sequencer bus.
type seqAddr struct {
	client int
	port   int
}

// remotePort is one addressable remote endpoint from an enumeration pass.
type remotePort struct {
	addr seqAddr
	info contracts.PortInfo
}

// subscription is the opaque native subscription handle returned by
// sequencer.Subscribe and owned exclusively by the driver that created it.
type subscription interface{}

// nativeEvent is one encoded native sequencer event.
type nativeEvent interface{}

// encoder translates raw MIDI bytes into native sequencer events. Its
// scratch buffer grows monotonically via Resize and is never shrunk.
type encoder interface {
	// Resize grows the encoder's scratch buffer to exactly n bytes.
	Resize(n int) error
	// Encode consumes leading bytes of b and produces at most one native
	// event. ev is nil when the encoder consumed bytes without completing an
	// event.
	Encode(b []byte) (consumed int, ev nativeEvent, err error)
	Free()
}

// sequencer is the narrow slice of the native sequencer API the drivers use.
// The production implementation is the cgo binding in seq_linux.go; tests
// inject fakes.
type sequencer interface {
	ClientID() int
	SetClientName(name string) error

	CreatePort(name string, dir direction) (int, error)
	DeletePort(port int) error
	SetPortName(port int, name string) error

	// EnumerateRemote lists the remote endpoints a driver of the given
	// direction can bind to. The result is a snapshot; indexes are not
	// stable across calls.
	EnumerateRemote(dir direction) []remotePort

	Subscribe(sender, dest seqAddr) (subscription, error)
	Unsubscribe(sub subscription) error

	NewEncoder(size int) (encoder, error)
	// Output queues one encoded event for transmission from the local port.
	Output(port int, ev nativeEvent) error
	// Drain asks the subsystem to flush its output queue. Queued events are
	// transmit-queued, not necessarily wire-transmitted, on return.
	Drain() error

	PollDescriptors() []contracts.PollDescriptor
	// Wait blocks until an inbound event is pending or the timeout elapses.
	Wait(timeout time.Duration) (bool, error)
	// ReadEvent pops the next pending inbound event decoded to raw MIDI
	// bytes. ok is false when the input queue is empty; events with no MIDI
	// payload yield ok true with nil data.
	ReadEvent() (data []byte, ok bool, err error)

	// Release frees codec state without closing the client; used when the
	// client handle is caller-owned.
	Release() error
	// Close releases codec state and the client itself.
	Close() error
}
