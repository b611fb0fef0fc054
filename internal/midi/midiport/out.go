//go:build cgo

package midiport

import (
	"fmt"
	"sync"

	"github.com/rakyll/portmidi"
	"github.com/soundbus/midilink/internal/midi/report"
	"github.com/soundbus/midilink/sdk/contracts"
	"go.uber.org/multierr"
)

// Out is the PortMidi sink driver. Messages go straight to the open output
// stream; PortMidi does its own buffering, so there is no transmit queue.
type Out struct {
	mu   sync.Mutex
	opts contracts.Options
	log  contracts.Logger
	rep  *report.Reporter

	stream    *portmidi.Stream
	connected bool
	closed    bool
}

// NewOut initializes PortMidi (refcounted) and builds a sink driver.
func NewOut(opts contracts.Options) (contracts.Out, error) {
	if err := acquire(); err != nil {
		return nil, fmt.Errorf("%w: initializing portmidi: %v", contracts.ErrBackendUnavailable, err)
	}
	o := &Out{
		opts: opts,
		log:  opts.Logger,
		rep:  report.New(opts.Logger),
	}
	o.log.Info("portmidi output driver created")
	return o, nil
}

// SendMessage writes one complete message. SysEx goes through the
// variable-length path; everything else is packed into a short event.
func (o *Out) SendMessage(msg []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.connected {
		return o.rep.Warning(fmt.Errorf("%w: open a port before sending", contracts.ErrNotConnected))
	}
	if len(msg) == 0 {
		return o.rep.Warning(fmt.Errorf("%w: empty message", contracts.ErrInvalidParameter))
	}

	if msg[0] == 0xF0 {
		if err := o.stream.WriteSysExBytes(0, msg); err != nil {
			return o.rep.Warning(fmt.Errorf("writing sysex: %w", err))
		}
		return nil
	}

	if len(msg) > 3 {
		return o.rep.Warning(fmt.Errorf("%w: %d byte message does not fit a short event",
			contracts.ErrInvalidParameter, len(msg)))
	}
	var d1, d2 int64
	if len(msg) > 1 {
		d1 = int64(msg[1])
	}
	if len(msg) > 2 {
		d2 = int64(msg[2])
	}
	if err := o.stream.WriteShort(int64(msg[0]), d1, d2); err != nil {
		return o.rep.Warning(fmt.Errorf("writing event: %w", err))
	}
	return nil
}

func (o *Out) OpenPort(index int, name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.connected {
		return o.rep.Warning(fmt.Errorf("%w: close the current port first", contracts.ErrPortAlreadyOpen))
	}

	devices := enumerate(dirOut)
	if len(devices) == 0 {
		return o.rep.Error(contracts.ErrNoDevicesFound)
	}
	if index < 0 || index >= len(devices) {
		return o.rep.Error(fmt.Errorf("%w: port index %d outside [0,%d)",
			contracts.ErrInvalidParameter, index, len(devices)))
	}

	stream, err := portmidi.NewOutputStream(devices[index].id, streamBuffer, 0)
	if err != nil {
		return o.rep.Error(fmt.Errorf("%w: opening output stream: %v", contracts.ErrDriver, err))
	}
	o.stream = stream
	o.connected = true
	return nil
}

// OpenVirtualPort cannot be honored: PortMidi exposes no virtual endpoints.
func (o *Out) OpenVirtualPort(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rep.Warning(fmt.Errorf("%w: portmidi has no virtual ports", contracts.ErrUnsupported))
}

func (o *Out) ClosePort() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closePortLocked()
}

func (o *Out) closePortLocked() error {
	if !o.connected {
		return nil
	}
	stream := o.stream
	o.stream = nil
	o.connected = false
	if err := stream.Close(); err != nil {
		return o.rep.Warning(fmt.Errorf("closing output stream: %w", err))
	}
	return nil
}

func (o *Out) PortCount() int {
	return len(enumerate(dirOut))
}

func (o *Out) PortName(index int) (string, error) {
	devices := enumerate(dirOut)
	if index < 0 || index >= len(devices) {
		return "", o.rep.Error(fmt.Errorf("%w: port index %d outside [0,%d)",
			contracts.ErrInvalidParameter, index, len(devices)))
	}
	return devices[index].info.Name, nil
}

// SetClientName cannot be honored: PortMidi has no client identity.
func (o *Out) SetClientName(name string) error {
	return o.rep.Warning(fmt.Errorf("%w: portmidi has no client name", contracts.ErrUnsupported))
}

// SetPortName cannot be honored: PortMidi ports belong to the device.
func (o *Out) SetPortName(name string) error {
	return o.rep.Warning(fmt.Errorf("%w: portmidi ports cannot be renamed", contracts.ErrUnsupported))
}

// Close is idempotent; the library reference is dropped exactly once.
func (o *Out) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	return multierr.Append(o.closePortLocked(), release())
}
