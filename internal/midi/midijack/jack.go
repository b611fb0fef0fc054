// Package midijack drives MIDI input and output through a JACK server.
// Unlike the sequencer backend, JACK pushes work at the driver: the server
// invokes a process callback once per audio cycle on its realtime thread,
// and all port I/O happens inside that callback. The drivers therefore keep
// the callback path lock-free and hand state to it through atomic snapshots.
package midijack

import (
	"fmt"

	"github.com/soundbus/midilink/internal/midi/report"
	"github.com/soundbus/midilink/sdk/contracts"
	"go.uber.org/multierr"
)

type direction int

const (
	dirIn direction = iota
	dirOut
)

// port is an opaque handle to a port registered on the local client.
type port interface{}

// server abstracts the JACK client a driver runs on. The cgo binding
// implements it against libjack; tests script it with a fake that invokes
// the process callback directly.
type server interface {
	ClientName() string
	PortNameSize() int

	Register(name string, dir direction) (port, error)
	Unregister(p port) error
	RenamePort(p port, name string) error

	// RemotePorts lists the full names of every port a local port of the
	// given direction could be wired to.
	RemotePorts(dir direction) []string
	Connect(local port, remote string, dir direction) error
	Disconnect(local port, remote string, dir direction) error

	// SetProcess installs the per-cycle callback. It must be called before
	// Activate.
	SetProcess(fn func(nframes uint32))
	Activate() error

	// Now reports the server transport time in microseconds.
	Now() uint64

	// InEvents returns the MIDI events pending on an input port for the
	// current cycle. Only valid inside the process callback.
	InEvents(p port, nframes uint32) [][]byte
	// ClearOut resets an output port's cycle buffer; WriteOut appends one
	// event to it. Only valid inside the process callback.
	ClearOut(p port, nframes uint32)
	WriteOut(p port, nframes uint32, data []byte) error

	// Release detaches from a caller-owned client; Close also closes an
	// owned one.
	Release() error
	Close() error
}

// binding holds the graph state one driver instance maintains on its server:
// the local port and the single remote connection. Both directions share it.
type binding struct {
	srv   server
	owned bool
	dir   direction
	rep   *report.Reporter

	local     port
	remote    string
	connected bool
}

func newBinding(srv server, owned bool, dir direction, rep *report.Reporter) *binding {
	return &binding{srv: srv, owned: owned, dir: dir, rep: rep}
}

func (b *binding) checkPortName(name string) error {
	if limit := b.srv.PortNameSize(); len(name) >= limit {
		return b.rep.Error(fmt.Errorf("%w: port name %q exceeds the server limit of %d bytes",
			contracts.ErrInvalidParameter, name, limit))
	}
	return nil
}

func (b *binding) openPort(index int, name string) error {
	if b.connected {
		return b.rep.Warning(fmt.Errorf("%w: close the current port first", contracts.ErrPortAlreadyOpen))
	}

	remotes := b.srv.RemotePorts(b.dir)
	if len(remotes) == 0 {
		return b.rep.Error(contracts.ErrNoDevicesFound)
	}
	if index < 0 || index >= len(remotes) {
		return b.rep.Error(fmt.Errorf("%w: port index %d outside [0,%d)",
			contracts.ErrInvalidParameter, index, len(remotes)))
	}
	if err := b.checkPortName(name); err != nil {
		return err
	}

	if b.local == nil {
		local, err := b.srv.Register(name, b.dir)
		if err != nil {
			return b.rep.Error(fmt.Errorf("%w: registering local port: %v", contracts.ErrDriver, err))
		}
		b.local = local
	}

	if err := b.srv.Connect(b.local, remotes[index], b.dir); err != nil {
		return b.rep.Error(fmt.Errorf("%w: wiring %q: %v", contracts.ErrDriver, remotes[index], err))
	}
	b.remote = remotes[index]
	b.connected = true
	return nil
}

func (b *binding) openVirtualPort(name string) error {
	if b.local != nil {
		return nil
	}
	if err := b.checkPortName(name); err != nil {
		return err
	}
	local, err := b.srv.Register(name, b.dir)
	if err != nil {
		return b.rep.Error(fmt.Errorf("%w: registering virtual port: %v", contracts.ErrDriver, err))
	}
	b.local = local
	return nil
}

// closePort unwires the remote connection but keeps the local port
// registered for reuse. Closing while disconnected is a no-op.
func (b *binding) closePort() error {
	if !b.connected {
		return nil
	}
	remote := b.remote
	b.remote = ""
	b.connected = false
	if err := b.srv.Disconnect(b.local, remote, b.dir); err != nil {
		return b.rep.Warning(fmt.Errorf("unwiring %q: %w", remote, err))
	}
	return nil
}

func (b *binding) portCount() int {
	return len(b.srv.RemotePorts(b.dir))
}

func (b *binding) portName(index int) (string, error) {
	remotes := b.srv.RemotePorts(b.dir)
	if index < 0 || index >= len(remotes) {
		return "", b.rep.Error(fmt.Errorf("%w: port index %d outside [0,%d)",
			contracts.ErrInvalidParameter, index, len(remotes)))
	}
	return remotes[index], nil
}

func (b *binding) setPortName(name string) error {
	if b.local == nil {
		return b.rep.Warning(fmt.Errorf("%w: no local port exists yet", contracts.ErrNotConnected))
	}
	if err := b.checkPortName(name); err != nil {
		return err
	}
	if err := b.srv.RenamePort(b.local, name); err != nil {
		return b.rep.Warning(fmt.Errorf("renaming port: %w", err))
	}
	return nil
}

// close tears down in reverse acquisition order. The caller must have
// unpublished the port from its process callback before calling this.
func (b *binding) close() error {
	err := b.closePort()
	if b.local != nil {
		err = multierr.Append(err, b.srv.Unregister(b.local))
		b.local = nil
	}
	if b.owned {
		err = multierr.Append(err, b.srv.Close())
	} else {
		err = multierr.Append(err, b.srv.Release())
	}
	return err
}
