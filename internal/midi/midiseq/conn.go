package midiseq

import (
	"fmt"

	"github.com/soundbus/midilink/internal/midi/report"
	"github.com/soundbus/midilink/sdk/contracts"
	"go.uber.org/multierr"
)

// conn owns the native client, the local port and the single active
// subscription of one driver instance. Both driver directions share this
// state machine; only the transmit and receive paths differ.
type conn struct {
	seq   sequencer
	owned bool // the driver opened the client and must close it
	dir   direction
	rep   *report.Reporter

	vport     int
	sub       subscription
	connected bool
}

func newConn(seq sequencer, owned bool, dir direction, rep *report.Reporter) *conn {
	return &conn{seq: seq, owned: owned, dir: dir, rep: rep, vport: -1}
}

func (c *conn) openPort(index int, name string) error {
	if c.connected {
		return c.rep.Warning(fmt.Errorf("%w: close the current port first", contracts.ErrPortAlreadyOpen))
	}

	remotes := c.seq.EnumerateRemote(c.dir)
	if len(remotes) == 0 {
		return c.rep.Error(contracts.ErrNoDevicesFound)
	}
	if index < 0 || index >= len(remotes) {
		return c.rep.Error(fmt.Errorf("%w: port index %d outside [0,%d)",
			contracts.ErrInvalidParameter, index, len(remotes)))
	}

	if c.vport < 0 {
		vport, err := c.seq.CreatePort(name, c.dir)
		if err != nil {
			return c.rep.Error(fmt.Errorf("%w: creating local port: %v", contracts.ErrDriver, err))
		}
		c.vport = vport
	}

	local := seqAddr{client: c.seq.ClientID(), port: c.vport}
	sender, dest := local, remotes[index].addr
	if c.dir == dirIn {
		sender, dest = remotes[index].addr, local
	}
	sub, err := c.seq.Subscribe(sender, dest)
	if err != nil {
		return c.rep.Error(fmt.Errorf("%w: binding subscription: %v", contracts.ErrDriver, err))
	}

	c.sub = sub
	c.connected = true
	return nil
}

func (c *conn) openVirtualPort(name string) error {
	if c.vport >= 0 {
		return nil
	}
	vport, err := c.seq.CreatePort(name, c.dir)
	if err != nil {
		return c.rep.Error(fmt.Errorf("%w: creating virtual port: %v", contracts.ErrDriver, err))
	}
	c.vport = vport
	return nil
}

// closePort is idempotent: closing while already disconnected is a no-op.
func (c *conn) closePort() error {
	if !c.connected {
		return nil
	}
	sub := c.sub
	c.sub = nil
	c.connected = false
	if err := c.seq.Unsubscribe(sub); err != nil {
		return c.rep.Warning(fmt.Errorf("releasing subscription: %w", err))
	}
	return nil
}

func (c *conn) portCount() int {
	return len(c.seq.EnumerateRemote(c.dir))
}

func (c *conn) portName(index int) (string, error) {
	remotes := c.seq.EnumerateRemote(c.dir)
	if index < 0 || index >= len(remotes) {
		return "", c.rep.Error(fmt.Errorf("%w: port index %d outside [0,%d)",
			contracts.ErrInvalidParameter, index, len(remotes)))
	}
	return remotes[index].info.Name, nil
}

func (c *conn) setClientName(name string) error {
	if err := c.seq.SetClientName(name); err != nil {
		return c.rep.Warning(fmt.Errorf("renaming client: %w", err))
	}
	return nil
}

func (c *conn) setPortName(name string) error {
	if c.vport < 0 {
		return c.rep.Warning(fmt.Errorf("%w: no local port exists yet", contracts.ErrNotConnected))
	}
	if err := c.seq.SetPortName(c.vport, name); err != nil {
		return c.rep.Warning(fmt.Errorf("renaming port: %w", err))
	}
	return nil
}

// close tears down in reverse acquisition order: subscription, local port,
// then the client. A caller-owned client is released, never closed.
func (c *conn) close() error {
	err := c.closePort()
	if c.vport >= 0 {
		err = multierr.Append(err, c.seq.DeletePort(c.vport))
		c.vport = -1
	}
	if c.owned {
		err = multierr.Append(err, c.seq.Close())
	} else {
		err = multierr.Append(err, c.seq.Release())
	}
	return err
}
