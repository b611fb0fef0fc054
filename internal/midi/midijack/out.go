package midijack

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/soundbus/midilink/internal/midi/framing"
	"github.com/soundbus/midilink/internal/midi/report"
	"github.com/soundbus/midilink/sdk/contracts"
	"go.uber.org/multierr"
)

// Out is the JACK sink driver. SendMessage never touches the server
// directly: it enqueues onto a bounded ring that the process callback drains
// into the port's cycle buffer, keeping the realtime path free of locks and
// caller aliasing.
type Out struct {
	mu   sync.Mutex
	opts contracts.Options
	log  contracts.Logger
	rep  *report.Reporter
	srv  server
	bind *binding

	slot atomic.Value // portSlot
	ring chan []byte

	closed bool
}

// NewOut connects to the JACK server (or adopts the caller-supplied client)
// and activates a sink driver on it.
func NewOut(opts contracts.Options) (contracts.Out, error) {
	srv, owned, err := openServer(opts.ClientName, opts.Context)
	if err != nil {
		return nil, fmt.Errorf("connecting to jack server: %w", err)
	}
	return newOut(opts, srv, owned)
}

func newOut(opts contracts.Options, srv server, owned bool) (*Out, error) {
	size := opts.QueueSize
	if size <= 0 {
		size = framing.DefaultQueueSize
	}
	rep := report.New(opts.Logger)
	o := &Out{
		opts: opts,
		log:  opts.Logger,
		rep:  rep,
		srv:  srv,
		bind: newBinding(srv, owned, dirOut, rep),
		ring: make(chan []byte, size),
	}
	o.slot.Store(portSlot{})

	srv.SetProcess(o.process)
	if err := srv.Activate(); err != nil {
		return nil, fmt.Errorf("%w: activating client: %v", contracts.ErrDriver,
			multierr.Append(err, o.bind.close()))
	}
	o.log.Info("jack output client activated")
	return o, nil
}

// process runs on the server's realtime thread once per cycle.
func (o *Out) process(nframes uint32) {
	slot, _ := o.slot.Load().(portSlot)
	if slot.port == nil {
		return
	}
	o.srv.ClearOut(slot.port, nframes)
	for {
		select {
		case msg := <-o.ring:
			if err := o.srv.WriteOut(slot.port, nframes, msg); err != nil {
				// No room left in this cycle's buffer; the message is lost.
				return
			}
		default:
			return
		}
	}
}

// SendMessage queues one complete message for the next cycle. The bytes are
// copied, so the caller may reuse its buffer immediately.
func (o *Out) SendMessage(msg []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.bind.local == nil {
		return o.rep.Warning(fmt.Errorf("%w: open a port before sending", contracts.ErrNotConnected))
	}
	if len(msg) == 0 {
		return o.rep.Warning(fmt.Errorf("%w: empty message", contracts.ErrInvalidParameter))
	}

	buf := make([]byte, len(msg))
	copy(buf, msg)
	select {
	case o.ring <- buf:
		return nil
	default:
		return o.rep.Warning(fmt.Errorf("transmit ring full; dropping %d byte message", len(msg)))
	}
}

func (o *Out) OpenPort(index int, name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.bind.openPort(index, name); err != nil {
		return err
	}
	o.slot.Store(portSlot{port: o.bind.local})
	return nil
}

func (o *Out) OpenVirtualPort(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.bind.openVirtualPort(name); err != nil {
		return err
	}
	o.slot.Store(portSlot{port: o.bind.local})
	return nil
}

func (o *Out) ClosePort() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bind.closePort()
}

func (o *Out) PortCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bind.portCount()
}

func (o *Out) PortName(index int) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bind.portName(index)
}

// SetClientName cannot be honored: a JACK client's name is fixed when the
// connection is opened.
func (o *Out) SetClientName(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rep.Warning(fmt.Errorf("%w: jack clients cannot be renamed after connecting", contracts.ErrUnsupported))
}

func (o *Out) SetPortName(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bind.setPortName(name)
}

// Close unpublishes the port from the process callback before tearing the
// client down. Messages still queued on the ring are discarded. It is
// idempotent; the client is torn down exactly once.
func (o *Out) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	o.slot.Store(portSlot{})
	return o.bind.close()
}
