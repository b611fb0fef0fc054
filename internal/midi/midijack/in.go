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

// portSlot is the snapshot the process callback works from. It is published
// whole through an atomic.Value so the callback never takes the driver lock.
type portSlot struct {
	port port
}

// In is the JACK source driver. The server's process callback reads the
// events pending on the local input port each cycle and feeds them through
// the message assembler; that callback is the only writer of the assembler
// state.
type In struct {
	mu   sync.Mutex
	opts contracts.Options
	log  contracts.Logger
	rep  *report.Reporter
	srv  server
	bind *binding

	slot atomic.Value // portSlot
	disp *framing.Dispatcher
	asm  *framing.Assembler

	closed bool
}

// NewIn connects to the JACK server (or adopts the caller-supplied client)
// and activates a source driver on it.
func NewIn(opts contracts.Options) (contracts.In, error) {
	srv, owned, err := openServer(opts.ClientName, opts.Context)
	if err != nil {
		return nil, fmt.Errorf("connecting to jack server: %w", err)
	}
	return newIn(opts, srv, owned)
}

func newIn(opts contracts.Options, srv server, owned bool) (*In, error) {
	rep := report.New(opts.Logger)
	i := &In{
		opts: opts,
		log:  opts.Logger,
		rep:  rep,
		srv:  srv,
		bind: newBinding(srv, owned, dirIn, rep),
		disp: framing.NewDispatcher(opts.Receiver, opts.QueueSize, opts.Logger),
	}
	i.slot.Store(portSlot{})
	i.asm = framing.NewAssembler(opts.Filter, srv.Now, i.disp.Deliver)

	if opts.ManualPoll != nil {
		rep.Warning(fmt.Errorf("%w: manual polling is not available on this backend", contracts.ErrUnsupported))
	}

	srv.SetProcess(i.process)
	if err := srv.Activate(); err != nil {
		return nil, fmt.Errorf("%w: activating client: %v", contracts.ErrDriver,
			multierr.Append(err, i.bind.close()))
	}
	i.log.Info("jack input client activated")
	return i, nil
}

// process runs on the server's realtime thread once per cycle.
func (i *In) process(nframes uint32) {
	slot, _ := i.slot.Load().(portSlot)
	if slot.port == nil {
		return
	}
	for _, ev := range i.srv.InEvents(slot.port, nframes) {
		i.asm.Feed(ev)
	}
}

func (i *In) Messages() <-chan contracts.Message {
	return i.disp.Messages()
}

func (i *In) OpenPort(index int, name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.bind.openPort(index, name); err != nil {
		return err
	}
	i.slot.Store(portSlot{port: i.bind.local})
	return nil
}

func (i *In) OpenVirtualPort(name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.bind.openVirtualPort(name); err != nil {
		return err
	}
	i.slot.Store(portSlot{port: i.bind.local})
	return nil
}

func (i *In) ClosePort() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.bind.closePort()
}

func (i *In) PortCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.bind.portCount()
}

func (i *In) PortName(index int) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.bind.portName(index)
}

// SetClientName cannot be honored: a JACK client's name is fixed when the
// connection is opened.
func (i *In) SetClientName(name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.rep.Warning(fmt.Errorf("%w: jack clients cannot be renamed after connecting", contracts.ErrUnsupported))
}

func (i *In) SetPortName(name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.bind.setPortName(name)
}

// Close unpublishes the port from the process callback before tearing the
// client down, so a cycle racing with teardown sees an empty slot instead of
// a dangling port. It is idempotent; the client is torn down exactly once.
func (i *In) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	i.slot.Store(portSlot{})
	return i.bind.close()
}
