//go:build darwin

// Package mididarwin drives MIDI through CoreMIDI. The input path rides the
// CoreMIDI read callback; the output path sends packets straight to the
// selected destination.
package mididarwin

import (
	"fmt"
	"sync"

	"github.com/soundbus/midilink/internal/midi/framing"
	"github.com/soundbus/midilink/internal/midi/report"
	"github.com/soundbus/midilink/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// portConnection is the handle a connected source hands back.
type portConnection interface {
	Disconnect()
}

// In is the CoreMIDI source driver. CoreMIDI invokes the packet callback on
// its own thread; that callback is the only writer of the assembler state.
type In struct {
	mu   sync.Mutex
	opts contracts.Options
	log  contracts.Logger
	rep  *report.Reporter

	client    coremidi.Client
	inputPort coremidi.InputPort
	hasPort   bool
	conn      portConnection
	connected bool

	disp *framing.Dispatcher
	asm  *framing.Assembler
}

// NewIn creates a CoreMIDI client and builds a source driver on it.
func NewIn(opts contracts.Options) (contracts.In, error) {
	client, err := coremidi.NewClient(opts.ClientName)
	if err != nil {
		return nil, fmt.Errorf("creating coremidi client: %w", err)
	}
	rep := report.New(opts.Logger)
	i := &In{
		opts:   opts,
		log:    opts.Logger,
		rep:    rep,
		client: client,
		disp:   framing.NewDispatcher(opts.Receiver, opts.QueueSize, opts.Logger),
	}
	i.asm = framing.NewAssembler(opts.Filter, framing.MonotonicClock(), i.disp.Deliver)
	if opts.ManualPoll != nil {
		rep.Warning(fmt.Errorf("%w: manual polling is not available on this backend", contracts.ErrUnsupported))
	}
	i.log.Info("coremidi input client created")
	return i, nil
}

func (i *In) Messages() <-chan contracts.Message {
	return i.disp.Messages()
}

func (i *In) OpenPort(index int, name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.connected {
		return i.rep.Warning(fmt.Errorf("%w: close the current port first", contracts.ErrPortAlreadyOpen))
	}

	sources, err := coremidi.AllSources()
	if err != nil {
		return i.rep.Error(fmt.Errorf("%w: listing sources: %v", contracts.ErrDriver, err))
	}
	if len(sources) == 0 {
		return i.rep.Error(contracts.ErrNoDevicesFound)
	}
	if index < 0 || index >= len(sources) {
		return i.rep.Error(fmt.Errorf("%w: port index %d outside [0,%d)",
			contracts.ErrInvalidParameter, index, len(sources)))
	}

	if !i.hasPort {
		port, err := coremidi.NewInputPort(i.client, name, i.handlePacket)
		if err != nil {
			return i.rep.Error(fmt.Errorf("%w: creating input port: %v", contracts.ErrDriver, err))
		}
		i.inputPort = port
		i.hasPort = true
	}

	conn, err := i.inputPort.Connect(sources[index])
	if err != nil {
		return i.rep.Error(fmt.Errorf("%w: connecting source: %v", contracts.ErrDriver, err))
	}
	i.conn = conn
	i.connected = true
	return nil
}

func (i *In) handlePacket(source coremidi.Source, packet coremidi.Packet) {
	i.asm.Feed(packet.Data)
}

// OpenVirtualPort cannot be honored: this binding exposes no virtual
// endpoints.
func (i *In) OpenVirtualPort(name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.rep.Warning(fmt.Errorf("%w: virtual ports are not available on this backend", contracts.ErrUnsupported))
}

func (i *In) ClosePort() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closePortLocked()
}

func (i *In) closePortLocked() error {
	if !i.connected {
		return nil
	}
	i.conn.Disconnect()
	i.conn = nil
	i.connected = false
	return nil
}

func (i *In) PortCount() int {
	sources, err := coremidi.AllSources()
	if err != nil {
		return 0
	}
	return len(sources)
}

func (i *In) PortName(index int) (string, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return "", i.rep.Error(fmt.Errorf("%w: listing sources: %v", contracts.ErrDriver, err))
	}
	if index < 0 || index >= len(sources) {
		return "", i.rep.Error(fmt.Errorf("%w: port index %d outside [0,%d)",
			contracts.ErrInvalidParameter, index, len(sources)))
	}
	return sources[index].Name(), nil
}

// SetClientName cannot be honored: a CoreMIDI client's name is fixed at
// creation.
func (i *In) SetClientName(name string) error {
	return i.rep.Warning(fmt.Errorf("%w: coremidi clients cannot be renamed", contracts.ErrUnsupported))
}

// SetPortName cannot be honored: CoreMIDI port names are fixed at creation.
func (i *In) SetPortName(name string) error {
	return i.rep.Warning(fmt.Errorf("%w: coremidi ports cannot be renamed", contracts.ErrUnsupported))
}

func (i *In) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closePortLocked()
}

// Out is the CoreMIDI sink driver.
type Out struct {
	mu   sync.Mutex
	opts contracts.Options
	log  contracts.Logger
	rep  *report.Reporter

	client     coremidi.Client
	outputPort coremidi.OutputPort
	hasPort    bool
	dest       coremidi.Destination
	connected  bool
}

// NewOut creates a CoreMIDI client and builds a sink driver on it.
func NewOut(opts contracts.Options) (contracts.Out, error) {
	client, err := coremidi.NewClient(opts.ClientName)
	if err != nil {
		return nil, fmt.Errorf("creating coremidi client: %w", err)
	}
	o := &Out{
		opts:   opts,
		log:    opts.Logger,
		rep:    report.New(opts.Logger),
		client: client,
	}
	o.log.Info("coremidi output client created")
	return o, nil
}

// SendMessage sends one complete message to the connected destination.
func (o *Out) SendMessage(msg []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.connected {
		return o.rep.Warning(fmt.Errorf("%w: open a port before sending", contracts.ErrNotConnected))
	}
	if len(msg) == 0 {
		return o.rep.Warning(fmt.Errorf("%w: empty message", contracts.ErrInvalidParameter))
	}

	packet := coremidi.NewPacket(msg, 0)
	if err := packet.Send(&o.outputPort, &o.dest); err != nil {
		return o.rep.Warning(fmt.Errorf("sending packet: %w", err))
	}
	return nil
}

func (o *Out) OpenPort(index int, name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.connected {
		return o.rep.Warning(fmt.Errorf("%w: close the current port first", contracts.ErrPortAlreadyOpen))
	}

	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return o.rep.Error(fmt.Errorf("%w: listing destinations: %v", contracts.ErrDriver, err))
	}
	if len(destinations) == 0 {
		return o.rep.Error(contracts.ErrNoDevicesFound)
	}
	if index < 0 || index >= len(destinations) {
		return o.rep.Error(fmt.Errorf("%w: port index %d outside [0,%d)",
			contracts.ErrInvalidParameter, index, len(destinations)))
	}

	if !o.hasPort {
		port, err := coremidi.NewOutputPort(o.client, name)
		if err != nil {
			return o.rep.Error(fmt.Errorf("%w: creating output port: %v", contracts.ErrDriver, err))
		}
		o.outputPort = port
		o.hasPort = true
	}

	o.dest = destinations[index]
	o.connected = true
	return nil
}

// OpenVirtualPort cannot be honored: this binding exposes no virtual
// endpoints.
func (o *Out) OpenVirtualPort(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rep.Warning(fmt.Errorf("%w: virtual ports are not available on this backend", contracts.ErrUnsupported))
}

func (o *Out) ClosePort() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connected = false
	return nil
}

func (o *Out) PortCount() int {
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return 0
	}
	return len(destinations)
}

func (o *Out) PortName(index int) (string, error) {
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return "", o.rep.Error(fmt.Errorf("%w: listing destinations: %v", contracts.ErrDriver, err))
	}
	if index < 0 || index >= len(destinations) {
		return "", o.rep.Error(fmt.Errorf("%w: port index %d outside [0,%d)",
			contracts.ErrInvalidParameter, index, len(destinations)))
	}
	return destinations[index].Name(), nil
}

// SetClientName cannot be honored: a CoreMIDI client's name is fixed at
// creation.
func (o *Out) SetClientName(name string) error {
	return o.rep.Warning(fmt.Errorf("%w: coremidi clients cannot be renamed", contracts.ErrUnsupported))
}

// SetPortName cannot be honored: CoreMIDI port names are fixed at creation.
func (o *Out) SetPortName(name string) error {
	return o.rep.Warning(fmt.Errorf("%w: coremidi ports cannot be renamed", contracts.ErrUnsupported))
}

func (o *Out) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connected = false
	return nil
}
