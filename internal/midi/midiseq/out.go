package midiseq

import (
	"errors"
	"fmt"
	"sync"

	"github.com/soundbus/midilink/internal/midi/report"
	"github.com/soundbus/midilink/sdk/contracts"
)

// initialEncodeSize is the encode buffer capacity a fresh sink starts with.
// It grows on demand to the largest message sent and never shrinks.
const initialEncodeSize = 32

// Out is the sequencer sink driver.
type Out struct {
	mu   sync.Mutex
	opts contracts.Options
	log  contracts.Logger
	rep  *report.Reporter
	seq  sequencer
	conn *conn

	enc     encoder
	bufSize int
	closed  bool
}

// NewOut opens a sequencer client (or adopts the caller-supplied context)
// and builds a sink driver on it.
func NewOut(opts contracts.Options) (contracts.Out, error) {
	seq, owned, err := openSequencer(opts.ClientName, opts.Context)
	if err != nil {
		return nil, fmt.Errorf("opening sequencer client: %w", err)
	}
	return newOut(opts, seq, owned)
}

func newOut(opts contracts.Options, seq sequencer, owned bool) (*Out, error) {
	rep := report.New(opts.Logger)
	enc, err := seq.NewEncoder(initialEncodeSize)
	if err != nil {
		if owned {
			_ = seq.Close()
		} else {
			_ = seq.Release()
		}
		return nil, rep.Error(fmt.Errorf("%w: initializing event encoder: %v", contracts.ErrDriver, err))
	}

	o := &Out{
		opts:    opts,
		log:     opts.Logger,
		rep:     rep,
		seq:     seq,
		conn:    newConn(seq, owned, dirOut, rep),
		enc:     enc,
		bufSize: initialEncodeSize,
	}
	o.log.Info("sequencer output client created")
	return o, nil
}

func (o *Out) OpenPort(index int, name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conn.openPort(index, name)
}

func (o *Out) OpenVirtualPort(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conn.openVirtualPort(name)
}

func (o *Out) ClosePort() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conn.closePort()
}

func (o *Out) PortCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conn.portCount()
}

func (o *Out) PortName(index int) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conn.portName(index)
}

func (o *Out) SetClientName(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conn.setClientName(name)
}

func (o *Out) SetPortName(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conn.setPortName(name)
}

// SendMessage encodes msg into native events, queues them in strict order
// from the local port and asks the subsystem to drain its output queue.
func (o *Out) SendMessage(msg []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.enc == nil {
		return o.rep.Error(fmt.Errorf("%w: driver is closed", contracts.ErrDriver))
	}
	if o.conn.vport < 0 {
		return o.rep.Warning(fmt.Errorf("%w: open a port before sending", contracts.ErrNotConnected))
	}
	if len(msg) == 0 {
		return o.rep.Warning(fmt.Errorf("%w: empty message", contracts.ErrInvalidParameter))
	}

	if len(msg) > o.bufSize {
		if err := o.enc.Resize(len(msg)); err != nil {
			return o.rep.Error(fmt.Errorf("%w: resizing encode buffer to %d bytes: %v",
				contracts.ErrDriver, len(msg), err))
		}
		o.bufSize = len(msg)
	}

	// A chunk already queued when a later one fails is not retracted; the
	// remaining chunks are abandoned with a warning.
	for offset := 0; offset < len(msg); {
		consumed, ev, err := o.enc.Encode(msg[offset:])
		if err != nil {
			return o.rep.Warning(fmt.Errorf("event encoding failed at byte %d: %w", offset, err))
		}
		if ev == nil {
			return o.rep.Warning(errors.New("incomplete message; encoder produced no event"))
		}
		if consumed <= 0 {
			return o.rep.Warning(errors.New("encoder made no progress; aborting send"))
		}
		offset += consumed

		if err := o.seq.Output(o.conn.vport, ev); err != nil {
			return o.rep.Warning(fmt.Errorf("queueing event for transmission: %w", err))
		}
	}

	if err := o.seq.Drain(); err != nil {
		return o.rep.Warning(fmt.Errorf("draining output queue: %w", err))
	}
	return nil
}

// Close is idempotent; the native client is torn down exactly once.
func (o *Out) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	if o.enc != nil {
		o.enc.Free()
		o.enc = nil
	}
	return o.conn.close()
}
