package midiseq

import (
	"fmt"
	"sync"
	"time"

	"github.com/soundbus/midilink/internal/midi/framing"
	"github.com/soundbus/midilink/internal/midi/report"
	"github.com/soundbus/midilink/sdk/contracts"
)

// pollTimeout bounds each wait on the sequencer descriptors so the receive
// loop notices a Close promptly.
const pollTimeout = 100 * time.Millisecond

// In is the sequencer source driver. A dedicated goroutine waits on the
// client's poll descriptors (or the caller's manual-poll predicate), decodes
// pending events and feeds them through the message assembler. That goroutine
// is the only writer of the assembler state.
type In struct {
	mu   sync.Mutex
	opts contracts.Options
	log  contracts.Logger
	rep  *report.Reporter
	seq  sequencer
	conn *conn

	disp *framing.Dispatcher
	asm  *framing.Assembler

	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// NewIn opens a sequencer client (or adopts the caller-supplied context) and
// builds a source driver on it. The receive loop runs for the driver's whole
// lifetime; events only arrive once a subscription is bound.
func NewIn(opts contracts.Options) (contracts.In, error) {
	seq, owned, err := openSequencer(opts.ClientName, opts.Context)
	if err != nil {
		return nil, fmt.Errorf("opening sequencer client: %w", err)
	}
	return newIn(opts, seq, owned), nil
}

func newIn(opts contracts.Options, seq sequencer, owned bool) *In {
	rep := report.New(opts.Logger)
	i := &In{
		opts: opts,
		log:  opts.Logger,
		rep:  rep,
		seq:  seq,
		conn: newConn(seq, owned, dirIn, rep),
		disp: framing.NewDispatcher(opts.Receiver, opts.QueueSize, opts.Logger),
		done: make(chan struct{}),
	}
	i.asm = framing.NewAssembler(opts.Filter, framing.MonotonicClock(), i.disp.Deliver)

	i.wg.Add(1)
	go i.receiveLoop()
	i.log.Info("sequencer input client created")
	return i
}

func (i *In) receiveLoop() {
	defer i.wg.Done()
	for {
		select {
		case <-i.done:
			return
		default:
		}

		if i.opts.ManualPoll != nil {
			// The caller drives readiness; returning false stops the loop.
			if !i.opts.ManualPoll(i.seq.PollDescriptors()) {
				return
			}
		} else {
			ready, err := i.seq.Wait(pollTimeout)
			if err != nil {
				i.rep.Error(fmt.Errorf("%w: waiting for sequencer events: %v", contracts.ErrDriver, err))
				return
			}
			if !ready {
				continue
			}
		}

		if !i.drainEvents() {
			return
		}
	}
}

// drainEvents reads until the input queue is empty. A read failure stops the
// receive loop for good, so it is reported with driver-error severity.
func (i *In) drainEvents() bool {
	for {
		data, ok, err := i.seq.ReadEvent()
		if err != nil {
			i.rep.Error(fmt.Errorf("%w: reading sequencer event: %v", contracts.ErrDriver, err))
			return false
		}
		if !ok {
			return true
		}
		i.asm.Feed(data)
	}
}

func (i *In) Messages() <-chan contracts.Message {
	return i.disp.Messages()
}

func (i *In) OpenPort(index int, name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.conn.openPort(index, name)
}

func (i *In) OpenVirtualPort(name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.conn.openVirtualPort(name)
}

func (i *In) ClosePort() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.conn.closePort()
}

func (i *In) PortCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.conn.portCount()
}

func (i *In) PortName(index int) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.conn.portName(index)
}

func (i *In) SetClientName(name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.conn.setClientName(name)
}

func (i *In) SetPortName(name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.conn.setPortName(name)
}

// Close stops the receive loop, waits for in-flight dispatch to finish and
// tears the connection state down in reverse acquisition order. It is
// idempotent; the native client is torn down exactly once.
func (i *In) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil
	}
	i.closed = true

	select {
	case <-i.done:
	default:
		close(i.done)
	}
	i.wg.Wait()

	return i.conn.close()
}
