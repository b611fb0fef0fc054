//go:build cgo

package midiport

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rakyll/portmidi"
	"github.com/soundbus/midilink/internal/midi/framing"
	"github.com/soundbus/midilink/internal/midi/report"
	"github.com/soundbus/midilink/sdk/contracts"
	"go.uber.org/multierr"
)

const (
	// pollInterval paces the stream ticker. PortMidi buffers internally, so
	// a millisecond is tight enough to keep latency low without spinning.
	pollInterval = time.Millisecond
	// readBatch bounds one Read call.
	readBatch = 64
	// streamBuffer is the event capacity requested from PortMidi.
	streamBuffer = 1024
)

// eventClock exposes the timestamp of the event currently being assembled.
// PortMidi stamps events in milliseconds; the assembler clock runs in
// microseconds.
type eventClock struct {
	us atomic.Uint64
}

func (c *eventClock) set(ts portmidi.Timestamp) {
	c.us.Store(uint64(ts) * 1000)
}

func (c *eventClock) read() uint64 {
	return c.us.Load()
}

// In is the PortMidi source driver. A ticker goroutine polls the open stream
// and feeds decoded events through the message assembler.
type In struct {
	mu   sync.Mutex
	opts contracts.Options
	log  contracts.Logger
	rep  *report.Reporter

	stream    *portmidi.Stream
	connected bool

	clk  eventClock
	disp *framing.Dispatcher
	asm  *framing.Assembler

	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// NewIn initializes PortMidi (refcounted) and builds a source driver. The
// poll loop starts when a port is opened.
func NewIn(opts contracts.Options) (contracts.In, error) {
	if err := acquire(); err != nil {
		return nil, fmt.Errorf("%w: initializing portmidi: %v", contracts.ErrBackendUnavailable, err)
	}
	rep := report.New(opts.Logger)
	i := &In{
		opts: opts,
		log:  opts.Logger,
		rep:  rep,
		disp: framing.NewDispatcher(opts.Receiver, opts.QueueSize, opts.Logger),
	}
	i.asm = framing.NewAssembler(opts.Filter, i.clk.read, i.disp.Deliver)
	if opts.ManualPoll != nil {
		rep.Warning(fmt.Errorf("%w: manual polling is not available on this backend", contracts.ErrUnsupported))
	}
	i.log.Info("portmidi input driver created")
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

	devices := enumerate(dirIn)
	if len(devices) == 0 {
		return i.rep.Error(contracts.ErrNoDevicesFound)
	}
	if index < 0 || index >= len(devices) {
		return i.rep.Error(fmt.Errorf("%w: port index %d outside [0,%d)",
			contracts.ErrInvalidParameter, index, len(devices)))
	}

	stream, err := portmidi.NewInputStream(devices[index].id, streamBuffer)
	if err != nil {
		return i.rep.Error(fmt.Errorf("%w: opening input stream: %v", contracts.ErrDriver, err))
	}

	i.stream = stream
	i.connected = true
	i.done = make(chan struct{})
	i.wg.Add(1)
	go i.pollLoop(stream, i.done)
	return nil
}

// OpenVirtualPort cannot be honored: PortMidi exposes no virtual endpoints.
func (i *In) OpenVirtualPort(name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.rep.Warning(fmt.Errorf("%w: portmidi has no virtual ports", contracts.ErrUnsupported))
}

func (i *In) pollLoop(stream *portmidi.Stream, done chan struct{}) {
	defer i.wg.Done()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		// A poll or read failure stops the loop for good, so it is
		// reported with driver-error severity.
		ready, err := stream.Poll()
		if err != nil {
			i.rep.Error(fmt.Errorf("%w: polling stream: %v", contracts.ErrDriver, err))
			return
		}
		if !ready {
			continue
		}

		events, err := stream.Read(readBatch)
		if err != nil {
			i.rep.Error(fmt.Errorf("%w: reading stream: %v", contracts.ErrDriver, err))
			return
		}
		for _, ev := range events {
			data := eventBytes(ev)
			if len(data) == 0 {
				continue
			}
			i.clk.set(ev.Timestamp)
			i.asm.Feed(data)
		}
	}
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
	close(i.done)
	i.wg.Wait()

	stream := i.stream
	i.stream = nil
	i.connected = false
	if err := stream.Close(); err != nil {
		return i.rep.Warning(fmt.Errorf("closing input stream: %w", err))
	}
	return nil
}

func (i *In) PortCount() int {
	return len(enumerate(dirIn))
}

func (i *In) PortName(index int) (string, error) {
	devices := enumerate(dirIn)
	if index < 0 || index >= len(devices) {
		return "", i.rep.Error(fmt.Errorf("%w: port index %d outside [0,%d)",
			contracts.ErrInvalidParameter, index, len(devices)))
	}
	return devices[index].info.Name, nil
}

// SetClientName cannot be honored: PortMidi has no client identity.
func (i *In) SetClientName(name string) error {
	return i.rep.Warning(fmt.Errorf("%w: portmidi has no client name", contracts.ErrUnsupported))
}

// SetPortName cannot be honored: PortMidi ports belong to the device.
func (i *In) SetPortName(name string) error {
	return i.rep.Warning(fmt.Errorf("%w: portmidi ports cannot be renamed", contracts.ErrUnsupported))
}

// Close is idempotent; the library reference is dropped exactly once.
func (i *In) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	return multierr.Append(i.closePortLocked(), release())
}
