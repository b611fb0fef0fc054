package framing

import "github.com/soundbus/midilink/sdk/contracts"

// DefaultQueueSize bounds the pull-side message channel when the caller does
// not configure one.
const DefaultQueueSize = 256

// Dispatcher fans completed messages into the configured receiver callback
// or a bounded pull channel. The producer side never blocks: when the pull
// channel is full the message is dropped with a logged warning, keeping the
// native delivery context free of back-pressure.
type Dispatcher struct {
	receiver contracts.Receiver
	ch       chan contracts.Message
	log      contracts.Logger
}

// NewDispatcher builds a Dispatcher. When receiver is nil messages go to a
// channel bounded at queueSize (DefaultQueueSize when zero or negative).
func NewDispatcher(receiver contracts.Receiver, queueSize int, log contracts.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		receiver: receiver,
		ch:       make(chan contracts.Message, queueSize),
		log:      log,
	}
}

// Deliver hands one completed message to the consumer. Fire and forget.
func (d *Dispatcher) Deliver(m contracts.Message) {
	if d.receiver != nil {
		d.receiver(m)
		return
	}
	select {
	case d.ch <- m:
	default:
		d.log.Warn("message queue full; dropping MIDI message")
	}
}

// Messages exposes the pull channel.
func (d *Dispatcher) Messages() <-chan contracts.Message {
	return d.ch
}
