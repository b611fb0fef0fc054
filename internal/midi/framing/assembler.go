// Package framing implements the receive-path message assembly shared by all
// backends: delta timestamp computation, multi-fragment SysEx reassembly and
// category-based event filtering. An Assembler is owned by exactly one driver
// and mutated only from that driver's native delivery context.
package framing

import (
	"time"

	"github.com/soundbus/midilink/sdk/contracts"
)

// MIDI status bytes the assembler classifies on.
const (
	statusSysexStart    = 0xF0
	statusSysexEnd      = 0xF7
	statusTimeCode      = 0xF1
	statusTimingClock   = 0xF8
	statusActiveSensing = 0xFE
)

// Clock reports a monotonic timestamp in microseconds.
type Clock func() uint64

// MonotonicClock returns a Clock measuring microseconds elapsed since its
// creation, immune to wall-clock adjustments.
func MonotonicClock() Clock {
	base := time.Now()
	return func() uint64 {
		return uint64(time.Since(base).Microseconds())
	}
}

// Deliver receives one completed message. It runs on the native delivery
// context and must not block.
type Deliver func(contracts.Message)

// Assembler accumulates native event fragments into logical MIDI messages.
// Its state persists across delivery callbacks for the driver's lifetime.
type Assembler struct {
	filter  contracts.Filter
	clock   Clock
	deliver Deliver

	continueSysex bool
	buf           []byte
	lastTime      uint64
	seenFragment  bool
	delivered     bool
}

// NewAssembler returns an Assembler applying filter, timing fragments with
// clock and handing completed messages to deliver.
func NewAssembler(filter contracts.Filter, clock Clock, deliver Deliver) *Assembler {
	return &Assembler{filter: filter, clock: clock, deliver: deliver}
}

// Feed processes one native fragment. Filter-discarded fragments contribute
// no bytes and do not toggle the SysEx continuation state; a surviving
// fragment that ends the message triggers exactly one delivery.
func (a *Assembler) Feed(fragment []byte) {
	if len(fragment) == 0 {
		return
	}

	now := a.clock()
	var delta float64
	if a.seenFragment && now > a.lastTime {
		delta = float64(now-a.lastTime) * 1e-6
	}
	a.seenFragment = true
	a.lastTime = now

	if !a.continueSysex {
		a.buf = a.buf[:0]
	}

	drop := false
	switch status := fragment[0]; status {
	case statusSysexStart:
		a.continueSysex = fragment[len(fragment)-1] != statusSysexEnd
		drop = a.filter.Sysex
	case statusTimeCode, statusTimingClock:
		drop = a.filter.Timing
	case statusActiveSensing:
		drop = a.filter.Sensing
	default:
		if a.continueSysex {
			a.continueSysex = fragment[len(fragment)-1] != statusSysexEnd
			drop = a.filter.Sysex
		}
	}
	if drop {
		return
	}

	a.buf = append(a.buf, fragment...)
	if a.continueSysex {
		return
	}

	// The message owns its bytes; the accumulator is reused for the next one.
	msg := contracts.Message{Delta: delta, Bytes: append([]byte(nil), a.buf...)}
	if !a.delivered {
		a.delivered = true
		msg.Delta = 0
	}
	a.buf = a.buf[:0]
	a.deliver(msg)
}
