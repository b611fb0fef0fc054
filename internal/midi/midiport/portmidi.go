//go:build cgo

// Package midiport drives MIDI through the PortMidi library. PortMidi has no
// event subscription or callback model, so the source driver polls its stream
// on a short ticker. The library is a process-wide singleton; drivers share
// one initialization refcount so the last Close tears it down.
package midiport

import (
	"sync"

	"github.com/rakyll/portmidi"
	"github.com/soundbus/midilink/sdk/contracts"
)

type direction int

const (
	dirIn direction = iota
	dirOut
)

var (
	initMu   sync.Mutex
	initRefs int
)

// acquire initializes PortMidi on the first reference.
func acquire() error {
	initMu.Lock()
	defer initMu.Unlock()
	if initRefs == 0 {
		if err := portmidi.Initialize(); err != nil {
			return err
		}
	}
	initRefs++
	return nil
}

// release terminates PortMidi when the last reference is dropped.
func release() error {
	initMu.Lock()
	defer initMu.Unlock()
	if initRefs == 0 {
		return nil
	}
	initRefs--
	if initRefs == 0 {
		return portmidi.Terminate()
	}
	return nil
}

type device struct {
	id   portmidi.DeviceID
	info contracts.PortInfo
}

// enumerate lists the devices usable for one direction. PortMidi names its
// flags from the host's point of view: a device we can read from is an
// "input", one we can write to is an "output". PortInfo speaks from the
// remote endpoint's point of view, so the flags swap.
func enumerate(dir direction) []device {
	var devices []device
	for id := 0; id < portmidi.CountDevices(); id++ {
		info := portmidi.Info(portmidi.DeviceID(id))
		if info == nil {
			continue
		}
		d := device{
			id: portmidi.DeviceID(id),
			info: contracts.PortInfo{
				Name:       info.Name,
				CanSend:    info.IsInputAvailable,
				CanReceive: info.IsOutputAvailable,
			},
		}
		if dir == dirIn && !d.info.CanSend {
			continue
		}
		if dir == dirOut && !d.info.CanReceive {
			continue
		}
		devices = append(devices, d)
	}
	return devices
}

// statusLen reports the wire length of a channel or system message for a
// given status byte. SysEx is variable-length and handled separately.
func statusLen(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 2
	case 0xF0:
		switch status {
		case 0xF1, 0xF3:
			return 2
		case 0xF2:
			return 3
		default:
			return 1
		}
	}
	return 3
}

// eventBytes reconstructs the raw wire bytes of one PortMidi event. SysEx
// payloads arrive pre-assembled in the event's SysEx field; everything else
// is packed into the status and data words.
func eventBytes(ev portmidi.Event) []byte {
	if ev.Status == 0xF0 {
		return ev.SysEx
	}
	full := []byte{byte(ev.Status), byte(ev.Data1), byte(ev.Data2)}
	return full[:statusLen(byte(ev.Status))]
}
