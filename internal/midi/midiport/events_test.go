//go:build cgo

package midiport

import (
	"bytes"
	"testing"

	"github.com/rakyll/portmidi"
)

func TestStatusLen(t *testing.T) {
	cases := []struct {
		status byte
		want   int
	}{
		{0x80, 3}, // note off
		{0x90, 3}, // note on
		{0xA0, 3}, // poly aftertouch
		{0xB0, 3}, // control change
		{0xC0, 2}, // program change
		{0xD0, 2}, // channel aftertouch
		{0xE0, 3}, // pitch bend
		{0xF1, 2}, // time code quarter frame
		{0xF2, 3}, // song position
		{0xF3, 2}, // song select
		{0xF6, 1}, // tune request
		{0xF8, 1}, // clock
		{0xFA, 1}, // start
		{0xFE, 1}, // active sensing
		{0xFF, 1}, // reset
	}
	for _, c := range cases {
		if got := statusLen(c.status); got != c.want {
			t.Errorf("statusLen(%#x) = %d, want %d", c.status, got, c.want)
		}
	}
}

func TestEventBytes(t *testing.T) {
	cases := []struct {
		name string
		ev   portmidi.Event
		want []byte
	}{
		{
			name: "note on",
			ev:   portmidi.Event{Status: 0x90, Data1: 0x3C, Data2: 0x64},
			want: []byte{0x90, 0x3C, 0x64},
		},
		{
			name: "program change drops unused data byte",
			ev:   portmidi.Event{Status: 0xC0, Data1: 0x05, Data2: 0x7F},
			want: []byte{0xC0, 0x05},
		},
		{
			name: "clock is a lone status byte",
			ev:   portmidi.Event{Status: 0xF8, Data1: 0x11, Data2: 0x22},
			want: []byte{0xF8},
		},
		{
			name: "sysex passes through untouched",
			ev:   portmidi.Event{Status: 0xF0, SysEx: []byte{0xF0, 0x01, 0x02, 0xF7}},
			want: []byte{0xF0, 0x01, 0x02, 0xF7},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := eventBytes(c.ev)
			if !bytes.Equal(got, c.want) {
				t.Fatalf("eventBytes = %#v, want %#v", got, c.want)
			}
		})
	}
}

func TestEventClockScalesToMicroseconds(t *testing.T) {
	var clk eventClock
	if clk.read() != 0 {
		t.Fatalf("fresh clock: want 0, got %d", clk.read())
	}
	clk.set(portmidi.Timestamp(250))
	if got := clk.read(); got != 250000 {
		t.Fatalf("clock: want 250000, got %d", got)
	}
}
