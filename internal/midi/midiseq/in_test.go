package midiseq

import (
	"bytes"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soundbus/midilink/internal/midi/miditest"
	"github.com/soundbus/midilink/sdk/contracts"
)

func newTestIn(t *testing.T, seq *fakeSeq, opts contracts.Options) *In {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = miditest.NewLogger()
	}
	i := newIn(opts, seq, true)
	t.Cleanup(func() { _ = i.Close() })
	return i
}

func waitMessage(t *testing.T, ch <-chan contracts.Message) contracts.Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return contracts.Message{}
	}
}

func TestIn_OpenPortSubscribesRemoteAsSender(t *testing.T) {
	seq := newFakeSeq(remote(20, 0, "keys"))
	i := newTestIn(t, seq, contracts.Options{ClientName: "test"})

	if err := i.OpenPort(0, "port"); err != nil {
		t.Fatalf("OpenPort: %v", err)
	}
	if len(seq.active) != 1 {
		t.Fatalf("want 1 subscription, got %d", len(seq.active))
	}
	sub := seq.active[0]
	if sub.sender != (seqAddr{client: 20, port: 0}) {
		t.Fatalf("remote is not the sender: %+v", sub)
	}
	if sub.dest.client != seq.ClientID() {
		t.Fatalf("local port is not the destination: %+v", sub)
	}
}

func TestIn_DeliversMessages(t *testing.T) {
	seq := newFakeSeq(remote(20, 0, "keys"))
	i := newTestIn(t, seq, contracts.Options{ClientName: "test"})
	if err := i.OpenPort(0, "port"); err != nil {
		t.Fatalf("OpenPort: %v", err)
	}

	seq.push([]byte{0x90, 0x3C, 0x64})
	m := waitMessage(t, i.Messages())
	if !bytes.Equal(m.Bytes, []byte{0x90, 0x3C, 0x64}) {
		t.Fatalf("unexpected message: %#v", m.Bytes)
	}
	if m.Delta != 0 {
		t.Fatalf("first delta: want 0, got %v", m.Delta)
	}

	seq.push([]byte{0x80, 0x3C, 0x00})
	m = waitMessage(t, i.Messages())
	if m.Delta < 0 {
		t.Fatalf("negative delta: %v", m.Delta)
	}
}

func TestIn_ReassemblesSysexAcrossEvents(t *testing.T) {
	seq := newFakeSeq(remote(20, 0, "keys"))
	i := newTestIn(t, seq, contracts.Options{ClientName: "test"})
	if err := i.OpenPort(0, "port"); err != nil {
		t.Fatalf("OpenPort: %v", err)
	}

	seq.push([]byte{0xF0, 0x01, 0x02}, []byte{0x03, 0x04, 0xF7})
	m := waitMessage(t, i.Messages())
	want := []byte{0xF0, 0x01, 0x02, 0x03, 0x04, 0xF7}
	if !bytes.Equal(m.Bytes, want) {
		t.Fatalf("reassembly: want %#v, got %#v", want, m.Bytes)
	}

	select {
	case m := <-i.Messages():
		t.Fatalf("unexpected extra message: %#v", m.Bytes)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestIn_ReceiverCallback(t *testing.T) {
	seq := newFakeSeq(remote(20, 0, "keys"))
	var count atomic.Int32
	i := newTestIn(t, seq, contracts.Options{
		ClientName: "test",
		Receiver:   func(contracts.Message) { count.Add(1) },
	})
	if err := i.OpenPort(0, "port"); err != nil {
		t.Fatalf("OpenPort: %v", err)
	}

	seq.push([]byte{0xF8}, []byte{0x90, 0x3C, 0x64})

	deadline := time.Now().Add(2 * time.Second)
	for count.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("want 2 callback deliveries, got %d", count.Load())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestIn_IgnoreFilterApplied(t *testing.T) {
	seq := newFakeSeq(remote(20, 0, "keys"))
	i := newTestIn(t, seq, contracts.Options{
		ClientName: "test",
		Filter:     contracts.Filter{Sysex: true},
	})
	if err := i.OpenPort(0, "port"); err != nil {
		t.Fatalf("OpenPort: %v", err)
	}

	seq.push([]byte{0xF0, 0x01, 0x02}, []byte{0x03, 0xF7}, []byte{0x90, 0x3C, 0x64})
	m := waitMessage(t, i.Messages())
	if m.Bytes[0] == 0xF0 {
		t.Fatalf("ignored sysex delivered: %#v", m.Bytes)
	}
}

func TestIn_ManualPollDrivesLoop(t *testing.T) {
	seq := newFakeSeq(remote(20, 0, "keys"))
	seq.push([]byte{0x90, 0x3C, 0x64})

	var polls atomic.Int32
	i := newTestIn(t, seq, contracts.Options{
		ClientName: "test",
		ManualPoll: func(fds []contracts.PollDescriptor) bool {
			if len(fds) == 0 {
				return false
			}
			// Report ready once, then stop the loop.
			return polls.Add(1) == 1
		},
	})

	m := waitMessage(t, i.Messages())
	if !bytes.Equal(m.Bytes, []byte{0x90, 0x3C, 0x64}) {
		t.Fatalf("unexpected message: %#v", m.Bytes)
	}

	// The loop must have stopped after the predicate returned false; Close
	// returns promptly because the goroutine already exited.
	done := make(chan struct{})
	go func() {
		_ = i.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked after manual poll stop")
	}
}

func TestIn_CloseJoinsReceiveLoop(t *testing.T) {
	seq := newFakeSeq(remote(20, 0, "keys"))
	log := miditest.NewLogger()
	i := newIn(contracts.Options{ClientName: "test", Logger: log}, seq, true)
	if err := i.OpenPort(0, "port"); err != nil {
		t.Fatalf("OpenPort: %v", err)
	}

	if err := i.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !seq.closed {
		t.Fatal("owned client not closed")
	}
	if len(seq.unsubscribed) != 1 {
		t.Fatal("subscription not released on teardown")
	}
}

func TestIn_PortCountZeroWithoutDevices(t *testing.T) {
	seq := newFakeSeq()
	i := newTestIn(t, seq, contracts.Options{ClientName: "test"})

	if n := i.PortCount(); n != 0 {
		t.Fatalf("want 0 ports, got %d", n)
	}
}

func TestIn_CloseTwiceClosesClientOnce(t *testing.T) {
	seq := newFakeSeq(remote(20, 0, "keys"))
	log := miditest.NewLogger()
	i := newIn(contracts.Options{ClientName: "test", Logger: log}, seq, true)
	if err := i.OpenPort(0, "port"); err != nil {
		t.Fatalf("OpenPort: %v", err)
	}

	if err := i.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := i.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if seq.closes != 1 {
		t.Fatalf("native client closed %d times, want 1", seq.closes)
	}
}

func TestIn_WaitFailureReportsDriverError(t *testing.T) {
	seq := newFakeSeq(remote(20, 0, "keys"))
	seq.waitErr = errors.New("descriptor gone")
	log := miditest.NewLogger()
	i := newTestIn(t, seq, contracts.Options{ClientName: "test", Logger: log})

	deadline := time.Now().Add(2 * time.Second)
	for log.ErrorCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("wait failure was not reported as an error")
		}
		time.Sleep(time.Millisecond)
	}

	err, sev, ok := i.rep.Last()
	if !ok || !errors.Is(err, contracts.ErrDriver) {
		t.Fatalf("last condition: want ErrDriver, got %v", err)
	}
	if sev != contracts.SeverityDriverError {
		t.Fatalf("severity: want driver error, got %v", sev)
	}
	// The loop exited after reporting; the failure is recorded once.
	time.Sleep(20 * time.Millisecond)
	if n := log.ErrorCount(); n != 1 {
		t.Fatalf("want 1 recorded error, got %d", n)
	}
}

func TestIn_ReadFailureReportsDriverError(t *testing.T) {
	seq := newFakeSeq(remote(20, 0, "keys"))
	seq.push([]byte{0x90, 0x3C, 0x64})
	seq.readErr = errors.New("event truncated")
	log := miditest.NewLogger()
	i := newTestIn(t, seq, contracts.Options{ClientName: "test", Logger: log})

	deadline := time.Now().Add(2 * time.Second)
	for log.ErrorCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("read failure was not reported as an error")
		}
		time.Sleep(time.Millisecond)
	}

	err, _, ok := i.rep.Last()
	if !ok || !errors.Is(err, contracts.ErrDriver) {
		t.Fatalf("last condition: want ErrDriver, got %v", err)
	}

	// The loop exited after reporting, so Close returns promptly.
	done := make(chan struct{})
	go func() {
		_ = i.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked after read failure")
	}
}
