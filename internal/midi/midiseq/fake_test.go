package midiseq

import (
	"errors"
	"sync"
	"time"

	"github.com/soundbus/midilink/sdk/contracts"
)

// fakeEvent is the native event stand-in: the chunk bytes it encodes.
type fakeEvent []byte

// fakeEncoder encodes chunk-sized slices of the input and can be scripted to
// fail at a given call.
type fakeEncoder struct {
	size      int
	chunk     int // max bytes per event; 0 means the whole input
	failAt    int // 1-based Encode call that errors; 0 disables
	emptyAt   int // 1-based Encode call that produces no event; 0 disables
	resizeErr error
	calls     int
	freed     bool
}

func (e *fakeEncoder) Resize(n int) error {
	if e.resizeErr != nil {
		return e.resizeErr
	}
	e.size = n
	return nil
}

func (e *fakeEncoder) Encode(b []byte) (int, nativeEvent, error) {
	e.calls++
	if e.failAt != 0 && e.calls == e.failAt {
		return 0, nil, errors.New("scripted encode failure")
	}
	if e.emptyAt != 0 && e.calls == e.emptyAt {
		return 0, nil, nil
	}
	n := len(b)
	if e.chunk > 0 && n > e.chunk {
		n = e.chunk
	}
	return n, fakeEvent(append([]byte(nil), b[:n]...)), nil
}

func (e *fakeEncoder) Free() { e.freed = true }

type subPair struct {
	sender, dest seqAddr
}

// fakeSeq is an in-memory sequencer. The inbound event queue is safe for use
// from the receive goroutine.
type fakeSeq struct {
	mu sync.Mutex

	remotes   []remotePort
	enc       *fakeEncoder
	createErr error
	subErr    error

	clientName   string
	nextPort     int
	ports        map[int]string
	active       []subPair
	unsubscribed []subPair

	outputs  []fakeEvent
	outPorts []int
	drains   int

	events  [][]byte
	waitErr error
	readErr error

	closed   bool
	closes   int
	released bool
}

func newFakeSeq(remotes ...remotePort) *fakeSeq {
	return &fakeSeq{remotes: remotes, enc: &fakeEncoder{}, ports: map[int]string{}}
}

func remote(client, port int, name string) remotePort {
	return remotePort{
		addr: seqAddr{client: client, port: port},
		info: contracts.PortInfo{Name: name, CanReceive: true, CanSend: true},
	}
}

func (f *fakeSeq) ClientID() int { return 99 }

func (f *fakeSeq) SetClientName(name string) error {
	f.clientName = name
	return nil
}

func (f *fakeSeq) CreatePort(name string, dir direction) (int, error) {
	if f.createErr != nil {
		return -1, f.createErr
	}
	p := f.nextPort
	f.nextPort++
	f.ports[p] = name
	return p, nil
}

func (f *fakeSeq) DeletePort(port int) error {
	delete(f.ports, port)
	return nil
}

func (f *fakeSeq) SetPortName(port int, name string) error {
	f.ports[port] = name
	return nil
}

func (f *fakeSeq) EnumerateRemote(dir direction) []remotePort {
	return f.remotes
}

func (f *fakeSeq) Subscribe(sender, dest seqAddr) (subscription, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	pair := subPair{sender: sender, dest: dest}
	f.active = append(f.active, pair)
	return pair, nil
}

func (f *fakeSeq) Unsubscribe(sub subscription) error {
	pair := sub.(subPair)
	f.unsubscribed = append(f.unsubscribed, pair)
	for i, a := range f.active {
		if a == pair {
			f.active = append(f.active[:i], f.active[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeSeq) NewEncoder(size int) (encoder, error) {
	f.enc.size = size
	return f.enc, nil
}

func (f *fakeSeq) Output(port int, ev nativeEvent) error {
	f.outputs = append(f.outputs, ev.(fakeEvent))
	f.outPorts = append(f.outPorts, port)
	return nil
}

func (f *fakeSeq) Drain() error {
	f.drains++
	return nil
}

func (f *fakeSeq) PollDescriptors() []contracts.PollDescriptor {
	return []contracts.PollDescriptor{{FD: 42}}
}

func (f *fakeSeq) Wait(timeout time.Duration) (bool, error) {
	time.Sleep(time.Millisecond)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.waitErr != nil {
		return false, f.waitErr
	}
	return len(f.events) > 0, nil
}

func (f *fakeSeq) ReadEvent() ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, false, f.readErr
	}
	if len(f.events) == 0 {
		return nil, false, nil
	}
	ev := f.events[0]
	f.events = f.events[1:]
	return ev, true, nil
}

func (f *fakeSeq) push(events ...[]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
}

func (f *fakeSeq) Release() error {
	f.released = true
	return nil
}

func (f *fakeSeq) Close() error {
	f.released = true
	f.closed = true
	f.closes++
	return nil
}

// sent concatenates all queued output chunks.
func (f *fakeSeq) sent() []byte {
	var out []byte
	for _, ev := range f.outputs {
		out = append(out, ev...)
	}
	return out
}
