package midijack

import (
	"fmt"
	"sync"
)

// fakePort carries enough identity for the tests to tell ports apart.
type fakePort struct {
	name string
}

type edge struct {
	src, dst string
}

// fakeServer implements the server interface for a JACK client that never
// talks to a real daemon. Tests drive the process callback by calling
// cycle() with a frame count; input events are scripted per cycle and
// output events are captured per cycle.
type fakeServer struct {
	mu sync.Mutex

	name     string
	nameSize int
	remotes  map[direction][]string

	registered   []*fakePort
	unregistered []*fakePort
	registerErr  error
	connectErr   error

	edges    []edge
	unwired  []edge
	process  func(nframes uint32)
	active   bool
	closed   bool
	closes   int
	released bool

	now uint64

	inEvents [][]byte // consumed by the next cycle's InEvents
	written  [][]byte // events reserved this cycle
	cleared  int
	writeErr error
}

func newFakeServer(remoteIn, remoteOut []string) *fakeServer {
	return &fakeServer{
		name:     "fake",
		nameSize: 64,
		remotes: map[direction][]string{
			dirIn:  remoteIn,
			dirOut: remoteOut,
		},
	}
}

// cycle invokes the installed process callback the way the server would.
func (f *fakeServer) cycle(nframes uint32) {
	f.mu.Lock()
	fn := f.process
	f.mu.Unlock()
	if fn != nil {
		fn(nframes)
	}
}

func (f *fakeServer) pushIn(events ...[]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inEvents = append(f.inEvents, events...)
}

func (f *fakeServer) ClientName() string { return f.name }
func (f *fakeServer) PortNameSize() int  { return f.nameSize }

func (f *fakeServer) Register(name string, dir direction) (port, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	p := &fakePort{name: name}
	f.registered = append(f.registered, p)
	return p, nil
}

func (f *fakeServer) Unregister(p port) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unregistered = append(f.unregistered, p.(*fakePort))
	return nil
}

func (f *fakeServer) RenamePort(p port, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.(*fakePort).name = name
	return nil
}

func (f *fakeServer) RemotePorts(dir direction) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remotes[dir]
}

func (f *fakeServer) Connect(local port, remote string, dir direction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	e := edge{src: local.(*fakePort).name, dst: remote}
	if dir == dirIn {
		e = edge{src: remote, dst: local.(*fakePort).name}
	}
	f.edges = append(f.edges, e)
	return nil
}

func (f *fakeServer) Disconnect(local port, remote string, dir direction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := edge{src: local.(*fakePort).name, dst: remote}
	if dir == dirIn {
		e = edge{src: remote, dst: local.(*fakePort).name}
	}
	f.unwired = append(f.unwired, e)
	return nil
}

func (f *fakeServer) SetProcess(fn func(nframes uint32)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.process = fn
}

func (f *fakeServer) Activate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.process == nil {
		return fmt.Errorf("activated without a process callback")
	}
	f.active = true
	return nil
}

func (f *fakeServer) Now() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeServer) InEvents(p port, nframes uint32) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := f.inEvents
	f.inEvents = nil
	return events
}

func (f *fakeServer) ClearOut(p port, nframes uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	f.written = nil
}

func (f *fakeServer) WriteOut(p port, nframes uint32, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	f.written = append(f.written, buf)
	return nil
}

func (f *fakeServer) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
	f.released = true
	return nil
}

func (f *fakeServer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
	f.released = true
	f.closed = true
	f.closes++
	return nil
}
