//go:build (linux || darwin) && cgo

package midijack

/*
#cgo LDFLAGS: -ljack
#include <errno.h>
#include <stdlib.h>
#include <string.h>
#include <jack/jack.h>
#include <jack/midiport.h>

extern int midilinkProcess(jack_nframes_t nframes, void *arg);

static jack_client_t *midilink_open_client(const char *name, int *status) {
	jack_status_t st = 0;
	jack_client_t *c = jack_client_open(name, JackNoStartServer, &st);
	if (status != NULL) {
		*status = (int)st;
	}
	return c;
}

static int midilink_set_process(jack_client_t *c, void *arg) {
	return jack_set_process_callback(c, midilinkProcess, arg);
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/soundbus/midilink/sdk/contracts"
)

// midiPortType is the JACK port type string for raw MIDI buffers.
const midiPortType = "8 bit raw midi"

// registry maps the opaque callback argument back to its server. JACK hands
// the argument to the realtime callback as a void*, so the key is a C
// allocation that stays valid for the client's lifetime.
var (
	registryMu sync.RWMutex
	registry   = map[unsafe.Pointer]*jackServer{}
)

type jackServer struct {
	client  *C.jack_client_t
	key     unsafe.Pointer
	process func(nframes uint32)
}

// openServer connects a new JACK client, or adopts the jack_client_t the
// caller supplied through the context option. An adopted client must not be
// active yet; the driver installs its own process callback.
func openServer(name string, ctx uintptr) (server, bool, error) {
	if ctx != 0 {
		s := &jackServer{client: (*C.jack_client_t)(unsafe.Pointer(ctx))}
		s.enroll()
		return s, false, nil
	}

	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var status C.int
	client := C.midilink_open_client(cname, &status)
	if client == nil {
		return nil, false, fmt.Errorf("%w: jack server not reachable (status %#x)",
			contracts.ErrBackendUnavailable, int(status))
	}
	s := &jackServer{client: client}
	s.enroll()
	return s, true, nil
}

func (s *jackServer) enroll() {
	s.key = C.malloc(1)
	registryMu.Lock()
	registry[s.key] = s
	registryMu.Unlock()
}

func (s *jackServer) ClientName() string {
	return C.GoString(C.jack_get_client_name(s.client))
}

func (s *jackServer) PortNameSize() int {
	return int(C.jack_port_name_size())
}

func portFlags(dir direction) C.ulong {
	if dir == dirIn {
		return C.JackPortIsInput
	}
	return C.JackPortIsOutput
}

// remoteFlags selects the counterpart: a local input wires to remote
// outputs and vice versa.
func remoteFlags(dir direction) C.ulong {
	if dir == dirIn {
		return C.JackPortIsOutput
	}
	return C.JackPortIsInput
}

func (s *jackServer) Register(name string, dir direction) (port, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	ctype := C.CString(midiPortType)
	defer C.free(unsafe.Pointer(ctype))

	p := C.jack_port_register(s.client, cname, ctype, portFlags(dir), 0)
	if p == nil {
		return nil, fmt.Errorf("registering port %q failed", name)
	}
	return p, nil
}

func (s *jackServer) Unregister(p port) error {
	if rc := C.jack_port_unregister(s.client, p.(*C.jack_port_t)); rc != 0 {
		return fmt.Errorf("unregistering port failed (%d)", int(rc))
	}
	return nil
}

func (s *jackServer) RenamePort(p port, name string) error {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	if rc := C.jack_port_rename(s.client, p.(*C.jack_port_t), cname); rc != 0 {
		return fmt.Errorf("renaming port failed (%d)", int(rc))
	}
	return nil
}

func (s *jackServer) RemotePorts(dir direction) []string {
	ctype := C.CString(midiPortType)
	defer C.free(unsafe.Pointer(ctype))

	list := C.jack_get_ports(s.client, nil, ctype, remoteFlags(dir))
	if list == nil {
		return nil
	}
	defer C.jack_free(unsafe.Pointer(list))

	var names []string
	for i := 0; ; i++ {
		entry := *(**C.char)(unsafe.Pointer(uintptr(unsafe.Pointer(list)) +
			uintptr(i)*unsafe.Sizeof(*list)))
		if entry == nil {
			break
		}
		names = append(names, C.GoString(entry))
	}
	return names
}

func (s *jackServer) Connect(local port, remote string, dir direction) error {
	localName := C.jack_port_name(local.(*C.jack_port_t))
	cremote := C.CString(remote)
	defer C.free(unsafe.Pointer(cremote))

	src, dst := localName, cremote
	if dir == dirIn {
		src, dst = cremote, localName
	}
	rc := C.jack_connect(s.client, src, dst)
	// EEXIST means the graph edge is already in place.
	if rc != 0 && rc != C.EEXIST {
		return fmt.Errorf("jack_connect failed (%d)", int(rc))
	}
	return nil
}

func (s *jackServer) Disconnect(local port, remote string, dir direction) error {
	localName := C.jack_port_name(local.(*C.jack_port_t))
	cremote := C.CString(remote)
	defer C.free(unsafe.Pointer(cremote))

	src, dst := localName, cremote
	if dir == dirIn {
		src, dst = cremote, localName
	}
	if rc := C.jack_disconnect(s.client, src, dst); rc != 0 {
		return fmt.Errorf("jack_disconnect failed (%d)", int(rc))
	}
	return nil
}

func (s *jackServer) SetProcess(fn func(nframes uint32)) {
	s.process = fn
	C.midilink_set_process(s.client, s.key)
}

func (s *jackServer) Activate() error {
	if rc := C.jack_activate(s.client); rc != 0 {
		return fmt.Errorf("jack_activate failed (%d)", int(rc))
	}
	return nil
}

func (s *jackServer) Now() uint64 {
	return uint64(C.jack_get_time())
}

func (s *jackServer) InEvents(p port, nframes uint32) [][]byte {
	buf := C.jack_port_get_buffer(p.(*C.jack_port_t), C.jack_nframes_t(nframes))
	count := int(C.jack_midi_get_event_count(buf))
	if count == 0 {
		return nil
	}
	events := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		var ev C.jack_midi_event_t
		if C.jack_midi_event_get(&ev, buf, C.uint32_t(i)) != 0 {
			continue
		}
		events = append(events, C.GoBytes(unsafe.Pointer(ev.buffer), C.int(ev.size)))
	}
	return events
}

func (s *jackServer) ClearOut(p port, nframes uint32) {
	buf := C.jack_port_get_buffer(p.(*C.jack_port_t), C.jack_nframes_t(nframes))
	C.jack_midi_clear_buffer(buf)
}

func (s *jackServer) WriteOut(p port, nframes uint32, data []byte) error {
	buf := C.jack_port_get_buffer(p.(*C.jack_port_t), C.jack_nframes_t(nframes))
	dst := C.jack_midi_event_reserve(buf, 0, C.size_t(len(data)))
	if dst == nil {
		return fmt.Errorf("no room for a %d byte event this cycle", len(data))
	}
	C.memcpy(unsafe.Pointer(dst), unsafe.Pointer(&data[0]), C.size_t(len(data)))
	return nil
}

func (s *jackServer) drop() {
	registryMu.Lock()
	delete(registry, s.key)
	registryMu.Unlock()
	C.free(s.key)
	s.key = nil
}

// Release deactivates but leaves a caller-owned client open.
func (s *jackServer) Release() error {
	C.jack_deactivate(s.client)
	s.drop()
	return nil
}

func (s *jackServer) Close() error {
	C.jack_deactivate(s.client)
	s.drop()
	if rc := C.jack_client_close(s.client); rc != 0 {
		return fmt.Errorf("closing jack client failed (%d)", int(rc))
	}
	return nil
}
