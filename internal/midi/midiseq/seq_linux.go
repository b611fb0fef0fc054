//go:build linux && cgo

package midiseq

/*
#cgo LDFLAGS: -lasound
#include <stdlib.h>
#include <errno.h>
#include <poll.h>
#include <alsa/asoundlib.h>
*/
import "C"

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/soundbus/midilink/sdk/contracts"
	"golang.org/x/sys/unix"
)

const (
	decodeBufferSize = 4096
	maxDecodeBuffer  = 1 << 20
)

// alsaSeq binds the sequencer interface to the ALSA sequencer API.
type alsaSeq struct {
	seq    *C.snd_seq_t
	dec    *C.snd_midi_event_t
	decBuf []byte
}

// openSequencer opens the default ALSA sequencer client, or adopts the
// caller-supplied snd_seq_t handle when ctx is non-zero. The returned owned
// flag reports whether the driver must close the client on teardown.
func openSequencer(clientName string, ctx uintptr) (sequencer, bool, error) {
	var (
		seq   *C.snd_seq_t
		owned bool
	)
	if ctx != 0 {
		seq = (*C.snd_seq_t)(unsafe.Pointer(ctx))
	} else {
		dflt := C.CString("default")
		defer C.free(unsafe.Pointer(dflt))
		if rc := C.snd_seq_open(&seq, dflt, C.SND_SEQ_OPEN_DUPLEX, C.SND_SEQ_NONBLOCK); rc < 0 {
			return nil, false, alsaError("snd_seq_open", rc)
		}
		owned = true
	}

	if clientName != "" {
		cname := C.CString(clientName)
		C.snd_seq_set_client_name(seq, cname)
		C.free(unsafe.Pointer(cname))
	}

	var dec *C.snd_midi_event_t
	if rc := C.snd_midi_event_new(C.size_t(decodeBufferSize), &dec); rc < 0 {
		if owned {
			C.snd_seq_close(seq)
		}
		return nil, false, alsaError("snd_midi_event_new", rc)
	}
	C.snd_midi_event_init(dec)
	// Decode without running status so every fragment carries its status byte.
	C.snd_midi_event_no_status(dec, 1)

	return &alsaSeq{seq: seq, dec: dec, decBuf: make([]byte, decodeBufferSize)}, owned, nil
}

func (s *alsaSeq) ClientID() int {
	return int(C.snd_seq_client_id(s.seq))
}

func (s *alsaSeq) SetClientName(name string) error {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	if rc := C.snd_seq_set_client_name(s.seq, cname); rc < 0 {
		return alsaError("snd_seq_set_client_name", rc)
	}
	return nil
}

func capsFor(dir direction) C.uint {
	if dir == dirIn {
		// A local input port is written to by remote subscribers.
		return C.SND_SEQ_PORT_CAP_WRITE | C.SND_SEQ_PORT_CAP_SUBS_WRITE
	}
	return C.SND_SEQ_PORT_CAP_READ | C.SND_SEQ_PORT_CAP_SUBS_READ
}

func remoteCapsFor(dir direction) C.uint {
	if dir == dirIn {
		// An input driver binds to remotes it can read from.
		return C.SND_SEQ_PORT_CAP_READ | C.SND_SEQ_PORT_CAP_SUBS_READ
	}
	return C.SND_SEQ_PORT_CAP_WRITE | C.SND_SEQ_PORT_CAP_SUBS_WRITE
}

func (s *alsaSeq) CreatePort(name string, dir direction) (int, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	port := C.snd_seq_create_simple_port(s.seq, cname, capsFor(dir),
		C.SND_SEQ_PORT_TYPE_MIDI_GENERIC|C.SND_SEQ_PORT_TYPE_APPLICATION)
	if port < 0 {
		return -1, alsaError("snd_seq_create_simple_port", port)
	}
	return int(port), nil
}

func (s *alsaSeq) DeletePort(port int) error {
	if rc := C.snd_seq_delete_simple_port(s.seq, C.int(port)); rc < 0 {
		return alsaError("snd_seq_delete_simple_port", rc)
	}
	return nil
}

func (s *alsaSeq) SetPortName(port int, name string) error {
	var pinfo *C.snd_seq_port_info_t
	if rc := C.snd_seq_port_info_malloc(&pinfo); rc < 0 {
		return alsaError("snd_seq_port_info_malloc", rc)
	}
	defer C.snd_seq_port_info_free(pinfo)

	if rc := C.snd_seq_get_port_info(s.seq, C.int(port), pinfo); rc < 0 {
		return alsaError("snd_seq_get_port_info", rc)
	}
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	C.snd_seq_port_info_set_name(pinfo, cname)
	if rc := C.snd_seq_set_port_info(s.seq, C.int(port), pinfo); rc < 0 {
		return alsaError("snd_seq_set_port_info", rc)
	}
	return nil
}

func (s *alsaSeq) EnumerateRemote(dir direction) []remotePort {
	want := remoteCapsFor(dir)

	var cinfo *C.snd_seq_client_info_t
	var pinfo *C.snd_seq_port_info_t
	if C.snd_seq_client_info_malloc(&cinfo) < 0 {
		return nil
	}
	defer C.snd_seq_client_info_free(cinfo)
	if C.snd_seq_port_info_malloc(&pinfo) < 0 {
		return nil
	}
	defer C.snd_seq_port_info_free(pinfo)

	self := C.snd_seq_client_id(s.seq)
	var out []remotePort

	C.snd_seq_client_info_set_client(cinfo, -1)
	for C.snd_seq_query_next_client(s.seq, cinfo) >= 0 {
		client := C.snd_seq_client_info_get_client(cinfo)
		if client == self || client == C.SND_SEQ_CLIENT_SYSTEM {
			continue
		}
		C.snd_seq_port_info_set_client(pinfo, client)
		C.snd_seq_port_info_set_port(pinfo, -1)
		for C.snd_seq_query_next_port(s.seq, pinfo) >= 0 {
			if C.snd_seq_port_info_get_type(pinfo)&C.SND_SEQ_PORT_TYPE_MIDI_GENERIC == 0 {
				continue
			}
			caps := C.snd_seq_port_info_get_capability(pinfo)
			if caps&want != want {
				continue
			}
			out = append(out, remotePort{
				addr: seqAddr{
					client: int(client),
					port:   int(C.snd_seq_port_info_get_port(pinfo)),
				},
				info: contracts.PortInfo{
					Name:       C.GoString(C.snd_seq_port_info_get_name(pinfo)),
					CanReceive: caps&(C.SND_SEQ_PORT_CAP_WRITE|C.SND_SEQ_PORT_CAP_SUBS_WRITE) != 0,
					CanSend:    caps&(C.SND_SEQ_PORT_CAP_READ|C.SND_SEQ_PORT_CAP_SUBS_READ) != 0,
				},
			})
		}
	}
	return out
}

func (s *alsaSeq) Subscribe(sender, dest seqAddr) (subscription, error) {
	var sub *C.snd_seq_port_subscribe_t
	if rc := C.snd_seq_port_subscribe_malloc(&sub); rc < 0 {
		return nil, alsaError("snd_seq_port_subscribe_malloc", rc)
	}

	var snd, rcv C.snd_seq_addr_t
	snd.client = C.uchar(sender.client)
	snd.port = C.uchar(sender.port)
	rcv.client = C.uchar(dest.client)
	rcv.port = C.uchar(dest.port)
	C.snd_seq_port_subscribe_set_sender(sub, &snd)
	C.snd_seq_port_subscribe_set_dest(sub, &rcv)
	C.snd_seq_port_subscribe_set_time_update(sub, 1)
	C.snd_seq_port_subscribe_set_time_real(sub, 1)

	if rc := C.snd_seq_subscribe_port(s.seq, sub); rc < 0 {
		C.snd_seq_port_subscribe_free(sub)
		return nil, alsaError("snd_seq_subscribe_port", rc)
	}
	return sub, nil
}

func (s *alsaSeq) Unsubscribe(h subscription) error {
	sub, _ := h.(*C.snd_seq_port_subscribe_t)
	if sub == nil {
		return nil
	}
	rc := C.snd_seq_unsubscribe_port(s.seq, sub)
	C.snd_seq_port_subscribe_free(sub)
	if rc < 0 {
		return alsaError("snd_seq_unsubscribe_port", rc)
	}
	return nil
}

// alsaEncoder wraps one snd_midi_event_t used for encoding only.
type alsaEncoder struct {
	coder *C.snd_midi_event_t
}

func (s *alsaSeq) NewEncoder(size int) (encoder, error) {
	var coder *C.snd_midi_event_t
	if rc := C.snd_midi_event_new(C.size_t(size), &coder); rc < 0 {
		return nil, alsaError("snd_midi_event_new", rc)
	}
	C.snd_midi_event_init(coder)
	return &alsaEncoder{coder: coder}, nil
}

func (e *alsaEncoder) Resize(n int) error {
	if rc := C.snd_midi_event_resize_buffer(e.coder, C.size_t(n)); rc != 0 {
		return alsaError("snd_midi_event_resize_buffer", rc)
	}
	return nil
}

func (e *alsaEncoder) Encode(b []byte) (int, nativeEvent, error) {
	ev := new(C.snd_seq_event_t)
	n := C.snd_midi_event_encode(e.coder, (*C.uchar)(unsafe.Pointer(&b[0])), C.long(len(b)), ev)
	if n < 0 {
		return 0, nil, alsaError("snd_midi_event_encode", C.int(n))
	}
	if ev._type == C.SND_SEQ_EVENT_NONE {
		return int(n), nil, nil
	}
	return int(n), ev, nil
}

func (e *alsaEncoder) Free() {
	if e.coder != nil {
		C.snd_midi_event_free(e.coder)
		e.coder = nil
	}
}

func (s *alsaSeq) Output(port int, ev nativeEvent) error {
	e, ok := ev.(*C.snd_seq_event_t)
	if !ok {
		return fmt.Errorf("unexpected event type %T", ev)
	}
	e.source.port = C.uchar(port)
	e.dest.client = C.uchar(C.SND_SEQ_ADDRESS_SUBSCRIBERS)
	e.dest.port = C.uchar(C.SND_SEQ_ADDRESS_UNKNOWN)
	e.queue = C.uchar(C.SND_SEQ_QUEUE_DIRECT)

	if rc := C.snd_seq_event_output(s.seq, e); rc < 0 {
		return alsaError("snd_seq_event_output", C.int(rc))
	}
	return nil
}

func (s *alsaSeq) Drain() error {
	if rc := C.snd_seq_drain_output(s.seq); rc < 0 {
		return alsaError("snd_seq_drain_output", C.int(rc))
	}
	return nil
}

func (s *alsaSeq) PollDescriptors() []contracts.PollDescriptor {
	n := C.snd_seq_poll_descriptors_count(s.seq, C.short(C.POLLIN))
	if n <= 0 {
		return nil
	}
	pfds := make([]C.struct_pollfd, int(n))
	got := C.snd_seq_poll_descriptors(s.seq, &pfds[0], C.uint(n), C.short(C.POLLIN))
	out := make([]contracts.PollDescriptor, 0, int(got))
	for _, p := range pfds[:int(got)] {
		out = append(out, contracts.PollDescriptor{FD: int32(p.fd), Events: int16(p.events)})
	}
	return out
}

func (s *alsaSeq) Wait(timeout time.Duration) (bool, error) {
	fds := s.PollDescriptors()
	if len(fds) == 0 {
		return false, nil
	}
	pfds := make([]unix.PollFd, len(fds))
	for i, fd := range fds {
		pfds[i] = unix.PollFd{Fd: fd.FD, Events: fd.Events}
	}
	n, err := unix.Poll(pfds, int(timeout.Milliseconds()))
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, err
	}
	return n > 0, nil
}

func (s *alsaSeq) ReadEvent() ([]byte, bool, error) {
	var ev *C.snd_seq_event_t
	rc := C.snd_seq_event_input(s.seq, &ev)
	if rc < 0 {
		if rc == -C.EAGAIN {
			return nil, false, nil
		}
		return nil, false, alsaError("snd_seq_event_input", C.int(rc))
	}

	for {
		n := C.snd_midi_event_decode(s.dec,
			(*C.uchar)(unsafe.Pointer(&s.decBuf[0])), C.long(len(s.decBuf)), ev)
		if n >= 0 {
			return append([]byte(nil), s.decBuf[:int(n)]...), true, nil
		}
		switch C.int(n) {
		case -C.ENOMEM:
			if len(s.decBuf) >= maxDecodeBuffer {
				return nil, false, fmt.Errorf("event exceeds %d byte decode limit", maxDecodeBuffer)
			}
			s.decBuf = make([]byte, len(s.decBuf)*2)
		case -C.ENOENT:
			// Housekeeping event with no MIDI payload (subscription
			// notifications, client exit).
			return nil, true, nil
		default:
			return nil, false, alsaError("snd_midi_event_decode", C.int(n))
		}
	}
}

func (s *alsaSeq) Release() error {
	if s.dec != nil {
		C.snd_midi_event_free(s.dec)
		s.dec = nil
	}
	return nil
}

func (s *alsaSeq) Close() error {
	_ = s.Release()
	if rc := C.snd_seq_close(s.seq); rc < 0 {
		return alsaError("snd_seq_close", rc)
	}
	return nil
}

func alsaError(fn string, rc C.int) error {
	return fmt.Errorf("%s: %s", fn, C.GoString(C.snd_strerror(rc)))
}
