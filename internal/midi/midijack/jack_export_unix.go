//go:build (linux || darwin) && cgo

package midijack

/*
#include <jack/jack.h>
*/
import "C"

import "unsafe"

// midilinkProcess is the process callback JACK invokes on its realtime
// thread. The opaque argument resolves the owning server through the
// registry; a client torn down mid-cycle resolves to nil and the cycle is
// skipped.
//
//export midilinkProcess
func midilinkProcess(nframes C.jack_nframes_t, arg unsafe.Pointer) C.int {
	registryMu.RLock()
	s := registry[arg]
	registryMu.RUnlock()

	if s != nil && s.process != nil {
		s.process(uint32(nframes))
	}
	return 0
}
