//go:build !linux || !cgo

package midiseq

import "github.com/soundbus/midilink/sdk/contracts"

// openSequencer reports the backend as unavailable when the module is built
// without the native sequencer binding.
func openSequencer(clientName string, ctx uintptr) (sequencer, bool, error) {
	return nil, false, contracts.ErrBackendUnavailable
}
