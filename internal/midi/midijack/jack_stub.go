//go:build (!linux && !darwin) || !cgo

package midijack

import (
	"fmt"

	"github.com/soundbus/midilink/sdk/contracts"
)

func openServer(name string, ctx uintptr) (server, bool, error) {
	return nil, false, fmt.Errorf("%w: built without jack support", contracts.ErrBackendUnavailable)
}
