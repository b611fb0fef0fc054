//go:build !cgo

package midiport

import (
	"fmt"

	"github.com/soundbus/midilink/sdk/contracts"
)

func NewIn(opts contracts.Options) (contracts.In, error) {
	return nil, fmt.Errorf("%w: built without portmidi support", contracts.ErrBackendUnavailable)
}

func NewOut(opts contracts.Options) (contracts.Out, error) {
	return nil, fmt.Errorf("%w: built without portmidi support", contracts.ErrBackendUnavailable)
}
