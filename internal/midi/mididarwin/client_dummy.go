//go:build !darwin

package mididarwin

import (
	"fmt"

	"github.com/soundbus/midilink/sdk/contracts"
)

func NewIn(opts contracts.Options) (contracts.In, error) {
	return nil, fmt.Errorf("%w: coremidi is only available on darwin", contracts.ErrBackendUnavailable)
}

func NewOut(opts contracts.Options) (contracts.Out, error) {
	return nil, fmt.Errorf("%w: coremidi is only available on darwin", contracts.ErrBackendUnavailable)
}
