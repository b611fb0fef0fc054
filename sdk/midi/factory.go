package midi

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/soundbus/midilink/internal/midi/mididarwin"
	"github.com/soundbus/midilink/internal/midi/midijack"
	"github.com/soundbus/midilink/internal/midi/midiport"
	"github.com/soundbus/midilink/internal/midi/midiseq"
	"github.com/soundbus/midilink/sdk/contracts"
)

// ErrUnsupportedBackend is returned when the requested backend is not known.
var ErrUnsupportedBackend = errors.New("unsupported backend")

// inFactories maps backend names to source driver initializers.
var inFactories = map[contracts.Backend]func(contracts.Options) (contracts.In, error){
	contracts.BackendSeq:      midiseq.NewIn,
	contracts.BackendJack:     midijack.NewIn,
	contracts.BackendPortMidi: midiport.NewIn,
	contracts.BackendCoreMIDI: mididarwin.NewIn,
}

// outFactories maps backend names to sink driver initializers.
var outFactories = map[contracts.Backend]func(contracts.Options) (contracts.Out, error){
	contracts.BackendSeq:      midiseq.NewOut,
	contracts.BackendJack:     midijack.NewOut,
	contracts.BackendPortMidi: midiport.NewOut,
	contracts.BackendCoreMIDI: mididarwin.NewOut,
}

// defaultBackend picks the native subsystem for the current platform.
func defaultBackend() contracts.Backend {
	switch runtime.GOOS {
	case "linux":
		return contracts.BackendSeq
	case "darwin":
		return contracts.BackendCoreMIDI
	default:
		return contracts.BackendPortMidi
	}
}

func inFactory(backend contracts.Backend) (func(contracts.Options) (contracts.In, error), error) {
	if factory, exists := inFactories[backend]; exists {
		return factory, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, backend)
}

func outFactory(backend contracts.Backend) (func(contracts.Options) (contracts.Out, error), error) {
	if factory, exists := outFactories[backend]; exists {
		return factory, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, backend)
}
