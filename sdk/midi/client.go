// Package midi is the public entry point. It resolves the configured (or
// platform-default) backend and hands back the matching driver.
package midi

import (
	"github.com/soundbus/midilink/sdk/contracts"
)

// NewIn creates a source driver with the specified options.
//
// opts ...contracts.Option: A variadic list of option functions to customize
// the driver configuration.
//
// Returns:
//   - contracts.In: The source driver for the resolved backend.
//   - error: An error, if any occurred during driver creation.
func NewIn(opts ...contracts.Option) (contracts.In, error) {
	options := applyDefaultOptions(opts...)
	factory, err := inFactory(options.Backend)
	if err != nil {
		return nil, err
	}
	return factory(options)
}

// NewOut creates a sink driver with the specified options.
//
// opts ...contracts.Option: A variadic list of option functions to customize
// the driver configuration.
//
// Returns:
//   - contracts.Out: The sink driver for the resolved backend.
//   - error: An error, if any occurred during driver creation.
func NewOut(opts ...contracts.Option) (contracts.Out, error) {
	options := applyDefaultOptions(opts...)
	factory, err := outFactory(options.Backend)
	if err != nil {
		return nil, err
	}
	return factory(options)
}
