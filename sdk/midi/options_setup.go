package midi

import (
	"github.com/soundbus/midilink/internal/logger"
	"github.com/soundbus/midilink/internal/midi/framing"
	"github.com/soundbus/midilink/sdk/contracts"
)

// defaultClientName is advertised to the native subsystem when the caller
// does not pick a name.
const defaultClientName = "midilink client"

// applyDefaultOptions sets default values for Options if not explicitly
// provided.
func applyDefaultOptions(opts ...contracts.Option) contracts.Options {
	options := &contracts.Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.LogLevel == 0 {
		options.LogLevel = contracts.InfoLevel
	}
	options.Logger.SetLevel(options.LogLevel)

	if options.ClientName == "" {
		options.ClientName = defaultClientName
	}
	if options.QueueSize <= 0 {
		options.QueueSize = framing.DefaultQueueSize
	}
	if options.Backend == "" {
		options.Backend = defaultBackend()
	}
	return *options
}
