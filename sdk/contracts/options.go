package contracts

// Filter holds the ignore flags applied on the receive path. A set flag
// discards the matching event category before reassembly.
type Filter struct {
	Sysex   bool // system exclusive messages (0xF0 ... 0xF7)
	Timing  bool // MIDI time code (0xF1) and timing clock (0xF8)
	Sensing bool // active sensing (0xFE)
}

// Options holds the configuration for one driver instance. It is fixed at
// construction and never mutated afterwards.
type Options struct {
	// ClientName is the display name advertised to the native subsystem.
	ClientName string
	// Filter selects event categories to discard on the receive path.
	Filter Filter
	// Context is an externally owned native client handle. When non-zero the
	// driver uses it instead of opening its own client and never closes it;
	// when zero the driver opens a client it exclusively owns.
	Context uintptr
	// Receiver, when set on an input, is invoked with each completed message
	// instead of the pull channel.
	Receiver Receiver
	// ManualPoll, when set on an input that supports it, replaces the
	// driver's own descriptor wait; the receive goroutine asks the
	// predicate for readiness instead.
	ManualPoll PollFunc
	// QueueSize bounds the pull-side message channel.
	QueueSize int
	// Backend selects the native subsystem; empty picks the platform
	// default.
	Backend Backend
	// Logger receives warnings and driver errors.
	Logger   Logger
	LogLevel LogLevel
}

// Option mutates Options during construction.
type Option func(*Options)

// WithClientName sets the display name advertised to the native subsystem.
func WithClientName(name string) Option {
	return func(o *Options) { o.ClientName = name }
}

// WithIgnoreFilter sets the receive-path ignore flags.
func WithIgnoreFilter(f Filter) Option {
	return func(o *Options) { o.Filter = f }
}

// WithContext supplies a caller-owned native client handle. The driver will
// share it and never close it.
func WithContext(handle uintptr) Option {
	return func(o *Options) { o.Context = handle }
}

// WithReceiver sets the message delivery callback for an input driver.
func WithReceiver(fn Receiver) Option {
	return func(o *Options) { o.Receiver = fn }
}

// WithManualPoll sets the readiness predicate for an input driver that
// supports manual polling.
func WithManualPoll(fn PollFunc) Option {
	return func(o *Options) { o.ManualPoll = fn }
}

// WithQueueSize bounds the pull-side message channel.
func WithQueueSize(n int) Option {
	return func(o *Options) { o.QueueSize = n }
}

// WithBackend selects the native subsystem explicitly.
func WithBackend(b Backend) Option {
	return func(o *Options) { o.Backend = b }
}

// WithLogger sets the logger for the driver.
func WithLogger(l Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithLogLevel sets the logging level for the driver.
func WithLogLevel(level LogLevel) Option {
	return func(o *Options) { o.LogLevel = level }
}
