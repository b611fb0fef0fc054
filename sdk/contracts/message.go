package contracts

// Message is one complete MIDI message, possibly reassembled from several
// native event fragments.
type Message struct {
	// Delta is the time in seconds since the previously delivered message.
	// The first message a driver ever delivers carries a Delta of exactly 0.
	Delta float64
	// Bytes holds the raw message, status byte first. A SysEx message spans
	// from 0xF0 through its 0xF7 terminator.
	Bytes []byte
}

// Receiver is invoked with each completed message. It runs on the driver's
// delivery context and must not block.
type Receiver func(Message)
