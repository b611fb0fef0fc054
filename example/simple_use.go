package main

import (
	"fmt"
	"time"

	"github.com/soundbus/midilink/internal/logger"
	"github.com/soundbus/midilink/sdk/contracts"
	"github.com/soundbus/midilink/sdk/midi"
)

func main() {
	log := logger.NewZapLogger()

	in, err := midi.NewIn(
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithClientName("midilink example"),
		contracts.WithIgnoreFilter(contracts.Filter{Timing: true, Sensing: true}),
	)
	if err != nil {
		log.Error("Failed to initialize input driver", log.Field().Error("error", err))
		return
	}
	defer in.Close()

	count := in.PortCount()
	if count == 0 {
		log.Error("No MIDI sources found")
		return
	}
	for i := 0; i < count; i++ {
		name, err := in.PortName(i)
		if err != nil {
			continue
		}
		fmt.Printf("source %d: %s\n", i, name)
	}

	if err = in.OpenPort(0, "midilink in"); err != nil {
		log.Error("Failed to open source port", log.Field().Error("error", err))
		return
	}

	go func() {
		for msg := range in.Messages() {
			log.Info("MIDI message",
				log.Field().Float64("delta", msg.Delta),
				log.Field().Int("bytes", len(msg.Bytes)),
				log.Field().Uint8("status", msg.Bytes[0]),
			)
		}
	}()

	out, err := midi.NewOut(
		contracts.WithLogger(log),
		contracts.WithClientName("midilink example"),
	)
	if err != nil {
		log.Error("Failed to initialize output driver", log.Field().Error("error", err))
		return
	}
	defer out.Close()

	if out.PortCount() > 0 {
		if err = out.OpenPort(0, "midilink out"); err != nil {
			log.Error("Failed to open sink port", log.Field().Error("error", err))
			return
		}
		// Middle C, on then off.
		_ = out.SendMessage([]byte{0x90, 0x3C, 0x64})
		time.Sleep(250 * time.Millisecond)
		_ = out.SendMessage([]byte{0x80, 0x3C, 0x00})
	}

	fmt.Println("Listening for MIDI messages... Press Ctrl+C to exit.")
	select {}
}
