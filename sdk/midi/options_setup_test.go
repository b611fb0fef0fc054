package midi

import (
	"errors"
	"testing"

	"github.com/soundbus/midilink/internal/midi/miditest"
	"github.com/soundbus/midilink/sdk/contracts"
)

func TestApplyDefaultOptions(t *testing.T) {
	options := applyDefaultOptions()

	if options.Logger == nil {
		t.Fatal("no default logger applied")
	}
	if options.ClientName != defaultClientName {
		t.Fatalf("client name: want %q, got %q", defaultClientName, options.ClientName)
	}
	if options.QueueSize <= 0 {
		t.Fatalf("queue size not defaulted: %d", options.QueueSize)
	}
	if options.Backend == "" {
		t.Fatal("backend not defaulted")
	}
	if options.Backend != defaultBackend() {
		t.Fatalf("backend: want %q, got %q", defaultBackend(), options.Backend)
	}
}

func TestApplyDefaultOptionsKeepsExplicitValues(t *testing.T) {
	log := miditest.NewLogger()
	options := applyDefaultOptions(
		contracts.WithClientName("sequencer bridge"),
		contracts.WithQueueSize(16),
		contracts.WithBackend(contracts.BackendJack),
		contracts.WithLogger(log),
		contracts.WithIgnoreFilter(contracts.Filter{Timing: true}),
	)

	if options.ClientName != "sequencer bridge" {
		t.Fatalf("client name overridden: %q", options.ClientName)
	}
	if options.QueueSize != 16 {
		t.Fatalf("queue size overridden: %d", options.QueueSize)
	}
	if options.Backend != contracts.BackendJack {
		t.Fatalf("backend overridden: %q", options.Backend)
	}
	if options.Logger != log {
		t.Fatal("logger overridden")
	}
	if !options.Filter.Timing {
		t.Fatal("filter not applied")
	}
}

func TestFactoryRejectsUnknownBackend(t *testing.T) {
	if _, err := inFactory("winmm"); !errors.Is(err, ErrUnsupportedBackend) {
		t.Fatalf("want ErrUnsupportedBackend, got %v", err)
	}
	if _, err := outFactory("winmm"); !errors.Is(err, ErrUnsupportedBackend) {
		t.Fatalf("want ErrUnsupportedBackend, got %v", err)
	}
}

func TestFactoryKnowsEveryBackend(t *testing.T) {
	backends := []contracts.Backend{
		contracts.BackendSeq,
		contracts.BackendJack,
		contracts.BackendPortMidi,
		contracts.BackendCoreMIDI,
	}
	for _, b := range backends {
		if _, err := inFactory(b); err != nil {
			t.Errorf("no input factory for %q: %v", b, err)
		}
		if _, err := outFactory(b); err != nil {
			t.Errorf("no output factory for %q: %v", b, err)
		}
	}
}
