//go:build cgo

package midiport

import (
	"testing"

	"github.com/soundbus/midilink/internal/midi/miditest"
	"github.com/soundbus/midilink/sdk/contracts"
)

func libraryRefs(t *testing.T) int {
	t.Helper()
	initMu.Lock()
	defer initMu.Unlock()
	return initRefs
}

func TestIn_CloseTwiceReleasesLibraryOnce(t *testing.T) {
	in, err := NewIn(contracts.Options{ClientName: "test", Logger: miditest.NewLogger()})
	if err != nil {
		t.Skipf("portmidi unavailable: %v", err)
	}

	if err := in.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := in.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if refs := libraryRefs(t); refs != 0 {
		t.Fatalf("library refcount %d after close, want 0", refs)
	}
}

func TestOut_CloseTwiceReleasesLibraryOnce(t *testing.T) {
	out, err := NewOut(contracts.Options{ClientName: "test", Logger: miditest.NewLogger()})
	if err != nil {
		t.Skipf("portmidi unavailable: %v", err)
	}

	if err := out.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if refs := libraryRefs(t); refs != 0 {
		t.Fatalf("library refcount %d after close, want 0", refs)
	}
}

func TestRelease_NoopWithoutReference(t *testing.T) {
	if before := libraryRefs(t); before != 0 {
		t.Skipf("library already referenced (%d)", before)
	}
	if err := release(); err != nil {
		t.Fatalf("release without reference: %v", err)
	}
	if refs := libraryRefs(t); refs != 0 {
		t.Fatalf("refcount went to %d without a matching acquire", refs)
	}
}
