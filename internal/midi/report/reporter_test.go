package report

import (
	"errors"
	"fmt"
	"testing"

	"github.com/soundbus/midilink/internal/midi/miditest"
	"github.com/soundbus/midilink/sdk/contracts"
)

func TestReporter_WarningLogsAndRecords(t *testing.T) {
	log := miditest.NewLogger()
	rep := New(log)

	err := errors.New("queue overrun")
	if got := rep.Warning(err); got != err {
		t.Fatalf("Warning must return its argument, got %v", got)
	}
	if log.WarnCount() != 1 || log.ErrorCount() != 0 {
		t.Fatalf("want 1 warning and 0 errors, got %d/%d", log.WarnCount(), log.ErrorCount())
	}

	last, sev, ok := rep.Last()
	if !ok || last != err || sev != contracts.SeverityWarning {
		t.Fatalf("Last() = %v, %v, %v", last, sev, ok)
	}
}

func TestReporter_ErrorLogsAndRecords(t *testing.T) {
	log := miditest.NewLogger()
	rep := New(log)

	err := contracts.ErrNoDevicesFound
	if got := rep.Error(err); got != err {
		t.Fatalf("Error must return its argument, got %v", got)
	}
	if log.ErrorCount() != 1 {
		t.Fatalf("want 1 error, got %d", log.ErrorCount())
	}

	_, sev, _ := rep.Last()
	if sev != contracts.SeverityDriverError {
		t.Fatalf("severity: want driver error, got %v", sev)
	}
}

func TestReporter_ReportDerivesSeverity(t *testing.T) {
	cases := []struct {
		err  error
		want contracts.Severity
	}{
		{fmt.Errorf("%w: port index 9", contracts.ErrInvalidParameter), contracts.SeverityDriverError},
		{fmt.Errorf("%w: snd_seq_open", contracts.ErrDriver), contracts.SeverityDriverError},
		{contracts.ErrNoDevicesFound, contracts.SeverityDriverError},
		{fmt.Errorf("%w: renaming", contracts.ErrUnsupported), contracts.SeverityWarning},
		{errors.New("dropped a message"), contracts.SeverityWarning},
	}
	for _, c := range cases {
		log := miditest.NewLogger()
		rep := New(log)
		rep.Report(c.err)
		_, sev, ok := rep.Last()
		if !ok || sev != c.want {
			t.Errorf("Report(%v): severity %v, want %v", c.err, sev, c.want)
		}
	}
}

func TestReporter_NilIsNotRecorded(t *testing.T) {
	log := miditest.NewLogger()
	rep := New(log)

	if err := rep.Warning(nil); err != nil {
		t.Fatalf("Warning(nil) = %v", err)
	}
	if _, _, ok := rep.Last(); ok {
		t.Fatal("nil report must not be recorded")
	}
	if log.WarnCount() != 0 {
		t.Fatalf("nil report logged: %d warnings", log.WarnCount())
	}
}

func TestReporter_LastTracksMostRecent(t *testing.T) {
	log := miditest.NewLogger()
	rep := New(log)

	first := errors.New("first")
	second := errors.New("second")
	rep.Error(first)
	rep.Warning(second)

	last, sev, ok := rep.Last()
	if !ok || last != second || sev != contracts.SeverityWarning {
		t.Fatalf("Last() = %v, %v, %v; want second warning", last, sev, ok)
	}
}
