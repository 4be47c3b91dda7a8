package telemetry

import "testing"

func TestSubjectBuilders(t *testing.T) {
	if got := SnapshotSubject("lab.sysdeck", "bench-01", "memory"); got != "lab.sysdeck.bench-01.sysinfo.memory" {
		t.Errorf("SnapshotSubject() = %q", got)
	}
	if got := CommandSubject("sysdeck", "bench-01", "ping"); got != "sysdeck.bench-01.cmd.ping" {
		t.Errorf("CommandSubject() = %q", got)
	}
}
