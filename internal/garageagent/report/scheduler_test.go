package report

import (
	"testing"

	"github.com/autopeer-io/garage-agent/internal/garageagent/core"
)

func run(s *Scheduler, states []core.DoorState) []int {
	var reports []int
	for i, st := range states {
		if s.Due(st) != None {
			reports = append(reports, i)
		}
		s.Observe(st)
	}
	return reports
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSteadyStateReportsPeriodically(t *testing.T) {
	open := core.DoorOpen
	got := run(New(3), []core.DoorState{open, open, open, open, open})
	if want := []int{0, 3}; !equal(got, want) {
		t.Errorf("reports at ticks %v, want %v", got, want)
	}
}

func TestChangeReportsImmediately(t *testing.T) {
	o, c := core.DoorOpen, core.DoorClosed
	tests := []struct {
		name   string
		period int
		states []core.DoorState
		want   []int
	}{
		{"first sample", 30, []core.DoorState{c}, []int{0}},
		{"toggle", 30, []core.DoorState{c, c, o, o, c}, []int{0, 2, 4}},
		{"change restarts the timer", 3, []core.DoorState{o, o, c, c, c, c}, []int{0, 2, 5}},
		{"period of one", 1, []core.DoorState{o, o, o}, []int{0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(New(tt.period), tt.states); !equal(got, tt.want) {
				t.Errorf("reports at ticks %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimerResetsAfterReport(t *testing.T) {
	s := New(5)
	if r := s.Due(core.DoorOpen); r != Change {
		t.Fatalf("Due() = %v, want change", r)
	}
	if s.Timer() != 5 {
		t.Errorf("Timer() = %d, want 5", s.Timer())
	}
	s.Observe(core.DoorOpen)

	if r := s.Due(core.DoorOpen); r != None || s.Timer() != 4 {
		t.Errorf("Due() = %v, Timer() = %d", r, s.Timer())
	}
}

func TestChangeAndExpiryYieldOneReport(t *testing.T) {
	s := New(2)
	s.Due(core.DoorOpen)
	s.Observe(core.DoorOpen)
	s.Due(core.DoorOpen)
	s.Observe(core.DoorOpen)

	// Timer expires on the same tick the state changes.
	if r := s.Due(core.DoorClosed); r != Change {
		t.Errorf("Due() = %v, want change", r)
	}
	if s.Timer() != 2 {
		t.Errorf("Timer() = %d, want 2", s.Timer())
	}
}

func TestPayload(t *testing.T) {
	if got := string(Payload(core.DoorOpen)); got != `{"GarageDoor":"open"}` {
		t.Errorf("Payload(open) = %s", got)
	}
	if got := string(Payload(core.DoorClosed)); got != `{"GarageDoor":"closed"}` {
		t.Errorf("Payload(closed) = %s", got)
	}
}

func TestSkippedTicksStillCountDown(t *testing.T) {
	s := New(3)
	open := core.DoorOpen

	if s.Due(open) != Change {
		t.Fatal("first sample should be a change")
	}
	s.Observe(open)

	// Two failed samples, then a good one: the heartbeat stays on tick 3.
	s.Skip()
	s.Skip()
	if s.Timer() != 1 {
		t.Fatalf("timer = %d after two skips, want 1", s.Timer())
	}
	if got := s.Due(open); got != Periodic {
		t.Errorf("Due() = %v on tick 3, want periodic", got)
	}
	if s.Timer() != 3 {
		t.Errorf("timer = %d after report, want 3", s.Timer())
	}
}

func TestExpiryDuringSkipsReportsOnNextSample(t *testing.T) {
	s := New(2)
	s.Due(core.DoorClosed)
	s.Observe(core.DoorClosed)

	s.Skip()
	s.Skip()
	s.Skip()
	if got := s.Due(core.DoorClosed); got != Periodic {
		t.Errorf("Due() = %v after the timer expired during skips, want periodic", got)
	}
}
