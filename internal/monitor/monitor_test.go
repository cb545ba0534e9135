package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/skyroof/safetymonitor/internal/safety"
)

type scriptedEvaluator struct {
	mu        sync.Mutex
	decisions []safety.Decision
	calls     int
}

func (e *scriptedEvaluator) Evaluate(context.Context) safety.Decision {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.calls
	if i >= len(e.decisions) {
		i = len(e.decisions) - 1
	}
	e.calls++
	return e.decisions[i]
}

func (e *scriptedEvaluator) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type recordingSink struct {
	name string
	err  error

	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

type countingLogger struct {
	mu    sync.Mutex
	infos int
	warns int
}

func (l *countingLogger) Info(string, ...any) {
	l.mu.Lock()
	l.infos++
	l.mu.Unlock()
}

func (l *countingLogger) Warn(string, ...any) {
	l.mu.Lock()
	l.warns++
	l.mu.Unlock()
}

func (l *countingLogger) Debug(string, ...any) {}

var (
	open    = safety.Decision{IsSafe: true, Reason: safety.ReasonRoofOpen, RoofName: "north"}
	closed  = safety.Decision{IsSafe: false, Reason: safety.ReasonRoofUnsafe, RoofName: "north"}
	daytime = safety.Decision{IsSafe: false, Reason: safety.ReasonSolarLockout}
)

func TestTick_MarksChanges(t *testing.T) {
	eval := &scriptedEvaluator{decisions: []safety.Decision{open, open, closed, daytime, daytime}}
	sink := &recordingSink{name: "rec"}
	log := &countingLogger{}
	m := New(eval, time.Minute, WithSinks(sink), WithSite("east"), WithLogger(log))

	want := []bool{true, false, true, true, false}
	for range want {
		m.Tick(context.Background())
	}

	events := sink.Events()
	if len(events) != len(want) {
		t.Fatalf("sink saw %d events, want %d", len(events), len(want))
	}
	for i, ev := range events {
		if ev.Changed != want[i] {
			t.Errorf("event %d Changed = %v, want %v", i, ev.Changed, want[i])
		}
		if ev.Site != "east" {
			t.Errorf("event %d Site = %q, want east", i, ev.Site)
		}
		if ev.ID == "" {
			t.Errorf("event %d has empty ID", i)
		}
	}
	if log.infos != 3 {
		t.Errorf("info logs = %d, want 3 (one per change)", log.infos)
	}

	last, ok := m.Last()
	if !ok || !last.SameVerdict(daytime) {
		t.Errorf("Last() = %+v, %v; want solar lockout", last, ok)
	}
}

func TestTick_SinkFailureDoesNotStopOthers(t *testing.T) {
	eval := &scriptedEvaluator{decisions: []safety.Decision{open}}
	failing := &recordingSink{name: "broken", err: errors.New("broker down")}
	healthy := &recordingSink{name: "ok"}
	log := &countingLogger{}
	m := New(eval, time.Minute, WithSinks(failing, nil, healthy), WithLogger(log))

	m.Tick(context.Background())
	m.Tick(context.Background())

	if got := len(healthy.Events()); got != 2 {
		t.Errorf("healthy sink saw %d events, want 2", got)
	}
	if log.warns != 2 {
		t.Errorf("warn logs = %d, want 2", log.warns)
	}
}

func TestLast_BeforeFirstTick(t *testing.T) {
	m := New(&scriptedEvaluator{decisions: []safety.Decision{open}}, 0)
	if _, ok := m.Last(); ok {
		t.Error("Last() ok = true before any evaluation")
	}
	if m.interval != defaultInterval {
		t.Errorf("interval = %v, want default %v", m.interval, defaultInterval)
	}
}

func TestRun_EvaluatesImmediatelyAndStops(t *testing.T) {
	eval := &scriptedEvaluator{decisions: []safety.Decision{open}}
	m := New(eval, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for eval.Calls() < 3 {
		select {
		case <-deadline:
			t.Fatalf("evaluations = %d after 2s, want at least 3", eval.Calls())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
