package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skyroof/safetymonitor/internal/safety"
)

// Evaluator produces a fresh safety decision.
type Evaluator interface {
	Evaluate(ctx context.Context) safety.Decision
}

// Sink receives every evaluation the monitor makes.
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev Event) error
}

// Logger is the logging surface the monitor needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Debug(string, ...any) {}

// Event is one evaluation as handed to sinks.
type Event struct {
	ID       string          `json:"id"`
	Site     string          `json:"site"`
	Decision safety.Decision `json:"decision"`
	// Changed is true when the verdict or reason differs from the previous
	// evaluation, and on the first evaluation after start.
	Changed bool      `json:"changed"`
	At      time.Time `json:"at"`
}

const defaultInterval = 30 * time.Second

// Monitor runs the decision on a fixed period and fans the result out.
//
// Thread Safety: Last is safe to call while Run is executing.
type Monitor struct {
	eval     Evaluator
	site     string
	interval time.Duration
	sinks    []Sink
	logger   Logger
	now      func() time.Time

	mu   sync.RWMutex
	last *safety.Decision
}

// Option customises a Monitor.
type Option func(*Monitor)

// WithSinks appends sinks. Nil sinks are skipped.
func WithSinks(sinks ...Sink) Option {
	return func(m *Monitor) {
		for _, s := range sinks {
			if s != nil {
				m.sinks = append(m.sinks, s)
			}
		}
	}
}

// WithLogger sets the monitor logger.
func WithLogger(l Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithSite sets the site id stamped on events.
func WithSite(site string) Option {
	return func(m *Monitor) {
		m.site = site
	}
}

// New creates a monitor. interval <= 0 selects 30 seconds.
func New(eval Evaluator, interval time.Duration, opts ...Option) *Monitor {
	if interval <= 0 {
		interval = defaultInterval
	}
	m := &Monitor{
		eval:     eval,
		interval: interval,
		logger:   noopLogger{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run evaluates immediately and then once per interval until ctx is
// cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick performs one evaluation and publishes it to every sink.
func (m *Monitor) Tick(ctx context.Context) Event {
	d := m.eval.Evaluate(ctx)

	m.mu.Lock()
	changed := m.last == nil || !m.last.SameVerdict(d)
	m.last = &d
	m.mu.Unlock()

	ev := Event{
		ID:       uuid.NewString(),
		Site:     m.site,
		Decision: d,
		Changed:  changed,
		At:       m.now().UTC(),
	}

	if changed {
		m.logger.Info("safety decision changed",
			"is_safe", d.IsSafe,
			"reason", d.Reason,
			"roof", d.RoofName,
		)
	} else {
		m.logger.Debug("safety decision unchanged", "is_safe", d.IsSafe, "reason", d.Reason)
	}

	for _, s := range m.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			m.logger.Warn("sink publish failed", "sink", s.Name(), "error", err)
		}
	}
	return ev
}

// Last returns the most recent decision, if any evaluation has run.
func (m *Monitor) Last() (safety.Decision, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return safety.Decision{}, false
	}
	return *m.last, true
}
