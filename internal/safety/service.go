package safety

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/skyroof/safetymonitor/internal/roof"
	"github.com/skyroof/safetymonitor/internal/solar"
)

// Store is the settings store contract the service depends on. Load and
// Registry never fail: missing or corrupt data reads as defaults.
type Store interface {
	Load(ctx context.Context) Settings
	Save(ctx context.Context, s Settings) error
	Registry(ctx context.Context) Registry
}

// Fetcher retrieves roof status text from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Recorder receives evaluation telemetry. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveDecision(d Decision)
	ObserveFetch(roofName string, elapsed time.Duration, err error)
	ObserveAltitude(alt float64)
}

// Logger is the logging surface the service needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopRecorder struct{}

func (noopRecorder) ObserveDecision(Decision)                  {}
func (noopRecorder) ObserveFetch(string, time.Duration, error) {}
func (noopRecorder) ObserveAltitude(float64)                   {}

// maxRawResponse bounds the raw text echoed by RoofStatus.
const maxRawResponse = 200

// Service answers every safety question the HTTP surface and the background
// monitor ask. Settings are re-read from the store on every call.
//
// Thread Safety: all methods are safe for concurrent use. Mutations hold
// writeMu across their load, edit and save so concurrent edits of different
// fields never overwrite each other.
type Service struct {
	store    Store
	finder   *solar.Finder
	fetcher  Fetcher
	recorder Recorder
	logger   Logger
	now      func() time.Time

	writeMu sync.Mutex
}

// Option customises a Service.
type Option func(*Service)

// WithRecorder attaches a telemetry recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService wires the decision engine to its collaborators.
func NewService(store Store, finder *solar.Finder, fetcher Fetcher, opts ...Option) *Service {
	s := &Service{
		store:    store,
		finder:   finder,
		fetcher:  fetcher,
		recorder: noopRecorder{},
		logger:   noopLogger{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) snapshot(ctx context.Context) Snapshot {
	return Snapshot{
		Settings: s.store.Load(ctx),
		Registry: s.store.Registry(ctx),
	}
}

// Evaluate reads a fresh snapshot and runs Decide against it.
func (s *Service) Evaluate(ctx context.Context) Decision {
	snap := s.snapshot(ctx)
	now := s.now().UTC()

	altitude := func(lat, lon float64, t time.Time) float64 {
		alt := s.finder.Altitude(lat, lon, t)
		s.recorder.ObserveAltitude(alt)
		return alt
	}

	d := Decide(ctx, snap, now, altitude, s.fetchRoof)
	if d.Reason == ReasonRoofUnreachable {
		s.logger.Warn("roof status unreachable, reporting unsafe",
			"roof", d.RoofName,
			"error", d.FetchErr,
		)
	}
	s.recorder.ObserveDecision(d)
	return d
}

// IsSafe is Evaluate reduced to its verdict.
func (s *Service) IsSafe(ctx context.Context) bool {
	return s.Evaluate(ctx).IsSafe
}

func (s *Service) fetchRoof(ctx context.Context, r RoofConfig) (string, error) {
	start := time.Now()
	body, err := s.fetcher.Fetch(ctx, r.URL)
	s.recorder.ObserveFetch(r.Name, time.Since(start), err)
	return body, err
}

// SolarStatus describes the solar gate right now.
type SolarStatus struct {
	Enabled         bool     `json:"enabled"`
	CurrentAltitude *float64 `json:"currentAltitude"`
	MaxAltitude     float64  `json:"maxAltitude"`
	IsLocked        bool     `json:"isLocked"`
	Message         string   `json:"message"`
}

// SolarStatus reports the current altitude and whether it locks the roof out.
func (s *Service) SolarStatus(ctx context.Context) SolarStatus {
	set := s.store.Load(ctx)
	st := SolarStatus{
		Enabled:     set.SolarLockoutEnabled,
		MaxAltitude: set.MaxSolarAltitude,
	}

	if !set.HasCoordinates() {
		st.Message = "Observatory coordinates not set; solar lockout inactive"
		return st
	}

	alt := s.finder.Altitude(set.ObservatoryLatitude, set.ObservatoryLongitude, s.now().UTC())
	s.recorder.ObserveAltitude(alt)
	st.CurrentAltitude = &alt

	switch {
	case !set.SolarLockoutEnabled:
		st.Message = fmt.Sprintf("Solar lockout disabled; sun at %.1f°", alt)
	case alt > set.MaxSolarAltitude:
		st.IsLocked = true
		st.Message = fmt.Sprintf("Sun at %.1f° is above the %.1f° limit; observatory locked out", alt, set.MaxSolarAltitude)
	default:
		st.Message = fmt.Sprintf("Sun at %.1f° is below the %.1f° limit", alt, set.MaxSolarAltitude)
	}
	return st
}

// LockoutPeriod describes today's lockout window, or tomorrow's when today
// has none.
type LockoutPeriod struct {
	Enabled              bool       `json:"enabled"`
	Threshold            float64    `json:"threshold"`
	Date                 string     `json:"date,omitempty"`
	Timezone             string     `json:"timezone"`
	LockoutStart         *time.Time `json:"lockoutStart"`
	LockoutEnd           *time.Time `json:"lockoutEnd"`
	HasLockout           bool       `json:"hasLockout"`
	IsCurrentlyInLockout bool       `json:"isCurrentlyInLockout"`
	Message              string     `json:"message"`
}

// LockoutPeriod computes the lockout window in the observatory's timezone.
func (s *Service) LockoutPeriod(ctx context.Context) LockoutPeriod {
	set := s.store.Load(ctx)
	p := LockoutPeriod{
		Enabled:   set.SolarLockoutEnabled,
		Threshold: set.MaxSolarAltitude,
	}

	loc, _ := solar.ResolveLocation(set.ObservatoryTimezone)
	p.Timezone = loc.String()

	if !set.HasCoordinates() {
		p.Message = "Observatory coordinates not set; no lockout period"
		return p
	}

	now := s.now()
	day := solar.DateOf(now.In(loc))
	w := s.finder.FindLockoutWindow(day, set.ObservatoryLatitude, set.ObservatoryLongitude, set.MaxSolarAltitude, set.ObservatoryTimezone)
	when := "today"
	if !w.HasLockout() {
		day = day.AddDays(1)
		w = s.finder.FindLockoutWindow(day, set.ObservatoryLatitude, set.ObservatoryLongitude, set.MaxSolarAltitude, set.ObservatoryTimezone)
		when = "tomorrow"
	}

	p.Date = day.String()
	p.LockoutStart = w.Start
	p.LockoutEnd = w.End
	p.HasLockout = w.HasLockout()
	p.IsCurrentlyInLockout = set.SolarLockoutEnabled && w.Contains(now)

	switch {
	case !p.HasLockout:
		p.Message = fmt.Sprintf("Sun stays below %.1f° today and tomorrow", set.MaxSolarAltitude)
	case w.End == nil:
		p.Message = fmt.Sprintf("Lockout %s from %s until end of day", when, w.Start.Format("15:04"))
	default:
		p.Message = fmt.Sprintf("Lockout %s from %s to %s", when, w.Start.Format("15:04"), w.End.Format("15:04"))
	}
	if !set.SolarLockoutEnabled {
		p.Message += " (solar lockout disabled)"
	}
	return p
}

// Override is the operator-forced safety value.
type Override struct {
	Enabled bool `json:"enabled"`
	Value   bool `json:"value"`
}

// Override returns the stored override state.
func (s *Service) Override(ctx context.Context) Override {
	set := s.store.Load(ctx)
	return Override{Enabled: set.ManualOverrideEnabled, Value: set.ManualOverrideValue}
}

// SetOverride persists a new override state.
func (s *Service) SetOverride(ctx context.Context, o Override) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	set := s.store.Load(ctx)
	set.ManualOverrideEnabled = o.Enabled
	set.ManualOverrideValue = o.Value
	if err := s.save(ctx, set); err != nil {
		return err
	}
	s.logger.Info("manual override updated", "enabled", o.Enabled, "value", o.Value)
	return nil
}

// SelectRoof persists the roof selection. An empty name clears it.
func (s *Service) SelectRoof(ctx context.Context, name string) error {
	if name != "" {
		if _, ok := s.store.Registry(ctx).Find(name); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownRoof, name)
		}
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	set := s.store.Load(ctx)
	set.SelectedRoofName = name
	if err := s.save(ctx, set); err != nil {
		return err
	}
	s.logger.Info("roof selected", "roof", name)
	return nil
}

// SolarSettings is the operator-editable part of the solar gate.
type SolarSettings struct {
	SolarLockoutEnabled  bool    `json:"solarLockoutEnabled"`
	MaxSolarAltitude     float64 `json:"maxSolarAltitude"`
	ObservatoryLatitude  float64 `json:"observatoryLatitude"`
	ObservatoryLongitude float64 `json:"observatoryLongitude"`
	ObservatoryTimezone  string  `json:"observatoryTimezone"`
}

// UpdateSolarSettings validates and persists solar gate settings.
func (s *Service) UpdateSolarSettings(ctx context.Context, in SolarSettings) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	set := s.store.Load(ctx)
	set.SolarLockoutEnabled = in.SolarLockoutEnabled
	set.MaxSolarAltitude = in.MaxSolarAltitude
	set.ObservatoryLatitude = in.ObservatoryLatitude
	set.ObservatoryLongitude = in.ObservatoryLongitude
	set.ObservatoryTimezone = in.ObservatoryTimezone
	if err := set.Validate(); err != nil {
		return err
	}
	if in.ObservatoryTimezone != "" {
		if _, ok := solar.ResolveLocation(in.ObservatoryTimezone); !ok {
			return fmt.Errorf("%w: unknown timezone %q", ErrInvalidSettings, in.ObservatoryTimezone)
		}
	}
	if err := s.save(ctx, set); err != nil {
		return err
	}
	s.logger.Info("solar settings updated",
		"enabled", set.SolarLockoutEnabled,
		"max_altitude", set.MaxSolarAltitude,
		"timezone", set.ObservatoryTimezone,
	)
	return nil
}

func (s *Service) save(ctx context.Context, set Settings) error {
	if err := s.store.Save(ctx, set); err != nil {
		s.logger.Error("saving settings failed", "error", err)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// Settings returns the current persisted settings.
func (s *Service) Settings(ctx context.Context) Settings {
	return s.store.Load(ctx)
}

// Registry returns the roof registry.
func (s *Service) Registry(ctx context.Context) Registry {
	return s.store.Registry(ctx)
}

// RoofStatus is the diagnostic view of the selected roof endpoint.
type RoofStatus struct {
	RoofName    string     `json:"roofName"`
	URL         string     `json:"url"`
	Connected   bool       `json:"connected"`
	LastUpdate  *time.Time `json:"lastUpdate"`
	Status      string     `json:"status"`
	IsSafe      bool       `json:"isSafe"`
	RawResponse string     `json:"rawResponse"`
	Error       string     `json:"error,omitempty"`
}

// RoofStatus fetches the selected roof once and reports what it said.
func (s *Service) RoofStatus(ctx context.Context) RoofStatus {
	snap := s.snapshot(ctx)
	r, ok := snap.Registry.Find(snap.Settings.SelectedRoofName)
	if !ok {
		return RoofStatus{Status: ReasonNoRoofSelected.Description()}
	}

	st := RoofStatus{RoofName: r.Name, URL: r.URL}
	body, err := s.fetchRoof(ctx, r)
	if err != nil {
		st.Status = ReasonRoofUnreachable.Description()
		st.Error = fetchErrorText(err)
		return st
	}

	loc, _ := solar.ResolveLocation(snap.Settings.ObservatoryTimezone)
	st.Connected = true
	st.Status = roof.ExtractStatusLabel(body)
	st.IsSafe = roof.ParseSafety(body)
	st.RawResponse = truncateRaw(body)
	if ts, ok := roof.ExtractTimestamp(body, loc); ok {
		st.LastUpdate = &ts
	}
	return st
}

func fetchErrorText(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	return err.Error()
}

func truncateRaw(body string) string {
	r := []rune(body)
	if len(r) <= maxRawResponse {
		return body
	}
	return string(r[:maxRawResponse]) + "..."
}
