package suppress

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ecosense/alertkit/pkg/alert"
)

// gridStep is the rounding applied to coordinates when building suppression
// keys, roughly a 1 km cell at mid latitudes. Two measurements from the same
// neighborhood therefore share a window.
const gridStep = 0.01

// Default window lengths per severity: how long a key stays suppressed after
// one alert fires.
var defaultWindows = map[alert.Severity]time.Duration{
	alert.SeverityCritical: time.Hour,
	alert.SeverityWarning:  2 * time.Hour,
	alert.SeverityInfo:     4 * time.Hour,
}

// Key identifies a suppression window: one grid cell, one pollutant (or "*"
// for multi-pollutant alerts), one severity.
type Key struct {
	Location  alert.Location
	Pollutant string
	Severity  alert.Severity
}

// String renders the key in its storage form.
func (k Key) String() string {
	pollutant := k.Pollutant
	if pollutant == "" {
		pollutant = "*"
	}
	lat := snapToGrid(k.Location.Lat)
	lng := snapToGrid(k.Location.Lng)
	return fmt.Sprintf("suppress:%.2f:%.2f:%s:%s", lat, lng, pollutant, k.Severity)
}

func snapToGrid(deg float64) float64 {
	return float64(int64(deg/gridStep)) * gridStep
}

// Limiter suppresses duplicate alerts for the same key within a rolling
// window. It only needs "has one already fired in this window", so each key
// holds a single marker with a TTL equal to the window length — no counting.
type Limiter struct {
	store   Store
	windows map[alert.Severity]time.Duration
	logger  *slog.Logger
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithWindow overrides the suppression window for one severity.
func WithWindow(severity alert.Severity, window time.Duration) LimiterOption {
	return func(l *Limiter) {
		if window > 0 {
			l.windows[severity] = window
		}
	}
}

// WithLimiterLogger sets the logger for the limiter.
func WithLimiterLogger(logger *slog.Logger) LimiterOption {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLimiter creates a suppression limiter with the default per-severity
// windows.
func NewLimiter(store Store, opts ...LimiterOption) (*Limiter, error) {
	if store == nil {
		return nil, ErrStoreNil
	}

	l := &Limiter{
		store:   store,
		windows: make(map[alert.Severity]time.Duration, len(defaultWindows)),
		logger:  slog.Default(),
	}
	for s, w := range defaultWindows {
		l.windows[s] = w
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// ShouldSuppress reports whether an alert for the key should be dropped.
// On allow it records the emission, opening a new window. Store failures
// fail open: suppression is an optimization, and losing a duplicate alert
// is worse than sending one.
func (l *Limiter) ShouldSuppress(ctx context.Context, key Key) (bool, error) {
	window, ok := l.windows[key.Severity]
	if !ok {
		window = defaultWindows[alert.SeverityInfo]
	}

	recorded, err := l.store.SetIfAbsent(ctx, key.String(), window)
	if err != nil {
		l.logger.WarnContext(ctx, "suppression store unavailable, failing open",
			slog.String("key", key.String()),
			slog.String("error", err.Error()))
		return false, err
	}

	// SetIfAbsent returns false when a marker already exists, meaning an
	// alert for this key fired within the current window.
	return !recorded, nil
}

// Reset clears the window for a key. Intended for tests and manual
// operational overrides.
func (l *Limiter) Reset(ctx context.Context, key Key) error {
	return l.store.Delete(ctx, key.String())
}
