package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity boundaries for threshold breach evaluation, expressed as the
// ratio of the measured value to the configured threshold.
const (
	breachCriticalRatio = 2.0
	breachWarningRatio  = 1.5
	breachInfoRatio     = 1.0
)

// Trend evaluation defaults. The 0.2 significance cutoff is fixed by the
// analytics contract; the boundaries above it are deliberately overridable
// because the exact split between warning and critical is still being tuned
// against historical data.
const (
	// DefaultTrendSignificance is the minimum relative magnitude a trend
	// must have before it is considered alert-worthy at all.
	DefaultTrendSignificance = 0.2

	// DefaultTrendCriticalMagnitude is the worsening magnitude at which a
	// trend alert escalates from warning to critical.
	DefaultTrendCriticalMagnitude = 0.5

	// DefaultTrendImprovementNotable is the improving magnitude worth
	// announcing to users at all.
	DefaultTrendImprovementNotable = 0.5
)

// Alert lifetimes per alert type.
const (
	breachTTL  = 6 * time.Hour
	trendTTL   = 24 * time.Hour
	warningTTL = 12 * time.Hour
)

// DefaultAffectedRadiusKm is the radius within which an alert is considered
// relevant when the measurement itself carries no better estimate.
const DefaultAffectedRadiusKm = 10.0

// Generator turns already-fetched measurement, trend, and risk results into
// alerts. It performs no I/O and never consults external state, which keeps
// every evaluation deterministic given the injected clock.
type Generator struct {
	now                func() time.Time
	trendSignificance  float64
	trendCritical      float64
	improvementNotable float64
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithClock overrides the time source, allowing tests to pin evaluation time.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithTrendSignificance overrides the minimum magnitude for trend alerts.
func WithTrendSignificance(v float64) GeneratorOption {
	return func(g *Generator) {
		if v > 0 {
			g.trendSignificance = v
		}
	}
}

// WithTrendCriticalMagnitude overrides the worsening magnitude at which
// trend alerts become critical.
func WithTrendCriticalMagnitude(v float64) GeneratorOption {
	return func(g *Generator) {
		if v > 0 {
			g.trendCritical = v
		}
	}
}

// NewGenerator creates an alert generator with the documented defaults.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		now:                time.Now,
		trendSignificance:  DefaultTrendSignificance,
		trendCritical:      DefaultTrendCriticalMagnitude,
		improvementNotable: DefaultTrendImprovementNotable,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ThresholdBreach evaluates a single measurement against its configured
// threshold. It returns nil when the value is below the threshold.
func (g *Generator) ThresholdBreach(loc Location, pollutant string, value float64, unit string, threshold float64) (*Alert, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: got %v for %s", ErrInvalidThreshold, threshold, pollutant)
	}

	ratio := value / threshold

	var severity Severity
	switch {
	case ratio >= breachCriticalRatio:
		severity = SeverityCritical
	case ratio >= breachWarningRatio:
		severity = SeverityWarning
	case ratio >= breachInfoRatio:
		severity = SeverityInfo
	default:
		// No breach.
		return nil, nil
	}

	now := g.now()
	return &Alert{
		ID:               uuid.New(),
		Type:             TypeThresholdBreach,
		Severity:         severity,
		Title:            fmt.Sprintf("%s levels elevated", pollutant),
		Message: fmt.Sprintf(
			"%s measured at %.1f %s, exceeding the threshold of %.1f %s. Consider limiting prolonged outdoor exposure in the affected area.",
			pollutant, value, unit, threshold, unit),
		Location:         loc,
		AffectedRadiusKm: DefaultAffectedRadiusKm,
		Pollutant:        pollutant,
		CurrentValue:     value,
		ThresholdValue:   threshold,
		Unit:             unit,
		ExpiresAt:        now.Add(breachTTL),
		CreatedAt:        now,
	}, nil
}

// Trend evaluates a trend computation result. Only worsening trends and
// notably large improvements produce alerts; everything below the
// significance cutoff is suppressed.
func (g *Generator) Trend(loc Location, pollutant string, direction TrendDirection, magnitude float64) *Alert {
	if magnitude < g.trendSignificance {
		return nil
	}

	var severity Severity
	var title, message string

	switch direction {
	case TrendWorsening:
		if magnitude >= g.trendCritical {
			severity = SeverityCritical
		} else {
			severity = SeverityWarning
		}
		title = fmt.Sprintf("%s air quality worsening", pollutant)
		message = fmt.Sprintf(
			"%s concentrations in your area have worsened by %.0f%% over the recent monitoring period. Sensitive groups should reduce outdoor activity.",
			pollutant, magnitude*100)
	case TrendImproving:
		if magnitude < g.improvementNotable {
			return nil
		}
		severity = SeverityInfo
		title = fmt.Sprintf("%s air quality improving", pollutant)
		message = fmt.Sprintf(
			"%s concentrations in your area have improved by %.0f%% over the recent monitoring period.",
			pollutant, magnitude*100)
	default:
		// Stable or unrecognized directions are never alert-worthy.
		return nil
	}

	now := g.now()
	return &Alert{
		ID:               uuid.New(),
		Type:             TypeTrendAlert,
		Severity:         severity,
		Title:            title,
		Message:          message,
		Location:         loc,
		AffectedRadiusKm: DefaultAffectedRadiusKm,
		Pollutant:        pollutant,
		ExpiresAt:        now.Add(trendTTL),
		CreatedAt:        now,
	}
}

// HealthWarning builds a multi-pollutant health warning from a risk
// assessment. Unlike the other evaluators it always produces an alert for a
// valid risk level, since the assessment itself already encodes the decision
// that conditions are harmful.
func (g *Generator) HealthWarning(loc Location, pollutants []string, risk RiskLevel) (*Alert, error) {
	if len(pollutants) == 0 {
		return nil, ErrNoPollutants
	}

	var severity Severity
	switch risk {
	case RiskModerate:
		severity = SeverityWarning
	case RiskHigh, RiskVeryHigh:
		severity = SeverityCritical
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRiskLevel, risk)
	}

	now := g.now()
	return &Alert{
		ID:       uuid.New(),
		Type:     TypeHealthWarning,
		Severity: severity,
		Title:    "Health warning for your area",
		Message: fmt.Sprintf(
			"Elevated levels of %s present a %s health risk. Stay indoors where possible and avoid strenuous outdoor activity.",
			strings.Join(pollutants, ", "), strings.ReplaceAll(string(risk), "_", " ")),
		Location:         loc,
		AffectedRadiusKm: DefaultAffectedRadiusKm,
		ExpiresAt:        now.Add(warningTTL),
		CreatedAt:        now,
	}, nil
}
