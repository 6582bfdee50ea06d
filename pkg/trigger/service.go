package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ecosense/alertkit/pkg/alert"
	"github.com/ecosense/alertkit/pkg/delivery"
	"github.com/ecosense/alertkit/pkg/queue"
	"github.com/ecosense/alertkit/pkg/rule"
	"github.com/ecosense/alertkit/pkg/suppress"
)

// Enqueuer hands delivery tasks to the notification queue. Satisfied by
// queue.Enqueuer.
type Enqueuer interface {
	EnqueueTask(ctx context.Context, task delivery.Task) error
}

// Service orchestrates alert generation: it runs measurements, trend
// results, and risk assessments through the generator, consults the
// suppression limiter, persists accepted alerts, and fans them out into
// delivery tasks for every matching rule.
//
// All collaborators are injected at construction; the service holds no
// global state and any number of instances may run concurrently.
type Service struct {
	generator *alert.Generator
	limiter   *suppress.Limiter
	alerts    AlertStore
	rules     rule.Store
	enqueuer  Enqueuer
	logger    *slog.Logger
	now       func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the alert trigger service.
func NewService(
	generator *alert.Generator,
	limiter *suppress.Limiter,
	alerts AlertStore,
	rules rule.Store,
	enqueuer Enqueuer,
	opts ...ServiceOption,
) (*Service, error) {
	if generator == nil || limiter == nil || alerts == nil || rules == nil || enqueuer == nil {
		return nil, ErrDependencyNil
	}

	s := &Service{
		generator: generator,
		limiter:   limiter,
		alerts:    alerts,
		rules:     rules,
		enqueuer:  enqueuer,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ProcessMeasurements evaluates a batch of new measurements and returns the
// alerts that were accepted and fanned out. A bad reading never aborts the
// rest of the batch.
func (s *Service) ProcessMeasurements(ctx context.Context, batch []Measurement) ([]alert.Alert, error) {
	var accepted []alert.Alert
	for _, m := range batch {
		a, err := s.GeneratePollutantAlert(ctx, m.Location, m.Pollutant, m.Value, m.Unit, m.Threshold)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping measurement",
				slog.String("pollutant", m.Pollutant),
				slog.String("error", err.Error()))
			continue
		}
		if a != nil {
			accepted = append(accepted, *a)
		}
	}
	return accepted, nil
}

// ProcessTrends evaluates the periodic trend-detection results.
func (s *Service) ProcessTrends(ctx context.Context, trends []TrendResult) ([]alert.Alert, error) {
	var accepted []alert.Alert
	for _, tr := range trends {
		a, err := s.GenerateTrendAlert(ctx, tr.Location, tr.Pollutant, tr.Direction, tr.Magnitude)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping trend result",
				slog.String("pollutant", tr.Pollutant),
				slog.String("error", err.Error()))
			continue
		}
		if a != nil {
			accepted = append(accepted, *a)
		}
	}
	return accepted, nil
}

// ProcessRiskAssessments evaluates the periodic multi-pollutant risk
// assessments.
func (s *Service) ProcessRiskAssessments(ctx context.Context, risks []RiskAssessment) ([]alert.Alert, error) {
	var accepted []alert.Alert
	for _, r := range risks {
		a, err := s.GenerateHealthWarning(ctx, r.Location, r.Pollutants, r.Risk)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping risk assessment",
				slog.String("error", err.Error()))
			continue
		}
		if a != nil {
			accepted = append(accepted, *a)
		}
	}
	return accepted, nil
}

// GeneratePollutantAlert runs one measurement through the full pipeline:
// evaluate, rate-limit, persist, fan out. Returns nil when no threshold was
// breached or the alert was suppressed.
func (s *Service) GeneratePollutantAlert(ctx context.Context, loc alert.Location, pollutant string, value float64, unit string, threshold float64) (*alert.Alert, error) {
	a, err := s.generator.ThresholdBreach(loc, pollutant, value, unit, threshold)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, nil
	}
	return s.accept(ctx, a)
}

// GenerateTrendAlert runs a trend result through the full pipeline.
func (s *Service) GenerateTrendAlert(ctx context.Context, loc alert.Location, pollutant string, direction alert.TrendDirection, magnitude float64) (*alert.Alert, error) {
	a := s.generator.Trend(loc, pollutant, direction, magnitude)
	if a == nil {
		return nil, nil
	}
	return s.accept(ctx, a)
}

// GenerateHealthWarning runs a risk assessment through the full pipeline.
func (s *Service) GenerateHealthWarning(ctx context.Context, loc alert.Location, pollutants []string, risk alert.RiskLevel) (*alert.Alert, error) {
	a, err := s.generator.HealthWarning(loc, pollutants, risk)
	if err != nil {
		return nil, err
	}
	return s.accept(ctx, a)
}

// accept applies suppression, persists the alert, and fans it out. A
// suppressed alert is an intentional no-op, reported as nil without error.
func (s *Service) accept(ctx context.Context, a *alert.Alert) (*alert.Alert, error) {
	key := suppress.Key{
		Location:  a.Location,
		Pollutant: a.Pollutant,
		Severity:  a.Severity,
	}

	suppressed, err := s.limiter.ShouldSuppress(ctx, key)
	if err != nil {
		// Fail open: the limiter already logged; an occasional duplicate
		// beats a lost critical alert.
		suppressed = false
	}
	if suppressed {
		s.logger.DebugContext(ctx, "alert suppressed by rate limiter",
			slog.String("key", key.String()),
			slog.String("severity", string(a.Severity)))
		return nil, nil
	}

	if err := s.alerts.Create(ctx, *a); err != nil {
		s.releaseWindow(ctx, key)
		return nil, fmt.Errorf("failed to persist alert %s: %w", a.ID, err)
	}

	fanned, err := s.fanOut(ctx, *a)
	if err != nil {
		s.releaseWindow(ctx, key)
		return nil, err
	}

	s.logger.InfoContext(ctx, "alert accepted",
		slog.String("alert_id", a.ID.String()),
		slog.String("type", string(a.Type)),
		slog.String("severity", string(a.Severity)),
		slog.Int("delivery_tasks", fanned))

	return a, nil
}

// releaseWindow clears the suppression marker recorded by accept after the
// pipeline failed past it. Without this, a persist failure would mute the
// key for the rest of the window with nothing delivered.
func (s *Service) releaseWindow(ctx context.Context, key suppress.Key) {
	if err := s.limiter.Reset(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to release suppression window",
			slog.String("key", key.String()),
			slog.String("error", err.Error()))
	}
}

// fanOut expands an alert into one delivery task per matching rule.
func (s *Service) fanOut(ctx context.Context, a alert.Alert) (int, error) {
	rules, err := s.rules.FindActiveNear(ctx, a.Location, a.AffectedRadiusKm)
	if err != nil {
		return 0, fmt.Errorf("failed to find rules near alert %s: %w", a.ID, err)
	}

	now := s.now()
	fanned := 0
	for _, r := range rules {
		if !r.Matches(a) {
			continue
		}

		task := delivery.Task{
			ID:            uuid.New(),
			Alert:         a,
			TargetUserIDs: []uuid.UUID{r.UserID},
			Methods:       r.DeliveryMethods,
			MaxRetries:    queue.DefaultMaxRetries,
			ScheduledAt:   now,
			CreatedAt:     now,
		}
		if err := s.enqueuer.EnqueueTask(ctx, task); err != nil {
			return fanned, fmt.Errorf("failed to enqueue task for rule %s: %w", r.ID, err)
		}
		fanned++
	}
	return fanned, nil
}

// PurgeExpiredAlerts deletes alerts past their expiry from the history
// store. Intended to run hourly alongside the queue janitor.
func (s *Service) PurgeExpiredAlerts(ctx context.Context) (int, error) {
	deleted, err := s.alerts.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired alerts: %w", err)
	}
	if deleted > 0 {
		s.logger.InfoContext(ctx, "deleted expired alerts", slog.Int("count", deleted))
	}
	return deleted, nil
}
