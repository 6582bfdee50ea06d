package alert_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosense/alertkit/pkg/alert"
)

var kyiv = alert.Location{Lat: 50.4501, Lng: 30.5234}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGenerator_ThresholdBreach(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	g := alert.NewGenerator(alert.WithClock(fixedClock(now)))

	t.Run("ratio at or above 2.0 is critical", func(t *testing.T) {
		t.Parallel()

		a, err := g.ThresholdBreach(kyiv, "PM2.5", 50, "µg/m³", 25)
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Equal(t, alert.TypeThresholdBreach, a.Type)
		assert.Equal(t, alert.SeverityCritical, a.Severity)
		assert.Equal(t, "PM2.5", a.Pollutant)
		assert.Equal(t, now.Add(6*time.Hour), a.ExpiresAt)
		assert.True(t, a.ExpiresAt.After(a.CreatedAt))
	})

	t.Run("ratio in [1.5, 2.0) is warning", func(t *testing.T) {
		t.Parallel()

		a, err := g.ThresholdBreach(kyiv, "NO2", 30, "µg/m³", 20)
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Equal(t, alert.SeverityWarning, a.Severity)

		a, err = g.ThresholdBreach(kyiv, "NO2", 39.9, "µg/m³", 20)
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Equal(t, alert.SeverityWarning, a.Severity)
	})

	t.Run("ratio in [1.0, 1.5) is info", func(t *testing.T) {
		t.Parallel()

		a, err := g.ThresholdBreach(kyiv, "O3", 100, "µg/m³", 100)
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Equal(t, alert.SeverityInfo, a.Severity)
	})

	t.Run("ratio below 1.0 is no breach", func(t *testing.T) {
		t.Parallel()

		a, err := g.ThresholdBreach(kyiv, "PM10", 24.9, "µg/m³", 25)
		require.NoError(t, err)
		assert.Nil(t, a)
	})

	t.Run("message carries value and threshold", func(t *testing.T) {
		t.Parallel()

		a, err := g.ThresholdBreach(kyiv, "PM2.5", 50, "µg/m³", 25)
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Contains(t, a.Message, "50.0")
		assert.Contains(t, a.Message, "25.0")
		assert.Contains(t, a.Message, "outdoor")
	})

	t.Run("non-positive threshold rejected", func(t *testing.T) {
		t.Parallel()

		a, err := g.ThresholdBreach(kyiv, "PM2.5", 50, "µg/m³", 0)
		assert.ErrorIs(t, err, alert.ErrInvalidThreshold)
		assert.Nil(t, a)
	})
}

func TestGenerator_Trend(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	g := alert.NewGenerator(alert.WithClock(fixedClock(now)))

	t.Run("magnitude below significance suppressed", func(t *testing.T) {
		t.Parallel()

		a := g.Trend(kyiv, "PM2.5", alert.TrendWorsening, 0.1)
		assert.Nil(t, a)
	})

	t.Run("worsening 0.3 is warning", func(t *testing.T) {
		t.Parallel()

		a := g.Trend(kyiv, "PM2.5", alert.TrendWorsening, 0.3)
		require.NotNil(t, a)
		assert.Equal(t, alert.TypeTrendAlert, a.Type)
		assert.Equal(t, alert.SeverityWarning, a.Severity)
		assert.Equal(t, now.Add(24*time.Hour), a.ExpiresAt)
	})

	t.Run("worsening at or above critical magnitude is critical", func(t *testing.T) {
		t.Parallel()

		a := g.Trend(kyiv, "PM2.5", alert.TrendWorsening, 0.5)
		require.NotNil(t, a)
		assert.Equal(t, alert.SeverityCritical, a.Severity)
	})

	t.Run("stable never alerts", func(t *testing.T) {
		t.Parallel()

		a := g.Trend(kyiv, "PM2.5", alert.TrendStable, 0.9)
		assert.Nil(t, a)
	})

	t.Run("minor improvement suppressed", func(t *testing.T) {
		t.Parallel()

		a := g.Trend(kyiv, "PM2.5", alert.TrendImproving, 0.3)
		assert.Nil(t, a)
	})

	t.Run("notable improvement is info", func(t *testing.T) {
		t.Parallel()

		a := g.Trend(kyiv, "PM2.5", alert.TrendImproving, 0.6)
		require.NotNil(t, a)
		assert.Equal(t, alert.SeverityInfo, a.Severity)
	})

	t.Run("critical boundary is overridable", func(t *testing.T) {
		t.Parallel()

		strict := alert.NewGenerator(
			alert.WithClock(fixedClock(now)),
			alert.WithTrendCriticalMagnitude(0.3),
		)

		a := strict.Trend(kyiv, "PM2.5", alert.TrendWorsening, 0.35)
		require.NotNil(t, a)
		assert.Equal(t, alert.SeverityCritical, a.Severity)
	})
}

func TestGenerator_HealthWarning(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	g := alert.NewGenerator(alert.WithClock(fixedClock(now)))

	t.Run("moderate risk is warning", func(t *testing.T) {
		t.Parallel()

		a, err := g.HealthWarning(kyiv, []string{"PM2.5", "O3"}, alert.RiskModerate)
		require.NoError(t, err)
		assert.Equal(t, alert.SeverityWarning, a.Severity)
	})

	t.Run("very high risk is critical", func(t *testing.T) {
		t.Parallel()

		a, err := g.HealthWarning(kyiv, []string{"PM2.5", "NO2"}, alert.RiskVeryHigh)
		require.NoError(t, err)
		assert.Equal(t, alert.TypeHealthWarning, a.Type)
		assert.Equal(t, alert.SeverityCritical, a.Severity)
		assert.Equal(t, now.Add(12*time.Hour), a.ExpiresAt)
	})

	t.Run("message enumerates pollutants", func(t *testing.T) {
		t.Parallel()

		a, err := g.HealthWarning(kyiv, []string{"PM2.5", "NO2"}, alert.RiskHigh)
		require.NoError(t, err)
		assert.Contains(t, a.Message, "PM2.5, NO2")
		assert.Contains(t, a.Message, "indoors")
	})

	t.Run("unknown risk level rejected", func(t *testing.T) {
		t.Parallel()

		_, err := g.HealthWarning(kyiv, []string{"PM2.5"}, alert.RiskLevel("apocalyptic"))
		assert.ErrorIs(t, err, alert.ErrUnknownRiskLevel)
	})

	t.Run("empty pollutant list rejected", func(t *testing.T) {
		t.Parallel()

		_, err := g.HealthWarning(kyiv, nil, alert.RiskHigh)
		assert.ErrorIs(t, err, alert.ErrNoPollutants)
	})
}

func TestAlert_Expired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	g := alert.NewGenerator(alert.WithClock(fixedClock(now)))

	a, err := g.ThresholdBreach(kyiv, "PM2.5", 50, "µg/m³", 25)
	require.NoError(t, err)

	assert.False(t, a.Expired(now))
	assert.False(t, a.Expired(now.Add(6*time.Hour)))
	assert.True(t, a.Expired(now.Add(6*time.Hour+time.Second)))
}
