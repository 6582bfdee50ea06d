package alert

import (
	"time"

	"github.com/google/uuid"
)

// Type represents the kind of environmental condition an alert describes.
type Type string

const (
	TypeThresholdBreach Type = "threshold_breach"
	TypeTrendAlert      Type = "trend_alert"
	TypeHealthWarning   Type = "health_warning"
	TypeCommunityUpdate Type = "community_update"
)

// Valid checks if the alert type is one of the known variants.
func (t Type) Valid() bool {
	switch t {
	case TypeThresholdBreach, TypeTrendAlert, TypeHealthWarning, TypeCommunityUpdate:
		return true
	}
	return false
}

// Severity represents how urgent an alert is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Valid checks if the severity is one of the known variants.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// TrendDirection describes the direction of a pollutant trend computed
// by the analytics collaborator. This package only consumes the result.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendWorsening TrendDirection = "worsening"
)

// RiskLevel is the multi-pollutant health risk classification supplied
// by the analytics collaborator.
type RiskLevel string

const (
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

// Location is a geographic point in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Alert is a generated, time-bounded notice of an environmental condition.
// Alerts are immutable once created; delivery fan-out and history queries
// only ever read them.
type Alert struct {
	ID               uuid.UUID `json:"id"`
	Type             Type      `json:"type"`
	Severity         Severity  `json:"severity"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	Location         Location  `json:"location"`
	AffectedRadiusKm float64   `json:"affected_radius_km"`
	Pollutant        string    `json:"pollutant,omitempty"`
	CurrentValue     float64   `json:"current_value,omitempty"`
	ThresholdValue   float64   `json:"threshold_value,omitempty"`
	Unit             string    `json:"unit,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// Expired reports whether the alert's delivery window has passed.
// Expired alerts are treated as cancelled: remaining delivery attempts
// are skipped without contacting the channel adapters.
func (a *Alert) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
