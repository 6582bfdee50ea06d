package rule

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ecosense/alertkit/pkg/alert"
	"github.com/ecosense/alertkit/pkg/delivery"
)

// MaxRadiusKm caps how wide a single rule may listen. Larger circles would
// fan out nearly every alert to the user and defeat rate limiting.
const MaxRadiusKm = 500.0

// Area is a circular region of interest around a point.
type Area struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	RadiusKm float64 `json:"radius_km"`
}

// Center returns the area's center point.
func (a Area) Center() alert.Location {
	return alert.Location{Lat: a.Lat, Lng: a.Lng}
}

// Triggers selects which alert types a rule subscribes to.
type Triggers struct {
	// PollutantThresholds maps pollutant codes to the user's personal
	// breach thresholds. A threshold_breach alert matches only when its
	// pollutant appears here.
	PollutantThresholds map[string]float64 `json:"pollutant_thresholds,omitempty"`
	TrendAlerts         bool               `json:"trend_alerts"`
	CommunityUpdates    bool               `json:"community_updates"`
	HealthWarnings      bool               `json:"health_warnings"`
}

// Rule is a per-user notification subscription. Rules are owned by the user
// and mutated only through the rule-management API; once read into a fan-out
// computation they are treated as immutable.
type Rule struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user_id"`
	Location        Area              `json:"location"`
	Triggers        Triggers          `json:"triggers"`
	DeliveryMethods []delivery.Method `json:"delivery_methods"`
	Active          bool              `json:"active"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Validate checks the rule for structural problems. All failures wrap
// ErrValidation so the API boundary can classify them without string
// matching.
func (r *Rule) Validate() error {
	if r.UserID == uuid.Nil {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if r.Location.Lat < -90 || r.Location.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrValidation, r.Location.Lat)
	}
	if r.Location.Lng < -180 || r.Location.Lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrValidation, r.Location.Lng)
	}
	if r.Location.RadiusKm <= 0 {
		return fmt.Errorf("%w: radius must be positive, got %v", ErrValidation, r.Location.RadiusKm)
	}
	if r.Location.RadiusKm > MaxRadiusKm {
		return fmt.Errorf("%w: radius %v exceeds maximum of %v km", ErrValidation, r.Location.RadiusKm, MaxRadiusKm)
	}
	for pollutant, threshold := range r.Triggers.PollutantThresholds {
		if pollutant == "" {
			return fmt.Errorf("%w: empty pollutant code in thresholds", ErrValidation)
		}
		if threshold <= 0 {
			return fmt.Errorf("%w: threshold for %s must be positive, got %v", ErrValidation, pollutant, threshold)
		}
	}
	if len(r.DeliveryMethods) == 0 {
		return fmt.Errorf("%w: at least one delivery method is required", ErrValidation)
	}
	for _, m := range r.DeliveryMethods {
		if !m.Valid() {
			return fmt.Errorf("%w: unknown delivery method %q", ErrValidation, m)
		}
	}
	return nil
}

// Matches reports whether the rule's triggers subscribe to the given alert.
// Geographic matching is handled separately by the store query.
func (r *Rule) Matches(a alert.Alert) bool {
	switch a.Type {
	case alert.TypeThresholdBreach:
		_, ok := r.Triggers.PollutantThresholds[a.Pollutant]
		return ok
	case alert.TypeTrendAlert:
		return r.Triggers.TrendAlerts
	case alert.TypeHealthWarning:
		return r.Triggers.HealthWarnings
	case alert.TypeCommunityUpdate:
		return r.Triggers.CommunityUpdates
	}
	return false
}
