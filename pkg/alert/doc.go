// Package alert defines the alert domain model and the pure evaluation
// logic that turns measurement, trend, and health-risk results into alerts.
//
// The Generator performs no I/O: callers pass in already-fetched values and
// receive zero or one Alert back. This keeps every evaluation deterministic
// and trivially testable with an injected clock.
//
// # Usage
//
//	g := alert.NewGenerator()
//
//	a, err := g.ThresholdBreach(
//	    alert.Location{Lat: 50.45, Lng: 30.52},
//	    "PM2.5", 50, "µg/m³", 25,
//	)
//	if err != nil {
//	    // invalid threshold configuration
//	}
//	if a != nil {
//	    // a.Severity == alert.SeverityCritical
//	}
//
// Severity boundaries for trend alerts above the fixed 0.2 significance
// cutoff are overridable via WithTrendCriticalMagnitude, since the exact
// split is still being tuned.
package alert
