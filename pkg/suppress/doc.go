// Package suppress rate-limits duplicate alerts. Alerts are keyed by a
// coordinate grid cell, pollutant (or "*"), and severity; within a rolling
// window only the first alert per key is emitted.
//
// The implementation stores a single marker per key with a TTL equal to the
// window length — "has one already fired" is all that is needed, so there is
// no counting. Critical alerts get a one-hour window, warnings two hours,
// info four; windows are overridable per severity.
//
// Suppression being dropped (store outage) fails open: callers emit the
// alert and log a warning rather than losing it.
package suppress
