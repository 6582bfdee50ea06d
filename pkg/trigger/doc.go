// Package trigger orchestrates the alerting pipeline: measurement batches
// and periodic trend/risk results flow in, accepted alerts and their
// delivery tasks flow out.
//
// For each input the service asks the pure generator for an alert, checks
// the suppression limiter, persists accepted alerts, and expands them into
// one delivery task per matching notification rule. Suppressed alerts are
// intentional no-ops, logged at debug level.
//
// The service is fully dependency-injected and safe to run in multiple
// instances; shared state lives in the collaborating stores, not here.
package trigger
