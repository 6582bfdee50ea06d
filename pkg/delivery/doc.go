// Package delivery defines the delivery-side domain model: tasks, the
// append-only audit trail of delivery records, and the Adapter contract for
// channel transports.
//
// A Task carries the alert plus its targeting (users × methods) and retry
// bookkeeping. The Delivered memo travels with the task through the queue so
// a retried task never re-sends a (user, method) pair that already
// succeeded, giving at-least-once delivery without duplicate sends.
//
// Transport protocols are out of scope here: push and SMS adapters are
// provided by external services behind the Adapter interface. An email
// adapter backed by Postmark ships with the package, along with a logging
// DevAdapter for local development.
package delivery
