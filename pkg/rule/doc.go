// Package rule defines per-user notification rules: which alerts a user
// subscribes to, where, and through which channels.
//
// A Rule combines a circular area of interest, a set of trigger conditions
// (personal pollutant thresholds plus boolean flags for trend alerts, health
// warnings, and community updates), and the user's delivery methods. The
// fan-out path queries rules geographically via Store.FindActiveNear and
// gates on Rule.Matches.
//
// Validation is strict and synchronous: Service.Create rejects malformed
// rules with errors wrapping ErrValidation before anything is persisted.
package rule
