// Package queue implements the durable notification work queue and its
// competing-consumer workers.
//
// The queue lives in a low-latency external key-value store as three
// structures: a FIFO list of serialized delivery tasks, a processing set
// tracking in-flight task ids for crash visibility, and a retry set scored
// by next-attempt time. A task exists in exactly one of the three (or is
// terminal) at any instant; every mutation is a single-key atomic store
// operation, so multiple workers need no coordination beyond the store
// itself.
//
// The moving parts:
//
//   - Enqueuer     — serializes delivery tasks onto the FIFO
//   - Worker       — pops tasks, drives the delivery adapter, and resolves
//     each task into delivered, retry-scheduled, or failed
//   - RetryScanner — moves due retry entries back onto the FIFO
//   - Janitor      — purges payloads whose alerts expired undelivered
//
// Failed sends back off exponentially (two minutes doubling per attempt by
// default, so 2/4/8 for the standard three-retry budget). Delivery is
// at-least-once per (user, method) pair: successes are memoized inside the
// task payload, so a retried task only re-attempts the pairs that failed.
//
// Once a task has been popped, the holder owns the only copy of its payload.
// Writes that give the payload back to the store (retry scheduling,
// requeueing) are therefore retried in process and fall back to the other
// structure before failing, so a store outage delays the task instead of
// dropping it.
//
// Storage has Redis and in-memory implementations; components interact only
// through the Storage interface.
package queue
