// Package redisconn manages the connection to the key-value store shared by
// the notification queue and the alert suppression limiter. Connect retries
// until the store is reachable so the daemon survives a store that comes up
// slower than it does.
package redisconn
