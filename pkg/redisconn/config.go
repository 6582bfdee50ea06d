package redisconn

import "time"

// Config holds the connection settings for the key-value store backing the
// notification queue and the suppression limiter.
type Config struct {
	// ConnectionURL is in the form "redis://:password@localhost:6379/0".
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}
