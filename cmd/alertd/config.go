package main

import "time"

type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"alertd"`
}

type queueConfig struct {
	KeyPrefix      string        `env:"QUEUE_KEY_PREFIX" envDefault:"alerts"`
	PollInterval   time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"1s"`
	DequeueTimeout time.Duration `env:"QUEUE_DEQUEUE_TIMEOUT" envDefault:"5s"`
	SendTimeout    time.Duration `env:"QUEUE_SEND_TIMEOUT" envDefault:"30s"`
	MaxConcurrent  int           `env:"QUEUE_MAX_CONCURRENT" envDefault:"5"`

	// Cron schedules for queue maintenance and the store liveness probe.
	RetryScanSchedule   string `env:"QUEUE_RETRY_SCAN_SCHEDULE" envDefault:"@every 1m"`
	CleanupSchedule     string `env:"QUEUE_CLEANUP_SCHEDULE" envDefault:"@hourly"`
	HealthcheckSchedule string `env:"REDIS_HEALTHCHECK_SCHEDULE" envDefault:"@every 1m"`
}
