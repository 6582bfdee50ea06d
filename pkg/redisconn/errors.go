package redisconn

import "errors"

var (
	ErrParseConnectionURL = errors.New("failed to parse redis connection string")
	ErrNotReady           = errors.New("redis did not become ready within the given time period")
	ErrHealthcheckFailed  = errors.New("redis healthcheck failed")
)
