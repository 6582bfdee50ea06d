package alert

import "errors"

var (
	// ErrInvalidThreshold is returned when a threshold value is zero or negative
	ErrInvalidThreshold = errors.New("threshold value must be positive")

	// ErrUnknownRiskLevel is returned when a health risk level is not recognized
	ErrUnknownRiskLevel = errors.New("unknown health risk level")

	// ErrNoPollutants is returned when a health warning is requested without pollutants
	ErrNoPollutants = errors.New("health warning requires at least one pollutant")
)
