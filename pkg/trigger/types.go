package trigger

import (
	"github.com/ecosense/alertkit/pkg/alert"
)

// Measurement is one pollutant reading from the ingestion collaborator,
// already joined with the threshold relevant to rules near its location.
type Measurement struct {
	Location  alert.Location `json:"location"`
	Pollutant string         `json:"pollutant"`
	Value     float64        `json:"value"`
	Unit      string         `json:"unit"`
	Threshold float64        `json:"threshold"`
}

// TrendResult is the output of the statistical trend detection run by the
// analytics collaborator. This core only consumes direction and magnitude.
type TrendResult struct {
	Location  alert.Location       `json:"location"`
	Pollutant string               `json:"pollutant"`
	Direction alert.TrendDirection `json:"direction"`
	Magnitude float64              `json:"magnitude"`
}

// RiskAssessment is a multi-pollutant health risk classification from the
// analytics collaborator.
type RiskAssessment struct {
	Location   alert.Location  `json:"location"`
	Pollutants []string        `json:"pollutants"`
	Risk       alert.RiskLevel `json:"risk_level"`
}
