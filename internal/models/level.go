package models

import "fmt"

// Level is the severity assigned to a utilization percentage or finding.
type Level int

const (
	LevelNormal Level = iota
	LevelWarning
	LevelCritical
)

// Utilization thresholds, in percent.
const (
	WarningThreshold  = 70.0
	CriticalThreshold = 90.0
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	default:
		return "normal"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Classify maps a utilization percentage to a Level:
// >= 90 critical, [70, 90) warning, below 70 normal.
func Classify(pct float64) Level {
	switch {
	case pct >= CriticalThreshold:
		return LevelCritical
	case pct >= WarningThreshold:
		return LevelWarning
	default:
		return LevelNormal
	}
}

// Finding is a collected fact that warrants operator attention without
// being a collection failure.
type Finding struct {
	Kind    Kind   `json:"kind"`
	Level   Level  `json:"level"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func formatPercent(what string, pct float64) string {
	return fmt.Sprintf("%s %.2f%%", what, pct)
}
