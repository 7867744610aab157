package ph

import (
	"fmt"
	"time"
)

// Bolt buckets
const (
	BandBucket    = "ph_band"
	ReadingBucket = "ph_readings"
)

// Config holds the regulator settings loaded from the daemon config file.
// Only the target band is device-persisted state; everything here is
// deployment configuration.
type Config struct {
	SampleIntervalMs int    `yaml:"sample_interval_ms"`
	DoseDurationMs   int    `yaml:"dose_duration_ms"`
	PaceMs           int    `yaml:"pace_ms"`
	AlertExpr        string `yaml:"alert_expr"`
	// CalibrationReminder is an optional RRULE (e.g. "FREQ=WEEKLY") that
	// raises a "calibration due" notice.
	CalibrationReminder string            `yaml:"calibration_reminder"`
	Calibration         CalibrationConfig `yaml:"calibration"`
}

// CalibrationConfig selects one of the two calibration schemes. "two-point"
// takes the pH 7/pH 4 reference voltages directly; "three-point" derives
// them from measured voltages at pH 8.5 and pH 6.
type CalibrationConfig struct {
	Scheme string  `yaml:"scheme"`
	V7     float64 `yaml:"v7"`
	V4     float64 `yaml:"v4"`
	V85    float64 `yaml:"v85"`
	V6     float64 `yaml:"v6"`
}

// DefaultConfig mirrors the shipped device firmware: 5 s sampling, 2 s dose
// pulses, and the vendor's example three-point voltages.
var DefaultConfig = Config{
	SampleIntervalMs: 5000,
	DoseDurationMs:   2000,
	PaceMs:           100,
	Calibration: CalibrationConfig{
		Scheme: "three-point",
		V85:    2.15,
		V6:     1.75,
	},
}

func (c Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalMs) * time.Millisecond
}

func (c Config) DoseDuration() time.Duration {
	return time.Duration(c.DoseDurationMs) * time.Millisecond
}

func (c Config) Pace() time.Duration {
	return time.Duration(c.PaceMs) * time.Millisecond
}

// Build constructs the calibration model, failing fast on a misconfigured
// scheme so a bad config never reaches the read path.
func (c CalibrationConfig) Build() (Calibration, error) {
	switch c.Scheme {
	case "two-point":
		return TwoPoint(c.V7, c.V4)
	case "three-point", "":
		return ThreePoint(c.V85, c.V6)
	default:
		return Calibration{}, fmt.Errorf("unknown calibration scheme %q", c.Scheme)
	}
}
