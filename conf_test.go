package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PH.SampleIntervalMs != 5000 {
		t.Errorf("expected default sample interval, got %d", cfg.PH.SampleIntervalMs)
	}
	if cfg.Hardware.ADCAddress != 0x48 {
		t.Errorf("expected default ADC address, got %#x", cfg.Hardware.ADCAddress)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phkeeper.yaml")
	body := `
log_level: debug
ph:
  sample_interval_ms: 1000
  calibration:
    scheme: two-point
    v7: 1.91
    v4: 1.43
telemetry:
  broker: tcp://broker.local:1883
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level not applied: %q", cfg.LogLevel)
	}
	if cfg.PH.SampleIntervalMs != 1000 {
		t.Errorf("sample interval not applied: %d", cfg.PH.SampleIntervalMs)
	}
	if cfg.PH.Calibration.Scheme != "two-point" {
		t.Errorf("calibration scheme not applied: %q", cfg.PH.Calibration.Scheme)
	}
	if cfg.Telemetry.Broker != "tcp://broker.local:1883" {
		t.Errorf("broker not applied: %q", cfg.Telemetry.Broker)
	}
	// Untouched fields keep their defaults.
	if cfg.ConsoleAddress != defaultConfig.ConsoleAddress {
		t.Errorf("console address default lost: %q", cfg.ConsoleAddress)
	}
}
