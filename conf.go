package main

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/evancroft/phkeeper/controller/modules/ph"
	"github.com/evancroft/phkeeper/controller/telemetry"
)

// Config is the daemon configuration file. Everything has a default; a
// missing file runs the regulator in its shipped configuration.
type Config struct {
	Database       string           `yaml:"database"`
	APIAddress     string           `yaml:"api_address"`
	ConsoleAddress string           `yaml:"console_address"`
	LogLevel       string           `yaml:"log_level"`
	Hardware       HardwareConfig   `yaml:"hardware"`
	PH             ph.Config        `yaml:"ph"`
	Telemetry      telemetry.Config `yaml:"telemetry"`
}

// HardwareConfig describes the I2C devices: the ADS1115 carrying the probe
// and the PCF8574 expander driving the two valve relays.
type HardwareConfig struct {
	ADCAddress      int     `yaml:"adc_address"`
	ProbeChannel    int     `yaml:"probe_channel"`
	ProbeClampVolts float64 `yaml:"probe_clamp_volts"`
	ExpanderAddress int     `yaml:"expander_address"`
	AcidPin         int     `yaml:"acid_pin"`
	BasePin         int     `yaml:"base_pin"`
	// dev mode probe behavior
	SimVolts  float64 `yaml:"sim_volts"`
	SimJitter float64 `yaml:"sim_jitter"`
}

var defaultConfig = Config{
	Database:       "/var/lib/phkeeper/phkeeper.db",
	APIAddress:     "127.0.0.1:8080",
	ConsoleAddress: "127.0.0.1:9090",
	LogLevel:       "info",
	Hardware: HardwareConfig{
		ADCAddress:      0x48,
		ProbeChannel:    0,
		ProbeClampVolts: 3.3,
		ExpanderAddress: 0x20,
		AcidPin:         1,
		BasePin:         0,
		SimVolts:        1.91, // simulated probe sits at pH 7 for the default calibration
	},
	PH:        ph.DefaultConfig,
	Telemetry: telemetry.DefaultConfig,
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logrus.Warnf("config file %s does not exist, using defaults", path)
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
