package main

import (
	"fmt"

	"github.com/reef-pi/rpi/i2c"
	"github.com/sirupsen/logrus"

	"github.com/evancroft/phkeeper/controller/drivers/ads1115"
	"github.com/evancroft/phkeeper/controller/drivers/pcf8574"
	"github.com/evancroft/phkeeper/controller/drivers/sim"
	"github.com/evancroft/phkeeper/controller/modules/ph"
)

// buildHardware resolves the probe and the two valve pins, real or
// simulated. The returned closer shuts the drivers down.
func buildHardware(cfg HardwareConfig, devMode bool) (ph.Probe, ph.OutputPin, ph.OutputPin, func(), error) {
	if devMode {
		logrus.Info("dev mode: using simulated probe and valves")
		probe := sim.NewProbe(cfg.SimVolts, cfg.SimJitter)
		return probe, sim.NewPin("acid"), sim.NewPin("base"), func() {}, nil
	}

	bus, err := i2c.New()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("i2c bus: %w", err)
	}

	adc, err := ads1115.New(bus, byte(cfg.ADCAddress), cfg.ProbeChannel, cfg.ProbeClampVolts)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	probe, err := adc.AnalogInputPin(cfg.ProbeChannel)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	expander, err := pcf8574.New(bus, byte(cfg.ExpanderAddress))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	acid, err := expander.DigitalOutputPin(cfg.AcidPin)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	base, err := expander.DigitalOutputPin(cfg.BasePin)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	closer := func() {
		if err := expander.Close(); err != nil {
			logrus.Errorf("expander shutdown: %v", err)
		}
		if err := adc.Close(); err != nil {
			logrus.Errorf("adc shutdown: %v", err)
		}
	}
	return probe, acid, base, closer, nil
}
