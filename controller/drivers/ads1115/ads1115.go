// Package ads1115 reads the pH probe's analog front end through an ADS1115
// ADC. The pin reports volts; voltage-to-pH conversion belongs to the ph
// module's calibration model, not the driver.
package ads1115

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/reef-pi/hal"
	"github.com/reef-pi/rpi/i2c"
)

const (
	driverName = "ADS1115 pH probe"

	regConversion = 0x00
	regConfig     = 0x01

	configOsSingle   uint16 = 0x8000
	configModeSingle uint16 = 0x0100

	// 860 SPS, comparator disabled
	configDataRate860    uint16 = 0x00E0
	configComparatorOff  uint16 = 0x0003
	configGainTwo        uint16 = 0x0400 // +/- 2.048V, fits a 0-2V probe front end
	fullScaleVolts              = 2.048

	// single conversion at 860 SPS takes ~1.2ms
	convTimeout  = 50 * time.Millisecond
	convPollWait = 200 * time.Microsecond
)

// muxForChannel returns mux bits for single-ended AINx vs GND.
func muxForChannel(ch int) (uint16, bool) {
	switch ch {
	case 0:
		return 0x4000, true
	case 1:
		return 0x5000, true
	case 2:
		return 0x6000, true
	case 3:
		return 0x7000, true
	default:
		return 0, false
	}
}

// Driver provides one AnalogInput pin (single channel per driver instance).
type Driver struct {
	meta hal.Metadata
	pin  *channel
}

// New builds a driver for one single-ended ADS1115 channel.
func New(bus i2c.Bus, address byte, channelNum int, clampV float64) (*Driver, error) {
	mux, ok := muxForChannel(channelNum)
	if !ok {
		return nil, fmt.Errorf("ads1115: invalid channel %d", channelNum)
	}
	meta := hal.Metadata{
		Name:         driverName,
		Description:  "ADS1115 single-ended analog input",
		Capabilities: []hal.Capability{hal.AnalogInput},
	}
	return &Driver{
		meta: meta,
		pin: &channel{
			bus:     bus,
			address: address,
			number:  channelNum,
			mux:     mux,
			clampV:  clampV,
			meta:    meta,
		},
	}, nil
}

func (d *Driver) Name() string           { return driverName }
func (d *Driver) Metadata() hal.Metadata { return d.meta }
func (d *Driver) Close() error           { return nil }

func (d *Driver) Pins(cap hal.Capability) ([]hal.Pin, error) {
	switch cap {
	case hal.AnalogInput:
		return []hal.Pin{d.pin}, nil
	default:
		return nil, fmt.Errorf("unsupported capability: %s", cap.String())
	}
}

func (d *Driver) AnalogInputPins() []hal.AnalogInputPin { return []hal.AnalogInputPin{d.pin} }

func (d *Driver) AnalogInputPin(n int) (hal.AnalogInputPin, error) {
	if d.pin.Number() == n {
		return d.pin, nil
	}
	return nil, fmt.Errorf("%s: no analog input channel %d", driverName, n)
}

// channel is a single ADS1115 input read single-shot on demand.
type channel struct {
	bus     i2c.Bus
	address byte
	number  int
	mux     uint16
	clampV  float64
	meta    hal.Metadata
}

func (c *channel) Name() string           { return fmt.Sprintf("%s (AIN%d)", driverName, c.number) }
func (c *channel) Number() int            { return c.number }
func (c *channel) Close() error           { return nil }
func (c *channel) Metadata() hal.Metadata { return c.meta }

// Calibrate is a no-op; linearization happens in the consumer.
func (c *channel) Calibrate(_ []hal.Measurement) error { return nil }

func (c *channel) Value() (float64, error) { return c.Measure() }

// Measure performs one single-shot conversion and returns volts, clamped to
// [0, clampV] for the single-ended wiring.
func (c *channel) Measure() (float64, error) {
	raw, err := c.convert()
	if err != nil {
		return 0, err
	}
	volts := (float64(raw) / 32768.0) * fullScaleVolts
	if volts < 0 {
		volts = 0
	}
	if volts > c.clampV {
		volts = c.clampV
	}
	if math.IsNaN(volts) || math.IsInf(volts, 0) {
		return 0, fmt.Errorf("ads1115: computed volts invalid: %v", volts)
	}
	return volts, nil
}

func (c *channel) convert() (int16, error) {
	config := configOsSingle |
		configModeSingle |
		configComparatorOff |
		c.mux |
		configGainTwo |
		configDataRate860

	// Writing the config register starts the conversion.
	buf := []byte{byte(config >> 8), byte(config)}
	if err := c.bus.WriteToReg(c.address, regConfig, buf); err != nil {
		return 0, fmt.Errorf("ads1115: write config: %w", err)
	}

	// Poll the OS bit until the conversion completes.
	deadline := time.Now().Add(convTimeout)
	cfg := make([]byte, 2)
	for {
		if err := c.bus.ReadFromReg(c.address, regConfig, cfg); err != nil {
			return 0, fmt.Errorf("ads1115: read config: %w", err)
		}
		if binary.BigEndian.Uint16(cfg)&configOsSingle != 0 {
			break
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("ads1115: conversion timeout (cfg=0x%02X%02X)", cfg[0], cfg[1])
		}
		time.Sleep(convPollWait)
	}

	b := make([]byte, 2)
	if err := c.bus.ReadFromReg(c.address, regConversion, b); err != nil {
		return 0, fmt.Errorf("ads1115: read conversion: %w", err)
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}
