// Package pcf8574 drives a PCF8574 8-bit I2C I/O expander wired to the valve
// relay board. Pins are push-pull outputs here: bit high opens the relay.
package pcf8574

import (
	"fmt"
	"sync"

	"github.com/reef-pi/hal"
	"github.com/reef-pi/rpi/i2c"
)

const driverName = "PCF8574 relay expander"

// Driver exposes the expander's eight lines as digital output pins sharing
// one state byte; every Write pushes the whole byte.
type Driver struct {
	mu      sync.Mutex
	bus     i2c.Bus
	address byte
	state   byte
	meta    hal.Metadata
	pins    [8]*pin
}

func New(bus i2c.Bus, address byte) (*Driver, error) {
	d := &Driver{
		bus:     bus,
		address: address,
		meta: hal.Metadata{
			Name:         driverName,
			Description:  "PCF8574 I2C output expander",
			Capabilities: []hal.Capability{hal.DigitalOutput},
		},
	}
	for i := range d.pins {
		d.pins[i] = &pin{driver: d, number: i}
	}
	// All lines low at startup: the valves are normally closed.
	if err := d.flush(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Driver) Name() string           { return driverName }
func (d *Driver) Metadata() hal.Metadata { return d.meta }
func (d *Driver) Close() error {
	d.mu.Lock()
	d.state = 0
	d.mu.Unlock()
	return d.flush()
}

func (d *Driver) Pins(cap hal.Capability) ([]hal.Pin, error) {
	switch cap {
	case hal.DigitalOutput:
		out := make([]hal.Pin, len(d.pins))
		for i, p := range d.pins {
			out[i] = p
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported capability: %s", cap.String())
	}
}

func (d *Driver) DigitalOutputPins() []hal.DigitalOutputPin {
	out := make([]hal.DigitalOutputPin, len(d.pins))
	for i, p := range d.pins {
		out[i] = p
	}
	return out
}

func (d *Driver) DigitalOutputPin(n int) (hal.DigitalOutputPin, error) {
	if n < 0 || n >= len(d.pins) {
		return nil, fmt.Errorf("%s: no output pin %d", driverName, n)
	}
	return d.pins[n], nil
}

func (d *Driver) set(number int, state bool) error {
	d.mu.Lock()
	if state {
		d.state |= 1 << uint(number)
	} else {
		d.state &^= 1 << uint(number)
	}
	d.mu.Unlock()
	return d.flush()
}

func (d *Driver) flush() error {
	d.mu.Lock()
	state := d.state
	d.mu.Unlock()
	if err := d.bus.WriteBytes(d.address, []byte{state}); err != nil {
		return fmt.Errorf("pcf8574: write state 0x%02X: %w", state, err)
	}
	return nil
}

type pin struct {
	driver    *Driver
	number    int
	lastState bool
}

func (p *pin) Name() string { return fmt.Sprintf("%s P%d", driverName, p.number) }
func (p *pin) Number() int  { return p.number }
func (p *pin) Close() error { return nil }

func (p *pin) Write(state bool) error {
	if err := p.driver.set(p.number, state); err != nil {
		return err
	}
	p.lastState = state
	return nil
}

func (p *pin) LastState() bool { return p.lastState }
