package ph

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Probe is the sensor-facing subset of hal.AnalogInputPin.
type Probe interface {
	Value() (float64, error)
}

// OutputPin is the valve-facing subset of hal.DigitalOutputPin. The pin is
// driven high to open the valve and low to close it (normally closed).
type OutputPin interface {
	Write(state bool) error
}

// Valve is one dosing channel: a fixed-duration open pulse with non-blocking
// auto-close. A triggered dose always runs its full duration; there is no
// cancellation.
type Valve struct {
	name     string
	pin      OutputPin
	duration time.Duration

	active      bool
	activatedAt time.Time
}

func NewValve(name string, pin OutputPin, duration time.Duration) *Valve {
	return &Valve{name: name, pin: pin, duration: duration}
}

// Activate opens the valve and stamps the activation time. It is a no-op if
// the channel is already open; cross-channel exclusion is the caller's job.
func (v *Valve) Activate(now time.Time) error {
	if v.active {
		return nil
	}
	if err := v.pin.Write(true); err != nil {
		return err
	}
	v.active = true
	v.activatedAt = now
	logrus.Infof("%s valve activated", v.name)
	return nil
}

// Tick closes the valve once the activation duration has elapsed. It must be
// called every loop iteration. Returns true when this call closed the valve.
func (v *Valve) Tick(now time.Time) bool {
	if !v.active || now.Sub(v.activatedAt) < v.duration {
		return false
	}
	if err := v.pin.Write(false); err != nil {
		// Keep the flag set so the next tick retries the close.
		logrus.Errorf("%s valve close failed: %v", v.name, err)
		return false
	}
	v.active = false
	logrus.Infof("%s valve deactivated", v.name)
	return true
}

// Close forces the valve shut, used during shutdown.
func (v *Valve) Close() error {
	v.active = false
	return v.pin.Write(false)
}

func (v *Valve) Active() bool { return v.active }

func (v *Valve) Name() string { return v.name }
