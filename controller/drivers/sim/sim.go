// Package sim provides stand-in hardware for dev mode: a probe that returns
// a configurable voltage with a little jitter, and output pins that only log.
package sim

import (
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"
)

// Probe returns Volts plus up to ±Jitter of noise on every read.
type Probe struct {
	mu     sync.Mutex
	volts  float64
	jitter float64
}

func NewProbe(volts, jitter float64) *Probe {
	return &Probe{volts: volts, jitter: jitter}
}

func (p *Probe) Value() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.jitter == 0 {
		return p.volts, nil
	}
	return p.volts + (rand.Float64()*2-1)*p.jitter, nil
}

// SetVolts adjusts the simulated reading, handy for exercising dosing paths.
func (p *Probe) SetVolts(v float64) {
	p.mu.Lock()
	p.volts = v
	p.mu.Unlock()
}

// Pin is a digital output that records its state and logs transitions.
type Pin struct {
	name string

	mu    sync.Mutex
	state bool
}

func NewPin(name string) *Pin { return &Pin{name: name} }

func (p *Pin) Write(state bool) error {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
	logrus.Debugf("sim pin %s -> %v", p.name, state)
	return nil
}

func (p *Pin) LastState() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}
