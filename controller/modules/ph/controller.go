package ph

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/sirupsen/logrus"

	"github.com/evancroft/phkeeper/controller"
	"github.com/evancroft/phkeeper/controller/telemetry"
)

// readingCap bounds the persisted reading ring. Long-term trending is out of
// scope; this exists so the API can show recent behavior after a restart.
const readingCap = 100

// Reading is one stored probe sample.
type Reading struct {
	ID      string  `json:"id"`
	PH      float64 `json:"ph"`
	Voltage float64 `json:"voltage"`
	Ts      int64   `json:"ts"`
}

// Status is a point-in-time snapshot served to the API and console.
type Status struct {
	PH         float64   `json:"ph"`
	Voltage    float64   `json:"voltage"`
	Band       Band      `json:"band"`
	AcidActive bool      `json:"acid_active"`
	BaseActive bool      `json:"base_active"`
	LastSample time.Time `json:"last_sample"`
	StartedAt  time.Time `json:"started_at"`
}

type request struct {
	line    string
	respond chan string
}

// Controller implements controller.Subsystem. One goroutine owns the whole
// regulation loop; commands and API writes are serialized through it or
// through the band store's own lock.
type Controller struct {
	c      controller.Controller
	config Config
	cal    Calibration
	bands  *BandStore
	probe  Probe
	acid   *Valve
	base   *Valve
	tele   telemetry.Telemetry
	alert  *govaluate.EvaluableExpression

	requests chan request
	quit     chan struct{}
	done     chan struct{}

	// loop-owned, never touched outside the run goroutine
	lastSampleAt time.Time
	alertActive  bool

	status statusCell
}

// New wires the subsystem. Calibration misconfiguration is fatal here so a
// bad scheme can never produce a runtime division fault.
func New(c controller.Controller, cfg Config, probe Probe, acidPin, basePin OutputPin, tele telemetry.Telemetry) (*Controller, error) {
	cal, err := cfg.Calibration.Build()
	if err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}
	bands, err := NewBandStore(c.Store())
	if err != nil {
		return nil, err
	}
	if err := c.Store().CreateBucket(ReadingBucket); err != nil {
		return nil, err
	}
	ctrl := &Controller{
		c:        c,
		config:   cfg,
		cal:      cal,
		bands:    bands,
		probe:    probe,
		acid:     NewValve("acid", acidPin, cfg.DoseDuration()),
		base:     NewValve("base", basePin, cfg.DoseDuration()),
		tele:     tele,
		requests: make(chan request, 16),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if cfg.AlertExpr != "" {
		expr, err := govaluate.NewEvaluableExpression(cfg.AlertExpr)
		if err != nil {
			return nil, fmt.Errorf("alert expression: %w", err)
		}
		ctrl.alert = expr
	}
	return ctrl, nil
}

// Setup logs the resolved calibration and the active band, mirroring the
// device's boot banner.
func (c *Controller) Setup() error {
	v7, v4 := c.cal.References()
	logrus.Infof("calibration voltage at pH 7: %.3f, at pH 4: %.3f", v7, v4)
	logrus.Infof("target pH range: %s", c.bands.Get())
	return nil
}

func (c *Controller) Start() {
	c.status.set(Status{Band: c.bands.Get(), StartedAt: time.Now()})
	StartSchedule(c.config.CalibrationReminder, c.quit, func() {
		c.tele.Alert("calibration due", "probe calibration is due; run a two-point check against reference buffers")
	})
	go c.run()
}

func (c *Controller) Stop() {
	close(c.quit)
	<-c.done
}

func (c *Controller) run() {
	defer close(c.done)
	for {
		select {
		case <-c.quit:
			if err := c.acid.Close(); err != nil {
				logrus.Errorf("acid valve shutdown: %v", err)
			}
			if err := c.base.Close(); err != nil {
				logrus.Errorf("base valve shutdown: %v", err)
			}
			return
		default:
		}
		c.tick(time.Now())
		time.Sleep(c.config.Pace())
	}
}

// tick is one loop iteration: at most one console command, a sample when the
// interval has elapsed, then valve auto-close. Ordering matters: valves tick
// after the dosing decision so a dose and its timed clear are observed in a
// consistent relative order.
func (c *Controller) tick(now time.Time) {
	select {
	case req := <-c.requests:
		req.respond <- c.Execute(req.line)
	default:
	}

	if now.Sub(c.lastSampleAt) >= c.config.SampleInterval() {
		c.lastSampleAt = now
		c.sample(now)
	}

	c.acid.Tick(now)
	c.base.Tick(now)
	c.status.update(func(s *Status) {
		s.AcidActive = c.acid.Active()
		s.BaseActive = c.base.Active()
		s.Band = c.bands.Get()
	})
}

func (c *Controller) sample(now time.Time) {
	volts, err := c.probe.Value()
	if err != nil {
		c.c.LogError("ph", "probe read: "+err.Error())
		return
	}
	value := c.cal.PH(volts)
	logrus.Infof("current pH: %.2f (%.3f V)", value, volts)

	c.tele.EmitReading(value, volts)
	if err := c.storeReading(value, volts, now); err != nil {
		logrus.Warnf("reading not stored: %v", err)
	}
	c.status.update(func(s *Status) {
		s.PH = value
		s.Voltage = volts
		s.LastSample = now
	})

	c.control(value, now)
	c.checkAlert(value)
}

// control is the bang-bang policy: one fixed-duration pulse at a time, only
// when neither channel is open. While dosing, samples are still taken and
// logged but never trigger another pulse.
func (c *Controller) control(value float64, now time.Time) {
	if c.acid.Active() || c.base.Active() {
		return
	}
	band := c.bands.Get()
	switch {
	case value < float64(band.Low):
		logrus.Infof("pH %.2f below %.2f, activating base valve", value, band.Low)
		if err := c.base.Activate(now); err != nil {
			c.c.LogError("ph", "base valve: "+err.Error())
			return
		}
		c.tele.EmitDose("base")
	case value > float64(band.High):
		logrus.Infof("pH %.2f above %.2f, activating acid valve", value, band.High)
		if err := c.acid.Activate(now); err != nil {
			c.c.LogError("ph", "acid valve: "+err.Error())
			return
		}
		c.tele.EmitDose("acid")
	}
}

// checkAlert evaluates the configured expression against the sample and
// fires on the rising edge only, so a stuck-out-of-range probe does not
// flood the alert channel.
func (c *Controller) checkAlert(value float64) {
	if c.alert == nil {
		return
	}
	band := c.bands.Get()
	result, err := c.alert.Evaluate(map[string]interface{}{
		"ph":   value,
		"low":  float64(band.Low),
		"high": float64(band.High),
	})
	if err != nil {
		logrus.Warnf("alert expression: %v", err)
		return
	}
	firing, ok := result.(bool)
	if !ok {
		logrus.Warnf("alert expression %q did not evaluate to a boolean", c.config.AlertExpr)
		return
	}
	if firing && !c.alertActive {
		c.tele.Alert("pH alert", fmt.Sprintf("pH %.2f matched %q", value, c.config.AlertExpr))
	}
	c.alertActive = firing
}

func (c *Controller) storeReading(value, volts float64, now time.Time) error {
	rec := Reading{PH: value, Voltage: volts, Ts: now.Unix()}
	if err := c.c.Store().Create(ReadingBucket, func(id string) interface{} {
		rec.ID = id
		return &rec
	}); err != nil {
		return err
	}
	return c.pruneReadings()
}

// pruneReadings keeps the ring bounded. IDs are zero padded, so bucket order
// is insertion order and the oldest records come first.
func (c *Controller) pruneReadings() error {
	var ids []string
	if err := c.c.Store().List(ReadingBucket, func(id string, _ []byte) error {
		ids = append(ids, id)
		return nil
	}); err != nil {
		return err
	}
	for len(ids) > readingCap {
		if err := c.c.Store().Delete(ReadingBucket, ids[0]); err != nil {
			return err
		}
		ids = ids[1:]
	}
	return nil
}

// Readings returns the persisted ring, oldest first.
func (c *Controller) Readings() ([]Reading, error) {
	out := []Reading{}
	err := c.c.Store().List(ReadingBucket, func(_ string, v []byte) error {
		var r Reading
		if err := json.Unmarshal(v, &r); err == nil {
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

// Status returns the latest loop snapshot.
func (c *Controller) Status() Status {
	return c.status.get()
}

// statusCell is the only state shared between the loop goroutine and the
// API/console readers.
type statusCell struct {
	mu sync.Mutex
	s  Status
}

func (c *statusCell) set(s Status) {
	c.mu.Lock()
	c.s = s
	c.mu.Unlock()
}

func (c *statusCell) update(fn func(*Status)) {
	c.mu.Lock()
	fn(&c.s)
	c.mu.Unlock()
}

func (c *statusCell) get() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
