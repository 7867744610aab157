// Package telemetry is the external reporting channel: MQTT publishes,
// prometheus metrics and a periodic status report. All of it is best effort
// and none of it sits on the control path.
package telemetry

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Config controls the reporting channel. An empty broker disables MQTT
// entirely; the regulator runs the same either way.
type Config struct {
	Broker          string `yaml:"broker"`
	ClientID        string `yaml:"client_id"`
	TopicPrefix     string `yaml:"topic_prefix"`
	ReportEvery     string `yaml:"report_every"`
	ConnectAttempts int    `yaml:"connect_attempts"`
}

// DefaultConfig has MQTT disabled and a minute-granularity status report.
var DefaultConfig = Config{
	ClientID:        "phkeeper",
	TopicPrefix:     "phkeeper",
	ReportEvery:     "@every 1m",
	ConnectAttempts: 5,
}

// Telemetry receives regulator events.
type Telemetry interface {
	EmitReading(ph, volts float64)
	EmitDose(channel string)
	EmitCommandError()
	Alert(subject, body string)
	Close()
}

var (
	phGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "phkeeper_ph",
		Help: "Most recent pH reading.",
	})
	voltageGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "phkeeper_probe_volts",
		Help: "Most recent probe voltage.",
	})
	doseCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phkeeper_doses_total",
		Help: "Dosing pulses triggered, by channel.",
	}, []string{"channel"})
	commandErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phkeeper_command_errors_total",
		Help: "Rejected console commands.",
	})
	alertCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phkeeper_alerts_total",
		Help: "Alert rule firings.",
	})
)

type service struct {
	cfg    Config
	client mqtt.Client
	cron   *cron.Cron

	mu         sync.Mutex
	lastPH     float64
	lastVolts  float64
	lastSample time.Time
}

// New builds the reporting service. The broker connection is attempted on a
// goroutine with bounded retries so startup never blocks on the network.
func New(cfg Config) Telemetry {
	s := &service{cfg: cfg}
	if cfg.Broker != "" {
		opts := mqtt.NewClientOptions().
			AddBroker(cfg.Broker).
			SetClientID(cfg.ClientID).
			SetAutoReconnect(true).
			SetConnectRetry(false)
		s.client = mqtt.NewClient(opts)
		go s.connect()
	}
	if cfg.ReportEvery != "" {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(cfg.ReportEvery, s.report); err != nil {
			logrus.Warnf("telemetry: invalid report schedule %q: %v", cfg.ReportEvery, err)
		} else {
			s.cron.Start()
		}
	}
	return s
}

// Noop returns a Telemetry that discards everything. Used in tests and when
// reporting is fully disabled.
func Noop() Telemetry { return &noop{} }

func (s *service) connect() {
	attempts := s.cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 1; i <= attempts; i++ {
		token := s.client.Connect()
		token.Wait()
		if token.Error() == nil {
			logrus.Infof("telemetry: connected to broker %s", s.cfg.Broker)
			return
		}
		logrus.Warnf("telemetry: broker connect attempt %d/%d failed: %v", i, attempts, token.Error())
		time.Sleep(time.Duration(i) * time.Second)
	}
	logrus.Warnf("telemetry: giving up on broker %s, continuing without it", s.cfg.Broker)
}

func (s *service) publish(topic string, payload interface{}) {
	if s.client == nil || !s.client.IsConnected() {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	s.client.Publish(fmt.Sprintf("%s/%s", s.cfg.TopicPrefix, topic), 0, false, data)
}

func (s *service) EmitReading(ph, volts float64) {
	phGauge.Set(ph)
	voltageGauge.Set(volts)
	s.mu.Lock()
	s.lastPH = ph
	s.lastVolts = volts
	s.lastSample = time.Now()
	s.mu.Unlock()
	s.publish("reading", map[string]interface{}{
		"ph":    ph,
		"volts": volts,
		"ts":    time.Now().Unix(),
	})
}

func (s *service) EmitDose(channel string) {
	doseCounter.WithLabelValues(channel).Inc()
	s.publish("dose", map[string]interface{}{
		"channel": channel,
		"ts":      time.Now().Unix(),
	})
}

func (s *service) EmitCommandError() {
	commandErrors.Inc()
}

func (s *service) Alert(subject, body string) {
	alertCounter.Inc()
	logrus.Warnf("alert: %s: %s", subject, body)
	s.publish("alert", map[string]interface{}{
		"subject": subject,
		"body":    body,
		"ts":      time.Now().Unix(),
	})
}

// report publishes a compact status snapshot on the cron schedule.
func (s *service) report() {
	s.mu.Lock()
	ph, volts, at := s.lastPH, s.lastVolts, s.lastSample
	s.mu.Unlock()
	if at.IsZero() {
		return
	}
	s.publish("status", map[string]interface{}{
		"ph":        ph,
		"volts":     volts,
		"sample_ts": at.Unix(),
	})
}

func (s *service) Close() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}

type noop struct{}

func (*noop) EmitReading(float64, float64) {}
func (*noop) EmitDose(string)              {}
func (*noop) EmitCommandError()            {}
func (*noop) Alert(string, string)         {}
func (*noop) Close()                       {}
