package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sd "github.com/coreos/go-systemd/v22/daemon"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/evancroft/phkeeper/controller"
	"github.com/evancroft/phkeeper/controller/health"
	"github.com/evancroft/phkeeper/controller/modules/ph"
	"github.com/evancroft/phkeeper/controller/storage"
	"github.com/evancroft/phkeeper/controller/telemetry"
)

var (
	configPath string
	devMode    bool
)

var rootCmd = &cobra.Command{
	Use:   "phkeeper",
	Short: "Closed-loop pH regulator for a small liquid reservoir",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "/etc/phkeeper.yaml", "config file path")
	rootCmd.Flags().BoolVar(&devMode, "dev", false, "run with simulated hardware")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	store, err := storage.NewStore(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	c, err := controller.New(store, devMode)
	if err != nil {
		return err
	}

	probe, acidPin, basePin, closeHardware, err := buildHardware(cfg.Hardware, devMode)
	if err != nil {
		return err
	}
	defer closeHardware()

	tele := telemetry.New(cfg.Telemetry)
	defer tele.Close()

	regulator, err := ph.New(c, cfg.PH, probe, acidPin, basePin, tele)
	if err != nil {
		return err
	}
	if err := regulator.Setup(); err != nil {
		return err
	}
	regulator.Start()
	defer regulator.Stop()

	console := ph.NewConsole(cfg.ConsoleAddress, regulator)
	if err := console.Start(); err != nil {
		return err
	}
	defer console.Stop()

	r := mux.NewRouter()
	regulator.LoadAPI(r)
	health.LoadAPI(r)
	r.Handle("/metrics", promhttp.Handler())
	go func() {
		logrus.Infof("api listening on %s", cfg.APIAddress)
		if err := http.ListenAndServe(cfg.APIAddress, r); err != nil {
			logrus.Errorf("api server: %v", err)
		}
	}()

	if _, err := sd.SdNotify(false, sd.SdNotifyReady); err != nil {
		logrus.Debugf("sd_notify: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	logrus.Infof("received %s, shutting down", s)
	return nil
}
