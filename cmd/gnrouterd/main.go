/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command gnrouterd wires a router.Router to a prometheus metrics endpoint
// and drives its Poll loop on a fixed tick. It ships with router.NullDevice
// since this module does not implement any particular NIC/802.11p binding;
// production deployments supply their own router.Device.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kurkpitaine/veloce-sub002/geonet"
	"github.com/kurkpitaine/veloce-sub002/router"
	"github.com/kurkpitaine/veloce-sub002/tai"
)

var (
	logLevel     string
	metricsAddr  string
	tickInterval time.Duration
	countryCode  uint16
)

// rootCmd is the main entry point. Exported-style variable per the
// teacher's cobra convention so this binary could grow subcommands without
// restructuring.
var rootCmd = &cobra.Command{
	Use:   "gnrouterd",
	Short: "runs a Geonetworking router poll loop",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&logLevel, "loglevel", "info", "Set a log level. Can be: debug, info, warning, error")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9100", "Address to serve Prometheus metrics on")
	rootCmd.Flags().DurationVar(&tickInterval, "tick", 50*time.Millisecond, "Poll loop tick interval")
	rootCmd.Flags().Uint16Var(&countryCode, "country-code", 0, "GN address country code")
}

func run(_ *cobra.Command, _ []string) error {
	switch logLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		return fmt.Errorf("unrecognized log level: %v", logLevel)
	}

	registry := prometheus.NewRegistry()
	now := tai.FromTime(time.Now())

	mac := geonet.MAC{0x02}
	addr := geonet.Address{StationType: geonet.StationPassengerCar, CountryCode: countryCode, MAC: mac}
	r := router.New(now, router.Config{
		Address:    addr,
		Algorithm:  router.AlgorithmGreedy,
		Registerer: registry,
	})
	device := router.NewNullDevice(router.Capabilities{Medium: router.MediumIEEE80211p, MaxTransmissionUnit: 1500})

	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	go func() {
		log.WithField("addr", metricsAddr).Info("gnrouterd: serving metrics")
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			log.WithError(err).Error("gnrouterd: metrics server stopped")
		}
	}()

	sigStop := make(chan os.Signal, 1)
	signal.Notify(sigStop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	log.Info("gnrouterd: starting poll loop")
	for {
		select {
		case <-sigStop:
			log.Warning("gnrouterd: graceful shutdown")
			return nil
		case <-ticker.C:
			r.Poll(tai.FromTime(time.Now()), device)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
