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

package router

import "github.com/prometheus/client_golang/prometheus"

// metrics groups the router's exported counters/gauges, registered once per
// Router instance so multiple routers in one process don't collide.
type metrics struct {
	ingressTotal   *prometheus.CounterVec
	ingressDropped *prometheus.CounterVec
	bufferDropped  *prometheus.CounterVec
	dadTriggered   prometheus.Counter
	beaconsSent    prometheus.Counter
	locationTable  prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		ingressTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veloce",
			Subsystem: "router",
			Name:      "ingress_total",
			Help:      "Geonetworking frames received, by header type.",
		}, []string{"header_type"}),
		ingressDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veloce",
			Subsystem: "router",
			Name:      "ingress_dropped_total",
			Help:      "Geonetworking frames dropped on ingress, by reason.",
		}, []string{"reason"}),
		bufferDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veloce",
			Subsystem: "router",
			Name:      "buffer_dropped_total",
			Help:      "Packets dropped when enqueueing into a bounded buffer, by buffer name.",
		}, []string{"buffer"}),
		dadTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "veloce",
			Subsystem: "router",
			Name:      "dad_triggered_total",
			Help:      "Number of times duplicate-address detection regenerated the router's MAC.",
		}),
		beaconsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "veloce",
			Subsystem: "router",
			Name:      "beacons_sent_total",
			Help:      "Number of Beacon packets transmitted.",
		}),
		locationTable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "veloce",
			Subsystem: "router",
			Name:      "location_table_entries",
			Help:      "Current number of location table entries.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ingressTotal, m.ingressDropped, m.bufferDropped, m.dadTriggered, m.beaconsSent, m.locationTable)
	}
	return m
}
