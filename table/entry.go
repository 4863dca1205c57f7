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

package table

import (
	"github.com/kurkpitaine/veloce-sub002/geonet"
	"github.com/kurkpitaine/veloce-sub002/tai"
)

// Extension is the marker interface for the location table entry's optional
// media-specific extension.
type Extension interface {
	isExtension()
}

// ITSG5Extension carries 802.11p-specific per-neighbor state: channel-busy
// ratios and transmit/receive power as seen by the lower layers.
type ITSG5Extension struct {
	LocalCBR         float64
	OneHopCBR        float64
	TxPowerDbm       int8
	RxPowerDbm       int8
	StationTimestamp tai.Time
}

func (ITSG5Extension) isExtension() {}

// LooseNetworkingExtension is used when the medium carries no additional
// per-neighbor state.
type LooseNetworkingExtension struct{}

func (LooseNetworkingExtension) isExtension() {}

// pdrSmoothing is the exponential smoothing factor applied to PDR samples.
const pdrSmoothing = 0.1

// LSHandle identifies a pending location-service request, opaque to the
// table: a small integer handle, no owning pointer.
type LSHandle uint32

// NoLSHandle is the zero value meaning "no pending request".
const NoLSHandle LSHandle = 0

// Entry is the per-neighbor state held by the location Table.
type Entry struct {
	LPV         geonet.LongPositionVector
	IsNeighbour bool
	PDR         float64 // exponentially-smoothed bytes/sec
	LastUpdate  tai.Time
	PendingLS   LSHandle
	Extension   Extension

	dup *duplicateWindow
}

func newEntry(now tai.Time, lpv geonet.LongPositionVector) *Entry {
	return &Entry{
		LPV:        lpv,
		LastUpdate: now,
		Extension:  LooseNetworkingExtension{},
		dup:        newDuplicateWindow(),
	}
}

// refreshPDR folds a newly received packet of size bytes into the
// exponentially-smoothed PDR, using the elapsed time since LastUpdate as the
// sampling interval. A non-positive interval (first packet, or a timestamp
// that did not advance) leaves PDR unchanged other than seeding it on the
// very first sample.
func (e *Entry) refreshPDR(now tai.Time, size int) {
	elapsed := now.Since(e.LastUpdate).Seconds()
	if elapsed <= 0 {
		if e.PDR == 0 {
			e.PDR = float64(size)
		}
		return
	}
	sample := float64(size) / elapsed
	if e.PDR == 0 {
		e.PDR = sample
		return
	}
	e.PDR = pdrSmoothing*sample + (1-pdrSmoothing)*e.PDR
}
