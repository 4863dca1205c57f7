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

// Package forwarding implements the Geonetworking next-hop selection
// algorithms: Greedy (Most Forward within Range) for non-area unicast,
// contention-based forwarding (CBF) timers for non-area and area broadcast,
// and the advanced-area duplicate-suppression test. These are pure
// functions over positions and distances; the buffers and location table
// they operate against are owned by the router.
package forwarding

import (
	"math"
	"time"

	"github.com/kurkpitaine/veloce-sub002/geoarea"
	"github.com/kurkpitaine/veloce-sub002/geonet"
)

// Defaults per ETSI EN 302 636-4-1.
const (
	DefaultMaxCommunicationRange = 1000.0 // meters, R_max
	DefaultSectorAngleDeg        = 30.0
	NonAreaCBFMinTime            = 1 * time.Millisecond
	NonAreaCBFMaxTime            = 100 * time.Millisecond
	AreaCBFMinTime               = 1 * time.Millisecond
	AreaCBFMaxTime               = 100 * time.Millisecond
	MaxRetransmit                = 4
)

// Neighbor is the subset of a location-table entry the algorithms below
// need.
type Neighbor struct {
	MAC              geonet.MAC
	Position         geoarea.Position
	PositionAccurate bool
}

// GreedyNextHop implements Most-Forward-within-Range: the next hop is the
// neighbor minimizing distance to dest, provided that distance is strictly
// smaller than the ego-to-dest distance. Returns ok=false if no neighbor
// improves on ego.
func GreedyNextHop(ego, dest geoarea.Position, neighbors []Neighbor) (geonet.MAC, bool) {
	bestDist := ego.DistanceTo(dest)
	best := -1
	for i, n := range neighbors {
		d := n.Position.DistanceTo(dest)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		return geonet.MAC{}, false
	}
	return neighbors[best].MAC, true
}

// clampCBFTimer implements T_cbf = clamp(T_max + (T_min-T_max)/R_max *
// value, T_min, T_max): larger value (more progress, or more distant
// sender) yields a shorter timer, down to tMin at R_max and beyond.
func clampCBFTimer(value, rMax float64, tMin, tMax time.Duration) time.Duration {
	t := float64(tMax) + (float64(tMin)-float64(tMax))/rMax*value
	if t < float64(tMin) {
		t = float64(tMin)
	}
	if t > float64(tMax) {
		t = float64(tMax)
	}
	return time.Duration(t)
}

// NonAreaCBFTimer computes the contention timer for a non-area (unicast
// fallback / LS-reply / DENM-without-SCF) broadcast. ok is false when
// progress is non-positive and the packet must not be rebroadcast by this
// station at all.
func NonAreaCBFTimer(senderPos, egoPos, destPos geoarea.Position, senderAccurate, egoAccurate bool) (timer time.Duration, ok bool) {
	if !senderAccurate || !egoAccurate {
		return NonAreaCBFMaxTime, true
	}
	progress := senderPos.DistanceTo(destPos) - egoPos.DistanceTo(destPos)
	if progress <= 0 {
		return 0, false
	}
	return clampCBFTimer(progress, DefaultMaxCommunicationRange, NonAreaCBFMinTime, NonAreaCBFMaxTime), true
}

// AreaCBFTimer computes the contention timer for area (GBC/GAC) broadcast,
// derived from the distance between sender and ego via the same clamped
// equation as NonAreaCBFTimer.
func AreaCBFTimer(senderPos, egoPos geoarea.Position) time.Duration {
	d := senderPos.DistanceTo(egoPos)
	return clampCBFTimer(d, DefaultMaxCommunicationRange, AreaCBFMinTime, AreaCBFMaxTime)
}

// lawOfCosinesAngleDeg returns the angle, in degrees, at the vertex between
// the two sides of length a and b, given the length c of the side opposite
// that vertex.
func lawOfCosinesAngleDeg(a, b, c float64) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	cosTheta := (a*a + b*b - c*c) / (2 * a * b)
	cosTheta = math.Max(-1, math.Min(1, cosTheta))
	return math.Acos(cosTheta) * 180 / math.Pi
}

// AdvancedAreaBetterPositioned implements the area-advanced duplicate test:
// whether a newly-overheard forwarder F is better positioned than ego to
// cover the area, given the common sender.
// When true, ego's buffered copy should be discarded (F will cover).
func AdvancedAreaBetterPositioned(sender, ego, forwarder geoarea.Position) bool {
	dSenderEgo := sender.DistanceTo(ego)
	dSenderF := sender.DistanceTo(forwarder)
	dEgoF := ego.DistanceTo(forwarder)

	if !(dSenderEgo < dSenderF) {
		return false
	}
	if !(dSenderF < DefaultMaxCommunicationRange) {
		return false
	}
	angle := lawOfCosinesAngleDeg(dSenderEgo, dSenderF, dEgoF)
	return angle < DefaultSectorAngleDeg
}
