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

package forwarding

import (
	"math/rand"
	"time"

	"github.com/kurkpitaine/veloce-sub002/tai"
)

// Beacon scheduler defaults.
const (
	BeaconInterval  = 3 * time.Second
	BeaconMaxJitter = 1 * time.Second
)

// BeaconScheduler tracks when the next periodic Beacon is due, deferring it
// whenever the router transmits any other self-sourced packet: the next
// Beacon never emits before t + BeaconInterval after any self-sourced
// transmission at t.
type BeaconScheduler struct {
	retransmitAt tai.Time
	rng          *rand.Rand
}

// NewBeaconScheduler creates a scheduler with the first beacon due
// immediately at the given time.
func NewBeaconScheduler(now tai.Time, rng *rand.Rand) *BeaconScheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &BeaconScheduler{retransmitAt: now, rng: rng}
}

// DeferOnTransmit is called after any self-sourced packet is transmitted at
// now; it pushes the next beacon out to at least now + BEACON_INTERVAL,
// with up to BeaconMaxJitter of additional random jitter.
func (s *BeaconScheduler) DeferOnTransmit(now tai.Time) {
	jitter := time.Duration(s.rng.Int63n(int64(BeaconMaxJitter) + 1))
	next := now.Add(BeaconInterval + jitter)
	if next.NewerThan(s.retransmitAt) {
		s.retransmitAt = next
	}
}

// Due reports whether a Beacon should be emitted now, and if so advances
// the schedule for the next one.
func (s *BeaconScheduler) Due(now tai.Time) bool {
	if now.NewerThan(s.retransmitAt) || now == s.retransmitAt {
		s.DeferOnTransmit(now)
		return true
	}
	return false
}

// PollAt returns the next scheduled beacon deadline.
func (s *BeaconScheduler) PollAt() tai.Time { return s.retransmitAt }
