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

import (
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kurkpitaine/veloce-sub002/tai"
)

// PrivacyStrategy selects how PseudonymScheduler decides when to rotate the
// router's MAC: none, a fixed packet-count threshold, or car-to-car
// randomized rotation.
type PrivacyStrategy uint8

// Strategies.
const (
	PrivacyNone PrivacyStrategy = iota
	PrivacyThreshold
	PrivacyC2C
)

// PseudonymScheduler decides when the router should rotate its MAC for
// privacy reasons, driving the same MAC-rewrite path duplicate-address
// detection uses. Not safe for concurrent use.
type PseudonymScheduler struct {
	strategy  PrivacyStrategy
	threshold uint32
	rng       *rand.Rand

	txSinceRotation uint32
	nextC2CAt       tai.Time
}

// NewPseudonymScheduler creates a scheduler. threshold is used only by
// PrivacyThreshold (rotate every threshold transmissions); rng is used only
// by PrivacyC2C (rotate at a randomized future instant). A nil rng gets a
// default source.
func NewPseudonymScheduler(strategy PrivacyStrategy, threshold uint32, rng *rand.Rand) *PseudonymScheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &PseudonymScheduler{strategy: strategy, threshold: threshold, rng: rng}
}

// NotifyTx is called after every self-sourced transmission.
func (p *PseudonymScheduler) NotifyTx(now tai.Time) {
	if p.strategy == PrivacyThreshold {
		p.txSinceRotation++
	}
}

// Due reports whether the MAC should rotate now, and resets internal
// counters as a side effect of returning true.
func (p *PseudonymScheduler) Due(now tai.Time) bool {
	switch p.strategy {
	case PrivacyThreshold:
		if p.threshold > 0 && p.txSinceRotation >= p.threshold {
			p.txSinceRotation = 0
			return true
		}
		return false
	case PrivacyC2C:
		if p.nextC2CAt == 0 {
			p.scheduleNextC2C(now)
			return false
		}
		if now.NewerThan(p.nextC2CAt) || now == p.nextC2CAt {
			p.scheduleNextC2C(now)
			return true
		}
		return false
	default:
		return false
	}
}

func (p *PseudonymScheduler) scheduleNextC2C(now tai.Time) {
	// Rotate at a random instant 60-300s out, per typical C2C-CC privacy
	// guidance; ETSI leaves the exact bound to the implementation.
	jitterSeconds := 60 + p.rng.Intn(240)
	p.nextC2CAt = now.Add(time.Duration(jitterSeconds) * time.Second)
	log.WithField("next_rotation_s", jitterSeconds).Debug("pseudonym scheduler: scheduled next c2c rotation")
}
