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

// Package dcc implements Decentralized Congestion Control: a pluggable
// controller with one concrete policy, the ETSI TS 102 687 linear-adaptive
// approach. It samples channel busy ratio (CBR), derives one permitted
// transmit interval T_onpp shared by all access categories, and queues
// packets that arrive before their category's next eligible slot.
package dcc

import (
	"errors"
	"time"

	"github.com/eclesh/welford"
	log "github.com/sirupsen/logrus"

	"github.com/kurkpitaine/veloce-sub002/geonet"
	"github.com/kurkpitaine/veloce-sub002/tai"
)

// AccessCategory mirrors the four 802.11 EDCA access categories that the
// traffic class maps onto.
type AccessCategory uint8

// Access categories, lowest to highest priority.
const (
	ACBackground AccessCategory = iota
	ACBestEffort
	ACVideo
	ACVoice
	acCount
)

// TrafficClassToAccessCategory is the fixed table mapping a traffic class's
// 6-bit ID to an access category. CAM (class 2) and urgent DENM traffic map
// to Voice; routine DENM maps to Video; best-effort application data to
// BestEffort; everything else defaults to Background.
var TrafficClassToAccessCategory = map[uint8]AccessCategory{
	0: ACVoice,
	1: ACVoice,
	2: ACVoice, // CAM
	3: ACVideo, // DENM
	4: ACBestEffort,
	5: ACBestEffort,
}

// AccessCategoryFor maps a traffic-class ID to its access category, falling
// back to Background for any ID not in the fixed table.
func AccessCategoryFor(id uint8) AccessCategory {
	if ac, ok := TrafficClassToAccessCategory[id]; ok {
		return ac
	}
	return ACBackground
}

// Outcome is the result of a Dispatch call.
type Outcome uint8

// Outcomes.
const (
	ImmediateTx Outcome = iota
	Enqueued
)

// Linear-adaptive approach parameters (ETSI TS 102 687 Annex A), this
// module's committed defaults.
const (
	cbrLower     = 0.4
	cbrUpper     = 0.8
	tOnppMin     = 40 * time.Millisecond
	tOnppMax     = 1000 * time.Millisecond
	maxQueueSize = 64
)

// ErrQueueFull is returned when an access category's queue is at capacity;
// it is a caller-visible error, not a poll failure.
var ErrQueueFull = errors.New("dcc: access category queue full")

// QueuedPacket is an owned payload waiting for its access category's next
// eligible transmit slot.
type QueuedPacket struct {
	Payload []byte
	Dest    geonet.MAC
}

// Controller is the linear-adaptive DCC policy. Not safe for concurrent
// use; owned exclusively by the router.
type Controller struct {
	cbrStats     *welford.Stats
	cbr          float64
	tOnpp        time.Duration
	nextEligible [acCount]tai.Time
	queues       [acCount][]QueuedPacket
}

// New creates a Controller starting at the minimum transmit interval (i.e.
// assuming an idle channel) until the first CBR sample arrives.
func New() *Controller {
	return &Controller{
		cbrStats: welford.New(),
		tOnpp:    tOnppMin,
	}
}

// SampleCBR folds a channel-busy-ratio sample (device.ChannelBusyRatio(), in
// [0,1]) into the running average and recomputes T_onpp by linear
// interpolation between cbrLower/tOnppMin and cbrUpper/tOnppMax.
func (c *Controller) SampleCBR(v float64) {
	c.cbrStats.Add(v)
	c.cbr = c.cbrStats.Mean()
	switch {
	case c.cbr <= cbrLower:
		c.tOnpp = tOnppMin
	case c.cbr >= cbrUpper:
		c.tOnpp = tOnppMax
	default:
		frac := (c.cbr - cbrLower) / (cbrUpper - cbrLower)
		c.tOnpp = tOnppMin + time.Duration(frac*float64(tOnppMax-tOnppMin))
	}
}

// CBR returns the current smoothed channel busy ratio.
func (c *Controller) CBR() float64 { return c.cbr }

// TOnpp returns the current permitted transmit interval.
func (c *Controller) TOnpp() time.Duration { return c.tOnpp }

// Dispatch decides whether a payload of access category ac may transmit
// now. If the category's next-eligible deadline has passed, it returns
// ImmediateTx and the caller transmits immediately (and must call NotifyTx
// afterwards). Otherwise the payload is queued for a later DrainEligible
// call and Enqueued is returned — always the outcome for the caller, even
// though ErrQueueFull may accompany it when the category's queue is already
// at capacity.
func (c *Controller) Dispatch(ac AccessCategory, payload []byte, dest geonet.MAC, now tai.Time) (Outcome, error) {
	if now.NewerThan(c.nextEligible[ac]) || now == c.nextEligible[ac] {
		return ImmediateTx, nil
	}
	if len(c.queues[ac]) >= maxQueueSize {
		log.WithField("access_category", ac).Debug("dcc queue full, dropping")
		return Enqueued, ErrQueueFull
	}
	owned := make([]byte, len(payload))
	copy(owned, payload)
	c.queues[ac] = append(c.queues[ac], QueuedPacket{Payload: owned, Dest: dest})
	return Enqueued, nil
}

// NotifyTx records that a transmission of the given duration just happened,
// advancing the access category's next-eligible deadline to now + T_onpp.
// Every access category shares the same T_onpp in this policy (ETSI's
// non-prioritized linear-adaptive approach); only the eligibility clock is
// per-category.
func (c *Controller) NotifyTx(ac AccessCategory, now tai.Time, duration time.Duration) {
	c.nextEligible[ac] = now.Add(c.tOnpp)
}

// DrainEligible emits queued packets, highest-priority access category
// first, for every category whose deadline has passed, calling NotifyTx as
// each one transmits.
func (c *Controller) DrainEligible(now tai.Time, emit func(ac AccessCategory, p QueuedPacket) error) {
	for ac := int(acCount) - 1; ac >= 0; ac-- {
		a := AccessCategory(ac)
		for len(c.queues[a]) > 0 {
			if !(now.NewerThan(c.nextEligible[a]) || now == c.nextEligible[a]) {
				break
			}
			p := c.queues[a][0]
			c.queues[a] = c.queues[a][1:]
			if err := emit(a, p); err != nil {
				log.WithError(err).Debug("dcc drain emit failed")
			}
			c.NotifyTx(a, now, 0)
		}
	}
}

// PollAt returns the soonest next-eligible deadline among categories that
// currently have queued packets.
func (c *Controller) PollAt() (tai.Time, bool) {
	var earliest tai.Time
	first := true
	for ac := range c.queues {
		if len(c.queues[ac]) == 0 {
			continue
		}
		if first || earliest.NewerThan(c.nextEligible[ac]) {
			earliest = c.nextEligible[ac]
			first = false
		}
	}
	return earliest, !first
}
