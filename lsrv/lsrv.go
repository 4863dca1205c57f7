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

// Package lsrv implements the Geonetworking Location Service: a state
// machine issuing LS_REQUEST for unknown destinations, with bounded
// retries and failure reporting via an attempts counter and a rescheduled
// deadline per pending request.
package lsrv

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kurkpitaine/veloce-sub002/geonet"
	"github.com/kurkpitaine/veloce-sub002/tai"
)

// Defaults.
const (
	DefaultRetransmitTimer = 1 * time.Second
	DefaultMaxRetrans      = 10
)

// State is the lifecycle of a location-service request.
type State uint8

// States.
const (
	StatePending State = iota
	StateFailure
)

// Handle identifies a request slot, opaque to callers: a small integer
// handle, no owning pointer.
type Handle uint32

// request is one table slot.
type request struct {
	handle       Handle
	address      geonet.MAC
	state        State
	attempts     int
	retransmitAt tai.Time
}

// Service is the location-service request table. Not safe for concurrent
// use; owned exclusively by the router.
type Service struct {
	requests        map[Handle]*request
	nextHandle      Handle
	retransmitTimer time.Duration
	maxRetrans      int
}

// New creates a Service using the given retransmit timer and max-attempts
// bound; pass 0 for either to use the defaults.
func New(retransmitTimer time.Duration, maxRetrans int) *Service {
	if retransmitTimer <= 0 {
		retransmitTimer = DefaultRetransmitTimer
	}
	if maxRetrans <= 0 {
		maxRetrans = DefaultMaxRetrans
	}
	return &Service{
		requests:        make(map[Handle]*request),
		retransmitTimer: retransmitTimer,
		maxRetrans:      maxRetrans,
	}
}

// Request allocates a new pending request for addr and returns its handle.
// If addr already has a pending request, that request's handle is returned
// unchanged (no duplicate LS_REQUEST stream for the same address).
func (s *Service) Request(addr geonet.MAC, now tai.Time) Handle {
	for _, r := range s.requests {
		if r.address == addr && r.state == StatePending {
			return r.handle
		}
	}
	s.nextHandle++
	h := s.nextHandle
	s.requests[h] = &request{
		handle:       h,
		address:      addr,
		state:        StatePending,
		retransmitAt: now,
	}
	return h
}

// CancelRequest frees the slot for handle, if present.
func (s *Service) CancelRequest(h Handle) {
	delete(s.requests, h)
}

// Resolved marks every pending request for addr as satisfied and frees
// their slots, called when an LS reply or a beacon from addr arrives.
func (s *Service) Resolved(addr geonet.MAC) {
	for h, r := range s.requests {
		if r.address == addr {
			delete(s.requests, h)
		}
	}
}

// Event is emitted by Dispatch for each request that needs action this
// tick.
type Event struct {
	Handle  Handle
	Address geonet.MAC
	Failed  bool // true: request exhausted retries, caller must clean up
}

// Dispatch advances every pending request whose retransmitAt has elapsed:
// emits a retransmit Event and reschedules, or — at MAX attempts —
// transitions to Failure and emits a Failed Event so the caller can drop
// dependent buffered packets and the location-table entry.
func (s *Service) Dispatch(now tai.Time) []Event {
	var events []Event
	for h, r := range s.requests {
		if r.state == StateFailure {
			events = append(events, Event{Handle: h, Address: r.address, Failed: true})
			delete(s.requests, h)
			continue
		}
		if now.NewerThan(r.retransmitAt) || now == r.retransmitAt {
			if r.attempts >= s.maxRetrans {
				r.state = StateFailure
				log.WithField("address", r.address).Warn("location service request failed, exhausted retries")
				events = append(events, Event{Handle: h, Address: r.address, Failed: true})
				delete(s.requests, h)
				continue
			}
			r.attempts++
			r.retransmitAt = now.Add(s.retransmitTimer)
			events = append(events, Event{Handle: h, Address: r.address})
		}
	}
	return events
}

// PollAt returns the soonest retransmitAt among pending requests.
func (s *Service) PollAt() (tai.Time, bool) {
	var earliest tai.Time
	first := true
	for _, r := range s.requests {
		if first || earliest.NewerThan(r.retransmitAt) {
			earliest = r.retransmitAt
			first = false
		}
	}
	return earliest, !first
}

// Len returns the number of in-flight requests.
func (s *Service) Len() int { return len(s.requests) }
