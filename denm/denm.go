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

// Package denm implements the Decentralized Environmental Notification
// Message socket: an originating table for events this station generates
// and a receiving table for events heard from others, with trigger,
// update, cancel and negate operations. UPER encoding/decoding is
// delegated to an injected Encoder/Decoder so this package never links
// ASN.1 machinery.
package denm

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kurkpitaine/veloce-sub002/geoarea"
	"github.com/kurkpitaine/veloce-sub002/tai"
)

// Socket API errors.
var (
	ErrInvalidDetectionTime      = errors.New("denm: invalid detection time")
	ErrInvalidValidityDuration   = errors.New("denm: invalid validity duration")
	ErrInvalidRepetitionDuration = errors.New("denm: invalid repetition duration")
	ErrInvalidRepetitionInterval = errors.New("denm: invalid repetition interval")
	ErrInvalidKeepAlive          = errors.New("denm: invalid keep-alive interval")
	ErrNoFreeSlot                = errors.New("denm: no free table slot")
	ErrNotFound                  = errors.New("denm: action id not found")
	ErrExpired                   = errors.New("denm: action id expired")
	ErrActionIDInOrigMsgTable    = errors.New("denm: action id belongs to the originating table")
)

const (
	defaultValidityDuration = 600 * time.Second
	maxValidityDuration     = 86400 * time.Second
	minKeepAlive            = 1 * time.Millisecond
	maxKeepAlive            = 10000 * time.Millisecond
	maxTableEntries         = 256
)

// Termination tags the re-emission reason; zero value means none.
type Termination uint8

// Termination values.
const (
	TerminationNone Termination = iota
	TerminationCancellation
	TerminationNegation
)

// ActionID uniquely identifies a DENM event, preserved across pseudonym
// changes only when the station-id field itself is rewritten.
type ActionID struct {
	StationID      uint32
	SequenceNumber uint16
}

// Repetition controls periodic re-emission of an Active event.
type Repetition struct {
	Duration time.Duration
	Interval time.Duration
}

// Event is the caller-supplied content of a DENM, independent of its
// action-id and lifecycle state.
type Event struct {
	DetectionTime    tai.Time
	ValidityDuration time.Duration
	Repetition       *Repetition
	KeepAlive        time.Duration
	TrafficClass     uint8
	Area             geoarea.Shape
	Center           geoarea.Position
	Management       ManagementContainer
	Situation        *SituationContainer
	Location         *LocationContainer
	AlaCarte         *AlaCarteContainer
}

// ManagementContainer carries the mandatory DENM management fields not
// already covered by ActionID/DetectionTime/ValidityDuration.
type ManagementContainer struct {
	StationType   uint8
	RelevanceArea geoarea.Shape
}

// SituationContainer, LocationContainer and AlaCarteContainer are opaque
// payloads passed through verbatim to the Encoder; their internal layout is
// ASN.1-defined (TS 103 831) and out of scope here.
type SituationContainer struct{ Raw []byte }
type LocationContainer struct{ Raw []byte }
type AlaCarteContainer struct{ Raw []byte }

// Message is the decoded-side representation exchanged with the Encoder and
// Decoder.
type Message struct {
	ActionID      ActionID
	DetectionTime tai.Time
	ReferenceTime tai.Time
	Termination   Termination
	StationID     uint32
	Event         Event
}

// Encoder performs the ASN.1 UPER encoding.
type Encoder interface {
	EncodeDENM(m Message) ([]byte, error)
}

// Decoder performs the ASN.1 UPER decoding.
type Decoder interface {
	DecodeDENM(b []byte) (Message, error)
}

// OrigState is the lifecycle of an originating-table entry.
type OrigState uint8

// Originating states.
const (
	OrigActive OrigState = iota
	OrigCancelled
	OrigNegated
	OrigExpired
)

type origEntry struct {
	actionID     ActionID
	state        OrigState
	event        Event
	stationID    uint32
	retransmitAt tai.Time
	repeatUntil  tai.Time
	expiresAt    tai.Time
	termination  Termination
}

// RecvEventKind tags what happened to the receiving table on a decode.
type RecvEventKind uint8

// Receive event kinds.
const (
	RecvNew RecvEventKind = iota
	RecvUpdate
	RecvCancel
	RecvNegation
)

type recvEntry struct {
	actionID      ActionID
	referenceTime tai.Time
	expiresAt     tai.Time
	cancelled     bool
}

// OutEvent is emitted by Poll for the originating side: a freshly
// (re)transmitted DENM payload and its geo-area/traffic-class for egress.
type OutEvent struct {
	ActionID     ActionID
	Payload      []byte
	Area         geoarea.Shape
	Center       geoarea.Position
	TrafficClass uint8
}

// InEvent is emitted by Poll/Receive for the receiving side.
type InEvent struct {
	Kind     RecvEventKind
	ActionID ActionID
}

// Handle identifies an originating-table slot.
type Handle uint32

// Socket is the DENM originating+receiving state machine. Not safe for
// concurrent use.
type Socket struct {
	encoder   Encoder
	decoder   Decoder
	stationID uint32

	orig       map[Handle]*origEntry
	nextHandle Handle
	nextSeq    uint16

	recv map[ActionID]*recvEntry

	pendingOut []OutEvent
	pendingIn  []InEvent
}

// New creates a Socket for the given station ID.
func New(stationID uint32, encoder Encoder, decoder Decoder) *Socket {
	return &Socket{
		encoder:   encoder,
		decoder:   decoder,
		stationID: stationID,
		orig:      make(map[Handle]*origEntry),
		recv:      make(map[ActionID]*recvEntry),
	}
}

// SetStationID updates the station ID used to stamp newly emitted DENMs,
// e.g. on pseudonym rotation.
func (s *Socket) SetStationID(id uint32) { s.stationID = id }

func validateEvent(now tai.Time, ev Event) error {
	if ev.DetectionTime.NewerThan(now) {
		return ErrInvalidDetectionTime
	}
	validity := ev.ValidityDuration
	if validity <= 0 {
		validity = defaultValidityDuration
	}
	if validity < 0 || validity > maxValidityDuration {
		return ErrInvalidValidityDuration
	}
	if ev.Repetition != nil {
		if ev.Repetition.Duration < 0 || ev.Repetition.Duration > validity {
			return ErrInvalidRepetitionDuration
		}
		if ev.Repetition.Interval <= 0 || ev.Repetition.Interval > validity {
			return ErrInvalidRepetitionInterval
		}
	}
	if ev.KeepAlive != 0 {
		if ev.KeepAlive < minKeepAlive || ev.KeepAlive > maxKeepAlive || ev.KeepAlive > validity {
			return ErrInvalidKeepAlive
		}
	}
	return nil
}

// Trigger validates and stores a new originating event, returning its
// handle. The first DENM is emitted on the next Poll (retransmit_at is set
// to now, i.e. immediately due).
func (s *Socket) Trigger(ev Event, now tai.Time) (Handle, error) {
	if err := validateEvent(now, ev); err != nil {
		return 0, err
	}
	if len(s.orig) >= maxTableEntries {
		return 0, ErrNoFreeSlot
	}
	validity := ev.ValidityDuration
	if validity <= 0 {
		validity = defaultValidityDuration
	}
	s.nextHandle++
	h := s.nextHandle
	s.nextSeq++
	aid := ActionID{StationID: s.stationID, SequenceNumber: s.nextSeq}
	repeatUntil := now
	if ev.Repetition != nil {
		repeatUntil = now.Add(ev.Repetition.Duration)
	}
	s.orig[h] = &origEntry{
		actionID:     aid,
		state:        OrigActive,
		event:        ev,
		stationID:    s.stationID,
		retransmitAt: now,
		repeatUntil:  repeatUntil,
		expiresAt:    now.Add(validity),
	}
	return h, nil
}

// Update re-emits the same action-id with new event content; state remains
// Active.
func (s *Socket) Update(h Handle, ev Event, now tai.Time) error {
	e, ok := s.orig[h]
	if !ok {
		return ErrNotFound
	}
	if e.state != OrigActive {
		return ErrExpired
	}
	if err := validateEvent(now, ev); err != nil {
		return err
	}
	validity := ev.ValidityDuration
	if validity <= 0 {
		validity = defaultValidityDuration
	}
	e.event = ev
	e.retransmitAt = now
	e.expiresAt = now.Add(validity)
	if ev.Repetition != nil {
		e.repeatUntil = now.Add(ev.Repetition.Duration)
	}
	return nil
}

// Cancel marks the entry Cancelled and schedules one final re-emission
// carrying termination=isCancellation.
func (s *Socket) Cancel(h Handle, now tai.Time) error {
	e, ok := s.orig[h]
	if !ok {
		return ErrNotFound
	}
	if e.state != OrigActive {
		return ErrExpired
	}
	e.state = OrigCancelled
	e.termination = TerminationCancellation
	e.retransmitAt = now
	e.repeatUntil = now
	return nil
}

// Negate creates an originating-table entry carrying termination=isNegation
// for an action-id that currently lives only in the receiving table.
func (s *Socket) Negate(id ActionID, ev Event, now tai.Time) (Handle, error) {
	if _, ok := s.orig[s.handleFor(id)]; ok {
		return 0, ErrActionIDInOrigMsgTable
	}
	if _, ok := s.recv[id]; !ok {
		return 0, ErrNotFound
	}
	if err := validateEvent(now, ev); err != nil {
		return 0, err
	}
	s.nextHandle++
	h := s.nextHandle
	s.orig[h] = &origEntry{
		actionID:     id,
		state:        OrigNegated,
		event:        ev,
		stationID:    s.stationID,
		termination:  TerminationNegation,
		retransmitAt: now,
		repeatUntil:  now,
		expiresAt:    now.Add(1 * time.Second),
	}
	return h, nil
}

func (s *Socket) handleFor(id ActionID) Handle {
	for h, e := range s.orig {
		if e.actionID == id {
			return h
		}
	}
	return 0
}

// Dispatch advances the originating table: for each non-expired entry whose
// retransmit_at has elapsed, it re-encodes (picking up any pseudonym
// change) and emits an OutEvent, then reschedules or finishes. Entries past
// expires_at are recycled.
func (s *Socket) Dispatch(now tai.Time) {
	for h, e := range s.orig {
		if now.NewerThan(e.expiresAt) {
			delete(s.orig, h)
			continue
		}
		if !(now.NewerThan(e.retransmitAt) || now == e.retransmitAt) {
			continue
		}
		msg := Message{
			ActionID:      e.actionID,
			DetectionTime: e.event.DetectionTime,
			ReferenceTime: now,
			Termination:   e.termination,
			StationID:     s.stationID,
			Event:         e.event,
		}
		payload, err := s.encoder.EncodeDENM(msg)
		if err != nil {
			log.WithError(err).WithField("action_id", e.actionID).Warn("denm: encode failed")
			delete(s.orig, h)
			continue
		}
		s.pendingOut = append(s.pendingOut, OutEvent{
			ActionID:     e.actionID,
			Payload:      payload,
			Area:         e.event.Area,
			Center:       e.event.Center,
			TrafficClass: e.event.TrafficClass,
		})

		switch e.state {
		case OrigCancelled, OrigNegated:
			delete(s.orig, h)
		default:
			if e.event.Repetition == nil || now.NewerThan(e.repeatUntil) {
				delete(s.orig, h)
			} else {
				e.retransmitAt = now.Add(e.event.Repetition.Interval)
			}
		}
	}
}

// Receive decodes an inbound DENM payload, updates the receiving table and
// records the corresponding InEvent. Expired or stale (reference-time not
// newer than the stored one) messages are dropped silently. Cancellation
// or negation referencing an unknown action-id is ignored.
func (s *Socket) Receive(payload []byte, now tai.Time) error {
	msg, err := s.decoder.DecodeDENM(payload)
	if err != nil {
		log.WithError(err).Trace("denm: decode failed")
		return err
	}
	existing, known := s.recv[msg.ActionID]

	switch msg.Termination {
	case TerminationCancellation, TerminationNegation:
		if !known {
			return nil
		}
		if !msg.ReferenceTime.NewerThan(existing.referenceTime) {
			return nil
		}
		existing.referenceTime = msg.ReferenceTime
		existing.cancelled = true
		kind := RecvCancel
		if msg.Termination == TerminationNegation {
			kind = RecvNegation
		}
		s.pendingIn = append(s.pendingIn, InEvent{Kind: kind, ActionID: msg.ActionID})
		return nil
	}

	validity := msg.Event.ValidityDuration
	if validity <= 0 {
		validity = defaultValidityDuration
	}
	expiresAt := msg.DetectionTime.Add(validity)
	if now.NewerThan(expiresAt) {
		return nil
	}

	if !known {
		s.recv[msg.ActionID] = &recvEntry{
			actionID:      msg.ActionID,
			referenceTime: msg.ReferenceTime,
			expiresAt:     expiresAt,
		}
		s.pendingIn = append(s.pendingIn, InEvent{Kind: RecvNew, ActionID: msg.ActionID})
		return nil
	}
	if !msg.ReferenceTime.NewerThan(existing.referenceTime) {
		return nil
	}
	existing.referenceTime = msg.ReferenceTime
	existing.expiresAt = expiresAt
	s.pendingIn = append(s.pendingIn, InEvent{Kind: RecvUpdate, ActionID: msg.ActionID})
	return nil
}

// Poll advances Dispatch, reaps expired receiving-table entries, and
// returns one-shot events accumulated since the last call.
func (s *Socket) Poll(now tai.Time) ([]OutEvent, []InEvent) {
	s.Dispatch(now)
	for id, e := range s.recv {
		if now.NewerThan(e.expiresAt) {
			delete(s.recv, id)
		}
	}
	out, in := s.pendingOut, s.pendingIn
	s.pendingOut = nil
	s.pendingIn = nil
	return out, in
}

// OrigLen returns the number of live originating-table entries.
func (s *Socket) OrigLen() int { return len(s.orig) }

// RecvLen returns the number of live receiving-table entries.
func (s *Socket) RecvLen() int { return len(s.recv) }
