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

// Package cam implements the Cooperative Awareness Message socket: periodic
// triggering of a heartbeat broadcast carrying the station's current fix.
// UPER encoding is delegated to an injected Encoder so this package never
// links ASN.1 machinery.
package cam

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kurkpitaine/veloce-sub002/btp"
	"github.com/kurkpitaine/veloce-sub002/geoarea"
	"github.com/kurkpitaine/veloce-sub002/tai"
)

// Profile selects the retransmit timer bound.
type Profile uint8

// Profiles.
const (
	ProfileVehicle Profile = iota
	ProfileRoadsideUnit
)

// Retransmit timer bounds.
const (
	minRetransmit   = 100 * time.Millisecond
	maxRetransmit   = 1 * time.Second
	vehicleNominal  = 100 * time.Millisecond
	roadsideFixed   = 1 * time.Second
	lowFreqInterval = 500 * time.Millisecond
	maxFixAge       = 32767 * time.Millisecond
)

// ErrNoFix is returned by Poll when the station has no position fix, or the
// fix is stale, so no CAM is generated this tick.
var ErrNoFix = errors.New("cam: no usable position fix")

// Fix is the station's current kinematic state as known to the facility
// layer.
type Fix struct {
	Timestamp  tai.Time
	Position   geoarea.Position
	SpeedMPS   float64
	HeadingDeg float64
	Confidence Confidence
}

// Confidence carries the HF container's accuracy placeholders.
type Confidence struct {
	PositionMeters float64
	SpeedMPS       float64
	HeadingDeg     float64
}

// VehicleProfile carries the length/width placeholders and role used by the
// low-frequency container.
type VehicleProfile struct {
	LengthCM       uint16
	WidthCM        uint16
	Role           uint8
	ExteriorLights uint8
}

// HighFrequencyContainer is rebuilt on every transmission.
type HighFrequencyContainer struct {
	Position   geoarea.Position
	SpeedMPS   float64
	HeadingDeg float64
	Confidence Confidence
	LengthCM   uint16
	WidthCM    uint16
}

// LowFrequencyContainer is rebuilt only every lowFreqInterval.
type LowFrequencyContainer struct {
	Role           uint8
	ExteriorLights uint8
	PathHistory    []geoarea.Position
}

// Message is the decoded-side representation handed to the Encoder; the
// Encoder is responsible for turning it into a UPER byte slice.
type Message struct {
	GenerationDeltaTime uint16
	StationID           uint32
	HF                  HighFrequencyContainer
	LF                  *LowFrequencyContainer
}

// Encoder performs the ASN.1 UPER encoding the router itself never links.
type Encoder interface {
	EncodeCAM(m Message) ([]byte, error)
}

// Outbound is what Poll returns when a CAM should be transmitted.
type Outbound struct {
	Payload      []byte
	Port         uint16
	TrafficClass uint8
}

// Socket is the CAM generation state machine. Not safe for concurrent use.
type Socket struct {
	profile         Profile
	encoder         Encoder
	vehicle         VehicleProfile
	stationID       uint32
	pathHistory     []geoarea.Position
	retransmitTimer time.Duration
	nextTx          tai.Time
	lastLF          tai.Time
	haveLF          bool
	fix             *Fix
}

// New creates a Socket for the given profile and station ID. retransmit, if
// non-zero, overrides the profile's nominal timer (clamped to
// [minRetransmit, maxRetransmit]).
func New(profile Profile, stationID uint32, encoder Encoder, retransmit time.Duration) *Socket {
	if retransmit <= 0 {
		if profile == ProfileRoadsideUnit {
			retransmit = roadsideFixed
		} else {
			retransmit = vehicleNominal
		}
	}
	if retransmit < minRetransmit {
		retransmit = minRetransmit
	}
	if retransmit > maxRetransmit {
		retransmit = maxRetransmit
	}
	return &Socket{
		profile:         profile,
		encoder:         encoder,
		stationID:       stationID,
		retransmitTimer: retransmit,
	}
}

// SetVehicleProfile sets the length/width/role/lights placeholders used by
// the LF container.
func (s *Socket) SetVehicleProfile(v VehicleProfile) { s.vehicle = v }

// SetFix updates the current position fix used as input to the next CAM.
func (s *Socket) SetFix(f Fix) { s.fix = &f }

// PushPathHistoryPoint appends a point used by the next LF container.
func (s *Socket) PushPathHistoryPoint(p geoarea.Position) {
	s.pathHistory = append(s.pathHistory, p)
	if len(s.pathHistory) > 40 {
		s.pathHistory = s.pathHistory[len(s.pathHistory)-40:]
	}
}

// Poll generates and encodes a CAM if the retransmit deadline has passed.
// Returns (nil, nil) when it is not yet time to transmit, and ErrNoFix when
// the station has no usable fix.
func (s *Socket) Poll(now tai.Time) (*Outbound, error) {
	if !(now.NewerThan(s.nextTx) || now == s.nextTx) {
		return nil, nil
	}
	if s.fix == nil {
		log.Debug("cam: poll with no fix, skipping")
		return nil, ErrNoFix
	}
	if now.Since(s.fix.Timestamp) >= maxFixAge {
		log.WithField("age_ms", now.Since(s.fix.Timestamp).Milliseconds()).Debug("cam: fix too stale, skipping")
		return nil, ErrNoFix
	}

	genTimestamp := s.fix.Timestamp
	if s.profile == ProfileRoadsideUnit {
		genTimestamp = now
	}
	genDelta := uint16(uint32(genTimestamp) % (1 << 16))

	msg := Message{
		GenerationDeltaTime: genDelta,
		StationID:           s.stationID,
		HF: HighFrequencyContainer{
			Position:   s.fix.Position,
			SpeedMPS:   s.fix.SpeedMPS,
			HeadingDeg: s.fix.HeadingDeg,
			Confidence: s.fix.Confidence,
			LengthCM:   s.vehicle.LengthCM,
			WidthCM:    s.vehicle.WidthCM,
		},
	}
	if !s.haveLF || now.Since(s.lastLF) >= lowFreqInterval {
		history := make([]geoarea.Position, len(s.pathHistory))
		copy(history, s.pathHistory)
		msg.LF = &LowFrequencyContainer{
			Role:           s.vehicle.Role,
			ExteriorLights: s.vehicle.ExteriorLights,
			PathHistory:    history,
		}
		s.lastLF = now
		s.haveLF = true
	}

	payload, err := s.encoder.EncodeCAM(msg)
	if err != nil {
		return nil, err
	}
	s.nextTx = now.Add(s.retransmitTimer)
	return &Outbound{Payload: payload, Port: btp.PortCAM, TrafficClass: 2}, nil
}

// PollAt returns the next retransmit deadline.
func (s *Socket) PollAt() tai.Time { return s.nextTx }
