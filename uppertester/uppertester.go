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

// Package uppertester codecs the ETSI TS 103 191-2 UpperTester protocol: a
// small command/response wire format letting an external conformance rig
// poke router state (initialize, move the station, force a pseudonym
// change) over whatever local transport the harness provides. This package
// only encodes/decodes messages; the transport and the command dispatch
// against a live router are the caller's concern.
package uppertester

import (
	"encoding/binary"
	"errors"
)

// ErrTruncated is returned when a buffer is shorter than the message it is
// being decoded as.
var ErrTruncated = errors.New("uppertester: truncated")

// HeaderLen is the size of the message-type prefix common to every message.
const HeaderLen = 1

// MessageType identifies an UpperTester message, restricted to the subset
// ETSI TR 103 099 annex C this module implements.
type MessageType uint8

// Message types.
const (
	MessageTypeUtInitialize            MessageType = 0x00
	MessageTypeUtInitializeResult      MessageType = 0x01
	MessageTypeUtChangePosition        MessageType = 0x02
	MessageTypeUtChangePositionResult  MessageType = 0x03
	MessageTypeUtChangePseudonym       MessageType = 0x04
	MessageTypeUtChangePseudonymResult MessageType = 0x05

	MessageTypeUtGnTriggerResult       MessageType = 0x41
	MessageTypeUtGnTriggerGeoUnicast   MessageType = 0x50
	MessageTypeUtGnTriggerGeoBroadcast MessageType = 0x51
	MessageTypeUtGnTriggerGeoAnycast   MessageType = 0x52
	MessageTypeUtGnTriggerShb          MessageType = 0x53
	MessageTypeUtGnTriggerTsb          MessageType = 0x54
	MessageTypeUtGnEventInd            MessageType = 0x55

	MessageTypeUtBtpTriggerA      MessageType = 0x70
	MessageTypeUtBtpTriggerResult MessageType = 0x71
	MessageTypeUtBtpTriggerB      MessageType = 0x72
	MessageTypeUtBtpEventInd      MessageType = 0x73
)

// ResultCode is the one-byte outcome carried by every *Result message.
type ResultCode uint8

// Result codes.
const (
	ResultFailure ResultCode = 0x00
	ResultSuccess ResultCode = 0x01
)

// DecodeMessageType reads the leading message-type byte of buf.
func DecodeMessageType(buf []byte) (MessageType, error) {
	if len(buf) < HeaderLen {
		return 0, ErrTruncated
	}
	return MessageType(buf[0]), nil
}

// EncodeResult writes a single *Result message with the given type and
// outcome into buf, which must be at least 2 bytes.
func EncodeResult(buf []byte, t MessageType, rc ResultCode) error {
	if len(buf) < 2 {
		return ErrTruncated
	}
	buf[0] = byte(t)
	buf[1] = byte(rc)
	return nil
}

// DecodeResult reads a *Result message's outcome.
func DecodeResult(buf []byte) (ResultCode, error) {
	if len(buf) < 2 {
		return 0, ErrTruncated
	}
	return ResultCode(buf[1]), nil
}

// hashedID8Len is the length of the AT certificate digest carried by
// UtInitialize; all-zero when PICS_GN_SECURITY is unset.
const hashedID8Len = 8

// UtInitializeLen is the wire size of an UtInitialize payload (after the
// message-type byte).
const UtInitializeLen = hashedID8Len

// UtInitialize requests the IUT reset to a known state, using the AT
// certificate identified by HashedID8 for subsequent secured traffic.
type UtInitialize struct {
	HashedID8 [hashedID8Len]byte
}

// DecodeUtInitialize parses an UtInitialize payload (message-type byte
// already consumed by the caller).
func DecodeUtInitialize(b []byte) (UtInitialize, error) {
	if len(b) < UtInitializeLen {
		return UtInitialize{}, ErrTruncated
	}
	var m UtInitialize
	copy(m.HashedID8[:], b[:hashedID8Len])
	return m, nil
}

// Encode writes the UtInitialize payload into b.
func (m UtInitialize) Encode(b []byte) error {
	if len(b) < UtInitializeLen {
		return ErrTruncated
	}
	copy(b[:hashedID8Len], m.HashedID8[:])
	return nil
}

// UtChangePositionLen is the wire size of an UtChangePosition payload.
const UtChangePositionLen = 12

// UtChangePosition moves the IUT by an offset relative to its current
// position: latitude/longitude in 1/10 microdegree, elevation in
// centimeters, all signed and relative (not absolute), per ETSI TR 103 099
// annex C.
type UtChangePosition struct {
	DeltaLatitude  int32 // 1/10 microdegree
	DeltaLongitude int32 // 1/10 microdegree
	DeltaElevation int32 // centimeters
}

// DecodeUtChangePosition parses an UtChangePosition payload.
func DecodeUtChangePosition(b []byte) (UtChangePosition, error) {
	if len(b) < UtChangePositionLen {
		return UtChangePosition{}, ErrTruncated
	}
	return UtChangePosition{
		DeltaLatitude:  int32(binary.BigEndian.Uint32(b[0:4])),
		DeltaLongitude: int32(binary.BigEndian.Uint32(b[4:8])),
		DeltaElevation: int32(binary.BigEndian.Uint32(b[8:12])),
	}, nil
}

// Encode writes the UtChangePosition payload into b.
func (m UtChangePosition) Encode(b []byte) error {
	if len(b) < UtChangePositionLen {
		return ErrTruncated
	}
	binary.BigEndian.PutUint32(b[0:4], uint32(m.DeltaLatitude))
	binary.BigEndian.PutUint32(b[4:8], uint32(m.DeltaLongitude))
	binary.BigEndian.PutUint32(b[8:12], uint32(m.DeltaElevation))
	return nil
}

// UtChangePseudonym carries no fields: it is a bare trigger for the router
// to rotate its MAC immediately, independent of its configured
// PrivacyStrategy schedule.
type UtChangePseudonym struct{}
