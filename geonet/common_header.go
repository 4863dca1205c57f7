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

package geonet

import "encoding/binary"

// CommonHeaderLen is the wire size of the Common Header in bytes.
const CommonHeaderLen = 8

// NextHeaderCommon identifies the payload that follows an Extended Header.
type NextHeaderCommon uint8

// Common Header next-header values.
const (
	CommonNextAny  NextHeaderCommon = 0
	CommonNextBTPA NextHeaderCommon = 1
	CommonNextBTPB NextHeaderCommon = 2
	CommonNextIPv6 NextHeaderCommon = 3
)

// HeaderType identifies the Extended Header variant.
type HeaderType uint8

// Header types, Table in ETSI EN 302 636-4-1.
const (
	HeaderTypeAny          HeaderType = 0
	HeaderTypeBeacon       HeaderType = 1
	HeaderTypeGeoUnicast   HeaderType = 2
	HeaderTypeGeoAnycast   HeaderType = 3
	HeaderTypeGeoBroadcast HeaderType = 4
	HeaderTypeTSB          HeaderType = 5
	HeaderTypeLS           HeaderType = 6
)

// SubType disambiguates a HeaderType; meaning depends on the HeaderType.
type SubType uint8

// Sub-types for GeoAnycast / GeoBroadcast (shape).
const (
	SubTypeCircle    SubType = 0
	SubTypeRectangle SubType = 1
	SubTypeEllipse   SubType = 2
)

// Sub-types for TSB.
const (
	SubTypeTSBSingleHop SubType = 0
	SubTypeTSBMultiHop  SubType = 1
)

// Sub-types for LS.
const (
	SubTypeLSRequest SubType = 0
	SubTypeLSReply   SubType = 1
)

// TrafficClass carries the store-carry-forward and channel-offload flags and
// a 6-bit traffic class identifier.
type TrafficClass struct {
	StoreCarryForward bool
	ChannelOffload    bool
	ID                uint8 // 6 bits
}

// Encode packs the TrafficClass into a single byte.
func (tc TrafficClass) Encode() byte {
	var b byte
	if tc.StoreCarryForward {
		b |= 0x80
	}
	if tc.ChannelOffload {
		b |= 0x40
	}
	b |= tc.ID & 0x3f
	return b
}

// DecodeTrafficClass unpacks a TrafficClass byte.
func DecodeTrafficClass(b byte) TrafficClass {
	return TrafficClass{
		StoreCarryForward: b&0x80 != 0,
		ChannelOffload:    b&0x40 != 0,
		ID:                b & 0x3f,
	}
}

// CommonHeader is the 8-byte Common Header.
type CommonHeader struct {
	NextHeader    NextHeaderCommon
	HeaderType    HeaderType
	SubType       SubType
	TrafficClass  TrafficClass
	Mobile        bool
	PayloadLength uint16
	MaxHopLimit   uint8
}

// DecodeCommonHeader parses an 8-byte Common Header.
func DecodeCommonHeader(b []byte) (CommonHeader, error) {
	if len(b) < CommonHeaderLen {
		return CommonHeader{}, ErrTruncated
	}
	nh := NextHeaderCommon(b[0] >> 4)
	typeAndSub := b[1]
	return CommonHeader{
		NextHeader:    nh,
		HeaderType:    HeaderType(typeAndSub >> 4),
		SubType:       SubType(typeAndSub & 0x0f),
		TrafficClass:  DecodeTrafficClass(b[2]),
		Mobile:        b[3]&0x80 != 0,
		PayloadLength: binary.BigEndian.Uint16(b[4:6]),
		MaxHopLimit:   b[6],
	}, nil
}

// Encode writes the Common Header into b, which must be at least
// CommonHeaderLen bytes.
func (h CommonHeader) Encode(b []byte) error {
	if len(b) < CommonHeaderLen {
		return ErrTruncated
	}
	if h.HeaderType > 0x0f || h.SubType > 0x0f {
		return ErrMalformed
	}
	b[0] = uint8(h.NextHeader) << 4
	b[1] = uint8(h.HeaderType)<<4 | uint8(h.SubType)
	b[2] = h.TrafficClass.Encode()
	b[3] = 0
	if h.Mobile {
		b[3] = 0x80
	}
	binary.BigEndian.PutUint16(b[4:6], h.PayloadLength)
	b[6] = h.MaxHopLimit
	b[7] = 0
	return nil
}
