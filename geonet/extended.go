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

// Extended is implemented by every Extended Header variant; Encode/Decode
// operate on the variant's own fixed-size wire layout, excluding the Basic
// and Common headers that precede it.
type Extended interface {
	Len() int
	Encode(b []byte) error
}

// Beacon carries only the sender's LPV.
type Beacon struct {
	LPV LongPositionVector
}

// Len implements Extended.
func (Beacon) Len() int { return LongPositionVectorLen }

// Encode implements Extended.
func (h Beacon) Encode(b []byte) error { return h.LPV.Encode(b) }

// DecodeBeacon parses a Beacon extended header.
func DecodeBeacon(b []byte) (Beacon, error) {
	lpv, err := DecodeLongPositionVector(b)
	if err != nil {
		return Beacon{}, err
	}
	return Beacon{LPV: lpv}, nil
}

// GeoUnicast carries a sequence number, the sender's LPV, and the
// destination's SPV.
type GeoUnicast struct {
	Sequence    SequenceNumber
	LPV         LongPositionVector
	Destination ShortPositionVector
}

// Len implements Extended.
func (GeoUnicast) Len() int { return 2 + LongPositionVectorLen + ShortPositionVectorLen }

// Encode implements Extended.
func (h GeoUnicast) Encode(b []byte) error {
	if len(b) < h.Len() {
		return ErrTruncated
	}
	binary.BigEndian.PutUint16(b[0:2], uint16(h.Sequence))
	if err := h.LPV.Encode(b[2 : 2+LongPositionVectorLen]); err != nil {
		return err
	}
	return h.Destination.Encode(b[2+LongPositionVectorLen : h.Len()])
}

// DecodeGeoUnicast parses a GeoUnicast extended header.
func DecodeGeoUnicast(b []byte) (GeoUnicast, error) {
	var h GeoUnicast
	if len(b) < h.Len() {
		return GeoUnicast{}, ErrTruncated
	}
	h.Sequence = SequenceNumber(binary.BigEndian.Uint16(b[0:2]))
	lpv, err := DecodeLongPositionVector(b[2 : 2+LongPositionVectorLen])
	if err != nil {
		return GeoUnicast{}, err
	}
	h.LPV = lpv
	dst, err := DecodeShortPositionVector(b[2+LongPositionVectorLen : h.Len()])
	if err != nil {
		return GeoUnicast{}, err
	}
	h.Destination = dst
	return h, nil
}

// TSBMultiHop carries a sequence number and the sender's LPV.
type TSBMultiHop struct {
	Sequence SequenceNumber
	LPV      LongPositionVector
}

// Len implements Extended.
func (TSBMultiHop) Len() int { return 2 + LongPositionVectorLen }

// Encode implements Extended.
func (h TSBMultiHop) Encode(b []byte) error {
	if len(b) < h.Len() {
		return ErrTruncated
	}
	binary.BigEndian.PutUint16(b[0:2], uint16(h.Sequence))
	return h.LPV.Encode(b[2:h.Len()])
}

// DecodeTSBMultiHop parses a TSB multi-hop extended header.
func DecodeTSBMultiHop(b []byte) (TSBMultiHop, error) {
	var h TSBMultiHop
	if len(b) < h.Len() {
		return TSBMultiHop{}, ErrTruncated
	}
	h.Sequence = SequenceNumber(binary.BigEndian.Uint16(b[0:2]))
	lpv, err := DecodeLongPositionVector(b[2:h.Len()])
	if err != nil {
		return TSBMultiHop{}, err
	}
	h.LPV = lpv
	return h, nil
}

// TSBSingleHopExtLen is the size of the media-specific extension trailing a
// Single-Hop Broadcast header.
const TSBSingleHopExtLen = 4

// TSBSingleHop carries the sender's LPV and a 4-byte media-specific
// extension; it never carries a sequence number.
type TSBSingleHop struct {
	LPV       LongPositionVector
	MediaInfo [TSBSingleHopExtLen]byte
}

// Len implements Extended.
func (TSBSingleHop) Len() int { return LongPositionVectorLen + TSBSingleHopExtLen }

// Encode implements Extended.
func (h TSBSingleHop) Encode(b []byte) error {
	if len(b) < h.Len() {
		return ErrTruncated
	}
	if err := h.LPV.Encode(b[0:LongPositionVectorLen]); err != nil {
		return err
	}
	copy(b[LongPositionVectorLen:h.Len()], h.MediaInfo[:])
	return nil
}

// DecodeTSBSingleHop parses a TSB single-hop extended header.
func DecodeTSBSingleHop(b []byte) (TSBSingleHop, error) {
	var h TSBSingleHop
	if len(b) < h.Len() {
		return TSBSingleHop{}, ErrTruncated
	}
	lpv, err := DecodeLongPositionVector(b[0:LongPositionVectorLen])
	if err != nil {
		return TSBSingleHop{}, err
	}
	h.LPV = lpv
	copy(h.MediaInfo[:], b[LongPositionVectorLen:h.Len()])
	return h, nil
}

// GeoArea is shared by GeoAnycast and GeoBroadcast: sequence number, the
// sender's LPV, the area center position, and the shape parameters
// (distance-a, distance-b, angle) whose meaning depends on the Common
// Header's SubType (circle/rectangle/ellipse).
type GeoArea struct {
	Sequence  SequenceNumber
	LPV       LongPositionVector
	Latitude  int32
	Longitude int32
	DistanceA uint16
	DistanceB uint16
	Angle     uint16
}

// Len implements Extended.
func (GeoArea) Len() int { return 2 + LongPositionVectorLen + 4 + 4 + 2 + 2 + 2 }

// Encode implements Extended.
func (h GeoArea) Encode(b []byte) error {
	if len(b) < h.Len() {
		return ErrTruncated
	}
	if err := checkCoordinates(h.Latitude, h.Longitude); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(b[0:2], uint16(h.Sequence))
	if err := h.LPV.Encode(b[2 : 2+LongPositionVectorLen]); err != nil {
		return err
	}
	o := 2 + LongPositionVectorLen
	binary.BigEndian.PutUint32(b[o:o+4], uint32(h.Latitude))
	binary.BigEndian.PutUint32(b[o+4:o+8], uint32(h.Longitude))
	binary.BigEndian.PutUint16(b[o+8:o+10], h.DistanceA)
	binary.BigEndian.PutUint16(b[o+10:o+12], h.DistanceB)
	binary.BigEndian.PutUint16(b[o+12:o+14], h.Angle)
	return nil
}

// DecodeGeoArea parses a GeoAnycast/GeoBroadcast extended header.
func DecodeGeoArea(b []byte) (GeoArea, error) {
	var h GeoArea
	if len(b) < h.Len() {
		return GeoArea{}, ErrTruncated
	}
	h.Sequence = SequenceNumber(binary.BigEndian.Uint16(b[0:2]))
	lpv, err := DecodeLongPositionVector(b[2 : 2+LongPositionVectorLen])
	if err != nil {
		return GeoArea{}, err
	}
	h.LPV = lpv
	o := 2 + LongPositionVectorLen
	h.Latitude = int32(binary.BigEndian.Uint32(b[o : o+4]))
	h.Longitude = int32(binary.BigEndian.Uint32(b[o+4 : o+8]))
	if err := checkCoordinates(h.Latitude, h.Longitude); err != nil {
		return GeoArea{}, err
	}
	h.DistanceA = binary.BigEndian.Uint16(b[o+8 : o+10])
	h.DistanceB = binary.BigEndian.Uint16(b[o+10 : o+12])
	h.Angle = binary.BigEndian.Uint16(b[o+12 : o+14])
	return h, nil
}

// LSRequest carries a sequence number, the requester's LPV, and the MAC
// being resolved.
type LSRequest struct {
	Sequence     SequenceNumber
	LPV          LongPositionVector
	RequestedMAC MAC
}

// Len implements Extended.
func (LSRequest) Len() int { return 2 + LongPositionVectorLen + 6 }

// Encode implements Extended.
func (h LSRequest) Encode(b []byte) error {
	if len(b) < h.Len() {
		return ErrTruncated
	}
	binary.BigEndian.PutUint16(b[0:2], uint16(h.Sequence))
	if err := h.LPV.Encode(b[2 : 2+LongPositionVectorLen]); err != nil {
		return err
	}
	copy(b[2+LongPositionVectorLen:h.Len()], h.RequestedMAC[:])
	return nil
}

// DecodeLSRequest parses an LS_REQUEST extended header.
func DecodeLSRequest(b []byte) (LSRequest, error) {
	var h LSRequest
	if len(b) < h.Len() {
		return LSRequest{}, ErrTruncated
	}
	h.Sequence = SequenceNumber(binary.BigEndian.Uint16(b[0:2]))
	lpv, err := DecodeLongPositionVector(b[2 : 2+LongPositionVectorLen])
	if err != nil {
		return LSRequest{}, err
	}
	h.LPV = lpv
	copy(h.RequestedMAC[:], b[2+LongPositionVectorLen:h.Len()])
	return h, nil
}

// LSReply carries a sequence number, the replier's LPV, and the original
// requester's SPV.
type LSReply struct {
	Sequence  SequenceNumber
	LPV       LongPositionVector
	Requester ShortPositionVector
}

// Len implements Extended.
func (LSReply) Len() int { return 2 + LongPositionVectorLen + ShortPositionVectorLen }

// Encode implements Extended.
func (h LSReply) Encode(b []byte) error {
	if len(b) < h.Len() {
		return ErrTruncated
	}
	binary.BigEndian.PutUint16(b[0:2], uint16(h.Sequence))
	if err := h.LPV.Encode(b[2 : 2+LongPositionVectorLen]); err != nil {
		return err
	}
	return h.Requester.Encode(b[2+LongPositionVectorLen : h.Len()])
}

// DecodeLSReply parses an LS_REPLY extended header.
func DecodeLSReply(b []byte) (LSReply, error) {
	var h LSReply
	if len(b) < h.Len() {
		return LSReply{}, ErrTruncated
	}
	h.Sequence = SequenceNumber(binary.BigEndian.Uint16(b[0:2]))
	lpv, err := DecodeLongPositionVector(b[2 : 2+LongPositionVectorLen])
	if err != nil {
		return LSReply{}, err
	}
	h.LPV = lpv
	req, err := DecodeShortPositionVector(b[2+LongPositionVectorLen : h.Len()])
	if err != nil {
		return LSReply{}, err
	}
	h.Requester = req
	return h, nil
}
