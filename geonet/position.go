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

import (
	"encoding/binary"

	"github.com/kurkpitaine/veloce-sub002/geoarea"
	"github.com/kurkpitaine/veloce-sub002/tai"
)

// Coordinate bounds in 1/10-microdegrees.
const (
	MinLatitude  = -900_000_000
	MaxLatitude  = 900_000_000
	MinLongitude = -1_800_000_000
	MaxLongitude = 1_800_000_000
)

// LongPositionVectorLen is the wire size of an LPV in bytes.
const LongPositionVectorLen = 24

// ShortPositionVectorLen is the wire size of an SPV in bytes.
const ShortPositionVectorLen = 20

// LongPositionVector (LPV) carries a station's address, timestamp, position
// and kinematics.
type LongPositionVector struct {
	Address          Address
	Timestamp        tai.Time
	Latitude         int32 // 1/10 microdegree
	Longitude        int32 // 1/10 microdegree
	PositionAccurate bool
	Speed            int16  // 0.01 m/s
	Heading          uint16 // 0.1 degree
}

// Position returns the geoarea.Position in degrees.
func (v LongPositionVector) Position() geoarea.Position {
	return geoarea.Position{
		Lat: float64(v.Latitude) / 1e7,
		Lon: float64(v.Longitude) / 1e7,
	}
}

// Short drops the kinematic fields, producing the SPV carried in e.g.
// GeoUnicast destination fields.
func (v LongPositionVector) Short() ShortPositionVector {
	return ShortPositionVector{
		Address:   v.Address,
		Timestamp: v.Timestamp,
		Latitude:  v.Latitude,
		Longitude: v.Longitude,
	}
}

func checkCoordinates(lat, lon int32) error {
	if lat < MinLatitude || lat > MaxLatitude {
		return ErrMalformed
	}
	if lon < MinLongitude || lon > MaxLongitude {
		return ErrMalformed
	}
	return nil
}

// DecodeLongPositionVector parses a 24-byte LPV.
func DecodeLongPositionVector(b []byte) (LongPositionVector, error) {
	if len(b) < LongPositionVectorLen {
		return LongPositionVector{}, ErrTruncated
	}
	addr, err := DecodeAddress(b[0:8])
	if err != nil {
		return LongPositionVector{}, err
	}
	ts := tai.Time(binary.BigEndian.Uint32(b[8:12]))
	lat := int32(binary.BigEndian.Uint32(b[12:16]))
	lon := int32(binary.BigEndian.Uint32(b[16:20]))
	// the position-accurate flag shares the 16-bit speed field with the
	// signed speed value: bit 15 is the flag, bits 0-14 are the speed in
	// two's complement.
	rawSpeed := binary.BigEndian.Uint16(b[20:22])
	accurate := rawSpeed&0x8000 != 0
	speed := int16(rawSpeed << 1) >> 1
	heading := binary.BigEndian.Uint16(b[22:24])

	if err := checkCoordinates(lat, lon); err != nil {
		return LongPositionVector{}, err
	}

	return LongPositionVector{
		Address:          addr,
		Timestamp:        ts,
		Latitude:         lat,
		Longitude:        lon,
		PositionAccurate: accurate,
		Speed:            speed,
		Heading:          heading,
	}, nil
}

// Encode writes the LPV into b, which must be at least LongPositionVectorLen
// bytes.
func (v LongPositionVector) Encode(b []byte) error {
	if len(b) < LongPositionVectorLen {
		return ErrTruncated
	}
	if err := checkCoordinates(v.Latitude, v.Longitude); err != nil {
		return err
	}
	if err := v.Address.Encode(b[0:8]); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b[8:12], uint32(v.Timestamp))
	binary.BigEndian.PutUint32(b[12:16], uint32(v.Latitude))
	binary.BigEndian.PutUint32(b[16:20], uint32(v.Longitude))
	rawSpeed := uint16(v.Speed) &^ 0x8000
	if v.PositionAccurate {
		rawSpeed |= 0x8000
	}
	binary.BigEndian.PutUint16(b[20:22], rawSpeed)
	binary.BigEndian.PutUint16(b[22:24], v.Heading)
	return nil
}

// ShortPositionVector (SPV) drops the kinematic fields of an LPV: address,
// timestamp, and position only.
type ShortPositionVector struct {
	Address   Address
	Timestamp tai.Time
	Latitude  int32
	Longitude int32
}

// Position returns the geoarea.Position in degrees.
func (v ShortPositionVector) Position() geoarea.Position {
	return geoarea.Position{
		Lat: float64(v.Latitude) / 1e7,
		Lon: float64(v.Longitude) / 1e7,
	}
}

// DecodeShortPositionVector parses a 20-byte SPV.
func DecodeShortPositionVector(b []byte) (ShortPositionVector, error) {
	if len(b) < ShortPositionVectorLen {
		return ShortPositionVector{}, ErrTruncated
	}
	addr, err := DecodeAddress(b[0:8])
	if err != nil {
		return ShortPositionVector{}, err
	}
	ts := tai.Time(binary.BigEndian.Uint32(b[8:12]))
	lat := int32(binary.BigEndian.Uint32(b[12:16]))
	lon := int32(binary.BigEndian.Uint32(b[16:20]))
	if err := checkCoordinates(lat, lon); err != nil {
		return ShortPositionVector{}, err
	}
	return ShortPositionVector{Address: addr, Timestamp: ts, Latitude: lat, Longitude: lon}, nil
}

// Encode writes the SPV into b, which must be at least ShortPositionVectorLen
// bytes.
func (v ShortPositionVector) Encode(b []byte) error {
	if len(b) < ShortPositionVectorLen {
		return ErrTruncated
	}
	if err := checkCoordinates(v.Latitude, v.Longitude); err != nil {
		return err
	}
	if err := v.Address.Encode(b[0:8]); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b[8:12], uint32(v.Timestamp))
	binary.BigEndian.PutUint32(b[12:16], uint32(v.Latitude))
	binary.BigEndian.PutUint32(b[16:20], uint32(v.Longitude))
	return nil
}
