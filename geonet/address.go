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
	"fmt"
)

// AddressLen is the wire size of a GN Address in bytes.
const AddressLen = 8

// StationType enumerates ITS-G5 station types carried in a GN Address.
type StationType uint8

// Station types as per ETSI TS 102 894-2.
const (
	StationUnknown        StationType = 0
	StationPedestrian     StationType = 1
	StationCyclist        StationType = 2
	StationMoped          StationType = 3
	StationMotorcycle     StationType = 4
	StationPassengerCar   StationType = 5
	StationBus            StationType = 6
	StationLightTruck     StationType = 7
	StationHeavyTruck     StationType = 8
	StationTrailer        StationType = 9
	StationSpecialVehicle StationType = 10
	StationTram           StationType = 11
	StationRoadSideUnit   StationType = 15
)

// MAC is an IEEE 802 48-bit MAC address.
type MAC [6]byte

// String implements fmt.Stringer.
func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsBroadcast reports whether m is the all-ones broadcast MAC.
func (m MAC) IsBroadcast() bool {
	return m == MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
}

// LocallyAdministered reports whether the locally-administered bit (bit 1 of
// the first octet) is set, as produced by duplicate-address-detection MAC
// regeneration.
func (m MAC) LocallyAdministered() bool {
	return m[0]&0x02 != 0
}

// Address is the 8-octet GN Address: manually_configured:1 |
// station_type:5 | country_code:10 | mac_addr:48.
type Address struct {
	ManuallyConfigured bool
	StationType        StationType
	CountryCode        uint16 // 10 bits
	MAC                MAC
}

// DecodeAddress parses an 8-byte GN Address.
func DecodeAddress(b []byte) (Address, error) {
	if len(b) < AddressLen {
		return Address{}, ErrTruncated
	}
	hdr := binary.BigEndian.Uint16(b[0:2])
	a := Address{
		ManuallyConfigured: hdr&0x8000 != 0,
		StationType:        StationType((hdr >> 10) & 0x1f),
		CountryCode:        hdr & 0x03ff,
	}
	copy(a.MAC[:], b[2:8])
	return a, nil
}

// Encode writes the address into b, which must be at least AddressLen bytes.
func (a Address) Encode(b []byte) error {
	if len(b) < AddressLen {
		return ErrTruncated
	}
	if a.CountryCode > 0x03ff {
		return ErrMalformed
	}
	var hdr uint16
	if a.ManuallyConfigured {
		hdr |= 0x8000
	}
	hdr |= uint16(a.StationType&0x1f) << 10
	hdr |= a.CountryCode & 0x03ff
	binary.BigEndian.PutUint16(b[0:2], hdr)
	copy(b[2:8], a.MAC[:])
	return nil
}

// WithMAC returns a copy of a with its MAC half replaced, used on pseudonym
// change: the MAC half is independently settable.
func (a Address) WithMAC(mac MAC) Address {
	a.MAC = mac
	return a
}
