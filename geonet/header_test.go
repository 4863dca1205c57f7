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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBasicHeaderRoundTrip(t *testing.T) {
	h := BasicHeader{
		Version:           Version,
		NextHeader:        BasicNextCommonHeader,
		Lifetime:          600 * time.Second,
		RemainingHopLimit: 9,
	}
	buf := make([]byte, BasicHeaderLen)
	require.NoError(t, h.Encode(buf))
	got, err := DecodeBasicHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h.Version, got.Version)
	require.Equal(t, h.NextHeader, got.NextHeader)
	require.Equal(t, h.Lifetime, got.Lifetime)
	require.Equal(t, h.RemainingHopLimit, got.RemainingHopLimit)
}

func TestBasicHeaderTruncated(t *testing.T) {
	_, err := DecodeBasicHeader([]byte{0, 0})
	require.ErrorIs(t, err, ErrTruncated)
}

func TestCommonHeaderRoundTrip(t *testing.T) {
	h := CommonHeader{
		NextHeader:    CommonNextBTPB,
		HeaderType:    HeaderTypeGeoBroadcast,
		SubType:       SubTypeCircle,
		TrafficClass:  TrafficClass{StoreCarryForward: true, ID: 2},
		Mobile:        true,
		PayloadLength: 52,
		MaxHopLimit:   10,
	}
	buf := make([]byte, CommonHeaderLen)
	require.NoError(t, h.Encode(buf))
	got, err := DecodeCommonHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestAddressRoundTrip(t *testing.T) {
	a := Address{
		ManuallyConfigured: true,
		StationType:        StationPassengerCar,
		CountryCode:        33,
		MAC:                MAC{0x02, 0x02, 0x02, 0x02, 0x02, 0x02},
	}
	buf := make([]byte, AddressLen)
	require.NoError(t, a.Encode(buf))
	got, err := DecodeAddress(buf)
	require.NoError(t, err)
	require.Equal(t, a, got)
}

func TestLongPositionVectorRoundTrip(t *testing.T) {
	v := LongPositionVector{
		Address:          Address{StationType: StationRoadSideUnit, MAC: MAC{1, 2, 3, 4, 5, 6}},
		Timestamp:        123456789,
		Latitude:         482764384,
		Longitude:        -35519532,
		PositionAccurate: true,
		Speed:            -250,
		Heading:          1800,
	}
	buf := make([]byte, LongPositionVectorLen)
	require.NoError(t, v.Encode(buf))
	got, err := DecodeLongPositionVector(buf)
	require.NoError(t, err)
	require.Equal(t, v, got)
}

func TestLongPositionVectorRejectsOutOfRangeCoordinates(t *testing.T) {
	v := LongPositionVector{Latitude: MaxLatitude + 1}
	buf := make([]byte, LongPositionVectorLen)
	require.ErrorIs(t, v.Encode(buf), ErrMalformed)
}

func TestSequenceNumberWrap(t *testing.T) {
	require.True(t, SequenceNumber(1).NewerThan(SequenceNumber(0)))
	require.False(t, SequenceNumber(0).NewerThan(SequenceNumber(1)))
	require.True(t, SequenceNumber(0).NewerThan(SequenceNumber(65535)))
	require.False(t, SequenceNumber(65535).NewerThan(SequenceNumber(0)))
}
