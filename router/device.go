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

package router

import (
	"errors"

	"github.com/kurkpitaine/veloce-sub002/geonet"
	"github.com/kurkpitaine/veloce-sub002/tai"
)

// ErrUnsupported is returned by Device methods the underlying medium does
// not implement (e.g. SetFilterAddr on a medium with no hardware filter).
var ErrUnsupported = errors.New("router: unsupported by this device")

// Medium identifies the link-layer carrying Geonetworking frames.
type Medium uint8

// Mediums.
const (
	MediumEthernet   Medium = iota
	MediumIEEE80211p        // QoS data frame, LLC/SNAP with EtherType 0x8947
	MediumPC5
)

// GeonetEtherType is the EtherType Geonetworking frames are wrapped in on
// Ethernet and 802.11p LLC/SNAP link layers.
const GeonetEtherType = 0x8947

// MACFilterMode describes how the device filters incoming frames by
// destination MAC.
type MACFilterMode uint8

// Filter modes.
const (
	MACFilterNone MACFilterMode = iota
	MACFilterReceiveAll
	MACFilterOwnAndBroadcast
)

// Capabilities describes what a Device can do, queried once at startup.
type Capabilities struct {
	Medium              Medium
	MaxTransmissionUnit int
	MACFilterMode       MACFilterMode
}

// RxToken yields exactly one received frame's bytes to f.
type RxToken interface {
	Consume(f func(frame []byte) error) error
}

// TxToken reserves room for a length-byte frame and yields a buffer of
// that length to f for the caller to fill before it is sent.
type TxToken interface {
	Consume(length int, f func(frame []byte) error) error
}

// Device is the router's link-layer collaborator. A transmit token that is
// never consumed is simply dropped by the caller, equivalent to a no-op.
type Device interface {
	Capabilities() Capabilities
	Receive(now tai.Time) (RxToken, TxToken, bool)
	Transmit(now tai.Time) (TxToken, bool)
	ChannelBusyRatio() float64
	// SetFilterAddr updates the device's hardware/software destination
	// filter to mac, used after duplicate-address-detection regenerates
	// the router's MAC. Returns ErrUnsupported if the device has none.
	SetFilterAddr(mac geonet.MAC) error
}
