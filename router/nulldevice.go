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
	"github.com/kurkpitaine/veloce-sub002/geonet"
	"github.com/kurkpitaine/veloce-sub002/tai"
)

// NullDevice is a Device with no underlying medium: it never has a frame to
// receive and discards everything handed to Transmit. Useful for running a
// Router with no link layer wired up yet (smoke-testing, cmd/gnrouterd
// before a real NIC binding is plugged in).
type NullDevice struct {
	caps Capabilities
}

// NewNullDevice creates a NullDevice advertising the given capabilities.
func NewNullDevice(caps Capabilities) *NullDevice {
	return &NullDevice{caps: caps}
}

// Capabilities implements Device.
func (d *NullDevice) Capabilities() Capabilities { return d.caps }

// Receive implements Device; never has anything pending.
func (d *NullDevice) Receive(tai.Time) (RxToken, TxToken, bool) { return nil, nil, false }

// Transmit implements Device; always grants a token that discards its
// payload, so buffers still drain even with no real link layer.
func (d *NullDevice) Transmit(tai.Time) (TxToken, bool) { return nullTxToken{}, true }

// ChannelBusyRatio implements Device; reports an idle channel.
func (d *NullDevice) ChannelBusyRatio() float64 { return 0 }

// SetFilterAddr implements Device; no hardware filter to update.
func (d *NullDevice) SetFilterAddr(geonet.MAC) error { return nil }

type nullTxToken struct{}

func (nullTxToken) Consume(length int, f func([]byte) error) error {
	return f(make([]byte, length))
}
