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

// Package btp implements the Basic Transport Protocol's two 4-byte header
// variants and the port-based multiplex that demuxes Geonetworking unicast
// and broadcast payloads into sockets. Headers are small enough that a
// zero-copy view is not worth the API weight: decode always produces a
// plain value.
package btp

import (
	"encoding/binary"

	"github.com/kurkpitaine/veloce-sub002/geonet"
)

// HeaderLen is the wire size of both BTP-A and BTP-B headers.
const HeaderLen = 4

// Well-known BTP-B ports.
const (
	PortCAM  uint16 = 2001
	PortDENM uint16 = 2002
)

// HeaderA is the BTP-A header: destination and source port.
type HeaderA struct {
	DstPort uint16
	SrcPort uint16
}

// DecodeHeaderA parses a 4-byte BTP-A header.
func DecodeHeaderA(b []byte) (HeaderA, error) {
	if len(b) < HeaderLen {
		return HeaderA{}, geonet.ErrTruncated
	}
	return HeaderA{
		DstPort: binary.BigEndian.Uint16(b[0:2]),
		SrcPort: binary.BigEndian.Uint16(b[2:4]),
	}, nil
}

// Encode writes the BTP-A header into b.
func (h HeaderA) Encode(b []byte) error {
	if len(b) < HeaderLen {
		return geonet.ErrTruncated
	}
	binary.BigEndian.PutUint16(b[0:2], h.DstPort)
	binary.BigEndian.PutUint16(b[2:4], h.SrcPort)
	return nil
}

// HeaderB is the BTP-B header: destination port and destination port info
// (a second selector, e.g. a source-port echo or service-specific value).
type HeaderB struct {
	DstPort     uint16
	DstPortInfo uint16
}

// DecodeHeaderB parses a 4-byte BTP-B header.
func DecodeHeaderB(b []byte) (HeaderB, error) {
	if len(b) < HeaderLen {
		return HeaderB{}, geonet.ErrTruncated
	}
	return HeaderB{
		DstPort:     binary.BigEndian.Uint16(b[0:2]),
		DstPortInfo: binary.BigEndian.Uint16(b[2:4]),
	}, nil
}

// Encode writes the BTP-B header into b.
func (h HeaderB) Encode(b []byte) error {
	if len(b) < HeaderLen {
		return geonet.ErrTruncated
	}
	binary.BigEndian.PutUint16(b[0:2], h.DstPort)
	binary.BigEndian.PutUint16(b[2:4], h.DstPortInfo)
	return nil
}

// Kind tags the closed set of socket kinds the router dispatches to by
// pattern match, not dynamic dispatch on an interface.
type Kind uint8

// Socket kinds.
const (
	KindGeonet Kind = iota
	KindBTPA
	KindBTPB
	KindCAM
	KindDENM
)

// Indication is what a socket receives on the ingress path: the sender's
// LPV and the payload above whatever header the socket consumes (none for
// Geonet, the BTP header for BTP-A/B, the BTP-B payload for CAM/DENM).
type Indication struct {
	Source  geonet.LongPositionVector
	Payload []byte
}

// Socket is implemented by every receiver a demuxed packet may be delivered
// to.
type Socket interface {
	Kind() Kind
	// Port returns the BTP-B port this socket accepts, or 0 for sockets
	// that are not port-selected (Geonet, BTP-A raw sockets).
	Port() uint16
	Deliver(ind Indication) error
}

// Demux holds the registered sockets and performs per-packet port-based
// delivery.
type Demux struct {
	geonetSockets []Socket
	btpaSockets   []Socket
	btpbSockets   []Socket
}

// Register adds s to the demux under its own Kind.
func (d *Demux) Register(s Socket) {
	switch s.Kind() {
	case KindGeonet:
		d.geonetSockets = append(d.geonetSockets, s)
	case KindBTPA:
		d.btpaSockets = append(d.btpaSockets, s)
	default:
		d.btpbSockets = append(d.btpbSockets, s)
	}
}

// DeliverGeonet is called on every packet, before BTP demux, so a Geonet
// socket can consume any of them.
func (d *Demux) DeliverGeonet(ind Indication) {
	for _, s := range d.geonetSockets {
		_ = s.Deliver(ind)
	}
}

// Deliver demuxes payload per nextHeader: BTP-A/B header is parsed and the
// remainder handed to every accepting socket.
func (d *Demux) Deliver(nextHeader geonet.NextHeaderCommon, payload []byte, ind Indication) error {
	switch nextHeader {
	case geonet.CommonNextBTPA:
		hdr, err := DecodeHeaderA(payload)
		if err != nil {
			return err
		}
		body := Indication{Source: ind.Source, Payload: payload[HeaderLen:]}
		for _, s := range d.btpaSockets {
			if s.Port() == 0 || s.Port() == hdr.DstPort {
				_ = s.Deliver(body)
			}
		}
	case geonet.CommonNextBTPB:
		hdr, err := DecodeHeaderB(payload)
		if err != nil {
			return err
		}
		body := Indication{Source: ind.Source, Payload: payload[HeaderLen:]}
		for _, s := range d.btpbSockets {
			if s.Port() == hdr.DstPort {
				_ = s.Deliver(body)
			}
		}
	}
	return nil
}
