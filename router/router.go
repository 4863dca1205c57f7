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

// Package router assembles the location table, packet buffers, location
// service, congestion control, BTP multiplex, forwarding algorithms and
// beacon scheduler into a single-threaded, cooperatively-scheduled
// Geonetworking router: a single Poll(now, device) entry point, no worker
// threads, no internal locking.
package router

import (
	crand "crypto/rand"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/kurkpitaine/veloce-sub002/btp"
	"github.com/kurkpitaine/veloce-sub002/dcc"
	"github.com/kurkpitaine/veloce-sub002/forwarding"
	"github.com/kurkpitaine/veloce-sub002/geoarea"
	"github.com/kurkpitaine/veloce-sub002/geonet"
	"github.com/kurkpitaine/veloce-sub002/gnbuffer"
	"github.com/kurkpitaine/veloce-sub002/lsrv"
	"github.com/kurkpitaine/veloce-sub002/security"
	"github.com/kurkpitaine/veloce-sub002/table"
	"github.com/kurkpitaine/veloce-sub002/tai"
)

// Algorithm selects the forwarding policy applied to non-area unicast and
// area broadcast/anycast, a static per-deployment choice.
type Algorithm uint8

// Algorithms.
const (
	AlgorithmGreedy Algorithm = iota
	AlgorithmCBF
	AlgorithmAreaSimple
	AlgorithmAreaCBF
	AlgorithmAreaAdvanced
)

// Defaults for the router's packet buffers and forwarding parameters.
const (
	DefaultHopLimit       = 10
	DefaultPacketLifetime = 60 * time.Second
	lsBufferMaxBytes      = 64 * 1024
	lsBufferMaxCount      = 256
	ucBufferMaxBytes      = 64 * 1024
	ucBufferMaxCount      = 256
	bcBufferMaxBytes      = 64 * 1024
	bcBufferMaxCount      = 256
	cbfBufferMaxBytes     = 64 * 1024
	cbfBufferMaxCount     = 256
)

// Config bundles the construction-time choices for a Router.
type Config struct {
	Address    geonet.Address
	Algorithm  Algorithm
	Security   security.Service
	Registerer prometheus.Registerer
	RNG        *rand.Rand
	Pseudonym  *PseudonymScheduler
}

// Router is the top-level Geonetworking state machine. It owns the
// location table, the four packet buffers, the sequence counter and the
// router's own GN address exclusively; callers reach that state only
// through the Router's methods.
type Router struct {
	addr      geonet.Address
	seq       geonet.SequenceNumber
	algorithm Algorithm
	position  geoarea.Position

	table *table.Table
	ls    *gnbuffer.PacketBuffer
	uc    *gnbuffer.PacketBuffer
	bc    *gnbuffer.PacketBuffer
	cbf   *gnbuffer.CBFBuffer

	lsrv      *lsrv.Service
	dcc       *dcc.Controller
	beacon    *forwarding.BeaconScheduler
	pseudonym *PseudonymScheduler
	btp       *btp.Demux
	security  security.Service

	rng     *rand.Rand
	metrics *metrics
}

// New creates a Router from cfg at the given starting instant.
func New(now tai.Time, cfg Config) *Router {
	rng := cfg.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(int64(now)))
	}
	return &Router{
		addr:      cfg.Address,
		algorithm: cfg.Algorithm,
		table:     table.New(0),
		ls:        gnbuffer.New("ls", lsBufferMaxBytes, lsBufferMaxCount),
		uc:        gnbuffer.New("uc", ucBufferMaxBytes, ucBufferMaxCount),
		bc:        gnbuffer.New("bc", bcBufferMaxBytes, bcBufferMaxCount),
		cbf:       gnbuffer.NewCBF(cbfBufferMaxBytes, cbfBufferMaxCount),
		lsrv:      lsrv.New(0, 0),
		dcc:       dcc.New(),
		beacon:    forwarding.NewBeaconScheduler(now, rng),
		pseudonym: cfg.Pseudonym,
		btp:       &btp.Demux{},
		security:  cfg.Security,
		rng:       rng,
		metrics:   newMetrics(cfg.Registerer),
	}
}

// Address returns the router's current GN address, including its MAC half.
func (r *Router) Address() geonet.Address { return r.addr }

// SetPosition updates the router's own position, consulted by the greedy
// next-hop, CBF-timer and area-membership tests on every Ingress. Callers
// update it from whatever positioning source they have (GPS, a CAM
// generator) before or between Poll calls.
func (r *Router) SetPosition(pos geoarea.Position) { r.position = pos }

// RegisterSocket adds s to the BTP multiplex.
func (r *Router) RegisterSocket(s btp.Socket) { r.btp.Register(s) }

// NextSequence returns the next outgoing sequence number and advances the
// counter, wrapping modulo 2^16.
func (r *Router) NextSequence() geonet.SequenceNumber {
	s := r.seq
	r.seq++
	return s
}

// regenerateMAC produces a fresh MAC with the locally-administered bit set,
// used by duplicate-address detection and by the pseudonym scheduler.
func (r *Router) regenerateMAC() geonet.MAC {
	var mac geonet.MAC
	_, _ = crand.Read(mac[:])
	mac[0] |= 0x02  // locally administered
	mac[0] &^= 0x01 // unicast
	return mac
}

// ChangeMAC rewrites the router's own MAC, used by both duplicate-address
// detection and periodic pseudonym rotation. Subsequent egress in the same
// poll tick uses the new MAC.
func (r *Router) ChangeMAC(mac geonet.MAC) {
	r.addr = r.addr.WithMAC(mac)
}

// checkDAD implements duplicate-address detection: if the frame's
// link-layer source or the packet's GN source address equals our own MAC,
// we regenerate ours.
func (r *Router) checkDAD(l2Src, gnSrc geonet.MAC) {
	if l2Src != r.addr.MAC && gnSrc != r.addr.MAC {
		return
	}
	newMAC := r.regenerateMAC()
	log.WithField("old_mac", r.addr.MAC).WithField("new_mac", newMAC).Warn("router: duplicate address detected, regenerating MAC")
	r.ChangeMAC(newMAC)
	r.metrics.dadTriggered.Inc()
}

// Ingress processes one received Geonetworking frame, given the
// link-layer source MAC observed by the device.
func (r *Router) Ingress(now tai.Time, l2Src geonet.MAC, frame []byte) error {
	basic, err := geonet.DecodeBasicHeader(frame)
	if err != nil {
		r.metrics.ingressDropped.WithLabelValues("parse_error").Inc()
		return nil
	}
	if basic.Version != geonet.Version {
		r.metrics.ingressDropped.WithLabelValues("bad_version").Inc()
		return nil
	}
	rest := frame[geonet.BasicHeaderLen:]

	switch basic.NextHeader {
	case geonet.BasicNextSecuredHeader:
		if r.security == nil {
			r.metrics.ingressDropped.WithLabelValues("no_security_service").Inc()
			return nil
		}
		confirm, err := security.Ingress(r.security, rest, now, geoarea.Position{})
		if err != nil {
			r.metrics.ingressDropped.WithLabelValues("security").Inc()
			return nil
		}
		rest = confirm.Plaintext
	case geonet.BasicNextCommonHeader:
		// rest already points at the Common Header
	default:
		r.metrics.ingressDropped.WithLabelValues("unknown_next_header").Inc()
		return nil
	}

	common, err := geonet.DecodeCommonHeader(rest)
	if err != nil {
		r.metrics.ingressDropped.WithLabelValues("parse_error").Inc()
		return nil
	}
	if common.MaxHopLimit < basic.RemainingHopLimit {
		r.metrics.ingressDropped.WithLabelValues("malformed_hop_limit").Inc()
		return nil
	}
	extBody := rest[geonet.CommonHeaderLen:]

	lpv, seq, hasSeq, payloadOffset, err := decodeExtended(common, extBody)
	if err != nil {
		r.metrics.ingressDropped.WithLabelValues("parse_error").Inc()
		return nil
	}
	r.metrics.ingressTotal.WithLabelValues(headerTypeLabel(common.HeaderType)).Inc()

	r.checkDAD(l2Src, lpv.Address.MAC)

	if hasSeq {
		if dup, known := r.table.DuplicatePacketDetection(lpv.Address.MAC, seq); known && dup {
			r.suppressIfBetterPositioned(now, l2Src, common.HeaderType, lpv, seq)
			return nil
		}
	}

	r.table.UpdateMut(now, lpv, len(frame))
	if hasSeq {
		r.table.RecordSequence(lpv.Address.MAC, seq)
	}
	if e, ok := r.table.Find(lpv.Address.MAC); ok {
		e.IsNeighbour = true
	}
	r.metrics.locationTable.Set(float64(r.table.Len()))

	r.lsrv.Resolved(lpv.Address.MAC)
	flushTo := lpv.Address.MAC
	r.ls.MarkFlush(now, func(m gnbuffer.Meta) bool { return m.Destination == flushTo })
	r.uc.MarkFlush(now, func(m gnbuffer.Meta) bool { return m.Destination == flushTo })

	if basic.RemainingHopLimit == 0 {
		r.metrics.ingressDropped.WithLabelValues("hop_limit_exhausted").Inc()
		return nil
	}

	switch common.HeaderType {
	case geonet.HeaderTypeBeacon:
		// Beacon carries no payload; its purpose is the table update above.
		return nil

	case geonet.HeaderTypeTSB:
		payload := extBody[payloadOffset:]
		r.btp.DeliverGeonet(btp.Indication{Source: lpv, Payload: payload})
		if err := r.btp.Deliver(common.NextHeader, payload, btp.Indication{Source: lpv}); err != nil {
			return err
		}
		if common.SubType == geonet.SubTypeTSBMultiHop {
			r.scheduleAreaForward(now, basic, common, lpv, seq, extBody)
		}
		return nil

	case geonet.HeaderTypeGeoUnicast:
		h, derr := geonet.DecodeGeoUnicast(extBody)
		if derr != nil {
			r.metrics.ingressDropped.WithLabelValues("parse_error").Inc()
			return nil
		}
		if h.Destination.Address.MAC == r.addr.MAC {
			payload := extBody[payloadOffset:]
			r.btp.DeliverGeonet(btp.Indication{Source: lpv, Payload: payload})
			return r.btp.Deliver(common.NextHeader, payload, btp.Indication{Source: lpv})
		}
		r.forwardUnicast(now, basic, common, lpv, seq, h.Destination, extBody)
		return nil

	case geonet.HeaderTypeGeoBroadcast, geonet.HeaderTypeGeoAnycast:
		h, derr := geonet.DecodeGeoArea(extBody)
		if derr != nil {
			r.metrics.ingressDropped.WithLabelValues("parse_error").Inc()
			return nil
		}
		center := geoarea.Position{Lat: float64(h.Latitude) / 1e7, Lon: float64(h.Longitude) / 1e7}
		shape := decodeShape(common.SubType, h)
		if shape.Inside(center, r.position) {
			payload := extBody[payloadOffset:]
			r.btp.DeliverGeonet(btp.Indication{Source: lpv, Payload: payload})
			if err := r.btp.Deliver(common.NextHeader, payload, btp.Indication{Source: lpv}); err != nil {
				return err
			}
		}
		r.scheduleAreaForward(now, basic, common, lpv, seq, extBody)
		return nil

	case geonet.HeaderTypeLS:
		return nil
	default:
		return nil
	}
}

// neighborList snapshots the location table's neighbor-flagged entries into
// the shape forwarding's next-hop algorithms expect.
func (r *Router) neighborList() []forwarding.Neighbor {
	macs := r.table.NeighbourList()
	out := make([]forwarding.Neighbor, 0, len(macs))
	for _, mac := range macs {
		e, ok := r.table.Find(mac)
		if !ok {
			continue
		}
		out = append(out, forwarding.Neighbor{
			MAC:              mac,
			Position:         e.LPV.Position(),
			PositionAccurate: e.LPV.PositionAccurate,
		})
	}
	return out
}

// forwardUnicast selects a next hop for a GeoUnicast packet addressed
// elsewhere, using the router's configured Algorithm: greedy
// most-forward-within-range by default, or a contention timer when
// AlgorithmCBF is selected.
func (r *Router) forwardUnicast(now tai.Time, basic geonet.BasicHeader, common geonet.CommonHeader, senderLPV geonet.LongPositionVector, seq geonet.SequenceNumber, dest geonet.ShortPositionVector, extBody []byte) {
	basic.RemainingHopLimit--
	if basic.RemainingHopLimit == 0 {
		r.metrics.ingressDropped.WithLabelValues("hop_limit_exhausted").Inc()
		return
	}
	destPos := dest.Position()

	if r.algorithm == AlgorithmCBF {
		timer, ok := forwarding.NonAreaCBFTimer(senderLPV.Position(), r.position, destPos, senderLPV.PositionAccurate, true)
		if !ok {
			r.metrics.ingressDropped.WithLabelValues("no_progress").Inc()
			return
		}
		r.scheduleCBF(now, basic, common, senderLPV.Address.MAC, seq, timer, extBody)
		return
	}

	nextHop, ok := forwarding.GreedyNextHop(r.position, destPos, r.neighborList())
	if !ok {
		r.metrics.ingressDropped.WithLabelValues("no_forwarding_neighbor").Inc()
		return
	}
	payload := reencodeForward(basic, common, extBody)
	meta := gnbuffer.Meta{Basic: basic, Common: common, Destination: nextHop, ExpiresAt: now.Add(basic.Lifetime)}
	if err := r.uc.Enqueue(meta, payload, now); err != nil {
		r.metrics.bufferDropped.WithLabelValues("uc").Inc()
		return
	}
	r.uc.MarkFlush(now, func(m gnbuffer.Meta) bool { return m.Destination == nextHop })
}

// scheduleAreaForward schedules this router's own rebroadcast of a
// non-locally-terminated flood (TSB multi-hop) or area (GBC/GAC) packet,
// honoring the configured Algorithm: immediate rebroadcast for
// AlgorithmAreaSimple, a contention timer for AlgorithmAreaCBF and
// AlgorithmAreaAdvanced. Greedy/CBF are unicast-only policies and schedule
// no rebroadcast here.
func (r *Router) scheduleAreaForward(now tai.Time, basic geonet.BasicHeader, common geonet.CommonHeader, senderLPV geonet.LongPositionVector, seq geonet.SequenceNumber, extBody []byte) {
	basic.RemainingHopLimit--
	if basic.RemainingHopLimit == 0 {
		r.metrics.ingressDropped.WithLabelValues("hop_limit_exhausted").Inc()
		return
	}
	switch r.algorithm {
	case AlgorithmAreaSimple:
		payload := reencodeForward(basic, common, extBody)
		meta := gnbuffer.Meta{Basic: basic, Common: common, ExpiresAt: now.Add(basic.Lifetime)}
		if err := r.bc.Enqueue(meta, payload, now); err != nil {
			r.metrics.bufferDropped.WithLabelValues("bc").Inc()
			return
		}
		r.bc.MarkFlush(now, func(gnbuffer.Meta) bool { return true })
	case AlgorithmAreaCBF, AlgorithmAreaAdvanced:
		timer := forwarding.AreaCBFTimer(senderLPV.Position(), r.position)
		r.scheduleCBF(now, basic, common, senderLPV.Address.MAC, seq, timer, extBody)
	}
}

// scheduleCBF buffers payload for contention-based rebroadcast under a CBFID
// derived from the packet's originating station and sequence number, which
// stay constant across hops.
func (r *Router) scheduleCBF(now tai.Time, basic geonet.BasicHeader, common geonet.CommonHeader, origin geonet.MAC, seq geonet.SequenceNumber, timer time.Duration, extBody []byte) {
	payload := reencodeForward(basic, common, extBody)
	meta := gnbuffer.Meta{Basic: basic, Common: common, ExpiresAt: now.Add(timer)}
	cbfID := gnbuffer.CBFID{Source: origin, Sequence: seq}
	if err := r.cbf.Enqueue(meta, payload, cbfID, timer, now, origin); err != nil {
		log.WithError(err).Debug("router: cbf enqueue failed")
	}
}

// suppressIfBetterPositioned implements the area-advanced duplicate test: an
// overheard retransmission of a packet we have buffered for our own
// rebroadcast cancels our copy if the retransmitting neighbor (l2Src) covers
// the area better than we do. Otherwise our copy's CBFCounter is incremented
// and its timer restarted from now, and the copy is discarded once the
// counter reaches forwarding.MaxRetransmit.
func (r *Router) suppressIfBetterPositioned(now tai.Time, l2Src geonet.MAC, headerType geonet.HeaderType, lpv geonet.LongPositionVector, seq geonet.SequenceNumber) {
	if r.algorithm != AlgorithmAreaAdvanced {
		return
	}
	switch headerType {
	case geonet.HeaderTypeGeoBroadcast, geonet.HeaderTypeGeoAnycast, geonet.HeaderTypeTSB:
	default:
		return
	}
	forwarder, ok := r.table.Find(l2Src)
	if !ok {
		return
	}
	cbfID := gnbuffer.CBFID{Source: lpv.Address.MAC, Sequence: seq}
	r.cbf.PopIf(cbfID, func(e *gnbuffer.CBFEntry) bool {
		var senderPos geoarea.Position
		if se, ok := r.table.Find(e.SenderMAC); ok {
			senderPos = se.LPV.Position()
		}
		if forwarding.AdvancedAreaBetterPositioned(senderPos, r.position, forwarder.LPV.Position()) {
			return false
		}
		e.CBFCounter++
		e.ExpiresAt = now.Add(forwarding.AreaCBFTimer(senderPos, r.position))
		e.Meta.ExpiresAt = e.ExpiresAt
		return e.CBFCounter < forwarding.MaxRetransmit
	})
}

// reencodeForward re-serializes a received frame for onward transmission.
// basic.RemainingHopLimit must already reflect this hop's decrement; callers
// decide whether to forward at all based on that decremented value before
// calling here.
func reencodeForward(basic geonet.BasicHeader, common geonet.CommonHeader, extBody []byte) []byte {
	frame := make([]byte, geonet.BasicHeaderLen+geonet.CommonHeaderLen+len(extBody))
	_ = basic.Encode(frame[0:geonet.BasicHeaderLen])
	_ = common.Encode(frame[geonet.BasicHeaderLen : geonet.BasicHeaderLen+geonet.CommonHeaderLen])
	copy(frame[geonet.BasicHeaderLen+geonet.CommonHeaderLen:], extBody)
	return frame
}

// decodeShape builds the geoarea.Shape matching a GeoArea extended header's
// Common Header SubType.
func decodeShape(sub geonet.SubType, h geonet.GeoArea) geoarea.Shape {
	switch sub {
	case geonet.SubTypeRectangle:
		return geoarea.Rectangle{A: h.DistanceA, B: h.DistanceB, AngleDeg: h.Angle}
	case geonet.SubTypeEllipse:
		return geoarea.Ellipse{A: h.DistanceA, B: h.DistanceB, AngleDeg: h.Angle}
	default:
		return geoarea.Circle{Radius: h.DistanceA}
	}
}

func headerTypeLabel(t geonet.HeaderType) string {
	switch t {
	case geonet.HeaderTypeBeacon:
		return "beacon"
	case geonet.HeaderTypeGeoUnicast:
		return "geo_unicast"
	case geonet.HeaderTypeGeoAnycast:
		return "geo_anycast"
	case geonet.HeaderTypeGeoBroadcast:
		return "geo_broadcast"
	case geonet.HeaderTypeTSB:
		return "tsb"
	case geonet.HeaderTypeLS:
		return "ls"
	default:
		return "unknown"
	}
}

// decodeExtended parses the extended header matching common's (HeaderType,
// SubType) and returns the sender's LPV, its sequence number (if the
// variant carries one), and the byte offset of the payload that follows
// it.
func decodeExtended(common geonet.CommonHeader, b []byte) (lpv geonet.LongPositionVector, seq geonet.SequenceNumber, hasSeq bool, payloadOffset int, err error) {
	switch common.HeaderType {
	case geonet.HeaderTypeBeacon:
		h, e := geonet.DecodeBeacon(b)
		return h.LPV, 0, false, h.Len(), e
	case geonet.HeaderTypeGeoUnicast:
		h, e := geonet.DecodeGeoUnicast(b)
		return h.LPV, h.Sequence, true, h.Len(), e
	case geonet.HeaderTypeTSB:
		if common.SubType == geonet.SubTypeTSBSingleHop {
			h, e := geonet.DecodeTSBSingleHop(b)
			return h.LPV, 0, false, h.Len(), e
		}
		h, e := geonet.DecodeTSBMultiHop(b)
		return h.LPV, h.Sequence, true, h.Len(), e
	case geonet.HeaderTypeGeoAnycast, geonet.HeaderTypeGeoBroadcast:
		h, e := geonet.DecodeGeoArea(b)
		return h.LPV, h.Sequence, true, h.Len(), e
	case geonet.HeaderTypeLS:
		if common.SubType == geonet.SubTypeLSRequest {
			h, e := geonet.DecodeLSRequest(b)
			return h.LPV, h.Sequence, true, h.Len(), e
		}
		h, e := geonet.DecodeLSReply(b)
		return h.LPV, h.Sequence, true, h.Len(), e
	default:
		return geonet.LongPositionVector{}, 0, false, 0, geonet.ErrMalformed
	}
}

// PollAt returns the earliest deadline among congestion control, the beacon
// scheduler, the location-service dispatcher and the packet buffers, so the
// caller knows when to next invoke Poll.
func (r *Router) PollAt() tai.Time {
	earliest := r.beacon.PollAt()
	consider := func(t tai.Time, ok bool) {
		if ok && earliest.NewerThan(t) {
			earliest = t
		}
	}
	consider(r.dcc.PollAt())
	consider(r.lsrv.PollAt())
	consider(r.ls.PollAt())
	consider(r.uc.PollAt())
	consider(r.bc.PollAt())
	consider(r.cbf.PollAt())
	return earliest
}

// Poll drains all available ingress frames, then runs the location service
// dispatcher, then egresses each packet buffer in the fixed order LS, UC, BC,
// CBF, the congestion controller's own deferred queues, and finally the
// beacon scheduler. Of the dispatcher's events only failures are acted on
// (the destination's LS/UC packets and location-table entry are dropped);
// no LS_REQUEST packet is transmitted. It returns true if any work was done
// this tick.
func (r *Router) Poll(now tai.Time, device Device) bool {
	didWork := false
	r.dcc.SampleCBR(device.ChannelBusyRatio())

	for {
		rx, _, ok := device.Receive(now)
		if !ok {
			break
		}
		didWork = true
		_ = rx.Consume(func(frame []byte) error {
			return r.Ingress(now, r.addr.MAC, frame)
		})
	}

	for _, ev := range r.lsrv.Dispatch(now) {
		didWork = true
		if ev.Failed {
			addr := ev.Address
			r.ls.DropWith(func(m gnbuffer.Meta) bool { return m.Destination == addr })
			r.uc.DropWith(func(m gnbuffer.Meta) bool { return m.Destination == addr })
			r.table.Remove(addr)
		}
	}

	r.drainBuffer(r.ls, device, now, &didWork)
	r.drainBuffer(r.uc, device, now, &didWork)
	r.drainBuffer(r.bc, device, now, &didWork)
	r.drainCBF(device, now, &didWork)
	r.drainDCC(device, now, &didWork)

	if r.beacon.Due(now) {
		r.emitBeacon(now, device)
		r.metrics.beaconsSent.Inc()
		didWork = true
	}

	if r.pseudonym != nil && r.pseudonym.Due(now) {
		r.ChangeMAC(r.regenerateMAC())
	}

	return didWork
}

// dispatchEgress runs payload through the DCC gate before it ever reaches
// the device: an ImmediateTx outcome transmits now and reports the
// transmission back to the controller, an Enqueued outcome leaves the
// controller holding the payload for a later drainDCC call.
func (r *Router) dispatchEgress(device Device, now tai.Time, tcID uint8, dest geonet.MAC, payload []byte, didWork *bool) error {
	ac := dcc.AccessCategoryFor(tcID)
	outcome, err := r.dcc.Dispatch(ac, payload, dest, now)
	if outcome == dcc.Enqueued {
		*didWork = true
		return err
	}
	tx, ok := device.Transmit(now)
	if !ok {
		return err
	}
	*didWork = true
	txErr := tx.Consume(len(payload), func(frame []byte) error {
		copy(frame, payload)
		return nil
	})
	r.dcc.NotifyTx(ac, now, 0)
	if txErr != nil {
		return txErr
	}
	return err
}

func (r *Router) drainBuffer(buf *gnbuffer.PacketBuffer, device Device, now tai.Time, didWork *bool) {
	for {
		flushed, err := buf.FlushOne(func(meta gnbuffer.Meta, payload []byte) error {
			return r.dispatchEgress(device, now, meta.Common.TrafficClass.ID, meta.Destination, payload, didWork)
		})
		if err != nil {
			log.WithError(err).Debug("router: buffer flush transmit failed")
		}
		if !flushed {
			return
		}
	}
}

func (r *Router) drainCBF(device Device, now tai.Time, didWork *bool) {
	r.cbf.DequeueExpired(now, func(meta gnbuffer.Meta, payload []byte) error {
		return r.dispatchEgress(device, now, meta.Common.TrafficClass.ID, meta.Destination, payload, didWork)
	})
}

// drainDCC flushes payloads the congestion controller queued internally
// during an earlier dispatchEgress call, once their access category's
// eligible slot arrives.
func (r *Router) drainDCC(device Device, now tai.Time, didWork *bool) {
	r.dcc.DrainEligible(now, func(ac dcc.AccessCategory, p dcc.QueuedPacket) error {
		tx, ok := device.Transmit(now)
		if !ok {
			return nil
		}
		*didWork = true
		err := tx.Consume(len(p.Payload), func(frame []byte) error {
			copy(frame, p.Payload)
			return nil
		})
		r.dcc.NotifyTx(ac, now, 0)
		return err
	})
}

func (r *Router) emitBeacon(now tai.Time, device Device) {
	lpv := geonet.LongPositionVector{Address: r.addr, Timestamp: now}
	beacon := geonet.Beacon{LPV: lpv}
	common := geonet.CommonHeader{
		NextHeader:  geonet.CommonNextAny,
		HeaderType:  geonet.HeaderTypeBeacon,
		MaxHopLimit: 1,
	}
	basic := geonet.BasicHeader{
		Version:           geonet.Version,
		NextHeader:        geonet.BasicNextCommonHeader,
		Lifetime:          DefaultPacketLifetime,
		RemainingHopLimit: 1,
	}
	length := geonet.BasicHeaderLen + geonet.CommonHeaderLen + beacon.Len()
	payload := make([]byte, length)
	if err := basic.Encode(payload[0:geonet.BasicHeaderLen]); err != nil {
		return
	}
	if err := common.Encode(payload[geonet.BasicHeaderLen : geonet.BasicHeaderLen+geonet.CommonHeaderLen]); err != nil {
		return
	}
	if err := beacon.Encode(payload[geonet.BasicHeaderLen+geonet.CommonHeaderLen:]); err != nil {
		return
	}
	didWork := false
	_ = r.dispatchEgress(device, now, common.TrafficClass.ID, geonet.MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, payload, &didWork)
	r.beacon.DeferOnTransmit(now)
}
