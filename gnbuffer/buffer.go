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

// Package gnbuffer implements the four bounded packet stores the router
// uses while a packet awaits location-service resolution or neighbor
// presence: location-service (LS), unicast forwarding (UC), broadcast
// forwarding (BC), and contention-based forwarding (CBF). The first three
// share the PacketBuffer type; CBF is specialized (buffer.go / cbf.go).
package gnbuffer

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/kurkpitaine/veloce-sub002/geonet"
	"github.com/kurkpitaine/veloce-sub002/tai"
)

// ErrFull is returned by Enqueue when the buffer is at its byte or count
// bound: tail-drop on the LS/UC/BC buffers, the caller is told but the poll
// loop is not failed.
var ErrFull = errors.New("gnbuffer: full")

// Meta is the parsed-header bookkeeping kept alongside a buffered payload.
// The payload itself is owned (copied) once deferral is decided; Meta never
// borrows from the receive buffer.
type Meta struct {
	Basic        geonet.BasicHeader
	Common       geonet.CommonHeader
	Destination  geonet.MAC // resolved next hop, or the MAC an LS entry is waiting on
	ExpiresAt    tai.Time
	IsOriginator bool // true if this router sourced the packet
}

type entry struct {
	meta    Meta
	payload []byte
	flush   bool
}

// PacketBuffer is the shared implementation behind the LS, UC and BC
// buffers: bounded by total payload bytes and by entry count, FIFO within
// the flush-tagged subset.
type PacketBuffer struct {
	name     string
	entries  []*entry
	maxBytes int
	maxCount int
	curBytes int
}

// New creates a PacketBuffer bounded at maxBytes total payload bytes and
// maxCount entries. name is used only for log context.
func New(name string, maxBytes, maxCount int) *PacketBuffer {
	return &PacketBuffer{name: name, maxBytes: maxBytes, maxCount: maxCount}
}

// Enqueue stores payload (copied) with its meta. Returns ErrFull if the
// buffer is at capacity; the oldest entries are never evicted to make room
// here (tail-drop) — that is reserved for CBF.
func (b *PacketBuffer) Enqueue(meta Meta, payload []byte, now tai.Time) error {
	if len(b.entries) >= b.maxCount || b.curBytes+len(payload) > b.maxBytes {
		log.WithFields(log.Fields{"buffer": b.name, "len": len(b.entries), "bytes": b.curBytes}).
			Debug("packet buffer full, dropping")
		return ErrFull
	}
	owned := make([]byte, len(payload))
	copy(owned, payload)
	b.entries = append(b.entries, &entry{meta: meta, payload: owned})
	b.curBytes += len(owned)
	return nil
}

// MarkFlush tags every entry matching predicate for the next drain. Used
// when an LS resolves or a neighbor appears.
func (b *PacketBuffer) MarkFlush(now tai.Time, predicate func(Meta) bool) {
	for _, e := range b.entries {
		if predicate(e.meta) {
			e.flush = true
		}
	}
}

// FlushOne emits and removes the oldest flush-tagged entry, if any. emit is
// called with the entry's meta and owned payload; its return value is
// propagated. FlushOne returns (false, nil) when nothing is tagged.
func (b *PacketBuffer) FlushOne(emit func(Meta, []byte) error) (bool, error) {
	for i, e := range b.entries {
		if !e.flush {
			continue
		}
		err := emit(e.meta, e.payload)
		b.remove(i)
		return true, err
	}
	return false, nil
}

// DropWith removes every entry matching predicate without emitting it, used
// e.g. when a location-service request fails.
func (b *PacketBuffer) DropWith(predicate func(Meta) bool) {
	kept := b.entries[:0]
	for _, e := range b.entries {
		if predicate(e.meta) {
			b.curBytes -= len(e.payload)
			continue
		}
		kept = append(kept, e)
	}
	b.entries = kept
}

// PollAt returns the expiry of the earliest entry, if any.
func (b *PacketBuffer) PollAt() (tai.Time, bool) {
	if len(b.entries) == 0 {
		return 0, false
	}
	earliest := b.entries[0].meta.ExpiresAt
	for _, e := range b.entries[1:] {
		if earliest.NewerThan(e.meta.ExpiresAt) {
			earliest = e.meta.ExpiresAt
		}
	}
	return earliest, true
}

// Len returns the number of buffered entries.
func (b *PacketBuffer) Len() int { return len(b.entries) }

func (b *PacketBuffer) remove(i int) {
	b.curBytes -= len(b.entries[i].payload)
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
}
