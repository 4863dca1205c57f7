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

package gnbuffer

import (
	"time"

	"github.com/cespare/xxhash/v2"
	log "github.com/sirupsen/logrus"

	"github.com/kurkpitaine/veloce-sub002/geonet"
	"github.com/kurkpitaine/veloce-sub002/tai"
)

// CBFID identifies an in-flight contention-based forward: it is unique per
// in-flight broadcast/anycast.
type CBFID struct {
	Source   geonet.MAC
	Sequence geonet.SequenceNumber
}

func (id CBFID) hash() uint64 {
	var b [8]byte
	copy(b[:6], id.Source[:])
	b[6] = byte(id.Sequence >> 8)
	b[7] = byte(id.Sequence)
	return xxhash.Sum64(b[:])
}

// CBFEntry is the mutable state of one contention-buffer slot, exposed so
// the advanced-area algorithm can adjust it in place via PopIf.
type CBFEntry struct {
	Meta       Meta
	Payload    []byte
	SenderMAC  geonet.MAC
	ExpiresAt  tai.Time
	CBFCounter int
}

type cbfSlot struct {
	id    CBFID
	entry *CBFEntry
}

// CBFBuffer is the specialized contention-based-forwarding buffer: entries
// are keyed by CBFID rather than FIFO order, since a duplicate reception may
// need to suppress (Remove) or adjust (PopIf) an arbitrary slot.
type CBFBuffer struct {
	slots    map[uint64]*cbfSlot
	maxBytes int
	maxCount int
	curBytes int
}

// NewCBF creates a CBFBuffer bounded at maxBytes total payload bytes and
// maxCount entries.
func NewCBF(maxBytes, maxCount int) *CBFBuffer {
	return &CBFBuffer{slots: make(map[uint64]*cbfSlot), maxBytes: maxBytes, maxCount: maxCount}
}

// Enqueue buffers payload under cbfID with a rebroadcast timer firing at
// now+timer. If the buffer is full, the entry with the soonest expiry is
// evicted to make room (soonest-expiry-wins), rather than tail-dropping the
// newcomer.
func (b *CBFBuffer) Enqueue(meta Meta, payload []byte, cbfID CBFID, timer time.Duration, now tai.Time, senderMAC geonet.MAC) error {
	key := cbfID.hash()
	if _, exists := b.slots[key]; exists {
		return nil // unique per in-flight broadcast; ignore re-enqueue
	}
	for len(b.slots) >= b.maxCount || b.curBytes+len(payload) > b.maxBytes {
		if !b.evictSoonest() {
			break
		}
	}
	owned := make([]byte, len(payload))
	copy(owned, payload)
	meta.ExpiresAt = now.Add(timer)
	b.slots[key] = &cbfSlot{
		id: cbfID,
		entry: &CBFEntry{
			Meta:      meta,
			Payload:   owned,
			SenderMAC: senderMAC,
			ExpiresAt: now.Add(timer),
		},
	}
	b.curBytes += len(owned)
	return nil
}

// Remove suppresses cbfID (a duplicate from a further-along forwarder was
// overheard) and reports whether an entry existed.
func (b *CBFBuffer) Remove(cbfID CBFID) bool {
	key := cbfID.hash()
	s, ok := b.slots[key]
	if !ok {
		return false
	}
	b.curBytes -= len(s.entry.Payload)
	delete(b.slots, key)
	return true
}

// PopIf looks up cbfID and, if present, calls predicate with the mutable
// entry. If predicate returns false, the entry is discarded (removed
// without emission) — used by the advanced-area algorithm to either let a
// better-positioned forwarder take over or bump cbf_counter/cbf_expires_at.
// PopIf reports whether an entry existed.
func (b *CBFBuffer) PopIf(cbfID CBFID, predicate func(*CBFEntry) bool) bool {
	key := cbfID.hash()
	s, ok := b.slots[key]
	if !ok {
		return false
	}
	if !predicate(s.entry) {
		b.curBytes -= len(s.entry.Payload)
		delete(b.slots, key)
	}
	return true
}

// DequeueExpired fires the timer of every entry whose ExpiresAt has passed,
// calling emit and removing it.
func (b *CBFBuffer) DequeueExpired(now tai.Time, emit func(Meta, []byte) error) {
	for key, s := range b.slots {
		if now.NewerThan(s.entry.ExpiresAt) || now == s.entry.ExpiresAt {
			if err := emit(s.entry.Meta, s.entry.Payload); err != nil {
				log.WithError(err).Debug("cbf dequeue emit failed")
			}
			b.curBytes -= len(s.entry.Payload)
			delete(b.slots, key)
		}
	}
}

// PollAt returns the expiry of the soonest-firing entry, if any.
func (b *CBFBuffer) PollAt() (tai.Time, bool) {
	var earliest tai.Time
	first := true
	for _, s := range b.slots {
		if first || earliest.NewerThan(s.entry.ExpiresAt) {
			earliest = s.entry.ExpiresAt
			first = false
		}
	}
	return earliest, !first
}

// Len returns the number of buffered entries.
func (b *CBFBuffer) Len() int { return len(b.slots) }

func (b *CBFBuffer) evictSoonest() bool {
	var key uint64
	var soonest tai.Time
	found := false
	for k, s := range b.slots {
		if !found || soonest.NewerThan(s.entry.ExpiresAt) {
			key = k
			soonest = s.entry.ExpiresAt
			found = true
		}
	}
	if !found {
		return false
	}
	b.curBytes -= len(b.slots[key].entry.Payload)
	delete(b.slots, key)
	return true
}
