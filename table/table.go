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

// Package table implements the Geonetworking location table: a MAC-keyed
// map of per-neighbor state (position vector, neighbor flag, PDR,
// duplicate-packet window, pending location-service handle).
package table

import (
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"

	"github.com/kurkpitaine/veloce-sub002/geonet"
	"github.com/kurkpitaine/veloce-sub002/tai"
)

// DefaultMaxEntries bounds the table's size under memory pressure; entries
// beyond this bound are evicted least-recently-used.
const DefaultMaxEntries = 1024

// Table is the router's location table. It is not safe for concurrent use;
// the router owns it exclusively and calls it only from its single poll
// loop.
type Table struct {
	entries    map[geonet.MAC]*Entry
	maxEntries int
}

// New creates a Table bounded at maxEntries; pass 0 for DefaultMaxEntries.
func New(maxEntries int) *Table {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Table{
		entries:    make(map[geonet.MAC]*Entry),
		maxEntries: maxEntries,
	}
}

// UpdateMut upserts the entry for lpv.Address.MAC. If the incoming
// timestamp is not newer than the stored one, the stored LPV is kept
// (freshness wins); otherwise the entry's LPV is replaced. In both cases
// the PDR is refreshed with packetSize bytes.
func (t *Table) UpdateMut(now tai.Time, lpv geonet.LongPositionVector, packetSize int) *Entry {
	mac := lpv.Address.MAC
	e, ok := t.entries[mac]
	if !ok {
		e = newEntry(now, lpv)
		t.evictIfFull()
		t.entries[mac] = e
		e.refreshPDR(now, packetSize)
		return e
	}
	if lpv.Timestamp.NewerThan(e.LPV.Timestamp) {
		e.LPV = lpv
	}
	e.refreshPDR(now, packetSize)
	e.LastUpdate = now
	return e
}

// UpdateIf conditionally merges a destination SPV into the entry for
// spv.Address.MAC, used when forwarding to avoid overwriting accurate
// neighbor data with stale destination-position-vector copies. predicate
// receives the existing entry (nil if unknown) and
// returns whether the merge should proceed; on proceed, only the position
// fields are updated, kinematics and neighbor state are untouched.
func (t *Table) UpdateIf(now tai.Time, spv geonet.ShortPositionVector, predicate func(*Entry) bool) *Entry {
	mac := spv.Address.MAC
	e, ok := t.entries[mac]
	if !ok {
		if !predicate(nil) {
			return nil
		}
		e = newEntry(now, geonet.LongPositionVector{
			Address:   spv.Address,
			Timestamp: spv.Timestamp,
			Latitude:  spv.Latitude,
			Longitude: spv.Longitude,
		})
		t.evictIfFull()
		t.entries[mac] = e
		return e
	}
	if !predicate(e) {
		return e
	}
	if spv.Timestamp.NewerThan(e.LPV.Timestamp) {
		e.LPV.Timestamp = spv.Timestamp
		e.LPV.Latitude = spv.Latitude
		e.LPV.Longitude = spv.Longitude
	}
	return e
}

// DuplicatePacketDetection reports whether (source, seqnum) has already been
// seen. ok is false if source is unknown to the table (the caller should
// treat the packet as not-a-duplicate but cannot record it); when ok is true
// and dup is false, the caller must record the pair via RecordSequence.
func (t *Table) DuplicatePacketDetection(source geonet.MAC, seqnum geonet.SequenceNumber) (dup bool, ok bool) {
	e, found := t.entries[source]
	if !found {
		return false, false
	}
	return e.dup.seen(seqnum), true
}

// RecordSequence writes seqnum into source's duplicate-packet window. It is
// a no-op if source is unknown.
func (t *Table) RecordSequence(source geonet.MAC, seqnum geonet.SequenceNumber) {
	if e, ok := t.entries[source]; ok {
		e.dup.insert(seqnum)
	}
}

// NeighbourList returns the MAC addresses currently flagged as neighbors.
func (t *Table) NeighbourList() []geonet.MAC {
	macs := maps.Keys(t.entries)
	out := make([]geonet.MAC, 0, len(macs))
	for _, mac := range macs {
		if t.entries[mac].IsNeighbour {
			out = append(out, mac)
		}
	}
	return out
}

// HasNeighbour reports whether any entry is flagged as a neighbor.
func (t *Table) HasNeighbour() bool {
	for _, e := range t.entries {
		if e.IsNeighbour {
			return true
		}
	}
	return false
}

// Find returns the entry for mac, if any.
func (t *Table) Find(mac geonet.MAC) (*Entry, bool) {
	e, ok := t.entries[mac]
	return e, ok
}

// Remove deletes the entry for mac, if present.
func (t *Table) Remove(mac geonet.MAC) {
	delete(t.entries, mac)
}

// Clear empties the table.
func (t *Table) Clear() {
	t.entries = make(map[geonet.MAC]*Entry)
}

// Len returns the number of entries currently held.
func (t *Table) Len() int {
	return len(t.entries)
}

// evictIfFull drops the least-recently-updated entry when inserting a new
// one would exceed maxEntries. ETSI only mandates removal on LS-request
// failure, which callers perform explicitly via Remove; LRU eviction is
// this module's policy for the otherwise-unspecified capacity case.
func (t *Table) evictIfFull() {
	if len(t.entries) < t.maxEntries {
		return
	}
	var oldestMAC geonet.MAC
	var oldestTS tai.Time
	first := true
	for mac, e := range t.entries {
		if first || oldestTS.NewerThan(e.LastUpdate) {
			oldestMAC = mac
			oldestTS = e.LastUpdate
			first = false
		}
	}
	if !first {
		log.WithField("mac", oldestMAC).Debug("location table full, evicting oldest entry")
		delete(t.entries, oldestMAC)
	}
}
