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

package table

import (
	"container/ring"

	"github.com/kurkpitaine/veloce-sub002/geonet"
)

// dupWindowSize is the number of most-recent sequence numbers remembered per
// neighbor for duplicate-packet detection.
const dupWindowSize = 8

// duplicateWindow is a fixed-size, wrap-aware ring of the most recently seen
// sequence numbers from a single source.
type duplicateWindow struct {
	r     *ring.Ring
	count int
}

func newDuplicateWindow() *duplicateWindow {
	return &duplicateWindow{r: ring.New(dupWindowSize)}
}

// seen reports whether seq is already present in the window.
func (w *duplicateWindow) seen(seq geonet.SequenceNumber) bool {
	found := false
	w.r.Do(func(v any) {
		if v == nil {
			return
		}
		if v.(geonet.SequenceNumber) == seq {
			found = true
		}
	})
	return found
}

// insert records seq as seen, evicting the oldest entry if the window is
// full.
func (w *duplicateWindow) insert(seq geonet.SequenceNumber) {
	w.r.Value = seq
	w.r = w.r.Next()
	if w.count < dupWindowSize {
		w.count++
	}
}
