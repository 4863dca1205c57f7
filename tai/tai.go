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

// Package tai implements the TAI2004 timestamp used by the Geonetworking
// wire formats: milliseconds since 2004-01-01T00:00:00Z, truncated to a
// wrapping uint32 (wraps roughly every 49.7 days).
package tai

import "time"

// Epoch is the TAI2004 reference instant.
var Epoch = time.Date(2004, time.January, 1, 0, 0, 0, 0, time.UTC)

// Time is a wrapping millisecond timestamp since Epoch.
type Time uint32

// Now returns the current instant as a Time.
func Now() Time {
	return FromTime(time.Now())
}

// FromTime converts a time.Time to a wrapping TAI2004 Time.
func FromTime(t time.Time) Time {
	ms := t.Sub(Epoch).Milliseconds()
	return Time(uint32(ms))
}

// Time converts back to a wall-clock time.Time, taking the instant nearest
// to `near` within the 2^32ms wrap window. Used only for display/debugging;
// router logic never needs to leave the wrapping domain.
func (t Time) Time(near time.Time) time.Time {
	base := FromTime(near)
	delta := int64(int32(uint32(t) - uint32(base)))
	return near.Add(time.Duration(delta) * time.Millisecond)
}

// NewerThan reports whether t is strictly newer than other using 2^31
// modular comparison, tolerant to uint32 wraparound:
//
//	b newer than a  <=>  ((b - a) mod 2^32) < 2^31 && b != a
func (t Time) NewerThan(other Time) bool {
	if t == other {
		return false
	}
	diff := uint32(t) - uint32(other)
	return diff < 1<<31
}

// Since returns the signed millisecond duration since other, correct across
// one wrap (i.e. assumes the two timestamps are within ~24.8 days of
// each other).
func (t Time) Since(other Time) time.Duration {
	diff := int32(uint32(t) - uint32(other))
	return time.Duration(diff) * time.Millisecond
}

// Add returns t advanced by d (may wrap).
func (t Time) Add(d time.Duration) Time {
	return Time(uint32(t) + uint32(d.Milliseconds()))
}
