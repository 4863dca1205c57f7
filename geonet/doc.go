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

// Package geonet implements the wire formats of ETSI EN 302 636-4-1 / TS 103
// 836-4-1: the GN Address, Long/Short Position Vectors, the Basic and Common
// headers, and the eight Extended header variants. Every type here is a
// plain-data repr; parsing never allocates beyond the repr itself and
// encoding writes directly into a caller-owned buffer.
package geonet

import "errors"

// ErrTruncated is returned when a buffer is shorter than the header it is
// asked to represent.
var ErrTruncated = errors.New("geonet: truncated")

// ErrMalformed is returned for an out-of-range scalar or an invalid
// header-type/sub-type combination. DecodeBasicHeader does not check the
// version field; the router drops versions other than Version itself.
var ErrMalformed = errors.New("geonet: malformed")
