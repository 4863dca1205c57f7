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

package lsrv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kurkpitaine/veloce-sub002/geonet"
	"github.com/kurkpitaine/veloce-sub002/tai"
)

func TestDispatchRetransmitsThenFails(t *testing.T) {
	s := New(10*time.Millisecond, 2)
	addr := geonet.MAC{1, 2, 3, 4, 5, 6}
	h := s.Request(addr, 0)

	events := s.Dispatch(tai.Time(0))
	require.Len(t, events, 1)
	require.Equal(t, h, events[0].Handle)
	require.False(t, events[0].Failed)

	events = s.Dispatch(tai.Time(10))
	require.Len(t, events, 1)
	require.False(t, events[0].Failed)

	events = s.Dispatch(tai.Time(20))
	require.Len(t, events, 1)
	require.True(t, events[0].Failed)
	require.Equal(t, 0, s.Len())
}

func TestResolvedClearsPending(t *testing.T) {
	s := New(0, 0)
	addr := geonet.MAC{9}
	s.Request(addr, 0)
	require.Equal(t, 1, s.Len())
	s.Resolved(addr)
	require.Equal(t, 0, s.Len())
}
