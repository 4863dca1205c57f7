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

package forwarding

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kurkpitaine/veloce-sub002/geoarea"
	"github.com/kurkpitaine/veloce-sub002/geonet"
	"github.com/kurkpitaine/veloce-sub002/tai"
)

// TestGreedySelectionScenarioS2 checks next-hop selection among multiple
// candidates: ego, dest 60m away, neighbor A 50m from dest, neighbor B 20m
// from dest, all laid out on the same bearing from ego so the distances
// are unambiguous.
func TestGreedySelectionScenarioS2(t *testing.T) {
	ego := geoarea.Position{Lat: 48.0, Lon: -3.0}
	dest := geoarea.Position{Lat: 48.0, Lon: -2.9991946}
	a := geoarea.Position{Lat: 48.0, Lon: -2.9998658} // 10m from ego, 50m from dest
	b := geoarea.Position{Lat: 48.0, Lon: -2.9994631} // 40m from ego, 20m from dest

	require.InDelta(t, 60, ego.DistanceTo(dest), 1)
	require.InDelta(t, 50, a.DistanceTo(dest), 1)
	require.InDelta(t, 20, b.DistanceTo(dest), 1)

	neighbors := []Neighbor{
		{MAC: geonet.MAC{0xA}, Position: a, PositionAccurate: true},
		{MAC: geonet.MAC{0xB}, Position: b, PositionAccurate: true},
	}

	mac, ok := GreedyNextHop(ego, dest, neighbors)
	require.True(t, ok)
	require.Equal(t, geonet.MAC{0xB}, mac)
}

func TestGreedyNoImprovementReturnsFalse(t *testing.T) {
	ego := geoarea.Position{Lat: 48.0, Lon: -3.0}
	dest := geoarea.Position{Lat: 48.0001, Lon: -3.0}
	far := geoarea.Position{Lat: 49.0, Lon: -3.0}
	neighbors := []Neighbor{{MAC: geonet.MAC{1}, Position: far, PositionAccurate: true}}

	_, ok := GreedyNextHop(ego, dest, neighbors)
	require.False(t, ok)
}

func TestNonAreaCBFTimerMonotonicity(t *testing.T) {
	// sender 900m south of dest, ego1 700m south (progress 200m), ego2
	// 300m south (progress 600m): both within R_max so the clamp is not
	// saturated at either end.
	dest := geoarea.Position{Lat: 48.0, Lon: -3.5}
	sender := geoarea.Position{Lat: 47.9919153, Lon: -3.5}
	ego1 := geoarea.Position{Lat: 47.9937119, Lon: -3.5}
	ego2 := geoarea.Position{Lat: 47.9973051, Lon: -3.5}

	t1, ok1 := NonAreaCBFTimer(sender, ego1, dest, true, true)
	require.True(t, ok1)
	t2, ok2 := NonAreaCBFTimer(sender, ego2, dest, true, true)
	require.True(t, ok2)

	// progress1 (200m) < progress2 (600m) => T_cbf(progress1) >= T_cbf(progress2) >= T_min
	require.GreaterOrEqual(t, t1, t2)
	require.Greater(t, t1, t2)
	require.GreaterOrEqual(t, t2, NonAreaCBFMinTime)
}

func TestNonAreaCBFNoProgressMeansDoNothing(t *testing.T) {
	dest := geoarea.Position{Lat: 48.0, Lon: -3.5}
	sender := geoarea.Position{Lat: 48.1, Lon: -3.5}
	ego := geoarea.Position{Lat: 48.2, Lon: -3.5} // farther from dest than sender

	_, ok := NonAreaCBFTimer(sender, ego, dest, true, true)
	require.False(t, ok)
}

func TestAdvancedAreaBetterPositioned(t *testing.T) {
	sender := geoarea.Position{Lat: 48.0, Lon: -3.0}
	ego := geoarea.Position{Lat: 48.001, Lon: -3.0}
	// F is further along the same bearing, within R_max and a tight angle.
	forwarder := geoarea.Position{Lat: 48.002, Lon: -3.0}

	require.True(t, AdvancedAreaBetterPositioned(sender, ego, forwarder))
}

func TestAdvancedAreaNotBetterPositionedWhenCloser(t *testing.T) {
	sender := geoarea.Position{Lat: 48.0, Lon: -3.0}
	ego := geoarea.Position{Lat: 48.002, Lon: -3.0}
	forwarder := geoarea.Position{Lat: 48.001, Lon: -3.0} // closer to sender than ego

	require.False(t, AdvancedAreaBetterPositioned(sender, ego, forwarder))
}

func TestBeaconDefersOnTransmit(t *testing.T) {
	s := NewBeaconScheduler(tai.Time(0), rand.New(rand.NewSource(42)))
	require.True(t, s.Due(tai.Time(0)))

	s.DeferOnTransmit(tai.Time(1000))
	require.False(t, s.Due(tai.Time(2000)))
	require.False(t, s.Due(tai.Time(3999)))
}
