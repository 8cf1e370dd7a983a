package monitor

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garudarush/internal/models"
)

// scriptedRand replays a fixed sequence of draws so a tick's outcome is
// known exactly.
type scriptedRand struct {
	ints   []int
	floats []float64
}

func (r *scriptedRand) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
}

func seededMonitor(seed int64) *SessionMonitor {
	return NewWithSource(rand.New(rand.NewSource(seed)), time.Now)
}

func TestTickNoAttackScenario(t *testing.T) {
	// Draw order inside Tick: normal, suspicious, attack sample values,
	// packet delta, normal delta, then the attack probability draw.
	rng := &scriptedRand{
		ints:   []int{50, 10, 5, 70, 50},
		floats: []float64{0.5}, // below the 0.85 threshold: no attack
	}
	m := NewWithSource(rng, fixedClock)
	m.Start()

	sample, alert := m.Tick()
	require.NotNil(t, sample)
	assert.Nil(t, alert)

	snap := m.Snapshot()
	require.Len(t, snap.TrafficSeries, 1)
	assert.Equal(t, 100, snap.TrafficSeries[0].Normal)
	assert.Equal(t, 10, snap.TrafficSeries[0].Suspicious)
	assert.Equal(t, 5, snap.TrafficSeries[0].Attack)
	assert.Equal(t, int64(120), snap.TotalPackets)
	assert.Equal(t, int64(90), snap.NormalTraffic)
	assert.Equal(t, int64(0), snap.AttacksDetected)
	assert.Empty(t, snap.Alerts)
}

func TestTickAttackScenario(t *testing.T) {
	rng := &scriptedRand{
		// sample + counter draws, then attack type (0 = SYN Flood),
		// severity, four source octets, dest octet
		ints:   []int{50, 10, 5, 70, 50, 0, 0, 9, 9, 9, 9, 41},
		floats: []float64{0.9, 0.5}, // attack fires; confidence 85+7=92.0
	}
	m := NewWithSource(rng, fixedClock)
	m.Start()

	_, alert := m.Tick()
	require.NotNil(t, alert)
	assert.Equal(t, models.SynFlood, alert.AttackType)
	assert.Equal(t, models.SeverityCritical, alert.Severity)
	assert.Equal(t, "10.10.10.10", alert.SourceIP)
	assert.Equal(t, "192.168.1.42", alert.DestIP)
	assert.Equal(t, 92.0, alert.Confidence)

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.AttacksDetected)
	assert.Equal(t, 1, snap.AttackDistribution[models.SynFlood])
	require.Len(t, snap.Alerts, 1)
	assert.Equal(t, models.SynFlood, snap.Alerts[0].AttackType)
}

func TestNoOpWhenStopped(t *testing.T) {
	m := seededMonitor(1)

	before := m.Snapshot()
	for i := 0; i < 20; i++ {
		sample, alert := m.Tick()
		assert.Nil(t, sample)
		assert.Nil(t, alert)
	}
	assert.Equal(t, before, m.Snapshot())
}

func TestBoundsHold(t *testing.T) {
	m := seededMonitor(2)
	m.SetThreshold(0) // every tick records an attack
	m.Start()

	for i := 0; i < 200; i++ {
		m.Tick()
		snap := m.Snapshot()
		assert.LessOrEqual(t, len(snap.TrafficSeries), MaxSamples)
		assert.LessOrEqual(t, len(snap.Alerts), MaxAlerts)
	}
}

func TestCountersMonotonic(t *testing.T) {
	m := seededMonitor(3)
	m.Start()

	prev := m.Snapshot()
	for i := 0; i < 60; i++ {
		m.Tick()
		snap := m.Snapshot()
		assert.GreaterOrEqual(t, snap.TotalPackets, prev.TotalPackets)
		assert.GreaterOrEqual(t, snap.NormalTraffic, prev.NormalTraffic)
		assert.GreaterOrEqual(t, snap.AttacksDetected, prev.AttacksDetected)
		for _, at := range models.AttackTypes {
			assert.GreaterOrEqual(t, snap.AttackDistribution[at], prev.AttackDistribution[at])
		}
		prev = snap
	}
}

func TestDistributionSumsToDetections(t *testing.T) {
	m := seededMonitor(4)
	m.Start()

	for i := 0; i < 50; i++ {
		m.Tick()
	}

	snap := m.Snapshot()
	sum := 0
	for _, n := range snap.AttackDistribution {
		sum += n
	}
	assert.Equal(t, snap.AttacksDetected, int64(sum))
}

func TestIdempotentStop(t *testing.T) {
	m := seededMonitor(5)
	m.Start()
	m.Tick()

	m.Stop()
	once := m.Snapshot()
	m.Stop()
	assert.Equal(t, once, m.Snapshot())
}

func TestResetCompleteness(t *testing.T) {
	m := seededMonitor(6)
	m.SetThreshold(0)
	m.Start()
	for i := 0; i < 30; i++ {
		m.Tick()
	}

	m.Reset()

	snap := m.Snapshot()
	assert.Equal(t, int64(0), snap.TotalPackets)
	assert.Equal(t, int64(0), snap.NormalTraffic)
	assert.Equal(t, int64(0), snap.AttacksDetected)
	assert.Empty(t, snap.TrafficSeries)
	assert.Empty(t, snap.Alerts)
	require.Len(t, snap.AttackDistribution, len(models.AttackTypes))
	for at, n := range snap.AttackDistribution {
		assert.Zerof(t, n, "bucket %s not cleared", at)
	}
	// reset does not stop the session
	assert.True(t, snap.Running)
}

func TestSaturationFreezesEverything(t *testing.T) {
	m := seededMonitor(7)
	m.Start()

	for i := 0; i < MaxSamples; i++ {
		sample, _ := m.Tick()
		require.NotNil(t, sample)
	}
	full := m.Snapshot()
	require.Len(t, full.TrafficSeries, MaxSamples)

	// Series full: the whole session is frozen, counters included.
	for i := 0; i < 25; i++ {
		sample, alert := m.Tick()
		assert.Nil(t, sample)
		assert.Nil(t, alert)
	}
	assert.Equal(t, full, m.Snapshot())
}

func TestAlertEvictionKeepsNewest(t *testing.T) {
	m := seededMonitor(8)
	m.SetThreshold(0)
	m.Start()

	var ids []string
	for i := 0; i < 11; i++ {
		_, alert := m.Tick()
		require.NotNil(t, alert)
		ids = append(ids, alert.ID)
	}

	snap := m.Snapshot()
	require.Len(t, snap.Alerts, MaxAlerts)
	// newest first, the very first alert evicted
	for i := 0; i < MaxAlerts; i++ {
		assert.Equal(t, ids[10-i], snap.Alerts[i].ID)
	}
}

func TestResolveRemovesAlert(t *testing.T) {
	m := seededMonitor(9)
	m.SetThreshold(0)
	m.Start()

	_, alert := m.Tick()
	require.NotNil(t, alert)
	_, second := m.Tick()
	require.NotNil(t, second)

	assert.True(t, m.Resolve(alert.ID))
	assert.False(t, m.Resolve(alert.ID))

	snap := m.Snapshot()
	require.Len(t, snap.Alerts, 1)
	assert.Equal(t, second.ID, snap.Alerts[0].ID)
	// resolving does not roll back the detection counters
	assert.Equal(t, int64(2), snap.AttacksDetected)
}

func TestThresholdGatesAttacks(t *testing.T) {
	m := seededMonitor(10)
	m.SetThreshold(1) // draw is always < 1: never an attack
	m.Start()

	for i := 0; i < MaxSamples; i++ {
		_, alert := m.Tick()
		assert.Nil(t, alert)
	}
	snap := m.Snapshot()
	assert.Equal(t, int64(0), snap.AttacksDetected)
	assert.Empty(t, snap.Alerts)
}

func TestThresholdClamped(t *testing.T) {
	m := seededMonitor(11)
	m.SetThreshold(-0.3)
	assert.Equal(t, 0.0, m.Threshold())
	m.SetThreshold(1.7)
	assert.Equal(t, 1.0, m.Threshold())
}

func TestDerivedViews(t *testing.T) {
	m := seededMonitor(12)

	assert.Equal(t, 0.0, m.DetectionAccuracy())
	assert.Equal(t, 0.0, m.AverageConfidence())
	assert.Equal(t, 0, m.CriticalAlertCount())

	m.SetThreshold(0)
	m.Start()
	for i := 0; i < 10; i++ {
		m.Tick()
	}

	assert.Equal(t, 96.5, m.DetectionAccuracy())

	snap := m.Snapshot()
	sum, critical := 0.0, 0
	for _, a := range snap.Alerts {
		sum += a.Confidence
		if a.Severity == models.SeverityCritical {
			critical++
		}
	}
	assert.InDelta(t, sum/float64(len(snap.Alerts)), m.AverageConfidence(), 1e-9)
	assert.Equal(t, critical, m.CriticalAlertCount())

	stats := m.Stats()
	assert.Equal(t, 96.5, stats.DetectionAccuracy)
	assert.Equal(t, 95.8, stats.Precision)
	assert.Equal(t, 97.2, stats.Recall)
	assert.Greater(t, stats.AttackRate, 0.0)
}

func TestConfidenceRange(t *testing.T) {
	m := seededMonitor(13)
	m.SetThreshold(0)
	m.Start()

	for i := 0; i < MaxSamples; i++ {
		_, alert := m.Tick()
		require.NotNil(t, alert)
		assert.GreaterOrEqual(t, alert.Confidence, 85.0)
		assert.LessOrEqual(t, alert.Confidence, 99.0)
	}
}
