package monitor

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"garudarush/internal/models"
)

const (
	// MaxSamples caps the traffic series. Once the series is full the
	// tick loop freezes entirely: counters and alerts stop accumulating
	// too, because they only advance inside the same guarded branch.
	MaxSamples = 50

	// MaxAlerts caps the alert log, newest first.
	MaxAlerts = 10

	// DefaultThreshold gates the per-tick attack draw. An attack fires
	// when the uniform draw lands at or above it, so 0.85 means a 15%
	// chance per tick.
	DefaultThreshold = 0.85
)

// Static model-performance figures shown on the analytics panel. These
// are fixed display values, not computed statistics.
const (
	displayAccuracy      = 96.5
	displayPrecision     = 95.8
	displayRecall        = 97.2
	displayF1            = 96.5
	displayFalsePositive = 3.2
	displayDetectionMs   = 3200.0
)

// Rand supplies the randomness a monitor draws from. *rand.Rand
// satisfies it; tests substitute a scripted source.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// SessionMonitor owns the monitoring state of one dashboard session:
// the running flag, cumulative counters, the bounded traffic series and
// the bounded alert log. It is the sole mutator of that state. Every
// operation is total; there are no error paths.
type SessionMonitor struct {
	mu        sync.Mutex
	rng       Rand
	now       func() time.Time
	threshold float64

	running         bool
	totalPackets    int64
	normalTraffic   int64
	attacksDetected int64
	distribution    map[models.AttackType]int
	series          []models.TrafficSample
	alerts          []models.Alert
}

// New creates a monitor with time-seeded randomness.
func New() *SessionMonitor {
	return NewWithSource(rand.New(rand.NewSource(time.Now().UnixNano())), time.Now)
}

// NewWithSource creates a monitor with an injected random source and
// clock, making ticks deterministic under a fixed seed.
func NewWithSource(rng Rand, now func() time.Time) *SessionMonitor {
	m := &SessionMonitor{
		rng:       rng,
		now:       now,
		threshold: DefaultThreshold,
	}
	m.resetLocked()
	return m
}

// Start activates the tick loop. No-op if already running.
func (m *SessionMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
}

// Stop deactivates the tick loop. No-op if already stopped.
func (m *SessionMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
}

// Running reports whether the monitor is accepting ticks.
func (m *SessionMonitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Reset zeroes all counters, clears the series and the alert log, and
// zeroes every attack-distribution bucket. Valid in any state; the
// running flag is left untouched.
func (m *SessionMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

func (m *SessionMonitor) resetLocked() {
	m.totalPackets = 0
	m.normalTraffic = 0
	m.attacksDetected = 0
	m.distribution = make(map[models.AttackType]int, len(models.AttackTypes))
	for _, t := range models.AttackTypes {
		m.distribution[t] = 0
	}
	m.series = nil
	m.alerts = nil
}

// SetThreshold updates the detection threshold, clamped to [0, 1].
func (m *SessionMonitor) SetThreshold(t float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	m.threshold = t
}

// Threshold returns the current detection threshold.
func (m *SessionMonitor) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// Tick advances the session by one step. It only has an effect while
// the monitor is running and the traffic series is not yet full; at
// MaxSamples the whole session saturates and further ticks change
// nothing. When effective it appends one traffic sample, grows the
// packet counters, and with probability 1-threshold records an attack
// and prepends an alert. The new sample and alert (nil when the attack
// branch did not fire) are returned for fan-out.
func (m *SessionMonitor) Tick() (*models.TrafficSample, *models.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running || len(m.series) >= MaxSamples {
		return nil, nil
	}

	sample := models.TrafficSample{
		Timestamp:  m.now().Truncate(time.Second),
		Normal:     m.randBetween(50, 150),
		Suspicious: m.randBetween(0, 30),
		Attack:     m.randBetween(0, 20),
	}
	// The guard above stops appends at MaxSamples, so the series never
	// needs trimming; the cap is enforced by never reaching it.
	m.series = append(m.series, sample)

	m.totalPackets += int64(m.randBetween(50, 200))
	m.normalTraffic += int64(m.randBetween(40, 180))

	var alert *models.Alert
	if m.rng.Float64() >= m.threshold {
		a := m.recordAttackLocked()
		alert = &a
	}

	return &sample, alert
}

func (m *SessionMonitor) recordAttackLocked() models.Alert {
	m.attacksDetected++

	attackType := models.AttackTypes[m.rng.Intn(len(models.AttackTypes))]
	m.distribution[attackType]++

	severities := []models.Severity{models.SeverityCritical, models.SeverityHigh, models.SeverityMedium}

	alert := models.Alert{
		ID:         uuid.New().String(),
		Timestamp:  m.now(),
		AttackType: attackType,
		Severity:   severities[m.rng.Intn(len(severities))],
		SourceIP: fmt.Sprintf("%d.%d.%d.%d",
			m.randBetween(1, 255), m.randBetween(1, 255),
			m.randBetween(1, 255), m.randBetween(1, 255)),
		DestIP:     fmt.Sprintf("192.168.1.%d", m.randBetween(1, 255)),
		Confidence: math.Round((85+m.rng.Float64()*14)*10) / 10,
	}

	m.alerts = append([]models.Alert{alert}, m.alerts...)
	if len(m.alerts) > MaxAlerts {
		m.alerts = m.alerts[:MaxAlerts]
	}

	return alert
}

// Resolve removes the alert with the given ID from the log. Counters
// are untouched; detections stay counted after their alert is cleared.
func (m *SessionMonitor) Resolve(alertID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, a := range m.alerts {
		if a.ID == alertID {
			m.alerts = append(m.alerts[:i], m.alerts[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns a deep copy of the current state for rendering.
func (m *SessionMonitor) Snapshot() models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	dist := make(map[models.AttackType]int, len(m.distribution))
	for t, n := range m.distribution {
		dist[t] = n
	}

	series := make([]models.TrafficSample, len(m.series))
	copy(series, m.series)

	alerts := make([]models.Alert, len(m.alerts))
	copy(alerts, m.alerts)

	return models.Snapshot{
		Running:            m.running,
		TotalPackets:       m.totalPackets,
		NormalTraffic:      m.normalTraffic,
		AttacksDetected:    m.attacksDetected,
		AttackDistribution: dist,
		TrafficSeries:      series,
		Alerts:             alerts,
	}
}

// DetectionAccuracy returns the displayed model accuracy: the fixed
// figure once any traffic has been seen, zero before that.
func (m *SessionMonitor) DetectionAccuracy() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.totalPackets > 0 {
		return displayAccuracy
	}
	return 0
}

// CriticalAlertCount returns how many retained alerts are Critical.
func (m *SessionMonitor) CriticalAlertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, a := range m.alerts {
		if a.Severity == models.SeverityCritical {
			n++
		}
	}
	return n
}

// AverageConfidence returns the mean confidence of the retained
// alerts, zero when the log is empty.
func (m *SessionMonitor) AverageConfidence() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.alerts) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range m.alerts {
		sum += a.Confidence
	}
	return sum / float64(len(m.alerts))
}

// Stats assembles the analytics-panel payload: the derived views plus
// the static model-performance figures.
func (m *SessionMonitor) Stats() models.Stats {
	accuracy := m.DetectionAccuracy()
	critical := m.CriticalAlertCount()
	avgConf := m.AverageConfidence()

	m.mu.Lock()
	defer m.mu.Unlock()

	rate := 0.0
	if m.totalPackets > 0 {
		rate = float64(m.attacksDetected) / float64(m.totalPackets) * 100
	}

	return models.Stats{
		DetectionAccuracy:  accuracy,
		CriticalAlerts:     critical,
		AverageConfidence:  avgConf,
		AttackRate:         rate,
		Precision:          displayPrecision,
		Recall:             displayRecall,
		F1Score:            displayF1,
		FalsePositiveRate:  displayFalsePositive,
		AvgDetectionTimeMs: displayDetectionMs,
	}
}

// randBetween draws a uniform integer in [lo, hi] inclusive.
func (m *SessionMonitor) randBetween(lo, hi int) int {
	return lo + m.rng.Intn(hi-lo+1)
}
