package models

import "time"

// AttackType is one of the simulated DDoS categories
type AttackType string

const (
	SynFlood         AttackType = "SYN Flood"
	UdpFlood         AttackType = "UDP Flood"
	HttpFlood        AttackType = "HTTP Flood"
	Slowloris        AttackType = "Slowloris"
	DnsAmplification AttackType = "DNS Amplification"
)

// AttackTypes is the fixed key set of the attack distribution
var AttackTypes = []AttackType{SynFlood, UdpFlood, HttpFlood, Slowloris, DnsAmplification}

// Severity of a detected attack
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
)

// TrafficSample is one point of the real-time traffic chart
type TrafficSample struct {
	Timestamp  time.Time `json:"timestamp"`
	Normal     int       `json:"normal"`
	Suspicious int       `json:"suspicious"`
	Attack     int       `json:"attack"`
}

// Alert represents a detected attack event
type Alert struct {
	ID         string     `json:"id"`
	Timestamp  time.Time  `json:"timestamp"`
	AttackType AttackType `json:"attack_type"`
	Severity   Severity   `json:"severity"`
	SourceIP   string     `json:"source_ip"`
	DestIP     string     `json:"dest_ip"`
	Confidence float64    `json:"confidence"` // percentage, one decimal
}

// Snapshot is a read-only copy of a session's monitoring state
type Snapshot struct {
	Running            bool               `json:"running"`
	TotalPackets       int64              `json:"total_packets"`
	NormalTraffic      int64              `json:"normal_traffic"`
	AttacksDetected    int64              `json:"attacks_detected"`
	AttackDistribution map[AttackType]int `json:"attack_distribution"`
	TrafficSeries      []TrafficSample    `json:"traffic_series"`
	Alerts             []Alert            `json:"alerts"` // newest first
}

// Stats are the derived values shown on the analytics panel
type Stats struct {
	DetectionAccuracy  float64 `json:"detection_accuracy"`
	CriticalAlerts     int     `json:"critical_alerts"`
	AverageConfidence  float64 `json:"average_confidence"`
	AttackRate         float64 `json:"attack_rate_pct"`
	Precision          float64 `json:"precision"`
	Recall             float64 `json:"recall"`
	F1Score            float64 `json:"f1_score"`
	FalsePositiveRate  float64 `json:"false_positive_rate"`
	AvgDetectionTimeMs float64 `json:"avg_detection_time_ms"`
}

// StoredRecord is one entry of the session's record log in Redis
type StoredRecord struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      string      `json:"type"` // "traffic" or "alert"
	Data      interface{} `json:"data"`
}

// RecordCounts summarizes the record log for the storage panel
type RecordCounts struct {
	Total   int64 `json:"total"`
	Traffic int64 `json:"traffic"`
	Alerts  int64 `json:"alerts"`
}

// SessionSettings controls the per-session tick behavior
type SessionSettings struct {
	// DetectionThreshold gates the per-tick attack draw; an attack is
	// recorded when the uniform draw lands at or above it.
	DetectionThreshold float64 `json:"detection_threshold"`
	// UpdateIntervalSec is the scheduler period in whole seconds, 1-10.
	UpdateIntervalSec int `json:"update_interval_sec"`
}

// SessionSettingsPatch is a partial settings change. Nil fields keep
// their current value, so an explicit zero threshold is distinguishable
// from an omitted one.
type SessionSettingsPatch struct {
	DetectionThreshold *float64 `json:"detection_threshold"`
	UpdateIntervalSec  *int     `json:"update_interval_sec"`
}

// Apply overlays the non-nil fields onto a settings value.
func (p SessionSettingsPatch) Apply(settings SessionSettings) SessionSettings {
	if p.DetectionThreshold != nil {
		settings.DetectionThreshold = *p.DetectionThreshold
	}
	if p.UpdateIntervalSec != nil {
		settings.UpdateIntervalSec = *p.UpdateIntervalSec
	}
	return settings
}

// SessionInfo identifies a session in list responses
type SessionInfo struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Running   bool            `json:"running"`
	Settings  SessionSettings `json:"settings"`
}
