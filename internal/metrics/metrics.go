package metrics

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Collector instruments session activity and samples host resource
// usage for the performance panel.
type Collector struct {
	ticksTotal    prometheus.Counter
	alertsTotal   *prometheus.CounterVec
	sessionsGauge prometheus.GaugeFunc

	hostCPU prometheus.Gauge
	hostMem prometheus.Gauge
}

func NewCollector(sessionCount func() int) *Collector {
	return &Collector{
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "garudarush_ticks_total",
			Help: "Total number of effective monitoring ticks",
		}),
		alertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "garudarush_alerts_total",
			Help: "Total number of generated alerts by attack type",
		}, []string{"attack_type", "severity"}),
		sessionsGauge: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "garudarush_sessions",
			Help: "Number of registered monitoring sessions",
		}, func() float64 { return float64(sessionCount()) }),
		hostCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "garudarush_host_cpu_pct",
			Help: "Host CPU utilization at last sample",
		}),
		hostMem: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "garudarush_host_mem_pct",
			Help: "Host memory utilization at last sample",
		}),
	}
}

func (c *Collector) Register(reg prometheus.Registerer) {
	reg.MustRegister(c.ticksTotal, c.alertsTotal, c.sessionsGauge, c.hostCPU, c.hostMem)
}

func (c *Collector) ObserveTick() {
	c.ticksTotal.Inc()
}

func (c *Collector) ObserveAlert(attackType, severity string) {
	c.alertsTotal.WithLabelValues(attackType, severity).Inc()
}

// SystemSnapshot is the payload of the /api/system endpoint.
type SystemSnapshot struct {
	Timestamp  time.Time `json:"timestamp"`
	CPUPct     float64   `json:"cpu_pct"`
	MemPct     float64   `json:"mem_pct"`
	MemTotalGB float64   `json:"mem_total_gb"`
	MemUsedGB  float64   `json:"mem_used_gb"`
}

// SampleSystem reads host CPU and memory usage and updates the gauges.
func (c *Collector) SampleSystem() (*SystemSnapshot, error) {
	snap := &SystemSnapshot{Timestamp: time.Now()}

	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		snap.CPUPct = pcts[0]
		c.hostCPU.Set(pcts[0])
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, err
	}
	snap.MemPct = vm.UsedPercent
	snap.MemTotalGB = float64(vm.Total) / (1 << 30)
	snap.MemUsedGB = float64(vm.Used) / (1 << 30)
	c.hostMem.Set(vm.UsedPercent)

	return snap, nil
}

// StartSystemSampler refreshes the host gauges on a fixed period.
func (c *Collector) StartSystemSampler(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			if _, err := c.SampleSystem(); err != nil {
				log.Printf("system sample failed: %v", err)
			}
		}
	}()
}
